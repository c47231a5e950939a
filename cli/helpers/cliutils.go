package helpers

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/fabiofalopes/opencode/engine/core"
	"github.com/tidwall/pretty"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7D56F4"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#04B575"))
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFB86C"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B")).Bold(true)
	detailStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888")).Italic(true)
	keyStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#8BE9FD"))
)

// Printer writes command results. Informational lines are dropped in quiet mode;
// results, warnings and errors are always written.
type Printer struct {
	w      io.Writer
	styled bool
	quiet  bool
}

// NewPrinter creates a printer; styling is enabled only for color-capable terminals
func NewPrinter(w io.Writer, quiet bool) *Printer {
	return &Printer{w: w, styled: ShouldUseColor(w), quiet: quiet}
}

// Writer returns the underlying writer
func (p *Printer) Writer() io.Writer {
	return p.w
}

// Styled reports whether output is styled
func (p *Printer) Styled() bool {
	return p.styled
}

func (p *Printer) render(style lipgloss.Style, s string) string {
	if !p.styled {
		return s
	}
	return style.Render(s)
}

func (p *Printer) line(s string) {
	fmt.Fprintln(p.w, s)
}

// Title prints a section heading
func (p *Printer) Title(format string, args ...any) {
	if p.quiet {
		return
	}
	p.line(p.render(titleStyle, fmt.Sprintf(format, args...)))
}

// Info prints an informational line
func (p *Printer) Info(format string, args ...any) {
	if p.quiet {
		return
	}
	p.line("   " + fmt.Sprintf(format, args...))
}

// KeyValue prints an indented "key: value" line
func (p *Printer) KeyValue(key string, value any) {
	if p.quiet {
		return
	}
	p.line(fmt.Sprintf("   %s: %v", p.render(keyStyle, key), value))
}

// Mapping prints "from → to"
func (p *Printer) Mapping(from, to string) {
	if p.quiet {
		return
	}
	p.line(fmt.Sprintf("   %s → %s", p.render(keyStyle, from), to))
}

// Result prints a plain result line, also in quiet mode
func (p *Printer) Result(format string, args ...any) {
	p.line(fmt.Sprintf(format, args...))
}

// Success prints a completion message
func (p *Printer) Success(format string, args ...any) {
	p.line(p.render(successStyle, fmt.Sprintf(format, args...)))
}

// Warn prints a warning
func (p *Printer) Warn(format string, args ...any) {
	p.line(p.render(warnStyle, "Warning: "+fmt.Sprintf(format, args...)))
}

// Warnings prints each warning in order
func (p *Printer) Warnings(warnings []string) {
	for _, w := range warnings {
		p.Warn("%s", w)
	}
}

// Error prints one error line per joined error
func (p *Printer) Error(err error) {
	for _, e := range Unjoin(err) {
		p.line(p.render(errorStyle, "Error: "+e.Error()))
	}
}

// JSON prints a document, colored on terminals
func (p *Printer) JSON(doc any) error {
	data, err := RenderJSON(doc, p.styled)
	if err != nil {
		return err
	}
	_, err = p.w.Write(data)
	return err
}

// RenderJSON renders a document as indented JSON, optionally colored
func RenderJSON(doc any, color bool) ([]byte, error) {
	data, err := core.MarshalDocument(doc)
	if err != nil {
		return nil, err
	}
	if color {
		return pretty.Color(data, nil), nil
	}
	return data, nil
}

// Unjoin flattens errors built with errors.Join
func Unjoin(err error) []error {
	if err == nil {
		return nil
	}
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		var out []error
		for _, e := range joined.Unwrap() {
			out = append(out, Unjoin(e)...)
		}
		return out
	}
	return []error{err}
}

// FormatError renders err for the terminal
func FormatError(err error, styled bool) string {
	if err == nil {
		return ""
	}
	cliErr := Categorize(err)
	lines := make([]string, 0)
	causes := Unjoin(cliErr.Cause)
	if len(causes) == 0 {
		causes = []error{errors.New(cliErr.Message)}
	}
	for _, cause := range causes {
		msg := "Error: " + cause.Error()
		if styled {
			msg = errorStyle.Render(msg)
		}
		lines = append(lines, msg)
	}
	if cliErr.Details != "" {
		details := "Details: " + cliErr.Details
		if styled {
			details = detailStyle.Render(details)
		}
		lines = append(lines, details)
	}
	return strings.Join(lines, "\n")
}

// OutputError writes err to w
func OutputError(w io.Writer, err error) {
	if err == nil {
		return
	}
	fmt.Fprintln(w, FormatError(err, ShouldUseColor(w)))
}

// Pluralize returns singular or plural form based on count
func Pluralize(count int, singular, plural string) string {
	if count == 1 {
		return singular
	}
	return plural
}

// FormatTokens renders keys as {namespace:key} tokens
func FormatTokens(namespace string, keys []string) string {
	tokens := make([]string, len(keys))
	for i, key := range keys {
		tokens[i] = fmt.Sprintf("{%s:%s}", namespace, key)
	}
	return strings.Join(tokens, ", ")
}

// JoinOrNone joins names with commas, or returns "none"
func JoinOrNone(names []string) string {
	if len(names) == 0 {
		return "none"
	}
	return strings.Join(names, ", ")
}
