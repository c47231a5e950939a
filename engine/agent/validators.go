package agent

import (
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	"github.com/fabiofalopes/opencode/engine/autoload"
	"github.com/fabiofalopes/opencode/engine/core"
	"github.com/spf13/afero"
)

// Modes lists the accepted values of the mode field
var Modes = []string{"primary", "subagent", "all"}

const DefaultInclude = "*.md"

// Result is the outcome of validating one agent file
type Result struct {
	File        string
	Path        string
	Frontmatter map[string]any
	Errors      []error
}

// Passed reports whether the file has no violations
func (r *Result) Passed() bool {
	return len(r.Errors) == 0
}

// ValidateFile reads one agent definition and checks its frontmatter
func ValidateFile(fs afero.Fs, path string) *Result {
	result := &Result{File: filepath.Base(path), Path: path}
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Errorf("cannot read file: %w", err))
		return result
	}
	fields, err := ParseFrontmatter(string(data))
	if err != nil {
		if errors.Is(err, ErrNoFrontmatter) {
			result.Errors = append(result.Errors, err)
		} else {
			result.Errors = append(result.Errors, &core.ParseError{File: path, Cause: err})
		}
		return result
	}
	result.Frontmatter = fields
	result.Errors = ValidateFrontmatter(result.File, fields)
	return result
}

// ValidateDir validates every agent file of dir in lexicographic order
func ValidateDir(fs afero.Fs, dir string) ([]*Result, error) {
	exists, err := afero.DirExists(fs, dir)
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", dir, err)
	}
	if !exists {
		return nil, &core.NotFoundError{Kind: "agent directory", Name: dir}
	}
	files, err := autoload.NewFileDiscoverer(fs, dir).Discover([]string{DefaultInclude}, nil)
	if err != nil {
		return nil, err
	}
	results := make([]*Result, 0, len(files))
	for _, file := range files {
		results = append(results, ValidateFile(fs, file))
	}
	return results, nil
}

// ValidateFrontmatter checks the decoded header of one agent file
func ValidateFrontmatter(subject string, fields map[string]any) []error {
	var errs []error
	errs = append(errs, validateDescription(subject, fields)...)
	errs = append(errs, validateTools(subject, fields)...)
	errs = append(errs, validateTemperature(subject, fields)...)
	errs = append(errs, validateMode(subject, fields)...)
	return errs
}

func validateDescription(subject string, fields map[string]any) []error {
	v, ok := fields["description"]
	if !ok || isEmpty(v) {
		return []error{&core.MissingFieldError{Subject: subject, Field: "description", Reason: "(required)"}}
	}
	if _, ok := v.(string); !ok {
		return []error{&core.ShapeError{Subject: subject, Field: "description", Value: v, Expected: "a string"}}
	}
	return nil
}

func validateTools(subject string, fields map[string]any) []error {
	v, ok := fields["tools"]
	if !ok {
		return nil
	}
	switch tools := v.(type) {
	case []any:
		return []error{&core.ShapeError{
			Subject:  subject,
			Field:    "tools",
			Value:    tools,
			Expected: "a map of tool name to boolean, not an array",
		}}
	case map[string]any:
		names := make([]string, 0, len(tools))
		for name := range tools {
			names = append(names, name)
		}
		slices.Sort(names)
		var errs []error
		for _, name := range names {
			if _, ok := tools[name].(bool); !ok {
				errs = append(errs, &core.ShapeError{
					Subject:  subject,
					Field:    fmt.Sprintf("tool \"%s\"", name),
					Value:    tools[name],
					Expected: "a boolean",
				})
			}
		}
		return errs
	default:
		return []error{&core.ShapeError{Subject: subject, Field: "tools", Value: v, Expected: "a map of tool name to boolean"}}
	}
}

func validateTemperature(subject string, fields map[string]any) []error {
	v, ok := fields["temperature"]
	if !ok {
		return nil
	}
	var temperature float64
	switch t := v.(type) {
	case int:
		temperature = float64(t)
	case float64:
		temperature = t
	default:
		return []error{&core.ShapeError{Subject: subject, Field: "temperature", Value: v, Expected: "a number"}}
	}
	if temperature < 0 || temperature > 1 {
		return []error{&core.ShapeError{Subject: subject, Field: "temperature", Value: v, Expected: "a number between 0 and 1"}}
	}
	return nil
}

func validateMode(subject string, fields map[string]any) []error {
	v, ok := fields["mode"]
	if !ok {
		return nil
	}
	if mode, isString := v.(string); isString && slices.Contains(Modes, mode) {
		return nil
	}
	return []error{&core.ShapeError{
		Subject:  subject,
		Field:    "mode",
		Value:    v,
		Expected: "one of: " + strings.Join(Modes, ", "),
	}}
}

func isEmpty(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return t == ""
	case bool:
		return !t
	case int:
		return t == 0
	case float64:
		return t == 0
	default:
		return false
	}
}
