package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"reflect"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/fabiofalopes/opencode/pkg/config"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// ConfigCmd returns the config command
func ConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect the tool settings",
	}
	cmd.AddCommand(configShowCmd())
	return cmd
}

// configShowCmd shows the current settings with source information
func configShowCmd() *cobra.Command {
	var (
		format      string
		showSources bool
	)
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show current settings and their sources",
		Long: `Display the effective settings with optional source information.
This command shows which source (CLI, environment, or default) provided each value.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runConfigShow(cmd, format, showSources)
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "table", "Output format (json, yaml, table)")
	cmd.Flags().BoolVarP(&showSources, "sources", "s", false, "Show configuration sources")
	return cmd
}

func runConfigShow(cmd *cobra.Command, format string, showSources bool) error {
	cfg, sources, err := loadConfigWithSources(cmd)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	return formatConfigOutput(cmd.OutOrStdout(), cfg, sources, format, showSources)
}

// loadConfigWithSources reloads the settings from the command line and
// records which source provided every key
func loadConfigWithSources(cmd *cobra.Command) (*config.Config, map[string]config.SourceType, error) {
	service := config.NewService()
	flags := make(map[string]any)
	extractCLIFlags(cmd, flags)
	cfg, err := service.Load(cmd.Context(), config.NewCLIProvider(flags))
	if err != nil {
		return nil, nil, err
	}
	sources := make(map[string]config.SourceType)
	for key := range flattenConfig(cfg) {
		sources[key] = service.GetSource(key)
	}
	return cfg, sources, nil
}

// formatConfigOutput formats and outputs the settings in the requested format
func formatConfigOutput(
	w io.Writer,
	cfg *config.Config,
	sources map[string]config.SourceType,
	format string,
	showSources bool,
) error {
	output := map[string]any{"config": settingsMap(reflect.ValueOf(cfg))}
	if showSources && len(sources) > 0 {
		output["sources"] = sources
	}
	switch format {
	case "json":
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(output)
	case "yaml":
		encoder := yaml.NewEncoder(w)
		encoder.SetIndent(2)
		defer encoder.Close()
		return encoder.Encode(output)
	case "table":
		return outputTable(w, cfg, sources, showSources)
	default:
		return fmt.Errorf("unsupported format: %s", format)
	}
}

// outputTable outputs the settings as a table
func outputTable(w io.Writer, cfg *config.Config, sources map[string]config.SourceType, showSources bool) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	flat := flattenConfig(cfg)
	keys := make([]string, 0, len(flat))
	for k := range flat {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	if showSources {
		fmt.Fprintln(tw, "KEY\tVALUE\tSOURCE")
		fmt.Fprintln(tw, "---\t-----\t------")
	} else {
		fmt.Fprintln(tw, "KEY\tVALUE")
		fmt.Fprintln(tw, "---\t-----")
	}
	for _, key := range keys {
		if !showSources {
			fmt.Fprintf(tw, "%s\t%s\n", key, flat[key])
			continue
		}
		source := sources[key]
		if source == "" {
			source = config.SourceDefault
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", key, flat[key], source)
	}
	return tw.Flush()
}

// settingsMap converts a settings struct into nested maps keyed by koanf tags
func settingsMap(val reflect.Value) any {
	if val.Kind() == reflect.Ptr {
		val = val.Elem()
	}
	if val.Kind() != reflect.Struct {
		return val.Interface()
	}
	out := make(map[string]any)
	typ := val.Type()
	for i := 0; i < val.NumField(); i++ {
		field := typ.Field(i)
		tag := field.Tag.Get("koanf")
		if !field.IsExported() || tag == "" || tag == "-" {
			continue
		}
		out[tag] = settingsMap(val.Field(i))
	}
	return out
}

// flattenConfig converts the nested settings to dotted keys
func flattenConfig(cfg *config.Config) map[string]string {
	result := make(map[string]string)
	flattenInto("", settingsMap(reflect.ValueOf(cfg)), result)
	return result
}

func flattenInto(prefix string, v any, result map[string]string) {
	m, ok := v.(map[string]any)
	if !ok {
		switch value := v.(type) {
		case []string:
			result[prefix] = strings.Join(value, ",")
		default:
			result[prefix] = fmt.Sprintf("%v", value)
		}
		return
	}
	for key, child := range m {
		if prefix != "" {
			key = prefix + "." + key
		}
		flattenInto(key, child, result)
	}
}
