package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/fabiofalopes/opencode/cli/cmd/doctor"
	"github.com/fabiofalopes/opencode/cli/cmd/machines"
	"github.com/fabiofalopes/opencode/cli/cmd/mcps"
	"github.com/fabiofalopes/opencode/cli/cmd/profiles"
	"github.com/fabiofalopes/opencode/cli/cmd/validate"
	"github.com/fabiofalopes/opencode/cli/helpers"
	"github.com/fabiofalopes/opencode/pkg/config"
	"github.com/fabiofalopes/opencode/pkg/logger"
	"github.com/fabiofalopes/opencode/pkg/version"
	"github.com/spf13/cobra"
)

func RootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "opencode-config",
		Short: "Compose opencode.json from machine profiles, usage profiles and MCP definitions",
		Long: `opencode-config builds the opencode configuration from a layered tree:
a template, a machine profile whose paths fill {machine:<key>} placeholders,
an optional usage profile that selects models, and the MCP server definitions
kept in separate files.`,
		Version:       version.Get().String(),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return SetupGlobalConfig(cmd)
		},
	}

	flags := root.PersistentFlags()
	flags.String("config-dir", "", "Configuration root directory (env "+config.RootEnvVar+")")
	flags.String("log-level", "info", "Log level (debug, info, warn, error, disabled)")
	flags.Bool("log-json", false, "Emit logs as JSON")
	flags.Bool("log-source", false, "Include source locations in logs")
	flags.BoolP("quiet", "q", false, "Only print results, warnings and errors")
	flags.String("env-file", ".env", "Environment file loaded before settings are read")

	root.AddCommand(
		machines.Cmd(),
		profiles.Cmd(),
		mcps.Cmd(),
		validate.Cmd(),
		doctor.Cmd(),
		ConfigCmd(),
	)
	return root
}

// SetupGlobalConfig loads the settings for cmd and stores them, together with
// the logger, in the command context.
func SetupGlobalConfig(cmd *cobra.Command) error {
	if _, err := loadEnvFile(cmd); err != nil {
		return err
	}
	flags := make(map[string]any)
	extractCLIFlags(cmd, flags)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := config.NewService().Load(ctx, config.NewCLIProvider(flags))
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	log := logger.SetupLogger(cfg.Runtime.LogLevel, cfg.Runtime.LogJSON, cfg.Runtime.LogSource, cfg.Runtime.Quiet)
	log.Debug("Loaded configuration", "root", cfg.Paths.Root)

	ctx = logger.ContextWithLogger(ctx, log)
	ctx = config.ContextWithConfig(ctx, cfg)
	cmd.SetContext(ctx)
	return nil
}

// Execute runs the root command and reports a failure on stderr
func Execute() error {
	if err := RootCmd().Execute(); err != nil {
		helpers.OutputError(os.Stderr, err)
		return err
	}
	return nil
}
