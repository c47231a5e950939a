package mcps

import (
	"context"
	"fmt"

	"github.com/fabiofalopes/opencode/cli/cmd"
	"github.com/fabiofalopes/opencode/cli/helpers"
	"github.com/fabiofalopes/opencode/engine/core"
	"github.com/fabiofalopes/opencode/pkg/logger"
	"github.com/spf13/cobra"
)

// Cmd returns the mcp command group
func Cmd() *cobra.Command {
	command := &cobra.Command{
		Use:   "mcp",
		Short: "Build, toggle and list MCP server definitions",
		Long: `Manage the MCP server definitions kept in the mcp-config directory.
Definition files are merged in lexicographic order; a later file replaces an
earlier definition of the same server.`,
	}
	command.AddCommand(buildCmd(), toggleCmd(true), toggleCmd(false), listCmd())
	return command
}

func buildCmd() *cobra.Command {
	command := &cobra.Command{
		Use:   "build",
		Short: "Compose the configuration from the base template and the MCP definitions",
		Long: `Compose the base template with the MCP server definitions. Profile
placeholders are filled from --profile, or compose.default_profile when the
profiles file exists. Machine placeholders use the active machine.`,
		Args: cobra.NoArgs,
		RunE: func(c *cobra.Command, args []string) error {
			return cmd.ExecuteCommand(c, runBuild, args)
		},
	}
	command.Flags().Bool("dry-run", false, "Print the composed document instead of writing it")
	command.Flags().String("profile", "", "Usage profile to apply (defaults to compose.default_profile)")
	return command
}

func runBuild(ctx context.Context, c *cobra.Command, executor *cmd.CommandExecutor, _ []string) error {
	dryRun, err := c.Flags().GetBool("dry-run")
	if err != nil {
		return fmt.Errorf("failed to get dry-run flag: %w", err)
	}
	profileName, err := c.Flags().GetString("profile")
	if err != nil {
		return fmt.Errorf("failed to get profile flag: %w", err)
	}
	return build(ctx, executor, profileName, dryRun)
}

func build(ctx context.Context, executor *cmd.CommandExecutor, profileName string, dryRun bool) error {
	ws := executor.Workspace()
	out := executor.Printer()
	m, err := ws.OptionalMachine("")
	if err != nil {
		return err
	}
	p, err := ws.BuildProfile(profileName)
	if err != nil {
		return err
	}
	req := ws.BaseRequest(m, p)
	out.Title("Building %s from modular configs...", req.OutputPath)
	if p != nil {
		out.KeyValue("Profile", p.Name)
	}
	files, err := ws.Services().Files()
	if err != nil {
		return err
	}
	for _, file := range files {
		out.Info("Merging %s", file)
	}
	if dryRun {
		result, err := ws.Composer().Compose(ctx, req)
		if err != nil {
			return err
		}
		out.Warnings(result.Warnings)
		return out.JSON(result.Document)
	}
	result, err := ws.Composer().Build(ctx, req)
	if err != nil {
		return err
	}
	out.Warnings(result.Warnings)
	out.Success("Built %s with %d MCP %s.", result.Output, len(result.Services),
		helpers.Pluralize(len(result.Services), "server", "servers"))
	return nil
}

func toggleCmd(enabled bool) *cobra.Command {
	use, verb := "disable", "Disable"
	if enabled {
		use, verb = "enable", "Enable"
	}
	return &cobra.Command{
		Use:   use + " <name>...",
		Short: verb + " MCP servers and rebuild the configuration",
		Long: verb + ` each named server in the first definition file that declares it.
Unknown names are reported and the remaining names still proceed. The
configuration is rebuilt when at least one server was updated.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			return cmd.ExecuteCommand(c, func(
				ctx context.Context,
				_ *cobra.Command,
				executor *cmd.CommandExecutor,
				names []string,
			) error {
				return runToggle(ctx, executor, names, enabled)
			}, args)
		},
	}
}

func runToggle(ctx context.Context, executor *cmd.CommandExecutor, names []string, enabled bool) error {
	out := executor.Printer()
	state := "disabled"
	if enabled {
		state = "enabled"
	}
	toggles, found := executor.Workspace().SetServicesEnabled(names, enabled)
	for _, toggle := range toggles {
		if toggle.Err != nil {
			out.Error(toggle.Err)
			continue
		}
		out.Success("%s %s in %s", state, toggle.Name, toggle.File)
	}
	if found == 0 {
		return fmt.Errorf("%w: none of the named MCP servers were found: %s",
			core.ErrNotFound, helpers.JoinOrNone(names))
	}
	logger.FromContext(ctx).Debug("Rebuilding after toggle", "updated", found, "requested", len(names))
	return build(ctx, executor, "", false)
}

func listCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List merged MCP servers with their state and source file",
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, args []string) error {
			return cmd.ExecuteCommand(c, runList, args)
		},
	}
}

func runList(_ context.Context, _ *cobra.Command, executor *cmd.CommandExecutor, _ []string) error {
	out := executor.Printer()
	store := executor.Workspace().Services()
	if !store.Exists() {
		out.Warn("No MCP config directory found at %s", store.Dir())
		return nil
	}
	catalog, err := store.LoadAll()
	if err != nil {
		return err
	}
	for _, def := range catalog.Definitions() {
		state := "disabled"
		if def.Enabled() {
			state = "enabled"
		}
		kind := string(def.Type())
		if kind == "" {
			kind = "unknown"
		}
		out.Result("%s [%s] %s (%s)", def.Name, kind, state, def.Source)
	}
	out.Info("%d MCP %s from %d %s", catalog.Len(), helpers.Pluralize(catalog.Len(), "server", "servers"),
		len(catalog.Files()), helpers.Pluralize(len(catalog.Files()), "file", "files"))
	return nil
}
