package profiles

import (
	"context"
	"fmt"

	"github.com/fabiofalopes/opencode/cli/cmd"
	"github.com/fabiofalopes/opencode/cli/helpers"
	"github.com/spf13/cobra"
)

// Cmd returns the profile command group
func Cmd() *cobra.Command {
	command := &cobra.Command{
		Use:   "profile",
		Short: "Switch and list usage profiles",
	}
	command.AddCommand(switchCmd(), listCmd())
	return command
}

func switchCmd() *cobra.Command {
	command := &cobra.Command{
		Use:   "switch",
		Short: "Compose the configuration from the base template with a usage profile",
		Long: `Apply a usage profile's global model and per-agent models to the base template,
merge the MCP server definitions and write the output. Machine placeholders are
resolved against --machine, or the active machine when one is set.`,
		Args: cobra.NoArgs,
		RunE: func(c *cobra.Command, args []string) error {
			return cmd.ExecuteCommand(c, runSwitch, args)
		},
	}
	command.Flags().String("profile", "", "Usage profile to apply (defaults to compose.default_profile)")
	command.Flags().String("machine", "", "Machine profile whose paths resolve {machine:<key>} placeholders")
	return command
}

func runSwitch(ctx context.Context, c *cobra.Command, executor *cmd.CommandExecutor, _ []string) error {
	ws := executor.Workspace()
	out := executor.Printer()
	name, err := c.Flags().GetString("profile")
	if err != nil {
		return fmt.Errorf("failed to get profile flag: %w", err)
	}
	if name == "" {
		name = ws.Config().Compose.DefaultProfile
	}
	machineName, err := c.Flags().GetString("machine")
	if err != nil {
		return fmt.Errorf("failed to get machine flag: %w", err)
	}

	out.Title("Switching to profile: '%s'...", name)
	if err := ws.ForbiddenProfile(name); err != nil {
		return err
	}
	reg, err := ws.Profiles()
	if err != nil {
		return err
	}
	profile, err := reg.Resolve(name)
	if err != nil {
		return err
	}
	out.KeyValue("Description", profile.Description)
	if profile.Model != "" {
		out.KeyValue("Global Model", profile.Model)
	}

	m, err := ws.OptionalMachine(machineName)
	if err != nil {
		return err
	}
	if m != nil {
		out.KeyValue("Machine", m.Name)
	}

	result, err := ws.Composer().Build(ctx, ws.BaseRequest(m, profile))
	if err != nil {
		return err
	}
	for _, override := range result.Overrides {
		out.Info("Agent '%s': %s", override.Name, override.Model)
	}
	out.Warnings(result.Warnings)
	out.Info("Merged %d MCP %s", len(result.Services), helpers.Pluralize(len(result.Services), "server", "servers"))
	out.Success("Generated %s with '%s' profile.", result.Output, name)
	return nil
}

func listCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List usage profiles",
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, args []string) error {
			return cmd.ExecuteCommand(c, runList, args)
		},
	}
}

func runList(_ context.Context, _ *cobra.Command, executor *cmd.CommandExecutor, _ []string) error {
	out := executor.Printer()
	reg, err := executor.Workspace().Profiles()
	if err != nil {
		return err
	}
	for _, name := range reg.Names() {
		profile, err := reg.Resolve(name)
		if err != nil {
			out.Result("%s (invalid: %v)", name, err)
			continue
		}
		if profile.Description != "" {
			out.Result("%s: %s [%s]", name, profile.Description, profile.Model)
		} else {
			out.Result("%s [%s]", name, profile.Model)
		}
	}
	return nil
}
