package machines

import (
	"context"
	"fmt"
	"sort"

	"github.com/fabiofalopes/opencode/cli/cmd"
	"github.com/fabiofalopes/opencode/cli/helpers"
	"github.com/fabiofalopes/opencode/engine/composer"
	"github.com/fabiofalopes/opencode/engine/core"
	"github.com/fabiofalopes/opencode/engine/machine"
	"github.com/fabiofalopes/opencode/pkg/logger"
	"github.com/fabiofalopes/opencode/pkg/tplengine"
	"github.com/spf13/cobra"
)

// Cmd returns the machine command group
func Cmd() *cobra.Command {
	command := &cobra.Command{
		Use:   "machine",
		Short: "Detect, list and switch machine profiles",
	}
	command.AddCommand(detectCmd(), initCmd(), listCmd())
	return command
}

func detectCmd() *cobra.Command {
	command := &cobra.Command{
		Use:   "detect",
		Short: "Detect the machine profile for this host",
		Long: `Match the host platform and hostname against machines.json.
The first profile in store order whose platform matches and whose hostname,
when present, is contained in the live hostname wins.`,
		Args: cobra.NoArgs,
		RunE: func(c *cobra.Command, args []string) error {
			return cmd.ExecuteCommand(c, runDetect, args)
		},
	}
	command.Flags().Bool("set", false, "Persist the detected profile as the active machine")
	return command
}

func runDetect(_ context.Context, c *cobra.Command, executor *cmd.CommandExecutor, _ []string) error {
	ws := executor.Workspace()
	out := executor.Printer()
	reg, err := ws.Machines()
	if err != nil {
		return err
	}
	host, err := ws.Host()
	if err != nil {
		return err
	}
	out.Title("Detecting machine...")
	out.KeyValue("Platform", host.Platform)
	out.KeyValue("Hostname", host.Hostname)

	name, ok := reg.Detect(host)
	if !ok {
		out.Warn("No matching machine profile found. Add a profile to %s for this machine.", reg.Path())
		return fmt.Errorf("%w: no machine profile matches platform '%s' and hostname '%s'",
			core.ErrNotFound, host.Platform, host.Hostname)
	}
	out.Success("Detected machine profile: %s", name)

	set, err := c.Flags().GetBool("set")
	if err != nil {
		return fmt.Errorf("failed to get set flag: %w", err)
	}
	if !set {
		out.Info("Run with --set to update %s", reg.Path())
		return nil
	}
	if err := reg.SetActive(name); err != nil {
		return err
	}
	out.Success("Set active machine to: %s", name)
	return nil
}

func initCmd() *cobra.Command {
	command := &cobra.Command{
		Use:     "init",
		Aliases: []string{"switch"},
		Short:   "Activate a machine profile and compose the configuration from the template",
		Long: `Select the machine named by --machine, or the active machine when omitted,
record it as active and compose the output from the machine template with every
{machine:<key>} placeholder resolved.`,
		Args: cobra.NoArgs,
		RunE: func(c *cobra.Command, args []string) error {
			return cmd.ExecuteCommand(c, runInit, args)
		},
	}
	command.Flags().String("machine", "", "Machine profile to activate")
	return command
}

func runInit(ctx context.Context, c *cobra.Command, executor *cmd.CommandExecutor, _ []string) error {
	ws := executor.Workspace()
	out := executor.Printer()
	explicit, err := c.Flags().GetString("machine")
	if err != nil {
		return fmt.Errorf("failed to get machine flag: %w", err)
	}
	if c.Flags().Changed("machine") && explicit == "" {
		return helpers.NewCliError("EMPTY_FLAG", "missing machine name after --machine=")
	}
	reg, err := ws.Machines()
	if err != nil {
		return err
	}
	name, fromActive, err := ws.MachineName(reg, explicit)
	if err != nil {
		return err
	}
	if fromActive {
		out.Info("Using active machine profile: '%s'", name)
	}

	out.Title("Switching to machine profile: '%s'...", name)
	profile, err := reg.Get(name)
	if err != nil {
		return err
	}
	description := profile.Description
	if description == "" {
		description = "No description provided"
	}
	out.KeyValue("Description", description)
	out.KeyValue("Platform", profile.Platform)

	if err := reg.SetActive(name); err != nil {
		return err
	}
	out.Success("Updated active machine to '%s'.", name)

	if err := composeTemplate(ctx, ws, out, profile); err != nil {
		return err
	}
	printPaths(out, profile)
	return nil
}

func composeTemplate(ctx context.Context, ws *cmd.Workspace, out *helpers.Printer, profile *machine.Profile) error {
	req := ws.MachineRequest(profile)
	out.Title("Generating %s from template...", req.OutputPath)
	if !ws.Exists(req.TemplatePath) {
		out.Warn("No template found at %s. Skipping template generation.", req.TemplatePath)
		return nil
	}
	result, err := ws.Composer().Build(ctx, req)
	if err != nil {
		logger.FromContext(ctx).Debug("Composition failed", "template", req.TemplatePath, "error", err)
		return err
	}
	out.Warnings(result.Warnings)
	if len(result.MachineKeys) > 0 {
		out.Success("Generated %s with resolved paths: %s", result.Output,
			helpers.FormatTokens(string(tplengine.NamespaceMachine), result.MachineKeys))
	} else {
		out.Success("Generated %s (no machine placeholders found).", result.Output)
	}
	printServices(out, result)
	return nil
}

func printServices(out *helpers.Printer, result *composer.Result) {
	out.Info("Merged %d MCP %s", len(result.Services), helpers.Pluralize(len(result.Services), "server", "servers"))
}

func printPaths(out *helpers.Printer, profile *machine.Profile) {
	keys := profile.PathKeys
	if len(keys) == 0 {
		for key := range profile.Paths {
			keys = append(keys, key)
		}
		sort.Strings(keys)
	}
	out.Title("Resolved path mappings:")
	for _, key := range keys {
		out.Mapping(fmt.Sprintf("{machine:%s}", key), profile.Paths[key])
	}
}

func listCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List machine profiles and the active selection",
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, args []string) error {
			return cmd.ExecuteCommand(c, runList, args)
		},
	}
}

func runList(_ context.Context, _ *cobra.Command, executor *cmd.CommandExecutor, _ []string) error {
	out := executor.Printer()
	reg, err := executor.Workspace().Machines()
	if err != nil {
		return err
	}
	active := reg.Active()
	activeName, _ := active.Get()
	for _, name := range reg.List() {
		marker := " "
		if name == activeName {
			marker = "*"
		}
		profile, err := reg.Get(name)
		if err != nil {
			out.Result("%s %s (invalid: %v)", marker, name, err)
			continue
		}
		if profile.Description != "" {
			out.Result("%s %s [%s] %s", marker, name, profile.Platform, profile.Description)
		} else {
			out.Result("%s %s [%s]", marker, name, profile.Platform)
		}
	}
	out.Result("Current active: %s", active)
	return nil
}
