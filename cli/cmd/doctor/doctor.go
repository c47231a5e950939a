package doctor

import (
	"context"

	"github.com/fabiofalopes/opencode/cli/cmd"
	"github.com/fabiofalopes/opencode/cli/helpers"
	"github.com/spf13/cobra"
)

// Cmd returns the doctor command
func Cmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check the configuration tree and generate the configuration when it is missing",
		Long: `Report the state of the machine store, the active machine and the composed
configuration. When the configuration is missing, an active machine is set and
the machine template exists, the configuration is composed from the template.`,
		Args: cobra.NoArgs,
		RunE: func(c *cobra.Command, args []string) error {
			return cmd.ExecuteCommand(c, runDoctor, args)
		},
	}
}

func runDoctor(ctx context.Context, _ *cobra.Command, executor *cmd.CommandExecutor, _ []string) error {
	ws := executor.Workspace()
	out := executor.Printer()
	paths := ws.Config().Paths
	out.Title("Checking configuration in %s...", paths.Root)

	if !ws.Exists(paths.MachinesFile()) {
		out.Warn("No machine store found at %s. Create it to enable machine profiles.", paths.MachinesFile())
		return nil
	}
	reg, err := ws.Machines()
	if err != nil {
		return err
	}
	out.KeyValue("Machines", helpers.JoinOrNone(reg.List()))
	active, hasActive := reg.Active().Get()

	if ws.Exists(paths.OutputFile()) {
		out.Success("%s exists.", paths.OutputFile())
		if hasActive {
			out.Success("Active machine: %s", active)
		} else {
			out.Warn("No active machine set. Run 'machine detect --set' or 'machine init --machine=<name>'.")
		}
		return nil
	}

	out.Warn("%s is missing.", paths.OutputFile())
	if !ws.Exists(paths.TemplateFile()) {
		out.Warn("No template found at %s. Cannot generate %s.", paths.TemplateFile(), paths.OutputFile())
		return nil
	}
	if !hasActive {
		out.Warn("No active machine set. Available: %s", helpers.JoinOrNone(reg.List()))
		out.Info("Run 'machine init --machine=<name>' to generate %s.", paths.OutputFile())
		return nil
	}

	profile, err := reg.Get(active)
	if err != nil {
		return err
	}
	out.Title("Generating %s for machine '%s'...", paths.OutputFile(), active)
	result, err := ws.Composer().Build(ctx, ws.MachineRequest(profile))
	if err != nil {
		return err
	}
	out.Warnings(result.Warnings)
	out.Success("Generated %s.", result.Output)
	return nil
}
