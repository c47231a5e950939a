package validate

import (
	"context"
	"errors"
	"fmt"

	"github.com/fabiofalopes/opencode/cli/cmd"
	"github.com/fabiofalopes/opencode/cli/helpers"
	"github.com/fabiofalopes/opencode/engine/agent"
	"github.com/fabiofalopes/opencode/engine/core"
	"github.com/spf13/cobra"
)

// ErrValidationFailed reports that a validation pass found errors
var ErrValidationFailed = errors.New("validation failed")

// Cmd returns the validate command group
func Cmd() *cobra.Command {
	command := &cobra.Command{
		Use:   "validate",
		Short: "Validate the base template, MCP definitions, profiles and agents",
	}
	command.AddCommand(configCmd(), profilesCmd(), agentsCmd())
	return command
}

func configCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Validate the base template and every MCP definition file",
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, args []string) error {
			return cmd.ExecuteCommand(c, runConfig, args)
		},
	}
}

func runConfig(_ context.Context, _ *cobra.Command, executor *cmd.CommandExecutor, _ []string) error {
	ws := executor.Workspace()
	out := executor.Printer()
	failures := 0

	basePath := ws.Config().Paths.BaseFile()
	out.Title("Validating %s...", basePath)
	if err := checkBase(ws, basePath); err != nil {
		out.Error(err)
		failures++
	} else {
		out.Success("%s is valid", basePath)
	}

	store := ws.Services()
	out.Title("Validating MCP definitions in %s...", store.Dir())
	if !store.Exists() {
		out.Warn("No MCP config directory found at %s", store.Dir())
	} else {
		reports, err := store.ValidateFiles()
		if err != nil {
			return err
		}
		for _, report := range reports {
			if len(report.Errors) == 0 {
				out.Success("%s: %d %s", report.File, len(report.Services),
					helpers.Pluralize(len(report.Services), "server", "servers"))
				continue
			}
			failures++
			out.Result("%s:", report.File)
			for _, err := range report.Errors {
				out.Error(err)
			}
		}
	}

	if failures > 0 {
		return fmt.Errorf("%w: %d %s with errors", ErrValidationFailed, failures,
			helpers.Pluralize(failures, "file", "files"))
	}
	out.Success("All configuration files are valid.")
	return nil
}

func checkBase(ws *cmd.Workspace, path string) error {
	base, err := core.ReadObject(ws.Fs(), path)
	if err != nil {
		return err
	}
	if _, ok := base.Get("model"); !ok {
		return &core.MissingFieldError{Subject: path, Field: "model"}
	}
	return nil
}

func profilesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "profiles",
		Short: "Validate usage profiles against the provider policy and the base agents",
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, args []string) error {
			return cmd.ExecuteCommand(c, runProfiles, args)
		},
	}
}

func runProfiles(_ context.Context, _ *cobra.Command, executor *cmd.CommandExecutor, _ []string) error {
	ws := executor.Workspace()
	out := executor.Printer()
	baseAgents, err := ws.BaseAgents()
	if err != nil {
		return err
	}
	reg, err := ws.Profiles()
	if err != nil {
		return err
	}
	out.Title("Validating %s...", reg.Path())
	report := reg.ValidateAll(baseAgents, ws.Policy())
	for _, line := range report.Info {
		out.Info("%s", line)
	}
	out.Warnings(report.Warnings)
	for _, err := range report.Errors {
		out.Error(err)
	}
	if !report.Valid() {
		return fmt.Errorf("%w: %d %s in %s", ErrValidationFailed, len(report.Errors),
			helpers.Pluralize(len(report.Errors), "error", "errors"), reg.Path())
	}
	out.Success("All %d %s are valid.", len(reg.Names()), helpers.Pluralize(len(reg.Names()), "profile", "profiles"))
	return nil
}

func agentsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "agents",
		Short: "Validate the frontmatter of every agent markdown file",
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, args []string) error {
			return cmd.ExecuteCommand(c, runAgents, args)
		},
	}
}

func runAgents(_ context.Context, _ *cobra.Command, executor *cmd.CommandExecutor, _ []string) error {
	ws := executor.Workspace()
	out := executor.Printer()
	dir := ws.Config().Paths.AgentsDir()
	out.Title("Validating agents in %s...", dir)
	results, err := agent.ValidateDir(ws.Fs(), dir)
	if err != nil {
		return err
	}
	failed := 0
	for _, result := range results {
		if result.Passed() {
			out.Success("%s", result.File)
			continue
		}
		failed++
		out.Result("%s:", result.File)
		for _, err := range result.Errors {
			out.Error(err)
		}
	}
	if failed > 0 {
		return fmt.Errorf("%w: %d of %d %s", ErrValidationFailed, failed, len(results),
			helpers.Pluralize(len(results), "agent", "agents"))
	}
	out.Success("All %d %s are valid.", len(results), helpers.Pluralize(len(results), "agent", "agents"))
	return nil
}
