package cmd

import (
	"context"
	"fmt"

	"github.com/fabiofalopes/opencode/cli/helpers"
	"github.com/fabiofalopes/opencode/engine/machine"
	"github.com/fabiofalopes/opencode/pkg/config"
	"github.com/fabiofalopes/opencode/pkg/logger"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

type envCtxKey struct{}

// Env carries the host dependencies of a command: the filesystem holding the
// configuration tree and the source of the live host identity.
type Env struct {
	Fs   afero.Fs
	Host func() (machine.Host, error)
}

// ContextWithEnv stores env in the context
func ContextWithEnv(ctx context.Context, env Env) context.Context {
	return context.WithValue(ctx, envCtxKey{}, env)
}

// EnvFromContext returns the env stored in ctx, filling unset fields with the
// operating system defaults.
func EnvFromContext(ctx context.Context) Env {
	env, _ := ctx.Value(envCtxKey{}).(Env)
	if env.Fs == nil {
		env.Fs = afero.NewOsFs()
	}
	if env.Host == nil {
		env.Host = machine.CurrentHost
	}
	return env
}

// CommandExecutor handles common setup for CLI commands: it builds the
// workspace from the loaded settings and the printer for command results.
type CommandExecutor struct {
	workspace *Workspace
	printer   *helpers.Printer
}

// HandlerFunc defines the signature for command handlers.
type HandlerFunc func(ctx context.Context, cmd *cobra.Command, executor *CommandExecutor, args []string) error

// NewCommandExecutor creates a new command executor with all necessary setup.
func NewCommandExecutor(cmd *cobra.Command) (*CommandExecutor, error) {
	ctx := cmd.Context()
	if ctx == nil {
		return nil, fmt.Errorf("command context is not initialized")
	}
	cfg := config.FromContext(ctx)
	env := EnvFromContext(ctx)
	logger.FromContext(ctx).Debug("Using configuration root", "root", cfg.Paths.Root)
	return &CommandExecutor{
		workspace: NewWorkspace(env, cfg),
		printer:   helpers.NewPrinter(cmd.OutOrStdout(), cfg.Runtime.Quiet),
	}, nil
}

// Workspace returns the configuration tree the command operates on
func (e *CommandExecutor) Workspace() *Workspace {
	return e.workspace
}

// Printer returns the writer for command results
func (e *CommandExecutor) Printer() *helpers.Printer {
	return e.printer
}

// ExecuteCommand creates the executor and runs handler with it.
func ExecuteCommand(cmd *cobra.Command, handler HandlerFunc, args []string) error {
	executor, err := NewCommandExecutor(cmd)
	if err != nil {
		return HandleCommonErrors(err)
	}
	return HandleCommonErrors(handler(cmd.Context(), cmd, executor, args))
}

// HandleCommonErrors converts errors to structured CLI errors.
func HandleCommonErrors(err error) error {
	if err == nil {
		return nil
	}
	switch err {
	case context.Canceled:
		return helpers.NewCliError("OPERATION_CANCELED", "Operation was canceled by user")
	case context.DeadlineExceeded:
		return helpers.NewCliError("OPERATION_TIMEOUT", "Operation timed out")
	}
	return helpers.Categorize(err)
}
