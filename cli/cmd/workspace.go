package cmd

import (
	"errors"
	"fmt"

	"github.com/fabiofalopes/opencode/cli/helpers"
	"github.com/fabiofalopes/opencode/engine/autoload"
	"github.com/fabiofalopes/opencode/engine/composer"
	"github.com/fabiofalopes/opencode/engine/core"
	"github.com/fabiofalopes/opencode/engine/machine"
	"github.com/fabiofalopes/opencode/engine/mcp"
	"github.com/fabiofalopes/opencode/engine/profile"
	"github.com/fabiofalopes/opencode/pkg/config"
	"github.com/spf13/afero"
)

// Workspace is the configuration tree under one root, as located by the settings
type Workspace struct {
	env Env
	cfg *config.Config
}

// NewWorkspace creates a workspace over env's filesystem
func NewWorkspace(env Env, cfg *config.Config) *Workspace {
	return &Workspace{env: env, cfg: cfg}
}

func (w *Workspace) Config() *config.Config {
	return w.cfg
}

func (w *Workspace) Fs() afero.Fs {
	return w.env.Fs
}

// Host returns the live host identity
func (w *Workspace) Host() (machine.Host, error) {
	return w.env.Host()
}

// Exists reports whether path exists in the workspace filesystem
func (w *Workspace) Exists(path string) bool {
	ok, err := afero.Exists(w.env.Fs, path)
	return err == nil && ok
}

func (w *Workspace) Machines() (*machine.Registry, error) {
	return machine.Load(w.env.Fs, w.cfg.Paths.MachinesFile())
}

func (w *Workspace) Profiles() (*profile.Registry, error) {
	return profile.Load(w.env.Fs, w.cfg.Paths.ProfilesFile())
}

// Services returns the service definition store configured by the settings
func (w *Workspace) Services() *mcp.Store {
	discovery := autoload.NewConfig(w.cfg.Compose.MCPInclude...)
	discovery.Exclude = w.cfg.Compose.MCPExclude
	return mcp.NewStore(
		w.env.Fs,
		w.cfg.Paths.ServiceDir(),
		mcp.WithWrapperKey(w.cfg.Compose.MCPWrapperKey),
		mcp.WithDiscovery(discovery),
	)
}

func (w *Workspace) Composer() *composer.Composer {
	return composer.New(w.env.Fs, w.Services())
}

// Policy returns the provider policy from the settings
func (w *Workspace) Policy() profile.Policy {
	return profile.Policy{
		Allowed:   w.cfg.Policy.AllowedProviders,
		Forbidden: w.cfg.Policy.ForbiddenProviders,
	}
}

// MachineName returns the explicit name when given, the active machine otherwise.
// fromActive reports which one was used.
func (w *Workspace) MachineName(reg *machine.Registry, explicit string) (name string, fromActive bool, err error) {
	if explicit != "" {
		return explicit, false, nil
	}
	if active, ok := reg.Active().Get(); ok {
		return active, true, nil
	}
	return "", false, helpers.NoActiveMachineError(reg.List())
}

// OptionalMachine returns the explicit or active machine, or nil when neither
// is set. An explicit name must exist.
func (w *Workspace) OptionalMachine(explicit string) (*machine.Profile, error) {
	reg, err := w.Machines()
	if err != nil {
		if explicit == "" && errors.Is(err, core.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	name, _, err := w.MachineName(reg, explicit)
	if err != nil {
		if errors.Is(err, helpers.ErrNoActiveMachine) {
			return nil, nil
		}
		return nil, err
	}
	return reg.Get(name)
}

// BuildProfile resolves the explicit profile, or the default profile from the
// settings. Without a profile store the default is skipped and nil is returned;
// an explicit name must exist.
func (w *Workspace) BuildProfile(explicit string) (*profile.Profile, error) {
	name := explicit
	if name == "" {
		name = w.cfg.Compose.DefaultProfile
	}
	if err := w.ForbiddenProfile(name); err != nil {
		return nil, err
	}
	reg, err := w.Profiles()
	if err != nil {
		if explicit == "" && errors.Is(err, core.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return reg.Resolve(name)
}

// MachineRequest composes the machine template for m, without a usage profile
func (w *Workspace) MachineRequest(m *machine.Profile) composer.Request {
	return composer.Request{
		TemplatePath: w.cfg.Paths.TemplateFile(),
		OutputPath:   w.cfg.Paths.OutputFile(),
		Machine:      m,
	}
}

// BaseRequest composes the base template with an optional machine and profile
func (w *Workspace) BaseRequest(m *machine.Profile, p *profile.Profile) composer.Request {
	return composer.Request{
		TemplatePath: w.cfg.Paths.BaseFile(),
		OutputPath:   w.cfg.Paths.OutputFile(),
		Machine:      m,
		Profile:      p,
	}
}

// BaseAgents returns the agent names declared by the base template
func (w *Workspace) BaseAgents() ([]string, error) {
	base, err := core.ReadObject(w.env.Fs, w.cfg.Paths.BaseFile())
	if err != nil {
		return nil, err
	}
	agents, ok := base.Get("agent")
	if !ok {
		return []string{}, nil
	}
	obj, ok := core.AsObject(agents)
	if !ok {
		return nil, &core.ShapeError{Subject: w.cfg.Paths.BaseFile(), Field: "agent", Value: agents, Expected: "an object"}
	}
	return core.Keys(obj), nil
}

// Toggle is the outcome of enabling or disabling one service
type Toggle struct {
	Name string
	File string
	Err  error
}

// SetServicesEnabled updates every named service independently. It returns one
// Toggle per name and the number of names that were found.
func (w *Workspace) SetServicesEnabled(names []string, enabled bool) ([]Toggle, int) {
	store := w.Services()
	toggles := make([]Toggle, 0, len(names))
	found := 0
	for _, name := range names {
		file, err := store.SetEnabled(name, enabled)
		if err == nil {
			found++
		}
		toggles = append(toggles, Toggle{Name: name, File: file, Err: err})
	}
	return toggles, found
}

// ForbiddenProfile rejects profile names that embed a deny-listed provider
func (w *Workspace) ForbiddenProfile(name string) error {
	if provider, ok := w.Policy().ForbiddenIn(name); ok {
		return &core.ForbiddenProviderError{Subject: fmt.Sprintf("profile '%s'", name), Provider: provider}
	}
	return nil
}
