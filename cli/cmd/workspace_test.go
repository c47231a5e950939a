package cmd

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/fabiofalopes/opencode/cli/helpers"
	"github.com/fabiofalopes/opencode/engine/core"
	"github.com/fabiofalopes/opencode/pkg/config"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newWorkspace(t *testing.T, files map[string]string) *Workspace {
	t.Helper()
	fs := afero.NewMemMapFs()
	cfg := config.Default()
	cfg.Paths.Root = "/cfg"
	for name, content := range files {
		path := filepath.Join(cfg.Paths.Root, name)
		require.NoError(t, fs.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, afero.WriteFile(fs, path, []byte(content), 0o644))
	}
	return NewWorkspace(EnvFromContext(ContextWithEnv(context.Background(), Env{Fs: fs})), cfg)
}

func TestWorkspace_OptionalMachine(t *testing.T) {
	machines := `{"mac": {"platform": "darwin", "paths": {"home": "/Users/x"}}}`

	t.Run("Should return nil without a machine store", func(t *testing.T) {
		ws := newWorkspace(t, nil)
		m, err := ws.OptionalMachine("")
		require.NoError(t, err)
		assert.Nil(t, m)
	})

	t.Run("Should fail for an explicit name without a machine store", func(t *testing.T) {
		ws := newWorkspace(t, nil)
		_, err := ws.OptionalMachine("mac")
		assert.True(t, errors.Is(err, core.ErrNotFound))
	})

	t.Run("Should return nil when no machine is active", func(t *testing.T) {
		ws := newWorkspace(t, map[string]string{"machines.json": machines})
		m, err := ws.OptionalMachine("")
		require.NoError(t, err)
		assert.Nil(t, m)
	})

	t.Run("Should use the active machine", func(t *testing.T) {
		ws := newWorkspace(t, map[string]string{
			"machines.json": `{"mac": {"platform": "darwin", "paths": {"home": "/Users/x"}}, "_active": "mac"}`,
		})
		m, err := ws.OptionalMachine("")
		require.NoError(t, err)
		require.NotNil(t, m)
		assert.Equal(t, "/Users/x", m.Paths["home"])
	})

	t.Run("Should fail for an unknown explicit name", func(t *testing.T) {
		ws := newWorkspace(t, map[string]string{"machines.json": machines})
		_, err := ws.OptionalMachine("desk")
		var notFound *core.NotFoundError
		require.True(t, errors.As(err, &notFound))
		assert.Equal(t, []string{"mac"}, notFound.Available)
	})
}

func TestWorkspace_MachineName(t *testing.T) {
	t.Run("Should report the available machines when none is active", func(t *testing.T) {
		ws := newWorkspace(t, map[string]string{"machines.json": `{"mac": {"platform": "darwin"}}`})
		reg, err := ws.Machines()
		require.NoError(t, err)
		_, _, err = ws.MachineName(reg, "")
		assert.True(t, errors.Is(err, helpers.ErrNoActiveMachine))
	})

	t.Run("Should prefer the explicit name", func(t *testing.T) {
		ws := newWorkspace(t, map[string]string{"machines.json": `{"mac": {"platform": "darwin"}, "_active": "mac"}`})
		reg, err := ws.Machines()
		require.NoError(t, err)
		name, fromActive, err := ws.MachineName(reg, "box")
		require.NoError(t, err)
		assert.Equal(t, "box", name)
		assert.False(t, fromActive)
	})
}

func TestWorkspace_SetServicesEnabled(t *testing.T) {
	t.Run("Should update found names and report the rest", func(t *testing.T) {
		ws := newWorkspace(t, map[string]string{
			"mcp-config/a.json": `{"mcp": {"git": {"type": "local", "command": ["git-mcp"]}}}`,
		})
		toggles, found := ws.SetServicesEnabled([]string{"git", "nope"}, false)
		assert.Equal(t, 1, found)
		require.Len(t, toggles, 2)
		assert.NoError(t, toggles[0].Err)
		assert.Equal(t, "/cfg/mcp-config/a.json", toggles[0].File)
		assert.True(t, errors.Is(toggles[1].Err, core.ErrNotFound))

		catalog, err := ws.Services().LoadAll()
		require.NoError(t, err)
		def, ok := catalog.Get("git")
		require.True(t, ok)
		assert.False(t, def.Enabled())
	})
}

func TestWorkspace_BaseAgents(t *testing.T) {
	t.Run("Should list base agents in order", func(t *testing.T) {
		ws := newWorkspace(t, map[string]string{
			"opencode.base.json": `{"agent": {"plan": {}, "build": {}}}`,
		})
		agents, err := ws.BaseAgents()
		require.NoError(t, err)
		assert.Equal(t, []string{"plan", "build"}, agents)
	})

	t.Run("Should reject a non-object agent table", func(t *testing.T) {
		ws := newWorkspace(t, map[string]string{"opencode.base.json": `{"agent": []}`})
		_, err := ws.BaseAgents()
		assert.True(t, errors.Is(err, core.ErrShape))
	})
}

func TestWorkspace_ForbiddenProfile(t *testing.T) {
	t.Run("Should reject names embedding a forbidden provider", func(t *testing.T) {
		ws := newWorkspace(t, nil)
		assert.True(t, errors.Is(ws.ForbiddenProfile("openrouter-fast"), core.ErrForbiddenProvider))
		assert.NoError(t, ws.ForbiddenProfile("copilot"))
	})
}

func TestWorkspace_BuildProfile(t *testing.T) {
	profiles := `{"copilot": {"model": "github-copilot/gpt-5.1-codex"}, "zen": {"model": "opencode/grok-code"}}`

	t.Run("Should resolve the default profile", func(t *testing.T) {
		ws := newWorkspace(t, map[string]string{"profiles.json": profiles})
		p, err := ws.BuildProfile("")
		require.NoError(t, err)
		require.NotNil(t, p)
		assert.Equal(t, "copilot", p.Name)
	})

	t.Run("Should prefer the explicit name", func(t *testing.T) {
		ws := newWorkspace(t, map[string]string{"profiles.json": profiles})
		p, err := ws.BuildProfile("zen")
		require.NoError(t, err)
		assert.Equal(t, "opencode/grok-code", p.Model)
	})

	t.Run("Should return nil without a profile store", func(t *testing.T) {
		ws := newWorkspace(t, nil)
		p, err := ws.BuildProfile("")
		require.NoError(t, err)
		assert.Nil(t, p)
	})

	t.Run("Should fail for an explicit name without a profile store", func(t *testing.T) {
		ws := newWorkspace(t, nil)
		_, err := ws.BuildProfile("zen")
		assert.True(t, errors.Is(err, core.ErrNotFound))
	})
}

func TestHandleCommonErrors(t *testing.T) {
	t.Run("Should map cancellation", func(t *testing.T) {
		err := HandleCommonErrors(context.Canceled)
		var cliErr *helpers.CliError
		require.True(t, errors.As(err, &cliErr))
		assert.Equal(t, "OPERATION_CANCELED", cliErr.Code)
	})

	t.Run("Should categorize domain errors", func(t *testing.T) {
		err := HandleCommonErrors(&core.NotFoundError{Kind: "profile", Name: "x"})
		var cliErr *helpers.CliError
		require.True(t, errors.As(err, &cliErr))
		assert.Equal(t, "NOT_FOUND", cliErr.Code)
	})

	t.Run("Should pass nil through", func(t *testing.T) {
		assert.NoError(t, HandleCommonErrors(nil))
	})
}
