package composer

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/fabiofalopes/opencode/engine/core"
	"github.com/fabiofalopes/opencode/engine/machine"
	"github.com/fabiofalopes/opencode/engine/mcp"
	"github.com/fabiofalopes/opencode/engine/profile"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	root         = "/cfg"
	templatePath = "/cfg/opencode.template.json"
	outputPath   = "/cfg/opencode.json"
	mcpDir       = "/cfg/mcp-config"
)

type fixture struct {
	fs       afero.Fs
	composer *Composer
}

func setup(t *testing.T, template string, services map[string]string) *fixture {
	t.Helper()
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, templatePath, []byte(template), 0o644))
	if services != nil {
		require.NoError(t, fs.MkdirAll(mcpDir, 0o755))
		for name, content := range services {
			require.NoError(t, afero.WriteFile(fs, filepath.Join(mcpDir, name), []byte(content), 0o644))
		}
	}
	return &fixture{fs: fs, composer: New(fs, mcp.NewStore(fs, mcpDir))}
}

func loadProfile(t *testing.T, fs afero.Fs, content, name string) *profile.Profile {
	t.Helper()
	path := filepath.Join(root, "profiles.json")
	require.NoError(t, afero.WriteFile(fs, path, []byte(content), 0o644))
	reg, err := profile.Load(fs, path)
	require.NoError(t, err)
	p, err := reg.Resolve(name)
	require.NoError(t, err)
	return p
}

func readOutput(t *testing.T, fs afero.Fs) string {
	t.Helper()
	data, err := afero.ReadFile(fs, outputPath)
	require.NoError(t, err)
	return string(data)
}

func TestComposer_Build(t *testing.T) {
	t.Run("Should resolve both namespaces and add an empty service table", func(t *testing.T) {
		f := setup(t, `{"model": "{profile:model}", "path": "{machine:home}"}`, nil)
		p := loadProfile(t, f.fs, `{"copilot": {"model": "github-copilot/gpt-5.1-codex"}}`, "copilot")
		m := &machine.Profile{Name: "mac", Platform: "darwin", Paths: map[string]string{"home": "/Users/x"}}

		result, err := f.composer.Build(t.Context(), Request{
			TemplatePath: templatePath,
			OutputPath:   outputPath,
			Machine:      m,
			Profile:      p,
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"home"}, result.MachineKeys)
		assert.Equal(t, []string{"model"}, result.ProfileKeys)
		assert.Equal(t,
			"{\n  \"model\": \"github-copilot/gpt-5.1-codex\",\n  \"path\": \"/Users/x\",\n  \"mcp\": {}\n}\n",
			readOutput(t, f.fs),
		)
	})

	t.Run("Should fail on a missing machine key without touching the output", func(t *testing.T) {
		f := setup(t, `{"model": "{profile:model}", "path": "{machine:home}"}`, nil)
		require.NoError(t, afero.WriteFile(f.fs, outputPath, []byte("previous"), 0o644))
		m := &machine.Profile{Name: "mac", Platform: "darwin", Paths: map[string]string{}}

		_, err := f.composer.Build(t.Context(), Request{TemplatePath: templatePath, OutputPath: outputPath, Machine: m})
		var unresolved *core.UnresolvedPlaceholderError
		require.ErrorAs(t, err, &unresolved)
		assert.Equal(t, []string{"home"}, unresolved.Keys)
		assert.Equal(t, "previous", readOutput(t, f.fs))
	})

	t.Run("Should overlay profile models onto existing agents only", func(t *testing.T) {
		f := setup(t, `{
  "model": "opencode/base",
  "agent": {"build": {"model": "opencode/old", "temperature": 0.2}, "plan": {"prompt": "p"}}
}`, map[string]string{})
		p := loadProfile(t, f.fs, `{"x": {
  "model": "google/gemini-3-pro",
  "agents": {"plan": "google/gemini-3-flash", "ghost": "google/other", "build": "opencode/new"}
}}`, "x")

		result, err := f.composer.Build(t.Context(), Request{TemplatePath: templatePath, OutputPath: outputPath, Profile: p})
		require.NoError(t, err)
		assert.Equal(t, []string{"Agent 'ghost' in profile but not in base config"}, result.Warnings)
		assert.Len(t, result.Overrides, 2)
		assert.Equal(t, `{
  "model": "google/gemini-3-pro",
  "agent": {
    "build": {
      "model": "opencode/new",
      "temperature": 0.2
    },
    "plan": {
      "prompt": "p",
      "model": "google/gemini-3-flash"
    }
  },
  "mcp": {}
}
`, readOutput(t, f.fs))
	})

	t.Run("Should merge services with the later file winning", func(t *testing.T) {
		f := setup(t, `{"model": "opencode/m", "mcp": {"inline": {"type": "remote", "url": "https://inline"}}}`, map[string]string{
			"a.json": `{"x": {"type": "local", "command": ["a"]}}`,
			"b.json": `{"mcp": {"x": {"type": "remote", "url": "https://b", "enabled": false}}}`,
		})
		result, err := f.composer.Build(t.Context(), Request{TemplatePath: templatePath, OutputPath: outputPath})
		require.NoError(t, err)
		assert.Equal(t, []string{"x"}, result.Services)
		out, ok := result.Document.Get("mcp")
		require.True(t, ok)
		table, _ := core.AsObject(out)
		assert.Equal(t, []string{"inline", "x"}, core.Keys(table))
		x, _ := table.Get("x")
		url, _ := core.GetString(x.(*core.Object), "url")
		assert.Equal(t, "https://b", url)
	})

	t.Run("Should resolve machine placeholders inside service definitions", func(t *testing.T) {
		f := setup(t, `{}`, map[string]string{
			"fs.json": `{"fs": {"type": "local", "command": ["npx", "fs", "{machine:home}"]}}`,
		})
		m := &machine.Profile{Name: "linux", Platform: "linux", Paths: map[string]string{"home": "/home/u"}}
		_, err := f.composer.Build(t.Context(), Request{TemplatePath: templatePath, OutputPath: outputPath, Machine: m})
		require.NoError(t, err)
		assert.Contains(t, readOutput(t, f.fs), "\"/home/u\"")

		data, err := afero.ReadFile(f.fs, filepath.Join(mcpDir, "fs.json"))
		require.NoError(t, err)
		assert.Contains(t, string(data), "{machine:home}")
	})

	t.Run("Should name the service file holding an unresolved key", func(t *testing.T) {
		f := setup(t, `{}`, map[string]string{
			"fs.json": `{"fs": {"type": "local", "command": "{machine:bin}/fs"}}`,
		})
		m := &machine.Profile{Name: "linux", Platform: "linux", Paths: map[string]string{}}
		_, err := f.composer.Build(t.Context(), Request{TemplatePath: templatePath, OutputPath: outputPath, Machine: m})
		var unresolved *core.UnresolvedPlaceholderError
		require.ErrorAs(t, err, &unresolved)
		assert.Equal(t, filepath.Join(mcpDir, "fs.json"), unresolved.Source)
		exists, _ := afero.Exists(f.fs, outputPath)
		assert.False(t, exists)
	})

	t.Run("Should reject invalid service definitions", func(t *testing.T) {
		f := setup(t, `{}`, map[string]string{"bad.json": `{"x": {"type": "local"}}`})
		_, err := f.composer.Build(t.Context(), Request{TemplatePath: templatePath, OutputPath: outputPath})
		assert.True(t, errors.Is(err, core.ErrMissingField))
	})

	t.Run("Should keep service field values as written", func(t *testing.T) {
		f := setup(t, `{}`, map[string]string{"s.json": `{
  "s": {"type": "local", "command": ["x"], "environment": {"PORT": 8080}, "timeout": "5000"},
  "r": {"type": "remote", "url": 42}
}`})
		result, err := f.composer.Build(t.Context(), Request{TemplatePath: templatePath, OutputPath: outputPath})
		require.NoError(t, err)
		assert.Equal(t, []string{"s", "r"}, result.Services)
		out := readOutput(t, f.fs)
		assert.Contains(t, out, `"PORT": 8080`)
		assert.Contains(t, out, `"timeout": "5000"`)
	})

	t.Run("Should reject leftover tokens when no binding was supplied", func(t *testing.T) {
		f := setup(t, `{"model": "{profile:model}", "path": "{machine:home}"}`, nil)
		_, err := f.composer.Build(t.Context(), Request{TemplatePath: templatePath, OutputPath: outputPath})
		assert.True(t, errors.Is(err, core.ErrUnresolvedPlaceholder))
		assert.Contains(t, err.Error(), "{profile:model}")
		assert.Contains(t, err.Error(), "{machine:home}")
	})

	t.Run("Should fail on a missing or invalid template", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		c := New(fs, nil)
		_, err := c.Build(t.Context(), Request{TemplatePath: templatePath, OutputPath: outputPath})
		assert.True(t, errors.Is(err, core.ErrNotFound))

		require.NoError(t, afero.WriteFile(fs, templatePath, []byte(`{"a":`), 0o644))
		_, err = c.Build(t.Context(), Request{TemplatePath: templatePath, OutputPath: outputPath})
		assert.True(t, errors.Is(err, core.ErrParse))
	})

	t.Run("Should produce byte-identical output on re-runs", func(t *testing.T) {
		f := setup(t, `{"z": 1, "model": "{profile:model}", "a": {"p": "{machine:home}"}}`, map[string]string{
			"b.json": `{"b": {"type": "local", "command": "b"}}`,
			"a.json": `{"a": {"type": "remote", "url": "u", "headers": {"k": "v"}}}`,
		})
		p := loadProfile(t, f.fs, `{"p": {"model": "opencode/m"}}`, "p")
		m := &machine.Profile{Name: "m", Platform: "linux", Paths: map[string]string{"home": "/h"}}
		req := Request{TemplatePath: templatePath, OutputPath: outputPath, Machine: m, Profile: p}

		_, err := f.composer.Build(t.Context(), req)
		require.NoError(t, err)
		first := readOutput(t, f.fs)
		_, err = f.composer.Build(t.Context(), req)
		require.NoError(t, err)
		assert.Equal(t, first, readOutput(t, f.fs))
	})

	t.Run("Should warn when the service directory is missing", func(t *testing.T) {
		f := setup(t, `{"model": "opencode/m"}`, nil)
		result, err := f.composer.Compose(t.Context(), Request{TemplatePath: templatePath, OutputPath: outputPath})
		require.NoError(t, err)
		require.Len(t, result.Warnings, 1)
		assert.Contains(t, result.Warnings[0], mcpDir)
		exists, _ := afero.Exists(f.fs, outputPath)
		assert.False(t, exists)
	})
}
