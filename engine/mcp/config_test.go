package mcp

import (
	"errors"
	"testing"

	"github.com/fabiofalopes/opencode/engine/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func definition(t *testing.T, src string) *Definition {
	t.Helper()
	obj, err := core.ParseObject([]byte(src))
	require.NoError(t, err)
	return &Definition{Name: "svc", Source: "/cfg/mcp-config/a.json", Fields: obj}
}

func TestDefinition_Validate(t *testing.T) {
	t.Run("Should accept a local definition with a command", func(t *testing.T) {
		def := definition(t, `{"type": "local", "command": "foo"}`)
		assert.Empty(t, def.Validate())
	})

	t.Run("Should reject a local definition without a command", func(t *testing.T) {
		errs := definition(t, `{"type": "local"}`).Validate()
		require.Len(t, errs, 1)
		var missing *core.MissingFieldError
		require.ErrorAs(t, errs[0], &missing)
		assert.Equal(t, "command", missing.Field)
	})

	t.Run("Should treat an empty command as missing", func(t *testing.T) {
		errs := definition(t, `{"type": "local", "command": ""}`).Validate()
		require.Len(t, errs, 1)
		assert.True(t, errors.Is(errs[0], core.ErrMissingField))
	})

	t.Run("Should accept an array command", func(t *testing.T) {
		assert.Empty(t, definition(t, `{"type": "local", "command": ["npx", "-y", "server"]}`).Validate())
	})

	t.Run("Should require url for remote definitions", func(t *testing.T) {
		errs := definition(t, `{"type": "remote", "headers": {"a": "b"}}`).Validate()
		require.Len(t, errs, 1)
		assert.Contains(t, errs[0].Error(), "'url'")
		assert.Empty(t, definition(t, `{"type": "remote", "url": "https://x"}`).Validate())
	})

	t.Run("Should report a missing type", func(t *testing.T) {
		errs := definition(t, `{"command": "foo"}`).Validate()
		require.Len(t, errs, 1)
		var missing *core.MissingFieldError
		require.ErrorAs(t, errs[0], &missing)
		assert.Equal(t, "type", missing.Field)
	})

	t.Run("Should reject an unsupported type", func(t *testing.T) {
		errs := definition(t, `{"type": "stdio", "command": "foo"}`).Validate()
		require.Len(t, errs, 1)
		assert.True(t, errors.Is(errs[0], core.ErrShape))
	})

	t.Run("Should report every unknown field with its source file", func(t *testing.T) {
		errs := definition(t, `{"type": "local", "command": "x", "args": [], "cwd": "/"}`).Validate()
		require.Len(t, errs, 2)
		var unknown *core.UnknownFieldError
		require.ErrorAs(t, errs[0], &unknown)
		assert.Equal(t, "args", unknown.Field)
		assert.Equal(t, "a.json", unknown.Source)
	})

	t.Run("Should reject a non-object definition", func(t *testing.T) {
		errs := Validate("svc", "text", "")
		require.Len(t, errs, 1)
		assert.True(t, errors.Is(errs[0], core.ErrShape))
	})
}

func TestDefinition_Enabled(t *testing.T) {
	assert.True(t, definition(t, `{"type": "local", "command": "x"}`).Enabled())
	assert.False(t, definition(t, `{"type": "local", "command": "x", "enabled": false}`).Enabled())
	assert.True(t, definition(t, `{"enabled": true}`).Enabled())
	assert.Equal(t, TypeLocal, definition(t, `{"type": "local"}`).Type())
}
