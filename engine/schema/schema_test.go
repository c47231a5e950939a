package schema

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComposedConfig(t *testing.T) {
	ctx := context.Background()
	s := ComposedConfig()

	t.Run("Should accept a composed document with valid services", func(t *testing.T) {
		doc := map[string]any{
			"model": "github-copilot/gpt-5.1-codex",
			"agent": map[string]any{"build": map[string]any{"model": "opencode/grok-code"}},
			"mcp": map[string]any{
				"fs":  map[string]any{"type": "local", "command": []any{"npx", "fs"}, "enabled": true},
				"web": map[string]any{"type": "remote", "url": "https://example.com/mcp", "timeout": 5000},
			},
		}
		result, err := s.Validate(ctx, "opencode.json", doc)
		require.NoError(t, err)
		assert.True(t, result.Valid)
	})

	t.Run("Should reject unknown service fields", func(t *testing.T) {
		doc := map[string]any{
			"mcp": map[string]any{"fs": map[string]any{"type": "local", "command": "x", "args": []any{}}},
		}
		_, err := s.Validate(ctx, "opencode.json", doc)
		var validationErr *ValidationError
		require.True(t, errors.As(err, &validationErr))
		assert.Equal(t, "opencode.json", validationErr.Subject)
		require.NotEmpty(t, validationErr.Violations)
		assert.Contains(t, err.Error(), "/mcp/fs")
	})

	t.Run("Should leave service field values open", func(t *testing.T) {
		doc := map[string]any{
			"mcp": map[string]any{
				"s": map[string]any{"type": "local", "command": []any{"x"}, "environment": map[string]any{"PORT": 8080}},
				"t": map[string]any{"type": "remote", "url": "https://example.com", "timeout": "5000"},
			},
		}
		_, err := s.Validate(ctx, "opencode.json", doc)
		assert.NoError(t, err)
	})

	t.Run("Should name the server and field of a nested violation", func(t *testing.T) {
		doc := map[string]any{"mcp": map[string]any{"s": map[string]any{"type": "local", "enabled": true}}}
		_, err := s.Validate(ctx, "opencode.json", doc)
		var validationErr *ValidationError
		require.True(t, errors.As(err, &validationErr))
		require.Len(t, validationErr.Violations, 1)
		assert.Contains(t, validationErr.Violations[0], "/mcp/s")
		assert.Contains(t, validationErr.Violations[0], "command")
	})

	t.Run("Should require a url for remote servers", func(t *testing.T) {
		doc := map[string]any{"mcp": map[string]any{"web": map[string]any{"type": "remote", "headers": map[string]any{}}}}
		_, err := s.Validate(ctx, "opencode.json", doc)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "/mcp/web")
		assert.Contains(t, err.Error(), "url")
	})

	t.Run("Should reject an invalid service type", func(t *testing.T) {
		doc := map[string]any{"mcp": map[string]any{"fs": map[string]any{"type": "stdio"}}}
		_, err := s.Validate(ctx, "opencode.json", doc)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "/mcp/fs/type")
	})
}

func TestCompositeValidator(t *testing.T) {
	t.Run("Should stop at the first failing validator", func(t *testing.T) {
		calls := 0
		failing := ValidatorFunc(func(context.Context) error {
			calls++
			return errors.New("boom")
		})
		never := ValidatorFunc(func(context.Context) error {
			calls++
			return nil
		})
		err := NewCompositeValidator(failing, never).Validate(context.Background())
		assert.EqualError(t, err, "boom")
		assert.Equal(t, 1, calls)
	})

	t.Run("Should run document and struct validators together", func(t *testing.T) {
		type target struct {
			Name string `validate:"required"`
		}
		v := NewCompositeValidator(
			NewDocumentValidator("doc", ComposedConfig(), map[string]any{"model": "a/b"}),
			NewStructValidator(&target{Name: "x"}),
		)
		assert.NoError(t, v.Validate(context.Background()))
	})
}
