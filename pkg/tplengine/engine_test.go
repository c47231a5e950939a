package tplengine

import (
	"testing"

	"github.com/fabiofalopes/opencode/engine/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustObject(t *testing.T, src string) *core.Object {
	t.Helper()
	obj, err := core.ParseObject([]byte(src))
	require.NoError(t, err)
	return obj
}

func render(t *testing.T, v any) string {
	t.Helper()
	out, err := core.MarshalDocument(v)
	require.NoError(t, err)
	return string(out)
}

func TestEngine_Resolve(t *testing.T) {
	t.Run("Should substitute only the engine's namespace", func(t *testing.T) {
		doc := mustObject(t, `{"model": "{profile:model}", "path": "{machine:home}"}`)
		result := Resolve(doc, MachineBinding(map[string]string{"home": "/Users/x"}))

		obj, ok := core.AsObject(result.Value)
		require.True(t, ok)
		model, _ := core.GetString(obj, "model")
		path, _ := core.GetString(obj, "path")
		assert.Equal(t, "{profile:model}", model)
		assert.Equal(t, "/Users/x", path)
		assert.Equal(t, []string{"home"}, result.Replaced)
		assert.Empty(t, result.Missing)
	})

	t.Run("Should replace several tokens inside one string", func(t *testing.T) {
		result := Resolve("{machine:a}/mid/{machine:b}", MachineBinding(map[string]string{"a": "x", "b": "y"}))
		assert.Equal(t, "x/mid/y", result.Value)
		assert.Equal(t, []string{"a", "b"}, result.Replaced)
	})

	t.Run("Should trim whitespace around keys", func(t *testing.T) {
		result := Resolve("{machine: home }", MachineBinding(map[string]string{"home": "/h"}))
		assert.Equal(t, "/h", result.Value)
	})

	t.Run("Should leave missing keys in place and report them once", func(t *testing.T) {
		doc := mustObject(t, `{"a": "{machine:nope}", "b": ["{machine:nope}", "{machine:other}"]}`)
		result := Resolve(doc, MachineBinding(map[string]string{}))

		assert.Equal(t, []string{"nope", "other"}, result.Missing)
		obj, _ := core.AsObject(result.Value)
		a, _ := core.GetString(obj, "a")
		assert.Equal(t, "{machine:nope}", a)
	})

	t.Run("Should be idempotent once all tokens are resolved", func(t *testing.T) {
		doc := mustObject(t, `{"dir": "{machine:skills}/x", "list": [1, true, null]}`)
		binding := MachineBinding(map[string]string{"skills": "/s"})
		first := Resolve(doc, binding)
		second := Resolve(first.Value, binding)

		assert.Equal(t, render(t, first.Value), render(t, second.Value))
		assert.Empty(t, second.Replaced)
	})

	t.Run("Should not mutate the input tree", func(t *testing.T) {
		doc := mustObject(t, `{"nested": {"p": "{machine:home}"}}`)
		before := render(t, doc)
		_ = Resolve(doc, MachineBinding(map[string]string{"home": "/h"}))
		assert.Equal(t, before, render(t, doc))
	})

	t.Run("Should preserve key order", func(t *testing.T) {
		doc := mustObject(t, `{"z": "{machine:a}", "a": 1, "m": "x"}`)
		result := Resolve(doc, MachineBinding(map[string]string{"a": "v"}))
		obj, _ := core.AsObject(result.Value)
		assert.Equal(t, []string{"z", "a", "m"}, core.Keys(obj))
	})

	t.Run("Should walk plain maps and slices", func(t *testing.T) {
		doc := map[string]any{"k": []any{"{machine:a}", 3}}
		result := Resolve(doc, MachineBinding(map[string]string{"a": "v"}))
		assert.Equal(t, map[string]any{"k": []any{"v", 3}}, result.Value)
	})
}

func TestProfileBinding(t *testing.T) {
	profile := map[string]any{
		"model":       "opencode/grok-code",
		"description": "Default",
		"limits":      map[string]any{"tokens": 4000},
	}

	t.Run("Should resolve top-level and dotted keys", func(t *testing.T) {
		binding, err := ProfileBinding(profile)
		require.NoError(t, err)
		doc := mustObject(t, `{"model": "{profile:model}", "t": "{profile:limits.tokens}"}`)
		result := Resolve(doc, binding)

		obj, _ := core.AsObject(result.Value)
		model, _ := core.GetString(obj, "model")
		tokens, _ := core.GetString(obj, "t")
		assert.Equal(t, "opencode/grok-code", model)
		assert.Equal(t, "4000", tokens)
	})

	t.Run("Should resolve missing paths to the empty string", func(t *testing.T) {
		binding, err := ProfileBinding(profile)
		require.NoError(t, err)
		result := Resolve("x{profile:limits.nothing.deeper}y", binding)
		assert.Equal(t, "xy", result.Value)
		assert.Empty(t, result.Missing)
	})

	t.Run("Should treat gjson syntax in keys as literal field names", func(t *testing.T) {
		binding, err := ProfileBinding(map[string]any{"a*": "star"})
		require.NoError(t, err)
		result := Resolve("{profile:a*}", binding)
		assert.Equal(t, "star", result.Value)
	})
}

func TestFindTokens(t *testing.T) {
	t.Run("Should list remaining tokens of both namespaces in order", func(t *testing.T) {
		doc := mustObject(t, `{"a": "{profile:model}", "b": {"c": ["{machine:home}", "{profile:model}"]}}`)
		tokens := FindTokens(doc)
		require.Len(t, tokens, 2)
		assert.Equal(t, "{profile:model}", tokens[0].String())
		assert.Equal(t, Token{Namespace: NamespaceMachine, Key: "home"}, tokens[1])
	})

	t.Run("Should return nothing for a resolved tree", func(t *testing.T) {
		assert.Empty(t, FindTokens(mustObject(t, `{"a": "plain {text}"}`)))
	})
}
