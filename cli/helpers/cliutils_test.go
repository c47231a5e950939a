package helpers

import (
	"bytes"
	"errors"
	"fmt"
	"testing"

	"github.com/fabiofalopes/opencode/engine/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCliError(t *testing.T) {
	t.Run("Should create error with code and message", func(t *testing.T) {
		err := NewCliError("TEST_ERROR", "Test message")
		assert.Equal(t, "TEST_ERROR", err.Code)
		assert.Equal(t, "Test message", err.Message)
		assert.Empty(t, err.Details)
		assert.Equal(t, "TEST_ERROR: Test message", err.Error())
	})

	t.Run("Should include details in the message", func(t *testing.T) {
		err := NewCliError("TEST_ERROR", "Test message", "Details")
		assert.Equal(t, "TEST_ERROR: Test message (Details)", err.Error())
	})
}

func TestCategorize(t *testing.T) {
	t.Run("Should map taxonomy errors to codes", func(t *testing.T) {
		tests := []struct {
			err  error
			code string
		}{
			{&core.NotFoundError{Kind: "profile", Name: "x"}, "NOT_FOUND"},
			{&core.ParseError{File: "a.json"}, "PARSE_ERROR"},
			{&core.MissingFieldError{Subject: "s", Field: "f"}, "MISSING_FIELD"},
			{&core.UnknownFieldError{Subject: "s", Field: "f"}, "UNKNOWN_FIELD"},
			{&core.UnresolvedPlaceholderError{Namespace: "machine", Keys: []string{"k"}}, "UNRESOLVED_PLACEHOLDER"},
			{&core.ForbiddenProviderError{Subject: "s", Provider: "p"}, "FORBIDDEN_PROVIDER"},
			{&core.ShapeError{Subject: "s", Value: 2, Expected: "x"}, "INVALID_VALUE"},
			{errors.New("plain"), "ERROR"},
		}
		for _, tt := range tests {
			cliErr := Categorize(fmt.Errorf("wrapped: %w", tt.err))
			assert.Equal(t, tt.code, cliErr.Code)
			assert.True(t, errors.Is(cliErr, tt.err))
		}
	})

	t.Run("Should keep existing CLI errors", func(t *testing.T) {
		err := NoActiveMachineError([]string{"mac"})
		cliErr := Categorize(err)
		assert.Equal(t, "NO_ACTIVE_MACHINE", cliErr.Code)
		assert.True(t, errors.Is(cliErr, ErrNoActiveMachine))
		assert.Contains(t, cliErr.Details, "available: mac")
	})

	t.Run("Should return nil for nil", func(t *testing.T) {
		assert.Nil(t, Categorize(nil))
	})
}

func TestFormatError(t *testing.T) {
	t.Run("Should print one line per joined error", func(t *testing.T) {
		err := errors.Join(errors.New("first"), errors.New("second"))
		assert.Equal(t, "Error: first\nError: second", FormatError(err, false))
	})

	t.Run("Should print details after the message", func(t *testing.T) {
		out := FormatError(NoActiveMachineError(nil), false)
		assert.Equal(t, "Error: no active machine profile set\nDetails: run 'machine detect --set' or 'machine init --machine=<name>'; available: none", out)
	})
}

func TestPrinter(t *testing.T) {
	t.Run("Should write plain text to non-terminal writers", func(t *testing.T) {
		var buf bytes.Buffer
		p := NewPrinter(&buf, false)
		p.Title("Switching")
		p.Info("Platform: %s", "linux")
		p.Mapping("{machine:home}", "/h")
		p.Warn("careful")
		assert.False(t, p.Styled())
		assert.Equal(t, "Switching\n   Platform: linux\n   {machine:home} → /h\nWarning: careful\n", buf.String())
	})

	t.Run("Should drop informational lines in quiet mode", func(t *testing.T) {
		var buf bytes.Buffer
		p := NewPrinter(&buf, true)
		p.Title("Switching")
		p.Info("hidden")
		p.KeyValue("k", "v")
		p.Success("done")
		p.Result("kept")
		assert.Equal(t, "done\nkept\n", buf.String())
	})

	t.Run("Should render documents without color", func(t *testing.T) {
		obj, err := core.ParseObject([]byte(`{"b": 1, "a": "x"}`))
		require.NoError(t, err)
		var buf bytes.Buffer
		require.NoError(t, NewPrinter(&buf, false).JSON(obj))
		assert.Equal(t, "{\n  \"b\": 1,\n  \"a\": \"x\"\n}\n", buf.String())
	})
}

func TestShouldUseColor(t *testing.T) {
	t.Run("Should disable color for buffers", func(t *testing.T) {
		assert.False(t, ShouldUseColor(&bytes.Buffer{}))
	})

	t.Run("Should respect NO_COLOR", func(t *testing.T) {
		t.Setenv("NO_COLOR", "1")
		assert.False(t, ShouldUseColor(&bytes.Buffer{}))
	})
}

func TestHelpers(t *testing.T) {
	t.Run("Should pluralize by count", func(t *testing.T) {
		assert.Equal(t, "file", Pluralize(1, "file", "files"))
		assert.Equal(t, "files", Pluralize(0, "file", "files"))
	})

	t.Run("Should format tokens", func(t *testing.T) {
		assert.Equal(t, "{machine:a}, {machine:b}", FormatTokens("machine", []string{"a", "b"}))
	})

	t.Run("Should join names or say none", func(t *testing.T) {
		assert.Equal(t, "none", JoinOrNone(nil))
		assert.Equal(t, "a, b", JoinOrNone([]string{"a", "b"}))
	})
}
