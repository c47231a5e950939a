package schema

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/kaptinlin/jsonschema"
)

// -----------------------------------------------------------------------------
// Schema
// -----------------------------------------------------------------------------

type Schema map[string]any
type Result = jsonschema.EvaluationResult

// ValidationError lists every schema violation found in a document
type ValidationError struct {
	Subject    string
	Violations []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("schema validation failed for %s: %s", e.Subject, strings.Join(e.Violations, "; "))
}

func (s *Schema) String() string {
	bytes, err := json.Marshal(s)
	if err != nil {
		return ""
	}
	return string(bytes)
}

func (s *Schema) Compile() (*jsonschema.Schema, error) {
	if s == nil {
		return nil, nil
	}
	bytes, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("failed to compile schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	schema, err := compiler.Compile(bytes)
	if err != nil {
		return nil, fmt.Errorf("failed to compile schema: %w", err)
	}
	return schema, nil
}

// Validate checks value against the schema. value may be any tree that
// renders to JSON; it is normalized to plain JSON types first.
func (s *Schema) Validate(_ context.Context, subject string, value any) (*Result, error) {
	schema, err := s.Compile()
	if err != nil {
		return nil, err
	}
	if schema == nil {
		return nil, nil
	}
	instance, err := normalize(value)
	if err != nil {
		return nil, err
	}
	result := schema.Validate(instance)
	if result.Valid {
		return result, nil
	}
	violations := collectViolations(result, "")
	if len(violations) == 0 {
		violations = keywordErrors(result, "")
	}
	sort.Strings(violations)
	return result, &ValidationError{Subject: subject, Violations: violations}
}

// collectViolations walks the invalid branches of result and reports the
// deepest errors, each prefixed with the JSON pointer of the offending value.
func collectViolations(result *Result, base string) []string {
	if result == nil || result.Valid {
		return nil
	}
	path := base + result.InstanceLocation
	var violations []string
	for _, detail := range result.Details {
		violations = append(violations, collectViolations(detail, path)...)
	}
	if len(violations) > 0 {
		return violations
	}
	return keywordErrors(result, path)
}

func keywordErrors(result *Result, path string) []string {
	if path == "" {
		path = "/"
	}
	violations := make([]string, 0, len(result.Errors))
	for keyword, evalErr := range result.Errors {
		violations = append(violations, fmt.Sprintf("%s: %s: %s", path, keyword, evalErr.Error()))
	}
	return violations
}

func normalize(value any) (any, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("failed to encode document for validation: %w", err)
	}
	var instance any
	if err := json.Unmarshal(data, &instance); err != nil {
		return nil, fmt.Errorf("failed to decode document for validation: %w", err)
	}
	return instance, nil
}

// -----------------------------------------------------------------------------
// Composed configuration
// -----------------------------------------------------------------------------

// ServiceDefinition is the shape of one entry under "mcp". Field values are
// left open; only the type and the fields each type needs are enforced.
func ServiceDefinition() Schema {
	return Schema{
		"type":     "object",
		"required": []string{"type"},
		"properties": map[string]any{
			"type":        map[string]any{"enum": []string{"local", "remote"}},
			"command":     map[string]any{},
			"url":         map[string]any{},
			"environment": map[string]any{},
			"enabled":     map[string]any{},
			"timeout":     map[string]any{},
			"headers":     map[string]any{},
			"oauth":       map[string]any{},
		},
		"additionalProperties": false,
		"allOf": []any{
			requiredFor("local", "command"),
			requiredFor("remote", "url"),
		},
	}
}

func requiredFor(typ, field string) map[string]any {
	return map[string]any{
		"if": map[string]any{
			"required":   []string{"type"},
			"properties": map[string]any{"type": map[string]any{"const": typ}},
		},
		"then": map[string]any{"required": []string{field}},
	}
}

// ComposedConfig is the shape every persisted artifact must satisfy
func ComposedConfig() Schema {
	return Schema{
		"type": "object",
		"properties": map[string]any{
			"model": map[string]any{"type": "string"},
			"agent": map[string]any{
				"type": "object",
				"additionalProperties": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"model": map[string]any{"type": "string"},
					},
				},
			},
			"mcp": map[string]any{
				"type":                 "object",
				"additionalProperties": map[string]any(ServiceDefinition()),
			},
		},
	}
}
