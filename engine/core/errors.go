package core

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for the configuration error taxonomy
var (
	ErrNotFound              = errors.New("not found")
	ErrParse                 = errors.New("parse error")
	ErrMissingField          = errors.New("missing field")
	ErrUnknownField          = errors.New("unknown field")
	ErrUnresolvedPlaceholder = errors.New("unresolved placeholder")
	ErrForbiddenProvider     = errors.New("forbidden provider")
	ErrShape                 = errors.New("invalid shape")
)

// NotFoundError reports a named machine, profile, service or file that does not exist
type NotFoundError struct {
	Kind      string
	Name      string
	Available []string
}

func (e *NotFoundError) Error() string {
	msg := fmt.Sprintf("%s '%s' not found", e.Kind, e.Name)
	if len(e.Available) > 0 {
		msg += fmt.Sprintf(" (available: %s)", strings.Join(e.Available, ", "))
	}
	return msg
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// ParseError reports a file that is not valid JSON or YAML
type ParseError struct {
	File  string
	Cause error
}

func (e *ParseError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("failed to parse %s: %v", e.File, e.Cause)
	}
	return fmt.Sprintf("failed to parse %s", e.File)
}

func (e *ParseError) Is(target error) bool {
	return target == ErrParse
}

func (e *ParseError) Unwrap() error {
	return e.Cause
}

// MissingFieldError reports a required field that is absent for a given type or shape
type MissingFieldError struct {
	Subject string
	Field   string
	Reason  string
}

func (e *MissingFieldError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("missing '%s' %s in %s", e.Field, e.Reason, e.Subject)
	}
	return fmt.Sprintf("missing '%s' in %s", e.Field, e.Subject)
}

func (e *MissingFieldError) Is(target error) bool {
	return target == ErrMissingField
}

// UnknownFieldError reports a field outside the declared schema
type UnknownFieldError struct {
	Subject string
	Field   string
	Source  string
}

func (e *UnknownFieldError) Error() string {
	if e.Source != "" {
		return fmt.Sprintf("unknown key '%s' in %s (from %s)", e.Field, e.Subject, e.Source)
	}
	return fmt.Sprintf("unknown key '%s' in %s", e.Field, e.Subject)
}

func (e *UnknownFieldError) Is(target error) bool {
	return target == ErrUnknownField
}

// UnresolvedPlaceholderError reports namespace keys with no binding
type UnresolvedPlaceholderError struct {
	Namespace string
	Keys      []string
	Source    string
}

func (e *UnresolvedPlaceholderError) Error() string {
	tokens := make([]string, len(e.Keys))
	for i, key := range e.Keys {
		tokens[i] = fmt.Sprintf("{%s:%s}", e.Namespace, key)
	}
	msg := "unresolved placeholders: " + strings.Join(tokens, ", ")
	if e.Source != "" {
		msg += " in " + e.Source
	}
	return msg
}

func (e *UnresolvedPlaceholderError) Is(target error) bool {
	return target == ErrUnresolvedPlaceholder
}

// ForbiddenProviderError reports a policy violation against the provider deny-list
type ForbiddenProviderError struct {
	Subject  string
	Provider string
}

func (e *ForbiddenProviderError) Error() string {
	return fmt.Sprintf("%s uses forbidden provider '%s'", e.Subject, e.Provider)
}

func (e *ForbiddenProviderError) Is(target error) bool {
	return target == ErrForbiddenProvider
}

// ShapeError reports a malformed value, such as a model id or an out-of-range number
type ShapeError struct {
	Subject  string
	Field    string
	Value    any
	Expected string
}

func (e *ShapeError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("invalid value '%v' in %s (expected %s)", e.Value, e.Subject, e.Expected)
	}
	return fmt.Sprintf("invalid %s '%v' in %s (expected %s)", e.Field, e.Value, e.Subject, e.Expected)
}

func (e *ShapeError) Is(target error) bool {
	return target == ErrShape
}
