package helpers

import (
	"errors"
	"fmt"

	"github.com/fabiofalopes/opencode/engine/core"
)

// ErrNoActiveMachine is returned when a flow needs a machine and none is selected
var ErrNoActiveMachine = errors.New("no active machine profile set")

// CliError represents a CLI-specific error with a stable code.
// The wrapped error stays reachable through errors.Is and errors.As.
type CliError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
	Cause   error  `json:"-"`
}

func (e *CliError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *CliError) Unwrap() error {
	return e.Cause
}

// NewCliError creates a new CLI error
func NewCliError(code, message string, details ...string) *CliError {
	err := &CliError{Code: code, Message: message}
	if len(details) > 0 {
		err.Details = details[0]
	}
	return err
}

// NoActiveMachineError reports a missing machine selection with the names to pick from
func NoActiveMachineError(available []string) error {
	return &CliError{
		Code:    "NO_ACTIVE_MACHINE",
		Message: ErrNoActiveMachine.Error(),
		Details: fmt.Sprintf("run 'machine detect --set' or 'machine init --machine=<name>'; available: %s", JoinOrNone(available)),
		Cause:   ErrNoActiveMachine,
	}
}

var errorCodes = []struct {
	target error
	code   string
}{
	{core.ErrNotFound, "NOT_FOUND"},
	{core.ErrParse, "PARSE_ERROR"},
	{core.ErrMissingField, "MISSING_FIELD"},
	{core.ErrUnknownField, "UNKNOWN_FIELD"},
	{core.ErrUnresolvedPlaceholder, "UNRESOLVED_PLACEHOLDER"},
	{core.ErrForbiddenProvider, "FORBIDDEN_PROVIDER"},
	{core.ErrShape, "INVALID_VALUE"},
}

// Categorize wraps err in a CliError whose code follows the configuration
// error taxonomy. Errors that already are CliErrors are returned unchanged.
func Categorize(err error) *CliError {
	if err == nil {
		return nil
	}
	var cliErr *CliError
	if errors.As(err, &cliErr) {
		return cliErr
	}
	for _, candidate := range errorCodes {
		if errors.Is(err, candidate.target) {
			return &CliError{Code: candidate.code, Message: err.Error(), Cause: err}
		}
	}
	return &CliError{Code: "ERROR", Message: err.Error(), Cause: err}
}
