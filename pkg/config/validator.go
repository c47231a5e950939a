package config

import (
	"regexp"

	"github.com/go-playground/validator/v10"
)

// providerIDPattern matches model provider identifiers such as
// "github-copilot" or "zai-coding-plan".
var providerIDPattern = regexp.MustCompile(`^[a-z0-9]([a-z0-9._-]*[a-z0-9])?$`)

// RegisterCustomValidators registers custom validation functions
func RegisterCustomValidators(v *validator.Validate) error {
	return v.RegisterValidation("provider_id", validateProviderID)
}

func validateProviderID(fl validator.FieldLevel) bool {
	id := fl.Field().String()
	if id == "" || len(id) > 100 {
		return false
	}
	return providerIDPattern.MatchString(id)
}
