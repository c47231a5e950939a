package schema

import (
	"context"

	"github.com/go-playground/validator/v10"
)

// -----------------------------------------------------------------------------
// Validator interface
// -----------------------------------------------------------------------------

type Validator interface {
	Validate(ctx context.Context) error
}

// -----------------------------------------------------------------------------
// CompositeValidator
// -----------------------------------------------------------------------------

// CompositeValidator allows combining multiple validators
type CompositeValidator struct {
	validators []Validator
}

// NewCompositeValidator runs validators in order and stops at the first failure
func NewCompositeValidator(validators ...Validator) *CompositeValidator {
	return &CompositeValidator{
		validators: validators,
	}
}

func (v *CompositeValidator) Validate(ctx context.Context) error {
	for _, validator := range v.validators {
		if err := validator.Validate(ctx); err != nil {
			return err
		}
	}
	return nil
}

// -----------------------------------------------------------------------------
// StructValidator
// -----------------------------------------------------------------------------

// StructValidator checks `validate` struct tags
type StructValidator struct {
	validate *validator.Validate
	value    any
}

func NewStructValidator(value any) *StructValidator {
	return &StructValidator{
		validate: validator.New(),
		value:    value,
	}
}

func (v *StructValidator) Validate(_ context.Context) error {
	return v.validate.Struct(v.value)
}

func (v *StructValidator) RegisterValidation(tag string, fn validator.Func) error {
	return v.validate.RegisterValidation(tag, fn)
}

// -----------------------------------------------------------------------------
// DocumentValidator
// -----------------------------------------------------------------------------

// DocumentValidator checks a document tree against a JSON schema
type DocumentValidator struct {
	subject string
	schema  Schema
	value   any
}

func NewDocumentValidator(subject string, schema Schema, value any) *DocumentValidator {
	return &DocumentValidator{subject: subject, schema: schema, value: value}
}

func (v *DocumentValidator) Validate(ctx context.Context) error {
	if v.schema == nil {
		return nil
	}
	_, err := v.schema.Validate(ctx, v.subject, v.value)
	return err
}

// ValidatorFunc adapts a plain function to the Validator interface
type ValidatorFunc func(ctx context.Context) error

func (f ValidatorFunc) Validate(ctx context.Context) error {
	return f(ctx)
}
