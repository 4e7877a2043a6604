// Package domain provides validation using go-playground/validator/v10 with trust-bootstrap custom validators.
package domain

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spiffe/go-spiffe/v2/spiffeid"
)

// Validator wraps go-playground/validator with bootstrap-specific custom validators.
type Validator struct {
	validator *validator.Validate
}

// NewValidator creates a new validation instance with the custom validators registered.
func NewValidator() *Validator {
	validate := validator.New()

	_ = validate.RegisterValidation("role", validateRoleCustom)
	_ = validate.RegisterValidation("trust_domain", validateTrustDomainCustom)
	_ = validate.RegisterValidation("spiffe_segment", validateSPIFFESegmentCustom)
	_ = validate.RegisterValidation("nickname", validateNicknameCustom)

	return &Validator{
		validator: validate,
	}
}

// Validate validates a struct and flattens the result into a single error
// naming every failing field.
func (v *Validator) Validate(s interface{}) error {
	err := v.validator.Struct(s)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}
	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msgs = append(msgs, describeFieldError(fe))
	}
	return errors.New(strings.Join(msgs, "; "))
}

// ValidateVar validates a single variable using the specified tag.
func (v *Validator) ValidateVar(field interface{}, tag string) error {
	return v.validator.Var(field, tag)
}

func describeFieldError(fe validator.FieldError) string {
	field := fe.Namespace()
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "min", "gte":
		return fmt.Sprintf("%s must be at least %s (got %v)", field, fe.Param(), fe.Value())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s (got %v)", field, fe.Param(), fe.Value())
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s] (got %v)", field, fe.Param(), fe.Value())
	default:
		return fmt.Sprintf("%s failed %q validation (got %v)", field, fe.Tag(), fe.Value())
	}
}

func validateRoleCustom(fl validator.FieldLevel) bool {
	r, ok := fl.Field().Interface().(Role)
	if !ok {
		_, err := ParseRole(fl.Field().String())
		return err == nil
	}
	return r.Valid()
}

// Trust domain validator backed by go-spiffe's own parsing rules.
func validateTrustDomainCustom(fl validator.FieldLevel) bool {
	td := fl.Field().String()
	if td == "" {
		return true // Empty values handled by 'required' tag
	}
	_, err := spiffeid.TrustDomainFromString(td)
	return err == nil
}

// A SPIFFE path segment: hostnames and usernames end up as the last segment
// of a workload ID.
func validateSPIFFESegmentCustom(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	if s == "" {
		return true
	}
	return spiffeid.ValidatePathSegment(s) == nil
}

func validateNicknameCustom(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	if s == "" {
		return true
	}
	return ValidateNickname(s) == nil
}
