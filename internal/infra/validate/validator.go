// Package validate checks command and query struct tags with go-playground/validator.
package validate

import (
	"context"
	"errors"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"

	"rentwheels/internal/app/middleware"
	"rentwheels/internal/domain/shared/validation"
)

// Validator reports tag violations as a *validation.Error with one readable
// problem per field, so they render like domain validation failures.
type Validator struct {
	v *validator.Validate
}

func New() *Validator {
	return &Validator{v: validator.New(validator.WithRequiredStructEnabled())}
}

func (v *Validator) Validate(ctx context.Context, message any) error {
	err := v.v.StructCtx(ctx, message)
	if err == nil {
		return nil
	}
	var invalid *validator.InvalidValidationError
	if errors.As(err, &invalid) {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}
	var problems validation.Problems
	for _, fe := range fieldErrs {
		problems.Add("%s", describe(fe))
	}
	return problems.Err()
}

func describe(fe validator.FieldError) string {
	name := fieldName(fe.Field())
	switch fe.Tag() {
	case "required":
		return name + " is required"
	case "oneof":
		return name + " must be one of " + strings.ReplaceAll(fe.Param(), " ", ", ")
	case "max":
		if fe.Kind().String() == "string" {
			return name + " must be at most " + fe.Param() + " characters"
		}
		return name + " must be at most " + fe.Param()
	case "lte":
		return name + " must be at most " + fe.Param()
	case "gte", "min":
		return name + " must be at least " + fe.Param()
	case "url":
		return name + " must be a valid URL"
	}
	return name + " is invalid"
}

// fieldName turns a Go field name such as CarID into the API's carId.
func fieldName(field string) string {
	suffix := ""
	if i := strings.IndexByte(field, '['); i >= 0 {
		field, suffix = field[:i], field[i:]
	}
	if strings.HasSuffix(field, "ID") {
		field = strings.TrimSuffix(field, "ID") + "Id"
	}
	runes := []rune(field)
	if len(runes) > 0 {
		runes[0] = unicode.ToLower(runes[0])
	}
	return string(runes) + suffix
}

var _ middleware.Validator = (*Validator)(nil)
