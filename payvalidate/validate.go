// Package payvalidate wraps go-playground/validator struct-tag
// validation around PayMCP's registration-time inputs — PriceInfo and
// CoordinatorOptions — so malformed configuration is rejected at
// registration rather than surfacing mid-flow, per the core's
// input-invalid error handling design.
package payvalidate

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/go-playground/validator/v10"

	"github.com/paymcp/paymcp-go/payconfig"
)

// Validate runs struct-tag validation over structure, joining every
// field failure into a single error, the same way the teacher's
// infra/validate.Validate does.
func Validate(structure any) error {
	v := payconfig.App().Validator

	err := v.Struct(structure)
	if err == nil {
		return nil
	}

	var invalidErr *validator.InvalidValidationError
	if errors.As(err, &invalidErr) {
		return err
	}

	var joined []error
	for _, fe := range err.(validator.ValidationErrors) {
		joined = append(joined, fmt.Errorf("%s %s %s %s", fe.Tag(), fe.Param(), fe.Field(), fe.Type().String()))
	}
	return errors.Join(joined...)
}

// CustomValidate registers PayMCP's custom validation tags. Call once
// at process startup, mirroring the teacher's validate.CustomValidate
// convention.
func CustomValidate() {
	registerNonEmptyValidation()
}

// registerNonEmptyValidation adds a "nonempty" tag for slice/array
// fields, since the validator package's own "required" tag only
// checks the slice's existence, not its length.
func registerNonEmptyValidation() {
	_ = payconfig.App().Validator.RegisterValidation("nonempty", func(fl validator.FieldLevel) bool {
		field := fl.Field()
		if field.Kind() != reflect.Slice && field.Kind() != reflect.Array {
			return false
		}
		return field.Len() > 0
	})
}
