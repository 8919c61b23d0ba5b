// internal/utils/validator.go
package utils

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/marketua/marketplace-backend/internal/apperror"
)

var (
	validate          *validator.Validate
	cardNumberPattern = regexp.MustCompile(`^\d{4} \d{4} \d{4} \d{4}$`)
)

func init() {
	validate = validator.New()
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return fld.Name
		}
		return name
	})
	validate.RegisterValidation("card_number", validateCardNumber)
	validate.RegisterValidation("unique_items", validateUniqueItems)
}

// ValidateStruct runs tag validation and converts failures into a validation
// *apperror.Error.
func ValidateStruct(s interface{}) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	if fieldErrs := GetValidationErrors(err); fieldErrs != nil {
		return fieldErrs
	}
	return fmt.Errorf("validation failed: %w", err)
}

func validateCardNumber(fl validator.FieldLevel) bool {
	return cardNumberPattern.MatchString(fl.Field().String())
}

func validateUniqueItems(fl validator.FieldLevel) bool {
	field := fl.Field()
	if field.Kind() != reflect.Slice && field.Kind() != reflect.Array {
		return false
	}
	seen := make(map[interface{}]struct{}, field.Len())
	for i := 0; i < field.Len(); i++ {
		item := field.Index(i).Interface()
		if _, dup := seen[item]; dup {
			return false
		}
		seen[item] = struct{}{}
	}
	return true
}

// GetValidationErrors converts validator errors into field errors. It returns
// nil for any other error.
func GetValidationErrors(err error) *apperror.Error {
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return nil
	}

	out := apperror.Validation()
	for _, e := range validationErrs {
		out.Add(validationCode(e), getValidationMessage(e), fieldPath(e))
	}
	return out
}

// fieldPath drops the root struct name: "RegisterRequest.address.city" -> "address.city".
func fieldPath(e validator.FieldError) string {
	ns := e.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		ns = ns[i+1:]
	}
	return ns
}

func validationCode(e validator.FieldError) string {
	switch e.Tag() {
	case "required", "required_without", "required_with":
		return apperror.CodeRequired
	case "email":
		return apperror.CodeInvalidEmail
	case "min":
		if e.Kind() == reflect.String {
			return apperror.CodeMinLength
		}
		return apperror.CodeMinValue
	case "max":
		return apperror.CodeMaxLength
	case "gte", "gt":
		return apperror.CodeMinValue
	case "oneof":
		return apperror.CodeInvalidChoice
	case "card_number":
		return apperror.CodeInvalidCardNumber
	case "unique_items":
		return apperror.CodeArrayUniqueness
	case "eqfield":
		return apperror.CodePasswordMismatch
	default:
		return apperror.CodeInvalid
	}
}

func getValidationMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required", "required_without", "required_with":
		return "This field is required."
	case "email":
		return "Enter a valid email address."
	case "min":
		if e.Kind() == reflect.String {
			return fmt.Sprintf("Ensure this field has at least %s characters.", e.Param())
		}
		if e.Kind() == reflect.Slice {
			return "This list may not be empty."
		}
		return fmt.Sprintf("Ensure this value is greater than or equal to %s.", e.Param())
	case "max":
		if e.Kind() == reflect.String {
			return fmt.Sprintf("Ensure this field has no more than %s characters.", e.Param())
		}
		return fmt.Sprintf("Ensure this value is less than or equal to %s.", e.Param())
	case "gte", "gt":
		return fmt.Sprintf("Ensure this value is greater than or equal to %s.", e.Param())
	case "oneof":
		return fmt.Sprintf("\"%v\" is not a valid choice.", e.Value())
	case "card_number":
		return "Card number must match the NNNN NNNN NNNN NNNN format."
	case "unique_items":
		return "Array elements must be unique."
	case "eqfield":
		return "The two password fields didn't match."
	default:
		return "Invalid value."
	}
}
