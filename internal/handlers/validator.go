package handlers

import (
	"fmt"
	"reflect"
	"strings"

	"finance-tracker/internal/validation"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

// CustomValidator implements echo.Validator interface
type CustomValidator struct {
	validator *validator.Validate
}

// NewValidator returns the echo validator carrying the custom finance rules
func NewValidator() echo.Validator {
	return &CustomValidator{validator: validation.GetValidator().GetValidate()}
}

// Validate implements the echo.Validator interface
func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}

// validationDetails renders validator errors as "field: message" lines.
func validationDetails(err error) []string {
	validationErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return []string{err.Error()}
	}

	details := make([]string, 0, len(validationErrs))
	for _, fieldErr := range validationErrs {
		details = append(details, fmt.Sprintf("%s: %s", fieldErr.Field(), FormatValidationError(fieldErr)))
	}
	return details
}

// FormatValidationError converts a validator.FieldError to a human-readable message
func FormatValidationError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("must be at least %s characters long", fe.Param())
		}
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("must be at most %s characters long", fe.Param())
		}
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "uuid":
		return "must be a valid UUID"
	case "url":
		return "must be a valid URL"
	case "account_type":
		return "must be CURRENT or SAVINGS"
	case "transaction_type":
		return "must be INCOME or EXPENSE"
	case "recurring_interval":
		return "must be one of DAILY, WEEKLY, MONTHLY, YEARLY"
	case "category":
		return "must be a known category"
	case "decimal_amount":
		return "must be a decimal number with at most 2 decimal places"
	default:
		return fmt.Sprintf("failed validation for '%s'", strings.ToLower(fe.Tag()))
	}
}
