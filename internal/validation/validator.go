package validation

import (
	"reflect"
	"regexp"
	"strings"

	"finance-tracker/internal/models"

	"github.com/go-playground/validator/v10"
)

// Validator wraps the go-playground validator with custom rules and error formatting
type Validator struct {
	validate *validator.Validate
}

// GetValidate returns the underlying validator.Validate instance for use with Echo
func (v *Validator) GetValidate() *validator.Validate {
	return v.validate
}

var instance *Validator

// GetValidator returns the singleton validator instance
func GetValidator() *Validator {
	if instance == nil {
		instance = NewValidator()
	}
	return instance
}

// NewValidator creates a new validator instance with custom rules and configuration
func NewValidator() *Validator {
	v := validator.New()

	_ = v.RegisterValidation("account_type", validateAccountType)
	_ = v.RegisterValidation("transaction_type", validateTransactionType)
	_ = v.RegisterValidation("recurring_interval", validateRecurringInterval)
	_ = v.RegisterValidation("category", validateCategory)
	_ = v.RegisterValidation("decimal_amount", validateDecimalAmount)

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	return &Validator{validate: v}
}

// amountPattern is a plain decimal with at most two fraction digits.
var amountPattern = regexp.MustCompile(`^[+-]?\d+(\.\d{1,2})?$`)

func validateAccountType(fl validator.FieldLevel) bool {
	return models.IsValidAccountType(strings.ToUpper(fl.Field().String()))
}

func validateTransactionType(fl validator.FieldLevel) bool {
	return models.IsValidTransactionType(strings.ToUpper(fl.Field().String()))
}

func validateRecurringInterval(fl validator.FieldLevel) bool {
	return models.IsValidRecurringInterval(strings.ToUpper(strings.TrimSpace(fl.Field().String())))
}

func validateCategory(fl validator.FieldLevel) bool {
	return models.IsValidCategory(strings.ToLower(strings.TrimSpace(fl.Field().String())))
}

// validateDecimalAmount accepts finite decimal strings such as "12", "12.5"
// or "12.50". Sign checks are left to the service, which knows whether zero
// or negative values make sense.
func validateDecimalAmount(fl validator.FieldLevel) bool {
	raw := strings.TrimSpace(fl.Field().String())
	if !amountPattern.MatchString(raw) {
		return false
	}
	_, err := models.ParseAmount(raw)
	return err == nil
}
