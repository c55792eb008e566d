package services

import (
	"errors"
	"fmt"
)

// Error categories. Every error a service returns to a caller wraps exactly
// one of these, so callers can branch with errors.Is on either the category
// or the specific error.
var (
	ErrUnauthorized    = errors.New("unauthorized")
	ErrNotFound        = errors.New("not found")
	ErrValidation      = errors.New("validation failed")
	ErrRateLimited     = errors.New("rate limited")
	ErrExternalService = errors.New("external service error")
)

var (
	ErrUserNotResolved        = fmt.Errorf("%w: user could not be resolved", ErrUnauthorized)
	ErrAccountNotFound        = fmt.Errorf("%w: account not found", ErrNotFound)
	ErrTransactionNotFound    = fmt.Errorf("%w: transaction not found", ErrNotFound)
	ErrBudgetNotFound         = fmt.Errorf("%w: budget not found", ErrNotFound)
	ErrInvalidAmount          = fmt.Errorf("%w: amount must be a finite number greater than zero", ErrValidation)
	ErrInvalidBalance         = fmt.Errorf("%w: balance must be a finite, non-negative number", ErrValidation)
	ErrInvalidRecurrence      = fmt.Errorf("%w: recurring transactions need a valid interval", ErrValidation)
	ErrTransactionRateLimited = fmt.Errorf("%w: too many transactions, please try again later", ErrRateLimited)
	ErrEmailDelivery          = fmt.Errorf("%w: email delivery failed", ErrExternalService)
	ErrTransactionConflict    = errors.New("transaction was modified concurrently")
	ErrMaxRetriesExceeded     = errors.New("max retries exceeded")
)

// validationError marks err as a validation failure while keeping it
// matchable with errors.Is.
func validationError(err error) error {
	return fmt.Errorf("%w: %w", ErrValidation, err)
}
