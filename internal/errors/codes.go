package errors

import "net/http"

// ErrorCode represents a standardized error code used throughout the API
type ErrorCode string

const (
	AuthMissingToken    ErrorCode = "AUTH_001"
	AuthInvalidToken    ErrorCode = "AUTH_002"
	AuthUserNotResolved ErrorCode = "AUTH_003"
)

const (
	ValidationGeneral       ErrorCode = "VALIDATION_001"
	ValidationRequiredField ErrorCode = "VALIDATION_002"
	ValidationInvalidFormat ErrorCode = "VALIDATION_003"
	ValidationInvalidAmount ErrorCode = "VALIDATION_004"
)

const (
	AccountNotFound ErrorCode = "ACCOUNT_001"
	AccountInvalid  ErrorCode = "ACCOUNT_002"
)

const (
	TransactionNotFound         ErrorCode = "TRANSACTION_001"
	TransactionInvalidRecurring ErrorCode = "TRANSACTION_002"
	TransactionInvalidCursor    ErrorCode = "TRANSACTION_003"
	TransactionConflict         ErrorCode = "TRANSACTION_004"
)

const (
	BudgetNotFound ErrorCode = "BUDGET_001"
)

const (
	SystemInternalError     ErrorCode = "SYSTEM_001"
	SystemDatabaseError     ErrorCode = "SYSTEM_002"
	SystemRateLimitExceeded ErrorCode = "SYSTEM_003"
	SystemExternalService   ErrorCode = "SYSTEM_004"
	SystemRouteNotFound     ErrorCode = "SYSTEM_005"
)

type catalogueEntry struct {
	message string
	status  int
}

var catalogue = map[ErrorCode]catalogueEntry{
	AuthMissingToken:    {"Authorization token is required", http.StatusUnauthorized},
	AuthInvalidToken:    {"Authorization token is invalid or expired", http.StatusUnauthorized},
	AuthUserNotResolved: {"Unauthorized", http.StatusUnauthorized},

	ValidationGeneral:       {"Validation failed", http.StatusBadRequest},
	ValidationRequiredField: {"Required field is missing", http.StatusBadRequest},
	ValidationInvalidFormat: {"Invalid field format", http.StatusBadRequest},
	ValidationInvalidAmount: {"Amount must be a finite positive number", http.StatusBadRequest},

	AccountNotFound: {"Account not found", http.StatusNotFound},
	AccountInvalid:  {"Invalid account details", http.StatusUnprocessableEntity},

	TransactionNotFound:         {"Transaction not found", http.StatusNotFound},
	TransactionInvalidRecurring: {"Recurring interval is required for recurring transactions", http.StatusUnprocessableEntity},
	TransactionInvalidCursor:    {"Invalid pagination cursor", http.StatusBadRequest},
	TransactionConflict:         {"Transaction was modified concurrently, please retry", http.StatusConflict},

	BudgetNotFound: {"Budget not found", http.StatusNotFound},

	SystemInternalError:     {"An unexpected error occurred. Please contact support with trace ID", http.StatusInternalServerError},
	SystemDatabaseError:     {"Database connection error", http.StatusInternalServerError},
	SystemRateLimitExceeded: {"Too many requests. Please try again later.", http.StatusTooManyRequests},
	SystemExternalService:   {"An external service is unavailable", http.StatusBadGateway},
	SystemRouteNotFound:     {"Resource not found", http.StatusNotFound},
}

// GetErrorMessage returns the default message for a code, or a generic one.
func GetErrorMessage(code ErrorCode) string {
	if entry, ok := catalogue[code]; ok {
		return entry.message
	}
	return "An error occurred"
}

// GetHTTPStatus returns the HTTP status for a code; unknown codes are 500.
func GetHTTPStatus(code ErrorCode) int {
	if entry, ok := catalogue[code]; ok {
		return entry.status
	}
	return http.StatusInternalServerError
}

// IsValidErrorCode checks if the provided error code is a valid registered code
func IsValidErrorCode(code ErrorCode) bool {
	_, ok := catalogue[code]
	return ok
}
