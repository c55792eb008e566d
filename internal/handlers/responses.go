package handlers

import (
	stderrors "errors"
	"log/slog"
	"net/http"

	"finance-tracker/internal/errors"
	"finance-tracker/internal/services"

	"github.com/labstack/echo/v4"
)

// All handlers answer failures through SendError (client and business
// errors), SendSystemError (anything internal, details are logged and never
// returned) or sendServiceError (errors coming back from a service).

const (
	// TraceIDContextKey is the context key for storing the trace ID
	TraceIDContextKey = "trace_id"
	// UserIDContextKey holds the resolved local user id
	UserIDContextKey = "user_id"
)

// ErrorResponse is an alias for the standardized error response type
type ErrorResponse = errors.ErrorResponse

func getTraceID(c echo.Context) string {
	traceID, ok := c.Get(TraceIDContextKey).(string)
	if !ok {
		return ""
	}
	return traceID
}

// SendError sends a standardized error response with trace ID from context
func SendError(c echo.Context, code errors.ErrorCode, opts ...errors.ErrorOption) error {
	errorResponse := errors.NewErrorResponse(code, getTraceID(c), opts...)
	return c.JSON(errorResponse.HTTPStatus(), errorResponse)
}

// SendSystemError logs err and answers with a generic SYSTEM_001
func SendSystemError(c echo.Context, err error) error {
	traceID := getTraceID(c)

	slog.ErrorContext(c.Request().Context(), "internal error",
		slog.String("trace_id", traceID),
		slog.String("path", c.Request().URL.Path),
		slog.String("method", c.Request().Method),
		slog.String("error", err.Error()),
	)

	return c.JSON(http.StatusInternalServerError, errors.NewErrorResponse(errors.SystemInternalError, traceID))
}

// sendServiceError maps a service error onto its API error code. Specific
// errors are matched before the category they belong to.
func sendServiceError(c echo.Context, err error) error {
	switch {
	case stderrors.Is(err, services.ErrUnauthorized):
		return SendError(c, errors.AuthUserNotResolved)
	case stderrors.Is(err, services.ErrAccountNotFound):
		return SendError(c, errors.AccountNotFound)
	case stderrors.Is(err, services.ErrTransactionNotFound):
		return SendError(c, errors.TransactionNotFound)
	case stderrors.Is(err, services.ErrBudgetNotFound):
		return SendError(c, errors.BudgetNotFound)
	case stderrors.Is(err, services.ErrInvalidAmount), stderrors.Is(err, services.ErrInvalidBalance):
		return SendError(c, errors.ValidationInvalidAmount)
	case stderrors.Is(err, services.ErrInvalidRecurrence):
		return SendError(c, errors.TransactionInvalidRecurring)
	case stderrors.Is(err, services.ErrValidation):
		return SendError(c, errors.ValidationGeneral, errors.WithDetails(err.Error()))
	case stderrors.Is(err, services.ErrTransactionConflict):
		return SendError(c, errors.TransactionConflict)
	case stderrors.Is(err, services.ErrRateLimited):
		return SendError(c, errors.SystemRateLimitExceeded)
	case stderrors.Is(err, services.ErrExternalService):
		return SendError(c, errors.SystemExternalService)
	default:
		return SendSystemError(c, err)
	}
}
