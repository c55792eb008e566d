package middleware

import (
	stderrors "errors"
	"fmt"
	"log/slog"
	"net/http"

	"finance-tracker/internal/errors"
	"finance-tracker/internal/handlers"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// API errors counter metric
	apiErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_errors_total",
			Help: "Total number of API errors by code, endpoint, and status",
		},
		[]string{"code", "endpoint", "status"},
	)
)

// CustomHTTPErrorHandler is a custom error handler for Echo that formats errors
// as standardized error responses and logs them appropriately
func CustomHTTPErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	traceID := GetTraceID(c)
	if traceID == "" {
		traceID = "unknown"
	}

	var errorResponse *errors.ErrorResponse

	var echoErr *echo.HTTPError
	var validationErrs validator.ValidationErrors
	switch {
	case stderrors.As(err, &echoErr):
		errorResponse = errors.NewErrorResponse(
			mapHTTPStatusToErrorCode(echoErr.Code),
			traceID,
			errors.WithMessage(fmt.Sprintf("%v", echoErr.Message)),
		)
	case stderrors.As(err, &validationErrs):
		fieldErrors := make(map[string]string, len(validationErrs))
		for _, fieldErr := range validationErrs {
			fieldErrors[fieldErr.Field()] = handlers.FormatValidationError(fieldErr)
		}
		errorResponse = errors.NewValidationError(fieldErrors, traceID)
	default:
		errorResponse = errors.NewErrorResponse(errors.SystemInternalError, traceID)
	}

	httpStatus := errorResponse.HTTPStatus()
	if echoErr != nil {
		httpStatus = echoErr.Code
	}

	logLevel := slog.LevelWarn
	if httpStatus >= http.StatusInternalServerError {
		logLevel = slog.LevelError
	}

	slog.Log(c.Request().Context(), logLevel, "HTTP error occurred",
		"trace_id", traceID,
		"error_code", errorResponse.Error.Code,
		"status", httpStatus,
		"message", errorResponse.Error.Message,
		"path", c.Request().URL.Path,
		"method", c.Request().Method,
		"error", err.Error(),
	)

	apiErrorsTotal.WithLabelValues(
		errorResponse.Error.Code,
		c.Path(),
		fmt.Sprintf("%d", httpStatus),
	).Inc()

	if sendErr := c.JSON(httpStatus, errorResponse); sendErr != nil {
		slog.Error("Failed to send error response",
			"trace_id", traceID,
			"error", sendErr.Error(),
		)
	}
}

// mapHTTPStatusToErrorCode maps HTTP status codes to error codes
func mapHTTPStatusToErrorCode(status int) errors.ErrorCode {
	switch status {
	case http.StatusBadRequest, http.StatusMethodNotAllowed, http.StatusUnprocessableEntity,
		http.StatusRequestEntityTooLarge, http.StatusUnsupportedMediaType:
		return errors.ValidationGeneral
	case http.StatusUnauthorized, http.StatusForbidden:
		return errors.AuthUserNotResolved
	case http.StatusNotFound:
		return errors.SystemRouteNotFound
	case http.StatusTooManyRequests:
		return errors.SystemRateLimitExceeded
	case http.StatusBadGateway, http.StatusServiceUnavailable:
		return errors.SystemExternalService
	default:
		return errors.SystemInternalError
	}
}
