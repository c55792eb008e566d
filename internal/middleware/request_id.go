package middleware

import (
	"finance-tracker/internal/handlers"
	"finance-tracker/internal/services"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

const (
	// TraceIDHeader carries the trace ID in both directions.
	TraceIDHeader = "X-Trace-ID"
	// TraceIDContextKey is where handlers find the trace ID on the echo context.
	TraceIDContextKey = handlers.TraceIDContextKey

	maxTraceIDLength = 128
)

// RequestID tags every request with a trace ID. A caller-supplied ID is kept
// when it is short and printable ASCII; anything else is replaced with a
// fresh UUID so it cannot smuggle control characters into logs. The ID is
// echoed in the response header and becomes the audit correlation ID on the
// request context.
func RequestID() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()

			traceID := req.Header.Get(TraceIDHeader)
			if !validTraceID(traceID) {
				traceID = uuid.NewString()
			}

			c.Set(TraceIDContextKey, traceID)
			c.SetRequest(req.WithContext(services.WithCorrelationID(req.Context(), traceID)))
			c.Response().Header().Set(TraceIDHeader, traceID)
			return next(c)
		}
	}
}

// GetTraceID returns the request's trace ID, or "" outside RequestID.
func GetTraceID(c echo.Context) string {
	traceID, _ := c.Get(TraceIDContextKey).(string)
	return traceID
}

func validTraceID(id string) bool {
	if id == "" || len(id) > maxTraceIDLength {
		return false
	}
	for i := 0; i < len(id); i++ {
		if id[i] < 0x21 || id[i] > 0x7e {
			return false
		}
	}
	return true
}
