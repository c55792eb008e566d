package middleware

import (
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"

	"finance-tracker/internal/errors"
	"finance-tracker/internal/handlers"

	"github.com/labstack/echo/v4"
)

// PanicRecovery turns a panicking handler into a SYSTEM_001 response. The
// panic value and stack only go to the log.
func PanicRecovery() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) (err error) {
			defer func() {
				r := recover()
				if r == nil {
					return
				}
				if r == http.ErrAbortHandler {
					panic(r)
				}

				slog.ErrorContext(c.Request().Context(), "Panic recovered",
					slog.String("trace_id", GetTraceID(c)),
					slog.String("panic", fmt.Sprintf("%v", r)),
					slog.String("stack_trace", string(debug.Stack())),
					slog.String("path", c.Request().URL.Path),
					slog.String("method", c.Request().Method),
				)

				if c.Response().Committed {
					return
				}
				err = handlers.SendError(c, errors.SystemInternalError)
			}()

			return next(c)
		}
	}
}
