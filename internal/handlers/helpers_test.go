package handlers

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"

	"finance-tracker/internal/errors"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

func newTestEcho() *echo.Echo {
	e := echo.New()
	e.Validator = NewValidator()
	return e
}

// createContextWithAuth builds a request context as the auth middleware leaves it
func createContextWithAuth(e *echo.Echo, method, path string, body interface{}, userID uuid.UUID) (echo.Context, *httptest.ResponseRecorder) {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}

	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}

	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set(TraceIDContextKey, "test-trace")
	if userID != uuid.Nil {
		c.Set(UserIDContextKey, userID)
	}

	return c, rec
}

func decodeErrorResponse(rec *httptest.ResponseRecorder) errors.ErrorResponse {
	var resp errors.ErrorResponse
	_ = json.Unmarshal(rec.Body.Bytes(), &resp)
	return resp
}
