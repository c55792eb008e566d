package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"finance-tracker/internal/dto"
	"finance-tracker/internal/validation"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"
)

// ErrorHandlerTestSuite defines the test suite for error handler middleware
type ErrorHandlerTestSuite struct {
	suite.Suite
	echo *echo.Echo
}

// SetupTest runs before each test
func (s *ErrorHandlerTestSuite) SetupTest() {
	s.echo = echo.New()
	s.echo.HTTPErrorHandler = CustomHTTPErrorHandler
}

// TestErrorHandlerTestSuite runs the test suite
func TestErrorHandlerTestSuite(t *testing.T) {
	suite.Run(t, new(ErrorHandlerTestSuite))
}

// TestCustomHTTPErrorHandler_EchoHTTPError tests handling of Echo HTTP errors
func (s *ErrorHandlerTestSuite) TestCustomHTTPErrorHandler_EchoHTTPError() {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := s.echo.NewContext(req, rec)
	c.Set(TraceIDContextKey, "test-trace-id")

	echoErr := echo.NewHTTPError(http.StatusNotFound, "Resource not found")
	CustomHTTPErrorHandler(echoErr, c)

	s.Equal(http.StatusNotFound, rec.Code)
	s.Contains(rec.Body.String(), "test-trace-id")
	s.Contains(rec.Body.String(), "Resource not found")
}

// TestCustomHTTPErrorHandler_GenericError tests handling of generic errors
func (s *ErrorHandlerTestSuite) TestCustomHTTPErrorHandler_GenericError() {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := s.echo.NewContext(req, rec)
	c.Set(TraceIDContextKey, "test-trace-id")

	err := errors.New("generic error")
	CustomHTTPErrorHandler(err, c)

	s.Equal(http.StatusInternalServerError, rec.Code)
	s.Contains(rec.Body.String(), "SYSTEM_001")
	s.Contains(rec.Body.String(), "test-trace-id")
}

// TestCustomHTTPErrorHandler_NoTraceID tests error handling without trace ID
func (s *ErrorHandlerTestSuite) TestCustomHTTPErrorHandler_NoTraceID() {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := s.echo.NewContext(req, rec)

	err := errors.New("test error")
	CustomHTTPErrorHandler(err, c)

	s.Equal(http.StatusInternalServerError, rec.Code)
	s.Contains(rec.Body.String(), "unknown")
}

// TestCustomHTTPErrorHandler_CommittedResponse tests that handler doesn't process committed responses
func (s *ErrorHandlerTestSuite) TestCustomHTTPErrorHandler_CommittedResponse() {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := s.echo.NewContext(req, rec)

	// Commit the response by writing to it
	_ = c.JSON(http.StatusOK, map[string]string{"status": "ok"})

	// Now try to handle an error - should not overwrite
	err := errors.New("test error")
	CustomHTTPErrorHandler(err, c)

	// Should still have the original 200 response
	s.Equal(http.StatusOK, rec.Code)
	s.Contains(rec.Body.String(), "ok")
}

// TestMapHTTPStatusToErrorCode_AllStatuses tests error code mapping
func (s *ErrorHandlerTestSuite) TestMapHTTPStatusToErrorCode_AllStatuses() {
	testCases := []struct {
		status       int
		expectedCode string
	}{
		{http.StatusBadRequest, "VALIDATION_001"},
		{http.StatusUnauthorized, "AUTH_003"},
		{http.StatusForbidden, "AUTH_003"},
		{http.StatusNotFound, "SYSTEM_005"},
		{http.StatusMethodNotAllowed, "VALIDATION_001"},
		{http.StatusUnprocessableEntity, "VALIDATION_001"},
		{http.StatusTooManyRequests, "SYSTEM_003"},
		{http.StatusInternalServerError, "SYSTEM_001"},
		{http.StatusServiceUnavailable, "SYSTEM_004"},
		{999, "SYSTEM_001"}, // Unknown status
	}

	for _, tc := range testCases {
		s.Run(http.StatusText(tc.status), func() {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			rec := httptest.NewRecorder()
			c := s.echo.NewContext(req, rec)
			c.Set(TraceIDContextKey, "test-trace-id")

			echoErr := echo.NewHTTPError(tc.status)
			CustomHTTPErrorHandler(echoErr, c)

			s.Equal(tc.status, rec.Code)
			s.Contains(rec.Body.String(), tc.expectedCode)
		})
	}
}

// TestCustomHTTPErrorHandler_JSONFormat tests that response is valid JSON
func (s *ErrorHandlerTestSuite) TestCustomHTTPErrorHandler_JSONFormat() {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := s.echo.NewContext(req, rec)
	c.Set(TraceIDContextKey, "test-trace-id")

	err := errors.New("test error")
	CustomHTTPErrorHandler(err, c)

	// Check Content-Type
	s.Contains(rec.Header().Get("Content-Type"), "application/json")
}

// TestCustomHTTPErrorHandler_ValidationErrors renders validator failures per field
func (s *ErrorHandlerTestSuite) TestCustomHTTPErrorHandler_ValidationErrors() {
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	rec := httptest.NewRecorder()
	c := s.echo.NewContext(req, rec)
	c.Set(TraceIDContextKey, "test-trace-id")

	err := validation.GetValidator().GetValidate().Struct(dto.UpdateBudgetRequest{Amount: "ten"})
	s.Require().Error(err)

	CustomHTTPErrorHandler(err, c)

	s.Equal(http.StatusBadRequest, rec.Code)
	s.Contains(rec.Body.String(), "VALIDATION_001")
	s.Contains(rec.Body.String(), "amount: must be a decimal number with at most 2 decimal places")
}

// TestCustomHTTPErrorHandler_CountsErrors increments the error counter per code and route
func (s *ErrorHandlerTestSuite) TestCustomHTTPErrorHandler_CountsErrors() {
	counter := apiErrorsTotal.WithLabelValues("SYSTEM_003", "/api/v1/transactions", "429")
	before := testutil.ToFloat64(counter)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/transactions", nil)
	rec := httptest.NewRecorder()
	c := s.echo.NewContext(req, rec)
	c.SetPath("/api/v1/transactions")

	CustomHTTPErrorHandler(echo.NewHTTPError(http.StatusTooManyRequests), c)

	s.Equal(before+1, testutil.ToFloat64(counter))
}
