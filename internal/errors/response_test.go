package errors

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/suite"
)

type ResponseTestSuite struct {
	suite.Suite
	traceID string
}

func (s *ResponseTestSuite) SetupTest() {
	s.traceID = "550e8400-e29b-41d4-a716-446655440000"
}

func TestResponseTestSuite(t *testing.T) {
	suite.Run(t, new(ResponseTestSuite))
}

func (s *ResponseTestSuite) TestNewErrorResponse_BasicUsage() {
	response := NewErrorResponse(AccountNotFound, s.traceID)

	s.Equal("ACCOUNT_001", response.Error.Code)
	s.Equal("Account not found", response.Error.Message)
	s.Equal(s.traceID, response.Error.TraceID)
	s.Empty(response.Error.Details)
	s.Equal(http.StatusNotFound, response.HTTPStatus())
}

func (s *ResponseTestSuite) TestNewErrorResponse_Options() {
	response := NewErrorResponse(ValidationGeneral, s.traceID,
		WithMessage("Bad input"),
		WithDetails("amount: required"),
		WithDetails("type: invalid"),
	)

	s.Equal("Bad input", response.Error.Message)
	s.Equal([]string{"amount: required", "type: invalid"}, response.Error.Details)
}

func (s *ResponseTestSuite) TestNewValidationError() {
	response := NewValidationError(map[string]string{"amount": "must be positive"}, s.traceID)

	s.Equal(string(ValidationGeneral), response.Error.Code)
	s.Equal([]string{"amount: must be positive"}, response.Error.Details)
}

func (s *ResponseTestSuite) TestJSONShape() {
	raw, err := json.Marshal(NewErrorResponse(SystemRateLimitExceeded, s.traceID))
	s.Require().NoError(err)

	var decoded map[string]map[string]interface{}
	s.Require().NoError(json.Unmarshal(raw, &decoded))
	s.Equal("SYSTEM_003", decoded["error"]["code"])
	s.Equal(s.traceID, decoded["error"]["trace_id"])
	s.NotContains(decoded["error"], "details")
}

func (s *ResponseTestSuite) TestServerErrorStatus() {
	response := NewErrorResponse(SystemInternalError, s.traceID)

	s.Equal(http.StatusInternalServerError, response.HTTPStatus())
	s.Contains(response.Error.Message, "trace ID")
}
