package errors

import (
	"fmt"
)

// ErrorResponse represents the standardized API error response structure
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains the detailed error information
type ErrorDetail struct {
	Code    string   `json:"code"`
	Message string   `json:"message"`
	Details []string `json:"details,omitempty"`
	TraceID string   `json:"trace_id"`
}

// ErrorOption configures an error response
type ErrorOption func(*ErrorResponse)

// WithDetails adds detail messages to the error response
func WithDetails(details ...string) ErrorOption {
	return func(er *ErrorResponse) {
		er.Error.Details = append(er.Error.Details, details...)
	}
}

// WithMessage overrides the default message for the error code
func WithMessage(message string) ErrorOption {
	return func(er *ErrorResponse) {
		er.Error.Message = message
	}
}

// NewErrorResponse builds the envelope for code with its catalogue message.
func NewErrorResponse(code ErrorCode, traceID string, opts ...ErrorOption) *ErrorResponse {
	response := &ErrorResponse{
		Error: ErrorDetail{
			Code:    string(code),
			Message: GetErrorMessage(code),
			TraceID: traceID,
		},
	}

	for _, opt := range opts {
		opt(response)
	}

	return response
}

// NewValidationError builds a VALIDATION_001 response from field errors,
// each rendered as "field: message".
func NewValidationError(fieldErrors map[string]string, traceID string) *ErrorResponse {
	details := make([]string, 0, len(fieldErrors))
	for field, message := range fieldErrors {
		details = append(details, fmt.Sprintf("%s: %s", field, message))
	}

	return NewErrorResponse(ValidationGeneral, traceID, WithDetails(details...))
}

// HTTPStatus returns the HTTP status code for the response's error code
func (er *ErrorResponse) HTTPStatus() int {
	return GetHTTPStatus(ErrorCode(er.Error.Code))
}
