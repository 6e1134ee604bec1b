// Package errors provides the structured error taxonomy shared by the HTTP
// surface and the workflow worker.
package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeValidation ErrorCode = "VALIDATION_ERROR"

	ErrCodePredictionServiceError  ErrorCode = "PREDICTION_SERVICE_ERROR"
	ErrCodePredictionCallFailed    ErrorCode = "PREDICTION_CALL_FAILED"
	ErrCodePredictionEmptyResponse ErrorCode = "PREDICTION_EMPTY_RESPONSE"

	ErrCodePrimaryStore ErrorCode = "PRIMARY_STORE_ERROR"

	ErrCodeMirrorWriteFailed    ErrorCode = "MIRROR_WRITE_FAILED"
	ErrCodeRecentQueryFailed    ErrorCode = "RECENT_QUERY_FAILED"
	ErrCodeAnalyticsQueryFailed ErrorCode = "ANALYTICS_QUERY_FAILED"

	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	Cause     error                  `json:"-"`
}

func (e *StandardError) Error() string {
	if e.Details == "" {
		return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("StandardError[%s]: %s: %s", e.Code, e.Message, e.Details)
}

func (e *StandardError) Unwrap() error {
	return e.Cause
}

// WithMetadata sets a metadata key and returns the same error.
func (e *StandardError) WithMetadata(key string, value interface{}) *StandardError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]interface{})
	}
	e.Metadata[key] = value
	return e
}

// ==========================
// 2. BPMN Error Integration
// ==========================

// BPMNError represents an error that can be thrown to the Camunda workflow engine.
type BPMNError struct {
	Code           string                 `json:"code"`
	Message        string                 `json:"message"`
	Details        string                 `json:"details,omitempty"`
	Retryable      bool                   `json:"retryable"`
	ErrorVariables map[string]interface{} `json:"errorVariables,omitempty"`
}

func (e *BPMNError) Error() string {
	return fmt.Sprintf("BPMNError[%s]: %s", e.Code, e.Message)
}

// ToErrorVariables returns a map suitable for setting Camunda job fail variables.
func (e *BPMNError) ToErrorVariables() map[string]interface{} {
	vars := map[string]interface{}{
		"errorCode":    e.Code,
		"errorMessage": e.Message,
		"errorDetails": e.Details,
		"retryable":    e.Retryable,
	}
	for k, v := range e.ErrorVariables {
		vars[k] = v
	}
	return vars
}

// ==========================
// 3. Error Constructors
// ==========================

// NewValidationError creates a non-retryable request validation error.
func NewValidationError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeValidation,
		Message:   "Validation error",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewPredictionServiceError records a non-success answer from the scoring
// service. Only 5xx answers are worth retrying.
func NewPredictionServiceError(status int, body string) *StandardError {
	return &StandardError{
		Code:      ErrCodePredictionServiceError,
		Message:   "Prediction service error",
		Details:   fmt.Sprintf("%d - %s", status, body),
		Retryable: status >= http.StatusInternalServerError,
		Metadata: map[string]interface{}{
			"status": status,
			"body":   body,
		},
		Timestamp: time.Now().UTC(),
	}
}

// NewPredictionCallFailedError wraps a transport, timeout or decoding failure.
func NewPredictionCallFailedError(err error) *StandardError {
	stdErr := &StandardError{
		Code:      ErrCodePredictionCallFailed,
		Message:   "Failed to call prediction service",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
		Cause:     err,
	}
	if IsTimeout(err) {
		stdErr.WithMetadata("timeout", true)
	}
	return stdErr
}

// NewPredictionEmptyResponseError is returned when the scorer answers 2xx
// with no verdict.
func NewPredictionEmptyResponseError() *StandardError {
	return &StandardError{
		Code:      ErrCodePredictionEmptyResponse,
		Message:   "Prediction service returned empty response",
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewPrimaryStoreError wraps any failure of the system-of-record write.
func NewPrimaryStoreError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodePrimaryStore,
		Message:   "Primary store write failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
		Cause:     err,
	}
}

// NewMirrorWriteFailedError is only ever logged; it never leaves the mirror.
func NewMirrorWriteFailedError(sink string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeMirrorWriteFailed,
		Message:   fmt.Sprintf("Analytics mirror write to '%s' failed", sink),
		Details:   err.Error(),
		Retryable: false,
		Metadata:  map[string]interface{}{"sink": sink},
		Timestamp: time.Now().UTC(),
		Cause:     err,
	}
}

func NewRecentQueryFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeRecentQueryFailed,
		Message:   "Failed to fetch recent applications",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
		Cause:     err,
	}
}

func NewAnalyticsQueryFailedError(query string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeAnalyticsQueryFailed,
		Message:   "Analytics query failed",
		Details:   fmt.Sprintf("query: %s, error: %s", query, err.Error()),
		Retryable: true,
		Metadata:  map[string]interface{}{"query": query},
		Timestamp: time.Now().UTC(),
		Cause:     err,
	}
}

func NewInternalError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeInternal,
		Message:   "Unexpected error",
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
		Cause:     err,
	}
}

// ==========================
// 4. Error Conversion to BPMN
// ==========================

// BPMNErrorMapping maps internal error codes to BPMN error codes.
var BPMNErrorMapping = map[ErrorCode]string{
	ErrCodeValidation:              "LOAN_APPLICATION_INVALID",
	ErrCodePredictionServiceError:  "PREDICTION_SERVICE_ERROR",
	ErrCodePredictionCallFailed:    "PREDICTION_CALL_FAILED",
	ErrCodePredictionEmptyResponse: "PREDICTION_EMPTY_RESPONSE",
	ErrCodePrimaryStore:            "PRIMARY_STORE_ERROR",
}

// ConvertToBPMNError converts a StandardError to a BPMNError for Camunda.
func ConvertToBPMNError(stdErr *StandardError) *BPMNError {
	bpmnCode, exists := BPMNErrorMapping[stdErr.Code]
	if !exists {
		bpmnCode = string(stdErr.Code)
	}

	return &BPMNError{
		Code:      bpmnCode,
		Message:   stdErr.Message,
		Details:   stdErr.Details,
		Retryable: stdErr.Retryable,
		ErrorVariables: map[string]interface{}{
			"originalErrorCode": string(stdErr.Code),
			"timestamp":         stdErr.Timestamp.Format(time.RFC3339),
		},
	}
}

// ==========================
// 5. Utility Functions
// ==========================

// AsStandard returns the first StandardError in err's chain.
func AsStandard(err error) (*StandardError, bool) {
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr, true
	}
	return nil, false
}

// CodeOf returns the code of the first StandardError in err's chain, or
// INTERNAL_ERROR.
func CodeOf(err error) ErrorCode {
	if stdErr, ok := AsStandard(err); ok {
		return stdErr.Code
	}
	return ErrCodeInternal
}

// HasCode reports whether err carries the given code.
func HasCode(err error, code ErrorCode) bool {
	stdErr, ok := AsStandard(err)
	return ok && stdErr.Code == code
}

// IsTimeout reports whether err is a deadline or network timeout.
func IsTimeout(err error) bool {
	if stderrors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return stderrors.As(err, &netErr) && netErr.Timeout()
}

// HTTPStatus maps an error to the status the HTTP surface answers with.
func HTTPStatus(err error) int {
	stdErr, ok := AsStandard(err)
	if !ok {
		return http.StatusInternalServerError
	}
	switch stdErr.Code {
	case ErrCodeValidation:
		return http.StatusBadRequest
	case ErrCodePredictionCallFailed:
		if timeout, _ := stdErr.Metadata["timeout"].(bool); timeout {
			return http.StatusGatewayTimeout
		}
		return http.StatusBadGateway
	case ErrCodePredictionServiceError, ErrCodePredictionEmptyResponse:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// GetErrorCategory returns the category of the error code.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.HasPrefix(codeStr, "PREDICTION"):
		return "SCORING"
	case strings.Contains(codeStr, "STORE") || strings.Contains(codeStr, "QUERY"):
		return "DATABASE"
	case strings.Contains(codeStr, "MIRROR"):
		return "ANALYTICS"
	case strings.Contains(codeStr, "VALIDATION"):
		return "VALIDATION"
	default:
		return "OTHER"
	}
}
