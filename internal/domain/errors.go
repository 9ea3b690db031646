package domain

import (
	"errors"
	"fmt"
	"time"
)

// EngineError represents a standardized error response at the API boundary.
type EngineError struct {
	Code      string    `json:"code"`
	Message   string    `json:"message"`
	Details   string    `json:"details,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id"`
}

// Error implements the error interface.
func (e *EngineError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Error codes for different failure scenarios.
const (
	ErrCodeInvalidInput   = "INVALID_INPUT"
	ErrCodeDataset        = "DATASET_ERROR"
	ErrCodeEvaluation     = "EVALUATION_ERROR"
	ErrCodeFeedback       = "FEEDBACK_ERROR"
	ErrCodeRateLimit      = "RATE_LIMIT_EXCEEDED"
	ErrCodeInternalServer = "INTERNAL_SERVER_ERROR"
)

// Dataset-integrity violations. ErrEmptyBinSet is the only fatal condition
// the engine raises for normal input: a table without density bins signals
// a corrupt reference dataset and must fail loudly rather than guess.
var (
	ErrEmptyBinSet       = errors.New("threshold table has no bone-density bins")
	ErrTableNotFound     = errors.New("no threshold table for sex and tier")
	ErrUnknownRiskFactor = errors.New("unknown risk factor id")
	ErrUnknownSubstance  = errors.New("unknown substance id")
)

// ValidationError represents an input validation error for a single field.
type ValidationError struct {
	Field   string      `json:"field"`
	Message string      `json:"message"`
	Value   interface{} `json:"value"`
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Message)
}

// NewEngineError creates a new EngineError with timestamp.
func NewEngineError(code, message, details, requestID string) *EngineError {
	return &EngineError{
		Code:      code,
		Message:   message,
		Details:   details,
		Timestamp: time.Now().UTC(),
		RequestID: requestID,
	}
}

// NewValidationError creates a new ValidationError.
func NewValidationError(field, message string, value interface{}) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
		Value:   value,
	}
}
