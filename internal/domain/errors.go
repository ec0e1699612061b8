package domain

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors for lookup failures.
var (
	ErrNotFound          = errors.New("not found")
	ErrConditionNotFound = errors.New("condition not found")
	ErrInvalidCoverage   = errors.New("invalid coverage type")
)

// APIError represents a standardized error response
type APIError struct {
	Code      string    `json:"code"`
	Message   string    `json:"message"`
	Details   string    `json:"details,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id"`
}

// Error implements the error interface
func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Error codes for different failure scenarios
const (
	ErrInvalidInput   = "INVALID_INPUT"
	ErrDatabaseError  = "DATABASE_ERROR"
	ErrRulesError     = "RULES_ERROR"
	ErrPricingError   = "PRICING_ERROR"
	ErrRateLimit      = "RATE_LIMIT_EXCEEDED"
	ErrInternalServer = "INTERNAL_SERVER_ERROR"
	ErrValidation     = "VALIDATION_ERROR"
)

// NewAPIError creates a new APIError with timestamp
func NewAPIError(code, message, details, requestID string) *APIError {
	return &APIError{
		Code:      code,
		Message:   message,
		Details:   details,
		Timestamp: time.Now().UTC(),
		RequestID: requestID,
	}
}

// ValidationError represents input validation errors
type ValidationError struct {
	Field   string      `json:"field"`
	Message string      `json:"message"`
	Value   interface{} `json:"value"`
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Message)
}

// NewValidationError creates a new ValidationError
func NewValidationError(field, message string, value interface{}) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
		Value:   value,
	}
}

// IntegrityWarning flags a malformed reference inside a rule document, such
// as an answer pointing at a question id that does not exist. Warnings are
// surfaced alongside results instead of failing the run, since rule data is
// hand-authored and a single bad edge must not take quoting down.
type IntegrityWarning struct {
	ConditionName string `json:"conditionName"`
	QuestionID    string `json:"questionId,omitempty"`
	Detail        string `json:"detail"`
}

// Error implements the error interface.
func (w *IntegrityWarning) Error() string {
	if w.QuestionID != "" {
		return fmt.Sprintf("rule integrity: condition %q question %q: %s", w.ConditionName, w.QuestionID, w.Detail)
	}
	return fmt.Sprintf("rule integrity: condition %q: %s", w.ConditionName, w.Detail)
}
