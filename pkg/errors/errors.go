package errors

import (
	"net/http"
)

// Error codes returned to API clients
const (
	CodeValidation        = "VALIDATION_ERROR"
	CodeDataIntegrity     = "DATA_INTEGRITY"
	CodeLedgerUnavailable = "LEDGER_UNAVAILABLE"
	CodeTooManyRequests   = "TOO_MANY_REQUESTS"
	CodeInternal          = "INTERNAL_ERROR"
)

type AppError struct {
	Status    int    `json:"-"`
	Code      string `json:"code"`
	Message   string `json:"message"`
	Details   string `json:"details,omitempty"`
	Retryable bool   `json:"retryable"`
}

func (e *AppError) Error() string {
	return e.Message
}

func NewAppError(status int, code, message string, details ...string) *AppError {
	var detail string
	if len(details) > 0 {
		detail = details[0]
	}
	return &AppError{
		Status:  status,
		Code:    code,
		Message: message,
		Details: detail,
	}
}

func NewValidationError(message string, details ...string) *AppError {
	return NewAppError(http.StatusBadRequest, CodeValidation, message, details...)
}

// NewDataIntegrityError is a ledger that contradicts itself, retrying will not help
func NewDataIntegrityError(message string, details ...string) *AppError {
	return NewAppError(http.StatusUnprocessableEntity, CodeDataIntegrity, message, details...)
}

// NewUnavailableError is an upstream read failure the caller may retry
func NewUnavailableError(message string, details ...string) *AppError {
	err := NewAppError(http.StatusServiceUnavailable, CodeLedgerUnavailable, message, details...)
	err.Retryable = true
	return err
}

func NewInternalError(message string, details ...string) *AppError {
	return NewAppError(http.StatusInternalServerError, CodeInternal, message, details...)
}

func NewTooManyRequestsError(message string) *AppError {
	err := NewAppError(http.StatusTooManyRequests, CodeTooManyRequests, message)
	err.Retryable = true
	return err
}

var (
	ErrInvalidInvestorID = NewValidationError("Invalid investor ID")
	ErrRateLimited       = NewTooManyRequestsError("Rate limit exceeded")
)
