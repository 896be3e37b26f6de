package apperrors

import (
	"fmt"
	"net/http"
)

// Kind classifies orchestrator-level failures per the error handling
// design: each kind dictates a distinct propagation rule (skip-and-log,
// retry-next-close, or surface-to-supervisor).
type Kind int

const (
	KindUnspecified Kind = iota
	KindInputMalformed
	KindInsufficientData
	KindFetcherTransient
	KindFetcherFatal
	KindSinkTransient
	KindSinkFatal
	KindLogicAssertion
)

func (k Kind) String() string {
	switch k {
	case KindInputMalformed:
		return "InputMalformed"
	case KindInsufficientData:
		return "InsufficientData"
	case KindFetcherTransient:
		return "FetcherTransient"
	case KindFetcherFatal:
		return "FetcherFatal"
	case KindSinkTransient:
		return "SinkTransient"
	case KindSinkFatal:
		return "SinkFatal"
	case KindLogicAssertion:
		return "LogicAssertion"
	default:
		return "Unspecified"
	}
}

// AppError represents an application error. Code is populated for
// errors that cross the ops HTTP surface; Kind is populated for errors
// that originate in the detection engine and must be classified by the
// orchestrator's supervisor.
type AppError struct {
	Code    int
	Kind    Kind
	Message string
	Err     error
}

// Error returns the error message
func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %v", e.Message, e.Err)
}

// NewEngineError builds an AppError carrying a Kind, for failures raised
// by the fetcher, sink, or pattern engine rather than the HTTP surface.
func NewEngineError(kind Kind, message string, err error) *AppError {
	return &AppError{Kind: kind, Message: message, Err: err}
}

// NewNotFoundError creates a new not found error
func NewNotFoundError(message string, err error) *AppError {
	return &AppError{
		Code:    http.StatusNotFound,
		Message: message,
		Err:     err,
	}
}

// NewBadRequestError creates a new bad request error
func NewBadRequestError(message string, err error) *AppError {
	return &AppError{
		Code:    http.StatusBadRequest,
		Message: message,
		Err:     err,
	}
}

// NewInternalServerError creates a new internal server error
func NewInternalServerError(message string, err error) *AppError {
	return &AppError{
		Code:    http.StatusInternalServerError,
		Message: message,
		Err:     err,
	}
}

// NewUnauthorizedError creates a new unauthorized error
func NewUnauthorizedError(message string, err error) *AppError {
	return &AppError{
		Code:    http.StatusUnauthorized,
		Message: message,
		Err:     err,
	}
}

// Response represents an error response
type Response struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}

// NewErrorResponse creates a new error response
func NewErrorResponse(message string, err error) Response {
	return Response{
		Success: false,
		Message: message,
		Error:   err.Error(),
	}
}
