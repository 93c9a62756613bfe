package errors

import (
	"errors"
	"fmt"
)

// Error codes
const (
	// Content errors
	ErrCodeParse  = "PARSE_ERROR"
	ErrCodeRender = "RENDER_ERROR"

	// Access errors
	ErrCodeForbidden = "FORBIDDEN"

	// Resource errors
	ErrCodeNotFound = "NOT_FOUND"

	// Validation errors
	ErrCodeInvalidInput = "INVALID_INPUT"

	// Storage errors
	ErrCodeStore = "STORE_ERROR"
)

// TaskError is a coded error raised by the reconciliation services.
type TaskError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

// Error implements the error interface
func (e *TaskError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap exposes the cause to errors.Is and errors.As.
func (e *TaskError) Unwrap() error {
	return e.Err
}

// NewTaskError creates a new TaskError
func NewTaskError(code, message string) *TaskError {
	return &TaskError{
		Code:    code,
		Message: message,
	}
}

// Wrap creates a TaskError around err.
func Wrap(code, message string, err error) *TaskError {
	return &TaskError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// HasCode reports whether err or any error it wraps is a TaskError with code.
func HasCode(err error, code string) bool {
	var te *TaskError
	for err != nil {
		if !errors.As(err, &te) {
			return false
		}
		if te.Code == code {
			return true
		}
		err = te.Err
	}
	return false
}

// Helper constructors for the common cases

// Parse wraps a markup or date parse failure.
func Parse(message string, err error) *TaskError {
	return Wrap(ErrCodeParse, message, err)
}

// Render wraps a render failure.
func Render(message string, err error) *TaskError {
	return Wrap(ErrCodeRender, message, err)
}

// Store wraps a storage failure.
func Store(message string, err error) *TaskError {
	return Wrap(ErrCodeStore, message, err)
}

// Forbidden reports a missing right.
func Forbidden(message string) *TaskError {
	if message == "" {
		message = "Access denied"
	}
	return NewTaskError(ErrCodeForbidden, message)
}

// NotFound reports a missing resource.
func NotFound(message string) *TaskError {
	if message == "" {
		message = "Resource not found"
	}
	return NewTaskError(ErrCodeNotFound, message)
}

// InvalidInput reports a rejected argument.
func InvalidInput(message string) *TaskError {
	if message == "" {
		message = "Invalid input"
	}
	return NewTaskError(ErrCodeInvalidInput, message)
}
