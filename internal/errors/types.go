// Package errors provides the error taxonomy used across next-client.
//
// Nothing in the analysis pipeline is fatal: each type records whether the
// failure is recoverable so callers can decide between skipping a file,
// keeping the previous graph state, or surfacing the error to the user.
package errors

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
)

// ErrorType represents different categories of errors.
type ErrorType string

const (
	ErrorTypeIO       ErrorType = "io"
	ErrorTypeNotFound ErrorType = "not_found"
	ErrorTypeParse    ErrorType = "parse"
	ErrorTypeConfig   ErrorType = "config"
	ErrorTypeInternal ErrorType = "internal"
)

// Common error codes.
const (
	ErrCodeFileUnreadable   = "ERR_FILE_UNREADABLE"
	ErrCodeFileNotFound     = "ERR_FILE_NOT_FOUND"
	ErrCodeFileTooLarge     = "ERR_FILE_TOO_LARGE"
	ErrCodeParseFailed      = "ERR_PARSE_FAILED"
	ErrCodeUnsupportedFile  = "ERR_UNSUPPORTED_FILE"
	ErrCodeConfigInvalid    = "ERR_CONFIG_INVALID"
	ErrCodeStepLimit        = "ERR_STEP_LIMIT"
	ErrCodeWorkspaceClosed  = "ERR_WORKSPACE_CLOSED"
	ErrCodeInternalError    = "ERR_INTERNAL"
	ErrCodeEnumerationError = "ERR_ENUMERATION"
)

// ClientError is a structured error type with context.
type ClientError struct {
	Type        ErrorType
	Code        string
	Message     string
	Cause       error
	FilePath    string
	Recoverable bool
}

// Error implements the error interface.
func (e *ClientError) Error() string {
	var parts []string

	if e.Code != "" {
		parts = append(parts, fmt.Sprintf("[%s]", e.Code))
	}

	if e.FilePath != "" {
		parts = append(parts, e.FilePath)
	}

	parts = append(parts, e.Message)

	result := strings.Join(parts, " ")

	if e.Cause != nil {
		result += fmt.Sprintf(": %v", e.Cause)
	}

	return result
}

// Unwrap returns the underlying cause error.
func (e *ClientError) Unwrap() error {
	return e.Cause
}

// Is implements error comparison.
func (e *ClientError) Is(target error) bool {
	var t *ClientError
	if errors.As(target, &t) {
		return e.Type == t.Type && e.Code == t.Code
	}

	return false
}

// WithPath adds the file path.
func (e *ClientError) WithPath(filePath string) *ClientError {
	e.FilePath = filePath

	return e
}

// NewIOError creates an I/O error. When the cause is a not-exist error the
// result is a recoverable not-found error instead.
func NewIOError(code, message string, cause error) *ClientError {
	if cause != nil && errors.Is(cause, fs.ErrNotExist) {
		return NewNotFoundError(message, cause)
	}
	return &ClientError{
		Type:        ErrorTypeIO,
		Code:        code,
		Message:     message,
		Cause:       cause,
		Recoverable: false,
	}
}

// NewNotFoundError creates a not-found error. These are expected during
// scans racing with deletions and are skipped silently.
func NewNotFoundError(message string, cause error) *ClientError {
	return &ClientError{
		Type:        ErrorTypeNotFound,
		Code:        ErrCodeFileNotFound,
		Message:     message,
		Cause:       cause,
		Recoverable: true,
	}
}

// NewParseError creates a parse error.
func NewParseError(code, message string, cause error) *ClientError {
	return &ClientError{
		Type:        ErrorTypeParse,
		Code:        code,
		Message:     message,
		Cause:       cause,
		Recoverable: true,
	}
}

// NewConfigError creates a configuration error.
func NewConfigError(code, message string) *ClientError {
	return &ClientError{
		Type:        ErrorTypeConfig,
		Code:        code,
		Message:     message,
		Recoverable: false,
	}
}

// NewInternalError creates an internal error.
func NewInternalError(code, message string, cause error) *ClientError {
	return &ClientError{
		Type:        ErrorTypeInternal,
		Code:        code,
		Message:     message,
		Cause:       cause,
		Recoverable: false,
	}
}

// IsRecoverable checks if an error is recoverable.
func IsRecoverable(err error) bool {
	var ce *ClientError
	if errors.As(err, &ce) {
		return ce.Recoverable
	}

	return false
}

// IsNotFound checks if an error means the file does not exist.
func IsNotFound(err error) bool {
	var ce *ClientError
	if errors.As(err, &ce) {
		return ce.Type == ErrorTypeNotFound
	}

	return errors.Is(err, fs.ErrNotExist)
}

// IsParseError checks if an error is a parse failure.
func IsParseError(err error) bool {
	var ce *ClientError
	if errors.As(err, &ce) {
		return ce.Type == ErrorTypeParse
	}

	return false
}

// IsConfigError checks if an error is configuration-related.
func IsConfigError(err error) bool {
	var ce *ClientError
	if errors.As(err, &ce) {
		return ce.Type == ErrorTypeConfig
	}

	return false
}
