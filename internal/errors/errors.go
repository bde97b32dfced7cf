// Package errors provides a lightweight structured error type (ArchivistError)
// for category-based classification and retry semantics across the engine,
// store, and updater service.
package errors

import (
	"fmt"
)

// ErrorCategory represents the category of an Archivist error for classification
type ErrorCategory string

const (
	// User-facing configuration and input errors
	CategoryConfig     ErrorCategory = "config"
	CategoryValidation ErrorCategory = "validation"

	// Conversion engine errors
	CategoryParse   ErrorCategory = "parse"
	CategoryOffsets ErrorCategory = "offsets"

	// Remote document errors
	CategoryStale  ErrorCategory = "stale"
	CategoryRemote ErrorCategory = "remote"

	// Infrastructure errors
	CategoryStorage  ErrorCategory = "storage"
	CategoryQueue    ErrorCategory = "queue"
	CategoryInternal ErrorCategory = "internal"
)

// ErrorSeverity indicates how critical an error is
type ErrorSeverity string

const (
	SeverityFatal   ErrorSeverity = "fatal"   // Stops execution
	SeverityError   ErrorSeverity = "error"   // Error, but not fatal
	SeverityWarning ErrorSeverity = "warning" // Continues with degraded functionality
	SeverityInfo    ErrorSeverity = "info"    // Informational, no impact
)

// ArchivistError is a structured error with category, retryability, and context
type ArchivistError struct {
	Category  ErrorCategory `json:"category"`
	Severity  ErrorSeverity `json:"severity"`
	Message   string        `json:"message"`
	Cause     error         `json:"cause,omitempty"`
	Retryable bool          `json:"retryable"`
	Context   ContextFields `json:"context,omitempty"`
}

// ContextFields carries structured context for ArchivistError
type ContextFields map[string]any

// Error implements the error interface
func (e *ArchivistError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s (%s): %s: %v", e.Category, e.Severity, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s (%s): %s", e.Category, e.Severity, e.Message)
}

// Unwrap implements error unwrapping for Go 1.13+ error handling
func (e *ArchivistError) Unwrap() error {
	return e.Cause
}

// WithContext adds context information to the error
func (e *ArchivistError) WithContext(key string, value any) *ArchivistError {
	if e.Context == nil {
		e.Context = make(ContextFields)
	}
	e.Context[key] = value
	return e
}

// New creates a new ArchivistError
func New(category ErrorCategory, severity ErrorSeverity, message string) *ArchivistError {
	return &ArchivistError{
		Category:  category,
		Severity:  severity,
		Message:   message,
		Retryable: false,
	}
}

// Wrap creates a new ArchivistError that wraps an existing error
func Wrap(err error, category ErrorCategory, severity ErrorSeverity, message string) *ArchivistError {
	return &ArchivistError{
		Category:  category,
		Severity:  severity,
		Message:   message,
		Cause:     err,
		Retryable: false,
	}
}

// WrapRetryable creates a new retryable ArchivistError that wraps an existing error
func WrapRetryable(err error, category ErrorCategory, severity ErrorSeverity, message string) *ArchivistError {
	return &ArchivistError{
		Category:  category,
		Severity:  severity,
		Message:   message,
		Cause:     err,
		Retryable: true,
	}
}

// IsCategory checks if an error belongs to a specific category
func IsCategory(err error, category ErrorCategory) bool {
	if ae, ok := err.(*ArchivistError); ok {
		return ae.Category == category
	}
	return false
}

// IsRetryable checks if an error is retryable
func IsRetryable(err error) bool {
	if ae, ok := err.(*ArchivistError); ok {
		return ae.Retryable
	}
	return false
}

// GetCategory extracts the category from an error, or returns CategoryInternal if not an ArchivistError
func GetCategory(err error) ErrorCategory {
	if ae, ok := err.(*ArchivistError); ok {
		return ae.Category
	}
	return CategoryInternal
}

// ValidationError creates a new validation error
func ValidationError(message string) *ArchivistError {
	return &ArchivistError{
		Category:  CategoryValidation,
		Severity:  SeverityWarning,
		Message:   message,
		Retryable: false,
	}
}

// RemoteError wraps a document API error. Remote failures are marked retryable
// so the whole update cycle can be re-run by the caller's retry policy.
func RemoteError(err error, message string) *ArchivistError {
	return &ArchivistError{
		Category:  CategoryRemote,
		Severity:  SeverityError,
		Message:   message,
		Cause:     err,
		Retryable: true,
	}
}

// WrapError wraps an existing error with a new ArchivistError
func WrapError(err error, category ErrorCategory, message string) *ArchivistError {
	return &ArchivistError{
		Category:  category,
		Severity:  SeverityError,
		Message:   message,
		Cause:     err,
		Retryable: false,
	}
}
