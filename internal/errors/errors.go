// Package errors provides the structured error taxonomy for mdlive.
//
// Errors are categorized by where they occur in the pipeline: startup
// validation, watched-file access, markdown rendering, and client transport.
// The category determines the propagation policy — file access errors are
// fatal to the process, render and transport errors are not.
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorType represents different categories of errors.
type ErrorType string

const (
	ErrorTypeStartup    ErrorType = "startup"
	ErrorTypeFileAccess ErrorType = "file_access"
	ErrorTypeRender     ErrorType = "render"
	ErrorTypeTransport  ErrorType = "transport"
)

// MDLiveError is a structured error type with category context.
type MDLiveError struct {
	Type        ErrorType
	Code        string
	Message     string
	Cause       error
	Component   string
	FilePath    string
	Recoverable bool
}

// Error implements the error interface.
func (e *MDLiveError) Error() string {
	var parts []string

	if e.Code != "" {
		parts = append(parts, fmt.Sprintf("[%s]", e.Code))
	}

	if e.Component != "" {
		parts = append(parts, "component:"+e.Component)
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
func (e *MDLiveError) Unwrap() error {
	return e.Cause
}

// Is implements error comparison on type and code.
func (e *MDLiveError) Is(target error) bool {
	var t *MDLiveError
	if errors.As(target, &t) {
		return e.Type == t.Type && (t.Code == "" || e.Code == t.Code)
	}

	return false
}

// WithComponent adds component context.
func (e *MDLiveError) WithComponent(component string) *MDLiveError {
	e.Component = component

	return e
}

// WithFile adds the path of the file involved.
func (e *MDLiveError) WithFile(path string) *MDLiveError {
	e.FilePath = path

	return e
}

// NewStartupError creates a startup validation error. Startup errors are
// reported to the operator and the process exits before serving.
func NewStartupError(code, message string, cause error) *MDLiveError {
	return &MDLiveError{
		Type:        ErrorTypeStartup,
		Code:        code,
		Message:     message,
		Cause:       cause,
		Recoverable: false,
	}
}

// NewFileAccessError creates a watched-file access error. These are fatal:
// once the watched file cannot be read, the premise of the process is void.
func NewFileAccessError(path, message string, cause error) *MDLiveError {
	return &MDLiveError{
		Type:        ErrorTypeFileAccess,
		Code:        "file_unreadable",
		Message:     message,
		Cause:       cause,
		FilePath:    path,
		Recoverable: false,
	}
}

// NewRenderError creates a render error. Render errors are scoped to a
// single render attempt; the previously published output stays current.
func NewRenderError(message string, cause error) *MDLiveError {
	return &MDLiveError{
		Type:        ErrorTypeRender,
		Code:        "render_failed",
		Message:     message,
		Cause:       cause,
		Recoverable: true,
	}
}

// NewTransportError creates a client transport error, scoped to one
// connection.
func NewTransportError(message string, cause error) *MDLiveError {
	return &MDLiveError{
		Type:        ErrorTypeTransport,
		Code:        "send_failed",
		Message:     message,
		Cause:       cause,
		Recoverable: true,
	}
}

// IsFatal reports whether err should terminate the process.
func IsFatal(err error) bool {
	var e *MDLiveError
	if errors.As(err, &e) {
		return !e.Recoverable
	}

	return false
}

// IsType reports whether err belongs to the given category.
func IsType(err error, t ErrorType) bool {
	var e *MDLiveError
	if errors.As(err, &e) {
		return e.Type == t
	}

	return false
}
