// Package core holds the error taxonomy shared by the harness packages.
package core

import (
	"fmt"
)

// ErrorCategory classifies a harness failure.
type ErrorCategory int

const (
	ErrCategoryNone     ErrorCategory = iota // No error
	ErrCategoryPlatform                      // Host OS not supported
	ErrCategoryResource                      // Missing file on disk (main.js, apk)
	ErrCategoryProcess                       // External command could not be spawned or read
	ErrCategoryServer                        // Automation server did not come up
	ErrCategoryDevice                        // No usable device
	ErrCategorySession                       // Driver session or element lookup failed
	ErrCategoryConfig                        // Invalid configuration
)

// String returns the string representation of ErrorCategory
func (c ErrorCategory) String() string {
	switch c {
	case ErrCategoryNone:
		return "none"
	case ErrCategoryPlatform:
		return "platform"
	case ErrCategoryResource:
		return "resource"
	case ErrCategoryProcess:
		return "process"
	case ErrCategoryServer:
		return "server"
	case ErrCategoryDevice:
		return "device"
	case ErrCategorySession:
		return "session"
	case ErrCategoryConfig:
		return "config"
	default:
		return "unknown"
	}
}

// HarnessError is a structured error with a category and a machine-readable code.
type HarnessError struct {
	Category ErrorCategory
	Code     string                 // unsupported_platform, resource_not_found, ...
	Message  string                 // Human-readable message
	Details  map[string]interface{} // Additional context
	Cause    error                  // Underlying error
}

// Error implements the error interface
func (e *HarnessError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the underlying error for errors.Is/As support
func (e *HarnessError) Unwrap() error {
	return e.Cause
}

// Is matches any HarnessError carrying the same Code, so errors.Is(err, ErrResourceNotFound)
// holds for copies made with WithCause/WithMessage/WithDetails.
func (e *HarnessError) Is(target error) bool {
	t, ok := target.(*HarnessError)
	if !ok {
		return false
	}
	return e.Code != "" && e.Code == t.Code
}

// WithCause returns a copy of the error with the given cause
func (e *HarnessError) WithCause(cause error) *HarnessError {
	return &HarnessError{
		Category: e.Category,
		Code:     e.Code,
		Message:  e.Message,
		Details:  e.Details,
		Cause:    cause,
	}
}

// WithMessage returns a copy of the error with a custom message
func (e *HarnessError) WithMessage(msg string) *HarnessError {
	return &HarnessError{
		Category: e.Category,
		Code:     e.Code,
		Message:  msg,
		Details:  e.Details,
		Cause:    e.Cause,
	}
}

// WithDetails returns a copy of the error with additional details
func (e *HarnessError) WithDetails(details map[string]interface{}) *HarnessError {
	merged := make(map[string]interface{})
	for k, v := range e.Details {
		merged[k] = v
	}
	for k, v := range details {
		merged[k] = v
	}
	return &HarnessError{
		Category: e.Category,
		Code:     e.Code,
		Message:  e.Message,
		Details:  merged,
		Cause:    e.Cause,
	}
}

// Predefined errors
var (
	ErrUnsupportedPlatform = &HarnessError{
		Category: ErrCategoryPlatform,
		Code:     "unsupported_platform",
		Message:  "unsupported operating system",
	}

	ErrResourceNotFound = &HarnessError{
		Category: ErrCategoryResource,
		Code:     "resource_not_found",
		Message:  "resource not found",
	}

	ErrProcessSpawn = &HarnessError{
		Category: ErrCategoryProcess,
		Code:     "process_spawn_failed",
		Message:  "external command failed",
	}

	ErrServerStart = &HarnessError{
		Category: ErrCategoryServer,
		Code:     "server_start_failed",
		Message:  "automation server is not running after start",
	}
	ErrServerAlreadyRunning = &HarnessError{
		Category: ErrCategoryServer,
		Code:     "server_already_running",
		Message:  "automation server is already running",
	}

	ErrNoDevices = &HarnessError{
		Category: ErrCategoryDevice,
		Code:     "no_devices",
		Message:  "no connected devices found",
	}

	ErrSessionCreate = &HarnessError{
		Category: ErrCategorySession,
		Code:     "session_create_failed",
		Message:  "could not create driver session",
	}
	ErrElementNotFound = &HarnessError{
		Category: ErrCategorySession,
		Code:     "element_not_found",
		Message:  "element not found",
	}

	ErrInvalidConfig = &HarnessError{
		Category: ErrCategoryConfig,
		Code:     "invalid_config",
		Message:  "invalid configuration",
	}
)

// NewHarnessError creates a new HarnessError with the given parameters
func NewHarnessError(category ErrorCategory, code, message string) *HarnessError {
	return &HarnessError{
		Category: category,
		Code:     code,
		Message:  message,
	}
}
