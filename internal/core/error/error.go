package errx

import (
	"errors"
	"fmt"
	"net/http"
)

const (
	// SystemErrorMessage is a user-facing fallback when internal errors occur.
	SystemErrorMessage = "internal server error"
	// RedisErrorMessage describes Redis related failures.
	RedisErrorMessage = "redis operation failed"
	// RedisNotFoundMessage describes missing Redis keys.
	RedisNotFoundMessage = "redis key not found"
	// PlanningErrorMessage describes planner model or parse failures. These
	// are always recovered via the heuristic fallback and never surfaced.
	PlanningErrorMessage = "planning failed"
	// ValidationErrorMessage describes plan schema validation failures.
	ValidationErrorMessage = "plan validation failed"
	// SynthesisErrorMessage describes a failed final-answer model call.
	SynthesisErrorMessage = "response synthesis failed"
	// ToolErrorMessage describes a tool that ran but failed.
	ToolErrorMessage = "tool execution failed"
)

// AppError wraps an underlying error with an HTTP status and safe message.
type AppError struct {
	Err     error
	Status  int
	Message string
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Err)
}

// Unwrap exposes the underlying error for errors.Is / errors.As support.
func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError with the provided information.
func New(err error, status int, message string) *AppError {
	return &AppError{
		Err:     err,
		Status:  status,
		Message: message,
	}
}

// WrapPlanning marks a planner failure; callers recover via the heuristic
// fallback rather than propagating this.
func WrapPlanning(err error) *AppError {
	if err == nil {
		return nil
	}
	return New(err, http.StatusBadGateway, PlanningErrorMessage)
}

// WrapValidation marks a plan-schema validation failure.
func WrapValidation(err error) *AppError {
	if err == nil {
		return nil
	}
	return New(err, http.StatusUnprocessableEntity, ValidationErrorMessage)
}

// WrapSynthesis marks a failed final-answer model call. This is the only
// failure class surfaced to the caller, and then only as a single fallback
// assistant message.
func WrapSynthesis(err error) *AppError {
	if err == nil {
		return nil
	}
	return New(err, http.StatusBadGateway, SynthesisErrorMessage)
}

// Is reports whether the target matches the underlying error or the AppError itself.
func (e *AppError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// As allows casting to AppError or the wrapped error in a chain.
func (e *AppError) As(target any) bool {
	if errors.As(e.Err, target) {
		return true
	}
	if t, ok := target.(**AppError); ok {
		*t = e
		return true
	}
	return false
}
