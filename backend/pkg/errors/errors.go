package errors

import (
	"errors"
	"fmt"
	"time"
)

// ErrorType represents the category of error
type ErrorType string

const (
	// ErrorTypeValidation represents rejected input (missing slots, bad stage, oversized text)
	ErrorTypeValidation ErrorType = "validation"
	// ErrorTypeGraph represents graph database errors
	ErrorTypeGraph ErrorType = "graph"
	// ErrorTypeVector represents vector index errors
	ErrorTypeVector ErrorType = "vector"
	// ErrorTypeLLM represents LLM call or parse errors
	ErrorTypeLLM ErrorType = "llm"
	// ErrorTypeComposition represents fatal statement-composition bugs
	ErrorTypeComposition ErrorType = "composition"
	// ErrorTypeConfig represents configuration errors
	ErrorTypeConfig ErrorType = "config"
)

// BaseError is the base error type with common fields
type BaseError struct {
	Type      ErrorType
	Message   string
	Timestamp time.Time
	Err       error // Wrapped error
}

// Error implements the error interface
func (e *BaseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

// Unwrap returns the wrapped error for error unwrapping
func (e *BaseError) Unwrap() error {
	return e.Err
}

// NewBaseError creates a new base error
func NewBaseError(errType ErrorType, message string, err error) *BaseError {
	return &BaseError{
		Type:      errType,
		Message:   message,
		Timestamp: time.Now(),
		Err:       err,
	}
}

// NewValidationError creates a validation error (never retried, maps to 422)
func NewValidationError(message string, err error) *BaseError {
	return NewBaseError(ErrorTypeValidation, message, err)
}

// NewGraphError creates a graph database error
func NewGraphError(message string, err error) *BaseError {
	return NewBaseError(ErrorTypeGraph, message, err)
}

// NewVectorError creates a vector index error
func NewVectorError(message string, err error) *BaseError {
	return NewBaseError(ErrorTypeVector, message, err)
}

// NewLLMError creates an LLM error
func NewLLMError(message string, err error) *BaseError {
	return NewBaseError(ErrorTypeLLM, message, err)
}

// NewCompositionError creates a fatal statement-composition error
func NewCompositionError(message string, err error) *BaseError {
	return NewBaseError(ErrorTypeComposition, message, err)
}

// IsType reports whether err (or anything it wraps) carries the given type
func IsType(err error, t ErrorType) bool {
	var base *BaseError
	if errors.As(err, &base) {
		return base.Type == t
	}
	return false
}

// IsValidation reports whether err is a validation error
func IsValidation(err error) bool {
	return IsType(err, ErrorTypeValidation)
}
