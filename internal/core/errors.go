package core

import (
	"errors"
	"fmt"
)

// ErrorCategory classifies coordination failures for handling decisions.
// The core never lets these escape publish, sendMessage, or the dispatch
// loop; they exist so logs and stage results can name the specific reason.
type ErrorCategory string

const (
	ErrCatHandler        ErrorCategory = "handler"         // subscribed handler failed
	ErrCatStage          ErrorCategory = "stage"           // pipeline stage failed
	ErrCatConsensusParse ErrorCategory = "consensus_parse" // synthesizer output unusable
	ErrCatDelivery       ErrorCategory = "delivery"        // message undeliverable
	ErrCatProvider       ErrorCategory = "provider"        // context provider I/O failure
	ErrCatStore          ErrorCategory = "store"           // result store I/O failure
	ErrCatValidation     ErrorCategory = "validation"      // invalid input
	ErrCatInternal       ErrorCategory = "internal"        // unexpected internal error
)

// DomainError is a structured error from the coordination layer.
type DomainError struct {
	Category ErrorCategory
	Code     string
	Message  string
	Cause    error
	Details  map[string]any
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %s (%v)", e.Category, e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Category, e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *DomainError) Unwrap() error {
	return e.Cause
}

// Is matches on category and code.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Category == t.Category && e.Code == t.Code
}

// WithCause wraps an underlying error.
func (e *DomainError) WithCause(cause error) *DomainError {
	e.Cause = cause
	return e
}

// WithDetail adds contextual information.
func (e *DomainError) WithDetail(key string, value any) *DomainError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// ErrHandler creates a handler failure error.
func ErrHandler(eventType, message string) *DomainError {
	return &DomainError{
		Category: ErrCatHandler,
		Code:     CodeHandlerFailed,
		Message:  message,
		Details:  map[string]any{"event_type": eventType},
	}
}

// ErrStage creates a pipeline stage failure error.
func ErrStage(stage, message string) *DomainError {
	return &DomainError{
		Category: ErrCatStage,
		Code:     CodeStageFailed,
		Message:  message,
		Details:  map[string]any{"stage": stage},
	}
}

// ErrConsensusParse creates a synthesizer parse failure error.
func ErrConsensusParse(message string) *DomainError {
	return &DomainError{
		Category: ErrCatConsensusParse,
		Code:     CodeSynthesisUnusable,
		Message:  message,
	}
}

// ErrDelivery creates an undeliverable-message error.
func ErrDelivery(toSwarm string) *DomainError {
	return &DomainError{
		Category: ErrCatDelivery,
		Code:     CodeUnknownSwarm,
		Message:  fmt.Sprintf("no gateway registered for swarm %q", toSwarm),
		Details:  map[string]any{"to_swarm": toSwarm},
	}
}

// ErrProvider creates a context provider failure error.
func ErrProvider(section string, cause error) *DomainError {
	return &DomainError{
		Category: ErrCatProvider,
		Code:     CodeContextQueryFailed,
		Message:  fmt.Sprintf("context query for section %q failed", section),
		Cause:    cause,
		Details:  map[string]any{"section": section},
	}
}

// ErrStore creates a result store failure error.
func ErrStore(cause error) *DomainError {
	return &DomainError{
		Category: ErrCatStore,
		Code:     CodeResultWriteFailed,
		Message:  "consensus result write failed",
		Cause:    cause,
	}
}

// ErrStoreRead creates a result store read failure error.
func ErrStoreRead(cause error) *DomainError {
	return &DomainError{
		Category: ErrCatStore,
		Code:     CodeResultReadFailed,
		Message:  "consensus result read failed",
		Cause:    cause,
	}
}

// ErrValidation creates a validation error.
func ErrValidation(code, message string) *DomainError {
	return &DomainError{
		Category: ErrCatValidation,
		Code:     code,
		Message:  message,
	}
}

// GetCategory extracts the error category, defaulting to internal.
func GetCategory(err error) ErrorCategory {
	var domErr *DomainError
	if errors.As(err, &domErr) {
		return domErr.Category
	}
	return ErrCatInternal
}

// IsCategory checks if an error belongs to a category.
func IsCategory(err error, cat ErrorCategory) bool {
	return GetCategory(err) == cat
}

// Predefined error codes
const (
	CodeHandlerFailed      = "HANDLER_FAILED"
	CodeHandlerPanicked    = "HANDLER_PANICKED"
	CodeStageFailed        = "STAGE_FAILED"
	CodeSynthesisUnusable  = "SYNTHESIS_UNUSABLE"
	CodeUnknownSwarm       = "UNKNOWN_SWARM"
	CodeContextQueryFailed = "CONTEXT_QUERY_FAILED"
	CodeResultWriteFailed  = "RESULT_WRITE_FAILED"
	CodeResultReadFailed   = "RESULT_READ_FAILED"
	CodeUnknownEventType   = "UNKNOWN_EVENT_TYPE"
	CodeEmptyCaseID        = "EMPTY_CASE_ID"
	CodeInvalidConfig      = "INVALID_CONFIG"
	CodeSwarmNotRegistered = "SWARM_NOT_REGISTERED"
)
