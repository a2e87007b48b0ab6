package errors

import (
	stderrors "errors"
	"fmt"
)

// AppError is the tagged error value produced by the engine.
type AppError struct {
	// Code is a machine-readable error code.
	Code ErrorCode `json:"code"`
	// Message is a human-readable error message.
	Message string `json:"message"`
	// Retryable indicates if resubscribing may succeed.
	Retryable bool `json:"retryable"`
	// Details contains additional context for the error.
	Details map[string]any `json:"details,omitempty"`
	// Cause is the underlying error that caused this error.
	Cause error `json:"-"`
}

// Error returns the string representation of the error.
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (cause: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause of the error.
func (e *AppError) Unwrap() error { return e.Cause }

// WithCause sets the underlying cause of the error and returns the receiver.
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// WithDetails merges the provided details into the error and returns the receiver.
func (e *AppError) WithDetails(details map[string]any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	for k, v := range details {
		e.Details[k] = v
	}
	return e
}

// WithDetail sets a single detail key-value pair and returns the receiver.
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// New creates a new AppError with automatic retryable detection.
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:      code,
		Message:   message,
		Retryable: IsRetryableCode(code),
	}
}

// --- Engine error constructors ---

// Source wraps a failure raised by a primitive source or a user function.
func Source(cause error) *AppError {
	msg := "source failed"
	if cause != nil {
		msg = cause.Error()
	}
	return &AppError{Code: ErrCodeSource, Message: msg, Retryable: true, Cause: cause}
}

// Translated builds the error an onErrorMap stage emits in place of cause.
// Both the original cause and the translated message are retained.
func Translated(cause error, message string) *AppError {
	return &AppError{Code: ErrCodeTranslated, Message: message, Cause: cause}
}

// OperatorPanic converts a value recovered from a panicking stage function.
func OperatorPanic(stage string, recovered any) *AppError {
	appErr := &AppError{
		Code:    ErrCodeOperatorPanic,
		Message: fmt.Sprintf("%s: panic: %v", stage, recovered),
		Details: map[string]any{"stage": stage},
	}
	if err, ok := recovered.(error); ok {
		appErr.Cause = err
	}
	return appErr
}

// InvalidRequest reports a demand request that is not positive.
func InvalidRequest(n int64) *AppError {
	return &AppError{
		Code:    ErrCodeInvalidRequest,
		Message: fmt.Sprintf("request must be positive (got: %d)", n),
		Details: map[string]any{"requested": n},
	}
}

// InvalidArgument reports an operator built with an unusable argument.
func InvalidArgument(name, reason string) *AppError {
	return &AppError{
		Code:    ErrCodeInvalidArgument,
		Message: fmt.Sprintf("invalid %s: %s", name, reason),
		Details: map[string]any{"argument": name},
	}
}

// RetryExhausted reports that a retry stage stopped resubscribing.
func RetryExhausted(attempts int, cause error) *AppError {
	return &AppError{
		Code:    ErrCodeRetryExhausted,
		Message: fmt.Sprintf("gave up after %d attempts", attempts),
		Details: map[string]any{"attempts": attempts},
		Cause:   cause,
	}
}

// Cancelled reports a blocking driver whose subscription was cancelled.
func Cancelled(cause error) *AppError {
	return &AppError{Code: ErrCodeCancelled, Message: "subscription cancelled", Cause: cause}
}

// Timeout reports a pipeline that did not terminate within the given operation budget.
func Timeout(operation string) *AppError {
	return &AppError{
		Code: ErrCodeTimeout, Message: fmt.Sprintf("%s timed out", operation), Retryable: true,
		Details: map[string]any{"operation": operation},
	}
}

// Internal creates a new AppError for a broken engine invariant.
func Internal(cause error) *AppError {
	return &AppError{Code: ErrCodeInternal, Message: "internal engine error", Cause: cause}
}

// --- stdlib re-exports so callers need a single errors import ---

// Is reports whether any error in err's tree matches target.
func Is(err, target error) bool { return stderrors.Is(err, target) }

// As finds the first error in err's tree that matches target.
func As(err error, target any) bool { return stderrors.As(err, target) }

// NewPlain returns an error that formats as the given text.
func NewPlain(text string) error { return stderrors.New(text) }
