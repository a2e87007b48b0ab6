package errors

// ErrorCode represents a machine-readable error code.
type ErrorCode string

// Pipeline failures
const (
	// ErrCodeSource indicates a primitive source or user function failed.
	ErrCodeSource ErrorCode = "SOURCE_ERROR"
	// ErrCodeTranslated indicates an error replaced by an onErrorMap stage.
	ErrCodeTranslated ErrorCode = "TRANSLATED"
	// ErrCodeOperatorPanic indicates a user function panicked inside a stage.
	ErrCodeOperatorPanic ErrorCode = "OPERATOR_PANIC"
	// ErrCodeTimeout indicates a pipeline did not terminate in time.
	ErrCodeTimeout ErrorCode = "TIMEOUT"
	// ErrCodeRetryExhausted indicates a retry stage gave up.
	ErrCodeRetryExhausted ErrorCode = "RETRY_EXHAUSTED"
)

// Protocol errors
const (
	// ErrCodeInvalidRequest indicates a non-positive demand request.
	ErrCodeInvalidRequest ErrorCode = "INVALID_REQUEST"
	// ErrCodeInvalidArgument indicates an operator was built with a bad argument.
	ErrCodeInvalidArgument ErrorCode = "INVALID_ARGUMENT"
	// ErrCodeCancelled is reported by blocking drivers whose subscription was cancelled.
	// It never travels through a pipeline as a Failed signal.
	ErrCodeCancelled ErrorCode = "CANCELLED"
)

// Internal errors
const (
	// ErrCodeInternal indicates an engine invariant was broken.
	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)

var retryableCodes = map[ErrorCode]bool{
	ErrCodeSource:   true,
	ErrCodeTimeout:  true,
	ErrCodeInternal: false,
}

// IsRetryableCode returns true if the error code indicates a retryable error.
func IsRetryableCode(code ErrorCode) bool {
	return retryableCodes[code]
}
