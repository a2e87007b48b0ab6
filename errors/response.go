package errors

import (
	stderrors "errors"
)

// ErrorDescription is a flat, serializable view of a pipeline failure.
type ErrorDescription struct {
	Code      ErrorCode      `json:"code"`
	Message   string         `json:"message"`
	Retryable bool           `json:"retryable"`
	Cause     string         `json:"cause,omitempty"`
	Details   map[string]any `json:"details,omitempty"`
}

// Describe converts an AppError to an ErrorDescription.
func (e *AppError) Describe() ErrorDescription {
	d := ErrorDescription{
		Code:      e.Code,
		Message:   e.Message,
		Retryable: e.Retryable,
		Details:   e.Details,
	}
	if e.Cause != nil {
		d.Cause = e.Cause.Error()
	}
	return d
}

// Describe returns the description of any error; non-AppError values are
// reported as source errors.
func Describe(err error) ErrorDescription {
	if err == nil {
		return ErrorDescription{}
	}
	if appErr, ok := AsAppError(err); ok {
		return appErr.Describe()
	}
	return ErrorDescription{Code: ErrCodeSource, Message: err.Error(), Retryable: true}
}

// IsAppError checks if an error is an AppError.
func IsAppError(err error) bool {
	var appErr *AppError
	return stderrors.As(err, &appErr)
}

// AsAppError converts an error to an AppError if possible.
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// CodeOf returns the code of the first AppError in err's tree, or "" if none.
func CodeOf(err error) ErrorCode {
	if appErr, ok := AsAppError(err); ok {
		return appErr.Code
	}
	return ""
}
