package errors

import (
	"errors"
	"fmt"
)

var (
	ErrConfig     = NewError("CONFIG_ERROR", "configuration invalid")
	ErrFetch      = NewError("FETCH_ERROR", "failed to fetch payload")
	ErrParse      = NewError("PARSE_ERROR", "failed to parse payload")
	ErrExtraction = NewError("EXTRACTION_ERROR", "failed to extract telemetry")
	ErrValidation = NewError("VALIDATION_ERROR", "telemetry validation failed")
	ErrSink       = NewError("SINK_ERROR", "sink write failed")
	ErrInternal   = NewError("INTERNAL_ERROR", "internal error")
)

type RetryableError interface {
	error
	IsRetryable() bool
}

type FatalError interface {
	error
	IsFatal() bool
}

type Error struct {
	Code      string
	Message   string
	Details   map[string]interface{}
	Cause     error
	retryable *bool
}

func NewError(code, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Details: make(map[string]interface{}),
	}
}

func (e *Error) Error() string {
	msg := e.Message

	if len(e.Details) > 0 {
		if detailMsg, ok := e.Details["message"].(string); ok && detailMsg != "" {
			msg = detailMsg
		}
	}

	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, msg, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, msg)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches on Code so sentinel comparisons survive WithCause/WithDetail copies.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return t.Code == e.Code
	}
	return false
}

func (e *Error) IsRetryable() bool {
	if e.retryable != nil {
		return *e.retryable
	}
	if e.Cause != nil {
		var retryableErr RetryableError
		if errors.As(e.Cause, &retryableErr) {
			return retryableErr.IsRetryable()
		}
		var fatalErr FatalError
		if errors.As(e.Cause, &fatalErr) {
			return !fatalErr.IsFatal()
		}
	}
	return e.Code == ErrSink.Code || e.Code == ErrFetch.Code
}

func (e *Error) IsFatal() bool {
	return !e.IsRetryable()
}

func (e *Error) WithCause(cause error) *Error {
	err := *e
	err.Cause = cause
	return &err
}

func (e *Error) WithMessage(format string, args ...interface{}) *Error {
	return e.WithDetail("message", fmt.Sprintf(format, args...))
}

func (e *Error) WithDetail(key string, value interface{}) *Error {
	err := *e
	details := make(map[string]interface{}, len(e.Details)+1)
	for k, v := range e.Details {
		details[k] = v
	}
	details[key] = value
	err.Details = details
	return &err
}

func (e *Error) AsFatal() *Error {
	err := *e
	retryable := false
	err.retryable = &retryable
	return &err
}

// CodeOf returns the code of the outermost *Error in err's chain, or "" if there is none.
func CodeOf(err error) string {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

// Detail returns a detail value from the outermost *Error in err's chain.
func Detail(err error, key string) (interface{}, bool) {
	var appErr *Error
	if !errors.As(err, &appErr) {
		return nil, false
	}
	v, ok := appErr.Details[key]
	return v, ok
}

func IsConfig(err error) bool {
	return CodeOf(err) == ErrConfig.Code
}

func IsFetch(err error) bool {
	return CodeOf(err) == ErrFetch.Code
}

func IsParse(err error) bool {
	return CodeOf(err) == ErrParse.Code
}

func IsExtraction(err error) bool {
	return CodeOf(err) == ErrExtraction.Code
}

func IsValidation(err error) bool {
	return CodeOf(err) == ErrValidation.Code
}

func IsSink(err error) bool {
	return CodeOf(err) == ErrSink.Code
}
