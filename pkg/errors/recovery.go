package errors

import (
	"fmt"
	"runtime/debug"
)

// RecoverPanic converts a value returned by recover() into a fatal
// INTERNAL_ERROR with the stack attached. It returns nil for nil.
func RecoverPanic(r interface{}) error {
	if r == nil {
		return nil
	}

	cause, ok := r.(error)
	if !ok {
		cause = fmt.Errorf("panic: %v", r)
	}

	return ErrInternal.
		WithCause(cause).
		WithDetail("panic", true).
		WithDetail("stack_trace", string(debug.Stack())).
		AsFatal()
}

// Guard calls fn and reports a panic inside it as an INTERNAL_ERROR instead
// of unwinding the caller.
func Guard(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = RecoverPanic(r)
		}
	}()
	return fn()
}
