package errors

import (
	"context"
	stderrors "errors"
	"fmt"
)

// find returns the first *Error in the chain.
func find(err error) (*Error, bool) {
	var se *Error
	if stderrors.As(err, &se) {
		return se, true
	}
	return nil, false
}

// contextCode maps context errors to TIMEOUT or CANCELED.
func contextCode(err error) (ErrorCode, bool) {
	switch {
	case stderrors.Is(err, context.DeadlineExceeded):
		return ErrCodeTimeout, true
	case stderrors.Is(err, context.Canceled):
		return ErrCodeCanceled, true
	}
	return "", false
}

// Wrap adds context to err and keeps the chain intact. A nil err gives nil.
// An *Error in the chain lends its code, category and metadata; context
// errors become TIMEOUT or CANCELED; anything else is INTERNAL.
func Wrap(err error, message string, opts ...Option) *Error {
	if err == nil {
		return nil
	}
	if inner, ok := find(err); ok {
		e := &Error{
			code:     inner.code,
			category: inner.category,
			message:  message,
			cause:    err,
			meta:     inner.Metadata(),
			retry:    inner.retry,
			at:       inner.at,
		}
		for _, opt := range opts {
			opt(e)
		}
		return e
	}
	code, ok := contextCode(err)
	if !ok {
		code = ErrCodeInternal
	}
	return New(code, message, append(opts, WithCause(err))...)
}

// WrapWithCode wraps err under code. Deadline and cancellation still win, so
// a timed-out agent run reports TIMEOUT rather than AGENT_EXECUTION.
func WrapWithCode(err error, code ErrorCode, message string, opts ...Option) *Error {
	if err == nil {
		return nil
	}
	if c, ok := contextCode(err); ok {
		code = c
	}
	return New(code, message, append(opts, WithCause(err))...)
}

// AsSearchError returns the first SearchError in the chain, or nil.
func AsSearchError(err error) SearchError {
	if se, ok := find(err); ok {
		return se
	}
	return nil
}

// Is reports whether the first *Error in the chain carries code.
func Is(err error, code ErrorCode) bool {
	se, ok := find(err)
	return ok && se.code == code
}

// Code is the chain's error code, or "" for plain errors.
func Code(err error) ErrorCode {
	if se, ok := find(err); ok {
		return se.code
	}
	return ""
}

// Cause walks Unwrap to the innermost error.
func Cause(err error) error {
	for {
		inner := stderrors.Unwrap(err)
		if inner == nil {
			return err
		}
		err = inner
	}
}

func Join(errs ...error) error {
	return stderrors.Join(errs...)
}

// RecoverPanic turns a recovered value into a PANIC error; nil stays nil.
func RecoverPanic(recovered interface{}) *Error {
	if recovered == nil {
		return nil
	}
	msg := fmt.Sprint(recovered)
	if err, ok := recovered.(error); ok {
		msg = err.Error()
	}
	return New(ErrCodePanic, msg, WithMetadata("panic_value", fmt.Sprintf("%T", recovered)))
}
