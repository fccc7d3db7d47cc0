// Package errs provides the coded error type shared by the resolver, the tool
// layer and the agent loop.
//
// Errors compare by code: errors.Is(err, llm.ErrProviderNotFound) holds for
// any *Error carrying CodeProviderNotFound, whatever its message or cause.
package errs

import (
	"errors"
	"fmt"
)

// Code identifies a class of failure.
type Code string

const (
	CodeUnknown               Code = "UNKNOWN"
	CodeProviderNotFound      Code = "PROVIDER_NOT_FOUND"
	CodeProviderNotConfigured Code = "PROVIDER_NOT_CONFIGURED"
	CodeProviderUnsupported   Code = "PROVIDER_UNSUPPORTED"
	CodeProviderFailure       Code = "PROVIDER_FAILURE"
	CodeInvalidConversation   Code = "INVALID_CONVERSATION"
	CodeUnknownBuiltInTool    Code = "UNKNOWN_BUILTIN_TOOL"
	CodeNotImplemented        Code = "NOT_IMPLEMENTED"
	CodeToolConfig            Code = "TOOL_CONFIG"
	CodeInvalidArgument       Code = "INVALID_ARGUMENT"
)

// Error is a coded error with an optional cause.
type Error struct {
	code    Code
	message string
	cause   error
}

// New creates an error with the given code and message.
func New(code Code, message string) *Error {
	return &Error{code: code, message: message}
}

// Newf creates an error with a formatted message.
func Newf(code Code, format string, args ...any) *Error {
	return &Error{code: code, message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message to an existing error.
func Wrap(code Code, cause error, message string) *Error {
	return &Error{code: code, message: message, cause: cause}
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.message, e.cause)
	}
	return e.message
}

// Unwrap returns the wrapped cause.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

// Is reports whether target is an *Error with the same code.
func (e *Error) Is(target error) bool {
	if e == nil || target == nil {
		return false
	}
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.code == t.code
}

// Code returns the error code.
func (e *Error) Code() Code {
	if e == nil {
		return CodeUnknown
	}
	return e.code
}

// Message returns the message without the cause.
func (e *Error) Message() string {
	if e == nil {
		return ""
	}
	return e.message
}

// From extracts the first *Error in err's chain.
func From(err error) (*Error, bool) {
	if err == nil {
		return nil, false
	}
	var target *Error
	if errors.As(err, &target) {
		return target, true
	}
	return nil, false
}

// CodeOf returns the code of the first *Error in err's chain, or CodeUnknown.
func CodeOf(err error) Code {
	if e, ok := From(err); ok {
		return e.Code()
	}
	return CodeUnknown
}
