package apperrors

import (
	"errors"
	"strings"
)

// DefaultExitCode is reported for errors without an explicit exit code.
const DefaultExitCode = 1

type appError struct {
	msg           string  // primary error message
	base          error   // template this error was derived from
	wrappedErrors []error // causes attached with Err or MsgErr
	exitCode      int
}

// New creates a root-level error with the given message.
func New(msg string) Error {
	return &appError{msg: msg}
}

func (e *appError) Error() string {
	return e.msg
}

// ErrorAll returns the message followed by the messages of the attached
// causes that are not part of the template chain.
func (e *appError) ErrorAll() string {
	var b strings.Builder
	b.WriteString(e.msg)
	for _, err := range e.wrappedErrors {
		if err == e.base {
			continue
		}
		b.WriteString(": ")
		b.WriteString(err.Error())
	}
	return b.String()
}

func (e *appError) Unwrap() error {
	return e.base
}

func (e *appError) UnwrapAll() []error {
	return e.wrappedErrors
}

func (e *appError) New(msg string) Error {
	return &appError{
		msg:      msg,
		base:     e,
		exitCode: e.exitCode,
	}
}

func (e *appError) Msg(msg string) Error {
	return &appError{
		msg:           msg,
		base:          e,
		wrappedErrors: append([]error{e}, e.wrappedErrors...),
		exitCode:      e.exitCode,
	}
}

func (e *appError) MsgErr(msg string, errs ...error) Error {
	return &appError{
		msg:           msg,
		base:          e,
		wrappedErrors: append([]error{e}, nonNil(errs)...),
		exitCode:      e.exitCode,
	}
}

func (e *appError) Err(errs ...error) Error {
	return &appError{
		msg:           e.msg,
		base:          e,
		wrappedErrors: append([]error{e}, nonNil(errs)...),
		exitCode:      e.exitCode,
	}
}

// SetExitCode returns a shallow copy with an updated exit code.
func (e *appError) SetExitCode(code int) Error {
	cp := *e
	cp.exitCode = code
	return &cp
}

func (e *appError) ExitCode() int {
	if e.exitCode == 0 {
		return DefaultExitCode
	}
	return e.exitCode
}

// Is checks the template chain and every attached cause.
func (e *appError) Is(target error) bool {
	if target == nil {
		return false
	}
	if errors.Is(e.base, target) {
		return true
	}
	for _, err := range e.wrappedErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// As lets errors.As reach attached causes, not only the template chain.
func (e *appError) As(target any) bool {
	for _, err := range e.wrappedErrors {
		if err == e.base {
			continue
		}
		if errors.As(err, target) {
			return true
		}
	}
	return false
}

// ExitCodeOf returns the exit code of the first Error in err's chain, 0 for
// a nil err and DefaultExitCode for any other error.
func ExitCodeOf(err error) int {
	if err == nil {
		return 0
	}
	var ae Error
	if errors.As(err, &ae) {
		return ae.ExitCode()
	}
	return DefaultExitCode
}

func nonNil(errs []error) []error {
	out := make([]error, 0, len(errs))
	for _, err := range errs {
		if err != nil {
			out = append(out, err)
		}
	}
	return out
}
