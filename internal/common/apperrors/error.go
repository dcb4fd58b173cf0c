// Package apperrors provides chainable application errors that carry a
// process exit code. Errors are built from a template with New, Msg, MsgErr
// and Err, and keep every wrapped cause reachable through errors.Is and
// errors.As.
package apperrors

// Error defines the interface for application errors. All methods that
// derive a new error leave the receiver unchanged.
type Error interface {
	error
	Unwrap() error // support for errors.Is / errors.As

	New(msg string) Error                  // creates a new error using current as template
	Msg(msg string) Error                  // creates a new error with message and wraps original
	MsgErr(msg string, err ...error) Error // creates error with message and wraps extra errors
	Err(err ...error) Error                // attaches additional errors to current error
	SetExitCode(int) Error                 // sets the process exit code
	ExitCode() int                         // returns the exit code, 1 when unset
	ErrorAll() string                      // returns full message including wrapped errors
	UnwrapAll() []error                    // returns all wrapped errors
}
