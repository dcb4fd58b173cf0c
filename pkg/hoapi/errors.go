package hoapi

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/pkg/errors"
	"github.com/tidwall/gjson"
)

// Sentinel errors. Every error returned by the client matches exactly one of
// them with errors.Is.
var (
	ErrConfig         = errors.New("invalid client configuration")
	ErrTransport      = errors.New("transport failure")
	ErrHTTP           = errors.New("unexpected http status")
	ErrEnvelope       = errors.New("malformed response envelope")
	ErrInvalidRequest = errors.New("invalid request")
)

// ConfigError reports a configuration field that is missing or malformed.
// It is returned by Config.Validate and New.
type ConfigError struct {
	Field  string // config key, e.g. "base_url"
	Reason string
}

func (e *ConfigError) Error() string {
	if e.Field == "" {
		return "invalid config: " + e.Reason
	}
	return "invalid config: " + e.Field + ": " + e.Reason
}

// Is matches ErrConfig.
func (e *ConfigError) Is(target error) bool {
	return target == ErrConfig
}

// TransportError reports a failure to complete the HTTP exchange: connection
// refused, DNS failure, timeout, cancellation or a broken response body.
type TransportError struct {
	Method string
	URL    string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Method, e.URL, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Is matches ErrTransport.
func (e *TransportError) Is(target error) bool {
	return target == ErrTransport
}

// Timeout reports whether the failure was caused by a deadline.
func (e *TransportError) Timeout() bool {
	var t interface{ Timeout() bool }
	if errors.As(e.Err, &t) {
		return t.Timeout()
	}
	return false
}

// HTTPError represents a response with a non-2xx status code.
type HTTPError struct {
	StatusCode int    // HTTP status code of the response
	Message    string // server supplied message, or the status text
	Body       string // raw response body
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("http %d: %s", e.StatusCode, e.Message)
}

// Is matches ErrHTTP.
func (e *HTTPError) Is(target error) bool {
	return target == ErrHTTP
}

// Temporary reports whether the status is one a caller may reasonably retry.
func (e *HTTPError) Temporary() bool {
	return e.StatusCode >= 500 || e.StatusCode == http.StatusTooManyRequests
}

// EnvelopeError reports a 2xx response whose encrypted envelope could not be
// opened.
type EnvelopeError struct {
	Reason string
	Err    error
}

func (e *EnvelopeError) Error() string {
	if e.Err == nil {
		return "envelope: " + e.Reason
	}
	return "envelope: " + e.Reason + ": " + e.Err.Error()
}

func (e *EnvelopeError) Unwrap() error {
	return e.Err
}

// Is matches ErrEnvelope.
func (e *EnvelopeError) Is(target error) bool {
	return target == ErrEnvelope
}

// newHTTPError builds an HTTPError, preferring a message field from a JSON
// error body over the raw text.
func newHTTPError(status int, body []byte) *HTTPError {
	herr := &HTTPError{
		StatusCode: status,
		Body:       string(body),
	}
	if gjson.ValidBytes(body) {
		for _, key := range []string{"error", "message", "msg"} {
			if r := gjson.GetBytes(body, key); r.Type == gjson.String && r.Str != "" {
				herr.Message = r.Str
				return herr
			}
		}
	}
	if msg := strings.TrimSpace(string(body)); msg != "" {
		herr.Message = msg
		return herr
	}
	herr.Message = http.StatusText(status)
	return herr
}
