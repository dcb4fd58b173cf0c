package hoapi

import (
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// Option mutates the Client during New.
type Option func(*Client) error

// WithHTTPClient uses a copy of hc for all requests. The caller's client is
// never modified.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) error {
		if hc == nil {
			return fmt.Errorf("nil http client")
		}
		cp := *hc
		c.httpClient = &cp
		return nil
	}
}

// WithTimeout bounds each exchange, including reading the response body.
// Zero disables the client timeout; the request context still applies.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) error {
		if d < 0 {
			return fmt.Errorf("negative timeout %s", d)
		}
		c.timeout = &d
		return nil
	}
}

// WithLogger sets the logger used for exchange logs.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Client) error {
		c.logger = l
		return nil
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) error {
		if ua == "" {
			return fmt.Errorf("empty user agent")
		}
		c.userAgent = ua
		return nil
	}
}

// WithSignFunc replaces the default SHA1Sign signature scheme.
func WithSignFunc(f SignFunc) Option {
	return func(c *Client) error {
		if f == nil {
			return fmt.Errorf("nil sign func")
		}
		c.signFunc = f
		return nil
	}
}

// WithEnvelope enables the encrypted envelope protocol: request bodies are
// wrapped as {"data":"<json>"} and responses carry AES-256-CBC ciphertext as
// hex under "data". An empty response body is returned as "" without
// decryption. AppSecret must be 32 bytes and IV 16 bytes.
func WithEnvelope() Option {
	return func(c *Client) error {
		c.envelope = true
		return nil
	}
}

// WithCanonicalJSON serializes request bodies in RFC 8785 canonical form so
// that equal values always produce equal signatures.
func WithCanonicalJSON() Option {
	return func(c *Client) error {
		c.canonical = true
		return nil
	}
}
