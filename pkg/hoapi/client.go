// Package hoapi is a client for HO signed HTTP APIs. A Client holds an
// immutable copy of the application credentials and issues one signed HTTP
// request per Send call, returning the raw response body or a typed error.
//
// Every request carries the HO-APP-ID, HO-NONCE, HO-TIMESTAMP and
// HO-SIGNATURE headers. With WithEnvelope the client additionally speaks the
// encrypted envelope protocol, where responses are AES-256-CBC ciphertext
// keyed by the app secret.
package hoapi

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/anand-gl/jsoncanonicalizer"
	jsonitor "github.com/json-iterator/go"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var json = jsonitor.ConfigCompatibleWithStandardLibrary

// DefaultTimeout bounds an exchange when no WithTimeout option is given.
const DefaultTimeout = 100 * time.Second

var allowedMethods = map[string]bool{
	http.MethodGet:     true,
	http.MethodHead:    true,
	http.MethodPost:    true,
	http.MethodPut:     true,
	http.MethodPatch:   true,
	http.MethodDelete:  true,
	http.MethodOptions: true,
}

// Client sends signed requests to one configured service. It is safe for
// concurrent use; nothing is mutated after New returns.
type Client struct {
	config     Config
	baseURL    string
	httpClient *http.Client
	logger     zerolog.Logger
	userAgent  string
	signFunc   SignFunc
	timeout    *time.Duration
	envelope   bool
	cipher     *envelopeCipher
	canonical  bool

	now   func() time.Time
	nonce func() string
}

// New validates config and builds a Client. It fails with a *ConfigError when
// a field is empty, BaseURL cannot be parsed, or, in envelope mode, the key
// material has the wrong size.
func New(config Config, opts ...Option) (*Client, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	base, err := parseBaseURL(config.BaseURL)
	if err != nil {
		return nil, err
	}

	c := &Client{
		config:    config,
		baseURL:   base.String(),
		logger:    log.Logger,
		userAgent: DefaultUserAgent,
		signFunc:  SHA1Sign,
		now:       time.Now,
		nonce:     newNonce,
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, &ConfigError{Reason: err.Error()}
		}
	}

	if c.httpClient == nil {
		c.httpClient = &http.Client{
			Transport: http.DefaultTransport.(*http.Transport).Clone(),
			Timeout:   DefaultTimeout,
		}
	}
	if c.timeout != nil {
		c.httpClient.Timeout = *c.timeout
	}

	if c.envelope {
		if err := config.validateEnvelopeKeys(); err != nil {
			return nil, err
		}
		c.cipher, err = newEnvelopeCipher(config.AppSecret, config.IV)
		if err != nil {
			return nil, &ConfigError{Field: "app_secret", Reason: err.Error()}
		}
	}

	return c, nil
}

// Config returns a copy of the client's configuration.
func (c *Client) Config() Config {
	return c.config
}

// Send performs one request. path is relative to the configured content
// prefix and may carry a query string. body, when non-nil, is serialized to
// JSON; a nil body, including a typed nil such as map[string]any(nil), sends
// no body. On a 2xx response Send returns the raw response body, or the
// decrypted payload in envelope mode. An empty 2xx body, as for HEAD or 204,
// yields "" in both modes.
//
// Errors are a *TransportError when the exchange could not complete, an
// *HTTPError for non-2xx statuses and an *EnvelopeError when an encrypted
// response cannot be opened. Send never retries.
func (c *Client) Send(ctx context.Context, method, path string, body any) (string, error) {
	if ctx == nil {
		return "", errors.Wrap(ErrInvalidRequest, "nil context")
	}
	method = strings.ToUpper(strings.TrimSpace(method))
	if !allowedMethods[method] {
		return "", errors.Wrapf(ErrInvalidRequest, "unsupported method %q", method)
	}

	payload, err := c.encodeBody(body)
	if err != nil {
		return "", err
	}

	uri := normalizePath(path)
	target := joinURL(c.baseURL, c.config.Content, uri)
	sig := c.sign(uri, payload)

	wire := payload
	if c.envelope {
		if wire, err = wrapRequest(payload); err != nil {
			return "", err
		}
	}

	var reader io.Reader
	if wire != nil {
		reader = bytes.NewReader(wire)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return "", errors.Wrapf(ErrInvalidRequest, "build request: %v", err)
	}
	if wire != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	sig.apply(req.Header, c.config.AppID)

	logger := c.logger.With().
		Str("method", method).
		Str("url", target).
		Str("nonce", sig.nonce).
		Str("request_id", RequestIDFromContext(ctx)).
		Logger()

	start := c.now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		logger.Warn().Err(err).Msg("request failed")
		return "", &TransportError{Method: method, URL: target, Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		logger.Warn().Err(err).Int("status", resp.StatusCode).Msg("failed to read response body")
		return "", &TransportError{Method: method, URL: target, Err: errors.Wrap(err, "read response body")}
	}
	logger.Debug().
		Int("status", resp.StatusCode).
		Int("bytes", len(respBody)).
		Dur("elapsed", c.now().Sub(start)).
		Msg("exchange complete")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", newHTTPError(resp.StatusCode, respBody)
	}

	if c.envelope && len(respBody) > 0 {
		plaintext, err := c.cipher.openResponse(respBody)
		if err != nil {
			logger.Warn().Err(err).Msg("unable to open response envelope")
			return "", err
		}
		return plaintext, nil
	}
	return string(respBody), nil
}

// SendJSON calls Send and decodes the response into out.
func (c *Client) SendJSON(ctx context.Context, method, path string, body, out any) error {
	resp, err := c.Send(ctx, method, path, body)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.UnmarshalFromString(resp, out); err != nil {
		return errors.Wrap(err, "decode response")
	}
	return nil
}

// Get sends a GET request without a body.
func (c *Client) Get(ctx context.Context, path string) (string, error) {
	return c.Send(ctx, http.MethodGet, path, nil)
}

// Post sends a POST request with a JSON body.
func (c *Client) Post(ctx context.Context, path string, body any) (string, error) {
	return c.Send(ctx, http.MethodPost, path, body)
}

// Put sends a PUT request with a JSON body.
func (c *Client) Put(ctx context.Context, path string, body any) (string, error) {
	return c.Send(ctx, http.MethodPut, path, body)
}

// Delete sends a DELETE request without a body.
func (c *Client) Delete(ctx context.Context, path string) (string, error) {
	return c.Send(ctx, http.MethodDelete, path, nil)
}

// encodeBody returns nil for a nil body, including typed nil pointers,
// maps, slices and interfaces.
func (c *Client) encodeBody(body any) ([]byte, error) {
	if isNil(body) {
		return nil, nil
	}
	b, err := json.Marshal(body)
	if err != nil {
		return nil, errors.Wrapf(ErrInvalidRequest, "marshal body: %v", err)
	}
	if c.canonical {
		if b, err = jsoncanonicalizer.Transform(b); err != nil {
			return nil, errors.Wrapf(ErrInvalidRequest, "canonicalize body: %v", err)
		}
	}
	return b, nil
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface:
		return rv.IsNil()
	}
	return false
}
