package hoapi

import (
	"net/http"
	"strconv"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withClock(now func() time.Time) Option {
	return func(c *Client) error {
		c.now = now
		return nil
	}
}

func withNonce(nonce func() string) Option {
	return func(c *Client) error {
		c.nonce = nonce
		return nil
	}
}

func TestSHA1Sign(t *testing.T) {
	got := SHA1Sign("app", "s3cr3t", "n-1", 1700000000000, "/v1/x?r=cn", []byte(`{"k":"v"}`))
	assert.Equal(t, "1e77c235c75ec93e2f45e709f96c9d9b1cabf942", got)
}

func TestHMACSHA256Sign(t *testing.T) {
	got := HMACSHA256Sign("app", "s3cr3t", "n-1", 1700000000000, "/v1/x?r=cn", []byte(`{"k":"v"}`))
	assert.Equal(t, "4486f20e41ec99297a57ef63cac3588c9821c4beb4f8804efbdc1249f7afb180", got)
}

func TestClientSign(t *testing.T) {
	cfg := validConfig()
	cfg.AppSecret = "secret"
	ts := time.UnixMilli(1700000000000)
	c, err := New(cfg, withClock(func() time.Time { return ts }), withNonce(func() string { return "nonce-1" }))
	require.NoError(t, err)

	sig := c.sign("/v1/lol/champion/mate?region=cn", nil)
	assert.Equal(t, "nonce-1", sig.nonce)
	assert.Equal(t, int64(1700000000000), sig.timestamp)
	assert.Equal(t, "74ae19bc405209508138e4167de78b82839e9cb4", sig.value)

	h := http.Header{}
	sig.apply(h, cfg.AppID)
	assert.Equal(t, "app-id-1", h.Get(HeaderAppID))
	assert.Equal(t, "nonce-1", h.Get(HeaderNonce))
	assert.Equal(t, "1700000000000", h.Get(HeaderTimestamp))
	assert.Equal(t, sig.value, h.Get(HeaderSignature))
}

func TestNewNonce(t *testing.T) {
	a, b := newNonce(), newNonce()
	assert.NotEqual(t, a, b)
	id, err := uuid.Parse(a)
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(4), id.Version())
}

func parseTimestamp(t *testing.T, s string) int64 {
	t.Helper()
	n, err := strconv.ParseInt(s, 10, 64)
	assert.NoError(t, err)
	return n
}
