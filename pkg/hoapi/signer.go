package hoapi

import (
	"crypto/hmac"
	"crypto/sha1"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strconv"

	"github.com/google/uuid"
)

// Authentication headers attached to every request.
const (
	HeaderAppID     = "HO-APP-ID"
	HeaderNonce     = "HO-NONCE"
	HeaderTimestamp = "HO-TIMESTAMP"
	HeaderSignature = "HO-SIGNATURE"
)

// SignFunc computes the HO-SIGNATURE value. timestamp is in Unix
// milliseconds, uri is the normalized per-call path including its query and
// body is the serialized request body (empty when there is none).
type SignFunc func(appID, appSecret, nonce string, timestamp int64, uri string, body []byte) string

// SHA1Sign is the default SignFunc: lowercase hex SHA-1 of
// appID + nonce + timestamp + uri + body + appSecret.
func SHA1Sign(appID, appSecret, nonce string, timestamp int64, uri string, body []byte) string {
	h := sha1.New()
	h.Write([]byte(appID))
	h.Write([]byte(nonce))
	h.Write([]byte(strconv.FormatInt(timestamp, 10)))
	h.Write([]byte(uri))
	h.Write(body)
	h.Write([]byte(appSecret))
	return hex.EncodeToString(h.Sum(nil))
}

// HMACSHA256Sign is a keyed alternative: lowercase hex HMAC-SHA256 keyed by
// appSecret over appID + nonce + timestamp + uri + body.
func HMACSHA256Sign(appID, appSecret, nonce string, timestamp int64, uri string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(appSecret))
	mac.Write([]byte(appID))
	mac.Write([]byte(nonce))
	mac.Write([]byte(strconv.FormatInt(timestamp, 10)))
	mac.Write([]byte(uri))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// signature is the per-request authentication material.
type signature struct {
	nonce     string
	timestamp int64
	value     string
}

func (s signature) apply(h http.Header, appID string) {
	h.Set(HeaderAppID, appID)
	h.Set(HeaderNonce, s.nonce)
	h.Set(HeaderTimestamp, strconv.FormatInt(s.timestamp, 10))
	h.Set(HeaderSignature, s.value)
}

func newNonce() string {
	return uuid.NewString()
}

func (c *Client) sign(uri string, body []byte) signature {
	sig := signature{
		nonce:     c.nonce(),
		timestamp: c.now().UnixMilli(),
	}
	sig.value = c.signFunc(c.config.AppID, c.config.AppSecret, sig.nonce, sig.timestamp, uri, body)
	return sig
}
