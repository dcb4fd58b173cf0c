package hoapi

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"encoding/hex"
	"unicode/utf8"

	"github.com/pkg/errors"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

const envelopeField = "data"

// envelopeCipher is AES-256-CBC with PKCS#7 padding. The key is the app
// secret and the IV is fixed per client.
type envelopeCipher struct {
	block cipher.Block
	iv    []byte
}

func newEnvelopeCipher(key, iv string) (*envelopeCipher, error) {
	if len(iv) != aes.BlockSize {
		return nil, errors.Errorf("iv must be %d bytes, got %d", aes.BlockSize, len(iv))
	}
	block, err := aes.NewCipher([]byte(key))
	if err != nil {
		return nil, errors.Wrap(err, "aes key")
	}
	return &envelopeCipher{block: block, iv: []byte(iv)}, nil
}

// Encrypt pads plaintext and encrypts it.
func (e *envelopeCipher) Encrypt(plaintext []byte) []byte {
	padded := pkcs7Pad(plaintext, aes.BlockSize)
	out := make([]byte, len(padded))
	cipher.NewCBCEncrypter(e.block, e.iv).CryptBlocks(out, padded)
	return out
}

// Decrypt decrypts ciphertext and strips the padding.
func (e *envelopeCipher) Decrypt(ciphertext []byte) ([]byte, error) {
	if len(ciphertext) == 0 || len(ciphertext)%aes.BlockSize != 0 {
		return nil, errors.Errorf("ciphertext length %d is not a positive multiple of %d", len(ciphertext), aes.BlockSize)
	}
	out := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(e.block, e.iv).CryptBlocks(out, ciphertext)
	return pkcs7Unpad(out, aes.BlockSize)
}

func pkcs7Pad(b []byte, size int) []byte {
	n := size - len(b)%size
	return append(bytes.Clone(b), bytes.Repeat([]byte{byte(n)}, n)...)
}

func pkcs7Unpad(b []byte, size int) ([]byte, error) {
	if len(b) == 0 || len(b)%size != 0 {
		return nil, errors.New("invalid padded length")
	}
	n := int(b[len(b)-1])
	if n == 0 || n > size || n > len(b) {
		return nil, errors.New("invalid padding")
	}
	for _, p := range b[len(b)-n:] {
		if int(p) != n {
			return nil, errors.New("invalid padding")
		}
	}
	return b[:len(b)-n], nil
}

// wrapRequest places the serialized body, as a string, under "data". A
// request without a body is sent as an empty object.
func wrapRequest(payload []byte) ([]byte, error) {
	if payload == nil {
		return []byte("{}"), nil
	}
	wrapped, err := sjson.SetBytes([]byte("{}"), envelopeField, string(payload))
	if err != nil {
		return nil, errors.Wrap(err, "wrap request body")
	}
	return wrapped, nil
}

// openResponse extracts the hex ciphertext under "data", decrypts it and
// returns the UTF-8 plaintext.
func (e *envelopeCipher) openResponse(body []byte) (string, error) {
	if !gjson.ValidBytes(body) {
		return "", &EnvelopeError{Reason: "response is not JSON"}
	}
	data := gjson.GetBytes(body, envelopeField)
	if data.Type != gjson.String {
		return "", &EnvelopeError{Reason: `missing string field "data"`}
	}
	ciphertext, err := hex.DecodeString(data.Str)
	if err != nil {
		return "", &EnvelopeError{Reason: "data is not hex", Err: err}
	}
	plaintext, err := e.Decrypt(ciphertext)
	if err != nil {
		return "", &EnvelopeError{Reason: "decrypt", Err: err}
	}
	if !utf8.Valid(plaintext) {
		return "", &EnvelopeError{Reason: "plaintext is not valid UTF-8"}
	}
	return string(plaintext), nil
}

// sealResponse is the server side of openResponse.
func (e *envelopeCipher) sealResponse(plaintext []byte) ([]byte, error) {
	sealed, err := sjson.SetBytes([]byte("{}"), envelopeField, hex.EncodeToString(e.Encrypt(plaintext)))
	if err != nil {
		return nil, errors.Wrap(err, "seal response")
	}
	return sealed, nil
}
