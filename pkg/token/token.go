// Package token signs short opaque values with HMAC-SHA256 so that a client
// cannot forge or swap them.
package token

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"strings"
)

// Signer holds the server key.
type Signer struct {
	key []byte
}

// NewSigner uses secret as the key. An empty secret generates a random
// 32-byte key, which invalidates every signature on restart.
func NewSigner(secret string) (*Signer, error) {
	if secret != "" {
		return &Signer{key: []byte(secret)}, nil
	}
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		return nil, errors.New("token: failed to generate signing key: " + err.Error())
	}
	return &Signer{key: key}, nil
}

func (s *Signer) mac(value string) []byte {
	m := hmac.New(sha256.New, s.key)
	m.Write([]byte(value))
	return m.Sum(nil)
}

// Sign returns "value.signature".
func (s *Signer) Sign(value string) string {
	return value + "." + base64.RawURLEncoding.EncodeToString(s.mac(value))
}

// Verify returns the value of a signed string and whether the signature
// matched. The comparison is constant time.
func (s *Signer) Verify(signed string) (string, bool) {
	idx := strings.LastIndexByte(signed, '.')
	if idx <= 0 {
		return "", false
	}
	value, sig := signed[:idx], signed[idx+1:]
	actual, err := base64.RawURLEncoding.DecodeString(sig)
	if err != nil {
		return "", false
	}
	if !hmac.Equal(s.mac(value), actual) {
		return "", false
	}
	return value, true
}
