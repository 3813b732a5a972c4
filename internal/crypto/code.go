package crypto

import (
	"crypto/rand"
	"encoding/base64"
)

// authCodeBytes is the amount of entropy drawn for a fresh authorization
// code, well above the 10-minute collision window's needs.
const authCodeBytes = 32

// NewAuthCode draws cryptographically-secure random bytes and encodes
// them URL-safe, without padding, so the value is safe to embed directly
// in a redirect query string.
func NewAuthCode() (string, error) {
	buf := make([]byte, authCodeBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
