package crypto

import (
	"crypto/sha256"
	"encoding/hex"
)

// TokenDigest returns the SHA-256 digest of a raw token string, hex
// encoded, for at-rest storage. The input is already a high-entropy
// JWT, so a slow password hash would buy nothing and would be too slow
// to run on every /refresh call.
func TokenDigest(rawToken string) string {
	sum := sha256.Sum256([]byte(rawToken))
	return hex.EncodeToString(sum[:])
}
