package crypto

import "golang.org/x/crypto/bcrypt"

// DefaultPasswordCost is used when the configured cost is zero or
// below bcrypt's own floor.
const DefaultPasswordCost = 12

// HashPassword produces a salted, adaptive-cost hash of plaintext. cost
// below bcrypt.MinCost falls back to DefaultPasswordCost.
func HashPassword(plaintext string, cost int) ([]byte, error) {
	if cost < bcrypt.MinCost {
		cost = DefaultPasswordCost
	}
	return bcrypt.GenerateFromPassword([]byte(plaintext), cost)
}

// VerifyPassword reports whether plaintext matches the stored hash. The
// underlying comparison is constant-time per candidate.
func VerifyPassword(plaintext string, stored []byte) bool {
	return bcrypt.CompareHashAndPassword(stored, []byte(plaintext)) == nil
}
