package crypto

import "testing"

func TestTokenDigestIsDeterministicAndDoesNotLeakInput(t *testing.T) {
	raw := "a-raw-refresh-token-value"
	d1 := TokenDigest(raw)
	d2 := TokenDigest(raw)
	if d1 != d2 {
		t.Fatal("TokenDigest is not deterministic")
	}
	if d1 == raw {
		t.Fatal("TokenDigest returned the raw input unchanged")
	}
	if len(d1) != 64 {
		t.Fatalf("expected 64 hex characters for a SHA-256 digest, got %d", len(d1))
	}
}

func TestTokenDigestDiffersForDifferentInputs(t *testing.T) {
	if TokenDigest("one") == TokenDigest("two") {
		t.Fatal("TokenDigest collided for distinct inputs")
	}
}
