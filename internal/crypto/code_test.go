package crypto

import "testing"

func TestNewAuthCodeIsUnique(t *testing.T) {
	a, err := NewAuthCode()
	if err != nil {
		t.Fatalf("NewAuthCode: %v", err)
	}
	b, err := NewAuthCode()
	if err != nil {
		t.Fatalf("NewAuthCode: %v", err)
	}
	if a == b {
		t.Fatal("two calls to NewAuthCode produced the same value")
	}
	if len(a) == 0 {
		t.Fatal("NewAuthCode returned an empty string")
	}
}
