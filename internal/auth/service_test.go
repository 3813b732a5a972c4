package auth_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/coreauth/idp/internal/auth"
	"github.com/coreauth/idp/internal/storage"
	"github.com/coreauth/idp/internal/tokens"
)

func newTestService() (*auth.Service, *storage.MemoryStore) {
	store := storage.NewMemoryStore()
	codec := tokens.New([]byte("access-secret"), nil, []byte("refresh-secret"), "idp.test", "idp.test.aud", time.Hour, 30*24*time.Hour)
	return auth.NewService(store, store, codec, 4), store
}

func TestRegisterThenLoginSucceeds(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	u, err := svc.Register(ctx, "alice@x.test", "alice", "pw123456", "Alice")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if u.Email != "alice@x.test" {
		t.Fatalf("unexpected email: %s", u.Email)
	}

	got, err := svc.Authenticate(ctx, "alice@x.test", "pw123456")
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if got.ID != u.ID {
		t.Fatalf("authenticate returned a different user")
	}
}

func TestRegisterDuplicateEmailFails(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	if _, err := svc.Register(ctx, "alice@x.test", "", "pw123456", ""); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if _, err := svc.Register(ctx, "alice@x.test", "", "anotherpassword", ""); !errors.Is(err, auth.ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
}

// TestAuthenticateInvariant is testable property 1: for any user with
// password p, authenticate(email, p) succeeds; for any q != p, it
// fails with InvalidCredentials. Unknown identifiers fail the same
// way, indistinguishably.
func TestAuthenticateInvariant(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	if _, err := svc.Register(ctx, "alice@x.test", "alice", "correct-password", ""); err != nil {
		t.Fatalf("Register: %v", err)
	}

	if _, err := svc.Authenticate(ctx, "alice@x.test", "correct-password"); err != nil {
		t.Fatalf("Authenticate with correct password: %v", err)
	}

	if _, err := svc.Authenticate(ctx, "alice@x.test", "wrong-password"); !errors.Is(err, auth.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for wrong password, got %v", err)
	}

	if _, err := svc.Authenticate(ctx, "nobody@x.test", "correct-password"); !errors.Is(err, auth.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for unknown identifier, got %v", err)
	}

	// Username-shaped identifier resolution (no "@").
	if _, err := svc.Authenticate(ctx, "alice", "correct-password"); err != nil {
		t.Fatalf("Authenticate by username: %v", err)
	}
}

// TestRefreshRevocationInvariant is testable property 2: refresh
// succeeds while the record is unrevoked and unexpired; after revoke,
// every subsequent refresh fails with Revoked.
func TestRefreshRevocationInvariant(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	u, err := svc.Register(ctx, "alice@x.test", "", "correct-password", "")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	access, refresh, err := svc.IssueSession(ctx, u)
	if err != nil {
		t.Fatalf("IssueSession: %v", err)
	}
	if access == "" || refresh == "" {
		t.Fatal("IssueSession returned an empty token")
	}

	if _, err := svc.Refresh(ctx, refresh); err != nil {
		t.Fatalf("Refresh before revocation: %v", err)
	}

	if err := svc.Revoke(ctx, refresh); err != nil {
		t.Fatalf("Revoke: %v", err)
	}

	if _, err := svc.Refresh(ctx, refresh); !errors.Is(err, auth.ErrRevoked) {
		t.Fatalf("expected ErrRevoked after revocation, got %v", err)
	}

	// Revoking a token that does not exist must not be an error: logout
	// should not leak existence.
	if err := svc.Revoke(ctx, "never-issued"); err != nil {
		t.Fatalf("Revoke of unknown token: %v", err)
	}
}

func TestRefreshOfUnknownTokenFails(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	if _, err := svc.Refresh(ctx, "not-a-real-jwt"); !errors.Is(err, auth.ErrInvalidRefresh) {
		t.Fatalf("expected ErrInvalidRefresh, got %v", err)
	}
}
