package storage

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/coreauth/idp/internal/models"
)

func TestMemoryStoreUserConflict(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	if err := s.Insert(ctx, &models.User{Email: "alice@x.test", Username: "alice"}); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if err := s.Insert(ctx, &models.User{Email: "ALICE@x.test", Username: "bob"}); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict for case-insensitive email collision, got %v", err)
	}
	if err := s.Insert(ctx, &models.User{Email: "carol@x.test", Username: "alice"}); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict for username collision, got %v", err)
	}
}

func TestMemoryStoreRefreshRevocation(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	record := &models.RefreshRecord{UserID: "u1", TokenHash: "hash1", ExpiresAt: time.Now().Add(time.Hour)}
	if err := s.InsertRefresh(ctx, record); err != nil {
		t.Fatalf("InsertRefresh: %v", err)
	}

	if err := s.MarkRevoked(ctx, "hash1"); err != nil {
		t.Fatalf("MarkRevoked: %v", err)
	}

	got, err := s.FindByHash(ctx, "hash1")
	if err != nil {
		t.Fatalf("FindByHash: %v", err)
	}
	if !got.Revoked {
		t.Fatal("expected record to be revoked")
	}

	// Revoking again, or a record that never existed, is not an error.
	if err := s.MarkRevoked(ctx, "hash1"); err != nil {
		t.Fatalf("MarkRevoked (idempotent): %v", err)
	}
	if err := s.MarkRevoked(ctx, "never-existed"); err != nil {
		t.Fatalf("MarkRevoked (missing record): %v", err)
	}
}

// TestMemoryStoreAuthCodeExclusiveExchange is property 3: of any
// number of concurrent callers racing to mark the same fresh code
// used, exactly one sees flipped=true.
func TestMemoryStoreAuthCodeExclusiveExchange(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	code := &models.AuthCode{Code: "abc123", UserID: "u1", ClientID: "appA", RedirectURI: "https://a.test/cb", ExpiresAt: time.Now().Add(10 * time.Minute)}
	if err := s.InsertCode(ctx, code); err != nil {
		t.Fatalf("InsertCode: %v", err)
	}

	const racers = 20
	var wg sync.WaitGroup
	results := make([]bool, racers)
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			flipped, err := s.MarkUsed(ctx, "abc123")
			if err != nil {
				t.Errorf("MarkUsed: %v", err)
				return
			}
			results[i] = flipped
		}(i)
	}
	wg.Wait()

	var winners int
	for _, r := range results {
		if r {
			winners++
		}
	}
	if winners != 1 {
		t.Fatalf("expected exactly one winner among %d racers, got %d", racers, winners)
	}
}

func TestMemoryStoreAuthCodeDuplicateInsertConflicts(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	code := &models.AuthCode{Code: "dup", UserID: "u1", ClientID: "appA", RedirectURI: "https://a.test/cb", ExpiresAt: time.Now().Add(time.Minute)}
	if err := s.InsertCode(ctx, code); err != nil {
		t.Fatalf("InsertCode: %v", err)
	}
	if err := s.InsertCode(ctx, code); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict on duplicate code, got %v", err)
	}
}
