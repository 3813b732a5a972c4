package storage

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/coreauth/idp/internal/models"
)

// MemoryStore implements Users, RefreshTokens and AuthCodes entirely
// in-process, for tests and local development. It preserves the
// teacher's mutex-guarded map shape and background cleanup routine,
// generalized across the persistence ports, with the conditional
// compare-and-swap AuthCode exclusivity needs under the same lock.
type MemoryStore struct {
	mu            sync.Mutex
	usersByID     map[string]*models.User
	refreshByHash map[string]*models.RefreshRecord
	codes         map[string]*models.AuthCode
}

func NewMemoryStore() *MemoryStore {
	s := &MemoryStore{
		usersByID:     make(map[string]*models.User),
		refreshByHash: make(map[string]*models.RefreshRecord),
		codes:         make(map[string]*models.AuthCode),
	}
	go s.cleanupRoutine()
	return s
}

// cleanupRoutine runs every 5 minutes to purge dead refresh records and
// expired authorization codes.
func (s *MemoryStore) cleanupRoutine() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		now := time.Now()
		_, _ = s.DeleteDeadBefore(context.Background(), now)
		_, _ = s.DeleteExpiredBefore(context.Background(), now)
	}
}

// --- Users ---

func (s *MemoryStore) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.usersByID {
		if strings.EqualFold(u.Email, email) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *MemoryStore) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.usersByID {
		if u.Username != "" && u.Username == username {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *MemoryStore) FindByID(ctx context.Context, id string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.usersByID[id]
	if !ok {
		return nil, nil
	}
	cp := *u
	return &cp, nil
}

func (s *MemoryStore) Insert(ctx context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.usersByID {
		if strings.EqualFold(existing.Email, u.Email) {
			return ErrConflict
		}
		if u.Username != "" && existing.Username == u.Username {
			return ErrConflict
		}
	}
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	cp := *u
	s.usersByID[u.ID] = &cp
	return nil
}

// --- RefreshTokens ---

func (s *MemoryStore) InsertRefresh(ctx context.Context, r *models.RefreshRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	cp := *r
	s.refreshByHash[r.TokenHash] = &cp
	return nil
}

func (s *MemoryStore) FindByHash(ctx context.Context, tokenHash string) (*models.RefreshRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.refreshByHash[tokenHash]
	if !ok {
		return nil, nil
	}
	cp := *r
	return &cp, nil
}

func (s *MemoryStore) MarkRevoked(ctx context.Context, tokenHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.refreshByHash[tokenHash]; ok {
		r.Revoked = true
	}
	return nil
}

func (s *MemoryStore) MarkUsedRefresh(ctx context.Context, tokenHash string, when time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.refreshByHash[tokenHash]; ok {
		r.LastUsedAt = &when
	}
	return nil
}

func (s *MemoryStore) DeleteDeadBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for hash, r := range s.refreshByHash {
		if r.Revoked && cutoff.After(r.ExpiresAt) {
			delete(s.refreshByHash, hash)
			n++
		}
	}
	return n, nil
}

// --- AuthCodes ---

func (s *MemoryStore) InsertCode(ctx context.Context, c *models.AuthCode) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.codes[c.Code]; exists {
		return ErrConflict
	}
	cp := *c
	s.codes[c.Code] = &cp
	return nil
}

func (s *MemoryStore) FindByCode(ctx context.Context, code string) (*models.AuthCode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.codes[code]
	if !ok {
		return nil, nil
	}
	cp := *c
	return &cp, nil
}

// MarkUsed performs the exclusive Fresh->Used transition. Only the
// first caller to observe used=false sees flipped=true.
func (s *MemoryStore) MarkUsed(ctx context.Context, code string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.codes[code]
	if !ok {
		return false, nil
	}
	if c.Used {
		return false, nil
	}
	c.Used = true
	return true, nil
}

func (s *MemoryStore) DeleteExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for code, c := range s.codes {
		if cutoff.After(c.ExpiresAt) {
			delete(s.codes, code)
			n++
		}
	}
	return n, nil
}
