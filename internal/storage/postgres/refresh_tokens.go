package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/coreauth/idp/internal/models"
)

func (s *Store) InsertRefresh(ctx context.Context, r *models.RefreshRecord) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	const q = `INSERT INTO refresh_tokens (id, user_id, token_hash, expires_at, revoked, created_at)
	           VALUES ($1, $2, $3, $4, false, now())`
	_, err := s.pool.Exec(ctx, q, r.ID, r.UserID, r.TokenHash, r.ExpiresAt)
	if err != nil {
		return fmt.Errorf("postgres: insert refresh token: %w", err)
	}
	return nil
}

func (s *Store) FindByHash(ctx context.Context, tokenHash string) (*models.RefreshRecord, error) {
	const q = `SELECT id, user_id, token_hash, expires_at, revoked, created_at, last_used_at
	           FROM refresh_tokens WHERE token_hash = $1`
	row := s.pool.QueryRow(ctx, q, tokenHash)

	var r models.RefreshRecord
	err := row.Scan(&r.ID, &r.UserID, &r.TokenHash, &r.ExpiresAt, &r.Revoked, &r.CreatedAt, &r.LastUsedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: find refresh token: %w", err)
	}
	return &r, nil
}

// MarkRevoked is idempotent: revoking an already-revoked or missing
// record is not an error. Logout should not leak whether a token
// existed.
func (s *Store) MarkRevoked(ctx context.Context, tokenHash string) error {
	const q = `UPDATE refresh_tokens SET revoked = true WHERE token_hash = $1`
	_, err := s.pool.Exec(ctx, q, tokenHash)
	if err != nil {
		return fmt.Errorf("postgres: revoke refresh token: %w", err)
	}
	return nil
}

func (s *Store) MarkUsedRefresh(ctx context.Context, tokenHash string, when time.Time) error {
	const q = `UPDATE refresh_tokens SET last_used_at = $2 WHERE token_hash = $1`
	_, err := s.pool.Exec(ctx, q, tokenHash, when)
	if err != nil {
		return fmt.Errorf("postgres: touch refresh token: %w", err)
	}
	return nil
}

func (s *Store) DeleteDeadBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	const q = `DELETE FROM refresh_tokens WHERE revoked = true AND expires_at < $1`
	tag, err := s.pool.Exec(ctx, q, cutoff)
	if err != nil {
		return 0, fmt.Errorf("postgres: sweep refresh tokens: %w", err)
	}
	return tag.RowsAffected(), nil
}
