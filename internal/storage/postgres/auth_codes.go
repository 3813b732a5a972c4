package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/coreauth/idp/internal/models"
	"github.com/coreauth/idp/internal/storage"
)

func (s *Store) InsertCode(ctx context.Context, c *models.AuthCode) error {
	const q = `INSERT INTO auth_codes (code, user_id, client_id, redirect_uri, expires_at, used, created_at)
	           VALUES ($1, $2, $3, $4, $5, false, now())`
	_, err := s.pool.Exec(ctx, q, c.Code, c.UserID, c.ClientID, c.RedirectURI, c.ExpiresAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return storage.ErrConflict
		}
		return fmt.Errorf("postgres: insert auth code: %w", err)
	}
	return nil
}

func (s *Store) FindByCode(ctx context.Context, code string) (*models.AuthCode, error) {
	const q = `SELECT code, user_id, client_id, redirect_uri, expires_at, used, created_at
	           FROM auth_codes WHERE code = $1`
	row := s.pool.QueryRow(ctx, q, code)

	var c models.AuthCode
	err := row.Scan(&c.Code, &c.UserID, &c.ClientID, &c.RedirectURI, &c.ExpiresAt, &c.Used, &c.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: find auth code: %w", err)
	}
	return &c, nil
}

// MarkUsed performs the exclusive Fresh->Used transition: the update
// is conditional on used=false, and RETURNING tells us whether this
// call is the one that actually flipped the bit. Of any number of
// concurrent callers racing on the same code, exactly one observes
// flipped=true.
func (s *Store) MarkUsed(ctx context.Context, code string) (bool, error) {
	const q = `UPDATE auth_codes SET used = true WHERE code = $1 AND used = false RETURNING code`
	var flipped string
	err := s.pool.QueryRow(ctx, q, code).Scan(&flipped)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("postgres: mark auth code used: %w", err)
	}
	return true, nil
}

func (s *Store) DeleteExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	const q = `DELETE FROM auth_codes WHERE expires_at < $1`
	tag, err := s.pool.Exec(ctx, q, cutoff)
	if err != nil {
		return 0, fmt.Errorf("postgres: sweep auth codes: %w", err)
	}
	return tag.RowsAffected(), nil
}
