package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/coreauth/idp/internal/models"
	"github.com/coreauth/idp/internal/storage"
)

func (s *Store) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	const q = `SELECT id, email, username, password_hash, name, email_verified, created_at, updated_at
	           FROM users WHERE lower(email) = lower($1)`
	return s.scanUser(ctx, q, email)
}

func (s *Store) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	const q = `SELECT id, email, username, password_hash, name, email_verified, created_at, updated_at
	           FROM users WHERE username = $1`
	return s.scanUser(ctx, q, username)
}

func (s *Store) FindByID(ctx context.Context, id string) (*models.User, error) {
	const q = `SELECT id, email, username, password_hash, name, email_verified, created_at, updated_at
	           FROM users WHERE id = $1`
	return s.scanUser(ctx, q, id)
}

func (s *Store) scanUser(ctx context.Context, query string, arg any) (*models.User, error) {
	row := s.pool.QueryRow(ctx, query, arg)

	var (
		u        models.User
		username *string
		name     *string
	)
	err := row.Scan(&u.ID, &u.Email, &username, &u.PasswordHash, &name, &u.EmailVerified, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: find user: %w", err)
	}
	if username != nil {
		u.Username = *username
	}
	if name != nil {
		u.Name = *name
	}
	return &u, nil
}

func (s *Store) Insert(ctx context.Context, u *models.User) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	const q = `INSERT INTO users (id, email, username, password_hash, name, email_verified, created_at, updated_at)
	           VALUES ($1, $2, NULLIF($3, ''), $4, NULLIF($5, ''), $6, now(), now())`
	_, err := s.pool.Exec(ctx, q, u.ID, u.Email, u.Username, u.PasswordHash, u.Name, u.EmailVerified)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return storage.ErrConflict
		}
		return fmt.Errorf("postgres: insert user: %w", err)
	}
	return nil
}
