// Package postgres is the production persistence backend: Users,
// RefreshTokens and AuthCodes, the three ports whose invariants
// (unique indexes, foreign-key cascade, and the exclusive conditional
// auth-code update) need a real transactional database behind them.
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Store wraps a pooled connection and implements storage.Users,
// storage.RefreshTokens and storage.AuthCodes.
type Store struct {
	pool *pgxpool.Pool
}

func Open(ctx context.Context, databaseURL string) (*Store, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("postgres: connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	s.pool.Close()
}
