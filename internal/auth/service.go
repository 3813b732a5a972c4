package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/coreauth/idp/internal/crypto"
	"github.com/coreauth/idp/internal/models"
	"github.com/coreauth/idp/internal/storage"
	"github.com/coreauth/idp/internal/tokens"
)

// MinPasswordLength is the floor of the minimum-strength policy. It is
// a deliberately low bar — the core does not specify composition rules,
// only a non-empty length floor.
const MinPasswordLength = 8

// Service implements registration, password verification, session
// issuance, refresh and revocation. It carries no per-request state;
// everything it needs lives in its repositories or is passed in.
type Service struct {
	users         storage.Users
	refreshTokens storage.RefreshTokens
	codec         *tokens.Codec
	passwordCost  int
}

func NewService(users storage.Users, refreshTokens storage.RefreshTokens, codec *tokens.Codec, passwordCost int) *Service {
	return &Service{
		users:         users,
		refreshTokens: refreshTokens,
		codec:         codec,
		passwordCost:  passwordCost,
	}
}

// Register creates a new user. It does not issue any tokens — the
// caller logs in separately after registering.
func (s *Service) Register(ctx context.Context, email, username, password, name string) (*models.User, error) {
	if email == "" {
		return nil, fmt.Errorf("%w: email required", errValidation)
	}
	if len(password) < MinPasswordLength {
		return nil, ErrWeakPassword
	}

	if existing, err := s.users.FindByEmail(ctx, email); err != nil {
		return nil, fmt.Errorf("auth: lookup email: %w", err)
	} else if existing != nil {
		return nil, ErrEmailTaken
	}

	if username != "" {
		if existing, err := s.users.FindByUsername(ctx, username); err != nil {
			return nil, fmt.Errorf("auth: lookup username: %w", err)
		} else if existing != nil {
			return nil, ErrUsernameTaken
		}
	}

	hash, err := crypto.HashPassword(password, s.passwordCost)
	if err != nil {
		return nil, fmt.Errorf("auth: hash password: %w", err)
	}

	now := time.Now()
	u := &models.User{
		ID:           uuid.NewString(),
		Email:        email,
		Username:     username,
		PasswordHash: hash,
		Name:         name,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.Insert(ctx, u); err != nil {
		if errors.Is(err, storage.ErrConflict) {
			// A race lost between our own lookups and the insert; we
			// cannot tell which field collided, so report the one we
			// checked last.
			if username != "" {
				return nil, ErrUsernameTaken
			}
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("auth: insert user: %w", err)
	}
	return u, nil
}

// Authenticate resolves identifier by shape (contains "@" => email,
// else username) and verifies password. Both "no such user" and
// "wrong password" collapse to ErrInvalidCredentials so the two cases
// are indistinguishable externally.
func (s *Service) Authenticate(ctx context.Context, identifier, password string) (*models.User, error) {
	var (
		u   *models.User
		err error
	)
	if strings.Contains(identifier, "@") {
		u, err = s.users.FindByEmail(ctx, identifier)
	} else {
		u, err = s.users.FindByUsername(ctx, identifier)
	}
	if err != nil {
		return nil, fmt.Errorf("auth: lookup identifier: %w", err)
	}
	if u == nil {
		return nil, ErrInvalidCredentials
	}
	if !crypto.VerifyPassword(password, u.PasswordHash) {
		return nil, ErrInvalidCredentials
	}
	return u, nil
}

// IssueSession mints a fresh access/refresh pair for an already-
// authenticated user and persists the refresh record.
func (s *Service) IssueSession(ctx context.Context, u *models.User) (access, refresh string, err error) {
	access, err = s.codec.SignAccess(u)
	if err != nil {
		return "", "", fmt.Errorf("auth: sign access token: %w", err)
	}

	refresh, _, err = s.codec.SignRefresh(u.ID)
	if err != nil {
		return "", "", fmt.Errorf("auth: sign refresh token: %w", err)
	}

	record := &models.RefreshRecord{
		ID:        uuid.NewString(),
		UserID:    u.ID,
		TokenHash: crypto.TokenDigest(refresh),
		ExpiresAt: time.Now().Add(s.codec.RefreshTTL),
	}
	if err := s.refreshTokens.InsertRefresh(ctx, record); err != nil {
		return "", "", fmt.Errorf("auth: insert refresh record: %w", err)
	}
	return access, refresh, nil
}

// Refresh validates a raw refresh token end to end and, on success,
// returns a freshly signed access token. Any failure leaves storage
// state unchanged. The refresh token itself is not rotated.
func (s *Service) Refresh(ctx context.Context, rawRefresh string) (access string, err error) {
	claims, err := s.codec.VerifyRefresh(rawRefresh)
	if err != nil {
		return "", ErrInvalidRefresh
	}

	digest := crypto.TokenDigest(rawRefresh)
	record, err := s.refreshTokens.FindByHash(ctx, digest)
	if err != nil {
		return "", fmt.Errorf("auth: lookup refresh record: %w", err)
	}
	if record == nil {
		return "", ErrInvalidRefresh
	}
	if record.Revoked {
		return "", ErrRevoked
	}
	now := time.Now()
	if now.After(record.ExpiresAt) {
		return "", ErrExpired
	}

	u, err := s.users.FindByID(ctx, claims.UserID)
	if err != nil {
		return "", fmt.Errorf("auth: lookup user: %w", err)
	}
	if u == nil {
		return "", ErrInvalidRefresh
	}

	if err := s.refreshTokens.MarkUsedRefresh(ctx, digest, now); err != nil {
		return "", fmt.Errorf("auth: mark refresh used: %w", err)
	}

	access, err = s.codec.SignAccess(u)
	if err != nil {
		return "", fmt.Errorf("auth: sign access token: %w", err)
	}
	return access, nil
}

// Revoke is idempotent: revoking a refresh token that does not exist,
// or that is already revoked, is not an error. Logout must not leak
// whether a token existed.
func (s *Service) Revoke(ctx context.Context, rawRefresh string) error {
	digest := crypto.TokenDigest(rawRefresh)
	if err := s.refreshTokens.MarkRevoked(ctx, digest); err != nil {
		return fmt.Errorf("auth: revoke refresh token: %w", err)
	}
	return nil
}

var errValidation = errors.New("auth: validation")
