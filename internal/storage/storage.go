package storage

import (
	"context"
	"errors"
	"time"

	"github.com/coreauth/idp/internal/models"
)

// ErrConflict is returned by Users.Insert when the email or username
// already exists.
var ErrConflict = errors.New("storage: conflict")

// ErrNotFound is not returned by the lookups in this package: they
// report a missing record as a nil result with a nil error, and callers
// decide whether that is an error worth surfacing.
var ErrNotFound = errors.New("storage: not found")

// Users is the persistence port for the User entity.
type Users interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByUsername(ctx context.Context, username string) (*models.User, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	Insert(ctx context.Context, u *models.User) error
}

// RefreshTokens is the persistence port for RefreshRecord.
type RefreshTokens interface {
	InsertRefresh(ctx context.Context, r *models.RefreshRecord) error
	FindByHash(ctx context.Context, tokenHash string) (*models.RefreshRecord, error)
	MarkRevoked(ctx context.Context, tokenHash string) error
	MarkUsedRefresh(ctx context.Context, tokenHash string, when time.Time) error
	// DeleteDeadBefore purges records that are both expired and revoked
	// as of cutoff, for the background cleanup job.
	DeleteDeadBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// AuthCodes is the persistence port for AuthCode.
type AuthCodes interface {
	InsertCode(ctx context.Context, c *models.AuthCode) error
	FindByCode(ctx context.Context, code string) (*models.AuthCode, error)
	// MarkUsed performs the exclusive Fresh->Used transition. It must be
	// conditional on used=false and report whether this call actually
	// flipped the bit — at most one concurrent caller may see true.
	MarkUsed(ctx context.Context, code string) (flipped bool, err error)
	DeleteExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// Clients is the persistence port for registered relying parties.
type Clients interface {
	FindByClientID(ctx context.Context, clientID string) (*models.Client, error)
}
