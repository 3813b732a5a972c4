package tokens

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/coreauth/idp/internal/models"
)

// Codec signs and verifies the three JWT kinds. Access and ID tokens
// share a signing secret by default — the source this design is based
// on does this for simplicity, undocumented — but a deployment may
// configure distinct secrets. The refresh secret is always distinct: a
// leak of the access secret must never be enough to forge refresh
// tokens.
type Codec struct {
	AccessSecret  []byte
	IDSecret      []byte
	RefreshSecret []byte
	Issuer        string
	Audience      string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
}

// New builds a Codec. If idSecret is empty, it defaults to accessSecret
// (the source's original, undocumented behavior; see DESIGN.md).
func New(accessSecret, idSecret, refreshSecret []byte, issuer, audience string, accessTTL, refreshTTL time.Duration) *Codec {
	if len(idSecret) == 0 {
		idSecret = accessSecret
	}
	return &Codec{
		AccessSecret:  accessSecret,
		IDSecret:      idSecret,
		RefreshSecret: refreshSecret,
		Issuer:        issuer,
		Audience:      audience,
		AccessTTL:     accessTTL,
		RefreshTTL:    refreshTTL,
	}
}

func (c *Codec) SignAccess(u *models.User) (string, error) {
	now := time.Now()
	claims := AccessClaims{
		UserID:        u.ID,
		Email:         u.Email,
		EmailVerified: u.EmailVerified,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    c.Issuer,
			Audience:  jwt.ClaimStrings{c.Audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.AccessTTL)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.AccessSecret)
}

func (c *Codec) SignID(u *models.User) (string, error) {
	now := time.Now()
	claims := IDClaims{
		UserID:        u.ID,
		Email:         u.Email,
		Name:          u.Name,
		EmailVerified: u.EmailVerified,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    c.Issuer,
			Audience:  jwt.ClaimStrings{c.Audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.AccessTTL)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.IDSecret)
}

// SignRefresh mints a fresh refresh JWT with a unique tokenId, returning
// both the signed string and the tokenId so the caller can insert the
// matching RefreshRecord.
func (c *Codec) SignRefresh(userID string) (raw string, tokenID string, err error) {
	tokenID = uuid.NewString()
	now := time.Now()
	claims := RefreshClaims{
		UserID:  userID,
		TokenID: tokenID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    c.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.RefreshTTL)),
		},
	}
	raw, err = jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.RefreshSecret)
	return raw, tokenID, err
}

func (c *Codec) VerifyAccess(raw string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	if err := c.verify(raw, claims, c.AccessSecret, true); err != nil {
		return nil, err
	}
	return claims, nil
}

func (c *Codec) VerifyID(raw string) (*IDClaims, error) {
	claims := &IDClaims{}
	if err := c.verify(raw, claims, c.IDSecret, true); err != nil {
		return nil, err
	}
	return claims, nil
}

func (c *Codec) VerifyRefresh(raw string) (*RefreshClaims, error) {
	claims := &RefreshClaims{}
	if err := c.verify(raw, claims, c.RefreshSecret, false); err != nil {
		return nil, err
	}
	return claims, nil
}

func (c *Codec) verify(raw string, claims jwt.Claims, secret []byte, checkAudience bool) error {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(c.Issuer),
	}
	if checkAudience {
		opts = append(opts, jwt.WithAudience(c.Audience))
	}
	parser := jwt.NewParser(opts...)

	_, err := parser.ParseWithClaims(raw, claims, func(*jwt.Token) (interface{}, error) {
		return secret, nil
	})
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrExpired
	case errors.Is(err, jwt.ErrTokenInvalidIssuer), errors.Is(err, jwt.ErrTokenInvalidAudience):
		return ErrAudience
	default:
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
}
