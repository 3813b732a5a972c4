package oauth

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/coreauth/idp/internal/crypto"
	"github.com/coreauth/idp/internal/models"
	"github.com/coreauth/idp/internal/storage"
	"github.com/coreauth/idp/internal/tokens"
)

// AuthorizeRequest carries the already-parsed query parameters of
// GET /oauth/authorize.
type AuthorizeRequest struct {
	ClientID     string
	RedirectURI  string
	ResponseType string
	State        string
}

// TokenRequest carries the already-parsed body of POST /oauth/token.
type TokenRequest struct {
	GrantType    string
	Code         string
	ClientID     string
	ClientSecret string
	RedirectURI  string
}

// TokenResponse is the success body of POST /oauth/token.
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	IDToken      string `json:"id_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
}

// Service implements the authorization-code grant state machine. It
// replaces the teacher's hardcoded demo-client map with the Clients
// persistence port.
type Service struct {
	clients       storage.Clients
	authCodes     storage.AuthCodes
	users         storage.Users
	refreshTokens storage.RefreshTokens
	codec         *tokens.Codec
	codeTTL       time.Duration
}

func NewService(clients storage.Clients, authCodes storage.AuthCodes, users storage.Users, refreshTokens storage.RefreshTokens, codec *tokens.Codec, codeTTL time.Duration) *Service {
	return &Service{
		clients:       clients,
		authCodes:     authCodes,
		users:         users,
		refreshTokens: refreshTokens,
		codec:         codec,
		codeTTL:       codeTTL,
	}
}

// ValidateAuthorize performs steps 1-3 of the /authorize state machine:
// required parameters present, response_type is "code", client known,
// redirect_uri byte-exactly in the client's allowlist. These three
// failures return a JSON error and must never redirect to an
// unvalidated URI.
func (s *Service) ValidateAuthorize(ctx context.Context, req AuthorizeRequest) (*models.Client, error) {
	if req.ClientID == "" || req.RedirectURI == "" || req.ResponseType != "code" {
		return nil, ErrInvalidRequest
	}

	client, err := s.clients.FindByClientID(ctx, req.ClientID)
	if err != nil {
		return nil, fmt.Errorf("oauth: lookup client: %w", err)
	}
	if client == nil {
		return nil, ErrUnknownClient
	}

	if !client.AllowsRedirect(req.RedirectURI) {
		return nil, ErrBadRedirect
	}

	return client, nil
}

// IssueCode performs step 5: generate a fresh code and bind it to the
// already-authenticated user, client and redirect URI. The caller
// (the HTTP edge, via the session adapter) is responsible for step 4 —
// resolving the sso_session cookie to a user, or redirecting to login
// when it is absent, invalid, or the policy gate fails.
func (s *Service) IssueCode(ctx context.Context, client *models.Client, userID, redirectURI string) (*models.AuthCode, error) {
	code, err := crypto.NewAuthCode()
	if err != nil {
		return nil, fmt.Errorf("oauth: generate code: %w", err)
	}

	ac := &models.AuthCode{
		Code:        code,
		UserID:      userID,
		ClientID:    client.ClientID,
		RedirectURI: redirectURI,
		ExpiresAt:   time.Now().Add(s.codeTTL),
	}
	if err := s.authCodes.InsertCode(ctx, ac); err != nil {
		return nil, fmt.Errorf("oauth: insert auth code: %w", err)
	}
	return ac, nil
}

// Exchange performs the eleven-step /token validation in order; each
// failure is terminal and distinct.
func (s *Service) Exchange(ctx context.Context, req TokenRequest) (*TokenResponse, error) {
	if req.GrantType != "authorization_code" || req.Code == "" || req.ClientID == "" ||
		req.ClientSecret == "" || req.RedirectURI == "" {
		return nil, ErrInvalidRequest
	}

	client, err := s.clients.FindByClientID(ctx, req.ClientID)
	if err != nil {
		return nil, fmt.Errorf("oauth: lookup client: %w", err)
	}
	if client == nil {
		return nil, ErrInvalidClient
	}

	if !crypto.VerifyPassword(req.ClientSecret, client.ClientSecretHash) {
		return nil, ErrInvalidClient
	}

	code, err := s.authCodes.FindByCode(ctx, req.Code)
	if err != nil {
		return nil, fmt.Errorf("oauth: lookup auth code: %w", err)
	}
	if code == nil || code.ClientID != req.ClientID {
		return nil, grantError("unknown code")
	}
	if code.Used {
		return nil, grantError("already used")
	}
	if time.Now().After(code.ExpiresAt) {
		return nil, grantError("expired")
	}
	if code.RedirectURI != req.RedirectURI {
		return nil, grantError("redirect mismatch")
	}

	user, err := s.users.FindByID(ctx, code.UserID)
	if err != nil {
		return nil, fmt.Errorf("oauth: lookup user: %w", err)
	}
	if user == nil {
		return nil, grantError("user gone")
	}

	flipped, err := s.authCodes.MarkUsed(ctx, code.Code)
	if err != nil {
		return nil, fmt.Errorf("oauth: mark code used: %w", err)
	}
	if !flipped {
		return nil, grantError("already used")
	}

	access, err := s.codec.SignAccess(user)
	if err != nil {
		return nil, fmt.Errorf("oauth: sign access token: %w", err)
	}
	refresh, _, err := s.codec.SignRefresh(user.ID)
	if err != nil {
		return nil, fmt.Errorf("oauth: sign refresh token: %w", err)
	}
	idToken, err := s.codec.SignID(user)
	if err != nil {
		return nil, fmt.Errorf("oauth: sign id token: %w", err)
	}

	record := &models.RefreshRecord{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		TokenHash: crypto.TokenDigest(refresh),
		ExpiresAt: time.Now().Add(s.codec.RefreshTTL),
	}
	if err := s.refreshTokens.InsertRefresh(ctx, record); err != nil {
		return nil, fmt.Errorf("oauth: insert refresh record: %w", err)
	}

	return &TokenResponse{
		AccessToken:  access,
		RefreshToken: refresh,
		IDToken:      idToken,
		TokenType:    "Bearer",
		ExpiresIn:    int64(s.codec.AccessTTL.Seconds()),
	}, nil
}

// BuildRedirectURL builds the /authorize success callback: code and,
// if supplied, state appended to the client's redirect_uri.
func BuildRedirectURL(redirectURI, code, state string) string {
	return appendQuery(redirectURI, map[string]string{"code": code, "state": state})
}

// BuildErrorRedirectURL builds a callback URL carrying an OAuth error
// code, used only once the redirect_uri itself has been validated.
func BuildErrorRedirectURL(redirectURI, errorCode, errorDescription, state string) string {
	return appendQuery(redirectURI, map[string]string{
		"error":             errorCode,
		"error_description": errorDescription,
		"state":             state,
	})
}
