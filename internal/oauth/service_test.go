package oauth_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/coreauth/idp/internal/crypto"
	"github.com/coreauth/idp/internal/models"
	"github.com/coreauth/idp/internal/oauth"
	"github.com/coreauth/idp/internal/storage"
	"github.com/coreauth/idp/internal/tokens"
)

type stubClients struct {
	byID map[string]*models.Client
}

func (s *stubClients) FindByClientID(ctx context.Context, clientID string) (*models.Client, error) {
	return s.byID[clientID], nil
}

func newTestFixture(t *testing.T) (*oauth.Service, *storage.MemoryStore, *models.User, *stubClients) {
	t.Helper()

	store := storage.NewMemoryStore()
	codec := tokens.New([]byte("access-secret"), nil, []byte("refresh-secret"), "idp.test", "idp.test.aud", time.Hour, 30*24*time.Hour)

	ctx := context.Background()
	u := &models.User{ID: "u1", Email: "alice@x.test"}
	if err := store.Insert(ctx, u); err != nil {
		t.Fatalf("Insert user: %v", err)
	}

	secretHash, err := crypto.HashPassword("s3cret", 4)
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	clients := &stubClients{byID: map[string]*models.Client{
		"appA": {
			ClientID:            "appA",
			ClientSecretHash:    secretHash,
			Name:                "App A",
			AllowedRedirectURIs: []string{"https://a.test/cb"},
		},
	}}

	svc := oauth.NewService(clients, store, store, store, codec, 10*time.Minute)
	return svc, store, u, clients
}

func TestAuthorizeRejectsRedirectOutsideAllowlist(t *testing.T) {
	svc, _, _, _ := newTestFixture(t)
	ctx := context.Background()

	_, err := svc.ValidateAuthorize(ctx, oauth.AuthorizeRequest{
		ClientID:     "appA",
		RedirectURI:  "https://attacker.test/cb",
		ResponseType: "code",
	})
	if !errors.Is(err, oauth.ErrBadRedirect) {
		t.Fatalf("expected ErrBadRedirect, got %v", err)
	}
}

func TestAuthorizeRejectsUnknownClient(t *testing.T) {
	svc, _, _, _ := newTestFixture(t)
	ctx := context.Background()

	_, err := svc.ValidateAuthorize(ctx, oauth.AuthorizeRequest{
		ClientID:     "no-such-client",
		RedirectURI:  "https://a.test/cb",
		ResponseType: "code",
	})
	if !errors.Is(err, oauth.ErrUnknownClient) {
		t.Fatalf("expected ErrUnknownClient, got %v", err)
	}
}

func TestAuthorizeRejectsWrongResponseType(t *testing.T) {
	svc, _, _, _ := newTestFixture(t)
	ctx := context.Background()

	_, err := svc.ValidateAuthorize(ctx, oauth.AuthorizeRequest{
		ClientID:     "appA",
		RedirectURI:  "https://a.test/cb",
		ResponseType: "token",
	})
	if !errors.Is(err, oauth.ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest, got %v", err)
	}
}

// TestExchangeOneTimeUse is testable property 3: of two exchanges of
// the same code, exactly one returns tokens and the other fails with
// the "already used" grant error.
func TestExchangeOneTimeUse(t *testing.T) {
	svc, _, u, _ := newTestFixture(t)
	ctx := context.Background()

	client, err := svc.ValidateAuthorize(ctx, oauth.AuthorizeRequest{ClientID: "appA", RedirectURI: "https://a.test/cb", ResponseType: "code"})
	if err != nil {
		t.Fatalf("ValidateAuthorize: %v", err)
	}
	code, err := svc.IssueCode(ctx, client, u.ID, "https://a.test/cb")
	if err != nil {
		t.Fatalf("IssueCode: %v", err)
	}

	req := oauth.TokenRequest{
		GrantType:    "authorization_code",
		Code:         code.Code,
		ClientID:     "appA",
		ClientSecret: "s3cret",
		RedirectURI:  "https://a.test/cb",
	}

	resp, err := svc.Exchange(ctx, req)
	if err != nil {
		t.Fatalf("first Exchange: %v", err)
	}
	if resp.AccessToken == "" || resp.RefreshToken == "" || resp.IDToken == "" {
		t.Fatal("Exchange returned an empty token")
	}
	if resp.TokenType != "Bearer" {
		t.Fatalf("expected token_type Bearer, got %q", resp.TokenType)
	}

	_, err = svc.Exchange(ctx, req)
	var grantErr *oauth.GrantError
	if !errors.As(err, &grantErr) || grantErr.Tag != "already used" {
		t.Fatalf("expected already-used grant error on replay, got %v", err)
	}
}

// TestExchangeRedirectMismatch is testable property 4: a code bound to
// one redirect_uri cannot be redeemed with another, even one in the
// client's whitelist.
func TestExchangeRedirectMismatch(t *testing.T) {
	svc, _, u, clients := newTestFixture(t)
	ctx := context.Background()

	clients.byID["appA"].AllowedRedirectURIs = append(clients.byID["appA"].AllowedRedirectURIs, "https://a.test/other")

	client, err := svc.ValidateAuthorize(ctx, oauth.AuthorizeRequest{ClientID: "appA", RedirectURI: "https://a.test/cb", ResponseType: "code"})
	if err != nil {
		t.Fatalf("ValidateAuthorize: %v", err)
	}
	code, err := svc.IssueCode(ctx, client, u.ID, "https://a.test/cb")
	if err != nil {
		t.Fatalf("IssueCode: %v", err)
	}

	_, err = svc.Exchange(ctx, oauth.TokenRequest{
		GrantType:    "authorization_code",
		Code:         code.Code,
		ClientID:     "appA",
		ClientSecret: "s3cret",
		RedirectURI:  "https://a.test/other",
	})
	var grantErr *oauth.GrantError
	if !errors.As(err, &grantErr) || grantErr.Tag != "redirect mismatch" {
		t.Fatalf("expected redirect-mismatch grant error, got %v", err)
	}
}

func TestExchangeWrongClientSecretFails(t *testing.T) {
	svc, _, u, _ := newTestFixture(t)
	ctx := context.Background()

	client, err := svc.ValidateAuthorize(ctx, oauth.AuthorizeRequest{ClientID: "appA", RedirectURI: "https://a.test/cb", ResponseType: "code"})
	if err != nil {
		t.Fatalf("ValidateAuthorize: %v", err)
	}
	code, err := svc.IssueCode(ctx, client, u.ID, "https://a.test/cb")
	if err != nil {
		t.Fatalf("IssueCode: %v", err)
	}

	_, err = svc.Exchange(ctx, oauth.TokenRequest{
		GrantType:    "authorization_code",
		Code:         code.Code,
		ClientID:     "appA",
		ClientSecret: "wrong-secret",
		RedirectURI:  "https://a.test/cb",
	})
	if !errors.Is(err, oauth.ErrInvalidClient) {
		t.Fatalf("expected ErrInvalidClient, got %v", err)
	}
}

// TestExchangeExpiredCodeFails exercises the boundary property: a code
// used after its expiry fails distinctly from "already used", even
// though it was never exchanged. IssueCode always sets a fresh
// 10-minute window, so this inserts the code directly to put it past
// expiry.
func TestExchangeExpiredCodeFails(t *testing.T) {
	svc, store, u, _ := newTestFixture(t)
	ctx := context.Background()

	pastCode := &models.AuthCode{Code: "already-expired", UserID: u.ID, ClientID: "appA", RedirectURI: "https://a.test/cb", ExpiresAt: time.Now().Add(-time.Minute)}
	if err := store.InsertCode(ctx, pastCode); err != nil {
		t.Fatalf("InsertCode: %v", err)
	}

	_, err := svc.Exchange(ctx, oauth.TokenRequest{
		GrantType:    "authorization_code",
		Code:         "already-expired",
		ClientID:     "appA",
		ClientSecret: "s3cret",
		RedirectURI:  "https://a.test/cb",
	})
	var grantErr *oauth.GrantError
	if !errors.As(err, &grantErr) || grantErr.Tag != "expired" {
		t.Fatalf("expected expired grant error, got %v", err)
	}
}
