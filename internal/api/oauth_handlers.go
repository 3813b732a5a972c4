package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/coreauth/idp/internal/oauth"
	"github.com/coreauth/idp/internal/session"
)

// AuthorizeHandler implements GET /oauth/authorize. Validation failures
// (invalid request, unknown client, bad redirect) return a JSON error
// and never redirect to an unvalidated URI. Once the client and
// redirect are validated, a missing or invalid sso_session (or a
// failed email-verification gate) redirects to the login page instead,
// preserving client_id/redirect_uri/state.
func (s *Server) AuthorizeHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := oauth.AuthorizeRequest{
		ClientID:     q.Get("client_id"),
		RedirectURI:  q.Get("redirect_uri"),
		ResponseType: q.Get("response_type"),
		State:        q.Get("state"),
	}

	client, err := s.oauth.ValidateAuthorize(r.Context(), req)
	if err != nil {
		s.writeAuthorizeError(w, err)
		return
	}

	claims := session.ReadSSO(r, s.codec)
	if claims == nil || (s.emailVerificationRequired && !claims.EmailVerified) {
		s.redirectToLogin(w, r, req)
		return
	}

	code, err := s.oauth.IssueCode(r.Context(), client, claims.UserID, req.RedirectURI)
	if err != nil {
		slog.Error("issue code failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to issue authorization code", "internal")
		return
	}

	http.Redirect(w, r, oauth.BuildRedirectURL(req.RedirectURI, code.Code, req.State), http.StatusFound)
}

// loginPagePath is where the browser is sent when /authorize has no
// valid session. The HTML login form itself is out of scope; this
// path is only a redirect target.
const loginPagePath = "/login"

func (s *Server) redirectToLogin(w http.ResponseWriter, r *http.Request, req oauth.AuthorizeRequest) {
	v := url.Values{}
	v.Set("client_id", req.ClientID)
	v.Set("redirect_uri", req.RedirectURI)
	if req.State != "" {
		v.Set("state", req.State)
	}
	http.Redirect(w, r, loginPagePath+"?"+v.Encode(), http.StatusFound)
}

func (s *Server) writeAuthorizeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, oauth.ErrInvalidRequest):
		writeError(w, http.StatusBadRequest, "invalid authorization request", "invalid_request")
	case errors.Is(err, oauth.ErrUnknownClient):
		writeError(w, http.StatusBadRequest, "unknown client", "unknown_client")
	case errors.Is(err, oauth.ErrBadRedirect):
		writeError(w, http.StatusBadRequest, "redirect_uri not registered for this client", "bad_redirect")
	default:
		slog.Error("authorize validation failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error", "internal")
	}
}

type tokenRequestBody struct {
	GrantType    string `json:"grant_type"`
	Code         string `json:"code"`
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
	RedirectURI  string `json:"redirect_uri"`
}

// TokenHandler implements POST /oauth/token.
func (s *Server) TokenHandler(w http.ResponseWriter, r *http.Request) {
	var body tokenRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", "invalid_request")
		return
	}

	resp, err := s.oauth.Exchange(r.Context(), oauth.TokenRequest{
		GrantType:    body.GrantType,
		Code:         body.Code,
		ClientID:     body.ClientID,
		ClientSecret: body.ClientSecret,
		RedirectURI:  body.RedirectURI,
	})
	if err != nil {
		var grantErr *oauth.GrantError
		switch {
		case errors.Is(err, oauth.ErrInvalidRequest):
			writeError(w, http.StatusBadRequest, "invalid token request", "invalid_request")
		case errors.Is(err, oauth.ErrInvalidClient):
			writeError(w, http.StatusUnauthorized, "invalid client credentials", "invalid_client")
		case errors.As(err, &grantErr):
			writeError(w, http.StatusBadRequest, "invalid grant", grantErr.Tag)
		default:
			slog.Error("token exchange failed", "error", err)
			writeError(w, http.StatusInternalServerError, "internal error", "internal")
		}
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// DiscoveryHandler implements GET /.well-known/openid-configuration.
// No jwks_uri is published: these are symmetric HMAC tokens, not
// publishable keys, so there is nothing for a relying party to fetch.
func (s *Server) DiscoveryHandler(issuer string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"issuer":                 issuer,
			"authorization_endpoint": issuer + "/oauth/authorize",
			"token_endpoint":         issuer + "/oauth/token",
			"userinfo_endpoint":      issuer + "/auth/me",
			"response_types_supported": []string{"code"},
			"grant_types_supported":    []string{"authorization_code"},
			"subject_types_supported":  []string{"public"},
			"id_token_signing_alg_values_supported": []string{"HS256"},
		})
	}
}
