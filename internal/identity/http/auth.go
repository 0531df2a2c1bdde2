package http

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/expohall/expohall/internal/identity/service"
	"github.com/expohall/expohall/pkg/httpx"
	"github.com/expohall/expohall/pkg/jwtx"
)

// AuthHandler serves the account and session endpoints.
type AuthHandler struct {
	Accounts          *service.AccountService
	Sessions          *service.SessionService
	Resolver          *service.Resolver
	AssertionVerifier jwtx.Verifier
	Cookies           CookieConfig
}

type signupRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

// HandleSignup registers a password account and starts a session.
//
//	POST /api/auth/signup
func (h *AuthHandler) HandleSignup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}

	req.Email = strings.TrimSpace(req.Email)
	if req.Email == "" || req.Password == "" {
		writeBadRequest(w, "email and password are required")
		return
	}

	user, tokens, err := h.Accounts.Signup(r.Context(), req.Email, req.Password, req.Name)
	if err != nil {
		writeError(w, r, err)
		return
	}

	setSessionCookies(w, h.Cookies, tokens)
	httpx.WriteJSON(w, http.StatusCreated, sessionBody{
		User:        toUserBody(user),
		AccessToken: tokens.AccessToken,
	})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// HandleLogin authenticates a password account.
//
//	POST /api/auth/login
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}

	user, tokens, err := h.Accounts.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}

	setSessionCookies(w, h.Cookies, tokens)
	httpx.WriteJSON(w, http.StatusOK, sessionBody{
		User:        toUserBody(user),
		AccessToken: tokens.AccessToken,
	})
}

type oauthRequest struct {
	IDToken string `json:"idToken"`
}

// HandleOAuth exchanges a federated ID token for a first-party session. The
// account is materialized on first sight of the subject.
//
//	POST /api/auth/oauth
func (h *AuthHandler) HandleOAuth(w http.ResponseWriter, r *http.Request) {
	if h.AssertionVerifier == nil {
		writeError(w, r, service.ErrUnauthenticated)
		return
	}

	var req oauthRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}

	claims, err := h.AssertionVerifier.Verify(req.IDToken)
	if err != nil {
		writeError(w, r, service.ErrUnauthenticated)
		return
	}

	user, err := h.Resolver.RequireUser(r.Context(), service.Credentials{
		Assertion: &service.OAuthAssertion{
			Subject: claims.Subject,
			Email:   claims.Email,
			Name:    claims.Name,
		},
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	tokens, err := h.Sessions.Issue(r.Context(), user.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	setSessionCookies(w, h.Cookies, tokens)
	httpx.WriteJSON(w, http.StatusOK, sessionBody{
		User:        toUserBody(*user),
		AccessToken: tokens.AccessToken,
	})
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// HandleRefresh rotates a session. The refresh token comes from the
// path-scoped cookie when present, else from the request body. Losing a
// rotation race reads as an expired session.
//
//	POST /api/auth/refresh
func (h *AuthHandler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	raw := ""
	if c, err := r.Cookie(RefreshCookieName); err == nil {
		raw = c.Value
	}
	if raw == "" {
		var req refreshRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err == nil {
			raw = req.RefreshToken
		}
	}
	if raw == "" {
		writeError(w, r, service.ErrUnauthenticated)
		return
	}

	tokens, userID, err := h.Sessions.Refresh(r.Context(), raw)
	if err != nil {
		clearSessionCookies(w, h.Cookies)
		writeError(w, r, err)
		return
	}

	user, err := h.Accounts.GetUser(r.Context(), userID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	setSessionCookies(w, h.Cookies, tokens)
	httpx.WriteJSON(w, http.StatusOK, sessionBody{
		User:        toUserBody(user),
		AccessToken: tokens.AccessToken,
	})
}

// HandleLogout revokes the presented session and clears cookies. Revocation
// is idempotent so a stale cookie still logs out cleanly.
//
//	POST /api/auth/logout
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	creds := requestCredentials(r, nil)
	if creds.AccessToken != "" {
		if err := h.Sessions.Revoke(r.Context(), creds.AccessToken); err != nil {
			writeError(w, r, err)
			return
		}
	}

	clearSessionCookies(w, h.Cookies)
	w.WriteHeader(http.StatusNoContent)
}

// HandleMe returns the resolved caller.
//
//	GET /api/auth/me
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	user, err := h.Resolver.RequireUser(r.Context(), requestCredentials(r, h.AssertionVerifier))
	if err != nil {
		writeError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, toUserBody(*user))
}

func writeBadRequest(w http.ResponseWriter, msg string) {
	httpx.WriteJSON(w, http.StatusBadRequest, errorBody{
		Error:  msg,
		Code:   service.CodeBadRequest,
		Status: http.StatusBadRequest,
	})
}
