package http

import (
	"net/http"
	"time"

	"github.com/expohall/expohall/internal/identity/domain"
)

const (
	// AccessCookieName carries the access token for browser callers.
	AccessCookieName = "eh_access"

	// RefreshCookieName carries the refresh token, path-scoped so it is only
	// ever sent to the auth endpoints.
	RefreshCookieName = "eh_refresh"

	refreshCookiePath = "/api/auth"
)

// CookieConfig controls the transport attributes of session cookies.
// HttpOnly and SameSite are not configurable: page scripts must never read
// tokens, which is the mitigation against theft via script injection.
type CookieConfig struct {
	Domain string
	Secure bool
}

// setSessionCookies writes the token pair as httpOnly cookies.
func setSessionCookies(w http.ResponseWriter, cfg CookieConfig, tokens domain.SessionTokens) {
	now := time.Now()

	http.SetCookie(w, &http.Cookie{
		Name:     AccessCookieName,
		Value:    tokens.AccessToken,
		Path:     "/",
		Domain:   cfg.Domain,
		HttpOnly: true,
		Secure:   cfg.Secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(tokens.AccessExpiresAt.Sub(now).Seconds()),
	})

	http.SetCookie(w, &http.Cookie{
		Name:     RefreshCookieName,
		Value:    tokens.RefreshToken,
		Path:     refreshCookiePath,
		Domain:   cfg.Domain,
		HttpOnly: true,
		Secure:   cfg.Secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(tokens.RefreshExpiresAt.Sub(now).Seconds()),
	})
}

// clearSessionCookies expires both cookies on logout.
func clearSessionCookies(w http.ResponseWriter, cfg CookieConfig) {
	http.SetCookie(w, &http.Cookie{
		Name:     AccessCookieName,
		Value:    "",
		Path:     "/",
		Domain:   cfg.Domain,
		HttpOnly: true,
		Secure:   cfg.Secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})

	http.SetCookie(w, &http.Cookie{
		Name:     RefreshCookieName,
		Value:    "",
		Path:     refreshCookiePath,
		Domain:   cfg.Domain,
		HttpOnly: true,
		Secure:   cfg.Secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})
}
