package http

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/expohall/expohall/internal/identity/service"
	"github.com/expohall/expohall/internal/identity/store"
	"github.com/expohall/expohall/pkg/httpx"
	"github.com/expohall/expohall/pkg/jwtx"
	"github.com/expohall/expohall/pkg/slogx"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	logger       *slog.Logger
	store        store.Store
	startTime    time.Time
	buildVersion string

	Resolver  *service.Resolver
	Accounts  *service.AccountService
	Sessions  *service.SessionService
	TwoFactor *service.TwoFactorService

	// AssertionVerifier checks federated ID tokens; nil disables the OAuth
	// login strategy.
	AssertionVerifier jwtx.Verifier

	Cookies CookieConfig
}

func NewRouter(st store.Store, logger *slog.Logger, buildVersion string) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		logger:       logger,
		store:        st,
		startTime:    time.Now(),
		buildVersion: buildVersion,
	}

	// Set default middleware chain
	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
	}

	return r
}

// ServeHTTP implements http.Handler for Router and applies the global
// middleware chain.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) ApplyRoutes() {
	r.registerAuth()
	r.registerTwoFactor()
	r.registerSystem()
}

func (r *Router) registerAuth() {
	h := &AuthHandler{
		Accounts:          r.Accounts,
		Sessions:          r.Sessions,
		Resolver:          r.Resolver,
		AssertionVerifier: r.AssertionVerifier,
		Cookies:           r.Cookies,
	}

	// Credential endpoints carry the strictest limits (brute force prevention)
	r.Mux.Handle("POST /api/auth/signup",
		httpx.Chain(http.HandlerFunc(h.HandleSignup),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)
	r.Mux.Handle("POST /api/auth/login",
		httpx.Chain(http.HandlerFunc(h.HandleLogin),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)
	r.Mux.Handle("POST /api/auth/oauth",
		httpx.Chain(http.HandlerFunc(h.HandleOAuth),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)

	r.Mux.Handle("POST /api/auth/refresh",
		httpx.Chain(http.HandlerFunc(h.HandleRefresh),
			httpx.RateLimitByIP(httpx.ModerateLimit),
		),
	)
	r.Mux.Handle("POST /api/auth/logout",
		httpx.Chain(http.HandlerFunc(h.HandleLogout),
			httpx.RateLimitByIP(httpx.ModerateLimit),
		),
	)
	r.Mux.Handle("GET /api/auth/me",
		httpx.Chain(http.HandlerFunc(h.HandleMe),
			r.withIdentity(),
			httpx.RateLimitByUser(httpx.LenientLimit),
		),
	)
}

func (r *Router) registerTwoFactor() {
	h := &TwoFactorHandler{
		TwoFactor:         r.TwoFactor,
		Resolver:          r.Resolver,
		AssertionVerifier: r.AssertionVerifier,
	}

	// Code-entry endpoints are strict per user to slow TOTP guessing
	r.Mux.Handle("POST /api/auth/2fa/setup",
		httpx.Chain(http.HandlerFunc(h.HandleBeginSetup),
			r.withIdentity(),
			httpx.RateLimitByUser(httpx.ModerateLimit),
		),
	)
	r.Mux.Handle("POST /api/auth/2fa/setup/complete",
		httpx.Chain(http.HandlerFunc(h.HandleCompleteSetup),
			r.withIdentity(),
			httpx.RateLimitByUser(httpx.StrictLimit),
		),
	)
	r.Mux.Handle("POST /api/auth/2fa/verify",
		httpx.Chain(http.HandlerFunc(h.HandleVerify),
			r.withIdentity(),
			httpx.RateLimitByUser(httpx.StrictLimit),
		),
	)
	r.Mux.Handle("DELETE /api/auth/2fa",
		httpx.Chain(http.HandlerFunc(h.HandleDisable),
			r.withIdentity(),
			httpx.RateLimitByUser(httpx.StrictLimit),
		),
	)
	r.Mux.Handle("POST /api/auth/2fa/backup-codes",
		httpx.Chain(http.HandlerFunc(h.HandleRegenerateBackupCodes),
			r.withIdentity(),
			httpx.RateLimitByUser(httpx.ModerateLimit),
		),
	)
}

func (r *Router) registerSystem() {
	// Health endpoints - lenient limits, monitoring systems poll these
	r.Mux.Handle("GET /livez",
		httpx.Chain(LivezHandler(r.startTime, r.buildVersion),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
	r.Mux.Handle("GET /readyz",
		httpx.Chain(ReadyzHandler(r.startTime, r.buildVersion, r.store),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
}

// withIdentity resolves the caller early so per-user rate limiting keys off
// the user id. Resolution failure is not fatal here; handlers decide what
// level of authentication they require.
func (r *Router) withIdentity() httpx.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			ctx := req.Context()
			creds := requestCredentials(req, r.AssertionVerifier)
			if user, ok, err := r.Resolver.Resolve(ctx, creds); err == nil && ok {
				ctx = httpx.ContextWithUserID(ctx, user.ID)
			}
			next.ServeHTTP(w, req.WithContext(ctx))
		})
	}
}

// requestCredentials extracts the optional identity inputs from a request: a
// bearer token or access cookie, and, when the bearer token verifies as a
// federated assertion, the assertion itself. The resolver applies its
// priority order.
func requestCredentials(req *http.Request, verifier jwtx.Verifier) service.Credentials {
	creds := service.Credentials{}

	raw := bearerToken(req)
	if raw == "" {
		if c, err := req.Cookie(AccessCookieName); err == nil {
			raw = c.Value
		}
	}
	creds.AccessToken = raw

	if raw != "" && verifier != nil {
		if claims, err := verifier.Verify(raw); err == nil {
			creds.Assertion = &service.OAuthAssertion{
				Subject: claims.Subject,
				Email:   claims.Email,
				Name:    claims.Name,
			}
		}
	}

	return creds
}

func bearerToken(req *http.Request) string {
	authz := req.Header.Get("Authorization")
	if authz == "" || !strings.HasPrefix(authz, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(authz, "Bearer"))
}
