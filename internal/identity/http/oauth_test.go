package http

import (
	"crypto/ed25519"
	"crypto/rand"
	"net/http"
	"testing"
	"time"

	"github.com/expohall/expohall/internal/identity/service"
	"github.com/expohall/expohall/pkg/jwtx"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

const (
	testIDPIssuer   = "https://id.example.com"
	testIDPAudience = "expohall"
)

func signIDToken(t *testing.T, priv ed25519.PrivateKey, subject, email, name string) string {
	t.Helper()

	now := time.Now()
	claims := jwtx.IdentityClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    testIDPIssuer,
			Subject:   subject,
			Audience:  jwt.ClaimStrings{testIDPAudience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(5 * time.Minute)),
		},
		Email: email,
		Name:  name,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims).SignedString(priv)
	require.NoError(t, err)
	return signed
}

func TestHandleOAuth(t *testing.T) {
	t.Parallel()

	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	router, _ := newUnroutedRouter(t)
	router.AssertionVerifier = jwtx.NewPublicKeyVerifier(pub, testIDPIssuer, []string{testIDPAudience})
	router.ApplyRoutes()

	idToken := signIDToken(t, priv, "idp|alice", "alice@example.com", "Alice")

	w := do(t, router, testRequest{
		method: http.MethodPost,
		path:   "/api/auth/oauth",
		body:   map[string]string{"idToken": idToken},
	})
	require.Equal(t, http.StatusOK, w.Code)

	body := decodeBody[sessionBody](t, w)
	require.Equal(t, "alice@example.com", body.User.Email)
	require.Equal(t, "organizer", body.User.Role)
	require.NotEmpty(t, body.AccessToken)
	require.NotNil(t, cookieByName(w.Result().Cookies(), AccessCookieName))

	t.Run("issued session is first-party", func(t *testing.T) {
		w := do(t, router, testRequest{
			method: http.MethodGet,
			path:   "/api/auth/me",
			bearer: body.AccessToken,
		})
		require.Equal(t, http.StatusOK, w.Code)
		require.Equal(t, body.User.ID, decodeBody[userBody](t, w).ID)
	})

	t.Run("second login reuses the account", func(t *testing.T) {
		w := do(t, router, testRequest{
			method: http.MethodPost,
			path:   "/api/auth/oauth",
			body:   map[string]string{"idToken": signIDToken(t, priv, "idp|alice", "alice@example.com", "Alice")},
			ip:     "203.0.113.20",
		})
		require.Equal(t, http.StatusOK, w.Code)
		require.Equal(t, body.User.ID, decodeBody[sessionBody](t, w).User.ID)
	})

	t.Run("assertion bearer token resolves directly", func(t *testing.T) {
		w := do(t, router, testRequest{
			method: http.MethodGet,
			path:   "/api/auth/me",
			bearer: idToken,
		})
		require.Equal(t, http.StatusOK, w.Code)
		require.Equal(t, body.User.ID, decodeBody[userBody](t, w).ID)
	})

	t.Run("garbage token is unauthorized", func(t *testing.T) {
		w := do(t, router, testRequest{
			method: http.MethodPost,
			path:   "/api/auth/oauth",
			body:   map[string]string{"idToken": "garbage"},
			ip:     "203.0.113.21",
		})
		require.Equal(t, http.StatusUnauthorized, w.Code)
		require.Equal(t, service.CodeUnauthenticated, errorCode(t, w))
	})

	t.Run("token signed by another key is unauthorized", func(t *testing.T) {
		_, otherPriv, err := ed25519.GenerateKey(rand.Reader)
		require.NoError(t, err)

		w := do(t, router, testRequest{
			method: http.MethodPost,
			path:   "/api/auth/oauth",
			body:   map[string]string{"idToken": signIDToken(t, otherPriv, "idp|mallory", "mallory@example.com", "Mallory")},
			ip:     "203.0.113.22",
		})
		require.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestHandleOAuthDisabled(t *testing.T) {
	t.Parallel()

	router, _ := newTestRouter(t)

	w := do(t, router, testRequest{
		method: http.MethodPost,
		path:   "/api/auth/oauth",
		body:   map[string]string{"idToken": "anything"},
	})
	require.Equal(t, http.StatusUnauthorized, w.Code)
}
