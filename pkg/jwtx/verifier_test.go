package jwtx

import (
	"crypto/ed25519"
	"crypto/rand"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func signAssertion(t *testing.T, priv ed25519.PrivateKey, claims IdentityClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims)
	signed, err := token.SignedString(priv)
	require.NoError(t, err)
	return signed
}

func baseClaims(now time.Time) IdentityClaims {
	return IdentityClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "https://id.example.com",
			Subject:   "federated-subject-1",
			Audience:  jwt.ClaimStrings{"expohall"},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(5 * time.Minute)),
		},
		Email: "alice@example.com",
		Name:  "Alice",
	}
}

func TestPublicKeyVerifier(t *testing.T) {
	t.Parallel()

	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	v := NewPublicKeyVerifier(pub, "https://id.example.com", []string{"expohall"})

	t.Run("accepts a valid assertion", func(t *testing.T) {
		claims, err := v.Verify(signAssertion(t, priv, baseClaims(time.Now())))
		require.NoError(t, err)
		require.Equal(t, "federated-subject-1", claims.Subject)
		require.Equal(t, "alice@example.com", claims.Email)
	})

	t.Run("rejects a wrong issuer", func(t *testing.T) {
		c := baseClaims(time.Now())
		c.Issuer = "https://evil.example.com"
		_, err := v.Verify(signAssertion(t, priv, c))
		require.ErrorIs(t, err, ErrIssuer)
	})

	t.Run("rejects a missing audience", func(t *testing.T) {
		c := baseClaims(time.Now())
		c.Audience = jwt.ClaimStrings{"other-service"}
		_, err := v.Verify(signAssertion(t, priv, c))
		require.ErrorIs(t, err, ErrAudience)
	})

	t.Run("rejects an expired assertion", func(t *testing.T) {
		c := baseClaims(time.Now().Add(-time.Hour))
		_, err := v.Verify(signAssertion(t, priv, c))
		require.Error(t, err)
	})

	t.Run("rejects a token signed with another key", func(t *testing.T) {
		_, otherPriv, err := ed25519.GenerateKey(rand.Reader)
		require.NoError(t, err)
		_, err = v.Verify(signAssertion(t, otherPriv, baseClaims(time.Now())))
		require.Error(t, err)
	})

	t.Run("rejects a subjectless assertion", func(t *testing.T) {
		c := baseClaims(time.Now())
		c.Subject = ""
		_, err := v.Verify(signAssertion(t, priv, c))
		require.ErrorIs(t, err, ErrMalformed)
	})

	t.Run("rejects garbage", func(t *testing.T) {
		_, err := v.Verify("not.a.jwt")
		require.ErrorIs(t, err, ErrMalformed)
	})
}
