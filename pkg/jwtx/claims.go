package jwtx

import (
	"slices"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// IdentityClaims are the claims carried by a federated login assertion (an
// externally issued OIDC-style ID token). The subject is the federated
// identity key; email and name seed first-login user materialization.
type IdentityClaims struct {
	jwt.RegisteredClaims

	// Email for the federated account; used to seed the user record.
	Email string `json:"email,omitempty"`

	// Name is the display name asserted by the identity provider.
	Name string `json:"name,omitempty"`
}

// ValidateIssuer checks if the issuer matches expected value.
func (c *IdentityClaims) ValidateIssuer(expected string) error {
	if expected == "" {
		return nil
	}
	if c.Issuer != expected {
		return ErrIssuer
	}
	return nil
}

// ValidateAudience checks that the token contains every expected audience.
func (c *IdentityClaims) ValidateAudience(expected []string) error {
	for _, want := range expected {
		if !slices.Contains(c.Audience, want) {
			return ErrAudience
		}
	}
	return nil
}

// ValidateExpiry checks exp/nbf against the current time with the given leeway.
func (c *IdentityClaims) ValidateExpiry(leeway time.Duration) error {
	now := time.Now()
	if c.ExpiresAt != nil && now.After(c.ExpiresAt.Time.Add(leeway)) {
		return ErrExpired
	}
	if c.NotBefore != nil && now.Add(leeway).Before(c.NotBefore.Time) {
		return ErrNotYetValid
	}
	return nil
}
