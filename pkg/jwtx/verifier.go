package jwtx

import (
	"crypto"
	"crypto/ed25519"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrMalformed   = errors.New("jwtx: malformed token")
	ErrAlgMismatch = errors.New("jwtx: algorithm mismatch")
	ErrInvalidSig  = errors.New("jwtx: invalid signature")

	ErrIssuer      = errors.New("jwtx: issuer mismatch")
	ErrAudience    = errors.New("jwtx: audience mismatch")
	ErrExpired     = errors.New("jwtx: token expired")
	ErrNotYetValid = errors.New("jwtx: token not yet valid")
)

// Verifier validates a federated login assertion and returns its claims.
type Verifier interface {
	Verify(token string) (IdentityClaims, error)
}

// PublicKeyVerifier checks assertions against a pinned identity-provider
// public key (Ed25519 or RSA). Issuer and audience are enforced when set.
type PublicKeyVerifier struct {
	key      crypto.PublicKey
	issuer   string
	audience []string

	// Leeway allows small clock skew when validating exp/nbf.
	// Because time sync is never perfect.
	Leeway time.Duration
}

// NewPublicKeyVerifier creates a verifier from an already-parsed public key.
func NewPublicKeyVerifier(key crypto.PublicKey, issuer string, audience []string) *PublicKeyVerifier {
	return &PublicKeyVerifier{
		key:      key,
		issuer:   issuer,
		audience: audience,
		Leeway:   30 * time.Second,
	}
}

// NewPublicKeyVerifierFromFile loads a PEM encoded public key
// (PKIX "PUBLIC KEY" block) and builds a verifier around it.
func NewPublicKeyVerifierFromFile(path, issuer string, audience []string) (*PublicKeyVerifier, error) {
	raw, err := os.ReadFile(path) // #nosec G304 - operator-supplied config path
	if err != nil {
		return nil, fmt.Errorf("jwtx: read public key: %w", err)
	}

	block, _ := pem.Decode(raw)
	if block == nil {
		return nil, errors.New("jwtx: no PEM block in public key file")
	}

	key, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("jwtx: parse public key: %w", err)
	}

	switch key.(type) {
	case ed25519.PublicKey, *rsa.PublicKey:
		return NewPublicKeyVerifier(key, issuer, audience), nil
	default:
		return nil, fmt.Errorf("jwtx: unsupported public key type %T", key)
	}
}

// Verify parses and validates the assertion, returning its identity claims.
func (v *PublicKeyVerifier) Verify(tokenStr string) (IdentityClaims, error) {
	methods := []string{jwt.SigningMethodEdDSA.Alg(), jwt.SigningMethodRS256.Alg()}
	parser := jwt.NewParser(jwt.WithValidMethods(methods))

	token, err := parser.ParseWithClaims(tokenStr, &IdentityClaims{}, func(t *jwt.Token) (any, error) {
		switch t.Method.(type) {
		case *jwt.SigningMethodEd25519:
			if pub, ok := v.key.(ed25519.PublicKey); ok {
				return pub, nil
			}
		case *jwt.SigningMethodRSA:
			if pub, ok := v.key.(*rsa.PublicKey); ok {
				return pub, nil
			}
		}
		return nil, ErrAlgMismatch
	})
	if err != nil {
		return IdentityClaims{}, fmt.Errorf("%w: %w", ErrMalformed, err)
	}

	claims, ok := token.Claims.(*IdentityClaims)
	if !ok || !token.Valid {
		return IdentityClaims{}, ErrInvalidSig
	}

	if err := claims.ValidateIssuer(v.issuer); err != nil {
		return IdentityClaims{}, err
	}
	if err := claims.ValidateAudience(v.audience); err != nil {
		return IdentityClaims{}, err
	}
	if err := claims.ValidateExpiry(v.Leeway); err != nil {
		return IdentityClaims{}, err
	}
	if claims.Subject == "" {
		return IdentityClaims{}, ErrMalformed
	}

	return *claims, nil
}
