package cryptox

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
)

// Token size constants (in bytes before encoding).
const (
	// TokenSize128 provides 128 bits of entropy (22 chars base64url).
	TokenSize128 = 16
	// TokenSize256 provides 256 bits of entropy (43 chars base64url).
	TokenSize256 = 32
)

// SaltSize is the byte length of salts used by FingerprintSalted.
const SaltSize = 16

// GenerateToken creates a cryptographically secure random token of the
// specified byte length, returned as a base64url string (no padding).
//
// Common sizes:
//   - TokenSize128 (16 bytes): short-lived tokens
//   - TokenSize256 (32 bytes): session access/refresh tokens (recommended)
func GenerateToken(size int) (string, error) {
	if size <= 0 {
		return "", fmt.Errorf("token size must be positive, got %d", size)
	}

	buf := make([]byte, size)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate random token: %w", err)
	}

	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// FingerprintToken returns a deterministic SHA-256 fingerprint of a token.
// Stored instead of the raw token so the database can look tokens up without
// ever holding the original value. Only suitable for high-entropy inputs.
//
// The fingerprint is returned as a base64url-encoded string (43 chars).
func FingerprintToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

// GenerateSalt returns a random salt for FingerprintSalted, base64url encoded.
func GenerateSalt() (string, error) {
	return GenerateToken(SaltSize)
}

// FingerprintSalted returns a salted SHA-256 digest of a low-entropy value
// (e.g. a backup code). Unlike FingerprintToken the result cannot serve as a
// lookup key; verification recomputes per stored salt and compares.
func FingerprintSalted(salt, value string) string {
	sum := sha256.Sum256([]byte(salt + value))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

// FingerprintEqual compares two fingerprints in constant time.
func FingerprintEqual(a, b string) bool {
	return hmac.Equal([]byte(a), []byte(b))
}
