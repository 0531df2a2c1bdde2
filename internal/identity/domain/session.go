package domain

import "time"

// Session is a first-party login. Raw tokens are never stored; the record
// holds deterministic fingerprints used as indexed lookup keys.
// Invariant: AccessExpiresAt <= RefreshExpiresAt.
type Session struct {
	ID               string
	UserID           string // exclusive ownership
	AccessTokenHash  string
	AccessExpiresAt  time.Time
	RefreshTokenHash string
	RefreshExpiresAt time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// SessionTokens is what issuance and refresh return to the caller: the only
// time the raw token pair exists outside the client.
type SessionTokens struct {
	SessionID        string    `json:"-"`
	AccessToken      string    `json:"accessToken"`
	AccessExpiresAt  time.Time `json:"accessExpiresAt"`
	RefreshToken     string    `json:"refreshToken"`
	RefreshExpiresAt time.Time `json:"refreshExpiresAt"`
}
