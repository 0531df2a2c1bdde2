package domain

import "time"

// Role is a position in the platform's fixed role hierarchy.
type Role string

const (
	RoleSuperadmin Role = "superadmin"
	RoleAdmin      Role = "admin"
	RoleOrganizer  Role = "organizer"
)

// Status is the account lifecycle state. Users are never hard-deleted;
// suspension makes a user functionally unauthenticated for authorization
// purposes even while their session remains valid.
type Status string

const (
	StatusActive    Status = "active"
	StatusSuspended Status = "suspended"
	StatusPending   Status = "pending"
)

type User struct {
	ID               string
	Email            string // unique lookup key
	DisplayName      string
	PasswordHash     string // argon2 encoded; empty for OAuth-only accounts
	Role             Role   // defaults to organizer
	Status           Status // defaults to active
	SuspensionReason string
	OAuthSubject     string     // federated identity key (nullable in storage)
	TOTPSecret       *string    // base32 encoded (nullable)
	TOTPEnabledAt    *time.Time // set when 2FA setup completes (nullable)
	TOTPVerifiedAt   *time.Time // last successful 2FA verification (nullable)
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// TwoFactorEnabled reports whether 2FA setup has been completed.
// A stored secret without the enabled timestamp means setup is pending.
func (u User) TwoFactorEnabled() bool {
	return u.TOTPEnabledAt != nil
}

// TwoFactorPending reports whether setup has begun but not completed.
func (u User) TwoFactorPending() bool {
	return u.TOTPEnabledAt == nil && u.TOTPSecret != nil && *u.TOTPSecret != ""
}
