package store

import (
	"context"
	"errors"
	"time"

	"github.com/expohall/expohall/internal/identity/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the root data access interface. Concrete drivers (sqlite for now)
// implement this. It exposes sub-repositories to keep concerns tidy and
// testable, and a WithTx helper for the two operations that must be atomic:
// session token rotation and backup-code consumption.
type Store interface {
	Users() Users
	Sessions() Sessions
	BackupCodes() BackupCodes

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// The caller MUST call Commit() or Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx executes a function within a transaction.
	// If fn returns an error, the transaction is rolled back.
	// If fn returns nil, the transaction is committed.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	// Close releases any underlying resources.
	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transactional store. It embeds the same repos but adds Commit/Rollback.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

type Users interface {
	// GetUserByID returns a user by id.
	GetUserByID(ctx context.Context, id string) (domain.User, error)

	// GetUserByEmail is used during password login and signup uniqueness checks.
	GetUserByEmail(ctx context.Context, email string) (domain.User, error)

	// GetUserByOAuthSubject resolves a federated identity to its user record.
	GetUserByOAuthSubject(ctx context.Context, subject string) (domain.User, error)

	// CreateUser inserts a new user (id is provided by app via ULID).
	CreateUser(ctx context.Context, u domain.User) error

	// UpdateProfile mutates display_name and bumps updated_at.
	UpdateProfile(ctx context.Context, userID, displayName string) error

	// UpdateRole changes a user's role.
	UpdateRole(ctx context.Context, userID string, role domain.Role) error

	// UpdateStatus changes lifecycle status; reason applies to suspension.
	UpdateStatus(ctx context.Context, userID string, status domain.Status, reason string) error

	// UpdateTOTPSecret stores a pending (not yet enabled) 2FA secret.
	UpdateTOTPSecret(ctx context.Context, userID, secret string) error

	// EnableTOTP marks 2FA enabled (sets totp_enabled_at).
	EnableTOTP(ctx context.Context, userID string) error

	// DisableTOTP clears the secret, the enabled flag and the verification timestamp.
	DisableTOTP(ctx context.Context, userID string) error

	// TouchTOTPVerified records a successful 2FA verification time.
	TouchTOTPVerified(ctx context.Context, userID string, at time.Time) error
}

type Sessions interface {
	// CreateSession stores a new session record.
	CreateSession(ctx context.Context, s domain.Session) error

	// GetSessionByAccessHash returns the session matching an access-token fingerprint.
	GetSessionByAccessHash(ctx context.Context, hash string) (domain.Session, error)

	// GetSessionByRefreshHash returns the session matching a refresh-token fingerprint.
	GetSessionByRefreshHash(ctx context.Context, hash string) (domain.Session, error)

	// RotateSession atomically replaces the token pair of the session that
	// still holds oldRefreshHash. Returns ErrNotFound when another rotation
	// already consumed it, which is how the loser of a refresh race fails.
	RotateSession(ctx context.Context, oldRefreshHash string, s domain.Session) error

	// DeleteSessionByAccessHash revokes a session (logout). Idempotent.
	DeleteSessionByAccessHash(ctx context.Context, hash string) error

	// DeleteSessionsByUser revokes every session a user owns.
	DeleteSessionsByUser(ctx context.Context, userID string) error

	// DeleteExpiredSessions removes sessions whose refresh expiry has passed.
	DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error)
}

type BackupCodes interface {
	// CreateBackupCode stores one hashed backup code for a user.
	CreateBackupCode(ctx context.Context, code domain.BackupCode) error

	// ListBackupCodes returns all stored codes for a user, oldest first.
	ListBackupCodes(ctx context.Context, userID string) ([]domain.BackupCode, error)

	// DeleteBackupCode removes a single code by id after redemption.
	// Returns ErrNotFound when a concurrent redemption already removed it.
	DeleteBackupCode(ctx context.Context, id string) error

	// DeleteAllBackupCodes removes every code for a user.
	DeleteAllBackupCodes(ctx context.Context, userID string) error

	// CountBackupCodes returns the number of codes a user has left.
	CountBackupCodes(ctx context.Context, userID string) (int, error)
}
