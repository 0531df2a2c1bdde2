package domain

import "time"

// AuditAction names a security-relevant event for append-only recording.
type AuditAction string

const (
	AuditTwoFactorEnabled       AuditAction = "twofactor_enabled"
	AuditTwoFactorDisabled      AuditAction = "twofactor_disabled"
	AuditBackupCodesRegenerated AuditAction = "backup_codes_regenerated"
)

type AuditEvent struct {
	Action     AuditAction
	UserID     string
	OccurredAt time.Time
}
