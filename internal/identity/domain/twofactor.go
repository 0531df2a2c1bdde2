package domain

// TwoFactorSetup is returned when 2FA enrollment begins. This is the only
// response that ever carries the raw secret.
type TwoFactorSetup struct {
	Secret     string // base32 encoded, 160-bit
	OTPAuthURL string // otpauth:// provisioning URI for authenticator apps
	Issuer     string
	Account    string // user email
}

// BackupCode is a stored (hashed) single-use recovery credential. The raw
// code is shown to the user exactly once, at generation time.
type BackupCode struct {
	ID       string
	UserID   string
	Salt     string
	CodeHash string // salted SHA-256 of the normalized code
}

// VerifyMethod names which credential satisfied a 2FA check.
type VerifyMethod string

const (
	VerifyMethodTOTP       VerifyMethod = "totp"
	VerifyMethodBackupCode VerifyMethod = "backup_code"
)

// TwoFactorVerification reports a successful 2FA check.
type TwoFactorVerification struct {
	Method VerifyMethod
	// BackupCodesRemaining is set when Method is backup_code.
	BackupCodesRemaining int
}
