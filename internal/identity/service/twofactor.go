package service

import (
	"context"
	"fmt"
	"time"

	"github.com/expohall/expohall/internal/identity/domain"
	"github.com/expohall/expohall/internal/identity/store"
	"github.com/expohall/expohall/pkg/slogx"
	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

const (
	totpPeriod = 30 // seconds per time step, per RFC 6238

	// totpSecretBytes gives 160 bits of entropy, i.e. 32 base32 characters.
	totpSecretBytes = 20

	// totpSkew accepts codes from the adjacent time step on each side.
	// Authenticator and server clocks drift by seconds to tens of seconds;
	// one step of tolerance covers that without widening the window further.
	totpSkew = 1

	totpDigitCount = 6
)

// TwoFactorService drives the per-user 2FA state machine:
// Disabled -> PendingVerification -> Enabled -> Disabled.
type TwoFactorService struct {
	Store  store.Store
	Vault  *Vault
	Audit  Audit
	Issuer string // issuer label in provisioning URIs, e.g. "ExpoHall"
}

// BeginSetup generates a fresh TOTP secret for the user and returns it with
// an otpauth:// provisioning URI. 2FA is not enabled until CompleteSetup
// verifies a code; restarting setup before then replaces the pending secret.
func (s *TwoFactorService) BeginSetup(ctx context.Context, userID string) (domain.TwoFactorSetup, error) {
	user, err := s.Store.Users().GetUserByID(ctx, userID)
	if err != nil {
		return domain.TwoFactorSetup{}, fmt.Errorf("load user: %w", err)
	}
	if user.TwoFactorEnabled() {
		return domain.TwoFactorSetup{}, ErrAlreadyEnabled
	}

	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      s.Issuer,
		AccountName: user.Email,
		Period:      totpPeriod,
		SecretSize:  totpSecretBytes,
		Digits:      otp.DigitsSix,
		Algorithm:   otp.AlgorithmSHA1,
	})
	if err != nil {
		return domain.TwoFactorSetup{}, fmt.Errorf("generate totp key: %w", err)
	}

	if err := s.Store.Users().UpdateTOTPSecret(ctx, userID, key.Secret()); err != nil {
		return domain.TwoFactorSetup{}, fmt.Errorf("store totp secret: %w", err)
	}

	return domain.TwoFactorSetup{
		Secret:     key.Secret(),
		OTPAuthURL: key.URL(),
		Issuer:     s.Issuer,
		Account:    user.Email,
	}, nil
}

// CompleteSetup verifies the first code against the pending secret and, on
// success, enables 2FA and issues a fresh backup-code set in one
// transaction. An invalid code mutates nothing.
func (s *TwoFactorService) CompleteSetup(ctx context.Context, userID, code string) ([]string, error) {
	user, err := s.Store.Users().GetUserByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	if user.TwoFactorEnabled() {
		return nil, ErrAlreadyEnabled
	}
	if !user.TwoFactorPending() {
		return nil, ErrNotStarted
	}

	if !validTOTPCode(code, *user.TOTPSecret, time.Now()) {
		return nil, ErrInvalidCode
	}

	var backupCodes []string
	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		backupCodes, err = s.Vault.Replace(ctx, tx, userID)
		if err != nil {
			return err
		}
		return tx.Users().EnableTOTP(ctx, userID)
	})
	if err != nil {
		return nil, err
	}

	s.Audit.Record(ctx, domain.AuditEvent{Action: domain.AuditTwoFactorEnabled, UserID: userID})
	slogx.FromContext(ctx).Info("two-factor enabled", "user_id", userID)

	return backupCodes, nil
}

// Verify checks a login-time or step-up credential: a 6-digit TOTP code or
// an 8-character backup code, told apart by length after normalization.
// Either path records the verification time on success.
func (s *TwoFactorService) Verify(ctx context.Context, userID, code string) (domain.TwoFactorVerification, error) {
	user, err := s.Store.Users().GetUserByID(ctx, userID)
	if err != nil {
		return domain.TwoFactorVerification{}, fmt.Errorf("load user: %w", err)
	}
	if !user.TwoFactorEnabled() || user.TOTPSecret == nil {
		return domain.TwoFactorVerification{}, ErrNotStarted
	}

	normalized := NormalizeBackupCode(code)

	switch len(normalized) {
	case totpDigitCount:
		if !validTOTPCode(normalized, *user.TOTPSecret, time.Now()) {
			return domain.TwoFactorVerification{}, ErrInvalidCode
		}
		if err := s.Store.Users().TouchTOTPVerified(ctx, userID, time.Now().UTC()); err != nil {
			return domain.TwoFactorVerification{}, fmt.Errorf("record verification: %w", err)
		}
		return domain.TwoFactorVerification{Method: domain.VerifyMethodTOTP}, nil

	case BackupCodeLength:
		var remaining int
		err := s.Store.WithTx(ctx, func(tx store.Tx) error {
			remaining, err = s.Vault.Consume(ctx, tx, userID, normalized)
			if err != nil {
				return err
			}
			return tx.Users().TouchTOTPVerified(ctx, userID, time.Now().UTC())
		})
		if err != nil {
			return domain.TwoFactorVerification{}, err
		}
		slogx.FromContext(ctx).Info("backup code redeemed",
			"user_id", userID, "remaining", remaining)
		return domain.TwoFactorVerification{
			Method:               domain.VerifyMethodBackupCode,
			BackupCodesRemaining: remaining,
		}, nil

	default:
		return domain.TwoFactorVerification{}, ErrInvalidCode
	}
}

// Disable turns 2FA off after a successful verification, clearing the
// secret, the enabled flag and every backup code in one transaction.
func (s *TwoFactorService) Disable(ctx context.Context, userID, code string) error {
	if _, err := s.Verify(ctx, userID, code); err != nil {
		return err
	}

	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.BackupCodes().DeleteAllBackupCodes(ctx, userID); err != nil {
			return fmt.Errorf("clear backup codes: %w", err)
		}
		return tx.Users().DisableTOTP(ctx, userID)
	})
	if err != nil {
		return err
	}

	s.Audit.Record(ctx, domain.AuditEvent{Action: domain.AuditTwoFactorDisabled, UserID: userID})
	slogx.FromContext(ctx).Info("two-factor disabled", "user_id", userID)
	return nil
}

// RegenerateBackupCodes replaces the whole recovery set after a successful
// verification. Every previously issued code stops working, including the
// one that just authorized the regeneration.
func (s *TwoFactorService) RegenerateBackupCodes(ctx context.Context, userID, code string) ([]string, error) {
	if _, err := s.Verify(ctx, userID, code); err != nil {
		return nil, err
	}

	var backupCodes []string
	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		var err error
		backupCodes, err = s.Vault.Replace(ctx, tx, userID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.Audit.Record(ctx, domain.AuditEvent{Action: domain.AuditBackupCodesRegenerated, UserID: userID})
	return backupCodes, nil
}

// validTOTPCode runs the RFC 6238 computation over the shared secret and
// accepts a match in the current step or one adjacent step on either side.
func validTOTPCode(code, secret string, at time.Time) bool {
	valid, err := totp.ValidateCustom(code, secret, at.UTC(), totp.ValidateOpts{
		Period:    totpPeriod,
		Skew:      totpSkew,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	})
	if err != nil {
		return false
	}
	return valid
}
