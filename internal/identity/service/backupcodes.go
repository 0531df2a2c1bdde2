package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/expohall/expohall/internal/identity/domain"
	"github.com/expohall/expohall/internal/identity/store"
	"github.com/expohall/expohall/pkg/cryptox"
	"github.com/expohall/expohall/pkg/idx"
)

const (
	// BackupCodeCount is the fixed size of a freshly issued recovery set.
	BackupCodeCount = 10

	// BackupCodeLength is the normalized length of one code.
	BackupCodeLength = 8

	// backupCodeAlphabet avoids visually ambiguous characters (0/O, 1/I/L)
	// since users transcribe these by hand.
	backupCodeAlphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"
)

// Vault generates, hashes and redeems single-use backup codes. Raw codes are
// returned to the caller exactly once at generation time; storage only ever
// holds salted digests.
type Vault struct {
	Store store.Store
}

// NormalizeBackupCode strips presentation formatting (the XXXX-XXXX grouping,
// stray spaces) and uppercases, so user input matches generated form.
func NormalizeBackupCode(code string) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(code) {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// FormatBackupCode groups a normalized code for display: "ABCD-EFGH".
func FormatBackupCode(code string) string {
	if len(code) != BackupCodeLength {
		return code
	}
	return code[:4] + "-" + code[4:]
}

// generateBackupCode draws one normalized code from the unambiguous alphabet.
func generateBackupCode() (string, error) {
	b := make([]byte, BackupCodeLength)
	for i := range b {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(backupCodeAlphabet))))
		if err != nil {
			return "", fmt.Errorf("generate backup code: %w", err)
		}
		b[i] = backupCodeAlphabet[n.Int64()]
	}
	return string(b), nil
}

// generateBackupCodes produces a full set of normalized raw codes.
func generateBackupCodes() ([]string, error) {
	codes := make([]string, BackupCodeCount)
	for i := range codes {
		code, err := generateBackupCode()
		if err != nil {
			return nil, err
		}
		codes[i] = code
	}
	return codes, nil
}

// Replace regenerates the user's whole recovery set inside tx, invalidating
// every previously issued code. Returns the raw codes in display form.
func (v *Vault) Replace(ctx context.Context, tx store.Tx, userID string) ([]string, error) {
	codes, err := generateBackupCodes()
	if err != nil {
		return nil, err
	}

	if err := tx.BackupCodes().DeleteAllBackupCodes(ctx, userID); err != nil {
		return nil, fmt.Errorf("clear old backup codes: %w", err)
	}

	display := make([]string, len(codes))
	for i, code := range codes {
		salt, err := cryptox.GenerateSalt()
		if err != nil {
			return nil, err
		}

		record := domain.BackupCode{
			ID:       idx.New().String(),
			UserID:   userID,
			Salt:     salt,
			CodeHash: cryptox.FingerprintSalted(salt, code),
		}
		if err := tx.BackupCodes().CreateBackupCode(ctx, record); err != nil {
			return nil, fmt.Errorf("store backup code: %w", err)
		}

		display[i] = FormatBackupCode(code)
	}

	return display, nil
}

// Consume redeems one backup code inside tx: a linear scan over the stored
// digests with a constant-time compare, then deletion of the matched row in
// the same transaction as the success decision. Two concurrent redemptions
// of the same code end with exactly one success; the loser's delete matches
// nothing and reports InvalidBackupCode. Returns the number of codes left.
func (v *Vault) Consume(ctx context.Context, tx store.Tx, userID, rawCode string) (int, error) {
	code := NormalizeBackupCode(rawCode)
	if len(code) != BackupCodeLength {
		return 0, ErrInvalidBackupCode
	}

	stored, err := tx.BackupCodes().ListBackupCodes(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("list backup codes: %w", err)
	}

	for _, candidate := range stored {
		digest := cryptox.FingerprintSalted(candidate.Salt, code)
		if !cryptox.FingerprintEqual(digest, candidate.CodeHash) {
			continue
		}

		if err := tx.BackupCodes().DeleteBackupCode(ctx, candidate.ID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return 0, ErrInvalidBackupCode
			}
			return 0, fmt.Errorf("consume backup code: %w", err)
		}
		return len(stored) - 1, nil
	}

	return 0, ErrInvalidBackupCode
}
