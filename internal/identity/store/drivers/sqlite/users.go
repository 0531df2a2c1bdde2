package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/expohall/expohall/internal/identity/domain"
	"github.com/expohall/expohall/internal/identity/store"
)

type usersRepo struct {
	db dbtx
}

const userColumns = `id, email, display_name, password_hash, role, status,
	suspension_reason, oauth_subject, totp_secret, totp_enabled_at,
	totp_verified_at, created_at, updated_at`

func (r *usersRepo) scanUser(row *sql.Row) (domain.User, error) {
	var u domain.User
	var suspensionReason, oauthSubject, totpSecret sql.NullString
	var enabledAt, verifiedAt sql.NullInt64
	var createdAt, updatedAt int64

	err := row.Scan(
		&u.ID, &u.Email, &u.DisplayName, &u.PasswordHash, &u.Role, &u.Status,
		&suspensionReason, &oauthSubject, &totpSecret, &enabledAt,
		&verifiedAt, &createdAt, &updatedAt,
	)
	if err != nil {
		return domain.User{}, mapNotFound(err)
	}

	if suspensionReason.Valid {
		u.SuspensionReason = suspensionReason.String
	}
	if oauthSubject.Valid {
		u.OAuthSubject = oauthSubject.String
	}
	u.TOTPSecret = mapNullString(totpSecret)
	u.TOTPEnabledAt = mapNullTime(enabledAt)
	u.TOTPVerifiedAt = mapNullTime(verifiedAt)
	u.CreatedAt = time.Unix(createdAt, 0).UTC()
	u.UpdatedAt = time.Unix(updatedAt, 0).UTC()

	return u, nil
}

func (r *usersRepo) GetUserByID(ctx context.Context, id string) (domain.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	return r.scanUser(row)
}

func (r *usersRepo) GetUserByEmail(ctx context.Context, email string) (domain.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = ?`, email)
	return r.scanUser(row)
}

func (r *usersRepo) GetUserByOAuthSubject(ctx context.Context, subject string) (domain.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE oauth_subject = ?`, subject)
	return r.scanUser(row)
}

func (r *usersRepo) CreateUser(ctx context.Context, u domain.User) error {
	now := time.Now().Unix()
	oauthSubject := sql.NullString{}
	if u.OAuthSubject != "" {
		oauthSubject = sql.NullString{String: u.OAuthSubject, Valid: true}
	}
	suspensionReason := sql.NullString{}
	if u.SuspensionReason != "" {
		suspensionReason = sql.NullString{String: u.SuspensionReason, Valid: true}
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (
			id, email, display_name, password_hash, role, status,
			suspension_reason, oauth_subject, totp_secret, totp_enabled_at,
			totp_verified_at, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		u.ID, u.Email, u.DisplayName, u.PasswordHash, u.Role, u.Status,
		suspensionReason, oauthSubject, mapStringNull(u.TOTPSecret),
		mapTimeNull(u.TOTPEnabledAt), mapTimeNull(u.TOTPVerifiedAt), now, now,
	)
	return mapConstraint(err)
}

func (r *usersRepo) UpdateProfile(ctx context.Context, userID, displayName string) error {
	return r.exec(ctx,
		`UPDATE users SET display_name = ?, updated_at = ? WHERE id = ?`,
		displayName, time.Now().Unix(), userID)
}

func (r *usersRepo) UpdateRole(ctx context.Context, userID string, role domain.Role) error {
	return r.exec(ctx,
		`UPDATE users SET role = ?, updated_at = ? WHERE id = ?`,
		role, time.Now().Unix(), userID)
}

func (r *usersRepo) UpdateStatus(ctx context.Context, userID string, status domain.Status, reason string) error {
	suspensionReason := sql.NullString{}
	if reason != "" {
		suspensionReason = sql.NullString{String: reason, Valid: true}
	}
	return r.exec(ctx,
		`UPDATE users SET status = ?, suspension_reason = ?, updated_at = ? WHERE id = ?`,
		status, suspensionReason, time.Now().Unix(), userID)
}

func (r *usersRepo) UpdateTOTPSecret(ctx context.Context, userID, secret string) error {
	return r.exec(ctx,
		`UPDATE users SET totp_secret = ?, updated_at = ? WHERE id = ?`,
		secret, time.Now().Unix(), userID)
}

func (r *usersRepo) EnableTOTP(ctx context.Context, userID string) error {
	now := time.Now().Unix()
	return r.exec(ctx,
		`UPDATE users SET totp_enabled_at = ?, updated_at = ? WHERE id = ?`,
		now, now, userID)
}

func (r *usersRepo) DisableTOTP(ctx context.Context, userID string) error {
	return r.exec(ctx, `
		UPDATE users
		SET totp_secret = NULL, totp_enabled_at = NULL, totp_verified_at = NULL, updated_at = ?
		WHERE id = ?`,
		time.Now().Unix(), userID)
}

func (r *usersRepo) TouchTOTPVerified(ctx context.Context, userID string, at time.Time) error {
	return r.exec(ctx,
		`UPDATE users SET totp_verified_at = ?, updated_at = ? WHERE id = ?`,
		at.Unix(), time.Now().Unix(), userID)
}

// exec runs an update that must touch exactly one existing row.
func (r *usersRepo) exec(ctx context.Context, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return mapConstraint(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}
