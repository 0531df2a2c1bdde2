package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/expohall/expohall/internal/identity/domain"
	"github.com/expohall/expohall/internal/identity/store"
)

type sessionsRepo struct {
	db dbtx
}

const sessionColumns = `id, user_id, access_token_hash, access_expires_at,
	refresh_token_hash, refresh_expires_at, created_at, updated_at`

func (r *sessionsRepo) scanSession(row *sql.Row) (domain.Session, error) {
	var s domain.Session
	var accessExp, refreshExp, createdAt, updatedAt int64

	err := row.Scan(
		&s.ID, &s.UserID, &s.AccessTokenHash, &accessExp,
		&s.RefreshTokenHash, &refreshExp, &createdAt, &updatedAt,
	)
	if err != nil {
		return domain.Session{}, mapNotFound(err)
	}

	s.AccessExpiresAt = time.Unix(accessExp, 0).UTC()
	s.RefreshExpiresAt = time.Unix(refreshExp, 0).UTC()
	s.CreatedAt = time.Unix(createdAt, 0).UTC()
	s.UpdatedAt = time.Unix(updatedAt, 0).UTC()

	return s, nil
}

func (r *sessionsRepo) CreateSession(ctx context.Context, s domain.Session) error {
	now := time.Now().Unix()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO sessions (
			id, user_id, access_token_hash, access_expires_at,
			refresh_token_hash, refresh_expires_at, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		s.ID, s.UserID, s.AccessTokenHash, s.AccessExpiresAt.Unix(),
		s.RefreshTokenHash, s.RefreshExpiresAt.Unix(), now, now,
	)
	return mapConstraint(err)
}

func (r *sessionsRepo) GetSessionByAccessHash(ctx context.Context, hash string) (domain.Session, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM sessions WHERE access_token_hash = ?`, hash)
	return r.scanSession(row)
}

func (r *sessionsRepo) GetSessionByRefreshHash(ctx context.Context, hash string) (domain.Session, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+sessionColumns+` FROM sessions WHERE refresh_token_hash = ?`, hash)
	return r.scanSession(row)
}

// RotateSession guards the update on the old refresh fingerprint so that two
// concurrent rotations of the same session cannot both succeed: the second
// one matches zero rows and observes ErrNotFound.
func (r *sessionsRepo) RotateSession(ctx context.Context, oldRefreshHash string, s domain.Session) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE sessions
		SET access_token_hash = ?, access_expires_at = ?,
			refresh_token_hash = ?, refresh_expires_at = ?, updated_at = ?
		WHERE refresh_token_hash = ?`,
		s.AccessTokenHash, s.AccessExpiresAt.Unix(),
		s.RefreshTokenHash, s.RefreshExpiresAt.Unix(), time.Now().Unix(),
		oldRefreshHash,
	)
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

func (r *sessionsRepo) DeleteSessionByAccessHash(ctx context.Context, hash string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM sessions WHERE access_token_hash = ?`, hash)
	return err
}

func (r *sessionsRepo) DeleteSessionsByUser(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM sessions WHERE user_id = ?`, userID)
	return err
}

func (r *sessionsRepo) DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM sessions WHERE refresh_expires_at < ?`, now.Unix())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
