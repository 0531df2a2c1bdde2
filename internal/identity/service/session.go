package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/expohall/expohall/internal/identity/domain"
	"github.com/expohall/expohall/internal/identity/store"
	"github.com/expohall/expohall/pkg/cryptox"
	"github.com/expohall/expohall/pkg/idx"
	"github.com/expohall/expohall/pkg/slogx"
)

const (
	// DefaultAccessTTL keeps access tokens short-lived; clients are expected
	// to refresh proactively on a shorter period (e.g. every 14 minutes).
	DefaultAccessTTL = 15 * time.Minute

	// DefaultRefreshTTL bounds how long an idle session survives.
	DefaultRefreshTTL = 7 * 24 * time.Hour
)

// SessionService issues, validates, rotates and revokes first-party
// sessions. Raw tokens exist only in issuance/refresh responses; the store
// holds fingerprints.
type SessionService struct {
	Store      store.Store
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

func NewSessionService(st store.Store, accessTTL, refreshTTL time.Duration) *SessionService {
	if accessTTL <= 0 {
		accessTTL = DefaultAccessTTL
	}
	if refreshTTL <= 0 {
		refreshTTL = DefaultRefreshTTL
	}
	if refreshTTL < accessTTL {
		// Access expiry may never outlive refresh expiry
		refreshTTL = accessTTL
	}
	return &SessionService{Store: st, AccessTTL: accessTTL, RefreshTTL: refreshTTL}
}

// Issue creates a session for the user and returns the raw token pair.
func (s *SessionService) Issue(ctx context.Context, userID string) (domain.SessionTokens, error) {
	now := time.Now()

	accessToken, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return domain.SessionTokens{}, fmt.Errorf("generate access token: %w", err)
	}
	refreshToken, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return domain.SessionTokens{}, fmt.Errorf("generate refresh token: %w", err)
	}

	session := domain.Session{
		ID:               idx.New().String(),
		UserID:           userID,
		AccessTokenHash:  cryptox.FingerprintToken(accessToken),
		AccessExpiresAt:  now.Add(s.AccessTTL),
		RefreshTokenHash: cryptox.FingerprintToken(refreshToken),
		RefreshExpiresAt: now.Add(s.RefreshTTL),
	}

	if err := s.Store.Sessions().CreateSession(ctx, session); err != nil {
		return domain.SessionTokens{}, fmt.Errorf("create session: %w", err)
	}

	return domain.SessionTokens{
		SessionID:        session.ID,
		AccessToken:      accessToken,
		AccessExpiresAt:  session.AccessExpiresAt,
		RefreshToken:     refreshToken,
		RefreshExpiresAt: session.RefreshExpiresAt,
	}, nil
}

// Validate is the read-only check used during identity resolution. A missing
// session and an expired one are indistinguishable to the caller so the
// lookup never leaks which case occurred.
func (s *SessionService) Validate(ctx context.Context, accessToken string) (domain.Session, error) {
	if accessToken == "" {
		return domain.Session{}, store.ErrNotFound
	}

	session, err := s.Store.Sessions().GetSessionByAccessHash(ctx, cryptox.FingerprintToken(accessToken))
	if err != nil {
		return domain.Session{}, err
	}
	if time.Now().After(session.AccessExpiresAt) {
		return domain.Session{}, store.ErrNotFound
	}
	return session, nil
}

// Refresh rotates the session's token pair. The rotation is a single guarded
// store transaction: of two concurrent refreshes with the same token exactly
// one succeeds, the other observes Unauthenticated and the caller should
// re-authenticate rather than silently duplicating sessions.
func (s *SessionService) Refresh(ctx context.Context, refreshToken string) (domain.SessionTokens, string, error) {
	if refreshToken == "" {
		return domain.SessionTokens{}, "", ErrUnauthenticated
	}

	now := time.Now()
	oldHash := cryptox.FingerprintToken(refreshToken)

	newAccess, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return domain.SessionTokens{}, "", fmt.Errorf("generate access token: %w", err)
	}
	newRefresh, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return domain.SessionTokens{}, "", fmt.Errorf("generate refresh token: %w", err)
	}

	var userID string
	var rotated domain.Session

	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		session, err := tx.Sessions().GetSessionByRefreshHash(ctx, oldHash)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrUnauthenticated
			}
			return err
		}
		if now.After(session.RefreshExpiresAt) {
			return ErrUnauthenticated
		}

		rotated = session
		rotated.AccessTokenHash = cryptox.FingerprintToken(newAccess)
		rotated.AccessExpiresAt = now.Add(s.AccessTTL)
		rotated.RefreshTokenHash = cryptox.FingerprintToken(newRefresh)
		rotated.RefreshExpiresAt = now.Add(s.RefreshTTL)

		if err := tx.Sessions().RotateSession(ctx, oldHash, rotated); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				// Lost a rotation race; the winner holds the new pair
				return ErrUnauthenticated
			}
			return err
		}

		userID = session.UserID
		return nil
	})
	if err != nil {
		return domain.SessionTokens{}, "", err
	}

	slogx.FromContext(ctx).Debug("session rotated", "session_id", rotated.ID)

	return domain.SessionTokens{
		SessionID:        rotated.ID,
		AccessToken:      newAccess,
		AccessExpiresAt:  rotated.AccessExpiresAt,
		RefreshToken:     newRefresh,
		RefreshExpiresAt: rotated.RefreshExpiresAt,
	}, userID, nil
}

// Revoke deletes the session named by the access token. Subsequent use of
// either of its tokens resolves to unauthenticated. Idempotent.
func (s *SessionService) Revoke(ctx context.Context, accessToken string) error {
	if accessToken == "" {
		return nil
	}
	return s.Store.Sessions().DeleteSessionByAccessHash(ctx, cryptox.FingerprintToken(accessToken))
}

// RevokeAllForUser deletes every session the user owns (password change,
// suspension).
func (s *SessionService) RevokeAllForUser(ctx context.Context, userID string) error {
	return s.Store.Sessions().DeleteSessionsByUser(ctx, userID)
}
