package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/expohall/expohall/internal/identity/domain"
	"github.com/expohall/expohall/internal/identity/store"
	"github.com/stretchr/testify/require"
)

func TestSessionIssueAndValidate(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	st := newTestStore(t)
	user := seedUser(t, st, "sessions@example.com")

	sessions := NewSessionService(st, 0, 0)

	tokens, err := sessions.Issue(ctx, user.ID)
	require.NoError(t, err)
	require.NotEmpty(t, tokens.SessionID)
	require.NotEmpty(t, tokens.AccessToken)
	require.NotEmpty(t, tokens.RefreshToken)
	require.NotEqual(t, tokens.AccessToken, tokens.RefreshToken)
	require.True(t, tokens.RefreshExpiresAt.After(tokens.AccessExpiresAt))

	t.Run("valid token resolves the session", func(t *testing.T) {
		session, err := sessions.Validate(ctx, tokens.AccessToken)
		require.NoError(t, err)
		require.Equal(t, user.ID, session.UserID)
		require.Equal(t, tokens.SessionID, session.ID)
	})

	t.Run("unknown token is not found", func(t *testing.T) {
		_, err := sessions.Validate(ctx, "not-a-real-token")
		require.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("empty token is not found", func(t *testing.T) {
		_, err := sessions.Validate(ctx, "")
		require.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("refresh token does not validate as access token", func(t *testing.T) {
		_, err := sessions.Validate(ctx, tokens.RefreshToken)
		require.ErrorIs(t, err, store.ErrNotFound)
	})
}

func TestSessionValidateExpired(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	st := newTestStore(t)
	user := seedUser(t, st, "expired@example.com")

	// Issue a session whose access window is already over
	sessions := &SessionService{Store: st, AccessTTL: -time.Minute, RefreshTTL: time.Hour}

	tokens, err := sessions.Issue(ctx, user.ID)
	require.NoError(t, err)

	_, err = sessions.Validate(ctx, tokens.AccessToken)
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestSessionRefreshRotation(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	st := newTestStore(t)
	user := seedUser(t, st, "refresh@example.com")

	sessions := NewSessionService(st, 0, 0)

	initial, err := sessions.Issue(ctx, user.ID)
	require.NoError(t, err)

	rotated, userID, err := sessions.Refresh(ctx, initial.RefreshToken)
	require.NoError(t, err)
	require.Equal(t, user.ID, userID)

	t.Run("session identity is preserved", func(t *testing.T) {
		require.Equal(t, initial.SessionID, rotated.SessionID)
	})

	t.Run("both tokens are replaced", func(t *testing.T) {
		require.NotEqual(t, initial.AccessToken, rotated.AccessToken)
		require.NotEqual(t, initial.RefreshToken, rotated.RefreshToken)
	})

	t.Run("old access token stops working", func(t *testing.T) {
		_, err := sessions.Validate(ctx, initial.AccessToken)
		require.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("new access token works", func(t *testing.T) {
		session, err := sessions.Validate(ctx, rotated.AccessToken)
		require.NoError(t, err)
		require.Equal(t, user.ID, session.UserID)
	})

	t.Run("replaying the old refresh token fails", func(t *testing.T) {
		_, _, err := sessions.Refresh(ctx, initial.RefreshToken)
		require.ErrorIs(t, err, ErrUnauthenticated)
	})

	t.Run("the new refresh token rotates again", func(t *testing.T) {
		_, userID, err := sessions.Refresh(ctx, rotated.RefreshToken)
		require.NoError(t, err)
		require.Equal(t, user.ID, userID)
	})
}

func TestSessionRefreshConcurrentRace(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	st := newTestStore(t)
	user := seedUser(t, st, "race@example.com")

	sessions := NewSessionService(st, 0, 0)

	initial, err := sessions.Issue(ctx, user.ID)
	require.NoError(t, err)

	// Two clients present the same refresh token at once. The guarded
	// rotation admits exactly one; the other must observe an invalid
	// refresh, never a duplicated session.
	type outcome struct {
		tokens domain.SessionTokens
		err    error
	}
	results := make(chan outcome, 2)
	start := make(chan struct{})

	var wg sync.WaitGroup
	for range 2 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			tokens, _, err := sessions.Refresh(ctx, initial.RefreshToken)
			results <- outcome{tokens: tokens, err: err}
		}()
	}
	close(start)
	wg.Wait()
	close(results)

	var won []domain.SessionTokens
	var lost int
	for res := range results {
		if res.err == nil {
			won = append(won, res.tokens)
			continue
		}
		require.ErrorIs(t, res.err, ErrUnauthenticated)
		lost++
	}
	require.Len(t, won, 1)
	require.Equal(t, 1, lost)

	t.Run("winner's tokens are live", func(t *testing.T) {
		session, err := sessions.Validate(ctx, won[0].AccessToken)
		require.NoError(t, err)
		require.Equal(t, initial.SessionID, session.ID)
	})

	t.Run("original pair is dead", func(t *testing.T) {
		_, err := sessions.Validate(ctx, initial.AccessToken)
		require.ErrorIs(t, err, store.ErrNotFound)
		_, _, err = sessions.Refresh(ctx, initial.RefreshToken)
		require.ErrorIs(t, err, ErrUnauthenticated)
	})
}

func TestSessionRefreshExpired(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	st := newTestStore(t)
	user := seedUser(t, st, "stale@example.com")

	sessions := &SessionService{Store: st, AccessTTL: -2 * time.Minute, RefreshTTL: -time.Minute}

	tokens, err := sessions.Issue(ctx, user.ID)
	require.NoError(t, err)

	_, _, err = sessions.Refresh(ctx, tokens.RefreshToken)
	require.ErrorIs(t, err, ErrUnauthenticated)
}

func TestSessionRevoke(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	st := newTestStore(t)
	user := seedUser(t, st, "revoke@example.com")

	sessions := NewSessionService(st, 0, 0)

	tokens, err := sessions.Issue(ctx, user.ID)
	require.NoError(t, err)

	require.NoError(t, sessions.Revoke(ctx, tokens.AccessToken))

	_, err = sessions.Validate(ctx, tokens.AccessToken)
	require.ErrorIs(t, err, store.ErrNotFound)

	_, _, err = sessions.Refresh(ctx, tokens.RefreshToken)
	require.ErrorIs(t, err, ErrUnauthenticated)

	t.Run("revoking twice is fine", func(t *testing.T) {
		require.NoError(t, sessions.Revoke(ctx, tokens.AccessToken))
	})

	t.Run("revoking an unknown token is fine", func(t *testing.T) {
		require.NoError(t, sessions.Revoke(ctx, "never-issued"))
	})
}

func TestSessionRevokeAllForUser(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	st := newTestStore(t)
	user := seedUser(t, st, "revokeall@example.com")
	other := seedUser(t, st, "bystander@example.com")

	sessions := NewSessionService(st, 0, 0)

	first, err := sessions.Issue(ctx, user.ID)
	require.NoError(t, err)
	second, err := sessions.Issue(ctx, user.ID)
	require.NoError(t, err)
	bystander, err := sessions.Issue(ctx, other.ID)
	require.NoError(t, err)

	require.NoError(t, sessions.RevokeAllForUser(ctx, user.ID))

	_, err = sessions.Validate(ctx, first.AccessToken)
	require.ErrorIs(t, err, store.ErrNotFound)
	_, err = sessions.Validate(ctx, second.AccessToken)
	require.ErrorIs(t, err, store.ErrNotFound)

	// Other users keep their sessions
	_, err = sessions.Validate(ctx, bystander.AccessToken)
	require.NoError(t, err)
}

func TestNewSessionServiceClampsTTLs(t *testing.T) {
	t.Parallel()

	st := newTestStore(t)

	t.Run("zero values take defaults", func(t *testing.T) {
		s := NewSessionService(st, 0, 0)
		require.Equal(t, DefaultAccessTTL, s.AccessTTL)
		require.Equal(t, DefaultRefreshTTL, s.RefreshTTL)
	})

	t.Run("refresh never shorter than access", func(t *testing.T) {
		s := NewSessionService(st, time.Hour, time.Minute)
		require.Equal(t, time.Hour, s.AccessTTL)
		require.Equal(t, time.Hour, s.RefreshTTL)
	})
}
