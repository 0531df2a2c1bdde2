package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/expohall/expohall/internal/identity/domain"
	"github.com/expohall/expohall/internal/identity/store"
	"github.com/expohall/expohall/pkg/cryptox"
	"github.com/expohall/expohall/pkg/idx"
	"github.com/expohall/expohall/pkg/slogx"
)

// AccountService handles first-party signup and password login, and the
// small set of account mutations the identity core owns (role changes,
// suspension, profile).
type AccountService struct {
	Store    store.Store
	Sessions *SessionService
}

// Signup registers a user with email and password and issues a session.
func (s *AccountService) Signup(ctx context.Context, email, password, name string) (domain.User, domain.SessionTokens, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return domain.User{}, domain.SessionTokens{}, ErrUnauthenticated
	}

	hash, err := cryptox.HashPassword(password)
	if err != nil {
		return domain.User{}, domain.SessionTokens{}, fmt.Errorf("hash password: %w", err)
	}

	user := domain.User{
		ID:           idx.New().String(),
		Email:        email,
		DisplayName:  name,
		PasswordHash: hash,
		Role:         domain.RoleOrganizer,
		Status:       domain.StatusActive,
	}

	if err := s.Store.Users().CreateUser(ctx, user); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return domain.User{}, domain.SessionTokens{}, ErrEmailTaken
		}
		return domain.User{}, domain.SessionTokens{}, fmt.Errorf("create user: %w", err)
	}

	tokens, err := s.Sessions.Issue(ctx, user.ID)
	if err != nil {
		return domain.User{}, domain.SessionTokens{}, err
	}

	slogx.FromContext(ctx).Info("user signed up", "user_id", user.ID)
	return user, tokens, nil
}

// Login verifies a password and issues a session. Bad email and bad password
// are indistinguishable to the caller. A suspended user still authenticates;
// every later authorization check fails with AccountSuspended instead, so
// the account state is reportable without widening this error surface.
func (s *AccountService) Login(ctx context.Context, email, password string) (domain.User, domain.SessionTokens, error) {
	user, err := s.Store.Users().GetUserByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.User{}, domain.SessionTokens{}, ErrUnauthenticated
		}
		return domain.User{}, domain.SessionTokens{}, fmt.Errorf("load user: %w", err)
	}

	if user.PasswordHash == "" || cryptox.VerifyPassword(password, user.PasswordHash) != nil {
		return domain.User{}, domain.SessionTokens{}, ErrUnauthenticated
	}

	tokens, err := s.Sessions.Issue(ctx, user.ID)
	if err != nil {
		return domain.User{}, domain.SessionTokens{}, err
	}

	return user, tokens, nil
}

// GetUser loads a user by id.
func (s *AccountService) GetUser(ctx context.Context, userID string) (domain.User, error) {
	return s.Store.Users().GetUserByID(ctx, userID)
}

// UpdateProfile changes the display name.
func (s *AccountService) UpdateProfile(ctx context.Context, userID, displayName string) error {
	return s.Store.Users().UpdateProfile(ctx, userID, displayName)
}

// ChangeRole assigns a new role to the target user.
func (s *AccountService) ChangeRole(ctx context.Context, userID string, role domain.Role) error {
	return s.Store.Users().UpdateRole(ctx, userID, role)
}

// Suspend marks the account suspended and revokes its sessions. The user
// record survives; there is no hard delete in the identity core.
func (s *AccountService) Suspend(ctx context.Context, userID, reason string) error {
	if err := s.Store.Users().UpdateStatus(ctx, userID, domain.StatusSuspended, reason); err != nil {
		return err
	}
	if err := s.Sessions.RevokeAllForUser(ctx, userID); err != nil {
		return fmt.Errorf("revoke sessions: %w", err)
	}
	slogx.FromContext(ctx).Info("user suspended", "user_id", userID)
	return nil
}

// Reinstate returns a suspended account to active.
func (s *AccountService) Reinstate(ctx context.Context, userID string) error {
	return s.Store.Users().UpdateStatus(ctx, userID, domain.StatusActive, "")
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
