package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/expohall/expohall/internal/identity/domain"
	"github.com/expohall/expohall/internal/identity/store"
	"github.com/expohall/expohall/pkg/idx"
	"github.com/expohall/expohall/pkg/slogx"
)

// OAuthAssertion is an externally verified federated identity claim. The
// transport layer verifies the signature and issuer before an assertion ever
// reaches the resolver.
type OAuthAssertion struct {
	Subject string
	Email   string
	Name    string
}

// Credentials are the optional identity inputs attached to a request.
type Credentials struct {
	Assertion   *OAuthAssertion
	AccessToken string
}

// Strategy resolves one kind of credential to a user. ok=false with a nil
// error means "this strategy has nothing to say", letting the resolver fall
// through to the next one.
type Strategy interface {
	Resolve(ctx context.Context, creds Credentials) (domain.User, bool, error)
}

// Resolver merges the two identity sources into one current-user view.
// Strategies run in fixed priority order: the OAuth assertion always wins
// when both are present, so one deployment can serve either login scheme
// without ambiguity.
type Resolver struct {
	strategies []Strategy
	authorizer *Authorizer
}

func NewResolver(st store.Store, sessions *SessionService, authorizer *Authorizer) *Resolver {
	return &Resolver{
		strategies: []Strategy{
			&assertionStrategy{store: st},
			&sessionStrategy{store: st, sessions: sessions},
		},
		authorizer: authorizer,
	}
}

// Resolve returns the current user, or ok=false for "unauthenticated".
// It never returns an error for absent or invalid credentials; only store
// failures surface as errors.
func (r *Resolver) Resolve(ctx context.Context, creds Credentials) (domain.User, bool, error) {
	for _, strategy := range r.strategies {
		user, ok, err := strategy.Resolve(ctx, creds)
		if err != nil {
			return domain.User{}, false, err
		}
		if ok {
			return user, true, nil
		}
	}
	return domain.User{}, false, nil
}

// RequireUser resolves and raises Unauthenticated when no user is found.
func (r *Resolver) RequireUser(ctx context.Context, creds Credentials) (*domain.User, error) {
	user, ok, err := r.Resolve(ctx, creds)
	if err != nil {
		return nil, fmt.Errorf("resolve identity: %w", err)
	}
	if !ok {
		return nil, ErrUnauthenticated
	}
	return &user, nil
}

// RequireActiveUser additionally fails suspended accounts, which are
// functionally unauthenticated for every authorization purpose.
func (r *Resolver) RequireActiveUser(ctx context.Context, creds Credentials) (*domain.User, error) {
	user, err := r.RequireUser(ctx, creds)
	if err != nil {
		return nil, err
	}
	if user.Status == domain.StatusSuspended {
		return nil, ErrAccountSuspended
	}
	return user, nil
}

// RequireRole layers the role check on top of resolution.
func (r *Resolver) RequireRole(ctx context.Context, creds Credentials, required domain.Role) (*domain.User, error) {
	user, err := r.RequireUser(ctx, creds)
	if err != nil {
		return nil, err
	}
	return r.authorizer.AssertRole(user, required)
}

// assertionStrategy maps a verified federated subject to a user record,
// materializing one with default role and status on first login.
type assertionStrategy struct {
	store store.Store
}

func (s *assertionStrategy) Resolve(ctx context.Context, creds Credentials) (domain.User, bool, error) {
	if creds.Assertion == nil || creds.Assertion.Subject == "" {
		return domain.User{}, false, nil
	}

	user, err := s.store.Users().GetUserByOAuthSubject(ctx, creds.Assertion.Subject)
	if err == nil {
		return user, true, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return domain.User{}, false, err
	}

	user = domain.User{
		ID:           idx.New().String(),
		Email:        creds.Assertion.Email,
		DisplayName:  creds.Assertion.Name,
		Role:         domain.RoleOrganizer,
		Status:       domain.StatusActive,
		OAuthSubject: creds.Assertion.Subject,
	}

	if err := s.store.Users().CreateUser(ctx, user); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			// A concurrent first login won; read the winner's record
			existing, lookupErr := s.store.Users().GetUserByOAuthSubject(ctx, creds.Assertion.Subject)
			if lookupErr == nil {
				return existing, true, nil
			}
		}
		return domain.User{}, false, fmt.Errorf("materialize federated user: %w", err)
	}

	slogx.FromContext(ctx).Info("federated user materialized", "user_id", user.ID)
	return user, true, nil
}

// sessionStrategy resolves a first-party access token to the owning user.
type sessionStrategy struct {
	store    store.Store
	sessions *SessionService
}

func (s *sessionStrategy) Resolve(ctx context.Context, creds Credentials) (domain.User, bool, error) {
	if creds.AccessToken == "" {
		return domain.User{}, false, nil
	}

	session, err := s.sessions.Validate(ctx, creds.AccessToken)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.User{}, false, nil
		}
		return domain.User{}, false, err
	}

	user, err := s.store.Users().GetUserByID(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// Session outlived its user; treat as unauthenticated
			return domain.User{}, false, nil
		}
		return domain.User{}, false, err
	}
	return user, true, nil
}
