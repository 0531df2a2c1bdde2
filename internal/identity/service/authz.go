package service

import (
	"github.com/expohall/expohall/internal/identity/domain"
)

// Hierarchy maps role names to comparable levels. Higher levels dominate
// lower ones. Injected rather than hard-coded so the table lives in one
// place instead of being scattered through handlers.
type Hierarchy map[domain.Role]int

// DefaultHierarchy is the platform's fixed total order.
func DefaultHierarchy() Hierarchy {
	return Hierarchy{
		domain.RoleSuperadmin: 3,
		domain.RoleAdmin:      2,
		domain.RoleOrganizer:  1,
	}
}

// level resolves a role to its hierarchy level. Unknown or missing roles
// compare at the organizer level for comparison purposes only; they are
// never granted elevated access through this default.
func (h Hierarchy) level(r domain.Role) int {
	if lvl, ok := h[r]; ok {
		return lvl
	}
	return h[domain.RoleOrganizer]
}

// Authorizer evaluates the role hierarchy. Pure given a resolved user;
// no store access, safe to call from any goroutine.
type Authorizer struct {
	Hierarchy Hierarchy
}

func NewAuthorizer(h Hierarchy) *Authorizer {
	if h == nil {
		h = DefaultHierarchy()
	}
	return &Authorizer{Hierarchy: h}
}

// AssertRole returns the user when their role dominates required. A nil user
// fails Unauthenticated, a suspended user fails AccountSuspended regardless
// of role, and an insufficient role fails Forbidden with a message naming
// both roles.
func (a *Authorizer) AssertRole(user *domain.User, required domain.Role) (*domain.User, error) {
	if err := a.checkActive(user); err != nil {
		return nil, err
	}
	if a.Hierarchy.level(user.Role) < a.Hierarchy.level(required) {
		return nil, forbiddenError(string(required), string(user.Role))
	}
	return user, nil
}

// AssertExactRole requires the user's role to equal the given role; a higher
// role does not substitute. Used where elevation must not leak into a
// feature scoped to one role specifically.
func (a *Authorizer) AssertExactRole(user *domain.User, exact domain.Role) (*domain.User, error) {
	if err := a.checkActive(user); err != nil {
		return nil, err
	}
	if user.Role != exact {
		return nil, forbiddenError(string(exact), string(user.Role))
	}
	return user, nil
}

// IsAdminRole is a fast capability check without constructing an assertion.
func (a *Authorizer) IsAdminRole(role domain.Role) bool {
	return a.Hierarchy.level(role) >= a.Hierarchy.level(domain.RoleAdmin)
}

func (a *Authorizer) checkActive(user *domain.User) error {
	if user == nil {
		return ErrUnauthenticated
	}
	if user.Status == domain.StatusSuspended {
		return ErrAccountSuspended
	}
	return nil
}
