package service

import (
	"testing"

	"github.com/expohall/expohall/internal/identity/domain"
	"github.com/stretchr/testify/require"
)

func TestAssertRole(t *testing.T) {
	t.Parallel()

	authz := NewAuthorizer(DefaultHierarchy())

	active := func(role domain.Role) *domain.User {
		return &domain.User{ID: "u1", Role: role, Status: domain.StatusActive}
	}

	t.Run("role dominates lower requirement", func(t *testing.T) {
		user, err := authz.AssertRole(active(domain.RoleAdmin), domain.RoleOrganizer)
		require.NoError(t, err)
		require.Equal(t, domain.RoleAdmin, user.Role)
	})

	t.Run("role satisfies equal requirement", func(t *testing.T) {
		_, err := authz.AssertRole(active(domain.RoleOrganizer), domain.RoleOrganizer)
		require.NoError(t, err)
	})

	t.Run("superadmin dominates everything", func(t *testing.T) {
		for _, required := range []domain.Role{domain.RoleOrganizer, domain.RoleAdmin, domain.RoleSuperadmin} {
			_, err := authz.AssertRole(active(domain.RoleSuperadmin), required)
			require.NoError(t, err)
		}
	})

	t.Run("insufficient role is forbidden", func(t *testing.T) {
		_, err := authz.AssertRole(active(domain.RoleOrganizer), domain.RoleAdmin)
		require.ErrorIs(t, err, ErrForbidden)
		require.Contains(t, err.Error(), "admin")
		require.Contains(t, err.Error(), "organizer")
	})

	t.Run("nil user is unauthenticated", func(t *testing.T) {
		_, err := authz.AssertRole(nil, domain.RoleOrganizer)
		require.ErrorIs(t, err, ErrUnauthenticated)
	})

	t.Run("suspended user fails regardless of role", func(t *testing.T) {
		user := &domain.User{ID: "u2", Role: domain.RoleSuperadmin, Status: domain.StatusSuspended}
		_, err := authz.AssertRole(user, domain.RoleOrganizer)
		require.ErrorIs(t, err, ErrAccountSuspended)
	})

	t.Run("unknown role never elevates", func(t *testing.T) {
		_, err := authz.AssertRole(active(domain.Role("owner")), domain.RoleAdmin)
		require.ErrorIs(t, err, ErrForbidden)
	})
}

func TestAssertExactRole(t *testing.T) {
	t.Parallel()

	authz := NewAuthorizer(nil)

	t.Run("exact match passes", func(t *testing.T) {
		user := &domain.User{Role: domain.RoleAdmin, Status: domain.StatusActive}
		_, err := authz.AssertExactRole(user, domain.RoleAdmin)
		require.NoError(t, err)
	})

	t.Run("higher role does not substitute", func(t *testing.T) {
		user := &domain.User{Role: domain.RoleSuperadmin, Status: domain.StatusActive}
		_, err := authz.AssertExactRole(user, domain.RoleAdmin)
		require.ErrorIs(t, err, ErrForbidden)
	})
}

func TestIsAdminRole(t *testing.T) {
	t.Parallel()

	authz := NewAuthorizer(DefaultHierarchy())

	require.True(t, authz.IsAdminRole(domain.RoleSuperadmin))
	require.True(t, authz.IsAdminRole(domain.RoleAdmin))
	require.False(t, authz.IsAdminRole(domain.RoleOrganizer))
	require.False(t, authz.IsAdminRole(domain.Role("unknown")))
}
