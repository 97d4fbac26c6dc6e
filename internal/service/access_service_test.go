package service

import (
	"context"
	"testing"

	"eyegic/internal/domain"
	"eyegic/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitialize_FirstCallerIsAdmin(t *testing.T) {
	s := NewAccessService(setupDB(t), nopLogger())
	ctx := context.Background()

	role, err := s.Initialize(ctx, models.Actor{ID: "first"})
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, role)

	role, err = s.Initialize(ctx, models.Actor{ID: "second"})
	require.NoError(t, err)
	assert.Equal(t, models.RoleUser, role)

	role, err = s.Initialize(ctx, models.Actor{ID: "first"})
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, role, "idempotent")

	_, err = s.Initialize(ctx, models.Anonymous())
	assert.ErrorIs(t, err, domain.ErrForbidden)
}

func TestSeedAdmins(t *testing.T) {
	s := NewAccessService(setupDB(t), nopLogger())
	ctx := context.Background()

	require.NoError(t, s.SeedAdmins(ctx, []string{"ops", " ", "root"}))

	actor, err := s.Resolve(ctx, "ops")
	require.NoError(t, err)
	assert.True(t, actor.IsAdmin())

	role, err := s.Initialize(ctx, models.Actor{ID: "newcomer"})
	require.NoError(t, err)
	assert.Equal(t, models.RoleUser, role, "an admin already exists")
}

func TestResolve(t *testing.T) {
	s := NewAccessService(setupDB(t), nopLogger())
	ctx := context.Background()

	actor, err := s.Resolve(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, models.Anonymous(), actor)

	actor, err = s.Resolve(ctx, "unknown")
	require.NoError(t, err)
	assert.Equal(t, models.RoleGuest, actor.Role)
	assert.False(t, actor.IsRegistered())
}

func TestAssignCallerUserRole(t *testing.T) {
	s := NewAccessService(setupDB(t), nopLogger())
	ctx := context.Background()

	assert.ErrorIs(t, s.AssignCallerUserRole(ctx, "bob", models.RoleAdmin, alice), domain.ErrForbidden)
	assert.ErrorIs(t, s.AssignCallerUserRole(ctx, "bob", "owner", admin), domain.ErrValidation)
	assert.ErrorIs(t, s.AssignCallerUserRole(ctx, "", models.RoleUser, admin), domain.ErrValidation)

	require.NoError(t, s.AssignCallerUserRole(ctx, "bob", models.RoleAdmin, admin))

	isAdmin, err := s.IsCallerAdmin(ctx, bob)
	require.NoError(t, err)
	assert.True(t, isAdmin)

	role, err := s.GetCallerUserRole(ctx, models.Actor{ID: "carol"})
	require.NoError(t, err)
	assert.Equal(t, models.RoleGuest, role)
}
