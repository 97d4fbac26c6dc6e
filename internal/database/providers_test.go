package database

import (
	"context"
	"errors"
	"testing"

	"eyegic/internal/domain"
	"eyegic/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newProvider(id string) *models.Provider {
	return &models.Provider{
		ID:           id,
		Active:       true,
		Name:         "Vision On Wheels",
		Phone:        "9876543210",
		Email:        "team@vision.in",
		ServiceAreas: "560001 560034",
		Services:     []models.ServiceType{models.ServiceEyeTest, models.ServiceCombined},
		Availability: "Mon-Sat 9am-6pm",
	}
}

func TestProviders_CRUD(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	ctx := context.Background()

	p := newProvider("prov-1")
	require.NoError(t, db.CreateProvider(ctx, p))
	assert.False(t, p.CreatedAt.IsZero())

	stored, err := db.GetProvider(ctx, "prov-1")
	require.NoError(t, err)
	assert.Equal(t, "Vision On Wheels", stored.Name)
	assert.True(t, stored.Active)
	assert.Equal(t, p.Services, stored.Services)
	assert.Equal(t, "560001 560034", stored.ServiceAreas)

	_, err = db.GetProvider(ctx, "nobody")
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestProviders_DuplicateRegistration(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	ctx := context.Background()

	require.NoError(t, db.CreateProvider(ctx, newProvider("prov-1")))

	again := newProvider("prov-1")
	again.Name = "Other Name"
	err := db.CreateProvider(ctx, again)
	assert.True(t, errors.Is(err, domain.ErrAlreadyRegistered))

	stored, err := db.GetProvider(ctx, "prov-1")
	require.NoError(t, err)
	assert.Equal(t, "Vision On Wheels", stored.Name, "original record is not merged")
}

func TestProviders_ListAndToggle(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	ctx := context.Background()

	for _, id := range []string{"zeta", "alpha", "mid"} {
		require.NoError(t, db.CreateProvider(ctx, newProvider(id)))
	}
	require.NoError(t, db.SetProviderActive(ctx, "alpha", false))

	all, err := db.ListProviders(ctx, false)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "zeta", all[0].ID, "registration order, not id order")
	assert.False(t, all[1].Active)

	active, err := db.ListProviders(ctx, true)
	require.NoError(t, err)
	require.Len(t, active, 2)
	assert.Equal(t, "zeta", active[0].ID)
	assert.Equal(t, "mid", active[1].ID)

	err = db.SetProviderActive(ctx, "ghost", true)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}
