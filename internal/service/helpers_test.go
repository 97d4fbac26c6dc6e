package service

import (
	"context"
	"path/filepath"
	"testing"

	"eyegic/internal/database"
	"eyegic/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) PublishJSON(eventType string, payload interface{}) error {
	args := m.Called(eventType, payload)
	return args.Error(0)
}

type mockSyncWorker struct {
	mock.Mock
}

func (m *mockSyncWorker) EnqueueTask(ctx context.Context, taskType string, bookingID int64, booking *models.Booking, status string) error {
	args := m.Called(ctx, taskType, bookingID, booking, status)
	return args.Error(0)
}

func setupDB(t *testing.T) *database.DB {
	t.Helper()
	logger := zerolog.Nop()
	db, err := database.NewDB(filepath.Join(t.TempDir(), "eyegic.db"), &logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func nopLogger() *zerolog.Logger {
	l := zerolog.Nop()
	return &l
}

var (
	admin    = models.Actor{ID: "admin", Role: models.RoleAdmin}
	alice    = models.Actor{ID: "alice", Role: models.RoleUser}
	bob      = models.Actor{ID: "bob", Role: models.RoleUser}
	provider = models.Actor{ID: "prov", Role: models.RoleUser}
	guest    = models.Actor{ID: "stranger", Role: models.RoleGuest}
)

func seedProvider(t *testing.T, db *database.DB, id string, active bool) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, db.CreateProvider(ctx, &models.Provider{
		ID:           id,
		Active:       true,
		Name:         "Provider " + id,
		Phone:        "9876543210",
		Email:        id + "@example.com",
		ServiceAreas: "560001 560002",
		Services:     []models.ServiceType{models.ServiceEyeTest},
	}))
	if !active {
		require.NoError(t, db.SetProviderActive(ctx, id, false))
	}
}

func seedItem(t *testing.T, db *database.DB, id, perDay, deposit int64) {
	t.Helper()
	require.NoError(t, db.UpsertRentalItem(context.Background(), &models.RentalItem{
		ID: id, Name: "Frame", Category: "frames", PricePerDay: perDay, Deposit: deposit,
	}))
}
