package database

import (
	"context"
	"testing"
	"time"

	"eyegic/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSyncQueueLifecycle(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	ctx := context.Background()

	task := &models.SyncTask{TaskType: "upsert", BookingID: 100, Payload: `{"booking_id":100}`}
	require.NoError(t, db.CreateSyncTask(ctx, task))
	assert.Equal(t, models.SyncStatusPending, task.Status)
	assert.NotZero(t, task.ID)

	tasks, err := db.GetPendingSyncTasks(ctx, 10)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, int64(100), tasks[0].BookingID)
	assert.Nil(t, tasks[0].LastError)

	require.NoError(t, db.UpdateSyncTaskStatus(ctx, tasks[0].ID, models.SyncStatusCompleted, "", nil))
	tasks, err = db.GetPendingSyncTasks(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, tasks)
}

func TestSyncQueueRetrySchedule(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	ctx := context.Background()

	task := &models.SyncTask{TaskType: "update_status", BookingID: 102}
	require.NoError(t, db.CreateSyncTask(ctx, task))

	future := time.Now().Add(time.Hour)
	require.NoError(t, db.UpdateSyncTaskStatus(ctx, task.ID, models.SyncStatusRetry, "sheets timeout", &future))

	tasks, err := db.GetPendingSyncTasks(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, tasks, "retry in the future is not due")

	past := time.Now().Add(-time.Hour)
	require.NoError(t, db.UpdateSyncTaskStatus(ctx, task.ID, models.SyncStatusRetry, "sheets timeout", &past))

	tasks, err = db.GetPendingSyncTasks(ctx, 10)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, 2, tasks[0].RetryCount)
	require.NotNil(t, tasks[0].LastError)
	assert.Equal(t, "sheets timeout", *tasks[0].LastError)
}

func TestSyncQueueStats(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	ctx := context.Background()

	for i := int64(1); i <= 3; i++ {
		require.NoError(t, db.CreateSyncTask(ctx, &models.SyncTask{TaskType: "upsert", BookingID: i}))
	}
	tasks, err := db.GetPendingSyncTasks(ctx, 1)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, int64(1), tasks[0].BookingID, "oldest first")
	require.NoError(t, db.UpdateSyncTaskStatus(ctx, tasks[0].ID, models.SyncStatusFailed, "bad payload", nil))

	stats, err := db.SyncQueueStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats[models.SyncStatusPending])
	assert.Equal(t, 1, stats[models.SyncStatusFailed])
}
