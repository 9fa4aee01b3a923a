package offlinesync

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestQueueRepo_ClaimFlipsPendingOnly(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	repo := NewQueueRepository(db)
	id := uuid.New()

	mock.ExpectExec(`UPDATE offline_sync_queue`).
		WithArgs(id, SyncStatusProcessing, SyncStatusPending).
		WillReturnResult(sqlmock.NewResult(0, 1))

	claimed, err := repo.Claim(context.Background(), id)
	assert.NoError(t, err)
	assert.True(t, claimed)

	// Second claim of the same item matches no row.
	mock.ExpectExec(`UPDATE offline_sync_queue`).
		WithArgs(id, SyncStatusProcessing, SyncStatusPending).
		WillReturnResult(sqlmock.NewResult(0, 0))

	claimed, err = repo.Claim(context.Background(), id)
	assert.NoError(t, err)
	assert.False(t, claimed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestQueueRepo_GetByIDMissing(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	repo := NewQueueRepository(db)
	id := uuid.New()

	mock.ExpectQuery(`SELECT`).
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "device_id", "encrypted_payload", "sync_status",
			"results", "error_message", "created_at", "claimed_at", "synced_at",
		}))

	item, err := repo.GetByID(context.Background(), id)
	assert.NoError(t, err)
	assert.Nil(t, item)
}

func TestQueueRepo_RetryFailedRequeues(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	repo := NewQueueRepository(db)

	mock.ExpectExec(`UPDATE offline_sync_queue`).
		WithArgs(SyncStatusPending, SyncStatusFailed).
		WillReturnResult(sqlmock.NewResult(0, 3))

	count, err := repo.RetryFailed(context.Background(), "")
	assert.NoError(t, err)
	assert.Equal(t, int64(3), count)
}

func TestQueueRepo_RetryFailedScopedToDevice(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	repo := NewQueueRepository(db)

	mock.ExpectExec(`UPDATE offline_sync_queue.*device_id`).
		WithArgs(SyncStatusPending, SyncStatusFailed, "scanner-07").
		WillReturnResult(sqlmock.NewResult(0, 2))

	count, err := repo.RetryFailed(context.Background(), "scanner-07")
	assert.NoError(t, err)
	assert.Equal(t, int64(2), count)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestQueueRepo_DeviceBreakdown(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	repo := NewQueueRepository(db)
	synced := time.Date(2026, 2, 10, 8, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`SELECT.*GROUP BY device_id`).
		WillReturnRows(sqlmock.NewRows([]string{
			"device_id", "pending", "processing", "completed", "failed", "max",
		}).
			AddRow("scanner-01", 1, 0, 9, 2, synced).
			AddRow("scanner-02", 0, 0, 4, 0, nil))

	devices, err := repo.DeviceBreakdown(context.Background())
	assert.NoError(t, err)
	assert.Len(t, devices, 2)
	assert.Equal(t, "scanner-01", devices[0].DeviceID)
	assert.Equal(t, int64(2), devices[0].Failed)
	assert.Equal(t, synced, *devices[0].LastSyncedAt)
	assert.Equal(t, "scanner-02", devices[1].DeviceID)
	assert.Nil(t, devices[1].LastSyncedAt)
}

func TestQueueRepo_DeleteCompletedBefore(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	repo := NewQueueRepository(db)
	before := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectExec(`DELETE FROM offline_sync_queue`).
		WithArgs(SyncStatusCompleted, before).
		WillReturnResult(sqlmock.NewResult(0, 12))

	count, err := repo.DeleteCompletedBefore(context.Background(), before)
	assert.NoError(t, err)
	assert.Equal(t, int64(12), count)
}

func TestQueueRepo_RecoverStale(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()

	repo := NewQueueRepository(db)

	mock.ExpectExec(`UPDATE offline_sync_queue`).
		WithArgs(SyncStatusPending, SyncStatusProcessing, float64(600)).
		WillReturnResult(sqlmock.NewResult(0, 2))

	count, err := repo.RecoverStale(context.Background(), 10*time.Minute)
	assert.NoError(t, err)
	assert.Equal(t, int64(2), count)
}
