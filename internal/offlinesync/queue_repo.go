package offlinesync

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
)

const itemColumns = `
	id,
	device_id,
	encrypted_payload,
	sync_status,
	results,
	error_message,
	created_at,
	claimed_at,
	synced_at
`

//go:generate mockgen -source=queue_repo.go -destination=mock/queue_repo_mock.go -package=mock
type QueueRepository interface {
	WithTx(tx *sql.Tx) QueueRepository
	Enqueue(ctx context.Context, deviceID, encryptedPayload string) (*SyncQueueItem, error)
	GetByID(ctx context.Context, id uuid.UUID) (*SyncQueueItem, error)
	ListPending(ctx context.Context, limit int) ([]SyncQueueItem, error)
	ListPendingByDevice(ctx context.Context, deviceID string, limit int) ([]SyncQueueItem, error)

	// Claim flips one pending item to processing. It reports false when the
	// item was not in the pending state, without saying why; callers
	// disambiguate with GetByID.
	Claim(ctx context.Context, id uuid.UUID) (bool, error)
	Complete(ctx context.Context, id uuid.UUID, results []byte) error
	Fail(ctx context.Context, id uuid.UUID, reason string) error

	// RetryFailed requeues every failed item, or only one device's when
	// deviceID is non-empty.
	RetryFailed(ctx context.Context, deviceID string) (int64, error)
	RecoverStale(ctx context.Context, olderThan time.Duration) (int64, error)
	DeleteCompletedBefore(ctx context.Context, before time.Time) (int64, error)

	CountByStatus(ctx context.Context) (map[string]int64, error)
	DeviceBreakdown(ctx context.Context) ([]DeviceSyncStatus, error)
	DeviceStatus(ctx context.Context, deviceID string) (*DeviceSyncStatus, error)
	History(ctx context.Context, deviceID string, page, limit int) ([]SyncQueueItem, int64, error)
}

type queueRepository struct {
	db *sql.DB
	tx *sql.Tx
}

func NewQueueRepository(db *sql.DB) QueueRepository {
	return &queueRepository{db: db}
}

func (r *queueRepository) WithTx(tx *sql.Tx) QueueRepository {
	return &queueRepository{db: r.db, tx: tx}
}

type querier interface {
	ExecContext(context.Context, string, ...any) (sql.Result, error)
	QueryContext(context.Context, string, ...any) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...any) *sql.Row
}

func (r *queueRepository) conn() querier {
	if r.tx != nil {
		return r.tx
	}
	return r.db
}

func scanItem(row interface{ Scan(...any) error }) (*SyncQueueItem, error) {
	var item SyncQueueItem
	err := row.Scan(
		&item.ID,
		&item.DeviceID,
		&item.EncryptedPayload,
		&item.SyncStatus,
		&item.Results,
		&item.ErrorMessage,
		&item.CreatedAt,
		&item.ClaimedAt,
		&item.SyncedAt,
	)
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *queueRepository) Enqueue(ctx context.Context, deviceID, encryptedPayload string) (*SyncQueueItem, error) {
	query := `
INSERT INTO offline_sync_queue (id, device_id, encrypted_payload, sync_status)
VALUES ($1, $2, $3, $4)
RETURNING ` + itemColumns

	row := r.conn().QueryRowContext(ctx, query, uuid.New(), deviceID, encryptedPayload, SyncStatusPending)
	return scanItem(row)
}

func (r *queueRepository) GetByID(ctx context.Context, id uuid.UUID) (*SyncQueueItem, error) {
	query := `SELECT ` + itemColumns + ` FROM offline_sync_queue WHERE id = $1`

	item, err := scanItem(r.conn().QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return item, nil
}

func (r *queueRepository) listPending(ctx context.Context, query string, args ...any) ([]SyncQueueItem, error) {
	rows, err := r.conn().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []SyncQueueItem
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *item)
	}
	return items, rows.Err()
}

func (r *queueRepository) ListPending(ctx context.Context, limit int) ([]SyncQueueItem, error) {
	query := `
SELECT ` + itemColumns + `
FROM offline_sync_queue
WHERE sync_status = $1
ORDER BY created_at ASC
LIMIT $2`
	return r.listPending(ctx, query, SyncStatusPending, limit)
}

func (r *queueRepository) ListPendingByDevice(ctx context.Context, deviceID string, limit int) ([]SyncQueueItem, error) {
	query := `
SELECT ` + itemColumns + `
FROM offline_sync_queue
WHERE sync_status = $1 AND device_id = $2
ORDER BY created_at ASC
LIMIT $3`
	return r.listPending(ctx, query, SyncStatusPending, deviceID, limit)
}

func (r *queueRepository) Claim(ctx context.Context, id uuid.UUID) (bool, error) {
	query := `
UPDATE offline_sync_queue
SET sync_status = $2, claimed_at = NOW()
WHERE id = $1 AND sync_status = $3
`
	res, err := r.conn().ExecContext(ctx, query, id, SyncStatusProcessing, SyncStatusPending)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected == 1, nil
}

func (r *queueRepository) Complete(ctx context.Context, id uuid.UUID, results []byte) error {
	query := `
UPDATE offline_sync_queue
SET sync_status = $2, results = $3, error_message = NULL, synced_at = NOW()
WHERE id = $1
`
	_, err := r.conn().ExecContext(ctx, query, id, SyncStatusCompleted, results)
	return err
}

func (r *queueRepository) Fail(ctx context.Context, id uuid.UUID, reason string) error {
	query := `
UPDATE offline_sync_queue
SET sync_status = $2, error_message = LEFT($3, 500)
WHERE id = $1
`
	_, err := r.conn().ExecContext(ctx, query, id, SyncStatusFailed, reason)
	return err
}

func (r *queueRepository) RetryFailed(ctx context.Context, deviceID string) (int64, error) {
	query := `
UPDATE offline_sync_queue
SET sync_status = $1, error_message = NULL, claimed_at = NULL
WHERE sync_status = $2
`
	args := []any{SyncStatusPending, SyncStatusFailed}
	if deviceID != "" {
		query += ` AND device_id = $3`
		args = append(args, deviceID)
	}
	res, err := r.conn().ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// RecoverStale returns items stuck in processing to the pending state. A
// crashed worker leaves its claim behind; without this sweep the item would
// never run again.
func (r *queueRepository) RecoverStale(ctx context.Context, olderThan time.Duration) (int64, error) {
	query := `
UPDATE offline_sync_queue
SET sync_status = $1, claimed_at = NULL
WHERE sync_status = $2 AND claimed_at < NOW() - make_interval(secs => $3)
`
	res, err := r.conn().ExecContext(ctx, query, SyncStatusPending, SyncStatusProcessing, olderThan.Seconds())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *queueRepository) DeleteCompletedBefore(ctx context.Context, before time.Time) (int64, error) {
	query := `DELETE FROM offline_sync_queue WHERE sync_status = $1 AND synced_at < $2`

	res, err := r.conn().ExecContext(ctx, query, SyncStatusCompleted, before)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *queueRepository) CountByStatus(ctx context.Context) (map[string]int64, error) {
	query := `SELECT sync_status, COUNT(*) FROM offline_sync_queue GROUP BY sync_status`

	rows, err := r.conn().QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := map[string]int64{}
	for rows.Next() {
		var status string
		var n int64
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[status] = n
	}
	return counts, rows.Err()
}

func (r *queueRepository) DeviceBreakdown(ctx context.Context) ([]DeviceSyncStatus, error) {
	query := `
SELECT
	device_id,
	COUNT(*) FILTER (WHERE sync_status = 'pending'),
	COUNT(*) FILTER (WHERE sync_status = 'processing'),
	COUNT(*) FILTER (WHERE sync_status = 'completed'),
	COUNT(*) FILTER (WHERE sync_status = 'failed'),
	MAX(synced_at)
FROM offline_sync_queue
GROUP BY device_id
ORDER BY device_id
`
	rows, err := r.conn().QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var devices []DeviceSyncStatus
	for rows.Next() {
		var status DeviceSyncStatus
		err := rows.Scan(
			&status.DeviceID,
			&status.Pending,
			&status.Processing,
			&status.Completed,
			&status.Failed,
			&status.LastSyncedAt,
		)
		if err != nil {
			return nil, err
		}
		devices = append(devices, status)
	}
	return devices, rows.Err()
}

func (r *queueRepository) DeviceStatus(ctx context.Context, deviceID string) (*DeviceSyncStatus, error) {
	query := `
SELECT
	COUNT(*) FILTER (WHERE sync_status = 'pending'),
	COUNT(*) FILTER (WHERE sync_status = 'processing'),
	COUNT(*) FILTER (WHERE sync_status = 'completed'),
	COUNT(*) FILTER (WHERE sync_status = 'failed'),
	MAX(synced_at)
FROM offline_sync_queue
WHERE device_id = $1
`
	var status DeviceSyncStatus
	status.DeviceID = deviceID
	err := r.conn().QueryRowContext(ctx, query, deviceID).Scan(
		&status.Pending,
		&status.Processing,
		&status.Completed,
		&status.Failed,
		&status.LastSyncedAt,
	)
	if err != nil {
		return nil, err
	}
	return &status, nil
}

func (r *queueRepository) History(ctx context.Context, deviceID string, page, limit int) ([]SyncQueueItem, int64, error) {
	if limit <= 0 {
		limit = 50
	}
	if page < 1 {
		page = 1
	}

	var total int64
	countQuery := `SELECT COUNT(*) FROM offline_sync_queue WHERE device_id = $1`
	if err := r.conn().QueryRowContext(ctx, countQuery, deviceID).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `
SELECT ` + itemColumns + `
FROM offline_sync_queue
WHERE device_id = $1
ORDER BY created_at DESC
LIMIT $2 OFFSET $3`

	rows, err := r.conn().QueryContext(ctx, query, deviceID, limit, (page-1)*limit)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []SyncQueueItem
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, *item)
	}
	return items, total, rows.Err()
}
