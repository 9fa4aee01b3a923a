package offlinesync

import (
	"time"

	"github.com/google/uuid"
)

const (
	SyncStatusPending    = "pending"
	SyncStatusProcessing = "processing"
	SyncStatusCompleted  = "completed"
	SyncStatusFailed     = "failed"
)

// SyncQueueItem is one encrypted batch of scans uploaded by a scanner device
// after it regains connectivity. The payload stays encrypted at rest; it is
// only opened while the item is being processed.
type SyncQueueItem struct {
	ID               uuid.UUID
	DeviceID         string
	EncryptedPayload string
	SyncStatus       string
	Results          []byte
	ErrorMessage     *string
	CreatedAt        time.Time
	ClaimedAt        *time.Time
	SyncedAt         *time.Time
}

// ScanEvent is a single decrypted entry inside a batch payload.
type ScanEvent struct {
	StudentNumber string  `json:"student_number"`
	Timestamp     string  `json:"timestamp"`
	EventName     *string `json:"event_name,omitempty"`
	Location      *string `json:"location,omitempty"`
}

// EventResult records the outcome for one event of a processed batch. The
// slice of these is stored on the queue item as its results document.
type EventResult struct {
	Index         int    `json:"index"`
	StudentNumber string `json:"student_number,omitempty"`
	Outcome       string `json:"outcome"`
	AttendanceID  string `json:"attendance_id,omitempty"`
	OriginalID    string `json:"original_id,omitempty"`
	Error         string `json:"error,omitempty"`
}

const (
	OutcomeCreated   = "created"
	OutcomeDuplicate = "duplicate"
	OutcomeFailed    = "failed"
)
