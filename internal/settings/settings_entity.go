package settings

import (
	"time"

	"github.com/google/uuid"
)

type Setting struct {
	Key       string     `gorm:"column:key;primaryKey"`
	Value     string     `gorm:"column:value;not null"`
	UpdatedBy *uuid.UUID `gorm:"column:updated_by;type:uuid"`
	UpdatedAt time.Time  `gorm:"column:updated_at"`
}

func (Setting) TableName() string {
	return "settings"
}

// Setting keys consulted by the sync core and jobs.
const (
	KeyScannerState               = "scanner_state"
	KeyEveningEnabled             = "evening_enabled"
	KeyPresentCutoffTime          = "present_cutoff_time"
	KeyAttendanceCooldownMinutes  = "attendance_cooldown_minutes"
	KeyDuplicateScanWindowSeconds = "duplicate_scan_window_seconds"
	KeyAutoApproveThresholdSecs   = "auto_approve_threshold_seconds"
	KeyOfflineSyncIntervalMinutes = "offline_sync_interval_minutes"
)

// Defaults applied when a key is absent from the store.
const (
	DefaultPresentCutoffTime          = "07:31"
	DefaultAttendanceCooldownMinutes  = 15
	DefaultDuplicateScanWindowSeconds = 5
	DefaultAutoApproveThresholdSecs   = 2
	DefaultOfflineSyncIntervalMinutes = 10
)
