package attendance

import (
	"time"

	"github.com/google/uuid"
)

// Attendance statuses as persisted. P = Present, L = Late, A = Absent.
const (
	StatusPresent = "P"
	StatusLate    = "L"
	StatusAbsent  = "A"
)

const (
	SyncStatusSynced  = "synced"
	SyncStatusPending = "pending"
)

type AttendanceRecord struct {
	ID          uuid.UUID  `gorm:"column:id;type:uuid;primaryKey;default:gen_random_uuid()"`
	CadetID     uuid.UUID  `gorm:"column:cadet_id;type:uuid;not null;index"`
	Date        time.Time  `gorm:"column:date;type:date;not null"`
	TimeIn      time.Time  `gorm:"column:time_in;type:timestamptz;not null"`
	TimeOut     *time.Time `gorm:"column:time_out;type:timestamptz"`
	Status      string     `gorm:"column:status;type:varchar(1);not null"`
	Semester    *int       `gorm:"column:semester"`
	WeekNumber  *int       `gorm:"column:week_number"`
	EventName   *string    `gorm:"column:event_name"`
	Location    *string    `gorm:"column:location;type:text"`
	IsDuplicate bool       `gorm:"column:is_duplicate;not null;default:false"`
	DuplicateOf *uuid.UUID `gorm:"column:duplicate_of;type:uuid"`
	SyncStatus  string     `gorm:"column:sync_status;not null;default:synced"`
	DeviceID    *string    `gorm:"column:device_id"`
	CreatedAt   time.Time  `gorm:"column:created_at"`
}

func (AttendanceRecord) TableName() string {
	return "attendance_records"
}

// Open reports whether the record still awaits a time-out.
func (a *AttendanceRecord) Open() bool {
	return a.TimeOut == nil
}
