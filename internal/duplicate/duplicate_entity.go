package duplicate

import (
	"time"

	"github.com/google/uuid"
)

const (
	ReviewPending  = "pending"
	ReviewApproved = "approved"
	ReviewRejected = "rejected"
)

// DuplicateLink pairs a duplicate scan with the canonical original it
// collided with. A duplicate scan appears in at most one link.
type DuplicateLink struct {
	ID                    uuid.UUID  `gorm:"column:id;type:uuid;primaryKey;default:gen_random_uuid()"`
	OriginalScanID        uuid.UUID  `gorm:"column:original_scan_id;type:uuid;not null"`
	DuplicateScanID       uuid.UUID  `gorm:"column:duplicate_scan_id;type:uuid;not null;uniqueIndex"`
	TimeDifferenceSeconds int        `gorm:"column:time_difference_seconds;not null"`
	ReviewStatus          string     `gorm:"column:review_status;not null;default:pending"`
	ReviewedBy            *uuid.UUID `gorm:"column:reviewed_by;type:uuid"`
	ReviewedAt            *time.Time `gorm:"column:reviewed_at"`
	CreatedAt             time.Time  `gorm:"column:created_at"`
}

func (DuplicateLink) TableName() string {
	return "duplicate_links"
}
