package cadet

import (
	"time"

	"github.com/google/uuid"
)

type Cadet struct {
	ID            uuid.UUID `gorm:"column:id;type:uuid;primaryKey;default:gen_random_uuid()"`
	StudentNumber string    `gorm:"column:student_number;not null;uniqueIndex"`
	FirstName     string    `gorm:"column:first_name;not null"`
	LastName      string    `gorm:"column:last_name;not null"`
	MI            *string   `gorm:"column:mi"`
	Course        *string   `gorm:"column:course"`
	CreatedAt     time.Time `gorm:"column:created_at"`
	UpdatedAt     time.Time `gorm:"column:updated_at"`
}

func (Cadet) TableName() string {
	return "cadets"
}
