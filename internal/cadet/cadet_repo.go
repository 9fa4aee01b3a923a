// Package cadet is a thin lookup over the roster. Roster CRUD is owned by
// the admin surface, not this service; the sync core only needs existence
// checks when replaying scans.
package cadet

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

//go:generate mockgen -source=cadet_repo.go -destination=mock/cadet_repo_mock.go -package=mock
type Repository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Cadet, error)
	FindByStudentNumber(ctx context.Context, studentNumber string) (*Cadet, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*Cadet, error) {
	var c Cadet
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *repository) FindByStudentNumber(ctx context.Context, studentNumber string) (*Cadet, error) {
	var c Cadet
	err := r.db.WithContext(ctx).Where("student_number = ?", studentNumber).First(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}
