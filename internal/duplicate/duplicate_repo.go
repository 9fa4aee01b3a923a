package duplicate

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

//go:generate mockgen -source=duplicate_repo.go -destination=mock/duplicate_repo_mock.go -package=mock
type Repository interface {
	WithTx(tx *sql.Tx) Repository
	Create(ctx context.Context, link *DuplicateLink) error
	FindPendingByID(ctx context.Context, id uuid.UUID) (*DuplicateLink, error)
	ListPending(ctx context.Context, page, limit int) ([]DuplicateLink, int64, error)
	SetReview(ctx context.Context, id uuid.UUID, decision string, reviewedBy *uuid.UUID) error
	AutoApprove(ctx context.Context, thresholdSeconds int) (int64, error)
	DeleteAttendanceRecord(ctx context.Context, attendanceID uuid.UUID) error
	ClearDuplicateFlag(ctx context.Context, attendanceID uuid.UUID) error
	DeleteReviewedOlderThan(ctx context.Context, before time.Time) (int64, error)
	CountByReviewStatus(ctx context.Context) (map[string]int64, error)
}

type repository struct {
	db *gorm.DB
	tx *sql.Tx
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *sql.Tx) Repository {
	return &repository{db: r.db, tx: tx}
}

func (r *repository) session(ctx context.Context) *gorm.DB {
	db := r.db.WithContext(ctx)
	if r.tx != nil {
		db = db.Session(&gorm.Session{NewDB: true, Context: ctx})
		db.Statement.ConnPool = r.tx
	}
	return db
}

func (r *repository) Create(ctx context.Context, link *DuplicateLink) error {
	if link.ID == uuid.Nil {
		link.ID = uuid.New()
	}
	if link.ReviewStatus == "" {
		link.ReviewStatus = ReviewPending
	}
	return r.session(ctx).Create(link).Error
}

func (r *repository) FindPendingByID(ctx context.Context, id uuid.UUID) (*DuplicateLink, error) {
	var link DuplicateLink
	err := r.session(ctx).
		Where("id = ?", id).
		Where("review_status = ?", ReviewPending).
		First(&link).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &link, nil
}

func (r *repository) ListPending(ctx context.Context, page, limit int) ([]DuplicateLink, int64, error) {
	if limit <= 0 {
		limit = 50
	}
	if page < 1 {
		page = 1
	}

	q := r.session(ctx).Model(&DuplicateLink{}).Where("review_status = ?", ReviewPending)

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []DuplicateLink
	err := q.
		Order("created_at DESC").
		Limit(limit).
		Offset((page - 1) * limit).
		Find(&rows).Error
	if err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

func (r *repository) SetReview(ctx context.Context, id uuid.UUID, decision string, reviewedBy *uuid.UUID) error {
	return r.session(ctx).
		Model(&DuplicateLink{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"review_status": decision,
			"reviewed_by":   reviewedBy,
			"reviewed_at":   time.Now().UTC(),
		}).Error
}

// AutoApprove marks pending links at or below the threshold approved.
// Near-simultaneous double reads of the same card are noise, not fraud.
func (r *repository) AutoApprove(ctx context.Context, thresholdSeconds int) (int64, error) {
	res := r.session(ctx).
		Model(&DuplicateLink{}).
		Where("review_status = ?", ReviewPending).
		Where("time_difference_seconds <= ?", thresholdSeconds).
		Updates(map[string]any{
			"review_status": ReviewApproved,
			"reviewed_at":   time.Now().UTC(),
		})
	return res.RowsAffected, res.Error
}

func (r *repository) DeleteAttendanceRecord(ctx context.Context, attendanceID uuid.UUID) error {
	return r.session(ctx).Exec(`DELETE FROM attendance_records WHERE id = ?`, attendanceID).Error
}

func (r *repository) ClearDuplicateFlag(ctx context.Context, attendanceID uuid.UUID) error {
	return r.session(ctx).Exec(`UPDATE attendance_records SET is_duplicate = false WHERE id = ?`, attendanceID).Error
}

func (r *repository) DeleteReviewedOlderThan(ctx context.Context, before time.Time) (int64, error) {
	res := r.session(ctx).
		Where("review_status IN ?", []string{ReviewApproved, ReviewRejected}).
		Where("reviewed_at < ?", before).
		Delete(&DuplicateLink{})
	return res.RowsAffected, res.Error
}

func (r *repository) CountByReviewStatus(ctx context.Context) (map[string]int64, error) {
	var rows []struct {
		ReviewStatus string
		N            int64
	}
	err := r.session(ctx).
		Model(&DuplicateLink{}).
		Select("review_status, COUNT(*) AS n").
		Group("review_status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := map[string]int64{}
	for _, row := range rows {
		counts[row.ReviewStatus] = row.N
	}
	return counts, nil
}
