package attendance

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

//go:generate mockgen -source=attendance_repo.go -destination=mock/attendance_repo_mock.go -package=mock
type Repository interface {
	WithTx(tx *sql.Tx) Repository
	Create(ctx context.Context, rec *AttendanceRecord) error
	FindByID(ctx context.Context, id uuid.UUID) (*AttendanceRecord, error)
	FindLatestByCadetAndDate(ctx context.Context, cadetID uuid.UUID, date time.Time) (*AttendanceRecord, error)
	FindInWindow(ctx context.Context, cadetID uuid.UUID, from, to time.Time) ([]AttendanceRecord, error)
	SetTimeOut(ctx context.Context, id uuid.UUID, timeOut time.Time, status string) (*AttendanceRecord, error)
	MarkAbsentOpenRecords(ctx context.Context, date time.Time, cutoff time.Time) ([]uuid.UUID, error)
	List(ctx context.Context, filter LogFilter, page, limit int) ([]AttendanceRecord, int64, error)
	CadetStats(ctx context.Context, cadetID uuid.UUID, semester *int) ([]CadetSemesterStats, error)
	DeleteOlderThan(ctx context.Context, before time.Time) (int64, error)
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

// session returns the gorm handle bound to the active transaction when the
// caller opened one via WithTx.
func (r *repository) session(ctx context.Context) *gorm.DB {
	db := r.db.WithContext(ctx)
	if r.tx != nil {
		db = db.Session(&gorm.Session{NewDB: true, Context: ctx})
		db.Statement.ConnPool = r.tx
	}
	return db
}

func (r *repository) Create(ctx context.Context, rec *AttendanceRecord) error {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	return r.session(ctx).Create(rec).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*AttendanceRecord, error) {
	var rec AttendanceRecord
	err := r.session(ctx).Where("id = ?", id).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *repository) FindLatestByCadetAndDate(ctx context.Context, cadetID uuid.UUID, date time.Time) (*AttendanceRecord, error) {
	var rec AttendanceRecord
	err := r.session(ctx).
		Where("cadet_id = ?", cadetID).
		Where("date = ?", date.Format("2006-01-02")).
		Order("time_in DESC").
		First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// FindInWindow returns records whose time_in falls inside [from, to],
// newest first. The DESC ordering is load-bearing: the duplicate detector
// treats the first row as the canonical original.
func (r *repository) FindInWindow(ctx context.Context, cadetID uuid.UUID, from, to time.Time) ([]AttendanceRecord, error) {
	var rows []AttendanceRecord
	err := r.session(ctx).
		Where("cadet_id = ?", cadetID).
		Where("time_in BETWEEN ? AND ?", from, to).
		Order("time_in DESC").
		Find(&rows).Error
	return rows, err
}

func (r *repository) SetTimeOut(ctx context.Context, id uuid.UUID, timeOut time.Time, status string) (*AttendanceRecord, error) {
	res := r.session(ctx).
		Model(&AttendanceRecord{}).
		Where("id = ?", id).
		Updates(map[string]any{"time_out": timeOut, "status": status})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, nil
	}
	return r.FindByID(ctx, id)
}

// MarkAbsentOpenRecords is the daily-cutoff bulk update. The status != 'A'
// guard makes re-runs with identical arguments no-ops.
func (r *repository) MarkAbsentOpenRecords(ctx context.Context, date time.Time, cutoff time.Time) ([]uuid.UUID, error) {
	var cadetIDs []uuid.UUID
	err := r.session(ctx).Raw(`
		UPDATE attendance_records
		SET status = ?
		WHERE date = ?
		  AND time_out IS NULL
		  AND time_in < ?
		  AND status != ?
		RETURNING cadet_id
	`, StatusAbsent, date.Format("2006-01-02"), cutoff, StatusAbsent).
		Scan(&cadetIDs).Error
	if err != nil {
		return nil, err
	}
	return cadetIDs, nil
}

// CadetSemesterStats is one per-semester aggregate row of a cadet's ledger.
type CadetSemesterStats struct {
	Semester      *int  `json:"semester"`
	PresentCount  int64 `json:"present_count"`
	LateCount     int64 `json:"late_count"`
	AbsentCount   int64 `json:"absent_count"`
	TotalCount    int64 `json:"total_count"`
	WeeksAttended int64 `json:"weeks_attended"`
}

type LogFilter struct {
	Date       *time.Time
	CadetID    *uuid.UUID
	Status     string
	Semester   *int
	WeekNumber *int
	DeviceID   string
}

func (r *repository) List(ctx context.Context, filter LogFilter, page, limit int) ([]AttendanceRecord, int64, error) {
	if limit <= 0 {
		limit = 50
	}
	if page < 1 {
		page = 1
	}

	q := r.session(ctx).Model(&AttendanceRecord{})
	if filter.Date != nil {
		q = q.Where("date = ?", filter.Date.Format("2006-01-02"))
	}
	if filter.CadetID != nil {
		q = q.Where("cadet_id = ?", *filter.CadetID)
	}
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.Semester != nil {
		q = q.Where("semester = ?", *filter.Semester)
	}
	if filter.WeekNumber != nil {
		q = q.Where("week_number = ?", *filter.WeekNumber)
	}
	if filter.DeviceID != "" {
		q = q.Where("device_id = ?", filter.DeviceID)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []AttendanceRecord
	err := q.
		Order("date DESC, time_in DESC").
		Limit(limit).
		Offset((page - 1) * limit).
		Find(&rows).Error
	if err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

func (r *repository) CadetStats(ctx context.Context, cadetID uuid.UUID, semester *int) ([]CadetSemesterStats, error) {
	q := r.session(ctx).
		Model(&AttendanceRecord{}).
		Select(`semester,
			COUNT(*) FILTER (WHERE status = 'P') AS present_count,
			COUNT(*) FILTER (WHERE status = 'L') AS late_count,
			COUNT(*) FILTER (WHERE status = 'A') AS absent_count,
			COUNT(*) AS total_count,
			COUNT(DISTINCT week_number) AS weeks_attended`).
		Where("cadet_id = ?", cadetID)
	if semester != nil {
		q = q.Where("semester = ?", *semester)
	}

	var rows []CadetSemesterStats
	err := q.Group("semester").Order("semester").Scan(&rows).Error
	return rows, err
}

func (r *repository) DeleteOlderThan(ctx context.Context, before time.Time) (int64, error) {
	res := r.session(ctx).
		Where("date < ?", before.Format("2006-01-02")).
		Delete(&AttendanceRecord{})
	return res.RowsAffected, res.Error
}
