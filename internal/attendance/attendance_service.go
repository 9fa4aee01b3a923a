package attendance

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	attendanceerrors "github.com/Project-Zedd/rotc-system-final/internal/attendance/errors"
	"github.com/Project-Zedd/rotc-system-final/internal/cadet"
	"github.com/Project-Zedd/rotc-system-final/internal/settings"
	"github.com/Project-Zedd/rotc-system-final/internal/shared/apperror"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CreateAttendanceInput carries the fields of a new ledger entry. Semester
// and week are derived from Date when absent.
type CreateAttendanceInput struct {
	CadetID     uuid.UUID
	Date        time.Time
	TimeIn      time.Time
	TimeOut     *time.Time
	Status      string
	Semester    *int
	WeekNumber  *int
	EventName   *string
	Location    *string
	IsDuplicate bool
	DuplicateOf *uuid.UUID
	SyncStatus  string
	DeviceID    *string
}

// Service is the authoritative attendance ledger. It exclusively owns
// AttendanceRecord mutation; the duplicate detector only reads through it.
//
//go:generate mockgen -source=attendance_service.go -destination=mock/attendance_service_mock.go -package=mock
type Service interface {
	// WithTx binds the ledger to a caller-owned transaction. Used by the
	// sync processor so replayed scans commit atomically per queue item.
	WithTx(tx *sql.Tx) Service

	CreateAttendance(ctx context.Context, input CreateAttendanceInput) (*AttendanceRecord, error)
	GetTodayAttendance(ctx context.Context, cadetID uuid.UUID) (*AttendanceRecord, error)
	UpdateTimeOut(ctx context.Context, recordID uuid.UUID, timeOut time.Time, status string) (*AttendanceRecord, error)
	MarkAbsentCadets(ctx context.Context, date time.Time, cutoff time.Time) ([]uuid.UUID, error)
	CheckDuplicateScan(ctx context.Context, cadetID uuid.UUID, timestamp time.Time, windowSeconds int) ([]AttendanceRecord, error)

	Scan(ctx context.Context, req ScanRequest) (AttendanceResponse, error)
	ManualEntry(ctx context.Context, req ManualEntryRequest) (AttendanceResponse, error)
	GetLogs(ctx context.Context, filter LogFilter, page, limit int) ([]AttendanceResponse, int64, error)
	GetCadetStats(ctx context.Context, cadetID uuid.UUID, semester *int) ([]CadetSemesterStats, error)
	CleanOldAttendance(ctx context.Context, olderThan time.Duration) (int64, error)
}

type service struct {
	db       *sql.DB
	repo     Repository
	cadets   cadet.Repository
	settings settings.Service
	logger   *zap.Logger
}

func NewService(db *sql.DB, repo Repository, cadets cadet.Repository, settingsSvc settings.Service) Service {
	return &service{
		db:       db,
		repo:     repo,
		cadets:   cadets,
		settings: settingsSvc,
		logger:   zap.L().Named("attendance"),
	}
}

func (s *service) WithTx(tx *sql.Tx) Service {
	return &service{
		db:       s.db,
		repo:     s.repo.WithTx(tx),
		cadets:   s.cadets,
		settings: s.settings,
		logger:   s.logger,
	}
}

func validateCreate(input CreateAttendanceInput) error {
	if input.CadetID == uuid.Nil {
		return apperror.RequiredField("cadet_id")
	}
	if input.Date.IsZero() {
		return apperror.RequiredField("date")
	}
	if input.TimeIn.IsZero() {
		return apperror.RequiredField("time_in")
	}
	switch input.Status {
	case StatusPresent, StatusLate, StatusAbsent:
	default:
		return apperror.InvalidField("status")
	}
	if input.Semester != nil && (*input.Semester < 1 || *input.Semester > maxSemester) {
		return apperror.InvalidField("semester")
	}
	if input.WeekNumber != nil && (*input.WeekNumber < 1 || *input.WeekNumber > maxWeek) {
		return apperror.InvalidField("week_number")
	}
	return nil
}

func (s *service) CreateAttendance(ctx context.Context, input CreateAttendanceInput) (*AttendanceRecord, error) {
	if err := validateCreate(input); err != nil {
		return nil, err
	}

	if input.Semester == nil || input.WeekNumber == nil {
		input.Semester, input.WeekNumber = CalculateSemesterAndWeek(input.Date)
	}
	if input.SyncStatus == "" {
		input.SyncStatus = SyncStatusSynced
	}

	rec := &AttendanceRecord{
		CadetID:     input.CadetID,
		Date:        input.Date,
		TimeIn:      input.TimeIn,
		TimeOut:     input.TimeOut,
		Status:      input.Status,
		Semester:    input.Semester,
		WeekNumber:  input.WeekNumber,
		EventName:   input.EventName,
		Location:    input.Location,
		IsDuplicate: input.IsDuplicate,
		DuplicateOf: input.DuplicateOf,
		SyncStatus:  input.SyncStatus,
		DeviceID:    input.DeviceID,
	}
	if err := s.repo.Create(ctx, rec); err != nil {
		return nil, mapRepositoryError(err)
	}
	return rec, nil
}

func (s *service) GetTodayAttendance(ctx context.Context, cadetID uuid.UUID) (*AttendanceRecord, error) {
	today := time.Now().UTC().Truncate(24 * time.Hour)
	rec, err := s.repo.FindLatestByCadetAndDate(ctx, cadetID, today)
	if err != nil {
		return nil, apperror.Storage(err)
	}
	return rec, nil
}

func (s *service) UpdateTimeOut(ctx context.Context, recordID uuid.UUID, timeOut time.Time, status string) (*AttendanceRecord, error) {
	rec, err := s.repo.SetTimeOut(ctx, recordID, timeOut, status)
	if err != nil {
		return nil, apperror.Storage(err)
	}
	if rec == nil {
		return nil, attendanceerrors.ErrRecordNotFound
	}
	return rec, nil
}

func (s *service) MarkAbsentCadets(ctx context.Context, date time.Time, cutoff time.Time) ([]uuid.UUID, error) {
	cadetIDs, err := s.repo.MarkAbsentOpenRecords(ctx, date, cutoff)
	if err != nil {
		return nil, apperror.Storage(err)
	}
	s.logger.Info("marked absent cadets",
		zap.String("date", date.Format("2006-01-02")),
		zap.Int("count", len(cadetIDs)),
	)
	return cadetIDs, nil
}

// CheckDuplicateScan returns records with time_in inside [timestamp-w,
// timestamp+w], newest first. Pure read.
func (s *service) CheckDuplicateScan(ctx context.Context, cadetID uuid.UUID, timestamp time.Time, windowSeconds int) ([]AttendanceRecord, error) {
	window := time.Duration(windowSeconds) * time.Second
	rows, err := s.repo.FindInWindow(ctx, cadetID, timestamp.Add(-window), timestamp.Add(window))
	if err != nil {
		return nil, apperror.Storage(err)
	}
	return rows, nil
}

// Scan handles a live scanner action. Offline batches bypass this path and
// arrive through the sync queue instead.
func (s *service) Scan(ctx context.Context, req ScanRequest) (AttendanceResponse, error) {
	enabled, err := s.settings.GetScannerState(ctx)
	if err != nil {
		return AttendanceResponse{}, err
	}
	if !enabled {
		return AttendanceResponse{}, attendanceerrors.ErrScannerDisabled
	}

	c, err := s.cadets.FindByStudentNumber(ctx, req.StudentNumber)
	if err != nil {
		return AttendanceResponse{}, apperror.Storage(err)
	}
	if c == nil {
		return AttendanceResponse{}, attendanceerrors.ErrCadetNotFound
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return AttendanceResponse{}, apperror.Storage(err)
	}
	defer tx.Rollback()

	qtx := s.repo.WithTx(tx)
	now := time.Now().UTC()
	today := now.Truncate(24 * time.Hour)

	existing, err := qtx.FindLatestByCadetAndDate(ctx, c.ID, today)
	if err != nil {
		return AttendanceResponse{}, apperror.Storage(err)
	}

	switch req.Action {
	case "time_in":
		if existing != nil {
			if cooldownActive(existing, now, s.cooldown(ctx)) {
				return AttendanceResponse{}, attendanceerrors.ErrCooldownActive
			}
			return AttendanceResponse{}, attendanceerrors.ErrAlreadyTimedIn
		}

		status, err := s.statusForTimeIn(ctx, now)
		if err != nil {
			return AttendanceResponse{}, err
		}
		semester, week := CalculateSemesterAndWeek(today)
		rec := &AttendanceRecord{
			CadetID:    c.ID,
			Date:       today,
			TimeIn:     now,
			Status:     status,
			Semester:   semester,
			WeekNumber: week,
			Location:   req.Location,
			SyncStatus: SyncStatusSynced,
			DeviceID:   req.DeviceID,
		}
		if err := qtx.Create(ctx, rec); err != nil {
			return AttendanceResponse{}, apperror.Storage(err)
		}
		if err := tx.Commit(); err != nil {
			return AttendanceResponse{}, apperror.Storage(err)
		}
		return mapToResponse(*rec), nil

	case "time_out":
		if existing == nil {
			return AttendanceResponse{}, attendanceerrors.ErrNoTimeInRecord
		}
		if !existing.Open() {
			return AttendanceResponse{}, attendanceerrors.ErrAlreadyTimedOut
		}

		updated, err := qtx.SetTimeOut(ctx, existing.ID, now, existing.Status)
		if err != nil {
			return AttendanceResponse{}, apperror.Storage(err)
		}
		if updated == nil {
			return AttendanceResponse{}, attendanceerrors.ErrRecordNotFound
		}
		if err := tx.Commit(); err != nil {
			return AttendanceResponse{}, apperror.Storage(err)
		}
		return mapToResponse(*updated), nil

	default:
		return AttendanceResponse{}, apperror.InvalidField("action")
	}
}

func (s *service) cooldown(ctx context.Context) time.Duration {
	minutes, err := s.settings.GetAttendanceCooldownMinutes(ctx)
	if err != nil {
		return time.Duration(settings.DefaultAttendanceCooldownMinutes) * time.Minute
	}
	return time.Duration(minutes) * time.Minute
}

func cooldownActive(existing *AttendanceRecord, now time.Time, cooldown time.Duration) bool {
	return now.Sub(existing.TimeIn) < cooldown
}

// statusForTimeIn compares the scan instant against the configured present
// cutoff (HH:MM) for that day.
func (s *service) statusForTimeIn(ctx context.Context, now time.Time) (string, error) {
	cutoffHHMM, err := s.settings.GetPresentCutoffTime(ctx)
	if err != nil {
		return "", err
	}

	var hour, minute int
	if _, err := fmt.Sscanf(cutoffHHMM, "%d:%d", &hour, &minute); err != nil {
		hour, minute = 7, 31
	}
	cutoff := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())

	if now.Before(cutoff) {
		return StatusPresent, nil
	}
	return StatusLate, nil
}

func (s *service) ManualEntry(ctx context.Context, req ManualEntryRequest) (AttendanceResponse, error) {
	cadetID, err := uuid.Parse(req.CadetID)
	if err != nil {
		return AttendanceResponse{}, apperror.InvalidField("cadet_id")
	}
	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		return AttendanceResponse{}, apperror.InvalidField("date")
	}
	timeIn, err := time.Parse(time.RFC3339, req.TimeIn)
	if err != nil {
		return AttendanceResponse{}, apperror.InvalidField("time_in")
	}
	var timeOut *time.Time
	if req.TimeOut != nil {
		t, err := time.Parse(time.RFC3339, *req.TimeOut)
		if err != nil {
			return AttendanceResponse{}, apperror.InvalidField("time_out")
		}
		timeOut = &t
	}

	rec, err := s.CreateAttendance(ctx, CreateAttendanceInput{
		CadetID:   cadetID,
		Date:      date,
		TimeIn:    timeIn,
		TimeOut:   timeOut,
		Status:    StatusPresent,
		EventName: req.EventName,
	})
	if err != nil {
		return AttendanceResponse{}, err
	}
	return mapToResponse(*rec), nil
}

func (s *service) GetLogs(ctx context.Context, filter LogFilter, page, limit int) ([]AttendanceResponse, int64, error) {
	rows, total, err := s.repo.List(ctx, filter, page, limit)
	if err != nil {
		return nil, 0, apperror.Storage(err)
	}
	res := make([]AttendanceResponse, len(rows))
	for i, r := range rows {
		res[i] = mapToResponse(r)
	}
	return res, total, nil
}

func (s *service) GetCadetStats(ctx context.Context, cadetID uuid.UUID, semester *int) ([]CadetSemesterStats, error) {
	if cadetID == uuid.Nil {
		return nil, apperror.RequiredField("cadet_id")
	}
	if semester != nil && (*semester < 1 || *semester > maxSemester) {
		return nil, apperror.InvalidField("semester")
	}
	rows, err := s.repo.CadetStats(ctx, cadetID, semester)
	if err != nil {
		return nil, apperror.Storage(err)
	}
	return rows, nil
}

func (s *service) CleanOldAttendance(ctx context.Context, olderThan time.Duration) (int64, error) {
	before := time.Now().UTC().Add(-olderThan)
	count, err := s.repo.DeleteOlderThan(ctx, before)
	if err != nil {
		return 0, apperror.Storage(err)
	}
	if count > 0 {
		s.logger.Info("old attendance records removed", zap.Int64("count", count))
	}
	return count, nil
}
