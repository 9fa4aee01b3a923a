package duplicate

import (
	"context"
	"database/sql"
	"time"

	duplicateerrors "github.com/Project-Zedd/rotc-system-final/internal/duplicate/errors"
	"github.com/Project-Zedd/rotc-system-final/internal/settings"
	"github.com/Project-Zedd/rotc-system-final/internal/shared/apperror"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

//go:generate mockgen -source=review_service.go -destination=mock/review_service_mock.go -package=mock
type Service interface {
	ListPending(ctx context.Context, page, limit int) ([]DuplicateLinkResponse, int64, error)
	Review(ctx context.Context, linkID uuid.UUID, decision string, reviewedBy *uuid.UUID) error
	BulkReview(ctx context.Context, linkIDs []uuid.UUID, decision string, reviewedBy *uuid.UUID) BulkReviewResult
	AutoApprove(ctx context.Context) (int64, error)
	CleanOldReviewed(ctx context.Context, olderThan time.Duration) (int64, error)
	Statistics(ctx context.Context) (ReviewStatistics, error)
}

type service struct {
	db       *sql.DB
	repo     Repository
	settings settings.Service
	logger   *zap.Logger
}

func NewService(db *sql.DB, repo Repository, settingsSvc settings.Service) Service {
	return &service{
		db:       db,
		repo:     repo,
		settings: settingsSvc,
		logger:   zap.L().Named("duplicate"),
	}
}

func (s *service) ListPending(ctx context.Context, page, limit int) ([]DuplicateLinkResponse, int64, error) {
	rows, total, err := s.repo.ListPending(ctx, page, limit)
	if err != nil {
		return nil, 0, apperror.Storage(err)
	}
	res := make([]DuplicateLinkResponse, len(rows))
	for i, r := range rows {
		res[i] = mapLinkToResponse(r)
	}
	return res, total, nil
}

// Review settles one pending link. Approving keeps the flagged record as a
// marked duplicate. Rejecting deletes the duplicate record and clears the
// flag on the original, all in one transaction.
func (s *service) Review(ctx context.Context, linkID uuid.UUID, decision string, reviewedBy *uuid.UUID) error {
	if decision != ReviewApproved && decision != ReviewRejected {
		return duplicateerrors.ErrInvalidDecision
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return apperror.Storage(err)
	}
	defer tx.Rollback()

	qtx := s.repo.WithTx(tx)

	link, err := qtx.FindPendingByID(ctx, linkID)
	if err != nil {
		return apperror.Storage(err)
	}
	if link == nil {
		return duplicateerrors.ErrLinkNotFound
	}

	if err := qtx.SetReview(ctx, linkID, decision, reviewedBy); err != nil {
		return apperror.Storage(err)
	}

	if decision == ReviewRejected {
		if err := qtx.DeleteAttendanceRecord(ctx, link.DuplicateScanID); err != nil {
			return apperror.Storage(err)
		}
		if err := qtx.ClearDuplicateFlag(ctx, link.OriginalScanID); err != nil {
			return apperror.Storage(err)
		}
	}

	if err := tx.Commit(); err != nil {
		return apperror.Storage(err)
	}

	s.logger.Info("duplicate link reviewed",
		zap.String("link_id", linkID.String()),
		zap.String("decision", decision),
	)
	return nil
}

// BulkReview applies the same decision per link. Each link commits on its
// own, so one bad id does not void the rest.
func (s *service) BulkReview(ctx context.Context, linkIDs []uuid.UUID, decision string, reviewedBy *uuid.UUID) BulkReviewResult {
	result := BulkReviewResult{}
	for _, id := range linkIDs {
		if err := s.Review(ctx, id, decision, reviewedBy); err != nil {
			result.Failed = append(result.Failed, BulkReviewFailure{
				LinkID: id.String(),
				Error:  err.Error(),
			})
			continue
		}
		result.Reviewed++
	}
	return result
}

func (s *service) AutoApprove(ctx context.Context) (int64, error) {
	threshold, err := s.settings.GetAutoApproveThresholdSeconds(ctx)
	if err != nil {
		threshold = settings.DefaultAutoApproveThresholdSecs
	}

	count, err := s.repo.AutoApprove(ctx, threshold)
	if err != nil {
		return 0, apperror.Storage(err)
	}
	if count > 0 {
		s.logger.Info("auto-approved duplicate links",
			zap.Int64("count", count),
			zap.Int("threshold_seconds", threshold),
		)
	}
	return count, nil
}

func (s *service) CleanOldReviewed(ctx context.Context, olderThan time.Duration) (int64, error) {
	before := time.Now().UTC().Add(-olderThan)
	count, err := s.repo.DeleteReviewedOlderThan(ctx, before)
	if err != nil {
		return 0, apperror.Storage(err)
	}
	return count, nil
}

func (s *service) Statistics(ctx context.Context) (ReviewStatistics, error) {
	counts, err := s.repo.CountByReviewStatus(ctx)
	if err != nil {
		return ReviewStatistics{}, apperror.Storage(err)
	}
	stats := ReviewStatistics{
		Pending:  counts[ReviewPending],
		Approved: counts[ReviewApproved],
		Rejected: counts[ReviewRejected],
	}
	stats.Total = stats.Pending + stats.Approved + stats.Rejected
	return stats, nil
}
