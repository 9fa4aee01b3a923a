package duplicate

import "time"

type ReviewRequest struct {
	Decision string `json:"decision" binding:"required,oneof=approved rejected"`
}

type BulkReviewRequest struct {
	LinkIDs  []string `json:"link_ids" binding:"required,min=1,dive,uuid"`
	Decision string   `json:"decision" binding:"required,oneof=approved rejected"`
}

type BulkReviewFailure struct {
	LinkID string `json:"link_id"`
	Error  string `json:"error"`
}

type BulkReviewResult struct {
	Reviewed int                 `json:"reviewed"`
	Failed   []BulkReviewFailure `json:"failed,omitempty"`
}

type ReviewStatistics struct {
	Pending  int64 `json:"pending"`
	Approved int64 `json:"approved"`
	Rejected int64 `json:"rejected"`
	Total    int64 `json:"total"`
}

type DuplicateLinkResponse struct {
	ID                    string  `json:"id"`
	OriginalScanID        string  `json:"original_scan_id"`
	DuplicateScanID       string  `json:"duplicate_scan_id"`
	TimeDifferenceSeconds int     `json:"time_difference_seconds"`
	ReviewStatus          string  `json:"review_status"`
	ReviewedBy            *string `json:"reviewed_by,omitempty"`
	ReviewedAt            *string `json:"reviewed_at,omitempty"`
	CreatedAt             string  `json:"created_at"`
}

func mapLinkToResponse(l DuplicateLink) DuplicateLinkResponse {
	resp := DuplicateLinkResponse{
		ID:                    l.ID.String(),
		OriginalScanID:        l.OriginalScanID.String(),
		DuplicateScanID:       l.DuplicateScanID.String(),
		TimeDifferenceSeconds: l.TimeDifferenceSeconds,
		ReviewStatus:          l.ReviewStatus,
		CreatedAt:             l.CreatedAt.Format(time.RFC3339),
	}
	if l.ReviewedBy != nil {
		v := l.ReviewedBy.String()
		resp.ReviewedBy = &v
	}
	if l.ReviewedAt != nil {
		v := l.ReviewedAt.Format(time.RFC3339)
		resp.ReviewedAt = &v
	}
	return resp
}
