package duplicate

import (
	"net/http"
	"strconv"

	"github.com/Project-Zedd/rotc-system-final/internal/shared/apperror"
	"github.com/Project-Zedd/rotc-system-final/internal/shared/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

func writeServiceError(c *gin.Context, err error) {
	httpErr := apperror.ToHTTP(err)
	response.Error(c, httpErr.Status, httpErr.Code, httpErr.Message, httpErr.Details)
}

func actorID(c *gin.Context) *uuid.UUID {
	raw := c.GetString("admin_id")
	if raw == "" {
		return nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil
	}
	return &id
}

func (h *Handler) ListPending(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	if page < 1 {
		page = 1
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("page_size", "50"))
	if limit < 1 {
		limit = 50
	}

	rows, total, err := h.service.ListPending(c.Request.Context(), page, limit)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	meta := response.NewPaginationMeta(total, page, limit)
	response.Success(c, http.StatusOK, rows, &meta)
}

func (h *Handler) Review(c *gin.Context) {
	linkID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, http.StatusBadRequest, apperror.CodeInvalidInput, "Link Id is invalid", nil)
		return
	}

	var req ReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		mapped := apperror.MapValidationError(err)
		writeServiceError(c, mapped)
		return
	}

	if err := h.service.Review(c.Request.Context(), linkID, req.Decision, actorID(c)); err != nil {
		writeServiceError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"link_id": linkID.String(), "decision": req.Decision}, nil)
}

func (h *Handler) BulkReview(c *gin.Context) {
	var req BulkReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		mapped := apperror.MapValidationError(err)
		writeServiceError(c, mapped)
		return
	}

	ids := make([]uuid.UUID, 0, len(req.LinkIDs))
	for _, raw := range req.LinkIDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			response.Error(c, http.StatusBadRequest, apperror.CodeInvalidInput, "Link Id is invalid", nil)
			return
		}
		ids = append(ids, id)
	}

	result := h.service.BulkReview(c.Request.Context(), ids, req.Decision, actorID(c))
	response.Success(c, http.StatusOK, result, nil)
}

func (h *Handler) Statistics(c *gin.Context) {
	stats, err := h.service.Statistics(c.Request.Context())
	if err != nil {
		writeServiceError(c, err)
		return
	}
	response.Success(c, http.StatusOK, stats, nil)
}
