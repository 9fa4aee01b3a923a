package attendance

import (
	"net/http"
	"strconv"
	"time"

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

func (h *Handler) Scan(c *gin.Context) {
	var req ScanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		mapped := apperror.MapValidationError(err)
		writeServiceError(c, mapped)
		return
	}

	resp, err := h.service.Scan(c.Request.Context(), req)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, resp, nil)
}

func (h *Handler) ManualEntry(c *gin.Context) {
	var req ManualEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		mapped := apperror.MapValidationError(err)
		writeServiceError(c, mapped)
		return
	}

	resp, err := h.service.ManualEntry(c.Request.Context(), req)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, resp, nil)
}

func (h *Handler) GetLogs(c *gin.Context) {
	var filter LogFilter

	if raw := c.Query("date"); raw != "" {
		d, err := time.Parse("2006-01-02", raw)
		if err != nil {
			response.Error(c, http.StatusBadRequest, apperror.CodeInvalidInput, "Date is invalid", nil)
			return
		}
		filter.Date = &d
	}
	if raw := c.Query("cadet_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			response.Error(c, http.StatusBadRequest, apperror.CodeInvalidInput, "Cadet Id is invalid", nil)
			return
		}
		filter.CadetID = &id
	}
	if raw := c.Query("status"); raw != "" {
		filter.Status = raw
	}
	if raw := c.Query("semester"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			filter.Semester = &n
		}
	}
	if raw := c.Query("week_number"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			filter.WeekNumber = &n
		}
	}
	filter.DeviceID = c.Query("device_id")

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	if page < 1 {
		page = 1
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("page_size", "50"))
	if limit < 1 {
		limit = 50
	}

	rows, total, err := h.service.GetLogs(c.Request.Context(), filter, page, limit)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	meta := response.NewPaginationMeta(total, page, limit)
	response.Success(c, http.StatusOK, rows, &meta)
}

func (h *Handler) GetCadetStats(c *gin.Context) {
	cadetID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, http.StatusBadRequest, apperror.CodeInvalidInput, "Cadet Id is invalid", nil)
		return
	}

	var semester *int
	if raw := c.Query("semester"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			response.Error(c, http.StatusBadRequest, apperror.CodeInvalidInput, "Semester is invalid", nil)
			return
		}
		semester = &n
	}

	rows, err := h.service.GetCadetStats(c.Request.Context(), cadetID, semester)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	response.Success(c, http.StatusOK, rows, nil)
}
