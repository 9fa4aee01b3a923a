package settings

import (
	"net/http"

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

func (h *Handler) GetConfig(c *gin.Context) {
	cfg, err := h.service.GetSystemConfig(c.Request.Context())
	if err != nil {
		writeServiceError(c, err)
		return
	}
	response.Success(c, http.StatusOK, cfg, nil)
}

type scannerStateRequest struct {
	Enabled *bool `json:"enabled" binding:"required"`
}

func (h *Handler) SetScannerState(c *gin.Context) {
	var req scannerStateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		mapped := apperror.MapValidationError(err)
		writeServiceError(c, mapped)
		return
	}

	if err := h.service.SetScannerState(c.Request.Context(), *req.Enabled, actorID(c)); err != nil {
		writeServiceError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"scanner_enabled": *req.Enabled}, nil)
}

func (h *Handler) SetEveningEnabled(c *gin.Context) {
	var req scannerStateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		mapped := apperror.MapValidationError(err)
		writeServiceError(c, mapped)
		return
	}

	if err := h.service.SetEveningEnabled(c.Request.Context(), *req.Enabled, actorID(c)); err != nil {
		writeServiceError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"evening_enabled": *req.Enabled}, nil)
}

type cutoffTimeRequest struct {
	Time string `json:"time" binding:"required"`
}

func (h *Handler) SetPresentCutoffTime(c *gin.Context) {
	var req cutoffTimeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		mapped := apperror.MapValidationError(err)
		writeServiceError(c, mapped)
		return
	}

	if err := h.service.SetPresentCutoffTime(c.Request.Context(), req.Time, actorID(c)); err != nil {
		writeServiceError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"present_cutoff_time": req.Time}, nil)
}

type duplicateWindowRequest struct {
	Seconds *int `json:"seconds" binding:"required"`
}

func (h *Handler) SetDuplicateWindow(c *gin.Context) {
	var req duplicateWindowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		mapped := apperror.MapValidationError(err)
		writeServiceError(c, mapped)
		return
	}

	if err := h.service.SetDuplicateScanWindowSeconds(c.Request.Context(), *req.Seconds, actorID(c)); err != nil {
		writeServiceError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"duplicate_scan_window_seconds": *req.Seconds}, nil)
}
