package offlinesync

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/Project-Zedd/rotc-system-final/internal/shared/apperror"
	"github.com/Project-Zedd/rotc-system-final/internal/shared/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type Handler struct {
	service Service
	rdb     *redis.Client
}

func NewHandler(service Service, rdb *redis.Client) *Handler {
	return &Handler{service: service, rdb: rdb}
}

func writeServiceError(c *gin.Context, err error) {
	httpErr := apperror.ToHTTP(err)
	response.Error(c, httpErr.Status, httpErr.Code, httpErr.Message, httpErr.Details)
}

func (h *Handler) Enqueue(c *gin.Context) {
	var req EnqueueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		mapped := apperror.MapValidationError(err)
		writeServiceError(c, mapped)
		return
	}

	resp, err := h.service.Enqueue(c.Request.Context(), req)
	if err != nil {
		writeServiceError(c, err)
		return
	}

	h.cacheIdempotentResponse(c, resp)
	response.Success(c, http.StatusAccepted, resp, nil)
}

// cacheIdempotentResponse fulfils the contract set by the idempotency
// middleware: store the acknowledgment, release the lock.
func (h *Handler) cacheIdempotentResponse(c *gin.Context, resp SyncItemResponse) {
	cacheKey := c.GetString("idempotency_cache_key")
	if cacheKey == "" || h.rdb == nil {
		return
	}

	body, err := json.Marshal(resp)
	if err != nil {
		return
	}
	if err := h.rdb.Set(c.Request.Context(), cacheKey, body, 24*time.Hour).Err(); err != nil {
		zap.L().Named("offlinesync").Warn("cache idempotent response failed", zap.Error(err))
	}
	if lockKey := c.GetString("idempotency_lock_key"); lockKey != "" {
		h.rdb.Del(c.Request.Context(), lockKey)
	}
}

func (h *Handler) GetItem(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, http.StatusBadRequest, apperror.CodeInvalidInput, "Item Id is invalid", nil)
		return
	}

	resp, err := h.service.GetItem(c.Request.Context(), id)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	response.Success(c, http.StatusOK, resp, nil)
}

func (h *Handler) ProcessItem(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, http.StatusBadRequest, apperror.CodeInvalidInput, "Item Id is invalid", nil)
		return
	}

	if err := h.service.ProcessSyncItem(c.Request.Context(), id); err != nil {
		writeServiceError(c, err)
		return
	}

	resp, err := h.service.GetItem(c.Request.Context(), id)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	response.Success(c, http.StatusOK, resp, nil)
}

func (h *Handler) ProcessPending(c *gin.Context) {
	result := h.service.ProcessPending(c.Request.Context())
	response.Success(c, http.StatusOK, result, nil)
}

func (h *Handler) ProcessDevice(c *gin.Context) {
	result := h.service.ProcessDevice(c.Request.Context(), c.Param("deviceId"))
	response.Success(c, http.StatusOK, result, nil)
}

func (h *Handler) RetryFailed(c *gin.Context) {
	count, err := h.service.RetryFailed(c.Request.Context(), c.Query("device_id"))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"requeued": count}, nil)
}

func (h *Handler) RetryDevice(c *gin.Context) {
	count, err := h.service.RetryFailed(c.Request.Context(), c.Param("deviceId"))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"requeued": count}, nil)
}

func (h *Handler) Statistics(c *gin.Context) {
	stats, err := h.service.Statistics(c.Request.Context())
	if err != nil {
		writeServiceError(c, err)
		return
	}
	response.Success(c, http.StatusOK, stats, nil)
}

func (h *Handler) DeviceStatus(c *gin.Context) {
	deviceID := c.Param("deviceId")
	status, err := h.service.DeviceStatus(c.Request.Context(), deviceID)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	response.Success(c, http.StatusOK, status, nil)
}

func (h *Handler) History(c *gin.Context) {
	deviceID := c.Param("deviceId")

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	if page < 1 {
		page = 1
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("page_size", "50"))
	if limit < 1 {
		limit = 50
	}

	items, total, err := h.service.History(c.Request.Context(), deviceID, page, limit)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	meta := response.NewPaginationMeta(total, page, limit)
	response.Success(c, http.StatusOK, items, &meta)
}
