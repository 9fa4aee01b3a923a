package offlinesync

import (
	"encoding/json"
	"time"
)

type EnqueueRequest struct {
	DeviceID      string `json:"device_id" binding:"required,max=100"`
	EncryptedData string `json:"encrypted_data" binding:"required"`
}

type DeviceSyncStatus struct {
	DeviceID     string     `json:"device_id"`
	Pending      int64      `json:"pending"`
	Processing   int64      `json:"processing"`
	Completed    int64      `json:"completed"`
	Failed       int64      `json:"failed"`
	LastSyncedAt *time.Time `json:"last_synced_at,omitempty"`
}

type QueueStatistics struct {
	Pending    int64              `json:"pending"`
	Processing int64              `json:"processing"`
	Completed  int64              `json:"completed"`
	Failed     int64              `json:"failed"`
	Total      int64              `json:"total"`
	Devices    []DeviceSyncStatus `json:"devices,omitempty"`
}

type SyncItemResponse struct {
	ID           string          `json:"id"`
	DeviceID     string          `json:"device_id"`
	SyncStatus   string          `json:"sync_status"`
	Results      json.RawMessage `json:"results,omitempty"`
	ErrorMessage *string         `json:"error_message,omitempty"`
	CreatedAt    string          `json:"created_at"`
	ClaimedAt    *string         `json:"claimed_at,omitempty"`
	SyncedAt     *string         `json:"synced_at,omitempty"`
}

type BatchResult struct {
	Processed int      `json:"processed"`
	Failed    []string `json:"failed,omitempty"`
}

func mapItemToResponse(item SyncQueueItem) SyncItemResponse {
	resp := SyncItemResponse{
		ID:           item.ID.String(),
		DeviceID:     item.DeviceID,
		SyncStatus:   item.SyncStatus,
		Results:      item.Results,
		ErrorMessage: item.ErrorMessage,
		CreatedAt:    item.CreatedAt.Format(time.RFC3339),
	}
	if item.ClaimedAt != nil {
		v := item.ClaimedAt.Format(time.RFC3339)
		resp.ClaimedAt = &v
	}
	if item.SyncedAt != nil {
		v := item.SyncedAt.Format(time.RFC3339)
		resp.SyncedAt = &v
	}
	return resp
}
