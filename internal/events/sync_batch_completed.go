package events

import "time"

const SyncEventsTopic = "rotc.sync.events.v1"

type SyncBatchCompletedEvent struct {
	EventType  string    `json:"event_type"`
	ItemID     string    `json:"item_id"`
	DeviceID   string    `json:"device_id"`
	Created    int       `json:"created"`
	Duplicates int       `json:"duplicates"`
	Failed     int       `json:"failed"`
	OccurredAt time.Time `json:"occurred_at"`
}
