package events

import "time"

const ScannerEventsTopic = "rotc.scanner.events.v1"

type ScannerStateChangedEvent struct {
	EventType  string    `json:"event_type"`
	Enabled    bool      `json:"enabled"`
	Reason     string    `json:"reason"`
	OccurredAt time.Time `json:"occurred_at"`
}
