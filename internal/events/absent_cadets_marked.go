package events

import "time"

const AttendanceAlertsTopic = "rotc.attendance.alerts.v1"

// AbsentCadetsMarkedEvent is published after the daily cutoff closes the day
// and marks every cadet without a closed record absent.
type AbsentCadetsMarkedEvent struct {
	EventType   string    `json:"event_type"`
	Date        string    `json:"date"`
	CadetIDs    []string  `json:"cadet_ids"`
	AbsentCount int       `json:"absent_count"`
	OccurredAt  time.Time `json:"occurred_at"`
}
