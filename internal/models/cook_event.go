package models

import "time"

// Journal event types.
const (
	EventTypeStarted     = "STARTED"
	EventTypeStopped     = "STOPPED"
	EventTypeTempReached = "TEMP_REACHED"
	EventTypeComplete    = "COMPLETE"
	EventTypeTargetsSet  = "TARGETS_SET"
)

// CookEvent is a single journal entry.
type CookEvent struct {
	EventID     string    `json:"event_id"`
	OccurredAt  time.Time `json:"occurred_at"`
	Type        string    `json:"type"`              // STARTED | STOPPED | TEMP_REACHED | COMPLETE | TARGETS_SET
	Chamber     int       `json:"chamber,omitempty"` // 1-based; 0 when the event is controller-wide
	Description string    `json:"description"`       // human-readable
	Metadata    any       `json:"metadata,omitempty"`
}
