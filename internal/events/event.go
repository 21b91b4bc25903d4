// Package events is the in-process status message channel: sync and
// download lifecycle events published to subscribers and optionally
// persisted for later inspection.
package events

import "time"

// Event is the base interface all events implement.
type Event interface {
	EventType() string
	VideoID() string // empty for sync-wide events
	Message() string // human-readable status text
	OccurredAt() time.Time
}

// BaseEvent provides common fields for all events.
type BaseEvent struct {
	Type      string    `json:"type"`
	Video     string    `json:"video_id,omitempty"`
	Text      string    `json:"message,omitempty"`
	Timestamp time.Time `json:"occurred_at"`
}

func (e BaseEvent) EventType() string     { return e.Type }
func (e BaseEvent) VideoID() string       { return e.Video }
func (e BaseEvent) Message() string       { return e.Text }
func (e BaseEvent) OccurredAt() time.Time { return e.Timestamp }

// NewBaseEvent creates a BaseEvent with the current timestamp.
func NewBaseEvent(eventType, videoID, message string) BaseEvent {
	return BaseEvent{
		Type:      eventType,
		Video:     videoID,
		Text:      message,
		Timestamp: time.Now(),
	}
}
