// Package events provides the per-run publish/subscribe registry that
// fans scan lifecycle and progress events out to live observers.
package events

import (
	"time"
)

// EventType represents the type of event
type EventType string

// Scan lifecycle event types
const (
	EventScanStarted   EventType = "started"
	EventScanProgress  EventType = "progress"
	EventScanPaused    EventType = "paused"
	EventScanResumed   EventType = "resumed"
	EventScanCancelled EventType = "cancelled"
	EventScanCompleted EventType = "completed"
	EventScanFailed    EventType = "failed"
)

// Terminal reports whether an event type ends the run it belongs to.
func (t EventType) Terminal() bool {
	switch t {
	case EventScanCancelled, EventScanCompleted, EventScanFailed:
		return true
	}
	return false
}

// Event is a single fan-out unit for one run.
type Event struct {
	Type      EventType   `json:"type"`
	RunID     string      `json:"runId"`
	Message   string      `json:"message,omitempty"`
	Reason    string      `json:"reason,omitempty"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}
