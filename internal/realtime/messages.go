package realtime

import (
	"fmt"

	"github.com/Alexzafra13/echo-sub000/internal/events"
	"github.com/Alexzafra13/echo-sub000/internal/scanner"
)

// Client -> server message types
const (
	MsgAuth        = "auth"
	MsgSubscribe   = "subscribe"
	MsgUnsubscribe = "unsubscribe"
	MsgPause       = "pause"
	MsgResume      = "resume"
	MsgCancel      = "cancel"
)

// Server -> client message types
const (
	MsgSubscribed   = "subscribed"
	MsgUnsubscribed = "unsubscribed"
	MsgProgress     = "progress"
	MsgPaused       = "paused"
	MsgResumed      = "resumed"
	MsgCancelled    = "cancelled"
	MsgException    = "exception"
)

// ClientMessage is one inbound frame.
type ClientMessage struct {
	Type   string `json:"type"`
	RunID  string `json:"runId,omitempty"`
	Reason string `json:"reason,omitempty"`
	Token  string `json:"token,omitempty"`
}

// ServerMessage is one outbound frame. The embedded snapshot inlines
// the progress fields for progress frames and is omitted otherwise.
type ServerMessage struct {
	Type    string `json:"type"`
	RunID   string `json:"runId,omitempty"`
	Message string `json:"message,omitempty"`
	Reason  string `json:"reason,omitempty"`
	*scanner.Snapshot
}

func exceptionMessage(format string, args ...interface{}) ServerMessage {
	return ServerMessage{Type: MsgException, Message: fmt.Sprintf(format, args...)}
}

func ackMessage(msgType, runID, format string, args ...interface{}) ServerMessage {
	return ServerMessage{Type: msgType, RunID: runID, Message: fmt.Sprintf(format, args...)}
}

// translateEvent maps an internal fan-out event to its wire frame.
func translateEvent(ev events.Event) (ServerMessage, bool) {
	switch ev.Type {
	case events.EventScanProgress, events.EventScanStarted, events.EventScanCompleted:
		msg := ServerMessage{Type: MsgProgress, RunID: ev.RunID, Message: ev.Message}
		if snap, ok := ev.Data.(scanner.Snapshot); ok {
			msg.Snapshot = &snap
		}
		return msg, true
	case events.EventScanPaused:
		return ServerMessage{Type: MsgPaused, RunID: ev.RunID, Message: ev.Message}, true
	case events.EventScanResumed:
		return ServerMessage{Type: MsgResumed, RunID: ev.RunID, Message: ev.Message}, true
	case events.EventScanCancelled:
		return ServerMessage{Type: MsgCancelled, RunID: ev.RunID, Message: ev.Message, Reason: ev.Reason}, true
	case events.EventScanFailed:
		return ServerMessage{Type: MsgException, RunID: ev.RunID, Message: ev.Message}, true
	}
	return ServerMessage{}, false
}
