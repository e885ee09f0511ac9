package realtime

import (
	"errors"
	"sync"
	"time"

	"github.com/Alexzafra13/echo-sub000/internal/events"
	"github.com/Alexzafra13/echo-sub000/internal/logger"
	"github.com/Alexzafra13/echo-sub000/internal/scanner"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeTimeout  = 10 * time.Second
	sendQueueSize = 64
)

// Hub dispatches commands from authenticated connections and forwards
// broadcast events back out. Delivery to a connection is fire-and-forget:
// a saturated send queue drops frames rather than stalling the
// broadcaster or the other observers.
type Hub struct {
	broadcaster *events.Broadcaster
	coordinator *scanner.Coordinator
	authorizer  *ControlAuthorizer
}

// NewHub wires the hub over the broadcaster and coordinator.
func NewHub(broadcaster *events.Broadcaster, coordinator *scanner.Coordinator) *Hub {
	return &Hub{
		broadcaster: broadcaster,
		coordinator: coordinator,
		authorizer:  NewControlAuthorizer(),
	}
}

// Connection is one admitted websocket client.
type Connection struct {
	id       string
	identity *Identity
	ws       *websocket.Conn
	hub      *Hub

	out       chan ServerMessage
	done      chan struct{}
	closeOnce sync.Once
}

// HandleConnection runs the read loop for an admitted connection and
// blocks until it disconnects. Teardown removes every subscription the
// connection held, so an abrupt disconnect needs no explicit
// unsubscribe.
func (h *Hub) HandleConnection(ws *websocket.Conn, identity *Identity) {
	c := &Connection{
		id:       uuid.NewString(),
		identity: identity,
		ws:       ws,
		hub:      h,
		out:      make(chan ServerMessage, sendQueueSize),
		done:     make(chan struct{}),
	}

	eventCh := h.broadcaster.Register(c.id)
	go c.writePump()
	go c.forwardEvents(eventCh)

	logger.Debug("connection %s admitted for %s", c.id, identity.Subject)
	c.readPump()
	c.teardown()
}

func (c *Connection) readPump() {
	for {
		var msg ClientMessage
		if err := c.ws.ReadJSON(&msg); err != nil {
			return
		}
		c.dispatch(msg)
	}
}

func (c *Connection) dispatch(msg ClientMessage) {
	switch msg.Type {
	case MsgSubscribe:
		if msg.RunID == "" {
			c.send(exceptionMessage("subscribe requires a runId"))
			return
		}
		c.hub.broadcaster.Subscribe(c.id, msg.RunID)
		c.send(ackMessage(MsgSubscribed, msg.RunID, "subscribed to scan %s", msg.RunID))

	case MsgUnsubscribe:
		if msg.RunID == "" {
			c.send(exceptionMessage("unsubscribe requires a runId"))
			return
		}
		c.hub.broadcaster.Unsubscribe(c.id, msg.RunID)
		c.send(ackMessage(MsgUnsubscribed, msg.RunID, "unsubscribed from scan %s", msg.RunID))

	case MsgPause, MsgResume, MsgCancel:
		c.control(msg)

	default:
		c.send(exceptionMessage("unknown command %q", msg.Type))
	}
}

// control runs a privileged command. Authorization is checked first so
// an unprivileged sender can never change run state.
func (c *Connection) control(msg ClientMessage) {
	if err := c.hub.authorizer.Authorize(c.identity, msg.Type); err != nil {
		c.send(exceptionMessage("%s", err))
		return
	}
	if msg.RunID == "" {
		c.send(exceptionMessage("%s requires a runId", msg.Type))
		return
	}

	var err error
	switch msg.Type {
	case MsgPause:
		err = c.hub.coordinator.Pause(msg.RunID)
	case MsgResume:
		err = c.hub.coordinator.Resume(msg.RunID)
	case MsgCancel:
		err = c.hub.coordinator.Cancel(msg.RunID, msg.Reason)
	}
	if err != nil {
		switch {
		case errors.Is(err, scanner.ErrScanNotFound):
			c.send(exceptionMessage("no scan with id %s", msg.RunID))
		case errors.Is(err, scanner.ErrScanNotActive):
			c.send(exceptionMessage("%s rejected: %s", msg.Type, err))
		default:
			c.send(exceptionMessage("%s failed: %s", msg.Type, err))
		}
	}
}

// forwardEvents moves broadcast events into the connection's send queue
// until the broadcaster closes the channel on unregister.
func (c *Connection) forwardEvents(ch <-chan events.Event) {
	for ev := range ch {
		if msg, ok := translateEvent(ev); ok {
			c.send(msg)
		}
	}
}

func (c *Connection) writePump() {
	for {
		select {
		case msg := <-c.out:
			c.ws.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.ws.WriteJSON(msg); err != nil {
				return
			}
		case <-c.done:
			return
		}
	}
}

func (c *Connection) send(msg ServerMessage) {
	select {
	case c.out <- msg:
	default:
		logger.Debug("dropped %s frame for saturated connection %s", msg.Type, c.id)
	}
}

func (c *Connection) teardown() {
	c.closeOnce.Do(func() {
		c.hub.broadcaster.Unregister(c.id)
		close(c.done)
		c.ws.Close()
		logger.Debug("connection %s closed", c.id)
	})
}
