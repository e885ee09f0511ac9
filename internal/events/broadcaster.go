package events

import (
	"sync"
	"time"

	"github.com/Alexzafra13/echo-sub000/internal/logger"
)

const defaultBuffer = 32

// Broadcaster is a registry of (subscriber, run) pairs with best-effort
// fan-out. Each subscriber owns a single buffered delivery channel; a
// publish that finds the buffer full drops the event for that subscriber
// rather than blocking the producer. There is no replay: an observer that
// misses events resynchronizes by polling run status.
type Broadcaster struct {
	mu sync.RWMutex

	// subscriber id -> delivery channel
	channels map[string]chan Event

	// run id -> set of subscriber ids
	runs map[string]map[string]struct{}

	// subscriber id -> set of run ids, for whole-connection teardown
	watched map[string]map[string]struct{}

	// run ids that have reached a terminal state
	terminal map[string]struct{}

	bufferSize   int
	graceTimeout time.Duration
}

// NewBroadcaster creates an empty broadcaster.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{
		channels:     make(map[string]chan Event),
		runs:         make(map[string]map[string]struct{}),
		watched:      make(map[string]map[string]struct{}),
		terminal:     make(map[string]struct{}),
		bufferSize:   defaultBuffer,
		graceTimeout: 30 * time.Second,
	}
}

// Register creates the delivery channel for a subscriber. Calling it twice
// for the same id returns the existing channel.
func (b *Broadcaster) Register(subscriberID string) <-chan Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	if ch, ok := b.channels[subscriberID]; ok {
		return ch
	}
	ch := make(chan Event, b.bufferSize)
	b.channels[subscriberID] = ch
	b.watched[subscriberID] = make(map[string]struct{})
	return ch
}

// Unregister removes a subscriber and all of its run subscriptions, and
// closes its delivery channel. Safe to call for unknown ids.
func (b *Broadcaster) Unregister(subscriberID string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch, ok := b.channels[subscriberID]
	if !ok {
		return
	}
	for runID := range b.watched[subscriberID] {
		b.removeFromRunLocked(runID, subscriberID)
	}
	delete(b.watched, subscriberID)
	delete(b.channels, subscriberID)
	close(ch)
}

// Subscribe adds a (subscriber, run) pair. The fan-out entry for the run
// is created lazily on the first subscriber.
func (b *Broadcaster) Subscribe(subscriberID, runID string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.channels[subscriberID]; !ok {
		return
	}
	subs, ok := b.runs[runID]
	if !ok {
		subs = make(map[string]struct{})
		b.runs[runID] = subs
	}
	subs[subscriberID] = struct{}{}
	b.watched[subscriberID][runID] = struct{}{}
}

// Unsubscribe removes a (subscriber, run) pair.
func (b *Broadcaster) Unsubscribe(subscriberID, runID string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if w, ok := b.watched[subscriberID]; ok {
		delete(w, runID)
	}
	b.removeFromRunLocked(runID, subscriberID)
}

// Publish delivers an event to every current subscriber of its run.
// Delivery is fire-and-forget per subscriber so one slow observer never
// stalls the others. A terminal event schedules teardown of the run's
// fan-out entry after a grace period.
func (b *Broadcaster) Publish(ev Event) {
	b.mu.RLock()
	dropped := 0
	for subscriberID := range b.runs[ev.RunID] {
		ch, ok := b.channels[subscriberID]
		if !ok {
			continue
		}
		select {
		case ch <- ev:
		default:
			dropped++
		}
	}
	b.mu.RUnlock()

	if dropped > 0 {
		logger.Debug("dropped %s event for run %s on %d saturated subscribers", ev.Type, ev.RunID, dropped)
	}

	if ev.Type.Terminal() {
		b.markTerminal(ev.RunID)
	}
}

// SubscriberCount returns the number of subscribers watching a run.
func (b *Broadcaster) SubscriberCount(runID string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.runs[runID])
}

func (b *Broadcaster) markTerminal(runID string) {
	b.mu.Lock()
	if _, ok := b.terminal[runID]; ok {
		b.mu.Unlock()
		return
	}
	b.terminal[runID] = struct{}{}
	empty := len(b.runs[runID]) == 0
	b.mu.Unlock()

	if empty {
		b.teardownRun(runID)
		return
	}
	time.AfterFunc(b.graceTimeout, func() { b.teardownRun(runID) })
}

func (b *Broadcaster) teardownRun(runID string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for subscriberID := range b.runs[runID] {
		if w, ok := b.watched[subscriberID]; ok {
			delete(w, runID)
		}
	}
	delete(b.runs, runID)
	delete(b.terminal, runID)
}

// removeFromRunLocked drops a subscriber from a run's fan-out set and
// removes the run entry when it was terminal and now has no watchers.
func (b *Broadcaster) removeFromRunLocked(runID, subscriberID string) {
	subs, ok := b.runs[runID]
	if !ok {
		return
	}
	delete(subs, subscriberID)
	if len(subs) == 0 {
		if _, done := b.terminal[runID]; done {
			delete(b.runs, runID)
			delete(b.terminal, runID)
		}
	}
}
