package pubsub

import (
	"sync"
	"time"

	"github.com/Billy-Davies-2/draft-engine/internal/logger"
)

const (
	subscriberBuffer = 32
	historySize      = 256
)

// Event is a draft lifecycle event
type Event struct {
	Type    string                 `json:"type"`
	DraftID string                 `json:"draftId,omitempty"`
	Time    time.Time              `json:"time"`
	Payload map[string]interface{} `json:"payload,omitempty"`
}

// NewEvent stamps an event with the current time
func NewEvent(eventType, draftID string, payload map[string]interface{}) Event {
	return Event{Type: eventType, DraftID: draftID, Time: time.Now().UTC(), Payload: payload}
}

// Upstream is an interface for upstream publishers (e.g., NATS)
type Upstream interface {
	Publish(Event)
	Subscribe() chan Event
	Unsubscribe(chan Event)
}

type subscriber struct {
	ch chan Event
	// empty receives every draft
	draftID string
}

// fanout delivers events to in-process subscribers. Slow subscribers miss
// events rather than block the publisher.
type fanout struct {
	mu   sync.RWMutex
	subs []subscriber
	name string
}

func newFanout(name string) *fanout {
	return &fanout{name: name}
}

func (f *fanout) add(draftID string) chan Event {
	f.mu.Lock()
	defer f.mu.Unlock()

	ch := make(chan Event, subscriberBuffer)
	f.subs = append(f.subs, subscriber{ch: ch, draftID: draftID})
	logger.Debug("Subscriber added", "bus", f.name, "draft_id", draftID, "total_subscribers", len(f.subs))
	return ch
}

func (f *fanout) remove(ch chan Event) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	for i, sub := range f.subs {
		if sub.ch == ch {
			close(ch)
			f.subs = append(f.subs[:i], f.subs[i+1:]...)
			logger.Debug("Subscriber removed", "bus", f.name, "remaining_subscribers", len(f.subs))
			return true
		}
	}
	return false
}

func (f *fanout) broadcast(event Event) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	for _, sub := range f.subs {
		if sub.draftID != "" && sub.draftID != event.DraftID {
			continue
		}
		select {
		case sub.ch <- event:
		default:
			logger.Warn("Skipping slow subscriber", "bus", f.name, "event_type", event.Type, "draft_id", event.DraftID)
		}
	}
}

func (f *fanout) count() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.subs)
}

func (f *fanout) closeAll() {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, sub := range f.subs {
		close(sub.ch)
	}
	f.subs = nil
}

// history is a ring of the most recent events
type history struct {
	mu     sync.Mutex
	events []Event
	next   int
	full   bool
}

func newHistory(size int) *history {
	return &history{events: make([]Event, size)}
}

func (h *history) add(e Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.events[h.next] = e
	h.next = (h.next + 1) % len(h.events)
	if h.next == 0 {
		h.full = true
	}
}

// recent returns up to n events, oldest first, optionally for one draft
func (h *history) recent(draftID string, n int) []Event {
	h.mu.Lock()
	defer h.mu.Unlock()

	ordered := make([]Event, 0, len(h.events))
	if h.full {
		ordered = append(ordered, h.events[h.next:]...)
	}
	ordered = append(ordered, h.events[:h.next]...)

	out := make([]Event, 0)
	for i := len(ordered) - 1; i >= 0 && (n <= 0 || len(out) < n); i-- {
		if draftID == "" || ordered[i].DraftID == draftID {
			out = append(out, ordered[i])
		}
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}

// PubSub fans draft events out to local subscribers, optionally through an upstream bus
type PubSub struct {
	local    *fanout
	upstream Upstream
	feed     chan Event
	recent   *history
}

// New creates a PubSub that delivers in-process only
func New() *PubSub {
	return &PubSub{
		local:  newFanout("local"),
		recent: newHistory(historySize),
	}
}

// NewWithUpstream creates a PubSub that bridges to an upstream publisher (e.g., NATS).
// Publish goes to the upstream, which broadcasts to every instance; events coming
// back from the upstream are forwarded to local subscribers.
func NewWithUpstream(upstream Upstream) *PubSub {
	ps := New()
	ps.upstream = upstream
	ps.feed = upstream.Subscribe()

	go func() {
		for event := range ps.feed {
			ps.publishLocal(event)
		}
		logger.Debug("PubSub: upstream channel closed")
	}()
	return ps
}

// Subscribe returns a channel receiving every event
func (ps *PubSub) Subscribe() chan Event {
	return ps.local.add("")
}

// SubscribeDraft returns a channel receiving only events for one draft
func (ps *PubSub) SubscribeDraft(draftID string) chan Event {
	return ps.local.add(draftID)
}

// Unsubscribe removes and closes a subscriber channel
func (ps *PubSub) Unsubscribe(ch chan Event) {
	ps.local.remove(ch)
}

// SubscriberCount returns the number of local subscribers
func (ps *PubSub) SubscriberCount() int {
	return ps.local.count()
}

// Recent returns up to n of the latest events seen by this instance, oldest first.
// An empty draftID matches every draft; n <= 0 returns everything retained.
func (ps *PubSub) Recent(draftID string, n int) []Event {
	return ps.recent.recent(draftID, n)
}

// Publish sends an event to all subscribers
func (ps *PubSub) Publish(event Event) {
	if event.Time.IsZero() {
		event.Time = time.Now().UTC()
	}
	if ps.upstream != nil {
		ps.upstream.Publish(event)
		return
	}
	ps.publishLocal(event)
}

func (ps *PubSub) publishLocal(event Event) {
	ps.recent.add(event)
	ps.local.broadcast(event)
}

// Close detaches from the upstream and closes every local subscriber
func (ps *PubSub) Close() {
	if ps.upstream != nil && ps.feed != nil {
		ps.upstream.Unsubscribe(ps.feed)
	}
	ps.local.closeAll()
}
