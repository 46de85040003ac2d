package pubsub

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/Billy-Davies-2/draft-engine/internal/logger"
)

// DefaultStreamName is the JetStream stream holding draft events
const DefaultStreamName = "DRAFT_ENGINE_EVENTS"

// SubjectFor returns the subject a draft's events are published on.
// Events without a draft go to base + ".all".
func SubjectFor(base, draftID string) string {
	if draftID == "" {
		return base + ".all"
	}
	return base + "." + subjectToken(draftID)
}

func subjectToken(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '.', '*', '>', ' ', '\t', '\n', '\r':
			return '_'
		}
		return r
	}, s)
}

// jetStreamBus publishes events on per-draft subjects and feeds everything
// under the base subject back to local subscribers
type jetStreamBus struct {
	nc      *nats.Conn
	js      nats.JetStreamContext
	subject string
	sub     *nats.Subscription
	local   *fanout
}

type streamOptions struct {
	name    string
	storage nats.StorageType
	maxAge  time.Duration
}

func newJetStreamBus(nc *nats.Conn, subject string, opts streamOptions) (*jetStreamBus, error) {
	js, err := nc.JetStream()
	if err != nil {
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	if opts.name == "" {
		opts.name = DefaultStreamName
	}
	if _, err := js.StreamInfo(opts.name); err != nil {
		_, err = js.AddStream(&nats.StreamConfig{
			Name:     opts.name,
			Subjects: []string{subject + ".>"},
			Storage:  opts.storage,
			MaxAge:   opts.maxAge,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create stream %s: %w", opts.name, err)
		}
		logger.Info("JetStream stream created", "stream", opts.name, "subject", subject+".>")
	}

	b := &jetStreamBus{
		nc:      nc,
		js:      js,
		subject: subject,
		local:   newFanout("nats"),
	}
	b.sub, err = js.Subscribe(subject+".>", b.deliver, nats.ManualAck(), nats.DeliverNew())
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to %s: %w", subject+".>", err)
	}
	return b, nil
}

func (b *jetStreamBus) deliver(msg *nats.Msg) {
	var event Event
	if err := json.Unmarshal(msg.Data, &event); err != nil {
		logger.Error("Failed to unmarshal event from JetStream", "error", err, "subject", msg.Subject)
		_ = msg.Term()
		return
	}
	b.local.broadcast(event)
	_ = msg.Ack()
}

// Publish publishes an event to the draft's subject
func (b *jetStreamBus) Publish(event Event) {
	data, err := json.Marshal(event)
	if err != nil {
		logger.Error("Failed to marshal event", "error", err, "event_type", event.Type)
		return
	}

	subject := SubjectFor(b.subject, event.DraftID)
	if _, err := b.js.Publish(subject, data); err != nil {
		logger.Error("Failed to publish to NATS", "error", err, "subject", subject, "event_type", event.Type)
		return
	}
	logger.Debug("Published event to NATS", "event_type", event.Type, "subject", subject)
}

// Subscribe creates a subscription channel for events
func (b *jetStreamBus) Subscribe() chan Event {
	return b.local.add("")
}

// Unsubscribe removes a subscription channel
func (b *jetStreamBus) Unsubscribe(ch chan Event) {
	b.local.remove(ch)
}

// SubscriberCount returns the number of active local subscribers
func (b *jetStreamBus) SubscriberCount() int {
	return b.local.count()
}

// Ping reports whether the NATS connection is usable
func (b *jetStreamBus) Ping() error {
	if b.nc == nil || !b.nc.IsConnected() {
		return fmt.Errorf("nats: not connected")
	}
	return nil
}

func (b *jetStreamBus) close() {
	if b.sub != nil {
		_ = b.sub.Unsubscribe()
	}
	b.local.closeAll()
	if b.nc != nil {
		b.nc.Close()
	}
}

// NATSPubSub implements pub/sub using an external NATS JetStream server
type NATSPubSub struct {
	*jetStreamBus
}

// NewNATSPubSub connects to NATS and ensures the draft event stream exists
func NewNATSPubSub(natsURL, subject string) (*NATSPubSub, error) {
	nc, err := nats.Connect(natsURL,
		nats.Name("draft-engine"),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn("Disconnected from NATS", "error", err)
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info("Reconnected to NATS", "url", c.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	bus, err := newJetStreamBus(nc, subject, streamOptions{
		name:    DefaultStreamName,
		storage: nats.FileStorage,
		maxAge:  7 * 24 * time.Hour,
	})
	if err != nil {
		nc.Close()
		return nil, err
	}
	return &NATSPubSub{jetStreamBus: bus}, nil
}

// Close closes the NATS connection
func (p *NATSPubSub) Close() {
	p.close()
}
