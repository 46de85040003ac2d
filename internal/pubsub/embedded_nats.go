package pubsub

import (
	"fmt"
	"time"

	"github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"

	"github.com/Billy-Davies-2/draft-engine/internal/logger"
)

// EmbeddedNATSPubSub runs a NATS server with JetStream in-process, so local
// development exercises the same bus as production without infrastructure
type EmbeddedNATSPubSub struct {
	*jetStreamBus
	server *server.Server
}

// EmbeddedNATSOptions configures the embedded NATS server
type EmbeddedNATSOptions struct {
	Port       int    // Port to listen on (0 or -1 = random available port)
	Subject    string // Base subject; drafts publish on Subject.<draft id>
	StreamName string // JetStream stream name
	StoreDir   string // Directory for JetStream storage (empty = in-memory)
	MaxAge     time.Duration
}

// DefaultEmbeddedNATSOptions returns sensible defaults for development
func DefaultEmbeddedNATSOptions() EmbeddedNATSOptions {
	return EmbeddedNATSOptions{
		Port:       -1,
		Subject:    "draft.events",
		StreamName: DefaultStreamName,
		MaxAge:     time.Hour,
	}
}

// NewEmbeddedNATSPubSub starts the embedded server and connects to it
func NewEmbeddedNATSPubSub(opts EmbeddedNATSOptions) (*EmbeddedNATSPubSub, error) {
	port := opts.Port
	if port == 0 {
		port = -1 // 0 means default (4222), -1 means random
	}
	if opts.Subject == "" {
		opts.Subject = "draft.events"
	}

	serverOpts := &server.Options{
		Host:      "127.0.0.1",
		Port:      port,
		JetStream: true,
		NoSigs:    true,
	}
	storage := nats.MemoryStorage
	if opts.StoreDir != "" {
		serverOpts.StoreDir = opts.StoreDir
		storage = nats.FileStorage
	}

	ns, err := server.NewServer(serverOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedded NATS server: %w", err)
	}
	ns.SetLogger(&natsLogger{}, false, false)

	go ns.Start()
	if !ns.ReadyForConnections(10 * time.Second) {
		ns.Shutdown()
		return nil, fmt.Errorf("embedded NATS server failed to start within timeout")
	}

	nc, err := nats.Connect(ns.ClientURL(), nats.Name("draft-engine-embedded"))
	if err != nil {
		ns.Shutdown()
		return nil, fmt.Errorf("failed to connect to embedded NATS: %w", err)
	}

	bus, err := newJetStreamBus(nc, opts.Subject, streamOptions{
		name:    opts.StreamName,
		storage: storage,
		maxAge:  opts.MaxAge,
	})
	if err != nil {
		nc.Close()
		ns.Shutdown()
		return nil, err
	}

	logger.Info("Embedded NATS server started", "url", ns.ClientURL(), "subject", opts.Subject)
	return &EmbeddedNATSPubSub{jetStreamBus: bus, server: ns}, nil
}

// Close shuts down the connection and the embedded server
func (p *EmbeddedNATSPubSub) Close() {
	p.close()
	if p.server != nil {
		p.server.Shutdown()
		p.server.WaitForShutdown()
	}
	logger.Info("Embedded NATS server shut down")
}

// ServerURL returns the client URL of the embedded server
func (p *EmbeddedNATSPubSub) ServerURL() string {
	return p.server.ClientURL()
}

// natsLogger routes NATS server logs through our logger
type natsLogger struct{}

func (l *natsLogger) Noticef(format string, v ...interface{}) {
	logger.Debug(fmt.Sprintf("[NATS] "+format, v...))
}

func (l *natsLogger) Warnf(format string, v ...interface{}) {
	logger.Warn(fmt.Sprintf("[NATS] "+format, v...))
}

func (l *natsLogger) Fatalf(format string, v ...interface{}) {
	logger.Error(fmt.Sprintf("[NATS] "+format, v...))
}

func (l *natsLogger) Errorf(format string, v ...interface{}) {
	logger.Error(fmt.Sprintf("[NATS] "+format, v...))
}

func (l *natsLogger) Debugf(format string, v ...interface{}) {
	logger.Debug(fmt.Sprintf("[NATS] "+format, v...))
}

func (l *natsLogger) Tracef(format string, v ...interface{}) {
	logger.Debug(fmt.Sprintf("[NATS TRACE] "+format, v...))
}
