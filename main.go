package main

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"google.golang.org/grpc"

	"github.com/Billy-Davies-2/draft-engine/internal/advice"
	"github.com/Billy-Davies-2/draft-engine/internal/clickhouse"
	"github.com/Billy-Davies-2/draft-engine/internal/config"
	"github.com/Billy-Davies-2/draft-engine/internal/dal"
	"github.com/Billy-Davies-2/draft-engine/internal/engine"
	grpcserver "github.com/Billy-Davies-2/draft-engine/internal/grpc"
	"github.com/Billy-Davies-2/draft-engine/internal/handlers"
	"github.com/Billy-Davies-2/draft-engine/internal/logger"
	"github.com/Billy-Davies-2/draft-engine/internal/mcptools"
	"github.com/Billy-Davies-2/draft-engine/internal/mocks"
	"github.com/Billy-Davies-2/draft-engine/internal/models"
	"github.com/Billy-Davies-2/draft-engine/internal/pubsub"
)

const version = "0.4.0"

const calibrationRefresh = 5 * time.Minute

// analytics is ClickHouse or its development mock
type analytics interface {
	advice.Calibration
	engine.PickRecorder
	Ping(ctx context.Context) error
	Close() error
}

// bus is the NATS connection behind the local pub/sub
type bus interface {
	pubsub.Upstream
	Ping() error
	Close()
}

func main() {
	// Initialize logger first
	logger.Init()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	logger.InitWithLevel(cfg.LogLevel)
	logger.Info("Starting draft engine", "version", version, "environment", cfg.Environment)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dataStore := openDataStore(cfg)
	defer dataStore.Close()

	health := handlers.NewHealth()
	health.Add("database", true, dataStore.Ping)

	// Snapshot backend
	var snapshots dal.SnapshotStore
	switch cfg.SnapshotBackend {
	case "dal":
		snapshots = dataStore
	case "redis":
		redisStore, err := dal.NewRedisSnapshotStore(ctx, cfg.RedisURL, dal.DefaultSnapshotTTL)
		if err != nil {
			logger.Error("Failed to initialize Redis", "error", err)
			log.Fatalf("Failed to initialize Redis: %v", err)
		}
		defer redisStore.Close()
		snapshots = dal.NewCachedSnapshots(redisStore, dataStore)
		health.Add("redis", false, redisStore.Ping)
		logger.Info("Caching snapshots in Redis", "ttl", dal.DefaultSnapshotTTL)
	case "none":
		logger.Info("Snapshots disabled; drafts live in memory only")
	}

	// Use embedded NATS in development mode, real NATS in production
	var natsBus bus
	if cfg.IsDevelopment() {
		logger.Info("Starting embedded NATS server for local development")
		opts := pubsub.DefaultEmbeddedNATSOptions()
		opts.Subject = cfg.NATSSubject
		embedded, err := pubsub.NewEmbeddedNATSPubSub(opts)
		if err != nil {
			logger.Error("Failed to initialize embedded NATS", "error", err)
			log.Fatalf("Failed to initialize embedded NATS: %v", err)
		}
		natsBus = embedded
		logger.Info("Embedded NATS server ready", "url", embedded.ServerURL())
	} else {
		logger.Info("Using real NATS JetStream for production")
		client, err := pubsub.NewNATSPubSub(cfg.NATSURL, cfg.NATSSubject)
		if err != nil {
			logger.Error("Failed to initialize NATS", "error", err)
			log.Fatalf("Failed to initialize NATS: %v", err)
		}
		natsBus = client
		logger.Info("Connected to NATS", "url", cfg.NATSURL)
	}
	ps := pubsub.NewWithUpstream(natsBus)
	health.Add("nats", false, func(context.Context) error { return natsBus.Ping() })

	// ClickHouse (or mock in development) backs calibrated advice and the pick log
	var chClient analytics
	if cfg.IsDevelopment() {
		logger.Info("Using mock ClickHouse for local development (no ClickHouse server required)")
		chClient = mocks.NewMockClickHouseClient(dataStore, 1)
	} else {
		client, err := clickhouse.NewClient(cfg.ClickHouseAddr, cfg.ClickHouseDB, cfg.ClickHouseUser, cfg.ClickHousePass)
		if err != nil {
			logger.Error("Failed to initialize ClickHouse", "error", err, "address", cfg.ClickHouseAddr)
			log.Fatalf("Failed to initialize ClickHouse: %v", err)
		}
		chClient = client
		logger.Info("Connected to ClickHouse", "address", cfg.ClickHouseAddr, "database", cfg.ClickHouseDB)
	}
	defer chClient.Close()
	health.Add("clickhouse", false, chClient.Ping)
	go refreshCalibration(ctx, chClient)

	eng, err := engine.New(engine.Options{
		Catalog:     dataStore,
		Snapshots:   snapshots,
		Calibration: chClient,
		Events:      ps,
		Recorder:    chClient,
		League:      cfg.League,
	})
	if err != nil {
		log.Fatalf("Failed to create engine: %v", err)
	}
	if n, err := eng.ResumeAll(ctx); err != nil {
		logger.Warn("Failed to resume drafts", "error", err)
	} else if n > 0 {
		logger.Info("Resumed drafts from snapshots", "count", n)
	}

	// Start gRPC server in a goroutine
	grpcServer := grpc.NewServer()
	grpcserver.RegisterDraftServiceServer(grpcServer, grpcserver.NewServer(eng, ps))
	go func() {
		lis, err := net.Listen("tcp", "0.0.0.0:"+cfg.GRPCPort)
		if err != nil {
			logger.Error("Failed to listen for gRPC", "error", err, "port", cfg.GRPCPort)
			log.Fatalf("Failed to listen for gRPC: %v", err)
		}
		logger.Info("gRPC server starting", "address", "0.0.0.0:"+cfg.GRPCPort)
		if err := grpcServer.Serve(lis); err != nil {
			logger.Error("Failed to serve gRPC", "error", err)
			log.Fatalf("Failed to serve gRPC: %v", err)
		}
	}()

	// Set up HTTP routes
	mux := http.NewServeMux()
	handlers.NewAPIHandlers(eng, ps).Register(mux)
	health.Register(mux)
	mcpServer, _ := mcptools.NewServer(eng, version)
	mux.Handle("/mcp", mcptools.Handler(mcpServer))

	srv := &http.Server{
		Addr:              "0.0.0.0:" + cfg.Port,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info("Server starting", "address", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server failed", "error", err)
			log.Fatal(err)
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("HTTP shutdown incomplete", "error", err)
	}
	grpcServer.GracefulStop()
	ps.Close()
	natsBus.Close()
}

func openDataStore(cfg *config.Config) dal.DraftDAL {
	switch cfg.DBDriver {
	case "sqlite":
		store, err := dal.NewSQLiteDAL(cfg.SQLiteFile)
		if err != nil {
			logger.Error("Failed to initialize SQLite", "error", err)
			log.Fatalf("Failed to initialize SQLite: %v", err)
		}
		logger.Info("Connected to SQLite database", "file", cfg.SQLiteFile)
		return store
	case "postgres":
		if cfg.DatabaseURL == "" {
			store, err := mocks.NewMockPostgresDAL(cfg.SQLiteFile)
			if err != nil {
				log.Fatalf("Failed to initialize mock Postgres: %v", err)
			}
			return store
		}
		store, err := dal.NewPostgresDAL(cfg.DatabaseURL)
		if err != nil {
			logger.Error("Failed to initialize Postgres", "error", err)
			log.Fatalf("Failed to initialize Postgres: %v", err)
		}
		logger.Info("Connected to Postgres database")
		return store
	default:
		logger.Info("Using in-memory data store")
		return dal.NewMemoryDAL()
	}
}

// refreshCalibration keeps fitted utilities warm in the calibration cache
func refreshCalibration(ctx context.Context, cal advice.Calibration) {
	ticker := time.NewTicker(calibrationRefresh)
	defer ticker.Stop()

	for {
		for _, mode := range []models.ScoringMode{models.PPR, models.HalfPPR, models.Standard} {
			utils, err := cal.Utilities(ctx, mode)
			if err != nil {
				logger.Warn("Calibration refresh failed", "scoring", mode, "error", err)
				continue
			}
			logger.Debug("Calibration refreshed", "scoring", mode, "players", len(utils))
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
