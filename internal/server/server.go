package server

import (
	"context"
	"log/slog"
	"os"

	"github.com/gorilla/sessions"
	"github.com/labstack/echo-contrib/session"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/surrealdb/surrealdb.go"

	"github.com/nfrund/quorum/internal/config"
	"github.com/nfrund/quorum/internal/database"
	"github.com/nfrund/quorum/internal/events"
	"github.com/nfrund/quorum/internal/logging"
	"github.com/nfrund/quorum/internal/middleware"
	"github.com/nfrund/quorum/internal/pubsub"
	"github.com/nfrund/quorum/internal/relay"
)

// Server holds the dependencies for the HTTP server.
type Server struct {
	E        *echo.Echo
	DB       *surrealdb.DB
	Cfg      *config.Config
	Registry *relay.Registry
	Bus      *events.Bus
	Emitter  *events.Emitter

	stores *database.Stores
	msgBus *pubsub.WatermillBridge

	// cancel stops the registry, bus, and bridge loops on shutdown.
	cancel context.CancelFunc
	// stopTracing flushes and shuts down the span exporter.
	stopTracing func()
}

// New creates a new Server instance with all subsystems wired and running.
func New() *Server {
	logging.New()
	cfg := config.New()

	db, err := database.NewDB(context.Background(), cfg)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}

	stores := database.NewStores(db)

	ctx, cancel := context.WithCancel(context.Background())

	tracingCfg := pubsub.DefaultTracingConfig()
	tracingCfg.Enabled = cfg.TracingEnabled
	if cfg.ZipkinURL != "" {
		tracingCfg.ZipkinURL = cfg.ZipkinURL
	}
	// The exporter outlives the loop context so spans still flush during
	// shutdown.
	tracer, stopTracing, err := pubsub.SetupTracing(context.Background(), tracingCfg)
	if err != nil {
		slog.Error("Failed to set up tracing", "error", err)
		cancel()
		os.Exit(1)
	}

	// Domain events travel over watermill from the publishers (the relay,
	// the mutation layer) to the in-process bus that feeds subscriptions.
	// Both ends of the pipeline are traced.
	msgBus := pubsub.NewWatermillBridge()
	emitter := events.NewEmitter(pubsub.NewTracingPublisher(msgBus, tracer))
	bus := events.NewBus()
	go bus.Run(ctx)

	bridgeSub := pubsub.NewTracingSubscriber(msgBus, tracer)
	if err := events.NewBridge(bridgeSub, bus).Start(ctx); err != nil {
		slog.Error("Failed to start event bridge", "error", err)
		cancel()
		os.Exit(1)
	}

	registry := relay.NewRegistry(stores.Comments, emitter)
	go registry.Run(ctx)

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.RequestID())
	e.Use(middleware.Logger)
	e.Use(echomw.Recover())

	store := sessions.NewCookieStore([]byte(cfg.SessionSecret))
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   86400 * 7, // 7 days
		HttpOnly: true,
	}
	e.Use(session.Middleware(store))

	return &Server{
		E:           e,
		DB:          db,
		Cfg:         cfg,
		Registry:    registry,
		Bus:         bus,
		Emitter:     emitter,
		stores:      stores,
		msgBus:      msgBus,
		cancel:      cancel,
		stopTracing: stopTracing,
	}
}
