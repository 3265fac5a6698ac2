package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"auctioneer/application"
	"auctioneer/config"
	"auctioneer/database"
	"auctioneer/events"
	"auctioneer/infrastructure"
	"auctioneer/infrastructure/observability"
	"auctioneer/repository"
	"auctioneer/server"
	"auctioneer/service"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

// Run initializes and starts the application
func Run(ctx context.Context) error {
	cfg := config.Get()
	ConfigureLogging(cfg)

	log.WithField("environment", cfg.Environment).Info("Starting auctioneer...")

	// Initialize database connection
	databaseURL := database.ConstructDatabaseURL(cfg.DatabaseURL, cfg.DatabaseName)
	db, err := database.NewConnection(ctx, databaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer func() {
		log.Info("Closing database connection...")
		db.Close()
	}()

	if err := database.RunMigrationsWithURL(databaseURL); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	// Initialize metrics
	metrics := observability.NewMetricsProvider(cfg)
	if err := metrics.Initialize(ctx); err != nil {
		return fmt.Errorf("failed to initialize metrics: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := metrics.Shutdown(shutdownCtx); err != nil {
			log.WithError(err).Warn("Error shutting down metrics provider")
		}
	}()

	// Initialize event bus and unit of work factory
	eventBus := events.NewBus()
	metrics.SubscribeToBus(eventBus)
	uowFactory := repository.NewUnitOfWorkFactory(db, eventBus)

	// Initialize services
	clock := service.SystemClock
	biddingService := application.NewBiddingService(uowFactory, clock, metrics, application.BiddingConfig{
		MaxAttempts:    cfg.BidMaxAttempts,
		RetryBaseDelay: cfg.BidRetryBaseDelay(),
	})
	auctionService := application.NewAuctionService(uowFactory, clock)
	balanceService := application.NewBalanceService(uowFactory)
	scheduler := application.NewLifecycleScheduler(uowFactory, clock, metrics, application.SchedulerConfig{
		Interval:          cfg.SchedulerInterval(),
		TransitionTimeout: cfg.TransitionTimeout(),
		BatchSize:         cfg.SchedulerBatchSize,
		Concurrency:       cfg.SchedulerConcurrency,
	})

	// Initialize event broker and relay
	broker, err := newEventBroker(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize event broker: %w", err)
	}
	defer func() {
		if err := broker.Close(); err != nil {
			log.WithError(err).Warn("Error closing event broker")
		}
	}()
	relay := application.NewEventRelay(repository.NewEventOutbox(db), broker, metrics, cfg.RelayInterval(), cfg.RelayBatchSize)

	// Initialize HTTP server
	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}
	handlers := server.NewHandlers(auctionService, biddingService, balanceService, scheduler)
	router := server.SetupRouter(handlers, server.AuthConfig{
		JWTSecret:         cfg.JWTSecret,
		AllowUserIDHeader: cfg.IsDevelopment(),
		AdminUserIDs:      cfg.AdminUserIDs,
	}, func(ctx context.Context) error {
		return db.Ping(ctx)
	})
	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	if cfg.SchedulerEnabled {
		stopScheduler := scheduler.Start(gctx)
		defer stopScheduler()
	} else {
		log.Info("Lifecycle scheduler disabled; sweeps run only when triggered")
	}

	stopRelay := relay.Start(gctx)
	defer stopRelay()

	g.Go(func() error {
		log.WithField("addr", cfg.HTTPAddr).Info("HTTP server listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info("Shutting down HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return err
	}

	log.Info("Shutdown completed")
	return nil
}

// newEventBroker connects the configured broker for the outbox relay
func newEventBroker(ctx context.Context, cfg *config.Config) (application.EventBroker, error) {
	mapper := infrastructure.NewEventSubjectMapper()

	switch cfg.EventBroker {
	case "nats":
		client := infrastructure.NewNATSClient(cfg.NATSServers)
		if err := client.Connect(); err != nil {
			return nil, err
		}
		broker := infrastructure.NewNATSEventBroker(client, mapper)
		if err := broker.EnsureAuctionEventStream(); err != nil {
			_ = broker.Close()
			return nil, err
		}
		return broker, nil
	case "rabbitmq":
		broker := infrastructure.NewRabbitMQEventBroker(cfg.RabbitMQURL, mapper)
		if err := broker.Connect(ctx); err != nil {
			return nil, err
		}
		return broker, nil
	default:
		log.Info("No event broker configured; relayed events are discarded")
		return infrastructure.NewNoopEventBroker(), nil
	}
}

// ConfigureLogging applies the configured level and formatter to the global logger
func ConfigureLogging(cfg *config.Config) {
	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.WithField("logLevel", cfg.LogLevel).Warn("Unknown log level, using info")
		level = log.InfoLevel
	}
	log.SetLevel(level)

	if cfg.IsDevelopment() {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	} else {
		log.SetFormatter(&log.JSONFormatter{})
	}
}
