// Package app wires the matching service together and manages its lifecycle.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/garyellow/ntpu-section-swap/internal/backup"
	"github.com/garyellow/ntpu-section-swap/internal/buildinfo"
	"github.com/garyellow/ntpu-section-swap/internal/config"
	"github.com/garyellow/ntpu-section-swap/internal/logger"
	"github.com/garyellow/ntpu-section-swap/internal/match"
	"github.com/garyellow/ntpu-section-swap/internal/metrics"
	"github.com/garyellow/ntpu-section-swap/internal/notify"
	"github.com/garyellow/ntpu-section-swap/internal/objectstore"
	"github.com/garyellow/ntpu-section-swap/internal/sentry"
	"github.com/garyellow/ntpu-section-swap/internal/storage"
	"github.com/garyellow/ntpu-section-swap/internal/view"
	"github.com/garyellow/ntpu-section-swap/internal/worker"
)

// Application manages the application lifecycle and dependencies.
type Application struct {
	cfg        *config.Config
	logger     *logger.Logger
	db         *storage.DB
	metrics    *metrics.Metrics
	registry   *prometheus.Registry
	engine     *match.Engine
	dispatcher *worker.Dispatcher
	views      *view.Service
	line       *notify.LineNotifier // nil when pushing to LINE is not configured
	backup     *backup.Manager      // nil when R2 is disabled
	router     *gin.Engine
	server     *http.Server
	wg         sync.WaitGroup // background jobs
}

// Initialize creates and initializes a new application with all dependencies.
func Initialize(ctx context.Context, cfg *config.Config) (*Application, error) {
	log := logger.NewWithOptions(cfg.LogLevel, os.Stdout, logger.Options{
		BetterStackToken:    cfg.BetterStackToken,
		BetterStackEndpoint: cfg.BetterStackEndpoint,
	})
	log = log.WithField("service", "ntpu-section-swap")
	if host, err := os.Hostname(); err == nil && host != "" {
		log = log.WithField("instance_id", host)
	}

	// Package-level slog.*Context calls (storage) pick up the context handler.
	slog.SetDefault(log.Logger)

	log.Info("Initializing application...")

	if err := sentry.Initialize(sentry.Config{
		DSN:         cfg.SentryDSN,
		Environment: cfg.SentryEnvironment,
		Release:     buildinfo.Version,
		SampleRate:  cfg.SentrySampleRate,
	}); err != nil {
		log.WithError(err).Warn("Sentry initialization failed; continuing without it")
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewBuildInfoCollector(),
	)
	m := metrics.New(registry)

	var backups *backup.Manager
	if cfg.R2.Enabled {
		client, err := objectstore.New(ctx, objectstore.Config{
			Endpoint:    cfg.R2.Endpoint(),
			AccessKeyID: cfg.R2.AccessKeyID,
			SecretKey:   cfg.R2.SecretAccessKey,
			BucketName:  cfg.R2.BucketName,
		})
		if err != nil {
			return nil, fmt.Errorf("object store: %w", err)
		}
		backups = backup.New(client,
			objectstore.NewLock(client, cfg.R2.LockKey, cfg.R2.LockTTL),
			backup.Config{SnapshotKey: cfg.R2.SnapshotKey},
			m, log)

		restoreCtx, cancel := context.WithTimeout(ctx, config.SnapshotTransfer)
		restored, err := backups.Restore(restoreCtx, cfg.SQLitePath())
		cancel()
		if err != nil {
			log.WithError(err).Warn("Snapshot restore failed; starting with a fresh database")
		} else if restored {
			log.WithField("path", cfg.SQLitePath()).Info("Database restored from R2")
		}
	}

	db, err := storage.New(ctx, cfg.SQLitePath())
	if err != nil {
		return nil, fmt.Errorf("database: %w", err)
	}
	log.WithField("path", cfg.SQLitePath()).Info("Database connected")

	var (
		notifier notify.Notifier
		line     *notify.LineNotifier
	)
	if cfg.HasLineNotifier() {
		client, err := notify.NewLineClient(cfg.LineChannelToken)
		if err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("line client: %w", err)
		}
		line = notify.NewLineNotifier(client, cfg.LinePushRPS, m)
		notifier = line
		log.WithField("rps", cfg.LinePushRPS).Info("LINE push notifications enabled")
	} else {
		notifier = notify.NewLogNotifier(log)
		log.Info("No LINE token; match notifications are logged only")
	}

	if cfg.LogLevel == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	app := newApplication(cfg, db, notifier, m, registry, log)
	app.line = line
	app.backup = backups

	if sentry.IsEnabled() {
		app.router.Use(sentrygin.New(sentrygin.Options{Repanic: true}))
	}
	app.setupRoutes()

	app.server = &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           app.router,
		ReadHeaderTimeout: config.HTTPRead,
		ReadTimeout:       config.HTTPRead,
		WriteTimeout:      config.HTTPWrite,
		IdleTimeout:       config.HTTPIdle,
	}

	log.WithField("version", buildinfo.Version).Info("Initialization complete")
	return app, nil
}

// newApplication builds the matching pipeline on top of an open database.
// Routes are registered by the caller.
func newApplication(cfg *config.Config, db *storage.DB, notifier notify.Notifier, m *metrics.Metrics, registry *prometheus.Registry, log *logger.Logger) *Application {
	engine := match.NewEngine(db,
		notify.NewAdapter(notifier, cfg.Match.NotifyTimeout, m, log),
		match.Config{
			CandidateLimit: cfg.Match.CandidateLimit,
			StoreTimeout:   cfg.Match.StoreTimeout,
			SweepWorkers:   cfg.Match.Workers,
		}, m, log)

	dispatcher := worker.NewDispatcher(engine, worker.Config{
		Workers:    cfg.Match.Workers,
		QueueSize:  cfg.Match.QueueSize,
		JobTimeout: config.MatchPass,
	}, m, log)

	router := gin.New()
	router.Use(gin.Recovery())

	return &Application{
		cfg:        cfg,
		logger:     log,
		db:         db,
		metrics:    m,
		registry:   registry,
		engine:     engine,
		dispatcher: dispatcher,
		views:      view.NewService(db, view.DefaultLimit),
		router:     router,
	}
}

// Run starts the HTTP server and background jobs and blocks until SIGINT or
// SIGTERM.
//
// Shutdown order: stop accepting requests, drain queued matching passes,
// stop background jobs (which take a final backup), then close the
// database. Closing the database earlier fails the last passes.
func (a *Application) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a.startBackgroundJobs(ctx)
	a.startHTTPServer()

	sig := a.waitForShutdownSignal()
	a.logger.WithField("signal", sig.String()).Info("Received shutdown signal")

	return a.shutdown(cancel)
}

func (a *Application) startHTTPServer() {
	go func() {
		a.logger.WithField("port", a.cfg.Port).Info("Starting HTTP server")
		if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.logger.WithError(err).Error("HTTP server error")
		}
	}()
}

func (a *Application) waitForShutdownSignal() os.Signal {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	return <-quit
}

func (a *Application) shutdown(stopJobs context.CancelFunc) error {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()

	a.logger.Info("Stopping HTTP server...")
	if err := a.server.Shutdown(shutdownCtx); err != nil {
		a.logger.WithError(err).Error("HTTP server shutdown error")
	}

	a.logger.WithField("queued", a.dispatcher.Len()).Info("Draining matching passes...")
	if err := a.dispatcher.Shutdown(shutdownCtx); err != nil {
		a.logger.WithError(err).Warn("Dispatcher shutdown timeout; queued intents wait for the next sweep")
	}

	stopJobs()
	start := time.Now()
	a.wg.Wait()
	a.logger.WithField("duration_ms", time.Since(start).Milliseconds()).Info("All background jobs completed")

	if a.backup != nil {
		a.finalBackup(shutdownCtx)
	}

	a.logger.Info("Closing resources...")
	if a.line != nil {
		a.line.Close()
	}
	if err := a.db.Close(); err != nil {
		a.logger.WithError(err).WithField("component", "database").Error("Component close error")
	}

	sentry.Flush(2 * time.Second)
	a.logger.Info("Shutdown complete")
	if err := a.logger.Shutdown(shutdownCtx); err != nil {
		slog.Warn("Logger shutdown timed out", "error", err)
	}
	return nil
}

// finalBackup uploads one last snapshot when this replica leads, then gives
// up the lock so another replica can take over without waiting for the TTL.
func (a *Application) finalBackup(ctx context.Context) {
	if a.backup.Lead(ctx) {
		if _, err := a.backup.Backup(ctx, a.db); err != nil {
			a.logger.WithError(err).Warn("Final snapshot upload failed")
		}
	}
	if err := a.backup.Release(ctx); err != nil {
		a.logger.WithError(err).Warn("Failed to release leader lock")
	}
}
