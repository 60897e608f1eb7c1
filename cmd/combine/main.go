package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/okian/combine/internal/adapters/archive"
	"github.com/okian/combine/internal/adapters/docstore"
	"github.com/okian/combine/internal/adapters/docstore/boltstore"
	"github.com/okian/combine/internal/adapters/docstore/pgstore"
	"github.com/okian/combine/internal/adapters/http/api"
	"github.com/okian/combine/internal/adapters/http/swagger"
	"github.com/okian/combine/internal/adapters/repository"
	app "github.com/okian/combine/internal/app"
	"github.com/okian/combine/internal/config"
	"github.com/okian/combine/pkg/logger"
	"github.com/okian/combine/pkg/metrics"
)

// HTTP server timeout constants.
const (
	readTimeout       = 30 * time.Second
	writeTimeout      = 30 * time.Second
	idleTimeout       = 60 * time.Second
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 30 * time.Second
)

func main() {
	if err := run(); err != nil {
		os.Stderr.WriteString("combine: " + err.Error() + "\n")
		os.Exit(1)
	}
}

func run() error {
	// Go runtime collectors are replaced by our own system gauges.
	prometheus.Unregister(collectors.NewGoCollector())
	prometheus.Unregister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	// A missing .env is fine.
	_ = godotenv.Load()

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if err := logger.InitWithFormat(cfg.LogFormat, os.Stdout); err != nil {
		return fmt.Errorf("init logging: %w", err)
	}
	defer func() { _ = logger.Sync() }()
	log := logger.Get()
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Error(ctx, "store close failed", logger.Error(err))
		}
	}()

	archiver, err := openArchiver(ctx, cfg)
	if err != nil {
		return err
	}

	svc := newService(cfg, store, archiver, log)
	if err := svc.Start(ctx); err != nil {
		return fmt.Errorf("start service: %w", err)
	}
	defer svc.Stop(context.Background())

	go startSystemMetricsUpdater(ctx, metrics.RefreshInterval())

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           newMux(ctx, cfg, svc, log),
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info(ctx, "starting HTTP server",
			logger.String("addr", cfg.Addr),
			logger.String("store", cfg.StoreDriver))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	}
	log.Info(ctx, "shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "server shutdown failed", logger.Error(err))
	}
	log.Info(ctx, "server stopped")
	return nil
}

// openStore selects the document store backend and bounds every call.
func openStore(cfg *config.Config) (docstore.Store, error) {
	var (
		next docstore.Store
		err  error
	)
	switch cfg.StoreDriver {
	case config.DriverMemory:
		next = docstore.NewMemoryStore()
	case config.DriverBolt:
		next, err = boltstore.Open(cfg.BoltPath)
	case config.DriverPostgres:
		next, err = pgstore.Open(cfg.PostgresDSN)
	default:
		err = fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	return docstore.Timed(next, docstore.Timeouts{
		Read:  cfg.ReadTimeout(),
		Write: cfg.WriteTimeout(),
		Bulk:  cfg.BulkTimeout(),
	}), nil
}

// openArchiver returns the S3 archiver when a bucket is configured.
func openArchiver(ctx context.Context, cfg *config.Config) (archive.Archiver, error) {
	if cfg.ArchiveBucket == "" {
		return archive.Nop{}, nil
	}
	s3, err := archive.NewS3(ctx, archive.Config{
		Bucket:    cfg.ArchiveBucket,
		Endpoint:  cfg.ArchiveEndpoint,
		Region:    cfg.ArchiveRegion,
		AccessKey: cfg.ArchiveAccessKey,
		SecretKey: cfg.ArchiveSecretKey,
	})
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}
	return s3, nil
}

func newService(cfg *config.Config, store docstore.Store, archiver archive.Archiver, log logger.Logger) *app.Service {
	repo := repository.New(store,
		repository.WithBatchLimit(cfg.BatchWriteLimit),
		repository.WithLogger(log),
	)
	return app.New(repo,
		app.WithLogger(log.Named("service")),
		app.WithWorkerCount(cfg.ReconcileWorkers),
		app.WithQueueSize(cfg.ReconcileQueueSize),
		app.WithReconcileInterval(cfg.ReconcileInterval()),
		app.WithMaxUploadRows(cfg.MaxUploadRows),
		app.WithProfileCacheTTL(cfg.ProfileCacheTTL()),
		app.WithDefaultTemplate(cfg.DrillTemplate),
		app.WithDefaultWeights(cfg.DefaultWeights),
		app.WithArchiver(archiver),
	)
}

func newMux(ctx context.Context, cfg *config.Config, svc *app.Service, log logger.Logger) *http.ServeMux {
	mux := http.NewServeMux()
	swagger.Register(ctx, mux)
	mux.Handle("GET /metrics", api.MetricsHandler())
	api.NewServer(svc,
		api.WithMaxUploadBytes(cfg.MaxUploadBytes),
		api.WithRateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst),
		api.WithHealthTimeout(cfg.ReadTimeout()),
		api.WithLogger(log.Named("api")),
	).Register(ctx, mux)
	return mux
}

// startSystemMetricsUpdater refreshes runtime gauges until ctx ends.
func startSystemMetricsUpdater(ctx context.Context, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateSystemMetrics()
		}
	}
}

func updateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	metrics.UpdateSystemMemoryUsage(m.Alloc)
	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())
}
