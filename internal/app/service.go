// Package service provides the core business service that implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"runtime"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"

	"github.com/okian/combine/internal/adapters/archive"
	"github.com/okian/combine/internal/adapters/cache"
	"github.com/okian/combine/internal/adapters/mq/queue"
	"github.com/okian/combine/internal/adapters/mq/worker"
	"github.com/okian/combine/internal/adapters/repository"
	"github.com/okian/combine/internal/domain/aggregate"
	"github.com/okian/combine/internal/domain/drills"
	"github.com/okian/combine/internal/domain/scoring"
	"github.com/okian/combine/internal/domain/validation"
	"github.com/okian/combine/pkg/logger"
	"github.com/okian/combine/pkg/metrics"
)

// Service implements the API dependencies for the combine.
type Service struct {
	mu sync.RWMutex

	// Core components
	repo       *repository.Repository
	catalog    *drills.Catalog
	validator  *validation.Validator
	aggregator *aggregate.Aggregator
	ranker     *scoring.Ranker
	profiles   *cache.ProfileCache
	archiver   archive.Archiver

	// Reconcile machinery, built by Start
	reconcileQueue *queue.InMemoryQueue
	workerPool     *worker.Pool
	scheduler      gocron.Scheduler

	// Configuration
	workerCount       int
	queueSize         int
	maxUploadRows     int
	reconcileInterval time.Duration
	profileTTL        time.Duration
	defaultTemplate   string
	defaultWeights    map[string]float64

	// State
	started   bool
	startedAt time.Time

	now    func() time.Time
	newID  func() string
	logger logger.Logger
}

// New constructs a Service over repo. Components that need no background
// goroutines are usable before Start.
func New(repo *repository.Repository, opts ...Option) *Service {
	s := &Service{
		repo:            repo,
		catalog:         drills.Builtin(),
		archiver:        archive.Nop{},
		workerCount:     runtime.NumCPU(),
		queueSize:       10000,
		maxUploadRows:   validation.DefaultMaxRows,
		profileTTL:      cache.DefaultTTL,
		defaultTemplate: drills.DefaultTemplate,
		now:             func() time.Time { return time.Now().UTC() },
		newID:           uuid.NewString,
		logger:          logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.validator = validation.New(repo,
		validation.WithCatalog(s.catalog),
		validation.WithMaxRows(s.maxUploadRows),
		validation.WithLogger(s.logger),
	)
	s.aggregator = aggregate.New(repo,
		aggregate.WithLogger(s.logger),
		aggregate.WithClock(s.now),
	)
	s.ranker = scoring.NewRanker(repo,
		scoring.WithCatalog(s.catalog),
		scoring.WithDefaultWeights(s.defaultWeights),
		scoring.WithLogger(s.logger),
	)
	s.profiles = cache.New(repo,
		cache.WithTTL(s.profileTTL),
		cache.WithLogger(s.logger),
	)
	return s
}

// Start launches the reconcile workers and, when an interval is set, the
// periodic sweep of live events.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	s.logger.Info(ctx, "starting combine service...")

	s.reconcileQueue = queue.NewInMemoryQueue(queue.WithCapacity(s.queueSize))
	s.workerPool = worker.NewPool(s.workerCount, s.reconcileQueue, s.aggregator,
		worker.WithLogger(s.logger.Named("worker")))
	s.workerPool.Start(ctx)

	if s.reconcileInterval > 0 {
		sched, err := gocron.NewScheduler()
		if err != nil {
			return err
		}
		_, err = sched.NewJob(
			gocron.DurationJob(s.reconcileInterval),
			gocron.NewTask(func() { s.sweep(ctx) }),
			gocron.WithName("reconcile-sweep"),
			gocron.WithSingletonMode(gocron.LimitModeReschedule),
		)
		if err != nil {
			_ = sched.Shutdown()
			return err
		}
		sched.Start()
		s.scheduler = sched
	}

	s.started = true
	s.startedAt = s.now()
	s.logger.Info(ctx, "combine service started",
		logger.Int("workers", s.workerPool.Size()),
		logger.Int("queueSize", s.queueSize),
		logger.Duration("reconcileInterval", s.reconcileInterval),
	)
	return nil
}

// Stop drains the reconcile queue and stops the scheduler.
func (s *Service) Stop(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	s.logger.Info(ctx, "stopping combine service...")

	if s.scheduler != nil {
		if err := s.scheduler.Shutdown(); err != nil {
			s.logger.Warn(ctx, "scheduler shutdown", logger.Error(err))
		}
		s.scheduler = nil
	}
	if s.workerPool != nil {
		if err := s.workerPool.Shutdown(ctx); err != nil {
			s.logger.Warn(ctx, "worker pool shutdown", logger.Error(err))
		}
	}

	s.started = false
	s.logger.Info(ctx, "combine service stopped")
}

// Ping checks the store.
func (s *Service) Ping(ctx context.Context) error {
	return s.repo.Ping(ctx)
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]any{
		"started":           s.started,
		"workerCount":       s.workerCount,
		"queueSize":         s.queueSize,
		"maxUploadRows":     s.maxUploadRows,
		"defaultTemplate":   s.defaultTemplate,
		"reconcileInterval": s.reconcileInterval.String(),
		"cachedProfiles":    s.profiles.Sweep(),
	}
	if s.started {
		queueLen := s.reconcileQueue.Len()
		stats["queueLength"] = queueLen
		stats["uptimeSeconds"] = int64(s.now().Sub(s.startedAt).Seconds())
		metrics.UpdateReconcileQueueSize(queueLen)
	}
	return stats
}
