package service

import (
	"time"

	"github.com/okian/combine/internal/adapters/archive"
	"github.com/okian/combine/internal/domain/drills"
	"github.com/okian/combine/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of reconcile workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the capacity of the reconcile queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithMaxUploadRows bounds bulk uploads.
func WithMaxUploadRows(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxUploadRows = n
		}
	}
}

// WithReconcileInterval enables the periodic sweep of live events.
func WithReconcileInterval(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.reconcileInterval = d
		}
	}
}

// WithProfileCacheTTL sets the profile cache bucket width.
func WithProfileCacheTTL(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.profileTTL = d
		}
	}
}

// WithCatalog replaces the builtin drill templates.
func WithCatalog(c *drills.Catalog) Option {
	return func(s *Service) {
		if c != nil {
			s.catalog = c
		}
	}
}

// WithDefaultTemplate names the template used by events that do not pick one.
func WithDefaultTemplate(name string) Option {
	return func(s *Service) {
		if name != "" {
			s.defaultTemplate = name
		}
	}
}

// WithDefaultWeights overrides the template ranking weights.
func WithDefaultWeights(w map[string]float64) Option {
	return func(s *Service) {
		if len(w) > 0 {
			s.defaultWeights = w
		}
	}
}

// WithArchiver stores raw upload files.
func WithArchiver(a archive.Archiver) Option {
	return func(s *Service) {
		if a != nil {
			s.archiver = a
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock sets the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithIDGenerator sets the generator of new document ids.
func WithIDGenerator(fn func() string) Option {
	return func(s *Service) {
		if fn != nil {
			s.newID = fn
		}
	}
}
