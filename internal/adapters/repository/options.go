package repository

import (
	"time"

	"github.com/okian/combine/pkg/logger"
)

// DefaultBatchLimit keeps cascading writes under the store's batch cap.
const DefaultBatchLimit = 400

// Option applies a configuration option to the Repository.
type Option func(*Repository)

// WithBatchLimit sets the chunk size of multi-document writes.
func WithBatchLimit(n int) Option {
	return func(r *Repository) {
		if n > 0 {
			r.batchLimit = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(r *Repository) {
		if l != nil {
			r.log = l.Named("repository")
		}
	}
}

// WithClock sets the time source for timestamps.
func WithClock(now func() time.Time) Option {
	return func(r *Repository) {
		if now != nil {
			r.now = now
		}
	}
}
