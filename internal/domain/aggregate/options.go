package aggregate

import (
	"time"

	"github.com/okian/combine/pkg/logger"
)

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(a *Aggregator) {
		if l != nil {
			a.log = l.Named("aggregator")
		}
	}
}

// WithClock sets the time source for last_updated.
func WithClock(now func() time.Time) Option {
	return func(a *Aggregator) {
		if now != nil {
			a.now = now
		}
	}
}
