package scoring

import (
	"github.com/okian/combine/internal/domain/drills"
	"github.com/okian/combine/pkg/logger"
)

// Option configures a Ranker.
type Option func(*Ranker)

// WithDefaultWeights overrides the template defaults. Weights that do not
// validate against an event's template are ignored for that event.
func WithDefaultWeights(w map[string]float64) Option {
	return func(r *Ranker) {
		if len(w) > 0 {
			r.defaults = Weights(w).Clone()
		}
	}
}

// WithCatalog sets the drill templates.
func WithCatalog(c *drills.Catalog) Option {
	return func(r *Ranker) {
		if c != nil {
			r.catalog = c
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(r *Ranker) {
		if l != nil {
			r.log = l.Named("ranker")
		}
	}
}
