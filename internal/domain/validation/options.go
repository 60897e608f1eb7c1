package validation

import (
	"github.com/okian/combine/internal/domain/drills"
	"github.com/okian/combine/pkg/logger"
)

// Option configures a Validator.
type Option func(*Validator)

// WithMaxRows overrides the upload row limit.
func WithMaxRows(n int) Option {
	return func(v *Validator) {
		if n > 0 {
			v.maxRows = n
		}
	}
}

// WithCatalog sets the templates used for sport detection.
func WithCatalog(c *drills.Catalog) Option {
	return func(v *Validator) {
		if c != nil {
			v.catalog = c
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(v *Validator) {
		if l != nil {
			v.log = l.Named("validator")
		}
	}
}
