package api

import (
	"time"

	"github.com/okian/combine/pkg/logger"
)

// Option applies a configuration option to the Server.
type Option func(*Server)

// WithMaxUploadBytes bounds upload bodies.
func WithMaxUploadBytes(n int64) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxUploadBytes = n
		}
	}
}

// WithRateLimit sets the per-caller request rate and burst.
func WithRateLimit(rps float64, burst int) Option {
	return func(s *Server) {
		if rps > 0 && burst > 0 {
			s.limiter = newLimiter(rps, burst)
		}
	}
}

// WithHealthTimeout bounds the store ping of /healthz.
func WithHealthTimeout(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.healthTimeout = d
		}
	}
}

// WithLogger sets the request logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}
