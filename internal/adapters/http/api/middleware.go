package api

import (
	"context"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/okian/combine/internal/domain/apperr"
	"github.com/okian/combine/internal/domain/model"
	"github.com/okian/combine/pkg/logger"
	"github.com/okian/combine/pkg/metrics"
)

// Identity headers set by the fronting identity layer.
const (
	HeaderUserID        = "X-User-ID"
	HeaderUserRole      = "X-User-Role"
	HeaderEmailVerified = "X-Email-Verified"
	HeaderUserName      = "X-User-Name"
	HeaderUserEmail     = "X-User-Email"
	HeaderRequestID     = "X-Request-ID"
)

type principalKey struct{}

// principalFrom returns the caller attached by the principal middleware.
func principalFrom(ctx context.Context) model.Principal {
	p, _ := ctx.Value(principalKey{}).(model.Principal)
	return p
}

func principalFromHeaders(h http.Header) model.Principal {
	verified, _ := strconv.ParseBool(strings.TrimSpace(h.Get(HeaderEmailVerified)))
	return model.Principal{
		UserID:        strings.TrimSpace(h.Get(HeaderUserID)),
		Role:          strings.ToLower(strings.TrimSpace(h.Get(HeaderUserRole))),
		Name:          strings.TrimSpace(h.Get(HeaderUserName)),
		Email:         strings.TrimSpace(h.Get(HeaderUserEmail)),
		EmailVerified: verified,
	}
}

// chain wraps h with request id, logging fields, metrics and, for
// authenticated routes, principal extraction and rate limiting.
func (s *Server) chain(endpoint string, authenticated bool, h http.HandlerFunc) http.Handler {
	next := h
	if authenticated {
		next = s.rateLimit(next)
		next = s.principal(next)
	}
	next = MetricsMiddleware(next, endpoint)
	return s.requestContext(next)
}

func (s *Server) requestContext(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(HeaderRequestID)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(HeaderRequestID, id)
		ctx := logger.WithFields(r.Context(),
			logger.String("request_id", id),
			logger.String("method", r.Method),
			logger.String("path", r.URL.Path),
		)
		next(w, r.WithContext(ctx))
	})
}

func (s *Server) principal(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p := principalFromHeaders(r.Header)
		if p.UserID == "" {
			writeError(w, r, apperr.Wrap(apperr.ErrForbidden, "api.principal", ErrUnauthorized))
			return
		}
		ctx := context.WithValue(r.Context(), principalKey{}, p)
		ctx = logger.WithFields(ctx, logger.String("user_id", p.UserID))
		next(w, r.WithContext(ctx))
	}
}

func (s *Server) rateLimit(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key := principalFrom(r.Context()).UserID
		if key == "" {
			key = clientIP(r)
		}
		if wait, ok := s.limiter.allow(key); !ok {
			metrics.RecordRateLimited()
			s.logger.Warn(r.Context(), "rate limited", logger.String("caller", key))
			w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
			writeError(w, r, apperr.New(apperr.ErrRateLimited, "api.rate_limit", "too many requests"))
			return
		}
		next(w, r)
	}
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// limiter keeps one token bucket per caller.
type limiter struct {
	mu      sync.Mutex
	rps     rate.Limit
	burst   int
	buckets map[string]*rate.Limiter
}

func newLimiter(rps float64, burst int) *limiter {
	return &limiter{rps: rate.Limit(rps), burst: burst, buckets: make(map[string]*rate.Limiter)}
}

// allow takes a token for key. When none is available it returns the wait
// until the next one.
func (l *limiter) allow(key string) (time.Duration, bool) {
	l.mu.Lock()
	b, ok := l.buckets[key]
	if !ok {
		b = rate.NewLimiter(l.rps, l.burst)
		l.buckets[key] = b
	}
	l.mu.Unlock()

	res := b.Reserve()
	if !res.OK() {
		return time.Second, false
	}
	if d := res.Delay(); d > 0 {
		res.Cancel()
		return max(d, time.Second), false
	}
	return 0, true
}

// MetricsMiddleware wraps HTTP handlers to record Prometheus metrics.
func MetricsMiddleware(next http.HandlerFunc, endpoint string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// Create a response writer wrapper to capture status code
		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		durationMs := float64(time.Since(start).Microseconds()) / 1000
		statusCode := strconv.Itoa(wrapped.statusCode)
		metrics.RecordHTTPRequest(endpoint, r.Method, statusCode, durationMs)

		if wrapped.statusCode >= http.StatusBadRequest {
			metrics.RecordErrorByComponent("http", errorType(wrapped.statusCode))
		}
		logger.Get().Debug(r.Context(), "request served",
			logger.String("endpoint", endpoint),
			logger.Int("status", wrapped.statusCode),
			logger.Float64("duration_ms", durationMs))
	}
}

// errorType returns a standardized error type based on HTTP status code.
func errorType(statusCode int) string {
	switch {
	case statusCode >= http.StatusInternalServerError:
		return "server_error"
	case statusCode == http.StatusTooManyRequests:
		return "rate_limit"
	case statusCode == http.StatusNotFound:
		return "not_found"
	default:
		return "client_error"
	}
}

// responseWriter wraps http.ResponseWriter to capture status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
