// Package cache holds the per-process user profile cache.
package cache

import (
	"context"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/okian/combine/internal/domain/model"
	"github.com/okian/combine/pkg/logger"
	"github.com/okian/combine/pkg/metrics"
)

// DefaultTTL is the bucket width of cached profiles.
const DefaultTTL = 5 * time.Minute

// Loader fetches a profile from the store.
type Loader interface {
	GetUser(ctx context.Context, userID string) (*model.UserProfile, error)
}

type entry struct {
	bucket  int64
	profile model.UserProfile
}

// ProfileCache caches profiles in fixed wall-clock buckets: every entry
// expires at the next bucket boundary, so all replicas agree on when a
// profile is refreshed. Concurrent misses for one user share a load.
type ProfileCache struct {
	loader Loader
	ttl    time.Duration
	now    func() time.Time
	log    logger.Logger

	mu      sync.RWMutex
	entries map[string]entry
	group   singleflight.Group
}

// Option configures a ProfileCache.
type Option func(*ProfileCache)

// WithTTL sets the bucket width.
func WithTTL(d time.Duration) Option {
	return func(c *ProfileCache) {
		if d >= time.Second {
			c.ttl = d
		}
	}
}

// WithClock sets the time source.
func WithClock(now func() time.Time) Option {
	return func(c *ProfileCache) {
		if now != nil {
			c.now = now
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(c *ProfileCache) {
		if l != nil {
			c.log = l.Named("profile_cache")
		}
	}
}

// New creates a ProfileCache over loader.
func New(loader Loader, opts ...Option) *ProfileCache {
	c := &ProfileCache{
		loader:  loader,
		ttl:     DefaultTTL,
		now:     time.Now,
		log:     logger.Nop(),
		entries: make(map[string]entry),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *ProfileCache) bucket() int64 {
	return c.now().Unix() / int64(c.ttl/time.Second)
}

// Get returns the profile of userID, loading it on a miss. Load errors
// are not cached.
func (c *ProfileCache) Get(ctx context.Context, userID string) (*model.UserProfile, error) {
	b := c.bucket()
	c.mu.RLock()
	e, ok := c.entries[userID]
	c.mu.RUnlock()
	if ok && e.bucket == b {
		metrics.RecordCacheLookup("hit")
		p := e.profile
		return &p, nil
	}
	metrics.RecordCacheLookup("miss")

	v, err, _ := c.group.Do(userID+"@"+strconv.FormatInt(b, 10), func() (any, error) {
		p, err := c.loader.GetUser(ctx, userID)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.entries[userID] = entry{bucket: b, profile: *p}
		c.mu.Unlock()
		return *p, nil
	})
	if err != nil {
		c.log.Debug(ctx, "profile load failed", logger.String("user_id", userID), logger.Error(err))
		return nil, err
	}
	p := v.(model.UserProfile)
	return &p, nil
}

// Invalidate drops the cached profile of userID.
func (c *ProfileCache) Invalidate(userID string) {
	c.mu.Lock()
	delete(c.entries, userID)
	c.mu.Unlock()
}

// Sweep drops entries from earlier buckets and returns how many remain.
func (c *ProfileCache) Sweep() int {
	b := c.bucket()
	c.mu.Lock()
	defer c.mu.Unlock()
	for id, e := range c.entries {
		if e.bucket != b {
			delete(c.entries, id)
		}
	}
	return len(c.entries)
}
