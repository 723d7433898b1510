// Package profilecache memoizes behavioral profiles per user. Concurrent
// requests for the same user share a single computation.
package profilecache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/maypok86/otter/v2"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/codeGROOVE-dev/orbit/pkg/behavior"
)

// DefaultTTL is how long a computed profile stays fresh.
const DefaultTTL = time.Hour

const keySeparator = "\x00"

// ComputeFunc builds a profile on a cache miss.
type ComputeFunc func(ctx context.Context) (*behavior.Profile, error)

// Cache is a TTL cache of profiles keyed by user and input version.
type Cache struct {
	cache    *otter.Cache[string, *behavior.Profile]
	logger   *slog.Logger
	requests *prometheus.CounterVec
	ttl      time.Duration
	size     int
}

// Option configures a Cache.
type Option func(*Cache)

// WithTTL sets how long entries live after being written.
func WithTTL(d time.Duration) Option {
	return func(c *Cache) {
		if d > 0 {
			c.ttl = d
		}
	}
}

// WithMaximumSize bounds the number of cached profiles.
func WithMaximumSize(n int) Option {
	return func(c *Cache) {
		if n > 0 {
			c.size = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Cache) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithRegisterer records hits and misses in reg.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(c *Cache) {
		requests := prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "orbit",
				Subsystem: "profile_cache",
				Name:      "total",
				Help:      "Profile lookups by result.",
			},
			[]string{"result"},
		)
		if err := reg.Register(requests); err != nil {
			var already prometheus.AlreadyRegisteredError
			if !errors.As(err, &already) {
				panic(err)
			}
			existing, ok := already.ExistingCollector.(*prometheus.CounterVec)
			if !ok {
				panic(err)
			}
			requests = existing
		}
		c.requests = requests
	}
}

// New creates a cache.
func New(opts ...Option) *Cache {
	c := &Cache{
		logger: slog.Default(),
		ttl:    DefaultTTL,
		size:   10_000,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.cache = otter.Must(&otter.Options[string, *behavior.Profile]{
		MaximumSize:      c.size,
		InitialCapacity:  64,
		ExpiryCalculator: otter.ExpiryWriting[string, *behavior.Profile](c.ttl),
	})
	return c
}

func key(userID, version string) string {
	return userID + keySeparator + version
}

// GetOrCompute returns the cached profile for userID at version, computing it
// once on a miss. Concurrent callers for the same key wait for that one
// computation. Failed or canceled computations are not cached.
func (c *Cache) GetOrCompute(ctx context.Context, userID, version string, compute ComputeFunc) (*behavior.Profile, error) {
	if userID == "" {
		return nil, errors.New("profile cache: empty user id")
	}
	computed := false
	p, err := c.cache.Get(ctx, key(userID, version), otter.LoaderFunc[string, *behavior.Profile](
		func(ctx context.Context, _ string) (*behavior.Profile, error) {
			computed = true
			p, err := compute(ctx)
			if err != nil {
				return nil, err
			}
			if p == nil {
				return nil, fmt.Errorf("profile cache: nil profile for %s", userID)
			}
			return p, nil
		}))
	if err != nil {
		return nil, err
	}

	result := "hit"
	if computed {
		result = "miss"
	}
	if c.requests != nil {
		c.requests.WithLabelValues(result).Inc()
	}
	c.logger.Debug("profile lookup", "user_id", userID, "result", result)
	return p, nil
}

// Invalidate drops every cached version of userID's profile and returns how
// many entries were removed.
func (c *Cache) Invalidate(userID string) int {
	prefix := userID + keySeparator
	var stale []string
	for k := range c.cache.All() {
		if strings.HasPrefix(k, prefix) {
			stale = append(stale, k)
		}
	}
	for _, k := range stale {
		c.cache.Invalidate(k)
	}
	if len(stale) > 0 {
		c.logger.Debug("invalidated cached profiles", "user_id", userID, "entries", len(stale))
	}
	return len(stale)
}

// Len returns the approximate number of cached profiles.
func (c *Cache) Len() int {
	return c.cache.EstimatedSize()
}
