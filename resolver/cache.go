package resolver

import (
	"context"
	"fmt"

	"github.com/c360studio/semstreams/metric"
	"github.com/c360studio/semstreams/pkg/cache"
)

type cachedResult struct {
	uri   string
	found bool
}

// Cached memoizes answers from another Resolver, including "not found", so a
// run never asks the service twice about the same description. Errors are not
// cached.
type Cached struct {
	next  Resolver
	cache cache.Cache[cachedResult]
}

// CacheOption configures a Cached resolver.
type CacheOption func(*cacheOptions)

type cacheOptions struct {
	registry *metric.MetricsRegistry
}

// WithCacheMetrics exports cache statistics through the registry.
func WithCacheMetrics(registry *metric.MetricsRegistry) CacheOption {
	return func(o *cacheOptions) {
		o.registry = registry
	}
}

// NewCached wraps next with an LRU cache of maxSize entries.
func NewCached(next Resolver, maxSize int, opts ...CacheOption) (*Cached, error) {
	var o cacheOptions
	for _, opt := range opts {
		opt(&o)
	}

	var cacheOpts []cache.Option[cachedResult]
	if o.registry != nil {
		cacheOpts = append(cacheOpts, cache.WithMetrics[cachedResult](o.registry, "resolver_cache"))
	}

	c, err := cache.NewLRU[cachedResult](maxSize, cacheOpts...)
	if err != nil {
		return nil, fmt.Errorf("create resolver cache: %w", err)
	}
	return &Cached{next: next, cache: c}, nil
}

// Resolve implements Resolver.
func (c *Cached) Resolve(ctx context.Context, entityType string, attrs map[string]string) (string, bool, error) {
	key := Key(entityType, attrs)
	if hit, ok := c.cache.Get(key); ok {
		return hit.uri, hit.found, nil
	}

	uri, found, err := c.next.Resolve(ctx, entityType, attrs)
	if err != nil {
		return "", false, err
	}
	_, _ = c.cache.Set(key, cachedResult{uri: uri, found: found})
	return uri, found, nil
}

// Size returns the number of cached answers.
func (c *Cached) Size() int { return c.cache.Size() }

// Close releases the cache.
func (c *Cached) Close() error { return c.cache.Close() }
