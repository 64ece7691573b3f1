// Package cache provides a typed, expiring read-through cache on top of the
// durable key-value store.
//
// Every entry is key → (value, expiry). A lookup that finds an expired entry
// evicts it and reports a miss, so staleness policy lives in one place and
// can be tested with an injected clock.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dmitrijs2005/eventdesk/internal/client/storage"
	"github.com/dmitrijs2005/eventdesk/internal/metrics"
)

type Cache[V any] struct {
	repo   storage.Repository
	name   string
	prefix string
	ttl    time.Duration
	now    func() time.Time
}

type options struct {
	now func() time.Time
}

type Option func(*options)

// WithClock replaces time.Now for expiry decisions.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// New returns a cache whose entries live under prefix in repo. A ttl of zero
// stores entries without expiry. name labels metrics.
func New[V any](repo storage.Repository, name, prefix string, ttl time.Duration, opts ...Option) *Cache[V] {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return &Cache[V]{repo: repo, name: name, prefix: prefix, ttl: ttl, now: o.now}
}

// Get returns the cached value and true, or the zero value and false when
// the key is absent, expired or unreadable.
func (c *Cache[V]) Get(ctx context.Context, key string) (V, bool, error) {
	var zero V

	e, err := c.repo.GetEntry(ctx, c.prefix+key)
	if err != nil {
		return zero, false, err
	}
	if e == nil {
		metrics.ObserveCacheLookup(c.name, metrics.CacheMiss)
		return zero, false, nil
	}
	if e.Expired(c.now()) {
		metrics.ObserveCacheLookup(c.name, metrics.CacheExpired)
		if err := c.repo.Delete(ctx, e.Key); err != nil {
			return zero, false, err
		}
		return zero, false, nil
	}

	var v V
	if err := json.Unmarshal(e.Value, &v); err != nil {
		metrics.ObserveCacheLookup(c.name, metrics.CacheMiss)
		return zero, false, nil
	}
	metrics.ObserveCacheLookup(c.name, metrics.CacheHit)
	return v, true, nil
}

func (c *Cache[V]) Put(ctx context.Context, key string, v V) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s cache value: %w", c.name, err)
	}
	if c.ttl <= 0 {
		return c.repo.Set(ctx, c.prefix+key, b)
	}
	return c.repo.SetWithExpiry(ctx, c.prefix+key, b, c.now().Add(c.ttl))
}

func (c *Cache[V]) Evict(ctx context.Context, key string) error {
	return c.repo.Delete(ctx, c.prefix+key)
}

// EvictPrefix removes every entry whose key starts with keyPrefix.
func (c *Cache[V]) EvictPrefix(ctx context.Context, keyPrefix string) error {
	return c.repo.DeletePrefix(ctx, c.prefix+keyPrefix)
}

// EvictMatching removes every entry for which match returns true.
func (c *Cache[V]) EvictMatching(ctx context.Context, match func(key string) bool) error {
	all, err := c.repo.List(ctx, c.prefix)
	if err != nil {
		return err
	}
	var doomed []string
	for k := range all {
		if match(k[len(c.prefix):]) {
			doomed = append(doomed, k)
		}
	}
	return c.repo.Delete(ctx, doomed...)
}

func (c *Cache[V]) EvictAll(ctx context.Context) error {
	return c.repo.DeletePrefix(ctx, c.prefix)
}
