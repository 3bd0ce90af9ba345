// Package tenant caches opened tenant index handles so each tenant is opened at most once
// per process.
package tenant

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/hyperjump/askindex/internal/metrics"
	"github.com/hyperjump/askindex/internal/vector"
)

// Opener opens a tenant index. vector.Connection satisfies it.
type Opener interface {
	OpenIndex(ctx context.Context, name string) (vector.Index, error)
}

// OpenError reports that a tenant index could not be opened.
type OpenError struct {
	Tenant string
	Err    error
}

func (e *OpenError) Error() string {
	return fmt.Sprintf("open tenant index %q: %v", e.Tenant, e.Err)
}

func (e *OpenError) Unwrap() error {
	return e.Err
}

// Cache maps tenant keys to opened index handles. Entries are never evicted; a failed
// open leaves no entry so the next lookup retries.
type Cache struct {
	opener  Opener
	logger  *zap.Logger
	mu      sync.RWMutex
	handles map[string]vector.Index
	group   singleflight.Group
}

// NewCache returns an empty cache opening indexes through opener.
func NewCache(opener Opener, logger *zap.Logger) *Cache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cache{
		opener:  opener,
		logger:  logger,
		handles: make(map[string]vector.Index),
	}
}

// Resolve returns the handle for key, opening it on first use. Concurrent misses on the
// same key share one open. The open is not canceled when ctx is; only this caller stops
// waiting.
func (c *Cache) Resolve(ctx context.Context, key string) (vector.Index, error) {
	if idx, ok := c.lookup(key); ok {
		metrics.TenantLookupsTotal.WithLabelValues("hit").Inc()
		return idx, nil
	}
	metrics.TenantLookupsTotal.WithLabelValues("miss").Inc()

	ch := c.group.DoChan(key, func() (any, error) {
		// A flight that finished between lookup and DoChan already stored the handle.
		if idx, ok := c.lookup(key); ok {
			return idx, nil
		}
		return c.open(context.WithoutCancel(ctx), key)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(vector.Index), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *Cache) open(ctx context.Context, key string) (vector.Index, error) {
	start := time.Now()
	idx, err := c.opener.OpenIndex(ctx, key)
	if err != nil {
		metrics.TenantOpensTotal.WithLabelValues("error").Inc()
		c.logger.Warn("Failed to open tenant index", zap.String("tenant", key), zap.Error(err))
		return nil, &OpenError{Tenant: key, Err: err}
	}
	metrics.TenantOpensTotal.WithLabelValues("success").Inc()

	c.mu.Lock()
	c.handles[key] = idx
	n := len(c.handles)
	c.mu.Unlock()
	metrics.TenantsCached.Set(float64(n))

	c.logger.Debug("Opened tenant index",
		zap.String("tenant", key),
		zap.Duration("elapsed", time.Since(start)))
	return idx, nil
}

func (c *Cache) lookup(key string) (vector.Index, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	idx, ok := c.handles[key]
	return idx, ok
}

// Keys returns the cached tenant keys in sorted order.
func (c *Cache) Keys() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	keys := make([]string, 0, len(c.handles))
	for k := range c.handles {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Len returns the number of cached handles.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.handles)
}

// Close closes and forgets every cached handle.
func (c *Cache) Close() error {
	c.mu.Lock()
	handles := c.handles
	c.handles = make(map[string]vector.Index)
	c.mu.Unlock()
	metrics.TenantsCached.Set(0)

	var errs []error
	for key, idx := range handles {
		if err := idx.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close tenant index %q: %w", key, err))
		}
	}
	return errors.Join(errs...)
}
