package cache

import (
	"context"
	"strings"
	"sync"
	"time"

	"screener/internal/screening/models"
	"screener/pkg/platform/sentinel"
)

// minSweepAt is the entry count at which Set first sweeps expired entries.
const minSweepAt = 64

type cachedFinding struct {
	finding   models.AggregatedFinding
	expiresAt time.Time
}

// InMemoryCache keeps findings in process with per-entry TTL. Used when Redis
// is not configured and in tests.
type InMemoryCache struct {
	mu      sync.RWMutex
	entries map[string]cachedFinding
	now     func() time.Time
	// sweepAt doubles with the live set so sweeping stays amortized O(1).
	sweepAt int
}

// MemoryOption configures an InMemoryCache.
type MemoryOption func(*InMemoryCache)

// WithMemoryClock replaces the clock used for expiry.
func WithMemoryClock(now func() time.Time) MemoryOption {
	return func(c *InMemoryCache) {
		if now != nil {
			c.now = now
		}
	}
}

// NewInMemoryCache creates an empty cache.
func NewInMemoryCache(opts ...MemoryOption) *InMemoryCache {
	c := &InMemoryCache{
		entries: make(map[string]cachedFinding),
		now:     time.Now,
		sweepAt: minSweepAt,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns a copy of the stored finding, or sentinel.ErrNotFound when it
// is absent or expired. An expired entry is evicted.
func (c *InMemoryCache) Get(_ context.Context, entity string) (*models.AggregatedFinding, error) {
	key := Key(entity)
	c.mu.RLock()
	cached, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if !c.now().Before(cached.expiresAt) {
		c.mu.Lock()
		// Set may have refreshed the entry between the two locks.
		if current, ok := c.entries[key]; ok && !c.now().Before(current.expiresAt) {
			delete(c.entries, key)
		}
		c.mu.Unlock()
		return nil, sentinel.ErrNotFound
	}
	f := cached.finding
	return &f, nil
}

// Set stores a copy of finding for ttl. A nil finding is a no-op.
func (c *InMemoryCache) Set(_ context.Context, entity string, finding *models.AggregatedFinding, ttl time.Duration) error {
	if finding == nil || ttl <= 0 {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	c.entries[Key(entity)] = cachedFinding{finding: *finding, expiresAt: now.Add(ttl)}
	if len(c.entries) >= c.sweepAt {
		c.removeExpired(now)
		c.sweepAt = max(minSweepAt, 2*len(c.entries))
	}
	return nil
}

// removeExpired drops entries past their expiry. Callers hold the write lock.
func (c *InMemoryCache) removeExpired(now time.Time) {
	for k, e := range c.entries {
		if !now.Before(e.expiresAt) {
			delete(c.entries, k)
		}
	}
}

// IsConnected is always true for the in-process cache.
func (c *InMemoryCache) IsConnected(context.Context) bool {
	return true
}

// Flush drops every screening entry.
func (c *InMemoryCache) Flush(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k := range c.entries {
		if strings.HasPrefix(k, KeyPrefix) {
			delete(c.entries, k)
		}
	}
	return nil
}

// Len reports how many entries are held, including expired ones not yet
// evicted.
func (c *InMemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
