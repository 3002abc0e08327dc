package auth

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

type cacheEntry struct {
	orgID     uuid.UUID
	expiresAt time.Time
}

func (e *cacheEntry) expired(now time.Time) bool {
	return now.After(e.expiresAt)
}

// CachedKeyResolver remembers successful key lookups for a TTL. Misses are
// not cached, so a newly registered key works immediately.
type CachedKeyResolver struct {
	next KeyResolver
	ttl  time.Duration
	now  func() time.Time

	mu      sync.RWMutex
	entries map[string]*cacheEntry
}

// NewCachedKeyResolver wraps next with a cache of the given TTL.
func NewCachedKeyResolver(next KeyResolver, ttl time.Duration) *CachedKeyResolver {
	return &CachedKeyResolver{
		next:    next,
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]*cacheEntry),
	}
}

// OrgForAPIKey implements KeyResolver.
func (c *CachedKeyResolver) OrgForAPIKey(ctx context.Context, keyHash string) (uuid.UUID, error) {
	c.mu.RLock()
	e, ok := c.entries[keyHash]
	c.mu.RUnlock()
	if ok && !e.expired(c.now()) {
		return e.orgID, nil
	}

	orgID, err := c.next.OrgForAPIKey(ctx, keyHash)
	if err != nil {
		return uuid.Nil, err
	}
	c.mu.Lock()
	c.entries[keyHash] = &cacheEntry{orgID: orgID, expiresAt: c.now().Add(c.ttl)}
	c.mu.Unlock()
	return orgID, nil
}

// Invalidate drops keyHash from the cache.
func (c *CachedKeyResolver) Invalidate(keyHash string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, keyHash)
}

// Evict removes expired entries and returns how many it removed.
func (c *CachedKeyResolver) Evict() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	n := 0
	for k, e := range c.entries {
		if e.expired(now) {
			delete(c.entries, k)
			n++
		}
	}
	return n
}

// Run evicts expired entries every interval until ctx is done.
func (c *CachedKeyResolver) Run(ctx context.Context, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			c.Evict()
		}
	}
}
