/*
cache.go - TTL read-through cache over a Resolver

PURPOSE:
  Jurisdiction rates change infrequently, so lookups are cacheable for
  hours. RateCache is an explicit component injected into the service
  layer - never a process-wide singleton the engine reaches for
  internally. A cache miss or eviction only changes latency, never a
  result: the wrapped resolver is the single source of truth.

GET-OR-COMPUTE CONTRACT:
  Resolve returns the cached Lookup when present and younger than the
  TTL; otherwise it delegates to the wrapped resolver and stores the
  result. Not-found errors are not cached - a postal code added to the
  table becomes visible on the next call.

CLOCK INJECTION:
  The clock is a field so tests can step time without sleeping.

SEE ALSO:
  - resolver.go: The wrapped lookup contract
  - api/handlers.go: Injects the cache
*/
package jurisdiction

import (
	"context"
	"sync"
	"time"
)

// RateCache caches Resolve results with a bounded time-to-live.
type RateCache struct {
	resolver Resolver
	ttl      time.Duration
	now      func() time.Time

	mu      sync.RWMutex
	entries map[string]cachedLookup
}

type cachedLookup struct {
	lookup   Lookup
	cachedAt time.Time
}

// NewRateCache wraps resolver with an explicit TTL.
func NewRateCache(resolver Resolver, ttl time.Duration) *RateCache {
	return &RateCache{
		resolver: resolver,
		ttl:      ttl,
		now:      time.Now,
		entries:  make(map[string]cachedLookup),
	}
}

// Resolve implements Resolver with get-or-compute semantics.
func (c *RateCache) Resolve(ctx context.Context, postalCode string) (Lookup, error) {
	c.mu.RLock()
	entry, ok := c.entries[postalCode]
	c.mu.RUnlock()

	if ok && c.now().Sub(entry.cachedAt) < c.ttl {
		return entry.lookup, nil
	}

	lookup, err := c.resolver.Resolve(ctx, postalCode)
	if err != nil {
		return Lookup{}, err
	}

	c.mu.Lock()
	c.entries[postalCode] = cachedLookup{lookup: lookup, cachedAt: c.now()}
	c.mu.Unlock()

	return lookup, nil
}

// Invalidate drops the cached entry for a postal code, forcing the next
// Resolve through to the source. Used when a rule table is reloaded.
func (c *RateCache) Invalidate(postalCode string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, postalCode)
}

// SetClock replaces the time source. Test hook.
func (c *RateCache) SetClock(now func() time.Time) { c.now = now }
