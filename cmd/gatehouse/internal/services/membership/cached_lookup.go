package membership

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

type cacheEntry struct {
	record *Record // nil caches "not a member"
}

// CachedLookup memoizes successful lookups for at most ttl. Failures are never
// cached, and Invalidate drops an entry after a membership write so a revoked
// role stops granting access immediately on this instance.
type CachedLookup struct {
	next  Lookup
	cache *expirable.LRU[string, cacheEntry]
}

// NewCachedLookup wraps next. size bounds the number of entries.
func NewCachedLookup(next Lookup, size int, ttl time.Duration) *CachedLookup {
	if size <= 0 {
		size = 1024
	}
	return &CachedLookup{
		next:  next,
		cache: expirable.NewLRU[string, cacheEntry](size, nil, ttl),
	}
}

func cacheKey(organizationID, userID string) string {
	return organizationID + "\x00" + userID
}

// Lookup implements Lookup.
func (c *CachedLookup) Lookup(ctx context.Context, organizationID, userID string) (*Record, error) {
	key := cacheKey(organizationID, userID)
	if e, ok := c.cache.Get(key); ok {
		return copyRecord(e.record), nil
	}

	rec, err := c.next.Lookup(ctx, organizationID, userID)
	if err != nil {
		return nil, err
	}
	c.cache.Add(key, cacheEntry{record: copyRecord(rec)})
	return rec, nil
}

// Invalidate drops the cached membership of userID in organizationID.
func (c *CachedLookup) Invalidate(organizationID, userID string) {
	c.cache.Remove(cacheKey(organizationID, userID))
}

// Len reports the number of cached entries.
func (c *CachedLookup) Len() int {
	return c.cache.Len()
}

func copyRecord(r *Record) *Record {
	if r == nil {
		return nil
	}
	cp := *r
	return &cp
}
