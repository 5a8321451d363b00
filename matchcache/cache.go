package matchcache

import (
	"time"

	"tablematch/models"
)

// DefaultTTL is how long a computed result set stays servable.
const DefaultTTL = 30 * time.Minute

// Cache holds at most one ranked result set for a single session. It is not
// safe for concurrent use on its own; the owning session's lock covers it.
type Cache struct {
	entry *models.CachedResult
}

// IsValid reports whether a stored result exists and has not expired.
func (c *Cache) IsValid(now time.Time) bool {
	return c.entry != nil && now.Before(c.entry.ExpiresAt)
}

// Store replaces the entry wholesale. Partial mutation of a cached result is
// never allowed.
func (c *Cache) Store(venues []models.Venue, now time.Time, ttl time.Duration) {
	c.entry = &models.CachedResult{
		Venues:    venues,
		CachedAt:  now,
		ExpiresAt: now.Add(ttl),
	}
}

// Invalidate drops the entry. Called on every membership, preference, or
// location change so stale group results are never served.
func (c *Cache) Invalidate() {
	c.entry = nil
}

// Entry returns the current entry, or nil. Callers must not mutate it.
func (c *Cache) Entry() *models.CachedResult {
	return c.entry
}

// Restore seeds the cache from a persisted session document.
func (c *Cache) Restore(entry *models.CachedResult) {
	c.entry = entry
}
