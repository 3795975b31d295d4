// Package cache provides an optional Redis-backed response cache for
// openFDA page fetches. The API serves no cache validators (no ETag, no
// Expires), so entries are plain snapshots with a client-chosen TTL.
package cache

import (
	"time"
)

// Entry is one cached page response body.
type Entry struct {
	// Data is the raw response body as served by the API.
	Data []byte `json:"data"`

	// Expires is when the snapshot becomes stale.
	Expires time.Time `json:"expires"`

	// CachedAt is when the snapshot was taken.
	CachedAt time.Time `json:"cached_at"`
}

// NewEntry creates a snapshot entry valid for ttl from now.
func NewEntry(data []byte, ttl time.Duration) *Entry {
	now := time.Now()
	return &Entry{
		Data:     data,
		Expires:  now.Add(ttl),
		CachedAt: now,
	}
}

// IsExpired returns true if the entry has expired.
func (e *Entry) IsExpired() bool {
	return time.Now().After(e.Expires)
}

// TTL returns the time until expiration.
// Returns 0 if already expired.
func (e *Entry) TTL() time.Duration {
	ttl := time.Until(e.Expires)
	if ttl < 0 {
		return 0
	}
	return ttl
}
