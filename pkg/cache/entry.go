package cache

import (
	"time"
)

// Entry represents a cached ISS response body.
type Entry struct {
	// Data is the raw response body.
	Data []byte `json:"data"`

	// Expires is when the entry becomes stale. ISS sends no cache headers,
	// so this is assigned from the endpoint-class TTL policy at store time.
	Expires time.Time `json:"expires"`

	// CachedAt is when the response was stored.
	CachedAt time.Time `json:"cached_at"`
}

// NewEntry creates an entry expiring ttl from now.
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

// TTL returns the time until expiration. Returns 0 if already expired.
func (e *Entry) TTL() time.Duration {
	ttl := time.Until(e.Expires)
	if ttl < 0 {
		return 0
	}
	return ttl
}
