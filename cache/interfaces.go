// Package cache provides the in-process cache-aside store used for upstream
// responses, with per-entry TTL expiration.
package cache

import (
	"time"
)

// Entry represents a cached value with its expiry
type Entry struct {
	Value     any
	ExpiresAt time.Time
}

// Expired reports whether the entry is no longer servable at now
func (e *Entry) Expired(now time.Time) bool {
	return !now.Before(e.ExpiresAt)
}

// Reader defines the interface for reading cache entries
type Reader interface {
	// Read returns the entry and true if present and not expired
	Read(key string) (*Entry, bool)
}

// Writer defines the interface for writing cache entries
type Writer interface {
	// Write stores value under key for ttl
	Write(key string, value any, ttl time.Duration)
}

// Cache combines both cache operations
type Cache interface {
	Reader
	Writer
}
