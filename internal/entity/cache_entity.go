package entity

import "time"

type CacheEntry struct {
	ContentHash  string
	Query        string
	Result       *ReasoningResult
	CreatedAt    time.Time
	TTL          time.Duration
	HitCount     int
	LastAccessed time.Time
	Tags         []string
	Embedding    []float32
}

func (e *CacheEntry) ExpiresAt() time.Time {
	return e.CreatedAt.Add(e.TTL)
}

// IsExpired reports whether the TTL has elapsed at now. Hit count never extends validity.
func (e *CacheEntry) IsExpired(now time.Time) bool {
	return now.After(e.ExpiresAt())
}

// CacheHit is returned by a successful lookup. Similarity is 1 for exact hits.
type CacheHit struct {
	Entry      CacheEntry
	Result     *ReasoningResult
	Similarity float64
	Exact      bool
}
