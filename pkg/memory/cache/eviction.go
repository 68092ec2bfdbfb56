package cache

import (
	"sort"
	"time"
)

// EvictionReport says how many entries a cleanup pass removed and why.
type EvictionReport struct {
	Expired int
	LRU     int
	Size    int
}

// Evict runs the full cleanup policy: every expired entry is dropped first,
// whatever its hit count; if the store is still above the floor, valid entries
// are dropped least-recently-accessed first until the floor is reached.
func (s *Store) Evict() EvictionReport {
	return s.runEviction(true)
}

// Sweep is the periodic variant: expired entries always go, but valid ones
// are only trimmed once the store has grown past the soft cap.
func (s *Store) Sweep() EvictionReport {
	return s.runEviction(false)
}

func (s *Store) runEviction(force bool) EvictionReport {
	report := s.evict(force)
	if (report.Expired > 0 || report.LRU > 0) && s.cfg.OnEvict != nil {
		s.cfg.OnEvict(report)
	}
	return report
}

func (s *Store) evict(force bool) EvictionReport {
	s.evictMu.Lock()
	defer s.evictMu.Unlock()

	now := s.cfg.Now()
	report := EvictionReport{Expired: s.purgeExpired(now)}

	if force || s.entries.Len() > s.cfg.SoftCap {
		if excess := s.entries.Len() - s.cfg.Floor; excess > 0 {
			report.LRU = s.evictLeastRecent(excess)
		}
	}
	report.Size = s.entries.Len()

	if report.Expired > 0 || report.LRU > 0 {
		s.logger.Info("CACHE", "Eviction pass finished", map[string]interface{}{
			"expired": report.Expired,
			"lru":     report.LRU,
			"size":    report.Size,
		})
	}
	return report
}

// PurgeExpired drops expired entries only.
func (s *Store) PurgeExpired() int {
	s.evictMu.Lock()
	defer s.evictMu.Unlock()
	return s.purgeExpired(s.cfg.Now())
}

func (s *Store) purgeExpired(now time.Time) int {
	removed := 0
	for _, hash := range s.entries.Keys() {
		it, ok := s.entries.Peek(hash)
		if !ok {
			continue
		}
		it.mu.Lock()
		expired := it.entry.IsExpired(now)
		it.mu.Unlock()

		if expired && s.entries.Remove(hash) {
			removed++
		}
	}
	s.expiredEvict.Add(int64(removed))
	return removed
}

// InvalidateTag drops every entry carrying tag, valid or not.
func (s *Store) InvalidateTag(tag string) int {
	if tag == "" {
		return 0
	}
	s.evictMu.Lock()
	defer s.evictMu.Unlock()

	removed := 0
	for _, hash := range s.entries.Keys() {
		it, ok := s.entries.Peek(hash)
		if !ok {
			continue
		}
		it.mu.Lock()
		match := hasTag(it.entry.Tags, tag)
		it.mu.Unlock()

		if match && s.entries.Remove(hash) {
			removed++
		}
	}
	s.invalidated.Add(int64(removed))
	if removed > 0 {
		s.logger.Info("CACHE", "Entries invalidated by tag", map[string]interface{}{
			"tag":     tag,
			"removed": removed,
		})
	}
	return removed
}

func hasTag(tags []string, tag string) bool {
	for _, t := range tags {
		if t == tag {
			return true
		}
	}
	return false
}

type accessRecord struct {
	hash         string
	lastAccessed time.Time
}

func (s *Store) evictLeastRecent(n int) int {
	keys := s.entries.Keys()
	records := make([]accessRecord, 0, len(keys))
	for _, hash := range keys {
		it, ok := s.entries.Peek(hash)
		if !ok {
			continue
		}
		it.mu.Lock()
		records = append(records, accessRecord{hash: hash, lastAccessed: it.entry.LastAccessed})
		it.mu.Unlock()
	}

	// Keys come back oldest first, so the stable sort breaks ties by LRU order.
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].lastAccessed.Before(records[j].lastAccessed)
	})

	removed := 0
	for _, r := range records {
		if removed >= n {
			break
		}
		if s.entries.Remove(r.hash) {
			removed++
		}
	}
	s.lruEvict.Add(int64(removed))
	return removed
}
