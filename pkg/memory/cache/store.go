package cache

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"survey-assistant-be/internal/entity"
	"survey-assistant-be/internal/pkg/logger"
	"survey-assistant-be/pkg/vector"

	lru "github.com/hashicorp/golang-lru/v2"
)

var (
	ErrEmptyQuery = errors.New("query must not be empty")
	ErrNilResult  = errors.New("reasoning result must not be nil")
)

// Embedder is the part of the relevance scorer the store needs. The boolean is
// false when the vector is a fallback rather than a real embedding.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, bool)
}

type Config struct {
	TTL                 time.Duration
	SoftCap             int // eviction runs once size passes this
	Floor               int // eviction trims down to this
	HardCap             int // structural capacity of the underlying LRU
	InclusionThreshold  float64
	AcceptanceThreshold float64
	MaxCandidates       int
	LazyEmbedBudget     int // entries without a vector that one scan may backfill

	Similarity func(a, b []float32) float64
	Now        func() time.Time
	// OnEvict is called after an eviction pass that removed something.
	OnEvict func(EvictionReport)
}

func DefaultConfig() Config {
	return Config{
		TTL:                 24 * time.Hour,
		SoftCap:             500,
		Floor:               400,
		HardCap:             600,
		InclusionThreshold:  0.70,
		AcceptanceThreshold: 0.85,
		MaxCandidates:       5,
		LazyEmbedBudget:     3,
	}
}

// Candidate is an entry close enough to the query to be considered.
type Candidate struct {
	ContentHash string
	Query       string
	Similarity  float64
}

type Stats struct {
	Size                int   `json:"size"`
	ExactHits           int64 `json:"exact_hits"`
	SimilarHits         int64 `json:"similar_hits"`
	Misses              int64 `json:"misses"`
	Stored              int64 `json:"stored"`
	SkippedNonCacheable int64 `json:"skipped_non_cacheable"`
	ExpiredEvictions    int64 `json:"expired_evictions"`
	LRUEvictions        int64 `json:"lru_evictions"`
	Invalidated         int64 `json:"invalidated"`
}

type item struct {
	mu    sync.Mutex
	entry entity.CacheEntry
}

// Store holds reasoning results keyed by content hash.
//
// The LRU structure is safe for concurrent use and is never locked across I/O.
// Hit accounting and lazy embedding take the per-entry mutex only.
type Store struct {
	cfg      Config
	entries  *lru.Cache[string, *item]
	embedder Embedder
	logger   logger.ILogger
	evictMu  sync.Mutex

	exactHits    atomic.Int64
	similarHits  atomic.Int64
	misses       atomic.Int64
	stored       atomic.Int64
	skipped      atomic.Int64
	expiredEvict atomic.Int64
	lruEvict     atomic.Int64
	invalidated  atomic.Int64
}

func NewStore(cfg Config, embedder Embedder, logger logger.ILogger) (*Store, error) {
	def := DefaultConfig()
	if cfg.TTL <= 0 {
		cfg.TTL = def.TTL
	}
	if cfg.SoftCap <= 0 {
		cfg.SoftCap = def.SoftCap
	}
	if cfg.Floor <= 0 || cfg.Floor > cfg.SoftCap {
		cfg.Floor = cfg.SoftCap * 4 / 5
	}
	if cfg.HardCap <= cfg.SoftCap {
		cfg.HardCap = cfg.SoftCap + cfg.SoftCap/5 + 1
	}
	if cfg.InclusionThreshold <= 0 {
		cfg.InclusionThreshold = def.InclusionThreshold
	}
	if cfg.AcceptanceThreshold <= 0 {
		cfg.AcceptanceThreshold = def.AcceptanceThreshold
	}
	if cfg.AcceptanceThreshold < cfg.InclusionThreshold {
		return nil, fmt.Errorf("acceptance threshold %.2f is below inclusion threshold %.2f", cfg.AcceptanceThreshold, cfg.InclusionThreshold)
	}
	if cfg.MaxCandidates <= 0 {
		cfg.MaxCandidates = def.MaxCandidates
	}
	if cfg.LazyEmbedBudget < 0 {
		cfg.LazyEmbedBudget = 0
	}
	if cfg.Similarity == nil {
		cfg.Similarity = vector.CosineSimilarity
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	entries, err := lru.New[string, *item](cfg.HardCap)
	if err != nil {
		return nil, fmt.Errorf("failed to create cache structure: %w", err)
	}

	return &Store{
		cfg:      cfg,
		entries:  entries,
		embedder: embedder,
		logger:   logger,
	}, nil
}

// Normalize trims and lowercases a query.
func Normalize(query string) string {
	return strings.ToLower(strings.TrimSpace(query))
}

// ContentHash is the hex SHA-256 of the normalized query.
func ContentHash(query string) string {
	h := sha256.Sum256([]byte(Normalize(query)))
	return fmt.Sprintf("%x", h)
}

// Lookup returns a usable cached result for query, or nil when there is none.
// The exact tier is tried first; the similarity tier only runs on an exact miss.
func (s *Store) Lookup(ctx context.Context, query string) (*entity.CacheHit, error) {
	normalized := Normalize(query)
	if normalized == "" {
		return nil, ErrEmptyQuery
	}

	now := s.cfg.Now()
	hash := ContentHash(normalized)

	if it, ok := s.entries.Peek(hash); ok {
		if snapshot, valid := s.recordHit(hash, it, now); valid {
			s.exactHits.Add(1)
			return &entity.CacheHit{Entry: snapshot, Result: snapshot.Result, Similarity: 1, Exact: true}, nil
		}
	}

	queryVec, ok := s.embed(ctx, normalized)
	if !ok {
		s.misses.Add(1)
		return nil, nil
	}

	candidates := s.similar(ctx, queryVec, now)
	if len(candidates) > 0 && candidates[0].Similarity >= s.cfg.AcceptanceThreshold {
		best := candidates[0]
		if it, ok := s.entries.Peek(best.ContentHash); ok {
			if snapshot, valid := s.recordHit(best.ContentHash, it, now); valid {
				s.similarHits.Add(1)
				s.logger.Debug("CACHE", "Similarity hit", map[string]interface{}{
					"query":      query,
					"matched":    best.Query,
					"similarity": best.Similarity,
				})
				return &entity.CacheHit{Entry: snapshot, Result: snapshot.Result, Similarity: best.Similarity}, nil
			}
		}
	}

	s.misses.Add(1)
	return nil, nil
}

// Candidates lists live entries whose similarity to query reaches the
// inclusion threshold, best first, capped to MaxCandidates. No hit is recorded.
func (s *Store) Candidates(ctx context.Context, query string) ([]Candidate, error) {
	normalized := Normalize(query)
	if normalized == "" {
		return nil, ErrEmptyQuery
	}
	queryVec, ok := s.embed(ctx, normalized)
	if !ok {
		return nil, nil
	}
	return s.similar(ctx, queryVec, s.cfg.Now()), nil
}

// Store inserts or replaces the entry for query. Results not marked cacheable
// are ignored and nil is returned.
func (s *Store) Store(ctx context.Context, query string, result *entity.ReasoningResult) (*entity.CacheEntry, error) {
	normalized := Normalize(query)
	if normalized == "" {
		return nil, ErrEmptyQuery
	}
	if result == nil {
		return nil, ErrNilResult
	}
	if !result.CanUseCache {
		s.skipped.Add(1)
		return nil, nil
	}

	var embeddingValues []float32
	if vec, ok := s.embed(ctx, normalized); ok {
		embeddingValues = vec
	}

	now := s.cfg.Now()
	hash := ContentHash(normalized)
	entry := entity.CacheEntry{
		ContentHash:  hash,
		Query:        query,
		Result:       result,
		CreatedAt:    now,
		TTL:          s.cfg.TTL,
		HitCount:     0,
		LastAccessed: now,
		Tags:         DeriveTags(query, result),
		Embedding:    embeddingValues,
	}

	if evicted := s.entries.Add(hash, &item{entry: entry}); evicted {
		s.lruEvict.Add(1)
	}
	s.stored.Add(1)

	if s.entries.Len() > s.cfg.SoftCap {
		s.Evict()
	}

	snapshot := copyEntry(entry)
	return &snapshot, nil
}

// Restore loads previously persisted entries, skipping expired ones and never
// filling past the soft cap. Entries keep their access statistics.
func (s *Store) Restore(entries []entity.CacheEntry) int {
	now := s.cfg.Now()

	sorted := make([]entity.CacheEntry, 0, len(entries))
	for _, e := range entries {
		if e.ContentHash == "" || e.Result == nil || e.IsExpired(now) {
			continue
		}
		sorted = append(sorted, e)
	}
	// Oldest first so the most recently accessed end up freshest in the LRU.
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].LastAccessed.Before(sorted[j].LastAccessed)
	})
	if room := s.cfg.SoftCap - s.entries.Len(); len(sorted) > room {
		if room < 0 {
			room = 0
		}
		sorted = sorted[len(sorted)-room:]
	}

	restored := 0
	for _, e := range sorted {
		if s.entries.Contains(e.ContentHash) {
			continue
		}
		s.entries.Add(e.ContentHash, &item{entry: copyEntry(e)})
		restored++
	}
	return restored
}

// Get returns a snapshot of the entry for query without recording a hit.
func (s *Store) Get(query string) (entity.CacheEntry, bool) {
	it, ok := s.entries.Peek(ContentHash(query))
	if !ok {
		return entity.CacheEntry{}, false
	}
	it.mu.Lock()
	defer it.mu.Unlock()
	return copyEntry(it.entry), true
}

// Entries returns snapshots of every entry, least recently used first.
func (s *Store) Entries() []entity.CacheEntry {
	keys := s.entries.Keys()
	out := make([]entity.CacheEntry, 0, len(keys))
	for _, k := range keys {
		it, ok := s.entries.Peek(k)
		if !ok {
			continue
		}
		it.mu.Lock()
		out = append(out, copyEntry(it.entry))
		it.mu.Unlock()
	}
	return out
}

func (s *Store) Len() int {
	return s.entries.Len()
}

func (s *Store) Stats() Stats {
	return Stats{
		Size:                s.entries.Len(),
		ExactHits:           s.exactHits.Load(),
		SimilarHits:         s.similarHits.Load(),
		Misses:              s.misses.Load(),
		Stored:              s.stored.Load(),
		SkippedNonCacheable: s.skipped.Load(),
		ExpiredEvictions:    s.expiredEvict.Load(),
		LRUEvictions:        s.lruEvict.Load(),
		Invalidated:         s.invalidated.Load(),
	}
}

// recordHit bumps hit count and last-accessed if the entry is still valid.
func (s *Store) recordHit(hash string, it *item, now time.Time) (entity.CacheEntry, bool) {
	it.mu.Lock()
	if it.entry.IsExpired(now) {
		it.mu.Unlock()
		return entity.CacheEntry{}, false
	}
	it.entry.HitCount++
	it.entry.LastAccessed = now
	snapshot := copyEntry(it.entry)
	it.mu.Unlock()

	// Promote in the LRU order.
	s.entries.Get(hash)
	return snapshot, true
}

func (s *Store) similar(ctx context.Context, queryVec []float32, now time.Time) []Candidate {
	budget := s.cfg.LazyEmbedBudget
	var candidates []Candidate

	for _, hash := range s.entries.Keys() {
		it, ok := s.entries.Peek(hash)
		if !ok {
			continue
		}

		it.mu.Lock()
		if it.entry.IsExpired(now) {
			it.mu.Unlock()
			continue
		}
		emb := it.entry.Embedding
		query := it.entry.Query
		it.mu.Unlock()

		if emb == nil {
			if budget <= 0 {
				continue
			}
			budget--
			vec, ok := s.embed(ctx, Normalize(query))
			if !ok {
				continue
			}
			it.mu.Lock()
			if it.entry.Embedding == nil {
				it.entry.Embedding = vec
			}
			it.mu.Unlock()
			emb = vec
		}

		sim := s.cfg.Similarity(queryVec, emb)
		if sim >= s.cfg.InclusionThreshold {
			candidates = append(candidates, Candidate{ContentHash: hash, Query: query, Similarity: sim})
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Similarity > candidates[j].Similarity
	})
	if len(candidates) > s.cfg.MaxCandidates {
		candidates = candidates[:s.cfg.MaxCandidates]
	}
	return candidates
}

func (s *Store) embed(ctx context.Context, text string) ([]float32, bool) {
	if s.embedder == nil {
		return nil, false
	}
	vec, ok := s.embedder.Embed(ctx, text)
	if !ok || vector.IsZero(vec) {
		return nil, false
	}
	return vec, true
}

func copyEntry(e entity.CacheEntry) entity.CacheEntry {
	out := e
	if e.Tags != nil {
		out.Tags = append([]string(nil), e.Tags...)
	}
	return out
}
