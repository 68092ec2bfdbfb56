package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"survey-assistant-be/internal/entity"
	"survey-assistant-be/internal/pkg/logger"
	"survey-assistant-be/pkg/memory/cache"

	"golang.org/x/sync/semaphore"
)

// LongTermStore is the durable backend. Reads return defaults or empty
// results on not-found; writes are idempotent upserts.
type LongTermStore interface {
	GetUserPreferences(ctx context.Context, userId string) (*entity.UserPreferences, error)
	GetHistoricalSessions(ctx context.Context, userId string, limit int) ([]*entity.HistoricalSession, error)

	UpsertSessionSummary(ctx context.Context, summary *entity.HistoricalSession) error
	UpsertReasoningPhases(ctx context.Context, sessionId string, result *entity.ReasoningResult) error
	UpsertCacheEntry(ctx context.Context, userId string, entry *entity.CacheEntry) error
	UpsertUserPreferences(ctx context.Context, prefs *entity.UserPreferences) error

	LoadCacheEntries(ctx context.Context, limit int) ([]*entity.CacheEntry, error)
	DeleteExpiredCacheEntries(ctx context.Context) (int64, error)
}

// EventPublisher announces memory lifecycle events. Implementations must not block.
type EventPublisher interface {
	PublishCacheEvicted(ctx context.Context, report cache.EvictionReport)
	PublishSessionClosed(ctx context.Context, summary entity.HistoricalSession)
}

// PreferenceBroadcaster tells peer instances that a user's preferences changed.
type PreferenceBroadcaster interface {
	BroadcastPreferences(ctx context.Context, prefs entity.UserPreferences) error
}

type PersistKind string

const (
	PersistSessionSummary  PersistKind = "SESSION_SUMMARY"
	PersistReasoningPhases PersistKind = "REASONING_PHASES"
	PersistCacheEntry      PersistKind = "CACHE_ENTRY"
	PersistPreferences     PersistKind = "PREFERENCES"
)

// PersistJob is one durable write handed off the hot path.
type PersistJob struct {
	Kind        PersistKind               `json:"kind"`
	SessionId   string                    `json:"session_id,omitempty"`
	UserId      string                    `json:"user_id,omitempty"`
	Summary     *entity.HistoricalSession `json:"summary,omitempty"`
	Result      *entity.ReasoningResult   `json:"result,omitempty"`
	CacheEntry  *entity.CacheEntry        `json:"cache_entry,omitempty"`
	Preferences *entity.UserPreferences   `json:"preferences,omitempty"`
}

// Persister accepts jobs without waiting for them to be written.
type Persister interface {
	Enqueue(ctx context.Context, job PersistJob) error
}

// Drainer is implemented by persisters that can wait for accepted jobs to be
// written. Shutdown drains before returning.
type Drainer interface {
	Drain(ctx context.Context) error
}

var (
	ErrIncompleteJob = errors.New("persistence job is missing its payload")
	ErrQueueFull     = errors.New("persistence queue is full")
)

// Dispatch performs the durable write a job describes.
func Dispatch(ctx context.Context, store LongTermStore, job PersistJob) error {
	switch job.Kind {
	case PersistSessionSummary:
		if job.Summary == nil {
			return ErrIncompleteJob
		}
		return store.UpsertSessionSummary(ctx, job.Summary)
	case PersistReasoningPhases:
		if job.Result == nil || job.SessionId == "" {
			return ErrIncompleteJob
		}
		return store.UpsertReasoningPhases(ctx, job.SessionId, job.Result)
	case PersistCacheEntry:
		if job.CacheEntry == nil {
			return ErrIncompleteJob
		}
		return store.UpsertCacheEntry(ctx, job.UserId, job.CacheEntry)
	case PersistPreferences:
		if job.Preferences == nil {
			return ErrIncompleteJob
		}
		return store.UpsertUserPreferences(ctx, job.Preferences)
	default:
		return fmt.Errorf("unknown persistence job kind %q", job.Kind)
	}
}

// AsyncPersister writes jobs on background goroutines, at most `workers` at a
// time. Jobs arriving while all slots are busy are rejected, not queued.
type AsyncPersister struct {
	store    LongTermStore
	timeout  time.Duration
	slots    *semaphore.Weighted
	logger   logger.ILogger
	wg       sync.WaitGroup
	failures atomic.Int64
}

func NewAsyncPersister(store LongTermStore, workers int, timeout time.Duration, logger logger.ILogger) *AsyncPersister {
	if workers <= 0 {
		workers = 16
	}
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &AsyncPersister{
		store:   store,
		timeout: timeout,
		slots:   semaphore.NewWeighted(int64(workers)),
		logger:  logger,
	}
}

func (p *AsyncPersister) Enqueue(ctx context.Context, job PersistJob) error {
	if !p.slots.TryAcquire(1) {
		return ErrQueueFull
	}
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		defer p.slots.Release(1)

		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.timeout)
		defer cancel()

		if err := Dispatch(ctx, p.store, job); err != nil {
			p.failures.Add(1)
			p.logger.Error("PERSISTENCE", "Durable write failed", map[string]interface{}{
				"kind":       job.Kind,
				"session_id": job.SessionId,
				"error":      err.Error(),
			})
		}
	}()
	return nil
}

// Wait blocks until every in-flight job has finished.
func (p *AsyncPersister) Wait() {
	p.wg.Wait()
}

// Drain is Wait bounded by ctx.
func (p *AsyncPersister) Drain(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *AsyncPersister) Failures() int64 {
	return p.failures.Load()
}
