package memory

import (
	"context"
	"time"

	"survey-assistant-be/internal/entity"
	"survey-assistant-be/pkg/memory/cache"
)

// Warm restores live cache entries from the durable store so a restart does
// not begin with an empty cache. Failures leave the cache as it was.
func (m *Manager) Warm(ctx context.Context) int {
	if m.store == nil {
		return 0
	}
	ctx, cancel := context.WithTimeout(ctx, m.cfg.StoreTimeout)
	defer cancel()

	limit := m.cfg.Cache.SoftCap
	if limit <= 0 {
		limit = cache.DefaultConfig().SoftCap
	}
	stored, err := m.store.LoadCacheEntries(ctx, limit)
	if err != nil {
		m.logger.Warn("CACHE", "Cache warm-up failed", map[string]interface{}{"error": err.Error()})
		return 0
	}

	entries := make([]entity.CacheEntry, 0, len(stored))
	for _, e := range stored {
		if e != nil {
			entries = append(entries, *e)
		}
	}
	restored := m.cache.Restore(entries)
	m.logger.Info("CACHE", "Cache warmed from durable store", map[string]interface{}{
		"loaded":   len(stored),
		"restored": restored,
	})
	return restored
}

// Flush hands a summary of every live session to the durable store.
func (m *Manager) Flush(ctx context.Context) int {
	live := m.sessions.Sessions()
	for _, s := range live {
		summary := Summarize(s)
		m.persist(ctx, PersistJob{Kind: PersistSessionSummary, SessionId: s.Id, UserId: s.UserId, Summary: &summary})
	}
	return len(live)
}

// Maintain runs one cleanup round: cache eviction, idle session reclamation
// and removal of expired durable cache rows.
func (m *Manager) Maintain(ctx context.Context) {
	m.cache.Sweep()
	m.sessions.PurgeIdle()

	if m.store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, m.cfg.StoreTimeout)
	defer cancel()
	if n, err := m.store.DeleteExpiredCacheEntries(ctx); err != nil {
		m.logger.Warn("PERSISTENCE", "Failed to delete expired cache rows", map[string]interface{}{"error": err.Error()})
	} else if n > 0 {
		m.logger.Info("PERSISTENCE", "Expired cache rows deleted", map[string]interface{}{"count": n})
	}
}

// Start launches the periodic flush and maintenance loop. It is a no-op if
// the loop is already running.
func (m *Manager) Start(ctx context.Context) {
	m.lifecycleMu.Lock()
	defer m.lifecycleMu.Unlock()
	if m.stop != nil {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	m.stop = cancel
	m.done = make(chan struct{})

	go func(done chan struct{}) {
		defer close(done)
		ticker := time.NewTicker(m.cfg.FlushInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.Flush(ctx)
				m.Maintain(ctx)
			}
		}
	}(m.done)

	m.logger.Info("MEMORY", "Memory maintenance started", map[string]interface{}{
		"flush_interval": m.cfg.FlushInterval.String(),
	})
}

// Shutdown stops the maintenance loop, flushes live sessions one last time
// and waits for the persister to drain when it can.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.lifecycleMu.Lock()
	stop, done := m.stop, m.done
	m.stop, m.done = nil, nil
	m.lifecycleMu.Unlock()

	if stop != nil {
		stop()
		select {
		case <-done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	flushed := m.Flush(ctx)
	if d, ok := m.persister.(Drainer); ok {
		if err := d.Drain(ctx); err != nil {
			return err
		}
	}

	m.logger.Info("MEMORY", "Memory manager shut down", map[string]interface{}{"flushed_sessions": flushed})
	return nil
}
