package memory

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"survey-assistant-be/internal/entity"
	"survey-assistant-be/internal/pkg/logger"
	"survey-assistant-be/pkg/embedding"
	"survey-assistant-be/pkg/memory/cache"
	"survey-assistant-be/pkg/memory/relevance"
	"survey-assistant-be/pkg/memory/session"
	"survey-assistant-be/pkg/tokenizer"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "reasoning-memory"

type Config struct {
	Dimensions     int
	Cache          cache.Config
	Session        session.Config
	PlanningBudget int // reserved for new reasoning output, independent of the context budget
	FlushInterval  time.Duration
	StoreTimeout   time.Duration
	HistoryLimit   int
	PersistWorkers int
}

func DefaultConfig() Config {
	return Config{
		Dimensions:     1536,
		Cache:          cache.DefaultConfig(),
		Session:        session.DefaultConfig(),
		PlanningBudget: 4000,
		FlushInterval:  5 * time.Minute,
		StoreTimeout:   3 * time.Second,
		HistoryLimit:   10,
		PersistWorkers: 16,
	}
}

// Options carries the optional collaborators. Any of them may be nil.
type Options struct {
	Store       LongTermStore
	Persister   Persister
	Events      EventPublisher
	Broadcaster PreferenceBroadcaster
	Estimator   tokenizer.Estimator
}

type Stats struct {
	Cache              cache.Stats `json:"cache"`
	Sessions           int         `json:"sessions"`
	EmbeddingFallbacks int64       `json:"embedding_fallbacks"`
	PersistFailures    int64       `json:"persist_failures"`
}

// Manager answers "have we already solved this?" and "what context matters
// right now?", and hands results to the durable store afterwards.
//
// The host owns its lifecycle: construct it once, call Start, and Shutdown on exit.
type Manager struct {
	cfg         Config
	scorer      *relevance.Scorer
	cache       *cache.Store
	sessions    *session.Memory
	store       LongTermStore
	persister   Persister
	events      EventPublisher
	broadcaster PreferenceBroadcaster
	logger      logger.ILogger
	tracer      trace.Tracer

	persistFailures atomic.Int64

	lifecycleMu sync.Mutex
	stop        context.CancelFunc
	done        chan struct{}
}

func NewManager(cfg Config, provider embedding.EmbeddingProvider, opts Options, logger logger.ILogger) (*Manager, error) {
	def := DefaultConfig()
	if cfg.Dimensions <= 0 {
		cfg.Dimensions = def.Dimensions
	}
	if cfg.PlanningBudget <= 0 {
		cfg.PlanningBudget = def.PlanningBudget
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = def.FlushInterval
	}
	if cfg.StoreTimeout <= 0 {
		cfg.StoreTimeout = def.StoreTimeout
	}
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = def.HistoryLimit
	}

	m := &Manager{
		cfg:         cfg,
		store:       opts.Store,
		persister:   opts.Persister,
		events:      opts.Events,
		broadcaster: opts.Broadcaster,
		logger:      logger,
		tracer:      otel.Tracer(tracerName),
	}
	m.scorer = relevance.NewScorer(provider, cfg.Dimensions, logger)

	cacheCfg := cfg.Cache
	onEvict := cacheCfg.OnEvict
	cacheCfg.OnEvict = func(r cache.EvictionReport) {
		m.cacheEvicted(r)
		if onEvict != nil {
			onEvict(r)
		}
	}
	store, err := cache.NewStore(cacheCfg, m.scorer, logger)
	if err != nil {
		return nil, err
	}
	m.cache = store

	var prefs session.PreferenceSource
	if opts.Store != nil {
		prefs = opts.Store
	}
	m.sessions = session.NewMemory(cfg.Session, m.scorer, opts.Estimator, prefs, logger)
	m.sessions.OnEvicted(m.sessionEnded)

	if m.persister == nil && opts.Store != nil {
		m.persister = NewAsyncPersister(opts.Store, cfg.PersistWorkers, cfg.StoreTimeout, logger)
	}
	return m, nil
}

// Lookup returns a cached result for query, exact or similar, or nil.
func (m *Manager) Lookup(ctx context.Context, query string) (*entity.CacheHit, error) {
	ctx, span := m.tracer.Start(ctx, "memory.Lookup")
	defer span.End()

	hit, err := m.cache.Lookup(ctx, query)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	span.SetAttributes(attribute.Bool("cache.hit", hit != nil))
	if hit != nil {
		span.SetAttributes(
			attribute.Bool("cache.exact", hit.Exact),
			attribute.Float64("cache.similarity", hit.Similarity),
		)
	}
	return hit, nil
}

// Store caches result when it is cacheable and, when sessionID is given,
// appends it to the session as the assistant's reply. The cache entry is nil
// for non-cacheable results.
func (m *Manager) Store(ctx context.Context, sessionID, userID, query string, result *entity.ReasoningResult) (*entity.CacheEntry, error) {
	ctx, span := m.tracer.Start(ctx, "memory.Store")
	defer span.End()

	entry, err := m.cache.Store(ctx, query, result)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	span.SetAttributes(attribute.Bool("cache.stored", entry != nil))

	if entry != nil {
		mirrored := *entry
		m.persist(ctx, PersistJob{Kind: PersistCacheEntry, UserId: userID, SessionId: sessionID, CacheEntry: &mirrored})
	}

	if sessionID != "" {
		content := result.FinalContent()
		if content == "" {
			content = query
		}
		msg := entity.Message{Role: entity.MessageRoleAssistant, Content: content}
		if _, err := m.AppendMessage(ctx, sessionID, userID, msg, result); err != nil {
			return entry, err
		}
	}
	return entry, nil
}

func (m *Manager) OpenSession(ctx context.Context, sessionID, userID string) (entity.Session, error) {
	return m.sessions.Open(ctx, sessionID, userID)
}

// AppendMessage adds msg to the session, opening it first when needed.
func (m *Manager) AppendMessage(ctx context.Context, sessionID, userID string, msg entity.Message, result *entity.ReasoningResult) (entity.Message, error) {
	if sessionID == "" {
		return entity.Message{}, ErrEmptySessionID
	}

	stored, err := m.sessions.Append(sessionID, msg, result)
	if errors.Is(err, session.ErrSessionNotFound) {
		if _, err := m.sessions.Open(ctx, sessionID, userID); err != nil {
			return entity.Message{}, err
		}
		stored, err = m.sessions.Append(sessionID, msg, result)
	}
	if err != nil {
		return entity.Message{}, err
	}

	if result != nil && len(result.Phases) > 0 {
		m.persist(ctx, PersistJob{Kind: PersistReasoningPhases, SessionId: sessionID, UserId: userID, Result: result})
	}
	return stored, nil
}

func (m *Manager) RecordComplexity(ctx context.Context, sessionID, userID string, assessment entity.ComplexityAssessment) error {
	if sessionID == "" {
		return ErrEmptySessionID
	}
	err := m.sessions.RecordComplexity(sessionID, assessment)
	if errors.Is(err, session.ErrSessionNotFound) {
		if _, err := m.sessions.Open(ctx, sessionID, userID); err != nil {
			return err
		}
		err = m.sessions.RecordComplexity(sessionID, assessment)
	}
	return err
}

// SelectContext returns the prior messages worth carrying into the next
// reasoning call. An unknown session has no context. A zero budget means the
// configured context budget.
func (m *Manager) SelectContext(ctx context.Context, sessionID, query string, budget int) ([]entity.Message, error) {
	ctx, span := m.tracer.Start(ctx, "memory.SelectContext")
	defer span.End()

	if sessionID == "" {
		return nil, ErrEmptySessionID
	}
	if strings.TrimSpace(query) == "" {
		return nil, ErrEmptyQuery
	}

	messages, err := m.sessions.SelectContext(ctx, sessionID, query, budget)
	if errors.Is(err, session.ErrSessionNotFound) {
		return []entity.Message{}, nil
	}
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	span.SetAttributes(attribute.Int("context.selected", len(messages)))
	return messages, nil
}

// PlanningBudget is the token allowance reserved for new reasoning output.
func (m *Manager) PlanningBudget() int {
	return m.cfg.PlanningBudget
}

// UpdatePreferences merges prefs into every live session of the user before
// returning, then persists and broadcasts them in the background.
func (m *Manager) UpdatePreferences(ctx context.Context, prefs entity.UserPreferences) (entity.UserPreferences, error) {
	if prefs.UserId == "" {
		return entity.UserPreferences{}, ErrEmptyUserID
	}
	switch prefs.Verbosity {
	case "":
		prefs.Verbosity = entity.VerbosityBalanced
	case entity.VerbosityConcise, entity.VerbosityBalanced, entity.VerbosityDetailed:
	default:
		return entity.UserPreferences{}, ErrInvalidPreferences
	}
	now := m.sessions.Now()
	prefs.UpdatedAt = &now

	updated := m.sessions.ApplyPreferences(prefs)
	m.logger.Info("PREFERENCES", "Preferences updated", map[string]interface{}{
		"user_id":       prefs.UserId,
		"live_sessions": updated,
	})

	stored := prefs
	m.persist(ctx, PersistJob{Kind: PersistPreferences, UserId: prefs.UserId, Preferences: &stored})

	if m.broadcaster != nil {
		go func(ctx context.Context) {
			ctx, cancel := context.WithTimeout(ctx, m.cfg.StoreTimeout)
			defer cancel()
			if err := m.broadcaster.BroadcastPreferences(ctx, prefs); err != nil {
				m.logger.Warn("PREFERENCES", "Failed to broadcast preferences", map[string]interface{}{
					"user_id": prefs.UserId,
					"error":   err.Error(),
				})
			}
		}(context.WithoutCancel(ctx))
	}
	return prefs, nil
}

// ApplyPreferences merges preferences received from a peer instance.
func (m *Manager) ApplyPreferences(prefs entity.UserPreferences) int {
	return m.sessions.ApplyPreferences(prefs)
}

// HistoricalSessions lists the user's past sessions, most recent first.
// Store failures yield an empty list.
func (m *Manager) HistoricalSessions(ctx context.Context, userID string, limit int) ([]*entity.HistoricalSession, error) {
	if userID == "" {
		return nil, ErrEmptyUserID
	}
	if limit <= 0 {
		limit = m.cfg.HistoryLimit
	}
	if m.store == nil {
		return []*entity.HistoricalSession{}, nil
	}

	ctx, cancel := context.WithTimeout(ctx, m.cfg.StoreTimeout)
	defer cancel()

	sessions, err := m.store.GetHistoricalSessions(ctx, userID, limit)
	if err != nil {
		m.logger.Warn("PERSISTENCE", "Failed to load historical sessions", map[string]interface{}{
			"user_id": userID,
			"error":   err.Error(),
		})
		return []*entity.HistoricalSession{}, nil
	}
	if sessions == nil {
		sessions = []*entity.HistoricalSession{}
	}
	return sessions, nil
}

func (m *Manager) Session(sessionID string) (entity.Session, bool) {
	return m.sessions.Snapshot(sessionID)
}

// CloseSession ends a session. Its summary is persisted in the background.
func (m *Manager) CloseSession(sessionID string) (entity.Session, bool) {
	return m.sessions.Close(sessionID)
}

// InvalidateTag drops cached results carrying tag, e.g. "template:nps-v2".
func (m *Manager) InvalidateTag(tag string) int {
	return m.cache.InvalidateTag(tag)
}

// Candidates lists cached queries near query without recording hits.
func (m *Manager) Candidates(ctx context.Context, query string) ([]cache.Candidate, error) {
	return m.cache.Candidates(ctx, query)
}

func (m *Manager) Stats() Stats {
	return Stats{
		Cache:              m.cache.Stats(),
		Sessions:           m.sessions.Len(),
		EmbeddingFallbacks: m.scorer.Failures(),
		PersistFailures:    m.persistFailures.Load(),
	}
}

func (m *Manager) sessionEnded(s entity.Session) {
	summary := Summarize(s)
	ctx := context.Background()

	m.persist(ctx, PersistJob{Kind: PersistSessionSummary, SessionId: s.Id, UserId: s.UserId, Summary: &summary})
	if m.events != nil {
		m.events.PublishSessionClosed(ctx, summary)
	}
	m.logger.Debug("SESSION", "Session ended", map[string]interface{}{
		"session_id": s.Id,
		"messages":   summary.MessageCount,
	})
}

func (m *Manager) cacheEvicted(r cache.EvictionReport) {
	if m.events != nil {
		m.events.PublishCacheEvicted(context.Background(), r)
	}
}

// persist hands job off without waiting. Failures are counted and logged.
func (m *Manager) persist(ctx context.Context, job PersistJob) {
	if m.persister == nil {
		return
	}
	if err := m.persister.Enqueue(context.WithoutCancel(ctx), job); err != nil {
		m.persistFailures.Add(1)
		m.logger.Warn("PERSISTENCE", "Failed to hand off persistence job", map[string]interface{}{
			"kind":       job.Kind,
			"session_id": job.SessionId,
			"error":      err.Error(),
		})
	}
}
