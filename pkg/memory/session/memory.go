package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"survey-assistant-be/internal/entity"
	"survey-assistant-be/internal/pkg/logger"
	"survey-assistant-be/pkg/tokenizer"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
)

var (
	ErrEmptySessionID  = errors.New("session id must not be empty")
	ErrSessionNotFound = errors.New("session not found")
	ErrNegativeBudget  = errors.New("token budget must not be negative")
)

// PreferenceSource loads the preferences snapshot for a new session.
// A nil result with a nil error means the user has none stored.
type PreferenceSource interface {
	GetUserPreferences(ctx context.Context, userId string) (*entity.UserPreferences, error)
}

// Scorer ranks texts against a query in [0,1].
type Scorer interface {
	ScoreMany(ctx context.Context, query string, texts []string) []float64
}

type Config struct {
	MaxMessages   int
	MaxPatterns   int
	MaxComplexity int
	ContextBudget int // used when SelectContext gets a zero budget

	IdleTTL         time.Duration
	CleanupInterval time.Duration
	MaxSessions     int
	LoadTimeout     time.Duration

	Now func() time.Time
}

func DefaultConfig() Config {
	return Config{
		MaxMessages:     10,
		MaxPatterns:     50,
		MaxComplexity:   20,
		ContextBudget:   8000,
		IdleTTL:         1 * time.Hour,
		CleanupInterval: 10 * time.Minute,
		MaxSessions:     10000,
		LoadTimeout:     2 * time.Second,
	}
}

type sessionState struct {
	mu      sync.Mutex
	session entity.Session
	closed  bool
}

// Memory is the registry of live sessions. Each session has its own lock, so
// unrelated sessions never wait on each other. Idle sessions are reclaimed by
// the go-cache janitor.
type Memory struct {
	cfg       Config
	sessions  *cache.Cache
	scorer    Scorer
	estimator tokenizer.Estimator
	prefs     PreferenceSource
	logger    logger.ILogger

	// admitMu serializes session creation so MaxSessions holds.
	admitMu sync.Mutex

	hookMu    sync.RWMutex
	onEvicted func(entity.Session)
}

func NewMemory(cfg Config, scorer Scorer, estimator tokenizer.Estimator, prefs PreferenceSource, logger logger.ILogger) *Memory {
	def := DefaultConfig()
	if cfg.MaxMessages <= 0 {
		cfg.MaxMessages = def.MaxMessages
	}
	if cfg.MaxPatterns <= 0 {
		cfg.MaxPatterns = def.MaxPatterns
	}
	if cfg.MaxComplexity <= 0 {
		cfg.MaxComplexity = def.MaxComplexity
	}
	if cfg.ContextBudget <= 0 {
		cfg.ContextBudget = def.ContextBudget
	}
	if cfg.IdleTTL <= 0 {
		cfg.IdleTTL = def.IdleTTL
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = def.CleanupInterval
	}
	if cfg.MaxSessions <= 0 {
		cfg.MaxSessions = def.MaxSessions
	}
	if cfg.LoadTimeout <= 0 {
		cfg.LoadTimeout = def.LoadTimeout
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if estimator == nil {
		estimator = tokenizer.CharEstimator{}
	}

	m := &Memory{
		cfg:       cfg,
		sessions:  cache.New(cfg.IdleTTL, cfg.CleanupInterval),
		scorer:    scorer,
		estimator: estimator,
		prefs:     prefs,
		logger:    logger,
	}
	m.sessions.OnEvicted(m.evicted)
	return m
}

// OnEvicted registers fn to receive the final state of every session that
// leaves the registry, whether closed explicitly, idle-expired or displaced.
func (m *Memory) OnEvicted(fn func(entity.Session)) {
	m.hookMu.Lock()
	m.onEvicted = fn
	m.hookMu.Unlock()
}

// evicted runs for sessions the registry drops on its own. Sessions closed
// through Close are already marked and have been handed to the hook.
func (m *Memory) evicted(id string, v interface{}) {
	st, ok := v.(*sessionState)
	if !ok {
		return
	}
	st.mu.Lock()
	if st.closed {
		st.mu.Unlock()
		return
	}
	st.closed = true
	snapshot := copySession(st.session)
	st.mu.Unlock()

	m.notify(snapshot)
}

func (m *Memory) notify(snapshot entity.Session) {
	m.hookMu.RLock()
	fn := m.onEvicted
	m.hookMu.RUnlock()
	if fn != nil {
		fn(snapshot)
	}
}

// Open returns the session with the given id, creating it when absent.
// Preferences are loaded before any lock is taken; a failed or empty lookup
// falls back to the defaults.
func (m *Memory) Open(ctx context.Context, id, userID string) (entity.Session, error) {
	if id == "" {
		return entity.Session{}, ErrEmptySessionID
	}
	if st, ok := m.get(id); ok {
		if snapshot, live := m.touch(id, st); live {
			return snapshot, nil
		}
	}

	prefs := m.loadPreferences(ctx, userID)
	now := m.cfg.Now()
	st := &sessionState{session: entity.Session{
		Id:           id,
		UserId:       userID,
		Preferences:  prefs,
		CreatedAt:    now,
		LastActivity: now,
	}}

	m.admitMu.Lock()
	// Expired but unreaped sessions still hold state the hook has not seen.
	m.sessions.DeleteExpired()
	if existing, ok := m.get(id); ok {
		if snapshot, live := m.touch(id, existing); live {
			m.admitMu.Unlock()
			return snapshot, nil
		}
	}
	m.makeRoom()
	m.sessions.Set(id, st, cache.DefaultExpiration)
	m.admitMu.Unlock()

	m.logger.Debug("SESSION", "Session opened", map[string]interface{}{
		"session_id": id,
		"user_id":    userID,
	})

	st.mu.Lock()
	defer st.mu.Unlock()
	return copySession(st.session), nil
}

// Append pushes msg onto the session, attaching result when present, and
// returns the stored message.
func (m *Memory) Append(id string, msg entity.Message, result *entity.ReasoningResult) (entity.Message, error) {
	st, ok := m.get(id)
	if !ok {
		return entity.Message{}, ErrSessionNotFound
	}

	now := m.cfg.Now()
	if msg.Id == uuid.Nil {
		msg.Id = uuid.New()
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = now
	}
	if msg.Role == "" {
		msg.Role = entity.MessageRoleUser
	}
	msg.Relevance = nil
	if result != nil {
		msg.Result = result
		msg.TokenCount = result.TotalTokens
	}

	st.mu.Lock()
	if st.closed {
		st.mu.Unlock()
		return entity.Message{}, ErrSessionNotFound
	}
	s := &st.session
	s.Messages = keepLast(append(s.Messages, msg), m.cfg.MaxMessages)
	if msg.Result != nil {
		s.Patterns = mergePatterns(s.Patterns, DerivePatterns(msg.Result), m.cfg.MaxPatterns)
	}
	s.LastActivity = now
	st.mu.Unlock()

	m.refresh(id, st)
	return msg, nil
}

// RecordComplexity appends an assessment to the session's capped history.
func (m *Memory) RecordComplexity(id string, assessment entity.ComplexityAssessment) error {
	st, ok := m.get(id)
	if !ok {
		return ErrSessionNotFound
	}
	now := m.cfg.Now()
	if assessment.AssessedAt.IsZero() {
		assessment.AssessedAt = now
	}

	st.mu.Lock()
	if st.closed {
		st.mu.Unlock()
		return ErrSessionNotFound
	}
	st.session.ComplexityHistory = keepLast(append(st.session.ComplexityHistory, assessment), m.cfg.MaxComplexity)
	st.session.LastActivity = now
	st.mu.Unlock()

	m.refresh(id, st)
	return nil
}

// ApplyPreferences replaces the preferences snapshot of every live session
// owned by prefs.UserId and returns how many were updated.
func (m *Memory) ApplyPreferences(prefs entity.UserPreferences) int {
	if prefs.UserId == "" {
		return 0
	}
	updated := 0
	for _, it := range m.sessions.Items() {
		st, ok := it.Object.(*sessionState)
		if !ok {
			continue
		}
		st.mu.Lock()
		if !st.closed && st.session.UserId == prefs.UserId {
			st.session.Preferences = prefs
			updated++
		}
		st.mu.Unlock()
	}
	return updated
}

func (m *Memory) Snapshot(id string) (entity.Session, bool) {
	st, ok := m.get(id)
	if !ok {
		return entity.Session{}, false
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.closed {
		return entity.Session{}, false
	}
	return copySession(st.session), true
}

// Sessions returns snapshots of every live session.
func (m *Memory) Sessions() []entity.Session {
	items := m.sessions.Items()
	out := make([]entity.Session, 0, len(items))
	for _, it := range items {
		st, ok := it.Object.(*sessionState)
		if !ok {
			continue
		}
		st.mu.Lock()
		if !st.closed {
			out = append(out, copySession(st.session))
		}
		st.mu.Unlock()
	}
	return out
}

// Close removes the session. The eviction hook receives its final state.
func (m *Memory) Close(id string) (entity.Session, bool) {
	st, ok := m.get(id)
	if !ok {
		return entity.Session{}, false
	}
	st.mu.Lock()
	if st.closed {
		st.mu.Unlock()
		return entity.Session{}, false
	}
	st.closed = true
	snapshot := copySession(st.session)
	st.mu.Unlock()

	// A concurrent Open may already have replaced the closed state.
	m.admitMu.Lock()
	if cur, ok := m.get(id); ok && cur == st {
		m.sessions.Delete(id)
	}
	m.admitMu.Unlock()

	m.notify(snapshot)
	return snapshot, true
}

// Len counts live sessions; expired ones awaiting the janitor are excluded.
func (m *Memory) Len() int {
	n := 0
	for _, it := range m.sessions.Items() {
		st, ok := it.Object.(*sessionState)
		if !ok {
			continue
		}
		st.mu.Lock()
		if !st.closed {
			n++
		}
		st.mu.Unlock()
	}
	return n
}

// Now is the registry clock.
func (m *Memory) Now() time.Time {
	return m.cfg.Now()
}

// PurgeIdle drops sessions past their idle TTL without waiting for the janitor.
func (m *Memory) PurgeIdle() {
	m.sessions.DeleteExpired()
}

func (m *Memory) get(id string) (*sessionState, bool) {
	if id == "" {
		return nil, false
	}
	v, ok := m.sessions.Get(id)
	if !ok {
		return nil, false
	}
	st, ok := v.(*sessionState)
	return st, ok
}

func (m *Memory) touch(id string, st *sessionState) (entity.Session, bool) {
	st.mu.Lock()
	if st.closed {
		st.mu.Unlock()
		return entity.Session{}, false
	}
	st.session.LastActivity = m.cfg.Now()
	snapshot := copySession(st.session)
	st.mu.Unlock()

	m.refresh(id, st)
	return snapshot, true
}

// refresh re-arms the idle expiry of a live session. The check and the Set
// share st.mu so a concurrent Close cannot be undone.
func (m *Memory) refresh(id string, st *sessionState) {
	st.mu.Lock()
	defer st.mu.Unlock()
	if !st.closed {
		m.sessions.Set(id, st, cache.DefaultExpiration)
	}
}

// makeRoom displaces the least recently active session when the registry is
// full. Caller holds admitMu.
func (m *Memory) makeRoom() {
	if len(m.sessions.Items()) < m.cfg.MaxSessions {
		return
	}

	var (
		victim     string
		victimSeen time.Time
	)
	for id, it := range m.sessions.Items() {
		st, ok := it.Object.(*sessionState)
		if !ok {
			continue
		}
		st.mu.Lock()
		last := st.session.LastActivity
		st.mu.Unlock()
		if victim == "" || last.Before(victimSeen) {
			victim, victimSeen = id, last
		}
	}
	if victim != "" {
		m.logger.Info("SESSION", "Session registry full, displacing least recently active", map[string]interface{}{
			"session_id":    victim,
			"last_activity": victimSeen,
		})
		m.sessions.Delete(victim)
	}
}

func (m *Memory) loadPreferences(ctx context.Context, userID string) entity.UserPreferences {
	if userID == "" || m.prefs == nil {
		return entity.DefaultUserPreferences(userID)
	}

	ctx, cancel := context.WithTimeout(ctx, m.cfg.LoadTimeout)
	defer cancel()

	prefs, err := m.prefs.GetUserPreferences(ctx, userID)
	if err != nil {
		m.logger.Warn("PREFERENCES", "Failed to load preferences, using defaults", map[string]interface{}{
			"user_id": userID,
			"error":   err.Error(),
		})
		return entity.DefaultUserPreferences(userID)
	}
	if prefs == nil {
		return entity.DefaultUserPreferences(userID)
	}
	return *prefs
}

func keepLast[T any](items []T, max int) []T {
	if len(items) <= max {
		return items
	}
	out := make([]T, max)
	copy(out, items[len(items)-max:])
	return out
}

func copySession(s entity.Session) entity.Session {
	out := s
	out.Messages = append([]entity.Message(nil), s.Messages...)
	out.Patterns = append([]string(nil), s.Patterns...)
	out.ComplexityHistory = append([]entity.ComplexityAssessment(nil), s.ComplexityHistory...)
	return out
}
