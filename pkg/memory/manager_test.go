package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"survey-assistant-be/internal/entity"
	"survey-assistant-be/internal/pkg/logger"
	"survey-assistant-be/pkg/embedding"
	"survey-assistant-be/pkg/embedding/mock"
	"survey-assistant-be/pkg/memory/cache"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	mu sync.Mutex

	prefs     map[string]*entity.UserPreferences
	history   []*entity.HistoricalSession
	warm      []*entity.CacheEntry
	readErr   error
	writeErr  error
	summaries map[string]entity.HistoricalSession
	phases    map[string]int
	cacheRows map[string]string
	saved     []entity.UserPreferences
	purges    int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		prefs:     map[string]*entity.UserPreferences{},
		summaries: map[string]entity.HistoricalSession{},
		phases:    map[string]int{},
		cacheRows: map[string]string{},
	}
}

func (s *fakeStore) GetUserPreferences(ctx context.Context, userId string) (*entity.UserPreferences, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.readErr != nil {
		return nil, s.readErr
	}
	return s.prefs[userId], nil
}

func (s *fakeStore) GetHistoricalSessions(ctx context.Context, userId string, limit int) ([]*entity.HistoricalSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.readErr != nil {
		return nil, s.readErr
	}
	var out []*entity.HistoricalSession
	for _, h := range s.history {
		if h.UserId == userId && len(out) < limit {
			out = append(out, h)
		}
	}
	return out, nil
}

func (s *fakeStore) UpsertSessionSummary(ctx context.Context, summary *entity.HistoricalSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.writeErr != nil {
		return s.writeErr
	}
	s.summaries[summary.Id] = *summary
	return nil
}

func (s *fakeStore) UpsertReasoningPhases(ctx context.Context, sessionId string, result *entity.ReasoningResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.writeErr != nil {
		return s.writeErr
	}
	s.phases[sessionId] += len(result.Phases)
	return nil
}

func (s *fakeStore) UpsertCacheEntry(ctx context.Context, userId string, entry *entity.CacheEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.writeErr != nil {
		return s.writeErr
	}
	s.cacheRows[entry.ContentHash] = userId
	return nil
}

func (s *fakeStore) UpsertUserPreferences(ctx context.Context, prefs *entity.UserPreferences) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.writeErr != nil {
		return s.writeErr
	}
	s.saved = append(s.saved, *prefs)
	return nil
}

func (s *fakeStore) LoadCacheEntries(ctx context.Context, limit int) ([]*entity.CacheEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.readErr != nil {
		return nil, s.readErr
	}
	return s.warm, nil
}

func (s *fakeStore) DeleteExpiredCacheEntries(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.purges++
	return 0, nil
}

func (s *fakeStore) summary(id string) (entity.HistoricalSession, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.summaries[id]
	return h, ok
}

type recordingEvents struct {
	mu      sync.Mutex
	evicted []cache.EvictionReport
	closed  []entity.HistoricalSession
}

func (e *recordingEvents) PublishCacheEvicted(ctx context.Context, report cache.EvictionReport) {
	e.mu.Lock()
	e.evicted = append(e.evicted, report)
	e.mu.Unlock()
}

func (e *recordingEvents) PublishSessionClosed(ctx context.Context, summary entity.HistoricalSession) {
	e.mu.Lock()
	e.closed = append(e.closed, summary)
	e.mu.Unlock()
}

type chanBroadcaster chan entity.UserPreferences

func (c chanBroadcaster) BroadcastPreferences(ctx context.Context, prefs entity.UserPreferences) error {
	c <- prefs
	return nil
}

type rejectingPersister struct{}

func (rejectingPersister) Enqueue(ctx context.Context, job PersistJob) error {
	return ErrQueueFull
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Dimensions = 64
	return cfg
}

func newTestManager(t *testing.T, provider embedding.EmbeddingProvider, opts Options) *Manager {
	t.Helper()
	m, err := NewManager(testConfig(), provider, opts, logger.NewNopLogger())
	require.NoError(t, err)
	return m
}

func complexResult(query string) *entity.ReasoningResult {
	return &entity.ReasoningResult{
		Id:          uuid.New(),
		Query:       query,
		TotalTokens: 3100,
		TotalCost:   0.042,
		Complexity:  entity.ComplexityAssessment{Level: entity.ComplexityComplex, Confidence: 0.82},
		ModelId:     "gpt-4o",
		CanUseCache: true,
		Phases: []entity.ReasoningPhase{
			{Id: uuid.New(), Type: "analysis", Content: "Q3 revenue grew in two regions."},
			{Id: uuid.New(), Type: "execution", Content: "Sales rose 12% quarter over quarter."},
		},
	}
}

func TestManager_ParaphraseHitsThroughSimilarity(t *testing.T) {
	m := newTestManager(t, mock.New(64), Options{})
	ctx := context.Background()

	r1 := complexResult("Summarize Q3 sales trends")
	entry, err := m.Store(ctx, "", "", r1.Query, r1)
	require.NoError(t, err)
	require.NotNil(t, entry)

	hit, err := m.Lookup(ctx, "Summarize the Q3 sales trend")
	require.NoError(t, err)
	require.NotNil(t, hit)

	assert.Same(t, r1, hit.Result)
	assert.False(t, hit.Exact)
	assert.Equal(t, 1, hit.Entry.HitCount)
	assert.GreaterOrEqual(t, hit.Similarity, 0.85)
	assert.Contains(t, hit.Entry.Tags, "complexity:complex")
}

func TestManager_StoreAppendsAndPersists(t *testing.T) {
	store := newFakeStore()
	m := newTestManager(t, mock.New(64), Options{Store: store})
	ctx := context.Background()

	r := complexResult("Summarize Q3 sales trends")
	_, err := m.AppendMessage(ctx, "s-1", "u-1", entity.Message{Content: r.Query}, nil)
	require.NoError(t, err)
	entry, err := m.Store(ctx, "s-1", "u-1", r.Query, r)
	require.NoError(t, err)
	require.NoError(t, m.Shutdown(ctx))

	s, ok := m.Session("s-1")
	require.True(t, ok)
	require.Len(t, s.Messages, 2)
	assert.Equal(t, entity.MessageRoleAssistant, s.Messages[1].Role)
	assert.Equal(t, "Sales rose 12% quarter over quarter.", s.Messages[1].Content)
	assert.Equal(t, 3100, s.Messages[1].TokenCount)
	assert.Contains(t, s.Patterns, "phase:execution")

	store.mu.Lock()
	defer store.mu.Unlock()
	assert.Equal(t, "u-1", store.cacheRows[entry.ContentHash])
	assert.Equal(t, 2, store.phases["s-1"])
	assert.Contains(t, store.summaries, "s-1", "shutdown flushes live sessions")
}

func TestManager_NonCacheableStillReachesSession(t *testing.T) {
	m := newTestManager(t, mock.New(64), Options{})
	ctx := context.Background()

	r := complexResult("Personal follow-up for Dana")
	r.CanUseCache = false
	entry, err := m.Store(ctx, "s", "", r.Query, r)
	require.NoError(t, err)
	assert.Nil(t, entry)

	hit, err := m.Lookup(ctx, r.Query)
	require.NoError(t, err)
	assert.Nil(t, hit)

	s, _ := m.Session("s")
	assert.Len(t, s.Messages, 1)
}

func TestManager_DegradesWhenEmbeddingsFail(t *testing.T) {
	m := newTestManager(t, mock.NewFailing(errors.New("embedding service unavailable")), Options{})
	ctx := context.Background()

	r := complexResult("Summarize Q3 sales trends")
	_, err := m.Store(ctx, "s", "", r.Query, r)
	require.NoError(t, err)

	hit, err := m.Lookup(ctx, "Summarize the Q3 sales trend")
	require.NoError(t, err)
	assert.Nil(t, hit)

	hit, err = m.Lookup(ctx, "summarize q3 sales trends")
	require.NoError(t, err)
	require.NotNil(t, hit, "exact tier needs no embeddings")

	messages, err := m.SelectContext(ctx, "s", "what about Q4?", 0)
	require.NoError(t, err)
	require.Len(t, messages, 1)
	assert.Equal(t, 0.5, *messages[0].Relevance)

	assert.Greater(t, m.Stats().EmbeddingFallbacks, int64(0))
}

func TestManager_PersistenceFailuresAreSwallowed(t *testing.T) {
	store := newFakeStore()
	store.writeErr = errors.New("database unreachable")
	persister := NewAsyncPersister(store, 4, time.Second, logger.NewNopLogger())
	m := newTestManager(t, mock.New(64), Options{Store: store, Persister: persister})
	ctx := context.Background()

	r := complexResult("Which channel drove most responses?")
	entry, err := m.Store(ctx, "s", "u", r.Query, r)
	require.NoError(t, err)
	require.NotNil(t, entry)
	persister.Wait()

	hit, err := m.Lookup(ctx, r.Query)
	require.NoError(t, err)
	assert.NotNil(t, hit)
	assert.Equal(t, int64(2), persister.Failures())
}

func TestManager_RejectedHandOffIsCounted(t *testing.T) {
	m := newTestManager(t, mock.New(64), Options{Persister: rejectingPersister{}})

	r := complexResult("Compare NPS by segment")
	_, err := m.Store(context.Background(), "", "", r.Query, r)
	require.NoError(t, err)
	assert.Equal(t, int64(1), m.Stats().PersistFailures)
}

func TestManager_InvalidInput(t *testing.T) {
	m := newTestManager(t, mock.New(64), Options{})
	ctx := context.Background()

	_, err := m.Lookup(ctx, "  ")
	assert.ErrorIs(t, err, ErrEmptyQuery)
	_, err = m.Store(ctx, "", "", "q", nil)
	assert.ErrorIs(t, err, ErrNilResult)
	_, err = m.SelectContext(ctx, "s", "", 10)
	assert.ErrorIs(t, err, ErrEmptyQuery)
	_, err = m.SelectContext(ctx, "s", "q", -5)
	assert.ErrorIs(t, err, ErrNegativeBudget)
	_, err = m.AppendMessage(ctx, "", "", entity.Message{}, nil)
	assert.ErrorIs(t, err, ErrEmptySessionID)
	_, err = m.UpdatePreferences(ctx, entity.UserPreferences{})
	assert.ErrorIs(t, err, ErrEmptyUserID)
	_, err = m.UpdatePreferences(ctx, entity.UserPreferences{UserId: "u", Verbosity: "chatty"})
	assert.ErrorIs(t, err, ErrInvalidPreferences)

	assert.True(t, IsInvalidInput(err))
	assert.False(t, IsInvalidInput(errors.New("timeout")))
}

func TestManager_SelectContextOnUnknownSessionIsEmpty(t *testing.T) {
	m := newTestManager(t, mock.New(64), Options{})
	messages, err := m.SelectContext(context.Background(), "never-opened", "q", 100)
	require.NoError(t, err)
	assert.Empty(t, messages)
	assert.NotNil(t, messages)
}

func TestManager_BudgetsAreIndependent(t *testing.T) {
	m := newTestManager(t, mock.New(64), Options{})
	assert.Equal(t, 4000, m.PlanningBudget())
}

func TestManager_OpenSessionLoadsPreferences(t *testing.T) {
	store := newFakeStore()
	store.prefs["u-1"] = &entity.UserPreferences{UserId: "u-1", Verbosity: entity.VerbosityDetailed}
	m := newTestManager(t, mock.New(64), Options{Store: store})

	s, err := m.OpenSession(context.Background(), "s", "u-1")
	require.NoError(t, err)
	assert.Equal(t, entity.VerbosityDetailed, s.Preferences.Verbosity)

	store.readErr = errors.New("timeout")
	s, err = m.OpenSession(context.Background(), "s-2", "u-1")
	require.NoError(t, err)
	assert.Equal(t, entity.DefaultUserPreferences("u-1"), s.Preferences)
}

func TestManager_UpdatePreferences(t *testing.T) {
	store := newFakeStore()
	broadcast := make(chanBroadcaster, 1)
	m := newTestManager(t, mock.New(64), Options{Store: store, Broadcaster: broadcast})
	ctx := context.Background()

	for _, id := range []string{"a", "b"} {
		_, err := m.OpenSession(ctx, id, "u-1")
		require.NoError(t, err)
	}
	_, err := m.OpenSession(ctx, "other", "u-2")
	require.NoError(t, err)

	updated, err := m.UpdatePreferences(ctx, entity.UserPreferences{UserId: "u-1", AlwaysShowThinking: true})
	require.NoError(t, err)
	assert.Equal(t, entity.VerbosityBalanced, updated.Verbosity)
	require.NotNil(t, updated.UpdatedAt)

	for _, id := range []string{"a", "b"} {
		s, _ := m.Session(id)
		assert.True(t, s.Preferences.AlwaysShowThinking, "session %s must see the update immediately", id)
	}
	s, _ := m.Session("other")
	assert.False(t, s.Preferences.AlwaysShowThinking)

	select {
	case got := <-broadcast:
		assert.Equal(t, "u-1", got.UserId)
	case <-time.After(time.Second):
		t.Fatal("preferences were not broadcast")
	}

	assert.Eventually(t, func() bool {
		store.mu.Lock()
		defer store.mu.Unlock()
		return len(store.saved) == 1
	}, time.Second, 10*time.Millisecond)
}

func TestManager_HistoricalSessions(t *testing.T) {
	store := newFakeStore()
	store.history = []*entity.HistoricalSession{
		{Id: "h-2", UserId: "u-1"},
		{Id: "h-1", UserId: "u-1"},
		{Id: "h-x", UserId: "u-2"},
	}
	m := newTestManager(t, mock.New(64), Options{Store: store})
	ctx := context.Background()

	got, err := m.HistoricalSessions(ctx, "u-1", 5)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "h-2", got[0].Id)

	store.readErr = errors.New("connection reset")
	got, err = m.HistoricalSessions(ctx, "u-1", 5)
	require.NoError(t, err)
	assert.Empty(t, got)

	_, err = m.HistoricalSessions(ctx, "", 5)
	assert.ErrorIs(t, err, ErrEmptyUserID)

	bare := newTestManager(t, mock.New(64), Options{})
	got, err = bare.HistoricalSessions(ctx, "u-1", 5)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestManager_CloseSessionPersistsAndAnnounces(t *testing.T) {
	store := newFakeStore()
	events := &recordingEvents{}
	persister := NewAsyncPersister(store, 4, time.Second, logger.NewNopLogger())
	m := newTestManager(t, mock.New(64), Options{Store: store, Persister: persister, Events: events})
	ctx := context.Background()

	_, err := m.AppendMessage(ctx, "s", "u", entity.Message{Content: "How should I word a Likert scale?"}, nil)
	require.NoError(t, err)
	require.NoError(t, m.RecordComplexity(ctx, "s", "u", entity.ComplexityAssessment{Level: entity.ComplexitySimple}))

	_, ok := m.CloseSession("s")
	require.True(t, ok)
	persister.Wait()

	summary, ok := store.summary("s")
	require.True(t, ok)
	assert.Equal(t, "How should I word a Likert scale?", summary.Summary)
	assert.Equal(t, entity.ComplexitySimple, summary.DominantComplexity)

	events.mu.Lock()
	defer events.mu.Unlock()
	require.Len(t, events.closed, 1)
	assert.Equal(t, "s", events.closed[0].Id)
}

func TestManager_EvictionIsAnnounced(t *testing.T) {
	events := &recordingEvents{}
	cfg := testConfig()
	cfg.Cache.SoftCap = 2
	cfg.Cache.Floor = 1
	cfg.Cache.HardCap = 5
	m, err := NewManager(cfg, nil, Options{Events: events}, logger.NewNopLogger())
	require.NoError(t, err)

	for _, q := range []string{"one", "two", "three"} {
		_, err := m.Store(context.Background(), "", "", q, complexResult(q))
		require.NoError(t, err)
	}

	events.mu.Lock()
	defer events.mu.Unlock()
	require.Len(t, events.evicted, 1)
	assert.Equal(t, 2, events.evicted[0].LRU)
}

func TestManager_WarmRestoresDurableEntries(t *testing.T) {
	store := newFakeStore()
	r := complexResult("Top complaints in open-ended answers")
	store.warm = []*entity.CacheEntry{{
		ContentHash:  cache.ContentHash(r.Query),
		Query:        r.Query,
		Result:       r,
		CreatedAt:    time.Now().Add(-time.Hour),
		TTL:          24 * time.Hour,
		HitCount:     3,
		LastAccessed: time.Now().Add(-time.Minute),
	}}
	m := newTestManager(t, mock.New(64), Options{Store: store})
	ctx := context.Background()

	assert.Equal(t, 1, m.Warm(ctx))

	hit, err := m.Lookup(ctx, r.Query)
	require.NoError(t, err)
	require.NotNil(t, hit)
	assert.True(t, hit.Exact)
	assert.Equal(t, 4, hit.Entry.HitCount)

	store.readErr = errors.New("down")
	assert.Zero(t, m.Warm(ctx))
}

func TestManager_StartFlushesPeriodically(t *testing.T) {
	store := newFakeStore()
	cfg := testConfig()
	cfg.FlushInterval = 10 * time.Millisecond
	m, err := NewManager(cfg, mock.New(64), Options{Store: store}, logger.NewNopLogger())
	require.NoError(t, err)
	ctx := context.Background()

	_, err = m.OpenSession(ctx, "live", "u")
	require.NoError(t, err)

	m.Start(ctx)
	m.Start(ctx)

	assert.Eventually(t, func() bool {
		_, ok := store.summary("live")
		store.mu.Lock()
		defer store.mu.Unlock()
		return ok && store.purges > 0
	}, 2*time.Second, 10*time.Millisecond)

	shutdownCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	require.NoError(t, m.Shutdown(shutdownCtx))
	require.NoError(t, m.Shutdown(shutdownCtx))
}

func TestManager_InvalidateTag(t *testing.T) {
	m := newTestManager(t, mock.New(64), Options{})
	ctx := context.Background()

	r := complexResult("Build an NPS survey")
	r.TemplateId = "nps-v2"
	_, err := m.Store(ctx, "", "", r.Query, r)
	require.NoError(t, err)

	assert.Equal(t, 1, m.InvalidateTag("template:nps-v2"))
	hit, err := m.Lookup(ctx, r.Query)
	require.NoError(t, err)
	assert.Nil(t, hit)
}

func TestManager_UpdatePreferencesUsesInjectedClock(t *testing.T) {
	fixed := time.Date(2026, 4, 1, 9, 30, 0, 0, time.UTC)
	cfg := testConfig()
	cfg.Session.Now = func() time.Time { return fixed }
	m, err := NewManager(cfg, mock.New(64), Options{}, logger.NewNopLogger())
	require.NoError(t, err)

	updated, err := m.UpdatePreferences(context.Background(), entity.UserPreferences{UserId: "u-1"})
	require.NoError(t, err)
	require.NotNil(t, updated.UpdatedAt)
	assert.True(t, fixed.Equal(*updated.UpdatedAt))
}
