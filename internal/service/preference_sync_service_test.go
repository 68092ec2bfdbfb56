package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"survey-assistant-be/internal/entity"
	"survey-assistant-be/internal/pkg/logger"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type appliedPrefs struct {
	mu   sync.Mutex
	seen []entity.UserPreferences
}

func (a *appliedPrefs) apply(p entity.UserPreferences) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.seen = append(a.seen, p)
	return 1
}

func (a *appliedPrefs) list() []entity.UserPreferences {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]entity.UserPreferences(nil), a.seen...)
}

func newRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return rdb
}

func TestPreferenceSync_AppliesPeerUpdates(t *testing.T) {
	rdb := newRedis(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	local := NewPreferenceSync(rdb, logger.NewNopLogger())
	peer := NewPreferenceSync(rdb, logger.NewNopLogger())

	applied := &appliedPrefs{}
	require.NoError(t, local.Listen(ctx, applied.apply))

	require.NoError(t, peer.BroadcastPreferences(ctx, entity.UserPreferences{UserId: "u-1", Verbosity: entity.VerbosityDetailed}))

	require.Eventually(t, func() bool { return len(applied.list()) == 1 }, 2*time.Second, 10*time.Millisecond)
	got := applied.list()[0]
	assert.Equal(t, "u-1", got.UserId)
	assert.Equal(t, entity.VerbosityDetailed, got.Verbosity)
}

func TestPreferenceSync_IgnoresOwnAndMalformedUpdates(t *testing.T) {
	rdb := newRedis(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	local := NewPreferenceSync(rdb, logger.NewNopLogger())
	applied := &appliedPrefs{}
	require.NoError(t, local.Listen(ctx, applied.apply))

	require.NoError(t, local.BroadcastPreferences(ctx, entity.UserPreferences{UserId: "u-1"}))
	require.NoError(t, rdb.Publish(ctx, PreferenceChannel, "{not json").Err())
	require.NoError(t, rdb.Publish(ctx, PreferenceChannel, `{"origin":"other","preferences":{}}`).Err())

	// A valid marker from a peer proves the earlier messages were consumed.
	peer := NewPreferenceSync(rdb, logger.NewNopLogger())
	require.NoError(t, peer.BroadcastPreferences(ctx, entity.UserPreferences{UserId: "marker"}))

	require.Eventually(t, func() bool { return len(applied.list()) == 1 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, "marker", applied.list()[0].UserId)
}

func TestPreferenceSync_NoRedis(t *testing.T) {
	p := NewPreferenceSync(nil, logger.NewNopLogger())
	assert.NoError(t, p.BroadcastPreferences(context.Background(), entity.UserPreferences{UserId: "u"}))
	assert.NoError(t, p.Listen(context.Background(), func(entity.UserPreferences) int { return 0 }))
}
