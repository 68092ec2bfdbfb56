package embedding

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingProvider struct {
	mu     sync.Mutex
	texts  []string
	values []float32
	err    error
	block  bool
}

func (p *recordingProvider) Generate(ctx context.Context, text string, taskType string) (*EmbeddingResponse, error) {
	p.mu.Lock()
	p.texts = append(p.texts, text)
	p.mu.Unlock()

	if p.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if p.err != nil {
		return nil, p.err
	}
	return &EmbeddingResponse{Embedding: EmbeddingResponseEmbedding{Values: p.values}}, nil
}

func TestGuardedProvider_TruncatesInput(t *testing.T) {
	inner := &recordingProvider{values: []float32{1, 0, 0}}
	g, err := NewGuardedProvider(inner, GuardConfig{Dimensions: 3, MaxChars: 10, Timeout: time.Second})
	require.NoError(t, err)
	defer g.Close()

	_, err = g.Generate(context.Background(), strings.Repeat("a", 50), TaskTypeRetrievalQuery)
	require.NoError(t, err)

	require.Len(t, inner.texts, 1)
	assert.Len(t, inner.texts[0], 10)
}

func TestGuardedProvider_DimensionMismatch(t *testing.T) {
	inner := &recordingProvider{values: []float32{1, 0}}
	g, err := NewGuardedProvider(inner, GuardConfig{Dimensions: 3})
	require.NoError(t, err)

	_, err = g.Generate(context.Background(), "hello", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dimension mismatch")
}

func TestGuardedProvider_PropagatesUpstreamError(t *testing.T) {
	inner := &recordingProvider{err: errors.New("provider down")}
	g, err := NewGuardedProvider(inner, GuardConfig{})
	require.NoError(t, err)

	_, err = g.Generate(context.Background(), "hello", "")
	require.EqualError(t, err, "provider down")
}

func TestGuardedProvider_TimeoutBoundsSlowProvider(t *testing.T) {
	inner := &recordingProvider{block: true}
	g, err := NewGuardedProvider(inner, GuardConfig{Timeout: 20 * time.Millisecond})
	require.NoError(t, err)

	start := time.Now()
	_, err = g.Generate(context.Background(), "slow", "")
	require.Error(t, err)
	assert.Less(t, time.Since(start), time.Second)
}

func TestGuardedProvider_CallerCancellation(t *testing.T) {
	inner := &recordingProvider{block: true}
	g, err := NewGuardedProvider(inner, GuardConfig{Timeout: time.Minute})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = g.Generate(ctx, "abandoned", "")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", Truncate("abc", 5))
	assert.Equal(t, "ab", Truncate("abc", 2))
	assert.Equal(t, "héł", Truncate("héłło", 3))
	assert.Equal(t, "abc", Truncate("abc", 0))
}
