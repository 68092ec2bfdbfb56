package relevance

import (
	"context"
	"errors"
	"testing"

	"survey-assistant-be/internal/pkg/logger"
	"survey-assistant-be/pkg/embedding"
	"survey-assistant-be/pkg/embedding/mock"

	"github.com/stretchr/testify/assert"
)

type fixedProvider struct {
	vectors map[string][]float32
}

func (p *fixedProvider) Generate(ctx context.Context, text string, taskType string) (*embedding.EmbeddingResponse, error) {
	v, ok := p.vectors[text]
	if !ok {
		return nil, errors.New("unknown text")
	}
	return &embedding.EmbeddingResponse{Embedding: embedding.EmbeddingResponseEmbedding{Values: v}}, nil
}

func TestScorer_Score(t *testing.T) {
	s := NewScorer(mock.New(64), 64, logger.NewNopLogger())
	ctx := context.Background()

	assert.InDelta(t, 1.0, s.Score(ctx, "survey response rates", "survey response rate"), 1e-6)
	assert.Less(t, s.Score(ctx, "survey response rates", "quarterly revenue forecast"), 0.5)
	assert.Zero(t, s.Failures())
}

func TestScorer_ClampsNegativeSimilarity(t *testing.T) {
	p := &fixedProvider{vectors: map[string][]float32{
		"up":   {1, 0},
		"down": {-1, 0},
	}}
	s := NewScorer(p, 2, logger.NewNopLogger())

	assert.Equal(t, 0.0, s.Score(context.Background(), "up", "down"))
}

func TestScorer_FallbackOnProviderFailure(t *testing.T) {
	s := NewScorer(mock.NewFailing(errors.New("503")), 8, logger.NewNopLogger())
	ctx := context.Background()

	vec, ok := s.Embed(ctx, "anything")
	assert.False(t, ok)
	assert.Equal(t, make([]float32, 8), vec)

	scores := s.ScoreMany(ctx, "query", []string{"a", "b"})
	assert.Equal(t, []float64{DefaultFallbackScore, DefaultFallbackScore}, scores)
	assert.Equal(t, int64(2), s.Failures())
}

func TestScorer_PartialFailure(t *testing.T) {
	p := &fixedProvider{vectors: map[string][]float32{
		"query": {1, 0},
		"known": {1, 0},
	}}
	s := NewScorer(p, 2, logger.NewNopLogger())

	scores := s.ScoreMany(context.Background(), "query", []string{"known", "missing"})
	assert.InDelta(t, 1.0, scores[0], 1e-9)
	assert.Equal(t, DefaultFallbackScore, scores[1])
}

func TestScorer_NilProvider(t *testing.T) {
	s := NewScorer(nil, 4, logger.NewNopLogger())
	vec, ok := s.Embed(context.Background(), "x")
	assert.False(t, ok)
	assert.Len(t, vec, 4)
}
