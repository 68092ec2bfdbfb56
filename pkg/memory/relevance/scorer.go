package relevance

import (
	"context"
	"sync/atomic"

	"survey-assistant-be/internal/pkg/logger"
	"survey-assistant-be/pkg/embedding"
	"survey-assistant-be/pkg/vector"
)

// DefaultFallbackScore is the neutral relevance used when embeddings are unavailable.
const DefaultFallbackScore = 0.5

// Scorer turns text into embeddings and embeddings into [0,1] relevance scores.
// Provider failures never surface: Embed substitutes a zero vector and Score a
// neutral fallback.
type Scorer struct {
	provider   embedding.EmbeddingProvider
	dimensions int
	fallback   float64
	logger     logger.ILogger
	failures   atomic.Int64
}

func NewScorer(provider embedding.EmbeddingProvider, dimensions int, logger logger.ILogger) *Scorer {
	return &Scorer{
		provider:   provider,
		dimensions: dimensions,
		fallback:   DefaultFallbackScore,
		logger:     logger,
	}
}

// Embed returns the embedding of text and whether it came from the provider.
// On failure the zero vector of the configured dimensionality is returned.
func (s *Scorer) Embed(ctx context.Context, text string) ([]float32, bool) {
	if s.provider == nil {
		return embedding.ZeroVector(s.dimensions), false
	}

	res, err := s.provider.Generate(ctx, text, embedding.TaskTypeSemanticSimilarity)
	if err != nil || res == nil || len(res.Embedding.Values) == 0 {
		s.failures.Add(1)
		details := map[string]interface{}{"text_length": len(text)}
		if err != nil {
			details["error"] = err.Error()
		}
		s.logger.Warn("EMBEDDING", "Embedding unavailable, using zero vector", details)
		return embedding.ZeroVector(s.dimensions), false
	}
	return res.Embedding.Values, true
}

// Score returns the cosine similarity of a and b clamped to [0,1].
func (s *Scorer) Score(ctx context.Context, a, b string) float64 {
	return s.ScoreMany(ctx, a, []string{b})[0]
}

// ScoreMany scores every text against query, embedding the query once.
func (s *Scorer) ScoreMany(ctx context.Context, query string, texts []string) []float64 {
	scores := make([]float64, len(texts))

	queryVec, ok := s.Embed(ctx, query)
	if !ok {
		for i := range scores {
			scores[i] = s.fallback
		}
		return scores
	}

	for i, text := range texts {
		textVec, ok := s.Embed(ctx, text)
		if !ok {
			scores[i] = s.fallback
			continue
		}
		scores[i] = Clamp(vector.CosineSimilarity(queryVec, textVec))
	}
	return scores
}

// Failures is the number of embedding calls that fell back.
func (s *Scorer) Failures() int64 {
	return s.failures.Load()
}

func Clamp(score float64) float64 {
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}
