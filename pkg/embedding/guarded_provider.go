package embedding

import (
	"context"
	"fmt"
	"time"

	"github.com/dgraph-io/ristretto"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"
)

// GuardConfig bounds the latency and cost of calls to an upstream provider.
type GuardConfig struct {
	Dimensions        int           // expected vector size, 0 accepts any
	MaxChars          int           // input is cut to this many runes
	Timeout           time.Duration // per upstream call
	RequestsPerSecond float64       // 0 disables rate limiting
	Burst             int
	MemoEntries       int64 // 0 disables the memo
}

func DefaultGuardConfig() GuardConfig {
	return GuardConfig{
		Dimensions:  1536,
		MaxChars:    8000,
		Timeout:     10 * time.Second,
		Burst:       10,
		MemoEntries: 2048,
	}
}

// GuardedProvider wraps an EmbeddingProvider with input truncation, a bounded
// timeout, a token-bucket rate limit, single-flight deduplication and a memo of
// recent vectors.
type GuardedProvider struct {
	inner   EmbeddingProvider
	cfg     GuardConfig
	limiter *rate.Limiter
	group   singleflight.Group
	memo    *ristretto.Cache
}

func NewGuardedProvider(inner EmbeddingProvider, cfg GuardConfig) (*GuardedProvider, error) {
	if inner == nil {
		return nil, fmt.Errorf("embedding provider is required")
	}
	if cfg.MaxChars <= 0 {
		cfg.MaxChars = 8000
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 1
	}

	g := &GuardedProvider{inner: inner, cfg: cfg}

	if cfg.RequestsPerSecond > 0 {
		g.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst)
	}

	if cfg.MemoEntries > 0 {
		memo, err := ristretto.NewCache(&ristretto.Config{
			NumCounters: cfg.MemoEntries * 10,
			MaxCost:     cfg.MemoEntries,
			BufferItems: 64,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create embedding memo: %w", err)
		}
		g.memo = memo
	}

	return g, nil
}

func (g *GuardedProvider) Dimensions() int {
	return g.cfg.Dimensions
}

func (g *GuardedProvider) Generate(ctx context.Context, text string, taskType string) (*EmbeddingResponse, error) {
	text = Truncate(text, g.cfg.MaxChars)
	key := taskType + "\x00" + text

	if g.memo != nil {
		if v, found := g.memo.Get(key); found {
			return response(v.([]float32)), nil
		}
	}

	ch := g.group.DoChan(key, func() (interface{}, error) {
		// The shared call outlives a single abandoned caller but never the timeout.
		callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), g.cfg.Timeout)
		defer cancel()

		if g.limiter != nil {
			if err := g.limiter.Wait(callCtx); err != nil {
				return nil, fmt.Errorf("embedding rate limit: %w", err)
			}
		}

		res, err := g.inner.Generate(callCtx, text, taskType)
		if err != nil {
			return nil, err
		}
		if res == nil || len(res.Embedding.Values) == 0 {
			return nil, fmt.Errorf("empty embedding returned")
		}
		if g.cfg.Dimensions > 0 && len(res.Embedding.Values) != g.cfg.Dimensions {
			return nil, fmt.Errorf("embedding dimension mismatch: got %d, want %d", len(res.Embedding.Values), g.cfg.Dimensions)
		}

		values := append([]float32(nil), res.Embedding.Values...)
		if g.memo != nil {
			g.memo.Set(key, values, 1)
		}
		return values, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-ch:
		if r.Err != nil {
			return nil, r.Err
		}
		return response(r.Val.([]float32)), nil
	}
}

func (g *GuardedProvider) Close() {
	if g.memo != nil {
		g.memo.Close()
	}
}

// Truncate cuts text to at most maxChars runes.
func Truncate(text string, maxChars int) string {
	if maxChars <= 0 || len(text) <= maxChars {
		return text
	}
	runes := []rune(text)
	if len(runes) <= maxChars {
		return text
	}
	return string(runes[:maxChars])
}

func response(values []float32) *EmbeddingResponse {
	return &EmbeddingResponse{
		Embedding: EmbeddingResponseEmbedding{
			Values: append([]float32(nil), values...),
		},
	}
}
