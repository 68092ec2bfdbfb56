package mock

import (
	"context"
	"errors"
	"hash/fnv"
	"strings"
	"sync/atomic"
	"unicode"

	"survey-assistant-be/pkg/embedding"
	"survey-assistant-be/pkg/vector"
)

var stopWords = map[string]struct{}{
	"a": {}, "an": {}, "the": {}, "of": {}, "for": {}, "to": {},
	"and": {}, "in": {}, "on": {}, "is": {}, "are": {}, "me": {},
}

// Provider is a deterministic bag-of-words embedder for tests and local runs.
// Texts that share the same stemmed content words map to the same vector, so
// light paraphrases score close to 1.
type Provider struct {
	dimensions int
	err        error
	calls      atomic.Int64
}

func New(dimensions int) *Provider {
	if dimensions <= 0 {
		dimensions = 64
	}
	return &Provider{dimensions: dimensions}
}

// NewFailing returns a provider whose every call fails with err.
func NewFailing(err error) *Provider {
	if err == nil {
		err = errors.New("embedding provider unavailable")
	}
	return &Provider{dimensions: 64, err: err}
}

func (p *Provider) Generate(ctx context.Context, text string, taskType string) (*embedding.EmbeddingResponse, error) {
	p.calls.Add(1)
	if p.err != nil {
		return nil, p.err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	values := make([]float32, p.dimensions)
	for _, token := range Tokens(text) {
		h := fnv.New32a()
		h.Write([]byte(token))
		values[h.Sum32()%uint32(p.dimensions)] += 1
	}

	return &embedding.EmbeddingResponse{
		Embedding: embedding.EmbeddingResponseEmbedding{Values: vector.Normalize(values)},
	}, nil
}

func (p *Provider) Calls() int64 {
	return p.calls.Load()
}

// Tokens lowercases text, drops stop words and strips a plural "s".
func Tokens(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		if _, skip := stopWords[f]; skip {
			continue
		}
		if len(f) > 3 && strings.HasSuffix(f, "s") && !strings.HasSuffix(f, "ss") {
			f = strings.TrimSuffix(f, "s")
		}
		tokens = append(tokens, f)
	}
	return tokens
}
