package embedding

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGeminiProvider_Generate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/models/gemini-embedding-001:embedContent", r.URL.Path)
		assert.Equal(t, "key", r.Header.Get("x-goog-api-key"))

		var req EmbeddingRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "models/gemini-embedding-001", req.Model)
		assert.Equal(t, TaskTypeSemanticSimilarity, req.TaskType)
		assert.Equal(t, 3, req.OutputDimensionality)
		assert.Equal(t, "plan a survey", req.Content.Parts[0].Text)

		_, _ = w.Write([]byte(`{"embedding":{"values":[0.5,0.5,0.5]}}`))
	}))
	defer srv.Close()

	p := NewGeminiProvider("key", 3).(*GeminiProvider)
	p.BaseURL = srv.URL + "/"

	res, err := p.Generate(context.Background(), "plan a survey", TaskTypeSemanticSimilarity)
	require.NoError(t, err)
	assert.Equal(t, []float32{0.5, 0.5, 0.5}, res.Embedding.Values)
}

func TestGeminiProvider_Errors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error":"denied"}`))
	}))
	defer srv.Close()

	p := NewGeminiProvider("key", 0).(*GeminiProvider)
	p.BaseURL = srv.URL

	_, err := p.Generate(context.Background(), "x", "")
	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusForbidden, statusErr.Code)

	_, err = NewGeminiProvider("", 0).Generate(context.Background(), "x", "")
	assert.Error(t, err)
}

func TestOllamaProvider_Generate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/embed", r.URL.Path)

		var req ollamaEmbedRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "search_query: hello", req.Input)

		_, _ = w.Write([]byte(`{"embeddings":[[3,4]]}`))
	}))
	defer srv.Close()

	p := NewOllamaProvider(srv.URL+"/", "")

	res, err := p.Generate(context.Background(), "hello", TaskTypeRetrievalQuery)
	require.NoError(t, err)
	require.Len(t, res.Embedding.Values, 2)
	assert.InDelta(t, 0.6, res.Embedding.Values[0], 1e-6)
	assert.InDelta(t, 0.8, res.Embedding.Values[1], 1e-6)

	var norm float64
	for _, v := range res.Embedding.Values {
		norm += float64(v) * float64(v)
	}
	assert.InDelta(t, 1.0, math.Sqrt(norm), 1e-6)
}

func TestOllamaProvider_EmptyEmbedding(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"embeddings":[]}`))
	}))
	defer srv.Close()

	_, err := NewOllamaProvider(srv.URL, "mxbai-embed-large").Generate(context.Background(), "hello", "")
	assert.Error(t, err)
}

func TestPostJSON_TruncatesErrorBody(t *testing.T) {
	long := make([]byte, 2000)
	for i := range long {
		long[i] = 'x'
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write(long)
	}))
	defer srv.Close()

	var out struct{}
	err := PostJSON(context.Background(), NewHTTPClient(), srv.URL, nil, map[string]string{}, &out)
	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Len(t, statusErr.Body, maxErrorBody)
}
