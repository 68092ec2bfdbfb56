package jina

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"survey-assistant-be/pkg/embedding"
)

type JinaProvider struct {
	apiKey  string
	baseURL string
	model   string
	client  *http.Client
}

type embeddingRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
	Task  string   `json:"task,omitempty"`
}

type embeddingResponse struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func NewJinaProvider(apiKey string) *JinaProvider {
	return &JinaProvider{
		apiKey:  apiKey,
		baseURL: "https://api.jina.ai/v1/embeddings",
		model:   "jina-embeddings-v3",
		client:  embedding.NewHTTPClient(),
	}
}

// jina-embeddings-v3 takes task adapters instead of Gemini task types.
func taskFor(taskType string) string {
	switch taskType {
	case embedding.TaskTypeRetrievalQuery:
		return "retrieval.query"
	case embedding.TaskTypeRetrievalDocument:
		return "retrieval.passage"
	case embedding.TaskTypeSemanticSimilarity:
		return "text-matching"
	default:
		return ""
	}
}

func (p *JinaProvider) Generate(ctx context.Context, text string, taskType string) (*embedding.EmbeddingResponse, error) {
	if p.apiKey == "" {
		return nil, errors.New("jina: api key is not configured")
	}

	body := embeddingRequest{Model: p.model, Input: []string{text}, Task: taskFor(taskType)}
	headers := map[string]string{"Authorization": fmt.Sprintf("Bearer %s", p.apiKey)}

	var out embeddingResponse
	if err := embedding.PostJSON(ctx, p.client, p.baseURL, headers, body, &out); err != nil {
		return nil, fmt.Errorf("jina: %w", err)
	}
	if out.Error != nil {
		return nil, fmt.Errorf("jina: %s", out.Error.Message)
	}
	if len(out.Data) == 0 || len(out.Data[0].Embedding) == 0 {
		return nil, errors.New("jina: empty embedding")
	}

	return &embedding.EmbeddingResponse{
		Embedding: embedding.EmbeddingResponseEmbedding{Values: out.Data[0].Embedding},
	}, nil
}
