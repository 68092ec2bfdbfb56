package embedding

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"survey-assistant-be/pkg/vector"
)

// OllamaProvider talks to a local Ollama server (e.g. nomic-embed-text).
type OllamaProvider struct {
	BaseURL string
	Model   string
	client  *http.Client
}

func NewOllamaProvider(baseURL string, model string) EmbeddingProvider {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	if model == "" {
		model = "nomic-embed-text"
	}
	return &OllamaProvider{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Model:   model,
		client:  NewHTTPClient(),
	}
}

type ollamaEmbedRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
}

type ollamaEmbedResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
}

// nomic-embed-text expects these prefixes to separate queries from documents.
func ollamaPrefix(taskType string) string {
	switch taskType {
	case TaskTypeRetrievalQuery:
		return "search_query: "
	case TaskTypeRetrievalDocument:
		return "search_document: "
	default:
		return ""
	}
}

func (p *OllamaProvider) Generate(ctx context.Context, text string, taskType string) (*EmbeddingResponse, error) {
	input := text
	if strings.HasPrefix(p.Model, "nomic-embed") {
		input = ollamaPrefix(taskType) + text
	}

	var out ollamaEmbedResponse
	err := PostJSON(ctx, p.client, p.BaseURL+"/api/embed", nil, ollamaEmbedRequest{Model: p.Model, Input: input}, &out)
	if err != nil {
		return nil, fmt.Errorf("ollama: %w", err)
	}
	if len(out.Embeddings) == 0 || len(out.Embeddings[0]) == 0 {
		return nil, fmt.Errorf("ollama: empty embedding")
	}

	return &EmbeddingResponse{
		Embedding: EmbeddingResponseEmbedding{Values: vector.Normalize(out.Embeddings[0])},
	}, nil
}
