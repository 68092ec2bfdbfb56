package embedding

import (
	"context"
	"fmt"
	"net/http"
	"strings"
)

const (
	geminiBaseURL      = "https://generativelanguage.googleapis.com/v1beta"
	geminiDefaultModel = "gemini-embedding-001"
)

type GeminiProvider struct {
	ApiKey  string
	Model   string
	BaseURL string
	// Dimensions requests a reduced output size when positive.
	Dimensions int
	client     *http.Client
}

func NewGeminiProvider(apiKey string, dimensions int) EmbeddingProvider {
	return &GeminiProvider{
		ApiKey:     apiKey,
		Model:      geminiDefaultModel,
		BaseURL:    geminiBaseURL,
		Dimensions: dimensions,
		client:     NewHTTPClient(),
	}
}

func (p *GeminiProvider) Generate(ctx context.Context, text string, taskType string) (*EmbeddingResponse, error) {
	if p.ApiKey == "" {
		return nil, fmt.Errorf("gemini: api key is not configured")
	}

	body := EmbeddingRequest{
		Model:                "models/" + p.Model,
		Content:              EmbeddingRequestContent{Parts: []EmbeddingRequestContentPart{{Text: text}}},
		TaskType:             taskType,
		OutputDimensionality: p.Dimensions,
	}
	endpoint := fmt.Sprintf("%s/models/%s:embedContent", strings.TrimRight(p.BaseURL, "/"), p.Model)

	var out EmbeddingResponse
	if err := PostJSON(ctx, p.client, endpoint, map[string]string{"x-goog-api-key": p.ApiKey}, body, &out); err != nil {
		return nil, fmt.Errorf("gemini: %w", err)
	}
	if len(out.Embedding.Values) == 0 {
		return nil, fmt.Errorf("gemini: empty embedding")
	}
	return &out, nil
}
