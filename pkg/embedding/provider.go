package embedding

import "context"

const (
	TaskTypeRetrievalQuery     = "RETRIEVAL_QUERY"
	TaskTypeRetrievalDocument  = "RETRIEVAL_DOCUMENT"
	TaskTypeSemanticSimilarity = "SEMANTIC_SIMILARITY"
)

// EmbeddingProvider defines the interface for generating text embeddings
type EmbeddingProvider interface {
	Generate(ctx context.Context, text string, taskType string) (*EmbeddingResponse, error)
}

// ZeroVector is the neutral embedding substituted when a provider fails.
func ZeroVector(dimensions int) []float32 {
	if dimensions <= 0 {
		return nil
	}
	return make([]float32, dimensions)
}
