package embedding

// Wire types of the Gemini embedContent call. EmbeddingResponse doubles as
// the provider-neutral result every EmbeddingProvider returns.

type EmbeddingRequestContentPart struct {
	Text string `json:"text"`
}

type EmbeddingRequestContent struct {
	Parts []EmbeddingRequestContentPart `json:"parts"`
}

type EmbeddingRequest struct {
	Model                string                  `json:"model"`
	Content              EmbeddingRequestContent `json:"content"`
	TaskType             string                  `json:"taskType,omitempty"`
	OutputDimensionality int                     `json:"outputDimensionality,omitempty"`
}

type EmbeddingResponseEmbedding struct {
	Values []float32 `json:"values"`
}

type EmbeddingResponse struct {
	Embedding EmbeddingResponseEmbedding `json:"embedding"`
}
