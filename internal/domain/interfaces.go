package domain

import "context"

// Hit is one raw result from the vector store's read contract, before the
// retriever maps it into a RetrievedSource.
type Hit struct {
	ID      string
	Title   string
	URL     string
	Excerpt string
	Score   float64
}

// Embedder converts free text into a fixed-dimension numeric vector.
// Implementations must be safe for concurrent use and perform a single
// attempt; retries are driven by the caller.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimension() int
}

// VectorIndex is the read contract against an already-populated collection.
// Hits come back ordered by descending similarity.
type VectorIndex interface {
	Search(ctx context.Context, vector []float32, limit int) ([]Hit, error)
}

// ModelClient sends a formatted prompt to the language model and reports
// usage metrics alongside the generated text.
type ModelClient interface {
	Generate(ctx context.Context, prompt string, cfg GenerationConfig) (string, ModelMetrics, error)
}

// SourceRetriever runs the embedding-and-search half of the pipeline.
type SourceRetriever interface {
	Retrieve(ctx context.Context, question string, topK int) ([]RetrievedSource, SearchMetrics, error)
}
