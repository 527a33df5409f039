package domain

import (
	"fmt"
	"strings"
	"time"
)

// RetrievedSource is one document returned by a similarity search.
// Instances are immutable once created and are owned by the QueryResult
// that contains them.
type RetrievedSource struct {
	ID      string  `json:"id"`
	Title   string  `json:"title,omitempty"`
	URL     string  `json:"url,omitempty"`
	Excerpt string  `json:"excerpt"`
	Score   float64 `json:"score"`
}

// NewRetrievedSource validates and builds a source. The identifier and the
// excerpt must be non-empty; title and URL may be missing when the store
// lacks metadata.
func NewRetrievedSource(id, title, url, excerpt string, score float64) (RetrievedSource, error) {
	if strings.TrimSpace(id) == "" {
		return RetrievedSource{}, fmt.Errorf("%w: source identifier is empty", ErrValidation)
	}
	if strings.TrimSpace(excerpt) == "" {
		return RetrievedSource{}, fmt.Errorf("%w: source %s has an empty excerpt", ErrValidation, id)
	}
	return RetrievedSource{ID: id, Title: title, URL: url, Excerpt: excerpt, Score: score}, nil
}

// SearchMetrics records timings and counts for one retrieval call.
// Latencies are cumulative wall-clock over the whole retried call,
// including backoff waits.
type SearchMetrics struct {
	EmbeddingLatency     time.Duration `json:"embedding_latency"`
	SearchLatency        time.Duration `json:"search_latency"`
	CandidatesConsidered int           `json:"candidates_considered"`
	CandidatesReturned   int           `json:"candidates_returned"`
}

// ModelMetrics records timings and token usage for one generation call.
// RequestLatency covers the whole retried call; Retries counts retries
// actually consumed, not attempts.
type ModelMetrics struct {
	RequestLatency   time.Duration `json:"request_latency"`
	PromptTokens     int           `json:"prompt_tokens"`
	CompletionTokens int           `json:"completion_tokens"`
	Retries          int           `json:"retries"`
}

// GenerationConfig carries the sampling options forwarded to the language
// model.
type GenerationConfig struct {
	MaxOutputTokens int      `json:"max_output_tokens" yaml:"max_output_tokens"`
	Temperature     float64  `json:"temperature" yaml:"temperature"`
	StopSequences   []string `json:"stop_sequences,omitempty" yaml:"stop_sequences"`
}

// Validate reports programmer-error-class generation options.
func (g GenerationConfig) Validate() error {
	if g.MaxOutputTokens < 0 {
		return fmt.Errorf("%w: max output tokens must be non-negative", ErrValidation)
	}
	if g.Temperature < 0 || g.Temperature > 1 {
		return fmt.Errorf("%w: temperature must be in [0,1]", ErrValidation)
	}
	return nil
}

// QueryResult is the engine's output for one answered question. Sources are
// ordered by descending relevance. Ownership transfers to the caller.
type QueryResult struct {
	Question      string            `json:"question"`
	Answer        string            `json:"answer"`
	Sources       []RetrievedSource `json:"sources"`
	SearchMetrics SearchMetrics     `json:"search_metrics"`
	ModelMetrics  ModelMetrics      `json:"model_metrics"`
}

// TotalLatency sums the remote time spent answering the question.
func (r *QueryResult) TotalLatency() time.Duration {
	return r.SearchMetrics.EmbeddingLatency + r.SearchMetrics.SearchLatency + r.ModelMetrics.RequestLatency
}
