// Package retriever turns a question into ranked sources: query embedding,
// similarity search, relevance filtering and hit mapping.
package retriever

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"research-rag/internal/domain"
	"research-rag/internal/retry"
)

// Retriever queries the vector index with the question's embedding and maps
// raw hits into RetrievedSource values. Stateless across calls; safe for
// concurrent use as long as the collaborators are.
type Retriever struct {
	embedder domain.Embedder
	index    domain.VectorIndex
	minScore float64
	policy   retry.Policy
	log      *logrus.Entry
}

// New builds a retriever. minScore is the relevance threshold below which
// hits are discarded; pass the store's score space (cosine similarity here).
func New(embedder domain.Embedder, index domain.VectorIndex, minScore float64, policy retry.Policy, log *logrus.Entry) *Retriever {
	return &Retriever{
		embedder: embedder,
		index:    index,
		minScore: minScore,
		policy:   policy,
		log:      log.WithField("component", "retriever"),
	}
}

// Retrieve returns at most topK sources ordered by non-increasing score,
// each at or above the configured threshold, together with the retrieval
// metrics. Transient embedding and search failures are retried under the
// configured policy; exhausting it surfaces the underlying error kind. An
// empty collection yields an empty source list, which is a valid outcome.
func (r *Retriever) Retrieve(ctx context.Context, question string, topK int) ([]domain.RetrievedSource, domain.SearchMetrics, error) {
	var metrics domain.SearchMetrics

	question = strings.TrimSpace(question)
	if question == "" {
		return nil, metrics, fmt.Errorf("%w: empty question", domain.ErrValidation)
	}
	if topK <= 0 {
		return nil, metrics, fmt.Errorf("%w: top_k must be positive, got %d", domain.ErrValidation, topK)
	}

	var vector []float32
	embedStart := time.Now()
	_, err := r.policy.Do(ctx, func(ctx context.Context) error {
		var embedErr error
		vector, embedErr = r.embedder.Embed(ctx, question)
		return embedErr
	})
	metrics.EmbeddingLatency = time.Since(embedStart)
	if err != nil {
		r.log.WithError(err).Error("query embedding failed")
		return nil, metrics, err
	}

	var hits []domain.Hit
	searchStart := time.Now()
	_, err = r.policy.Do(ctx, func(ctx context.Context) error {
		var searchErr error
		hits, searchErr = r.index.Search(ctx, vector, topK)
		return searchErr
	})
	metrics.SearchLatency = time.Since(searchStart)
	if err != nil {
		r.log.WithError(err).Error("vector search failed")
		return nil, metrics, err
	}
	metrics.CandidatesConsidered = len(hits)

	sources := r.mapHits(hits)
	metrics.CandidatesReturned = len(sources)

	r.log.WithFields(logrus.Fields{
		"considered": metrics.CandidatesConsidered,
		"returned":   metrics.CandidatesReturned,
		"embed_ms":   metrics.EmbeddingLatency.Milliseconds(),
		"search_ms":  metrics.SearchLatency.Milliseconds(),
	}).Debug("retrieval complete")

	return sources, metrics, nil
}

// mapHits filters hits below the threshold and converts the survivors,
// keeping the store's rank order and breaking score ties by identifier
// ascending for determinism.
func (r *Retriever) mapHits(hits []domain.Hit) []domain.RetrievedSource {
	sources := make([]domain.RetrievedSource, 0, len(hits))
	seen := make(map[string]struct{}, len(hits))
	for _, h := range hits {
		if h.Score < r.minScore {
			continue
		}
		if _, dup := seen[h.ID]; dup {
			r.log.WithField("id", h.ID).Warn("duplicate identifier in result set, dropping")
			continue
		}
		src, err := domain.NewRetrievedSource(h.ID, h.Title, h.URL, h.Excerpt, h.Score)
		if err != nil {
			r.log.WithError(err).WithField("id", h.ID).Warn("skipping malformed hit")
			continue
		}
		seen[h.ID] = struct{}{}
		sources = append(sources, src)
	}
	sort.SliceStable(sources, func(i, j int) bool {
		if sources[i].Score != sources[j].Score {
			return sources[i].Score > sources[j].Score
		}
		return sources[i].ID < sources[j].ID
	})
	return sources
}
