// Package memory is a brute-force in-memory vector index. It backs tests
// and the seed-file demo mode; production deployments use qdrant.
package memory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"sync"

	"research-rag/internal/domain"
)

// Store holds documents and their precomputed embeddings and answers
// similarity queries by exhaustive cosine scan. Vectors are assumed
// L2-normalized, so the dot product is the cosine similarity.
type Store struct {
	mu        sync.RWMutex
	dimension int
	vectors   [][]float32
	hits      []domain.Hit
}

func New(dimension int) (*Store, error) {
	if dimension <= 0 {
		return nil, errors.New("invalid dimension")
	}
	return &Store{dimension: dimension}, nil
}

// Upsert appends documents with their embeddings.
func (s *Store) Upsert(hits []domain.Hit, vectors [][]float32) error {
	if len(hits) != len(vectors) {
		return errors.New("hits and vectors length mismatch")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, v := range vectors {
		if len(v) != s.dimension {
			return errors.New("vector dimension mismatch")
		}
	}
	s.hits = append(s.hits, hits...)
	s.vectors = append(s.vectors, vectors...)
	return nil
}

// Search returns up to limit hits ordered by descending cosine similarity.
// An empty store yields an empty result, not an error.
func (s *Store) Search(ctx context.Context, vector []float32, limit int) ([]domain.Hit, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("%w: limit must be positive", domain.ErrValidation)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	type scored struct {
		idx   int
		score float64
	}
	scores := make([]scored, len(s.vectors))
	for i := range s.vectors {
		scores[i] = scored{idx: i, score: dot(s.vectors[i], vector)}
	}
	sort.SliceStable(scores, func(i, j int) bool { return scores[i].score > scores[j].score })

	if limit > len(scores) {
		limit = len(scores)
	}
	out := make([]domain.Hit, 0, limit)
	for i := 0; i < limit; i++ {
		h := s.hits[scores[i].idx]
		h.Score = scores[i].score
		out = append(out, h)
	}
	return out, nil
}

// Clear drops all stored documents.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.vectors = nil
	s.hits = nil
}

// seedRecord is one entry of a JSON seed file: document metadata plus its
// precomputed embedding.
type seedRecord struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	URL       string    `json:"url"`
	Excerpt   string    `json:"excerpt"`
	Embedding []float32 `json:"embedding"`
}

// LoadFile builds a store from a JSON array of documents with precomputed
// embeddings. The first record fixes the dimension.
func LoadFile(path string) (*Store, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	var records []seedRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("parse seed file: %w", err)
	}
	if len(records) == 0 {
		return nil, errors.New("seed file contains no documents")
	}

	store, err := New(len(records[0].Embedding))
	if err != nil {
		return nil, err
	}
	hits := make([]domain.Hit, len(records))
	vectors := make([][]float32, len(records))
	for i, r := range records {
		hits[i] = domain.Hit{ID: r.ID, Title: r.Title, URL: r.URL, Excerpt: r.Excerpt}
		vectors[i] = r.Embedding
	}
	if err := store.Upsert(hits, vectors); err != nil {
		return nil, err
	}
	return store, nil
}

func dot(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	sum := 0.0
	for i := 0; i < n; i++ {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}
