package memory

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"research-rag/internal/domain"
)

func seededStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(2)
	require.NoError(t, err)
	hits := []domain.Hit{
		{ID: "a", Excerpt: "alpha"},
		{ID: "b", Excerpt: "beta"},
		{ID: "c", Excerpt: "gamma"},
	}
	vectors := [][]float32{
		{1, 0},
		{0, 1},
		{0.7071, 0.7071},
	}
	require.NoError(t, s.Upsert(hits, vectors))
	return s
}

func TestSearchOrdersByCosineSimilarity(t *testing.T) {
	s := seededStore(t)
	hits, err := s.Search(context.Background(), []float32{1, 0}, 3)
	require.NoError(t, err)
	require.Len(t, hits, 3)
	assert.Equal(t, "a", hits[0].ID)
	assert.Equal(t, "c", hits[1].ID)
	assert.Equal(t, "b", hits[2].ID)
	for i := 1; i < len(hits); i++ {
		assert.GreaterOrEqual(t, hits[i-1].Score, hits[i].Score)
	}
}

func TestSearchRespectsLimit(t *testing.T) {
	s := seededStore(t)
	hits, err := s.Search(context.Background(), []float32{1, 0}, 2)
	require.NoError(t, err)
	assert.Len(t, hits, 2)
}

func TestSearchRejectsBadLimit(t *testing.T) {
	s := seededStore(t)
	_, err := s.Search(context.Background(), []float32{1, 0}, 0)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrValidation))
}

func TestSearchEmptyStore(t *testing.T) {
	s, err := New(2)
	require.NoError(t, err)
	hits, err := s.Search(context.Background(), []float32{1, 0}, 5)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestUpsertRejectsDimensionMismatch(t *testing.T) {
	s, err := New(2)
	require.NoError(t, err)
	err = s.Upsert([]domain.Hit{{ID: "a", Excerpt: "x"}}, [][]float32{{1, 2, 3}})
	require.Error(t, err)
}

func TestClear(t *testing.T) {
	s := seededStore(t)
	s.Clear()
	hits, err := s.Search(context.Background(), []float32{1, 0}, 5)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seed.json")
	seed := `[
		{"id": "2401.00001", "title": "Paper One", "url": "https://arxiv.org/abs/2401.00001", "excerpt": "first abstract", "embedding": [1, 0]},
		{"id": "2401.00002", "title": "Paper Two", "url": "https://arxiv.org/abs/2401.00002", "excerpt": "second abstract", "embedding": [0, 1]}
	]`
	require.NoError(t, os.WriteFile(path, []byte(seed), 0o644))

	s, err := LoadFile(path)
	require.NoError(t, err)

	hits, err := s.Search(context.Background(), []float32{0, 1}, 1)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "2401.00002", hits[0].ID)
	assert.Equal(t, "Paper Two", hits[0].Title)
}

func TestLoadFileRejectsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seed.json")
	require.NoError(t, os.WriteFile(path, []byte(`[]`), 0o644))
	_, err := LoadFile(path)
	require.Error(t, err)
}

func TestLoadFileMissing(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "nope.json"))
	require.Error(t, err)
}
