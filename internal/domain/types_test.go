package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRetrievedSource(t *testing.T) {
	src, err := NewRetrievedSource("2401.00001", "A Paper", "https://arxiv.org/abs/2401.00001", "An abstract.", 0.91)
	require.NoError(t, err)
	assert.Equal(t, "2401.00001", src.ID)
	assert.Equal(t, 0.91, src.Score)
}

func TestNewRetrievedSourceEmptyExcerpt(t *testing.T) {
	_, err := NewRetrievedSource("2401.00001", "A Paper", "", "   ", 0.5)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrValidation))
}

func TestNewRetrievedSourceEmptyID(t *testing.T) {
	_, err := NewRetrievedSource("", "A Paper", "", "abstract", 0.5)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrValidation))
}

func TestNewRetrievedSourceAllowsMissingMetadata(t *testing.T) {
	src, err := NewRetrievedSource("doc-1", "", "", "text", 0.2)
	require.NoError(t, err)
	assert.Empty(t, src.Title)
	assert.Empty(t, src.URL)
}

func TestGenerationConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     GenerationConfig
		wantErr bool
	}{
		{"valid", GenerationConfig{MaxOutputTokens: 100, Temperature: 0.3}, false},
		{"zero value", GenerationConfig{}, false},
		{"temperature too high", GenerationConfig{Temperature: 1.5}, true},
		{"temperature negative", GenerationConfig{Temperature: -0.1}, true},
		{"negative tokens", GenerationConfig{MaxOutputTokens: -1}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrValidation))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestQueryResultTotalLatency(t *testing.T) {
	r := QueryResult{
		SearchMetrics: SearchMetrics{EmbeddingLatency: 10 * time.Millisecond, SearchLatency: 20 * time.Millisecond},
		ModelMetrics:  ModelMetrics{RequestLatency: 30 * time.Millisecond},
	}
	assert.Equal(t, 60*time.Millisecond, r.TotalLatency())
}

func TestStageError(t *testing.T) {
	inner := ErrRetrieval
	err := &StageError{Stage: "retrieval", Err: inner}
	assert.Contains(t, err.Error(), "retrieval stage")
	assert.True(t, errors.Is(err, ErrRetrieval))
}
