package openai

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"research-rag/internal/domain"
	"research-rag/internal/retry"
)

func testLog() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

func newTestClient(t *testing.T, url string, dimension int) *Client {
	t.Helper()
	t.Setenv("TEST_EMBED_KEY", "secret")
	c, err := NewClient(Config{BaseURL: url, APIKeyEnv: "TEST_EMBED_KEY", Model: "test-model", Dimension: dimension}, testLog())
	require.NoError(t, err)
	return c
}

func embeddingHandler(vec []float32) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := map[string]any{
			"data": []map[string]any{{"embedding": vec}},
		}
		json.NewEncoder(w).Encode(resp)
	}
}

func TestEmbedReturnsVector(t *testing.T) {
	srv := httptest.NewServer(embeddingHandler([]float32{0.1, 0.2, 0.3}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, 3)
	vec, err := c.Embed(context.Background(), "hello world")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.1, 0.2, 0.3}, vec)
}

func TestEmbedSendsAuthAndModel(t *testing.T) {
	var gotAuth string
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		json.NewDecoder(r.Body).Decode(&gotBody)
		embeddingHandler([]float32{1})(w, r)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, 1)
	_, err := c.Embed(context.Background(), "text")
	require.NoError(t, err)
	assert.Equal(t, "Bearer secret", gotAuth)
	assert.Equal(t, "test-model", gotBody["model"])
	assert.Equal(t, "text", gotBody["input"])
}

func TestEmbedRejectsEmptyText(t *testing.T) {
	c := newTestClient(t, "http://unused", 3)
	_, err := c.Embed(context.Background(), "   ")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrValidation))
}

func TestEmbedMarksServerErrorsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, 3)
	_, err := c.Embed(context.Background(), "text")
	require.Error(t, err)
	assert.True(t, retry.IsTransient(err))
	assert.True(t, errors.Is(err, domain.ErrEmbedding))
}

func TestEmbedMarksRateLimitTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "slow down", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, 3)
	_, err := c.Embed(context.Background(), "text")
	require.Error(t, err)
	assert.True(t, retry.IsTransient(err))
}

func TestEmbedClientErrorIsFatal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad request", http.StatusBadRequest)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, 3)
	_, err := c.Embed(context.Background(), "text")
	require.Error(t, err)
	assert.False(t, retry.IsTransient(err))
	assert.True(t, errors.Is(err, domain.ErrEmbedding))
}

func TestEmbedRejectsDimensionMismatch(t *testing.T) {
	srv := httptest.NewServer(embeddingHandler([]float32{0.1, 0.2}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, 3)
	_, err := c.Embed(context.Background(), "text")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrEmbedding))
}

func TestNewClientRequiresAPIKey(t *testing.T) {
	t.Setenv("TEST_EMBED_KEY", "")
	_, err := NewClient(Config{APIKeyEnv: "TEST_EMBED_KEY", Dimension: 3}, testLog())
	require.Error(t, err)
}

func TestNewClientRequiresDimension(t *testing.T) {
	t.Setenv("TEST_EMBED_KEY", "secret")
	_, err := NewClient(Config{APIKeyEnv: "TEST_EMBED_KEY"}, testLog())
	require.Error(t, err)
}
