// Package openai implements the Embedder contract against an
// OpenAI-compatible embeddings endpoint.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"research-rag/internal/domain"
	"research-rag/internal/retry"
)

// Client calls an OpenAI-compatible embeddings endpoint. Each Embed call is
// a single attempt; transient failures are marked for the caller's retry
// policy. Safe for concurrent use.
type Client struct {
	baseURL   string
	apiKey    string
	model     string
	dimension int
	client    *http.Client
	log       *logrus.Entry
}

// Config configures the embeddings client. Dimension must match the
// collection's index dimensionality; it is agreed out-of-band.
type Config struct {
	BaseURL   string
	APIKeyEnv string
	Model     string
	Dimension int
	Timeout   time.Duration
}

// NewClient creates an embeddings client from the provided configuration.
func NewClient(cfg Config, log *logrus.Entry) (*Client, error) {
	key := os.Getenv(cfg.APIKeyEnv)
	if key == "" {
		return nil, fmt.Errorf("missing API key in env %s", cfg.APIKeyEnv)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.Model == "" {
		cfg.Model = "text-embedding-3-small"
	}
	if cfg.Dimension <= 0 {
		return nil, fmt.Errorf("embedding dimension must be positive, got %d", cfg.Dimension)
	}
	t := cfg.Timeout
	if t == 0 {
		t = 30 * time.Second
	}
	return &Client{
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:    key,
		model:     cfg.Model,
		dimension: cfg.Dimension,
		client:    &http.Client{Timeout: t},
		log:       log.WithField("component", "embedder"),
	}, nil
}

// Dimension returns the dimensionality of the produced vectors.
func (c *Client) Dimension() int { return c.dimension }

// Embed returns an embedding vector for the given text. Empty input after
// trimming is a validation error; remote failures carry ErrEmbedding, with
// rate limits, 5xx responses and transport errors marked transient.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: empty text", domain.ErrValidation)
	}

	body := struct {
		Input string `json:"input"`
		Model string `json:"model"`
	}{Input: text, Model: c.model}
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("%w: encode request: %v", domain.ErrEmbedding, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/embeddings", bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrEmbedding, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, retry.Transient(fmt.Errorf("%w: %v", domain.ErrEmbedding, err))
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		c.log.WithField("status", resp.Status).Warn("embeddings request failed, retryable")
		return nil, retry.Transient(fmt.Errorf("%w: %s", domain.ErrEmbedding, resp.Status))
	}
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: %s", domain.ErrEmbedding, resp.Status)
	}

	var out struct {
		Data []struct {
			Embedding []float32 `json:"embedding"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, retry.Transient(fmt.Errorf("%w: decode response: %v", domain.ErrEmbedding, err))
	}
	if len(out.Data) == 0 || len(out.Data[0].Embedding) == 0 {
		return nil, fmt.Errorf("%w: no embedding returned", domain.ErrEmbedding)
	}
	vec := out.Data[0].Embedding
	if len(vec) != c.dimension {
		return nil, fmt.Errorf("%w: got dimension %d, want %d", domain.ErrEmbedding, len(vec), c.dimension)
	}
	return vec, nil
}
