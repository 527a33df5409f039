// Package openai implements the model client against an OpenAI-compatible
// chat completions endpoint.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"research-rag/internal/domain"
	"research-rag/internal/retry"
)

// Client sends prompts to a chat completions endpoint with bounded retries
// on transient failures. Safe for concurrent use.
type Client struct {
	baseURL string
	apiKey  string
	model   string
	client  *http.Client
	policy  retry.Policy
	log     *logrus.Entry
}

// Config configures the model client.
type Config struct {
	BaseURL   string
	APIKeyEnv string
	Model     string
	Timeout   time.Duration
	Retry     retry.Policy
}

// NewClient creates a model client from the provided configuration.
func NewClient(cfg Config, log *logrus.Entry) (*Client, error) {
	key := os.Getenv(cfg.APIKeyEnv)
	if key == "" {
		return nil, fmt.Errorf("missing API key in env %s", cfg.APIKeyEnv)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("model name is empty")
	}
	t := cfg.Timeout
	if t == 0 {
		t = 120 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  key,
		model:   cfg.Model,
		client:  &http.Client{Timeout: t},
		policy:  cfg.Retry,
		log:     log.WithField("component", "model"),
	}, nil
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float64       `json:"temperature"`
	Stop        []string      `json:"stop,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

// Generate sends the prompt and returns the completion text with its
// metrics. Timeouts, rate limits and 5xx responses are retried under the
// configured policy and counted in ModelMetrics.Retries; other rejections
// fail immediately with ErrGeneration.
func (c *Client) Generate(ctx context.Context, prompt string, cfg domain.GenerationConfig) (string, domain.ModelMetrics, error) {
	var metrics domain.ModelMetrics

	if strings.TrimSpace(prompt) == "" {
		return "", metrics, fmt.Errorf("%w: empty prompt", domain.ErrValidation)
	}
	if err := cfg.Validate(); err != nil {
		return "", metrics, err
	}

	var out chatResponse
	start := time.Now()
	retries, err := c.policy.Do(ctx, func(ctx context.Context) error {
		return c.doRequest(ctx, prompt, cfg, &out)
	})
	metrics.RequestLatency = time.Since(start)
	metrics.Retries = retries
	if err != nil {
		c.log.WithError(err).WithField("retries", retries).Error("generation failed")
		return "", metrics, err
	}

	text := out.Choices[0].Message.Content
	metrics.PromptTokens = out.Usage.PromptTokens
	metrics.CompletionTokens = out.Usage.CompletionTokens
	if metrics.PromptTokens == 0 && metrics.CompletionTokens == 0 {
		// Some OpenAI-compatible servers omit usage; fall back to a
		// character-count proxy at ~4 chars per token.
		metrics.PromptTokens = len(prompt) / 4
		metrics.CompletionTokens = len(text) / 4
	}

	c.log.WithFields(logrus.Fields{
		"latency_ms":        metrics.RequestLatency.Milliseconds(),
		"retries":           retries,
		"completion_tokens": metrics.CompletionTokens,
	}).Debug("generation complete")

	return text, metrics, nil
}

func (c *Client) doRequest(ctx context.Context, prompt string, cfg domain.GenerationConfig, out *chatResponse) error {
	body := chatRequest{
		Model:       c.model,
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
		MaxTokens:   cfg.MaxOutputTokens,
		Temperature: cfg.Temperature,
		Stop:        cfg.StopSequences,
	}
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("%w: encode request: %v", domain.ErrGeneration, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrGeneration, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return retry.Transient(fmt.Errorf("%w: %v", domain.ErrGeneration, err))
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		io.Copy(io.Discard, resp.Body)
		c.log.WithField("status", resp.Status).Warn("completion request failed, retryable")
		return retry.Transient(fmt.Errorf("%w: %s", domain.ErrGeneration, resp.Status))
	}
	if resp.StatusCode >= 300 {
		// Invalid requests and content-policy rejections are final.
		return fmt.Errorf("%w: %s", domain.ErrGeneration, resp.Status)
	}

	*out = chatResponse{}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return retry.Transient(fmt.Errorf("%w: decode response: %v", domain.ErrGeneration, err))
	}
	if len(out.Choices) == 0 {
		return fmt.Errorf("%w: response contains no choices", domain.ErrGeneration)
	}
	return nil
}
