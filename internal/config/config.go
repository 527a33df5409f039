package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"research-rag/internal/retry"
)

// EmbedderConfig configures the remote embedding service.
type EmbedderConfig struct {
	BaseURL     string `yaml:"base_url"`
	APIKeyEnv   string `yaml:"api_key_env"`
	Model       string `yaml:"model"`
	Dimension   int    `yaml:"dimension"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// QdrantConfig contains connection details for a Qdrant collection.
type QdrantConfig struct {
	Host        string `yaml:"host"`
	Port        int    `yaml:"port"`
	Collection  string `yaml:"collection"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// VectorStoreConfig selects and configures the vector store backend.
type VectorStoreConfig struct {
	Type     string        `yaml:"type"`
	Qdrant   *QdrantConfig `yaml:"qdrant,omitempty"`
	SeedFile string        `yaml:"seed_file,omitempty"`
}

// ModelConfig configures the language-model service.
type ModelConfig struct {
	BaseURL         string   `yaml:"base_url"`
	APIKeyEnv       string   `yaml:"api_key_env"`
	Model           string   `yaml:"model"`
	TimeoutSecs     int      `yaml:"timeout_secs"`
	MaxOutputTokens int      `yaml:"max_output_tokens"`
	Temperature     float64  `yaml:"temperature"`
	StopSequences   []string `yaml:"stop_sequences,omitempty"`
}

// RetrievalConfig holds the retrieval defaults handed to the engine.
type RetrievalConfig struct {
	TopK             int     `yaml:"top_k"`
	MinScore         float64 `yaml:"min_score"`
	MaxContextLength int     `yaml:"max_context_length"`
}

// RetryConfig bounds a retry loop in attempts and wall-clock time.
type RetryConfig struct {
	MaxAttempts      int `yaml:"max_attempts"`
	InitialBackoffMs int `yaml:"initial_backoff_ms"`
	MaxBackoffMs     int `yaml:"max_backoff_ms"`
	MaxElapsedSecs   int `yaml:"max_elapsed_secs"`
}

// Policy converts the config values into a retry policy.
func (r RetryConfig) Policy() retry.Policy {
	return retry.Policy{
		MaxAttempts:     r.MaxAttempts,
		InitialInterval: time.Duration(r.InitialBackoffMs) * time.Millisecond,
		MaxInterval:     time.Duration(r.MaxBackoffMs) * time.Millisecond,
		MaxElapsedTime:  time.Duration(r.MaxElapsedSecs) * time.Second,
	}
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	LogLevel        string            `yaml:"log_level"`
	Embedder        EmbedderConfig    `yaml:"embedder"`
	VectorStore     VectorStoreConfig `yaml:"vector_store"`
	Model           ModelConfig       `yaml:"model"`
	Retrieval       RetrievalConfig   `yaml:"retrieval"`
	RetrievalRetry  RetryConfig       `yaml:"retrieval_retry"`
	GenerationRetry RetryConfig       `yaml:"generation_retry"`
}

// Load reads a config from a specified path. If the file does not exist,
// returns defaults.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return defaultConfig(), nil
		}
		return nil, err
	}
	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	applyConfigDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadDefault tries ./config.yaml first, then
// ~/.config/research-rag/config.yaml. If neither exists, it writes defaults
// to the user path and returns them.
func LoadDefault() (*AppConfig, string, error) {
	cwdPath := "config.yaml"
	if _, err := os.Stat(cwdPath); err == nil {
		cfg, err := Load(cwdPath)
		return cfg, cwdPath, err
	}
	userPath, err := defaultUserConfigPath()
	if err != nil {
		return nil, "", err
	}
	if _, err := os.Stat(userPath); err == nil {
		cfg, err := Load(userPath)
		return cfg, userPath, err
	}
	cfg := defaultConfig()
	if err := Save(userPath, cfg); err != nil {
		return nil, "", err
	}
	return cfg, userPath, nil
}

// Save writes the config to the given path, creating directories as needed.
func Save(path string, cfg *AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Validate rejects settings the pipeline cannot run with.
func (c *AppConfig) Validate() error {
	if c.Embedder.Dimension <= 0 {
		return fmt.Errorf("embedder.dimension must be positive")
	}
	if c.Retrieval.TopK <= 0 {
		return fmt.Errorf("retrieval.top_k must be positive")
	}
	if c.Retrieval.MaxContextLength <= 0 {
		return fmt.Errorf("retrieval.max_context_length must be positive")
	}
	if c.Model.Temperature < 0 || c.Model.Temperature > 1 {
		return fmt.Errorf("model.temperature must be in [0,1]")
	}
	switch c.VectorStore.Type {
	case "qdrant":
		if c.VectorStore.Qdrant == nil {
			return fmt.Errorf("vector_store.qdrant section missing")
		}
	case "memory":
		if c.VectorStore.SeedFile == "" {
			return fmt.Errorf("vector_store.seed_file required for the memory backend")
		}
	default:
		return fmt.Errorf("unknown vector store type %q", c.VectorStore.Type)
	}
	return nil
}

func defaultUserConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "research-rag", "config.yaml"), nil
}

func defaultConfig() *AppConfig {
	cfg := &AppConfig{
		LogLevel: "info",
		Embedder: EmbedderConfig{
			APIKeyEnv: "EMBEDDING_API_KEY",
			Model:     "text-embedding-3-small",
			Dimension: 1536,
		},
		VectorStore: VectorStoreConfig{
			Type: "qdrant",
			Qdrant: &QdrantConfig{
				Host:       "localhost",
				Port:       6334,
				Collection: "arxiv_documents",
			},
		},
		Model: ModelConfig{
			APIKeyEnv:       "MODEL_API_KEY",
			Model:           "meta/llama3-8b-instruct",
			MaxOutputTokens: 2000,
			Temperature:     0.3,
		},
		Retrieval: RetrievalConfig{
			TopK:             5,
			MinScore:         0.5,
			MaxContextLength: 14000,
		},
	}
	applyConfigDefaults(cfg)
	return cfg
}

func applyConfigDefaults(cfg *AppConfig) {
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.Embedder.APIKeyEnv == "" {
		cfg.Embedder.APIKeyEnv = "EMBEDDING_API_KEY"
	}
	if cfg.Embedder.TimeoutSecs == 0 {
		cfg.Embedder.TimeoutSecs = 30
	}
	if cfg.Model.APIKeyEnv == "" {
		cfg.Model.APIKeyEnv = "MODEL_API_KEY"
	}
	if cfg.Model.TimeoutSecs == 0 {
		cfg.Model.TimeoutSecs = 120
	}
	if cfg.Model.MaxOutputTokens == 0 {
		cfg.Model.MaxOutputTokens = 2000
	}
	if cfg.VectorStore.Type == "" {
		cfg.VectorStore.Type = "qdrant"
	}
	if cfg.VectorStore.Qdrant != nil && cfg.VectorStore.Qdrant.TimeoutSecs == 0 {
		cfg.VectorStore.Qdrant.TimeoutSecs = 15
	}
	if cfg.Retrieval.TopK == 0 {
		cfg.Retrieval.TopK = 5
	}
	if cfg.Retrieval.MaxContextLength == 0 {
		cfg.Retrieval.MaxContextLength = 14000
	}
	applyRetryDefaults(&cfg.RetrievalRetry)
	applyRetryDefaults(&cfg.GenerationRetry)
}

func applyRetryDefaults(r *RetryConfig) {
	if r.MaxAttempts == 0 {
		r.MaxAttempts = 3
	}
	if r.InitialBackoffMs == 0 {
		r.InitialBackoffMs = 200
	}
	if r.MaxBackoffMs == 0 {
		r.MaxBackoffMs = 5000
	}
	if r.MaxElapsedSecs == 0 {
		r.MaxElapsedSecs = 30
	}
}
