package main

import (
	"context"
	"flag"
	"log"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"research-rag/internal/config"
	"research-rag/internal/domain"
	"research-rag/internal/embedding/openai"
	"research-rag/internal/engine"
	llmopenai "research-rag/internal/llm/openai"
	"research-rag/internal/retriever"
	"research-rag/internal/tui"
	"research-rag/internal/vectorstore/memory"
	"research-rag/internal/vectorstore/qdrant"
)

func main() {
	_ = godotenv.Load()

	var cfgPath string
	flag.StringVar(&cfgPath, "config", "", "Path to YAML config file (optional; uses ~/.config/research-rag/config.yaml if not provided)")
	flag.Parse()

	var cfg *config.AppConfig
	var err error
	if cfgPath == "" {
		cfg, _, err = config.LoadDefault()
	} else {
		cfg, err = config.Load(cfgPath)
	}
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := logrus.New()
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.Fatalf("invalid log level %q: %v", cfg.LogLevel, err)
	}
	logger.SetLevel(level)
	logEntry := logrus.NewEntry(logger)

	// Assemble components
	embedder, err := openai.NewClient(openai.Config{
		BaseURL:   cfg.Embedder.BaseURL,
		APIKeyEnv: cfg.Embedder.APIKeyEnv,
		Model:     cfg.Embedder.Model,
		Dimension: cfg.Embedder.Dimension,
		Timeout:   time.Duration(cfg.Embedder.TimeoutSecs) * time.Second,
	}, logEntry)
	if err != nil {
		log.Fatalf("embedder init failed: %v", err)
	}

	var index domain.VectorIndex
	switch cfg.VectorStore.Type {
	case "qdrant":
		store, err := qdrant.New(context.Background(), qdrant.Config{
			Host:       cfg.VectorStore.Qdrant.Host,
			Port:       cfg.VectorStore.Qdrant.Port,
			Collection: cfg.VectorStore.Qdrant.Collection,
			Timeout:    time.Duration(cfg.VectorStore.Qdrant.TimeoutSecs) * time.Second,
		}, logEntry)
		if err != nil {
			log.Fatalf("qdrant init failed: %v", err)
		}
		defer store.Close()
		index = store
	case "memory":
		store, err := memory.LoadFile(cfg.VectorStore.SeedFile)
		if err != nil {
			log.Fatalf("memory store init failed: %v", err)
		}
		index = store
	default:
		log.Fatalf("unknown vector store: %s", cfg.VectorStore.Type)
	}

	model, err := llmopenai.NewClient(llmopenai.Config{
		BaseURL:   cfg.Model.BaseURL,
		APIKeyEnv: cfg.Model.APIKeyEnv,
		Model:     cfg.Model.Model,
		Timeout:   time.Duration(cfg.Model.TimeoutSecs) * time.Second,
		Retry:     cfg.GenerationRetry.Policy(),
	}, logEntry)
	if err != nil {
		log.Fatalf("model client init failed: %v", err)
	}

	ret := retriever.New(embedder, index, cfg.Retrieval.MinScore, cfg.RetrievalRetry.Policy(), logEntry)

	eng, err := engine.New(ret, model, engine.Defaults{
		TopK:             cfg.Retrieval.TopK,
		MaxContextLength: cfg.Retrieval.MaxContextLength,
		Generation: domain.GenerationConfig{
			MaxOutputTokens: cfg.Model.MaxOutputTokens,
			Temperature:     cfg.Model.Temperature,
			StopSequences:   cfg.Model.StopSequences,
		},
	}, logEntry)
	if err != nil {
		log.Fatalf("engine init failed: %v", err)
	}

	m := tui.New(eng)
	if _, err := tea.NewProgram(m).Run(); err != nil {
		log.Fatal(err)
	}
}
