// Package engine orchestrates the answer pipeline: retrieval, context
// formatting and generation, with metrics aggregated into a QueryResult.
package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"research-rag/internal/domain"
	"research-rag/internal/formatter"
)

// Options override the engine defaults for a single question. Zero values
// fall back to the defaults the engine was constructed with.
type Options struct {
	TopK             int
	MaxContextLength int
	Generation       *domain.GenerationConfig
}

// Defaults are the construction-time settings applied when Options leave a
// field unset.
type Defaults struct {
	TopK             int
	MaxContextLength int
	Generation       domain.GenerationConfig
}

// Engine wires the retriever and the model client into the full pipeline.
// It holds no per-query state; concurrent Answer calls are independent.
type Engine struct {
	retriever domain.SourceRetriever
	model     domain.ModelClient
	defaults  Defaults
	log       *logrus.Entry
}

// New builds an engine around the given collaborators.
func New(retriever domain.SourceRetriever, model domain.ModelClient, defaults Defaults, log *logrus.Entry) (*Engine, error) {
	if defaults.TopK <= 0 {
		return nil, fmt.Errorf("%w: default top_k must be positive", domain.ErrValidation)
	}
	if defaults.MaxContextLength <= 0 {
		return nil, fmt.Errorf("%w: default max context length must be positive", domain.ErrValidation)
	}
	if err := defaults.Generation.Validate(); err != nil {
		return nil, err
	}
	return &Engine{
		retriever: retriever,
		model:     model,
		defaults:  defaults,
		log:       log.WithField("component", "engine"),
	}, nil
}

// Answer runs the question through retrieval, formatting and generation and
// returns the assembled QueryResult. A retrieval failure surfaces as-is
// rather than degrading to zero sources; zero sources from a healthy store
// still proceed to generation with an answer-from-general-knowledge prompt.
// Failed stages yield no QueryResult; the returned error names the stage.
func (e *Engine) Answer(ctx context.Context, question string, opts Options) (*domain.QueryResult, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, fmt.Errorf("%w: empty question", domain.ErrValidation)
	}

	topK := opts.TopK
	if topK == 0 {
		topK = e.defaults.TopK
	}
	maxContext := opts.MaxContextLength
	if maxContext == 0 {
		maxContext = e.defaults.MaxContextLength
	}
	gen := e.defaults.Generation
	if opts.Generation != nil {
		gen = *opts.Generation
	}

	log := e.log.WithField("query_id", uuid.NewString())
	log.WithField("top_k", topK).Info("answering question")

	sources, searchMetrics, err := e.retriever.Retrieve(ctx, question, topK)
	if err != nil {
		return nil, &domain.StageError{Stage: "retrieval", Err: err}
	}
	if len(sources) == 0 {
		log.Warn("no sources passed the relevance threshold, answering from general knowledge")
	}

	prompt := formatter.Format(question, sources, maxContext)

	answer, modelMetrics, err := e.model.Generate(ctx, prompt, gen)
	if err != nil {
		return nil, &domain.StageError{Stage: "generation", Err: err}
	}

	result := &domain.QueryResult{
		Question:      question,
		Answer:        answer,
		Sources:       sources,
		SearchMetrics: searchMetrics,
		ModelMetrics:  modelMetrics,
	}

	log.WithFields(logrus.Fields{
		"sources":  len(result.Sources),
		"total_ms": result.TotalLatency().Milliseconds(),
		"retries":  modelMetrics.Retries,
	}).Info("question answered")

	return result, nil
}
