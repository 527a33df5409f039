package domain

import "errors"

// Error kinds raised by the pipeline. Components wrap their failures with
// the matching kind so callers can distinguish stages with errors.Is.
var (
	// ErrValidation marks bad caller input. Never retried.
	ErrValidation = errors.New("invalid input")
	// ErrEmbedding marks a remote embedding-service failure after retries.
	ErrEmbedding = errors.New("embedding failed")
	// ErrRetrieval marks a vector-store failure after retries.
	ErrRetrieval = errors.New("retrieval failed")
	// ErrGeneration marks a model-service failure, either non-transient or
	// after retries.
	ErrGeneration = errors.New("generation failed")
	// ErrFormatting should be unreachable given valid inputs.
	ErrFormatting = errors.New("formatting failed")
)

// StageError attaches the pipeline stage to an error propagated out of the
// engine, so "no answer because retrieval failed" and "no answer because
// generation failed" stay distinguishable.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string { return e.Stage + " stage: " + e.Err.Error() }

func (e *StageError) Unwrap() error { return e.Err }
