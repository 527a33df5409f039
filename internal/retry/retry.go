// Package retry provides the bounded exponential-backoff policy shared by
// the retriever and the model client.
package retry

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Policy bounds a retry loop in both attempts and wall-clock time.
// The zero value is not usable; construct one from configuration.
type Policy struct {
	MaxAttempts     int
	InitialInterval time.Duration
	MaxInterval     time.Duration
	MaxElapsedTime  time.Duration
}

// DefaultPolicy mirrors the service defaults: three attempts, 200ms initial
// backoff capped at 5s, 30s total.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:     3,
		InitialInterval: 200 * time.Millisecond,
		MaxInterval:     5 * time.Second,
		MaxElapsedTime:  30 * time.Second,
	}
}

// Do runs op until it succeeds, returns a non-transient error, exhausts the
// attempt ceiling, or the context is cancelled. It returns the number of
// retries consumed (attempts minus one) alongside the final error.
func (p Policy) Do(ctx context.Context, op func(context.Context) error) (int, error) {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	bo := backoff.NewExponentialBackOff()
	if p.InitialInterval > 0 {
		bo.InitialInterval = p.InitialInterval
	}
	if p.MaxInterval > 0 {
		bo.MaxInterval = p.MaxInterval
	}
	bo.MaxElapsedTime = p.MaxElapsedTime

	retries := 0
	wrapped := func() error {
		err := op(ctx)
		if err == nil {
			return nil
		}
		if !IsTransient(err) {
			return backoff.Permanent(err)
		}
		return err
	}
	notify := func(error, time.Duration) { retries++ }

	b := backoff.WithContext(backoff.WithMaxRetries(bo, uint64(attempts-1)), ctx)
	err := backoff.RetryNotify(wrapped, b, notify)
	return retries, err
}

// transientError marks a failure worth retrying.
type transientError struct {
	err error
}

func (e *transientError) Error() string { return e.err.Error() }

func (e *transientError) Unwrap() error { return e.err }

// Transient marks err as retryable. Nil stays nil.
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return &transientError{err: err}
}

// IsTransient reports whether err was marked retryable anywhere in its
// chain.
func IsTransient(err error) bool {
	var t *transientError
	return errors.As(err, &t)
}
