// Package textgen defines the pluggable text-generation backend behind a
// narrow interface: instruction string in, body text out. The generation
// engine owns everything else (variation fan-out, hashtags, scoring, post
// timing), so backends stay trivially swappable between a hosted model and
// the deterministic template renderer used in tests and as a default.
package textgen

import (
	"context"
	"errors"
)

// Backend produces body text for one generation instruction. Implementations
// must be safe for concurrent use: variations within a request fan out in
// parallel.
type Backend interface {
	// Name identifies the backend in GeneratedContent provenance.
	Name() string
	// Generate returns body text for the instruction. Transient failures
	// (quota, timeout) are wrapped with Transient so the caller can degrade
	// a single variation instead of failing the batch.
	Generate(ctx context.Context, instruction string) (string, error)
}

type transientError struct{ err error }

func (e *transientError) Error() string { return e.err.Error() }
func (e *transientError) Unwrap() error { return e.err }

// Transient marks err as retryable. A nil err stays nil.
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return &transientError{err: err}
}

// IsTransient reports whether err (or anything it wraps) was marked
// retryable, or is a context timeout.
func IsTransient(err error) bool {
	var te *transientError
	if errors.As(err, &te) {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded)
}
