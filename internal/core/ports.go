package core

import (
	"context"
)

// ScoreProvider wraps the spam classifier. Implementations are expected to
// be deterministic and side-effect free for a fixed model version.
type ScoreProvider interface {
	// Score returns the probability in [0,1] that text is spam.
	Score(ctx context.Context, text string) (float64, error)
}

// RewriteClient invokes the external generative service. Two calls with
// identical input may yield different output; callers must not assume
// determinism.
type RewriteClient interface {
	// Rewrite returns a candidate rewrite of email following the directive.
	// Failures are wrapped as TransientError or PermanentError.
	Rewrite(ctx context.Context, email string, directive StrategyDirective) (string, error)
}

// ScoreCache defines the interface for caching classifier scores keyed by
// the hash of the normalized text.
type ScoreCache interface {
	// Get retrieves a cached entry for a text hash.
	Get(ctx context.Context, textHash string) (*ScoreEntry, error)

	// Set stores a cache entry.
	Set(ctx context.Context, entry *ScoreEntry) error

	// Delete removes a cache entry.
	Delete(ctx context.Context, textHash string) error

	// Cleanup removes expired entries.
	Cleanup(ctx context.Context) error
}

// CallGate paces calls to the rewrite service. A single instance is shared
// across all concurrent refinement runs to protect the external quota.
type CallGate interface {
	// Acquire blocks until the next call slot is available.
	Acquire(ctx context.Context) error

	// Backoff blocks for the exponential backoff delay of the given
	// zero-based retry count.
	Backoff(ctx context.Context, retry int) error
}
