package core

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"
)

// minRewriteLength is the shortest rewrite output accepted from the
// generative service; anything shorter is treated as a malformed response.
const minRewriteLength = 10

// RefinementConfig carries the tunables of the refinement loop.
type RefinementConfig struct {
	// AcceptThreshold is the score below which an email is safe to send.
	AcceptThreshold float64
	// MaxAttempts bounds the number of rewrite cycles per run.
	MaxAttempts int
	// ImprovementRatio is the minimum fractional score reduction from the
	// original required to accept a non-converged candidate as a fallback.
	ImprovementRatio float64
	// MaxRetries caps transient-failure retries within a single attempt.
	MaxRetries int
	// CallTimeout bounds each individual rewrite or scoring call.
	CallTimeout time.Duration
}

// DefaultRefinementConfig returns the standard loop configuration.
func DefaultRefinementConfig() RefinementConfig {
	return RefinementConfig{
		AcceptThreshold:  0.6,
		MaxAttempts:      5,
		ImprovementRatio: 0.3,
		MaxRetries:       3,
		CallTimeout:      30 * time.Second,
	}
}

// Orchestrator drives the iterative refinement loop: it selects a strategy,
// paces and invokes the rewrite service, re-scores each candidate and
// applies the acceptance policy. One orchestrator may serve concurrent runs;
// all mutable state lives on the stack of Refine.
type Orchestrator struct {
	scorer   ScoreProvider
	rewriter RewriteClient
	gate     CallGate
	selector *StrategySelector
	logger   *zap.Logger
	cfg      RefinementConfig
}

// NewOrchestrator creates a new refinement orchestrator.
func NewOrchestrator(
	scorer ScoreProvider,
	rewriter RewriteClient,
	gate CallGate,
	selector *StrategySelector,
	logger *zap.Logger,
	cfg RefinementConfig,
) *Orchestrator {
	return &Orchestrator{
		scorer:   scorer,
		rewriter: rewriter,
		gate:     gate,
		selector: selector,
		logger:   logger,
		cfg:      cfg,
	}
}

// Refine runs the refinement loop for an email whose original text has
// already been scored by the caller. The returned outcome always carries the
// lowest-score candidate observed. A non-nil error is returned only for
// invalid input or a classifier failure; rewrite-service breakdown is
// reported as data with reason ServiceFailure.
func (o *Orchestrator) Refine(ctx context.Context, email string, initialScore float64) (*RefinementOutcome, error) {
	return o.RefineWith(ctx, email, initialScore, o.cfg)
}

// RefineWith is Refine with per-run configuration: cfg governs the whole
// run, including the retry cap and per-call timeout. Used by callers that
// override settings for a single request.
func (o *Orchestrator) RefineWith(ctx context.Context, email string, initialScore float64, cfg RefinementConfig) (*RefinementOutcome, error) {
	if strings.TrimSpace(email) == "" {
		return nil, ErrEmptyEmail
	}

	original := EmailCandidate{Text: email, SpamScore: initialScore}

	if initialScore < cfg.AcceptThreshold {
		o.logger.Debug("Initial score below threshold, no refinement needed",
			zap.Float64("score", initialScore),
			zap.Float64("threshold", cfg.AcceptThreshold))
		return &RefinementOutcome{
			Success:  true,
			Final:    original,
			Attempts: nil,
			Reason:   AcceptedInitial,
		}, nil
	}

	best := original
	current := original
	attempts := make([]RefinementAttempt, 0, cfg.MaxAttempts)
	history := []float64{initialScore}

	for index := 1; index <= cfg.MaxAttempts; index++ {
		directive := o.selector.Select(index, history)
		o.logger.Info("Starting refinement attempt",
			zap.Int("attempt", index),
			zap.String("strategy", string(directive.ID)),
			zap.Float64("current_score", current.SpamScore))

		text, err := o.rewriteWithRetry(ctx, current.Text, directive, cfg)
		if err != nil {
			o.logger.Error("Rewrite service failed, aborting run",
				zap.Int("attempt", index),
				zap.Error(err))
			return &RefinementOutcome{
				Success:  false,
				Final:    best,
				Attempts: attempts,
				Reason:   ServiceFailure,
			}, nil
		}

		score, err := o.score(ctx, text, cfg)
		if err != nil {
			return nil, &ScoringError{Err: err}
		}

		candidate := EmailCandidate{Text: text, SpamScore: score}
		attempts = append(attempts, RefinementAttempt{
			Index:     index,
			Strategy:  directive.ID,
			Candidate: candidate,
			Timestamp: time.Now(),
		})
		history = append(history, score)
		if score < best.SpamScore {
			best = candidate
		}

		o.logger.Info("Refinement attempt scored",
			zap.Int("attempt", index),
			zap.Float64("score", score),
			zap.Float64("best_score", best.SpamScore))

		if score < cfg.AcceptThreshold {
			return &RefinementOutcome{
				Success:  true,
				Final:    candidate,
				Attempts: attempts,
				Reason:   AcceptedRefined,
			}, nil
		}
		current = candidate
	}

	improvement := (initialScore - best.SpamScore) / initialScore
	if improvement >= cfg.ImprovementRatio {
		o.logger.Info("Accepting best candidate by improvement fallback",
			zap.Float64("improvement", improvement),
			zap.Float64("required", cfg.ImprovementRatio))
		return &RefinementOutcome{
			Success:  true,
			Final:    best,
			Attempts: attempts,
			Reason:   AcceptedByImprovementFallback,
		}, nil
	}

	o.logger.Warn("Refinement exhausted without sufficient improvement",
		zap.Float64("initial_score", initialScore),
		zap.Float64("best_score", best.SpamScore),
		zap.Float64("improvement", improvement))
	return &RefinementOutcome{
		Success:  false,
		Final:    best,
		Attempts: attempts,
		Reason:   ExhaustedAttempts,
	}, nil
}

// rewriteWithRetry performs the rewrite call for one logical attempt,
// retrying transient failures with exponential backoff. The retry count
// resets per attempt, not across the loop.
func (o *Orchestrator) rewriteWithRetry(ctx context.Context, email string, directive StrategyDirective, cfg RefinementConfig) (string, error) {
	for retry := 0; ; retry++ {
		if err := o.gate.Acquire(ctx); err != nil {
			return "", err
		}

		text, err := o.rewrite(ctx, email, directive, cfg)
		if err == nil {
			return text, nil
		}
		if IsPermanent(err) || !IsTransient(err) {
			return "", err
		}
		if retry >= cfg.MaxRetries-1 {
			return "", err
		}

		o.logger.Warn("Transient rewrite failure, backing off",
			zap.Int("retry", retry),
			zap.Error(err))
		if err := o.gate.Backoff(ctx, retry); err != nil {
			return "", err
		}
	}
}

// rewrite bounds a single rewrite call by the configured timeout and
// validates the response. An empty or trivially short rewrite is malformed
// output and counts as transient.
func (o *Orchestrator) rewrite(ctx context.Context, email string, directive StrategyDirective, cfg RefinementConfig) (string, error) {
	callCtx, cancel := callContext(ctx, cfg)
	defer cancel()

	text, err := o.rewriter.Rewrite(callCtx, email, directive)
	if err != nil {
		return "", err
	}
	text = strings.TrimSpace(text)
	if len(text) < minRewriteLength {
		return "", &TransientError{Err: errShortRewrite}
	}
	return text, nil
}

// score bounds a single classifier call by the configured timeout.
func (o *Orchestrator) score(ctx context.Context, text string, cfg RefinementConfig) (float64, error) {
	callCtx, cancel := callContext(ctx, cfg)
	defer cancel()
	return o.scorer.Score(callCtx, text)
}

func callContext(ctx context.Context, cfg RefinementConfig) (context.Context, context.CancelFunc) {
	if cfg.CallTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, cfg.CallTimeout)
}
