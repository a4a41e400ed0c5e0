package core

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"
)

// GuardService is the single operation this core exposes to its callers:
// score an email, refine it when the score is too high, and report a
// recommendation. One service instance serves concurrent requests; the
// shared call gate inside the orchestrator is the only cross-run state.
type GuardService struct {
	scorer        ScoreProvider
	orchestrator  *Orchestrator
	logger        *zap.Logger
	spamThreshold float64
	cfg           RefinementConfig
}

// NewGuardService creates a new email guard service. spamThreshold only
// controls the IsSpam flag; the refinement loop is driven solely by the
// orchestrator's accept threshold.
func NewGuardService(
	scorer ScoreProvider,
	orchestrator *Orchestrator,
	logger *zap.Logger,
	spamThreshold float64,
	cfg RefinementConfig,
) *GuardService {
	return &GuardService{
		scorer:        scorer,
		orchestrator:  orchestrator,
		logger:        logger,
		spamThreshold: spamThreshold,
		cfg:           cfg,
	}
}

// ProcessOptions carries per-request overrides.
type ProcessOptions struct {
	// AcceptThreshold overrides the configured refinement threshold when
	// non-nil.
	AcceptThreshold *float64
}

// ProcessEmail scores the email, refines it when the score reaches the
// accept threshold and returns the combined result. All terminal states are
// returned as data; the only errors are invalid input and classifier
// failure on the original text.
func (s *GuardService) ProcessEmail(ctx context.Context, content string) (*ProcessResult, error) {
	return s.ProcessEmailWithOptions(ctx, content, ProcessOptions{})
}

// ProcessEmailWithOptions is ProcessEmail with per-request overrides.
func (s *GuardService) ProcessEmailWithOptions(ctx context.Context, content string, opts ProcessOptions) (*ProcessResult, error) {
	if strings.TrimSpace(content) == "" {
		return nil, ErrEmptyEmail
	}

	cfg := s.cfg
	if opts.AcceptThreshold != nil {
		cfg.AcceptThreshold = *opts.AcceptThreshold
	}

	score, err := s.scorer.Score(ctx, content)
	if err != nil {
		return nil, &ScoringError{Err: err}
	}

	result := &ProcessResult{
		OriginalEmail: content,
		SpamScore:     score,
		IsSpam:        score > s.spamThreshold,
		ProcessedAt:   time.Now(),
	}

	s.logger.Info("Email classified",
		zap.Float64("spam_score", score),
		zap.Bool("is_spam", result.IsSpam))

	outcome, err := s.orchestrator.RefineWith(ctx, content, score, cfg)
	if err != nil {
		// Classifier died mid-run. The original score stands, but no
		// refined candidate can be trusted without a score.
		s.logger.Error("Refinement aborted", zap.Error(err))
		result.Recommendation = RecommendRewrite
		result.Refinement = RefinementReport{Error: err.Error()}
		return result, nil
	}

	result.Outcome = outcome
	result.Refinement = buildReport(outcome)
	result.Recommendation = recommend(outcome)
	return result, nil
}

// BatchProcessEmails processes emails independently, preserving input
// order. Entries share nothing besides the rate-limiting gate.
func (s *GuardService) BatchProcessEmails(ctx context.Context, emails []string) ([]*ProcessResult, error) {
	return s.BatchProcessEmailsWithOptions(ctx, emails, ProcessOptions{})
}

// BatchProcessEmailsWithOptions is BatchProcessEmails with per-request
// overrides applied to every entry.
func (s *GuardService) BatchProcessEmailsWithOptions(ctx context.Context, emails []string, opts ProcessOptions) ([]*ProcessResult, error) {
	results := make([]*ProcessResult, 0, len(emails))
	for i, email := range emails {
		s.logger.Info("Processing batch entry",
			zap.Int("index", i+1),
			zap.Int("total", len(emails)))

		result, err := s.ProcessEmailWithOptions(ctx, email, opts)
		if err != nil {
			result = &ProcessResult{
				OriginalEmail:  email,
				Recommendation: RecommendRewrite,
				Refinement:     RefinementReport{Error: err.Error()},
				ProcessedAt:    time.Now(),
			}
		}
		results = append(results, result)
	}
	return results, nil
}

// buildReport flattens an outcome into the caller-facing refinement block.
func buildReport(o *RefinementOutcome) RefinementReport {
	report := RefinementReport{
		Success:  o.Success,
		Attempts: len(o.Attempts),
	}
	if o.Reason == AcceptedInitial {
		return report
	}
	if len(o.Attempts) > 0 {
		final := o.Final.SpamScore
		report.FinalScore = &final
	}
	if o.Success || o.Reason == ExhaustedAttempts {
		// Even a non-accepted best candidate is worth showing for
		// manual review.
		report.RefinedEmail = o.Final.Text
		if len(o.Attempts) > 0 {
			refined := o.Final.SpamScore
			report.RefinedScore = &refined
		}
	}
	return report
}

// recommend maps a termination reason to the human-facing action.
func recommend(o *RefinementOutcome) Recommendation {
	switch o.Reason {
	case AcceptedInitial:
		return RecommendAccept
	case AcceptedRefined, AcceptedByImprovementFallback:
		return RecommendAcceptRefined
	case ExhaustedAttempts:
		return RecommendStillRisky
	default:
		return RecommendRewrite
	}
}
