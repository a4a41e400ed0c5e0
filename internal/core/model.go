package core

import (
	"time"
)

// EmailCandidate is an immutable (text, score) pair produced at each scoring
// step. Candidates are never mutated, only superseded by the next attempt.
type EmailCandidate struct {
	Text      string
	SpamScore float64
}

// StrategyID identifies an entry in the rewrite strategy catalogue.
type StrategyID string

const (
	StrategyUrgencyCleanup       StrategyID = "urgency_cleanup"
	StrategyPromotionalSoftening StrategyID = "promotional_softening"
	StrategyProfessionalRewrite  StrategyID = "professional_rewrite"
)

// StrategyDirective is the instruction payload guiding how the rewrite
// service should alter the email for a given attempt.
type StrategyDirective struct {
	ID           StrategyID
	Instructions string
}

// RefinementAttempt records one full cycle of strategy selection, rewrite
// and re-scoring. Attempts are append-only and owned by a single run.
type RefinementAttempt struct {
	Index     int // 1-based
	Strategy  StrategyID
	Candidate EmailCandidate
	Timestamp time.Time
}

// TerminationReason explains why a refinement run ended.
type TerminationReason string

const (
	AcceptedInitial               TerminationReason = "accepted_initial"
	AcceptedRefined               TerminationReason = "accepted_refined"
	AcceptedByImprovementFallback TerminationReason = "accepted_by_improvement_fallback"
	ExhaustedAttempts             TerminationReason = "exhausted_attempts"
	ServiceFailure                TerminationReason = "service_failure"
)

// RefinementOutcome is the terminal record of one refinement run. Final is
// always the lowest-score candidate observed, including the original.
type RefinementOutcome struct {
	Success  bool
	Final    EmailCandidate
	Attempts []RefinementAttempt
	Reason   TerminationReason
}

// ScoreEntry is a cached classifier result. Scores are deterministic for a
// fixed model version, so entries stay valid until the model changes or the
// TTL passes.
type ScoreEntry struct {
	TextHash  string
	Score     float64
	Model     string
	ScoredAt  time.Time
	ExpiresAt time.Time
}

// Recommendation is the human-facing action suggested for an email.
type Recommendation string

const (
	RecommendAccept        Recommendation = "accept"
	RecommendAcceptRefined Recommendation = "accept_refined"
	RecommendRewrite       Recommendation = "rewrite"
	RecommendStillRisky    Recommendation = "still_risky"
)

// RefinementReport summarizes the refinement portion of a processed email.
type RefinementReport struct {
	Success      bool
	RefinedEmail string
	RefinedScore *float64
	Attempts     int
	FinalScore   *float64
	Error        string
}

// ProcessResult is the full result of processing a single email.
type ProcessResult struct {
	OriginalEmail  string
	SpamScore      float64
	IsSpam         bool
	Recommendation Recommendation
	Refinement     RefinementReport
	Outcome        *RefinementOutcome
	ProcessedAt    time.Time
}
