package core

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// scriptedScorer returns scores in order, then repeats the last one.
type scriptedScorer struct {
	scores []float64
	err    error
	calls  int
}

func (s *scriptedScorer) Score(ctx context.Context, text string) (float64, error) {
	if s.err != nil {
		return 0, s.err
	}
	idx := s.calls
	if idx >= len(s.scores) {
		idx = len(s.scores) - 1
	}
	s.calls++
	return s.scores[idx], nil
}

// scriptedRewriter returns responses in order and records every input it was
// given. A nil entry in errs means the call succeeds.
type scriptedRewriter struct {
	responses []string
	errs      []error
	inputs    []string
	calls     int
}

func (r *scriptedRewriter) Rewrite(ctx context.Context, email string, directive StrategyDirective) (string, error) {
	r.inputs = append(r.inputs, email)
	idx := r.calls
	r.calls++
	if idx < len(r.errs) && r.errs[idx] != nil {
		return "", r.errs[idx]
	}
	if idx >= len(r.responses) {
		idx = len(r.responses) - 1
	}
	return r.responses[idx], nil
}

// recordingGate satisfies CallGate without sleeping and records backoff
// retry counts.
type recordingGate struct {
	acquires int
	backoffs []int
}

func (g *recordingGate) Acquire(ctx context.Context) error {
	g.acquires++
	return ctx.Err()
}

func (g *recordingGate) Backoff(ctx context.Context, retry int) error {
	g.backoffs = append(g.backoffs, retry)
	return ctx.Err()
}

func testConfig() RefinementConfig {
	return RefinementConfig{
		AcceptThreshold:  0.6,
		MaxAttempts:      5,
		ImprovementRatio: 0.3,
		MaxRetries:       3,
		CallTimeout:      time.Second,
	}
}

func newTestOrchestrator(scorer ScoreProvider, rewriter RewriteClient, gate CallGate, cfg RefinementConfig) *Orchestrator {
	return NewOrchestrator(scorer, rewriter, gate, NewStrategySelector(), zap.NewNop(), cfg)
}

func TestRefineAcceptsCleanEmailWithoutRewriting(t *testing.T) {
	rewriter := &scriptedRewriter{}
	gate := &recordingGate{}
	o := newTestOrchestrator(&scriptedScorer{}, rewriter, gate, testConfig())

	outcome, err := o.Refine(context.Background(), "hello team, meeting at noon", 0.2)
	require.NoError(t, err)

	assert.True(t, outcome.Success)
	assert.Equal(t, AcceptedInitial, outcome.Reason)
	assert.Empty(t, outcome.Attempts)
	assert.Equal(t, 0.2, outcome.Final.SpamScore)
	assert.Equal(t, 0, rewriter.calls, "no rewrite call should be made for an accepted email")
	assert.Equal(t, 0, gate.acquires)
}

func TestRefineConvergesWhenScoreDropsBelowThreshold(t *testing.T) {
	scorer := &scriptedScorer{scores: []float64{0.7, 0.4}}
	rewriter := &scriptedRewriter{responses: []string{
		"first rewrite of the email body",
		"second rewrite of the email body",
	}}
	o := newTestOrchestrator(scorer, rewriter, &recordingGate{}, testConfig())

	outcome, err := o.Refine(context.Background(), "BUY NOW!!! limited offer", 0.9)
	require.NoError(t, err)

	assert.True(t, outcome.Success)
	assert.Equal(t, AcceptedRefined, outcome.Reason)
	require.Len(t, outcome.Attempts, 2)
	assert.Equal(t, 0.4, outcome.Final.SpamScore)
	assert.Equal(t, "second rewrite of the email body", outcome.Final.Text)
}

func TestRefineFeedsLatestCandidateIntoNextRewrite(t *testing.T) {
	scorer := &scriptedScorer{scores: []float64{0.8, 0.7}}
	rewriter := &scriptedRewriter{responses: []string{
		"first rewrite of the email body",
		"second rewrite of the email body",
	}}
	cfg := testConfig()
	cfg.MaxAttempts = 2
	o := newTestOrchestrator(scorer, rewriter, &recordingGate{}, cfg)

	_, err := o.Refine(context.Background(), "original spammy text here", 0.9)
	require.NoError(t, err)

	require.Len(t, rewriter.inputs, 2)
	assert.Equal(t, "original spammy text here", rewriter.inputs[0])
	assert.Equal(t, "first rewrite of the email body", rewriter.inputs[1])
}

func TestRefineImprovementFallbackAcceptsBestCandidate(t *testing.T) {
	// Never below 0.6, but the best drops 0.9 -> 0.62 which clears the
	// 30% improvement bar.
	scorer := &scriptedScorer{scores: []float64{0.8, 0.62}}
	rewriter := &scriptedRewriter{responses: []string{
		"first rewrite of the email body",
		"second rewrite of the email body",
	}}
	cfg := testConfig()
	cfg.MaxAttempts = 2
	o := newTestOrchestrator(scorer, rewriter, &recordingGate{}, cfg)

	outcome, err := o.Refine(context.Background(), "WIN A FREE CRUISE TODAY", 0.9)
	require.NoError(t, err)

	assert.True(t, outcome.Success)
	assert.Equal(t, AcceptedByImprovementFallback, outcome.Reason)
	assert.Equal(t, 0.62, outcome.Final.SpamScore)
	assert.Len(t, outcome.Attempts, 2)
}

func TestRefineExhaustsAttemptsWithoutSufficientImprovement(t *testing.T) {
	// Best drops only 0.9 -> 0.8, well short of the 30% fallback bar.
	scorer := &scriptedScorer{scores: []float64{0.85, 0.8}}
	rewriter := &scriptedRewriter{responses: []string{
		"first rewrite of the email body",
		"second rewrite of the email body",
	}}
	cfg := testConfig()
	cfg.MaxAttempts = 2
	o := newTestOrchestrator(scorer, rewriter, &recordingGate{}, cfg)

	outcome, err := o.Refine(context.Background(), "CLICK HERE FOR FREE MONEY", 0.9)
	require.NoError(t, err)

	assert.False(t, outcome.Success)
	assert.Equal(t, ExhaustedAttempts, outcome.Reason)
	assert.Equal(t, 0.8, outcome.Final.SpamScore, "outcome must carry the best candidate seen")
}

func TestRefineTracksBestAcrossRegressions(t *testing.T) {
	// Scores go 0.7, 0.65, 0.72: best must stay at 0.65 even though the
	// last attempt regressed.
	scorer := &scriptedScorer{scores: []float64{0.7, 0.65, 0.72}}
	rewriter := &scriptedRewriter{responses: []string{
		"first rewrite of the email body",
		"second rewrite of the email body",
		"third rewrite of the email body",
	}}
	cfg := testConfig()
	cfg.MaxAttempts = 3
	o := newTestOrchestrator(scorer, rewriter, &recordingGate{}, cfg)

	outcome, err := o.Refine(context.Background(), "limited time offer act now", 0.9)
	require.NoError(t, err)

	assert.Equal(t, ExhaustedAttempts, outcome.Reason)
	assert.Equal(t, 0.65, outcome.Final.SpamScore)
	assert.Equal(t, "second rewrite of the email body", outcome.Final.Text)
}

func TestRefineRetriesTransientFailuresWithBackoff(t *testing.T) {
	scorer := &scriptedScorer{scores: []float64{0.4}}
	rewriter := &scriptedRewriter{
		responses: []string{"", "", "a successful rewrite at last"},
		errs: []error{
			&TransientError{Err: errors.New("rate limited")},
			&TransientError{Err: errors.New("timeout")},
			nil,
		},
	}
	gate := &recordingGate{}
	o := newTestOrchestrator(scorer, rewriter, gate, testConfig())

	outcome, err := o.Refine(context.Background(), "spammy text to refine now", 0.9)
	require.NoError(t, err)

	assert.True(t, outcome.Success)
	assert.Equal(t, AcceptedRefined, outcome.Reason)
	assert.Equal(t, 3, rewriter.calls)
	assert.Equal(t, []int{0, 1}, gate.backoffs, "backoff retry counts must restart at zero")
	assert.Equal(t, 3, gate.acquires, "every rewrite call must pass through the gate")
}

func TestRefineAbortsAfterRetriesExhausted(t *testing.T) {
	scorer := &scriptedScorer{scores: []float64{0.4}}
	rewriter := &scriptedRewriter{
		responses: []string{"", "", ""},
		errs: []error{
			&TransientError{Err: errors.New("timeout")},
			&TransientError{Err: errors.New("timeout")},
			&TransientError{Err: errors.New("timeout")},
		},
	}
	gate := &recordingGate{}
	o := newTestOrchestrator(scorer, rewriter, gate, testConfig())

	outcome, err := o.Refine(context.Background(), "spammy text to refine now", 0.9)
	require.NoError(t, err)

	assert.False(t, outcome.Success)
	assert.Equal(t, ServiceFailure, outcome.Reason)
	assert.Equal(t, 3, rewriter.calls, "three retries then give up")
	assert.Equal(t, 0.9, outcome.Final.SpamScore, "best so far is the original when nothing scored")
	assert.Empty(t, outcome.Attempts)
}

func TestRefinePermanentFailureSkipsRetries(t *testing.T) {
	rewriter := &scriptedRewriter{
		responses: []string{""},
		errs:      []error{&PermanentError{Err: errors.New("invalid api key")}},
	}
	gate := &recordingGate{}
	o := newTestOrchestrator(&scriptedScorer{}, rewriter, gate, testConfig())

	outcome, err := o.Refine(context.Background(), "spammy text to refine now", 0.9)
	require.NoError(t, err)

	assert.Equal(t, ServiceFailure, outcome.Reason)
	assert.Equal(t, 1, rewriter.calls, "permanent failures must not be retried")
	assert.Empty(t, gate.backoffs)
}

func TestRefineServiceFailurePreservesBestCandidate(t *testing.T) {
	// One good attempt, then the provider dies for good. The outcome
	// still carries the 0.7 candidate.
	scorer := &scriptedScorer{scores: []float64{0.7}}
	rewriter := &scriptedRewriter{
		responses: []string{"first rewrite of the email body", ""},
		errs:      []error{nil, &PermanentError{Err: errors.New("revoked key")}},
	}
	o := newTestOrchestrator(scorer, rewriter, &recordingGate{}, testConfig())

	outcome, err := o.Refine(context.Background(), "spammy text to refine now", 0.9)
	require.NoError(t, err)

	assert.False(t, outcome.Success)
	assert.Equal(t, ServiceFailure, outcome.Reason)
	assert.Equal(t, 0.7, outcome.Final.SpamScore)
	assert.Len(t, outcome.Attempts, 1)
}

func TestRefineTreatsShortRewriteAsTransient(t *testing.T) {
	scorer := &scriptedScorer{scores: []float64{0.4}}
	rewriter := &scriptedRewriter{responses: []string{"ok", "a real rewrite of the body"}}
	gate := &recordingGate{}
	o := newTestOrchestrator(scorer, rewriter, gate, testConfig())

	outcome, err := o.Refine(context.Background(), "spammy text to refine now", 0.9)
	require.NoError(t, err)

	assert.True(t, outcome.Success)
	assert.Equal(t, 2, rewriter.calls, "a too-short response should be retried")
	assert.Equal(t, []int{0}, gate.backoffs)
}

func TestRefineScoringFailureAbortsRun(t *testing.T) {
	scorer := &scriptedScorer{err: errors.New("classifier down")}
	rewriter := &scriptedRewriter{responses: []string{"a rewrite that never gets scored"}}
	o := newTestOrchestrator(scorer, rewriter, &recordingGate{}, testConfig())

	outcome, err := o.Refine(context.Background(), "spammy text to refine now", 0.9)
	require.Error(t, err)
	assert.Nil(t, outcome)

	var scoringErr *ScoringError
	assert.ErrorAs(t, err, &scoringErr)
}

func TestRefineRejectsEmptyEmail(t *testing.T) {
	o := newTestOrchestrator(&scriptedScorer{}, &scriptedRewriter{}, &recordingGate{}, testConfig())

	_, err := o.Refine(context.Background(), "   \n\t ", 0.9)
	assert.ErrorIs(t, err, ErrEmptyEmail)
}

func TestRefineWithHonorsPerRunRetryCap(t *testing.T) {
	rewriter := &scriptedRewriter{
		responses: []string{"", "", ""},
		errs: []error{
			&TransientError{Err: errors.New("timeout")},
			&TransientError{Err: errors.New("timeout")},
			&TransientError{Err: errors.New("timeout")},
		},
	}
	gate := &recordingGate{}
	// Constructed with MaxRetries=3, overridden to 1 for this run.
	o := newTestOrchestrator(&scriptedScorer{}, rewriter, gate, testConfig())

	cfg := testConfig()
	cfg.MaxRetries = 1
	outcome, err := o.RefineWith(context.Background(), "spammy text to refine now", 0.9, cfg)
	require.NoError(t, err)

	assert.Equal(t, ServiceFailure, outcome.Reason)
	assert.Equal(t, 1, rewriter.calls, "the per-run retry cap must govern the run")
	assert.Empty(t, gate.backoffs)
}

func TestRefineWithHonorsPerRunCallTimeout(t *testing.T) {
	// The per-run timeout must reach the provider call; a rewriter that
	// inspects its context deadline sees the override, not the
	// constructor-time value.
	var sawDeadline bool
	rewriter := &deadlineCheckingRewriter{
		maxRemaining: 500 * time.Millisecond,
		observed:     &sawDeadline,
	}
	scorer := &scriptedScorer{scores: []float64{0.4}}
	cfg := testConfig()
	cfg.CallTimeout = time.Hour
	o := newTestOrchestrator(scorer, rewriter, &recordingGate{}, cfg)

	runCfg := testConfig()
	runCfg.CallTimeout = 200 * time.Millisecond
	_, err := o.RefineWith(context.Background(), "spammy text to refine now", 0.9, runCfg)
	require.NoError(t, err)

	assert.True(t, sawDeadline, "the rewrite call must carry the per-run timeout")
}

// deadlineCheckingRewriter records whether its context deadline was within
// maxRemaining of now.
type deadlineCheckingRewriter struct {
	maxRemaining time.Duration
	observed     *bool
}

func (r *deadlineCheckingRewriter) Rewrite(ctx context.Context, email string, directive StrategyDirective) (string, error) {
	if deadline, ok := ctx.Deadline(); ok && time.Until(deadline) <= r.maxRemaining {
		*r.observed = true
	}
	return "a rewrite of the email body", nil
}

func TestRefineWithOverridesThresholdPerRun(t *testing.T) {
	scorer := &scriptedScorer{scores: []float64{0.05}}
	rewriter := &scriptedRewriter{responses: []string{"a rewrite of the email body"}}
	o := newTestOrchestrator(scorer, rewriter, &recordingGate{}, testConfig())

	// 0.3 is below the default 0.6 threshold, but the tightened
	// per-run threshold forces a refinement pass.
	cfg := testConfig()
	cfg.AcceptThreshold = 0.1
	outcome, err := o.RefineWith(context.Background(), "borderline email text here", 0.3, cfg)
	require.NoError(t, err)

	assert.Equal(t, AcceptedRefined, outcome.Reason)
	assert.Equal(t, 1, rewriter.calls)
}
