package core

// catalogue is the ordered set of rewrite strategies. Indexing wraps around
// so the attempt budget may exceed the catalogue size.
var catalogue = []StrategyDirective{
	{
		ID: StrategyUrgencyCleanup,
		Instructions: "Remove urgent language, ALL-CAPS words, repeated punctuation " +
			"and pressure phrases such as deadlines or limited-time warnings. " +
			"Keep the message and its structure otherwise unchanged.",
	},
	{
		ID: StrategyPromotionalSoftening,
		Instructions: "Tone down promotional claims, pricing language, discounts, " +
			"guarantees and calls to action. Replace sales phrasing with neutral, " +
			"factual wording while keeping the core offer intact.",
	},
	{
		ID: StrategyProfessionalRewrite,
		Instructions: "Rewrite the email entirely as a clear, professional business " +
			"message. Preserve the sender's intent and any concrete facts, use a " +
			"courteous tone, proper greeting and sign-off, and plain formatting.",
	},
}

// StrategySelector maps an attempt index and the trailing score history to a
// rewrite directive. It is a pure value with no I/O so the orchestrator's
// strategy progression can be tested in isolation.
type StrategySelector struct{}

// NewStrategySelector creates a new strategy selector.
func NewStrategySelector() *StrategySelector {
	return &StrategySelector{}
}

// Select returns the directive for the given 1-based attempt index. When the
// previous attempt regressed (score went up relative to the one before it),
// selection escalates straight to the strongest directive instead of
// continuing the cycle.
func (s *StrategySelector) Select(attemptIndex int, history []float64) StrategyDirective {
	if attemptIndex < 1 {
		attemptIndex = 1
	}
	if regressed(history) {
		return catalogue[len(catalogue)-1]
	}
	return catalogue[(attemptIndex-1)%len(catalogue)]
}

// regressed reports whether the most recent score is worse than its
// predecessor.
func regressed(history []float64) bool {
	n := len(history)
	return n >= 2 && history[n-1] > history[n-2]
}
