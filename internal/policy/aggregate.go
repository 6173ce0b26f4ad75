package policy

import "github.com/hookgate/hookgate/internal/handler"

// Outcome is the aggregated result for one event.
type Outcome string

const (
	OutcomeDeny      Outcome = "deny"
	OutcomeAllow     Outcome = "allow"
	OutcomeNoOpinion Outcome = "no_opinion"
)

// Decision is the single combined outcome for one event. The mapping of
// NoOpinion to a default policy belongs to the caller, not here.
type Decision struct {
	Outcome Outcome
	Reason  string
	Handler string
	// Verdicts holds every contributing verdict in handler
	// registration order, for audit.
	Verdicts []handler.Verdict
}

// Denied reports whether the decision blocks the pending action.
func (d Decision) Denied() bool {
	return d.Outcome == OutcomeDeny
}

// Aggregate combines per-handler verdicts under the deny-wins rule:
// any Deny forces Deny; otherwise any Allow yields Allow; otherwise
// NoOpinion. Error and Neutral verdicts are recorded but never
// contribute to the outcome, so a timed-out handler can neither grant
// nor block an action.
func Aggregate(verdicts []handler.Verdict) Decision {
	decision := Decision{Outcome: OutcomeNoOpinion, Verdicts: verdicts}

	for _, verdict := range verdicts {
		switch verdict.Outcome {
		case handler.OutcomeDeny:
			if decision.Outcome != OutcomeDeny {
				decision.Outcome = OutcomeDeny
				decision.Handler = verdict.Handler
				decision.Reason = verdict.Reason
			}
		case handler.OutcomeAllow:
			if decision.Outcome == OutcomeNoOpinion {
				decision.Outcome = OutcomeAllow
			}
		}
	}
	return decision
}
