package commands

import (
	"encoding/json"

	"github.com/hookgate/hookgate/internal/config"
	"github.com/hookgate/hookgate/internal/hook"
	"github.com/hookgate/hookgate/internal/policy"
	"github.com/spf13/cobra"
)

// NewDispatchCmd creates the dispatch command
func NewDispatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dispatch",
		Short: "Read one lifecycle event from stdin and emit the decision",
		Long: `Reads a single event JSON object from stdin, runs it through every
enabled handler for its lifecycle point, and writes the aggregated
decision JSON to stdout. A malformed event is the only failure that
exits non-zero; handler faults degrade to recorded error verdicts.`,
		Args: cobra.NoArgs,
		RunE: runDispatch,
	}
}

// decisionPayload is the stdout wire format consumed by the caller.
type decisionPayload struct {
	Decision  string `json:"decision"`
	Reason    string `json:"reason,omitempty"`
	Handler   string `json:"handler,omitempty"`
	NoOpinion bool   `json:"no_opinion,omitempty"`
}

func runDispatch(cmd *cobra.Command, args []string) error {
	cfg, workspace, err := loadRuntime()
	if err != nil {
		return err
	}

	event, err := hook.ReadEvent(cmd.InOrStdin())
	if err != nil {
		return err
	}

	d := newDispatcher(cfg, workspace)
	decision := d.Dispatch(cmd.Context(), event)

	encoder := json.NewEncoder(cmd.OutOrStdout())
	return encoder.Encode(renderDecision(cfg, event, decision))
}

// renderDecision maps the internal decision onto the wire format. A
// no-opinion result is resolved to the configured default for the
// event's lifecycle point, allow unless overridden, and flagged so the
// caller can tell silence from an explicit grant.
func renderDecision(cfg *config.Config, event hook.Event, decision policy.Decision) decisionPayload {
	switch decision.Outcome {
	case policy.OutcomeDeny:
		return decisionPayload{
			Decision: "deny",
			Reason:   decision.Reason,
			Handler:  decision.Handler,
		}
	case policy.OutcomeAllow:
		return decisionPayload{
			Decision: "allow",
			Reason:   decision.Reason,
			Handler:  decision.Handler,
		}
	default:
		payload := decisionPayload{Decision: "allow", NoOpinion: true}
		if event.Point.Gates() {
			payload.Decision = cfg.DefaultPolicyFor(string(event.Point))
		}
		return payload
	}
}
