package handler

import (
	"context"
	"time"

	"github.com/hookgate/hookgate/internal/cache"
	"github.com/hookgate/hookgate/internal/hook"
	"github.com/hookgate/hookgate/internal/lockfile"
	"github.com/hookgate/hookgate/internal/state"
)

// Outcome is one handler's opinion about one event.
type Outcome string

const (
	OutcomeAllow   Outcome = "allow"
	OutcomeDeny    Outcome = "deny"
	OutcomeNeutral Outcome = "neutral"
	OutcomeError   Outcome = "error"
)

// Verdict is the per-handler result for one event. It is produced
// exactly once per (event, enabled handler) pair.
type Verdict struct {
	Handler     string
	Outcome     Outcome
	Reason      string
	ErrorDetail string
	Elapsed     time.Duration
}

// Request carries the event plus the dispatcher-provided accessors a
// handler may use. Handlers must go through Locks for read-modify-write
// of shared state and through Cache for memoized work.
type Request struct {
	Event     hook.Event
	Cache     *cache.Store
	Locks     *lockfile.Manager
	Counters  *state.CounterStore
	Workspace string
}

// Handler is an independent policy or observation unit. Subscriptions
// are static; enablement is decided at dispatch time from the disabled
// set, never by the handler itself.
type Handler interface {
	Name() string
	Points() []hook.Point
	Evaluate(ctx context.Context, req Request) Verdict
}

// Allow builds an allowing verdict.
func Allow(name string) Verdict {
	return Verdict{Handler: name, Outcome: OutcomeAllow}
}

// Deny builds a denying verdict; reason is mandatory for denials.
func Deny(name, reason string) Verdict {
	if reason == "" {
		reason = "denied by " + name
	}
	return Verdict{Handler: name, Outcome: OutcomeDeny, Reason: reason}
}

// Neutral builds a no-opinion verdict.
func Neutral(name string) Verdict {
	return Verdict{Handler: name, Outcome: OutcomeNeutral}
}
