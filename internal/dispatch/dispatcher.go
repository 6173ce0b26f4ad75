package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hookgate/hookgate/internal/audit"
	"github.com/hookgate/hookgate/internal/cache"
	"github.com/hookgate/hookgate/internal/handler"
	"github.com/hookgate/hookgate/internal/hook"
	"github.com/hookgate/hookgate/internal/lockfile"
	"github.com/hookgate/hookgate/internal/metrics"
	"github.com/hookgate/hookgate/internal/policy"
	"github.com/hookgate/hookgate/internal/state"
)

// DefaultHandlerTimeout bounds a handler that declares no budget of
// its own.
const DefaultHandlerTimeout = 5 * time.Second

// Options tune a dispatcher.
type Options struct {
	// DefaultTimeout is the per-handler budget when no override exists.
	DefaultTimeout time.Duration
	// HandlerTimeouts overrides the budget for individual handlers.
	HandlerTimeouts map[string]time.Duration
	// LockOptions are forwarded to the lock manager.
	LockOptions []lockfile.Option
}

// Dispatcher runs one event through every applicable enabled handler
// and aggregates their verdicts into a single decision. A dispatcher
// holds no cross-invocation state: everything durable lives in the
// disabled set, cache, counters, metrics, and audit log.
type Dispatcher struct {
	registry *handler.Registry
	disabled *state.DisabledStore
	writer   *audit.Writer
	recorder *metrics.Recorder
	store    *cache.Store
	locks    *lockfile.Manager
	counters *state.CounterStore

	workspace       string
	defaultTimeout  time.Duration
	handlerTimeouts map[string]time.Duration

	now func() time.Time
}

// New assembles a dispatcher and its shared-state accessors for a
// workspace.
func New(workspace string, registry *handler.Registry, opts Options) *Dispatcher {
	if opts.DefaultTimeout <= 0 {
		opts.DefaultTimeout = DefaultHandlerTimeout
	}

	locks := lockfile.NewManager(workspace, opts.LockOptions...)
	return &Dispatcher{
		registry:        registry,
		disabled:        state.NewDisabledStore(workspace, locks),
		writer:          audit.NewWriter(workspace),
		recorder:        metrics.NewRecorder(workspace, locks),
		store:           cache.NewStore(workspace, locks),
		locks:           locks,
		counters:        state.NewCounterStore(workspace, locks),
		workspace:       workspace,
		defaultTimeout:  opts.DefaultTimeout,
		handlerTimeouts: opts.HandlerTimeouts,
		now:             time.Now,
	}
}

// Locks exposes the lock manager for operator tooling.
func (d *Dispatcher) Locks() *lockfile.Manager { return d.locks }

// Cache exposes the cache store for operator tooling.
func (d *Dispatcher) Cache() *cache.Store { return d.store }

// Disabled exposes the disabled-set store for operator tooling.
func (d *Dispatcher) Disabled() *state.DisabledStore { return d.disabled }

// Dispatch runs a single event to completion. Handler failures are
// contained as Error verdicts; the only error returned is a fatally
// unusable audit pipeline, which callers treat as non-blocking.
//
// All enabled handlers for the event run even after a Deny, so the
// audit log always records every handler's opinion.
func (d *Dispatcher) Dispatch(ctx context.Context, event hook.Event) policy.Decision {
	started := d.now()
	invocationID := hook.NewInvocationID()

	disabledSet := d.disabled.Load()
	request := handler.Request{
		Event:     event,
		Cache:     d.store,
		Locks:     d.locks,
		Counters:  d.counters,
		Workspace: d.workspace,
	}

	var verdicts []handler.Verdict
	for _, h := range d.registry.ForPoint(event.Point) {
		if disabledSet.Contains(h.Name()) {
			// Disabled handlers are skipped entirely: no
			// verdict, no audit record.
			continue
		}

		verdict := d.invoke(ctx, h, request)
		verdicts = append(verdicts, verdict)
		d.appendAudit(invocationID, event, audit.Record{
			Handler:   verdict.Handler,
			Outcome:   string(verdict.Outcome),
			Reason:    verdict.Reason,
			Detail:    verdict.ErrorDetail,
			ElapsedMs: verdict.Elapsed.Milliseconds(),
		})
	}

	decision := policy.Aggregate(verdicts)
	elapsed := d.now().Sub(started)

	d.appendAudit(invocationID, event, audit.Record{
		Outcome:   string(decision.Outcome),
		Reason:    decision.Reason,
		Detail:    decision.Handler,
		ElapsedMs: elapsed.Milliseconds(),
	})
	if err := d.recorder.RecordDispatch(verdicts, elapsed); err != nil {
		slog.Warn("record dispatch metrics", "error", err)
	}

	return decision
}

// invoke runs one handler inside its own goroutine fault boundary. A
// panic or a blown budget becomes an Error verdict; it never terminates
// the dispatcher and never corrupts another handler's verdict.
func (d *Dispatcher) invoke(ctx context.Context, h handler.Handler, request handler.Request) handler.Verdict {
	budget := d.timeoutFor(h.Name())
	started := d.now()

	handlerCtx, cancel := context.WithTimeout(ctx, budget)
	defer cancel()

	done := make(chan handler.Verdict, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- handler.Verdict{
					Handler:     h.Name(),
					Outcome:     handler.OutcomeError,
					ErrorDetail: fmt.Sprintf("panic: %v", r),
				}
			}
		}()
		done <- h.Evaluate(handlerCtx, request)
	}()

	select {
	case verdict := <-done:
		verdict.Handler = h.Name()
		verdict.Elapsed = d.now().Sub(started)
		return normalize(verdict)
	case <-handlerCtx.Done():
		// The handler goroutine is abandoned; its budget is spent
		// and it can no longer influence this dispatch.
		return handler.Verdict{
			Handler:     h.Name(),
			Outcome:     handler.OutcomeError,
			ErrorDetail: "timeout",
			Elapsed:     d.now().Sub(started),
		}
	}
}

func (d *Dispatcher) timeoutFor(name string) time.Duration {
	if budget, ok := d.handlerTimeouts[name]; ok && budget > 0 {
		return budget
	}
	return d.defaultTimeout
}

func (d *Dispatcher) appendAudit(invocationID string, event hook.Event, record audit.Record) {
	record.Time = d.now().UTC()
	record.InvocationID = invocationID
	record.SessionID = event.SessionID
	record.Point = string(event.Point)
	record.Action = event.ActionName
	if err := d.writer.Append(record); err != nil {
		slog.Warn("append audit record", "handler", record.Handler, "error", err)
	}
}

// normalize enforces the verdict contract: denials carry a reason and
// unknown outcomes are recorded as faults rather than trusted.
func normalize(verdict handler.Verdict) handler.Verdict {
	switch verdict.Outcome {
	case handler.OutcomeAllow, handler.OutcomeNeutral, handler.OutcomeError:
		return verdict
	case handler.OutcomeDeny:
		if verdict.Reason == "" {
			verdict.Reason = "denied by " + verdict.Handler
		}
		return verdict
	default:
		return handler.Verdict{
			Handler:     verdict.Handler,
			Outcome:     handler.OutcomeError,
			ErrorDetail: fmt.Sprintf("invalid outcome %q", verdict.Outcome),
			Elapsed:     verdict.Elapsed,
		}
	}
}
