package handler

import (
	"context"
	"log/slog"

	"github.com/hookgate/hookgate/internal/hook"
)

// The observer handlers never gate anything: they always return a
// neutral verdict and fold their observations into the shared session
// counters through the lock manager.

// ActivityLog observes completed actions.
type ActivityLog struct{}

// NewActivityLog creates the post-action observer.
func NewActivityLog() *ActivityLog {
	return &ActivityLog{}
}

func (h *ActivityLog) Name() string { return "activity-log" }

func (h *ActivityLog) Points() []hook.Point {
	return []hook.Point{hook.PointPostAction}
}

func (h *ActivityLog) Evaluate(ctx context.Context, req Request) Verdict {
	if req.Counters != nil {
		if err := req.Counters.RecordAction(req.Event.SessionID); err != nil {
			slog.Warn("record action counter", "error", err)
		}
	}
	return Neutral(h.Name())
}

// SubagentUsage observes sub-agent completions.
type SubagentUsage struct{}

// NewSubagentUsage creates the subagent-completion observer.
func NewSubagentUsage() *SubagentUsage {
	return &SubagentUsage{}
}

func (h *SubagentUsage) Name() string { return "subagent-usage" }

func (h *SubagentUsage) Points() []hook.Point {
	return []hook.Point{hook.PointSubagentComplete}
}

func (h *SubagentUsage) Evaluate(ctx context.Context, req Request) Verdict {
	if req.Counters != nil {
		if err := req.Counters.RecordSubagent(req.Event.SessionID); err != nil {
			slog.Warn("record subagent counter", "error", err)
		}
	}
	return Neutral(h.Name())
}

// CompactMarker observes context compactions.
type CompactMarker struct{}

// NewCompactMarker creates the pre-compaction observer.
func NewCompactMarker() *CompactMarker {
	return &CompactMarker{}
}

func (h *CompactMarker) Name() string { return "compact-marker" }

func (h *CompactMarker) Points() []hook.Point {
	return []hook.Point{hook.PointPreCompact}
}

func (h *CompactMarker) Evaluate(ctx context.Context, req Request) Verdict {
	if req.Counters != nil {
		if err := req.Counters.RecordCompaction(req.Event.SessionID); err != nil {
			slog.Warn("record compaction counter", "error", err)
		}
	}
	return Neutral(h.Name())
}
