package metrics

import (
	"testing"
	"time"

	"github.com/hookgate/hookgate/internal/handler"
	"github.com/hookgate/hookgate/internal/lockfile"
)

func TestRecorder_RecordDispatch(t *testing.T) {
	workspace := t.TempDir()
	recorder := NewRecorder(workspace, lockfile.NewManager(workspace))

	verdicts := []handler.Verdict{
		{Handler: "dangerous-commands", Outcome: handler.OutcomeDeny, Elapsed: 4 * time.Millisecond},
		{Handler: "protected-files", Outcome: handler.OutcomeNeutral, Elapsed: 2 * time.Millisecond},
		{Handler: "secret-scan", Outcome: handler.OutcomeError, ErrorDetail: "timeout", Elapsed: 5 * time.Second},
	}
	if err := recorder.RecordDispatch(verdicts, 5100*time.Millisecond); err != nil {
		t.Fatalf("RecordDispatch error: %v", err)
	}

	snap, err := Read(workspace)
	if err != nil {
		t.Fatalf("Read error: %v", err)
	}
	if !snap.HasData() {
		t.Fatal("expected recorded data")
	}
	if snap.Dispatches != 1 {
		t.Fatalf("expected 1 dispatch, got %d", snap.Dispatches)
	}

	dangerous := snap.Handlers["dangerous-commands"]
	if dangerous == nil || dangerous.Denies != 1 || dangerous.Total != 1 {
		t.Fatalf("unexpected dangerous-commands stats: %+v", dangerous)
	}

	scan := snap.Handlers["secret-scan"]
	if scan == nil || scan.Errors != 1 || scan.Timeouts != 1 {
		t.Fatalf("unexpected secret-scan stats: %+v", scan)
	}
	if scan.MaxLatencyMs != 5000 {
		t.Fatalf("unexpected max latency: %d", scan.MaxLatencyMs)
	}
}

func TestRecorder_MergesAcrossInstances(t *testing.T) {
	workspace := t.TempDir()
	locks := lockfile.NewManager(workspace)

	// Two recorders simulate two separate dispatcher processes
	// sharing the metrics file.
	first := NewRecorder(workspace, locks)
	second := NewRecorder(workspace, locks)

	verdicts := []handler.Verdict{{Handler: "activity-log", Outcome: handler.OutcomeNeutral, Elapsed: time.Millisecond}}
	if err := first.RecordDispatch(verdicts, time.Millisecond); err != nil {
		t.Fatalf("first RecordDispatch error: %v", err)
	}
	if err := second.RecordDispatch(verdicts, time.Millisecond); err != nil {
		t.Fatalf("second RecordDispatch error: %v", err)
	}

	snap, err := Read(workspace)
	if err != nil {
		t.Fatalf("Read error: %v", err)
	}
	if snap.Dispatches != 2 {
		t.Fatalf("expected 2 dispatches, got %d", snap.Dispatches)
	}
	if got := snap.Handlers["activity-log"].Total; got != 2 {
		t.Fatalf("expected merged handler total 2, got %d", got)
	}
}

func TestHandlerStats_Ratios(t *testing.T) {
	stats := HandlerStats{Total: 4, Errors: 1, TotalLatencyMs: 20}
	if stats.ErrorRatio() != 0.25 {
		t.Fatalf("unexpected error ratio: %f", stats.ErrorRatio())
	}
	if stats.AvgLatencyMs() != 5 {
		t.Fatalf("unexpected avg latency: %f", stats.AvgLatencyMs())
	}

	var empty HandlerStats
	if empty.ErrorRatio() != 0 || empty.AvgLatencyMs() != 0 {
		t.Fatal("expected zero ratios for empty stats")
	}
}
