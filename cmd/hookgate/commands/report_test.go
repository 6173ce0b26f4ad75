package commands

import (
	"strings"
	"testing"
)

func TestReportEmptyAuditLog(t *testing.T) {
	withWorkspace(t)

	out := captureOutput(t, func() {
		if err := runReport(nil, nil); err != nil {
			t.Errorf("runReport error: %v", err)
		}
	})
	if !strings.Contains(out, "No audit records.") {
		t.Fatalf("expected empty-log message, got:\n%s", out)
	}
}

func TestReportAfterDispatch(t *testing.T) {
	workspace := withWorkspace(t)

	runDispatchWith(t, workspace, `{
		"lifecycle_point": "pre_action",
		"action_name": "run_command",
		"action_input": {"command": "rm -rf /"},
		"session_id": "sess-1"
	}`)

	out := captureOutput(t, func() {
		if err := runReport(nil, nil); err != nil {
			t.Errorf("runReport error: %v", err)
		}
	})
	if !strings.Contains(out, "HANDLER") || !strings.Contains(out, "dangerous-commands") {
		t.Fatalf("expected handler rows in report, got:\n%s", out)
	}
}

func TestLocksListEmpty(t *testing.T) {
	withWorkspace(t)

	out := captureOutput(t, func() {
		if err := runLocksList(nil, nil); err != nil {
			t.Errorf("runLocksList error: %v", err)
		}
	})
	if !strings.Contains(out, "No locks held.") {
		t.Fatalf("expected empty lock listing, got:\n%s", out)
	}
}

func TestCacheStatsAndClear(t *testing.T) {
	workspace := withWorkspace(t)

	store := workspaceCache(workspace)
	if err := store.Put("abc", []byte(`{"v":1}`), 0); err != nil {
		t.Fatalf("Put error: %v", err)
	}

	out := captureOutput(t, func() {
		if err := runCacheStats(nil, nil); err != nil {
			t.Errorf("runCacheStats error: %v", err)
		}
	})
	if !strings.Contains(out, "Entries: 1") {
		t.Fatalf("expected one entry, got:\n%s", out)
	}

	captureOutput(t, func() {
		if err := runCacheClear(nil, nil); err != nil {
			t.Errorf("runCacheClear error: %v", err)
		}
	})

	out = captureOutput(t, func() {
		if err := runCacheStats(nil, nil); err != nil {
			t.Errorf("runCacheStats error: %v", err)
		}
	})
	if !strings.Contains(out, "Entries: 0") {
		t.Fatalf("expected empty store after clear, got:\n%s", out)
	}
}
