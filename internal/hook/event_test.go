package hook

import (
	"strings"
	"testing"
	"time"
)

func TestParsePoint(t *testing.T) {
	for _, p := range AllPoints {
		got, err := ParsePoint(string(p))
		if err != nil {
			t.Fatalf("ParsePoint(%q) error: %v", p, err)
		}
		if got != p {
			t.Fatalf("ParsePoint(%q) = %q", p, got)
		}
	}

	if got, err := ParsePoint("  Pre_Action "); err != nil || got != PointPreAction {
		t.Fatalf("expected normalized pre_action, got %q (%v)", got, err)
	}

	if _, err := ParsePoint("before_tool"); err == nil {
		t.Fatal("expected unknown point to fail")
	}
}

func TestGates(t *testing.T) {
	gating := map[Point]bool{
		PointPreAction:        true,
		PointPromptSubmit:     true,
		PointPostAction:       false,
		PointSubagentComplete: false,
		PointPreCompact:       false,
	}
	for point, want := range gating {
		if point.Gates() != want {
			t.Fatalf("%s.Gates() = %v, want %v", point, point.Gates(), want)
		}
	}
}

func TestReadEvent(t *testing.T) {
	input := `{
		"lifecycle_point": "pre_action",
		"action_name": " run_command ",
		"action_input": {"command": "ls -la"},
		"session_id": "sess-42",
		"timestamp": "2026-08-01T12:00:00Z"
	}`
	event, err := ReadEvent(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ReadEvent error: %v", err)
	}
	if event.Point != PointPreAction {
		t.Fatalf("unexpected point: %q", event.Point)
	}
	if event.ActionName != "run_command" {
		t.Fatalf("expected trimmed action name, got %q", event.ActionName)
	}
	if event.SessionID != "sess-42" {
		t.Fatalf("unexpected session id: %q", event.SessionID)
	}
	if event.Timestamp != time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC) {
		t.Fatalf("unexpected timestamp: %s", event.Timestamp)
	}
	if event.InputString("command") != "ls -la" {
		t.Fatalf("unexpected command input: %q", event.InputString("command"))
	}
}

func TestReadEvent_RequiresActionNameForActionPoints(t *testing.T) {
	for _, point := range []Point{PointPreAction, PointPostAction} {
		input := `{"lifecycle_point": "` + string(point) + `"}`
		if _, err := ReadEvent(strings.NewReader(input)); err == nil {
			t.Fatalf("expected missing action_name to fail for %s", point)
		}
	}
}

func TestReadEvent_DefaultsActionNameForNonActionPoints(t *testing.T) {
	event, err := ReadEvent(strings.NewReader(`{"lifecycle_point": "pre_compact"}`))
	if err != nil {
		t.Fatalf("ReadEvent error: %v", err)
	}
	if event.ActionName != "pre_compact" {
		t.Fatalf("expected defaulted action name, got %q", event.ActionName)
	}
	if event.Timestamp.IsZero() {
		t.Fatal("expected timestamp to default to now")
	}
}

func TestReadEvent_RejectsMalformed(t *testing.T) {
	cases := []string{
		"",
		"not json",
		`{"lifecycle_point": "no_such_point", "action_name": "x"}`,
	}
	for _, input := range cases {
		if _, err := ReadEvent(strings.NewReader(input)); err == nil {
			t.Fatalf("expected error for input %q", input)
		}
	}
}

func TestInputMap_ToleratesBadInput(t *testing.T) {
	event := Event{ActionInput: []byte(`[1,2,3]`)}
	if len(event.InputMap()) != 0 {
		t.Fatal("expected empty map for non-object input")
	}
	if event.InputString("command") != "" {
		t.Fatal("expected empty string for missing key")
	}
}

func TestNewInvocationID_Unique(t *testing.T) {
	a, b := NewInvocationID(), NewInvocationID()
	if a == "" || a == b {
		t.Fatalf("expected distinct non-empty ids, got %q and %q", a, b)
	}
}
