package handler

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/hookgate/hookgate/internal/hook"
)

func commandEvent(t *testing.T, command string) hook.Event {
	t.Helper()
	input, err := json.Marshal(map[string]string{"command": command})
	if err != nil {
		t.Fatalf("marshal input error: %v", err)
	}
	return hook.Event{
		Point:       hook.PointPreAction,
		ActionName:  "run_command",
		ActionInput: input,
	}
}

func TestDangerousCommands_DeniesDestructive(t *testing.T) {
	h := NewDangerousCommands()

	cases := []string{
		"rm -rf /",
		"rm -fr ~/",
		"sudo rm -rf /var",
		"rm -rf / --no-preserve-root",
		"mkfs.ext4 /dev/sda1",
		"dd if=/dev/zero of=/dev/sda",
	}
	for _, command := range cases {
		verdict := h.Evaluate(context.Background(), Request{Event: commandEvent(t, command)})
		if verdict.Outcome != OutcomeDeny {
			t.Fatalf("expected deny for %q, got %s", command, verdict.Outcome)
		}
		if !strings.Contains(verdict.Reason, command) {
			t.Fatalf("expected reason to reference the command, got %q", verdict.Reason)
		}
	}
}

func TestDangerousCommands_NeutralForBenign(t *testing.T) {
	h := NewDangerousCommands()

	for _, command := range []string{"ls -la", "git status", "rm notes.txt", "grep -rf patterns ."} {
		verdict := h.Evaluate(context.Background(), Request{Event: commandEvent(t, command)})
		if verdict.Outcome == OutcomeDeny {
			t.Fatalf("unexpected deny for benign command %q: %s", command, verdict.Reason)
		}
	}
}

func TestDangerousCommands_IgnoresOtherActions(t *testing.T) {
	h := NewDangerousCommands()

	event := commandEvent(t, "rm -rf /")
	event.ActionName = "write_file"
	verdict := h.Evaluate(context.Background(), Request{Event: event})
	if verdict.Outcome != OutcomeNeutral {
		t.Fatalf("expected neutral for non-command action, got %s", verdict.Outcome)
	}
}
