package handler

import (
	"context"
	"fmt"
	"regexp"

	"github.com/hookgate/hookgate/internal/hook"
)

// dangerousPatterns are regex patterns that match destructive shell
// commands. Compiled once at package init.
var dangerousPatterns = []*regexp.Regexp{
	// rm with force/recursive targeting root or home
	regexp.MustCompile(`(?i)\brm\s+(-[a-z]*r[a-z]*\s+-[a-z]*f[a-z]*|-[a-z]*f[a-z]*\s+-[a-z]*r[a-z]*|-[a-z]*rf[a-z]*|-[a-z]*fr[a-z]*)\s+(/|~)`),
	// sudo variants of rm
	regexp.MustCompile(`(?i)\bsudo\s+rm\s+(-[a-z]*r[a-z]*\s+-[a-z]*f[a-z]*|-[a-z]*f[a-z]*\s+-[a-z]*r[a-z]*|-[a-z]*rf[a-z]*|-[a-z]*fr[a-z]*)\s+/`),
	// explicitly disabling root safeguards
	regexp.MustCompile(`(?i)--no-preserve-root`),
	// filesystem format commands
	regexp.MustCompile(`(?i)\bmkfs\b`),
	regexp.MustCompile(`(?i)\bdd\s+if=.*\bof=/dev/`),
	// fork bomb
	regexp.MustCompile(`:\(\)\s*\{.*\|.*&\s*\}\s*;`),
	// wiping partition tables
	regexp.MustCompile(`(?i)\bwipefs\b`),
	// Windows dangerous commands
	regexp.MustCompile(`(?i)\bformat\s+[a-z]:`),
	regexp.MustCompile(`(?i)\bdel\s+/[a-z]\s+/[a-z]\s+/[a-z]`),
}

// commandActions are the action names whose input carries a shell command.
var commandActions = map[string]struct{}{
	"run_command": {},
	"exec":        {},
	"shell":       {},
}

// DangerousCommands denies destructive shell commands before they run.
type DangerousCommands struct{}

// NewDangerousCommands creates the dangerous-command handler.
func NewDangerousCommands() *DangerousCommands {
	return &DangerousCommands{}
}

func (h *DangerousCommands) Name() string { return "dangerous-commands" }

func (h *DangerousCommands) Points() []hook.Point {
	return []hook.Point{hook.PointPreAction}
}

func (h *DangerousCommands) Evaluate(ctx context.Context, req Request) Verdict {
	if _, ok := commandActions[req.Event.ActionName]; !ok {
		return Neutral(h.Name())
	}
	command := req.Event.InputString("command")
	if command == "" {
		return Neutral(h.Name())
	}

	for _, pattern := range dangerousPatterns {
		if pattern.MatchString(command) {
			return Deny(h.Name(), fmt.Sprintf("destructive command blocked: %q", command))
		}
	}
	return Neutral(h.Name())
}
