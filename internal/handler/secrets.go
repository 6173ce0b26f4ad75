package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"regexp"
	"time"

	"github.com/hookgate/hookgate/internal/cache"
	"github.com/hookgate/hookgate/internal/hook"
)

const secretScanTTL = 30 * time.Minute

// secretPatterns match credential material in submitted prompts.
var secretPatterns = []struct {
	label   string
	pattern *regexp.Regexp
}{
	{"AWS access key", regexp.MustCompile(`\bAKIA[0-9A-Z]{16}\b`)},
	{"private key block", regexp.MustCompile(`-----BEGIN [A-Z ]*PRIVATE KEY-----`)},
	{"GitHub token", regexp.MustCompile(`\bghp_[A-Za-z0-9]{36}\b`)},
	{"Slack token", regexp.MustCompile(`\bxox[baprs]-[A-Za-z0-9-]{10,}\b`)},
	{"generic api key assignment", regexp.MustCompile(`(?i)\b(api[_-]?key|secret[_-]?key)\b\s*[:=]\s*['"][A-Za-z0-9_\-]{16,}['"]`)},
}

type secretScanResult struct {
	Finding string `json:"finding,omitempty"`
}

// SecretScan denies prompt submissions that carry credential material.
// Scan results are memoized by content hash so repeated submissions of
// the same prompt skip the rescan.
type SecretScan struct{}

// NewSecretScan creates the prompt secret scanner.
func NewSecretScan() *SecretScan {
	return &SecretScan{}
}

func (h *SecretScan) Name() string { return "secret-scan" }

func (h *SecretScan) Points() []hook.Point {
	return []hook.Point{hook.PointPromptSubmit}
}

func (h *SecretScan) Evaluate(ctx context.Context, req Request) Verdict {
	content := req.Event.InputString("prompt")
	if content == "" {
		content = req.Event.InputString("content")
	}
	if content == "" {
		return Neutral(h.Name())
	}

	key := cache.Key(h.Name(), []byte(content))
	if req.Cache != nil {
		if raw, hit := req.Cache.Lookup(key); hit {
			var cached secretScanResult
			if err := json.Unmarshal(raw, &cached); err == nil {
				return h.verdictFor(cached)
			}
		}
	}

	result := scanForSecrets(content)
	if req.Cache != nil {
		encoded, err := json.Marshal(result)
		if err == nil {
			if err := req.Cache.Put(key, encoded, secretScanTTL); err != nil {
				slog.Warn("cache secret scan result", "error", err)
			}
		}
	}
	return h.verdictFor(result)
}

func (h *SecretScan) verdictFor(result secretScanResult) Verdict {
	if result.Finding == "" {
		return Neutral(h.Name())
	}
	return Deny(h.Name(), "prompt contains "+result.Finding)
}

func scanForSecrets(content string) secretScanResult {
	for _, candidate := range secretPatterns {
		if candidate.pattern.MatchString(content) {
			return secretScanResult{Finding: candidate.label}
		}
	}
	return secretScanResult{}
}
