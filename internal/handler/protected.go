package handler

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/hookgate/hookgate/internal/hook"
)

// writeActions are the action names that mutate files.
var writeActions = map[string]struct{}{
	"write_file":  {},
	"edit_file":   {},
	"append_file": {},
	"delete_file": {},
}

// protectedBasenames match secret-bearing files by exact or prefix name.
var protectedBasenames = []string{
	".env",
	".netrc",
	".npmrc",
	".pgpass",
	"credentials",
	"credentials.json",
	"id_rsa",
	"id_ed25519",
	"id_ecdsa",
}

// protectedExtensions match key material by extension.
var protectedExtensions = []string{".pem", ".key", ".p12", ".pfx"}

// ProtectedFiles denies writes to secret-bearing files and version
// control internals.
type ProtectedFiles struct{}

// NewProtectedFiles creates the file-protection handler.
func NewProtectedFiles() *ProtectedFiles {
	return &ProtectedFiles{}
}

func (h *ProtectedFiles) Name() string { return "protected-files" }

func (h *ProtectedFiles) Points() []hook.Point {
	return []hook.Point{hook.PointPreAction}
}

func (h *ProtectedFiles) Evaluate(ctx context.Context, req Request) Verdict {
	if _, ok := writeActions[req.Event.ActionName]; !ok {
		return Neutral(h.Name())
	}
	path := req.Event.InputString("path")
	if path == "" {
		return Neutral(h.Name())
	}

	if reason, protected := protectedPath(path); protected {
		return Deny(h.Name(), reason)
	}
	return Neutral(h.Name())
}

func protectedPath(path string) (string, bool) {
	base := strings.ToLower(filepath.Base(filepath.Clean(path)))

	for _, name := range protectedBasenames {
		if base == name || strings.HasPrefix(base, name+".") {
			return fmt.Sprintf("write to protected file %q blocked", path), true
		}
	}
	for _, ext := range protectedExtensions {
		if strings.HasSuffix(base, ext) {
			return fmt.Sprintf("write to key material %q blocked", path), true
		}
	}

	normalized := filepath.ToSlash(filepath.Clean(path))
	if strings.Contains(normalized, "/.git/") || strings.HasPrefix(normalized, ".git/") {
		return fmt.Sprintf("write inside .git internals %q blocked", path), true
	}
	return "", false
}
