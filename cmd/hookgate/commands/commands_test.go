package commands

import (
	"bytes"
	"io"
	"os"
	"testing"
)

func captureOutput(t *testing.T, fn func()) string {
	t.Helper()

	old := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("os.Pipe: %v", err)
	}

	os.Stdout = w
	fn()
	_ = w.Close()
	os.Stdout = old

	var buf bytes.Buffer
	_, _ = io.Copy(&buf, r)
	_ = r.Close()

	return buf.String()
}

// withWorkspace points every command at a throwaway workspace.
func withWorkspace(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	workspaceOverride = dir
	t.Cleanup(func() { workspaceOverride = "" })
	return dir
}
