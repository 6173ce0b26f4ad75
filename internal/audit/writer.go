package audit

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

const (
	auditFileName = "audit.jsonl"
	auditFileMode = 0644
	auditDirMode  = 0755
)

// Record is one audit line. Handler is empty for dispatcher-level
// summary records.
type Record struct {
	Time         time.Time `json:"time"`
	InvocationID string    `json:"invocation_id,omitempty"`
	SessionID    string    `json:"session_id,omitempty"`
	Point        string    `json:"lifecycle_point,omitempty"`
	Action       string    `json:"action,omitempty"`
	Handler      string    `json:"handler,omitempty"`
	Outcome      string    `json:"outcome,omitempty"`
	Reason       string    `json:"reason,omitempty"`
	Detail       string    `json:"detail,omitempty"`
	ElapsedMs    int64     `json:"elapsed_ms"`
}

// Writer appends audit records to <workspace>/state/audit.jsonl.
//
// Each append opens, writes one line, and closes the file, so the log
// can be rotated or truncated externally without disturbing writers.
// A record is marshaled first and written with a single Write call, so
// concurrent dispatcher invocations never interleave partial lines.
type Writer struct {
	path string
	mu   sync.Mutex
}

// NewWriter creates an append-only audit writer rooted at workspace state.
func NewWriter(workspace string) *Writer {
	return &Writer{
		path: filepath.Join(workspace, "state", auditFileName),
	}
}

// Path returns the audit log location for external tooling.
func (w *Writer) Path() string {
	return w.path
}

// Append writes one record as one JSONL line.
func (w *Writer) Append(record Record) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(w.path), auditDirMode); err != nil {
		return fmt.Errorf("create audit dir: %w", err)
	}

	file, err := os.OpenFile(w.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, auditFileMode)
	if err != nil {
		return fmt.Errorf("open audit file: %w", err)
	}
	defer file.Close()

	encoded, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal audit record: %w", err)
	}
	encoded = append(encoded, '\n')

	if _, err := file.Write(encoded); err != nil {
		return fmt.Errorf("append audit record: %w", err)
	}
	if err := file.Sync(); err != nil {
		return fmt.Errorf("sync audit file: %w", err)
	}
	return nil
}
