package state

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/hookgate/hookgate/internal/lockfile"
)

const (
	countersFileName = "session_counters.json"
	countersFileMode = 0644

	countersLockName = "session-counters"
	countersLockWait = 2 * time.Second
)

// SessionCounters tracks cross-invocation observation totals maintained
// by the observer handlers.
type SessionCounters struct {
	ActionsObserved    int64     `json:"actions_observed"`
	SubagentsCompleted int64     `json:"subagents_completed"`
	Compactions        int64     `json:"compactions"`
	LastSessionID      string    `json:"last_session_id,omitempty"`
	UpdatedAt          time.Time `json:"updated_at,omitempty"`
}

// CounterStore persists session counters under workspace state. Every
// bump is a load-merge-save under the lock manager, since concurrent
// dispatcher invocations share the file.
type CounterStore struct {
	path  string
	locks *lockfile.Manager
	now   func() time.Time
}

// NewCounterStore creates a counter store rooted at workspace state.
func NewCounterStore(workspace string, locks *lockfile.Manager) *CounterStore {
	return &CounterStore{
		path:  filepath.Join(workspace, "state", countersFileName),
		locks: locks,
		now:   time.Now,
	}
}

// Load reads current counters. Missing or malformed files read as zero.
func (c *CounterStore) Load() SessionCounters {
	raw, err := os.ReadFile(c.path)
	if err != nil {
		return SessionCounters{}
	}
	var counters SessionCounters
	if err := json.Unmarshal(raw, &counters); err != nil {
		return SessionCounters{}
	}
	return counters
}

// RecordAction bumps the observed-action counter.
func (c *CounterStore) RecordAction(sessionID string) error {
	return c.bump(sessionID, func(counters *SessionCounters) {
		counters.ActionsObserved++
	})
}

// RecordSubagent bumps the completed-subagent counter.
func (c *CounterStore) RecordSubagent(sessionID string) error {
	return c.bump(sessionID, func(counters *SessionCounters) {
		counters.SubagentsCompleted++
	})
}

// RecordCompaction bumps the context-compaction counter.
func (c *CounterStore) RecordCompaction(sessionID string) error {
	return c.bump(sessionID, func(counters *SessionCounters) {
		counters.Compactions++
	})
}

func (c *CounterStore) bump(sessionID string, apply func(*SessionCounters)) error {
	return c.locks.WithLock(countersLockName, "session counter update", countersLockWait, func() error {
		counters := c.Load()
		apply(&counters)
		if sessionID != "" {
			counters.LastSessionID = sessionID
		}
		counters.UpdatedAt = c.now().UTC()
		return c.save(counters)
	})
}

func (c *CounterStore) save(counters SessionCounters) error {
	encoded, err := json.MarshalIndent(counters, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal session counters: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(c.path), disabledDirMode); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}

	tempPath := c.path + ".tmp"
	if err := os.WriteFile(tempPath, encoded, countersFileMode); err != nil {
		return fmt.Errorf("write temp session counters: %w", err)
	}
	if err := os.Rename(tempPath, c.path); err != nil {
		return fmt.Errorf("replace session counters: %w", err)
	}
	return nil
}
