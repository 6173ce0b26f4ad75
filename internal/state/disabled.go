package state

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/hookgate/hookgate/internal/lockfile"
)

const (
	disabledVersion  = 1
	disabledFileName = "disabled_handlers.json"
	disabledFileMode = 0644
	disabledDirMode  = 0755

	disabledLockName = "disabled-handlers"
	disabledLockWait = 2 * time.Second
)

// reservedNames are core components that must never be disabled.
var reservedNames = map[string]struct{}{
	"dispatcher": {},
	"aggregator": {},
	"audit":      {},
	"lockfile":   {},
	"cache":      {},
}

// IsReserved reports whether name identifies a non-disablable core
// component.
func IsReserved(name string) bool {
	_, ok := reservedNames[strings.ToLower(strings.TrimSpace(name))]
	return ok
}

// DisabledSet is the persisted set of handlers skipped at dispatch time.
type DisabledSet struct {
	Version     int       `json:"version"`
	Disabled    []string  `json:"disabled_handler_names"`
	LastUpdated time.Time `json:"last_updated,omitempty"`
}

// Contains reports whether the named handler is disabled.
func (s DisabledSet) Contains(name string) bool {
	name = normalizeName(name)
	for _, disabled := range s.Disabled {
		if disabled == name {
			return true
		}
	}
	return false
}

// DisabledStore persists the DisabledSet to
// <workspace>/state/disabled_handlers.json. Mutations are full-file
// rewrites and go through the lock manager.
type DisabledStore struct {
	path  string
	locks *lockfile.Manager
	now   func() time.Time
}

// NewDisabledStore creates a store rooted at workspace state.
func NewDisabledStore(workspace string, locks *lockfile.Manager) *DisabledStore {
	return &DisabledStore{
		path:  filepath.Join(workspace, "state", disabledFileName),
		locks: locks,
		now:   time.Now,
	}
}

// Load reads the current set. A missing or unreadable file yields the
// empty set, which means every handler is enabled.
func (s *DisabledStore) Load() DisabledSet {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			slog.Warn("read disabled set", "path", s.path, "error", err)
		}
		return defaultDisabledSet()
	}

	var set DisabledSet
	if err := json.Unmarshal(raw, &set); err != nil {
		slog.Warn("disabled set corrupt, treating all handlers as enabled", "path", s.path, "error", err)
		return defaultDisabledSet()
	}
	if set.Disabled == nil {
		set.Disabled = []string{}
	}
	return set
}

// Disable adds a handler to the set. Reserved core names fail
// validation; disabling an already-disabled handler is a no-op.
func (s *DisabledStore) Disable(name string) error {
	name = normalizeName(name)
	if name == "" {
		return fmt.Errorf("handler name is required")
	}
	if IsReserved(name) {
		return fmt.Errorf("%q is a core component and cannot be disabled", name)
	}

	return s.locks.WithLock(disabledLockName, "disable handler "+name, disabledLockWait, func() error {
		set := s.Load()
		if set.Contains(name) {
			return nil
		}
		set.Disabled = append(set.Disabled, name)
		sort.Strings(set.Disabled)
		return s.save(set)
	})
}

// Enable removes a handler from the set; unknown names are a no-op.
func (s *DisabledStore) Enable(name string) error {
	name = normalizeName(name)
	if name == "" {
		return fmt.Errorf("handler name is required")
	}

	return s.locks.WithLock(disabledLockName, "enable handler "+name, disabledLockWait, func() error {
		set := s.Load()
		kept := set.Disabled[:0]
		for _, disabled := range set.Disabled {
			if disabled != name {
				kept = append(kept, disabled)
			}
		}
		set.Disabled = kept
		return s.save(set)
	})
}

func (s *DisabledStore) save(set DisabledSet) error {
	set.Version = disabledVersion
	set.LastUpdated = s.now().UTC()
	if set.Disabled == nil {
		set.Disabled = []string{}
	}

	encoded, err := json.MarshalIndent(set, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal disabled set: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), disabledDirMode); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}

	tempPath := s.path + ".tmp"
	if err := os.WriteFile(tempPath, encoded, disabledFileMode); err != nil {
		return fmt.Errorf("write temp disabled set: %w", err)
	}
	if err := os.Rename(tempPath, s.path); err != nil {
		return fmt.Errorf("replace disabled set: %w", err)
	}
	return nil
}

func defaultDisabledSet() DisabledSet {
	return DisabledSet{Version: disabledVersion, Disabled: []string{}}
}

func normalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
