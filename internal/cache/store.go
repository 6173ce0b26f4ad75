package cache

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/zeebo/blake3"

	"github.com/hookgate/hookgate/internal/lockfile"
)

const (
	storeVersion  = 1
	cacheFileName = "cache.json"
	cacheFileMode = 0644
	cacheDirMode  = 0755

	lockName     = "cache-store"
	lockWait     = 2 * time.Second
	lockCommand  = "cache store rewrite"
	// DefaultTTL bounds entries whose writers pass no explicit TTL.
	DefaultTTL = 15 * time.Minute
)

// Entry is one immutable cache record. A re-computation overwrites the
// entry for the same key with a fresh created_at.
type Entry struct {
	Value     json.RawMessage `json:"value"`
	CreatedAt time.Time       `json:"created_at"`
	TTLMs     int64           `json:"ttl_ms"`
}

type fileData struct {
	Version int              `json:"version"`
	Entries map[string]Entry `json:"entries"`
}

// Store is a content-addressed, TTL-bounded key/value store backed by a
// single JSON file at <workspace>/state/cache.json. Rewrites go through
// the lock manager; a corrupt store fails open as a total miss.
type Store struct {
	path  string
	locks *lockfile.Manager
	now   func() time.Time
}

// NewStore creates a cache store rooted at workspace state.
func NewStore(workspace string, locks *lockfile.Manager) *Store {
	return &Store{
		path:  filepath.Join(workspace, "state", cacheFileName),
		locks: locks,
		now:   time.Now,
	}
}

// Key computes the canonical cache key for an operation and its full
// input. Identical requests always hash to the same key; any input
// difference changes it.
func Key(operation string, input []byte) string {
	buf := make([]byte, 0, len(operation)+1+len(input))
	buf = append(buf, operation...)
	buf = append(buf, 0)
	buf = append(buf, input...)
	sum := blake3.Sum256(buf)
	return hex.EncodeToString(sum[:])
}

// Lookup returns the value for key and whether it was an unexpired hit.
func (s *Store) Lookup(key string) (json.RawMessage, bool) {
	data := s.load()
	entry, ok := data.Entries[key]
	if !ok {
		return nil, false
	}
	if s.now().Sub(entry.CreatedAt) >= time.Duration(entry.TTLMs)*time.Millisecond {
		return nil, false
	}
	return entry.Value, true
}

// Put writes an entry for key, overwriting any existing one.
func (s *Store) Put(key string, value json.RawMessage, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	entry := Entry{
		Value:     value,
		CreatedAt: s.now().UTC(),
		TTLMs:     ttl.Milliseconds(),
	}
	return s.locks.WithLock(lockName, lockCommand, lockWait, func() error {
		data := s.load()
		data.Entries[key] = entry
		return s.save(data)
	})
}

// Stats summarizes the store for hit-rate and freshness reporting.
type Stats struct {
	Path    string
	Entries int
	Expired int
}

// Stats counts live and expired entries without mutating the store.
func (s *Store) Stats() Stats {
	data := s.load()
	stats := Stats{Path: s.path, Entries: len(data.Entries)}
	for _, entry := range data.Entries {
		if s.now().Sub(entry.CreatedAt) >= time.Duration(entry.TTLMs)*time.Millisecond {
			stats.Expired++
		}
	}
	return stats
}

// Clear removes every entry.
func (s *Store) Clear() error {
	return s.locks.WithLock(lockName, "cache store clear", lockWait, func() error {
		return s.save(defaultFileData())
	})
}

func (s *Store) load() fileData {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			slog.Warn("read cache store", "path", s.path, "error", err)
		}
		return defaultFileData()
	}

	var data fileData
	if err := json.Unmarshal(raw, &data); err != nil {
		// Corrupt store: fail open, treat as a total miss.
		slog.Warn("cache store corrupt, treating as empty", "path", s.path, "error", err)
		return defaultFileData()
	}
	if data.Entries == nil {
		data.Entries = map[string]Entry{}
	}
	return data
}

func (s *Store) save(data fileData) error {
	if err := os.MkdirAll(filepath.Dir(s.path), cacheDirMode); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}

	encoded, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal cache store: %w", err)
	}

	tempPath := s.path + ".tmp"
	if err := os.WriteFile(tempPath, encoded, cacheFileMode); err != nil {
		return fmt.Errorf("write temp cache store: %w", err)
	}
	if err := os.Rename(tempPath, s.path); err != nil {
		return fmt.Errorf("replace cache store: %w", err)
	}
	return nil
}

func defaultFileData() fileData {
	return fileData{Version: storeVersion, Entries: map[string]Entry{}}
}
