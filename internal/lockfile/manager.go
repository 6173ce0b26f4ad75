package lockfile

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/user"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"
)

const (
	lockFileMode = 0644
	lockDirMode  = 0755

	defaultStaleAfter   = 10 * time.Minute
	defaultPollInterval = 100 * time.Millisecond
)

// ErrContended is returned when a lock is legitimately held by a live
// process and the wait budget ran out. Callers decide whether to
// proceed without the lock or abort.
var ErrContended = errors.New("lock contended")

// Record is the on-disk representation of a held lock. Marker files are
// plain JSON so operator tooling can inspect them directly.
type Record struct {
	Name      string    `json:"name"`
	PID       int       `json:"pid"`
	Host      string    `json:"host,omitempty"`
	User      string    `json:"user,omitempty"`
	Command   string    `json:"command,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Manager provides named mutual exclusion through marker files under
// <workspace>/locks.
type Manager struct {
	dir          string
	staleAfter   time.Duration
	pollInterval time.Duration

	now   func() time.Time
	alive func(pid int) bool
}

// Option customizes a Manager.
type Option func(*Manager)

// WithStaleAfter sets the age beyond which a marker is presumed abandoned.
func WithStaleAfter(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.staleAfter = d
		}
	}
}

// WithPollInterval sets the sleep between contended acquire attempts.
func WithPollInterval(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.pollInterval = d
		}
	}
}

// NewManager creates a lock manager rooted at <workspace>/locks.
func NewManager(workspace string, opts ...Option) *Manager {
	m := &Manager{
		dir:          filepath.Join(workspace, "locks"),
		staleAfter:   defaultStaleAfter,
		pollInterval: defaultPollInterval,
		now:          time.Now,
		alive:        processAlive,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Lock is a held lock handle. Release is idempotent and must be called
// on every exit path of the holder.
type Lock struct {
	manager  *Manager
	name     string
	path     string
	pid      int
	mu       sync.Mutex
	released bool
}

// Acquire attempts exclusive creation of the named lock marker.
//
// An existing marker older than the staleness threshold, or one whose
// recorded holder process no longer exists, is reclaimed immediately.
// A legitimately held lock is retried until the wait budget runs out,
// then Acquire fails with ErrContended.
func (m *Manager) Acquire(name, command string, wait time.Duration) (*Lock, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("lock name is required")
	}
	if err := os.MkdirAll(m.dir, lockDirMode); err != nil {
		return nil, fmt.Errorf("create lock dir: %w", err)
	}

	path := m.markerPath(name)
	remaining := wait
	for {
		acquired, err := m.tryCreate(name, command, path)
		if err != nil {
			return nil, err
		}
		if acquired {
			return &Lock{manager: m, name: name, path: path, pid: os.Getpid()}, nil
		}

		record, readErr := m.readMarker(name, path)
		if readErr != nil {
			if os.IsNotExist(readErr) {
				continue // holder released between attempts
			}
			return nil, readErr
		}

		age := m.now().Sub(record.CreatedAt)
		if age > m.staleAfter {
			slog.Warn("reclaimed stale lock", "name", name, "age", age, "pid", record.PID)
			if err := m.removeMarker(path); err != nil {
				return nil, err
			}
			continue
		}
		if !m.alive(record.PID) {
			slog.Warn("reclaimed lock from dead holder", "name", name, "pid", record.PID)
			if err := m.removeMarker(path); err != nil {
				return nil, err
			}
			continue
		}

		if remaining < m.pollInterval {
			return nil, fmt.Errorf("acquire %q held by pid %d: %w", name, record.PID, ErrContended)
		}
		time.Sleep(m.pollInterval)
		remaining -= m.pollInterval
	}
}

// WithLock runs fn while holding the named lock, releasing it on every
// exit path including a panic inside fn.
func (m *Manager) WithLock(name, command string, wait time.Duration, fn func() error) error {
	lock, err := m.Acquire(name, command, wait)
	if err != nil {
		return err
	}
	defer func() {
		if releaseErr := lock.Release(); releaseErr != nil {
			slog.Warn("release lock", "name", name, "error", releaseErr)
		}
	}()
	return fn()
}

// Release deletes the marker. Releasing an already-released lock, or a
// marker that was reclaimed and re-acquired by another process, is a
// no-op.
func (l *Lock) Release() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.released {
		return nil
	}
	l.released = true

	record, err := l.manager.readMarker(l.name, l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	if record.PID != l.pid {
		slog.Warn("skipping release of lock held by another process", "name", l.name, "holder_pid", record.PID)
		return nil
	}
	return l.manager.removeMarker(l.path)
}

// Info returns the marker record for one named lock without mutating
// any lock state.
func (m *Manager) Info(name string) (Record, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Record{}, fmt.Errorf("lock name is required")
	}
	return m.readMarker(name, m.markerPath(name))
}

// List returns records for every current lock marker.
func (m *Manager) List() ([]Record, error) {
	entries, err := os.ReadDir(m.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read lock dir: %w", err)
	}

	var records []Record
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".lock") {
			continue
		}
		name := strings.TrimSuffix(entry.Name(), ".lock")
		record, err := m.readMarker(name, filepath.Join(m.dir, entry.Name()))
		if err != nil {
			continue
		}
		records = append(records, record)
	}
	return records, nil
}

func (m *Manager) tryCreate(name, command, path string) (bool, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, lockFileMode)
	if err != nil {
		if os.IsExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("create lock marker: %w", err)
	}
	defer file.Close()

	record := Record{
		Name:      name,
		PID:       os.Getpid(),
		Host:      hostname(),
		User:      currentUser(),
		Command:   strings.TrimSpace(command),
		CreatedAt: m.now().UTC(),
	}
	encoded, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return false, fmt.Errorf("marshal lock record: %w", err)
	}
	if _, err := file.Write(encoded); err != nil {
		return false, fmt.Errorf("write lock record: %w", err)
	}
	return true, nil
}

func (m *Manager) readMarker(name, path string) (Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Record{}, err
	}

	var record Record
	if err := json.Unmarshal(data, &record); err != nil {
		// An unreadable marker still blocks; fall back to file
		// mtime so the staleness threshold can reclaim it.
		record = Record{Name: name}
		if info, statErr := os.Stat(path); statErr == nil {
			record.CreatedAt = info.ModTime()
		}
		return record, nil
	}
	if record.Name == "" {
		record.Name = name
	}
	return record, nil
}

func (m *Manager) removeMarker(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove lock marker: %w", err)
	}
	return nil
}

func (m *Manager) markerPath(name string) string {
	safeName := strings.NewReplacer(":", "_", "/", "_", "\\", "_").Replace(name)
	return filepath.Join(m.dir, safeName+".lock")
}

// processAlive probes holder liveness with a null signal. A permission
// error still means the process exists.
func processAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	err = proc.Signal(syscall.Signal(0))
	if err == nil {
		return true
	}
	return errors.Is(err, syscall.EPERM)
}

func hostname() string {
	host, err := os.Hostname()
	if err != nil {
		return ""
	}
	return host
}

func currentUser() string {
	u, err := user.Current()
	if err != nil {
		return ""
	}
	return u.Username
}
