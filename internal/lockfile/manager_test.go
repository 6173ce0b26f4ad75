package lockfile

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestManager_AcquireAndRelease(t *testing.T) {
	m := NewManager(t.TempDir())

	lock, err := m.Acquire("deploy", "hookgate test", 0)
	if err != nil {
		t.Fatalf("Acquire error: %v", err)
	}

	record, err := m.Info("deploy")
	if err != nil {
		t.Fatalf("Info error: %v", err)
	}
	if record.PID != os.Getpid() {
		t.Fatalf("expected holder pid %d, got %d", os.Getpid(), record.PID)
	}
	if record.Command != "hookgate test" {
		t.Fatalf("unexpected command: %q", record.Command)
	}
	if record.CreatedAt.IsZero() {
		t.Fatal("expected non-zero created_at")
	}

	if err := lock.Release(); err != nil {
		t.Fatalf("Release error: %v", err)
	}
	if _, err := m.Info("deploy"); !os.IsNotExist(err) {
		t.Fatalf("expected marker to be gone, got %v", err)
	}

	// Idempotent release.
	if err := lock.Release(); err != nil {
		t.Fatalf("second Release error: %v", err)
	}
}

func TestManager_ContendedWithoutWait(t *testing.T) {
	dir := t.TempDir()
	m := NewManager(dir)

	held, err := m.Acquire("deploy", "first", 0)
	if err != nil {
		t.Fatalf("first Acquire error: %v", err)
	}
	defer held.Release()

	_, err = m.Acquire("deploy", "second", 0)
	if !errors.Is(err, ErrContended) {
		t.Fatalf("expected ErrContended, got %v", err)
	}
}

func TestManager_WaitBudgetOutlastsHolder(t *testing.T) {
	m := NewManager(t.TempDir(), WithPollInterval(10*time.Millisecond))

	held, err := m.Acquire("deploy", "first", 0)
	if err != nil {
		t.Fatalf("first Acquire error: %v", err)
	}

	go func() {
		time.Sleep(30 * time.Millisecond)
		held.Release()
	}()

	second, err := m.Acquire("deploy", "second", time.Second)
	if err != nil {
		t.Fatalf("waiting Acquire error: %v", err)
	}
	second.Release()
}

func TestManager_StaleLockReclaimed(t *testing.T) {
	m := NewManager(t.TempDir(), WithStaleAfter(time.Minute))
	fixedNow := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return fixedNow }

	held, err := m.Acquire("deploy", "old", 0)
	if err != nil {
		t.Fatalf("Acquire error: %v", err)
	}
	_ = held // abandoned without release

	// Advance past the staleness threshold; the marker must be
	// reclaimed with no wait budget consumed.
	m.now = func() time.Time { return fixedNow.Add(2 * time.Minute) }
	reclaimed, err := m.Acquire("deploy", "new", 0)
	if err != nil {
		t.Fatalf("Acquire after staleness error: %v", err)
	}
	defer reclaimed.Release()

	record, err := m.Info("deploy")
	if err != nil {
		t.Fatalf("Info error: %v", err)
	}
	if record.Command != "new" {
		t.Fatalf("expected reclaimed marker, got command %q", record.Command)
	}
}

func TestManager_DeadHolderReclaimed(t *testing.T) {
	m := NewManager(t.TempDir())

	held, err := m.Acquire("deploy", "dead", 0)
	if err != nil {
		t.Fatalf("Acquire error: %v", err)
	}
	_ = held

	m.alive = func(pid int) bool { return false }
	reclaimed, err := m.Acquire("deploy", "alive", 0)
	if err != nil {
		t.Fatalf("Acquire against dead holder error: %v", err)
	}
	defer reclaimed.Release()
}

func TestManager_UnparseableMarkerReclaimed(t *testing.T) {
	dir := t.TempDir()
	m := NewManager(dir, WithStaleAfter(time.Hour))

	markerDir := filepath.Join(dir, "locks")
	if err := os.MkdirAll(markerDir, 0755); err != nil {
		t.Fatalf("MkdirAll error: %v", err)
	}
	if err := os.WriteFile(filepath.Join(markerDir, "deploy.lock"), []byte("not json"), 0644); err != nil {
		t.Fatalf("WriteFile error: %v", err)
	}

	// Unparseable marker has pid 0, which counts as a dead holder.
	lock, err := m.Acquire("deploy", "after corrupt", 0)
	if err != nil {
		t.Fatalf("Acquire error: %v", err)
	}
	defer lock.Release()
}

func TestManager_WithLockReleasesOnError(t *testing.T) {
	m := NewManager(t.TempDir())

	wantErr := errors.New("boom")
	err := m.WithLock("deploy", "failing op", 0, func() error {
		return wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Fatalf("expected wrapped fn error, got %v", err)
	}

	lock, err := m.Acquire("deploy", "next", 0)
	if err != nil {
		t.Fatalf("Acquire after failed WithLock error: %v", err)
	}
	defer lock.Release()
}

func TestManager_List(t *testing.T) {
	m := NewManager(t.TempDir())

	if records, err := m.List(); err != nil || len(records) != 0 {
		t.Fatalf("expected empty list, got %v records, err %v", records, err)
	}

	first, err := m.Acquire("alpha", "", 0)
	if err != nil {
		t.Fatalf("Acquire alpha error: %v", err)
	}
	defer first.Release()
	second, err := m.Acquire("beta", "", 0)
	if err != nil {
		t.Fatalf("Acquire beta error: %v", err)
	}
	defer second.Release()

	records, err := m.List()
	if err != nil {
		t.Fatalf("List error: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
}
