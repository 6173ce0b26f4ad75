package metrics

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/hookgate/hookgate/internal/handler"
	"github.com/hookgate/hookgate/internal/lockfile"
)

const (
	metricsFileName = "dispatch_metrics.json"
	metricsFileMode = 0644
	metricsDirMode  = 0755

	metricsLockName = "dispatch-metrics"
	metricsLockWait = 2 * time.Second
)

var latencyBucketUpperBoundsMs = []int64{
	10, 25, 50, 100, 250, 500, 1000, 2000, 5000, 10000, 30000,
}

// HandlerStats aggregates dispatch outcomes for one handler.
type HandlerStats struct {
	Total             int64   `json:"total"`
	Denies            int64   `json:"denies"`
	Errors            int64   `json:"errors"`
	Timeouts          int64   `json:"timeouts"`
	TotalLatencyMs    int64   `json:"total_latency_ms"`
	MaxLatencyMs      int64   `json:"max_latency_ms"`
	P95ProxyLatencyMs int64   `json:"p95_proxy_latency_ms"`
	LatencyBuckets    []int64 `json:"latency_buckets,omitempty"`
}

// ErrorRatio returns errors/total in [0,1].
func (s HandlerStats) ErrorRatio() float64 {
	if s.Total <= 0 {
		return 0
	}
	return float64(s.Errors) / float64(s.Total)
}

// AvgLatencyMs returns average handler latency in milliseconds.
func (s HandlerStats) AvgLatencyMs() float64 {
	if s.Total <= 0 {
		return 0
	}
	return float64(s.TotalLatencyMs) / float64(s.Total)
}

// Snapshot contains aggregated dispatch metrics across all handlers.
type Snapshot struct {
	UpdatedAt      time.Time                `json:"updated_at"`
	Dispatches     int64                    `json:"dispatches"`
	TotalLatencyMs int64                    `json:"total_latency_ms"`
	Handlers       map[string]*HandlerStats `json:"handlers"`
}

// HasData reports whether any dispatch metrics were recorded.
func (s Snapshot) HasData() bool {
	return s.Dispatches > 0
}

// Recorder persists dispatch metrics to
// <workspace>/state/dispatch_metrics.json. Because concurrent
// dispatcher invocations share the file, every update is a
// load-merge-save under the lock manager.
type Recorder struct {
	path  string
	locks *lockfile.Manager
	now   func() time.Time
}

// NewRecorder creates a metrics recorder rooted at workspace state.
func NewRecorder(workspace string, locks *lockfile.Manager) *Recorder {
	return &Recorder{
		path:  metricsPath(workspace),
		locks: locks,
		now:   time.Now,
	}
}

// RecordDispatch folds one dispatch invocation's verdicts into the
// persisted snapshot.
func (r *Recorder) RecordDispatch(verdicts []handler.Verdict, total time.Duration) error {
	if r == nil {
		return nil
	}

	return r.locks.WithLock(metricsLockName, "dispatch metrics update", metricsLockWait, func() error {
		snap, err := readSnapshot(r.path)
		if err != nil {
			// A corrupt metrics file is not worth failing a
			// dispatch over; start over from zero.
			snap = Snapshot{}
		}
		if snap.Handlers == nil {
			snap.Handlers = make(map[string]*HandlerStats)
		}

		snap.UpdatedAt = r.now().UTC()
		snap.Dispatches++
		totalMs := total.Milliseconds()
		if totalMs < 0 {
			totalMs = 0
		}
		snap.TotalLatencyMs += totalMs

		for _, verdict := range verdicts {
			stats, ok := snap.Handlers[verdict.Handler]
			if !ok {
				stats = &HandlerStats{LatencyBuckets: make([]int64, len(latencyBucketUpperBoundsMs)+1)}
				snap.Handlers[verdict.Handler] = stats
			}
			if len(stats.LatencyBuckets) != len(latencyBucketUpperBoundsMs)+1 {
				stats.LatencyBuckets = make([]int64, len(latencyBucketUpperBoundsMs)+1)
			}

			latencyMs := verdict.Elapsed.Milliseconds()
			if latencyMs < 0 {
				latencyMs = 0
			}
			stats.Total++
			stats.TotalLatencyMs += latencyMs
			if latencyMs > stats.MaxLatencyMs {
				stats.MaxLatencyMs = latencyMs
			}
			switch verdict.Outcome {
			case handler.OutcomeDeny:
				stats.Denies++
			case handler.OutcomeError:
				stats.Errors++
				if verdict.ErrorDetail == "timeout" {
					stats.Timeouts++
				}
			}
			stats.LatencyBuckets[latencyBucketIndex(latencyMs)]++
			stats.P95ProxyLatencyMs = p95ProxyFromBuckets(stats.LatencyBuckets, stats.Total)
		}

		return writeSnapshot(r.path, snap)
	})
}

// Read returns the persisted snapshot for a workspace. A missing file
// reads as a zero-value snapshot.
func Read(workspace string) (Snapshot, error) {
	return readSnapshot(metricsPath(workspace))
}

func metricsPath(workspace string) string {
	return filepath.Join(workspace, "state", metricsFileName)
}

func readSnapshot(path string) (Snapshot, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Snapshot{}, nil
		}
		return Snapshot{}, fmt.Errorf("read dispatch metrics: %w", err)
	}

	var snap Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return Snapshot{}, fmt.Errorf("decode dispatch metrics: %w", err)
	}
	return snap, nil
}

func writeSnapshot(path string, snap Snapshot) error {
	if err := os.MkdirAll(filepath.Dir(path), metricsDirMode); err != nil {
		return fmt.Errorf("create metrics dir: %w", err)
	}

	payload, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode dispatch metrics: %w", err)
	}

	tempPath := path + ".tmp"
	if err := os.WriteFile(tempPath, payload, metricsFileMode); err != nil {
		return fmt.Errorf("write dispatch metrics temp file: %w", err)
	}
	if err := os.Rename(tempPath, path); err != nil {
		return fmt.Errorf("rename dispatch metrics file: %w", err)
	}
	return nil
}

func latencyBucketIndex(latencyMs int64) int {
	for i, upper := range latencyBucketUpperBoundsMs {
		if latencyMs <= upper {
			return i
		}
	}
	return len(latencyBucketUpperBoundsMs)
}

func p95ProxyFromBuckets(buckets []int64, total int64) int64 {
	if total <= 0 {
		return 0
	}
	target := int64(float64(total) * 0.95)
	if target <= 0 {
		target = 1
	}

	var cumulative int64
	for i, count := range buckets {
		cumulative += count
		if cumulative < target {
			continue
		}
		if i >= len(latencyBucketUpperBoundsMs) {
			return latencyBucketUpperBoundsMs[len(latencyBucketUpperBoundsMs)-1]
		}
		return latencyBucketUpperBoundsMs[i]
	}
	return latencyBucketUpperBoundsMs[len(latencyBucketUpperBoundsMs)-1]
}
