package audit

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
)

// ReadAll returns every parseable record in the workspace audit log.
// Malformed lines (torn writes surviving an external rotation) are
// skipped, not fatal.
func ReadAll(workspace string) ([]Record, error) {
	path := filepath.Join(workspace, "state", auditFileName)
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer file.Close()

	var records []Record
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		var record Record
		if err := json.Unmarshal(scanner.Bytes(), &record); err != nil {
			continue
		}
		records = append(records, record)
	}
	return records, scanner.Err()
}

// HandlerReport aggregates audit records for one handler.
type HandlerReport struct {
	Handler        string
	Total          int64
	Denies         int64
	Errors         int64
	Timeouts       int64
	TotalElapsedMs int64
	MaxElapsedMs   int64
}

// AvgElapsedMs returns mean handler latency in milliseconds.
func (r HandlerReport) AvgElapsedMs() float64 {
	if r.Total <= 0 {
		return 0
	}
	return float64(r.TotalElapsedMs) / float64(r.Total)
}

// Summarize folds per-handler records into reports, sorted by handler
// name for stable operator output. Dispatcher summary records (empty
// handler field) are excluded.
func Summarize(records []Record) []HandlerReport {
	byHandler := make(map[string]*HandlerReport)
	for _, record := range records {
		if record.Handler == "" {
			continue
		}
		report, ok := byHandler[record.Handler]
		if !ok {
			report = &HandlerReport{Handler: record.Handler}
			byHandler[record.Handler] = report
		}
		report.Total++
		report.TotalElapsedMs += record.ElapsedMs
		if record.ElapsedMs > report.MaxElapsedMs {
			report.MaxElapsedMs = record.ElapsedMs
		}
		switch record.Outcome {
		case "deny":
			report.Denies++
		case "error":
			report.Errors++
			if record.Detail == "timeout" {
				report.Timeouts++
			}
		}
	}

	reports := make([]HandlerReport, 0, len(byHandler))
	for _, report := range byHandler {
		reports = append(reports, *report)
	}
	sort.Slice(reports, func(i, j int) bool {
		return reports[i].Handler < reports[j].Handler
	})
	return reports
}
