// internal/metrics/latency.go
// Package metrics tracks timing statistics for backend calls.
package metrics

import "time"

// LatencyTracker accumulates per-call latencies for the run summary.
type LatencyTracker struct {
	count int
	total time.Duration
	min   time.Duration
	max   time.Duration
}

// Observe records one backend call's duration.
func (t *LatencyTracker) Observe(d time.Duration) {
	if t.count == 0 || d < t.min {
		t.min = d
	}
	if d > t.max {
		t.max = d
	}
	t.count++
	t.total += d
}

// LatencySummary is a snapshot of the tracked statistics in milliseconds.
type LatencySummary struct {
	Calls   int     `json:"call_count"`
	TotalMs float64 `json:"total_ms"`
	AvgMs   float64 `json:"avg_ms"`
	MinMs   float64 `json:"min_ms"`
	MaxMs   float64 `json:"max_ms"`
}

// Summary returns the current statistics. All values are zero when no call
// was observed.
func (t *LatencyTracker) Summary() LatencySummary {
	s := LatencySummary{Calls: t.count}
	if t.count == 0 {
		return s
	}
	s.TotalMs = float64(t.total) / float64(time.Millisecond)
	s.AvgMs = s.TotalMs / float64(t.count)
	s.MinMs = float64(t.min) / float64(time.Millisecond)
	s.MaxMs = float64(t.max) / float64(time.Millisecond)
	return s
}
