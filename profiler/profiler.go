// Package profiler - Per-stage timing statistics for the counting pipeline.
package profiler

import (
	"sync"
	"time"

	"github.com/nvr-ai/go-count/logging"
)

// StageStats summarizes the timings of one stage.
type StageStats struct {
	Name  string        `json:"name"`
	Count int64         `json:"count"`
	Total time.Duration `json:"total"`
	Min   time.Duration `json:"min"`
	Max   time.Duration `json:"max"`
}

// Mean returns the average duration, or 0 when nothing was recorded.
func (s StageStats) Mean() time.Duration {
	if s.Count == 0 {
		return 0
	}
	return s.Total / time.Duration(s.Count)
}

// StageTimer accumulates stage durations. It is safe for concurrent use; a nil *StageTimer
// records nothing.
type StageTimer struct {
	mu     sync.Mutex
	order  []string
	stages map[string]*StageStats
}

// NewStageTimer creates an empty timer.
func NewStageTimer() *StageTimer {
	return &StageTimer{stages: make(map[string]*StageStats)}
}

// Start begins timing a stage.
//
// Arguments:
//   - name: The stage name.
//
// Returns:
//   - A function to call when the stage completes.
//
// @example
// done := timer.Start("watershed")
// labels, err := segment.Watershed(markers, buf, topo)
// done()
func (t *StageTimer) Start(name string) func() {
	if t == nil {
		return func() {}
	}
	start := time.Now()
	return func() {
		t.Record(name, time.Since(start))
	}
}

// Record adds one duration to the stage's statistics.
func (t *StageTimer) Record(name string, d time.Duration) {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	s, ok := t.stages[name]
	if !ok {
		s = &StageStats{Name: name, Min: d, Max: d}
		t.stages[name] = s
		t.order = append(t.order, name)
	}
	s.Count++
	s.Total += d
	s.Min = min(s.Min, d)
	s.Max = max(s.Max, d)
}

// Stats returns a copy of every stage's statistics in first-recorded order.
func (t *StageTimer) Stats() []StageStats {
	if t == nil {
		return nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]StageStats, 0, len(t.order))
	for _, name := range t.order {
		out = append(out, *t.stages[name])
	}
	return out
}

// Reset drops all statistics.
func (t *StageTimer) Reset() {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.order = nil
	t.stages = make(map[string]*StageStats)
}

// Report logs one line per stage at info level.
func (t *StageTimer) Report(logger logging.Logger) {
	for _, s := range t.Stats() {
		logger.Infow("stage timing",
			"stage", s.Name,
			"count", s.Count,
			"avg", s.Mean().Truncate(time.Microsecond),
			"min", s.Min.Truncate(time.Microsecond),
			"max", s.Max.Truncate(time.Microsecond),
		)
	}
}
