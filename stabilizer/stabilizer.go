// Package stabilizer - Majority-vote smoothing of per-frame counts in a streaming session.
//
// A Session is an explicit value owned by one stream: it is started when live counting is
// switched on, fed one raw count per frame, and stopped when counting is switched off. It is
// not safe for concurrent use.
package stabilizer

import (
	"github.com/nvr-ai/go-count/common"
	"github.com/pkg/errors"
)

const (
	// DefaultCapacity is the default number of raw counts kept.
	DefaultCapacity = 10
	// DefaultMinSamples is the default number of samples needed before voting.
	DefaultMinSamples = 5
)

// ErrSessionInactive is returned by Observe on a session that is not started.
var ErrSessionInactive = errors.New("stabilizer session is not active")

// Snapshot is the stabilized output of a session.
type Snapshot struct {
	// Count is the stabilized count.
	Count int `json:"count"`
	// Detections is the detection set of the frame that last changed Count.
	Detections []common.Detection `json:"detections"`
	// Changed is set when the observation replaced the stable output.
	Changed bool `json:"changed"`
}

// Session holds the raw-count history of one streaming session.
type Session struct {
	capacity   int
	minSamples int
	history    []int
	active     bool
	stable     Snapshot
}

// NewSession creates a stopped session keeping the last capacity counts and voting once
// DefaultMinSamples are seen. A non-positive capacity falls back to DefaultCapacity.
func NewSession(capacity int) *Session {
	return NewSessionWithMinSamples(capacity, DefaultMinSamples)
}

// NewSessionWithMinSamples creates a stopped session with an explicit voting threshold, clamped
// to [1, capacity].
func NewSessionWithMinSamples(capacity, minSamples int) *Session {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Session{
		capacity:   capacity,
		minSamples: max(1, min(minSamples, capacity)),
		history:    make([]int, 0, capacity),
	}
}

// Start clears the history, zeroes the stable count and activates the session.
func (s *Session) Start() {
	s.history = s.history[:0]
	s.stable = Snapshot{}
	s.active = true
}

// Stop deactivates the session. The history is kept until the next Start.
func (s *Session) Stop() {
	s.active = false
}

// Active reports whether the session is started.
func (s *Session) Active() bool {
	return s.active
}

// Observe records the raw count of one frame and returns the stabilized output.
//
// With fewer than the minimum samples the candidate is raw itself; otherwise it is the most
// frequent count of the history, ties going to the value met first from oldest to newest. The
// stable output is replaced by the candidate and dets only when the candidate differs from the
// current stable count or the history is full.
//
// Arguments:
//   - raw: The frame's raw count.
//   - dets: The frame's detections.
//
// Returns:
//   - Snapshot: The stabilized output, with Changed set when it was replaced.
//   - error: ErrSessionInactive if the session is not started.
func (s *Session) Observe(raw int, dets []common.Detection) (Snapshot, error) {
	if !s.active {
		return Snapshot{}, ErrSessionInactive
	}

	s.history = append(s.history, raw)
	if len(s.history) > s.capacity {
		copy(s.history, s.history[1:])
		s.history = s.history[:s.capacity]
	}

	candidate := raw
	if len(s.history) >= s.minSamples {
		candidate = Mode(s.history)
	}

	out := s.stable
	out.Changed = false
	if candidate != s.stable.Count || len(s.history) == s.capacity {
		s.stable = Snapshot{
			Count:      candidate,
			Detections: append([]common.Detection(nil), dets...),
		}
		out = s.stable
		out.Changed = true
	}
	return out, nil
}

// Snapshot returns the current stabilized output.
func (s *Session) Snapshot() Snapshot {
	return s.stable
}

// History returns a copy of the raw counts, oldest first.
func (s *Session) History() []int {
	return append([]int(nil), s.history...)
}

// Mode returns the most frequent value of values; ties go to the value that appears first.
// An empty input returns 0.
func Mode(values []int) int {
	counts := make(map[int]int, len(values))
	best, bestCount := 0, 0
	for _, v := range values {
		counts[v]++
	}
	for _, v := range values {
		if c := counts[v]; c > bestCount {
			best, bestCount = v, c
		}
	}
	return best
}
