package detector

import (
	"sync"
	"time"

	"github.com/nvr-ai/go-count/images"
	"github.com/nvr-ai/go-count/logging"
	"github.com/nvr-ai/go-count/stabilizer"
)

// StreamStats describes the frames a stream has processed since it was started.
type StreamStats struct {
	Frames  int64         `json:"frames"`
	Errors  int64         `json:"errors"`
	// Changes counts the frames that moved the stabilized count.
	Changes int64         `json:"changes"`
	Elapsed time.Duration `json:"elapsed"`
	// FPS is the mean processing rate since Start.
	FPS     float64       `json:"fps"`
}

// Stream counts objects in a live sequence of frames, smoothing the count with a stabilizer
// session. It is safe for concurrent use; frames are processed one at a time.
type Stream struct {
	mu       sync.Mutex
	pipeline *Pipeline
	session  *stabilizer.Session
	logger   logging.Logger

	started time.Time
	stats   StreamStats
}

// NewStream creates a stopped stream over p, sized by the pipeline's stabilizer settings.
func NewStream(p *Pipeline) *Stream {
	cfg := p.cfg.Stabilizer
	return &Stream{
		pipeline: p,
		session:  stabilizer.NewSessionWithMinSamples(cfg.Window, cfg.MinSamples),
		logger:   p.logger,
	}
}

// Start begins a new session, clearing the count history.
func (s *Stream) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.session.Start()
	s.started = time.Now()
	s.stats = StreamStats{}
	s.logger.Infow("live counting started")
}

// Stop ends the session.
func (s *Stream) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.session.Active() {
		return
	}
	s.session.Stop()
	s.logger.Infow("live counting stopped",
		"frames", s.stats.Frames,
		"errors", s.stats.Errors,
		"count", s.session.Snapshot().Count,
	)
}

// Active reports whether the stream is started.
func (s *Stream) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session.Active()
}

// Process counts the objects in buf and folds the raw count into the session. The buffer is
// borrowed.
//
// A frame the pipeline rejects is not observed: the error is returned and the stabilized
// output is left as it was.
//
// Arguments:
//   - buf: The frame.
//
// Returns:
//   - Result: The stabilized count with the detections of the frame that produced it.
//   - error: stabilizer.ErrSessionInactive when stopped, or the pipeline error.
func (s *Stream) Process(buf *images.Buffer) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.session.Active() {
		return Result{}, stabilizer.ErrSessionInactive
	}

	s.stats.Frames++
	res, err := s.pipeline.Detect(buf)
	if err != nil {
		s.stats.Errors++
		s.logger.Warnw("frame skipped", "error", err)
		return Result{}, err
	}

	prev := s.session.Snapshot().Count
	snap, err := s.session.Observe(res.Count, res.Detections)
	if err != nil {
		return Result{}, err
	}
	if snap.Count != prev {
		s.stats.Changes++
		s.logger.Infow("stable count changed", "from", prev, "to", snap.Count, "raw", res.Count)
	}

	return Result{
		Detections: snap.Detections,
		Count:      snap.Count,
		Width:      res.Width,
		Height:     res.Height,
	}, nil
}

// ProcessFrame normalizes a raw sensor frame and processes it.
func (s *Stream) ProcessFrame(f images.Frame) (Result, error) {
	if !s.Active() {
		return Result{}, stabilizer.ErrSessionInactive
	}
	buf, err := images.FromFrame(f)
	if err != nil {
		return Result{}, err
	}
	defer buf.Close()
	return s.Process(buf)
}

// Snapshot returns the current stabilized output.
func (s *Stream) Snapshot() stabilizer.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session.Snapshot()
}

// Stats returns the counters of the current session.
func (s *Stream) Stats() StreamStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.stats
	if !s.started.IsZero() {
		st.Elapsed = time.Since(s.started)
		if secs := st.Elapsed.Seconds(); secs > 0 {
			st.FPS = float64(st.Frames) / secs
		}
	}
	return st
}
