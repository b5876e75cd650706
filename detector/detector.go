// Package detector - The model-free counting pipeline.
//
// A Pipeline composes the segmentation stages and the configured size reconciler into one
// synchronous call per image. A Stream wraps a Pipeline with a stabilizer session for live use.
package detector

import (
	"image"

	"github.com/nvr-ai/go-count/common"
	"github.com/nvr-ai/go-count/config"
	"github.com/nvr-ai/go-count/images"
	"github.com/nvr-ai/go-count/logging"
	"github.com/nvr-ai/go-count/profiler"
	"github.com/nvr-ai/go-count/reconcile"
	"github.com/nvr-ai/go-count/segment"
	"github.com/pkg/errors"
)

// Stage names reported to the profiler.
const (
	StageBackground = "background"
	StageMask       = "mask"
	StageRefine     = "refine"
	StageMarkers    = "markers"
	StageWatershed  = "watershed"
	StageRegions    = "regions"
	StageReconcile  = "reconcile"
)

// Result is the outcome of one invocation.
type Result struct {
	// Detections is in region discovery order, as adjusted by the reconciler.
	Detections []common.Detection `json:"detections"`
	// Count is raw in photo mode and stabilized in streaming mode.
	Count  int `json:"count"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Stages holds every intermediate product of one invocation.
type Stages struct {
	Background segment.Background
	Mask       *segment.Mask
	Refined    *segment.Mask
	Markers    *segment.Markers
	Labels     *segment.LabelMap
	Regions    []segment.Region
	// Raw is the detection set before reconciliation.
	Raw    []common.Detection
	Result Result
}

// Option customizes a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the logger; the default discards everything.
func WithLogger(logger logging.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// WithTimer records stage durations into timer.
func WithTimer(timer *profiler.StageTimer) Option {
	return func(p *Pipeline) {
		p.timer = timer
	}
}

// Pipeline runs the counting stages. It holds no per-image state and may be shared across
// goroutines.
type Pipeline struct {
	cfg        config.Config
	reconciler reconcile.Reconciler
	logger     logging.Logger
	timer      *profiler.StageTimer
}

// New validates cfg and builds a pipeline.
//
// Arguments:
//   - cfg: The pipeline configuration.
//   - opts: Optional logger and timer.
//
// Returns:
//   - *Pipeline: The pipeline.
//   - error: An error wrapping config.ErrInvalid for an invalid configuration.
//
// @example
// p, err := detector.New(config.Default(), detector.WithLogger(logger))
//
//	if err != nil {
//	    return err
//	}
//
// res, err := p.DetectEncoded(jpegBytes)
func New(cfg config.Config, opts ...Option) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	r, err := reconcile.New(cfg.Reconcile.Strategy, cfg.Reconcile.Config)
	if err != nil {
		return nil, errors.Wrap(config.ErrInvalid, err.Error())
	}

	p := &Pipeline{
		cfg:        cfg,
		reconciler: r,
		logger:     logging.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Config returns the pipeline's configuration.
func (p *Pipeline) Config() config.Config {
	return p.cfg
}

// Detect counts the objects in buf. The buffer is borrowed: it is neither modified nor closed.
func (p *Pipeline) Detect(buf *images.Buffer) (Result, error) {
	stages, err := p.Inspect(buf)
	if err != nil {
		return Result{}, err
	}
	return stages.Result, nil
}

// Inspect runs the pipeline like Detect and returns every intermediate product.
func (p *Pipeline) Inspect(buf *images.Buffer) (*Stages, error) {
	if buf == nil || buf.Mat().Empty() {
		return nil, images.ErrEmptyImage
	}
	cfg := p.cfg
	s := &Stages{}
	var err error

	done := p.timer.Start(StageBackground)
	s.Background, err = segment.EstimateBackground(buf, cfg.BackgroundPolicy)
	done()
	if err != nil {
		return nil, errors.Wrap(err, StageBackground)
	}

	done = p.timer.Start(StageMask)
	s.Mask, err = segment.BuildMask(buf, s.Background, cfg.Tolerance)
	done()
	if err != nil {
		return nil, errors.Wrap(err, StageMask)
	}

	done = p.timer.Start(StageRefine)
	s.Refined, err = segment.Refine(s.Mask, cfg.Morphology)
	done()
	if err != nil {
		return nil, errors.Wrap(err, StageRefine)
	}

	done = p.timer.Start(StageMarkers)
	s.Markers, err = segment.GenerateMarkers(s.Refined, cfg.Markers)
	done()
	if err != nil {
		return nil, errors.Wrap(err, StageMarkers)
	}

	done = p.timer.Start(StageWatershed)
	s.Labels, err = segment.Watershed(s.Markers, buf, cfg.Topography)
	done()
	if err != nil {
		return nil, errors.Wrap(err, StageWatershed)
	}

	done = p.timer.Start(StageRegions)
	s.Regions = segment.ExtractRegions(s.Labels, cfg.MinArea)
	s.Raw = segment.ToDetections(s.Regions, buf.Width(), buf.Height())
	done()

	done = p.timer.Start(StageReconcile)
	dets := p.reconciler.Reconcile(s.Raw, image.Pt(buf.Width(), buf.Height()))
	done()

	s.Result = Result{
		Detections: dets,
		Count:      len(dets),
		Width:      buf.Width(),
		Height:     buf.Height(),
	}

	p.logger.Debugw("frame counted",
		"width", buf.Width(),
		"height", buf.Height(),
		"neutral", s.Background.Neutral,
		"foreground", s.Refined.Count(),
		"seeds", s.Markers.Seeds,
		"regions", len(s.Regions),
		"count", s.Result.Count,
		"strategy", p.reconciler.Strategy(),
	)
	return s, nil
}

// DetectFrame normalizes a raw sensor frame and counts its objects.
func (p *Pipeline) DetectFrame(f images.Frame) (Result, error) {
	buf, err := images.FromFrame(f)
	if err != nil {
		return Result{}, err
	}
	defer buf.Close()
	return p.Detect(buf)
}

// DetectImage normalizes a decoded gallery image, bounded by the configured maximum
// dimension, and counts its objects.
func (p *Pipeline) DetectImage(img image.Image) (Result, error) {
	buf, err := images.FromImage(img, p.cfg.MaxDimension)
	if err != nil {
		return Result{}, err
	}
	defer buf.Close()
	return p.Detect(buf)
}

// DetectEncoded decodes a JPEG, PNG or WebP image, bounded by the configured maximum
// dimension, and counts its objects.
func (p *Pipeline) DetectEncoded(data []byte) (Result, error) {
	buf, err := images.Decode(data, p.cfg.MaxDimension)
	if err != nil {
		return Result{}, err
	}
	defer buf.Close()
	return p.Detect(buf)
}
