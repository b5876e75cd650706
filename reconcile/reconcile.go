// Package reconcile - Post-processing of region detections against typical object size.
//
// A watershed pass fails in two opposite ways: touching objects that share one label
// (under-segmentation) and one object split over several labels (over-segmentation). Each
// Strategy addresses one of them; a pipeline runs exactly one.
package reconcile

import (
	"image"
	"math"
	"sort"

	"github.com/nvr-ai/go-count/common"
	"github.com/nvr-ai/go-count/images"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Strategy selects the reconciliation policy.
type Strategy string

const (
	// StrategyNone passes detections through.
	StrategyNone Strategy = "none"
	// StrategyModeSplit splits oversized detections and drops undersized ones relative to the
	// modal detection area.
	StrategyModeSplit Strategy = "mode-split"
	// StrategyOverlapMerge merges overlapping detections into their union.
	StrategyOverlapMerge Strategy = "overlap-merge"
)

// histogramBins is the number of bins of the area histogram.
const histogramBins = 10

// ErrUnknownStrategy is returned by New for an unrecognized strategy.
var ErrUnknownStrategy = errors.New("unknown reconcile strategy")

// Config holds the thresholds of both strategies.
type Config struct {
	// ModalBand is the relative half-width of the band around the modal area in which
	// detections are kept unchanged.
	ModalBand float64 `json:"modal_band" yaml:"modal_band"`
	// MergeIoU is the IoU above which two detections are merged.
	MergeIoU float32 `json:"merge_iou" yaml:"merge_iou"`
}

// DefaultConfig returns a band of 30% and a merge threshold of 0.3.
func DefaultConfig() Config {
	return Config{ModalBand: 0.30, MergeIoU: 0.30}
}

// Reconciler adjusts a frame's detection set.
type Reconciler interface {
	// Reconcile returns the adjusted detections of a frame of the given pixel size. The input
	// slice is not modified.
	Reconcile(dets []common.Detection, frame image.Point) []common.Detection
	// Strategy reports the policy this reconciler implements.
	Strategy() Strategy
}

// New returns the reconciler implementing strategy.
//
// Arguments:
//   - strategy: The policy to run.
//   - cfg: The thresholds.
//
// Returns:
//   - Reconciler: The reconciler.
//   - error: ErrUnknownStrategy for an unrecognized strategy.
func New(strategy Strategy, cfg Config) (Reconciler, error) {
	switch strategy {
	case StrategyNone, "":
		return passthrough{}, nil
	case StrategyModeSplit:
		return &ModeSplitter{Band: cfg.ModalBand}, nil
	case StrategyOverlapMerge:
		return &OverlapMerger{Threshold: cfg.MergeIoU}, nil
	default:
		return nil, errors.Wrapf(ErrUnknownStrategy, "%q", strategy)
	}
}

type passthrough struct{}

func (passthrough) Reconcile(dets []common.Detection, _ image.Point) []common.Detection {
	return append([]common.Detection(nil), dets...)
}

func (passthrough) Strategy() Strategy { return StrategyNone }

// ModeSplitter compares every detection's pixel area with the modal area of the set. Areas
// within the band are kept, larger ones are emitted floor(area/mode) times (at least twice) at
// the same box, smaller ones are dropped.
//
// Emitting duplicate boxes is an approximation: it corrects the count of a merged cluster
// without subdividing it spatially.
type ModeSplitter struct {
	Band float64
}

// Strategy implements Reconciler.
func (m *ModeSplitter) Strategy() Strategy { return StrategyModeSplit }

// Reconcile implements Reconciler.
func (m *ModeSplitter) Reconcile(dets []common.Detection, frame image.Point) []common.Detection {
	if len(dets) <= 1 {
		return append([]common.Detection(nil), dets...)
	}

	areas := make([]float64, len(dets))
	for i, d := range dets {
		areas[i] = PixelArea(d, frame)
	}
	mode := ModalArea(areas)
	if mode <= 0 {
		return append([]common.Detection(nil), dets...)
	}

	lower, upper := mode*(1-m.Band), mode*(1+m.Band)
	out := make([]common.Detection, 0, len(dets))
	for i, d := range dets {
		switch a := areas[i]; {
		case a < lower:
			// fragment
		case a > upper:
			n := max(2, int(math.Floor(a/mode)))
			for k := 0; k < n; k++ {
				out = append(out, d)
			}
		default:
			out = append(out, d)
		}
	}
	return out
}

// PixelArea returns the area of d in pixels of frame, with width and height rounded separately.
func PixelArea(d common.Detection, frame image.Point) float64 {
	w := math.Round(float64(d.Width) * float64(frame.X))
	h := math.Round(float64(d.Height) * float64(frame.Y))
	return w * h
}

// ModalArea returns the center of the first most populated bin of a 10-bin histogram spanning
// [min(areas), max(areas)]. When all areas are equal it returns that area; an empty input
// returns 0.
func ModalArea(areas []float64) float64 {
	if len(areas) == 0 {
		return 0
	}

	x := append([]float64(nil), areas...)
	sort.Float64s(x)
	lo, hi := x[0], x[len(x)-1]
	if lo == hi {
		return lo
	}

	dividers := floats.Span(make([]float64, histogramBins+1), lo, hi)
	// The histogram's last bin is half-open; nudge the top divider so hi is counted.
	dividers[histogramBins] = math.Nextafter(hi, math.Inf(1))
	counts := stat.Histogram(nil, dividers, x, nil)

	best := 0
	for i, c := range counts {
		if c > counts[best] {
			best = i
		}
	}
	return (dividers[best] + dividers[best+1]) / 2
}

// OverlapMerger repeatedly replaces the first pair of detections whose IoU exceeds Threshold
// with their union box, until no such pair is left. IoU is measured on pixel rectangles.
type OverlapMerger struct {
	Threshold float32
}

// Strategy implements Reconciler.
func (o *OverlapMerger) Strategy() Strategy { return StrategyOverlapMerge }

// Reconcile implements Reconciler.
func (o *OverlapMerger) Reconcile(dets []common.Detection, frame image.Point) []common.Detection {
	out := append([]common.Detection(nil), dets...)
	if len(out) <= 1 {
		return out
	}

	rects := make([]images.Rect, len(out))
	for i, d := range out {
		rects[i] = d.Rect(frame.X, frame.Y)
	}

	for {
		i, j, ok := o.firstOverlap(rects)
		if !ok {
			return out
		}
		rects[i] = rects[i].Union(rects[j])
		out[i] = common.FromRect(rects[i], frame.X, frame.Y)
		rects = append(rects[:j], rects[j+1:]...)
		out = append(out[:j], out[j+1:]...)
	}
}

func (o *OverlapMerger) firstOverlap(rects []images.Rect) (int, int, bool) {
	for i := 0; i < len(rects); i++ {
		for j := i + 1; j < len(rects); j++ {
			if images.CalculateIoU(rects[i], rects[j]) > o.Threshold {
				return i, j, true
			}
		}
	}
	return 0, 0, false
}
