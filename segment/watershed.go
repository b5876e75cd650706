package segment

import (
	"github.com/nvr-ai/go-count/images"
	"github.com/pkg/errors"
)

// Topography selects the surface the watershed floods.
type Topography string

const (
	// TopographyImage floods the color image; the cost between neighbors is their largest
	// per-channel difference.
	TopographyImage Topography = "image"
	// TopographyDistance floods the inverted distance field, so fronts meet at the narrowest
	// part of the mask.
	TopographyDistance Topography = "distance"
)

const (
	priorityLevels  = 256
	labelInQueue    = int32(-2)
	maxPriorityCost = priorityLevels - 1
)

// Surface prices the step from pixel index from to its 4-neighbor to. Costs are clamped to 0-255.
type Surface interface {
	Cost(from, to int) int
}

// ImageSurface prices steps by the largest absolute difference of interleaved BGR pixels.
type ImageSurface struct {
	Pix []byte
}

// Cost implements Surface.
func (s ImageSurface) Cost(from, to int) int {
	a, b := s.Pix[from*3:from*3+3], s.Pix[to*3:to*3+3]
	best := 0
	for c := 0; c < 3; c++ {
		d := int(a[c]) - int(b[c])
		if d < 0 {
			d = -d
		}
		best = max(best, d)
	}
	return best
}

// DistanceSurface prices a step by the inverted normalized distance of its destination.
type DistanceSurface struct {
	Field *DistanceField
}

// Cost implements Surface.
func (s DistanceSurface) Cost(_, to int) int {
	return maxPriorityCost - int(s.Field.Values[to]+0.5)
}

// Watershed runs the marker-controlled watershed of markers over the selected topography of buf.
// The marker map is left untouched and a new label map is returned.
//
// Arguments:
//   - markers: The output of GenerateMarkers for buf's mask.
//   - buf: The original BGR image.
//   - topo: The surface to flood.
//
// Returns:
//   - *LabelMap: The label map: -1 boundary, 1 background, >= 2 objects, 0 unreachable.
//   - error: An error if the inputs disagree on geometry or the topography is unknown.
func Watershed(markers *Markers, buf *images.Buffer, topo Topography) (*LabelMap, error) {
	if buf == nil || buf.Mat().Empty() {
		return nil, images.ErrEmptyImage
	}
	if markers.Map.Width != buf.Width() || markers.Map.Height != buf.Height() {
		return nil, errors.Wrapf(ErrDimensionMismatch, "markers %dx%d, image %dx%d",
			markers.Map.Width, markers.Map.Height, buf.Width(), buf.Height())
	}

	var surface Surface
	switch topo {
	case TopographyImage, "":
		surface = ImageSurface{Pix: buf.Pixels()}
	case TopographyDistance:
		surface = DistanceSurface{Field: markers.Distance}
	default:
		return nil, errors.Errorf("unknown topography %q", topo)
	}

	return Flood(markers.Map, surface), nil
}

// bucket is a FIFO of pixel indices.
type bucket struct {
	items []int
	head  int
}

func (b *bucket) push(i int) {
	b.items = append(b.items, i)
}

func (b *bucket) pop() int {
	i := b.items[b.head]
	b.head++
	if b.head == len(b.items) {
		b.items = b.items[:0]
		b.head = 0
	}
	return i
}

func (b *bucket) empty() bool {
	return b.head == len(b.items)
}

// Flood grows the labels of markers over surface with 256 FIFO priority levels and
// 4-connectivity. Only LabelUnknown pixels are assigned. A pixel that touches two different
// labels when it is dequeued becomes LabelBoundary and does not propagate.
func Flood(markers *LabelMap, surface Surface) *LabelMap {
	w, h := markers.Width, markers.Height
	out := markers.Clone()
	lab := out.Labels

	var queues [priorityLevels]bucket
	active := priorityLevels

	enqueue := func(i, cost int) {
		cost = max(0, min(cost, maxPriorityCost))
		queues[cost].push(i)
		lab[i] = labelInQueue
		active = min(active, cost)
	}

	neighbors := func(i int, fn func(j int)) {
		x, y := i%w, i/w
		if x > 0 {
			fn(i - 1)
		}
		if x < w-1 {
			fn(i + 1)
		}
		if y > 0 {
			fn(i - w)
		}
		if y < h-1 {
			fn(i + w)
		}
	}

	for i := range lab {
		if lab[i] != LabelUnknown {
			continue
		}
		cost := -1
		neighbors(i, func(j int) {
			if lab[j] > 0 {
				c := surface.Cost(j, i)
				if cost < 0 || c < cost {
					cost = c
				}
			}
		})
		if cost >= 0 {
			enqueue(i, cost)
		}
	}

	for active < priorityLevels {
		if queues[active].empty() {
			active++
			continue
		}
		i := queues[active].pop()

		label := LabelUnknown
		neighbors(i, func(j int) {
			v := lab[j]
			if v <= 0 {
				return
			}
			if label == LabelUnknown {
				label = v
			} else if label != v {
				label = LabelBoundary
			}
		})
		lab[i] = label
		if label == LabelBoundary {
			continue
		}

		neighbors(i, func(j int) {
			if lab[j] == LabelUnknown {
				enqueue(j, surface.Cost(i, j))
			}
		})
	}

	return out
}
