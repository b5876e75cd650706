package segment

import (
	"encoding/binary"

	"github.com/pkg/errors"
	"gocv.io/x/gocv"
)

// Reserved label values of marker and label maps.
const (
	// LabelBoundary marks pixels where flood fronts of different labels met.
	LabelBoundary int32 = -1
	// LabelUnknown marks pixels left for the watershed to resolve.
	LabelUnknown int32 = 0
	// LabelBackground marks confirmed background.
	LabelBackground int32 = 1
	// FirstSeedLabel is the label of the first object seed.
	FirstSeedLabel int32 = 2
)

// LabelMap is a width x height integer field: a marker map before the watershed, a label map
// after it.
type LabelMap struct {
	Width  int
	Height int
	Labels []int32
}

// NewLabelMap allocates a map filled with LabelUnknown.
func NewLabelMap(width, height int) *LabelMap {
	return &LabelMap{Width: width, Height: height, Labels: make([]int32, width*height)}
}

// At returns the label at (x, y).
func (l *LabelMap) At(x, y int) int32 {
	return l.Labels[y*l.Width+x]
}

// Clone returns a deep copy of the map.
func (l *LabelMap) Clone() *LabelMap {
	out := &LabelMap{Width: l.Width, Height: l.Height, Labels: make([]int32, len(l.Labels))}
	copy(out.Labels, l.Labels)
	return out
}

// Distinct returns the object labels (>= FirstSeedLabel) present in the map, in first-seen
// row-major order.
func (l *LabelMap) Distinct() []int32 {
	seen := make(map[int32]struct{})
	var out []int32
	for _, v := range l.Labels {
		if v < FirstSeedLabel {
			continue
		}
		if _, ok := seen[v]; !ok {
			seen[v] = struct{}{}
			out = append(out, v)
		}
	}
	return out
}

// LabelComponents labels the 8-connected components of m in row-major discovery order.
// Background pixels get LabelBackground and components are numbered from FirstSeedLabel.
//
// Returns:
//   - *LabelMap: The labeled map.
//   - int: The number of components.
//   - error: An error if the mask is empty or OpenCV fails.
func LabelComponents(m *Mask) (*LabelMap, int, error) {
	src, err := m.toMat()
	if err != nil {
		return nil, 0, err
	}
	defer src.Close()

	components := gocv.NewMat()
	defer components.Close()
	n := gocv.ConnectedComponents(src, &components)
	if components.Type() != gocv.MatTypeCV32SC1 {
		return nil, 0, errors.New("connected components: no label image")
	}
	raw := components.ToBytes()
	if len(raw) != 4*len(m.Pix) {
		return nil, 0, errors.Wrap(ErrDimensionMismatch, "connected components")
	}

	// Renumber by first appearance in raster order.
	rename := make([]int32, max(n, 1))
	next := FirstSeedLabel
	out := NewLabelMap(m.Width, m.Height)
	for i := range out.Labels {
		c := int32(binary.NativeEndian.Uint32(raw[4*i:]))
		if c == 0 {
			out.Labels[i] = LabelBackground
			continue
		}
		if int(c) >= len(rename) || c < 0 {
			return nil, 0, errors.Errorf("connected components: label %d out of range", c)
		}
		if rename[c] == 0 {
			rename[c] = next
			next++
		}
		out.Labels[i] = rename[c]
	}

	return out, int(next - FirstSeedLabel), nil
}
