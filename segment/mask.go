// Package segment - Model-free foreground segmentation and touching-object separation.
//
// The package implements the stages of the counting pipeline as pure functions: every stage
// takes the previous stage's product and returns a new one, so each can be tested in
// isolation.
//
// Pipeline Overview:
//
// ┌──────────────┐
// │ BGR Buffer   │
// └──────┬───────┘
// ┌────────────────────────────────────────────┐
// │ EstimateBackground (HSV histograms / Otsu) │
// └──────┬─────────────────────────────────────┘
// ┌────────────────────────────┐
// │ BuildMask (binary mask)    │
// └──────┬─────────────────────┘
// ┌────────────────────────────┐
// │ Refine (close, then open)  │
// └──────┬─────────────────────┘
// ┌────────────────────────────────────────────┐
// │ GenerateMarkers (distance, peaks, unknown) │
// └──────┬─────────────────────────────────────┘
// ┌────────────────────────────┐
// │ Watershed (label map)      │
// └──────┬─────────────────────┘
// ┌────────────────────────────┐
// │ ExtractRegions (boxes)     │
// └────────────────────────────┘
//
// Every stage except the watershed flood runs on OpenCV (via gocv). Stage products are Go-side
// fields owned by the caller.
package segment

import (
	"github.com/pkg/errors"
	"gocv.io/x/gocv"
)

// Mask is a binary field, 1 = candidate object pixel.
type Mask struct {
	Width  int
	Height int
	Pix    []uint8
}

// NewMask allocates an all-background mask.
func NewMask(width, height int) *Mask {
	return &Mask{Width: width, Height: height, Pix: make([]uint8, width*height)}
}

// At reports whether (x, y) is foreground. Out-of-range coordinates are background.
func (m *Mask) At(x, y int) bool {
	if x < 0 || y < 0 || x >= m.Width || y >= m.Height {
		return false
	}
	return m.Pix[y*m.Width+x] != 0
}

// Set marks (x, y) as foreground or background.
func (m *Mask) Set(x, y int, on bool) {
	if on {
		m.Pix[y*m.Width+x] = 1
	} else {
		m.Pix[y*m.Width+x] = 0
	}
}

// Count returns the number of foreground pixels.
func (m *Mask) Count() int {
	n := 0
	for _, v := range m.Pix {
		if v != 0 {
			n++
		}
	}
	return n
}

// Clone returns a deep copy of the mask.
func (m *Mask) Clone() *Mask {
	out := &Mask{Width: m.Width, Height: m.Height, Pix: make([]uint8, len(m.Pix))}
	copy(out.Pix, m.Pix)
	return out
}

// maskFromMat converts a single-channel 8-bit Mat into a Mask (non-zero = foreground).
func maskFromMat(mat gocv.Mat) *Mask {
	m := NewMask(mat.Cols(), mat.Rows())
	for i, v := range mat.ToBytes() {
		if v != 0 {
			m.Pix[i] = 1
		}
	}
	return m
}

// toMat renders the mask as an owned CV_8UC1 Mat with 255 for foreground.
func (m *Mask) toMat() (gocv.Mat, error) {
	if m.Width == 0 || m.Height == 0 {
		return gocv.NewMat(), ErrEmptyMask
	}
	data := make([]byte, len(m.Pix))
	for i, v := range m.Pix {
		if v != 0 {
			data[i] = 255
		}
	}
	header, err := gocv.NewMatFromBytes(m.Height, m.Width, gocv.MatTypeCV8UC1, data)
	if err != nil {
		return gocv.NewMat(), errors.Wrap(err, "mask to mat")
	}
	defer header.Close()
	return header.Clone(), nil
}

var (
	// ErrEmptyMask is returned when a stage receives a zero-sized mask.
	ErrEmptyMask = errors.New("mask is empty")
	// ErrDimensionMismatch is returned when two stage inputs disagree on geometry.
	ErrDimensionMismatch = errors.New("dimension mismatch")
)
