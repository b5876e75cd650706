// Package common - Types shared between the counting pipeline and its consumers.
package common

import (
	"fmt"
	"math"

	"github.com/nvr-ai/go-count/images"
)

const (
	// ObjectLabel is the label of every detection; objects are not classified.
	ObjectLabel = "object"
	// DefaultConfidence is the confidence of every detection; confidence is not modeled.
	DefaultConfidence float32 = 1.0
)

// Detection is one counted object: a box normalized to the frame, X and Y at the top-left
// corner. Detections are values and are never mutated once produced.
type Detection struct {
	Label      string  `json:"label"`
	Confidence float32 `json:"confidence"`
	X          float32 `json:"x"`
	Y          float32 `json:"y"`
	Width      float32 `json:"width"`
	Height     float32 `json:"height"`
}

// NewDetection returns an "object" detection with full confidence.
func NewDetection(x, y, width, height float32) Detection {
	return Detection{
		Label:      ObjectLabel,
		Confidence: DefaultConfidence,
		X:          x,
		Y:          y,
		Width:      width,
		Height:     height,
	}
}

// FromRect normalizes a pixel rectangle against a frameWidth x frameHeight frame.
func FromRect(r images.Rect, frameWidth, frameHeight int) Detection {
	fw, fh := float32(frameWidth), float32(frameHeight)
	return NewDetection(float32(r.X1)/fw, float32(r.Y1)/fh, float32(r.Width())/fw, float32(r.Height())/fh)
}

// Rect converts the detection back to pixel space, rounding to the nearest pixel.
//
// Arguments:
//   - frameWidth: The frame width in pixels.
//   - frameHeight: The frame height in pixels.
//
// Returns:
//   - images.Rect: The pixel rectangle.
//
// @example
// d := common.NewDetection(0.1, 0.2, 0.5, 0.5)
// r := d.Rect(100, 100) // {10 20 60 70}
func (d Detection) Rect(frameWidth, frameHeight int) images.Rect {
	fw, fh := float64(frameWidth), float64(frameHeight)
	x1 := int(math.Round(float64(d.X) * fw))
	y1 := int(math.Round(float64(d.Y) * fh))
	return images.Rect{
		X1: x1,
		Y1: y1,
		X2: x1 + int(math.Round(float64(d.Width)*fw)),
		Y2: y1 + int(math.Round(float64(d.Height)*fh)),
	}
}

// InUnitSquare reports whether the detection lies within the normalized frame.
func (d Detection) InUnitSquare() bool {
	return d.X >= 0 && d.Y >= 0 && d.Width >= 0 && d.Height >= 0 &&
		d.X+d.Width <= 1.000001 && d.Y+d.Height <= 1.000001
}

func (d Detection) String() string {
	return fmt.Sprintf("Object %s (confidence %f): (%f, %f) %fx%f",
		d.Label, d.Confidence, d.X, d.Y, d.Width, d.Height)
}
