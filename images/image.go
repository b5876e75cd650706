// Package images - Pixel buffers and input normalization for the counting pipeline.
//
// Every pipeline invocation receives a *Buffer: an upright, 3-channel, 8-bit BGR image held
// in a gocv.Mat. Buffers are produced from raw sensor frames (FromFrame), from decoded Go
// images (FromImage) or from encoded bytes (Decode) and are immutable once produced.
//
// Note: You must call Close() when finished to release native resources.
package images

import (
	"image"

	"github.com/pkg/errors"
	"gocv.io/x/gocv"
)

var (
	// ErrEmptyImage is returned when an input carries no pixels.
	ErrEmptyImage = errors.New("image is empty")
	// ErrInvalidFrame is returned when a raw frame does not match its declared geometry.
	ErrInvalidFrame = errors.New("invalid frame")
	// ErrDecode is returned when encoded image bytes cannot be decoded.
	ErrDecode = errors.New("image decoding failed")
)

// Buffer is an immutable BGR pixel buffer owned by a single pipeline invocation.
type Buffer struct {
	mat gocv.Mat
}

// NewBuffer takes ownership of a 3-channel 8-bit BGR Mat.
//
// Arguments:
//   - mat: The BGR Mat. The caller must not close it after handing it over.
//
// Returns:
//   - *Buffer: The buffer wrapping mat.
//   - error: ErrEmptyImage if the Mat is empty, ErrInvalidFrame if it is not CV_8UC3.
func NewBuffer(mat gocv.Mat) (*Buffer, error) {
	if mat.Empty() || mat.Rows() == 0 || mat.Cols() == 0 {
		mat.Close()
		return nil, ErrEmptyImage
	}
	if mat.Type() != gocv.MatTypeCV8UC3 {
		mat.Close()
		return nil, errors.Wrapf(ErrInvalidFrame, "expected CV_8UC3 buffer, got type %d", mat.Type())
	}
	return &Buffer{mat: mat}, nil
}

// Mat returns the underlying BGR Mat. It must be treated as read-only.
func (b *Buffer) Mat() gocv.Mat {
	return b.mat
}

// Width returns the buffer width in pixels.
func (b *Buffer) Width() int {
	return b.mat.Cols()
}

// Height returns the buffer height in pixels.
func (b *Buffer) Height() int {
	return b.mat.Rows()
}

// Size returns the buffer dimensions as a point (X = width, Y = height).
func (b *Buffer) Size() image.Point {
	return image.Pt(b.mat.Cols(), b.mat.Rows())
}

// Pixels returns a copy of the interleaved BGR bytes, row-major, three bytes per pixel.
func (b *Buffer) Pixels() []byte {
	return b.mat.ToBytes()
}

// Close releases the native Mat.
func (b *Buffer) Close() error {
	if b == nil {
		return nil
	}
	return b.mat.Close()
}
