package images

import (
	"github.com/pkg/errors"
	"gocv.io/x/gocv"
)

// Layout identifies the byte layout of a raw frame handed over by the acquisition side.
type Layout string

const (
	// LayoutBGR is interleaved 8-bit blue, green, red.
	LayoutBGR Layout = "bgr"
	// LayoutBGRA is interleaved 8-bit blue, green, red, alpha.
	LayoutBGRA Layout = "bgra"
	// LayoutRGBA is interleaved 8-bit red, green, blue, alpha (image.RGBA's Pix layout).
	LayoutRGBA Layout = "rgba"
	// LayoutGray is a single 8-bit luminance plane.
	LayoutGray Layout = "gray"
	// LayoutNV21 is a full-resolution Y plane followed by an interleaved V/U plane at half
	// resolution, the default camera preview format on mobile sensors.
	LayoutNV21 Layout = "nv21"
)

// Frame is a raw sensor frame plus the clockwise rotation, in degrees, that makes it upright.
type Frame struct {
	Data     []byte
	Width    int
	Height   int
	Layout   Layout
	Rotation int
}

// expectedSize returns the number of bytes a frame of the given layout must carry.
func (f Frame) expectedSize() (int, error) {
	px := f.Width * f.Height
	switch f.Layout {
	case LayoutBGR:
		return px * 3, nil
	case LayoutBGRA, LayoutRGBA:
		return px * 4, nil
	case LayoutGray:
		return px, nil
	case LayoutNV21:
		if f.Width%2 != 0 || f.Height%2 != 0 {
			return 0, errors.Wrapf(ErrInvalidFrame, "nv21 frame needs even dimensions, got %dx%d", f.Width, f.Height)
		}
		return px * 3 / 2, nil
	default:
		return 0, errors.Wrapf(ErrInvalidFrame, "unsupported layout %q", f.Layout)
	}
}

// FromFrame normalizes a raw frame into an upright BGR buffer.
//
// Arguments:
//   - f: The raw frame. Rotation must be one of 0, 90, 180 or 270.
//
// Returns:
//   - *Buffer: The upright BGR buffer; the caller owns it.
//   - error: ErrEmptyImage or ErrInvalidFrame (wrapped) when the frame is malformed.
//
// @example
// buf, err := images.FromFrame(images.Frame{Data: nv21, Width: 640, Height: 480, Layout: images.LayoutNV21, Rotation: 90})
//
//	if err != nil {
//	    return err
//	}
//
// defer buf.Close()
func FromFrame(f Frame) (*Buffer, error) {
	if len(f.Data) == 0 || f.Width <= 0 || f.Height <= 0 {
		return nil, ErrEmptyImage
	}
	want, err := f.expectedSize()
	if err != nil {
		return nil, err
	}
	if len(f.Data) != want {
		return nil, errors.Wrapf(ErrInvalidFrame, "%s frame %dx%d needs %d bytes, got %d",
			f.Layout, f.Width, f.Height, want, len(f.Data))
	}
	rotate, err := rotateFlag(f.Rotation)
	if err != nil {
		return nil, err
	}

	bgr, err := toBGR(f)
	if err != nil {
		return nil, err
	}
	if rotate == nil {
		return NewBuffer(bgr)
	}
	defer bgr.Close()

	upright := gocv.NewMat()
	gocv.Rotate(bgr, &upright, *rotate)
	return NewBuffer(upright)
}

// toBGR copies the raw bytes into a new BGR Mat.
func toBGR(f Frame) (gocv.Mat, error) {
	rows, mt := f.Height, gocv.MatTypeCV8UC3
	switch f.Layout {
	case LayoutBGRA, LayoutRGBA:
		mt = gocv.MatTypeCV8UC4
	case LayoutGray:
		mt = gocv.MatTypeCV8UC1
	case LayoutNV21:
		rows, mt = f.Height*3/2, gocv.MatTypeCV8UC1
	}

	// The header aliases f.Data, so everything below produces an owned copy.
	src, err := gocv.NewMatFromBytes(rows, f.Width, mt, f.Data)
	if err != nil {
		return gocv.NewMat(), errors.Wrap(ErrInvalidFrame, err.Error())
	}
	defer src.Close()

	if f.Layout == LayoutBGR {
		return src.Clone(), nil
	}

	dst := gocv.NewMat()
	switch f.Layout {
	case LayoutBGRA:
		gocv.CvtColor(src, &dst, gocv.ColorBGRAToBGR)
	case LayoutRGBA:
		gocv.CvtColor(src, &dst, gocv.ColorRGBAToBGR)
	case LayoutGray:
		gocv.CvtColor(src, &dst, gocv.ColorGrayToBGR)
	case LayoutNV21:
		gocv.CvtColor(src, &dst, gocv.ColorYUVToBGRNV21)
	}
	return dst, nil
}

func rotateFlag(degrees int) (*gocv.RotateFlag, error) {
	var flag gocv.RotateFlag
	switch degrees {
	case 0:
		return nil, nil
	case 90:
		flag = gocv.Rotate90Clockwise
	case 180:
		flag = gocv.Rotate180Clockwise
	case 270:
		flag = gocv.Rotate90CounterClockwise
	default:
		return nil, errors.Wrapf(ErrInvalidFrame, "rotation must be 0, 90, 180 or 270, got %d", degrees)
	}
	return &flag, nil
}
