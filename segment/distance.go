package segment

import (
	"github.com/chewxy/math32"
	"github.com/pkg/errors"
	"gocv.io/x/gocv"
)

// maskPrecise is OpenCV's DIST_MASK_PRECISE. gocv names the value 0 DistanceMask3.
const maskPrecise = gocv.DistanceTransformMasks(0)

// DistanceField is a width x height scalar field over a mask.
type DistanceField struct {
	Width  int
	Height int
	Values []float32
}

// At returns the field value at (x, y).
func (d *DistanceField) At(x, y int) float32 {
	return d.Values[y*d.Width+x]
}

// Max returns the largest value of the field, or 0 for an empty field.
func (d *DistanceField) Max() float32 {
	var best float32
	for _, v := range d.Values {
		if v > best {
			best = v
		}
	}
	return best
}

// fieldFromMat copies a single-channel CV_32F Mat into a DistanceField.
func fieldFromMat(mat gocv.Mat) (*DistanceField, error) {
	if mat.Type() != gocv.MatTypeCV32FC1 {
		return nil, errors.Errorf("field from mat: unexpected type %v", mat.Type())
	}
	values, err := mat.DataPtrFloat32()
	if err != nil {
		return nil, errors.Wrap(err, "field from mat")
	}
	out := &DistanceField{Width: mat.Cols(), Height: mat.Rows(), Values: make([]float32, len(values))}
	copy(out.Values, values)
	return out, nil
}

// toMat renders the field as an owned CV_32FC1 Mat.
func (d *DistanceField) toMat() (gocv.Mat, error) {
	if d.Width == 0 || d.Height == 0 {
		return gocv.NewMat(), ErrEmptyMask
	}
	if len(d.Values) != d.Width*d.Height {
		return gocv.NewMat(), ErrDimensionMismatch
	}
	mat := gocv.NewMatWithSize(d.Height, d.Width, gocv.MatTypeCV32FC1)
	values, err := mat.DataPtrFloat32()
	if err != nil {
		mat.Close()
		return gocv.NewMat(), errors.Wrap(err, "field to mat")
	}
	copy(values, d.Values)
	return mat, nil
}

// DistanceTransform computes the exact Euclidean distance from every foreground pixel of m to
// the nearest background pixel; background pixels are 0. Pixels beyond the image edge do not
// count as background, so a mask without any background pixel yields an all-zero field.
//
// Arguments:
//   - m: The binary mask.
//
// Returns:
//   - *DistanceField: The unnormalized distance field.
//   - error: ErrEmptyMask for a zero-sized mask, or an OpenCV failure.
func DistanceTransform(m *Mask) (*DistanceField, error) {
	w, h := m.Width, m.Height
	if w == 0 || h == 0 {
		return nil, ErrEmptyMask
	}
	if m.Count() == len(m.Pix) {
		return &DistanceField{Width: w, Height: h, Values: make([]float32, w*h)}, nil
	}

	src, err := m.toMat()
	if err != nil {
		return nil, err
	}
	defer src.Close()

	dst := gocv.NewMat()
	defer dst.Close()
	labels := gocv.NewMat()
	defer labels.Close()

	if err := gocv.DistanceTransform(src, &dst, &labels, gocv.DistL2, maskPrecise, gocv.DistanceLabelCComp); err != nil {
		return nil, errors.Wrap(err, "distance transform")
	}
	return fieldFromMat(dst)
}

// Normalize rescales the field linearly so its minimum maps to 0 and its maximum to 255.
// A field whose values are all equal normalizes to all zeros.
func Normalize(d *DistanceField) *DistanceField {
	out := &DistanceField{Width: d.Width, Height: d.Height, Values: make([]float32, len(d.Values))}
	if len(d.Values) == 0 {
		return out
	}

	lo, hi := d.Values[0], d.Values[0]
	for _, v := range d.Values {
		lo = math32.Min(lo, v)
		hi = math32.Max(hi, v)
	}
	span := hi - lo
	if span == 0 {
		return out
	}

	scale := 255 / span
	for i, v := range d.Values {
		out.Values[i] = (v - lo) * scale
	}
	return out
}
