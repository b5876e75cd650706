package segment

import (
	"image"

	"github.com/pkg/errors"
	"gocv.io/x/gocv"
)

// maxFilter returns the maximum of field over an elliptical size x size window at every pixel.
// The dilation border ignores neighbors beyond the image edge.
func maxFilter(field *DistanceField, size int) ([]float32, error) {
	if size <= 1 {
		out := make([]float32, len(field.Values))
		copy(out, field.Values)
		return out, nil
	}

	mat, err := field.toMat()
	if err != nil {
		return nil, err
	}
	defer mat.Close()

	kernel := gocv.GetStructuringElement(gocv.MorphEllipse, image.Pt(size, size))
	defer kernel.Close()

	dilated := gocv.NewMat()
	defer dilated.Close()
	if err := gocv.Dilate(mat, &dilated, kernel); err != nil {
		return nil, errors.Wrap(err, "max filter")
	}

	out, err := fieldFromMat(dilated)
	if err != nil {
		return nil, err
	}
	return out.Values, nil
}

// LocalMaxima finds the pixels whose value equals the maximum of the field over an elliptical
// neighborhood of the given kernel size and exceeds minDistance. Neighbors beyond the image edge
// are ignored.
//
// Arguments:
//   - field: The normalized distance field.
//   - kernel: The neighborhood diameter (px), roughly the smallest expected object radius.
//   - minDistance: The strict lower bound on a peak's value.
//
// Returns:
//   - *Mask: The peak mask.
//   - error: An error if the field is empty or OpenCV fails.
func LocalMaxima(field *DistanceField, kernel int, minDistance float32) (*Mask, error) {
	window, err := maxFilter(field, kernel)
	if err != nil {
		return nil, err
	}

	peaks := NewMask(field.Width, field.Height)
	for i, v := range field.Values {
		if v > minDistance && v == window[i] {
			peaks.Pix[i] = 1
		}
	}
	return peaks, nil
}
