package segment

import (
	"image"

	"github.com/pkg/errors"
	"gocv.io/x/gocv"
)

// MorphologyConfig parameterizes mask refinement. A kernel size or iteration count of zero
// skips the corresponding operation.
type MorphologyConfig struct {
	// CloseKernel is the elliptical element size (px) of the gap-filling closing.
	CloseKernel int `json:"close_kernel" yaml:"close_kernel"`
	// CloseIterations is the number of dilations, then erosions, of the closing.
	CloseIterations int `json:"close_iterations" yaml:"close_iterations"`
	// OpenKernel is the elliptical element size (px) of the speckle-removing opening.
	OpenKernel int `json:"open_kernel" yaml:"open_kernel"`
	// OpenIterations is the number of erosions, then dilations, of the opening.
	OpenIterations int `json:"open_iterations" yaml:"open_iterations"`
}

// DefaultMorphologyConfig returns a configuration suited to medium-sized objects.
func DefaultMorphologyConfig() MorphologyConfig {
	return MorphologyConfig{
		CloseKernel:     11,
		CloseIterations: 1,
		OpenKernel:      5,
		OpenIterations:  2,
	}
}

// Refine cleans a mask: a closing fills gaps inside objects, then an opening strips speckle and
// thins bridges between lightly-touching objects.
//
// Arguments:
//   - m: The mask to refine. It is not modified.
//   - cfg: Kernel sizes and iteration counts.
//
// Returns:
//   - *Mask: The refined mask.
//   - error: An error if the mask is empty or OpenCV rejects an operation.
func Refine(m *Mask, cfg MorphologyConfig) (*Mask, error) {
	mat, err := m.toMat()
	if err != nil {
		return nil, err
	}
	defer mat.Close()

	if cfg.CloseKernel > 0 && cfg.CloseIterations > 0 {
		kernel := gocv.GetStructuringElement(gocv.MorphEllipse, image.Pt(cfg.CloseKernel, cfg.CloseKernel))
		defer kernel.Close()
		if err := dilate(&mat, kernel, cfg.CloseIterations); err != nil {
			return nil, errors.Wrap(err, "closing")
		}
		erode(&mat, kernel, cfg.CloseIterations)
	}

	if cfg.OpenKernel > 0 && cfg.OpenIterations > 0 {
		kernel := gocv.GetStructuringElement(gocv.MorphEllipse, image.Pt(cfg.OpenKernel, cfg.OpenKernel))
		defer kernel.Close()
		erode(&mat, kernel, cfg.OpenIterations)
		if err := dilate(&mat, kernel, cfg.OpenIterations); err != nil {
			return nil, errors.Wrap(err, "opening")
		}
	}

	return maskFromMat(mat), nil
}

// Dilate grows the foreground of m by iterations passes of a size x size element.
func Dilate(m *Mask, shape gocv.MorphShape, size, iterations int) (*Mask, error) {
	if size <= 0 || iterations <= 0 {
		return m.Clone(), nil
	}
	mat, err := m.toMat()
	if err != nil {
		return nil, err
	}
	defer mat.Close()

	kernel := gocv.GetStructuringElement(shape, image.Pt(size, size))
	defer kernel.Close()
	if err := dilate(&mat, kernel, iterations); err != nil {
		return nil, err
	}
	return maskFromMat(mat), nil
}

func dilate(mat *gocv.Mat, kernel gocv.Mat, iterations int) error {
	for i := 0; i < iterations; i++ {
		if err := gocv.Dilate(*mat, mat, kernel); err != nil {
			return err
		}
	}
	return nil
}

func erode(mat *gocv.Mat, kernel gocv.Mat, iterations int) {
	for i := 0; i < iterations; i++ {
		gocv.Erode(*mat, mat, kernel)
	}
}
