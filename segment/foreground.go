package segment

import (
	"math"

	"github.com/nvr-ai/go-count/images"
	"github.com/pkg/errors"
	"gocv.io/x/gocv"
)

// MaskTolerance holds the thresholds of the foreground mask builder.
type MaskTolerance struct {
	// SaturationFloor and ValueFloor select foreground on neutral backgrounds: a pixel is
	// foreground when both its saturation and value exceed the floors.
	SaturationFloor float64 `json:"saturation_floor" yaml:"saturation_floor"`
	ValueFloor      float64 `json:"value_floor" yaml:"value_floor"`
	// HueWindow, SaturationWindow and ValueWindow are the half-widths of the window around a
	// colored background's dominant color; pixels outside the window are foreground.
	HueWindow        float64 `json:"hue_window" yaml:"hue_window"`
	SaturationWindow float64 `json:"saturation_window" yaml:"saturation_window"`
	ValueWindow      float64 `json:"value_window" yaml:"value_window"`
}

// DefaultMaskTolerance returns the tolerances tuned for common table-top scenes.
func DefaultMaskTolerance() MaskTolerance {
	return MaskTolerance{
		SaturationFloor:  40,
		ValueFloor:       30,
		HueWindow:        15,
		SaturationWindow: 50,
		ValueWindow:      50,
	}
}

// BuildMask separates candidate object pixels from the background described by bg.
//
// Arguments:
//   - buf: The BGR input buffer.
//   - bg: The background descriptor produced by EstimateBackground for the same buffer.
//   - tol: The mask tolerances.
//
// Returns:
//   - *Mask: A new mask of the buffer's dimensions.
//   - error: An error if the buffer is empty or the descriptor's policy is unknown.
func BuildMask(buf *images.Buffer, bg Background, tol MaskTolerance) (*Mask, error) {
	if buf == nil || buf.Mat().Empty() {
		return nil, images.ErrEmptyImage
	}

	out := gocv.NewMat()
	defer out.Close()

	switch bg.Policy {
	case PolicyAdaptiveColor:
		hsv := toHSV(buf)
		defer hsv.Close()
		if bg.Neutral {
			// InRange bounds are inclusive; the smallest 8-bit level strictly above a floor is
			// floor(f)+1.
			lower := gocv.NewScalar(0, math.Floor(tol.SaturationFloor)+1, math.Floor(tol.ValueFloor)+1, 0)
			upper := gocv.NewScalar(hueRange, 255, 255, 0)
			gocv.InRangeWithScalar(hsv, lower, upper, &out)
			break
		}
		lower := gocv.NewScalar(
			clamp(bg.Hue-tol.HueWindow, 0, hueRange),
			clamp(bg.Saturation-tol.SaturationWindow, 0, 255),
			clamp(bg.Value-tol.ValueWindow, 0, 255),
			0,
		)
		upper := gocv.NewScalar(
			clamp(bg.Hue+tol.HueWindow, 0, hueRange),
			clamp(bg.Saturation+tol.SaturationWindow, 0, 255),
			clamp(bg.Value+tol.ValueWindow, 0, 255),
			0,
		)
		inside := gocv.NewMat()
		defer inside.Close()
		gocv.InRangeWithScalar(hsv, lower, upper, &inside)
		gocv.BitwiseNot(inside, &out)
	case PolicyGlobalThreshold:
		gray := toGray(buf)
		defer gray.Close()
		gocv.Threshold(gray, &out, float32(bg.Threshold), 255, gocv.ThresholdBinaryInv)
	default:
		return nil, errors.Errorf("unknown background policy %q", bg.Policy)
	}

	return maskFromMat(out), nil
}

func clamp(v, lo, hi float64) float64 {
	return max(lo, min(v, hi))
}
