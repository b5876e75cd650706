package segment

import (
	"github.com/nvr-ai/go-count/images"
	"github.com/pkg/errors"
	"gocv.io/x/gocv"
)

// BackgroundPolicy selects how the background is modeled.
type BackgroundPolicy string

const (
	// PolicyAdaptiveColor models the background as the dominant HSV color.
	PolicyAdaptiveColor BackgroundPolicy = "adaptive-color"
	// PolicyGlobalThreshold models the background with a single Otsu threshold over gray levels,
	// for dark objects on a light background.
	PolicyGlobalThreshold BackgroundPolicy = "global-threshold"
)

const (
	hueBins           = 18
	hueRange          = 180
	channelBins       = 8
	channelRange      = 256
	sampleStride      = 4
	neutralSaturation = 50
)

// Background describes the dominant background of one image. It is computed once per image
// and never mutated.
type Background struct {
	Policy BackgroundPolicy `json:"policy" yaml:"policy"`
	// Hue, Saturation and Value are the dominant HSV bin centers (OpenCV ranges: H 0-180).
	Hue        float64 `json:"hue" yaml:"hue"`
	Saturation float64 `json:"saturation" yaml:"saturation"`
	Value      float64 `json:"value" yaml:"value"`
	// Neutral is set when the dominant saturation is low (gray, white or black backgrounds).
	Neutral bool `json:"neutral" yaml:"neutral"`
	// Threshold is the Otsu gray-level threshold of the global-threshold policy.
	Threshold float64 `json:"threshold" yaml:"threshold"`
}

// EstimateBackground derives the background descriptor of buf under the given policy.
//
// Arguments:
//   - buf: The BGR input buffer.
//   - policy: PolicyAdaptiveColor or PolicyGlobalThreshold.
//
// Returns:
//   - Background: The descriptor.
//   - error: An error if the buffer is empty or the policy is unknown.
//
// @example
// bg, err := segment.EstimateBackground(buf, segment.PolicyAdaptiveColor)
//
//	if err != nil {
//	    return err
//	}
//
// fmt.Printf("neutral background: %v\n", bg.Neutral)
func EstimateBackground(buf *images.Buffer, policy BackgroundPolicy) (Background, error) {
	if buf == nil || buf.Mat().Empty() {
		return Background{}, images.ErrEmptyImage
	}

	switch policy {
	case PolicyAdaptiveColor:
		hsv := toHSV(buf)
		defer hsv.Close()
		h, s, v := DominantHSV(hsv.ToBytes(), hsv.Cols(), hsv.Rows())
		return Background{
			Policy:     policy,
			Hue:        h,
			Saturation: s,
			Value:      v,
			Neutral:    s < neutralSaturation,
		}, nil
	case PolicyGlobalThreshold:
		gray := toGray(buf)
		defer gray.Close()
		scratch := gocv.NewMat()
		defer scratch.Close()
		t := gocv.Threshold(gray, &scratch, 0, 255, gocv.ThresholdBinary+gocv.ThresholdOtsu)
		return Background{Policy: policy, Threshold: float64(t)}, nil
	default:
		return Background{}, errors.Errorf("unknown background policy %q", policy)
	}
}

// DominantHSV returns the centers of the most populated hue, saturation and value bins of an
// interleaved HSV buffer, sampling every fourth pixel in each dimension. Ties go to the lowest
// bin, so a uniform or empty input picks bin 0 of any flat histogram.
func DominantHSV(hsv []byte, width, height int) (hue, sat, val float64) {
	var hHist [hueBins]int
	var sHist, vHist [channelBins]int

	for y := 0; y < height; y += sampleStride {
		for x := 0; x < width; x += sampleStride {
			i := (y*width + x) * 3
			hHist[min(int(hsv[i])*hueBins/hueRange, hueBins-1)]++
			sHist[int(hsv[i+1])*channelBins/channelRange]++
			vHist[int(hsv[i+2])*channelBins/channelRange]++
		}
	}

	return binCenter(hHist[:], hueRange), binCenter(sHist[:], channelRange), binCenter(vHist[:], channelRange)
}

func binCenter(hist []int, span int) float64 {
	best := 0
	for i, c := range hist {
		if c > hist[best] {
			best = i
		}
	}
	width := float64(span) / float64(len(hist))
	return float64(best)*width + width/2
}

func toHSV(buf *images.Buffer) gocv.Mat {
	hsv := gocv.NewMat()
	gocv.CvtColor(buf.Mat(), &hsv, gocv.ColorBGRToHSV)
	return hsv
}

func toGray(buf *images.Buffer) gocv.Mat {
	gray := gocv.NewMat()
	gocv.CvtColor(buf.Mat(), &gray, gocv.ColorBGRToGray)
	return gray
}
