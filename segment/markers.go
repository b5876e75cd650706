package segment

import (
	"github.com/pkg/errors"
	"gocv.io/x/gocv"
)

// MarkerConfig parameterizes seed generation.
type MarkerConfig struct {
	// PeakKernel is the neighborhood diameter (px) of the local-maximum test.
	PeakKernel int `json:"peak_kernel" yaml:"peak_kernel"`
	// MinDistance is the normalized distance (0-255) a peak must exceed. Lower values find more
	// peaks in merged blobs.
	MinDistance float32 `json:"min_distance" yaml:"min_distance"`
	// PeakMergeKernel is the elliptical element size (px) used to coalesce nearby peaks.
	PeakMergeKernel int `json:"peak_merge_kernel" yaml:"peak_merge_kernel"`
	// BackgroundDilations is the number of 3x3 dilations of the mask forming the sure background.
	BackgroundDilations int `json:"background_dilations" yaml:"background_dilations"`
}

// DefaultMarkerConfig returns the marker defaults.
func DefaultMarkerConfig() MarkerConfig {
	return MarkerConfig{
		PeakKernel:          21,
		MinDistance:         30,
		PeakMergeKernel:     3,
		BackgroundDilations: 3,
	}
}

// Markers bundles the products of marker generation.
type Markers struct {
	// Distance is the normalized distance field of the mask.
	Distance *DistanceField
	// Peaks is the coalesced seed mask.
	Peaks *Mask
	// Unknown is the region left for the watershed to resolve.
	Unknown *Mask
	// Map is the marker map: 0 unknown, 1 background, >= 2 seeds.
	Map *LabelMap
	// Seeds is the number of seed labels in Map.
	Seeds int
}

// UnknownRegion returns the pixels of the sure-background region (mask dilated dilations times
// with a 3x3 square) that are not seeds.
//
// Arguments:
//   - mask: The refined foreground mask.
//   - peaks: The seed mask.
//   - dilations: The number of sure-background dilations.
//
// Returns:
//   - *Mask: The unknown region.
//   - error: An error if the masks disagree on geometry or OpenCV fails.
func UnknownRegion(mask, peaks *Mask, dilations int) (*Mask, error) {
	if mask.Width != peaks.Width || mask.Height != peaks.Height {
		return nil, ErrDimensionMismatch
	}

	sure, err := Dilate(mask, gocv.MorphRect, 3, dilations)
	if err != nil {
		return nil, errors.Wrap(err, "sure background")
	}
	for i, p := range peaks.Pix {
		if p != 0 {
			sure.Pix[i] = 0
		}
	}
	return sure, nil
}

// GenerateMarkers builds the watershed marker map of a refined mask.
//
// The distance field is normalized to 0-255, its local maxima are dilated by PeakMergeKernel so
// near-duplicate peaks of one object join, and the joined peaks (restricted to the mask) are
// labeled as seeds. Pixels of the unknown region are then reset to LabelUnknown.
//
// Arguments:
//   - mask: The refined foreground mask.
//   - cfg: The marker parameters.
//
// Returns:
//   - *Markers: All intermediate products and the marker map.
//   - error: An error if the mask is empty or OpenCV fails.
//
// @example
// markers, err := segment.GenerateMarkers(refined, segment.DefaultMarkerConfig())
//
//	if err != nil {
//	    return err
//	}
//
// fmt.Printf("seeds: %d\n", markers.Seeds)
func GenerateMarkers(mask *Mask, cfg MarkerConfig) (*Markers, error) {
	if mask.Width == 0 || mask.Height == 0 {
		return nil, ErrEmptyMask
	}

	raw, err := DistanceTransform(mask)
	if err != nil {
		return nil, err
	}
	field := Normalize(raw)
	peaks, err := LocalMaxima(field, cfg.PeakKernel, cfg.MinDistance)
	if err != nil {
		return nil, errors.Wrap(err, "peaks")
	}

	if cfg.PeakMergeKernel > 1 && peaks.Count() > 0 {
		merged, err := Dilate(peaks, gocv.MorphEllipse, cfg.PeakMergeKernel, 1)
		if err != nil {
			return nil, errors.Wrap(err, "peak merge")
		}
		for i, p := range mask.Pix {
			if p == 0 {
				merged.Pix[i] = 0
			}
		}
		peaks = merged
	}

	unknown, err := UnknownRegion(mask, peaks, cfg.BackgroundDilations)
	if err != nil {
		return nil, err
	}

	markers, seeds, err := LabelComponents(peaks)
	if err != nil {
		return nil, errors.Wrap(err, "seeds")
	}
	for i, u := range unknown.Pix {
		if u != 0 {
			markers.Labels[i] = LabelUnknown
		}
	}

	return &Markers{
		Distance: field,
		Peaks:    peaks,
		Unknown:  unknown,
		Map:      markers,
		Seeds:    seeds,
	}, nil
}
