package segment

import (
	"github.com/nvr-ai/go-count/common"
	"github.com/nvr-ai/go-count/images"
)

// Region is the bounding box and pixel count of one object label.
type Region struct {
	Label int32       `json:"label"`
	Box   images.Rect `json:"box"`
	// Area is the number of pixels carrying the label, boundary pixels excluded.
	Area int `json:"area"`
}

// ExtractRegions reduces a label map to one Region per object label in a single row-major pass,
// in order of first discovery. Regions with fewer than minArea pixels are dropped.
//
// Arguments:
//   - labels: The watershed label map.
//   - minArea: The minimum pixel count of a kept region.
//
// Returns:
//   - []Region: The kept regions.
func ExtractRegions(labels *LabelMap, minArea int) []Region {
	index := make(map[int32]int)
	var regions []Region

	for y := 0; y < labels.Height; y++ {
		row := labels.Labels[y*labels.Width : (y+1)*labels.Width]
		for x, l := range row {
			if l < FirstSeedLabel {
				continue
			}
			i, ok := index[l]
			if !ok {
				i = len(regions)
				index[l] = i
				regions = append(regions, Region{
					Label: l,
					Box:   images.Rect{X1: x, Y1: y, X2: x + 1, Y2: y + 1},
				})
			}
			r := &regions[i]
			r.Box.X1 = min(r.Box.X1, x)
			r.Box.Y1 = min(r.Box.Y1, y)
			r.Box.X2 = max(r.Box.X2, x+1)
			r.Box.Y2 = max(r.Box.Y2, y+1)
			r.Area++
		}
	}

	kept := regions[:0]
	for _, r := range regions {
		if r.Area >= minArea {
			kept = append(kept, r)
		}
	}
	return kept
}

// ToDetections normalizes regions against a width x height frame.
func ToDetections(regions []Region, width, height int) []common.Detection {
	out := make([]common.Detection, 0, len(regions))
	for _, r := range regions {
		out = append(out, common.FromRect(r.Box, width, height))
	}
	return out
}
