package segment

import (
	"testing"

	"github.com/nvr-ai/go-count/images"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateMarkersSeparateSquares(t *testing.T) {
	c := newCanvas(60, 30, white)
	c.fillRect(images.Rect{X1: 5, Y1: 5, X2: 25, Y2: 25}, red)
	c.fillRect(images.Rect{X1: 35, Y1: 5, X2: 55, Y2: 25}, red)
	mask := c.maskOf(white)

	markers, err := GenerateMarkers(mask, DefaultMarkerConfig())
	require.NoError(t, err)

	assert.Equal(t, 2, markers.Seeds)
	assert.InDelta(t, 255, markers.Distance.Max(), 1e-3)
	assert.Equal(t, LabelBackground, markers.Map.At(0, 0), "far background is confirmed")
	assert.Equal(t, LabelUnknown, markers.Map.At(5, 5), "object edge is unknown")
	assert.Equal(t, LabelUnknown, markers.Map.At(3, 5), "dilated ring is unknown")
	assert.Equal(t, FirstSeedLabel, markers.Map.At(15, 15))
	assert.Equal(t, FirstSeedLabel+1, markers.Map.At(45, 15))

	for i, u := range markers.Unknown.Pix {
		if u != 0 {
			assert.Zero(t, markers.Peaks.Pix[i], "unknown excludes seeds")
		}
	}
}

func TestGenerateMarkersEmpty(t *testing.T) {
	markers, err := GenerateMarkers(NewMask(10, 10), DefaultMarkerConfig())
	require.NoError(t, err)
	assert.Zero(t, markers.Seeds)
	assert.Zero(t, markers.Unknown.Count())
	for _, l := range markers.Map.Labels {
		assert.Equal(t, LabelBackground, l)
	}

	_, err = GenerateMarkers(NewMask(0, 0), DefaultMarkerConfig())
	assert.ErrorIs(t, err, ErrEmptyMask)
}

func TestUnknownRegion(t *testing.T) {
	mask := maskFromRows(
		".......",
		".......",
		".......",
		"...#...",
		".......",
		".......",
		".......",
	)
	peaks := NewMask(7, 7)
	peaks.Set(3, 3, true)

	unknown, err := UnknownRegion(mask, peaks, 1)
	require.NoError(t, err)
	assert.Equal(t, 8, unknown.Count())
	assert.False(t, unknown.At(3, 3))
	assert.True(t, unknown.At(2, 2))

	_, err = UnknownRegion(mask, NewMask(3, 3), 1)
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestTouchingDiscsAreSeparated(t *testing.T) {
	for _, topo := range []Topography{TopographyImage, TopographyDistance} {
		t.Run(string(topo), func(t *testing.T) {
			c := newCanvas(70, 40, white)
			c.fillDisc(20, 20, 15, red)
			c.fillDisc(46, 20, 15, red)
			buf := c.buffer(t)
			mask := c.maskOf(white)

			markers, err := GenerateMarkers(mask, MarkerConfig{
				PeakKernel:          21,
				MinDistance:         100,
				PeakMergeKernel:     5,
				BackgroundDilations: 3,
			})
			require.NoError(t, err)
			require.Equal(t, 2, markers.Seeds)

			labels, err := Watershed(markers, buf, topo)
			require.NoError(t, err)

			objects := labels.Distinct()
			assert.Len(t, objects, 2)
			assert.Equal(t, labels.At(20, 20), markers.Map.At(20, 20))
			assert.Equal(t, labels.At(46, 20), markers.Map.At(46, 20))
			assert.NotEqual(t, labels.At(20, 20), labels.At(46, 20))

			regions := ExtractRegions(labels, 50)
			require.Len(t, regions, 2)
			left, right := regions[0], regions[1]
			if left.Box.X1 > right.Box.X1 {
				left, right = right, left
			}
			assert.Less(t, left.Box.X2, 40)
			assert.Greater(t, right.Box.X1, 26)
		})
	}
}

func TestWatershedLeavesMarkersUntouched(t *testing.T) {
	c := newCanvas(30, 30, white)
	c.fillRect(images.Rect{X1: 8, Y1: 8, X2: 22, Y2: 22}, red)
	buf := c.buffer(t)

	markers, err := GenerateMarkers(c.maskOf(white), MarkerConfig{PeakKernel: 9, MinDistance: 100, PeakMergeKernel: 3, BackgroundDilations: 3})
	require.NoError(t, err)
	before := markers.Map.Clone()

	labels, err := Watershed(markers, buf, TopographyImage)
	require.NoError(t, err)

	assert.Equal(t, before.Labels, markers.Map.Labels)
	for i, m := range before.Labels {
		if m != LabelUnknown {
			assert.Equal(t, m, labels.Labels[i], "seeds are immovable")
		}
	}
	assert.Equal(t, []int32{FirstSeedLabel}, labels.Distinct())
	assert.Equal(t, FirstSeedLabel, labels.At(9, 9))
	assert.Equal(t, LabelBackground, labels.At(6, 6))
}

func TestWatershedErrors(t *testing.T) {
	c := newCanvas(10, 10, white)
	buf := c.buffer(t)

	markers, err := GenerateMarkers(NewMask(5, 5), DefaultMarkerConfig())
	require.NoError(t, err)
	_, err = Watershed(markers, buf, TopographyImage)
	assert.ErrorIs(t, err, ErrDimensionMismatch)

	markers, err = GenerateMarkers(NewMask(10, 10), DefaultMarkerConfig())
	require.NoError(t, err)
	_, err = Watershed(markers, buf, Topography("lava"))
	assert.Error(t, err)
}

func TestFloodBoundary(t *testing.T) {
	// Seeds 2 and 3 with one unknown pixel between them: the fronts meet there.
	markers := &LabelMap{Width: 3, Height: 1, Labels: []int32{2, 0, 3}}
	out := Flood(markers, DistanceSurface{Field: fieldFrom(3, 1, 0, 0, 0)})
	assert.Equal(t, []int32{2, LabelBoundary, 3}, out.Labels)

	// Unreachable unknown pixels stay unknown.
	isolated := &LabelMap{Width: 2, Height: 1, Labels: []int32{0, 0}}
	assert.Equal(t, []int32{0, 0}, Flood(isolated, ImageSurface{Pix: make([]byte, 6)}).Labels)
}

func TestFloodPrefersCheapPaths(t *testing.T) {
	// Seed 2 floods the flat run; the fronts meet at the bright pixel next to seed 3.
	pix := []byte{
		0, 0, 0,
		0, 0, 0,
		0, 0, 0,
		200, 200, 200,
		0, 0, 0,
	}
	markers := &LabelMap{Width: 5, Height: 1, Labels: []int32{2, 0, 0, 0, 3}}
	out := Flood(markers, ImageSurface{Pix: pix})
	assert.Equal(t, []int32{2, 2, 2, LabelBoundary, 3}, out.Labels)
}

func TestImageSurfaceCost(t *testing.T) {
	s := ImageSurface{Pix: []byte{10, 20, 30, 15, 60, 25}}
	assert.Equal(t, 40, s.Cost(0, 1))
	assert.Equal(t, 40, s.Cost(1, 0))
}
