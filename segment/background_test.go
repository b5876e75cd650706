package segment

import (
	"testing"

	"github.com/nvr-ai/go-count/images"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEstimateBackgroundAdaptive(t *testing.T) {
	tests := []struct {
		name    string
		bg      bgr
		hue     float64
		sat     float64
		val     float64
		neutral bool
	}{
		{name: "green is colored", bg: green, hue: 65, sat: 240, val: 240, neutral: false},
		{name: "gray is neutral", bg: gray, hue: 5, sat: 16, val: 144, neutral: true},
		{name: "white is neutral", bg: white, hue: 5, sat: 16, val: 240, neutral: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newCanvas(40, 40, tt.bg)
			c.fillRect(images.Rect{X1: 2, Y1: 2, X2: 6, Y2: 6}, red)

			bg, err := EstimateBackground(c.buffer(t), PolicyAdaptiveColor)
			require.NoError(t, err)

			assert.Equal(t, PolicyAdaptiveColor, bg.Policy)
			assert.InDelta(t, tt.hue, bg.Hue, 1e-9)
			assert.InDelta(t, tt.sat, bg.Saturation, 1e-9)
			assert.InDelta(t, tt.val, bg.Value, 1e-9)
			assert.Equal(t, tt.neutral, bg.Neutral)
		})
	}
}

func TestEstimateBackgroundGlobal(t *testing.T) {
	c := newCanvas(40, 40, light)
	c.fillRect(images.Rect{X1: 10, Y1: 10, X2: 30, Y2: 30}, dark)

	bg, err := EstimateBackground(c.buffer(t), PolicyGlobalThreshold)
	require.NoError(t, err)

	assert.Equal(t, PolicyGlobalThreshold, bg.Policy)
	assert.GreaterOrEqual(t, bg.Threshold, 30.0)
	assert.Less(t, bg.Threshold, 220.0)
}

func TestEstimateBackgroundErrors(t *testing.T) {
	_, err := EstimateBackground(nil, PolicyAdaptiveColor)
	assert.ErrorIs(t, err, images.ErrEmptyImage)

	c := newCanvas(4, 4, white)
	_, err = EstimateBackground(c.buffer(t), BackgroundPolicy("nope"))
	assert.Error(t, err)
}

func TestDominantHSV(t *testing.T) {
	t.Run("empty input picks bin zero", func(t *testing.T) {
		h, s, v := DominantHSV(nil, 0, 0)
		assert.Equal(t, 5.0, h)
		assert.Equal(t, 16.0, s)
		assert.Equal(t, 16.0, v)
	})

	t.Run("samples every fourth pixel", func(t *testing.T) {
		// 8x1 image: sampled pixels are x=0 and x=4, all others are ignored.
		hsv := make([]byte, 8*3)
		for x := 0; x < 8; x++ {
			copy(hsv[x*3:], []byte{170, 255, 255})
		}
		copy(hsv[0:], []byte{30, 100, 100})
		copy(hsv[4*3:], []byte{30, 100, 100})

		h, s, v := DominantHSV(hsv, 8, 1)
		assert.Equal(t, 35.0, h)
		assert.Equal(t, 112.0, s)
		assert.Equal(t, 112.0, v)
	})
}
