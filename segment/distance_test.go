package segment

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// bruteDistance is the reference O(n^2) Euclidean distance transform.
func bruteDistance(m *Mask) []float32 {
	out := make([]float32, len(m.Pix))
	for i, p := range m.Pix {
		if p == 0 {
			continue
		}
		x, y := i%m.Width, i/m.Width
		best := math.Inf(1)
		for j, q := range m.Pix {
			if q != 0 {
				continue
			}
			dx, dy := float64(j%m.Width-x), float64(j/m.Width-y)
			best = math.Min(best, dx*dx+dy*dy)
		}
		out[i] = float32(math.Sqrt(best))
	}
	return out
}

func TestDistanceTransform(t *testing.T) {
	t.Run("single background pixel", func(t *testing.T) {
		m := NewMask(5, 5)
		for i := range m.Pix {
			m.Pix[i] = 1
		}
		m.Set(0, 0, false)

		d, err := DistanceTransform(m)
		require.NoError(t, err)
		assert.Equal(t, float32(0), d.At(0, 0))
		assert.InDelta(t, 3.0, d.At(3, 0), 1e-4)
		assert.InDelta(t, math.Sqrt(32), d.At(4, 4), 1e-4)
	})

	t.Run("matches brute force", func(t *testing.T) {
		m := maskFromRows(
			"..........",
			".#####....",
			".######...",
			".#######..",
			"..######..",
			"...####.#.",
			"....##.##.",
			"..........",
		)
		d, err := DistanceTransform(m)
		require.NoError(t, err)
		want := bruteDistance(m)
		for i := range want {
			assert.InDelta(t, want[i], d.Values[i], 1e-3, "pixel %d", i)
		}
	})

	t.Run("no foreground", func(t *testing.T) {
		d, err := DistanceTransform(NewMask(6, 4))
		require.NoError(t, err)
		assert.Zero(t, d.Max())
	})

	t.Run("no background", func(t *testing.T) {
		m := NewMask(6, 4)
		for i := range m.Pix {
			m.Pix[i] = 1
		}
		d, err := DistanceTransform(m)
		require.NoError(t, err)
		assert.Zero(t, d.Max())
		assert.Len(t, d.Values, 24)
	})

	t.Run("objects touching the edge", func(t *testing.T) {
		m := maskFromRows(
			"####..",
			"####..",
			"###...",
			"......",
		)
		d, err := DistanceTransform(m)
		require.NoError(t, err)
		assert.InDelta(t, 3.0, d.At(0, 0), 1e-3, "the image edge is not background")
		want := bruteDistance(m)
		for i := range want {
			assert.InDelta(t, want[i], d.Values[i], 1e-3, "pixel %d", i)
		}
	})

	t.Run("empty mask", func(t *testing.T) {
		_, err := DistanceTransform(&Mask{})
		assert.ErrorIs(t, err, ErrEmptyMask)
	})
}

func TestFieldMatRoundTrip(t *testing.T) {
	in := fieldFrom(3, 2, 0, 1.5, 2.25, 255, 0.125, 7)
	mat, err := in.toMat()
	require.NoError(t, err)
	defer mat.Close()

	out, err := fieldFromMat(mat)
	require.NoError(t, err)
	assert.Equal(t, in, out)

	_, err = (&DistanceField{Width: 2, Height: 2, Values: []float32{1}}).toMat()
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestNormalize(t *testing.T) {
	d := Normalize(&DistanceField{Width: 3, Height: 1, Values: []float32{0, 5, 10}})
	assert.InDeltaSlice(t, []float32{0, 127.5, 255}, d.Values, 1e-4)

	flat := Normalize(&DistanceField{Width: 2, Height: 1, Values: []float32{4, 4}})
	assert.Equal(t, []float32{0, 0}, flat.Values)

	empty := Normalize(&DistanceField{})
	assert.Empty(t, empty.Values)
}
