package segment

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
)

// elementOffsets lists the on pixels of OpenCV's elliptical element, relative to its center.
func elementOffsets(t *testing.T, size int) []image.Point {
	t.Helper()
	if size <= 1 {
		return []image.Point{{}}
	}
	kernel := gocv.GetStructuringElement(gocv.MorphEllipse, image.Pt(size, size))
	defer kernel.Close()

	var offsets []image.Point
	for y := 0; y < kernel.Rows(); y++ {
		for x := 0; x < kernel.Cols(); x++ {
			if kernel.GetUCharAt(y, x) != 0 {
				offsets = append(offsets, image.Pt(x-kernel.Cols()/2, y-kernel.Rows()/2))
			}
		}
	}
	return offsets
}

// bruteMaxima is the reference local-maximum scan over the element's offsets.
func bruteMaxima(field *DistanceField, offsets []image.Point, minDistance float32) []uint8 {
	out := make([]uint8, len(field.Values))
	for y := 0; y < field.Height; y++ {
		for x := 0; x < field.Width; x++ {
			v := field.At(x, y)
			if v <= minDistance {
				continue
			}
			peak := true
			for _, o := range offsets {
				nx, ny := x+o.X, y+o.Y
				if nx >= 0 && ny >= 0 && nx < field.Width && ny < field.Height && field.At(nx, ny) > v {
					peak = false
					break
				}
			}
			if peak {
				out[y*field.Width+x] = 1
			}
		}
	}
	return out
}

func TestEllipseElement(t *testing.T) {
	assert.ElementsMatch(t, []image.Point{
		{0, -1}, {-1, 0}, {0, 0}, {1, 0}, {0, 1},
	}, elementOffsets(t, 3))

	offsets := elementOffsets(t, 21)
	assert.Contains(t, offsets, image.Pt(10, 0))
	assert.Contains(t, offsets, image.Pt(0, -10))
	assert.NotContains(t, offsets, image.Pt(10, 10))
}

func TestLocalMaximaMatchesBruteForce(t *testing.T) {
	m := maskFromRows(
		"..............",
		".#####...####.",
		".######.#####.",
		".############.",
		"..##########..",
		"...####..###..",
		"....##....#...",
		"..............",
	)
	d, err := DistanceTransform(m)
	require.NoError(t, err)
	field := Normalize(d)

	for _, kernel := range []int{1, 3, 5, 7} {
		peaks, err := LocalMaxima(field, kernel, 30)
		require.NoError(t, err)
		assert.Equal(t, bruteMaxima(field, elementOffsets(t, kernel), 30), peaks.Pix, "kernel %d", kernel)
	}
}

func fieldFrom(w, h int, values ...float32) *DistanceField {
	return &DistanceField{Width: w, Height: h, Values: values}
}

func TestLocalMaxima(t *testing.T) {
	tests := []struct {
		name        string
		field       *DistanceField
		kernel      int
		minDistance float32
		want        []int
	}{
		{
			name: "single bump",
			field: fieldFrom(5, 1,
				10, 50, 90, 50, 10),
			kernel:      3,
			minDistance: 20,
			want:        []int{2},
		},
		{
			name: "two bumps outside each other's window",
			field: fieldFrom(9, 1,
				0, 80, 40, 0, 0, 0, 40, 60, 0),
			kernel:      5,
			minDistance: 20,
			want:        []int{1, 7},
		},
		{
			name: "smaller bump inside the window is suppressed",
			field: fieldFrom(5, 1,
				0, 80, 40, 60, 0),
			kernel:      5,
			minDistance: 20,
			want:        []int{1},
		},
		{
			name: "plateau pixels are all peaks",
			field: fieldFrom(4, 1,
				0, 70, 70, 0),
			kernel:      3,
			minDistance: 20,
			want:        []int{1, 2},
		},
		{
			name: "peaks must exceed the minimum distance",
			field: fieldFrom(3, 1,
				0, 20, 0),
			kernel:      3,
			minDistance: 20,
			want:        nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			peaks, err := LocalMaxima(tt.field, tt.kernel, tt.minDistance)
			require.NoError(t, err)
			var got []int
			for i, p := range peaks.Pix {
				if p != 0 {
					got = append(got, i)
				}
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLocalMaximaEmptyField(t *testing.T) {
	_, err := LocalMaxima(&DistanceField{}, 3, 0)
	assert.ErrorIs(t, err, ErrEmptyMask)
}
