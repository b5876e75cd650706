package segment

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
)

func TestRefine(t *testing.T) {
	m := NewMask(40, 40)
	for y := 10; y < 30; y++ {
		for x := 10; x < 30; x++ {
			m.Set(x, y, true)
		}
	}
	m.Set(20, 20, false) // pinhole
	m.Set(2, 2, true)    // speckle

	refined, err := Refine(m, MorphologyConfig{CloseKernel: 5, CloseIterations: 1, OpenKernel: 3, OpenIterations: 1})
	require.NoError(t, err)

	assert.True(t, refined.At(20, 20), "pinhole is filled")
	assert.False(t, refined.At(2, 2), "speckle is removed")
	assert.True(t, refined.At(15, 15))
	assert.False(t, refined.At(35, 35))
	assert.True(t, m.At(2, 2), "input is not modified")
}

func TestRefineZeroConfigIsIdentity(t *testing.T) {
	m := maskFromRows(
		"#....",
		"..##.",
		"..##.",
	)
	refined, err := Refine(m, MorphologyConfig{})
	require.NoError(t, err)
	assert.Equal(t, m.Pix, refined.Pix)
}

func TestRefineEmptyMask(t *testing.T) {
	_, err := Refine(NewMask(0, 0), DefaultMorphologyConfig())
	assert.ErrorIs(t, err, ErrEmptyMask)
}

func TestDilate(t *testing.T) {
	m := NewMask(7, 7)
	m.Set(3, 3, true)

	square, err := Dilate(m, gocv.MorphRect, 3, 1)
	require.NoError(t, err)
	assert.Equal(t, 9, square.Count())

	twice, err := Dilate(m, gocv.MorphRect, 3, 2)
	require.NoError(t, err)
	assert.Equal(t, 25, twice.Count())

	same, err := Dilate(m, gocv.MorphRect, 3, 0)
	require.NoError(t, err)
	assert.Equal(t, m.Pix, same.Pix)
}
