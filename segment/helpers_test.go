package segment

import (
	"testing"

	"github.com/nvr-ai/go-count/images"
	"github.com/stretchr/testify/require"
)

type bgr [3]byte

var (
	white = bgr{255, 255, 255}
	green = bgr{0, 255, 0}
	red   = bgr{0, 0, 255}
	gray  = bgr{128, 128, 128}
	dark  = bgr{30, 30, 30}
	light = bgr{220, 220, 220}
)

// canvas is a BGR image drawn in Go before it is handed to OpenCV.
type canvas struct {
	w, h int
	pix  []byte
}

func newCanvas(w, h int, bg bgr) *canvas {
	c := &canvas{w: w, h: h, pix: make([]byte, w*h*3)}
	c.fillRect(images.Rect{X2: w, Y2: h}, bg)
	return c
}

func (c *canvas) set(x, y int, col bgr) {
	i := (y*c.w + x) * 3
	copy(c.pix[i:i+3], col[:])
}

func (c *canvas) fillRect(r images.Rect, col bgr) {
	for y := r.Y1; y < r.Y2; y++ {
		for x := r.X1; x < r.X2; x++ {
			c.set(x, y, col)
		}
	}
}

func (c *canvas) fillDisc(cx, cy, radius int, col bgr) {
	for y := 0; y < c.h; y++ {
		for x := 0; x < c.w; x++ {
			dx, dy := x-cx, y-cy
			if dx*dx+dy*dy <= radius*radius {
				c.set(x, y, col)
			}
		}
	}
}

func (c *canvas) buffer(t *testing.T) *images.Buffer {
	t.Helper()
	buf, err := images.FromFrame(images.Frame{Data: c.pix, Width: c.w, Height: c.h, Layout: images.LayoutBGR})
	require.NoError(t, err)
	t.Cleanup(func() { _ = buf.Close() })
	return buf
}

// maskOf returns the mask of pixels differing from bg.
func (c *canvas) maskOf(bg bgr) *Mask {
	m := NewMask(c.w, c.h)
	for i := range m.Pix {
		if c.pix[i*3] != bg[0] || c.pix[i*3+1] != bg[1] || c.pix[i*3+2] != bg[2] {
			m.Pix[i] = 1
		}
	}
	return m
}

// maskFromRows parses '#' as foreground and anything else as background.
func maskFromRows(rows ...string) *Mask {
	m := NewMask(len(rows[0]), len(rows))
	for y, row := range rows {
		for x, ch := range row {
			m.Set(x, y, ch == '#')
		}
	}
	return m
}
