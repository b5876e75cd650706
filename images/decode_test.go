package images

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/chai2010/webp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func getTestImage(w, h int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: 255, G: 0, B: 0, A: 255})
		}
	}
	return img
}

func TestDetectFormat(t *testing.T) {
	var jpg, pn, wp bytes.Buffer
	require.NoError(t, jpeg.Encode(&jpg, getTestImage(8, 8), nil))
	require.NoError(t, png.Encode(&pn, getTestImage(8, 8)))
	require.NoError(t, webp.Encode(&wp, getTestImage(8, 8), &webp.Options{Quality: 80}))

	assert.Equal(t, FormatJPEG, DetectFormat(jpg.Bytes()))
	assert.Equal(t, FormatPNG, DetectFormat(pn.Bytes()))
	assert.Equal(t, FormatWebP, DetectFormat(wp.Bytes()))
	assert.Equal(t, FormatUnknown, DetectFormat([]byte("not an image")))
}

func TestDecode(t *testing.T) {
	encoders := map[string]func(*bytes.Buffer, image.Image) error{
		"jpeg": func(b *bytes.Buffer, img image.Image) error { return jpeg.Encode(b, img, nil) },
		"png":  func(b *bytes.Buffer, img image.Image) error { return png.Encode(b, img) },
		"webp": func(b *bytes.Buffer, img image.Image) error {
			return webp.Encode(b, img, &webp.Options{Lossless: true})
		},
	}

	for name, encode := range encoders {
		t.Run(name, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, encode(&buf, getTestImage(40, 20)))

			out, err := Decode(buf.Bytes(), 0)
			require.NoError(t, err)
			defer out.Close()
			assert.Equal(t, 40, out.Width())
			assert.Equal(t, 20, out.Height())

			px := out.Pixels()
			// Red in BGR order.
			assert.InDelta(t, 0, int(px[0]), 8)
			assert.InDelta(t, 255, int(px[2]), 8)

			small, err := Decode(buf.Bytes(), 10)
			require.NoError(t, err)
			defer small.Close()
			assert.Equal(t, 10, small.Width())
			assert.Equal(t, 5, small.Height())
		})
	}
}

func TestDecodeErrors(t *testing.T) {
	_, err := Decode(nil, 0)
	assert.ErrorIs(t, err, ErrEmptyImage)

	_, err = Decode([]byte("not an image"), 0)
	assert.ErrorIs(t, err, ErrDecode)
}

func TestFromImage(t *testing.T) {
	// Non-zero bounds origin must not shift the copy.
	src := image.NewRGBA(image.Rect(5, 5, 9, 7))
	src.Set(5, 5, color.RGBA{R: 1, G: 2, B: 3, A: 255})

	buf, err := FromImage(src, 0)
	require.NoError(t, err)
	defer buf.Close()

	assert.Equal(t, 4, buf.Width())
	assert.Equal(t, 2, buf.Height())
	assert.Equal(t, []byte{3, 2, 1}, buf.Pixels()[:3])

	_, err = FromImage(nil, 0)
	assert.ErrorIs(t, err, ErrEmptyImage)
	_, err = FromImage(image.NewRGBA(image.Rectangle{}), 0)
	assert.ErrorIs(t, err, ErrEmptyImage)
}

func TestChecksumIsStable(t *testing.T) {
	a, err := FromImage(getTestImage(16, 16), 0)
	require.NoError(t, err)
	defer a.Close()
	b, err := FromImage(getTestImage(16, 16), 0)
	require.NoError(t, err)
	defer b.Close()

	assert.Equal(t, a.Checksum(), b.Checksum())
	assert.NotEqual(t, "empty", a.Checksum())
}
