package images

import (
	"bytes"
	"image"
	"image/draw"

	"github.com/chai2010/webp"
	"github.com/nfnt/resize"
	"github.com/pkg/errors"
	"gocv.io/x/gocv"
)

// ImageFormat represents supported encoded image formats.
type ImageFormat string

const (
	// FormatJPEG is the JPEG image format.
	FormatJPEG ImageFormat = "jpeg"
	// FormatWebP is the WebP image format.
	FormatWebP ImageFormat = "webp"
	// FormatPNG is the PNG image format.
	FormatPNG ImageFormat = "png"
	// FormatUnknown is returned by DetectFormat for unrecognized bytes.
	FormatUnknown ImageFormat = ""
)

// DetectFormat sniffs the encoded format from the leading magic bytes.
func DetectFormat(data []byte) ImageFormat {
	switch {
	case len(data) >= 3 && data[0] == 0xFF && data[1] == 0xD8 && data[2] == 0xFF:
		return FormatJPEG
	case len(data) >= 8 && bytes.Equal(data[:8], []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1A, '\n'}):
		return FormatPNG
	case len(data) >= 12 && string(data[:4]) == "RIFF" && string(data[8:12]) == "WEBP":
		return FormatWebP
	default:
		return FormatUnknown
	}
}

// Decode turns encoded gallery bytes into a BGR buffer no larger than maxDimension on
// its longest side (0 disables downscaling).
//
// Arguments:
//   - data: JPEG, PNG or WebP bytes.
//   - maxDimension: Longest side limit in pixels, 0 for none.
//
// Returns:
//   - *Buffer: The decoded buffer; the caller owns it.
//   - error: ErrEmptyImage for empty input, ErrDecode (wrapped) for malformed input.
func Decode(data []byte, maxDimension int) (*Buffer, error) {
	if len(data) == 0 {
		return nil, ErrEmptyImage
	}

	switch DetectFormat(data) {
	case FormatWebP:
		img, err := webp.Decode(bytes.NewReader(data))
		if err != nil {
			return nil, errors.Wrap(ErrDecode, err.Error())
		}
		return FromImage(img, maxDimension)
	case FormatJPEG, FormatPNG:
		mat, err := gocv.IMDecode(data, gocv.IMReadColor)
		if err != nil {
			return nil, errors.Wrap(ErrDecode, err.Error())
		}
		if mat.Empty() {
			mat.Close()
			return nil, errors.Wrap(ErrDecode, "opencv could not decode buffer")
		}
		return fitMat(mat, maxDimension)
	default:
		return nil, errors.Wrap(ErrDecode, "unrecognized image format")
	}
}

// FromImage normalizes an arbitrary decoded image into a BGR buffer, downscaling it with
// nfnt/resize when its longest side exceeds maxDimension (0 disables downscaling).
func FromImage(img image.Image, maxDimension int) (*Buffer, error) {
	if img == nil || img.Bounds().Empty() {
		return nil, ErrEmptyImage
	}

	b := img.Bounds()
	if maxDimension > 0 && (b.Dx() > maxDimension || b.Dy() > maxDimension) {
		img = resize.Thumbnail(uint(maxDimension), uint(maxDimension), img, resize.Bilinear)
		b = img.Bounds()
	}

	rgba := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(rgba, rgba.Bounds(), img, b.Min, draw.Src)

	return FromFrame(Frame{
		Data:   rgba.Pix,
		Width:  b.Dx(),
		Height: b.Dy(),
		Layout: LayoutRGBA,
	})
}

// fitMat downscales a decoded BGR Mat so its longest side is at most maxDimension.
func fitMat(mat gocv.Mat, maxDimension int) (*Buffer, error) {
	w, h := mat.Cols(), mat.Rows()
	if maxDimension <= 0 || (w <= maxDimension && h <= maxDimension) {
		return NewBuffer(mat)
	}
	defer mat.Close()

	scale := float64(maxDimension) / float64(max(w, h))
	target := image.Pt(max(1, int(float64(w)*scale)), max(1, int(float64(h)*scale)))
	resized := gocv.NewMat()
	gocv.Resize(mat, &resized, target, 0, 0, gocv.InterpolationArea)
	return NewBuffer(resized)
}
