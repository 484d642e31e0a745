package imaging

import (
	"fmt"
	"image"
	"image/color"

	"github.com/anthonynsimon/bild/clone"
	"github.com/disintegration/imaging"
)

// FlattenRGB renders img onto an opaque width x height canvas and returns
// the canvas as packed RGB triples (3 bytes per pixel, row-major).
//
// The image is anchored at the canvas origin: larger images are cropped,
// smaller ones are padded with bg. Translucent pixels are composited over
// bg. A nil bg means opaque black.
//
// Parameters:
//   - img: Source frame in any color model.
//   - width, height: Canvas size in pixels. Both must be positive.
//   - bg: Background color used for padding and compositing.
//
// Returns:
//   - []byte: width*height*3 bytes of RGB.
//   - error: Non-nil if the canvas size is not positive.
func FlattenRGB(img image.Image, width, height int, bg color.Color) ([]byte, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid canvas size %dx%d", width, height)
	}
	if bg == nil {
		bg = color.Black
	}

	src := clone.AsRGBA(img)
	b := src.Bounds()
	if src.Opaque() && b.Dx() == width && b.Dy() == height {
		return rgbaToRGB(src.Pix, src.Stride, width, height), nil
	}

	canvas := imaging.New(width, height, bg)
	canvas = imaging.Overlay(canvas, src, image.Pt(0, 0), 1.0)
	return rgbaToRGB(canvas.Pix, canvas.Stride, width, height), nil
}

// FromRGB wraps packed RGB triples in an opaque image.
func FromRGB(width, height int, pix []byte) (*image.NRGBA, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid image size %dx%d", width, height)
	}
	if len(pix) != width*height*3 {
		return nil, fmt.Errorf("pixel buffer holds %d bytes, want %d", len(pix), width*height*3)
	}
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for i, k := 0, 0; k < len(pix); i, k = i+4, k+3 {
		img.Pix[i] = pix[k]
		img.Pix[i+1] = pix[k+1]
		img.Pix[i+2] = pix[k+2]
		img.Pix[i+3] = 0xff
	}
	return img, nil
}

// ConformRGB fits a packed RGB buffer of one size onto a canvas of another,
// cropping or padding with bg.
func ConformRGB(pix []byte, srcW, srcH, dstW, dstH int, bg color.Color) ([]byte, error) {
	if srcW == dstW && srcH == dstH {
		return pix, nil
	}
	img, err := FromRGB(srcW, srcH, pix)
	if err != nil {
		return nil, err
	}
	return FlattenRGB(img, dstW, dstH, bg)
}

// rgbaToRGB drops the alpha channel from 4-byte pixels.
func rgbaToRGB(pix []byte, stride, width, height int) []byte {
	out := make([]byte, 0, width*height*3)
	for y := 0; y < height; y++ {
		row := pix[y*stride : y*stride+width*4]
		for x := 0; x < len(row); x += 4 {
			out = append(out, row[x], row[x+1], row[x+2])
		}
	}
	return out
}
