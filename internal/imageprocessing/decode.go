package imageprocessing

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"
	"image/png"
)

// RasterImage is a decoded image as non-premultiplied 8-bit RGBA.
type RasterImage struct {
	Width  int
	Height int
	// Pix holds 4 bytes per pixel, row by row, without padding.
	Pix []uint8
}

// DecodePNG decodes PNG bytes into a RasterImage.
func DecodePNG(data []byte) (*RasterImage, error) {
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode png: %w", err)
	}
	return FromImage(img), nil
}

// FromImage copies any image into a RasterImage.
func FromImage(img image.Image) *RasterImage {
	nrgba := ToNRGBA(img)
	b := nrgba.Bounds()
	r := &RasterImage{Width: b.Dx(), Height: b.Dy()}
	if nrgba.Stride == r.Width*4 && b.Min == (image.Point{}) {
		r.Pix = nrgba.Pix[:r.Width*r.Height*4]
		return r
	}
	r.Pix = make([]uint8, r.Width*r.Height*4)
	for y := 0; y < r.Height; y++ {
		row := nrgba.Pix[y*nrgba.Stride : y*nrgba.Stride+r.Width*4]
		copy(r.Pix[y*r.Width*4:], row)
	}
	return r
}

// ToNRGBA converts any image to non-premultiplied RGBA.
func ToNRGBA(img image.Image) *image.NRGBA {
	if nrgba, ok := img.(*image.NRGBA); ok {
		return nrgba
	}
	bounds := img.Bounds()
	nrgba := image.NewNRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(nrgba, nrgba.Bounds(), img, bounds.Min, draw.Src)
	return nrgba
}

// NRGBA returns an image view over the pixels without copying.
func (r *RasterImage) NRGBA() *image.NRGBA {
	return &image.NRGBA{Pix: r.Pix, Stride: r.Width * 4, Rect: image.Rect(0, 0, r.Width, r.Height)}
}
