package imageprocessing

import (
	"image"

	xdraw "golang.org/x/image/draw"
)

// ResizeExact scales img to exactly width x height. Images already at that
// size are returned as they are. The rasterizer can land a pixel off the
// requested size when millimeter units do not divide evenly; this snaps the
// output back.
func ResizeExact(img image.Image, width, height int) image.Image {
	if img == nil || width <= 0 || height <= 0 {
		return img
	}
	bounds := img.Bounds()
	if bounds.Dx() == width && bounds.Dy() == height {
		return img
	}
	dst := image.NewNRGBA(image.Rect(0, 0, width, height))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, xdraw.Src, nil)
	return dst
}
