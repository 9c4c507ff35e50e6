package imageprocessing

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"strings"

	"github.com/makeworld-the-better-one/dither/v2"
)

// DitherMode selects how pixels are mapped onto the palette.
type DitherMode string

const (
	// DitherFloydSteinberg diffuses the quantization error to neighbors.
	DitherFloydSteinberg DitherMode = "floyd-steinberg"
	// DitherBayer applies an 8x8 ordered dither matrix.
	DitherBayer DitherMode = "bayer"
)

// ParseDitherMode maps a config value to a mode, defaulting to Floyd-Steinberg.
func ParseDitherMode(s string) (DitherMode, error) {
	switch DitherMode(strings.ToLower(strings.TrimSpace(s))) {
	case "", DitherFloydSteinberg, "floydsteinberg", "fs":
		return DitherFloydSteinberg, nil
	case DitherBayer, "ordered":
		return DitherBayer, nil
	}
	return "", fmt.Errorf("unknown dither mode %q", s)
}

// IndexedImage is an image stored as palette indices.
type IndexedImage struct {
	Width   int
	Height  int
	Palette color.Palette
	Indices []uint8
}

// Paletted returns an image.Paletted view sharing the index buffer.
func (m *IndexedImage) Paletted() *image.Paletted {
	return &image.Paletted{
		Pix:     m.Indices,
		Stride:  m.Width,
		Rect:    image.Rect(0, 0, m.Width, m.Height),
		Palette: m.Palette,
	}
}

// Remap assigns every pixel of img a palette index. Opaque pixels go through
// the dither library using the opaque palette entries; translucent pixels are
// mapped to the nearest entry directly since the library ignores alpha.
func (r *Result) Remap(img *Image) (*IndexedImage, error) {
	if len(r.palette) == 0 {
		return nil, fmt.Errorf("empty palette")
	}
	if len(r.palette) > maxPaletteColors {
		return nil, fmt.Errorf("palette has %d colors", len(r.palette))
	}

	out := &IndexedImage{
		Width:   img.width,
		Height:  img.height,
		Palette: r.Palette(),
		Indices: make([]uint8, img.width*img.height),
	}

	var opaque []int
	for i, c := range r.palette {
		if c.A == 255 {
			opaque = append(opaque, i)
		}
	}

	nearest := newNearestCache(r.palette)
	dithered := r.ditherOpaque(img, opaque)
	for i := 0; i < img.width*img.height; i++ {
		px := img.pix[i*4 : i*4+4]
		if px[3] == 255 && dithered != nil {
			out.Indices[i] = uint8(opaque[dithered.Pix[(i/img.width)*dithered.Stride+i%img.width]])
			continue
		}
		out.Indices[i] = nearest.index(color.NRGBA{R: px[0], G: px[1], B: px[2], A: px[3]})
	}
	return out, nil
}

// ditherOpaque runs the dither library over img with the opaque palette
// entries. It returns nil when dithering is off or cannot apply.
func (r *Result) ditherOpaque(img *Image, opaque []int) *image.Paletted {
	if r.ditheringLevel == 0 || len(opaque) < 2 {
		return nil
	}
	palette := make([]color.Color, len(opaque))
	for i, idx := range opaque {
		palette[i] = r.palette[idx]
	}
	d := dither.NewDitherer(palette)
	if d == nil {
		return nil
	}
	switch r.dither {
	case DitherBayer:
		d.Mapper = dither.Bayer(8, 8, float32(r.ditheringLevel))
	default:
		d.Matrix = dither.ErrorDiffusionStrength(dither.FloydSteinberg, float32(r.ditheringLevel))
		d.Serpentine = true
	}
	return d.DitherPaletted(opaqueSource(img, palette))
}

// opaqueSource returns img with every non-opaque pixel replaced by its
// nearest opaque palette color, so no error is diffused from pixels that are
// remapped separately.
func opaqueSource(img *Image, palette []color.Color) *image.NRGBA {
	pix := img.pix
	for i := 3; i < len(img.pix); i += 4 {
		if img.pix[i] != 255 {
			pix = nil
			break
		}
	}
	if pix == nil {
		colors := make([]color.NRGBA, len(palette))
		for i, c := range palette {
			colors[i] = c.(color.NRGBA)
		}
		nearest := newNearestCache(colors)
		pix = make([]uint8, len(img.pix))
		copy(pix, img.pix)
		for i := 0; i < len(pix); i += 4 {
			if pix[i+3] == 255 {
				continue
			}
			c := colors[nearest.index(color.NRGBA{R: pix[i], G: pix[i+1], B: pix[i+2], A: 255})]
			pix[i], pix[i+1], pix[i+2], pix[i+3] = c.R, c.G, c.B, 255
		}
	}
	return &image.NRGBA{Pix: pix, Stride: img.width * 4, Rect: image.Rect(0, 0, img.width, img.height)}
}

// nearestCache maps colors to the closest palette index by weighted RGBA
// distance, remembering results per color.
type nearestCache struct {
	fps   [][4]float64
	cache map[color.NRGBA]uint8
}

func newNearestCache(palette []color.NRGBA) *nearestCache {
	fps := make([][4]float64, len(palette))
	for i, c := range palette {
		fps[i] = fpixel(c)
	}
	return &nearestCache{fps: fps, cache: make(map[color.NRGBA]uint8)}
}

func (n *nearestCache) index(c color.NRGBA) uint8 {
	if c.A == 0 {
		c = color.NRGBA{}
	}
	if idx, ok := n.cache[c]; ok {
		return idx
	}
	fp := fpixel(c)
	best, bestDist := 0, math.MaxFloat64
	for i, p := range n.fps {
		if d := fdiff(fp, p); d < bestDist {
			best, bestDist = i, d
		}
	}
	n.cache[c] = uint8(best)
	return uint8(best)
}
