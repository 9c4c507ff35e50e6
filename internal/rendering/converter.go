package rendering

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/png"
	"slices"
	"strings"

	"github.com/gen2brain/avif"
	"github.com/gen2brain/webp"
	"github.com/tdewolff/canvas"
	"github.com/tdewolff/canvas/renderers/rasterizer"

	"github.com/rmitchellscott/chartserver/internal/charts"
	"github.com/rmitchellscott/chartserver/internal/imageprocessing"
)

// Format is an output image format.
type Format string

const (
	FormatSVG  Format = "svg"
	FormatPNG  Format = "png"
	FormatWebP Format = "webp"
	FormatAVIF Format = "avif"
	// FormatJPEG is produced by the PNG path and only labeled image/jpeg.
	FormatJPEG Format = "jpeg"
)

// Formats lists every supported output format.
var Formats = []Format{FormatSVG, FormatPNG, FormatWebP, FormatAVIF, FormatJPEG}

// ParseFormat is case insensitive; unknown values select svg.
func ParseFormat(s string) Format {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	switch f {
	case FormatPNG, FormatWebP, FormatAVIF, FormatJPEG:
		return f
	default:
		return FormatSVG
	}
}

// Quantized reports whether the format goes through palette quantization.
func (f Format) Quantized() bool {
	return f == FormatPNG || f == FormatJPEG
}

// ConverterOptions tune the lossy encoders.
type ConverterOptions struct {
	WebPQuality int
	AVIFQuality int
	AVIFSpeed   int
}

// DefaultConverterOptions returns webp quality 80 and avif quality 80 at
// speed 10.
func DefaultConverterOptions() ConverterOptions {
	return ConverterOptions{WebPQuality: 80, AVIFQuality: 80, AVIFSpeed: 10}
}

// Converter turns vector drawings into encoded images.
type Converter struct {
	opts ConverterOptions
}

func NewConverter(opts ConverterOptions) *Converter {
	def := DefaultConverterOptions()
	if opts.WebPQuality <= 0 {
		opts.WebPQuality = def.WebPQuality
	}
	if opts.AVIFQuality <= 0 {
		opts.AVIFQuality = def.AVIFQuality
	}
	if opts.AVIFSpeed <= 0 {
		opts.AVIFSpeed = def.AVIFSpeed
	}
	return &Converter{opts: opts}
}

// Convert encodes d in format f. The svg format returns the markup, drawing
// it first when d only wraps a chart; jpeg returns PNG bytes. Errors are
// *Error values: chart failures keep the renderer category, the rest are
// categorized by the target format.
func (c *Converter) Convert(d VectorDrawing, f Format) ([]byte, error) {
	if f == FormatSVG {
		if d.SVG == "" && d.chart != nil {
			svg, err := d.chart.SVG()
			if err != nil {
				return nil, chartBuildError(d.kind, err)
			}
			return []byte(svg), nil
		}
		return []byte(d.SVG), nil
	}
	if !slices.Contains(Formats, f) {
		return nil, conversionError(f, fmt.Errorf("unsupported format %q", f))
	}

	img, err := c.Rasterize(d)
	if err != nil {
		return nil, failure(f, err)
	}
	var buf bytes.Buffer
	switch f {
	case FormatWebP:
		err = webp.Encode(&buf, img, webp.Options{Quality: c.opts.WebPQuality})
	case FormatAVIF:
		err = avif.Encode(&buf, img, avif.Options{
			Quality:           c.opts.AVIFQuality,
			QualityAlpha:      c.opts.AVIFQuality,
			Speed:             c.opts.AVIFSpeed,
			ChromaSubsampling: image.YCbCrSubsampleRatio420,
		})
	default:
		err = png.Encode(&buf, img)
	}
	if err != nil {
		return nil, conversionError(f, err)
	}
	return buf.Bytes(), nil
}

// Rasterize draws d into an image of d.Width x d.Height pixels. Drawings
// backed by a chart use the chart's raster backend directly; bare markup is
// parsed and rasterized with canvas.
func (c *Converter) Rasterize(d VectorDrawing) (image.Image, error) {
	if d.chart != nil {
		img, err := charts.Image(d.chart)
		if err != nil {
			return nil, chartBuildError(d.kind, err)
		}
		return img, nil
	}
	return rasterizeSVG(d.SVG, d.Width, d.Height)
}

func rasterizeSVG(svg string, width, height int) (img image.Image, err error) {
	// Malformed markup can panic inside the parser.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("rasterize svg: %v", r)
		}
	}()
	cv, err := canvas.ParseSVG(strings.NewReader(svg))
	if err != nil {
		return nil, fmt.Errorf("parse svg: %w", err)
	}
	if cv.W <= 0 || cv.H <= 0 {
		return nil, errors.New("svg has no size")
	}
	if width <= 0 || height <= 0 {
		// Units are millimeters at 96 DPI.
		width = int(cv.W*96/25.4 + 0.5)
		height = int(cv.H*96/25.4 + 0.5)
	}
	res := canvas.DPMM(float64(width) / cv.W)
	out := rasterizer.Draw(cv, res, canvas.DefaultColorSpace)
	return imageprocessing.ResizeExact(out, width, height), nil
}

func conversionError(f Format, err error) *Error {
	return newError(ErrConversion, string(f), err)
}

func failure(f Format, err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return conversionError(f, err)
}
