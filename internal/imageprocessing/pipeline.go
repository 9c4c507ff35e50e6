package imageprocessing

import (
	"bytes"
	"time"

	"github.com/rmitchellscott/chartserver/internal/logging"
)

// QuantizeOptions tune EncodeQuantized.
type QuantizeOptions struct {
	Speed  int
	Dither DitherMode
}

// DefaultQuantizeOptions returns speed 4 with Floyd-Steinberg dithering.
func DefaultQuantizeOptions() QuantizeOptions {
	return QuantizeOptions{Speed: 4, Dither: DitherFloydSteinberg}
}

// EncodeQuantized re-encodes full-color PNG bytes as a palette-indexed PNG
// of at most 256 colors. quality is the maximum target quality; 0 returns
// src unchanged. Failures are *StageError values naming the failed stage.
func EncodeQuantized(src []byte, quality int, opts QuantizeOptions) ([]byte, error) {
	if quality == 0 {
		return src, nil
	}
	start := time.Now()

	raster, err := DecodePNG(src)
	if err != nil {
		return nil, stageError(StageLoadImage, err)
	}

	q := NewQuantizer()
	if err := q.SetQuality(0, quality); err != nil {
		return nil, stageError(StageSetQuality, err)
	}
	if opts.Speed != 0 {
		if err := q.SetSpeed(opts.Speed); err != nil {
			return nil, stageError(StageSetQuality, err)
		}
	}
	if opts.Dither != "" {
		q.SetDitherMode(opts.Dither)
	}

	img, err := q.NewImage(raster.Pix, raster.Width, raster.Height, 0)
	if err != nil {
		return nil, stageError(StageNewImage, err)
	}

	res, err := q.Quantize(img)
	if err != nil {
		return nil, stageError(StageQuantize, err)
	}
	if err := res.SetDitheringLevel(1.0); err != nil {
		return nil, stageError(StageSetLevel, err)
	}

	indexed, err := res.Remap(img)
	if err != nil {
		return nil, stageError(StageRemap, err)
	}

	enc, err := NewPalettedEncoder(indexed.Palette)
	if err != nil {
		return nil, stageError(StageEncoder, err)
	}
	var out bytes.Buffer
	if err := enc.Encode(&out, indexed); err != nil {
		return nil, stageError(StageEncode, err)
	}

	logging.DebugWithComponent(logging.ComponentQuantizer, "Quantized png",
		"width", raster.Width,
		"height", raster.Height,
		"colors", len(indexed.Palette),
		"quality", res.Quality(),
		"input_bytes", len(src),
		"output_bytes", out.Len(),
		"duration", time.Since(start))
	return out.Bytes(), nil
}
