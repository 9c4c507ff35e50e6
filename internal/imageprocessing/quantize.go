package imageprocessing

import (
	"errors"
	"fmt"
	"image/color"
	"math"
	"sort"

	"github.com/lucasb-eyer/go-colorful"
)

const (
	maxPaletteColors = 256
	maxHistogram     = 1 << 16
	// weightMSE scales the quality curve to the channel weights below.
	weightMSE = 0.45
	weightA   = 0.625
	weightR   = 0.5
	weightG   = 1.0
	weightB   = 0.45
)

// ErrQualityTooLow is returned when no palette reaches the minimum quality.
var ErrQualityTooLow = errors.New("quality too low")

// Quantizer selects a palette of at most 256 colors for an image.
type Quantizer struct {
	minQuality int
	maxQuality int
	speed      int
	dither     DitherMode
}

// NewQuantizer returns a quantizer targeting quality 100 at speed 4 with
// Floyd-Steinberg dithering.
func NewQuantizer() *Quantizer {
	return &Quantizer{minQuality: 0, maxQuality: 100, speed: 4, dither: DitherFloydSteinberg}
}

// SetQuality sets the acceptable quality range, each in 0..100. The
// quantizer stops adding colors once max is reached and fails when even 256
// colors stay below min.
func (q *Quantizer) SetQuality(min, max int) error {
	if min < 0 || max > 100 || min > max {
		return fmt.Errorf("invalid quality range %d-%d", min, max)
	}
	q.minQuality, q.maxQuality = min, max
	return nil
}

// SetSpeed trades quality for time, 1 (slowest) to 10 (fastest).
func (q *Quantizer) SetSpeed(speed int) error {
	if speed < 1 || speed > 10 {
		return fmt.Errorf("invalid speed %d", speed)
	}
	q.speed = speed
	return nil
}

// SetDitherMode selects the remapping strategy for results of this quantizer.
func (q *Quantizer) SetDitherMode(mode DitherMode) {
	q.dither = mode
}

// Image is a view over RGBA pixels prepared for quantization.
type Image struct {
	width, height int
	pix           []uint8
	gamma         float64
}

// NewImage wraps pix, 4 bytes per pixel without row padding. A gamma of 0
// uses the pixel values as they are.
func (q *Quantizer) NewImage(pix []uint8, width, height int, gamma float64) (*Image, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid image size %dx%d", width, height)
	}
	if len(pix) != width*height*4 {
		return nil, fmt.Errorf("pixel buffer has %d bytes, want %d", len(pix), width*height*4)
	}
	if gamma < 0 || gamma >= 1 {
		return nil, fmt.Errorf("invalid gamma %v", gamma)
	}
	return &Image{width: width, height: height, pix: pix, gamma: gamma}, nil
}

// histEntry is one distinct color and how many pixels use it.
type histEntry struct {
	c      color.NRGBA
	weight float64
	fp     [4]float64
	lab    [3]float64
}

// Result holds a selected palette and remaps images against it.
type Result struct {
	palette        []color.NRGBA
	mse            float64
	quality        int
	ditheringLevel float64
	dither         DitherMode
}

// Quantize builds the histogram of img and selects a palette for it.
func (q *Quantizer) Quantize(img *Image) (*Result, error) {
	hist := histogram(img)
	target := qualityToMSE(q.maxQuality)

	var palette []color.NRGBA
	if len(hist) <= maxPaletteColors {
		palette = make([]color.NRGBA, len(hist))
		for i := range hist {
			palette[i] = hist[i].c
		}
	} else {
		palette = medianCut(hist, target)
		palette = refine(hist, palette, kmeansIterations(q.speed, q.maxQuality))
	}

	mse := paletteError(hist, palette)
	quality := mseToQuality(mse)
	if quality < q.minQuality {
		return nil, fmt.Errorf("%w: reached %d, minimum %d", ErrQualityTooLow, quality, q.minQuality)
	}
	return &Result{palette: palette, mse: mse, quality: quality, ditheringLevel: 1, dither: q.dither}, nil
}

// SetDitheringLevel sets the dithering strength in 0..1.
func (r *Result) SetDitheringLevel(level float64) error {
	if level < 0 || level > 1 {
		return fmt.Errorf("invalid dithering level %v", level)
	}
	r.ditheringLevel = level
	return nil
}

// Palette returns a copy of the selected colors.
func (r *Result) Palette() color.Palette {
	p := make(color.Palette, len(r.palette))
	for i, c := range r.palette {
		p[i] = c
	}
	return p
}

// Quality is the estimated quality (0..100) of the palette.
func (r *Result) Quality() int { return r.quality }

// MSE is the weighted mean squared error of mapping every pixel to its
// nearest palette entry without dithering.
func (r *Result) MSE() float64 { return r.mse }

// qualityToMSE maps a 0..100 quality onto the target error.
func qualityToMSE(quality int) float64 {
	if quality <= 0 {
		return math.MaxFloat64
	}
	if quality >= 100 {
		return 0
	}
	q := float64(quality)
	extraLowQualityFudge := math.Max(0, 0.016/(0.001+q)-0.001)
	return weightMSE * (extraLowQualityFudge + 2.5/math.Pow(210+q, 1.2)*(100.1-q)/100)
}

// mseToQuality is the inverse of qualityToMSE.
func mseToQuality(mse float64) int {
	for i := 100; i > 0; i-- {
		if mse <= qualityToMSE(i)+0.000001 {
			return i
		}
	}
	return 0
}

func kmeansIterations(speed, quality int) int {
	n := 1
	switch {
	case speed <= 2:
		n = 4
	case speed <= 5:
		n = 3
	case speed <= 8:
		n = 2
	}
	if quality < 50 && n > 1 {
		n--
	}
	return n
}

// fpixel is a color with premultiplied, channel weighted components in 0..1.
func fpixel(c color.NRGBA) [4]float64 {
	a := float64(c.A) / 255
	return [4]float64{
		a * weightA,
		float64(c.R) / 255 * a * weightR,
		float64(c.G) / 255 * a * weightG,
		float64(c.B) / 255 * a * weightB,
	}
}

func fdiff(x, y [4]float64) float64 {
	d := 0.0
	for i := range x {
		v := x[i] - y[i]
		d += v * v
	}
	return d
}

func labOf(c color.NRGBA) [3]float64 {
	l, a, b := colorful.Color{R: float64(c.R) / 255, G: float64(c.G) / 255, B: float64(c.B) / 255}.Lab()
	return [3]float64{l, a, b}
}

// perceptualDistance compares colors in CIE Lab with a penalty for alpha.
func perceptualDistance(x, y *histEntry) float64 {
	dl, da, db := x.lab[0]-y.lab[0], x.lab[1]-y.lab[1], x.lab[2]-y.lab[2]
	dA := (float64(x.c.A) - float64(y.c.A)) / 255
	return dl*dl + da*da + db*db + dA*dA
}

// histogram counts distinct colors. When there are too many it reduces the
// precision of every channel by one bit and counts again.
func histogram(img *Image) []histEntry {
	shift := uint(0)
	var counts map[color.NRGBA]float64
	for {
		counts = make(map[color.NRGBA]float64)
		mask := uint8(0xff << shift)
		round := uint8(0)
		if shift > 0 {
			round = 1 << (shift - 1)
		}
		for i := 0; i+3 < len(img.pix); i += 4 {
			c := color.NRGBA{R: img.pix[i], G: img.pix[i+1], B: img.pix[i+2], A: img.pix[i+3]}
			if c.A == 0 {
				c = color.NRGBA{}
			} else if shift > 0 {
				c = color.NRGBA{R: roundChannel(c.R, mask, round), G: roundChannel(c.G, mask, round), B: roundChannel(c.B, mask, round), A: roundChannel(c.A, mask, round)}
			}
			counts[c]++
			if len(counts) > maxHistogram && shift < 3 {
				break
			}
		}
		if len(counts) <= maxHistogram || shift >= 3 {
			break
		}
		shift++
	}

	hist := make([]histEntry, 0, len(counts))
	for c, n := range counts {
		hist = append(hist, histEntry{c: c, weight: n, fp: fpixel(c), lab: labOf(c)})
	}
	sort.Slice(hist, func(i, j int) bool {
		if hist[i].weight != hist[j].weight {
			return hist[i].weight > hist[j].weight
		}
		return packColor(hist[i].c) < packColor(hist[j].c)
	})
	return hist
}

func roundChannel(v, mask, round uint8) uint8 {
	r := int(v) + int(round)
	if r > 255 {
		r = 255
	}
	return uint8(r) & mask
}

func packColor(c color.NRGBA) uint32 {
	return uint32(c.R)<<24 | uint32(c.G)<<16 | uint32(c.B)<<8 | uint32(c.A)
}

// box is a set of histogram entries handled by median cut.
type box struct {
	entries []histEntry
	weight  float64
	mean    [4]float64
	sse     float64
}

func newBox(entries []histEntry) box {
	b := box{entries: entries}
	for _, e := range entries {
		b.weight += e.weight
		for i := range b.mean {
			b.mean[i] += e.fp[i] * e.weight
		}
	}
	if b.weight > 0 {
		for i := range b.mean {
			b.mean[i] /= b.weight
		}
	}
	for _, e := range entries {
		b.sse += fdiff(e.fp, b.mean) * e.weight
	}
	return b
}

// split divides b at the weighted median of its widest channel.
func (b box) split() (box, box) {
	var variance [4]float64
	for _, e := range b.entries {
		for i := range variance {
			d := e.fp[i] - b.mean[i]
			variance[i] += d * d * e.weight
		}
	}
	axis := 0
	for i := range variance {
		if variance[i] > variance[axis] {
			axis = i
		}
	}
	sort.Slice(b.entries, func(i, j int) bool {
		return b.entries[i].fp[axis] < b.entries[j].fp[axis]
	})
	half, acc := b.weight/2, 0.0
	cut := 1
	for i, e := range b.entries {
		acc += e.weight
		if acc >= half {
			cut = i + 1
			break
		}
	}
	if cut >= len(b.entries) {
		cut = len(b.entries) - 1
	}
	return newBox(b.entries[:cut]), newBox(b.entries[cut:])
}

// medianCut splits the histogram into at most 256 boxes, stopping early
// when the total error falls below target.
func medianCut(hist []histEntry, target float64) []color.NRGBA {
	entries := make([]histEntry, len(hist))
	copy(entries, hist)
	boxes := []box{newBox(entries)}
	total := boxes[0].weight

	for len(boxes) < maxPaletteColors {
		sse := 0.0
		worst := -1
		for i, b := range boxes {
			sse += b.sse
			if len(b.entries) > 1 && (worst < 0 || b.sse > boxes[worst].sse) {
				worst = i
			}
		}
		if worst < 0 || sse/total <= target {
			break
		}
		left, right := boxes[worst].split()
		boxes[worst] = left
		boxes = append(boxes, right)
	}

	palette := make([]color.NRGBA, len(boxes))
	for i, b := range boxes {
		palette[i] = b.representative()
	}
	return palette
}

// representative converts the mean of the box back to a color.
func (b box) representative() color.NRGBA {
	return unweight(b.mean)
}

func unweight(fp [4]float64) color.NRGBA {
	a := fp[0] / weightA
	if a <= 0 {
		return color.NRGBA{}
	}
	channel := func(v, w float64) uint8 {
		return uint8(math.Max(0, math.Min(255, math.Round(v/w/a*255))))
	}
	return color.NRGBA{
		R: channel(fp[1], weightR),
		G: channel(fp[2], weightG),
		B: channel(fp[3], weightB),
		A: uint8(math.Max(0, math.Min(255, math.Round(a*255)))),
	}
}

// refine runs k-means over the histogram, assigning colors to the
// perceptually nearest palette entry.
func refine(hist []histEntry, palette []color.NRGBA, iterations int) []color.NRGBA {
	centers := make([]histEntry, len(palette))
	for i, c := range palette {
		centers[i] = histEntry{c: c, fp: fpixel(c), lab: labOf(c)}
	}
	for it := 0; it < iterations; it++ {
		sums := make([][4]float64, len(centers))
		weights := make([]float64, len(centers))
		for i := range hist {
			best := nearestPerceptual(&hist[i], centers)
			weights[best] += hist[i].weight
			for k := range sums[best] {
				sums[best][k] += hist[i].fp[k] * hist[i].weight
			}
		}
		for j := range centers {
			if weights[j] == 0 {
				continue
			}
			var mean [4]float64
			for k := range mean {
				mean[k] = sums[j][k] / weights[j]
			}
			c := unweight(mean)
			centers[j] = histEntry{c: c, fp: fpixel(c), lab: labOf(c)}
		}
	}

	seen := make(map[color.NRGBA]bool, len(centers))
	out := make([]color.NRGBA, 0, len(centers))
	for _, c := range centers {
		if !seen[c.c] {
			seen[c.c] = true
			out = append(out, c.c)
		}
	}
	return out
}

func nearestPerceptual(e *histEntry, centers []histEntry) int {
	best, bestDist := 0, math.MaxFloat64
	for j := range centers {
		if d := perceptualDistance(e, &centers[j]); d < bestDist {
			best, bestDist = j, d
		}
	}
	return best
}

// paletteError is the weighted MSE of mapping every histogram entry to its
// nearest palette color.
func paletteError(hist []histEntry, palette []color.NRGBA) float64 {
	if len(palette) == 0 {
		return math.MaxFloat64
	}
	fps := make([][4]float64, len(palette))
	for i, c := range palette {
		fps[i] = fpixel(c)
	}
	sum, total := 0.0, 0.0
	for _, e := range hist {
		best := math.MaxFloat64
		for _, p := range fps {
			best = math.Min(best, fdiff(e.fp, p))
		}
		sum += best * e.weight
		total += e.weight
	}
	if total == 0 {
		return 0
	}
	return sum / total
}
