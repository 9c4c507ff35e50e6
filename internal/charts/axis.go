package charts

import (
	"math"
	"strconv"
	"strings"
)

// valueAxis maps data values onto a pixel range using rounded tick steps.
type valueAxis struct {
	min, max  float64
	ticks     []float64
	formatter string
}

func newValueAxis(values []float64, forceMin, forceMax *float64, splits int, includeZero bool, formatter string) valueAxis {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	if math.IsInf(lo, 1) {
		lo, hi = 0, 1
	}
	if includeZero {
		lo = math.Min(lo, 0)
		hi = math.Max(hi, 0)
	}
	if forceMin != nil {
		lo = *forceMin
	}
	if forceMax != nil {
		hi = *forceMax
	}
	if hi <= lo {
		hi = lo + 1
	}
	if splits <= 0 {
		splits = defaultYAxisSplit
	}

	step := niceStep((hi - lo) / float64(splits))
	if forceMin == nil {
		lo = math.Floor(lo/step) * step
	}
	if forceMax == nil {
		hi = math.Ceil(hi/step) * step
	}

	a := valueAxis{min: lo, max: hi, formatter: formatter}
	for v := lo; v <= hi+step/1e6; v += step {
		a.ticks = append(a.ticks, roundTo(v, step))
	}
	if forceMax != nil && len(a.ticks) > 0 && a.ticks[len(a.ticks)-1] < hi {
		a.ticks = append(a.ticks, hi)
	}
	return a
}

// niceStep rounds raw to 1, 2, 2.5 or 5 times a power of ten.
func niceStep(raw float64) float64 {
	if raw <= 0 {
		return 1
	}
	mag := math.Pow(10, math.Floor(math.Log10(raw)))
	residual := raw / mag
	switch {
	case residual <= 1:
		return mag
	case residual <= 2:
		return 2 * mag
	case residual <= 2.5:
		return 2.5 * mag
	case residual <= 5:
		return 5 * mag
	default:
		return 10 * mag
	}
}

func roundTo(v, step float64) float64 {
	decimals := 0
	if step < 1 {
		decimals = int(math.Ceil(-math.Log10(step))) + 1
	}
	pow := math.Pow(10, float64(decimals))
	return math.Round(v*pow) / pow
}

// pos returns the offset of v from the start of an axis of length pixels.
func (a valueAxis) pos(v float64, length int) int {
	if a.max == a.min {
		return 0
	}
	return int(math.Round((v - a.min) / (a.max - a.min) * float64(length)))
}

// clampedPos is pos limited to the axis range.
func (a valueAxis) clampedPos(v float64, length int) int {
	return a.pos(math.Max(a.min, math.Min(a.max, v)), length)
}

func (a valueAxis) labels() []string {
	out := make([]string, len(a.ticks))
	for i, t := range a.ticks {
		out[i] = formatValue(t, a.formatter)
	}
	return out
}

// formatValue renders v, substituting it for {c} when a formatter is given.
func formatValue(v float64, formatter string) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if math.Abs(v) >= 1e-3 && len(s) > 8 {
		s = strconv.FormatFloat(v, 'f', 2, 64)
	}
	if formatter == "" {
		return s
	}
	if strings.Contains(formatter, "{c}") {
		return strings.ReplaceAll(formatter, "{c}", s)
	}
	return s + formatter
}

// categoryAxis places n categories along length pixels. With a boundary gap
// every category owns a band and sits at its center; without one the first
// and last categories sit on the axis ends.
type categoryAxis struct {
	n           int
	length      int
	boundaryGap bool
}

func (c categoryAxis) band() float64 {
	if c.n == 0 {
		return float64(c.length)
	}
	return float64(c.length) / float64(c.n)
}

func (c categoryAxis) start(i int) int {
	return int(math.Round(c.band() * float64(i)))
}

func (c categoryAxis) center(i int) int {
	if c.boundaryGap {
		return int(math.Round(c.band()*float64(i) + c.band()/2))
	}
	if c.n <= 1 {
		return c.length / 2
	}
	return int(math.Round(float64(c.length) * float64(i) / float64(c.n-1)))
}

// labelInterval returns how many labels to advance per drawn label so that
// labels of the given widths do not overlap.
func labelInterval(widths []int, length, gap int) int {
	if len(widths) == 0 {
		return 1
	}
	total := 0
	for _, w := range widths {
		total += w + gap
	}
	if total <= length || length <= 0 {
		return 1
	}
	return int(math.Ceil(float64(total) / float64(length)))
}
