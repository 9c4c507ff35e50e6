package charts

import (
	"math"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

// HeatmapSeries holds [x index, y index, value] triples.
type HeatmapSeries struct {
	Data      [][]float64 `json:"data" validate:"required,min=1"`
	Min       *float64    `json:"min"`
	Max       *float64    `json:"max"`
	LabelShow *bool       `json:"label_show"`
}

// HeatmapChart colors a grid of x by y cells between a min and max color.
// Row 0 is the bottom row.
type HeatmapChart struct {
	BaseOptions
	Series    HeatmapSeries `json:"series"`
	YAxisData []string      `json:"y_axis_data" validate:"required,min=1"`
	MinColor  *Color        `json:"min_color"`
	MaxColor  *Color        `json:"max_color"`

	fr *frame
}

// NewHeatmapChartFromJSON parses a heatmap chart option document.
func NewHeatmapChartFromJSON(reg *Registry, data []byte) (*HeatmapChart, error) {
	c := &HeatmapChart{}
	if err := decode("heatmap_chart", data, c); err != nil {
		return nil, err
	}
	if len(c.XAxisData) == 0 {
		return nil, buildErrorf("heatmap_chart", "x_axis_data is required")
	}
	for i, item := range c.Series.Data {
		if len(item) != 3 {
			return nil, buildErrorf("heatmap_chart", "series data %d: want [x, y, value], got %d numbers", i, len(item))
		}
	}
	c.fr = c.resolve(reg, Margin{Left: 5, Top: 5, Right: 5, Bottom: 5})
	return c, nil
}

// SVG renders the chart.
func (c *HeatmapChart) SVG() (string, error) { return render(c) }

func (c *HeatmapChart) frame() *frame { return c.fr }

func (c *HeatmapChart) valueRange() (float64, float64) {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, item := range c.Series.Data {
		lo = math.Min(lo, item[2])
		hi = math.Max(hi, item[2])
	}
	if c.Series.Min != nil {
		lo = *c.Series.Min
	}
	if c.Series.Max != nil {
		hi = *c.Series.Max
	}
	return lo, hi
}

func (c *HeatmapChart) draw(p *painter) error {
	f := c.fr
	body := f.header(p, nil, nil)

	size := orDefault(c.XAxisFontSize, defaultAxisFontSize)
	plot := chart.Box{
		Top:    plotPadding,
		Left:   maxLabelWidth(body, c.YAxisData, size) + 12,
		Right:  body.width() - plotPadding,
		Bottom: body.height() - orDefaultInt(c.XAxisHeight, defaultXAxisHeight),
	}
	cols, rows := len(c.XAxisData), len(c.YAxisData)
	xAxis := categoryAxis{n: cols, length: plot.Width(), boundaryGap: true}
	yAxis := categoryAxis{n: rows, length: plot.Height(), boundaryGap: true}
	f.categoryLabelsX(body, xAxis, c.XAxisData, plot)
	text := f.theme.TextColor.Drawing()
	for i, label := range c.YAxisData {
		y := plot.Bottom - yAxis.center(i)
		body.textMiddle(label, plot.Left-8, y, size, text, AlignRight)
	}

	area := body.child(plot)
	lo, hi := c.valueRange()
	minColor := pick(c.MinColor, &f.theme.HeatmapMinColor)
	maxColor := pick(c.MaxColor, &f.theme.HeatmapMaxColor)
	showLabels := c.Series.LabelShow == nil || *c.Series.LabelShow
	cellStroke := f.background
	for _, item := range c.Series.Data {
		x, y, v := int(item[0]), int(item[1]), item[2]
		if x < 0 || x >= cols || y < 0 || y >= rows {
			continue
		}
		t := 0.5
		if hi > lo {
			t = (v - lo) / (hi - lo)
		}
		color := lerpColor(minColor, maxColor, t)
		left, right := xAxis.start(x), xAxis.start(x+1)
		top := area.height() - yAxis.start(y+1)
		bottom := area.height() - yAxis.start(y)
		area.rect(left, top, right-left, bottom-top, color, cellStroke, 1)

		if showLabels {
			label := formatValue(v, "")
			if w, h := area.measure(label, size); w < right-left-4 && h < bottom-top {
				area.textMiddle(label, (left+right)/2, (top+bottom)/2, size, contrastText(color), AlignCenter)
			}
		}
	}
	return nil
}

// contrastText picks black or white text for a fill by its luma.
func contrastText(fill drawing.Color) drawing.Color {
	luma := 0.299*float64(fill.R) + 0.587*float64(fill.G) + 0.114*float64(fill.B)
	if luma > 150 {
		return drawing.ColorFromHex("333333")
	}
	return drawing.ColorWhite
}
