package charts

import (
	"github.com/wcharczuk/go-chart/v2/drawing"
)

// BarChart draws grouped vertical bars. Series with category "line" are
// drawn as lines over the bars.
type BarChart struct {
	BaseOptions
	SeriesList []Series `json:"series_list" validate:"required,min=1,dive"`

	fr *frame
}

// NewBarChartFromJSON parses a bar chart option document.
func NewBarChartFromJSON(reg *Registry, data []byte) (*BarChart, error) {
	c := &BarChart{}
	if err := decode("bar_chart", data, c); err != nil {
		return nil, err
	}
	c.fr = c.resolve(reg, Margin{Left: 5, Top: 5, Right: 5, Bottom: 5})
	return c, nil
}

// SVG renders the chart.
func (c *BarChart) SVG() (string, error) { return render(c) }

func (c *BarChart) frame() *frame { return c.fr }

func (c *BarChart) draw(p *painter) error {
	f := c.fr
	names, colors := seriesLegend(f, c.SeriesList)
	body := f.header(p, names, colors)
	axis := newValueAxis(allValues(c.SeriesList), c.YAxisMin, c.YAxisMax, c.YAxisSplit, true, c.YAxisFormatter)
	plot := f.cartesianPlot(body, axis.labels())
	f.valueGridY(body, axis, plot)

	categories := categoryCount(c.XAxisData, c.SeriesList)
	xAxis := categoryAxis{n: categories, length: plot.Width(), boundaryGap: true}
	f.categoryLabelsX(body, xAxis, c.XAxisData, plot)

	area := body.child(plot)
	drawVerticalBars(area, f, axis, xAxis, c.SeriesList)
	drawSeriesLines(area, f, axis, xAxis, c.SeriesList, lineStyle{symbols: true})
	return nil
}

// drawVerticalBars draws all bar series of list grouped per category.
func drawVerticalBars(p *painter, f *frame, axis valueAxis, xAxis categoryAxis, list []Series) {
	var bars []int
	for i := range list {
		if !isLineSeries(&list[i]) {
			bars = append(bars, i)
		}
	}
	if len(bars) == 0 {
		return
	}
	const gap = 2
	band := xAxis.band()
	groupWidth := int(band * 0.8)
	barWidth := max(1, (groupWidth-gap*(len(bars)-1))/len(bars))
	zero := p.height() - axis.clampedPos(0, p.height())
	size := float64(defaultAxisFontSize)

	for j, idx := range bars {
		s := &list[idx]
		color := f.seriesColor(s, idx)
		for k, v := range s.Data {
			cat := k + s.StartIndex
			if cat >= xAxis.n {
				break
			}
			x := xAxis.start(cat) + int(band*0.1) + j*(barWidth+gap)
			y := p.height() - axis.clampedPos(v, p.height())
			top, h := y, zero-y
			if h < 0 {
				top, h = zero, -h
			}
			p.rect(x, top, barWidth, max(h, 1), color, drawing.Color{}, 0)
			if s.LabelShow {
				label := formatValue(v, "")
				if v >= 0 {
					p.text(label, x+barWidth/2, top-16, size, f.theme.TextColor.Drawing(), AlignCenter)
				} else {
					p.text(label, x+barWidth/2, top+h+2, size, f.theme.TextColor.Drawing(), AlignCenter)
				}
			}
		}
	}
}

type lineStyle struct {
	smooth  bool
	fill    bool
	symbols bool
	width   float64
}

// drawSeriesLines draws the series of list whose category is "line".
func drawSeriesLines(p *painter, f *frame, axis valueAxis, xAxis categoryAxis, list []Series, style lineStyle) {
	drawLines(p, f, axis, xAxis, list, style, false)
}

// drawLines draws series as lines; unless all is set only line series are
// drawn.
func drawLines(p *painter, f *frame, axis valueAxis, xAxis categoryAxis, list []Series, style lineStyle, all bool) {
	width := style.width
	if width == 0 {
		width = 2
	}
	size := float64(defaultAxisFontSize)
	for i := range list {
		s := &list[i]
		if !all && !isLineSeries(s) {
			continue
		}
		color := f.seriesColor(s, i)
		pts := make([]point, 0, len(s.Data))
		for k, v := range s.Data {
			cat := k + s.StartIndex
			if cat >= xAxis.n {
				break
			}
			pts = append(pts, point{X: xAxis.center(cat), Y: p.height() - axis.clampedPos(v, p.height())})
		}
		if style.fill {
			baseline := p.height() - axis.clampedPos(axis.min, p.height())
			p.area(pts, baseline, style.smooth, color.WithAlpha(51))
		}
		if style.smooth {
			p.smoothLine(pts, color, width)
		} else {
			p.polyline(pts, color, width)
		}
		if style.symbols && len(pts) <= 60 {
			for _, pt := range pts {
				p.circle(pt.X, pt.Y, 3, f.background, color, 1)
			}
		}
		if s.LabelShow {
			for k, pt := range pts {
				p.text(formatValue(s.Data[k], ""), pt.X, pt.Y-18, size, f.theme.TextColor.Drawing(), AlignCenter)
			}
		}
	}
}

func seriesLegend(f *frame, list []Series) ([]string, []drawing.Color) {
	names := make([]string, len(list))
	colors := make([]drawing.Color, len(list))
	for i := range list {
		names[i] = list[i].Name
		colors[i] = f.seriesColor(&list[i], i)
	}
	return names, colors
}

func allValues(list []Series) []float64 {
	var out []float64
	for _, s := range list {
		out = append(out, s.Data...)
	}
	return out
}

// categoryCount is the larger of the label count and the longest series.
func categoryCount(labels []string, list []Series) int {
	n := len(labels)
	for _, s := range list {
		n = max(n, len(s.Data)+s.StartIndex)
	}
	return n
}
