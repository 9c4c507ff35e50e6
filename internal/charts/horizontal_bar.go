package charts

import (
	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

// HorizontalBarChart draws bars growing to the right, one row of bars per
// category. The first category is at the top.
type HorizontalBarChart struct {
	BaseOptions
	SeriesList []Series `json:"series_list" validate:"required,min=1,dive"`

	fr *frame
}

// NewHorizontalBarChartFromJSON parses a horizontal bar chart option document.
func NewHorizontalBarChartFromJSON(reg *Registry, data []byte) (*HorizontalBarChart, error) {
	c := &HorizontalBarChart{}
	if err := decode("horizontal_bar_chart", data, c); err != nil {
		return nil, err
	}
	c.fr = c.resolve(reg, Margin{Left: 5, Top: 5, Right: 15, Bottom: 5})
	return c, nil
}

// SVG renders the chart.
func (c *HorizontalBarChart) SVG() (string, error) { return render(c) }

func (c *HorizontalBarChart) frame() *frame { return c.fr }

func (c *HorizontalBarChart) draw(p *painter) error {
	f := c.fr
	names, colors := seriesLegend(f, c.SeriesList)
	body := f.header(p, names, colors)

	axis := newValueAxis(allValues(c.SeriesList), c.YAxisMin, c.YAxisMax, c.YAxisSplit, true, c.YAxisFormatter)
	size := orDefault(c.XAxisFontSize, defaultAxisFontSize)
	plot := chart.Box{
		Top:    plotPadding,
		Left:   maxLabelWidth(body, c.XAxisData, size) + 12,
		Right:  body.width() - plotPadding,
		Bottom: body.height() - orDefaultInt(c.XAxisHeight, defaultXAxisHeight),
	}
	f.valueGridX(body, axis, plot)

	yAxis := categoryAxis{n: categoryCount(c.XAxisData, c.SeriesList), length: plot.Height(), boundaryGap: true}
	stroke := f.theme.AxisStrokeColor.Drawing()
	body.line(plot.Left, plot.Top, plot.Left, plot.Bottom, stroke, 1, nil)
	for i, label := range c.XAxisData {
		y := plot.Top + yAxis.center(i)
		body.textMiddle(label, plot.Left-8, y, size, f.theme.TextColor.Drawing(), AlignRight)
	}

	area := body.child(plot)
	const gap = 2
	band := yAxis.band()
	groupHeight := int(band * 0.8)
	barHeight := max(1, (groupHeight-gap*(len(c.SeriesList)-1))/len(c.SeriesList))
	zero := axis.clampedPos(0, area.width())
	for j := range c.SeriesList {
		s := &c.SeriesList[j]
		color := f.seriesColor(s, j)
		for k, v := range s.Data {
			cat := k + s.StartIndex
			if cat >= yAxis.n {
				break
			}
			y := yAxis.start(cat) + int(band*0.1) + j*(barHeight+gap)
			x := axis.clampedPos(v, area.width())
			left, w := zero, x-zero
			if w < 0 {
				left, w = x, -w
			}
			area.rect(left, y, max(w, 1), barHeight, color, drawing.Color{}, 0)
			if s.LabelShow {
				area.textMiddle(formatValue(v, ""), left+w+4, y+barHeight/2, defaultAxisFontSize, f.theme.TextColor.Drawing(), AlignLeft)
			}
		}
	}
	return nil
}
