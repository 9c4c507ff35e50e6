package charts

import (
	"math"

	"github.com/wcharczuk/go-chart/v2/drawing"
)

// RadarIndicator is one spoke of a radar chart.
type RadarIndicator struct {
	Name string  `json:"name"`
	Max  float64 `json:"max" validate:"gt=0"`
	Min  float64 `json:"min"`
}

// RadarChart draws each series as a polygon over the indicator spokes.
type RadarChart struct {
	BaseOptions
	SeriesList []Series         `json:"series_list" validate:"required,min=1,dive"`
	Indicators []RadarIndicator `json:"indicators" validate:"required,min=3,dive"`
	SplitCount int              `json:"split_number" validate:"min=0,max=20"`

	fr *frame
}

// NewRadarChartFromJSON parses a radar chart option document.
func NewRadarChartFromJSON(reg *Registry, data []byte) (*RadarChart, error) {
	c := &RadarChart{}
	if err := decode("radar_chart", data, c); err != nil {
		return nil, err
	}
	for _, ind := range c.Indicators {
		if ind.Min >= ind.Max {
			return nil, buildErrorf("radar_chart", "indicator %q: min must be below max", ind.Name)
		}
	}
	c.fr = c.resolve(reg, Margin{Left: 5, Top: 5, Right: 5, Bottom: 5})
	return c, nil
}

// SVG renders the chart.
func (c *RadarChart) SVG() (string, error) { return render(c) }

func (c *RadarChart) frame() *frame { return c.fr }

func (c *RadarChart) draw(p *painter) error {
	f := c.fr
	names, colors := seriesLegend(f, c.SeriesList)
	body := f.header(p, names, colors)

	size := orDefault(c.XAxisFontSize, defaultAxisFontSize)
	labels := make([]string, len(c.Indicators))
	for i, ind := range c.Indicators {
		labels[i] = ind.Name
	}
	labelWidth := maxLabelWidth(body, labels, size)
	cx, cy := body.width()/2, body.height()/2
	radius := math.Min(float64(body.width()/2-labelWidth-10), float64(body.height()/2-25))
	if radius < 10 {
		radius = 10
	}

	n := len(c.Indicators)
	at := func(i int, r float64) point {
		a := -math.Pi/2 + 2*math.Pi*float64(i)/float64(n)
		return point{X: cx + int(math.Round(math.Cos(a)*r)), Y: cy + int(math.Round(math.Sin(a)*r))}
	}

	split := orDefaultInt(c.SplitCount, 5)
	gridColor := f.theme.AxisSplitColor.Drawing()
	for s := 1; s <= split; s++ {
		r := radius * float64(s) / float64(split)
		ring := make([]point, n)
		for i := range ring {
			ring[i] = at(i, r)
		}
		body.polygon(ring, drawing.Color{}, gridColor, 1)
	}
	text := f.theme.TextColor.Drawing()
	for i, ind := range c.Indicators {
		end := at(i, radius)
		body.line(cx, cy, end.X, end.Y, gridColor, 1, nil)

		label := at(i, radius+10)
		align := AlignCenter
		switch dx := label.X - cx; {
		case dx > 2:
			align = AlignLeft
		case dx < -2:
			align = AlignRight
		}
		body.textMiddle(ind.Name, label.X, label.Y, size, text, align)
	}

	for j := range c.SeriesList {
		s := &c.SeriesList[j]
		color := colors[j]
		pts := make([]point, n)
		for i, ind := range c.Indicators {
			v := 0.0
			if i < len(s.Data) {
				v = s.Data[i]
			}
			ratio := math.Max(0, math.Min(1, (v-ind.Min)/(ind.Max-ind.Min)))
			pts[i] = at(i, radius*ratio)
		}
		body.polygon(pts, color.WithAlpha(51), color, 2)
		for i, pt := range pts {
			body.circle(pt.X, pt.Y, 2, color, color, 1)
			if s.LabelShow && i < len(s.Data) {
				body.text(formatValue(s.Data[i], ""), pt.X, pt.Y-16, defaultAxisFontSize, text, AlignCenter)
			}
		}
	}
	return nil
}
