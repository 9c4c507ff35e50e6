package charts

import (
	"fmt"
	"math"

	"github.com/wcharczuk/go-chart/v2/drawing"
)

// PieChart draws one slice per series using the first value of each series.
type PieChart struct {
	BaseOptions
	SeriesList  []Series `json:"series_list" validate:"required,min=1,dive"`
	Radius      float64  `json:"radius" validate:"min=0"`
	InnerRadius float64  `json:"inner_radius" validate:"min=0"`
	RoseType    bool     `json:"rose_type"`
	StartAngle  float64  `json:"start_angle"`
	LabelHidden bool     `json:"label_hidden"`

	fr *frame
}

// NewPieChartFromJSON parses a pie chart option document.
func NewPieChartFromJSON(reg *Registry, data []byte) (*PieChart, error) {
	c := &PieChart{}
	if err := decode("pie_chart", data, c); err != nil {
		return nil, err
	}
	if c.InnerRadius > 0 && c.Radius > 0 && c.InnerRadius >= c.Radius {
		return nil, buildErrorf("pie_chart", "inner_radius %v must be smaller than radius %v", c.InnerRadius, c.Radius)
	}
	c.fr = c.resolve(reg, Margin{Left: 5, Top: 5, Right: 5, Bottom: 5})
	return c, nil
}

// SVG renders the chart.
func (c *PieChart) SVG() (string, error) { return render(c) }

func (c *PieChart) frame() *frame { return c.fr }

func (c *PieChart) draw(p *painter) error {
	f := c.fr
	names, colors := seriesLegend(f, c.SeriesList)
	body := f.header(p, names, colors)

	values := make([]float64, len(c.SeriesList))
	total, largest := 0.0, 0.0
	for i, s := range c.SeriesList {
		values[i] = math.Max(s.Data[0], 0)
		total += values[i]
		largest = math.Max(largest, values[i])
	}
	if total == 0 {
		return buildErrorf("pie_chart", "sum of series values must be greater than 0")
	}

	cx, cy := body.width()/2, body.height()/2
	labelSpace := 0.0
	if !c.LabelHidden {
		labelSpace = 30
	}
	radius := c.Radius
	if radius == 0 {
		radius = math.Max(math.Min(float64(body.width())/2-labelSpace*2.5, float64(body.height())/2-labelSpace), 10)
	}
	inner := c.InnerRadius
	if inner >= radius {
		inner = 0
	}

	angle := (c.StartAngle - 90) * math.Pi / 180
	stroke := f.background
	if stroke.IsZero() {
		stroke = drawing.ColorWhite
	}
	text := f.theme.TextColor.Drawing()
	size := orDefault(c.LegendFontSize, defaultAxisFontSize)

	for i, v := range values {
		if v == 0 {
			continue
		}
		delta := v / total * 2 * math.Pi
		r := radius
		if c.RoseType {
			r = inner + (radius-inner)*v/largest
		}
		body.sector(cx, cy, r, angle, delta, colors[i], stroke)

		if !c.LabelHidden {
			mid := angle + delta/2
			ex, ey := cx+int(math.Cos(mid)*(r+10)), cy+int(math.Sin(mid)*(r+10))
			sx, sy := cx+int(math.Cos(mid)*r), cy+int(math.Sin(mid)*r)
			hx := ex + 10
			align := AlignLeft
			if math.Cos(mid) < 0 {
				hx = ex - 10
				align = AlignRight
			}
			body.polyline([]point{{sx, sy}, {ex, ey}, {hx, ey}}, colors[i], 1)
			label := fmt.Sprintf("%s: %.1f%%", c.SeriesList[i].Name, v/total*100)
			if c.SeriesList[i].Name == "" {
				label = fmt.Sprintf("%.1f%%", v/total*100)
			}
			tx := hx + 3
			if align == AlignRight {
				tx = hx - 3
			}
			body.textMiddle(label, tx, ey, size, text, align)
		}
		angle += delta
	}

	if inner > 0 && !c.RoseType {
		hole := f.background
		if hole.IsZero() {
			hole = drawing.ColorWhite
		}
		body.circle(cx, cy, inner, hole, drawing.Color{}, 0)
	}
	return nil
}
