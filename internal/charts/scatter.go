package charts

// ScatterChart draws points. Each series holds flattened x, y pairs.
type ScatterChart struct {
	BaseOptions
	SeriesList  []Series `json:"series_list" validate:"required,min=1,dive"`
	SymbolSize  float64  `json:"symbol_size" validate:"min=0,max=100"`
	XAxisMin    *float64 `json:"x_axis_min"`
	XAxisMax    *float64 `json:"x_axis_max"`
	XAxisSplit  int      `json:"x_axis_split_number" validate:"min=0,max=50"`
	XAxisFormat string   `json:"x_axis_formatter"`

	fr *frame
}

// NewScatterChartFromJSON parses a scatter chart option document.
func NewScatterChartFromJSON(reg *Registry, data []byte) (*ScatterChart, error) {
	c := &ScatterChart{}
	if err := decode("scatter_chart", data, c); err != nil {
		return nil, err
	}
	for _, s := range c.SeriesList {
		if len(s.Data)%2 != 0 {
			return nil, buildErrorf("scatter_chart", "series %q: data must hold x, y pairs", s.Name)
		}
	}
	c.fr = c.resolve(reg, Margin{Left: 5, Top: 5, Right: 5, Bottom: 5})
	return c, nil
}

// SVG renders the chart.
func (c *ScatterChart) SVG() (string, error) { return render(c) }

func (c *ScatterChart) frame() *frame { return c.fr }

func (c *ScatterChart) draw(p *painter) error {
	f := c.fr
	names, colors := seriesLegend(f, c.SeriesList)
	body := f.header(p, names, colors)

	var xs, ys []float64
	for _, s := range c.SeriesList {
		for i := 0; i+1 < len(s.Data); i += 2 {
			xs = append(xs, s.Data[i])
			ys = append(ys, s.Data[i+1])
		}
	}
	xAxis := newValueAxis(xs, c.XAxisMin, c.XAxisMax, c.XAxisSplit, false, c.XAxisFormat)
	yAxis := newValueAxis(ys, c.YAxisMin, c.YAxisMax, c.YAxisSplit, false, c.YAxisFormatter)

	plot := f.cartesianPlot(body, yAxis.labels())
	f.valueGridY(body, yAxis, plot)
	f.valueGridX(body, xAxis, plot)
	body.line(plot.Left, plot.Bottom, plot.Right, plot.Bottom, f.theme.AxisStrokeColor.Drawing(), 1, nil)

	area := body.child(plot)
	radius := orDefault(c.SymbolSize, 10) / 2
	for j := range c.SeriesList {
		s := &c.SeriesList[j]
		color := f.seriesColor(s, j)
		for i := 0; i+1 < len(s.Data); i += 2 {
			x := xAxis.clampedPos(s.Data[i], area.width())
			y := area.height() - yAxis.clampedPos(s.Data[i+1], area.height())
			area.circle(x, y, radius, color.WithAlpha(204), color, 1)
		}
	}
	return nil
}
