package charts

// LineChart draws one line per series over category x values. Series with
// category "bar" are drawn as bars below the lines.
type LineChart struct {
	BaseOptions
	SeriesList   []Series `json:"series_list" validate:"required,min=1,dive"`
	SeriesSmooth bool     `json:"series_smooth"`
	SeriesFill   bool     `json:"series_fill"`
	SymbolHidden bool     `json:"series_symbol_hidden"`
	StrokeWidth  float64  `json:"series_stroke_width" validate:"min=0,max=20"`

	fr *frame
}

// NewLineChartFromJSON parses a line chart option document.
func NewLineChartFromJSON(reg *Registry, data []byte) (*LineChart, error) {
	c := &LineChart{}
	if err := decode("line_chart", data, c); err != nil {
		return nil, err
	}
	c.fr = c.resolve(reg, Margin{Left: 5, Top: 5, Right: 5, Bottom: 5})
	return c, nil
}

// SVG renders the chart.
func (c *LineChart) SVG() (string, error) { return render(c) }

func (c *LineChart) frame() *frame { return c.fr }

func (c *LineChart) draw(p *painter) error {
	f := c.fr
	names, colors := seriesLegend(f, c.SeriesList)
	body := f.header(p, names, colors)

	hasBars := false
	for _, s := range c.SeriesList {
		if s.Category == "bar" {
			hasBars = true
		}
	}
	axis := newValueAxis(allValues(c.SeriesList), c.YAxisMin, c.YAxisMax, c.YAxisSplit, hasBars, c.YAxisFormatter)
	plot := f.cartesianPlot(body, axis.labels())
	f.valueGridY(body, axis, plot)

	xAxis := categoryAxis{
		n:           categoryCount(c.XAxisData, c.SeriesList),
		length:      plot.Width(),
		boundaryGap: c.boundaryGap(hasBars),
	}
	f.categoryLabelsX(body, xAxis, c.XAxisData, plot)

	// Keep the original index of every series so colors follow series order.
	bars := make([]Series, len(c.SeriesList))
	lines := make([]Series, len(c.SeriesList))
	for i, s := range c.SeriesList {
		if s.Category == "bar" {
			bars[i] = s
			lines[i] = Series{Category: "bar"}
		} else {
			bars[i] = Series{Category: "line"}
			lines[i] = s
			lines[i].Category = "line"
		}
	}

	area := body.child(plot)
	if hasBars {
		drawVerticalBars(area, f, axis, xAxis, bars)
	}
	drawSeriesLines(area, f, axis, xAxis, lines, lineStyle{
		smooth:  c.SeriesSmooth,
		fill:    c.SeriesFill,
		symbols: !c.SymbolHidden,
		width:   c.StrokeWidth,
	})
	return nil
}
