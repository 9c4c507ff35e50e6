package charts

// CandlestickChart draws one candle per category from series holding
// flattened open, close, low, high quadruples. Series with category "line"
// are drawn as lines.
type CandlestickChart struct {
	BaseOptions
	SeriesList      []Series `json:"series_list" validate:"required,min=1,dive"`
	UpColor         *Color   `json:"candlestick_up_color"`
	UpBorderColor   *Color   `json:"candlestick_up_border_color"`
	DownColor       *Color   `json:"candlestick_down_color"`
	DownBorderColor *Color   `json:"candlestick_down_border_color"`

	fr *frame
}

// NewCandlestickChartFromJSON parses a candlestick chart option document.
func NewCandlestickChartFromJSON(reg *Registry, data []byte) (*CandlestickChart, error) {
	c := &CandlestickChart{}
	if err := decode("candlestick_chart", data, c); err != nil {
		return nil, err
	}
	for _, s := range c.SeriesList {
		if !isLineSeries(&s) && len(s.Data)%4 != 0 {
			return nil, buildErrorf("candlestick_chart", "series %q: data must hold open, close, low, high quadruples", s.Name)
		}
	}
	c.fr = c.resolve(reg, Margin{Left: 5, Top: 5, Right: 5, Bottom: 5})
	return c, nil
}

// SVG renders the chart.
func (c *CandlestickChart) SVG() (string, error) { return render(c) }

func (c *CandlestickChart) frame() *frame { return c.fr }

func (c *CandlestickChart) draw(p *painter) error {
	f := c.fr
	names, colors := seriesLegend(f, c.SeriesList)
	body := f.header(p, names, colors)

	categories := len(c.XAxisData)
	for _, s := range c.SeriesList {
		n := len(s.Data) + s.StartIndex
		if !isLineSeries(&s) {
			n = len(s.Data)/4 + s.StartIndex
		}
		categories = max(categories, n)
	}

	axis := newValueAxis(allValues(c.SeriesList), c.YAxisMin, c.YAxisMax, c.YAxisSplit, false, c.YAxisFormatter)
	plot := f.cartesianPlot(body, axis.labels())
	f.valueGridY(body, axis, plot)
	xAxis := categoryAxis{n: categories, length: plot.Width(), boundaryGap: true}
	f.categoryLabelsX(body, xAxis, c.XAxisData, plot)

	area := body.child(plot)
	up := pick(c.UpColor, &f.theme.UpColor)
	down := pick(c.DownColor, &f.theme.DownColor)
	upBorder := pick(c.UpBorderColor, c.UpColor, &f.theme.UpColor)
	downBorder := pick(c.DownBorderColor, c.DownColor, &f.theme.DownColor)
	width := max(1, int(xAxis.band()*0.6))
	y := func(v float64) int { return area.height() - axis.clampedPos(v, area.height()) }

	for _, s := range c.SeriesList {
		if isLineSeries(&s) {
			continue
		}
		for i := 0; i+3 < len(s.Data); i += 4 {
			cat := i/4 + s.StartIndex
			if cat >= xAxis.n {
				break
			}
			open, closing, low, high := s.Data[i], s.Data[i+1], s.Data[i+2], s.Data[i+3]
			fill, border := down, downBorder
			if closing >= open {
				fill, border = up, upBorder
			}
			x := xAxis.center(cat)
			area.line(x, y(high), x, y(low), border, 1, nil)
			top, bottom := y(max(open, closing)), y(min(open, closing))
			area.rect(x-width/2, top, width, max(bottom-top, 1), fill, border, 1)
		}
	}
	drawSeriesLines(area, f, axis, xAxis, c.SeriesList, lineStyle{smooth: true})
	return nil
}
