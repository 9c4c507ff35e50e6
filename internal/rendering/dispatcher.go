package rendering

import (
	"github.com/rmitchellscott/chartserver/internal/charts"
)

// VectorDrawing is a rendered chart. SVG is the markup; the chart is kept so
// raster formats can draw through the same fonts instead of re-parsing it.
// A drawing made by Wrap carries only the chart.
type VectorDrawing struct {
	SVG    string
	Width  int
	Height int

	chart charts.Chart
	kind  ChartKind
}

// NewVectorDrawing wraps SVG markup that has no chart behind it, such as a
// file read from disk.
func NewVectorDrawing(svg string, width, height int) VectorDrawing {
	return VectorDrawing{SVG: svg, Width: width, Height: height}
}

// Dispatcher builds charts against a fixed font and theme registry.
type Dispatcher struct {
	reg *charts.Registry
}

func NewDispatcher(reg *charts.Registry) *Dispatcher {
	return &Dispatcher{reg: reg}
}

// Registry returns the registry the dispatcher builds with.
func (d *Dispatcher) Registry() *charts.Registry {
	return d.reg
}

// Build parses raw with the renderer selected by kind.
func (d *Dispatcher) Build(kind ChartKind, raw []byte) (charts.Chart, error) {
	var (
		c   charts.Chart
		err error
	)
	switch kind {
	case KindLine:
		c, err = charts.NewLineChartFromJSON(d.reg, raw)
	case KindHorizontalBar:
		c, err = charts.NewHorizontalBarChartFromJSON(d.reg, raw)
	case KindPie:
		c, err = charts.NewPieChartFromJSON(d.reg, raw)
	case KindRadar:
		c, err = charts.NewRadarChartFromJSON(d.reg, raw)
	case KindTable:
		c, err = charts.NewTableChartFromJSON(d.reg, raw)
	case KindScatter:
		c, err = charts.NewScatterChartFromJSON(d.reg, raw)
	case KindCandlestick:
		c, err = charts.NewCandlestickChartFromJSON(d.reg, raw)
	case KindHeatmap:
		c, err = charts.NewHeatmapChartFromJSON(d.reg, raw)
	case KindMultiChart:
		c, err = charts.NewMultiChartFromJSON(d.reg, raw)
	default:
		c, err = charts.NewBarChartFromJSON(d.reg, raw)
	}
	if err != nil {
		return nil, chartBuildError(kind, err)
	}
	return c, nil
}

// Draw renders a chart returned by Build as SVG.
func (d *Dispatcher) Draw(kind ChartKind, c charts.Chart) (VectorDrawing, error) {
	svg, err := c.SVG()
	if err != nil {
		return VectorDrawing{}, chartBuildError(kind, err)
	}
	v := d.Wrap(kind, c)
	v.SVG = svg
	return v, nil
}

// Wrap prepares c for raster output without producing markup.
func (d *Dispatcher) Wrap(kind ChartKind, c charts.Chart) VectorDrawing {
	w, h := charts.Size(c)
	return VectorDrawing{Width: w, Height: h, chart: c, kind: kind}
}

// Render builds the chart and draws it as SVG.
func (d *Dispatcher) Render(kind ChartKind, raw []byte) (VectorDrawing, error) {
	c, err := d.Build(kind, raw)
	if err != nil {
		return VectorDrawing{}, err
	}
	return d.Draw(kind, c)
}
