package charts

import (
	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

const (
	legendSwatchWidth  = 20
	legendSwatchHeight = 10
	legendItemGap      = 16
	plotPadding        = 10
)

// drawTitle draws the title and sub title and returns the height used.
func (f *frame) drawTitle(p *painter) int {
	o := f.opts
	if o.TitleText == "" && o.SubTitleText == "" {
		return 0
	}
	align := o.TitleAlign
	if align == "" {
		align = AlignCenter
	}
	x := 0
	switch align {
	case AlignCenter:
		x = p.width() / 2
	case AlignRight:
		x = p.width()
	}

	y := 0
	if o.TitleText != "" {
		size := orDefault(o.TitleFontSize, defaultTitleFontSize)
		p.text(o.TitleText, x, y, size, pick(o.TitleFontColor, &f.theme.TitleColor), align)
		_, h := p.measure(o.TitleText, size)
		y += h + 4
	}
	if o.SubTitleText != "" {
		size := orDefault(o.SubTitleFontSize, defaultAxisFontSize)
		p.text(o.SubTitleText, x, y, size, pick(o.SubTitleColor, &f.theme.SubTitleColor), align)
		_, h := p.measure(o.SubTitleText, size)
		y += h + 4
	}
	return y + 6
}

// drawLegend draws one row of legend items and returns the height used.
func (f *frame) drawLegend(p *painter, y int, names []string, colors []drawing.Color) int {
	o := f.opts
	if !o.legendVisible() || len(names) == 0 {
		return 0
	}
	hasName := false
	for _, n := range names {
		if n != "" {
			hasName = true
			break
		}
	}
	if !hasName {
		return 0
	}

	size := orDefault(o.LegendFontSize, defaultAxisFontSize)
	widths := make([]int, len(names))
	total := 0
	lineHeight := 0
	for i, n := range names {
		w, h := p.measure(n, size)
		widths[i] = legendSwatchWidth + 4 + w
		total += widths[i]
		lineHeight = max(lineHeight, h)
	}
	total += legendItemGap * (len(names) - 1)

	x := (p.width() - total) / 2
	switch o.LegendAlign {
	case AlignLeft:
		x = 0
	case AlignRight:
		x = p.width() - total
	}
	x = max(x, 0)

	color := f.theme.LegendColor.Drawing()
	for i, n := range names {
		p.rect(x, y+(lineHeight-legendSwatchHeight)/2, legendSwatchWidth, legendSwatchHeight, colors[i], drawing.Color{}, 0)
		p.text(n, x+legendSwatchWidth+4, y, size, color, AlignLeft)
		x += widths[i] + legendItemGap
	}
	return lineHeight + 10
}

// header draws title and legend and returns a painter over the rest.
func (f *frame) header(p *painter, names []string, colors []drawing.Color) *painter {
	used := f.drawTitle(p)
	used += f.drawLegend(p, used, names, colors)
	return p.child(chart.Box{Top: used, Left: 0, Right: p.width(), Bottom: p.height()})
}

// valueGridY draws the split lines and labels of a vertical value axis.
func (f *frame) valueGridY(p *painter, axis valueAxis, plot chart.Box) {
	size := orDefault(f.opts.XAxisFontSize, defaultAxisFontSize)
	labels := axis.labels()
	for i, t := range axis.ticks {
		y := plot.Bottom - axis.pos(t, plot.Height())
		p.line(plot.Left, y, plot.Right, y, f.theme.AxisSplitColor.Drawing(), 1, nil)
		p.textMiddle(labels[i], plot.Left-8, y, size, f.theme.TextColor.Drawing(), AlignRight)
	}
}

// valueGridX draws a horizontal value axis along the plot bottom with
// vertical split lines.
func (f *frame) valueGridX(p *painter, axis valueAxis, plot chart.Box) {
	size := orDefault(f.opts.XAxisFontSize, defaultAxisFontSize)
	labels := axis.labels()
	widths := make([]int, len(labels))
	for i, l := range labels {
		widths[i], _ = p.measure(l, size)
	}
	step := labelInterval(widths, plot.Width(), 8)
	for i, t := range axis.ticks {
		x := plot.Left + axis.pos(t, plot.Width())
		p.line(x, plot.Top, x, plot.Bottom, f.theme.AxisSplitColor.Drawing(), 1, nil)
		if i%step == 0 {
			p.text(labels[i], x, plot.Bottom+8, size, f.theme.TextColor.Drawing(), AlignCenter)
		}
	}
}

// categoryLabelsX draws category labels below the plot.
func (f *frame) categoryLabelsX(p *painter, axis categoryAxis, labels []string, plot chart.Box) {
	size := orDefault(f.opts.XAxisFontSize, defaultAxisFontSize)
	stroke := f.theme.AxisStrokeColor.Drawing()
	p.line(plot.Left, plot.Bottom, plot.Right, plot.Bottom, stroke, 1, nil)

	widths := make([]int, len(labels))
	for i, l := range labels {
		widths[i], _ = p.measure(l, size)
	}
	step := labelInterval(widths, plot.Width(), 8)
	for i, l := range labels {
		if i%step != 0 {
			continue
		}
		x := plot.Left + axis.center(i)
		p.line(x, plot.Bottom, x, plot.Bottom+4, stroke, 1, nil)
		p.text(l, x, plot.Bottom+8, size, f.theme.TextColor.Drawing(), AlignCenter)
	}
}

// maxLabelWidth returns the widest of labels at size.
func maxLabelWidth(p *painter, labels []string, size float64) int {
	w := 0
	for _, l := range labels {
		lw, _ := p.measure(l, size)
		w = max(w, lw)
	}
	return w
}

// cartesianPlot computes the plot box for a chart with a vertical value axis
// labelled on the left and categories along the bottom.
func (f *frame) cartesianPlot(p *painter, yLabels []string) chart.Box {
	size := orDefault(f.opts.XAxisFontSize, defaultAxisFontSize)
	left := maxLabelWidth(p, yLabels, size) + 12
	bottom := orDefaultInt(f.opts.XAxisHeight, defaultXAxisHeight)
	return chart.Box{
		Top:    plotPadding,
		Left:   left,
		Right:  p.width() - plotPadding,
		Bottom: p.height() - bottom,
	}
}
