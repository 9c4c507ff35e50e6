package charts

import (
	"bytes"
	"fmt"
	"html"
	"image"
	"math"
	"strings"

	"github.com/golang/freetype/truetype"
	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
	"golang.org/x/image/font"
)

// point is a position relative to the painter box.
type point struct {
	X, Y int
}

// painter draws into a rectangular area of a go-chart renderer. Coordinates
// passed to its methods are relative to that area.
type painter struct {
	r     chart.Renderer
	font  *truetype.Font
	faces map[faceKey]font.Face
	box   chart.Box

	// escape is set when the backend writes markup.
	escape bool
}

type faceKey struct {
	font *truetype.Font
	size float64
}

func newPainter(r chart.Renderer, f *truetype.Font, box chart.Box) *painter {
	return &painter{r: r, font: f, faces: make(map[faceKey]font.Face), box: box, escape: true}
}

// child returns a painter over b, given relative to p.
func (p *painter) child(b chart.Box) *painter {
	return &painter{
		r:      p.r,
		font:   p.font,
		faces:  p.faces,
		escape: p.escape,
		box: chart.Box{
			Top:    p.box.Top + b.Top,
			Left:   p.box.Left + b.Left,
			Right:  p.box.Left + b.Right,
			Bottom: p.box.Top + b.Bottom,
		},
	}
}

// inset returns a child painter shrunk by m on every side.
func (p *painter) inset(m Margin) *painter {
	return p.child(chart.Box{Top: m.Top, Left: m.Left, Right: p.width() - m.Right, Bottom: p.height() - m.Bottom})
}

func (p *painter) withFont(f *truetype.Font) *painter {
	c := *p
	c.font = f
	return &c
}

func (p *painter) width() int  { return p.box.Width() }
func (p *painter) height() int { return p.box.Height() }

func (p *painter) abs(x, y int) (int, int) {
	return p.box.Left + x, p.box.Top + y
}

func (p *painter) style(fill, stroke drawing.Color, strokeWidth float64) {
	p.r.ResetStyle()
	p.r.SetFillColor(fill)
	p.r.SetStrokeColor(stroke)
	p.r.SetStrokeWidth(strokeWidth)
}

func (p *painter) paint(fill, stroke drawing.Color) {
	switch {
	case !fill.IsZero() && !stroke.IsZero():
		p.r.FillStroke()
	case !fill.IsZero():
		p.r.Fill()
	default:
		p.r.Stroke()
	}
}

func (p *painter) rect(x, y, w, h int, fill, stroke drawing.Color, strokeWidth float64) {
	if w <= 0 || h <= 0 {
		return
	}
	p.polygon([]point{{x, y}, {x + w, y}, {x + w, y + h}, {x, y + h}}, fill, stroke, strokeWidth)
}

func (p *painter) line(x1, y1, x2, y2 int, stroke drawing.Color, width float64, dash []float64) {
	p.style(drawing.Color{}, stroke, width)
	if len(dash) > 0 {
		p.r.SetStrokeDashArray(dash)
	}
	p.r.MoveTo(p.abs(x1, y1))
	p.r.LineTo(p.abs(x2, y2))
	p.r.Stroke()
}

func (p *painter) polyline(pts []point, stroke drawing.Color, width float64) {
	if len(pts) < 2 {
		return
	}
	p.style(drawing.Color{}, stroke, width)
	p.r.MoveTo(p.abs(pts[0].X, pts[0].Y))
	for _, pt := range pts[1:] {
		p.r.LineTo(p.abs(pt.X, pt.Y))
	}
	p.r.Stroke()
}

// smoothLine draws a curve through pts using the midpoints between points as
// curve ends and the points themselves as control points.
func (p *painter) smoothLine(pts []point, stroke drawing.Color, width float64) {
	if len(pts) < 3 {
		p.polyline(pts, stroke, width)
		return
	}
	p.style(drawing.Color{}, stroke, width)
	p.traceSmooth(pts)
	p.r.Stroke()
}

func (p *painter) traceSmooth(pts []point) {
	p.r.MoveTo(p.abs(pts[0].X, pts[0].Y))
	for i := 1; i < len(pts)-1; i++ {
		mid := point{(pts[i].X + pts[i+1].X) / 2, (pts[i].Y + pts[i+1].Y) / 2}
		cx, cy := p.abs(pts[i].X, pts[i].Y)
		mx, my := p.abs(mid.X, mid.Y)
		p.r.QuadCurveTo(cx, cy, mx, my)
	}
	last := pts[len(pts)-1]
	p.r.LineTo(p.abs(last.X, last.Y))
}

// area fills the region between pts and the horizontal line at baseline.
func (p *painter) area(pts []point, baseline int, smooth bool, fill drawing.Color) {
	if len(pts) < 2 {
		return
	}
	p.style(fill, drawing.Color{}, 0)
	if smooth && len(pts) > 2 {
		p.traceSmooth(pts)
	} else {
		p.r.MoveTo(p.abs(pts[0].X, pts[0].Y))
		for _, pt := range pts[1:] {
			p.r.LineTo(p.abs(pt.X, pt.Y))
		}
	}
	p.r.LineTo(p.abs(pts[len(pts)-1].X, baseline))
	p.r.LineTo(p.abs(pts[0].X, baseline))
	p.r.Close()
	p.r.Fill()
}

func (p *painter) polygon(pts []point, fill, stroke drawing.Color, strokeWidth float64) {
	if len(pts) < 3 {
		return
	}
	p.style(fill, stroke, strokeWidth)
	p.r.MoveTo(p.abs(pts[0].X, pts[0].Y))
	for _, pt := range pts[1:] {
		p.r.LineTo(p.abs(pt.X, pt.Y))
	}
	p.r.Close()
	p.paint(fill, stroke)
}

func (p *painter) circle(x, y int, radius float64, fill, stroke drawing.Color, strokeWidth float64) {
	p.style(fill, stroke, strokeWidth)
	ax, ay := p.abs(x, y)
	p.r.Circle(radius, ax, ay)
}

// sector draws a pie slice. Angles are in radians, clockwise from the
// positive x axis.
func (p *painter) sector(cx, cy int, radius, start, delta float64, fill, stroke drawing.Color) {
	if delta >= 2*math.Pi-1e-9 {
		p.circle(cx, cy, radius, fill, stroke, 1)
		return
	}
	if delta <= 0 {
		return
	}
	p.style(fill, stroke, 1)
	ax, ay := p.abs(cx, cy)
	p.r.MoveTo(ax, ay)
	p.r.ArcTo(ax, ay, radius, radius, start, delta)
	p.r.Close()
	p.paint(fill, stroke)
}

func (p *painter) face(size float64) font.Face {
	key := faceKey{font: p.font, size: size}
	if f, ok := p.faces[key]; ok {
		return f
	}
	f := truetype.NewFace(p.font, &truetype.Options{Size: size, DPI: 72, Hinting: font.HintingNone})
	p.faces[key] = f
	return f
}

// measure returns the advance width and line height of s.
func (p *painter) measure(s string, size float64) (int, int) {
	f := p.face(size)
	m := f.Metrics()
	return font.MeasureString(f, s).Ceil(), (m.Ascent + m.Descent).Ceil()
}

// text draws s with its top edge at y. x is the left edge, center or right
// edge depending on align.
func (p *painter) text(s string, x, y int, size float64, c drawing.Color, align Align) {
	if s == "" {
		return
	}
	w, _ := p.measure(s, size)
	switch align {
	case AlignCenter:
		x -= w / 2
	case AlignRight:
		x -= w
	}
	baseline := y + p.face(size).Metrics().Ascent.Ceil()
	p.r.ResetStyle()
	p.r.SetFont(p.font)
	p.r.SetFontSize(size)
	p.r.SetFontColor(c)
	ax, ay := p.abs(x, baseline)
	if p.escape {
		s = html.EscapeString(s)
	}
	p.r.Text(s, ax, ay)
}

// textMiddle draws s vertically centered on y.
func (p *painter) textMiddle(s string, x, y int, size float64, c drawing.Color, align Align) {
	_, h := p.measure(s, size)
	p.text(s, x, y-h/2, size, c, align)
}

// fit shortens s with an ellipsis until it is at most maxWidth wide.
func (p *painter) fit(s string, size float64, maxWidth int) string {
	if w, _ := p.measure(s, size); w <= maxWidth {
		return s
	}
	runes := []rune(s)
	for len(runes) > 0 {
		runes = runes[:len(runes)-1]
		candidate := string(runes) + "…"
		if w, _ := p.measure(candidate, size); w <= maxWidth {
			return candidate
		}
	}
	return ""
}

// renderSVG draws a full document of the given size and returns the markup.
func renderSVG(width, height int, f *truetype.Font, background drawing.Color, draw func(p *painter) error) (string, error) {
	r, err := paintDocument(chart.SVG, true, width, height, f, background, draw)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := r.Save(&buf); err != nil {
		return "", fmt.Errorf("write svg: %w", err)
	}
	return withSize(buf.String(), width, height), nil
}

// renderImage draws the same document through the raster backend and
// collects the canvas without encoding it.
func renderImage(width, height int, f *truetype.Font, background drawing.Color, draw func(p *painter) error) (image.Image, error) {
	r, err := paintDocument(chart.PNG, false, width, height, f, background, draw)
	if err != nil {
		return nil, err
	}
	var w chart.ImageWriter
	if err := r.Save(&w); err != nil {
		return nil, fmt.Errorf("collect raster: %w", err)
	}
	return w.Image()
}

func paintDocument(provider chart.RendererProvider, escape bool, width, height int, f *truetype.Font, background drawing.Color, draw func(p *painter) error) (chart.Renderer, error) {
	r, err := provider(width, height)
	if err != nil {
		return nil, fmt.Errorf("create renderer: %w", err)
	}
	r.SetDPI(72)
	p := newPainter(r, f, chart.Box{Top: 0, Left: 0, Right: width, Bottom: height})
	p.escape = escape
	if !background.IsZero() {
		p.rect(0, 0, width, height, background, drawing.Color{}, 0)
	}
	if err := draw(p); err != nil {
		return nil, err
	}
	return r, nil
}

// withSize adds width and height attributes to the root element; the
// go-chart writer only emits a viewBox.
func withSize(svg string, width, height int) string {
	return strings.Replace(svg, "<svg ", fmt.Sprintf(`<svg width="%d" height="%d" `, width, height), 1)
}
