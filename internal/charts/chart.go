package charts

import (
	"fmt"
	"image"

	"github.com/golang/freetype/truetype"
	"github.com/wcharczuk/go-chart/v2"
)

// Chart is a configured chart that can produce SVG markup.
type Chart interface {
	SVG() (string, error)
}

// drawable is implemented by every chart in this package; multi charts use
// it to draw children into a shared document.
type drawable interface {
	Chart
	frame() *frame
	draw(p *painter) error
}

// Size returns the pixel size c will render at.
func Size(c Chart) (int, int) {
	if d, ok := c.(drawable); ok {
		f := d.frame()
		return f.width, f.height
	}
	return 0, 0
}

func render(c drawable) (string, error) {
	f := c.frame()
	return renderSVG(f.width, f.height, f.font, f.background, func(p *painter) error {
		return c.draw(p.inset(f.margin))
	})
}

// Image draws c through the raster backend. Text goes through the same
// font as the SVG output, so the two match.
func Image(c Chart) (image.Image, error) {
	d, ok := c.(drawable)
	if !ok {
		return nil, fmt.Errorf("chart %T has no raster backend", c)
	}
	f := d.frame()
	return renderImage(f.width, f.height, f.font, f.background, func(p *painter) error {
		return d.draw(p.inset(f.margin))
	})
}

// drawInto draws c inside box of p, background included.
func drawInto(p *painter, c drawable, box chart.Box) error {
	f := c.frame()
	cp := p.child(box).withFont(fontOr(f.font, p.font))
	if !f.background.IsZero() {
		cp.rect(0, 0, cp.width(), cp.height(), f.background, f.background, 0)
	}
	return c.draw(cp.inset(f.margin))
}

func fontOr(f, fallback *truetype.Font) *truetype.Font {
	if f != nil {
		return f
	}
	return fallback
}
