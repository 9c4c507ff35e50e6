package charts

import (
	"encoding/json"
	"fmt"

	"github.com/wcharczuk/go-chart/v2"
)

// MultiChart stacks child charts vertically in one document. A child may set
// "x" and "y" to place itself explicitly; otherwise it goes below the
// previous child, separated by Gap. The document size is negotiated from the
// children once they are parsed.
type MultiChart struct {
	Width           int               `json:"width" validate:"min=0,max=8192"`
	Height          int               `json:"height" validate:"min=0,max=8192"`
	Margin          *Margin           `json:"margin"`
	Gap             *int              `json:"gap" validate:"omitempty,min=0"`
	Theme           string            `json:"theme"`
	FontFamily      string            `json:"font_family"`
	BackgroundColor *Color            `json:"background_color"`
	ChildCharts     []json.RawMessage `json:"child_charts" validate:"required,min=1"`

	children  []drawable
	positions []point
	fr        *frame
}

type childPlacement struct {
	Type string `json:"type"`
	X    *int   `json:"x"`
	Y    *int   `json:"y"`
}

// NewMultiChartFromJSON parses a multi chart option document and all of its
// children.
func NewMultiChartFromJSON(reg *Registry, data []byte) (*MultiChart, error) {
	c := &MultiChart{}
	if err := decode("multi_chart", data, c); err != nil {
		return nil, err
	}
	theme := reg.Theme(c.Theme)
	c.fr = &frame{
		margin:     Margin{Left: 10, Top: 10, Right: 10, Bottom: 10},
		theme:      theme,
		font:       reg.Font(c.FontFamily),
		background: pick(c.BackgroundColor, &theme.BackgroundColor),
		opts:       &BaseOptions{Theme: c.Theme, FontFamily: c.FontFamily},
	}
	if c.Margin != nil {
		c.fr.margin = *c.Margin
	}
	gap := 10
	if c.Gap != nil {
		gap = *c.Gap
	}

	y := 0
	width, height := 0, 0
	for i, raw := range c.ChildCharts {
		var place childPlacement
		if err := json.Unmarshal(raw, &place); err != nil {
			return nil, &BuildError{Chart: "multi_chart", Err: fmt.Errorf("child %d: %w", i, err)}
		}
		child, err := c.newChild(reg, place.Type, raw)
		if err != nil {
			return nil, err
		}
		w, h := Size(child)
		pos := point{X: 0, Y: y}
		if place.X != nil {
			pos.X = *place.X
		}
		if place.Y != nil {
			pos.Y = *place.Y
		}
		c.children = append(c.children, child)
		c.positions = append(c.positions, pos)
		y = pos.Y + h + gap
		width = max(width, pos.X+w)
		height = max(height, pos.Y+h)
	}

	c.fr.width = width + c.fr.margin.Left + c.fr.margin.Right
	c.fr.height = height + c.fr.margin.Top + c.fr.margin.Bottom
	if c.Width > 0 {
		c.fr.width = c.Width
	}
	if c.Height > 0 {
		c.fr.height = c.Height
	}
	return c, nil
}

// newChild parses one child; theme and font family default to the parent's.
func (c *MultiChart) newChild(reg *Registry, typ string, raw []byte) (drawable, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, &BuildError{Chart: "multi_chart", Err: err}
	}
	inherit := func(key, value string) {
		if _, ok := fields[key]; !ok && value != "" {
			fields[key], _ = json.Marshal(value)
		}
	}
	inherit("theme", c.Theme)
	inherit("font_family", c.FontFamily)
	merged, err := json.Marshal(fields)
	if err != nil {
		return nil, &BuildError{Chart: "multi_chart", Err: err}
	}

	switch typ {
	case "line":
		return NewLineChartFromJSON(reg, merged)
	case "horizontal_bar":
		return NewHorizontalBarChartFromJSON(reg, merged)
	case "pie":
		return NewPieChartFromJSON(reg, merged)
	case "radar":
		return NewRadarChartFromJSON(reg, merged)
	case "table":
		return NewTableChartFromJSON(reg, merged)
	case "scatter":
		return NewScatterChartFromJSON(reg, merged)
	case "candlestick":
		return NewCandlestickChartFromJSON(reg, merged)
	case "heatmap":
		return NewHeatmapChartFromJSON(reg, merged)
	case "multi_chart":
		return nil, buildErrorf("multi_chart", "multi_chart cannot be nested")
	default:
		return NewBarChartFromJSON(reg, merged)
	}
}

// SVG renders all children into one document.
func (c *MultiChart) SVG() (string, error) { return render(c) }

func (c *MultiChart) frame() *frame { return c.fr }

func (c *MultiChart) draw(p *painter) error {
	for i, child := range c.children {
		w, h := Size(child)
		pos := c.positions[i]
		if err := drawInto(p, child, chart.Box{Top: pos.Y, Left: pos.X, Right: pos.X + w, Bottom: pos.Y + h}); err != nil {
			return err
		}
	}
	return nil
}
