package charts

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/wcharczuk/go-chart/v2/drawing"
)

// Color is a drawing.Color that reads and writes CSS style strings in JSON:
// "#rgb", "#rrggbb", "#rrggbbaa", "rgb(r,g,b)", "rgba(r,g,b,a)" or a named color.
type Color drawing.Color

// ParseColor parses a CSS style color string.
func ParseColor(raw string) (drawing.Color, error) {
	s := strings.ToLower(strings.TrimSpace(raw))
	switch {
	case s == "":
		return drawing.Color{}, fmt.Errorf("empty color")
	case strings.HasPrefix(s, "#"):
		return parseHexColor(s[1:])
	case strings.HasPrefix(s, "rgba(") && strings.HasSuffix(s, ")"):
		parts := strings.Split(s[5:len(s)-1], ",")
		if len(parts) != 4 {
			return drawing.Color{}, fmt.Errorf("invalid color %q", raw)
		}
		return parseRGBParts(raw, parts)
	case strings.HasPrefix(s, "rgb(") && strings.HasSuffix(s, ")"):
		parts := strings.Split(s[4:len(s)-1], ",")
		if len(parts) != 3 {
			return drawing.Color{}, fmt.Errorf("invalid color %q", raw)
		}
		return parseRGBParts(raw, parts)
	}
	if s == "transparent" {
		return drawing.ColorTransparent, nil
	}
	c := drawing.ColorFromKnown(s)
	if c.IsZero() {
		return drawing.Color{}, fmt.Errorf("unknown color %q", raw)
	}
	return c, nil
}

func parseHexColor(hex string) (drawing.Color, error) {
	if len(hex) == 3 || len(hex) == 4 {
		var expanded strings.Builder
		for _, r := range hex {
			expanded.WriteRune(r)
			expanded.WriteRune(r)
		}
		hex = expanded.String()
	}
	if len(hex) != 6 && len(hex) != 8 {
		return drawing.Color{}, fmt.Errorf("invalid hex color #%s", hex)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return drawing.Color{}, fmt.Errorf("invalid hex color #%s", hex)
	}
	if len(hex) == 6 {
		return drawing.Color{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 255}, nil
	}
	return drawing.Color{R: uint8(v >> 24), G: uint8(v >> 16), B: uint8(v >> 8), A: uint8(v)}, nil
}

func parseRGBParts(raw string, parts []string) (drawing.Color, error) {
	var channels [3]uint8
	for i := 0; i < 3; i++ {
		v, err := strconv.Atoi(strings.TrimSpace(parts[i]))
		if err != nil || v < 0 || v > 255 {
			return drawing.Color{}, fmt.Errorf("invalid color %q", raw)
		}
		channels[i] = uint8(v)
	}
	c := drawing.Color{R: channels[0], G: channels[1], B: channels[2], A: 255}
	if len(parts) == 4 {
		a, err := strconv.ParseFloat(strings.TrimSpace(parts[3]), 64)
		if err != nil || a < 0 || a > 1 {
			return drawing.Color{}, fmt.Errorf("invalid color %q", raw)
		}
		c.A = uint8(a*255 + 0.5)
	}
	return c, nil
}

// MustColor parses raw and panics on failure. Used for built-in themes only.
func MustColor(raw string) Color {
	c, err := ParseColor(raw)
	if err != nil {
		panic(err)
	}
	return Color(c)
}

// UnmarshalJSON implements json.Unmarshaler.
func (c *Color) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("color must be a string: %w", err)
	}
	parsed, err := ParseColor(s)
	if err != nil {
		return err
	}
	*c = Color(parsed)
	return nil
}

// MarshalJSON implements json.Marshaler.
func (c Color) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.Hex())
}

// Hex returns the color as #rrggbb, or #rrggbbaa when not opaque.
func (c Color) Hex() string {
	if c.A == 255 {
		return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
	}
	return fmt.Sprintf("#%02x%02x%02x%02x", c.R, c.G, c.B, c.A)
}

// Drawing converts to the go-chart color type.
func (c Color) Drawing() drawing.Color { return drawing.Color(c) }

// IsZero reports whether the color was never set.
func (c Color) IsZero() bool { return drawing.Color(c).IsZero() }

// pick returns the first color that is set.
func pick(colors ...*Color) drawing.Color {
	for _, c := range colors {
		if c != nil && !c.IsZero() {
			return c.Drawing()
		}
	}
	return drawing.Color{}
}

// lerpColor interpolates between a and b, t in [0,1].
func lerpColor(a, b drawing.Color, t float64) drawing.Color {
	if t < 0 {
		t = 0
	} else if t > 1 {
		t = 1
	}
	mix := func(x, y uint8) uint8 {
		return uint8(float64(x) + (float64(y)-float64(x))*t + 0.5)
	}
	return drawing.Color{R: mix(a.R, b.R), G: mix(a.G, b.G), B: mix(a.B, b.B), A: mix(a.A, b.A)}
}
