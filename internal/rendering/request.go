package rendering

import (
	"encoding/json"
	"errors"
	"strconv"
)

// ChartKind selects the chart-drawing routine for a request.
type ChartKind int

const (
	KindBar ChartKind = iota
	KindLine
	KindHorizontalBar
	KindPie
	KindRadar
	KindTable
	KindScatter
	KindCandlestick
	KindHeatmap
	KindMultiChart
)

var kindNames = [...]string{
	KindBar:           "bar",
	KindLine:          "line",
	KindHorizontalBar: "horizontal_bar",
	KindPie:           "pie",
	KindRadar:         "radar",
	KindTable:         "table",
	KindScatter:       "scatter",
	KindCandlestick:   "candlestick",
	KindHeatmap:       "heatmap",
	KindMultiChart:    "multi_chart",
}

func (k ChartKind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return kindNames[KindBar]
	}
	return kindNames[k]
}

// ParseChartKind maps a type discriminator to a kind. Every string maps to
// some kind: unknown and empty values select bar.
func ParseChartKind(s string) ChartKind {
	for k, name := range kindNames {
		if name == s {
			return ChartKind(k)
		}
	}
	return KindBar
}

// ChartKinds returns every kind in declaration order.
func ChartKinds() []ChartKind {
	kinds := make([]ChartKind, len(kindNames))
	for i := range kinds {
		kinds[i] = ChartKind(i)
	}
	return kinds
}

const (
	// DefaultQuality applies when the document has no quality field or an
	// out of range one.
	DefaultQuality = 80
	// MaxQuality is the highest quality honored as requested.
	MaxQuality = 98
)

// ChartRequest is a parsed render request. Raw is the unmodified document;
// chart renderers parse it again with their own schema.
type ChartRequest struct {
	Kind    ChartKind
	Type    string
	Raw     []byte
	Quality int
}

// ParseRequest reads the type discriminator and the quantization quality from
// body. Only invalid JSON is rejected; a document that is not an object is
// handed on as a bar chart and fails when the renderer parses it.
func ParseRequest(body []byte) (*ChartRequest, error) {
	if !json.Valid(body) {
		var doc any
		err := json.Unmarshal(body, &doc)
		if err == nil {
			err = errors.New("invalid json")
		}
		return nil, newError(ErrMalformedSpec, "json", err)
	}

	req := &ChartRequest{Raw: body, Quality: DefaultQuality}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return req, nil
	}
	if raw, ok := fields["type"]; ok {
		// A non-string type leaves Type empty.
		_ = json.Unmarshal(raw, &req.Type)
	}
	req.Kind = ParseChartKind(req.Type)
	if raw, ok := fields["quality"]; ok {
		req.Quality = parseQuality(raw)
	}
	return req, nil
}

// parseQuality accepts non-negative integer literals. Anything else is 0,
// which disables quantization; values above MaxQuality fall back to
// DefaultQuality.
func parseQuality(raw json.RawMessage) int {
	v, err := strconv.ParseUint(string(raw), 10, 64)
	if err != nil {
		return 0
	}
	if v > MaxQuality {
		return DefaultQuality
	}
	return int(v)
}
