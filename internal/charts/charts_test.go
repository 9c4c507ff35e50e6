package charts

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func testRegistry(t *testing.T) *Registry {
	t.Helper()
	reg, err := NewRegistry(RegistryOptions{})
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	return reg
}

const lineOptions = `{
	"type": "line",
	"title_text": "Stack Area <Chart>",
	"legend_align": "right",
	"x_axis_data": ["Mon", "Tue", "Wed", "Thu", "Fri", "Sat", "Sun"],
	"series_list": [
		{"name": "Email", "data": [120, 132, 101, 134, 90, 230, 210]},
		{"name": "Union Ads", "data": [220, 182, 191, 234, 290, 330, 310], "label_show": true}
	]
}`

func TestChartsRenderSVG(t *testing.T) {
	reg := testRegistry(t)
	tests := []struct {
		name string
		new  func(*Registry, []byte) (Chart, error)
		data string
	}{
		{"bar", wrap(NewBarChartFromJSON), `{"x_axis_data":["a","b","c"],"series_list":[{"name":"s1","data":[1,-2,3]},{"name":"avg","data":[2,2,2],"category":"line"}]}`},
		{"line", wrap(NewLineChartFromJSON), lineOptions},
		{"smooth area line", wrap(NewLineChartFromJSON), `{"series_smooth":true,"series_fill":true,"series_list":[{"name":"a","data":[1,5,2,8,3]}]}`},
		{"horizontal bar", wrap(NewHorizontalBarChartFromJSON), `{"x_axis_data":["Brazil","China"],"series_list":[{"name":"2011","data":[18203,23489]}]}`},
		{"pie", wrap(NewPieChartFromJSON), `{"inner_radius":30,"series_list":[{"name":"A","data":[40]},{"name":"B","data":[38]},{"name":"C","data":[0]}]}`},
		{"rose pie", wrap(NewPieChartFromJSON), `{"rose_type":true,"series_list":[{"name":"A","data":[40]},{"name":"B","data":[10]}]}`},
		{"single slice pie", wrap(NewPieChartFromJSON), `{"series_list":[{"name":"A","data":[1]}]}`},
		{"radar", wrap(NewRadarChartFromJSON), `{"indicators":[{"name":"Sales","max":6500},{"name":"Admin","max":16000},{"name":"IT","max":30000}],"series_list":[{"name":"Budget","data":[4200,3000,20000]}]}`},
		{"table", wrap(NewTableChartFromJSON), `{"title_text":"NASDAQ","spans":[2,1],"text_aligns":["left","right"],"data":[["Name","Price"],["Datadog Inc","97.32"],["Hashicorp Inc","28.66"]]}`},
		{"scatter", wrap(NewScatterChartFromJSON), `{"series_list":[{"name":"Female","data":[161.2,51.6,167.5,59.0]},{"name":"Male","data":[174,65.6]}]}`},
		{"candlestick", wrap(NewCandlestickChartFromJSON), `{"x_axis_data":["d1","d2"],"series_list":[{"name":"k","data":[20,34,10,38,40,35,30,50]},{"name":"MA","category":"line","data":[27,37]}]}`},
		{"heatmap", wrap(NewHeatmapChartFromJSON), `{"x_axis_data":["12a","1a"],"y_axis_data":["Sat","Sun"],"series":{"data":[[0,0,9],[0,1,3],[1,0,1],[1,1,12],[5,5,1]]}}`},
		{"multi", wrap(NewMultiChartFromJSON), `{"child_charts":[` + lineOptions + `,{"type":"pie","series_list":[{"name":"A","data":[1]},{"name":"B","data":[2]}]}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := tt.new(reg, []byte(tt.data))
			if err != nil {
				t.Fatalf("parse: %v", err)
			}
			svg, err := c.SVG()
			if err != nil {
				t.Fatalf("SVG: %v", err)
			}
			w, h := Size(c)
			if !strings.HasPrefix(svg, `<svg width="`) {
				t.Errorf("svg does not start with sized root element: %.80s", svg)
			}
			if !strings.Contains(svg, `viewBox="0 0 `) || !strings.HasSuffix(strings.TrimSpace(svg), "</svg>") {
				t.Errorf("svg is not a complete document")
			}
			if w <= 0 || h <= 0 {
				t.Errorf("Size() = %d x %d", w, h)
			}
		})
	}
}

func wrap[C Chart](fn func(*Registry, []byte) (C, error)) func(*Registry, []byte) (Chart, error) {
	return func(reg *Registry, data []byte) (Chart, error) {
		c, err := fn(reg, data)
		if err != nil {
			return nil, err
		}
		return c, nil
	}
}

func TestTextIsEscaped(t *testing.T) {
	c, err := NewLineChartFromJSON(testRegistry(t), []byte(lineOptions))
	if err != nil {
		t.Fatal(err)
	}
	svg, err := c.SVG()
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(svg, "<Chart>") {
		t.Error("title text was not escaped")
	}
	if !strings.Contains(svg, "&lt;Chart&gt;") {
		t.Error("escaped title text missing")
	}
}

func TestBuildErrors(t *testing.T) {
	reg := testRegistry(t)
	tests := []struct {
		name  string
		new   func(*Registry, []byte) (Chart, error)
		data  string
		chart string
	}{
		{"bar missing series", wrap(NewBarChartFromJSON), `{"x_axis_data":["a"]}`, "bar_chart"},
		{"bar wrong type", wrap(NewBarChartFromJSON), `{"width":"wide","series_list":[{"data":[1]}]}`, "bar_chart"},
		{"bad color", wrap(NewLineChartFromJSON), `{"background_color":"#12","series_list":[{"data":[1]}]}`, "line_chart"},
		{"radar too few indicators", wrap(NewRadarChartFromJSON), `{"indicators":[{"name":"a","max":1}],"series_list":[{"data":[1]}]}`, "radar_chart"},
		{"scatter odd data", wrap(NewScatterChartFromJSON), `{"series_list":[{"data":[1,2,3]}]}`, "scatter_chart"},
		{"heatmap bad triple", wrap(NewHeatmapChartFromJSON), `{"x_axis_data":["a"],"y_axis_data":["b"],"series":{"data":[[0,0]]}}`, "heatmap_chart"},
		{"table without data", wrap(NewTableChartFromJSON), `{"title_text":"x"}`, "table_chart"},
		{"nested multi chart", wrap(NewMultiChartFromJSON), `{"child_charts":[{"type":"multi_chart","child_charts":[]}]}`, "multi_chart"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.new(reg, []byte(tt.data))
			var buildErr *BuildError
			if !errors.As(err, &buildErr) {
				t.Fatalf("error = %v, want *BuildError", err)
			}
			if buildErr.Chart != tt.chart {
				t.Errorf("Chart = %q, want %q", buildErr.Chart, tt.chart)
			}
		})
	}
}

func TestPieZeroSumFailsAtRender(t *testing.T) {
	c, err := NewPieChartFromJSON(testRegistry(t), []byte(`{"series_list":[{"name":"a","data":[0]}]}`))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := c.SVG(); err == nil {
		t.Error("expected error for zero sum pie")
	}
}

func TestImage(t *testing.T) {
	reg := testRegistry(t)
	c, err := NewBarChartFromJSON(reg, []byte(`{"width":320,"height":180,"x_axis_data":["a","b"],"series_list":[{"name":"s","data":[1,2]}]}`))
	if err != nil {
		t.Fatal(err)
	}
	img, err := Image(c)
	if err != nil {
		t.Fatalf("Image: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 320 || b.Dy() != 180 {
		t.Errorf("size = %dx%d, want 320x180", b.Dx(), b.Dy())
	}

	pie, err := NewPieChartFromJSON(reg, []byte(`{"series_list":[{"name":"a","data":[0]}]}`))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := Image(pie); err == nil {
		t.Error("expected error for zero sum pie")
	}
}

func TestTableHeightFollowsRows(t *testing.T) {
	reg := testRegistry(t)
	short, err := NewTableChartFromJSON(reg, []byte(`{"data":[["h"],["1"]]}`))
	if err != nil {
		t.Fatal(err)
	}
	long, err := NewTableChartFromJSON(reg, []byte(`{"data":[["h"],["1"],["2"],["3"]]}`))
	if err != nil {
		t.Fatal(err)
	}
	_, hs := Size(short)
	_, hl := Size(long)
	if hl-hs != 2*defaultTableRowHeight {
		t.Errorf("height difference = %d, want %d", hl-hs, 2*defaultTableRowHeight)
	}

	fixed, err := NewTableChartFromJSON(reg, []byte(`{"height":500,"data":[["h"]]}`))
	if err != nil {
		t.Fatal(err)
	}
	if _, h := Size(fixed); h != 500 {
		t.Errorf("explicit height = %d, want 500", h)
	}
}

func TestMultiChartSize(t *testing.T) {
	reg := testRegistry(t)
	c, err := NewMultiChartFromJSON(reg, []byte(`{
		"gap": 20,
		"margin": {"left": 0, "top": 0, "right": 0, "bottom": 0},
		"child_charts": [
			{"type": "bar", "width": 300, "height": 200, "series_list": [{"data": [1]}]},
			{"type": "line", "width": 500, "height": 100, "series_list": [{"data": [1, 2]}]}
		]
	}`))
	if err != nil {
		t.Fatal(err)
	}
	w, h := Size(c)
	if w != 500 || h != 320 {
		t.Errorf("Size() = %d x %d, want 500 x 320", w, h)
	}
}

func TestRegistry(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "broken.ttf"), []byte("not a font"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0644); err != nil {
		t.Fatal(err)
	}

	reg, err := NewRegistry(RegistryOptions{
		FontDirs: []string{dir, filepath.Join(dir, "missing")},
		Themes: map[string]string{
			"Ocean":  `{"background_color":"#001f3f","series_colors":["#39cccc"]}`,
			"broken": `{"background_color":42}`,
		},
	})
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}

	if got := reg.Families(); len(got) != 1 || got[0] != DefaultFontFamily {
		t.Errorf("Families() = %v, want only %s", got, DefaultFontFamily)
	}
	if reg.Font("Nope") != reg.Font(DefaultFontFamily) {
		t.Error("unknown family should fall back to the default font")
	}

	ocean := reg.Theme("ocean")
	if ocean.BackgroundColor.Hex() != "#001f3f" {
		t.Errorf("ocean background = %s", ocean.BackgroundColor.Hex())
	}
	if ocean.TitleColor != reg.Theme(ThemeLight).TitleColor {
		t.Error("custom theme should inherit unset fields from light")
	}
	for _, name := range reg.ThemeNames() {
		if name == "broken" {
			t.Error("theme that failed to parse was registered")
		}
	}
	if reg.Theme("unknown").BackgroundColor != reg.Theme(ThemeLight).BackgroundColor {
		t.Error("unknown theme should fall back to light")
	}
}

func TestParseColor(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"#fff", "#ffffff", false},
		{"#5470C6", "#5470c6", false},
		{"#00000080", "#00000080", false},
		{"rgb(1, 2, 3)", "#010203", false},
		{"rgba(255,0,0,0.5)", "#ff000080", false},
		{"navy", "#000080", false},
		{"#12", "", true},
		{"rgb(300,0,0)", "", true},
		{"chartreuse-ish", "", true},
	}
	for _, tt := range tests {
		c, err := ParseColor(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseColor(%q) expected error", tt.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseColor(%q) error: %v", tt.in, err)
			continue
		}
		if got := Color(c).Hex(); got != tt.want {
			t.Errorf("ParseColor(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestValueAxis(t *testing.T) {
	a := newValueAxis([]float64{3, 47, 12}, nil, nil, 5, true, "")
	if a.min != 0 || a.max != 50 {
		t.Errorf("range = [%v, %v], want [0, 50]", a.min, a.max)
	}
	if got := len(a.ticks); got != 6 {
		t.Errorf("ticks = %v", a.ticks)
	}
	if a.pos(25, 100) != 50 {
		t.Errorf("pos(25) = %d, want 50", a.pos(25, 100))
	}

	b := newValueAxis([]float64{0.12, 0.31}, nil, nil, 4, false, "{c} ms")
	for _, l := range b.labels() {
		if !strings.HasSuffix(l, " ms") {
			t.Errorf("label %q missing formatter suffix", l)
		}
	}
}
