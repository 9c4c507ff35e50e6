package charts

import (
	"encoding/json"
	"fmt"
)

// Theme names shipped with the engine.
const (
	ThemeLight   = "light"
	ThemeDark    = "dark"
	ThemeGrafana = "grafana"
	ThemeAnt     = "ant"
	ThemeVintage = "vintage"
	ThemeShine   = "shine"
)

// Theme is the color scheme applied when a chart leaves a color unset.
type Theme struct {
	IsLight          bool    `json:"is_light"`
	BackgroundColor  Color   `json:"background_color"`
	TitleColor       Color   `json:"title_color"`
	SubTitleColor    Color   `json:"sub_title_color"`
	LegendColor      Color   `json:"legend_color"`
	TextColor        Color   `json:"text_color"`
	AxisStrokeColor  Color   `json:"axis_stroke_color"`
	AxisSplitColor   Color   `json:"axis_split_color"`
	SeriesColors     []Color `json:"series_colors"`
	TableHeaderColor Color   `json:"table_header_color"`
	TableBodyColors  []Color `json:"table_body_colors"`
	TableBorderColor Color   `json:"table_border_color"`
	HeatmapMinColor  Color   `json:"heatmap_min_color"`
	HeatmapMaxColor  Color   `json:"heatmap_max_color"`
	UpColor          Color   `json:"up_color"`
	DownColor        Color   `json:"down_color"`
}

// SeriesColor returns the color for series index i, cycling the list.
func (t *Theme) SeriesColor(i int) Color {
	if len(t.SeriesColors) == 0 {
		return MustColor("#5470c6")
	}
	return t.SeriesColors[i%len(t.SeriesColors)]
}

// ParseTheme decodes a theme from JSON. Fields left out keep the values of
// base, so a custom theme only needs to list what it changes.
func ParseTheme(base Theme, data []byte) (Theme, error) {
	theme := base
	theme.SeriesColors = append([]Color(nil), base.SeriesColors...)
	theme.TableBodyColors = append([]Color(nil), base.TableBodyColors...)
	if err := json.Unmarshal(data, &theme); err != nil {
		return Theme{}, fmt.Errorf("parse theme: %w", err)
	}
	return theme, nil
}

func colors(raw ...string) []Color {
	out := make([]Color, len(raw))
	for i, s := range raw {
		out[i] = MustColor(s)
	}
	return out
}

var echartsSeries = colors("#5470c6", "#91cc75", "#fac858", "#ee6666", "#73c0de",
	"#3ba272", "#fc8452", "#9a60b4", "#ea7ccc")

func builtinThemes() map[string]Theme {
	light := Theme{
		IsLight:          true,
		BackgroundColor:  MustColor("#ffffff"),
		TitleColor:       MustColor("#464646"),
		SubTitleColor:    MustColor("#6e7079"),
		LegendColor:      MustColor("#464646"),
		TextColor:        MustColor("#6e7079"),
		AxisStrokeColor:  MustColor("#6e7079"),
		AxisSplitColor:   MustColor("#e0e6f1"),
		SeriesColors:     echartsSeries,
		TableHeaderColor: MustColor("#f8f9fb"),
		TableBodyColors:  colors("#ffffff", "#f8f9fb"),
		TableBorderColor: MustColor("#e0e6f1"),
		HeatmapMinColor:  MustColor("#d6e4ff"),
		HeatmapMaxColor:  MustColor("#1d39c4"),
		UpColor:          MustColor("#ec0000"),
		DownColor:        MustColor("#00da3c"),
	}
	dark := Theme{
		BackgroundColor:  MustColor("#100c2a"),
		TitleColor:       MustColor("#eeeeee"),
		SubTitleColor:    MustColor("#aaaaaa"),
		LegendColor:      MustColor("#eeeeee"),
		TextColor:        MustColor("#b9b8ce"),
		AxisStrokeColor:  MustColor("#b9b8ce"),
		AxisSplitColor:   MustColor("#484753"),
		SeriesColors:     colors("#4992ff", "#7cffb2", "#fddd60", "#ff6e76", "#58d9f9", "#05c091", "#ff8a45", "#8d48e3", "#dd79ff"),
		TableHeaderColor: MustColor("#26233f"),
		TableBodyColors:  colors("#100c2a", "#1b1736"),
		TableBorderColor: MustColor("#484753"),
		HeatmapMinColor:  MustColor("#313695"),
		HeatmapMaxColor:  MustColor("#d73027"),
		UpColor:          MustColor("#ff6e76"),
		DownColor:        MustColor("#7cffb2"),
	}

	grafana := dark
	grafana.BackgroundColor = MustColor("#1f1d1d")
	grafana.TitleColor = MustColor("#d8d9da")
	grafana.LegendColor = MustColor("#d8d9da")
	grafana.TextColor = MustColor("#bbbfc4")
	grafana.AxisStrokeColor = MustColor("#bbbfc4")
	grafana.AxisSplitColor = MustColor("#34373a")
	grafana.SeriesColors = colors("#7eb26d", "#eab839", "#6ed0e0", "#ef843c", "#e24d42", "#1f78c1", "#ba43a9", "#705da0")
	grafana.TableHeaderColor = MustColor("#2a2d31")
	grafana.TableBodyColors = colors("#1f1d1d", "#262628")
	grafana.TableBorderColor = MustColor("#34373a")

	ant := light
	ant.SeriesColors = colors("#5b8ff9", "#5ad8a6", "#5d7092", "#f6bd16", "#6f5ef9", "#6dc8ec", "#945fb9", "#ff9845")
	ant.TableHeaderColor = MustColor("#fafafa")

	vintage := light
	vintage.BackgroundColor = MustColor("#fef8ef")
	vintage.TitleColor = MustColor("#333333")
	vintage.SeriesColors = colors("#d87c7c", "#919e8b", "#d7ab82", "#6e7074", "#61a0a8", "#efa18d", "#787464", "#cc7e63")
	vintage.TableHeaderColor = MustColor("#f5ead8")
	vintage.TableBodyColors = colors("#fef8ef", "#faf0e1")

	shine := light
	shine.SeriesColors = colors("#c12e34", "#e6b600", "#0098d9", "#2b821d", "#005eaa", "#339ca8", "#cda819", "#32a487")

	return map[string]Theme{
		ThemeLight:   light,
		ThemeDark:    dark,
		ThemeGrafana: grafana,
		ThemeAnt:     ant,
		ThemeVintage: vintage,
		ThemeShine:   shine,
	}
}
