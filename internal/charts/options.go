package charts

import (
	"encoding/json"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/golang/freetype/truetype"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

var validate = validator.New()

// Align positions a block of text horizontally.
type Align string

const (
	AlignLeft   Align = "left"
	AlignCenter Align = "center"
	AlignRight  Align = "right"
)

// Margin is the space kept free around a chart, in pixels.
type Margin struct {
	Left   int `json:"left" validate:"min=0"`
	Top    int `json:"top" validate:"min=0"`
	Right  int `json:"right" validate:"min=0"`
	Bottom int `json:"bottom" validate:"min=0"`
}

// BaseOptions are the fields shared by every chart type.
type BaseOptions struct {
	Width           int     `json:"width" validate:"min=0,max=8192"`
	Height          int     `json:"height" validate:"min=0,max=8192"`
	Margin          *Margin `json:"margin"`
	Theme           string  `json:"theme"`
	FontFamily      string  `json:"font_family"`
	BackgroundColor *Color  `json:"background_color"`

	TitleText        string  `json:"title_text"`
	TitleFontSize    float64 `json:"title_font_size" validate:"min=0"`
	TitleFontColor   *Color  `json:"title_font_color"`
	TitleAlign       Align   `json:"title_align" validate:"omitempty,oneof=left center right"`
	SubTitleText     string  `json:"sub_title_text"`
	SubTitleFontSize float64 `json:"sub_title_font_size" validate:"min=0"`
	SubTitleColor    *Color  `json:"sub_title_font_color"`

	LegendShow     *bool   `json:"legend_show"`
	LegendAlign    Align   `json:"legend_align" validate:"omitempty,oneof=left center right"`
	LegendFontSize float64 `json:"legend_font_size" validate:"min=0"`

	XAxisData      []string `json:"x_axis_data"`
	XAxisFontSize  float64  `json:"x_axis_font_size" validate:"min=0"`
	XAxisHeight    int      `json:"x_axis_height" validate:"min=0"`
	XBoundaryGap   *bool    `json:"x_boundary_gap"`
	YAxisMin       *float64 `json:"y_axis_min"`
	YAxisMax       *float64 `json:"y_axis_max"`
	YAxisFormatter string   `json:"y_axis_formatter"`
	YAxisSplit     int      `json:"y_axis_split_number" validate:"min=0,max=50"`

	SeriesColors []Color `json:"series_colors"`
}

// Series is one data series of a cartesian or pie chart.
type Series struct {
	Name       string    `json:"name"`
	Data       []float64 `json:"data" validate:"required,min=1"`
	LabelShow  bool      `json:"label_show"`
	Category   string    `json:"category" validate:"omitempty,oneof=bar line"`
	Color      *Color    `json:"color"`
	StartIndex int       `json:"start_index" validate:"min=0"`
}

const (
	defaultWidth         = 600
	defaultHeight        = 400
	defaultTitleFontSize = 18
	defaultFontSize      = 14
	defaultAxisFontSize  = 12
	defaultXAxisHeight   = 30
	defaultYAxisSplit    = 6
)

// frame is the resolved drawing environment of one chart.
type frame struct {
	width, height int
	margin        Margin
	theme         Theme
	font          *truetype.Font
	background    drawing.Color
	opts          *BaseOptions
}

func (o *BaseOptions) resolve(reg *Registry, defaultMargin Margin) *frame {
	f := &frame{
		width:  o.Width,
		height: o.Height,
		margin: defaultMargin,
		theme:  reg.Theme(o.Theme),
		font:   reg.Font(o.FontFamily),
		opts:   o,
	}
	if f.width == 0 {
		f.width = defaultWidth
	}
	if f.height == 0 {
		f.height = defaultHeight
	}
	if o.Margin != nil {
		f.margin = *o.Margin
	}
	f.background = pick(o.BackgroundColor, &f.theme.BackgroundColor)
	if len(o.SeriesColors) > 0 {
		f.theme.SeriesColors = o.SeriesColors
	}
	return f
}

func (o *BaseOptions) legendVisible() bool {
	return o.LegendShow == nil || *o.LegendShow
}

func (o *BaseOptions) boundaryGap(def bool) bool {
	if o.XBoundaryGap == nil {
		return def
	}
	return *o.XBoundaryGap
}

func orDefault(v, def float64) float64 {
	if v <= 0 {
		return def
	}
	return v
}

func orDefaultInt(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

// seriesColor resolves the color of series i.
func (f *frame) seriesColor(s *Series, i int) drawing.Color {
	if s != nil && s.Color != nil && !s.Color.IsZero() {
		return s.Color.Drawing()
	}
	return f.theme.SeriesColor(i).Drawing()
}

// decode reads data into v and validates it.
func decode(chart string, data []byte, v any) error {
	if err := json.Unmarshal(data, v); err != nil {
		return &BuildError{Chart: chart, Err: err}
	}
	if err := validate.Struct(v); err != nil {
		return &BuildError{Chart: chart, Err: err}
	}
	return nil
}

func isLineSeries(s *Series) bool {
	return strings.EqualFold(s.Category, "line")
}
