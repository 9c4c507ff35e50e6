package charts

import (
	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

// TableChart draws rows of text. The first row of Data is the header. The
// height is derived from the row count unless set explicitly.
type TableChart struct {
	BaseOptions
	Data                  [][]string `json:"data" validate:"required,min=1"`
	Spans                 []float64  `json:"spans" validate:"dive,gte=0"`
	TextAligns            []Align    `json:"text_aligns" validate:"dive,oneof=left center right"`
	HeaderRowHeight       int        `json:"header_row_height" validate:"min=0"`
	BodyRowHeight         int        `json:"body_row_height" validate:"min=0"`
	HeaderFontSize        float64    `json:"header_font_size" validate:"min=0"`
	BodyFontSize          float64    `json:"body_font_size" validate:"min=0"`
	HeaderBackgroundColor *Color     `json:"header_background_color"`
	HeaderFontColor       *Color     `json:"header_font_color"`
	BodyFontColor         *Color     `json:"body_font_color"`
	BodyBackgroundColors  []Color    `json:"body_background_colors"`
	BorderColor           *Color     `json:"border_color"`
	CellPadding           int        `json:"cell_padding" validate:"min=0"`

	fr *frame
}

const (
	defaultTableRowHeight = 30
	defaultCellPadding    = 8
)

// NewTableChartFromJSON parses a table option document.
func NewTableChartFromJSON(reg *Registry, data []byte) (*TableChart, error) {
	c := &TableChart{}
	if err := decode("table_chart", data, c); err != nil {
		return nil, err
	}
	c.fr = c.resolve(reg, Margin{Left: 5, Top: 5, Right: 5, Bottom: 5})
	if c.Height == 0 {
		c.fr.height = c.measureHeight()
	}
	return c, nil
}

// measureHeight returns the document height needed for the title and all rows.
func (c *TableChart) measureHeight() int {
	f := c.fr
	h := f.margin.Top + f.margin.Bottom
	if c.TitleText != "" || c.SubTitleText != "" {
		// Title height depends on font metrics; measure with a scratch painter.
		p := newPainter(nil, f.font, chart.Box{Right: f.width, Bottom: f.height})
		if c.TitleText != "" {
			_, th := p.measure(c.TitleText, orDefault(c.TitleFontSize, defaultTitleFontSize))
			h += th + 4
		}
		if c.SubTitleText != "" {
			_, sh := p.measure(c.SubTitleText, orDefault(c.SubTitleFontSize, defaultAxisFontSize))
			h += sh + 4
		}
		h += 6
	}
	h += orDefaultInt(c.HeaderRowHeight, defaultTableRowHeight)
	h += (len(c.Data) - 1) * orDefaultInt(c.BodyRowHeight, defaultTableRowHeight)
	return h
}

// SVG renders the table.
func (c *TableChart) SVG() (string, error) { return render(c) }

func (c *TableChart) frame() *frame { return c.fr }

// columnWidths splits width by Spans, equally when Spans is short or empty.
func (c *TableChart) columnWidths(width, columns int) []int {
	spans := make([]float64, columns)
	total := 0.0
	for i := range spans {
		spans[i] = 1
		if i < len(c.Spans) && c.Spans[i] > 0 {
			spans[i] = c.Spans[i]
		}
		total += spans[i]
	}
	widths := make([]int, columns)
	used := 0
	for i := range widths {
		widths[i] = int(float64(width) * spans[i] / total)
		used += widths[i]
	}
	if columns > 0 {
		widths[columns-1] += width - used
	}
	return widths
}

func (c *TableChart) draw(p *painter) error {
	f := c.fr
	body := f.header(p, nil, nil)

	columns := 0
	for _, row := range c.Data {
		columns = max(columns, len(row))
	}
	if columns == 0 {
		return buildErrorf("table_chart", "table has no columns")
	}
	widths := c.columnWidths(body.width(), columns)
	padding := orDefaultInt(c.CellPadding, defaultCellPadding)

	headerBg := pick(c.HeaderBackgroundColor, &f.theme.TableHeaderColor)
	headerFont := pick(c.HeaderFontColor, &f.theme.TitleColor)
	bodyFont := pick(c.BodyFontColor, &f.theme.TextColor)
	border := pick(c.BorderColor, &f.theme.TableBorderColor)
	stripes := c.BodyBackgroundColors
	if len(stripes) == 0 {
		stripes = f.theme.TableBodyColors
	}

	y := 0
	for r, row := range c.Data {
		height := orDefaultInt(c.BodyRowHeight, defaultTableRowHeight)
		size := orDefault(c.BodyFontSize, defaultFontSize)
		bg, fg := drawing.Color{}, bodyFont
		if r == 0 {
			height = orDefaultInt(c.HeaderRowHeight, defaultTableRowHeight)
			size = orDefault(c.HeaderFontSize, defaultFontSize)
			bg, fg = headerBg, headerFont
		} else if len(stripes) > 0 {
			bg = stripes[(r-1)%len(stripes)].Drawing()
		}
		body.rect(0, y, body.width(), height, bg, drawing.Color{}, 0)

		x := 0
		for col := 0; col < columns; col++ {
			cell := ""
			if col < len(row) {
				cell = row[col]
			}
			align := AlignLeft
			if col < len(c.TextAligns) {
				align = c.TextAligns[col]
			}
			tx := x + padding
			switch align {
			case AlignCenter:
				tx = x + widths[col]/2
			case AlignRight:
				tx = x + widths[col] - padding
			}
			cell = body.fit(cell, size, widths[col]-2*padding)
			body.textMiddle(cell, tx, y+height/2, size, fg, align)
			x += widths[col]
		}
		y += height
		if !border.IsZero() {
			body.line(0, y, body.width(), y, border, 1, nil)
		}
	}
	return nil
}
