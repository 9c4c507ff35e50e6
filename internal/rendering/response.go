package rendering

// Response is an encoded chart ready to be written to a client.
type Response struct {
	Body        []byte
	ContentType string
	Format      Format
	Kind        ChartKind
	Width       int
	Height      int
}

// ContentType returns the media type f is served with.
func (f Format) ContentType() string {
	switch f {
	case FormatPNG:
		return "image/png"
	case FormatWebP:
		return "image/webp"
	case FormatAVIF:
		return "image/avif"
	case FormatJPEG:
		return "image/jpeg"
	default:
		return "image/svg+xml"
	}
}

func newResponse(body []byte, f Format, d VectorDrawing, kind ChartKind) *Response {
	return &Response{
		Body:        body,
		ContentType: f.ContentType(),
		Format:      f,
		Kind:        kind,
		Width:       d.Width,
		Height:      d.Height,
	}
}
