package rendering

import (
	"context"
	"time"

	"github.com/rmitchellscott/chartserver/internal/charts"
	"github.com/rmitchellscott/chartserver/internal/imageprocessing"
	"github.com/rmitchellscott/chartserver/internal/logging"
)

// RenderRecord describes one finished render for the audit log.
type RenderRecord struct {
	RequestID string
	Kind      ChartKind
	Type      string
	Format    Format
	Quality   int
	Width     int
	Height    int
	Bytes     int
	Duration  time.Duration
	Err       *Error
}

// Recorder persists render records. RecordRender runs on the request path,
// so implementations queue rather than block, and must be safe for
// concurrent use.
type Recorder interface {
	RecordRender(ctx context.Context, rec RenderRecord)
}

// PipelineOptions configure a Pipeline. Pool and Recorder are optional.
type PipelineOptions struct {
	Pool      *WorkerPool
	Recorder  Recorder
	Converter ConverterOptions
	Quantize  imageprocessing.QuantizeOptions
}

// Pipeline turns request bodies into encoded charts.
type Pipeline struct {
	dispatcher *Dispatcher
	converter  *Converter
	pool       *WorkerPool
	recorder   Recorder
	quantize   imageprocessing.QuantizeOptions
}

func NewPipeline(reg *charts.Registry, opts PipelineOptions) *Pipeline {
	if opts.Quantize == (imageprocessing.QuantizeOptions{}) {
		opts.Quantize = imageprocessing.DefaultQuantizeOptions()
	}
	return &Pipeline{
		dispatcher: NewDispatcher(reg),
		converter:  NewConverter(opts.Converter),
		pool:       opts.Pool,
		recorder:   opts.Recorder,
		quantize:   opts.Quantize,
	}
}

// Dispatcher returns the pipeline's dispatcher.
func (p *Pipeline) Dispatcher() *Dispatcher {
	return p.dispatcher
}

// Converter returns the pipeline's raster converter.
func (p *Pipeline) Converter() *Converter {
	return p.converter
}

// RenderRequest parses body, builds the chart it describes and encodes it in
// format. Parsing and chart construction run on the calling goroutine; the
// drawing and encoding run on the worker pool when one is configured.
func (p *Pipeline) RenderRequest(ctx context.Context, body []byte, format Format) (*Response, error) {
	start := time.Now()
	req, err := ParseRequest(body)
	if err != nil {
		p.record(ctx, RenderRecord{Format: format}, start, nil, err)
		return nil, err
	}
	rec := RenderRecord{Kind: req.Kind, Type: req.Type, Format: format, Quality: req.Quality}

	c, err := p.dispatcher.Build(req.Kind, req.Raw)
	if err != nil {
		p.record(ctx, rec, start, nil, err)
		return nil, err
	}

	run := func() (*Response, error) {
		return p.render(req, c, format)
	}
	var resp *Response
	if p.pool != nil {
		resp, err = p.pool.Submit(ctx, req.Kind.String()+"/"+string(format), run)
	} else {
		resp, err = run()
	}
	p.record(ctx, rec, start, resp, err)
	if err != nil {
		return nil, err
	}
	return resp, nil
}

func (p *Pipeline) render(req *ChartRequest, c charts.Chart, format Format) (*Response, error) {
	d := p.dispatcher.Wrap(req.Kind, c)
	if format == FormatSVG {
		var err error
		if d, err = p.dispatcher.Draw(req.Kind, c); err != nil {
			return nil, err
		}
	}
	body, err := p.converter.Convert(d, format)
	if err != nil {
		return nil, err
	}
	if format.Quantized() {
		body, err = imageprocessing.EncodeQuantized(body, req.Quality, p.quantize)
		if err != nil {
			return nil, quantizeError(err)
		}
	}
	return newResponse(body, format, d, req.Kind), nil
}

func (p *Pipeline) record(ctx context.Context, rec RenderRecord, start time.Time, resp *Response, err error) {
	rec.Duration = time.Since(start)
	rec.RequestID = RequestIDFrom(ctx)
	if resp != nil {
		rec.Width, rec.Height, rec.Bytes = resp.Width, resp.Height, len(resp.Body)
	}
	if err != nil {
		rec.Err = AsError(err)
		logging.DebugWithComponent(logging.ComponentRenderer, "Render failed",
			"request_id", rec.RequestID,
			"kind", rec.Kind.String(),
			"format", string(rec.Format),
			"category", rec.Err.Category,
			"error", rec.Err.Message)
	} else {
		logging.DebugWithComponent(logging.ComponentRenderer, "Rendered chart",
			"request_id", rec.RequestID,
			"kind", rec.Kind.String(),
			"format", string(rec.Format),
			"quality", rec.Quality,
			"bytes", rec.Bytes,
			"duration", rec.Duration)
	}
	if p.recorder != nil {
		p.recorder.RecordRender(context.WithoutCancel(ctx), rec)
	}
}

type requestIDKey struct{}

// WithRequestID returns a context carrying id for render records.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestIDFrom returns the id stored by WithRequestID, or "".
func RequestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}
