package rendering

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/rmitchellscott/chartserver/internal/charts"
	"github.com/rmitchellscott/chartserver/internal/imageprocessing"
)

// ErrorKind classifies a failed render.
type ErrorKind int

const (
	ErrMalformedSpec ErrorKind = iota
	ErrChartBuild
	ErrConversion
	ErrDecode
	ErrQuantization
	ErrEncode
	ErrTimeout
	ErrUnavailable
)

func (k ErrorKind) String() string {
	switch k {
	case ErrMalformedSpec:
		return "malformed_spec"
	case ErrChartBuild:
		return "chart_build"
	case ErrConversion:
		return "conversion"
	case ErrDecode:
		return "decode"
	case ErrQuantization:
		return "quantization"
	case ErrEncode:
		return "encode"
	case ErrTimeout:
		return "timeout"
	case ErrUnavailable:
		return "unavailable"
	default:
		return "unknown"
	}
}

// Error is the public error of the rendering pipeline. Status is the HTTP
// status the failure maps to, 400 unless stated otherwise.
type Error struct {
	Kind     ErrorKind
	Category string
	Message  string
	Status   int
	Err      error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(kind ErrorKind, category string, err error) *Error {
	e := &Error{Kind: kind, Category: category, Status: http.StatusBadRequest, Err: err}
	if err != nil {
		e.Message = err.Error()
	}
	return e
}

// ErrRequestTimeout is returned when the caller stops waiting for a job.
var ErrRequestTimeout = &Error{
	Kind:     ErrTimeout,
	Category: "timeout",
	Message:  "Request took too long",
	Status:   http.StatusRequestTimeout,
}

// ErrPoolStopped is returned for jobs submitted after the pool shut down.
var ErrPoolStopped = &Error{
	Kind:     ErrUnavailable,
	Category: "workers",
	Message:  "render workers are shutting down",
	Status:   http.StatusServiceUnavailable,
}

// chartBuildError wraps a renderer failure; the category names the renderer.
func chartBuildError(kind ChartKind, err error) *Error {
	category := kind.String()
	var be *charts.BuildError
	if errors.As(err, &be) && be.Chart != "" {
		category = be.Chart
	}
	return newError(ErrChartBuild, category, err)
}

// quantizeError maps a stage failure of the PNG quantizer. The stage name
// becomes the category.
func quantizeError(err error) *Error {
	var se *imageprocessing.StageError
	if !errors.As(err, &se) {
		return newError(ErrQuantization, "image", err)
	}
	kind := ErrQuantization
	switch se.Stage {
	case imageprocessing.StageLoadImage:
		kind = ErrDecode
	case imageprocessing.StageEncode:
		kind = ErrEncode
	}
	return newError(kind, se.Stage, err)
}

// AsError returns err as an *Error, wrapping unknown errors with status 500.
func AsError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return &Error{
		Kind:     ErrUnavailable,
		Category: "internal",
		Message:  err.Error(),
		Status:   http.StatusInternalServerError,
		Err:      err,
	}
}

type panicError struct {
	value any
}

func (e panicError) Error() string {
	return fmt.Sprintf("render panicked: %v", e.value)
}
