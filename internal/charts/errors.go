package charts

import "fmt"

// BuildError reports a chart option document that could not be turned into
// a drawing. Chart names the renderer, for example "line_chart".
type BuildError struct {
	Chart string
	Err   error
}

func (e *BuildError) Error() string {
	return fmt.Sprintf("%s: %v", e.Chart, e.Err)
}

func (e *BuildError) Unwrap() error {
	return e.Err
}

func buildErrorf(chart, format string, args ...any) error {
	return &BuildError{Chart: chart, Err: fmt.Errorf(format, args...)}
}
