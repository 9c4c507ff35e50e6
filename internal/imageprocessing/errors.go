package imageprocessing

import "fmt"

// Stage names of the quantized PNG pipeline, in execution order.
const (
	StageLoadImage  = "load_image"
	StageSetQuality = "png_set_quality"
	StageNewImage   = "png_new_image"
	StageQuantize   = "png_quantize"
	StageSetLevel   = "png_set_level"
	StageRemap      = "png_remapped"
	StageEncoder    = "png_encoder"
	StageEncode     = "png_encode"
)

// StageError tags a failure with the pipeline stage it happened in.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

func stageError(stage string, err error) error {
	if err == nil {
		return nil
	}
	return &StageError{Stage: stage, Err: err}
}
