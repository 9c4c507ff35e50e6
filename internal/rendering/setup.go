package rendering

import (
	"github.com/rmitchellscott/chartserver/internal/charts"
	"github.com/rmitchellscott/chartserver/internal/config"
	"github.com/rmitchellscott/chartserver/internal/imageprocessing"
	"github.com/rmitchellscott/chartserver/internal/logging"
)

// RegistryFromEnv loads fonts from the CHARTS_FONT_PATH directories and
// themes from CHARTS_THEME_<NAME> variables, then logs what is available.
func RegistryFromEnv() (*charts.Registry, error) {
	reg, err := charts.NewRegistry(charts.RegistryOptions{
		FontDirs: config.GetList("CHARTS_FONT_PATH"),
		Themes:   config.WithPrefix("CHARTS_THEME_"),
	})
	if err != nil {
		return nil, err
	}
	logging.InfoWithComponent(logging.ComponentFonts, "Font families loaded", "families", reg.Families())
	logging.InfoWithComponent(logging.ComponentThemes, "Themes loaded", "themes", reg.ThemeNames())
	return reg, nil
}

// OptionsFromEnv reads DITHER_MODE, QUANTIZE_SPEED, WEBP_QUALITY,
// AVIF_QUALITY and AVIF_SPEED.
func OptionsFromEnv() (PipelineOptions, error) {
	mode, err := imageprocessing.ParseDitherMode(config.Get("DITHER_MODE", ""))
	if err != nil {
		return PipelineOptions{}, err
	}
	quantize := imageprocessing.DefaultQuantizeOptions()
	quantize.Dither = mode
	if speed := config.GetInt("QUANTIZE_SPEED", quantize.Speed); speed >= 1 && speed <= 10 {
		quantize.Speed = speed
	}

	def := DefaultConverterOptions()
	return PipelineOptions{
		Quantize: quantize,
		Converter: ConverterOptions{
			WebPQuality: config.GetInt("WEBP_QUALITY", def.WebPQuality),
			AVIFQuality: config.GetInt("AVIF_QUALITY", def.AVIFQuality),
			AVIFSpeed:   config.GetInt("AVIF_SPEED", def.AVIFSpeed),
		},
	}, nil
}
