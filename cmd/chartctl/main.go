// Command chartctl renders chart specs offline through the same pipeline as
// the server.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/rmitchellscott/chartserver/internal/auth"
	"github.com/rmitchellscott/chartserver/internal/config"
	"github.com/rmitchellscott/chartserver/internal/imageprocessing"
	"github.com/rmitchellscott/chartserver/internal/logging"
	"github.com/rmitchellscott/chartserver/internal/rendering"
	"github.com/rmitchellscott/chartserver/internal/version"
)

var (
	outputPath    string
	renderFormat  string
	convertFormat string
	width         int
	height        int
	quality       int
	tokenTTL      time.Duration
)

func main() {
	_ = godotenv.Load()
	// Logs go to stderr so rendered output can be piped.
	logging.SetLogger(logging.New(os.Stderr, config.Get("LOG_LEVEL", "warn"), config.Get("LOG_FORMAT", "")))

	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "chartctl",
		Short:        "Render JSON chart specs to svg, png, webp or avif",
		Version:      version.String(),
		SilenceUsage: true,
	}

	renderCmd := &cobra.Command{
		Use:   "render [spec.json|-]",
		Short: "Render a chart spec file",
		Args:  cobra.ExactArgs(1),
		RunE:  runRender,
	}
	renderCmd.Flags().StringVarP(&outputPath, "output", "o", "", "Output file path (default: stdout)")
	renderCmd.Flags().StringVarP(&renderFormat, "format", "f", "svg", "Output format: svg, png, webp, avif, jpeg")

	convertCmd := &cobra.Command{
		Use:   "convert [input.svg|-]",
		Short: "Rasterize an SVG file",
		Args:  cobra.ExactArgs(1),
		RunE:  runConvert,
	}
	convertCmd.Flags().StringVarP(&outputPath, "output", "o", "", "Output file path (default: stdout)")
	convertCmd.Flags().StringVarP(&convertFormat, "format", "f", "png", "Output format: png, webp, avif, jpeg")
	convertCmd.Flags().IntVar(&width, "width", 0, "Output width in pixels (default: from the SVG)")
	convertCmd.Flags().IntVar(&height, "height", 0, "Output height in pixels (default: from the SVG)")
	convertCmd.Flags().IntVar(&quality, "quality", 0, "Palette quantization quality for png, 0 disables")

	familiesCmd := &cobra.Command{
		Use:   "families",
		Short: "List the available font families",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := rendering.RegistryFromEnv()
			if err != nil {
				return err
			}
			return printLines(cmd.OutOrStdout(), reg.Families())
		},
	}

	themesCmd := &cobra.Command{
		Use:   "themes",
		Short: "List the available themes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := rendering.RegistryFromEnv()
			if err != nil {
				return err
			}
			return printLines(cmd.OutOrStdout(), reg.ThemeNames())
		},
	}

	tokenCmd := &cobra.Command{
		Use:   "token [subject]",
		Short: "Issue a bearer token for the render endpoints (needs JWT_SECRET)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := auth.NewAuthenticator(config.Get("JWT_SECRET", ""), "")
			token, err := a.IssueToken(args[0], tokenTTL)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), token)
			return err
		},
	}
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 24*time.Hour, "Token lifetime")

	rootCmd.AddCommand(renderCmd, convertCmd, familiesCmd, themesCmd, tokenCmd)
	return rootCmd
}

func runRender(cmd *cobra.Command, args []string) error {
	body, err := readInput(cmd, args[0])
	if err != nil {
		return err
	}
	reg, err := rendering.RegistryFromEnv()
	if err != nil {
		return err
	}
	opts, err := rendering.OptionsFromEnv()
	if err != nil {
		return err
	}

	resp, err := rendering.NewPipeline(reg, opts).RenderRequest(context.Background(), body, rendering.ParseFormat(renderFormat))
	if err != nil {
		e := rendering.AsError(err)
		return fmt.Errorf("%s [%s]: %s", e.Kind, e.Category, e.Message)
	}
	return writeOutput(cmd, resp.Body)
}

func runConvert(cmd *cobra.Command, args []string) error {
	svg, err := readInput(cmd, args[0])
	if err != nil {
		return err
	}
	f := rendering.ParseFormat(convertFormat)
	if f == rendering.FormatSVG {
		return fmt.Errorf("invalid format: %s (must be png, webp, avif or jpeg)", convertFormat)
	}
	opts, err := rendering.OptionsFromEnv()
	if err != nil {
		return err
	}

	conv := rendering.NewConverter(opts.Converter)
	out, err := conv.Convert(rendering.NewVectorDrawing(string(svg), width, height), f)
	if err != nil {
		return err
	}
	if f.Quantized() && quality > 0 {
		out, err = imageprocessing.EncodeQuantized(out, min(quality, rendering.MaxQuality), opts.Quantize)
		if err != nil {
			return err
		}
	}
	return writeOutput(cmd, out)
}

func readInput(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("file not found: %s", path)
	}
	return data, err
}

func writeOutput(cmd *cobra.Command, data []byte) error {
	if outputPath == "" {
		_, err := cmd.OutOrStdout().Write(data)
		return err
	}
	if err := os.WriteFile(outputPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	logging.DebugWithComponent(logging.ComponentCLI, "Wrote output", "path", outputPath, "bytes", len(data))
	return nil
}

func printLines(w io.Writer, items []string) error {
	_, err := fmt.Fprintln(w, strings.Join(items, "\n"))
	return err
}
