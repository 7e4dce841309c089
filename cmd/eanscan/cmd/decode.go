package cmd

import (
	"errors"
	"fmt"
	"image"
	"image/png"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/MeKo-Tech/eanscan/internal/barcode"
	"github.com/MeKo-Tech/eanscan/internal/config"
	"github.com/MeKo-Tech/eanscan/internal/pdf"
	"github.com/MeKo-Tech/eanscan/internal/pipeline"
	"github.com/MeKo-Tech/eanscan/internal/utils"
)

const (
	outputFormatJSON = "json"
	outputFormatCSV  = "csv"
	outputFormatText = "text"
)

// inputImage is one picture to decode, named for output.
type inputImage struct {
	name string
	img  image.Image
}

func newDecodeCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "decode <image|pdf>...",
		Short: "Decode the EAN-13 barcode in images or PDF pages",
		Long: `Decode one barcode per image. Without --ray the barcode region is located
automatically and random rays are tried until one decodes; with --ray exactly
that scanline is read.

Supported formats: JPEG, PNG, BMP, GIF and PDF (embedded page images)

Examples:
  eanscan decode photo.jpg
  eanscan decode scan.png --ray 20,100,440,100
  eanscan decode catalog.pdf --pages 1-3 --format csv
  eanscan decode photo.jpg --overlay annotated.png --lookup known.txt
  eanscan decode photo.jpg --debug-dir debug/`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDecode(cmd, a, args)
		},
	}

	f := cmd.Flags()
	f.String("ray", "", "manual ray x1,y1,x2,y2 instead of autonomous search")
	f.Int("attempts", 0, "maximum number of random rays")
	f.String("format", outputFormatText, "output format (text, json, csv)")
	f.StringP("output", "o", "", "write results to file instead of stdout")
	f.String("overlay", "", "write a PNG overlay showing region and ray")
	f.String("lookup", "", "known-code list (.txt) or database (.db)")
	f.String("region", "", "region corners (oriented, bbox)")
	f.String("strategy", "", "ray strategy (diameter, scanline)")
	f.String("polarity", "", "bar polarity (dark-bars, light-bars)")
	f.Int("max-dimension", 0, "downscale images for segmentation to this size (0 = off)")
	f.String("pages", "", "PDF page range, e.g. 1-3,5")
	f.Bool("cross-check", false, "re-read each decoded image with the linked reference decoder")
	f.String("debug-dir", "", "write segmentation maps and attempt traces to this directory")
	bindFlag(f, "attempts", "decode.max_attempts")
	bindFlag(f, "format", "output.format")
	bindFlag(f, "output", "output.file")
	bindFlag(f, "lookup", "lookup.path")
	bindFlag(f, "region", "segment.region_mode")
	bindFlag(f, "strategy", "decode.strategy")
	bindFlag(f, "polarity", "extract.polarity")
	bindFlag(f, "max-dimension", "segment.max_dimension")
	return cmd
}

func runDecode(cmd *cobra.Command, a *app, args []string) error {
	cfg := a.cfg
	rayFlag, _ := cmd.Flags().GetString("ray")
	overlayPath, _ := cmd.Flags().GetString("overlay")
	pages, _ := cmd.Flags().GetString("pages")
	crossCheck, _ := cmd.Flags().GetBool("cross-check")
	debugDir, _ := cmd.Flags().GetString("debug-dir")

	var manual *[2]utils.Point
	if rayFlag != "" {
		r, err := parseRay(rayFlag)
		if err != nil {
			return err
		}
		manual = &r
	}

	pl, closeLookup, err := buildPipeline(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = closeLookup() }()

	inputs, err := loadInputs(args, pages)
	if err != nil {
		return err
	}

	var (
		results []*pipeline.Result
		failed  int
	)
	for i, in := range inputs {
		if debugDir != "" {
			if err := writeDebugMaps(debugDir, in, pl); err != nil {
				return err
			}
		}

		var res *pipeline.Result
		if manual != nil {
			res, err = pl.DecodeRay(cmd.Context(), in.img, manual[0], manual[1])
		} else {
			res, err = pl.DecodeImage(cmd.Context(), in.img)
		}
		if debugDir != "" {
			if derr := writeDebugAttempts(debugDir, in, attemptsOf(res, err)); derr != nil {
				return derr
			}
		}
		if err != nil {
			failed++
			slog.Debug("Decode failed", "file", in.name, "error", err)
			_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "%s: %v\n", in.name, err)
			continue
		}
		res.Source = in.name
		results = append(results, res)

		if crossCheck {
			if err := runCrossCheck(cmd, in, res); err != nil {
				return err
			}
		}

		if overlayPath != "" {
			if err := writeOverlay(overlayName(overlayPath, i, len(inputs)), in.img, res, cfg); err != nil {
				return err
			}
		}
	}

	if len(results) > 0 {
		out, err := formatDecodeResults(results, cfg.Output.Format)
		if err != nil {
			return err
		}
		if err := writeOutput(cmd.OutOrStdout(), cfg.Output.File, out); err != nil {
			return err
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d image(s) had no valid EAN-13 code", failed, len(inputs))
	}
	return nil
}

// runCrossCheck compares res with the reference backend, restricted to the
// segmented region when there is one. Disagreement is reported, not fatal.
func runCrossCheck(cmd *cobra.Command, in inputImage, res *pipeline.Result) error {
	opts := barcode.Options{TryHarder: true}
	if res.Region != nil {
		opts.ROI = res.Region.Box.ToRect(in.img.Bounds())
	}
	ref, err := barcode.NewBackend().Decode(cmd.Context(), in.img, opts)
	switch {
	case errors.Is(err, barcode.ErrNoBackend):
		return err
	case err != nil:
		slog.Warn("Cross-check could not read image", "file", in.name, "error", err)
		_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "%s: cross-check found no code\n", in.name)
	case !barcode.Agrees(res.Code, ref):
		slog.Warn("Cross-check disagrees", "file", in.name, "code", res.Code, "reference", ref.Code)
		_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "%s: cross-check read %s\n", in.name, ref.Code)
	default:
		slog.Info("Cross-check agrees", "file", in.name, "code", res.Code)
	}
	return nil
}

// loadInputs loads image files and the embedded images of PDFs.
func loadInputs(paths []string, pages string) ([]inputImage, error) {
	var out []inputImage
	for _, path := range paths {
		if utils.IsPDF(path) {
			imgs, err := pdf.ExtractImages(path, pages)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", path, err)
			}
			if len(imgs) == 0 {
				return nil, fmt.Errorf("%s: no images in PDF", path)
			}
			for _, pi := range imgs {
				out = append(out, inputImage{name: path + "#" + strconv.Itoa(pi.Page), img: pi.Image})
			}
			continue
		}
		img, _, err := utils.LoadImage(path)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		out = append(out, inputImage{name: path, img: img})
	}
	return out, nil
}

func formatDecodeResults(results []*pipeline.Result, format string) (string, error) {
	switch strings.ToLower(format) {
	case outputFormatJSON:
		if len(results) == 1 {
			return pipeline.ToJSON(results[0])
		}
		return pipeline.ToJSONResults(results)
	case outputFormatCSV:
		return pipeline.ToCSV(results)
	case outputFormatText, "":
		var sb strings.Builder
		for _, r := range results {
			text, err := pipeline.ToText(r)
			if err != nil {
				return "", err
			}
			if len(results) > 1 {
				sb.WriteString(r.Source + ": ")
			}
			sb.WriteString(text)
			sb.WriteString("\n")
		}
		return sb.String(), nil
	default:
		return "", fmt.Errorf("unsupported format: %s", format)
	}
}

func writeOutput(w io.Writer, file, out string) error {
	if !strings.HasSuffix(out, "\n") {
		out += "\n"
	}
	if file == "" {
		_, err := io.WriteString(w, out)
		return err
	}
	if err := os.WriteFile(file, []byte(out), 0o600); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}
	return nil
}

// overlayName numbers overlay files when several images are decoded.
func overlayName(path string, index, total int) string {
	if total <= 1 {
		return path
	}
	ext := filepath.Ext(path)
	return fmt.Sprintf("%s_%d%s", strings.TrimSuffix(path, ext), index+1, ext)
}

func writeOverlay(path string, img image.Image, res *pipeline.Result, cfg *config.Config) error {
	opts, err := overlayOptions(cfg)
	if err != nil {
		return err
	}
	ov := pipeline.RenderOverlay(img, res, opts)
	if ov == nil {
		return errors.New("overlay rendering failed")
	}
	f, err := os.Create(path) //nolint:gosec // path comes from the --overlay flag
	if err != nil {
		return fmt.Errorf("create overlay: %w", err)
	}
	if err := png.Encode(f, ov); err != nil {
		_ = f.Close()
		return fmt.Errorf("encode overlay: %w", err)
	}
	return f.Close()
}
