package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"image"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/MeKo-Tech/eanscan/internal/testutil"
)

// fixture records what a generated image should decode to.
type fixture struct {
	Name        string     `json:"name"`
	Description string     `json:"description"`
	InputFile   string     `json:"input_file"`
	Code        string     `json:"code,omitempty"`
	Ray         [4]float64 `json:"ray,omitempty"`
	Rotation    float64    `json:"rotation,omitempty"`
}

type variant struct {
	name     string
	desc     string
	code     string
	module   int
	caption  bool
	rotation float64
}

var variants = []variant{
	{"plain", "Sample code at 4 px per module", "4006381333931", 4, false, 0},
	{"caption", "Sample code with human readable digits", "4006381333931", 4, true, 0},
	{"narrow", "Minimal 2 px modules", "5901234123457", 2, false, 0},
	{"wide", "Wide 6 px modules", "9780201379624", 6, false, 0},
	{"leading_zero", "UPC-A shaped code with leading zero", "0012345678905", 4, false, 0},
	{"rotated_15", "Sample code rotated 15 degrees", "4006381333931", 4, false, 15},
	{"rotated_90", "Sample code rotated 90 degrees", "4006381333931", 4, false, 90},
	{"rotated_-30", "Sample code rotated -30 degrees", "4006381333931", 4, false, -30},
}

func main() {
	// Set up structured logging
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	var (
		generateImages   = flag.Bool("images", true, "Generate synthetic barcode images")
		generateFixtures = flag.Bool("fixtures", true, "Generate expected-result fixtures")
		outDir           = flag.String("out", "testdata", "Output directory relative to the project root")
		code             = flag.String("code", "", "Render only this code to <out>/images/custom.png")
		module           = flag.Int("module", 4, "Pixels per module for -code")
		rotate           = flag.Float64("rotate", 0, "Rotation in degrees for -code")
		caption          = flag.Bool("caption", false, "Draw digits under the bars for -code")
		verbose          = flag.Bool("v", false, "Verbose output")
		help             = flag.Bool("h", false, "Show help")
	)

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [OPTIONS]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Generate EAN-13 test images for eanscan.\n\n")
		fmt.Fprintf(os.Stderr, "OPTIONS:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nEXAMPLES:\n")
		fmt.Fprintf(os.Stderr, "  %s                          # Generate all test data\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -fixtures=false          # Generate only images\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -code 5901234123457 -rotate 20\n", os.Args[0])
	}

	flag.Parse()

	if *help {
		flag.Usage()
		return
	}

	root, err := testutil.GetProjectRoot()
	if err != nil {
		slog.Error("Failed to find project root", "error", err)
		os.Exit(1)
	}
	if err := os.Chdir(root); err != nil {
		slog.Error("Failed to change to project root", "error", err)
		os.Exit(1)
	}
	if *verbose {
		slog.Info("Options", "root", root, "out", *outDir, "images", *generateImages, "fixtures", *generateFixtures)
	}

	if *code != "" {
		v := variant{name: "custom", code: *code, module: *module, caption: *caption, rotation: *rotate}
		if _, err := renderVariant(*outDir, v); err != nil {
			slog.Error("Failed to render code", "code", *code, "error", err)
			os.Exit(1)
		}
		slog.Info("Generated barcode", "code", *code, "path", filepath.Join(*outDir, "images", "custom.png"))
		return
	}

	var fixtures []fixture
	if *generateImages {
		slog.Info("Generating synthetic barcode images...")
		fixtures, err = generateTestImages(*outDir)
		if err != nil {
			slog.Error("Failed to generate test images", "error", err)
			os.Exit(1)
		}
		slog.Info("Generated synthetic barcode images", "count", len(fixtures))
	}

	if *generateFixtures {
		if fixtures == nil {
			fixtures = describeVariants()
		}
		slog.Info("Generating test fixtures...")
		if err := generateTestFixtures(*outDir, fixtures); err != nil {
			slog.Error("Failed to generate test fixtures", "error", err)
			os.Exit(1)
		}
		slog.Info("Generated test fixtures", "count", len(fixtures))
	}

	slog.Info("Test data generation completed successfully!")
}

// generateTestImages renders every variant plus the negative samples.
func generateTestImages(outDir string) ([]fixture, error) {
	var out []fixture
	for _, v := range variants {
		fx, err := renderVariant(outDir, v)
		if err != nil {
			return nil, fmt.Errorf("variant %s: %w", v.name, err)
		}
		out = append(out, fx)
	}

	negatives := map[string]image.Image{
		"blank.png": testutil.Uniform(460, 200, 255),
		"stripes.png": testutil.GenerateStripes(testutil.StripeConfig{
			Width: 460, Height: 200, Block: image.Rect(40, 40, 420, 160), Period: 8,
		}),
	}
	for name, img := range negatives {
		path := filepath.Join(outDir, "images", "negative", name)
		if err := testutil.WritePNG(path, img); err != nil {
			return nil, err
		}
		out = append(out, fixture{
			Name:        name[:len(name)-len(filepath.Ext(name))],
			Description: "Contains no decodable symbol",
			InputFile:   filepath.Join("images", "negative", name),
		})
	}
	return out, nil
}

func renderVariant(outDir string, v variant) (fixture, error) {
	cfg := testutil.DefaultBarcodeConfig()
	cfg.Code = v.code
	cfg.ModuleWidth = v.module
	cfg.Caption = v.caption
	cfg.Rotation = v.rotation

	img, layout, err := testutil.GenerateBarcode(cfg)
	if err != nil {
		return fixture{}, err
	}
	rel := filepath.Join("images", v.name+".png")
	if err := testutil.WritePNG(filepath.Join(outDir, rel), img); err != nil {
		return fixture{}, err
	}

	fx := fixture{Name: v.name, Description: v.desc, InputFile: rel, Code: v.code, Rotation: v.rotation}
	// The mid ray is only valid in unrotated coordinates.
	if v.rotation == 0 {
		x1, y1, x2, y2 := layout.MidRay()
		fx.Ray = [4]float64{x1, y1, x2, y2}
	}
	return fx, nil
}

// describeVariants lists fixtures without rendering, for -images=false.
func describeVariants() []fixture {
	out := make([]fixture, 0, len(variants))
	for _, v := range variants {
		out = append(out, fixture{
			Name:        v.name,
			Description: v.desc,
			InputFile:   filepath.Join("images", v.name+".png"),
			Code:        v.code,
			Rotation:    v.rotation,
		})
	}
	return out
}

func generateTestFixtures(outDir string, fixtures []fixture) error {
	dir := filepath.Join(outDir, "fixtures")
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("failed to create fixtures directory: %w", err)
	}
	for _, fx := range fixtures {
		data, err := json.MarshalIndent(fx, "", "  ")
		if err != nil {
			return err
		}
		if err := os.WriteFile(filepath.Join(dir, fx.Name+".json"), data, 0o600); err != nil {
			return fmt.Errorf("failed to save fixture %q: %w", fx.Name, err)
		}
	}
	return nil
}
