package support

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/cucumber/godog"

	"github.com/MeKo-Tech/eanscan/internal/testutil"
)

func (testCtx *TestContext) aBarcodeImageForCode(name, code string) error {
	cfg := testutil.DefaultBarcodeConfig()
	cfg.Code = code
	img, _, err := testutil.GenerateBarcode(cfg)
	if err != nil {
		return fmt.Errorf("render %s: %w", code, err)
	}
	return testutil.WritePNG(testCtx.Path(name), img)
}

func (testCtx *TestContext) aBarcodeImage(name string) error {
	return testCtx.aBarcodeImageForCode(name, testutil.DefaultBarcodeConfig().Code)
}

func (testCtx *TestContext) aBlankImage(name string) error {
	return testutil.WritePNG(testCtx.Path(name), testutil.Uniform(460, 200, 255))
}

func (testCtx *TestContext) aCorruptImage(name string) error {
	return os.WriteFile(testCtx.Path(name), []byte("\x89PNG not really"), 0o600)
}

func (testCtx *TestContext) aDirectoryWithBarcodeAndBlankImages(dir string, barcodes, blanks int) error {
	if err := os.MkdirAll(testCtx.Path(dir), 0o755); err != nil {
		return err
	}
	for i := range barcodes {
		if err := testCtx.aBarcodeImage(filepath.Join(dir, fmt.Sprintf("code%d.png", i))); err != nil {
			return err
		}
	}
	for i := range blanks {
		if err := testCtx.aBlankImage(filepath.Join(dir, fmt.Sprintf("blank%d.png", i))); err != nil {
			return err
		}
	}
	return nil
}

// RegisterImageSteps registers fixture generation steps.
func (testCtx *TestContext) RegisterImageSteps(sc *godog.ScenarioContext) {
	sc.Step(`^a barcode image "([^"]*)"$`, testCtx.aBarcodeImage)
	sc.Step(`^a barcode image "([^"]*)" for code "([^"]*)"$`, testCtx.aBarcodeImageForCode)
	sc.Step(`^a blank image "([^"]*)"$`, testCtx.aBlankImage)
	sc.Step(`^a corrupt image "([^"]*)"$`, testCtx.aCorruptImage)
	sc.Step(`^a directory "([^"]*)" with (\d+) barcode images? and (\d+) blank images?$`,
		testCtx.aDirectoryWithBarcodeAndBlankImages)
}
