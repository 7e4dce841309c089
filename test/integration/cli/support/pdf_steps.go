package support

import (
	"fmt"
	"os"
	"strings"

	"github.com/cucumber/godog"
	"github.com/pdfcpu/pdfcpu/pkg/api"
)

// aPDFWithBarcodePages writes a PDF with one barcode image per page.
func (testCtx *TestContext) aPDFWithBarcodePages(name string, pages int) error {
	var imgs []string
	for i := range pages {
		img := testCtx.Path(fmt.Sprintf("%s.page%d.png", strings.TrimSuffix(name, ".pdf"), i+1))
		if err := testCtx.aBarcodeImage(img); err != nil {
			return err
		}
		imgs = append(imgs, img)
	}
	if err := api.ImportImagesFile(imgs, testCtx.Path(name), nil, nil); err != nil {
		return fmt.Errorf("build %s: %w", name, err)
	}
	for _, img := range imgs {
		_ = os.Remove(img)
	}
	return nil
}

func (testCtx *TestContext) aBrokenPDF(name string) error {
	return os.WriteFile(testCtx.Path(name), []byte("%PDF-1.7\nbroken"), 0o600)
}

// RegisterPDFSteps registers PDF fixture steps.
func (testCtx *TestContext) RegisterPDFSteps(sc *godog.ScenarioContext) {
	sc.Step(`^a PDF "([^"]*)" with (\d+) barcode pages?$`, testCtx.aPDFWithBarcodePages)
	sc.Step(`^a broken PDF "([^"]*)"$`, testCtx.aBrokenPDF)
}
