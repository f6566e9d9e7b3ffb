package support

import (
	"fmt"
	"image"

	"github.com/cucumber/godog"

	"github.com/MeKo-Tech/scanprep/internal/pdf"
	"github.com/MeKo-Tech/scanprep/internal/testutil"
)

// aScannedPDF writes a PDF with one text page image per page.
func (testCtx *TestContext) aScannedPDF(name string, pages int) error {
	images := make([]image.Image, pages)
	for i := range images {
		images[i] = testutil.TextPage(400, 560)
	}
	path := testCtx.Path(name)
	if err := pdf.WriteDocumentFile(path, images); err != nil {
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	testCtx.Files[name] = path
	return nil
}

func (testCtx *TestContext) thePDFShouldHavePages(name string, want int) error {
	got, err := pdf.PageCount(testCtx.Path(name), "")
	if err != nil {
		return err
	}
	if got != want {
		return fmt.Errorf("%s has %d pages, want %d", name, got, want)
	}
	return nil
}

// RegisterPDFSteps registers PDF fixtures and assertions.
func (testCtx *TestContext) RegisterPDFSteps(sc *godog.ScenarioContext) {
	sc.Step(`^a scanned PDF "([^"]*)" with (\d+) pages?$`, testCtx.aScannedPDF)
	sc.Step(`^the PDF "([^"]*)" should have (\d+) pages?$`, testCtx.thePDFShouldHavePages)
}
