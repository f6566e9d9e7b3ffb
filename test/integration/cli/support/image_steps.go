package support

import (
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"

	"github.com/cucumber/godog"

	"github.com/MeKo-Tech/scanprep/internal/testutil"
	"github.com/MeKo-Tech/scanprep/internal/utils"
)

// aScannedPage writes a synthetic text page at name.
func (testCtx *TestContext) aScannedPage(name string, w, h int) error {
	return testCtx.writePage(name, testutil.TextPage(w, h))
}

func (testCtx *TestContext) aSkewedScannedPage(name string, w, h int, degrees float64) error {
	cfg := testutil.DefaultPageConfig()
	cfg.Size = testutil.ImageSize{Width: w, Height: h}
	cfg.Rules = true
	cfg.Skew = degrees
	return testCtx.writePage(name, testutil.GeneratePage(cfg))
}

func (testCtx *TestContext) writePage(name string, img image.Image) error {
	path := testCtx.Path(name)
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return err
	}
	if err := utils.SaveImage(img, path); err != nil {
		return fmt.Errorf("failed to write page %s: %w", name, err)
	}
	testCtx.Files[name] = path
	return nil
}

func (testCtx *TestContext) aFileWithContent(name, content string) error {
	path := testCtx.Path(name)
	testCtx.Files[name] = path
	return os.WriteFile(path, []byte(content), 0o600)
}

func (testCtx *TestContext) theImageShouldBePixelsWide(name string, width int) error {
	img, _, err := utils.LoadImage(testCtx.Path(name))
	if err != nil {
		return err
	}
	if got := img.Bounds().Dx(); got != width {
		return fmt.Errorf("%s is %d pixels wide, want %d", name, got, width)
	}
	return nil
}

func (testCtx *TestContext) theImageShouldBeGrayscale(name string) error {
	return testCtx.eachPixel(name, func(r, g, b uint32) error {
		if r != g || g != b {
			return fmt.Errorf("%s has a colored pixel", name)
		}
		return nil
	})
}

func (testCtx *TestContext) theImageShouldOnlyContainBlackAndWhite(name string) error {
	return testCtx.eachPixel(name, func(r, _, _ uint32) error {
		if r != 0 && r != 0xffff {
			return errors.New("found a pixel that is neither black nor white")
		}
		return nil
	})
}

func (testCtx *TestContext) eachPixel(name string, check func(r, g, b uint32) error) error {
	img, _, err := utils.LoadImage(testCtx.Path(name))
	if err != nil {
		return err
	}
	bounds := img.Bounds()
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b, _ := img.At(x, y).RGBA()
			if err := check(r, g, b); err != nil {
				return err
			}
		}
	}
	return nil
}

// RegisterImageSteps registers the page fixtures and image assertions.
func (testCtx *TestContext) RegisterImageSteps(sc *godog.ScenarioContext) {
	sc.Step(`^a scanned page "([^"]*)" of (\d+)x(\d+) pixels$`, testCtx.aScannedPage)
	sc.Step(`^a scanned page "([^"]*)" of (\d+)x(\d+) pixels skewed by (-?\d+(?:\.\d+)?) degrees$`, testCtx.aSkewedScannedPage)
	sc.Step(`^a file "([^"]*)" containing "([^"]*)"$`, testCtx.aFileWithContent)
	sc.Step(`^the image "([^"]*)" should be (\d+) pixels wide$`, testCtx.theImageShouldBePixelsWide)
	sc.Step(`^the image "([^"]*)" should be grayscale$`, testCtx.theImageShouldBeGrayscale)
	sc.Step(`^the image "([^"]*)" should only contain black and white$`, testCtx.theImageShouldOnlyContainBlackAndWhite)
}
