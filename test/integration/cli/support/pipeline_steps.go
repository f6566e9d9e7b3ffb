package support

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/cucumber/godog"

	"github.com/MeKo-Tech/scanprep/internal/oracle"
	"github.com/MeKo-Tech/scanprep/internal/pipeline"
	"github.com/MeKo-Tech/scanprep/internal/testutil"
	"github.com/MeKo-Tech/scanprep/internal/utils"
)

// pipelineState holds the outcome of a library-level run, for scenarios
// that need a scripted oracle the CLI cannot be given.
type pipelineState struct {
	oracle *testutil.ScriptedOracle
	result *pipeline.Result
	err    error
}

func (testCtx *TestContext) anOracleThatOnlyReadsTheUprightCandidate() error {
	testCtx.pipeline.oracle = testutil.UprightOracle(oracle.TextRegion{
		Left: 40, Top: 40, Right: 760, Bottom: 1000, Confidence: 92, Text: "INVOICE",
	})
	return nil
}

func (testCtx *TestContext) thePageIsPreprocessed(name, steps string, width int) error {
	img, _, err := utils.LoadImage(testCtx.Path(name))
	if err != nil {
		return err
	}
	b := pipeline.NewBuilder().WithTargetWidth(width)
	if testCtx.pipeline.oracle != nil {
		b = b.WithOracle(testCtx.pipeline.oracle)
	}
	exec, err := b.Build()
	if err != nil {
		return err
	}
	testCtx.pipeline.result, testCtx.pipeline.err = exec.Process(context.Background(), img, strings.Split(steps, ","))
	return nil
}

func (testCtx *TestContext) lastResult() (*pipeline.Result, error) {
	if testCtx.pipeline.err != nil {
		return nil, fmt.Errorf("pipeline failed: %w", testCtx.pipeline.err)
	}
	if testCtx.pipeline.result == nil {
		return nil, errors.New("no page was preprocessed")
	}
	return testCtx.pipeline.result, nil
}

func (testCtx *TestContext) theResultShouldBePixelsWide(width int) error {
	res, err := testCtx.lastResult()
	if err != nil {
		return err
	}
	if res.Width != width || res.Image.Bounds().Dx() != width {
		return fmt.Errorf("result is %d pixels wide, want %d", res.Width, width)
	}
	return nil
}

func (testCtx *TestContext) theChosenOrientationShouldBe(angle int) error {
	res, err := testCtx.lastResult()
	if err != nil {
		return err
	}
	if res.Orientation == nil {
		return errors.New("no orientation decision recorded")
	}
	if res.Orientation.Angle != angle {
		return fmt.Errorf("orientation %d, want %d", res.Orientation.Angle, angle)
	}
	return nil
}

func (testCtx *TestContext) theAppliedStepsShouldBe(steps string) error {
	res, err := testCtx.lastResult()
	if err != nil {
		return err
	}
	if got := res.AppliedNames(); !slices.Equal(got, strings.Split(steps, ",")) {
		return fmt.Errorf("applied steps %v, want %s", got, steps)
	}
	return nil
}

func (testCtx *TestContext) theStepShouldBeSkipped(name string) error {
	res, err := testCtx.lastResult()
	if err != nil {
		return err
	}
	for _, s := range res.Skipped {
		if s.Name == name {
			return nil
		}
	}
	return fmt.Errorf("step %q was not skipped (skipped: %v)", name, res.Skipped)
}

// RegisterPipelineSteps registers steps that drive the executor directly.
func (testCtx *TestContext) RegisterPipelineSteps(sc *godog.ScenarioContext) {
	sc.Step(`^an oracle that only reads the upright candidate$`, testCtx.anOracleThatOnlyReadsTheUprightCandidate)
	sc.Step(`^the page "([^"]*)" is preprocessed with steps "([^"]*)" at width (\d+)$`, testCtx.thePageIsPreprocessed)
	sc.Step(`^the result should be (\d+) pixels wide$`, testCtx.theResultShouldBePixelsWide)
	sc.Step(`^the chosen orientation should be (\d+)$`, testCtx.theChosenOrientationShouldBe)
	sc.Step(`^the applied steps should be "([^"]*)"$`, testCtx.theAppliedStepsShouldBe)
	sc.Step(`^the step "([^"]*)" should be skipped$`, testCtx.theStepShouldBeSkipped)
}
