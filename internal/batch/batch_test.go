package batch

import (
	"bytes"
	"context"
	"image"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/scanprep/internal/pdf"
	"github.com/MeKo-Tech/scanprep/internal/pipeline"
	"github.com/MeKo-Tech/scanprep/internal/testutil"
	"github.com/MeKo-Tech/scanprep/internal/utils"
)

func newExecutor(t *testing.T, width int) *pipeline.Executor {
	t.Helper()
	exec, err := pipeline.NewBuilder().WithTargetWidth(width).Build()
	require.NoError(t, err)
	return exec
}

func testConfig(outDir string) *Config {
	cfg := DefaultConfig()
	cfg.Steps = []string{"contrast", "threshold"}
	cfg.Workers = 2
	cfg.OutputDir = outDir
	return cfg
}

// writeInputs creates two page images and a two-page PDF in dir.
func writeInputs(t *testing.T, dir string) {
	t.Helper()
	testutil.SaveImage(t, testutil.TextPage(300, 420), filepath.Join(dir, "a.png"))
	testutil.SaveImage(t, testutil.TextPage(300, 420), filepath.Join(dir, "b.png"))
	pages := []image.Image{testutil.TextPage(200, 280), testutil.TextPage(280, 200)}
	require.NoError(t, pdf.WriteDocumentFile(filepath.Join(dir, "scan.pdf"), pages))
}

func TestOutputName(t *testing.T) {
	assert.Equal(t, filepath.Join("out", "a_x.png"), OutputName("out", "in/a.jpg", 0, "_x"))
	assert.Equal(t, filepath.Join("out", "doc_p3_x.png"), OutputName("out", "in/doc.pdf", 3, "_x"))
	assert.Equal(t, filepath.Join("in", "a.png"), OutputName("", "in/a.tiff", 0, ""))
}

func TestProcessBatch_ImagesAndPDF(t *testing.T) {
	in := t.TempDir()
	out := filepath.Join(t.TempDir(), "out")
	writeInputs(t, in)

	var progress bytes.Buffer
	cfg := testConfig(out)
	cfg.ShowProgress = true
	cfg.ProgressOutput = &progress

	res, err := ProcessBatch(context.Background(), newExecutor(t, 100), []string{in}, cfg)
	require.NoError(t, err)
	assert.Len(t, res.Files, 3)
	require.Len(t, res.Items, 4)
	assert.Empty(t, res.Failed())

	want := map[string]image.Point{
		"a_processed.png":       image.Pt(100, 140),
		"b_processed.png":       image.Pt(100, 140),
		"scan_p1_processed.png": image.Pt(100, 140),
		"scan_p2_processed.png": image.Pt(100, 71),
	}
	for _, it := range res.Items {
		name := filepath.Base(it.Output)
		size, ok := want[name]
		require.True(t, ok, "unexpected output %s", it.Output)
		img, _, err := utils.LoadImage(it.Output)
		require.NoError(t, err)
		assert.Equal(t, size, img.Bounds().Size(), name)
		assert.Nil(t, it.Result.Image, "saved images are released")
		assert.Equal(t, []string{"contrast", "threshold"}, it.Result.AppliedNames())
	}

	assert.Equal(t, 1, res.Items[2].Page)
	assert.Equal(t, 2, res.Items[3].Page)
	assert.Contains(t, progress.String(), "3/3")

	stats := res.Stats()
	assert.Equal(t, 4, stats.ProcessedImages)
	assert.Equal(t, 2, stats.WorkerCount)
}

func TestProcessBatch_PDFPageRange(t *testing.T) {
	in := t.TempDir()
	writeInputs(t, in)

	cfg := testConfig(t.TempDir())
	cfg.Pages = "2"
	res, err := ProcessBatch(context.Background(), newExecutor(t, 50), []string{filepath.Join(in, "scan.pdf")}, cfg)
	require.NoError(t, err)
	require.Len(t, res.Items, 1)
	assert.Equal(t, 2, res.Items[0].Page)
	assert.Equal(t, "scan_p2_processed.png", filepath.Base(res.Items[0].Output))
}

func TestProcessBatch_FailureHandling(t *testing.T) {
	in := t.TempDir()
	testutil.SaveImage(t, testutil.TextPage(120, 160), filepath.Join(in, "good.png"))
	require.NoError(t, os.WriteFile(filepath.Join(in, "broken.png"), []byte("not an image"), 0o600))

	t.Run("stop on first error", func(t *testing.T) {
		res, err := ProcessBatch(context.Background(), newExecutor(t, 60), []string{in}, testConfig(t.TempDir()))
		require.Error(t, err)
		assert.Nil(t, res)
		assert.Contains(t, err.Error(), "broken.png")
	})

	t.Run("continue on error", func(t *testing.T) {
		cfg := testConfig(t.TempDir())
		cfg.ContinueOnError = true
		res, err := ProcessBatch(context.Background(), newExecutor(t, 60), []string{in}, cfg)
		require.NoError(t, err)
		require.Len(t, res.Items, 2)
		failed := res.Failed()
		require.Len(t, failed, 1)
		assert.Equal(t, filepath.Join(in, "broken.png"), failed[0].Source)
		assert.FileExists(t, filepath.Join(cfg.OutputDir, "good_processed.png"))
	})
}

func TestProcessBatch_RefusesToOverwriteInput(t *testing.T) {
	in := t.TempDir()
	src := filepath.Join(in, "page.png")
	testutil.SaveImage(t, testutil.TextPage(120, 160), src)
	before, err := os.ReadFile(src)
	require.NoError(t, err)

	cfg := testConfig("")
	cfg.Suffix = ""
	cfg.ContinueOnError = true
	res, err := ProcessBatch(context.Background(), newExecutor(t, 60), []string{src}, cfg)
	require.NoError(t, err)
	require.Len(t, res.Items, 1)
	assert.Contains(t, res.Items[0].Error, ErrOverwriteInput.Error())

	after, err := os.ReadFile(src)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestProcessBatch_Errors(t *testing.T) {
	exec := newExecutor(t, 60)

	_, err := ProcessBatch(context.Background(), nil, []string{"x"}, DefaultConfig())
	require.Error(t, err)

	_, err = ProcessBatch(context.Background(), exec, []string{t.TempDir()}, DefaultConfig())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no input files found")

	_, err = ProcessBatch(context.Background(), exec, []string{"/nonexistent/file.png"}, DefaultConfig())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot access")

	cfg := DefaultConfig()
	cfg.Workers = 0
	_, err = ProcessBatch(context.Background(), exec, []string{"x"}, cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "batch workers")
}

func TestProcessBatch_Cancelled(t *testing.T) {
	in := t.TempDir()
	writeInputs(t, in)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := ProcessBatch(ctx, newExecutor(t, 60), []string{in}, testConfig(t.TempDir()))
	require.ErrorIs(t, err, context.Canceled)
}

func TestConfigValidate(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, pipeline.DefaultSteps(), cfg.Steps)

	cfg.Steps = nil
	require.Error(t, cfg.Validate())
}
