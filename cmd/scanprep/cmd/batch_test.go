package cmd

import (
	"encoding/json"
	"image"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/scanprep/internal/pdf"
	"github.com/MeKo-Tech/scanprep/internal/testutil"
)

func TestBatchCommand(t *testing.T) {
	dir := isolate(t)
	in := filepath.Join(dir, "in")
	writePage(t, in, "a.png", 200, 280)
	writePage(t, filepath.Join(in, "nested"), "b.png", 200, 280)
	require.NoError(t, pdf.WriteDocumentFile(filepath.Join(in, "doc.pdf"),
		[]image.Image{testutil.TextPage(200, 280), testutil.TextPage(200, 280)}))
	out := filepath.Join(dir, "out")

	stdout, stderr, err := execute(t, "batch", in, "--recursive", "--steps", "contrast,threshold",
		"--width", "100", "-d", out, "--format", "json", "--workers", "2")
	require.NoError(t, err)
	assert.Contains(t, stderr, "Processing Statistics:")

	var summary struct {
		Items []map[string]any `json:"items"`
		Stats map[string]any   `json:"stats"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &summary))
	assert.Len(t, summary.Items, 4)
	assert.EqualValues(t, 4, summary.Stats["processed_images"])

	for _, name := range []string{"a_processed.png", "b_processed.png", "doc_p1_processed.png", "doc_p2_processed.png"} {
		assert.FileExists(t, filepath.Join(out, name))
	}
}

func TestBatchCommandIncludeExclude(t *testing.T) {
	dir := isolate(t)
	writePage(t, dir, "keep.png", 80, 80)
	writePage(t, dir, "draft_skip.png", 80, 80)
	out := filepath.Join(dir, "out")

	_, _, err := execute(t, "batch", dir, "--steps", "threshold", "--width", "40", "-d", out,
		"--include", "*.png", "--exclude", "draft_*", "--quiet")
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(out, "keep_processed.png"))
	assert.NoFileExists(t, filepath.Join(out, "draft_skip_processed.png"))
}

func TestBatchCommandContinueOnError(t *testing.T) {
	dir := isolate(t)
	writePage(t, dir, "good.png", 80, 80)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.png"), []byte("garbage"), 0o600))
	out := filepath.Join(dir, "out")

	_, _, err := execute(t, "batch", dir, "--steps", "threshold", "--width", "40", "-d", out, "--quiet")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad.png")

	stdout, stderr, err := execute(t, "batch", dir, "--steps", "threshold", "--width", "40", "-d", out,
		"--continue-on-error", "--quiet")
	require.NoError(t, err)
	assert.Contains(t, stdout, "FAILED")
	assert.Contains(t, stderr, "page failed")
	assert.FileExists(t, filepath.Join(out, "good_processed.png"))
}

func TestBatchCommandNoInputs(t *testing.T) {
	dir := isolate(t)
	_, _, err := execute(t, "batch", dir, "--quiet")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no input files found")

	_, _, err = execute(t, "batch")
	require.Error(t, err)
}
