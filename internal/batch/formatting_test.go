package batch

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/scanprep/internal/orientation"
	"github.com/MeKo-Tech/scanprep/internal/pipeline"
)

func sampleResult() *Result {
	angle := -1.25
	ok := &pipeline.Result{
		InputWidth: 1000, InputHeight: 1400, Width: 800, Height: 1120,
		Applied: []pipeline.StepRecord{
			{Step: pipeline.StepContrast, Index: 0},
			{Step: pipeline.StepDeskew, Index: 1},
			{Step: pipeline.StepOrientation, Index: 2},
		},
		DeskewAngle: &angle,
		Orientation: &orientation.Decision{Angle: 90},
		Crop:        &pipeline.Box{X: 10, Y: 20, W: 300, H: 400},
	}
	return &Result{
		Items: []Item{
			{Source: "in/a.png", Output: "out/a_processed.png", Result: ok},
			{Source: "in/doc.pdf", Page: 2, Error: "decode failed"},
		},
		Files:       []string{"in/a.png", "in/doc.pdf"},
		Duration:    2 * time.Second,
		WorkerCount: 2,
	}
}

func TestFormatResults_Text(t *testing.T) {
	out, err := sampleResult().FormatResults("text")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "in/a.png -> out/a_processed.png [1000x1400 -> 800x1120] rotated 90 deskew -1.25", lines[0])
	assert.Equal(t, "FAILED in/doc.pdf (page 2): decode failed", lines[1])

	empty, err := (&Result{}).FormatResults("")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestFormatResults_JSON(t *testing.T) {
	out, err := sampleResult().FormatResults("json")
	require.NoError(t, err)

	var doc struct {
		Items []map[string]any `json:"items"`
		Stats map[string]any   `json:"stats"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &doc))
	require.Len(t, doc.Items, 2)
	assert.Equal(t, "in/a.png", doc.Items[0]["source"])
	assert.NotContains(t, doc.Items[0], "page")
	assert.EqualValues(t, 2, doc.Items[1]["page"])
	assert.Equal(t, "decode failed", doc.Items[1]["error"])
	assert.EqualValues(t, 1, doc.Stats["processed_images"])
	assert.EqualValues(t, 1, doc.Stats["failed_images"])

	res := doc.Items[0]["result"].(map[string]any) //nolint:forcetypeassert
	assert.Equal(t, []any{"contrast", "deskew", "orientation"}, stepNames(res["applied"]))

	out, err = (&Result{}).FormatResults("json")
	require.NoError(t, err)
	assert.Contains(t, out, `"items": []`)
}

func stepNames(v any) []any {
	var out []any
	for _, rec := range v.([]any) { //nolint:forcetypeassert
		out = append(out, rec.(map[string]any)["step"]) //nolint:forcetypeassert
	}
	return out
}

func TestFormatResults_CSV(t *testing.T) {
	out, err := sampleResult().FormatResults("csv")
	require.NoError(t, err)

	rows, err := csv.NewReader(strings.NewReader(out)).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, csvHeader, rows[0])
	assert.Equal(t, []string{
		"in/a.png", "0", "out/a_processed.png", "1000", "1400", "800", "1120",
		"contrast;deskew;orientation", "90", "-1.25", "10,20,300,400", "",
	}, rows[1])
	assert.Equal(t, "2", rows[2][1])
	assert.Equal(t, "decode failed", rows[2][11])
}

func TestFormatResults_InvalidFormat(t *testing.T) {
	_, err := sampleResult().FormatResults("xml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported output format")
}

func TestSaveResults(t *testing.T) {
	r := sampleResult()

	var buf bytes.Buffer
	require.NoError(t, r.SaveResults(&buf, "text", "", false))
	assert.Contains(t, buf.String(), "FAILED in/doc.pdf")

	path := filepath.Join(t.TempDir(), "summary.csv")
	buf.Reset()
	require.NoError(t, r.SaveResults(&buf, "csv", path, false))
	assert.Equal(t, "Results written to "+path+"\n", buf.String())
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "source,page,output"))

	buf.Reset()
	require.NoError(t, r.SaveResults(&buf, "csv", path, true))
	assert.Empty(t, buf.String())

	require.Error(t, r.SaveResults(&buf, "xml", "", false))
	require.Error(t, r.SaveResults(&buf, "text", filepath.Join(t.TempDir(), "missing", "x.txt"), false))
}

func TestPrintStats(t *testing.T) {
	r := sampleResult()

	var buf bytes.Buffer
	r.PrintStats(&buf, true)
	assert.Empty(t, buf.String())

	r.PrintStats(&buf, false)
	out := buf.String()
	assert.Contains(t, out, "Input files: 2")
	assert.Contains(t, out, "Processed: 1")
	assert.Contains(t, out, "Failed: 1")
	assert.Contains(t, out, "Throughput: 0.5 pages/sec")

	assert.Len(t, r.Failed(), 1)
	assert.Len(t, r.Items, 2, "Failed must not modify the items")
}

func TestStepTimings(t *testing.T) {
	r := sampleResult()
	timings := r.StepTimings()
	require.NotEmpty(t, timings)
	for name, st := range timings {
		assert.Positive(t, st.Count, name)
		assert.InDelta(t, st.TotalMs/float64(st.Count), st.MeanMs, 1e-9, name)
	}

	var buf bytes.Buffer
	r.PrintStats(&buf, false)
	assert.Contains(t, buf.String(), "Step timings:")
}
