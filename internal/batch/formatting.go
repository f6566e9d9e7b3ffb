package batch

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/MeKo-Tech/scanprep/internal/pipeline"
)

// formatBatchResults formats the batch summary in the specified format.
func formatBatchResults(r *Result, format string) (string, error) {
	switch format {
	case "json":
		return formatJSON(r)
	case "csv":
		return formatCSV(r.Items)
	case "", "text":
		return formatText(r.Items), nil
	default:
		return "", fmt.Errorf("unsupported output format: %s", format)
	}
}

// formatJSON formats items and run statistics as JSON.
func formatJSON(r *Result) (string, error) {
	items := r.Items
	if items == nil {
		items = []Item{}
	}
	doc := struct {
		Items []Item                         `json:"items"`
		Stats pipeline.ParallelStats         `json:"stats"`
		Steps map[string]pipeline.StepTiming `json:"step_timings,omitempty"`
	}{Items: items, Stats: r.Stats(), Steps: r.StepTimings()}

	bts, err := json.MarshalIndent(doc, "", "  ")
	return string(bts), err
}

var csvHeader = []string{
	"source", "page", "output", "input_width", "input_height", "width", "height",
	"steps", "orientation", "deskew_angle", "crop", "error",
}

// formatCSV writes one row per item.
func formatCSV(items []Item) (string, error) {
	var output strings.Builder
	writer := csv.NewWriter(&output)
	if err := writer.Write(csvHeader); err != nil {
		return "", err
	}
	for _, it := range items {
		row := []string{it.Source, strconv.Itoa(it.Page), it.Output, "", "", "", "", "", "", "", "", it.Error}
		if res := it.Result; res != nil {
			row[3] = strconv.Itoa(res.InputWidth)
			row[4] = strconv.Itoa(res.InputHeight)
			row[5] = strconv.Itoa(res.Width)
			row[6] = strconv.Itoa(res.Height)
			row[7] = strings.Join(res.AppliedNames(), ";")
			if res.Orientation != nil {
				row[8] = strconv.Itoa(res.Orientation.Angle)
			}
			if res.DeskewAngle != nil {
				row[9] = strconv.FormatFloat(*res.DeskewAngle, 'f', 2, 64)
			}
			if c := res.Crop; c != nil {
				row[10] = fmt.Sprintf("%d,%d,%d,%d", c.X, c.Y, c.W, c.H)
			}
		}
		if err := writer.Write(row); err != nil {
			return "", err
		}
	}
	writer.Flush()
	return output.String(), writer.Error()
}

// formatText writes one line per item.
func formatText(items []Item) string {
	var output strings.Builder
	for _, it := range items {
		name := it.Source
		if it.Page > 0 {
			name = fmt.Sprintf("%s (page %d)", it.Source, it.Page)
		}
		if it.Failed() {
			fmt.Fprintf(&output, "FAILED %s: %s\n", name, it.Error)
			continue
		}
		fmt.Fprintf(&output, "%s -> %s", name, it.Output)
		if res := it.Result; res != nil {
			fmt.Fprintf(&output, " [%dx%d -> %dx%d]", res.InputWidth, res.InputHeight, res.Width, res.Height)
			if res.Orientation != nil {
				fmt.Fprintf(&output, " rotated %d", res.Orientation.Angle)
			}
			if res.DeskewAngle != nil {
				fmt.Fprintf(&output, " deskew %.2f", *res.DeskewAngle)
			}
		}
		output.WriteString("\n")
	}
	return output.String()
}
