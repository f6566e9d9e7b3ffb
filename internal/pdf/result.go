package pdf

import (
	"image"

	"github.com/MeKo-Tech/scanprep/internal/pipeline"
)

// PageResult is the preprocessing outcome for a single PDF page.
type PageResult struct {
	PageNumber int              `json:"page_number"`
	Width      int              `json:"width"`
	Height     int              `json:"height"`
	Result     *pipeline.Result `json:"result,omitempty"`
	Error      string           `json:"error,omitempty"`
}

// DocumentResult is the preprocessing outcome for a PDF document.
type DocumentResult struct {
	Filename   string         `json:"filename"`
	TotalPages int            `json:"total_pages"`
	Pages      []PageResult   `json:"pages"`
	Missing    []int          `json:"pages_without_image,omitempty"`
	Processing ProcessingInfo `json:"processing"`
}

// ProcessingInfo contains timing information.
type ProcessingInfo struct {
	ExtractionTimeMs int64 `json:"extraction_time_ms"`
	PipelineTimeMs   int64 `json:"pipeline_time_ms"`
	TotalTimeMs      int64 `json:"total_time_ms"`
}

// Images returns the processed page images in page order, skipping failures.
func (d *DocumentResult) Images() []image.Image {
	out := make([]image.Image, 0, len(d.Pages))
	for _, p := range d.Pages {
		if p.Result != nil && p.Result.Image != nil {
			out = append(out, p.Result.Image)
		}
	}
	return out
}

// Failed counts pages whose pipeline run returned an error.
func (d *DocumentResult) Failed() int {
	n := 0
	for _, p := range d.Pages {
		if p.Error != "" {
			n++
		}
	}
	return n
}
