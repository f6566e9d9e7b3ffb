package transform

import (
	"context"
	"image"
	"strings"

	"github.com/MeKo-Tech/scanprep/internal/oracle"
	"github.com/MeKo-Tech/scanprep/internal/utils"
)

// CropReport describes what Crop did.
type CropReport struct {
	Available bool // whether the oracle answered the box query
	Boxes     int  // boxes returned by the oracle
	Kept      int  // boxes that passed the confidence and text filters
	Rect      image.Rectangle
	Applied   bool
	Err       error
}

// Crop trims img to the union of the oracle's confident word boxes, grown
// by the margin and clamped to the image. When the oracle is unavailable or
// no box survives, the input is returned unchanged.
func Crop(ctx context.Context, img *image.Gray, o oracle.Oracle, p CropParams) (*image.Gray, CropReport) {
	src := utils.CloneGray(img)
	var rep CropReport
	if o == nil {
		return src, rep
	}

	res := o.DetectWordBoxes(ctx, src, p.MinConfidence)
	rep.Available = res.Available()
	rep.Err = res.Err()
	if !res.Available() {
		return src, rep
	}
	rep.Boxes = len(res.Regions())

	rect, kept := CropRect(res.Regions(), p, src.Bounds().Dx(), src.Bounds().Dy())
	rep.Kept = kept
	if kept == 0 || rect.Empty() {
		return src, rep
	}
	rep.Rect = rect
	if rect == src.Bounds() {
		return src, rep
	}
	cropped := utils.CropGray(src, rect)
	if cropped == nil {
		return src, rep
	}
	rep.Applied = true
	return cropped, rep
}

// CropRect computes the margin-expanded union of the boxes that beat the
// confidence cutoff and carry non-blank text, clamped to [0,w)×[0,h). It
// also returns how many boxes contributed.
func CropRect(regions []oracle.TextRegion, p CropParams, w, h int) (image.Rectangle, int) {
	var union image.Rectangle
	kept := 0
	for _, r := range regions {
		if r.Confidence <= p.MinConfidence || strings.TrimSpace(r.Text) == "" {
			continue
		}
		if kept == 0 {
			union = image.Rectangle{Min: image.Pt(r.Left, r.Top), Max: image.Pt(r.Right, r.Bottom)}
		} else {
			union.Min.X = min(union.Min.X, r.Left)
			union.Min.Y = min(union.Min.Y, r.Top)
			union.Max.X = max(union.Max.X, r.Right)
			union.Max.Y = max(union.Max.Y, r.Bottom)
		}
		kept++
	}
	if kept == 0 {
		return image.Rectangle{}, 0
	}
	union.Min = union.Min.Sub(image.Pt(p.Margin, p.Margin))
	union.Max = union.Max.Add(image.Pt(p.Margin, p.Margin))
	return utils.ClampRect(union, w, h), kept
}
