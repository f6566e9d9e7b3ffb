package oracle

import (
	"context"
	"image"
	"image/color"
	"image/draw"
	"time"

	"github.com/disintegration/imaging"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// probeLines is the text rendered on the probe page.
var probeLines = []string{
	"SCANPREP ORACLE CHECK",
	"The quick brown fox jumps",
	"over the lazy dog 0123456789",
}

// ProbePage renders a small upright page of dark text on white, scaled so
// the 7x13 glyphs are large enough for tesseract.
func ProbePage() *image.Gray {
	const (
		scale  = 4
		margin = 10
	)
	face := basicfont.Face7x13
	lineH := face.Metrics().Height.Ceil() + 6
	small := image.NewGray(image.Rect(0, 0, 240, 2*margin+len(probeLines)*lineH))
	draw.Draw(small, small.Bounds(), image.NewUniform(color.Gray{Y: 255}), image.Point{}, draw.Src)

	d := &font.Drawer{Dst: small, Src: image.NewUniform(color.Gray{Y: 0}), Face: face}
	for i, line := range probeLines {
		d.Dot = fixed.P(margin, margin+(i+1)*lineH-4)
		d.DrawString(line)
	}

	b := small.Bounds()
	big := imaging.Resize(small, b.Dx()*scale, b.Dy()*scale, imaging.NearestNeighbor)
	out := image.NewGray(big.Bounds())
	draw.Draw(out, out.Bounds(), big, image.Point{}, draw.Src)
	return out
}

// ProbeReport is the outcome of running every oracle operation once.
type ProbeReport struct {
	Orientation ProbeOrientation `json:"orientation" yaml:"orientation"`
	Text        ProbeText        `json:"text" yaml:"text"`
	Boxes       ProbeBoxes       `json:"boxes" yaml:"boxes"`
	Duration    time.Duration    `json:"duration_ns" yaml:"duration"`
}

// ProbeOrientation reports the orientation pass.
type ProbeOrientation struct {
	Available  bool    `json:"available" yaml:"available"`
	Rotate     int     `json:"rotate" yaml:"rotate"`
	Confidence float64 `json:"confidence" yaml:"confidence"`
	Error      string  `json:"error,omitempty" yaml:"error,omitempty"`
}

// ProbeText reports the full-text pass.
type ProbeText struct {
	Available bool      `json:"available" yaml:"available"`
	Stats     TextStats `json:"stats" yaml:"stats"`
	Error     string    `json:"error,omitempty" yaml:"error,omitempty"`
}

// ProbeBoxes reports the word-box pass.
type ProbeBoxes struct {
	Available bool   `json:"available" yaml:"available"`
	Count     int    `json:"count" yaml:"count"`
	Error     string `json:"error,omitempty" yaml:"error,omitempty"`
}

// Healthy reports whether orientation detection works. Text and boxes are
// optional capabilities.
func (r ProbeReport) Healthy() bool { return r.Orientation.Available }

// Probe runs each operation of o once against ProbePage.
func Probe(ctx context.Context, o Oracle, minConfidence float64) ProbeReport {
	start := time.Now()
	page := ProbePage()
	var rep ProbeReport

	or := o.DetectOrientation(ctx, page)
	if est, ok := or.Estimate(); ok {
		rep.Orientation = ProbeOrientation{Available: true, Rotate: est.Rotate, Confidence: est.Confidence}
	} else {
		rep.Orientation.Error = errString(or.Err())
	}

	if text, err := o.RecognizeText(ctx, page); err != nil {
		rep.Text.Error = err.Error()
	} else {
		rep.Text = ProbeText{Available: true, Stats: ComputeTextStats(text)}
	}

	boxes := o.DetectWordBoxes(ctx, page, minConfidence)
	if boxes.Available() {
		rep.Boxes = ProbeBoxes{Available: true, Count: len(boxes.Regions())}
	} else {
		rep.Boxes.Error = errString(boxes.Err())
	}

	rep.Duration = time.Since(start)
	return rep
}

func errString(err error) string {
	if err == nil {
		return "unavailable"
	}
	return err.Error()
}
