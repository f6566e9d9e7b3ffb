//go:build gosseract

package oracle

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"sync"

	"github.com/disintegration/imaging"
	"github.com/otiai10/gosseract/v2"
)

// Gosseract reads text and word boxes through libtesseract. Clients are
// pooled so the backend can serve concurrent pipeline runs. Orientation
// detection goes through the CLI backend when the executable is available.
type Gosseract struct {
	pool     sync.Pool
	language string
	psm      int
	osd      *Tesseract

	mu      sync.Mutex
	clients []*gosseract.Client
}

// NewGosseract validates the language and page mode on a probe client and
// returns a pooled backend.
func NewGosseract(opts Options) (*Gosseract, error) {
	lang := ResolveLanguage(opts.Language)
	if lang == "" {
		lang = "eng"
	}
	psm := opts.PSM
	if psm <= 0 || psm > 13 {
		psm = DefaultLayoutPSM
	}

	probe := gosseract.NewClient()
	if err := probe.SetLanguage(lang); err != nil {
		_ = probe.Close()
		return nil, fmt.Errorf("gosseract: set language %q: %w", lang, err)
	}
	if err := probe.SetPageSegMode(gosseract.PageSegMode(psm)); err != nil {
		_ = probe.Close()
		return nil, fmt.Errorf("gosseract: set page mode %d: %w", psm, err)
	}
	_ = probe.Close()

	g := &Gosseract{language: lang, psm: psm}
	g.pool.New = func() any {
		c := gosseract.NewClient()
		_ = c.SetLanguage(lang)
		_ = c.SetPageSegMode(gosseract.PageSegMode(psm))
		g.mu.Lock()
		g.clients = append(g.clients, c)
		g.mu.Unlock()
		return c
	}
	if osd, err := NewTesseract(opts); err == nil {
		g.osd = osd
	}
	return g, nil
}

// DetectOrientation delegates to the CLI backend.
func (g *Gosseract) DetectOrientation(ctx context.Context, img *image.Gray) OrientationResult {
	if g.osd == nil {
		return OrientationUnavailable(fmt.Errorf("gosseract orientation: %w", ErrBinaryNotFound))
	}
	return g.osd.DetectOrientation(ctx, img)
}

// RecognizeText returns the recognised plain text.
func (g *Gosseract) RecognizeText(ctx context.Context, img *image.Gray) (string, error) {
	var text string
	err := g.withClient(ctx, img, func(c *gosseract.Client) error {
		var err error
		text, err = c.Text()
		return err
	})
	return text, err
}

// DetectWordBoxes returns word-level boxes at or above minConfidence.
func (g *Gosseract) DetectWordBoxes(ctx context.Context, img *image.Gray, minConfidence float64) BoxQueryResult {
	var regions []TextRegion
	err := g.withClient(ctx, img, func(c *gosseract.Client) error {
		boxes, err := c.GetBoundingBoxes(gosseract.RIL_WORD)
		if err != nil {
			return err
		}
		for _, b := range boxes {
			if b.Confidence < minConfidence {
				continue
			}
			regions = append(regions, TextRegion{
				Left:       b.Box.Min.X,
				Top:        b.Box.Min.Y,
				Right:      b.Box.Max.X,
				Bottom:     b.Box.Max.Y,
				Confidence: b.Confidence,
				Text:       b.Word,
			})
		}
		return nil
	})
	if err != nil {
		return BoxesUnavailable(err)
	}
	return Boxes(regions)
}

func (g *Gosseract) withClient(ctx context.Context, img *image.Gray, fn func(*gosseract.Client) error) error {
	if img == nil {
		return errors.New("gosseract: nil image")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return fmt.Errorf("gosseract: encode image: %w", err)
	}

	c, _ := g.pool.Get().(*gosseract.Client)
	defer g.pool.Put(c)
	if err := c.SetImageFromBytes(buf.Bytes()); err != nil {
		return fmt.Errorf("gosseract: set image: %w", err)
	}
	if err := fn(c); err != nil {
		return fmt.Errorf("gosseract: %w", err)
	}
	return nil
}

// Close releases every client the pool has created. The backend must not be
// used afterwards.
func (g *Gosseract) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	var errs []error
	for _, c := range g.clients {
		errs = append(errs, c.Close())
	}
	g.clients = nil
	return errors.Join(errs...)
}
