package oracle

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/disintegration/imaging"
)

// Page segmentation modes used by the backends.
const (
	// DefaultLayoutPSM is fully automatic segmentation, used for the passes
	// that score and crop pages.
	DefaultLayoutPSM = 3
	// DefaultRecognizePSM treats the page as a uniform block of text and is
	// used when extracting text for the caller.
	DefaultRecognizePSM = 6
	osdPSM              = 0
)

// Tesseract drives the tesseract command-line program. Images are streamed
// through stdin as PNG and results are read from stdout.
type Tesseract struct {
	binary   string
	language string
	psm      int
	timeout  time.Duration
}

// NewTesseract resolves the executable and returns a CLI-backed oracle.
func NewTesseract(opts Options) (*Tesseract, error) {
	bin := opts.Binary
	if bin == "" {
		bin = "tesseract"
	}
	path, err := exec.LookPath(bin)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrBinaryNotFound, bin, err)
	}
	psm := opts.PSM
	if psm <= 0 || psm > 13 {
		psm = DefaultLayoutPSM
	}
	lang := ResolveLanguage(opts.Language)
	if lang == "" {
		lang = "eng"
	}
	return &Tesseract{binary: path, language: lang, psm: psm, timeout: opts.Timeout}, nil
}

// Binary returns the resolved executable path.
func (t *Tesseract) Binary() string { return t.binary }

// Language returns the tesseract language code in use.
func (t *Tesseract) Language() string { return t.language }

// DetectOrientation runs orientation and script detection (psm 0).
func (t *Tesseract) DetectOrientation(ctx context.Context, img *image.Gray) OrientationResult {
	out, err := t.run(ctx, img, "--psm", strconv.Itoa(osdPSM))
	if err != nil {
		return OrientationUnavailable(err)
	}
	est, err := ParseOSD(out)
	if err != nil {
		return OrientationUnavailable(err)
	}
	return Estimated(est.Rotate, est.Confidence)
}

// RecognizeText returns the recognised plain text.
func (t *Tesseract) RecognizeText(ctx context.Context, img *image.Gray) (string, error) {
	out, err := t.run(ctx, img, "-l", t.language, "--psm", strconv.Itoa(t.psm))
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// DetectWordBoxes runs the TSV renderer and keeps word-level rows.
func (t *Tesseract) DetectWordBoxes(ctx context.Context, img *image.Gray, minConfidence float64) BoxQueryResult {
	out, err := t.run(ctx, img, "-l", t.language, "--psm", strconv.Itoa(t.psm), "tsv")
	if err != nil {
		return BoxesUnavailable(err)
	}
	regions, err := ParseTSV(out)
	if err != nil {
		return BoxesUnavailable(err)
	}
	kept := regions[:0]
	for _, r := range regions {
		if r.Confidence >= minConfidence {
			kept = append(kept, r)
		}
	}
	return Boxes(kept)
}

func (t *Tesseract) run(ctx context.Context, img *image.Gray, args ...string) ([]byte, error) {
	if img == nil {
		return nil, errors.New("tesseract: nil image")
	}
	if t.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.timeout)
		defer cancel()
	}

	var in bytes.Buffer
	if err := imaging.Encode(&in, img, imaging.PNG); err != nil {
		return nil, fmt.Errorf("tesseract: encode image: %w", err)
	}

	argv := append([]string{"stdin", "stdout"}, args...)
	cmd := exec.CommandContext(ctx, t.binary, argv...) //nolint:gosec // G204: binary resolved from configuration
	cmd.Stdin = &in
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = time.Second

	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("tesseract %s: %w", strings.Join(args, " "), ctxErr)
		}
		msg := strings.TrimSpace(stderr.String())
		return nil, fmt.Errorf("tesseract %s: %w: %s", strings.Join(args, " "), err, msg)
	}
	return stdout.Bytes(), nil
}
