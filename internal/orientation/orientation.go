// Package orientation puts scanned pages upright by trying each quarter turn
// and asking the recognition oracle which one reads best.
package orientation

import (
	"context"
	"image"
	"log/slog"
	"math"

	"github.com/MeKo-Tech/scanprep/internal/diag"
	"github.com/MeKo-Tech/scanprep/internal/oracle"
	"github.com/MeKo-Tech/scanprep/internal/utils"
)

// DefaultPenaltyWeight is the score cost per degree of residual rotation
// reported by the oracle.
const DefaultPenaltyWeight = 50.0

// CandidateAngles lists the quarter turns in evaluation order. Earlier
// entries win ties.
var CandidateAngles = [...]int{0, 90, 180, 270}

// Config controls the candidate search.
type Config struct {
	PenaltyWeight float64
}

// DefaultConfig provides sensible defaults.
func DefaultConfig() Config {
	return Config{PenaltyWeight: DefaultPenaltyWeight}
}

// Candidate is one evaluated rotation.
type Candidate struct {
	Angle      int
	Score      float64
	AlnumCount int
	Estimate   oracle.OrientationResult
	TextErr    error
	Image      *image.Gray
}

// Summary drops the candidate image.
func (c Candidate) Summary() CandidateSummary {
	s := CandidateSummary{
		Angle:      c.Angle,
		Score:      c.Score,
		AlnumCount: c.AlnumCount,
		Available:  c.Estimate.Available(),
	}
	s.Residual, s.Confidence = c.Estimate.Residual()
	if !s.Available {
		s.Confidence = 0
	}
	if c.TextErr != nil {
		s.TextError = c.TextErr.Error()
	}
	return s
}

// CandidateSummary is the image-free record of a candidate kept in a Decision.
type CandidateSummary struct {
	Angle      int     `json:"angle"`
	Score      float64 `json:"score"`
	AlnumCount int     `json:"alnum"`
	Available  bool    `json:"oracle_available"`
	Residual   int     `json:"residual"`
	Confidence float64 `json:"confidence"` // zero when the oracle was unavailable
	TextError  string  `json:"text_error,omitempty"`
}

// Decision reports the chosen rotation and every candidate's score.
type Decision struct {
	Angle      int                `json:"angle"`
	Score      float64            `json:"score"`
	Candidates []CandidateSummary `json:"candidates"`
}

// Option customizes a Corrector.
type Option func(*Corrector)

// WithPenaltyWeight sets the per-degree residual penalty.
func WithPenaltyWeight(w float64) Option {
	return func(c *Corrector) { c.cfg.PenaltyWeight = w }
}

// WithConfig replaces the whole configuration.
func WithConfig(cfg Config) Option {
	return func(c *Corrector) { c.cfg = cfg }
}

// WithSink routes candidate and decision events to s.
func WithSink(s diag.Sink) Option {
	return func(c *Corrector) { c.sink = diag.OrNop(s) }
}

// Corrector evaluates rotation candidates against an oracle. It holds no
// per-call state and is safe for concurrent use when the oracle is.
type Corrector struct {
	oracle oracle.Oracle
	cfg    Config
	sink   diag.Sink
}

// NewCorrector returns a Corrector backed by o.
func NewCorrector(o oracle.Oracle, opts ...Option) *Corrector {
	c := &Corrector{oracle: o, cfg: DefaultConfig(), sink: diag.Nop{}}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Config returns the active configuration.
func (c *Corrector) Config() Config { return c.cfg }

// Correct rotates img by each candidate angle clockwise, scores the result
// and returns the best scoring image.
//
// A candidate scores its alphanumeric character count minus PenaltyWeight
// times the residual rotation the oracle still sees. An unavailable
// orientation answer counts as a residual of 360 and a failed text pass as
// zero characters. The first strict maximum wins, so when the oracle is
// unavailable for every candidate and text fails equally the unrotated page
// is returned.
func (c *Corrector) Correct(ctx context.Context, img *image.Gray) (*image.Gray, Decision) {
	var (
		best   Candidate
		chosen bool
		dec    = Decision{Candidates: make([]CandidateSummary, 0, len(CandidateAngles))}
	)
	for _, angle := range CandidateAngles {
		cand := c.Evaluate(ctx, img, angle)
		dec.Candidates = append(dec.Candidates, cand.Summary())
		if !chosen || cand.Score > best.Score {
			best = cand
			chosen = true
		}
	}
	dec.Angle = best.Angle
	dec.Score = best.Score
	c.sink.Emit(ctx, diag.Info(diag.EventOrientationChosen, "orientation chosen",
		slog.Int("angle", dec.Angle),
		slog.Float64("score", dec.Score),
	))
	return best.Image, dec
}

// Evaluate scores a single candidate. The returned Candidate owns its image.
func (c *Corrector) Evaluate(ctx context.Context, img *image.Gray, angle int) Candidate {
	cand := Candidate{Angle: angle, Image: utils.RotateBound(img, -float64(angle))}
	if c.oracle == nil {
		cand.Estimate = oracle.OrientationUnavailable(oracle.ErrNoOracle)
	} else {
		cand.Estimate = c.oracle.DetectOrientation(ctx, cand.Image)
	}
	if !cand.Estimate.Available() {
		c.sink.Emit(ctx, diag.Debug(diag.EventOracleUnavailable, "orientation estimate unavailable",
			slog.Int("candidate", angle),
			slog.Any("error", cand.Estimate.Err()),
		))
	}

	if c.oracle != nil {
		text, err := c.oracle.RecognizeText(ctx, cand.Image)
		if err != nil {
			cand.TextErr = err
			c.sink.Emit(ctx, diag.Warn(diag.EventTextFailed, "text recognition failed",
				slog.Int("candidate", angle),
				slog.Any("error", err),
			))
		} else {
			cand.AlnumCount = oracle.CountAlnum(text)
		}
	}

	residual, conf := cand.Estimate.Residual()
	cand.Score = float64(cand.AlnumCount) - c.cfg.PenaltyWeight*math.Abs(float64(residual))

	attrs := []slog.Attr{
		slog.Int("candidate", angle),
		slog.Int("residual", residual),
		slog.Int("alnum", cand.AlnumCount),
		slog.Float64("score", cand.Score),
	}
	if cand.Estimate.Available() {
		attrs = append(attrs, slog.Float64("confidence", conf))
	}
	c.sink.Emit(ctx, diag.Debug(diag.EventOrientationScore, "orientation candidate scored", attrs...))
	return cand
}
