package testutil

import (
	"context"
	"errors"
	"image"
	"strings"
	"sync"

	"github.com/MeKo-Tech/scanprep/internal/oracle"
)

// ScriptedOracle replays canned answers in call order. When a queue runs
// out, the Default* answers are used. It records every call.
type ScriptedOracle struct {
	Orientations []oracle.OrientationResult
	Texts        []string
	TextErrs     []error
	BoxResults   []oracle.BoxQueryResult

	DefaultOrientation oracle.OrientationResult
	DefaultText        string
	DefaultBoxes       oracle.BoxQueryResult

	mu               sync.Mutex
	orientationCalls []image.Rectangle
	textCalls        []image.Rectangle
	boxCalls         []float64
}

// NewScriptedOracle returns an oracle whose defaults are "unavailable" for
// orientation and boxes and empty text.
func NewScriptedOracle() *ScriptedOracle {
	return &ScriptedOracle{
		DefaultOrientation: oracle.OrientationUnavailable(errScriptExhausted),
		DefaultBoxes:       oracle.BoxesUnavailable(errScriptExhausted),
	}
}

var errScriptExhausted = errors.New("scripted oracle has no answer")

// DetectOrientation implements oracle.Oracle.
func (s *ScriptedOracle) DetectOrientation(_ context.Context, img *image.Gray) oracle.OrientationResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.orientationCalls)
	s.orientationCalls = append(s.orientationCalls, img.Bounds())
	if n < len(s.Orientations) {
		return s.Orientations[n]
	}
	return s.DefaultOrientation
}

// RecognizeText implements oracle.Oracle.
func (s *ScriptedOracle) RecognizeText(_ context.Context, img *image.Gray) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.textCalls)
	s.textCalls = append(s.textCalls, img.Bounds())
	if n < len(s.TextErrs) && s.TextErrs[n] != nil {
		return "", s.TextErrs[n]
	}
	if n < len(s.Texts) {
		return s.Texts[n], nil
	}
	return s.DefaultText, nil
}

// DetectWordBoxes implements oracle.Oracle.
func (s *ScriptedOracle) DetectWordBoxes(_ context.Context, _ *image.Gray, minConfidence float64) oracle.BoxQueryResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.boxCalls)
	s.boxCalls = append(s.boxCalls, minConfidence)
	if n < len(s.BoxResults) {
		return s.BoxResults[n]
	}
	return s.DefaultBoxes
}

// OrientationCalls returns the bounds of every image passed to DetectOrientation.
func (s *ScriptedOracle) OrientationCalls() []image.Rectangle {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]image.Rectangle(nil), s.orientationCalls...)
}

// TextCalls returns the bounds of every image passed to RecognizeText.
func (s *ScriptedOracle) TextCalls() []image.Rectangle {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]image.Rectangle(nil), s.textCalls...)
}

// BoxCalls returns the confidence cutoff of every DetectWordBoxes call.
func (s *ScriptedOracle) BoxCalls() []float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]float64(nil), s.boxCalls...)
}

// AlnumText returns a string with exactly n alphanumeric characters.
func AlnumText(n int) string {
	return strings.Repeat("a", n)
}

// UprightOracle scripts the four orientation candidates so that only the
// unrotated one is reported upright, while every rotated candidate reads
// more characters. It answers crop queries with boxes.
func UprightOracle(boxes ...oracle.TextRegion) *ScriptedOracle {
	s := NewScriptedOracle()
	s.Orientations = []oracle.OrientationResult{
		oracle.Estimated(0, 15),
		oracle.Estimated(270, 3),
		oracle.Estimated(180, 3),
		oracle.Estimated(90, 3),
	}
	s.Texts = []string{AlnumText(100), AlnumText(500), AlnumText(500), AlnumText(500)}
	s.DefaultBoxes = oracle.Boxes(boxes)
	return s
}
