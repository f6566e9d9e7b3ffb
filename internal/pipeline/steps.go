package pipeline

import (
	"fmt"
	"strings"
)

// StepKind identifies a preprocessing step.
type StepKind int

// Known steps. The zero value is not a valid step.
const (
	StepContrast StepKind = iota + 1
	StepDenoise
	StepEdgeEnhancement
	StepSharpen
	StepThreshold
	StepDeskew
	StepOrientation
	StepCrop
)

var stepNames = map[StepKind]string{
	StepContrast:        "contrast",
	StepDenoise:         "denoise",
	StepEdgeEnhancement: "edge_enhancement",
	StepSharpen:         "sharpen",
	StepThreshold:       "threshold",
	StepDeskew:          "deskew",
	StepOrientation:     "orientation",
	StepCrop:            "crop",
}

// allSteps is the listing order of AvailableSteps.
var allSteps = []StepKind{
	StepContrast, StepDenoise, StepEdgeEnhancement, StepSharpen,
	StepThreshold, StepDeskew, StepOrientation, StepCrop,
}

func (k StepKind) String() string {
	if n, ok := stepNames[k]; ok {
		return n
	}
	return fmt.Sprintf("StepKind(%d)", int(k))
}

// MarshalText implements encoding.TextMarshaler.
func (k StepKind) MarshalText() ([]byte, error) {
	if _, ok := stepNames[k]; !ok {
		return nil, fmt.Errorf("invalid step kind %d", int(k))
	}
	return []byte(k.String()), nil
}

// ParseStep maps a step identifier to its kind. Identifiers are matched
// exactly.
func ParseStep(name string) (StepKind, bool) {
	for k, n := range stepNames {
		if n == name {
			return k, true
		}
	}
	return 0, false
}

// AvailableSteps returns every step identifier.
func AvailableSteps() []string {
	out := make([]string, len(allSteps))
	for i, k := range allSteps {
		out[i] = k.String()
	}
	return out
}

// DefaultSteps returns the default pipeline.
func DefaultSteps() []string {
	return []string{"contrast", "deskew", "orientation", "crop"}
}

// PlannedStep is a known step and its position in the caller's list.
type PlannedStep struct {
	Kind  StepKind `json:"kind"`
	Index int      `json:"index"`
}

// UnknownStep is an unrecognised identifier and its position.
type UnknownStep struct {
	Name  string `json:"name"`
	Index int    `json:"index"`
}

// Plan is a parsed step list. Known steps keep the caller's order and
// multiplicity.
type Plan struct {
	Steps   []PlannedStep
	Unknown []UnknownStep
}

// Kinds returns the known step kinds in order.
func (p Plan) Kinds() []StepKind {
	out := make([]StepKind, len(p.Steps))
	for i, s := range p.Steps {
		out[i] = s.Kind
	}
	return out
}

// Has reports whether the plan contains kind.
func (p Plan) Has(kind StepKind) bool {
	for _, s := range p.Steps {
		if s.Kind == kind {
			return true
		}
	}
	return false
}

func (p Plan) String() string {
	names := make([]string, len(p.Steps))
	for i, s := range p.Steps {
		names[i] = s.Kind.String()
	}
	return strings.Join(names, ",")
}

// ParseSteps splits names into known and unknown steps. It never fails and
// never reorders, deduplicates or inserts steps.
func ParseSteps(names []string) Plan {
	var p Plan
	for i, n := range names {
		if k, ok := ParseStep(n); ok {
			p.Steps = append(p.Steps, PlannedStep{Kind: k, Index: i})
		} else {
			p.Unknown = append(p.Unknown, UnknownStep{Name: n, Index: i})
		}
	}
	return p
}
