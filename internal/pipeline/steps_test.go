package pipeline

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStepsKeepsOrderAndDuplicates(t *testing.T) {
	names := []string{"threshold", "contrast", "bogus", "threshold", "Crop", "crop"}
	p := ParseSteps(names)

	assert.Equal(t, []StepKind{StepThreshold, StepContrast, StepThreshold, StepCrop}, p.Kinds())
	assert.Equal(t, []int{0, 1, 3, 5}, []int{p.Steps[0].Index, p.Steps[1].Index, p.Steps[2].Index, p.Steps[3].Index})
	assert.Equal(t, []UnknownStep{{Name: "bogus", Index: 2}, {Name: "Crop", Index: 4}}, p.Unknown)
	assert.Equal(t, "threshold,contrast,threshold,crop", p.String())
	assert.True(t, p.Has(StepCrop))
	assert.False(t, p.Has(StepDeskew))

	// The caller's slice is left alone.
	assert.Equal(t, []string{"threshold", "contrast", "bogus", "threshold", "Crop", "crop"}, names)
}

func TestParseStepsEmpty(t *testing.T) {
	p := ParseSteps(nil)
	assert.Empty(t, p.Steps)
	assert.Empty(t, p.Unknown)
}

func TestAvailableSteps(t *testing.T) {
	names := AvailableSteps()
	assert.Equal(t, []string{
		"contrast", "denoise", "edge_enhancement", "sharpen",
		"threshold", "deskew", "orientation", "crop",
	}, names)
	for _, n := range names {
		k, ok := ParseStep(n)
		require.True(t, ok, n)
		assert.Equal(t, n, k.String())
	}
	assert.Equal(t, []string{"contrast", "deskew", "orientation", "crop"}, DefaultSteps())
}

func TestStepKindText(t *testing.T) {
	b, err := StepDeskew.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "deskew", string(b))

	_, err = StepKind(0).MarshalText()
	require.Error(t, err)
	assert.Equal(t, "StepKind(42)", StepKind(42).String())

	_, ok := ParseStep(" contrast")
	assert.False(t, ok)
}

func TestParseSteps_Partition(t *testing.T) {
	properties := gopter.NewProperties(nil)
	vocabulary := append(AvailableSteps(), "", "blur", "CONTRAST", "edge-enhancement")

	properties.Property("every name is either planned or skipped, in order", prop.ForAll(
		func(picks []int) bool {
			names := make([]string, len(picks))
			for i, p := range picks {
				names[i] = vocabulary[p]
			}
			plan := ParseSteps(names)
			if len(plan.Steps)+len(plan.Unknown) != len(names) {
				return false
			}
			for i := 1; i < len(plan.Steps); i++ {
				if plan.Steps[i].Index <= plan.Steps[i-1].Index {
					return false
				}
			}
			for _, s := range plan.Steps {
				if names[s.Index] != s.Kind.String() {
					return false
				}
			}
			for _, u := range plan.Unknown {
				if names[u.Index] != u.Name {
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.IntRange(0, len(vocabulary)-1)),
	))

	properties.TestingRun(t)
}
