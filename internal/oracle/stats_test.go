package oracle

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCountAlnum(t *testing.T) {
	assert.Equal(t, 0, CountAlnum(""))
	assert.Equal(t, 10, CountAlnum("Hello, 12345!"))
	assert.Equal(t, 4, CountAlnum("café"), "combining accent folds into one letter")
	assert.Equal(t, 4, CountAlnum("Łódź."))
	assert.Equal(t, 0, CountAlnum(" \n\t-_.;"))
}

func TestComputeTextStats(t *testing.T) {
	st := ComputeTextStats("Invoice No 42\n\n  Total due: 19.99  \n")
	assert.Equal(t, 6, st.Words)
	assert.Equal(t, 2, st.Lines)
	assert.Equal(t, 25, st.Characters)
	assert.InDelta(t, 25.0/6.0, st.AvgWordLength, 1e-9)
	assert.Equal(t, 23, st.Alphanumeric)

	assert.Equal(t, TextStats{}, ComputeTextStats("   \n"))
}
