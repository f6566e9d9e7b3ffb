package oracle

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveLanguage(t *testing.T) {
	cases := map[string]string{
		"english":         "eng",
		"English":         "eng",
		" GERMAN ":        "deu",
		"french+polish":   "fra+pol",
		"English+chi_sim": "eng+chi_sim",
		"eng":             "eng",
		"":                "",
		"klingon":         "klingon",
	}
	for in, want := range cases {
		assert.Equal(t, want, ResolveLanguage(in), in)
	}
	assert.Len(t, CanonicalLanguages(), 4)
}
