package oracle

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// CountAlnum returns the number of letters and digits in text after NFC
// normalisation, so a decomposed "é" counts once.
func CountAlnum(text string) int {
	n := 0
	for _, r := range norm.NFC.String(text) {
		if unicode.IsLetter(r) || unicode.IsNumber(r) {
			n++
		}
	}
	return n
}

// TextStats summarises recognised text.
type TextStats struct {
	Words         int     `json:"words"`
	Characters    int     `json:"characters"`
	Alphanumeric  int     `json:"alphanumeric"`
	Lines         int     `json:"lines"`
	AvgWordLength float64 `json:"avg_word_length"`
}

// ComputeTextStats counts words, characters and non-blank lines in text.
// Characters exclude whitespace.
func ComputeTextStats(text string) TextStats {
	text = norm.NFC.String(text)
	var st TextStats
	words := strings.Fields(text)
	st.Words = len(words)
	letters := 0
	for _, w := range words {
		letters += len([]rune(w))
	}
	st.Characters = letters
	if st.Words > 0 {
		st.AvgWordLength = float64(letters) / float64(st.Words)
	}
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) != "" {
			st.Lines++
		}
	}
	st.Alphanumeric = CountAlnum(text)
	return st
}
