package oracle

import (
	"strings"

	"golang.org/x/text/cases"
)

// languageCodes maps canonical language names to tesseract codes.
var languageCodes = map[string]string{
	"english": "eng",
	"french":  "fra",
	"german":  "deu",
	"polish":  "pol",
}

// ResolveLanguage maps a canonical language name such as "English" to the
// tesseract code. Several languages may be joined with "+". Names that are
// not recognised pass through unchanged, so raw codes like "chi_sim" work.
func ResolveLanguage(name string) string {
	fold := cases.Fold()
	parts := strings.Split(strings.TrimSpace(name), "+")
	out := parts[:0]
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if code, ok := languageCodes[fold.String(p)]; ok {
			p = code
		}
		out = append(out, p)
	}
	return strings.Join(out, "+")
}

// CanonicalLanguages lists the names ResolveLanguage understands.
func CanonicalLanguages() []string {
	return []string{"english", "french", "german", "polish"}
}
