package reference

import (
	"strings"

	"github.com/danharker/lexsem/token"
)

// Canonical is the noise-invariant form of a reference. Two mentions of
// the same instrument family always canonicalize identically, no matter
// how OCR mangled the surface text.
type Canonical struct {
	FamilyKey    string `json:"family_key"`
	Year         int    `json:"year,omitempty"`
	Jurisdiction string `json:"jurisdiction_hint,omitempty"`
}

// workStopwords are dropped from family keys: they vary freely between
// citation styles without changing the instrument family.
var workStopwords = map[string]bool{
	"the": true, "of": true, "and": true, "an": true, "a": true,
}

// Canonicalize reduces a reference to its canonical identity fields.
// The family key is derived from the instrument name for external
// citations, or from the normalized pinpoint for intra-document ones,
// so that distinct act families can never share a key.
func Canonicalize(r Reference) Canonical {
	if r.Work != "" {
		return Canonical{
			FamilyKey:    familyKey(r.Work),
			Year:         r.year,
			Jurisdiction: r.jurisdiction,
		}
	}

	// Intra-document reference: keyed by its normalized pinpoint.
	pin := r.Pinpoint
	if pin == "" && r.Section != "" {
		pin = "section " + r.Section
	}
	return Canonical{
		FamilyKey: "local:" + strings.ReplaceAll(token.JoinNumeral(token.Fold(pin)), " ", "-"),
	}
}

// familyKey folds the work name, joins OCR-split numerals, drops
// stopwords and hyphenates the rest: "The Graffiti Control Act" →
// "graffiti-control-act".
func familyKey(work string) string {
	folded := token.JoinNumeral(token.Fold(work))
	var kept []string
	for _, w := range strings.Fields(folded) {
		w = strings.Trim(w, ".,;:")
		if w == "" || workStopwords[w] {
			continue
		}
		kept = append(kept, w)
	}
	return strings.Join(kept, "-")
}
