package token

import (
	"strings"
	"unicode"
)

// ligatures maps typographic ligatures that OCR engines commonly emit to
// their plain-letter expansions.
var ligatures = strings.NewReplacer(
	"ﬀ", "ff",
	"ﬁ", "fi",
	"ﬂ", "fl",
	"ﬃ", "ffi",
	"ﬄ", "ffl",
	"æ", "ae",
	"œ", "oe",
)

// quotes maps curly quote and dash variants to their ASCII forms.
var quotes = strings.NewReplacer(
	"‘", "'",
	"’", "'",
	"“", `"`,
	"”", `"`,
	"–", "-",
	"—", "-",
	" ", " ",
)

// Fold lowercases text and folds OCR-style presentation variants
// (ligatures, curly quotes, non-breaking spaces, run-on whitespace) to a
// canonical form. All trigger matching and identity canonicalization
// operates on folded text so that cosmetic noise cannot change meaning.
func Fold(s string) string {
	s = ligatures.Replace(s)
	s = quotes.Replace(s)
	s = strings.ToLower(s)
	return strings.Join(strings.Fields(s), " ")
}

// FoldShape folds the presentation variants only, preserving letter
// case. The cased citation grammar matches over this form.
func FoldShape(s string) string {
	s = ligatures.Replace(s)
	s = quotes.Replace(s)
	return strings.Join(strings.Fields(s), " ")
}

// FoldToken folds a single token's surface text and strips surrounding
// punctuation. Interior punctuation (as in "1.2.3") is kept.
func FoldToken(s string) string {
	s = Fold(s)
	return strings.TrimFunc(s, func(r rune) bool {
		return unicode.IsPunct(r) && r != '.'
	})
}

// JoinNumeral collapses stray spaces that OCR inserts inside numerals,
// e.g. "19 98" -> "1998" and "1. 2.3" -> "1.2.3". Only digit/dot runs
// separated by single spaces are joined; word boundaries are preserved.
func JoinNumeral(s string) string {
	var b strings.Builder
	runes := []rune(s)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		if r == ' ' && i > 0 && i+1 < len(runes) &&
			isNumeralRune(runes[i-1]) && isNumeralRune(runes[i+1]) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func isNumeralRune(r rune) bool {
	return unicode.IsDigit(r) || r == '.'
}
