package token

import (
	"unicode"
)

// Tokenize is the deterministic fallback tokenizer. It stands in for the
// external NLP collaborator when only raw body text is available (CLI and
// server text input). The rules are fixed: identical input text always
// yields an identical stream. It performs no POS or dependency analysis
// beyond coarse shape classes, which is all the downstream stages need
// from the fallback path.
func Tokenize(docID, revID, text string) *Stream {
	st := &Stream{DocID: docID, RevID: revID}

	runes := []rune(text)
	sentStart := 0
	charPos := 0 // rune offset of the current scan position

	flushSentence := func(endTok int) {
		if endTok > sentStart {
			st.Sentences = append(st.Sentences, Sentence{Start: sentStart, End: endTok})
			sentStart = endTok
		}
	}

	i := 0
	for i < len(runes) {
		r := runes[i]

		switch {
		case unicode.IsSpace(r):
			i++
			charPos++

		case isWordRune(r):
			start := i
			for i < len(runes) && (isWordRune(runes[i]) || interiorJoin(runes, i)) {
				i++
			}
			st.appendToken(string(runes[start:i]), charPos, charPos+(i-start))
			charPos += i - start

		default:
			// Single punctuation token.
			st.appendToken(string(r), charPos, charPos+1)
			i++
			charPos++
			if r == '.' || r == '?' || r == '!' || r == ';' {
				// Sentence boundary when followed by whitespace or EOF.
				if i >= len(runes) || unicode.IsSpace(runes[i]) {
					flushSentence(len(st.Tokens))
				}
			}
		}
	}
	flushSentence(len(st.Tokens))

	return st
}

func (st *Stream) appendToken(text string, start, end int) {
	st.Tokens = append(st.Tokens, Token{
		Text:      text,
		Lemma:     FoldToken(text),
		POS:       shapeClass(text),
		StartChar: start,
		EndChar:   end,
	})
}

// isWordRune reports whether r can start or continue a word token.
func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

// interiorJoin keeps "1.2.3", "s.4" and hyphenated compounds as single
// tokens: a '.' or '-' is part of the word when flanked by word runes.
func interiorJoin(runes []rune, i int) bool {
	if runes[i] != '.' && runes[i] != '-' {
		return false
	}
	return i > 0 && i+1 < len(runes) && isWordRune(runes[i-1]) && isWordRune(runes[i+1])
}

// shapeClass assigns the coarse POS class used by the fallback path.
func shapeClass(text string) string {
	hasLetter, hasDigit := false, false
	for _, r := range text {
		switch {
		case unicode.IsLetter(r):
			hasLetter = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}
	switch {
	case hasLetter:
		return "WORD"
	case hasDigit:
		return "NUM"
	default:
		return "PUNCT"
	}
}
