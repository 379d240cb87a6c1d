// Package reference extracts raw citation mentions from REFERENCE nodes
// of the logic tree, canonicalizes their surface text, and computes the
// stable content-addressable reference identity (CR-ID). Identity is a
// pure function of the extracted text: it never alters extraction,
// merging, or dedup behaviour.
package reference

import (
	"strings"

	"github.com/danharker/lexsem/lexicon"
	"github.com/danharker/lexsem/logictree"
	"github.com/danharker/lexsem/token"
)

// Reference is a raw citation mention as found in a clause.
type Reference struct {
	Work         string     `json:"work,omitempty"`
	Section      string     `json:"section,omitempty"`
	Pinpoint     string     `json:"pinpoint,omitempty"`
	CitationText string     `json:"citation_text"`
	ClauseID     string     `json:"clause_id"`
	Span         token.Span `json:"span"`

	year         int
	jurisdiction string
}

// FromTree walks the tree's clauses and extracts one Reference per
// REFERENCE node, in document order. Each reference records the clause
// that contains it; references never cross clause boundaries.
func FromTree(tree *logictree.Tree) []Reference {
	st := tree.Stream()
	var refs []Reference

	for _, clause := range tree.Clauses() {
		clauseID := clause.ID
		var visit func(n *logictree.Node)
		visit = func(n *logictree.Node) {
			if n.Type == logictree.Reference {
				refs = append(refs, parse(st, n, clauseID))
			}
			for _, c := range n.Children {
				visit(c)
			}
		}
		visit(clause)
	}
	return refs
}

// parse splits a REFERENCE node's surface text into work, section and
// pinpoint fields using the citation grammars.
func parse(st *token.Stream, n *logictree.Node, clauseID string) Reference {
	surface := st.Text(n.Span)
	folded := token.JoinNumeral(token.Fold(surface))

	ref := Reference{
		CitationText: surface,
		ClauseID:     clauseID,
		Span:         n.Span,
	}

	// Bracketed references carry their target inside the parentheses.
	target := folded
	if m := lexicon.BracketedRefPattern.FindStringSubmatch(folded); m != nil {
		target = m[1]
	}

	// The cased grammar pins the start of the instrument name; the folded
	// grammar is the fallback for all-lowercase citations and may carry a
	// run-up of preceding words into the work field.
	if m := lexicon.TitleWorkPattern.FindStringSubmatch(token.JoinNumeral(token.FoldShape(surface))); m != nil {
		ref.Work = strings.TrimSpace(m[1])
		ref.year = parseYear(m[2])
		ref.jurisdiction = strings.ToLower(m[3])
	} else if m := lexicon.WorkPattern.FindStringSubmatch(target); m != nil {
		ref.Work = strings.TrimSpace(m[1])
		ref.year = parseYear(m[2])
		ref.jurisdiction = m[3]
	}
	if m := lexicon.PinpointPattern.FindStringSubmatch(target); m != nil {
		kind := singular(m[1])
		num := normalizeOrdinal(m[2])
		if kind == "section" || kind == "subsection" {
			ref.Section = num
		} else {
			ref.Pinpoint = kind + " " + num
		}
	}
	return ref
}

func parseYear(s string) int {
	y := 0
	for _, r := range s {
		y = y*10 + int(r-'0')
	}
	return y
}

// singular strips the plural 's' from pinpoint kinds ("sections" is the
// same family axis as "section").
func singular(kind string) string {
	return strings.TrimSuffix(kind, "s")
}

// normalizeOrdinal maps roman numerals to arabic so "Part IV" and
// "Part 4" canonicalize identically. Non-roman input passes through.
func normalizeOrdinal(s string) string {
	if n, ok := romanValue(s); ok {
		return itoa(n)
	}
	return s
}

var romanDigits = map[byte]int{
	'i': 1, 'v': 5, 'x': 10, 'l': 50, 'c': 100, 'd': 500, 'm': 1000,
}

// romanValue parses a folded roman numeral. Returns false for strings
// containing non-roman characters (including plain arabic numbers).
func romanValue(s string) (int, bool) {
	if s == "" {
		return 0, false
	}
	total, prev := 0, 0
	for i := len(s) - 1; i >= 0; i-- {
		v, ok := romanDigits[s[i]]
		if !ok {
			return 0, false
		}
		if v < prev {
			total -= v
		} else {
			total += v
			prev = v
		}
	}
	return total, true
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	var buf [8]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	return string(buf[i:])
}
