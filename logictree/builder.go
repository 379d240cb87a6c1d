package logictree

import (
	"log/slog"
	"sort"
	"strings"

	"github.com/danharker/lexsem/lexicon"
	"github.com/danharker/lexsem/token"
)

// Options controls tree construction.
type Options struct {
	// IncludeTokens adds TOKEN leaves for non-structural tokens. The
	// default tree omits them for readability; spans remain valid
	// either way.
	IncludeTokens bool
}

// Build constructs the logic tree for a token stream. It is total and
// deterministic: an empty stream yields a ROOT with no children, and
// identical streams yield identical trees, node IDs included.
func Build(st *token.Stream, opts Options) *Tree {
	root := newNode(Root, st.Span(0, st.Len()))
	tree := &Tree{DocID: st.DocID, RevID: st.RevID, Root: root, stream: st}

	if st.Len() == 0 {
		return tree
	}

	for si := range st.Sentences {
		sent := st.Sentences[si]
		for _, cl := range segmentClauses(st, sent.Start, sent.End) {
			root.Children = append(root.Children, buildClause(st, cl[0], cl[1], opts))
		}
	}

	slog.Debug("logictree: built",
		"doc_id", st.DocID, "rev_id", st.RevID,
		"sentences", len(st.Sentences), "clauses", len(root.Children))
	return tree
}

// segmentClauses splits a sentence token range into clause ranges.
// Boundaries are semicolons and coordinating conjunctions that join two
// segments which each carry their own modal trigger. Subordination
// markers (if, unless, except...) do not split: they open sub-spans
// inside the clause instead.
func segmentClauses(st *token.Stream, start, end int) [][2]int {
	folded := foldRange(st, start, end)

	var bounds []int
	depth := 0
	for i := 0; i < len(folded); i++ {
		switch folded[i] {
		case "(", "[":
			depth++
		case ")", "]":
			if depth > 0 {
				depth--
			}
		case ";":
			if depth == 0 {
				bounds = append(bounds, start+i)
			}
		case "and", "but", "or":
			if depth == 0 &&
				hasModal(folded[:i]) && hasModal(folded[i+1:]) {
				bounds = append(bounds, start+i)
			}
		}
	}

	var out [][2]int
	cur := start
	for _, b := range bounds {
		if b > cur {
			out = append(out, [2]int{cur, b})
		}
		cur = b + 1 // the separator token belongs to neither clause
	}
	if end > cur {
		out = append(out, [2]int{cur, end})
	}
	return out
}

// hasModal reports whether a folded token slice contains any modal
// trigger phrase.
func hasModal(folded []string) bool {
	for i := range folded {
		for _, mt := range lexicon.ModalTriggers {
			if lexicon.MatchPhrase(folded, i, mt.Phrase) {
				return true
			}
		}
	}
	return false
}

// candidate is a provisional child node found within a clause span.
type candidate struct {
	typ    NodeType
	start  int // absolute token index
	end    int
	marker string
}

// buildClause constructs one CLAUSE node and its structural children.
func buildClause(st *token.Stream, start, end int, opts Options) *Node {
	clause := newNode(Clause, st.Span(start, end))
	folded := foldRange(st, start, end)

	var cands []candidate
	cands = append(cands, scanModals(folded, start)...)
	cands = append(cands, scanSubordinate(folded, start)...)
	cands = append(cands, scanReferences(st, folded, start)...)

	// Leftmost-longest ordering; ties broken by node type so the result
	// is fully deterministic.
	sort.SliceStable(cands, func(i, j int) bool {
		if cands[i].start != cands[j].start {
			return cands[i].start < cands[j].start
		}
		if cands[i].end != cands[j].end {
			return cands[i].end > cands[j].end
		}
		return cands[i].typ < cands[j].typ
	})

	// Containment forest: a candidate nests under the nearest accepted
	// ancestor that contains it. A candidate that partially overlaps any
	// accepted node loses to the earlier (leftmost-longest) one and is
	// dropped, keeping sibling spans disjoint at every level.
	var stack []*Node
	accept := func(n *Node) bool {
		for len(stack) > 0 {
			top := stack[len(stack)-1]
			if top.Span.Contains(n.Span) {
				top.Children = append(top.Children, n)
				stack = append(stack, n)
				return true
			}
			if top.Span.Overlaps(n.Span) {
				return false
			}
			stack = stack[:len(stack)-1]
		}
		clause.Children = append(clause.Children, n)
		stack = append(stack, n)
		return true
	}

	var prevNode *Node
	for _, c := range cands {
		if c.start == c.end || dup(prevNode, c) {
			continue
		}
		n := newNode(c.typ, st.Span(c.start, c.end))
		n.Marker = c.marker
		if accept(n) {
			prevNode = n
		}
	}

	if opts.IncludeTokens {
		addTokenLeaves(st, clause)
	}
	return clause
}

// dup filters a candidate identical in span and type to the one just
// accepted (the same marker found by two scanners).
func dup(prev *Node, c candidate) bool {
	return prev != nil && prev.Type == c.typ &&
		prev.Span.Start == c.start && prev.Span.End == c.end
}

// scanModals finds modal trigger phrases, longest match first.
func scanModals(folded []string, base int) []candidate {
	var out []candidate
	i := 0
	for i < len(folded) {
		matched := false
		for _, mt := range lexicon.ModalTriggers {
			if lexicon.MatchPhrase(folded, i, mt.Phrase) {
				out = append(out, candidate{
					typ:    Modal,
					start:  base + i,
					end:    base + i + len(mt.Phrase),
					marker: mt.Canonical,
				})
				i += len(mt.Phrase)
				matched = true
				break
			}
		}
		if !matched {
			i++
		}
	}
	return out
}

// scanSubordinate finds condition and exception openers. The opened span
// runs to the end of the clause, except for a clause-leading marker,
// whose span closes at the first top-level comma (the classic
// "If X, Y must Z" shape).
func scanSubordinate(folded []string, base int) []candidate {
	var out []candidate
	for i := 0; i < len(folded); i++ {
		if n := lexicon.MatchAnyPhrase(folded, i, lexicon.ExceptionMarkers); n > 0 {
			out = append(out, candidate{
				typ:    Exception,
				start:  base + i,
				end:    base + subSpanEnd(folded, i),
				marker: strings.Join(folded[i:i+n], " "),
			})
			i += n - 1
			continue
		}
		for _, cm := range lexicon.ConditionMarkers {
			if cm.Type == lexicon.CondExcept {
				continue // handled as EXCEPTION above
			}
			if lexicon.MatchPhrase(folded, i, cm.Phrase) {
				out = append(out, candidate{
					typ:    Condition,
					start:  base + i,
					end:    base + subSpanEnd(folded, i),
					marker: string(cm.Type),
				})
				i += len(cm.Phrase) - 1
				break
			}
		}
	}
	return out
}

// subSpanEnd returns the relative end index for a subordinate span
// opened at rel. Leading markers close at the first top-level comma;
// embedded markers run to the clause end. Unbalanced brackets degrade
// gracefully: the span simply closes at the clause boundary.
func subSpanEnd(folded []string, rel int) int {
	if rel == 0 {
		depth := 0
		for i := rel + 1; i < len(folded); i++ {
			switch folded[i] {
			case "(", "[":
				depth++
			case ")", "]":
				if depth > 0 {
					depth--
				}
			case ",":
				if depth == 0 {
					return i
				}
			}
		}
	}
	return len(folded)
}

// scanReferences runs the citation grammars over the rendered clause
// text and maps matches back to token spans. Overlapping matches within
// the clause resolve leftmost-longest.
func scanReferences(st *token.Stream, folded []string, base int) []candidate {
	text, byteTok := renderFolded(folded)
	if text == "" {
		return nil
	}

	// Graceful recovery for unterminated brackets: close them at the
	// clause boundary so the bracketed-reference grammar still applies.
	matchText := text
	if opens := strings.Count(text, "(") - strings.Count(text, ")"); opens > 0 {
		matchText = text + strings.Repeat(")", opens)
		for len(byteTok) < len(matchText) {
			byteTok = append(byteTok, len(folded)-1)
		}
	}

	type match struct{ s, e int }
	var raw []match
	for _, re := range []interface{ FindAllStringIndex(string, int) [][]int }{
		lexicon.WorkPattern, lexicon.BracketedRefPattern, lexicon.PinpointPattern,
	} {
		for _, loc := range re.FindAllStringIndex(matchText, -1) {
			raw = append(raw, match{loc[0], loc[1]})
		}
	}
	if len(raw) == 0 {
		return nil
	}

	sort.Slice(raw, func(i, j int) bool {
		if raw[i].s != raw[j].s {
			return raw[i].s < raw[j].s
		}
		return raw[i].e > raw[j].e
	})

	var out []candidate
	lastEnd := -1
	for _, m := range raw {
		if m.s < lastEnd {
			continue // leftmost-longest wins
		}
		ts := byteTok[m.s]
		te := byteTok[m.e-1] + 1
		out = append(out, candidate{typ: Reference, start: base + ts, end: base + te})
		lastEnd = m.e
	}
	return out
}

// addTokenLeaves attaches a TOKEN leaf for every position not covered by
// a structural child, recursively.
func addTokenLeaves(st *token.Stream, n *Node) {
	structural := n.Children
	for _, c := range structural {
		addTokenLeaves(st, c)
	}

	covered := make(map[int]bool)
	for _, c := range structural {
		for i := c.Span.Start; i < c.Span.End; i++ {
			covered[i] = true
		}
	}
	for i := n.Span.Start; i < n.Span.End; i++ {
		if !covered[i] {
			n.Children = append(n.Children, newNode(TokenLeaf, st.Span(i, i+1)))
		}
	}
	sort.SliceStable(n.Children, func(a, b int) bool {
		return n.Children[a].Span.Start < n.Children[b].Span.Start
	})
}

// foldRange folds the surface text of tokens in [start, end) for
// trigger matching. Punctuation tokens keep their characters so bracket
// depth tracking and the citation grammars still see them.
func foldRange(st *token.Stream, start, end int) []string {
	out := make([]string, 0, end-start)
	for _, t := range st.Slice(st.Span(start, end)) {
		out = append(out, token.Fold(t.Text))
	}
	return out
}

// renderFolded joins folded tokens into one matching surface, tracking
// the token index that produced each byte.
func renderFolded(folded []string) (string, []int) {
	return lexicon.Render(folded)
}
