package obligraph

import (
	"log/slog"
	"regexp"
	"strings"

	"github.com/danharker/lexsem/lexicon"
	"github.com/danharker/lexsem/logictree"
	"github.com/danharker/lexsem/reference"
	"github.com/danharker/lexsem/token"
)

// dependsPattern matches the explicit in-clause dependency phrasings
// that justify a depends_on edge.
var dependsPattern = regexp.MustCompile(
	`\b(in accordance with|pursuant to|as required by|under)\s+` +
		`(section|clause|subsection|paragraph|part|schedule|division|article)\s+` +
		`([0-9]+[a-z]?(?:\.[0-9]+)*|[ivxlcdm]+)\b`)

// resolvableKinds are the pinpoint kinds that can resolve against
// clause numbering labels. Higher-level structures (part, schedule,
// division, article) carry no clause-level label and stay unresolved.
var resolvableKinds = map[string]bool{
	"section": true, "clause": true, "subsection": true, "paragraph": true,
}

// Project builds the obligation graph for a primary revision. Corpus
// sources (already analyzed revisions of other documents) enable
// cross-document edges; an empty corpus yields intra-document edges
// only. The projection reads its inputs and mutates none of them.
func Project(primary Source, corpus []Source) *Graph {
	g := &Graph{}

	for i := range primary.Atoms {
		g.Nodes = append(g.Nodes, Node{
			OblID:    primary.IDs[i].Hash,
			SourceID: primary.DocID,
			ClauseID: primary.Atoms[i].ClauseID,
		})
	}

	labels := clauseLabels(primary.Tree)
	projectIntra(g, primary, labels)
	projectCross(g, primary, labels, corpus)
	g.Cycles = findCycles(g)

	slog.Debug("obligraph: projected",
		"doc_id", primary.DocID, "rev_id", primary.RevID,
		"nodes", len(g.Nodes), "edges", len(g.Edges),
		"diagnostics", len(g.Diagnostics), "cycles", len(g.Cycles))
	return g
}

// clauseLabels maps clause numbering labels ("4", "4.2") to clause IDs.
// A clause starting with a numeral token labels itself; a clause that
// consists of nothing but a numbering token labels the next clause (the
// tokenizer separates "4." from the sentence it introduces).
func clauseLabels(tree *logictree.Tree) map[string]string {
	st := tree.Stream()
	labels := make(map[string]string)
	clauses := tree.Clauses()

	numeral := regexp.MustCompile(`^[0-9]+[a-z]?(?:\.[0-9]+)*$`)
	var pending string
	for _, cl := range clauses {
		toks := st.Slice(cl.Span)
		if len(toks) == 0 {
			continue
		}
		first := token.FoldToken(toks[0].Text)

		bare := true
		for _, t := range toks {
			if w := token.FoldToken(t.Text); w != "" && w != first {
				bare = false
				break
			}
		}
		switch {
		case bare && numeral.MatchString(first):
			pending = first
		case pending != "":
			if _, taken := labels[pending]; !taken {
				labels[pending] = cl.ID
			}
			pending = ""
		case numeral.MatchString(first):
			if _, taken := labels[first]; !taken {
				labels[first] = cl.ID
			}
		}
	}
	return labels
}

// projectIntra emits conditional_on, exception_to and depends_on edges.
// Every edge requires a literal trigger inside the owning clause.
func projectIntra(g *Graph, src Source, labels map[string]string) {
	for i, a := range src.Atoms {
		from := src.IDs[i].Hash

		for _, c := range a.Conditions {
			m := lexicon.PinpointPattern.FindStringSubmatch(c.Text)
			if m == nil {
				continue
			}
			kind := KindConditionalOn
			if c.Type == lexicon.CondExcept {
				kind = KindExceptionTo
			}
			g.linkPinpoint(src, kind, from, a.ClauseID, m[0], singular(m[1]), m[2], labels)
		}
	}

	// depends_on triggers live anywhere in the clause, so they attach
	// to every obligation of the clause.
	for _, cl := range src.Tree.Clauses() {
		text := foldedClauseText(src.Tree, cl)
		for _, m := range dependsPattern.FindAllStringSubmatch(text, -1) {
			for _, from := range src.oblAt(cl.ID) {
				g.linkPinpoint(src, KindDependsOn, from, cl.ID, m[0], m[2], m[3], labels)
			}
		}
	}
}

// linkPinpoint resolves a pinpoint (kind, number) against the clause
// labels and emits one edge to the first obligation of the target
// clause, or a diagnostic when resolution fails.
func (g *Graph) linkPinpoint(src Source, kind, from, clauseID, text, pinKind, pinNum string, labels map[string]string) {
	text = strings.TrimSpace(text)

	targetClause := ""
	if resolvableKinds[pinKind] {
		targetClause = labels[pinNum]
	}
	if targetClause == "" || targetClause == clauseID {
		g.Diagnostics = append(g.Diagnostics, Diagnostic{
			Code: DiagUnresolvedTarget, ClauseID: clauseID, Text: text,
		})
		return
	}
	targets := src.oblAt(targetClause)
	if len(targets) == 0 {
		g.Diagnostics = append(g.Diagnostics, Diagnostic{
			Code: DiagUnresolvedTarget, ClauseID: clauseID, Text: text,
		})
		return
	}
	g.addEdge(Edge{
		Kind: kind, From: from, To: targets[0], Text: text,
		Provenance: EdgeProvenance{ClauseID: clauseID, Source: src.DocID},
	})
}

// projectCross emits cross-document edges for clauses whose text
// matches the frozen grammar AND whose reference resolves to a known
// obligation. Forbidden markers suppress the clause outright.
func projectCross(g *Graph, primary Source, labels map[string]string, corpus []Source) {
	refsByClause := make(map[string][]reference.Reference)
	for _, r := range primary.Refs {
		refsByClause[r.ClauseID] = append(refsByClause[r.ClauseID], r)
	}

	for _, cl := range primary.Tree.Clauses() {
		refs := refsByClause[cl.ID]
		if len(refs) == 0 {
			continue
		}
		text := foldedClauseText(primary.Tree, cl)

		if loc := lexicon.ForbiddenEdgeMarkers.FindString(text); loc != "" {
			g.Diagnostics = append(g.Diagnostics, Diagnostic{
				Code: DiagForbiddenMarker, ClauseID: cl.ID, Text: loc,
			})
			continue
		}

		kind, trigger := matchGrammar(text)
		if kind == "" {
			continue
		}

		sources := primary.oblAt(cl.ID)
		if len(sources) == 0 {
			g.Diagnostics = append(g.Diagnostics, Diagnostic{
				Code: DiagNoSourceObligation, ClauseID: cl.ID, Text: trigger,
			})
			continue
		}
		from := sources[0]

		for _, ref := range refs {
			to, ok := resolveTarget(ref, primary, labels, corpus)
			if !ok {
				g.Diagnostics = append(g.Diagnostics, Diagnostic{
					Code: DiagUnresolvedTarget, ClauseID: cl.ID, Text: ref.CitationText,
				})
				continue
			}
			if to == from {
				continue
			}
			g.addEdge(Edge{
				Kind: string(kind), From: from, To: to, Text: trigger,
				Provenance: EdgeProvenance{ClauseID: cl.ID, Source: primary.DocID},
			})
		}
	}
}

// matchGrammar returns the first edge kind whose pattern matches, in
// the fixed grammar order, with the literal trigger text.
func matchGrammar(text string) (lexicon.EdgeKind, string) {
	for _, g := range lexicon.CrossDocGrammar {
		if m := g.Pattern.FindString(text); m != "" {
			return g.Kind, m
		}
	}
	return "", ""
}

// resolveTarget maps a reference to a known OBL-ID. External citations
// resolve by family key against the corpus, then by pinpoint within the
// matched document; local pinpoints resolve within the primary
// document. Anything else is unresolved.
func resolveTarget(ref reference.Reference, primary Source, primaryLabels map[string]string, corpus []Source) (string, bool) {
	if ref.Work == "" {
		// Local structural reference ("see Part 4", "see section 3").
		pinKind, pinNum, ok := splitPinpoint(ref)
		if !ok || !resolvableKinds[pinKind] {
			return "", false
		}
		clauseID := primaryLabels[pinNum]
		if clauseID == "" {
			return "", false
		}
		if targets := primary.oblAt(clauseID); len(targets) > 0 {
			return targets[0], true
		}
		return "", false
	}

	family := reference.Canonicalize(ref).FamilyKey
	for i := range corpus {
		src := &corpus[i]
		if src.FamilyKey != family {
			continue
		}
		if pinKind, pinNum, ok := splitPinpoint(ref); ok && resolvableKinds[pinKind] {
			clauseID := clauseLabels(src.Tree)[pinNum]
			if clauseID == "" {
				return "", false
			}
			if targets := src.oblAt(clauseID); len(targets) > 0 {
				return targets[0], true
			}
			return "", false
		}
		// Whole-instrument citation: anchor on the target's first
		// obligation.
		if len(src.IDs) > 0 {
			return src.IDs[0].Hash, true
		}
		return "", false
	}
	return "", false
}

// singular strips the plural 's' from a pinpoint kind.
func singular(kind string) string {
	return strings.TrimSuffix(kind, "s")
}

// splitPinpoint decomposes a reference's pinpoint or section field into
// kind and number.
func splitPinpoint(ref reference.Reference) (kind, num string, ok bool) {
	if ref.Section != "" {
		return "section", ref.Section, true
	}
	parts := strings.SplitN(ref.Pinpoint, " ", 2)
	if len(parts) != 2 {
		return "", "", false
	}
	return parts[0], parts[1], true
}

// addEdge appends an edge unless an identical (kind, from, to) edge
// already exists.
func (g *Graph) addEdge(e Edge) {
	for _, ex := range g.Edges {
		if ex.Kind == e.Kind && ex.From == e.From && ex.To == e.To {
			return
		}
	}
	g.Edges = append(g.Edges, e)
}

// foldedClauseText renders a clause's folded surface text for grammar
// matching.
func foldedClauseText(tree *logictree.Tree, cl *logictree.Node) string {
	toks := tree.Stream().Slice(cl.Span)
	parts := make([]string, len(toks))
	for i, t := range toks {
		parts[i] = token.Fold(t.Text)
	}
	return strings.Join(parts, " ")
}
