package obligation

import (
	"log/slog"
	"sort"
	"strings"

	"github.com/danharker/lexsem/lexicon"
	"github.com/danharker/lexsem/logictree"
	"github.com/danharker/lexsem/reference"
	"github.com/danharker/lexsem/token"
)

// ExtractionConfig is passed by value into Extract. Disabling a binding
// leaves the corresponding fields empty and excludes them from identity;
// it never changes which atoms exist.
type ExtractionConfig struct {
	EnableActorBinding  bool   `json:"enable_actor_binding" yaml:"enable_actor_binding"`
	EnableActionBinding bool   `json:"enable_action_binding" yaml:"enable_action_binding"`
	Source              string `json:"source,omitempty" yaml:"source,omitempty"`
}

// DefaultExtractionConfig enables all bindings.
func DefaultExtractionConfig() ExtractionConfig {
	return ExtractionConfig{
		EnableActorBinding:  true,
		EnableActionBinding: true,
		Source:              "extractor",
	}
}

// canonicalType maps a canonical modality to its atom type.
var canonicalType = map[string]Type{
	"must":            Obligation,
	"is required to":  Obligation,
	"may":             Permission,
	"must not":        Prohibition,
	"does not apply":  Exclusion,
	"does not affect": Exclusion,
	"except that":     Exclusion,
}

// Extract scans the tree's clauses for modal triggers and emits one raw
// atom per governing verb per trigger. refs are the clause-scoped
// references already extracted from the same tree; their identities are
// bound to atoms of the same clause only.
func Extract(tree *logictree.Tree, refs []reference.Reference, cfg ExtractionConfig) []Atom {
	st := tree.Stream()
	refsByClause := clauseReferenceHashes(refs)

	var atoms []Atom
	trace := 0
	for _, clause := range tree.Clauses() {
		for _, a := range extractClause(st, clause, refsByClause[clause.ID], cfg) {
			a.TraceID = trace
			trace++
			atoms = append(atoms, a)
		}
	}

	slog.Debug("obligation: extracted",
		"doc_id", tree.DocID, "rev_id", tree.RevID,
		"clauses", len(tree.Clauses()), "atoms", len(atoms))
	return atoms
}

// clauseReferenceHashes groups sorted, deduplicated CR-ID hashes per
// clause ID.
func clauseReferenceHashes(refs []reference.Reference) map[string][]string {
	byClause := make(map[string]map[string]bool)
	for _, r := range refs {
		if byClause[r.ClauseID] == nil {
			byClause[r.ClauseID] = make(map[string]bool)
		}
		byClause[r.ClauseID][reference.IdentityOf(r).Hash] = true
	}
	out := make(map[string][]string, len(byClause))
	for cid, set := range byClause {
		hashes := make([]string, 0, len(set))
		for h := range set {
			hashes = append(hashes, h)
		}
		sort.Strings(hashes)
		out[cid] = hashes
	}
	return out
}

// extractClause emits the atoms for one clause. A clause without a
// modal trigger emits nothing; a trigger whose actor or action cannot
// be resolved still emits an atom with those fields empty.
func extractClause(st *token.Stream, clause *logictree.Node, refHashes []string, cfg ExtractionConfig) []Atom {
	var modals, subordinates, references []*logictree.Node
	for _, c := range clause.Children {
		switch c.Type {
		case logictree.Modal:
			modals = append(modals, c)
		case logictree.Condition, logictree.Exception:
			subordinates = append(subordinates, c)
		case logictree.Reference:
			references = append(references, c)
		}
	}
	if len(modals) == 0 {
		return nil
	}

	conditions := bindConditions(st, subordinates)
	scope := bindScope(st, clause)
	lifecycle := bindLifecycle(st, clause)

	var atoms []Atom
	for _, modal := range modals {
		trigger := foldSpanText(st, modal.Span)
		atomType, ok := canonicalType[modal.Marker]
		if !ok {
			atomType = Obligation
		}

		base := Atom{
			Type:                atomType,
			ModalityTrigger:     trigger,
			ClauseID:            clause.ID,
			Conditions:          conditions,
			Scope:               scope,
			Lifecycle:           lifecycle,
			ReferenceIdentities: refHashes,
			Span:                clause.Span,
			Provenance:          Provenance{ClauseID: clause.ID, Source: cfg.Source},
		}
		if cfg.EnableActorBinding {
			base.Actor = bindActor(st, clause, modal)
		}
		if !cfg.EnableActionBinding {
			atoms = append(atoms, base)
			continue
		}

		// One atom per governing verb: coordinated verb phrases after a
		// single trigger each receive their own atom.
		segments := verbSegments(st, clause, modal)
		if len(segments) == 0 {
			atoms = append(atoms, base)
			continue
		}
		for _, seg := range segments {
			a := base
			a.Action = seg.action
			a.Object = seg.object
			atoms = append(atoms, a)
		}
	}
	return atoms
}

// bindActor collects the clause-local subject phrase: the tokens before
// the modal trigger that belong to no structural child span.
func bindActor(st *token.Stream, clause *logictree.Node, modal *logictree.Node) string {
	excluded := childCover(clause, modal)
	var words []string
	for i := clause.Span.Start; i < modal.Span.Start; i++ {
		if excluded[i] {
			continue
		}
		if w := token.FoldToken(st.Tokens[i].Text); w != "" {
			words = append(words, w)
		}
	}
	return strings.Join(words, " ")
}

// verbSegment is one governing verb and its object phrase.
type verbSegment struct {
	action string
	object string
}

// verbSegments splits the post-trigger region into per-verb segments.
// Coordination is only recognised when the collaborator stream carries
// POS tags (a token tagged VERB after "and"/"or"); the fallback
// tokenizer therefore yields a single segment, never a spurious split
// on noun coordination.
func verbSegments(st *token.Stream, clause *logictree.Node, modal *logictree.Node) []verbSegment {
	start := modal.Span.End
	end := regionEnd(clause, modal)
	if start >= end {
		return nil
	}

	var segs []verbSegment
	segStart := start
	for i := start + 1; i < end-1; i++ {
		w := token.FoldToken(st.Tokens[i].Text)
		if (w == "and" || w == "or") && st.Tokens[i+1].POS == "VERB" {
			segs = append(segs, bindSegment(st, segStart, i))
			segStart = i + 1
		}
	}
	segs = append(segs, bindSegment(st, segStart, end))
	return segs
}

// regionEnd finds where the action/object region of a modal closes: the
// start of the first top-level subordinate or reference node after the
// trigger, or the clause end.
func regionEnd(clause *logictree.Node, modal *logictree.Node) int {
	end := clause.Span.End
	for _, c := range clause.Children {
		switch c.Type {
		case logictree.Condition, logictree.Exception, logictree.Reference:
			if c.Span.Start >= modal.Span.End && c.Span.Start < end {
				end = c.Span.Start
			}
		}
	}
	return end
}

// bindSegment splits one verb segment into action (the governing verb)
// and object (the rest of the phrase).
func bindSegment(st *token.Stream, start, end int) verbSegment {
	var words []string
	for i := start; i < end; i++ {
		if w := token.FoldToken(st.Tokens[i].Text); w != "" {
			words = append(words, w)
		}
	}
	if len(words) == 0 {
		return verbSegment{}
	}
	return verbSegment{
		action: words[0],
		object: strings.Join(words[1:], " "),
	}
}

// bindConditions converts CONDITION and EXCEPTION nodes into typed
// condition attachments, ordered by span start. The condition text
// excludes the marker tokens and is never merged into action text.
func bindConditions(st *token.Stream, nodes []*logictree.Node) []Condition {
	sort.SliceStable(nodes, func(i, j int) bool {
		return nodes[i].Span.Start < nodes[j].Span.Start
	})

	var out []Condition
	for _, n := range nodes {
		folded := make([]string, 0, n.Span.Len())
		for _, t := range st.Slice(n.Span) {
			folded = append(folded, token.Fold(t.Text))
		}

		condType := lexicon.CondExcept
		markerLen := lexicon.MatchAnyPhrase(folded, 0, lexicon.ExceptionMarkers)
		if n.Type == logictree.Condition {
			condType = lexicon.ConditionType(n.Marker)
			markerLen = 0
			for _, cm := range lexicon.ConditionMarkers {
				if lexicon.MatchPhrase(folded, 0, cm.Phrase) {
					markerLen = len(cm.Phrase)
					break
				}
			}
		}

		var words []string
		for _, w := range folded[markerLen:] {
			if w = strings.TrimFunc(w, isPunctRune); w != "" {
				words = append(words, w)
			}
		}
		out = append(out, Condition{
			Type: condType,
			Text: strings.Join(words, " "),
			Span: n.Span,
		})
	}
	return out
}

// bindScope scans the clause for the conservative scope marker phrases.
// First match per axis wins; scope attaches but never gates.
func bindScope(st *token.Stream, clause *logictree.Node) Scope {
	folded := foldedLemmas(st, clause.Span)
	return Scope{
		Time:    capturePhrase(folded, lexicon.TimeMarkers),
		Place:   capturePhrase(folded, lexicon.PlaceMarkers),
		Context: capturePhrase(folded, lexicon.ContextMarkers),
	}
}

// bindLifecycle attaches activation/termination triggers only on the
// explicit lifecycle phrasings in the lexicon.
func bindLifecycle(st *token.Stream, clause *logictree.Node) Lifecycle {
	folded := foldedLemmas(st, clause.Span)
	return Lifecycle{
		ActivationTrigger:  capturePhrase(folded, lexicon.ActivationMarkers),
		TerminationTrigger: capturePhrase(folded, lexicon.TerminationMarkers),
	}
}

// capturePhrase returns the normalized phrase from the first marker
// match to the next comma or span end, or "" when nothing matches.
func capturePhrase(folded []string, markers [][]string) string {
	for i := range folded {
		n := lexicon.MatchAnyPhrase(folded, i, markers)
		if n == 0 {
			continue
		}
		var words []string
		for j := i; j < len(folded); j++ {
			w := strings.TrimFunc(folded[j], isPunctRune)
			if j >= i+n && strings.ContainsAny(folded[j], ",;") {
				break
			}
			if w != "" {
				words = append(words, w)
			}
		}
		return strings.Join(words, " ")
	}
	return ""
}

// childCover marks the token positions claimed by the clause's
// structural children, except the given modal.
func childCover(clause *logictree.Node, exclude *logictree.Node) map[int]bool {
	covered := make(map[int]bool)
	for _, c := range clause.Children {
		if c == exclude || c.Type == logictree.TokenLeaf {
			continue
		}
		for i := c.Span.Start; i < c.Span.End; i++ {
			covered[i] = true
		}
	}
	return covered
}

// foldedLemmas folds every token of a span for phrase matching.
func foldedLemmas(st *token.Stream, sp token.Span) []string {
	toks := st.Slice(sp)
	out := make([]string, len(toks))
	for i, t := range toks {
		out[i] = token.Fold(t.Text)
	}
	return out
}

// foldSpanText folds a span's surface text into a single string.
func foldSpanText(st *token.Stream, sp token.Span) string {
	return strings.Join(foldedLemmas(st, sp), " ")
}

func isPunctRune(r rune) bool {
	return strings.ContainsRune(`.,;:!?()[]"'`, r)
}
