// Package lexicon holds the read-only trigger tables and citation
// grammars shared by the tree builder, the obligation extractor, and the
// graph projector. Everything here is initialised at load time and never
// written afterwards, so concurrent readers need no locking.
package lexicon

import (
	"regexp"
	"strings"
)

// ModalClass is the normative force of a modal trigger.
type ModalClass int

const (
	ModalObligation ModalClass = iota
	ModalPermission
	ModalProhibition
	ModalExclusion
)

// String returns the serialized label for a modal class.
func (m ModalClass) String() string {
	switch m {
	case ModalObligation:
		return "obligation"
	case ModalPermission:
		return "permission"
	case ModalProhibition:
		return "prohibition"
	case ModalExclusion:
		return "exclusion"
	default:
		return "unknown"
	}
}

// ModalTrigger is one entry of the modal lexicon. Phrase is a folded
// token sequence; Canonical is the form that participates in identity
// hashing so that surface variants of the same trigger hash alike.
type ModalTrigger struct {
	Phrase    []string
	Class     ModalClass
	Canonical string
}

// ModalTriggers is the modal lexicon, ordered longest-phrase-first so
// that "must not" wins over "must" during matching. Matching is
// token-based within clause spans; there is no whole-document regex.
var ModalTriggers = []ModalTrigger{
	{Phrase: []string{"is", "required", "to"}, Class: ModalObligation, Canonical: "is required to"},
	{Phrase: []string{"does", "not", "apply"}, Class: ModalExclusion, Canonical: "does not apply"},
	{Phrase: []string{"do", "not", "apply"}, Class: ModalExclusion, Canonical: "does not apply"},
	{Phrase: []string{"does", "not", "affect"}, Class: ModalExclusion, Canonical: "does not affect"},
	{Phrase: []string{"except", "that"}, Class: ModalExclusion, Canonical: "except that"},
	{Phrase: []string{"not", "apply"}, Class: ModalExclusion, Canonical: "does not apply"},
	{Phrase: []string{"must", "not"}, Class: ModalProhibition, Canonical: "must not"},
	{Phrase: []string{"shall", "not"}, Class: ModalProhibition, Canonical: "must not"},
	{Phrase: []string{"may", "not"}, Class: ModalProhibition, Canonical: "must not"},
	{Phrase: []string{"is", "to"}, Class: ModalObligation, Canonical: "must"},
	{Phrase: []string{"must"}, Class: ModalObligation, Canonical: "must"},
	{Phrase: []string{"shall"}, Class: ModalObligation, Canonical: "must"},
	{Phrase: []string{"required"}, Class: ModalObligation, Canonical: "must"},
	{Phrase: []string{"may"}, Class: ModalPermission, Canonical: "may"},
}

// ConditionType classifies a condition marker.
type ConditionType string

const (
	CondIf        ConditionType = "if"
	CondUnless    ConditionType = "unless"
	CondExcept    ConditionType = "except"
	CondSubjectTo ConditionType = "subject_to"
)

// ConditionMarker is a folded marker phrase that opens a condition span.
type ConditionMarker struct {
	Phrase []string
	Type   ConditionType
}

// ConditionMarkers lists the condition openers, longest-first.
var ConditionMarkers = []ConditionMarker{
	{Phrase: []string{"provided", "that"}, Type: CondIf},
	{Phrase: []string{"subject", "to"}, Type: CondSubjectTo},
	{Phrase: []string{"except", "that"}, Type: CondExcept},
	{Phrase: []string{"except", "where"}, Type: CondExcept},
	{Phrase: []string{"unless"}, Type: CondUnless},
	{Phrase: []string{"except"}, Type: CondExcept},
	{Phrase: []string{"if"}, Type: CondIf},
	{Phrase: []string{"where"}, Type: CondIf},
}

// ExceptionMarkers open EXCEPTION nodes in the logic tree. "unless"
// deliberately stays out: it opens a CONDITION of type unless instead.
var ExceptionMarkers = [][]string{
	{"except", "as", "provided", "in"},
	{"except", "that"},
	{"except", "where"},
	{"except"},
}

// ClauseSeparators are coordinating markers that split a sentence into
// separate clauses when they join two finite clauses.
var ClauseSeparators = [][]string{
	{";"},
	{"and"},
	{"but"},
	{"or"},
}

// Lifecycle trigger phrases. Activation and termination attach only on
// these explicit phrasings; there is no inferred "now" semantics.
var (
	ActivationMarkers = [][]string{
		{"comes", "into", "force"},
		{"come", "into", "force"},
		{"takes", "effect"},
		{"take", "effect"},
		{"commences", "on"},
		{"commencing", "on"},
		{"on", "and", "from"},
	}
	TerminationMarkers = [][]string{
		{"ceases", "to", "have", "effect"},
		{"cease", "to", "have", "effect"},
		{"is", "repealed", "on"},
		{"expires", "on"},
		{"expires"},
	}
)

// Scope marker phrases, attachment-only: they never gate obligation
// existence.
var (
	TimeMarkers    = [][]string{{"during"}, {"before"}, {"after"}, {"within"}}
	PlaceMarkers   = [][]string{{"in", "a", "public", "place"}, {"on", "the", "premises"}, {"within", "the", "area"}}
	ContextMarkers = [][]string{{"for", "the", "purposes", "of"}, {"in", "connection", "with"}, {"in", "the", "course", "of"}}
)

// EdgeKind is the closed vocabulary of cross-document edge kinds.
type EdgeKind string

const (
	EdgeRepeals    EdgeKind = "repeals"
	EdgeModifies   EdgeKind = "modifies"
	EdgeReferences EdgeKind = "references"
	EdgeCites      EdgeKind = "cites"
)

// CrossDocGrammar is the frozen, case-insensitive edge trigger grammar.
// The patterns run against folded clause text, so case and OCR spacing
// variants are already collapsed before matching.
var CrossDocGrammar = []struct {
	Kind    EdgeKind
	Pattern *regexp.Regexp
}{
	{EdgeRepeals, regexp.MustCompile(`\b(repeals?|revokes?|ceases to have effect)\b`)},
	{EdgeModifies, regexp.MustCompile(`\b(amends?|modif(?:y|ies)|varies|updates)\b`)},
	{EdgeReferences, regexp.MustCompile(`\b(see|refer to|as provided in|as set out in)\b`)},
	{EdgeCites, regexp.MustCompile(`\b(cites?|cited in|as cited in)\b`)},
}

// ForbiddenEdgeMarkers must never produce edges, even when a resolvable
// target is present. Matching one of these suppresses the edge outright.
var ForbiddenEdgeMarkers = regexp.MustCompile(`\b(conflicts?|overrides?|prevails?|controls?)\b`)

// Citation grammars, applied to rendered clause text (folded).
var (
	// WorkPattern matches instrument names such as
	// "graffiti control act 2008 (nsw)" or "crimes act 1900". The
	// jurisdiction parenthetical tolerates interior whitespace because
	// the rendered surface spaces out bracket tokens: "( nsw )".
	WorkPattern = regexp.MustCompile(
		`\b((?:[a-z][a-z'-]*\s+){0,6}(?:act|regulation|regulations|code|ordinance|rules))\s+(\d{4})(?:\s*\(\s*([a-z]{2,4})\s*\))?`)

	// TitleWorkPattern matches instrument names in their original casing,
	// e.g. "Graffiti Control Act 2008 (NSW)". The capitalized run pins
	// the start of the name, which the folded grammar cannot recover.
	TitleWorkPattern = regexp.MustCompile(
		`\b((?:[A-Z][A-Za-z'-]*\s+){0,6}(?:Act|Regulation|Regulations|Code|Ordinance|Rules))\s+(\d{4})(?:\s*\(\s*([A-Za-z]{2,4})\s*\))?`)

	// PinpointPattern matches internal structural references such as
	// "section 10", "clause 4.2", "part 4", "schedule 2", "division iii".
	PinpointPattern = regexp.MustCompile(
		`\b(section|sections|clause|clauses|subsection|paragraph|part|schedule|division|article)\s+(\d+[a-z]?(?:\.\d+)*|[ivxlcdm]+)\b`)

	// BracketedRefPattern matches parenthetical cross-references such as
	// "(see part 4)" or "(ref. 4.5)".
	BracketedRefPattern = regexp.MustCompile(`\(\s*(?:see|ref\.?)\s+([^)]+?)\s*\)`)
)

// MatchPhrase reports whether phrase occurs in folded at index i.
func MatchPhrase(folded []string, i int, phrase []string) bool {
	if i+len(phrase) > len(folded) {
		return false
	}
	for j, w := range phrase {
		if folded[i+j] != w {
			return false
		}
	}
	return true
}

// MatchAnyPhrase returns the length of the first phrase in phrases that
// occurs in folded at index i, or 0 when none matches. Phrases are tried
// in order, so callers list longer phrases first.
func MatchAnyPhrase(folded []string, i int, phrases [][]string) int {
	for _, p := range phrases {
		if MatchPhrase(folded, i, p) {
			return len(p)
		}
	}
	return 0
}

// FindPhrase returns the first index at or after from where phrase
// occurs in folded, or -1.
func FindPhrase(folded []string, from int, phrase []string) int {
	for i := from; i+len(phrase) <= len(folded); i++ {
		if MatchPhrase(folded, i, phrase) {
			return i
		}
	}
	return -1
}

// Render joins folded tokens into a single matching surface for the
// regex grammars, tracking the token index that produced each byte so
// regex matches can be mapped back to token spans. The space between
// two numeral tokens is dropped — the token-level counterpart of
// token.JoinNumeral — so an OCR-split year like "20 08" still matches
// the citation grammars.
func Render(folded []string) (string, []int) {
	var b strings.Builder
	byteTok := make([]int, 0, len(folded)*6)
	for i, w := range folded {
		if i > 0 && !numeralJoin(folded[i-1], w) {
			b.WriteByte(' ')
			byteTok = append(byteTok, i-1)
		}
		for range []byte(w) {
			byteTok = append(byteTok, i)
		}
		b.WriteString(w)
	}
	return b.String(), byteTok
}

// numeralJoin reports whether the gap between two adjacent tokens lies
// inside an OCR-split numeral.
func numeralJoin(prev, next string) bool {
	if prev == "" || next == "" {
		return false
	}
	return isNumeralByte(prev[len(prev)-1]) && isNumeralByte(next[0])
}

func isNumeralByte(c byte) bool {
	return (c >= '0' && c <= '9') || c == '.'
}
