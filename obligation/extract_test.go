package obligation

import (
	"testing"

	"github.com/danharker/lexsem/lexicon"
	"github.com/danharker/lexsem/logictree"
	"github.com/danharker/lexsem/reference"
	"github.com/danharker/lexsem/token"
)

// pipeline runs tokenize → tree → references → extract → normalize with
// the default configuration.
func pipeline(t *testing.T, body string) []Atom {
	t.Helper()
	st := token.Tokenize("doc", "r1", body)
	tree := logictree.Build(st, logictree.Options{})
	refs := reference.FromTree(tree)
	return Normalize(Extract(tree, refs, DefaultExtractionConfig()))
}

func TestExtractObligation(t *testing.T) {
	atoms := pipeline(t, "The operator shall maintain inspection records.")

	if len(atoms) != 1 {
		t.Fatalf("expected 1 atom, got %d: %+v", len(atoms), atoms)
	}
	a := atoms[0]
	if a.Type != Obligation {
		t.Errorf("type: got %s", a.Type)
	}
	if a.ModalityTrigger != "shall" {
		t.Errorf("trigger: got %q", a.ModalityTrigger)
	}
	if a.Actor != "the operator" {
		t.Errorf("actor: got %q", a.Actor)
	}
	if a.Action != "maintain" {
		t.Errorf("action: got %q", a.Action)
	}
	if a.Object != "inspection records" {
		t.Errorf("object: got %q", a.Object)
	}
}

func TestExtractionOCRNoiseInvariance(t *testing.T) {
	clean := pipeline(t, "The operator must comply with requirements of the Graffiti Control Act 2008.")
	noisy := pipeline(t, "The  operator must comply with requirements of the Graﬃti Control Act 20 08.")

	if len(clean) == 0 {
		t.Fatal("expected at least one atom from the clean body")
	}
	if len(noisy) != len(clean) {
		t.Fatalf("spacing and ligature noise changed the atom count: %d vs %d", len(noisy), len(clean))
	}
	if len(clean[0].ReferenceIdentities) != 1 {
		t.Fatalf("expected the citation bound to the atom, got %v", clean[0].ReferenceIdentities)
	}

	if d := Diff(IdentitySet(clean), IdentitySet(noisy)); !d.Empty() {
		t.Errorf("OCR noise manufactured an obligation diff: %+v", d)
	}
}

func TestExtractProhibition(t *testing.T) {
	atoms := pipeline(t, "The operator must not falsify records.")

	if len(atoms) != 1 {
		t.Fatalf("expected 1 atom, got %d", len(atoms))
	}
	if atoms[0].Type != Prohibition {
		t.Errorf("type: got %s", atoms[0].Type)
	}
	if atoms[0].ModalityTrigger != "must not" {
		t.Errorf("trigger: got %q", atoms[0].ModalityTrigger)
	}
}

func TestExtractCondition(t *testing.T) {
	atoms := pipeline(t, "If the regulator approves, the operator must act.")

	if len(atoms) != 1 {
		t.Fatalf("expected 1 atom, got %d", len(atoms))
	}
	a := atoms[0]
	if len(a.Conditions) != 1 {
		t.Fatalf("expected 1 condition, got %d", len(a.Conditions))
	}
	c := a.Conditions[0]
	if c.Type != lexicon.CondIf {
		t.Errorf("condition type: got %q", c.Type)
	}
	// The condition text excludes the marker and stays out of the action.
	if c.Text != "the regulator approves" {
		t.Errorf("condition text: got %q", c.Text)
	}
	if a.Actor != "the operator" {
		t.Errorf("actor must skip the condition span, got %q", a.Actor)
	}
}

func TestExtractExclusionWithReference(t *testing.T) {
	atoms := pipeline(t, "Section 4 does not apply to minors.")

	if len(atoms) != 1 {
		t.Fatalf("expected 1 atom, got %d", len(atoms))
	}
	a := atoms[0]
	if a.Type != Exclusion {
		t.Errorf("type: got %s", a.Type)
	}
	if len(a.ReferenceIdentities) != 1 {
		t.Errorf("expected the clause-local CR-ID bound, got %v", a.ReferenceIdentities)
	}
	// The subject is claimed by the reference node; an empty actor never
	// suppresses the atom.
	if a.Actor != "" {
		t.Errorf("actor: got %q", a.Actor)
	}
}

func TestExtractNoModalNoAtom(t *testing.T) {
	atoms := pipeline(t, "This instrument is called the Records Ordinance.")
	if len(atoms) != 0 {
		t.Errorf("clause without modal trigger must emit nothing, got %+v", atoms)
	}
}

func TestExtractScopeAttachment(t *testing.T) {
	atoms := pipeline(t, "The operator must report within 30 days.")

	if len(atoms) != 1 {
		t.Fatalf("expected 1 atom, got %d", len(atoms))
	}
	if atoms[0].Scope.Time != "within 30 days" {
		t.Errorf("time scope: got %q", atoms[0].Scope.Time)
	}
}

func TestExtractLifecycleTrigger(t *testing.T) {
	atoms := pipeline(t, "The operator must register when this clause takes effect.")

	if len(atoms) != 1 {
		t.Fatalf("expected 1 atom, got %d", len(atoms))
	}
	if atoms[0].Lifecycle.ActivationTrigger == "" {
		t.Error("expected an activation trigger from the explicit phrasing")
	}

	plain := pipeline(t, "The operator must register.")
	if plain[0].Lifecycle.ActivationTrigger != "" {
		t.Errorf("no lifecycle phrasing must mean no trigger, got %q",
			plain[0].Lifecycle.ActivationTrigger)
	}
}

func TestExtractDisabledBindings(t *testing.T) {
	st := token.Tokenize("doc", "r1", "The operator shall maintain records.")
	tree := logictree.Build(st, logictree.Options{})

	on := Extract(tree, nil, DefaultExtractionConfig())
	off := Extract(tree, nil, ExtractionConfig{Source: "extractor"})

	if len(on) != len(off) {
		t.Fatalf("disabling bindings must not change atom count: %d vs %d", len(on), len(off))
	}
	if off[0].Actor != "" || off[0].Action != "" {
		t.Errorf("disabled bindings must stay empty: actor=%q action=%q",
			off[0].Actor, off[0].Action)
	}
	if off[0].Type != on[0].Type || off[0].ModalityTrigger != on[0].ModalityTrigger {
		t.Error("bindings must not change the detected modality")
	}
}

func TestExtractTwoClauses(t *testing.T) {
	atoms := pipeline(t, "The operator must keep records. The regulator may inspect them.")

	if len(atoms) != 2 {
		t.Fatalf("expected 2 atoms, got %d", len(atoms))
	}
	if atoms[0].Type != Obligation || atoms[1].Type != Permission {
		t.Errorf("types: got %s, %s", atoms[0].Type, atoms[1].Type)
	}
	if atoms[0].ClauseID == atoms[1].ClauseID {
		t.Error("atoms of different clauses must carry different clause IDs")
	}
}

func TestNormalizeDedup(t *testing.T) {
	raw := []Atom{
		{ClauseID: "c1", Type: Obligation, ModalityTrigger: "must", Actor: "the operator ", Action: "act"},
		{ClauseID: "c1", Type: Obligation, ModalityTrigger: "must", Actor: "the operator", Action: "act"},
		{ClauseID: "c2", Type: Obligation, ModalityTrigger: "must", Actor: "the operator", Action: "act"},
	}
	out := Normalize(raw)
	if len(out) != 2 {
		t.Fatalf("expected clause-scoped dedup to 2 atoms, got %d", len(out))
	}
	if out[0].Actor != "the operator" {
		t.Errorf("actor not cleaned: %q", out[0].Actor)
	}
	// Inputs stay untouched.
	if raw[0].Actor != "the operator " {
		t.Error("normalize must not mutate its input")
	}
}

func TestNormalizeDropsEmptyConditions(t *testing.T) {
	out := Normalize([]Atom{{
		ClauseID:        "c1",
		ModalityTrigger: "must",
		Conditions: []Condition{
			{Type: lexicon.CondIf, Text: " , "},
			{Type: lexicon.CondUnless, Text: "the regulator waives notice"},
		},
	}})
	if len(out) != 1 {
		t.Fatalf("expected 1 atom, got %d", len(out))
	}
	if len(out[0].Conditions) != 1 {
		t.Fatalf("empty condition must be dropped, got %+v", out[0].Conditions)
	}
	if out[0].Conditions[0].Type != lexicon.CondUnless {
		t.Errorf("surviving condition: got %q", out[0].Conditions[0].Type)
	}
}
