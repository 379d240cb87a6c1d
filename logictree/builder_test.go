package logictree

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/danharker/lexsem/token"
)

func build(t *testing.T, body string) *Tree {
	t.Helper()
	st := token.Tokenize("doc", "r1", body)
	return Build(st, Options{})
}

func childTypes(n *Node) []NodeType {
	out := make([]NodeType, len(n.Children))
	for i, c := range n.Children {
		out[i] = c.Type
	}
	return out
}

func TestBuildEmptyStream(t *testing.T) {
	tree := build(t, "")
	if tree.Root == nil {
		t.Fatal("expected a root node")
	}
	if len(tree.Root.Children) != 0 {
		t.Errorf("empty stream must yield a childless root, got %d children", len(tree.Root.Children))
	}
}

func TestBuildConditionModalShape(t *testing.T) {
	tree := build(t, "If the operator is licensed, the operator must notify the regulator unless the regulator waives notice.")

	clauses := tree.Clauses()
	if len(clauses) != 1 {
		t.Fatalf("expected 1 clause, got %d", len(clauses))
	}
	got := childTypes(clauses[0])
	want := []NodeType{Condition, Modal, Condition}
	if len(got) != len(want) {
		t.Fatalf("clause children: got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("clause children: got %v, want %v", got, want)
		}
	}

	// A leading "if" closes at the first top-level comma.
	lead := clauses[0].Children[0]
	if lead.Marker != "if" {
		t.Errorf("leading condition marker: got %q", lead.Marker)
	}
	if text := tree.Stream().Text(lead.Span); text != "If the operator is licensed" {
		t.Errorf("leading condition span text: %q", text)
	}

	// An embedded "unless" runs to the clause end.
	tail := clauses[0].Children[2]
	if tail.Marker != "unless" {
		t.Errorf("embedded condition marker: got %q", tail.Marker)
	}
	if tail.Span.End != clauses[0].Span.End {
		t.Errorf("embedded condition must extend to clause end: [%d,%d) vs clause end %d",
			tail.Span.Start, tail.Span.End, clauses[0].Span.End)
	}
}

func TestBuildModalMarkers(t *testing.T) {
	tree := build(t, "The operator shall not falsify records.")

	clauses := tree.Clauses()
	if len(clauses) != 1 {
		t.Fatalf("expected 1 clause, got %d", len(clauses))
	}
	var modal *Node
	for _, c := range clauses[0].Children {
		if c.Type == Modal {
			modal = c
		}
	}
	if modal == nil {
		t.Fatal("expected a modal node")
	}
	// "shall not" canonicalizes with "must not".
	if modal.Marker != "must not" {
		t.Errorf("modal marker: got %q, want %q", modal.Marker, "must not")
	}
}

func TestBuildCoordinationSplitsClauses(t *testing.T) {
	tree := build(t, "The operator must keep records and the operator must file reports.")

	if got := len(tree.Clauses()); got != 2 {
		t.Fatalf("expected 2 clauses across the coordinator, got %d", got)
	}
}

func TestBuildCoordinationWithoutSecondModal(t *testing.T) {
	tree := build(t, "The operator must keep records and reports.")

	if got := len(tree.Clauses()); got != 1 {
		t.Fatalf("an 'and' joining noun phrases must not split, got %d clauses", got)
	}
}

func TestBuildExceptionNestsReference(t *testing.T) {
	tree := build(t, "The operator must keep records except as provided in section 12.")

	clauses := tree.Clauses()
	if len(clauses) != 1 {
		t.Fatalf("expected 1 clause, got %d", len(clauses))
	}
	var exc *Node
	for _, c := range clauses[0].Children {
		if c.Type == Exception {
			exc = c
		}
	}
	if exc == nil {
		t.Fatalf("expected an exception node, children: %v", childTypes(clauses[0]))
	}
	var ref *Node
	for _, c := range exc.Children {
		if c.Type == Reference {
			ref = c
		}
	}
	if ref == nil {
		t.Fatal("expected the citation nested inside the exception span")
	}
	if text := tree.Stream().Text(ref.Span); text != "section 12" {
		t.Errorf("reference span text: %q", text)
	}
}

func TestBuildReferenceLeftmostLongest(t *testing.T) {
	tree := build(t, "This applies under the Graffiti Control Act 2008 section 4.")

	var refs []*Node
	tree.Walk(func(n *Node) {
		if n.Type == Reference {
			refs = append(refs, n)
		}
	})
	if len(refs) != 2 {
		t.Fatalf("expected work and pinpoint references, got %d", len(refs))
	}
	for i := 1; i < len(refs); i++ {
		if refs[i].Span.Start < refs[i-1].Span.End {
			t.Errorf("reference spans overlap: %+v", refs)
		}
	}
}

func TestBuildReferenceOCRSplitNumeral(t *testing.T) {
	tree := build(t, "This applies under the Graffiti Control Act 20 08.")

	var refs []*Node
	tree.Walk(func(n *Node) {
		if n.Type == Reference {
			refs = append(refs, n)
		}
	})
	if len(refs) != 1 {
		t.Fatalf("a split year must still yield a reference node, got %d", len(refs))
	}
	// The span covers both halves of the split numeral.
	if text := tree.Stream().Text(refs[0].Span); !strings.HasSuffix(text, "Act 20 08") {
		t.Errorf("reference span text: %q", text)
	}
}

func TestBuildDeterministic(t *testing.T) {
	body := "If an entity collects data, the entity must store it securely; the entity must not disclose it except where the law requires disclosure."

	st1 := token.Tokenize("doc", "r1", body)
	st2 := token.Tokenize("doc", "r1", body)
	j1, _ := json.Marshal(Build(st1, Options{}).Export())
	j2, _ := json.Marshal(Build(st2, Options{}).Export())
	if string(j1) != string(j2) {
		t.Error("identical streams produced different payloads")
	}
}

func TestBuildNodeIDsPositionDerived(t *testing.T) {
	a := build(t, "The operator must act.")
	b := build(t, "The operator must act.")

	ids := map[string]string{}
	a.Walk(func(n *Node) { ids[n.ID] = n.Type.String() })
	b.Walk(func(n *Node) {
		if _, ok := ids[n.ID]; !ok {
			t.Errorf("node %s (%s) has no counterpart", n.ID, n.Type)
		}
	})
}

func TestBuildTokenLeaves(t *testing.T) {
	st := token.Tokenize("doc", "r1", "The operator must act.")
	tree := Build(st, Options{IncludeTokens: true})

	clauses := tree.Clauses()
	if len(clauses) != 1 {
		t.Fatalf("expected 1 clause, got %d", len(clauses))
	}
	covered := 0
	for _, c := range clauses[0].Children {
		covered += c.Span.Len()
	}
	if covered != clauses[0].Span.Len() {
		t.Errorf("with token leaves every position is covered: %d of %d",
			covered, clauses[0].Span.Len())
	}
}

func TestExportPayload(t *testing.T) {
	tree := build(t, "The operator must act.")
	p := tree.Export()

	if p.Version != PayloadVersion {
		t.Errorf("version: got %q", p.Version)
	}
	if p.Nodes[0].Type != Root {
		t.Errorf("first exported node must be the root, got %s", p.Nodes[0].Type)
	}
	for i := 1; i < len(p.Nodes); i++ {
		a, b := p.Nodes[i-1], p.Nodes[i]
		if b.Span.Start < a.Span.Start {
			t.Errorf("nodes out of span order at %d", i)
		}
	}

	var structural, sequence int
	for _, e := range p.Edges {
		switch e.Type {
		case Structural:
			structural++
		case Sequence:
			sequence++
		}
	}
	if structural == 0 {
		t.Error("expected structural edges")
	}
	if sequence != 0 {
		t.Errorf("single clause must have no sequence edges, got %d", sequence)
	}
}

func TestSequenceEdgesChainClauses(t *testing.T) {
	tree := build(t, "The operator must keep records. The operator must file reports.")

	var seq []Edge
	for _, e := range tree.Edges() {
		if e.Type == Sequence {
			seq = append(seq, e)
		}
	}
	if len(seq) != 1 {
		t.Fatalf("expected 1 sequence edge between 2 clauses, got %d", len(seq))
	}
	clauses := tree.Clauses()
	if seq[0].SourceID != clauses[0].ID || seq[0].TargetID != clauses[1].ID {
		t.Errorf("sequence edge must chain clauses in document order: %+v", seq[0])
	}
}
