//go:build cgo

package lexsem

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"

	"github.com/danharker/lexsem/obligation"
)

func newTestEngine(t *testing.T) Engine {
	t.Helper()
	cfg := DefaultConfig()
	cfg.DBPath = filepath.Join(t.TempDir(), "test.db")
	eng, err := New(cfg)
	if err != nil {
		t.Fatalf("creating engine: %v", err)
	}
	t.Cleanup(func() { eng.Close() })
	return eng
}

const sampleBody = "The operator shall maintain inspection records. " +
	"The operator may delegate inspections if the regulator approves the delegation."

func TestAnalyzeText(t *testing.T) {
	eng := newTestEngine(t)
	ctx := context.Background()

	a, err := eng.AnalyzeText(ctx, "safety-act", sampleBody, WithTitle("Safety Act 2015"))
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}

	if a.RunID == "" {
		t.Error("expected non-empty run id")
	}
	if a.RevID == "" {
		t.Error("expected non-empty rev id")
	}
	if len(a.Atoms) == 0 {
		t.Fatal("expected extracted atoms")
	}
	if len(a.Identities) != len(a.Atoms) {
		t.Fatalf("identities (%d) must pair atoms (%d)", len(a.Identities), len(a.Atoms))
	}
	if a.Tree.Version != "logic-tree-v1" {
		t.Errorf("tree payload version: got %q", a.Tree.Version)
	}
	if a.Graph.Version != "obligation.crossdoc.v2" {
		t.Errorf("graph payload version: got %q", a.Graph.Version)
	}
	if len(a.Graph.Nodes) != len(a.Atoms) {
		t.Errorf("graph nodes (%d) must mirror atoms (%d)", len(a.Graph.Nodes), len(a.Atoms))
	}
}

func TestAnalyzeTextDeterministic(t *testing.T) {
	eng := newTestEngine(t)
	ctx := context.Background()

	a1, err := eng.AnalyzeText(ctx, "doc", sampleBody)
	if err != nil {
		t.Fatalf("first analyze: %v", err)
	}
	a2, err := eng.AnalyzeText(ctx, "doc", sampleBody)
	if err != nil {
		t.Fatalf("second analyze: %v", err)
	}

	if a1.RevID != a2.RevID {
		t.Fatalf("same body produced different rev ids: %s vs %s", a1.RevID, a2.RevID)
	}

	j1, _ := json.Marshal(a1.Graph)
	j2, _ := json.Marshal(a2.Graph)
	if string(j1) != string(j2) {
		t.Error("same body produced different graph payloads")
	}

	t1, _ := json.Marshal(a1.Tree)
	t2, _ := json.Marshal(a2.Tree)
	if string(t1) != string(t2) {
		t.Error("same body produced different tree payloads")
	}
}

func TestAnalyzeTextEmpty(t *testing.T) {
	eng := newTestEngine(t)

	_, err := eng.AnalyzeText(context.Background(), "doc", "   ")
	if !errors.Is(err, ErrEmptyDocument) {
		t.Fatalf("expected ErrEmptyDocument, got %v", err)
	}
}

func TestAnalyzeUnsupportedFormat(t *testing.T) {
	eng := newTestEngine(t)

	_, err := eng.Analyze(context.Background(), "doc", "body.docx")
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("expected ErrUnsupportedFormat, got %v", err)
	}
}

func TestDiffRevisions(t *testing.T) {
	eng := newTestEngine(t)
	ctx := context.Background()

	a1, err := eng.AnalyzeText(ctx, "doc", "The operator shall maintain records.")
	if err != nil {
		t.Fatalf("analyze v1: %v", err)
	}
	a2, err := eng.AnalyzeText(ctx, "doc",
		"The operator shall maintain records. The operator must not falsify records.")
	if err != nil {
		t.Fatalf("analyze v2: %v", err)
	}

	diff, err := eng.DiffRevisions(ctx, "doc", a1.RevID, a2.RevID)
	if err != nil {
		t.Fatalf("diff: %v", err)
	}
	if len(diff.Atoms.Added) == 0 {
		t.Error("expected added obligations for the new prohibition")
	}
	if len(diff.Atoms.Removed) != 0 {
		t.Errorf("expected no removed obligations, got %v", diff.Atoms.Removed)
	}
	if len(diff.Atoms.Unchanged) == 0 {
		t.Error("expected the surviving obligation to be unchanged")
	}
}

func TestDiffRevisionsIdentical(t *testing.T) {
	eng := newTestEngine(t)
	ctx := context.Background()

	a, err := eng.AnalyzeText(ctx, "doc", sampleBody)
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}

	diff, err := eng.DiffRevisions(ctx, "doc", a.RevID, a.RevID)
	if err != nil {
		t.Fatalf("diff: %v", err)
	}
	if len(diff.Atoms.Added) != 0 || len(diff.Atoms.Removed) != 0 {
		t.Errorf("identical revisions must diff empty, got +%v -%v",
			diff.Atoms.Added, diff.Atoms.Removed)
	}
}

func TestDiffRevisionsUnknownRevision(t *testing.T) {
	eng := newTestEngine(t)
	ctx := context.Background()

	a, err := eng.AnalyzeText(ctx, "doc", sampleBody)
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}

	_, err = eng.DiffRevisions(ctx, "doc", a.RevID, "deadbeef")
	if !errors.Is(err, ErrRevisionNotFound) {
		t.Fatalf("expected ErrRevisionNotFound, got %v", err)
	}
}

func TestGraphRoundTrip(t *testing.T) {
	eng := newTestEngine(t)
	ctx := context.Background()

	a, err := eng.AnalyzeText(ctx, "doc", sampleBody)
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}

	g, err := eng.Graph(ctx, "doc", a.RevID)
	if err != nil {
		t.Fatalf("graph: %v", err)
	}
	if g.Version != a.Graph.Version {
		t.Errorf("stored graph version: got %q, want %q", g.Version, a.Graph.Version)
	}
	if len(g.Nodes) != len(a.Graph.Nodes) {
		t.Errorf("stored graph nodes: got %d, want %d", len(g.Nodes), len(a.Graph.Nodes))
	}
}

func TestGraphNoRun(t *testing.T) {
	eng := newTestEngine(t)

	_, err := eng.Graph(context.Background(), "doc", "none")
	if !errors.Is(err, ErrRunNotFound) {
		t.Fatalf("expected ErrRunNotFound, got %v", err)
	}
}

func TestListAndDeleteDocuments(t *testing.T) {
	eng := newTestEngine(t)
	ctx := context.Background()

	if _, err := eng.AnalyzeText(ctx, "a", sampleBody); err != nil {
		t.Fatalf("analyze a: %v", err)
	}
	if _, err := eng.AnalyzeText(ctx, "b", sampleBody); err != nil {
		t.Fatalf("analyze b: %v", err)
	}

	docs, err := eng.ListDocuments(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(docs) != 2 {
		t.Fatalf("expected 2 documents, got %d", len(docs))
	}

	if err := eng.Delete(ctx, "a"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	docs, err = eng.ListDocuments(ctx)
	if err != nil {
		t.Fatalf("list after delete: %v", err)
	}
	if len(docs) != 1 || docs[0].DocID != "b" {
		t.Fatalf("expected only b to remain, got %+v", docs)
	}
}

func TestDeleteUnknownDocument(t *testing.T) {
	eng := newTestEngine(t)

	err := eng.Delete(context.Background(), "ghost")
	if !errors.Is(err, ErrDocumentNotFound) {
		t.Fatalf("expected ErrDocumentNotFound, got %v", err)
	}
}

func TestCrossDocumentCitation(t *testing.T) {
	eng := newTestEngine(t)
	ctx := context.Background()

	// Target instrument first, so it is in the corpus for the second run.
	if _, err := eng.AnalyzeText(ctx, "privacy-act",
		"An entity must protect personal information from misuse.",
		WithTitle("Privacy Act 1988")); err != nil {
		t.Fatalf("analyze target: %v", err)
	}

	a, err := eng.AnalyzeText(ctx, "telecom-act",
		"A carrier must handle personal information as provided in the Privacy Act 1988.",
		WithTitle("Telecommunications Act 1997"))
	if err != nil {
		t.Fatalf("analyze citing: %v", err)
	}

	if len(a.References) == 0 {
		t.Fatal("expected extracted reference to the Privacy Act")
	}
	var found bool
	for _, e := range a.Graph.Edges {
		if e.Kind == "references" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected cross-document references edge, edges: %+v", a.Graph.Edges)
	}
}

func TestActivation(t *testing.T) {
	eng := newTestEngine(t)
	ctx := context.Background()

	a, err := eng.AnalyzeText(ctx, "doc",
		"The operator must register when this clause takes effect. The operator must keep records.")
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}

	res, err := eng.Activation(ctx, "doc", a.RevID, []obligation.Fact{
		{Key: "takes effect", Value: "2020-07-01", Source: "gazette"},
	})
	if err != nil {
		t.Fatalf("activation: %v", err)
	}
	if len(res.Active) != 1 {
		t.Errorf("active: got %v", res.Active)
	}
	if len(res.Inactive) != 1 {
		t.Errorf("inactive: got %v", res.Inactive)
	}
	if len(res.Reasons) != len(a.Atoms) {
		t.Errorf("every obligation gets a reason: %d of %d", len(res.Reasons), len(a.Atoms))
	}
}

func TestActivationUnknownRevision(t *testing.T) {
	eng := newTestEngine(t)

	_, err := eng.Activation(context.Background(), "doc", "none", nil)
	if !errors.Is(err, ErrRevisionNotFound) {
		t.Fatalf("expected ErrRevisionNotFound, got %v", err)
	}
}

func TestDiffHashes(t *testing.T) {
	added, removed, unchanged := diffHashes(
		[]string{"a", "b", "c"},
		[]string{"b", "c", "d"})
	if len(added) != 1 || added[0] != "d" {
		t.Errorf("added: got %v", added)
	}
	if len(removed) != 1 || removed[0] != "a" {
		t.Errorf("removed: got %v", removed)
	}
	if len(unchanged) != 2 {
		t.Errorf("unchanged: got %v", unchanged)
	}
}
