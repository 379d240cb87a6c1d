//go:build cgo

package store

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := New(dbPath)
	if err != nil {
		t.Fatalf("creating store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// ---------------------------------------------------------------------------
// Schema / construction
// ---------------------------------------------------------------------------

func TestNew(t *testing.T) {
	s := newTestStore(t)
	if s.DB() == nil {
		t.Fatal("expected non-nil *sql.DB")
	}
}

func TestNewCreatesParentDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "sub", "dir")
	dbPath := filepath.Join(dir, "test.db")
	s, err := New(dbPath)
	if err != nil {
		t.Fatalf("creating store in nested dir: %v", err)
	}
	s.Close()
}

// ---------------------------------------------------------------------------
// Document CRUD
// ---------------------------------------------------------------------------

func TestUpsertAndGetDocument(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	doc := Document{DocID: "safety-act", Title: "Safety Act 2015", FamilyKey: "safety-act"}
	if err := s.UpsertDocument(ctx, doc); err != nil {
		t.Fatalf("upserting document: %v", err)
	}

	got, err := s.GetDocument(ctx, "safety-act")
	if err != nil {
		t.Fatalf("getting document: %v", err)
	}
	if got.Title != doc.Title {
		t.Errorf("title: got %q, want %q", got.Title, doc.Title)
	}
	if got.FamilyKey != doc.FamilyKey {
		t.Errorf("family_key: got %q, want %q", got.FamilyKey, doc.FamilyKey)
	}
}

func TestGetDocumentNotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.GetDocument(context.Background(), "nonexistent")
	if err != sql.ErrNoRows {
		t.Fatalf("expected sql.ErrNoRows, got %v", err)
	}
}

func TestUpsertDocumentKeepsFieldsOnEmptyUpdate(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.UpsertDocument(ctx, Document{DocID: "d1", Title: "Original", FamilyKey: "fam"}); err != nil {
		t.Fatalf("first upsert: %v", err)
	}
	// Re-upsert with empty title -- existing value must survive.
	if err := s.UpsertDocument(ctx, Document{DocID: "d1"}); err != nil {
		t.Fatalf("second upsert: %v", err)
	}

	got, err := s.GetDocument(ctx, "d1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Title != "Original" {
		t.Errorf("title overwritten by empty update: got %q", got.Title)
	}
	if got.FamilyKey != "fam" {
		t.Errorf("family_key overwritten by empty update: got %q", got.FamilyKey)
	}
}

func TestListDocuments(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c"} {
		if err := s.UpsertDocument(ctx, Document{DocID: id}); err != nil {
			t.Fatalf("insert doc %s: %v", id, err)
		}
	}

	docs, err := s.ListDocuments(ctx)
	if err != nil {
		t.Fatalf("listing: %v", err)
	}
	if len(docs) != 3 {
		t.Fatalf("expected 3 docs, got %d", len(docs))
	}
}

// ---------------------------------------------------------------------------
// Revisions
// ---------------------------------------------------------------------------

func TestInsertAndGetRevision(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.UpsertDocument(ctx, Document{DocID: "d1"}); err != nil {
		t.Fatalf("upsert doc: %v", err)
	}

	rev := Revision{
		DocID: "d1", RevID: "aabbccdd",
		Body:  "1. The operator shall maintain records.",
		Pages: `[{"page":1,"start":0,"end":39}]`,
	}
	if err := s.InsertRevision(ctx, rev); err != nil {
		t.Fatalf("insert revision: %v", err)
	}

	got, err := s.GetRevision(ctx, "d1", "aabbccdd")
	if err != nil {
		t.Fatalf("get revision: %v", err)
	}
	if got.Body != rev.Body {
		t.Errorf("body: got %q", got.Body)
	}
	if got.Pages != rev.Pages {
		t.Errorf("pages: got %q", got.Pages)
	}
}

func TestInsertRevisionIdempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	s.UpsertDocument(ctx, Document{DocID: "d1"})
	rev := Revision{DocID: "d1", RevID: "r1", Body: "text"}
	if err := s.InsertRevision(ctx, rev); err != nil {
		t.Fatalf("first insert: %v", err)
	}
	// Same content-derived rev_id again: must not error.
	if err := s.InsertRevision(ctx, rev); err != nil {
		t.Fatalf("duplicate insert should not error: %v", err)
	}

	revs, err := s.ListRevisions(ctx, "d1")
	if err != nil {
		t.Fatalf("list revisions: %v", err)
	}
	if len(revs) != 1 {
		t.Fatalf("expected 1 revision, got %d", len(revs))
	}
}

func TestLatestRevision(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	s.UpsertDocument(ctx, Document{DocID: "d1"})
	s.InsertRevision(ctx, Revision{DocID: "d1", RevID: "r1", Body: "v1"})
	s.InsertRevision(ctx, Revision{DocID: "d1", RevID: "r2", Body: "v2"})

	got, err := s.LatestRevision(ctx, "d1")
	if err != nil {
		t.Fatalf("latest revision: %v", err)
	}
	// Rows share a CURRENT_TIMESTAMP; the rev_id tiebreak picks r2.
	if got.RevID != "r2" {
		t.Errorf("latest rev: got %q, want r2", got.RevID)
	}
}

func TestLatestRevisionNone(t *testing.T) {
	s := newTestStore(t)

	_, err := s.LatestRevision(context.Background(), "empty")
	if err != sql.ErrNoRows {
		t.Fatalf("expected sql.ErrNoRows, got %v", err)
	}
}

// ---------------------------------------------------------------------------
// Runs and identities
// ---------------------------------------------------------------------------

func seedRevision(t *testing.T, s *Store, docID, revID string) {
	t.Helper()
	ctx := context.Background()
	if err := s.UpsertDocument(ctx, Document{DocID: docID}); err != nil {
		t.Fatalf("upsert doc: %v", err)
	}
	if err := s.InsertRevision(ctx, Revision{DocID: docID, RevID: revID, Body: "body"}); err != nil {
		t.Fatalf("insert revision: %v", err)
	}
}

func TestSaveRunAndHashes(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedRevision(t, s, "d1", "r1")

	run := Run{
		DocID: "d1", RevID: "r1",
		TreeJSON: `{"version":"logic-tree-v1"}`, GraphJSON: `{"version":"obligation.crossdoc.v2"}`,
		AtomCount: 2, RefCount: 1,
	}
	refs := []RefIdentity{
		{Hash: "ref-b", FamilyKey: "privacy-act", Year: 1988, ClauseID: "n_01"},
		{Hash: "ref-a", FamilyKey: "safety-act", Year: 2015, ClauseID: "n_02"},
	}
	obls := []OblIdentity{
		{Hash: "obl-b", ClauseID: "n_01", AtomJSON: `{"type":"duty"}`},
		{Hash: "obl-a", ClauseID: "n_02", AtomJSON: `{"type":"prohibition"}`},
	}

	runID, err := s.SaveRun(ctx, run, refs, obls)
	if err != nil {
		t.Fatalf("save run: %v", err)
	}
	if runID == "" {
		t.Fatal("expected non-empty run id")
	}

	gotRefs, err := s.ReferenceHashes(ctx, "d1", "r1")
	if err != nil {
		t.Fatalf("reference hashes: %v", err)
	}
	if len(gotRefs) != 2 || gotRefs[0] != "ref-a" || gotRefs[1] != "ref-b" {
		t.Errorf("reference hashes not sorted: %v", gotRefs)
	}

	gotObls, err := s.ObligationHashes(ctx, "d1", "r1")
	if err != nil {
		t.Fatalf("obligation hashes: %v", err)
	}
	if len(gotObls) != 2 || gotObls[0] != "obl-a" || gotObls[1] != "obl-b" {
		t.Errorf("obligation hashes not sorted: %v", gotObls)
	}
}

func TestSaveRunReplacesIdentities(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedRevision(t, s, "d1", "r1")

	run := Run{DocID: "d1", RevID: "r1", TreeJSON: "{}", GraphJSON: "{}"}
	if _, err := s.SaveRun(ctx, run,
		[]RefIdentity{{Hash: "old", FamilyKey: "f", ClauseID: "n_01"}},
		nil); err != nil {
		t.Fatalf("first run: %v", err)
	}
	if _, err := s.SaveRun(ctx, run,
		[]RefIdentity{{Hash: "new", FamilyKey: "f", ClauseID: "n_01"}},
		nil); err != nil {
		t.Fatalf("second run: %v", err)
	}

	hashes, err := s.ReferenceHashes(ctx, "d1", "r1")
	if err != nil {
		t.Fatalf("hashes: %v", err)
	}
	if len(hashes) != 1 || hashes[0] != "new" {
		t.Errorf("expected identities replaced, got %v", hashes)
	}
}

func TestLatestRun(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedRevision(t, s, "d1", "r1")

	if _, err := s.SaveRun(ctx, Run{DocID: "d1", RevID: "r1", TreeJSON: `{"n":1}`, GraphJSON: "{}"}, nil, nil); err != nil {
		t.Fatalf("save run: %v", err)
	}

	got, err := s.LatestRun(ctx, "d1", "r1")
	if err != nil {
		t.Fatalf("latest run: %v", err)
	}
	if got.TreeJSON != `{"n":1}` {
		t.Errorf("tree json: got %q", got.TreeJSON)
	}
}

func TestObligationIdentitiesRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedRevision(t, s, "d1", "r1")

	run := Run{DocID: "d1", RevID: "r1", TreeJSON: "{}", GraphJSON: "{}"}
	obls := []OblIdentity{
		{Hash: "h1", ClauseID: "n_01", AtomJSON: `{"actor":"operator"}`},
	}
	if _, err := s.SaveRun(ctx, run, nil, obls); err != nil {
		t.Fatalf("save run: %v", err)
	}

	got, err := s.ObligationIdentities(ctx, "d1", "r1")
	if err != nil {
		t.Fatalf("obligation identities: %v", err)
	}
	if len(got) != 1 || got[0].AtomJSON != `{"actor":"operator"}` {
		t.Errorf("unexpected rows: %+v", got)
	}
}

// ---------------------------------------------------------------------------
// DeleteDocument (cascade)
// ---------------------------------------------------------------------------

func TestDeleteDocument(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedRevision(t, s, "d1", "r1")

	if _, err := s.SaveRun(ctx, Run{DocID: "d1", RevID: "r1", TreeJSON: "{}", GraphJSON: "{}"},
		[]RefIdentity{{Hash: "h", FamilyKey: "f", ClauseID: "n_01"}},
		[]OblIdentity{{Hash: "h", ClauseID: "n_01", AtomJSON: "{}"}}); err != nil {
		t.Fatalf("save run: %v", err)
	}

	if err := s.DeleteDocument(ctx, "d1"); err != nil {
		t.Fatalf("delete document: %v", err)
	}

	if _, err := s.GetDocument(ctx, "d1"); err != sql.ErrNoRows {
		t.Fatalf("expected document gone, got err=%v", err)
	}

	stats, err := s.Stats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.Revisions != 0 || stats.Runs != 0 || stats.References != 0 || stats.Obligations != 0 {
		t.Fatalf("expected cascade to clear all rows, got %+v", stats)
	}
}

// ---------------------------------------------------------------------------
// Stats
// ---------------------------------------------------------------------------

func TestStats(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedRevision(t, s, "d1", "r1")

	stats, err := s.Stats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.Documents != 1 {
		t.Errorf("documents: got %d, want 1", stats.Documents)
	}
	if stats.Revisions != 1 {
		t.Errorf("revisions: got %d, want 1", stats.Revisions)
	}
}
