// Package lexsem is a deterministic semantic extraction pipeline for
// legal text: it tokenizes a document revision, builds a clause-scoped
// logic tree, extracts citation references and obligation atoms,
// computes their content-addressable identities, and projects an
// obligation graph with literal-trigger edges. The same bytes in always
// produce the same bytes out.
package lexsem

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/danharker/lexsem/ingest"
	"github.com/danharker/lexsem/lexicon"
	"github.com/danharker/lexsem/logictree"
	"github.com/danharker/lexsem/obligation"
	"github.com/danharker/lexsem/obligraph"
	"github.com/danharker/lexsem/reference"
	"github.com/danharker/lexsem/store"
	"github.com/danharker/lexsem/token"
)

// Engine is the main entry point for the extraction pipeline.
type Engine interface {
	// Analyze ingests a file (txt or pdf by extension), runs the full
	// pipeline over the resulting revision and persists the run.
	Analyze(ctx context.Context, docID, path string, opts ...AnalyzeOption) (*Analysis, error)

	// AnalyzeText runs the pipeline over an in-memory body.
	AnalyzeText(ctx context.Context, docID, body string, opts ...AnalyzeOption) (*Analysis, error)

	// DiffRevisions compares the stored identities of two revisions of
	// a document.
	DiffRevisions(ctx context.Context, docID, fromRev, toRev string) (*RevisionDiff, error)

	// Graph returns the stored obligation graph payload for a revision.
	Graph(ctx context.Context, docID, revID string) (*obligraph.Payload, error)

	// Activation evaluates lifecycle state for a revision's obligations
	// against externally supplied facts.
	Activation(ctx context.Context, docID, revID string, facts []obligation.Fact) (*obligation.ActivationResult, error)

	// ListDocuments returns all registered documents.
	ListDocuments(ctx context.Context) ([]Document, error)

	// Delete removes a document with all its revisions and runs.
	Delete(ctx context.Context, docID string) error

	// Store returns the underlying store for diagnostic access.
	Store() *store.Store

	// Close cleanly shuts down the engine.
	Close() error
}

// Analysis is the result of one pipeline run over a revision.
type Analysis struct {
	RunID      string                 `json:"run_id"`
	DocID      string                 `json:"doc_id"`
	RevID      string                 `json:"rev_id"`
	Tree       logictree.Payload      `json:"tree"`
	References []reference.Identified `json:"references"`
	Atoms      []obligation.Atom      `json:"atoms"`
	Identities []obligation.Identity  `json:"identities"`
	Graph      obligraph.Payload      `json:"graph"`
}

// RevisionDiff compares two revisions of one document by identity.
type RevisionDiff struct {
	DocID      string                `json:"doc_id"`
	FromRevID  string                `json:"from_rev_id"`
	ToRevID    string                `json:"to_rev_id"`
	References reference.DiffResult  `json:"references"`
	Atoms      obligation.DiffResult `json:"atoms"`
}

// Document describes a registered document.
type Document struct {
	DocID     string `json:"doc_id"`
	Title     string `json:"title"`
	FamilyKey string `json:"family_key"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

// AnalyzeOption configures a single analysis.
type AnalyzeOption func(*analyzeOptions)

type analyzeOptions struct {
	title     string
	familyKey string
}

// WithTitle records the document title, which also seeds the family key
// used to resolve external citations against this document.
func WithTitle(title string) AnalyzeOption {
	return func(o *analyzeOptions) { o.title = title }
}

// WithFamilyKey sets the citation family key explicitly, overriding the
// one derived from the title.
func WithFamilyKey(key string) AnalyzeOption {
	return func(o *analyzeOptions) { o.familyKey = key }
}

// engine is the concrete implementation of Engine.
type engine struct {
	cfg   Config
	store *store.Store
}

// New creates a new lexsem engine with the given configuration.
func New(cfg Config) (Engine, error) {
	s, err := store.New(cfg.resolveDBPath())
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}
	return &engine{cfg: cfg, store: s}, nil
}

// Analyze ingests a file and runs the pipeline.
func (e *engine) Analyze(ctx context.Context, docID, path string, opts ...AnalyzeOption) (*Analysis, error) {
	var (
		doc ingest.Document
		err error
	)
	switch ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), ".")); ext {
	case "pdf":
		doc, err = ingest.FromPDF(docID, path)
	case "txt", "text", "":
		doc, err = ingest.FromTextFile(docID, path)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, ext)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIngestFailed, err)
	}
	return e.analyze(ctx, doc, opts)
}

// AnalyzeText runs the pipeline over an in-memory body.
func (e *engine) AnalyzeText(ctx context.Context, docID, body string, opts ...AnalyzeOption) (*Analysis, error) {
	return e.analyze(ctx, ingest.FromText(docID, body), opts)
}

func (e *engine) analyze(ctx context.Context, doc ingest.Document, opts []AnalyzeOption) (*Analysis, error) {
	options := &analyzeOptions{}
	for _, o := range opts {
		o(options)
	}
	if doc.Body == "" {
		return nil, ErrEmptyDocument
	}

	familyKey := options.familyKey
	if familyKey == "" {
		name := options.title
		if name == "" {
			name = doc.DocID
		}
		familyKey = deriveFamilyKey(name)
	}

	start := time.Now()
	slog.Info("analyze: starting", "doc_id", doc.DocID, "rev_id", doc.RevID)

	if err := e.store.UpsertDocument(ctx, store.Document{
		DocID: doc.DocID, Title: options.title, FamilyKey: familyKey,
	}); err != nil {
		return nil, fmt.Errorf("upserting document: %w", err)
	}
	pagesJSON, _ := json.Marshal(doc.Pages)
	if err := e.store.InsertRevision(ctx, store.Revision{
		DocID: doc.DocID, RevID: doc.RevID, Body: doc.Body, Pages: string(pagesJSON),
	}); err != nil {
		return nil, fmt.Errorf("inserting revision: %w", err)
	}

	primary, st := e.analyzeRevision(doc, familyKey)

	var corpus []obligraph.Source
	if e.cfg.CrossDocument {
		var err error
		corpus, err = e.loadCorpus(ctx, doc.DocID)
		if err != nil {
			return nil, fmt.Errorf("loading corpus: %w", err)
		}
	}

	graph := obligraph.Project(primary, corpus)

	identified := reference.IdentifyAll(primary.Refs, doc.DocID)
	for i := range identified {
		identified[i].Provenance.Page = pageOf(doc.Pages, st, primary.Refs[i].Span)
	}

	analysis := &Analysis{
		DocID:      doc.DocID,
		RevID:      doc.RevID,
		Tree:       primary.Tree.Export(),
		References: identified,
		Atoms:      primary.Atoms,
		Identities: primary.IDs,
		Graph:      graph.Export(),
	}

	runID, err := e.persistRun(ctx, doc, analysis, time.Since(start))
	if err != nil {
		return nil, err
	}
	analysis.RunID = runID

	slog.Info("analyze: complete",
		"doc_id", doc.DocID, "rev_id", doc.RevID, "run_id", runID,
		"clauses", len(primary.Tree.Clauses()), "references", len(identified),
		"atoms", len(primary.Atoms), "edges", len(analysis.Graph.Edges),
		"elapsed", time.Since(start).Round(time.Millisecond))
	return analysis, nil
}

// analyzeRevision runs the pure pipeline stages over one revision.
// Everything downstream of the token stream is deterministic, so
// re-running it over a stored body reproduces the original artifacts
// byte for byte.
func (e *engine) analyzeRevision(doc ingest.Document, familyKey string) (obligraph.Source, *token.Stream) {
	st := token.Tokenize(doc.DocID, doc.RevID, doc.Body)
	tree := logictree.Build(st, logictree.Options{IncludeTokens: e.cfg.IncludeTokenLeaves})
	refs := reference.FromTree(tree)

	cfg := e.cfg.Extraction
	if cfg.Source == "" {
		cfg = obligation.DefaultExtractionConfig()
	}
	atoms := obligation.Normalize(obligation.Extract(tree, refs, cfg))
	ids := obligation.IdentitySet(atoms)

	return obligraph.Source{
		DocID:     doc.DocID,
		RevID:     doc.RevID,
		FamilyKey: familyKey,
		Tree:      tree,
		Refs:      refs,
		Atoms:     atoms,
		IDs:       ids,
	}, st
}

// loadCorpus re-analyzes the latest revision of every other document in
// the store so cross-document citations can resolve against them.
func (e *engine) loadCorpus(ctx context.Context, excludeDocID string) ([]obligraph.Source, error) {
	docs, err := e.store.ListDocuments(ctx)
	if err != nil {
		return nil, err
	}

	var corpus []obligraph.Source
	for _, d := range docs {
		if d.DocID == excludeDocID {
			continue
		}
		rev, err := e.store.LatestRevision(ctx, d.DocID)
		if err != nil {
			continue // registered but never ingested
		}
		var pages ingest.PageMap
		if rev.Pages != "" {
			_ = json.Unmarshal([]byte(rev.Pages), &pages)
		}
		src, _ := e.analyzeRevision(ingest.Document{
			DocID: rev.DocID, RevID: rev.RevID, Body: rev.Body, Pages: pages,
		}, d.FamilyKey)
		corpus = append(corpus, src)
	}
	return corpus, nil
}

func (e *engine) persistRun(ctx context.Context, doc ingest.Document, a *Analysis, elapsed time.Duration) (string, error) {
	treeJSON, err := json.Marshal(a.Tree)
	if err != nil {
		return "", fmt.Errorf("encoding tree: %w", err)
	}
	graphJSON, err := json.Marshal(a.Graph)
	if err != nil {
		return "", fmt.Errorf("encoding graph: %w", err)
	}

	refRows := make([]store.RefIdentity, 0, len(a.References))
	for _, r := range a.References {
		refRows = append(refRows, store.RefIdentity{
			Hash:         r.Hash,
			FamilyKey:    r.FamilyKey,
			Year:         r.Year,
			Jurisdiction: r.Jurisdiction,
			ClauseID:     r.Provenance.ClauseID,
			CitationText: r.Provenance.AnchorUsed,
			Page:         r.Provenance.Page,
		})
	}

	oblRows := make([]store.OblIdentity, 0, len(a.Atoms))
	for i, atom := range a.Atoms {
		atomJSON, err := json.Marshal(atom)
		if err != nil {
			return "", fmt.Errorf("encoding atom: %w", err)
		}
		oblRows = append(oblRows, store.OblIdentity{
			Hash:     a.Identities[i].Hash,
			ClauseID: atom.ClauseID,
			AtomJSON: string(atomJSON),
		})
	}

	runID, err := e.store.SaveRun(ctx, store.Run{
		DocID:      doc.DocID,
		RevID:      doc.RevID,
		TreeJSON:   string(treeJSON),
		GraphJSON:  string(graphJSON),
		AtomCount:  len(a.Atoms),
		RefCount:   len(a.References),
		DurationMS: elapsed.Milliseconds(),
	}, refRows, oblRows)
	if err != nil {
		return "", fmt.Errorf("saving run: %w", err)
	}
	return runID, nil
}

// DiffRevisions compares stored identity sets of two revisions.
func (e *engine) DiffRevisions(ctx context.Context, docID, fromRev, toRev string) (*RevisionDiff, error) {
	for _, rev := range []string{fromRev, toRev} {
		if _, err := e.store.GetRevision(ctx, docID, rev); err != nil {
			return nil, fmt.Errorf("%w: %s@%s", ErrRevisionNotFound, docID, rev)
		}
		if _, err := e.store.LatestRun(ctx, docID, rev); err != nil {
			return nil, fmt.Errorf("%w: %s@%s", ErrRunNotFound, docID, rev)
		}
	}

	fromRefs, err := e.store.ReferenceHashes(ctx, docID, fromRev)
	if err != nil {
		return nil, err
	}
	toRefs, err := e.store.ReferenceHashes(ctx, docID, toRev)
	if err != nil {
		return nil, err
	}
	fromObls, err := e.store.ObligationHashes(ctx, docID, fromRev)
	if err != nil {
		return nil, err
	}
	toObls, err := e.store.ObligationHashes(ctx, docID, toRev)
	if err != nil {
		return nil, err
	}

	refAdded, refRemoved, refSame := diffHashes(fromRefs, toRefs)
	oblAdded, oblRemoved, oblSame := diffHashes(fromObls, toObls)

	return &RevisionDiff{
		DocID:      docID,
		FromRevID:  fromRev,
		ToRevID:    toRev,
		References: reference.DiffResult{Added: refAdded, Removed: refRemoved, Unchanged: refSame},
		Atoms:      obligation.DiffResult{Added: oblAdded, Removed: oblRemoved, Unchanged: oblSame},
	}, nil
}

// Graph returns the stored graph payload of a revision's latest run.
func (e *engine) Graph(ctx context.Context, docID, revID string) (*obligraph.Payload, error) {
	run, err := e.store.LatestRun(ctx, docID, revID)
	if err != nil {
		return nil, fmt.Errorf("%w: %s@%s", ErrRunNotFound, docID, revID)
	}
	var payload obligraph.Payload
	if err := json.Unmarshal([]byte(run.GraphJSON), &payload); err != nil {
		return nil, fmt.Errorf("decoding stored graph: %w", err)
	}
	return &payload, nil
}

// Activation re-derives the revision's atoms from the stored body and
// evaluates them against the supplied facts. Determinism guarantees the
// derived identities match the stored ones.
func (e *engine) Activation(ctx context.Context, docID, revID string, facts []obligation.Fact) (*obligation.ActivationResult, error) {
	rev, err := e.store.GetRevision(ctx, docID, revID)
	if err != nil {
		return nil, fmt.Errorf("%w: %s@%s", ErrRevisionNotFound, docID, revID)
	}
	doc, err := e.store.GetDocument(ctx, docID)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrDocumentNotFound, docID)
	}

	var pages ingest.PageMap
	if rev.Pages != "" {
		_ = json.Unmarshal([]byte(rev.Pages), &pages)
	}
	src, _ := e.analyzeRevision(ingest.Document{
		DocID: rev.DocID, RevID: rev.RevID, Body: rev.Body, Pages: pages,
	}, doc.FamilyKey)

	res := obligation.Activate(src.Atoms, src.IDs, facts)
	return &res, nil
}

// ListDocuments returns all registered documents.
func (e *engine) ListDocuments(ctx context.Context) ([]Document, error) {
	docs, err := e.store.ListDocuments(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Document, len(docs))
	for i, d := range docs {
		out[i] = Document{
			DocID:     d.DocID,
			Title:     d.Title,
			FamilyKey: d.FamilyKey,
			CreatedAt: d.CreatedAt,
			UpdatedAt: d.UpdatedAt,
		}
	}
	return out, nil
}

// Delete removes a document and all its associated data.
func (e *engine) Delete(ctx context.Context, docID string) error {
	if _, err := e.store.GetDocument(ctx, docID); err != nil {
		return fmt.Errorf("%w: %s", ErrDocumentNotFound, docID)
	}
	return e.store.DeleteDocument(ctx, docID)
}

// Store returns the underlying store for diagnostic access.
func (e *engine) Store() *store.Store {
	return e.store
}

// Close shuts down the engine.
func (e *engine) Close() error {
	return e.store.Close()
}

// deriveFamilyKey reduces a document title to its citation family key.
// A title like "Privacy Act 1988" keys as the instrument name alone, so
// citations (which carry the year separately) resolve against it.
func deriveFamilyKey(name string) string {
	folded := token.JoinNumeral(token.Fold(name))
	if m := lexicon.WorkPattern.FindStringSubmatch(folded); m != nil {
		return reference.Canonicalize(reference.Reference{Work: m[1]}).FamilyKey
	}
	return reference.Canonicalize(reference.Reference{Work: name}).FamilyKey
}

// pageOf resolves a token span to the page of its first character.
func pageOf(pages ingest.PageMap, st *token.Stream, sp token.Span) int {
	if len(pages) == 0 || sp.Start >= st.Len() {
		return 0
	}
	return pages.PageOf(st.Tokens[sp.Start].StartChar)
}

// diffHashes three-way partitions two sorted hash slices.
func diffHashes(before, after []string) (added, removed, unchanged []string) {
	i, j := 0, 0
	for i < len(before) && j < len(after) {
		switch {
		case before[i] == after[j]:
			unchanged = append(unchanged, before[i])
			i++
			j++
		case before[i] < after[j]:
			removed = append(removed, before[i])
			i++
		default:
			added = append(added, after[j])
			j++
		}
	}
	removed = append(removed, before[i:]...)
	added = append(added, after[j:]...)
	return added, removed, unchanged
}
