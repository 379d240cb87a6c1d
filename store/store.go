package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// Document represents a row in the documents table.
type Document struct {
	DocID     string `json:"doc_id"`
	Title     string `json:"title"`
	FamilyKey string `json:"family_key"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

// Revision represents a row in the revisions table. Pages carries the
// page map as JSON; identity and diffing never read it.
type Revision struct {
	DocID     string `json:"doc_id"`
	RevID     string `json:"rev_id"`
	Body      string `json:"body"`
	Pages     string `json:"pages,omitempty"`
	CreatedAt string `json:"created_at"`
}

// Run represents one pipeline execution over a revision. TreeJSON and
// GraphJSON hold the exported logic-tree and obligation-graph payloads.
type Run struct {
	RunID      string `json:"run_id"`
	DocID      string `json:"doc_id"`
	RevID      string `json:"rev_id"`
	TreeJSON   string `json:"tree_json"`
	GraphJSON  string `json:"graph_json"`
	AtomCount  int    `json:"atom_count"`
	RefCount   int    `json:"ref_count"`
	DurationMS int64  `json:"duration_ms"`
	CreatedAt  string `json:"created_at"`
}

// RefIdentity is a denormalized CR-ID row for one revision.
type RefIdentity struct {
	Hash         string `json:"hash"`
	FamilyKey    string `json:"family_key"`
	Year         int    `json:"year,omitempty"`
	Jurisdiction string `json:"jurisdiction,omitempty"`
	ClauseID     string `json:"clause_id"`
	CitationText string `json:"citation_text,omitempty"`
	Page         int    `json:"page,omitempty"`
}

// OblIdentity is a denormalized OBL-ID row for one revision. AtomJSON
// holds the normalized atom for display and audit.
type OblIdentity struct {
	Hash     string `json:"hash"`
	ClauseID string `json:"clause_id"`
	AtomJSON string `json:"atom_json"`
}

// Store wraps the SQLite database for all lexsem persistence.
type Store struct {
	db *sql.DB
}

// New opens (or creates) a SQLite database at the given path and
// initialises the schema.
func New(dbPath string) (*Store, error) {
	// Ensure parent directory exists
	dir := filepath.Dir(dbPath)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on&_busy_timeout=30000")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	if _, err := db.Exec(schemaSQL()); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	// Connection pool settings for SQLite.
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(30 * time.Minute)

	s := &Store{db: db}

	if err := s.Migrate(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB for advanced queries.
func (s *Store) DB() *sql.DB {
	return s.db
}

// --- Document operations ---

// UpsertDocument inserts or updates a document record.
func (s *Store) UpsertDocument(ctx context.Context, doc Document) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO documents (doc_id, title, family_key)
		VALUES (?, ?, ?)
		ON CONFLICT(doc_id) DO UPDATE SET
			title = CASE WHEN excluded.title != '' THEN excluded.title ELSE documents.title END,
			family_key = CASE WHEN excluded.family_key != '' THEN excluded.family_key ELSE documents.family_key END,
			updated_at = CURRENT_TIMESTAMP
	`, doc.DocID, doc.Title, doc.FamilyKey)
	return err
}

// GetDocument retrieves a document by ID.
func (s *Store) GetDocument(ctx context.Context, docID string) (*Document, error) {
	doc := &Document{}
	var title, family sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT doc_id, title, family_key, created_at, updated_at
		FROM documents WHERE doc_id = ?
	`, docID).Scan(&doc.DocID, &title, &family, &doc.CreatedAt, &doc.UpdatedAt)
	if err != nil {
		return nil, err
	}
	doc.Title = title.String
	doc.FamilyKey = family.String
	return doc, nil
}

// ListDocuments returns all documents ordered by creation time.
func (s *Store) ListDocuments(ctx context.Context) ([]Document, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT doc_id, title, family_key, created_at, updated_at
		FROM documents ORDER BY created_at DESC, doc_id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		var d Document
		var title, family sql.NullString
		if err := rows.Scan(&d.DocID, &title, &family, &d.CreatedAt, &d.UpdatedAt); err != nil {
			return nil, err
		}
		d.Title = title.String
		d.FamilyKey = family.String
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

// --- Revision operations ---

// InsertRevision records an ingested revision. Re-inserting the same
// (doc_id, rev_id) is a no-op: the rev_id is content-derived, so the
// row cannot differ.
func (s *Store) InsertRevision(ctx context.Context, rev Revision) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO revisions (doc_id, rev_id, body, pages)
		VALUES (?, ?, ?, ?)
	`, rev.DocID, rev.RevID, rev.Body, rev.Pages)
	return err
}

// GetRevision retrieves one revision.
func (s *Store) GetRevision(ctx context.Context, docID, revID string) (*Revision, error) {
	rev := &Revision{}
	var pages sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT doc_id, rev_id, body, pages, created_at
		FROM revisions WHERE doc_id = ? AND rev_id = ?
	`, docID, revID).Scan(&rev.DocID, &rev.RevID, &rev.Body, &pages, &rev.CreatedAt)
	if err != nil {
		return nil, err
	}
	rev.Pages = pages.String
	return rev, nil
}

// ListRevisions returns all revisions of a document, oldest first.
func (s *Store) ListRevisions(ctx context.Context, docID string) ([]Revision, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT doc_id, rev_id, body, pages, created_at
		FROM revisions WHERE doc_id = ? ORDER BY created_at, rev_id
	`, docID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var revs []Revision
	for rows.Next() {
		var r Revision
		var pages sql.NullString
		if err := rows.Scan(&r.DocID, &r.RevID, &r.Body, &pages, &r.CreatedAt); err != nil {
			return nil, err
		}
		r.Pages = pages.String
		revs = append(revs, r)
	}
	return revs, rows.Err()
}

// LatestRevision returns the most recently inserted revision of a
// document, or sql.ErrNoRows when the document has none.
func (s *Store) LatestRevision(ctx context.Context, docID string) (*Revision, error) {
	rev := &Revision{}
	var pages sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT doc_id, rev_id, body, pages, created_at
		FROM revisions WHERE doc_id = ?
		ORDER BY created_at DESC, rev_id DESC LIMIT 1
	`, docID).Scan(&rev.DocID, &rev.RevID, &rev.Body, &pages, &rev.CreatedAt)
	if err != nil {
		return nil, err
	}
	rev.Pages = pages.String
	return rev, nil
}

// --- Run and identity operations ---

// SaveRun records a pipeline run together with the revision's identity
// rows, replacing any identities from earlier runs over the same
// revision (re-analysis is deterministic, so replacement is a no-op in
// content). Returns the generated run ID.
func (s *Store) SaveRun(ctx context.Context, run Run, refs []RefIdentity, obls []OblIdentity) (string, error) {
	runID := uuid.NewString()
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO runs (run_id, doc_id, rev_id, tree_json, graph_json, atom_count, ref_count, duration_ms)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`, runID, run.DocID, run.RevID, run.TreeJSON, run.GraphJSON,
			run.AtomCount, run.RefCount, run.DurationMS); err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx,
			"DELETE FROM reference_identities WHERE doc_id = ? AND rev_id = ?",
			run.DocID, run.RevID); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			"DELETE FROM obligation_identities WHERE doc_id = ? AND rev_id = ?",
			run.DocID, run.RevID); err != nil {
			return err
		}

		refStmt, err := tx.PrepareContext(ctx, `
			INSERT INTO reference_identities (doc_id, rev_id, hash, family_key, year, jurisdiction, clause_id, citation_text, page)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return err
		}
		defer refStmt.Close()
		for _, r := range refs {
			if _, err := refStmt.ExecContext(ctx, run.DocID, run.RevID,
				r.Hash, r.FamilyKey, r.Year, r.Jurisdiction,
				r.ClauseID, r.CitationText, r.Page); err != nil {
				return err
			}
		}

		oblStmt, err := tx.PrepareContext(ctx, `
			INSERT INTO obligation_identities (doc_id, rev_id, hash, clause_id, atom_json)
			VALUES (?, ?, ?, ?, ?)
		`)
		if err != nil {
			return err
		}
		defer oblStmt.Close()
		for _, o := range obls {
			if _, err := oblStmt.ExecContext(ctx, run.DocID, run.RevID,
				o.Hash, o.ClauseID, o.AtomJSON); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return runID, nil
}

// LatestRun returns the newest run for a revision, or sql.ErrNoRows.
func (s *Store) LatestRun(ctx context.Context, docID, revID string) (*Run, error) {
	run := &Run{}
	err := s.db.QueryRowContext(ctx, `
		SELECT run_id, doc_id, rev_id, tree_json, graph_json, atom_count, ref_count, COALESCE(duration_ms, 0), created_at
		FROM runs WHERE doc_id = ? AND rev_id = ?
		ORDER BY created_at DESC, run_id DESC LIMIT 1
	`, docID, revID).Scan(&run.RunID, &run.DocID, &run.RevID,
		&run.TreeJSON, &run.GraphJSON, &run.AtomCount, &run.RefCount,
		&run.DurationMS, &run.CreatedAt)
	if err != nil {
		return nil, err
	}
	return run, nil
}

// ReferenceHashes returns the distinct CR-ID hashes for a revision,
// sorted, ready to feed a diff.
func (s *Store) ReferenceHashes(ctx context.Context, docID, revID string) ([]string, error) {
	return s.hashColumn(ctx,
		"SELECT DISTINCT hash FROM reference_identities WHERE doc_id = ? AND rev_id = ? ORDER BY hash",
		docID, revID)
}

// ObligationHashes returns the distinct OBL-ID hashes for a revision,
// sorted.
func (s *Store) ObligationHashes(ctx context.Context, docID, revID string) ([]string, error) {
	return s.hashColumn(ctx,
		"SELECT DISTINCT hash FROM obligation_identities WHERE doc_id = ? AND rev_id = ? ORDER BY hash",
		docID, revID)
}

// ReferenceIdentities returns the full CR-ID rows for a revision.
func (s *Store) ReferenceIdentities(ctx context.Context, docID, revID string) ([]RefIdentity, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT hash, family_key, year, jurisdiction, clause_id, citation_text, page
		FROM reference_identities WHERE doc_id = ? AND rev_id = ?
		ORDER BY hash, clause_id
	`, docID, revID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []RefIdentity
	for rows.Next() {
		var r RefIdentity
		var jur, citation sql.NullString
		if err := rows.Scan(&r.Hash, &r.FamilyKey, &r.Year, &jur,
			&r.ClauseID, &citation, &r.Page); err != nil {
			return nil, err
		}
		r.Jurisdiction = jur.String
		r.CitationText = citation.String
		ids = append(ids, r)
	}
	return ids, rows.Err()
}

// ObligationIdentities returns the full OBL-ID rows for a revision.
func (s *Store) ObligationIdentities(ctx context.Context, docID, revID string) ([]OblIdentity, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT hash, clause_id, atom_json
		FROM obligation_identities WHERE doc_id = ? AND rev_id = ?
		ORDER BY hash, clause_id
	`, docID, revID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []OblIdentity
	for rows.Next() {
		var o OblIdentity
		if err := rows.Scan(&o.Hash, &o.ClauseID, &o.AtomJSON); err != nil {
			return nil, err
		}
		ids = append(ids, o)
	}
	return ids, rows.Err()
}

// DeleteDocument removes a document and cascades to revisions, runs
// and identities.
func (s *Store) DeleteDocument(ctx context.Context, docID string) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		for _, q := range []string{
			"DELETE FROM reference_identities WHERE doc_id = ?",
			"DELETE FROM obligation_identities WHERE doc_id = ?",
			"DELETE FROM runs WHERE doc_id = ?",
			"DELETE FROM revisions WHERE doc_id = ?",
			"DELETE FROM documents WHERE doc_id = ?",
		} {
			if _, err := tx.ExecContext(ctx, q, docID); err != nil {
				return err
			}
		}
		return nil
	})
}

// DBStats holds counts of key database objects.
type DBStats struct {
	Documents   int `json:"documents"`
	Revisions   int `json:"revisions"`
	Runs        int `json:"runs"`
	References  int `json:"references"`
	Obligations int `json:"obligations"`
}

// Stats returns row counts for the main tables.
func (s *Store) Stats(ctx context.Context) (*DBStats, error) {
	stats := &DBStats{}
	queries := []struct {
		query string
		dest  *int
	}{
		{"SELECT COUNT(*) FROM documents", &stats.Documents},
		{"SELECT COUNT(*) FROM revisions", &stats.Revisions},
		{"SELECT COUNT(*) FROM runs", &stats.Runs},
		{"SELECT COUNT(*) FROM reference_identities", &stats.References},
		{"SELECT COUNT(*) FROM obligation_identities", &stats.Obligations},
	}
	for _, q := range queries {
		if err := s.db.QueryRowContext(ctx, q.query).Scan(q.dest); err != nil {
			return nil, fmt.Errorf("counting %s: %w", q.query, err)
		}
	}
	return stats, nil
}

// --- helpers ---

func (s *Store) hashColumn(ctx context.Context, query string, args ...interface{}) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var hashes []string
	for rows.Next() {
		var h string
		if err := rows.Scan(&h); err != nil {
			return nil, err
		}
		hashes = append(hashes, h)
	}
	return hashes, rows.Err()
}

func (s *Store) inTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}
