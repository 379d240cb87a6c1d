package store

// schemaSQL is the DDL for all tables. Analysis artifacts are stored
// as JSON payloads keyed by (doc_id, rev_id); identity rows are
// denormalized so cross-revision diffing works in plain SQL.
func schemaSQL() string {
	return `
-- Document registry
CREATE TABLE IF NOT EXISTS documents (
    doc_id TEXT PRIMARY KEY,
    title TEXT,
    family_key TEXT,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
    updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

-- Immutable document revisions (rev_id is content-derived)
CREATE TABLE IF NOT EXISTS revisions (
    doc_id TEXT NOT NULL REFERENCES documents(doc_id) ON DELETE CASCADE,
    rev_id TEXT NOT NULL,
    body TEXT NOT NULL,
    pages JSON,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
    PRIMARY KEY (doc_id, rev_id)
);

-- One row per pipeline execution over a revision
CREATE TABLE IF NOT EXISTS runs (
    run_id TEXT PRIMARY KEY,
    doc_id TEXT NOT NULL,
    rev_id TEXT NOT NULL,
    tree_json JSON NOT NULL,
    graph_json JSON NOT NULL,
    atom_count INTEGER NOT NULL,
    ref_count INTEGER NOT NULL,
    duration_ms INTEGER,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
    FOREIGN KEY (doc_id, rev_id) REFERENCES revisions(doc_id, rev_id) ON DELETE CASCADE
);

-- Reference identities (CR-IDs) per revision
CREATE TABLE IF NOT EXISTS reference_identities (
    doc_id TEXT NOT NULL,
    rev_id TEXT NOT NULL,
    hash TEXT NOT NULL,
    family_key TEXT NOT NULL,
    year INTEGER,
    jurisdiction TEXT,
    clause_id TEXT NOT NULL,
    citation_text TEXT,
    page INTEGER,
    FOREIGN KEY (doc_id, rev_id) REFERENCES revisions(doc_id, rev_id) ON DELETE CASCADE
);

-- Obligation identities (OBL-IDs) per revision
CREATE TABLE IF NOT EXISTS obligation_identities (
    doc_id TEXT NOT NULL,
    rev_id TEXT NOT NULL,
    hash TEXT NOT NULL,
    clause_id TEXT NOT NULL,
    atom_json JSON NOT NULL,
    FOREIGN KEY (doc_id, rev_id) REFERENCES revisions(doc_id, rev_id) ON DELETE CASCADE
);

-- Indexes
CREATE INDEX IF NOT EXISTS idx_revisions_doc ON revisions(doc_id);
CREATE INDEX IF NOT EXISTS idx_runs_rev ON runs(doc_id, rev_id);
CREATE INDEX IF NOT EXISTS idx_refids_rev ON reference_identities(doc_id, rev_id);
CREATE INDEX IF NOT EXISTS idx_refids_hash ON reference_identities(hash);
CREATE INDEX IF NOT EXISTS idx_oblids_rev ON obligation_identities(doc_id, rev_id);
CREATE INDEX IF NOT EXISTS idx_oblids_hash ON obligation_identities(hash);
CREATE INDEX IF NOT EXISTS idx_documents_family ON documents(family_key);
`
}
