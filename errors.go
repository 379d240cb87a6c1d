package lexsem

import "errors"

var (
	// ErrDocumentNotFound is returned when a document ID does not exist.
	ErrDocumentNotFound = errors.New("lexsem: document not found")

	// ErrRevisionNotFound is returned when a revision of a document does
	// not exist.
	ErrRevisionNotFound = errors.New("lexsem: revision not found")

	// ErrRunNotFound is returned when a revision has never been analyzed.
	ErrRunNotFound = errors.New("lexsem: no analysis run for revision")

	// ErrEmptyDocument is returned when a document body contains no text.
	ErrEmptyDocument = errors.New("lexsem: empty document body")

	// ErrUnsupportedFormat is returned for unrecognized file formats.
	ErrUnsupportedFormat = errors.New("lexsem: unsupported document format")

	// ErrIngestFailed is returned when document ingestion fails.
	ErrIngestFailed = errors.New("lexsem: ingestion failed")

	// ErrInvalidConfig is returned for invalid configuration values.
	ErrInvalidConfig = errors.New("lexsem: invalid configuration")
)
