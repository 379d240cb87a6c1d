// Package ingest adapts raw document inputs to the canonical body text
// and page map consumed by the pipeline. It is the collaborator-side
// surface: page maps feed provenance display only and never participate
// in identity or diffing.
package ingest

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
)

// PageRange is a half-open character range [Start, End) of the body
// text belonging to one page.
type PageRange struct {
	Page  int `json:"page"`
	Start int `json:"start"`
	End   int `json:"end"`
}

// PageMap locates pages within the canonical body text.
type PageMap []PageRange

// PageOf returns the page containing the given character offset, or 0
// when the offset falls outside every page.
func (pm PageMap) PageOf(offset int) int {
	i := sort.Search(len(pm), func(i int) bool { return pm[i].End > offset })
	if i < len(pm) && pm[i].Start <= offset {
		return pm[i].Page
	}
	return 0
}

// Document is one ingested document revision: immutable canonical body
// text plus its optional page map.
type Document struct {
	DocID string  `json:"doc_id"`
	RevID string  `json:"rev_id"`
	Body  string  `json:"body"`
	Pages PageMap `json:"pages,omitempty"`
}

// revID derives the revision identifier from the body content, so the
// same text always maps to the same revision.
func revID(body string) string {
	h := sha256.Sum256([]byte(body))
	return hex.EncodeToString(h[:8])
}
