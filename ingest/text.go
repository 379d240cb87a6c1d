package ingest

import (
	"fmt"
	"os"
	"strings"
)

// FromText wraps an in-memory body as a single-page document revision.
func FromText(docID, body string) Document {
	body = strings.TrimSpace(body)
	doc := Document{DocID: docID, RevID: revID(body), Body: body}
	if body != "" {
		doc.Pages = PageMap{{Page: 1, Start: 0, End: len([]rune(body))}}
	}
	return doc
}

// FromTextFile reads a plain-text file as a document revision.
func FromTextFile(docID, path string) (Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Document{}, fmt.Errorf("reading text file: %w", err)
	}
	return FromText(docID, string(data)), nil
}
