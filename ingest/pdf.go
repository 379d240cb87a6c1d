package ingest

import (
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// FromPDF extracts the canonical body text of a PDF and records which
// page contributed each character range. Pages that fail text
// extraction are skipped rather than failing the whole document; OCR
// noise in the surviving text is the pipeline's problem, not ours.
func FromPDF(docID, path string) (Document, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return Document{}, fmt.Errorf("opening PDF: %w", err)
	}
	defer f.Close()

	var body strings.Builder
	var pages PageMap
	offset := 0

	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}

		if offset > 0 {
			body.WriteString("\n")
			offset++
		}
		n := len([]rune(text))
		pages = append(pages, PageRange{Page: i, Start: offset, End: offset + n})
		body.WriteString(text)
		offset += n
	}

	return Document{
		DocID: docID,
		RevID: revID(body.String()),
		Body:  body.String(),
		Pages: pages,
	}, nil
}
