// Package pdf provides a page-aware PDF extractor for the ingest pipeline.
//
// It uses ledongthuc/pdf (BSD-3, pure Go, no CGO). It is a separate
// subpackage so the dependency is only pulled in by users who need PDF
// support.
package pdf

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/rindra/folio/ingest"
)

// Extractor implements ingest.Extractor and ingest.PageExtractor for PDFs.
// Extraction keeps page numbers, which downstream become the page-level
// citations attached to every answer.
type Extractor struct{}

// NewExtractor creates a PDF extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

var (
	_ ingest.Extractor     = (*Extractor)(nil)
	_ ingest.PageExtractor = (*Extractor)(nil)
)

// Extract extracts the document's full text with pages joined by blank lines.
func (e *Extractor) Extract(content []byte) (string, error) {
	pages, err := e.ExtractPages(content)
	if err != nil {
		return "", err
	}
	texts := make([]string, len(pages))
	for i, p := range pages {
		texts[i] = p.Text
	}
	return strings.Join(texts, "\n\n"), nil
}

// ExtractPages extracts text page by page. Pages that cannot be read or
// contain no text are skipped; page numbers are 1-based and preserved, so the
// returned slice can be sparse.
func (e *Extractor) ExtractPages(content []byte) ([]ingest.Page, error) {
	if len(content) == 0 {
		return nil, fmt.Errorf("empty PDF content")
	}

	r, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}

	var pages []ingest.Page
	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue // skip unreadable pages
		}
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		pages = append(pages, ingest.Page{Number: i, Text: text})
	}

	if len(pages) == 0 {
		return nil, fmt.Errorf("pdf: no extractable text")
	}
	return pages, nil
}
