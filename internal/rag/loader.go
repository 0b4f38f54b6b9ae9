package rag

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
)

// ErrUnsupportedFormat is returned for files LoadDocument cannot read.
var ErrUnsupportedFormat = errors.New("unsupported document format")

// LoadDocument reads a PDF, text or markdown file into pages. Plain text files
// are split into pages on form feed characters.
func LoadDocument(path string) (Document, error) {
	doc := Document{Source: filepath.Base(path)}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		pages, err := loadPDF(path)
		if err != nil {
			return Document{}, err
		}
		doc.Pages = pages
	case ".txt", ".md", ".markdown":
		raw, err := os.ReadFile(path)
		if err != nil {
			return Document{}, fmt.Errorf("read %s: %w", doc.Source, err)
		}
		doc.Pages = SplitPages(string(raw))
	default:
		return Document{}, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(path))
	}
	return doc, nil
}

// SplitPages splits text on form feeds, numbering pages from zero.
func SplitPages(text string) []Page {
	parts := strings.Split(text, "\f")
	pages := make([]Page, 0, len(parts))
	for i, part := range parts {
		pages = append(pages, Page{Number: i, Text: part})
	}
	return pages
}

func loadPDF(path string) ([]Page, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	total := r.NumPage()
	pages := make([]Page, 0, total)
	for i := 1; i <= total; i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		text, err := p.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("extract page %d: %w", i, err)
		}
		pages = append(pages, Page{Number: i - 1, Text: text})
	}
	return pages, nil
}
