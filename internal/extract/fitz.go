package extract

import (
	"fmt"
	"strings"

	"github.com/gen2brain/go-fitz"
)

// Fitz extracts text from PDF and EPUB documents via MuPDF
type Fitz struct{}

// NewFitz creates a PDF/EPUB extractor
func NewFitz() *Fitz {
	return &Fitz{}
}

// Supports reports whether the file type is handled by MuPDF
func (f *Fitz) Supports(fileType string) bool {
	switch fileType {
	case "pdf", "epub":
		return true
	}
	return false
}

// Extract pulls text from every page, pages separated by blank lines.
// A document MuPDF cannot open yields empty text, not an error.
func (f *Fitz) Extract(content []byte, fileType string) (string, error) {
	doc, err := fitz.NewFromMemory(content)
	if err != nil {
		return "", nil
	}
	defer doc.Close()

	var pages []string
	for i := 0; i < doc.NumPage(); i++ {
		text, err := doc.Text(i)
		if err != nil {
			return "", fmt.Errorf("failed to extract page %d: %w", i, err)
		}
		if strings.TrimSpace(text) != "" {
			pages = append(pages, text)
		}
	}

	return strings.TrimSpace(strings.Join(pages, "\n\n")), nil
}
