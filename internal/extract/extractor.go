// Package extract turns raw document bytes into plain text. Extraction
// failures yield empty text rather than errors; the document store treats an
// empty result as "unprocessed".
package extract

import (
	"path/filepath"
	"strings"
	"unicode/utf8"
)

// Extractor converts raw document bytes of a known file type into text
type Extractor interface {
	Extract(content []byte, fileType string) (string, error)
	Supports(fileType string) bool
}

// FileType derives the canonical lowercase type from a filename
func FileType(filename string) string {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(filename)), ".")
	return ext
}

// Plain passes UTF-8 text through unchanged
type Plain struct{}

// NewPlain creates a plain text extractor
func NewPlain() *Plain {
	return &Plain{}
}

// Supports reports whether the file type holds plain text
func (p *Plain) Supports(fileType string) bool {
	switch fileType {
	case "txt", "md", "csv", "text":
		return true
	}
	return false
}

// Extract returns the content as text. Invalid UTF-8 yields empty text.
func (p *Plain) Extract(content []byte, fileType string) (string, error) {
	if !utf8.Valid(content) {
		return "", nil
	}
	return strings.TrimSpace(string(content)), nil
}

// Dispatcher routes extraction to the first extractor supporting the type
type Dispatcher struct {
	extractors []Extractor
}

// NewDispatcher creates a dispatcher over the given extractors
func NewDispatcher(extractors ...Extractor) *Dispatcher {
	return &Dispatcher{extractors: extractors}
}

// Default returns a dispatcher with the built-in extractors
func Default() *Dispatcher {
	return NewDispatcher(NewPlain(), NewFitz())
}

// Supports reports whether any registered extractor handles the type
func (d *Dispatcher) Supports(fileType string) bool {
	for _, e := range d.extractors {
		if e.Supports(fileType) {
			return true
		}
	}
	return false
}

// Extract runs the matching extractor; unsupported types yield empty text
func (d *Dispatcher) Extract(content []byte, fileType string) (string, error) {
	for _, e := range d.extractors {
		if e.Supports(fileType) {
			return e.Extract(content, fileType)
		}
	}
	return "", nil
}
