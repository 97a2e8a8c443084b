// Package chunker splits extracted document text into overlapping windows
// suitable for embedding and retrieval.
package chunker

import "strings"

const (
	// DefaultMaxChars is the default chunk window size in runes
	DefaultMaxChars = 1200
	// DefaultOverlap is the default number of runes shared between
	// consecutive chunks
	DefaultOverlap = 200
)

// Chunker splits text into rune windows of at most MaxChars with Overlap
// runes shared between consecutive chunks. Splitting is deterministic for a
// given (text, MaxChars, Overlap) triple.
type Chunker struct {
	MaxChars int
	Overlap  int
}

// New returns a chunker with the given window size and overlap, falling back
// to defaults for non-positive sizes.
func New(maxChars, overlap int) *Chunker {
	if maxChars <= 0 {
		maxChars = DefaultMaxChars
	}
	if overlap < 0 {
		overlap = 0
	}
	return &Chunker{MaxChars: maxChars, Overlap: overlap}
}

// Split divides text into ordered overlapping chunks. Empty or
// whitespace-only input yields zero chunks; text shorter than the window
// yields exactly one chunk.
func (c *Chunker) Split(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	runes := []rune(text)
	if len(runes) <= c.MaxChars {
		return []string{text}
	}

	step := c.MaxChars - c.Overlap
	if step <= 0 {
		step = c.MaxChars
	}

	var out []string
	for start := 0; start < len(runes); start += step {
		end := start + c.MaxChars
		if end > len(runes) {
			end = len(runes)
		}
		out = append(out, string(runes[start:end]))
		if end == len(runes) {
			break
		}
	}
	return out
}
