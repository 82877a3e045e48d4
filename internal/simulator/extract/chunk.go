package extract

import (
	"strings"
	"unicode"
)

// Default chunking values, in runes.
const (
	DefaultChunkSize    = 400
	DefaultChunkOverlap = 80
)

// Chunk is one overlapping window of extracted text.
type Chunk struct {
	Position int
	Text     string
}

// Chunker splits text into overlapping windows.
type Chunker struct {
	size    int
	overlap int
}

// ChunkerOption configures a Chunker.
type ChunkerOption func(*Chunker)

// WithChunkSize sets the window size in runes.
func WithChunkSize(size int) ChunkerOption {
	return func(c *Chunker) {
		if size > 0 {
			c.size = size
		}
	}
}

// WithOverlap sets how many runes consecutive windows share.
func WithOverlap(overlap int) ChunkerOption {
	return func(c *Chunker) {
		if overlap >= 0 {
			c.overlap = overlap
		}
	}
}

// NewChunker creates a chunker. An overlap not smaller than the size
// is reduced to a quarter of the size.
func NewChunker(opts ...ChunkerOption) *Chunker {
	c := &Chunker{size: DefaultChunkSize, overlap: DefaultChunkOverlap}
	for _, opt := range opts {
		opt(c)
	}
	if c.overlap >= c.size {
		c.overlap = c.size / 4
	}
	return c
}

// Split returns the windows of text in order.
func (c *Chunker) Split(text string) []Chunk {
	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}

	step := c.size - c.overlap
	chunks := make([]Chunk, 0, len(runes)/step+1)
	for start := 0; start < len(runes); start += step {
		end := min(start+c.size, len(runes))
		chunks = append(chunks, Chunk{
			Position: len(chunks),
			Text:     strings.TrimSpace(string(runes[start:end])),
		})
		if end == len(runes) {
			break
		}
	}
	return chunks
}

// Best returns the chunk sharing the most words with query.
// Ties go to the earliest chunk; with no chunks ok is false.
func Best(chunks []Chunk, query string) (Chunk, bool) {
	if len(chunks) == 0 {
		return Chunk{}, false
	}

	terms := make(map[string]bool)
	for _, w := range words(query) {
		if len(w) > 2 {
			terms[w] = true
		}
	}

	best, bestScore := 0, -1
	for i, ch := range chunks {
		score := 0
		for _, w := range words(ch.Text) {
			if terms[w] {
				score++
			}
		}
		if score > bestScore {
			best, bestScore = i, score
		}
	}
	return chunks[best], true
}

func words(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}
