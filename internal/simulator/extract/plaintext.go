package extract

import (
	"strings"
	"unicode/utf8"
)

// PlainText handles text/plain and other unformatted text.
type PlainText struct{}

// NewPlainText creates a plain text extractor.
func NewPlainText() *PlainText {
	return &PlainText{}
}

// Name returns the extractor name.
func (p *PlainText) Name() string { return "plaintext" }

// ContentTypes returns the media types this extractor handles.
func (p *PlainText) ContentTypes() []string {
	return []string{"text/plain", "text/csv", "application/json"}
}

// Priority returns the lowest priority so format specific extractors win.
func (p *PlainText) Priority() int { return 10 }

// Extract returns the content with line endings normalised.
func (p *PlainText) Extract(content []byte, filename string) (Result, error) {
	if !utf8.Valid(content) {
		return Result{}, ErrUnreadable
	}
	text := strings.ReplaceAll(string(content), "\r\n", "\n")
	return Result{Title: titleFromName(filename), Text: strings.TrimSpace(text)}, nil
}
