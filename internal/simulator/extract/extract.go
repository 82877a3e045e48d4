// Package extract pulls readable text out of uploaded documents.
//
// Each Extractor handles a family of content types. The Registry picks the
// highest priority extractor that supports an upload, falling back to the
// file extension when the content type is generic.
package extract

import (
	"errors"
	"mime"
	"path/filepath"
	"sort"
	"strings"
)

var (
	// ErrUnsupported indicates no extractor handles the content type.
	ErrUnsupported = errors.New("unsupported content type")

	// ErrUnreadable indicates the content could not be parsed.
	ErrUnreadable = errors.New("unreadable content")
)

// Result is the text extracted from one document.
type Result struct {
	// Title is the document title, or a name derived from the file name.
	Title string

	// Text is the readable content with markup removed.
	Text string
}

// Words returns the number of whitespace separated words in Text.
func (r Result) Words() int {
	return len(strings.Fields(r.Text))
}

// Extractor converts one family of document formats to text.
type Extractor interface {
	// Name identifies the extractor in logs.
	Name() string

	// ContentTypes lists the media types handled, without parameters.
	ContentTypes() []string

	// Priority orders extractors that share a content type; higher wins.
	Priority() int

	// Extract returns the text of content.
	Extract(content []byte, filename string) (Result, error)
}

// Registry selects extractors by content type.
type Registry struct {
	byType map[string][]Extractor
}

// NewRegistry creates a registry holding extractors.
func NewRegistry(extractors ...Extractor) *Registry {
	r := &Registry{byType: make(map[string][]Extractor)}
	for _, e := range extractors {
		r.Register(e)
	}
	return r
}

// Default returns a registry with every built-in extractor.
func Default() *Registry {
	return NewRegistry(NewPlainText(), NewMarkdown(), NewHTML(), NewDOCX())
}

// Register adds an extractor for each of its content types.
func (r *Registry) Register(e Extractor) {
	for _, ct := range e.ContentTypes() {
		list := append(r.byType[ct], e)
		sort.SliceStable(list, func(i, j int) bool {
			return list[i].Priority() > list[j].Priority()
		})
		r.byType[ct] = list
	}
}

// For returns the extractor for an upload.
// Generic or missing content types are resolved from the file extension.
func (r *Registry) For(contentType, filename string) (Extractor, error) {
	for _, ct := range candidates(contentType, filename) {
		if list := r.byType[ct]; len(list) > 0 {
			return list[0], nil
		}
	}
	return nil, ErrUnsupported
}

// Extract runs the matching extractor on content.
func (r *Registry) Extract(content []byte, contentType, filename string) (Result, error) {
	e, err := r.For(contentType, filename)
	if err != nil {
		return Result{}, err
	}
	return e.Extract(content, filename)
}

// candidates lists media types to try, most specific first.
func candidates(contentType, filename string) []string {
	var out []string
	if mt, _, err := mime.ParseMediaType(contentType); err == nil && mt != "application/octet-stream" {
		out = append(out, mt)
	}
	if ext := strings.ToLower(filepath.Ext(filename)); ext != "" {
		if mt, ok := extensionTypes[ext]; ok {
			out = append(out, mt)
		} else if mt, _, err := mime.ParseMediaType(mime.TypeByExtension(ext)); err == nil {
			out = append(out, mt)
		}
	}
	return out
}

// extensionTypes covers extensions that mime tables often lack.
var extensionTypes = map[string]string{
	".md":       "text/markdown",
	".markdown": "text/markdown",
	".txt":      "text/plain",
	".htm":      "text/html",
	".html":     "text/html",
	".docx":     docxType,
}

// titleFromName derives a readable title from a file name.
func titleFromName(filename string) string {
	name := filepath.Base(filename)
	name = strings.TrimSuffix(name, filepath.Ext(name))
	name = strings.ReplaceAll(name, "_", " ")
	return strings.ReplaceAll(name, "-", " ")
}
