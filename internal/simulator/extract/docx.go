package extract

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strings"
)

const docxType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"

// DOCX handles Word documents.
type DOCX struct{}

// NewDOCX creates a DOCX extractor.
func NewDOCX() *DOCX {
	return &DOCX{}
}

// Name returns the extractor name.
func (d *DOCX) Name() string { return "docx" }

// ContentTypes returns the media types this extractor handles.
func (d *DOCX) ContentTypes() []string {
	return []string{docxType}
}

// Priority returns the selection priority.
func (d *DOCX) Priority() int { return 50 }

// Extract reads word/document.xml, one paragraph per line.
// The title comes from docProps/core.xml when present.
func (d *DOCX) Extract(content []byte, filename string) (Result, error) {
	zr, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return Result{}, fmt.Errorf("%w: %w", ErrUnreadable, err)
	}

	body, ok, err := readZipFile(zr, "word/document.xml")
	if err != nil {
		return Result{}, err
	}
	if !ok {
		return Result{}, fmt.Errorf("%w: missing word/document.xml", ErrUnreadable)
	}

	var doc docxDocument
	if err := xml.Unmarshal(body, &doc); err != nil {
		return Result{}, fmt.Errorf("%w: %w", ErrUnreadable, err)
	}

	title := titleFromName(filename)
	if core, ok, _ := readZipFile(zr, "docProps/core.xml"); ok {
		var props docxCore
		if xml.Unmarshal(core, &props) == nil && strings.TrimSpace(props.Title) != "" {
			title = strings.TrimSpace(props.Title)
		}
	}

	return Result{Title: title, Text: doc.text()}, nil
}

type docxDocument struct {
	Paragraphs []struct {
		Runs []struct {
			Text []string `xml:"t"`
		} `xml:"r"`
	} `xml:"body>p"`
}

func (d docxDocument) text() string {
	var b strings.Builder
	for i, p := range d.Paragraphs {
		if i > 0 {
			b.WriteByte('\n')
		}
		for _, r := range p.Runs {
			for _, t := range r.Text {
				b.WriteString(t)
			}
		}
	}
	return strings.TrimSpace(b.String())
}

type docxCore struct {
	Title string `xml:"title"`
}

func readZipFile(zr *zip.Reader, name string) ([]byte, bool, error) {
	for _, f := range zr.File {
		if f.Name != name {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, true, fmt.Errorf("%w: %w", ErrUnreadable, err)
		}
		defer rc.Close()
		data, err := io.ReadAll(rc)
		if err != nil {
			return nil, true, fmt.Errorf("%w: %w", ErrUnreadable, err)
		}
		return data, true, nil
	}
	return nil, false, nil
}
