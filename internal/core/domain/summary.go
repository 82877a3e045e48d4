package domain

import (
	"encoding/json"
	"mime"
	"net/http"
	"path/filepath"
	"sort"
	"time"
)

// SessionSummary describes a prior session returned by the backend.
// Filename, Summary and ScoreFeedback are opaque passthrough values.
type SessionSummary struct {
	SessionID     string             `json:"uuid"`
	Filename      string             `json:"filename"`
	CreatedAt     string             `json:"created_at"`
	Summary       string             `json:"summary"`
	ScoreFeedback json.RawMessage    `json:"score_feedback,omitempty"`
	Conversation  []ConversationItem `json:"conversation,omitempty"`
}

// CreatedTime parses CreatedAt, returning the zero time when unparseable.
func (s SessionSummary) CreatedTime() time.Time {
	t, err := time.Parse(time.RFC3339Nano, s.CreatedAt)
	if err != nil {
		return time.Time{}
	}
	return t
}

// PriorSessions is the answer to a prior-session check.
type PriorSessions struct {
	HasPrior bool             `json:"hasPrevious"`
	Sessions []SessionSummary `json:"resumes"`
}

// Latest returns the most recently created session, or nil when there is none.
func (p *PriorSessions) Latest() *SessionSummary {
	if p == nil || !p.HasPrior || len(p.Sessions) == 0 {
		return nil
	}
	sorted := make([]SessionSummary, len(p.Sessions))
	copy(sorted, p.Sessions)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].CreatedTime().After(sorted[j].CreatedTime())
	})
	return &sorted[0]
}

// SubmitTicket is the backend's answer to a submission.
type SubmitTicket struct {
	SessionID    string `json:"uuid"`
	UploadTarget string `json:"upload_url"`
}

// StatusReport is one poll result.
type StatusReport struct {
	Stage        string `json:"status"`
	ResultHandle string `json:"result_handle,omitempty"`
}

// Upload is a document selected for submission.
type Upload struct {
	// Filename is the base name sent to the backend.
	Filename string

	// ContentType is the MIME type used for the upload.
	ContentType string

	// Content is the document body.
	Content []byte
}

// NewUpload builds an upload from a file name and its content.
// The content type comes from the extension, falling back to sniffing.
func NewUpload(name string, content []byte) Upload {
	base := filepath.Base(name)
	ct := mime.TypeByExtension(filepath.Ext(base))
	if ct == "" {
		ct = http.DetectContentType(content)
	}
	return Upload{Filename: base, ContentType: ct, Content: content}
}
