package domain

import (
	"fmt"
	"time"
)

// Session identifies one document-ingestion-and-chat lifecycle.
type Session struct {
	// ID is the opaque identifier assigned by the server at submission.
	ID string `json:"sessionId"`

	// OwnerEmail is the identity the session was submitted under.
	OwnerEmail string `json:"ownerEmail"`

	// Stage is the last applied pipeline stage.
	Stage PipelineStage `json:"pipelineStage"`

	// ResultHandle addresses the ingestion output.
	// Present if and only if Stage is StageReady.
	ResultHandle string `json:"resultHandle,omitempty"`

	// CreatedAt is when the session was submitted.
	CreatedAt time.Time `json:"createdAt"`
}

// Validate checks the result handle invariant.
func (s *Session) Validate() error {
	if s.ID == "" {
		return fmt.Errorf("%w: session id is required", ErrInvalidInput)
	}
	hasHandle := s.ResultHandle != ""
	if hasHandle != (s.Stage == StageReady) {
		return fmt.Errorf("%w: result handle present=%t at stage %q", ErrInvalidInput, hasHandle, s.Stage)
	}
	return nil
}

// IsReady reports whether the pipeline reached its success terminal.
func (s *Session) IsReady() bool {
	return s != nil && s.Stage == StageReady && s.ResultHandle != ""
}

// MarkReady moves the session to the success terminal with its result handle.
// An empty handle is derived from the session id.
func (s *Session) MarkReady(handle string) {
	if handle == "" {
		handle = DeriveResultHandle(s.ID)
	}
	s.Stage = StageReady
	s.ResultHandle = handle
}

// DeriveResultHandle returns the conventional artifact key for a session.
func DeriveResultHandle(sessionID string) string {
	return "embeddings/" + sessionID + ".json"
}
