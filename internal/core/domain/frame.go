package domain

import (
	"encoding/json"
	"fmt"
)

// FrameType discriminates frames on the persistent connection.
type FrameType string

// Client to server frames.
const (
	FrameInitial  FrameType = "initial"
	FrameQuestion FrameType = "question"
)

// Server to client frames.
const (
	FrameInitialResponse FrameType = "initial_response"
	FrameTyping          FrameType = "typing"
	FrameFragment        FrameType = "fragment"
	FrameEnd             FrameType = "end"
	FrameServerError     FrameType = "serverError"
)

// legacyFrames maps frame types sent by older servers.
var legacyFrames = map[FrameType]FrameType{
	"stream":     FrameFragment,
	"stream_end": FrameEnd,
	"error":      FrameServerError,
}

// Frame is one JSON object exchanged over the persistent connection.
type Frame struct {
	Type FrameType `json:"type"`

	// Token carries a text delta on fragment frames.
	Token string `json:"token,omitempty"`

	// Message carries a user-visible error on serverError frames.
	Message string `json:"message,omitempty"`

	// Text carries the question on question frames.
	Text string `json:"text,omitempty"`

	// Question duplicates Text for servers that read the older field name.
	Question string `json:"question,omitempty"`

	ResultHandle string `json:"resultHandle,omitempty"`
	Identity     string `json:"identity,omitempty"`

	// EmbeddingKey and Email mirror ResultHandle and Identity under the
	// field names older servers read.
	EmbeddingKey string `json:"embeddingKey,omitempty"`
	Email        string `json:"email,omitempty"`
}

// NewInitialFrame builds the handshake frame sent once per connection.
func NewInitialFrame(resultHandle, identity string) Frame {
	return Frame{
		Type:         FrameInitial,
		ResultHandle: resultHandle,
		Identity:     identity,
		EmbeddingKey: resultHandle,
		Email:        identity,
	}
}

// NewQuestionFrame builds a question frame.
func NewQuestionFrame(text, resultHandle, identity string) Frame {
	return Frame{
		Type:         FrameQuestion,
		Text:         text,
		Question:     text,
		ResultHandle: resultHandle,
		Identity:     identity,
		EmbeddingKey: resultHandle,
		Email:        identity,
	}
}

// ParseFrame decodes a payload, folding older field names into the current ones.
// An untyped payload carrying a question is a question frame; any other
// payload that is not a JSON object with a type wraps ErrMalformedFrame.
func ParseFrame(data []byte) (Frame, error) {
	var f Frame
	if err := json.Unmarshal(data, &f); err != nil {
		return Frame{}, fmt.Errorf("%w: %w", ErrMalformedFrame, err)
	}
	if f.Type == "" && f.Question != "" {
		f.Type = FrameQuestion
	}
	if f.Type == "" {
		return Frame{}, fmt.Errorf("%w: missing type", ErrMalformedFrame)
	}
	if canonical, ok := legacyFrames[f.Type]; ok {
		f.Type = canonical
	}
	if f.ResultHandle == "" {
		f.ResultHandle = f.EmbeddingKey
	}
	if f.Identity == "" {
		f.Identity = f.Email
	}
	return f, nil
}

// Encode serialises the frame for the wire.
func (f Frame) Encode() ([]byte, error) {
	return json.Marshal(f)
}
