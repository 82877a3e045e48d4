// Package messages defines Bubbletea message types for the TUI.
// Messages represent events and commands that flow through the Elm architecture.
package messages

import (
	"github.com/custodia-labs/docchat/internal/core/domain"
)

// ViewType identifies which screen is currently active.
type ViewType int

const (
	// ViewIdentity asks for the owner's email address.
	ViewIdentity ViewType = iota
	// ViewUpload asks for the document to submit.
	ViewUpload
	// ViewPrior offers a prior session for resumption.
	ViewPrior
	// ViewProgress shows ingestion progress.
	ViewProgress
	// ViewChat is the conversation.
	ViewChat
	// ViewFailed shows a session failure.
	ViewFailed
)

// String returns the string representation of the view type.
func (v ViewType) String() string {
	switch v {
	case ViewIdentity:
		return "identity"
	case ViewUpload:
		return "upload"
	case ViewPrior:
		return "prior"
	case ViewProgress:
		return "progress"
	case ViewChat:
		return "chat"
	case ViewFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// ViewFor maps a session snapshot to the screen that presents it.
func ViewFor(snap domain.SessionSnapshot) ViewType {
	switch snap.State {
	case domain.StateAwaitingConfirmation:
		return ViewPrior
	case domain.StatePollingPipeline:
		return ViewProgress
	case domain.StateChatReady, domain.StateChatting:
		return ViewChat
	case domain.StateFailed:
		return ViewFailed
	default:
		if snap.Identity == "" {
			return ViewIdentity
		}
		return ViewUpload
	}
}

// SessionEvent carries one event from the session service.
type SessionEvent struct {
	Event domain.SessionEvent
}

// SessionClosed signals the event stream ended.
type SessionClosed struct{}

// IdentitySubmitted is sent when the owner enters an email address.
type IdentitySubmitted struct {
	Email string
}

// DocumentChosen is sent when a file path is entered.
type DocumentChosen struct {
	Path string
}

// QuestionSubmitted is sent when a question is entered.
type QuestionSubmitted struct {
	Text string
}

// ActionCompleted carries the result of a session service call.
type ActionCompleted struct {
	Action string
	Err    error
}

// ErrorOccurred signals that an error happened.
type ErrorOccurred struct {
	Err error
}
