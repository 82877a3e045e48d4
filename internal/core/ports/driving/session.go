package driving

import (
	"context"

	"github.com/custodia-labs/docchat/internal/core/domain"
)

// SessionService drives one document session from submission to chat.
// All methods are safe for concurrent use; state changes are applied in order.
type SessionService interface {
	// Start restores persisted state and resumes polling or chat if possible.
	Start(ctx context.Context) error

	// SetIdentity records the owner's email address.
	SetIdentity(ctx context.Context, email string) error

	// Submit checks for a prior session and uploads the document.
	// When a prior session exists the service waits for Resume or Proceed.
	Submit(ctx context.Context, upload domain.Upload) error

	// Resume adopts the offered prior session instead of uploading.
	Resume(ctx context.Context) error

	// Proceed discards the offered prior session and uploads the pending document.
	Proceed(ctx context.Context) error

	// Ask sends a question over the open connection.
	Ask(ctx context.Context, text string) error

	// Reconnect opens a new connection for a ready session.
	Reconnect(ctx context.Context) error

	// Restart clears the current session and keeps the identity.
	Restart(ctx context.Context) error

	// StartOver clears the session, the identity and the conversation.
	StartOver(ctx context.Context) error

	// Snapshot returns the current coherent state.
	Snapshot() domain.SessionSnapshot

	// Subscribe returns a channel of session events and a cancel func.
	Subscribe() (<-chan domain.SessionEvent, func())

	// Close releases the connection, timers and pending polls.
	Close() error
}

// SessionReader exposes persisted session state without starting a session.
type SessionReader interface {
	// LoadIdentity returns the stored owner email, or "".
	LoadIdentity() string

	// LoadSession returns the stored session, or nil.
	LoadSession() *domain.Session

	// LoadMessages returns the stored conversation.
	LoadMessages() []domain.Message

	// LoadSummary returns the stored summary of a resumed session, or nil.
	LoadSummary() *domain.SessionSummary
}
