package domain

import "fmt"

// FailureKind classifies failures that end a session.
type FailureKind string

const (
	// FailureContentUnreadable means normalisation failed on the server.
	FailureContentUnreadable FailureKind = "content-unreadable"

	// FailureInsufficientSignal means the content was readable but too thin.
	FailureInsufficientSignal FailureKind = "insufficient-signal"

	// FailureUnknown covers unrecognised stages and exhausted retries.
	FailureUnknown FailureKind = "unknown"

	// FailureUpload means submission or upload did not complete.
	FailureUpload FailureKind = "upload"

	// FailureConnection means the persistent connection could not be opened.
	FailureConnection FailureKind = "connection"

	// FailureNotReady means a resumed session is no longer ready.
	FailureNotReady FailureKind = "not-ready"
)

// UserMessage returns the user-visible text for the failure kind.
func (k FailureKind) UserMessage() string {
	switch k {
	case FailureContentUnreadable:
		return "We couldn't read your document. Please upload a different file."
	case FailureInsufficientSignal:
		return "Your document was read, but it doesn't contain enough information to discuss. Please try another file."
	case FailureUpload:
		return "Your document could not be uploaded. Please try again."
	case FailureConnection:
		return "Could not connect to the assistant. Please try again."
	case FailureNotReady:
		return "Your previous document is no longer available. Please upload it again."
	default:
		return "An error occurred while processing your document. Please try again."
	}
}

// Failure is a session-ending error with its kind.
type Failure struct {
	Kind FailureKind
	Err  error
}

// NewFailure creates a failure of the given kind.
func NewFailure(kind FailureKind, err error) *Failure {
	return &Failure{Kind: kind, Err: err}
}

// Error implements error.
func (f *Failure) Error() string {
	if f.Err == nil {
		return fmt.Sprintf("session failed: %s", f.Kind)
	}
	return fmt.Sprintf("session failed: %s: %v", f.Kind, f.Err)
}

// Unwrap returns the underlying cause.
func (f *Failure) Unwrap() error {
	return f.Err
}
