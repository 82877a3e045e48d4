package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrIdentityRequired indicates an operation needs the owner's email first.
	ErrIdentityRequired = errors.New("identity required")

	// ErrInvalidState indicates the operation is not allowed in the current session state.
	ErrInvalidState = errors.New("invalid session state")

	// ErrSessionClosed indicates the session controller has been disposed.
	ErrSessionClosed = errors.New("session closed")

	// Connection Errors.

	// ErrNotConnected indicates the persistent connection is not open.
	ErrNotConnected = errors.New("connection not open")

	// ErrMalformedFrame indicates an unparseable payload on the persistent connection.
	// The frame is discarded; the session continues.
	ErrMalformedFrame = errors.New("malformed frame")

	// Backend Errors.

	// ErrUnexpectedStatus indicates the backend answered with a non-success HTTP status.
	ErrUnexpectedStatus = errors.New("unexpected backend status")

	// ErrNoUploadTarget indicates a submission response without an upload target.
	ErrNoUploadTarget = errors.New("no upload target received from server")
)
