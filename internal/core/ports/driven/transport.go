package driven

import "context"

// Dialer opens persistent connections to the backend.
type Dialer interface {
	// Dial opens a new connection. It blocks until the connection is open or fails.
	Dial(ctx context.Context) (Conn, error)
}

// Conn is one open bidirectional connection carrying text payloads.
// ReadMessage may be called from one goroutine while WriteMessage is
// called from another.
type Conn interface {
	// ReadMessage blocks until the next payload arrives or the connection closes.
	ReadMessage() ([]byte, error)

	// WriteMessage sends one payload.
	WriteMessage(data []byte) error

	// Close closes the connection. Blocked readers return an error.
	Close() error
}
