package domain

// StreamBuffer is the transient accumulation of a streamed assistant reply.
// At most one exists per open connection; it is never persisted.
type StreamBuffer struct {
	// Text grows monotonically by appending fragments.
	Text string

	// Active is true between a stream-start signal and a stream-end signal.
	Active bool
}

// Append adds a fragment to the buffer.
func (b *StreamBuffer) Append(fragment string) {
	b.Text += fragment
	b.Active = true
}
