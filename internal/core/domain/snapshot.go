package domain

// SessionSnapshot is the single coherent state object exposed to views.
type SessionSnapshot struct {
	State      ControllerState
	Identity   string
	Session    *Session
	Progress   int
	Messages   []Message
	Connection ConnectionState

	// Live is the in-progress reply; empty when no stream is active.
	Live string

	// Streaming is true while a stream buffer exists.
	Streaming bool

	// Composing is true while the assistant is preparing a reply.
	Composing bool

	// WaitingInitial is true between the handshake and the greeting.
	WaitingInitial bool

	// Prior is the previous session offered for resumption.
	Prior *SessionSummary

	// Failure is set in StateFailed.
	Failure *Failure
}

// EventKind identifies what changed in a session event.
type EventKind string

const (
	EventStateChanged EventKind = "state"
	EventProgress     EventKind = "progress"
	EventFragment     EventKind = "fragment"
	EventCommitted    EventKind = "committed"
	EventComposing    EventKind = "composing"
	EventConnection   EventKind = "connection"
)

// SessionEvent is one discrete change published by the session controller.
type SessionEvent struct {
	Kind EventKind

	// Message is set for EventCommitted, and for EventComposing when an
	// assistant reply repeated an earlier one and was folded into it.
	Message *Message

	// Snapshot is the state after the change.
	Snapshot SessionSnapshot
}
