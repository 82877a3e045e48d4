package domain

// ControllerState is the session controller's position in its state machine.
type ControllerState string

const (
	// StateIdle is the initial state; nothing has been submitted.
	StateIdle ControllerState = "idle"

	// StateAwaitingConfirmation waits for the user to resume or replace a prior session.
	StateAwaitingConfirmation ControllerState = "awaiting-confirmation"

	// StatePollingPipeline tracks server-side ingestion.
	StatePollingPipeline ControllerState = "polling-pipeline"

	// StateChatReady means ingestion succeeded and the connection is being opened.
	StateChatReady ControllerState = "chat-ready"

	// StateChatting means the connection is open.
	StateChatting ControllerState = "chatting"

	// StateFailed is terminal until the user restarts.
	StateFailed ControllerState = "failed"
)

// ConnectionState is owned by the connection manager; others only observe it.
type ConnectionState string

const (
	ConnClosed           ConnectionState = "closed"
	ConnConnecting       ConnectionState = "connecting"
	ConnOpen             ConnectionState = "open"
	ConnReconnectPending ConnectionState = "reconnect-pending"
)
