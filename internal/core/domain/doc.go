// Package domain defines the core business entities for docchat.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Session: One document-ingestion-and-chat lifecycle
//   - PipelineStage: A step of server-side ingestion reported via polling
//   - Message: One immutable turn of the conversation
//   - StreamBuffer: The in-progress accumulation of a streamed reply
//   - Frame: One JSON frame on the persistent connection
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
