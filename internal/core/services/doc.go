// Package services implements the driving port interfaces.
// Services contain the core business logic and orchestrate
// calls to driven ports (adapters).
//
// The session engine is split into small cooperating services:
//
//   - PersistentStore: error-swallowing facade over the durable key-value store
//   - PipelineStatusTracker: polls ingestion status until a terminal stage
//   - ConnectionManager: owns the persistent connection and its event stream
//   - StreamAssembler: turns fragment frames into committed replies
//   - MessageStore: ordered, deduplicated conversation log
//   - SessionController: single-goroutine state machine over the above
//
// Services depend only on ports and the domain; adapters are injected.
package services
