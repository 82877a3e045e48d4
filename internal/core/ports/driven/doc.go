// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
// These must be provided for the application to function:
//
//   - KeyValueStore: Durable string key-value storage for session state
//   - IngestionAPI: Prior-session check, submission, upload and status polling
//   - Dialer: Opens the persistent bidirectional connection
//   - Conn: One open connection carrying JSON frames
//   - ConfigStore: Application configuration
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter package
package driven
