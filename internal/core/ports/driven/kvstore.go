package driven

import "context"

// KeyValueStore is durable string storage that survives process restarts.
// Values written by another process sharing the same storage are visible
// on the next Get; the last writer wins.
type KeyValueStore interface {
	// Get returns the value for key and whether it exists.
	Get(ctx context.Context, key string) (string, bool, error)

	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key, value string) error

	// Delete removes keys. Missing keys are not an error.
	Delete(ctx context.Context, keys ...string) error

	// Close releases resources held by the store.
	Close() error
}
