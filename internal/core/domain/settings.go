package domain

import (
	"fmt"
	"net/url"
	"regexp"
	"time"
)

const unknownDescription = "Unknown"

// StoreBackend identifies where durable session state is kept.
type StoreBackend string

// Available store backends.
const (
	// StoreBackendSQLite keeps state in a local SQLite database.
	StoreBackendSQLite StoreBackend = "sqlite"

	// StoreBackendFile keeps state in a JSON file shared between processes.
	StoreBackendFile StoreBackend = "file"

	// StoreBackendMemory keeps state for the lifetime of the process only.
	StoreBackendMemory StoreBackend = "memory"
)

// IsValid returns true if the store backend is recognised.
func (b StoreBackend) IsValid() bool {
	switch b {
	case StoreBackendSQLite, StoreBackendFile, StoreBackendMemory:
		return true
	default:
		return false
	}
}

// String returns the string representation.
func (b StoreBackend) String() string {
	return string(b)
}

// Description returns a human-readable description of the backend.
func (b StoreBackend) Description() string {
	switch b {
	case StoreBackendSQLite:
		return "SQLite (durable, single file database)"
	case StoreBackendFile:
		return "JSON file (durable, reloads on external change)"
	case StoreBackendMemory:
		return "Memory (lost on exit)"
	default:
		return unknownDescription
	}
}

// Settings holds client configuration.
type Settings struct {
	// ServerURL is the backend base URL, e.g. http://localhost:8080.
	ServerURL string

	// Identity is the owner's email address.
	Identity string

	// PollInterval is the fixed delay between status polls.
	PollInterval time.Duration

	// MaxPollFailures bounds consecutive failed status requests.
	MaxPollFailures int

	// ReconnectNoticeDelay is how long after an unexpected close the notice appears.
	ReconnectNoticeDelay time.Duration

	// DedupWindow is the span for assistant message deduplication.
	DedupWindow time.Duration

	// Store selects the persistent store backend.
	Store StoreBackend

	// DataDir holds the persistent store and logs.
	DataDir string

	// LogFile, when set, receives JSON logs with rotation.
	LogFile string
}

// Defaults for settings not present in configuration.
const (
	DefaultServerURL            = "http://localhost:8080"
	DefaultMaxPollFailures      = 5
	DefaultReconnectNoticeDelay = 3 * time.Second
)

// DefaultSettings returns settings with every default applied.
func DefaultSettings() Settings {
	return Settings{
		ServerURL:            DefaultServerURL,
		PollInterval:         DefaultPollInterval,
		MaxPollFailures:      DefaultMaxPollFailures,
		ReconnectNoticeDelay: DefaultReconnectNoticeDelay,
		DedupWindow:          DefaultDedupWindow,
		Store:                StoreBackendSQLite,
	}
}

// RetryPolicy returns the poll retry policy derived from the settings.
func (s Settings) RetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: s.MaxPollFailures,
		Delay:       s.PollInterval,
	}
}

// Validate checks that the settings are usable.
func (s Settings) Validate() error {
	u, err := url.Parse(s.ServerURL)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("%w: server url %q", ErrInvalidInput, s.ServerURL)
	}
	if s.PollInterval <= 0 {
		return fmt.Errorf("%w: poll interval must be positive", ErrInvalidInput)
	}
	if s.MaxPollFailures <= 0 {
		return fmt.Errorf("%w: max poll failures must be positive", ErrInvalidInput)
	}
	if s.ReconnectNoticeDelay <= 0 {
		return fmt.Errorf("%w: reconnect notice delay must be positive", ErrInvalidInput)
	}
	if !s.Store.IsValid() {
		return fmt.Errorf("%w: store backend %q", ErrInvalidInput, s.Store)
	}
	return nil
}

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// ValidateIdentity checks the shape of an owner email address.
func ValidateIdentity(email string) error {
	if email == "" {
		return ErrIdentityRequired
	}
	if !emailPattern.MatchString(email) {
		return fmt.Errorf("%w: %q is not a valid email address", ErrInvalidInput, email)
	}
	return nil
}
