package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestStoreBackend_IsValid tests all valid and invalid store backends
func TestStoreBackend_IsValid(t *testing.T) {
	tests := []struct {
		name     string
		backend  StoreBackend
		expected bool
	}{
		{"sqlite is valid", StoreBackendSQLite, true},
		{"file is valid", StoreBackendFile, true},
		{"memory is valid", StoreBackendMemory, true},
		{"empty string is invalid", StoreBackend(""), false},
		{"unknown backend is invalid", StoreBackend("redis"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.backend.IsValid())
			if tt.expected {
				assert.NotEqual(t, unknownDescription, tt.backend.Description())
			} else {
				assert.Equal(t, unknownDescription, tt.backend.Description())
			}
		})
	}
}

// TestDefaultSettings tests default values
func TestDefaultSettings(t *testing.T) {
	s := DefaultSettings()

	require.NoError(t, s.Validate())
	assert.Equal(t, 500*time.Millisecond, s.PollInterval)
	assert.Equal(t, 5, s.MaxPollFailures)
	assert.Equal(t, 3*time.Second, s.ReconnectNoticeDelay)
	assert.Equal(t, time.Second, s.DedupWindow)
	assert.Equal(t, StoreBackendSQLite, s.Store)

	p := s.RetryPolicy()
	assert.Equal(t, 5, p.MaxAttempts)
	assert.True(t, p.IsConstant())
}

// TestSettings_Validate tests rejection of unusable settings
func TestSettings_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Settings)
	}{
		{"bad url", func(s *Settings) { s.ServerURL = "::nope" }},
		{"ws scheme", func(s *Settings) { s.ServerURL = "ws://host" }},
		{"zero poll interval", func(s *Settings) { s.PollInterval = 0 }},
		{"zero failures", func(s *Settings) { s.MaxPollFailures = 0 }},
		{"zero notice delay", func(s *Settings) { s.ReconnectNoticeDelay = 0 }},
		{"bad store", func(s *Settings) { s.Store = "tape" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := DefaultSettings()
			tt.mutate(&s)
			assert.True(t, errors.Is(s.Validate(), ErrInvalidInput))
		})
	}
}

// TestValidateIdentity tests email validation
func TestValidateIdentity(t *testing.T) {
	assert.NoError(t, ValidateIdentity("a@b.co"))
	assert.ErrorIs(t, ValidateIdentity(""), ErrIdentityRequired)
	assert.ErrorIs(t, ValidateIdentity("nobody"), ErrInvalidInput)
	assert.ErrorIs(t, ValidateIdentity("a b@c.d"), ErrInvalidInput)
	assert.ErrorIs(t, ValidateIdentity("a@b"), ErrInvalidInput)
}
