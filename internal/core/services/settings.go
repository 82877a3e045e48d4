package services

import (
	"fmt"
	"time"

	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driven"
	"github.com/custodia-labs/docchat/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage.
const (
	keyServerURL       = "server.url"
	keyIdentity        = "identity.email"
	keyPollInterval    = "poll.interval"
	keyPollMaxFailures = "poll.max_failures"
	keyReconnectNotice = "session.reconnect_notice"
	keyDedupWindow     = "session.dedup_window"
	keyStoreBackend    = "store.backend"
	keyStoreDataDir    = "store.data_dir"
	keyLogFile         = "log.file"
)

// SettingsService manages application settings.
type SettingsService struct {
	configStore driven.ConfigStore
}

// NewSettingsService creates a new settings service.
func NewSettingsService(configStore driven.ConfigStore) *SettingsService {
	return &SettingsService{configStore: configStore}
}

// Get retrieves current application settings.
// Missing or unusable values fall back to the defaults.
func (s *SettingsService) Get() (*domain.Settings, error) {
	defaults := domain.DefaultSettings()

	settings := &domain.Settings{
		ServerURL:            s.getString(keyServerURL, defaults.ServerURL),
		Identity:             s.configStore.GetString(keyIdentity),
		PollInterval:         s.getDuration(keyPollInterval, defaults.PollInterval),
		MaxPollFailures:      s.getInt(keyPollMaxFailures, defaults.MaxPollFailures),
		ReconnectNoticeDelay: s.getDuration(keyReconnectNotice, defaults.ReconnectNoticeDelay),
		DedupWindow:          s.getDuration(keyDedupWindow, defaults.DedupWindow),
		Store:                s.getStoreBackend(defaults.Store),
		DataDir:              s.configStore.GetString(keyStoreDataDir),
		LogFile:              s.configStore.GetString(keyLogFile),
	}

	return settings, nil
}

// Save persists application settings.
func (s *SettingsService) Save(settings *domain.Settings) error {
	if err := settings.Validate(); err != nil {
		return err
	}

	values := []struct {
		key   string
		value any
	}{
		{keyServerURL, settings.ServerURL},
		{keyPollInterval, settings.PollInterval},
		{keyPollMaxFailures, settings.MaxPollFailures},
		{keyReconnectNotice, settings.ReconnectNoticeDelay},
		{keyDedupWindow, settings.DedupWindow},
		{keyStoreBackend, settings.Store.String()},
	}
	for _, v := range values {
		if err := s.configStore.Set(v.key, v.value); err != nil {
			return fmt.Errorf("save %s: %w", v.key, err)
		}
	}

	// Optional values are only written when set.
	optional := map[string]string{
		keyIdentity:     settings.Identity,
		keyStoreDataDir: settings.DataDir,
		keyLogFile:      settings.LogFile,
	}
	for key, value := range optional {
		if value == "" {
			continue
		}
		if err := s.configStore.Set(key, value); err != nil {
			return fmt.Errorf("save %s: %w", key, err)
		}
	}

	return nil
}

// SetServerURL updates the backend base URL.
func (s *SettingsService) SetServerURL(url string) error {
	settings, err := s.Get()
	if err != nil {
		return err
	}

	settings.ServerURL = url
	if err := settings.Validate(); err != nil {
		return err
	}

	return s.Save(settings)
}

// SetStore updates the persistent store backend.
func (s *SettingsService) SetStore(backend domain.StoreBackend) error {
	if !backend.IsValid() {
		return fmt.Errorf("%w: store backend %q", domain.ErrInvalidInput, backend)
	}

	settings, err := s.Get()
	if err != nil {
		return err
	}

	settings.Store = backend
	return s.Save(settings)
}

// Validate checks if current settings are usable.
func (s *SettingsService) Validate() error {
	settings, err := s.Get()
	if err != nil {
		return err
	}
	if err := settings.Validate(); err != nil {
		return err
	}
	if settings.Identity != "" {
		return domain.ValidateIdentity(settings.Identity)
	}
	return nil
}

// GetDefaults returns default settings.
func (s *SettingsService) GetDefaults() domain.Settings {
	return domain.DefaultSettings()
}

// Helper methods for reading config with defaults.

func (s *SettingsService) getString(key, defaultVal string) string {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getInt(key string, defaultVal int) int {
	val := s.configStore.GetInt(key)
	if val <= 0 {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getDuration(key string, defaultVal time.Duration) time.Duration {
	val := s.configStore.GetDuration(key)
	if val <= 0 {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getStoreBackend(defaultVal domain.StoreBackend) domain.StoreBackend {
	val := s.configStore.GetString(keyStoreBackend)
	if val == "" {
		return defaultVal
	}
	backend := domain.StoreBackend(val)
	if !backend.IsValid() {
		return defaultVal
	}
	return backend
}
