package services

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docchat/internal/adapters/driven/config/file"
	"github.com/custodia-labs/docchat/internal/core/domain"
)

func newConfigStore(t *testing.T) *file.ConfigStore {
	t.Helper()
	store, err := file.NewConfigStore(t.TempDir())
	require.NoError(t, err)
	return store
}

func TestNewSettingsService(t *testing.T) {
	store := newConfigStore(t)
	service := NewSettingsService(store)

	require.NotNil(t, service)
}

func TestSettingsService_Get_ReturnsDefaults(t *testing.T) {
	store := newConfigStore(t)
	service := NewSettingsService(store)

	settings, err := service.Get()

	require.NoError(t, err)
	require.NotNil(t, settings)
	assert.Equal(t, domain.DefaultSettings(), *settings)
}

func TestSettingsService_Get_ReturnsStoredValues(t *testing.T) {
	store := newConfigStore(t)
	_ = store.Set("server.url", "https://chat.example.com")
	_ = store.Set("identity.email", "owner@example.com")
	_ = store.Set("poll.interval", "2s")
	_ = store.Set("poll.max_failures", 8)
	_ = store.Set("session.reconnect_notice", 1500)
	_ = store.Set("store.backend", "file")
	_ = store.Set("log.file", "/tmp/docchat.log")

	service := NewSettingsService(store)

	settings, err := service.Get()

	require.NoError(t, err)
	assert.Equal(t, "https://chat.example.com", settings.ServerURL)
	assert.Equal(t, "owner@example.com", settings.Identity)
	assert.Equal(t, 2*time.Second, settings.PollInterval)
	assert.Equal(t, 8, settings.MaxPollFailures)
	assert.Equal(t, 1500*time.Millisecond, settings.ReconnectNoticeDelay)
	assert.Equal(t, domain.StoreBackendFile, settings.Store)
	assert.Equal(t, "/tmp/docchat.log", settings.LogFile)
}

func TestSettingsService_Get_InvalidValuesReturnDefaults(t *testing.T) {
	store := newConfigStore(t)
	_ = store.Set("store.backend", "floppy")
	_ = store.Set("poll.interval", "soon")
	_ = store.Set("poll.max_failures", -1)

	service := NewSettingsService(store)

	settings, err := service.Get()

	require.NoError(t, err)
	defaults := domain.DefaultSettings()
	assert.Equal(t, defaults.Store, settings.Store)
	assert.Equal(t, defaults.PollInterval, settings.PollInterval)
	assert.Equal(t, defaults.MaxPollFailures, settings.MaxPollFailures)
}

func TestSettingsService_Save(t *testing.T) {
	store := newConfigStore(t)
	service := NewSettingsService(store)

	settings := domain.DefaultSettings()
	settings.ServerURL = "https://chat.example.com"
	settings.Identity = "owner@example.com"
	settings.PollInterval = time.Second
	settings.Store = domain.StoreBackendMemory

	require.NoError(t, service.Save(&settings))

	retrieved, err := service.Get()
	require.NoError(t, err)
	assert.Equal(t, settings, *retrieved)
}

func TestSettingsService_Save_RejectsInvalid(t *testing.T) {
	store := newConfigStore(t)
	service := NewSettingsService(store)

	settings := domain.DefaultSettings()
	settings.ServerURL = "ftp://example.com"

	err := service.Save(&settings)

	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	_, exists := store.Get("server.url")
	assert.False(t, exists)
}

func TestSettingsService_SetServerURL(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		wantErr bool
	}{
		{"http", "http://localhost:9000", false},
		{"https", "https://chat.example.com", false},
		{"no scheme", "chat.example.com", true},
		{"websocket scheme", "ws://chat.example.com", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newConfigStore(t)
			service := NewSettingsService(store)

			err := service.SetServerURL(tt.url)

			if tt.wantErr {
				assert.ErrorIs(t, err, domain.ErrInvalidInput)
				return
			}
			require.NoError(t, err)
			settings, _ := service.Get()
			assert.Equal(t, tt.url, settings.ServerURL)
		})
	}
}

func TestSettingsService_SetStore(t *testing.T) {
	store := newConfigStore(t)
	service := NewSettingsService(store)

	require.NoError(t, service.SetStore(domain.StoreBackendFile))
	settings, _ := service.Get()
	assert.Equal(t, domain.StoreBackendFile, settings.Store)

	err := service.SetStore(domain.StoreBackend("floppy"))
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestSettingsService_Validate(t *testing.T) {
	store := newConfigStore(t)
	service := NewSettingsService(store)

	assert.NoError(t, service.Validate())

	_ = store.Set("identity.email", "nobody")
	assert.ErrorIs(t, service.Validate(), domain.ErrInvalidInput)

	_ = store.Set("identity.email", "owner@example.com")
	assert.NoError(t, service.Validate())
}

func TestSettingsService_GetDefaults(t *testing.T) {
	service := NewSettingsService(newConfigStore(t))

	assert.Equal(t, domain.DefaultSettings(), service.GetDefaults())
}

// failingConfigStore fails every write.
type failingConfigStore struct {
	*file.ConfigStore
}

func (failingConfigStore) Set(string, any) error {
	return errors.New("read-only file system")
}

func TestSettingsService_Save_PropagatesStoreErrors(t *testing.T) {
	service := NewSettingsService(failingConfigStore{newConfigStore(t)})
	settings := domain.DefaultSettings()

	err := service.Save(&settings)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "save server.url")
}
