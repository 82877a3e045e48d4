package cli

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driving"
)

// mockSessionReader implements driving.SessionReader.
type mockSessionReader struct {
	identity string
	session  *domain.Session
	messages []domain.Message
	summary  *domain.SessionSummary
}

func (m *mockSessionReader) LoadIdentity() string                { return m.identity }
func (m *mockSessionReader) LoadSession() *domain.Session        { return m.session }
func (m *mockSessionReader) LoadMessages() []domain.Message      { return m.messages }
func (m *mockSessionReader) LoadSummary() *domain.SessionSummary { return m.summary }

func TestStatusCmd_Use(t *testing.T) {
	assert.Equal(t, "status", statusCmd.Use)
	assert.Equal(t, "Show the persisted session", statusCmd.Short)
}

func TestStatusCmd_NoReader(t *testing.T) {
	_, _, cleanup := setupTestServices()
	defer cleanup()

	_, err := execute(t, nil, "status")

	assert.ErrorIs(t, err, errNoReader)
}

func TestStatusCmd_ReaderError(t *testing.T) {
	_, _, cleanup := setupTestServices()
	defer cleanup()
	readerFactory = func(domain.Settings) (driving.SessionReader, func() error, error) {
		return nil, nil, errors.New("database is locked")
	}

	_, err := execute(t, nil, "status")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "database is locked")
}

func TestStatusCmd_PrintsSession(t *testing.T) {
	_, _, cleanup := setupTestServices()
	defer cleanup()

	closed := false
	reader := &mockSessionReader{
		identity: "ada@example.com",
		session: &domain.Session{
			ID:        "s-1",
			Stage:     domain.StageContentFetched,
			CreatedAt: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		},
		messages: []domain.Message{domain.NewAssistantMessage("Hi", time.Now())},
		summary:  &domain.SessionSummary{Filename: "report.pdf"},
	}
	readerFactory = func(domain.Settings) (driving.SessionReader, func() error, error) {
		return reader, func() error { closed = true; return nil }, nil
	}

	out, err := execute(t, nil, "status")

	require.NoError(t, err)
	assert.Contains(t, out, "Identity:  ada@example.com")
	assert.Contains(t, out, "Session:   s-1")
	assert.Contains(t, out, "Stage:     content-fetched")
	assert.Contains(t, out, "Progress:  50%")
	assert.Contains(t, out, "File:      report.pdf")
	assert.Contains(t, out, "Messages:  1")
	assert.True(t, closed)
}

func TestPrintStatus(t *testing.T) {
	settings := domain.DefaultSettings()

	t.Run("no session", func(t *testing.T) {
		buf := new(bytes.Buffer)

		require.NoError(t, printStatus(buf, settings, &mockSessionReader{}))

		assert.Contains(t, buf.String(), "Identity:  (not set)")
		assert.Contains(t, buf.String(), "Session:   (none)")
		assert.NotContains(t, buf.String(), "Stage:")
	})

	t.Run("session still uploading", func(t *testing.T) {
		buf := new(bytes.Buffer)
		reader := &mockSessionReader{session: &domain.Session{ID: "s-2"}}

		require.NoError(t, printStatus(buf, settings, reader))

		assert.Contains(t, buf.String(), "Stage:     uploading")
		assert.Contains(t, buf.String(), "Progress:  0%")
		assert.NotContains(t, buf.String(), "Created:")
	})
}
