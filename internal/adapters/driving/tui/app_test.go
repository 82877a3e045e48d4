package tui

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docchat/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/docchat/internal/core/domain"
)

func newTestApp(t *testing.T, snap domain.SessionSnapshot) (*App, *MockSessionService) {
	t.Helper()
	session := newMockSession()
	session.Snap = snap
	app, err := NewApp(NewPorts(session, &MockSettingsService{Settings: domain.DefaultSettings()}))
	require.NoError(t, err)
	app.SetDimensions(160, 40)
	return app, session
}

// send runs one update and executes the resulting command, if any.
func send(t *testing.T, app *App, msg tea.Msg) tea.Msg {
	t.Helper()
	_, cmd := app.Update(msg)
	if cmd == nil {
		return nil
	}
	return cmd()
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestNewApp_Success(t *testing.T) {
	app, _ := newTestApp(t, domain.SessionSnapshot{State: domain.StateIdle})

	require.NotNil(t, app)
	assert.Equal(t, messages.ViewIdentity, app.CurrentView())
	assert.Contains(t, app.View(), domain.DefaultServerURL)
}

func TestNewApp_InvalidPorts(t *testing.T) {
	app, err := NewApp(&Ports{})

	assert.ErrorIs(t, err, ErrMissingSessionService)
	assert.Nil(t, app)
}

func TestApp_WithContext(t *testing.T) {
	app, _ := newTestApp(t, domain.SessionSnapshot{})

	type contextKey string
	ctx := context.WithValue(context.Background(), contextKey("key"), "value")

	assert.Equal(t, app, app.WithContext(ctx))
}

func TestApp_Init(t *testing.T) {
	app, _ := newTestApp(t, domain.SessionSnapshot{})

	assert.NotNil(t, app.Init())
}

func TestApp_ViewBeforeReady(t *testing.T) {
	session := newMockSession()
	app, err := NewApp(NewPorts(session, nil))
	require.NoError(t, err)

	assert.False(t, app.Ready())
	assert.Equal(t, "Initialising...", app.View())

	app.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	assert.True(t, app.Ready())
}

func TestApp_SessionEvents(t *testing.T) {
	app, session := newTestApp(t, domain.SessionSnapshot{State: domain.StateIdle})

	session.events <- domain.SessionEvent{
		Kind:     domain.EventProgress,
		Snapshot: domain.SessionSnapshot{State: domain.StatePollingPipeline, Progress: 50},
	}

	msg := app.waitForEvent()()
	ev, ok := msg.(messages.SessionEvent)
	require.True(t, ok)

	_, cmd := app.Update(ev)
	assert.NotNil(t, cmd, "listening continues after an event")
	assert.Equal(t, messages.ViewProgress, app.CurrentView())
	assert.Contains(t, app.View(), "50%")
}

func TestApp_SubscriptionClosed(t *testing.T) {
	app, _ := newTestApp(t, domain.SessionSnapshot{})
	app.unsubscribe()

	msg := app.waitForEvent()()
	assert.Equal(t, messages.SessionClosed{}, msg)

	assert.Equal(t, tea.QuitMsg{}, send(t, app, msg))
}

func TestApp_IdentitySubmitted(t *testing.T) {
	app, session := newTestApp(t, domain.SessionSnapshot{State: domain.StateIdle})

	msg := send(t, app, messages.IdentitySubmitted{Email: "ada@example.com"})

	assert.Equal(t, messages.ActionCompleted{Action: "identity"}, msg)
	assert.Equal(t, "ada@example.com", session.email)
}

func TestApp_DocumentChosen(t *testing.T) {
	app, session := newTestApp(t, domain.SessionSnapshot{State: domain.StateIdle, Identity: "ada@example.com"})

	path := filepath.Join(t.TempDir(), "notes.pdf")
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.7"), 0o600))

	msg := send(t, app, messages.DocumentChosen{Path: path})

	assert.Equal(t, messages.ActionCompleted{Action: "submit"}, msg)
	assert.Equal(t, "notes.pdf", session.upload.Filename)
	assert.Equal(t, "application/pdf", session.upload.ContentType)
	assert.Equal(t, []byte("%PDF-1.7"), session.upload.Content)
}

func TestApp_DocumentMissing(t *testing.T) {
	app, session := newTestApp(t, domain.SessionSnapshot{State: domain.StateIdle, Identity: "ada@example.com"})

	msg := send(t, app, messages.DocumentChosen{Path: filepath.Join(t.TempDir(), "missing.pdf")})

	done, ok := msg.(messages.ActionCompleted)
	require.True(t, ok)
	require.Error(t, done.Err)
	assert.NotContains(t, session.Calls(), "submit")

	app.Update(done)
	assert.Error(t, app.Err())
	assert.Contains(t, app.View(), "read document")
}

func TestApp_PriorKeys(t *testing.T) {
	prior := domain.SessionSnapshot{
		State:    domain.StateAwaitingConfirmation,
		Identity: "ada@example.com",
		Prior:    &domain.SessionSummary{SessionID: "old", Filename: "thesis.pdf"},
	}

	tests := []struct {
		key  string
		want string
	}{
		{"r", "resume"},
		{"y", "resume"},
		{"u", "proceed"},
		{"n", "proceed"},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			app, session := newTestApp(t, prior)
			require.Equal(t, messages.ViewPrior, app.CurrentView())

			msg := send(t, app, runes(tt.key))

			assert.Equal(t, messages.ActionCompleted{Action: tt.want}, msg)
			assert.Equal(t, []string{tt.want}, session.Calls())
		})
	}
}

func TestApp_ChatAsk(t *testing.T) {
	app, session := newTestApp(t, domain.SessionSnapshot{State: domain.StateChatting, Connection: domain.ConnOpen})
	require.Equal(t, messages.ViewChat, app.CurrentView())

	for _, r := range "What is it about?" {
		app.Update(runes(string(r)))
	}
	msg := send(t, app, tea.KeyMsg{Type: tea.KeyEnter})
	require.Equal(t, messages.QuestionSubmitted{Text: "What is it about?"}, msg)

	done := send(t, app, msg)
	assert.Equal(t, messages.ActionCompleted{Action: "ask"}, done)
	assert.Equal(t, []string{"What is it about?"}, session.asked)
}

func TestApp_ChatAskError(t *testing.T) {
	app, session := newTestApp(t, domain.SessionSnapshot{State: domain.StateChatting, Connection: domain.ConnClosed})
	session.Err = domain.ErrNotConnected

	done := send(t, app, messages.QuestionSubmitted{Text: "hello"})
	app.Update(done)

	assert.ErrorIs(t, app.Err(), domain.ErrNotConnected)
	assert.Contains(t, app.View(), "connection not open")
}

func TestApp_Reconnect(t *testing.T) {
	app, session := newTestApp(t, domain.SessionSnapshot{State: domain.StateChatting, Connection: domain.ConnReconnectPending})

	msg := send(t, app, tea.KeyMsg{Type: tea.KeyCtrlL})

	assert.Equal(t, messages.ActionCompleted{Action: "reconnect"}, msg)
	assert.Equal(t, []string{"reconnect"}, session.Calls())
}

func TestApp_FailedEnterRestarts(t *testing.T) {
	app, session := newTestApp(t, domain.SessionSnapshot{
		State:   domain.StateFailed,
		Failure: domain.NewFailure(domain.FailureUpload, errors.New("boom")),
	})
	require.Equal(t, messages.ViewFailed, app.CurrentView())
	assert.Contains(t, app.View(), "could not be uploaded")

	msg := send(t, app, tea.KeyMsg{Type: tea.KeyEnter})

	assert.Equal(t, messages.ActionCompleted{Action: "restart"}, msg)
	assert.Equal(t, []string{"restart"}, session.Calls())
}

func TestApp_GlobalKeys(t *testing.T) {
	tests := []struct {
		name string
		key  tea.KeyMsg
		want string
	}{
		{"restart", tea.KeyMsg{Type: tea.KeyCtrlR}, "restart"},
		{"start over", tea.KeyMsg{Type: tea.KeyCtrlX}, "start over"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app, session := newTestApp(t, domain.SessionSnapshot{State: domain.StateChatting})

			msg := send(t, app, tt.key)

			assert.Equal(t, messages.ActionCompleted{Action: tt.want}, msg)
			assert.Equal(t, []string{tt.want}, session.Calls())
		})
	}
}

func TestApp_Quit(t *testing.T) {
	app, session := newTestApp(t, domain.SessionSnapshot{State: domain.StateIdle})

	msg := send(t, app, tea.KeyMsg{Type: tea.KeyCtrlC})
	assert.Equal(t, tea.QuitMsg{}, msg)

	select {
	case _, ok := <-session.events:
		assert.False(t, ok, "subscription released")
	case <-time.After(time.Second):
		t.Fatal("subscription not released")
	}
}

func TestApp_ProgressViewIgnoresTyping(t *testing.T) {
	app, session := newTestApp(t, domain.SessionSnapshot{State: domain.StatePollingPipeline, Progress: 25})

	assert.Nil(t, send(t, app, runes("r")))
	assert.Empty(t, session.Calls())
}
