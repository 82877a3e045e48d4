package tui

import (
	"context"
	"fmt"
	"os"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/docchat/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/docchat/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/docchat/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/docchat/internal/adapters/driving/tui/views/chat"
	"github.com/custodia-labs/docchat/internal/adapters/driving/tui/views/progress"
	"github.com/custodia-labs/docchat/internal/adapters/driving/tui/views/setup"
	"github.com/custodia-labs/docchat/internal/core/domain"
)

// App is the main TUI application following the Elm architecture.
// It implements tea.Model for use with Bubbletea.
type App struct {
	// ports provides access to core services via driving ports.
	ports *Ports

	// ctx is the context for cancellation.
	ctx context.Context

	styles *styles.Styles
	keymap *keymap.KeyMap

	// setupView handles identity, document and prior session screens.
	setupView *setup.View

	// progressView shows ingestion progress and failures.
	progressView *progress.View

	// chatView is the conversation.
	chatView *chat.View

	// events is the session event subscription.
	events      <-chan domain.SessionEvent
	unsubscribe func()

	// snap is the last snapshot received.
	snap domain.SessionSnapshot

	// pending is returned by Init; it starts the spinner for a busy first snapshot.
	pending tea.Cmd

	// err holds the last error that occurred.
	err error

	// width and height are terminal dimensions.
	width  int
	height int

	// ready indicates if the app has initialised.
	ready bool
}

// Ensure App implements tea.Model.
var _ tea.Model = (*App)(nil)

// NewApp creates a new TUI application with the given ports.
func NewApp(ports *Ports) (*App, error) {
	if err := ports.Validate(); err != nil {
		return nil, fmt.Errorf("creating app: %w", err)
	}

	s := styles.DefaultStyles()
	km := keymap.DefaultKeyMap()

	a := &App{
		ports:        ports,
		ctx:          context.Background(),
		styles:       s,
		keymap:       km,
		setupView:    setup.NewView(s, km),
		progressView: progress.NewView(s, km),
		chatView:     chat.NewView(s, km),
	}

	if ports.Settings != nil {
		if settings, err := ports.Settings.Get(); err == nil {
			a.setupView.SetServer(settings.ServerURL)
		}
	}

	a.events, a.unsubscribe = ports.Session.Subscribe()
	a.pending = a.applySnapshot(ports.Session.Snapshot())
	return a, nil
}

// WithContext sets the context for the app.
func (a *App) WithContext(ctx context.Context) *App {
	a.ctx = ctx
	return a
}

// Init implements tea.Model.
// It starts the session and begins listening for its events.
func (a *App) Init() tea.Cmd {
	return tea.Batch(
		tea.EnterAltScreen,
		tea.SetWindowTitle("docchat"),
		a.setupView.Init(),
		a.chatView.Init(),
		a.waitForEvent(),
		a.run("start", a.ports.Session.Start),
		a.pending,
	)
}

// waitForEvent blocks on the subscription for the next event.
func (a *App) waitForEvent() tea.Cmd {
	events := a.events
	return func() tea.Msg {
		ev, ok := <-events
		if !ok {
			return messages.SessionClosed{}
		}
		return messages.SessionEvent{Event: ev}
	}
}

// run calls the session service off the update loop.
func (a *App) run(action string, fn func(ctx context.Context) error) tea.Cmd {
	ctx := a.ctx
	return func() tea.Msg {
		return messages.ActionCompleted{Action: action, Err: fn(ctx)}
	}
}

// submit reads the document and submits it.
func (a *App) submit(path string) tea.Cmd {
	return a.run("submit", func(ctx context.Context) error {
		content, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read document: %w", err)
		}
		return a.ports.Session.Submit(ctx, domain.NewUpload(path, content))
	})
}

// Update implements tea.Model.
// It handles messages and updates the model state.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.SetDimensions(msg.Width, msg.Height)
		return a, nil

	case tea.KeyMsg:
		return a.handleKeyMsg(msg)

	case messages.SessionEvent:
		cmd := a.applySnapshot(msg.Event.Snapshot)
		return a, tea.Batch(cmd, a.waitForEvent())

	case messages.SessionClosed:
		return a, tea.Quit

	case messages.ActionCompleted:
		a.setError(msg.Err)
		return a, nil

	case messages.ErrorOccurred:
		a.setError(msg.Err)
		return a, nil

	case messages.IdentitySubmitted:
		email := msg.Email
		return a, a.run("identity", func(ctx context.Context) error {
			return a.ports.Session.SetIdentity(ctx, email)
		})

	case messages.DocumentChosen:
		return a, a.submit(msg.Path)

	case messages.QuestionSubmitted:
		text := msg.Text
		return a, a.run("ask", func(ctx context.Context) error {
			return a.ports.Session.Ask(ctx, text)
		})

	case spinner.TickMsg:
		var cmd tea.Cmd
		a.chatView, cmd = a.chatView.Update(msg)
		return a, cmd
	}

	// Forward anything else (cursor blink) to the active input.
	var cmd tea.Cmd
	switch a.CurrentView() {
	case messages.ViewChat:
		a.chatView, cmd = a.chatView.Update(msg)
	case messages.ViewIdentity, messages.ViewUpload:
		a.setupView, cmd = a.setupView.Update(msg)
	}
	return a, cmd
}

// handleKeyMsg processes global keys, then routes to the active view.
func (a *App) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()

	switch {
	case keymap.Matches(key, a.keymap.Quit):
		a.unsubscribe()
		return a, tea.Quit
	case keymap.Matches(key, a.keymap.Restart):
		return a, a.run("restart", a.ports.Session.Restart)
	case keymap.Matches(key, a.keymap.StartOver):
		return a, a.run("start over", a.ports.Session.StartOver)
	}

	var cmd tea.Cmd
	switch a.CurrentView() {
	case messages.ViewPrior:
		switch {
		case keymap.Matches(key, a.keymap.Resume):
			return a, a.run("resume", a.ports.Session.Resume)
		case keymap.Matches(key, a.keymap.Proceed):
			return a, a.run("proceed", a.ports.Session.Proceed)
		}

	case messages.ViewChat:
		if keymap.Matches(key, a.keymap.Reconnect) {
			return a, a.run("reconnect", a.ports.Session.Reconnect)
		}
		a.chatView, cmd = a.chatView.Update(msg)

	case messages.ViewFailed:
		if keymap.Matches(key, a.keymap.Send) {
			return a, a.run("restart", a.ports.Session.Restart)
		}

	case messages.ViewIdentity, messages.ViewUpload:
		a.setupView, cmd = a.setupView.Update(msg)

	case messages.ViewProgress:
		// Nothing to type while the pipeline runs.
	}
	return a, cmd
}

// applySnapshot distributes a snapshot to every view.
func (a *App) applySnapshot(snap domain.SessionSnapshot) tea.Cmd {
	a.snap = snap
	a.setupView.SetSnapshot(snap)
	a.progressView.SetSnapshot(snap)
	return a.chatView.SetSnapshot(snap)
}

// setError records the last action error and shows it; nil clears it.
func (a *App) setError(err error) {
	a.err = err
	a.setupView.SetError(err)
	if err != nil {
		a.chatView.Update(messages.ErrorOccurred{Err: err})
	}
}

// View implements tea.Model.
// It renders the current view as a string.
func (a *App) View() string {
	if !a.ready {
		return "Initialising..."
	}

	switch a.CurrentView() {
	case messages.ViewProgress, messages.ViewFailed:
		return a.progressView.View()
	case messages.ViewChat:
		return a.chatView.View()
	default:
		return a.setupView.View()
	}
}

// Run starts the TUI application and releases the subscription on exit.
func (a *App) Run() error {
	defer a.unsubscribe()
	p := tea.NewProgram(a, tea.WithAltScreen(), tea.WithContext(a.ctx))
	_, err := p.Run()
	return err
}

// CurrentView returns the current view type.
func (a *App) CurrentView() messages.ViewType {
	switch v := messages.ViewFor(a.snap); v {
	case messages.ViewIdentity, messages.ViewUpload, messages.ViewPrior:
		return a.setupView.Mode()
	default:
		return v
	}
}

// Snapshot returns the last session snapshot received.
func (a *App) Snapshot() domain.SessionSnapshot {
	return a.snap
}

// Err returns the last error that occurred.
func (a *App) Err() error {
	return a.err
}

// Ready returns whether the app has been initialised.
func (a *App) Ready() bool {
	return a.ready
}

// SetDimensions sets the terminal dimensions.
func (a *App) SetDimensions(width, height int) {
	a.width = width
	a.height = height
	a.ready = true
	a.setupView.SetDimensions(width, height)
	a.progressView.SetDimensions(width, height)
	a.chatView.SetDimensions(width, height)
}
