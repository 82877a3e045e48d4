// Package status provides the status bar component for the TUI.
package status

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/docchat/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/docchat/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/docchat/internal/core/domain"
)

// Bar displays session state, connection state and keybinding hints.
type Bar struct {
	styles   *styles.Styles
	keymap   *keymap.KeyMap
	snap     domain.SessionSnapshot
	message  string
	bindings []key.Binding
	width    int
}

// NewBar creates a new status bar component.
func NewBar(s *styles.Styles, km *keymap.KeyMap) *Bar {
	if s == nil {
		s = styles.DefaultStyles()
	}
	if km == nil {
		km = keymap.DefaultKeyMap()
	}

	return &Bar{
		styles: s,
		keymap: km,
		snap:   domain.SessionSnapshot{State: domain.StateIdle, Connection: domain.ConnClosed},
		width:  80,
	}
}

// Init initialises the status bar.
func (s *Bar) Init() tea.Cmd {
	return nil
}

// Update handles status bar messages.
func (s *Bar) Update(_ tea.Msg) (*Bar, tea.Cmd) {
	// Bar is passive, updated via Set methods
	return s, nil
}

// View renders the status bar.
func (s *Bar) View() string {
	left := s.renderLeft()
	right := s.renderRight()

	padding := s.width - lipgloss.Width(left) - lipgloss.Width(right)
	if padding < 1 {
		padding = 1
	}

	return s.styles.StatusBar.Width(s.width).Render(
		left + strings.Repeat(" ", padding) + right,
	)
}

func (s *Bar) renderLeft() string {
	if s.message != "" {
		return s.styles.Error.Render(s.message)
	}

	parts := []string{s.renderState()}
	if s.snap.State == domain.StateChatReady || s.snap.State == domain.StateChatting {
		parts = append(parts, s.renderConnection())
		parts = append(parts, s.styles.Muted.Render(fmt.Sprintf("%d messages", len(s.snap.Messages))))
	}
	return strings.Join(parts, s.styles.Muted.Render(" · "))
}

func (s *Bar) renderState() string {
	switch s.snap.State {
	case domain.StatePollingPipeline:
		return s.styles.Warning.Render(fmt.Sprintf("Processing %d%%", s.snap.Progress))
	case domain.StateAwaitingConfirmation:
		return s.styles.Warning.Render("Previous session found")
	case domain.StateChatReady:
		return s.styles.Success.Render("Ready")
	case domain.StateChatting:
		return s.styles.Success.Render("Chatting")
	case domain.StateFailed:
		return s.styles.Error.Render("Failed")
	default:
		return s.styles.Muted.Render("Idle")
	}
}

func (s *Bar) renderConnection() string {
	switch s.snap.Connection {
	case domain.ConnOpen:
		return s.styles.Success.Render("connected")
	case domain.ConnConnecting:
		return s.styles.Muted.Render("connecting")
	case domain.ConnReconnectPending:
		return s.styles.Warning.Render("reconnecting")
	default:
		return s.styles.Error.Render("disconnected")
	}
}

// renderRight renders keybinding hints.
func (s *Bar) renderRight() string {
	bindings := s.bindings
	if len(bindings) == 0 {
		bindings = s.keymap.ShortHelp()
	}

	hints := make([]string, 0, len(bindings))
	for _, b := range bindings {
		h := b.Help()
		hints = append(hints, fmt.Sprintf("%s: %s", h.Key, h.Desc))
	}
	return s.styles.Muted.Render(strings.Join(hints, " | "))
}

// SetSnapshot sets the session state to display.
func (s *Bar) SetSnapshot(snap domain.SessionSnapshot) {
	s.snap = snap
}

// Snapshot returns the displayed session state.
func (s *Bar) Snapshot() domain.SessionSnapshot {
	return s.snap
}

// SetBindings sets the keybinding hints; nil restores the short help.
func (s *Bar) SetBindings(bindings []key.Binding) {
	s.bindings = bindings
}

// SetMessage sets an error message that replaces the state summary.
func (s *Bar) SetMessage(message string) {
	s.message = message
}

// Message returns the current message.
func (s *Bar) Message() string {
	return s.message
}

// SetWidth sets the status bar width.
func (s *Bar) SetWidth(width int) {
	s.width = width
}

// Width returns the current width.
func (s *Bar) Width() int {
	return s.width
}

// Clear removes the message and hints.
func (s *Bar) Clear() {
	s.message = ""
	s.bindings = nil
}
