// Package chat provides the conversation view for the TUI.
package chat

import (
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/docchat/internal/adapters/driving/tui/components/input"
	"github.com/custodia-labs/docchat/internal/adapters/driving/tui/components/status"
	"github.com/custodia-labs/docchat/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/docchat/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/docchat/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/docchat/internal/core/domain"
)

// chrome is the number of lines used by the header, indicator, input and status bar.
const chrome = 6

// View renders the conversation, the live reply and the question input.
type View struct {
	styles    *styles.Styles
	keymap    *keymap.KeyMap
	input     *input.Field
	viewport  viewport.Model
	spinner   spinner.Model
	statusbar *status.Bar

	snap    domain.SessionSnapshot
	width   int
	height  int
	ticking bool
}

// NewView creates a new chat view.
func NewView(s *styles.Styles, km *keymap.KeyMap) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	if km == nil {
		km = keymap.DefaultKeyMap()
	}

	sp := spinner.New(spinner.WithSpinner(spinner.Dot))
	sp.Style = s.Live

	bar := status.NewBar(s, km)
	bar.SetBindings(km.ChatHelp())

	v := &View{
		styles:    s,
		keymap:    km,
		input:     input.NewQuestionInput(s),
		viewport:  viewport.New(80, 24-chrome),
		spinner:   sp,
		statusbar: bar,
		width:     80,
		height:    24,
	}
	return v
}

// Init initialises the view.
func (v *View) Init() tea.Cmd {
	return v.input.Init()
}

// Update handles messages for the chat view.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)
		return v, nil

	case messages.SessionEvent:
		return v, v.SetSnapshot(msg.Event.Snapshot)

	case messages.ErrorOccurred:
		if msg.Err != nil {
			v.statusbar.SetMessage(msg.Err.Error())
		}
		return v, nil

	case spinner.TickMsg:
		if !v.busy() {
			v.ticking = false
			return v, nil
		}
		var cmd tea.Cmd
		v.spinner, cmd = v.spinner.Update(msg)
		return v, cmd

	case tea.KeyMsg:
		return v.handleKeyMsg(msg)
	}

	var cmd tea.Cmd
	v.input, cmd = v.input.Update(msg)
	return v, cmd
}

// handleKeyMsg processes keyboard input.
func (v *View) handleKeyMsg(msg tea.KeyMsg) (*View, tea.Cmd) {
	switch {
	case keymap.Matches(msg.String(), v.keymap.Send):
		text := strings.TrimSpace(v.input.Value())
		if text == "" {
			return v, nil
		}
		v.input.Reset()
		v.statusbar.SetMessage("")
		return v, func() tea.Msg {
			return messages.QuestionSubmitted{Text: text}
		}

	case keymap.Matches(msg.String(), v.keymap.ScrollUp):
		var cmd tea.Cmd
		v.viewport, cmd = v.viewport.Update(tea.KeyMsg{Type: tea.KeyPgUp})
		return v, cmd

	case keymap.Matches(msg.String(), v.keymap.ScrollDown):
		var cmd tea.Cmd
		v.viewport, cmd = v.viewport.Update(tea.KeyMsg{Type: tea.KeyPgDown})
		return v, cmd
	}

	var cmd tea.Cmd
	v.input, cmd = v.input.Update(msg)
	return v, cmd
}

// SetSnapshot replaces the displayed state.
// It returns a spinner tick when the assistant starts working.
func (v *View) SetSnapshot(snap domain.SessionSnapshot) tea.Cmd {
	atBottom := v.viewport.AtBottom()
	v.snap = snap
	v.statusbar.SetSnapshot(snap)
	v.viewport.SetContent(v.renderConversation())
	if atBottom {
		v.viewport.GotoBottom()
	}

	if v.busy() && !v.ticking {
		v.ticking = true
		return v.spinner.Tick
	}
	return nil
}

// Snapshot returns the displayed state.
func (v *View) Snapshot() domain.SessionSnapshot {
	return v.snap
}

// busy reports whether a waiting indicator is shown.
func (v *View) busy() bool {
	return v.snap.WaitingInitial || (v.snap.Composing && !v.snap.Streaming)
}

// View renders the chat view.
func (v *View) View() string {
	var b strings.Builder

	b.WriteString(v.styles.Title.Render("Chat"))
	b.WriteString("\n\n")
	b.WriteString(v.viewport.View())
	b.WriteString("\n")
	b.WriteString(v.renderIndicator())
	b.WriteString("\n")
	b.WriteString(v.input.View())
	b.WriteString("\n")
	b.WriteString(v.statusbar.View())

	return b.String()
}

func (v *View) renderIndicator() string {
	switch {
	case v.snap.WaitingInitial:
		return v.spinner.View() + v.styles.Muted.Render(" Preparing your document...")
	case v.snap.Composing && !v.snap.Streaming:
		return v.spinner.View() + v.styles.Muted.Render(" Assistant is typing...")
	case v.snap.Connection == domain.ConnReconnectPending || v.snap.Connection == domain.ConnClosed:
		return v.styles.Warning.Render("Disconnected. Press ctrl+l to reconnect.")
	default:
		return ""
	}
}

func (v *View) renderConversation() string {
	width := v.width - 2
	if width < 20 {
		width = 20
	}
	wrap := lipgloss.NewStyle().Width(width)

	parts := make([]string, 0, len(v.snap.Messages)+1)
	for _, m := range v.snap.Messages {
		parts = append(parts, wrap.Render(v.renderMessage(m)))
	}
	if v.snap.Streaming && v.snap.Live != "" {
		parts = append(parts, wrap.Render(
			v.styles.Assistant.Render("Assistant: ")+v.styles.Live.Render(v.snap.Live),
		))
	}
	return strings.Join(parts, "\n\n")
}

func (v *View) renderMessage(m domain.Message) string {
	switch {
	case m.IsError:
		return v.styles.Error.Render(m.Text)
	case m.IsAssistant():
		return v.styles.Assistant.Render("Assistant: ") + v.styles.Normal.Render(m.Text)
	default:
		return v.styles.User.Render("You: ") + v.styles.Normal.Render(m.Text)
	}
}

// SetDimensions sets the view dimensions.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
	v.input.SetWidth(width)
	v.statusbar.SetWidth(width)

	v.viewport.Width = width
	h := height - chrome
	if h < 3 {
		h = 3
	}
	v.viewport.Height = h
	v.viewport.SetContent(v.renderConversation())
}

// Input returns the question input.
func (v *View) Input() *input.Field {
	return v.input
}
