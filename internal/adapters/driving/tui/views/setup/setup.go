// Package setup provides the identity, document and prior session screens.
package setup

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/docchat/internal/adapters/driving/tui/components/input"
	"github.com/custodia-labs/docchat/internal/adapters/driving/tui/components/status"
	"github.com/custodia-labs/docchat/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/docchat/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/docchat/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/docchat/internal/core/domain"
)

// View collects the owner's email and the document path,
// and presents a prior session for resumption.
type View struct {
	styles    *styles.Styles
	keymap    *keymap.KeyMap
	email     *input.Field
	path      *input.Field
	statusbar *status.Bar

	snap         domain.SessionSnapshot
	server       string
	editIdentity bool
	width        int
	height       int
}

// NewView creates a new setup view.
func NewView(s *styles.Styles, km *keymap.KeyMap) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	if km == nil {
		km = keymap.DefaultKeyMap()
	}

	return &View{
		styles:    s,
		keymap:    km,
		email:     input.NewField(s, "Email", "you@example.com"),
		path:      input.NewField(s, "Document", "path/to/file.pdf"),
		statusbar: status.NewBar(s, km),
		width:     80,
		height:    24,
	}
}

// Init initialises the view.
func (v *View) Init() tea.Cmd {
	return v.email.Init()
}

// Mode returns the screen currently shown.
func (v *View) Mode() messages.ViewType {
	mode := messages.ViewFor(v.snap)
	if mode == messages.ViewUpload && v.editIdentity {
		return messages.ViewIdentity
	}
	return mode
}

// SetSnapshot replaces the displayed state.
func (v *View) SetSnapshot(snap domain.SessionSnapshot) {
	if snap.Identity != v.snap.Identity {
		v.email.SetValue(snap.Identity)
		v.editIdentity = false
	}
	v.snap = snap
	v.statusbar.SetSnapshot(snap)

	if v.Mode() == messages.ViewPrior {
		v.statusbar.SetBindings(v.keymap.PriorHelp())
	} else {
		v.statusbar.SetBindings(nil)
	}
}

// SetServer sets the backend address shown under the title.
func (v *View) SetServer(server string) {
	v.server = server
}

// SetError shows an error in the status bar; nil clears it.
func (v *View) SetError(err error) {
	if err == nil {
		v.statusbar.SetMessage("")
		return
	}
	v.statusbar.SetMessage(err.Error())
}

// Update handles messages for the setup view.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)
		return v, nil

	case messages.SessionEvent:
		v.SetSnapshot(msg.Event.Snapshot)
		return v, nil

	case messages.ErrorOccurred:
		v.SetError(msg.Err)
		return v, nil

	case tea.KeyMsg:
		return v.handleKeyMsg(msg)
	}

	return v.forward(msg)
}

// handleKeyMsg processes keyboard input.
func (v *View) handleKeyMsg(msg tea.KeyMsg) (*View, tea.Cmd) {
	mode := v.Mode()

	if msg.Type == tea.KeyEsc && mode == messages.ViewUpload {
		v.editIdentity = true
		return v, v.email.Focus()
	}

	if !keymap.Matches(msg.String(), v.keymap.Send) {
		return v.forward(msg)
	}

	switch mode {
	case messages.ViewIdentity:
		email := strings.TrimSpace(v.email.Value())
		if email == "" {
			return v, nil
		}
		v.editIdentity = false
		return v, func() tea.Msg {
			return messages.IdentitySubmitted{Email: email}
		}

	case messages.ViewUpload:
		path := strings.TrimSpace(v.path.Value())
		if path == "" {
			return v, nil
		}
		return v, func() tea.Msg {
			return messages.DocumentChosen{Path: path}
		}
	}
	return v, nil
}

// forward passes a message to the focused field.
func (v *View) forward(msg tea.Msg) (*View, tea.Cmd) {
	var cmd tea.Cmd
	switch v.Mode() {
	case messages.ViewIdentity:
		v.email, cmd = v.email.Update(msg)
	case messages.ViewUpload:
		v.path, cmd = v.path.Update(msg)
	}
	return v, cmd
}

// View renders the setup view.
func (v *View) View() string {
	var b strings.Builder

	b.WriteString(v.styles.Title.Render("docchat"))
	b.WriteString("\n")
	b.WriteString(v.styles.Subtitle.Render("Chat with your documents"))
	if v.server != "" {
		b.WriteString(v.styles.Muted.Render("  " + v.server))
	}
	b.WriteString("\n\n")

	switch v.Mode() {
	case messages.ViewIdentity:
		b.WriteString(v.styles.Normal.Render("Enter your email address to get started."))
		b.WriteString("\n\n")
		b.WriteString(v.email.View())

	case messages.ViewUpload:
		b.WriteString(v.styles.Muted.Render("Signed in as " + v.snap.Identity + " (esc to change)"))
		b.WriteString("\n\n")
		b.WriteString(v.styles.Normal.Render("Which document would you like to discuss?"))
		b.WriteString("\n\n")
		b.WriteString(v.path.View())

	case messages.ViewPrior:
		b.WriteString(v.renderPrior())
	}

	b.WriteString("\n\n")
	b.WriteString(v.statusbar.View())
	return b.String()
}

func (v *View) renderPrior() string {
	prior := v.snap.Prior
	if prior == nil {
		return ""
	}

	var b strings.Builder
	b.WriteString(v.styles.Warning.Render("You have a previous session."))
	b.WriteString("\n\n")
	if prior.Filename != "" {
		b.WriteString(fmt.Sprintf("%s %s\n", v.styles.Muted.Render("File:"), prior.Filename))
	}
	if t := prior.CreatedTime(); !t.IsZero() {
		b.WriteString(fmt.Sprintf("%s %s\n", v.styles.Muted.Render("Created:"), t.Local().Format("2006-01-02 15:04")))
	}
	if prior.Summary != "" {
		b.WriteString("\n")
		b.WriteString(v.styles.Normal.Render(prior.Summary))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(v.styles.Normal.Render("Press r to resume it or u to upload your new document."))
	return b.String()
}

// SetDimensions sets the view dimensions.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
	v.email.SetWidth(width)
	v.path.SetWidth(width)
	v.statusbar.SetWidth(width)
}
