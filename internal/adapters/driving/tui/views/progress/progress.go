// Package progress provides the ingestion progress and failure screens.
package progress

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/docchat/internal/adapters/driving/tui/components/status"
	"github.com/custodia-labs/docchat/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/docchat/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/docchat/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/docchat/internal/core/domain"
)

// stageLabels are the user-facing names of pipeline stages.
var stageLabels = map[domain.PipelineStage]string{
	domain.StageNone:              "Uploading",
	domain.StageSubmitted:         "Submitted",
	domain.StageContentFetched:    "Reading content",
	domain.StageContentNormalized: "Content extracted",
	domain.StageEnrichmentRunning: "Analysing",
	domain.StageReady:             "Ready",
}

// View shows ingestion progress, or the failure once the session fails.
type View struct {
	styles    *styles.Styles
	bar       progress.Model
	statusbar *status.Bar

	snap   domain.SessionSnapshot
	width  int
	height int
}

// NewView creates a new progress view.
func NewView(s *styles.Styles, km *keymap.KeyMap) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	if km == nil {
		km = keymap.DefaultKeyMap()
	}

	bar := progress.New(progress.WithDefaultGradient())
	bar.Width = 60

	return &View{
		styles:    s,
		bar:       bar,
		statusbar: status.NewBar(s, km),
		width:     80,
		height:    24,
	}
}

// Init initialises the view.
func (v *View) Init() tea.Cmd {
	return nil
}

// Update handles messages for the progress view.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)
	case messages.SessionEvent:
		v.SetSnapshot(msg.Event.Snapshot)
	}
	return v, nil
}

// SetSnapshot replaces the displayed state.
func (v *View) SetSnapshot(snap domain.SessionSnapshot) {
	v.snap = snap
	v.statusbar.SetSnapshot(snap)
}

// View renders the progress or failure screen.
func (v *View) View() string {
	if v.snap.State == domain.StateFailed {
		return v.viewFailed()
	}

	var b strings.Builder
	b.WriteString(v.styles.Title.Render("Processing your document"))
	b.WriteString("\n\n")
	b.WriteString(v.bar.ViewAs(float64(v.snap.Progress) / 100))
	b.WriteString("\n\n")
	b.WriteString(v.styles.Muted.Render(fmt.Sprintf("%s (%d%%)", v.stageLabel(), v.snap.Progress)))
	b.WriteString("\n\n")
	b.WriteString(v.statusbar.View())
	return b.String()
}

func (v *View) stageLabel() string {
	if v.snap.Session == nil {
		return stageLabels[domain.StageNone]
	}
	if label, ok := stageLabels[v.snap.Session.Stage]; ok {
		return label
	}
	return string(v.snap.Session.Stage)
}

func (v *View) viewFailed() string {
	kind := domain.FailureUnknown
	if v.snap.Failure != nil {
		kind = v.snap.Failure.Kind
	}

	var b strings.Builder
	b.WriteString(v.styles.Error.Render("Something went wrong"))
	b.WriteString("\n\n")
	b.WriteString(v.styles.Normal.Render(kind.UserMessage()))
	b.WriteString("\n\n")
	b.WriteString(v.styles.Muted.Render("Press enter to try another document."))
	b.WriteString("\n\n")
	b.WriteString(v.statusbar.View())
	return b.String()
}

// SetDimensions sets the view dimensions.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
	v.statusbar.SetWidth(width)

	barWidth := width - 4
	if barWidth > 80 {
		barWidth = 80
	}
	if barWidth < 10 {
		barWidth = 10
	}
	v.bar.Width = barWidth
}
