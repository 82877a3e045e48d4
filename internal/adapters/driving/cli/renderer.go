package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/custodia-labs/docchat/internal/core/domain"
)

// renderer prints session output for line mode.
type renderer struct {
	out io.Writer

	assistant *color.Color
	user      *color.Color
	muted     *color.Color
	warn      *color.Color
	fail      *color.Color
	ok        *color.Color

	// printed is the part of the current reply already written.
	printed string
}

func newRenderer(out io.Writer) *renderer {
	return &renderer{
		out:       out,
		assistant: color.New(color.FgGreen, color.Bold),
		user:      color.New(color.FgCyan, color.Bold),
		muted:     color.New(color.FgHiBlack),
		warn:      color.New(color.FgYellow),
		fail:      color.New(color.FgRed),
		ok:        color.New(color.FgGreen),
	}
}

func (r *renderer) info(format string, args ...any) {
	r.muted.Fprintf(r.out, format+"\n", args...)
}

func (r *renderer) success(format string, args ...any) {
	r.ok.Fprintf(r.out, format+"\n", args...)
}

func (r *renderer) warning(format string, args ...any) {
	r.warn.Fprintf(r.out, format+"\n", args...)
}

func (r *renderer) failure(format string, args ...any) {
	r.fail.Fprintf(r.out, format+"\n", args...)
}

func (r *renderer) progress(stage domain.PipelineStage, pct int) {
	label := string(stage)
	if label == "" {
		label = "uploading"
	}
	r.muted.Fprintf(r.out, "Processing: %3d%% (%s)\n", pct, label)
}

// fragment prints the unseen tail of the live reply.
func (r *renderer) fragment(live string) {
	if !strings.HasPrefix(live, r.printed) {
		r.endLive()
	}
	if len(live) <= len(r.printed) {
		return
	}
	if r.printed == "" {
		fmt.Fprintf(r.out, "%s ", r.assistant.Sprint("assistant ›"))
	}
	fmt.Fprint(r.out, live[len(r.printed):])
	r.printed = live
}

// message prints a committed message, finishing a streamed reply in place.
func (r *renderer) message(m domain.Message) {
	defer func() { r.printed = "" }()

	switch {
	case m.IsError:
		r.endLive()
		r.fail.Fprintln(r.out, m.Text)
	case m.IsAssistant():
		if r.printed != "" && strings.HasPrefix(m.Text, r.printed) {
			fmt.Fprintln(r.out, m.Text[len(r.printed):])
			return
		}
		r.endLive()
		fmt.Fprintf(r.out, "%s %s\n", r.assistant.Sprint("assistant ›"), m.Text)
	default:
		r.endLive()
		fmt.Fprintf(r.out, "%s %s\n", r.user.Sprint("you ›"), m.Text)
	}
}

// endLive terminates a partially printed reply.
func (r *renderer) endLive() {
	if r.printed != "" {
		fmt.Fprintln(r.out)
	}
	r.printed = ""
}

func (r *renderer) prior(p *domain.SessionSummary) {
	r.warning("You have a previous session.")
	if p.Filename != "" {
		r.info("  File:    %s", p.Filename)
	}
	if t := p.CreatedTime(); !t.IsZero() {
		r.info("  Created: %s", t.Local().Format("2006-01-02 15:04"))
	}
	if p.Summary != "" {
		fmt.Fprintf(r.out, "  %s\n", p.Summary)
	}
	fmt.Fprint(r.out, "Resume it [r] or upload the new document [u]? ")
}

func (r *renderer) help() {
	r.info("Commands: /reconnect  /restart  /quit  /help")
}
