package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driving"
	"github.com/custodia-labs/docchat/internal/logger"
)

// errNoDocument is returned when there is nothing to resume and no file was given.
var errNoDocument = errors.New("no active session: pass a document to upload")

// errPriorUnanswered is returned when input ends at the prior session prompt.
var errPriorUnanswered = errors.New("input ended before choosing resume or upload")

var chatCmd = &cobra.Command{
	Use:   "chat [file]",
	Short: "Chat about a document in line mode",
	Long: `Upload a document and chat about it, or resume the current session.

Without a file, the persisted session is resumed. With a file, a new session
is started unless one is already in progress.

While chatting, type a question and press enter. Commands:
  /reconnect   open a new connection after a drop
  /restart     abandon the session and keep your email
  /quit        leave (the session is kept)`,
	Args: cobra.MaximumNArgs(1),
	RunE: runChat,
}

func init() {
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	svc, settings, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer closeSession(svc)

	var path string
	if len(args) == 1 {
		path = args[0]
	}

	r := newREPL(svc, cmd.InOrStdin(), cmd.OutOrStdout())
	return r.run(ctx, settings.Identity, path)
}

// repl drives a session from line input and prints its events.
// Lines typed before the session can use them are queued.
type repl struct {
	svc    driving.SessionService
	in     io.Reader
	render *renderer

	events <-chan domain.SessionEvent
	lines  <-chan string
	stop   chan struct{}

	// eof is set once input is exhausted.
	eof bool

	// pending holds lines waiting for the prompt or the chat.
	pending []string

	// last is the most recently processed snapshot.
	last         domain.SessionSnapshot
	lastState    domain.ControllerState
	lastProgress int
	typing       bool

	// seen is the message count the next settled snapshot must reach.
	seen int

	// expectState is set while an action that changes state is in flight.
	expectState bool
}

func newREPL(svc driving.SessionService, in io.Reader, out io.Writer) *repl {
	return &repl{
		svc:          svc,
		in:           in,
		render:       newRenderer(out),
		lastState:    domain.StateIdle,
		lastProgress: -1,
	}
}

// run starts the session, submits path when idle, and loops until done.
func (r *repl) run(ctx context.Context, identity, path string) error {
	events, cancel := r.svc.Subscribe()
	defer cancel()
	r.events = events

	r.stop = make(chan struct{})
	defer close(r.stop)
	r.lines = readLines(r.in, r.stop)

	if err := r.svc.Start(ctx); err != nil {
		return fmt.Errorf("starting session: %w", err)
	}

	snap := r.svc.Snapshot()
	if identity != "" && identity != snap.Identity && canSetIdentity(snap.State) {
		if err := r.svc.SetIdentity(ctx, identity); err != nil {
			return fmt.Errorf("setting identity: %w", err)
		}
	}

	switch snap.State {
	case domain.StateIdle, domain.StateFailed:
		if path == "" {
			return errNoDocument
		}
		if err := r.submit(ctx, path); err != nil {
			return err
		}
	default:
		if path != "" {
			r.render.warning("A session is already in progress; ignoring %s. Use 'docchat restart' to start over.", path)
		}
	}

	return r.loop(ctx)
}

func canSetIdentity(s domain.ControllerState) bool {
	return s == domain.StateIdle || s == domain.StateFailed
}

// submit reads the document, asking for an email first if none is stored.
func (r *repl) submit(ctx context.Context, path string) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading document: %w", err)
	}

	if r.svc.Snapshot().Identity == "" {
		if err := r.askIdentity(ctx); err != nil {
			return err
		}
	}

	upload := domain.NewUpload(path, content)
	r.render.info("Uploading %s (%d bytes)...", upload.Filename, len(upload.Content))
	if err := r.svc.Submit(ctx, upload); err != nil {
		return fmt.Errorf("submitting document: %w", err)
	}
	return nil
}

// askIdentity prompts until a valid email is entered.
func (r *repl) askIdentity(ctx context.Context) error {
	for {
		fmt.Fprint(r.render.out, "Email address: ")
		line, ok := <-r.lines
		if !ok {
			r.lines = nil
			return domain.ErrIdentityRequired
		}
		err := r.svc.SetIdentity(ctx, line)
		if err == nil {
			return nil
		}
		if !errors.Is(err, domain.ErrInvalidInput) && !errors.Is(err, domain.ErrIdentityRequired) {
			return fmt.Errorf("setting identity: %w", err)
		}
		r.render.failure("%v", err)
	}
}

func (r *repl) loop(ctx context.Context) error {
	for {
		var (
			done bool
			err  error
		)

		select {
		case <-ctx.Done():
			return ctx.Err()

		case ev, ok := <-r.events:
			if !ok {
				return nil
			}
			done, err = r.onEvent(ctx, ev)

		case line, ok := <-r.lines:
			if !ok {
				r.lines = nil
				r.eof = true
				done, err = r.settled()
				break
			}
			done, err = r.onLine(ctx, line)
		}

		if done || err != nil {
			return err
		}
	}
}

// onEvent prints an event and reports whether the session loop should end.
func (r *repl) onEvent(ctx context.Context, ev domain.SessionEvent) (bool, error) {
	snap := ev.Snapshot
	r.last = snap

	if snap.State != r.lastState {
		r.lastState = snap.State
		r.expectState = false
		if done, err := r.onState(snap); done || err != nil {
			return done, err
		}
		if done, err := r.drain(ctx); done || err != nil {
			return done, err
		}
	}

	switch ev.Kind {
	case domain.EventProgress:
		if snap.Progress != r.lastProgress {
			r.lastProgress = snap.Progress
			var stage domain.PipelineStage
			if snap.Session != nil {
				stage = snap.Session.Stage
			}
			r.render.progress(stage, snap.Progress)
		}

	case domain.EventFragment:
		r.typing = false
		r.render.fragment(snap.Live)

	case domain.EventCommitted:
		r.typing = false
		if ev.Message != nil && ev.Message.IsAssistant() {
			r.render.message(*ev.Message)
		}

	case domain.EventComposing:
		if snap.Composing && !snap.Streaming && !r.typing {
			r.typing = true
			r.render.info("assistant is typing...")
		}
	}

	if r.eof {
		return r.settled()
	}
	return false, nil
}

// onState prints a state transition.
func (r *repl) onState(snap domain.SessionSnapshot) (bool, error) {
	switch snap.State {
	case domain.StateAwaitingConfirmation:
		if snap.Prior != nil {
			r.render.prior(snap.Prior)
		}
	case domain.StatePollingPipeline:
		r.render.info("Processing document...")
	case domain.StateChatReady:
		r.render.success("Document ready. Connecting...")
	case domain.StateChatting:
		r.render.success("Connected. Ask a question about your document.")
		r.render.help()
		for _, m := range snap.Messages {
			r.render.message(m)
		}
	case domain.StateFailed:
		kind := domain.FailureUnknown
		if snap.Failure != nil {
			kind = snap.Failure.Kind
		}
		r.render.failure("%s", kind.UserMessage())
		if snap.Failure != nil {
			return true, snap.Failure
		}
		return true, domain.NewFailure(kind, nil)
	case domain.StateIdle:
		r.render.info("Session cleared.")
		return true, nil
	}
	return false, nil
}

// drain replays queued lines once the state can use them.
// At the prior session prompt only one line is consumed.
func (r *repl) drain(ctx context.Context) (bool, error) {
	for len(r.pending) > 0 {
		switch r.lastState {
		case domain.StateAwaitingConfirmation:
			line := r.pending[0]
			r.pending = r.pending[1:]
			return r.onLine(ctx, line)
		case domain.StateChatting:
			line := r.pending[0]
			r.pending = r.pending[1:]
			if done, err := r.onLine(ctx, line); done || err != nil {
				return done, err
			}
		default:
			return false, nil
		}
	}
	return false, nil
}

// settled reports whether, with input exhausted, nothing more will happen.
func (r *repl) settled() (bool, error) {
	if !r.eof || len(r.pending) > 0 || r.expectState {
		return false, nil
	}
	snap := r.last
	switch snap.State {
	case domain.StateAwaitingConfirmation:
		return true, errPriorUnanswered
	case domain.StateChatting:
		busy := snap.Composing || snap.Streaming || snap.WaitingInitial
		return !busy && len(snap.Messages) >= r.seen, nil
	default:
		return false, nil
	}
}

// onLine handles one line of input.
func (r *repl) onLine(ctx context.Context, line string) (bool, error) {
	if line == "/quit" || line == "/exit" {
		return true, nil
	}

	switch r.lastState {
	case domain.StateAwaitingConfirmation:
		switch strings.ToLower(line) {
		case "r", "resume", "y", "yes":
			return false, r.report(r.transition(r.svc.Resume(ctx)))
		case "u", "upload", "n", "no":
			return false, r.report(r.transition(r.svc.Proceed(ctx)))
		default:
			fmt.Fprint(r.render.out, "Please answer r (resume) or u (upload): ")
		}
		return false, nil

	case domain.StateChatting:
		return false, r.onChatLine(ctx, line)

	default:
		if line != "" {
			r.pending = append(r.pending, line)
		}
		return false, nil
	}
}

func (r *repl) onChatLine(ctx context.Context, line string) error {
	switch line {
	case "":
		return nil
	case "/help":
		r.render.help()
		return nil
	case "/reconnect":
		r.render.info("Reconnecting...")
		return r.report(r.svc.Reconnect(ctx))
	case "/restart":
		return r.report(r.transition(r.svc.Restart(ctx)))
	}

	err := r.svc.Ask(ctx, line)
	if errors.Is(err, domain.ErrNotConnected) {
		r.render.failure("Not connected. Type /reconnect to try again.")
		return nil
	}
	if err == nil {
		// Not settled until the question's own event has been seen.
		r.seen = len(r.svc.Snapshot().Messages)
	}
	return r.report(err)
}

// transition marks a state change as expected when the action succeeded.
func (r *repl) transition(err error) error {
	if err == nil {
		r.expectState = true
	}
	return err
}

// report prints recoverable action errors; session closure ends the loop.
func (r *repl) report(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, domain.ErrSessionClosed) {
		return err
	}
	logger.Debug("action failed: %v", err)
	r.render.failure("%v", err)
	return nil
}

// readLines scans trimmed lines from in until EOF or stop.
func readLines(in io.Reader, stop <-chan struct{}) <-chan string {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- strings.TrimSpace(scanner.Text()):
			case <-stop:
				return
			}
		}
	}()
	return lines
}
