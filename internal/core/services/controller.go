package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driven"
	"github.com/custodia-labs/docchat/internal/core/ports/driving"
	"github.com/custodia-labs/docchat/internal/logger"
)

// Verify interface compliance.
var _ driving.SessionService = (*SessionController)(nil)

const (
	// actionBuffer is the capacity of the controller's work queue.
	actionBuffer = 64

	// subscriberBuffer is the capacity of each subscriber channel.
	subscriberBuffer = 512
)

// ControllerOption configures a SessionController.
type ControllerOption func(*SessionController)

// WithClock sets the time source used to stamp messages and sessions.
func WithClock(now func() time.Time) ControllerOption {
	return func(c *SessionController) {
		if now != nil {
			c.now = now
		}
	}
}

// SessionController owns the session lifecycle and composes the tracker,
// the connection manager, the stream assembler and the message store.
//
// Every state change runs on a single event loop goroutine. Network work
// runs in separate goroutines whose results are posted back to the loop and
// discarded when a restart or failure happened in between.
type SessionController struct {
	settings  domain.Settings
	store     *PersistentStore
	api       driven.IngestionAPI
	tracker   *PipelineStatusTracker
	conns     *ConnectionManager
	assembler *StreamAssembler
	messages  *MessageStore
	now       func() time.Time

	ctx       context.Context
	cancel    context.CancelFunc
	actions   chan func()
	done      chan struct{}
	loopDone  chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup

	// Owned by the event loop.
	state    domain.ControllerState
	identity string
	session  *domain.Session
	progress int
	prior    *domain.SessionSummary
	pending  *domain.Upload
	checking bool
	resuming bool
	failure  *domain.Failure
	gen      uint64
	connID   uint64
	started  bool

	snapMu sync.RWMutex
	snap   domain.SessionSnapshot

	subMu     sync.Mutex
	subs      map[int]chan domain.SessionEvent
	nextSub   int
	subClosed bool
}

// NewSessionController creates a controller in the idle state and starts
// its event loop. Call Start to restore persisted state and Close to release it.
func NewSessionController(
	store *PersistentStore,
	api driven.IngestionAPI,
	dialer driven.Dialer,
	settings domain.Settings,
	opts ...ControllerOption,
) *SessionController {
	ctx, cancel := context.WithCancel(context.Background())
	c := &SessionController{
		settings: settings,
		store:    store,
		api:      api,
		now:      time.Now,
		ctx:      ctx,
		cancel:   cancel,
		actions:  make(chan func(), actionBuffer),
		done:     make(chan struct{}),
		loopDone: make(chan struct{}),
		state:    domain.StateIdle,
		subs:     make(map[int]chan domain.SessionEvent),
	}
	for _, opt := range opts {
		opt(c)
	}

	c.tracker = NewPipelineStatusTracker(api, settings.PollInterval, settings.RetryPolicy())
	c.conns = NewConnectionManager(dialer, settings.ReconnectNoticeDelay)
	c.assembler = NewStreamAssembler(c.now)
	c.messages = NewMessageStore(store, settings.DedupWindow)
	c.snap = c.buildSnapshot()

	go c.loop()
	return c
}

// Start restores the persisted identity and session.
// A ready session reopens the connection without polling; a session still
// in the pipeline resumes polling from its last stage.
func (c *SessionController) Start(ctx context.Context) error {
	return c.call(ctx, func() error {
		if c.started {
			return nil
		}
		c.started = true
		c.identity = c.store.LoadIdentity()

		s := c.store.LoadSession()
		if s == nil {
			c.publish(domain.EventStateChanged, nil)
			return nil
		}
		if s.OwnerEmail == "" {
			s.OwnerEmail = c.identity
		}

		switch {
		case s.IsReady():
			logger.Debug("resuming ready session %s", s.ID)
			c.session = s
			c.messages.Restore()
			c.progress = 100
			c.state = domain.StateChatReady
			c.publish(domain.EventStateChanged, nil)
			c.openConnection()

		case s.Stage.IsFailure():
			logger.Warn("discarding session %s stored at stage %q", s.ID, s.Stage)
			c.store.ClearSession()
			c.publish(domain.EventStateChanged, nil)

		default:
			logger.Debug("resuming polling for session %s at stage %q", s.ID, s.Stage)
			c.session = s
			c.progress = domain.NextProgress(s.Stage, 0)
			c.state = domain.StatePollingPipeline
			c.publish(domain.EventStateChanged, nil)
			c.beginTracking(s.Stage, c.progress)
		}
		return nil
	})
}

// SetIdentity validates and persists the owner's email address.
func (c *SessionController) SetIdentity(ctx context.Context, email string) error {
	email = strings.TrimSpace(email)
	if err := domain.ValidateIdentity(email); err != nil {
		return err
	}
	return c.call(ctx, func() error {
		if c.state != domain.StateIdle && c.state != domain.StateFailed {
			return fmt.Errorf("%w: cannot change identity while %s", domain.ErrInvalidState, c.state)
		}
		if c.identity == email {
			return nil
		}
		c.identity = email
		c.store.SaveIdentity(email)
		c.publish(domain.EventStateChanged, nil)
		return nil
	})
}

// Submit checks for a prior session and then uploads the document.
// It returns once the work is scheduled; progress arrives as events.
func (c *SessionController) Submit(ctx context.Context, upload domain.Upload) error {
	if upload.Filename == "" {
		return fmt.Errorf("%w: filename is required", domain.ErrInvalidInput)
	}
	if len(upload.Content) == 0 {
		return fmt.Errorf("%w: document is empty", domain.ErrInvalidInput)
	}

	return c.call(ctx, func() error {
		if c.state != domain.StateIdle || c.checking {
			return fmt.Errorf("%w: cannot submit while %s", domain.ErrInvalidState, c.state)
		}
		if c.identity == "" {
			return domain.ErrIdentityRequired
		}

		c.pending = &upload
		c.checking = true
		gen, identity := c.gen, c.identity

		c.async(func(ctx context.Context) {
			prior, err := c.api.CheckPriorSession(ctx, identity)
			c.post(func() {
				if gen != c.gen {
					return
				}
				c.checking = false
				if err != nil {
					logger.Warn("prior session check failed, uploading anyway: %v", err)
				} else if latest := prior.Latest(); latest != nil {
					logger.Info("found prior session %s for %s", latest.SessionID, identity)
					c.prior = latest
					c.state = domain.StateAwaitingConfirmation
					c.publish(domain.EventStateChanged, nil)
					return
				}
				c.startUpload()
			})
		})
		return nil
	})
}

// Resume adopts the offered prior session after a single status check.
func (c *SessionController) Resume(ctx context.Context) error {
	return c.call(ctx, func() error {
		if c.state != domain.StateAwaitingConfirmation || c.prior == nil || c.resuming {
			return fmt.Errorf("%w: no prior session to resume", domain.ErrInvalidState)
		}

		// The state stays awaiting-confirmation until the single check answers.
		prior := c.prior
		gen := c.gen
		c.resuming = true

		c.async(func(ctx context.Context) {
			stage, report, err := c.tracker.CheckOnce(ctx, prior.SessionID)
			c.post(func() {
				if gen != c.gen {
					return
				}
				c.onResumeChecked(prior, stage, report, err)
			})
		})
		return nil
	})
}

// Proceed discards the offered prior session and uploads the pending document.
func (c *SessionController) Proceed(ctx context.Context) error {
	return c.call(ctx, func() error {
		if c.state != domain.StateAwaitingConfirmation || c.pending == nil {
			return fmt.Errorf("%w: nothing to upload", domain.ErrInvalidState)
		}
		if c.resuming {
			return fmt.Errorf("%w: resuming prior session", domain.ErrInvalidState)
		}
		c.prior = nil
		c.startUpload()
		return nil
	})
}

// Ask sends a question. The user message is appended only after the frame
// was written, so a closed connection leaves the log untouched.
func (c *SessionController) Ask(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return fmt.Errorf("%w: question is empty", domain.ErrInvalidInput)
	}

	return c.call(ctx, func() error {
		if c.state != domain.StateChatting || c.session == nil {
			return fmt.Errorf("%w: cannot ask while %s", domain.ErrInvalidState, c.state)
		}

		frame := domain.NewQuestionFrame(text, c.session.ResultHandle, c.identity)
		if err := c.conns.Send(frame); err != nil {
			return err
		}

		m := domain.NewUserMessage(text, c.now())
		c.messages.Append(m)
		c.assembler.ExpectReply()
		c.publish(domain.EventCommitted, &m)
		return nil
	})
}

// Reconnect opens a fresh connection instance for a ready session.
func (c *SessionController) Reconnect(ctx context.Context) error {
	return c.call(ctx, func() error {
		if c.state != domain.StateChatting && c.state != domain.StateChatReady {
			return fmt.Errorf("%w: cannot reconnect while %s", domain.ErrInvalidState, c.state)
		}
		switch c.conns.State() {
		case domain.ConnOpen, domain.ConnConnecting:
			return nil
		}
		c.openConnection()
		return nil
	})
}

// Restart abandons the current session and keeps the identity.
func (c *SessionController) Restart(ctx context.Context) error {
	return c.call(ctx, func() error {
		c.reset()
		c.store.ClearSession()
		c.state = domain.StateIdle
		c.publish(domain.EventStateChanged, nil)
		return nil
	})
}

// StartOver abandons the current session and forgets the identity.
func (c *SessionController) StartOver(ctx context.Context) error {
	return c.call(ctx, func() error {
		c.reset()
		c.store.ClearAll()
		c.identity = ""
		c.state = domain.StateIdle
		c.publish(domain.EventStateChanged, nil)
		return nil
	})
}

// Snapshot returns the state after the most recent change.
func (c *SessionController) Snapshot() domain.SessionSnapshot {
	c.snapMu.RLock()
	defer c.snapMu.RUnlock()
	return c.snap
}

// Subscribe returns a channel receiving every session event.
// Events are dropped for a subscriber that falls behind.
func (c *SessionController) Subscribe() (<-chan domain.SessionEvent, func()) {
	ch := make(chan domain.SessionEvent, subscriberBuffer)

	c.subMu.Lock()
	defer c.subMu.Unlock()
	if c.subClosed {
		close(ch)
		return ch, func() {}
	}
	id := c.nextSub
	c.nextSub++
	c.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			c.subMu.Lock()
			defer c.subMu.Unlock()
			if sub, ok := c.subs[id]; ok {
				delete(c.subs, id)
				close(sub)
			}
		})
	}
}

// Close stops polling, disposes the connection and closes every subscriber.
func (c *SessionController) Close() error {
	c.closeOnce.Do(func() {
		close(c.done)
		c.cancel()
		<-c.loopDone

		c.wg.Wait()
		c.tracker.Stop()
		c.tracker.Wait()
		c.conns.Dispose()

		c.subMu.Lock()
		for id, ch := range c.subs {
			delete(c.subs, id)
			close(ch)
		}
		c.subClosed = true
		c.subMu.Unlock()
	})
	return nil
}

// loop applies queued actions and connection events one at a time.
func (c *SessionController) loop() {
	defer close(c.loopDone)

	events := c.conns.Events()
	for {
		select {
		case <-c.done:
			return
		case fn := <-c.actions:
			fn()
		case ev, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			c.onConn(ev)
		}
	}
}

// call runs fn on the event loop and waits for its result.
func (c *SessionController) call(ctx context.Context, fn func() error) error {
	select {
	case <-c.done:
		return domain.ErrSessionClosed
	default:
	}

	errc := make(chan error, 1)
	select {
	case c.actions <- func() { errc <- fn() }:
	case <-c.done:
		return domain.ErrSessionClosed
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-errc:
		return err
	case <-c.done:
		return domain.ErrSessionClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// post queues fn on the event loop. It must not be called from the loop.
func (c *SessionController) post(fn func()) {
	select {
	case c.actions <- fn:
	case <-c.done:
	}
}

// async runs fn in a tracked goroutine bound to the controller's lifetime.
func (c *SessionController) async(fn func(ctx context.Context)) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		fn(c.ctx)
	}()
}

// startUpload submits and uploads the pending document.
func (c *SessionController) startUpload() {
	up := c.pending
	gen, identity := c.gen, c.identity

	c.progress = 0
	c.failure = nil
	c.state = domain.StatePollingPipeline
	c.publish(domain.EventStateChanged, nil)

	c.async(func(ctx context.Context) {
		policy := c.settings.RetryPolicy()
		ticket, err := retryTransient(ctx, policy, "submit", func() (*domain.SubmitTicket, error) {
			return c.api.Submit(ctx, up.Filename, identity)
		})
		if err == nil {
			_, err = retryTransient(ctx, policy, "upload", func() (struct{}, error) {
				return struct{}{}, c.api.Upload(ctx, ticket.UploadTarget, up.Content, up.ContentType)
			})
		}

		c.post(func() {
			if gen != c.gen {
				return
			}
			if err != nil {
				c.fail(domain.NewFailure(domain.FailureUpload, err))
				return
			}
			c.onUploaded(ticket)
		})
	})
}

// onUploaded records the new session and starts tracking it.
func (c *SessionController) onUploaded(ticket *domain.SubmitTicket) {
	logger.Info("uploaded %s as session %s", c.pending.Filename, ticket.SessionID)

	s := &domain.Session{
		ID:         ticket.SessionID,
		OwnerEmail: c.identity,
		Stage:      domain.StageNone,
		CreatedAt:  c.now(),
	}
	c.pending = nil
	c.session = s
	c.messages.Reset()
	c.store.ClearSession()
	c.store.SaveSession(s)

	c.publish(domain.EventProgress, nil)
	c.beginTracking(domain.StageNone, 0)
}

func (c *SessionController) beginTracking(from domain.PipelineStage, progress int) {
	gen := c.gen
	c.tracker.Begin(c.ctx, c.session.ID, from, progress, func(ev TrackerEvent) {
		c.post(func() {
			if gen == c.gen {
				c.onTracker(ev)
			}
		})
	})
}

func (c *SessionController) onTracker(ev TrackerEvent) {
	if c.session == nil || c.state != domain.StatePollingPipeline {
		return
	}

	switch ev.Kind {
	case TrackerProgress:
		c.session.Stage = ev.Stage
		c.store.SaveStage(ev.Stage)
		c.progress = ev.Progress
		c.publish(domain.EventProgress, nil)

	case TrackerReady:
		logger.Info("session %s is ready", c.session.ID)
		c.session.MarkReady(ev.ResultHandle)
		c.store.SaveSession(c.session)
		c.progress = 100
		c.state = domain.StateChatReady
		c.publish(domain.EventStateChanged, nil)
		c.openConnection()

	case TrackerFailed:
		c.fail(ev.Failure)
	}
}

// onResumeChecked finishes Resume with the result of the single status check.
func (c *SessionController) onResumeChecked(
	prior *domain.SessionSummary,
	stage domain.PipelineStage,
	report *domain.StatusReport,
	err error,
) {
	c.resuming = false
	if err != nil {
		c.fail(domain.NewFailure(domain.FailureUnknown, fmt.Errorf("check prior session: %w", err)))
		return
	}
	if stage != domain.StageReady {
		c.fail(domain.NewFailure(domain.FailureNotReady, fmt.Errorf("prior session %s is at stage %q", prior.SessionID, stage)))
		return
	}

	created := prior.CreatedTime()
	if created.IsZero() {
		created = c.now()
	}
	s := &domain.Session{
		ID:         prior.SessionID,
		OwnerEmail: c.identity,
		CreatedAt:  created,
	}
	s.MarkReady(report.ResultHandle)

	c.store.ClearSession()
	c.store.SaveSession(s)
	c.store.SaveSummary(prior)
	c.messages.LoadInitial(prior.Conversation)

	c.session = s
	c.pending = nil
	c.prior = nil
	c.progress = 100
	c.state = domain.StateChatReady
	c.publish(domain.EventStateChanged, nil)
	c.openConnection()
}

// openConnection opens a new connection instance. The handshake is only
// sent for a conversation that has no messages yet.
func (c *SessionController) openConnection() {
	var handshake *domain.Frame
	if c.messages.Len() == 0 {
		f := domain.NewInitialFrame(c.session.ResultHandle, c.identity)
		handshake = &f
	}

	id, err := c.conns.Open(c.ctx, handshake)
	if err != nil {
		logger.Warn("open connection: %v", err)
		return
	}
	c.connID = id
	c.publish(domain.EventConnection, nil)
}

func (c *SessionController) onConn(ev ConnEvent) {
	if ev.Instance != c.connID {
		return
	}

	switch ev.Kind {
	case ConnEventOpen:
		if c.state == domain.StateChatReady {
			c.state = domain.StateChatting
		}
		if ev.HandshakeSent {
			c.assembler.AwaitInitial()
		}
		c.publish(domain.EventStateChanged, nil)

	case ConnEventDialFailed:
		if c.state == domain.StateChatReady {
			c.fail(domain.NewFailure(domain.FailureConnection, ev.Err))
			return
		}
		c.commit(domain.NewErrorMessage(domain.FailureConnection.UserMessage(), c.now()))

	case ConnEventFrame:
		msg, changed := c.assembler.Apply(ev.Frame)
		switch {
		case msg != nil:
			c.commit(*msg)
		case changed && ev.Frame.Type == domain.FrameFragment:
			c.publish(domain.EventFragment, nil)
		case changed:
			c.publish(domain.EventComposing, nil)
		}

	case ConnEventMalformed:
		c.assembler.Reset()
		c.publish(domain.EventComposing, nil)

	case ConnEventClosed:
		c.assembler.Reset()
		c.publish(domain.EventConnection, nil)

	case ConnEventNotice:
		c.commit(domain.NewErrorMessage(domain.ConnectionLostText, c.now()))
	}
}

// commit appends m to the log and publishes it. Duplicates only refresh the view.
func (c *SessionController) commit(m domain.Message) {
	if !c.messages.Append(m) {
		logger.Debug("dropping duplicate assistant message")
		c.publish(domain.EventComposing, &m)
		return
	}
	c.publish(domain.EventCommitted, &m)
}

// reset drops all in-flight work and session state, keeping the identity.
func (c *SessionController) reset() {
	c.gen++
	c.tracker.Stop()
	c.conns.Close()
	c.connID = 0
	c.assembler.Reset()
	c.messages.Reset()

	c.session = nil
	c.prior = nil
	c.pending = nil
	c.checking = false
	c.resuming = false
	c.failure = nil
	c.progress = 0
}

// fail ends the session with f, clearing every session identifier except identity.
func (c *SessionController) fail(f *domain.Failure) {
	if f == nil {
		f = domain.NewFailure(domain.FailureUnknown, nil)
	}
	logger.Warn("%v", f)

	c.reset()
	c.store.ClearSession()
	c.failure = f
	c.state = domain.StateFailed
	c.publish(domain.EventStateChanged, nil)
}

func (c *SessionController) buildSnapshot() domain.SessionSnapshot {
	live, streaming := c.assembler.Live()
	snap := domain.SessionSnapshot{
		State:          c.state,
		Identity:       c.identity,
		Progress:       c.progress,
		Messages:       c.messages.Messages(),
		Connection:     c.conns.State(),
		Live:           live,
		Streaming:      streaming,
		Composing:      c.assembler.Composing(),
		WaitingInitial: c.assembler.WaitingInitial(),
		Prior:          c.prior,
		Failure:        c.failure,
	}
	if c.session != nil {
		s := *c.session
		snap.Session = &s
	}
	return snap
}

// publish refreshes the snapshot and fans the event out to subscribers.
func (c *SessionController) publish(kind domain.EventKind, msg *domain.Message) {
	snap := c.buildSnapshot()

	c.snapMu.Lock()
	c.snap = snap
	c.snapMu.Unlock()

	ev := domain.SessionEvent{Kind: kind, Message: msg, Snapshot: snap}

	c.subMu.Lock()
	defer c.subMu.Unlock()
	for id, ch := range c.subs {
		select {
		case ch <- ev:
		default:
			logger.Warn("subscriber %d is behind, dropping %s event", id, kind)
		}
	}
}
