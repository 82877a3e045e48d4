package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driven"
	"github.com/custodia-labs/docchat/internal/logger"
)

// TrackerEventKind identifies a pipeline tracker event.
type TrackerEventKind int

const (
	// TrackerProgress reports a newly applied non-terminal stage.
	TrackerProgress TrackerEventKind = iota

	// TrackerReady reports the success terminal.
	TrackerReady

	// TrackerFailed reports a failure terminal or exhausted retries.
	TrackerFailed
)

// TrackerEvent is emitted by the tracker for every applied change.
type TrackerEvent struct {
	Kind         TrackerEventKind
	Stage        domain.PipelineStage
	Progress     int
	ResultHandle string
	Failure      *domain.Failure
}

// PipelineStatusTracker polls ingestion status until a terminal stage.
// One tracking run is active at a time; starting another cancels the first.
type PipelineStatusTracker struct {
	api      driven.IngestionAPI
	interval time.Duration
	policy   domain.RetryPolicy

	mu       sync.Mutex
	stage    domain.PipelineStage
	progress int
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

// NewPipelineStatusTracker creates a tracker.
// interval is the fixed delay between polls; policy bounds consecutive failures.
// The tracker never writes session state; the caller persists applied stages.
func NewPipelineStatusTracker(
	api driven.IngestionAPI,
	interval time.Duration,
	policy domain.RetryPolicy,
) *PipelineStatusTracker {
	if interval <= 0 {
		interval = domain.DefaultPollInterval
	}
	return &PipelineStatusTracker{
		api:      api,
		interval: interval,
		policy:   policy,
	}
}

// Begin starts polling sessionID from a known stage and progress.
// emit is called from the tracker goroutine in order. Events are dropped once
// the run is cancelled, but one already being delivered may still arrive.
func (t *PipelineStatusTracker) Begin(
	ctx context.Context,
	sessionID string,
	from domain.PipelineStage,
	progress int,
	emit func(TrackerEvent),
) {
	t.Stop()

	ctx, cancel := context.WithCancel(ctx)

	t.mu.Lock()
	t.stage = from
	t.progress = progress
	t.cancel = cancel
	t.mu.Unlock()

	logger.Debug("tracking session %s from stage %q", sessionID, from)

	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		t.run(ctx, sessionID, emit)
	}()
}

// Stop cancels the active run without waiting for it.
func (t *PipelineStatusTracker) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.cancel != nil {
		t.cancel()
		t.cancel = nil
	}
}

// Wait blocks until every run has exited.
func (t *PipelineStatusTracker) Wait() {
	t.wg.Wait()
}

// Stage returns the last applied stage.
func (t *PipelineStatusTracker) Stage() domain.PipelineStage {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stage
}

// Progress returns the highest progress reached.
func (t *PipelineStatusTracker) Progress() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.progress
}

// CheckOnce performs a single status check under the retry policy.
func (t *PipelineStatusTracker) CheckOnce(ctx context.Context, sessionID string) (domain.PipelineStage, *domain.StatusReport, error) {
	report, err := t.poll(ctx, sessionID)
	if err != nil {
		return domain.StageUnknown, nil, err
	}
	return domain.ParseStage(report.Stage), report, nil
}

func (t *PipelineStatusTracker) poll(ctx context.Context, sessionID string) (*domain.StatusReport, error) {
	return retryTransient(ctx, t.policy, "status poll", func() (*domain.StatusReport, error) {
		return t.api.PollStatus(ctx, sessionID)
	})
}

func (t *PipelineStatusTracker) run(ctx context.Context, sessionID string, emit func(TrackerEvent)) {
	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}

		report, err := t.poll(ctx, sessionID)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			logger.Warn("status polling for %s gave up: %v", sessionID, err)
			t.emit(ctx, emit, TrackerEvent{
				Kind:     TrackerFailed,
				Stage:    domain.StageUnknown,
				Progress: t.Progress(),
				Failure:  domain.NewFailure(domain.FailureUnknown, fmt.Errorf("status unavailable: %w", err)),
			})
			return
		}

		if done := t.handle(ctx, report, emit); done {
			return
		}
		timer.Reset(t.interval)
	}
}

// handle applies one report and reports whether tracking is finished.
func (t *PipelineStatusTracker) handle(ctx context.Context, report *domain.StatusReport, emit func(TrackerEvent)) bool {
	stage := domain.ParseStage(report.Stage)

	if stage.IsFailure() {
		logger.Debug("pipeline failed at %q", report.Stage)
		t.emit(ctx, emit, TrackerEvent{
			Kind:     TrackerFailed,
			Stage:    stage,
			Progress: t.Progress(),
			Failure:  domain.NewFailure(stage.FailureKind(), fmt.Errorf("pipeline reported %q", report.Stage)),
		})
		return true
	}

	applied, progress := t.apply(stage)

	if stage == domain.StageReady {
		handle := report.ResultHandle
		t.emit(ctx, emit, TrackerEvent{
			Kind:         TrackerReady,
			Stage:        domain.StageReady,
			Progress:     progress,
			ResultHandle: handle,
		})
		return true
	}

	if applied {
		t.emit(ctx, emit, TrackerEvent{
			Kind:     TrackerProgress,
			Stage:    stage,
			Progress: progress,
		})
	}
	return false
}

// apply records stage if it is strictly later than the current one.
func (t *PipelineStatusTracker) apply(stage domain.PipelineStage) (bool, int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.progress = domain.NextProgress(stage, t.progress)
	if !stage.After(t.stage) {
		logger.Debug("ignoring stage %q at %q", stage, t.stage)
		return false, t.progress
	}
	t.stage = stage
	return true, t.progress
}

// emit drops events once the run has been cancelled.
func (t *PipelineStatusTracker) emit(ctx context.Context, emit func(TrackerEvent), ev TrackerEvent) {
	if ctx.Err() != nil || emit == nil {
		return
	}
	emit(ev)
}
