package routine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/oshokin/wakeup-call/internal/audio"
	"github.com/oshokin/wakeup-call/internal/calendar"
	"github.com/oshokin/wakeup-call/internal/domain/wake"
	"github.com/oshokin/wakeup-call/internal/logger"
	"github.com/oshokin/wakeup-call/internal/podcast"
	"github.com/oshokin/wakeup-call/internal/speech"
)

// ErrSpeechTimeout marks a speaking stage that had to be force-advanced
// because the speech engine never reported completion.
var ErrSpeechTimeout = errors.New("speech did not complete within the safety window")

// Defaults, overridable through options.
const (
	defaultSafetyTimeout = 30 * time.Second
	defaultSettleDelay   = 300 * time.Millisecond
)

// PodcastControl is the slice of the podcast controller the routine
// drives: it sets the control to play exactly once on stage entry.
type PodcastControl interface {
	Set(ctx context.Context, control podcast.Control) error
}

// Orchestrator runs the morning routine: fetch the calendar summary,
// speak it, then start the podcast. Stages advance strictly forward
// within one run; a new Start cancels whatever the previous run left
// behind and begins again from the top.
type Orchestrator struct {
	// mu protects stage, stageErr, gen, runCancel and safety.
	mu sync.Mutex
	// stage is the current routine stage.
	stage wake.Stage
	// stageErr is the error overlay reported alongside the stage.
	stageErr error
	// gen is the run generation; async continuations from older runs
	// compare against it and give up.
	gen int
	// runCancel stops the current run's context.
	runCancel context.CancelFunc
	// safety force-advances a speaking stage that never completes.
	safety *time.Timer

	// audio is the shared session manager.
	audio *audio.Manager
	// source produces the spoken summary.
	source calendar.Source
	// engine reads the summary aloud.
	engine speech.Engine
	// podcast receives the play control at the final stage.
	podcast PodcastControl

	// safetyTimeout bounds the speaking stage.
	safetyTimeout time.Duration
	// settleDelay separates the speech release from the podcast acquire.
	settleDelay time.Duration
	// onStage observes stage changes together with the error overlay.
	onStage func(wake.Stage, error)
}

// Option customizes an Orchestrator.
type Option func(*Orchestrator)

// WithSafetyTimeout overrides the speaking-stage safety timeout.
func WithSafetyTimeout(timeout time.Duration) Option {
	return func(o *Orchestrator) {
		o.safetyTimeout = timeout
	}
}

// WithSettleDelay overrides the pause between audio handovers.
func WithSettleDelay(delay time.Duration) Option {
	return func(o *Orchestrator) {
		o.settleDelay = delay
	}
}

// WithStageChanged registers a hook observing stage changes.
func WithStageChanged(fn func(wake.Stage, error)) Option {
	return func(o *Orchestrator) {
		o.onStage = fn
	}
}

// New creates an orchestrator over the morning-routine collaborators.
func New(
	manager *audio.Manager,
	source calendar.Source,
	engine speech.Engine,
	control PodcastControl,
	opts ...Option,
) *Orchestrator {
	o := &Orchestrator{
		stage:         wake.StageIdle,
		audio:         manager,
		source:        source,
		engine:        engine,
		podcast:       control,
		safetyTimeout: defaultSafetyTimeout,
		settleDelay:   defaultSettleDelay,
	}

	for _, opt := range opts {
		opt(o)
	}

	return o
}

// Stage returns the current stage and its error overlay.
func (o *Orchestrator) Stage() (wake.Stage, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	return o.stage, o.stageErr
}

// Start begins a routine run. A run already in flight is cancelled
// first: its safety timer is stopped and its audio ownership released,
// so the new run starts from a clean slate. The run outlives ctx; only
// a newer Start or Stop ends it.
func (o *Orchestrator) Start(ctx context.Context) {
	o.mu.Lock()

	o.cancelRunLocked()

	o.gen++
	gen := o.gen

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	o.runCancel = cancel
	o.stage = wake.StageFetchingCalendar
	o.stageErr = nil

	o.mu.Unlock()

	// Leftovers from a previous run must not leak into this one.
	for _, owner := range []audio.Owner{audio.OwnerSpeech, audio.OwnerPodcast} {
		if err := o.audio.Release(owner); err != nil {
			logger.Errorf(runCtx, "Failed to release leftover %s audio: %v", owner, err)
		}
	}

	o.notifyStage(wake.StageFetchingCalendar, nil)
	logger.Info(runCtx, "Morning routine started")

	go o.run(runCtx, gen)
}

// Stop cancels the current run and returns the routine to idle. Podcast
// playback started by a finished run is not touched; that is the
// player's to keep until the user stops it.
func (o *Orchestrator) Stop(ctx context.Context) {
	o.mu.Lock()

	o.cancelRunLocked()
	o.gen++
	o.stage = wake.StageIdle
	o.stageErr = nil

	o.mu.Unlock()

	for _, owner := range []audio.Owner{audio.OwnerSpeech, audio.OwnerPodcast} {
		if err := o.audio.Release(owner); err != nil {
			logger.Errorf(ctx, "Failed to release %s audio on stop: %v", owner, err)
		}
	}

	o.notifyStage(wake.StageIdle, nil)
}

// run drives one routine generation from calendar fetch to podcast.
func (o *Orchestrator) run(ctx context.Context, gen int) {
	summary, err := o.source.FetchSummary(ctx)
	if err != nil {
		o.abort(ctx, gen, fmt.Errorf("fetch calendar summary: %w", err))

		return
	}

	if ctx.Err() != nil || o.stale(gen) {
		return
	}

	o.speak(ctx, gen, summary)
}

// abort returns the routine to idle with an error overlay. The podcast
// is deliberately not started: a silent morning beats a podcast blasting
// over an unread summary.
func (o *Orchestrator) abort(ctx context.Context, gen int, cause error) {
	o.mu.Lock()

	if gen != o.gen {
		o.mu.Unlock()

		return
	}

	o.stage = wake.StageIdle
	o.stageErr = cause

	o.mu.Unlock()

	logger.Errorf(ctx, "Morning routine aborted: %v", cause)
	o.notifyStage(wake.StageIdle, cause)
}

// speak runs the speaking stage. The safety timer is armed before any
// audio work so a hang inside the audio layer or the engine itself is
// still bounded.
func (o *Orchestrator) speak(ctx context.Context, gen int, text string) {
	o.mu.Lock()

	if gen != o.gen {
		o.mu.Unlock()

		return
	}

	o.stage = wake.StageSpeaking
	o.safety = time.AfterFunc(o.safetyTimeout, func() {
		o.advanceFromSpeaking(ctx, gen, ErrSpeechTimeout)
	})

	o.mu.Unlock()
	o.notifyStage(wake.StageSpeaking, nil)

	if err := o.audio.Acquire(ctx, audio.OwnerSpeech); err != nil {
		logger.Errorf(ctx, "Failed to take audio session for speech, speaking anyway: %v", err)
	}

	o.engine.Speak(ctx, text, speech.Callbacks{
		OnStart:   func() { logger.Debug(ctx, "Speech started") },
		OnStopped: func() { logger.Debug(ctx, "Speech stopped") },
		OnDone:    func() { o.advanceFromSpeaking(ctx, gen, nil) },
		OnError:   func(err error) { o.advanceFromSpeaking(ctx, gen, err) },
	})
}

// advanceFromSpeaking performs the single allowed transition out of the
// speaking stage. The engine callbacks and the safety timer all funnel
// here; the stage check makes whichever arrives first the only winner.
func (o *Orchestrator) advanceFromSpeaking(ctx context.Context, gen int, cause error) {
	o.mu.Lock()

	if gen != o.gen || o.stage != wake.StageSpeaking {
		o.mu.Unlock()

		return
	}

	o.stopSafetyLocked()
	o.stage = wake.StagePlayingPodcast
	o.stageErr = cause

	o.mu.Unlock()

	if cause != nil {
		logger.Warnf(ctx, "Speaking stage ended abnormally, advancing: %v", cause)
	}

	o.notifyStage(wake.StagePlayingPodcast, cause)

	go o.enterPodcast(ctx, gen)
}

// enterPodcast hands the audio session from speech to podcast and sets
// the playback control to play, once. The stage is terminal: whatever
// happens to playback afterwards belongs to the user.
func (o *Orchestrator) enterPodcast(ctx context.Context, gen int) {
	if err := o.audio.Release(audio.OwnerSpeech); err != nil {
		logger.Errorf(ctx, "Failed to release speech audio: %v", err)
	}

	// The release-settle-acquire sequence keeps the handover observable:
	// speech, then no owner, then podcast, never a direct swap.
	select {
	case <-ctx.Done():
		return
	case <-time.After(o.settleDelay):
	}

	if o.stale(gen) {
		return
	}

	if err := o.audio.Acquire(ctx, audio.OwnerPodcast); err != nil {
		logger.Errorf(ctx, "Failed to take audio session for podcast: %v", err)
	}

	o.mu.Lock()
	if gen != o.gen {
		o.mu.Unlock()

		_ = o.audio.Release(audio.OwnerPodcast)

		return
	}
	o.mu.Unlock()

	if err := o.podcast.Set(ctx, podcast.ControlPlay); err != nil {
		logger.Errorf(ctx, "Failed to start podcast playback: %v", err)
		o.overlayError(gen, fmt.Errorf("start podcast: %w", err))

		return
	}

	logger.Info(ctx, "Morning routine handed off to podcast playback")
}

// overlayError records a stage error without changing the stage.
func (o *Orchestrator) overlayError(gen int, cause error) {
	o.mu.Lock()

	if gen != o.gen {
		o.mu.Unlock()

		return
	}

	o.stageErr = cause
	stage := o.stage

	o.mu.Unlock()
	o.notifyStage(stage, cause)
}

// stale reports whether gen belongs to a superseded run.
func (o *Orchestrator) stale(gen int) bool {
	o.mu.Lock()
	defer o.mu.Unlock()

	return gen != o.gen
}

func (o *Orchestrator) cancelRunLocked() {
	if o.runCancel != nil {
		o.runCancel()
		o.runCancel = nil
	}

	o.stopSafetyLocked()
}

func (o *Orchestrator) stopSafetyLocked() {
	if o.safety != nil {
		o.safety.Stop()
		o.safety = nil
	}
}

// notifyStage reports a stage change to the registered hook.
func (o *Orchestrator) notifyStage(stage wake.Stage, cause error) {
	if o.onStage != nil {
		o.onStage(stage, cause)
	}
}
