package ringer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/oshokin/wakeup-call/internal/audio"
	"github.com/oshokin/wakeup-call/internal/domain/wake"
	"github.com/oshokin/wakeup-call/internal/logger"
)

var (
	// ErrNotRinging is returned when Dismiss is called with no alarm active.
	ErrNotRinging = errors.New("alarm is not ringing")
	// ErrBusy is returned when a preview would interrupt live audio.
	ErrBusy = errors.New("audio is busy")
)

// DismissedFunc runs after a dismissal completed, handing control to the
// morning routine.
type DismissedFunc func(ctx context.Context)

// Ringer drives the alarm itself: on an accepted firing it takes the
// audio session and loops the chosen tone at full volume until the user
// dismisses. Audio failures are logged and swallowed; a broken speaker
// must never leave the alarm stuck ringing with no way out.
type Ringer struct {
	// mu protects state, current and previewGen.
	mu sync.Mutex
	// state is the ringer lifecycle state.
	state wake.RingerState
	// current is the trigger being rung, nil outside ringing.
	current *wake.Trigger
	// previewGen invalidates scheduled preview cleanups.
	previewGen int

	// audio is the shared session manager.
	audio *audio.Manager
	// sampleRate is used for tone rendering.
	sampleRate int
	// onDismissed runs after a dismissal, usually the routine start.
	onDismissed DismissedFunc
	// onState observes lifecycle changes.
	onState func(wake.RingerState)
}

// Option customizes a Ringer.
type Option func(*Ringer)

// WithDismissed registers the dismissal handoff.
func WithDismissed(fn DismissedFunc) Option {
	return func(r *Ringer) {
		r.onDismissed = fn
	}
}

// WithStateChanged registers a hook observing lifecycle changes.
func WithStateChanged(fn func(wake.RingerState)) Option {
	return func(r *Ringer) {
		r.onState = fn
	}
}

// New creates a ringer over the shared audio manager.
func New(manager *audio.Manager, sampleRate int, opts ...Option) *Ringer {
	r := &Ringer{
		state:      wake.RingerIdle,
		audio:      manager,
		sampleRate: sampleRate,
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// State returns the current lifecycle state.
func (r *Ringer) State() wake.RingerState {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.state
}

// Current returns the trigger being rung, nil outside ringing.
func (r *Ringer) Current() *wake.Trigger {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.current.Clone()
}

// Ring starts the alarm for the trigger. An already-ringing alarm stays
// as it is; the dispatcher's de-duplication makes that a rare race, not
// a normal path.
func (r *Ringer) Ring(ctx context.Context, trigger *wake.Trigger, source wake.WakeSource) {
	r.mu.Lock()

	if r.state == wake.RingerRinging {
		r.mu.Unlock()

		logger.DebugKV(ctx, "Already ringing, ignoring wake", "trigger_id", trigger.ID)

		return
	}

	r.state = wake.RingerRinging
	r.current = trigger.Clone()
	r.previewGen++

	r.mu.Unlock()
	r.notifyState(wake.RingerRinging)

	logger.InfoKV(ctx, "Ringing",
		"trigger_id", trigger.ID,
		"sound", trigger.Sound,
		"source", source)

	if err := r.audio.Acquire(ctx, audio.OwnerRinger); err != nil {
		logger.Errorf(ctx, "Failed to take audio session for ringing: %v", err)
	}

	pcm := audio.Tone(trigger.Sound, r.sampleRate)
	if len(pcm) == 0 {
		logger.Info(ctx, "Silent alarm, ringing without playback")

		return
	}

	if err := r.audio.Play(audio.OwnerRinger, pcm, true); err != nil {
		logger.Errorf(ctx, "Failed to start alarm tone: %v", err)
	}
}

// Dismiss stops the alarm and hands off to the morning routine. It never
// blocks on audio state: playback teardown failures are logged and the
// dismissal proceeds regardless.
func (r *Ringer) Dismiss(ctx context.Context) error {
	r.mu.Lock()

	if r.state != wake.RingerRinging {
		r.mu.Unlock()

		return ErrNotRinging
	}

	r.state = wake.RingerDismissed
	trigger := r.current
	r.current = nil

	r.mu.Unlock()
	r.notifyState(wake.RingerDismissed)

	logger.InfoKV(ctx, "Alarm dismissed", "trigger_id", trigger.ID)

	if err := r.audio.Release(audio.OwnerRinger); err != nil {
		logger.Errorf(ctx, "Failed to release audio after dismissal: %v", err)
	}

	if r.onDismissed != nil {
		r.onDismissed(ctx)
	}

	return nil
}

// Preview plays one cycle of a tone outside the alarm flow so the user
// can hear their choice. It refuses to interrupt live audio and cleans
// up after itself once the sample has played out.
func (r *Ringer) Preview(ctx context.Context, sound wake.SoundID) error {
	r.mu.Lock()

	if r.state == wake.RingerRinging {
		r.mu.Unlock()

		return ErrBusy
	}

	r.previewGen++
	gen := r.previewGen

	r.mu.Unlock()

	if held := r.audio.Held(); held != audio.OwnerNone && held != audio.OwnerPrewarmProbe {
		return fmt.Errorf("%w: %s holds the session", ErrBusy, held)
	}

	pcm := audio.Tone(sound, r.sampleRate)
	if len(pcm) == 0 {
		return nil
	}

	if err := r.audio.Acquire(ctx, audio.OwnerRinger); err != nil {
		return fmt.Errorf("take audio session: %w", err)
	}

	if err := r.audio.Play(audio.OwnerRinger, pcm, false); err != nil {
		_ = r.audio.Release(audio.OwnerRinger)

		return fmt.Errorf("play preview: %w", err)
	}

	cleanupAfter := time.Duration(audio.ToneDuration(pcm, r.sampleRate)*float64(time.Second)) +
		100*time.Millisecond

	time.AfterFunc(cleanupAfter, func() {
		r.mu.Lock()
		// A ring or newer preview took over; the session is theirs now.
		stale := gen != r.previewGen || r.state == wake.RingerRinging
		r.mu.Unlock()

		if stale {
			return
		}

		_ = r.audio.Release(audio.OwnerRinger)
	})

	return nil
}

// notifyState reports a lifecycle change to the registered hook.
func (r *Ringer) notifyState(state wake.RingerState) {
	if r.onState != nil {
		r.onState(state)
	}
}
