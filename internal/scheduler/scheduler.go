package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/oshokin/wakeup-call/internal/domain/wake"
	"github.com/oshokin/wakeup-call/internal/logger"
	"github.com/oshokin/wakeup-call/internal/notify"
	repo "github.com/oshokin/wakeup-call/internal/repository/state"
)

// Scheduler owns the single wake trigger: it computes fire times, keeps
// the notification facility registration in step with user intent and
// persists every change so a restarted daemon can pick up where it was.
type Scheduler struct {
	// facility registers and cancels wall-clock wake-ups.
	facility notify.Facility
	// repo persists the alarm state across restarts.
	repo repo.Repository
	// state is the in-memory alarm state.
	state *wake.State
	// mu protects concurrent access to the alarm state.
	mu sync.Mutex
}

// New creates a scheduler backed by the provided facility and repository,
// loading persisted state when there is any.
func New(ctx context.Context, facility notify.Facility, repository repo.Repository) (*Scheduler, error) {
	s := &Scheduler{
		facility: facility,
		repo:     repository,
		state: &wake.State{
			Settings: wake.Settings{Sound: wake.DefaultSound},
		},
	}

	if repository == nil {
		return s, nil
	}

	loaded, err := repository.Load(ctx)
	switch {
	case err == nil:
		if loaded != nil {
			s.state = loaded
		}
	case errors.Is(err, repo.ErrNotFound):
		// Keep default state.
	default:
		return nil, fmt.Errorf("load state: %w", err)
	}

	return s, nil
}

// NextFireTime computes the next wall-clock instant matching the time of
// day. A candidate that is not strictly after now rolls to the next
// calendar day, so scheduling for the current minute means tomorrow.
func NextFireTime(now time.Time, tod wake.TimeOfDay) time.Time {
	candidate := time.Date(now.Year(), now.Month(), now.Day(),
		tod.Hour, tod.Minute, 0, 0, now.Location())

	if !candidate.After(now) {
		candidate = candidate.AddDate(0, 0, 1)
	}

	return candidate
}

// Schedule arms the alarm for the given time of day and sound. Any
// previous registration is cancelled first so exactly one trigger exists.
// Registration failures are surfaced, never retried, and leave the alarm
// disabled.
func (s *Scheduler) Schedule(ctx context.Context, tod wake.TimeOfDay, sound wake.SoundID) (*wake.Trigger, error) {
	if err := tod.Validate(); err != nil {
		return nil, err
	}

	if !sound.Valid() {
		return nil, fmt.Errorf("unknown alarm sound %q", sound)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.cancelPendingLocked(ctx); err != nil {
		return nil, err
	}

	trigger := &wake.Trigger{
		ID:     uuid.NewString(),
		FireAt: NextFireTime(time.Now(), tod),
		Sound:  sound,
	}

	handle, err := s.facility.Schedule(ctx, notify.Registration{
		TriggerID: trigger.ID,
		FireAt:    trigger.FireAt,
	})
	if err != nil {
		// Registration failed, so no alarm exists. The settings record
		// the attempt with Enabled false and the caller gets the error.
		s.state.Settings = wake.Settings{Enabled: false, Time: tod, Sound: sound}
		s.state.Pending = nil
		s.persistLocked(ctx)

		if errors.Is(err, notify.ErrPermission) {
			return nil, fmt.Errorf("wake-up scheduling not permitted, alarm disabled: %w", err)
		}

		return nil, fmt.Errorf("register wake-up: %w", err)
	}

	trigger.Handle = handle
	s.state.Settings = wake.Settings{Enabled: true, Time: tod, Sound: sound}
	s.state.Pending = trigger

	s.persistLocked(ctx)

	logger.InfoKV(ctx, "Alarm scheduled",
		"trigger_id", trigger.ID,
		"fire_at", trigger.FireAt,
		"sound", trigger.Sound)

	return trigger.Clone(), nil
}

// Cancel disarms the alarm. Cancelling an alarm that is not armed is a
// no-op, so callers never need to check first.
func (s *Scheduler) Cancel(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.cancelPendingLocked(ctx); err != nil {
		return err
	}

	if !s.state.Settings.Enabled {
		return nil
	}

	s.state.Settings.Enabled = false
	s.persistLocked(ctx)

	logger.Info(ctx, "Alarm cancelled")

	return nil
}

// Restore re-registers the persisted pending trigger after a restart,
// keeping its identity so wake-signal de-duplication stays coherent.
func (s *Scheduler) Restore(ctx context.Context) (*wake.Trigger, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	pending := s.state.Pending
	if !s.state.Settings.Enabled || pending == nil {
		return nil, nil
	}

	if !pending.FireAt.After(time.Now()) {
		return nil, nil
	}

	// The persisted handle is either dead (process restart) or live
	// (double reconcile); cancelling is free in both cases.
	if err := s.facility.Cancel(ctx, pending.Handle); err != nil {
		return nil, fmt.Errorf("cancel stale registration: %w", err)
	}

	handle, err := s.facility.Schedule(ctx, notify.Registration{
		TriggerID: pending.ID,
		FireAt:    pending.FireAt,
	})
	if err != nil {
		return nil, fmt.Errorf("restore wake-up registration: %w", err)
	}

	pending.Handle = handle
	s.persistLocked(ctx)

	logger.InfoKV(ctx, "Wake-up registration restored",
		"trigger_id", pending.ID,
		"fire_at", pending.FireAt)

	return pending.Clone(), nil
}

// ConsumeFired records that the trigger fired. The pending registration
// is gone, the firing is remembered for de-duplication and the alarm
// turns off until the user re-arms it.
func (s *Scheduler) ConsumeFired(ctx context.Context, triggerID string, firedAt time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.Pending != nil && s.state.Pending.ID == triggerID {
		s.state.Pending = nil
	}

	s.state.LastFiredID = triggerID
	s.state.LastFiredAt = firedAt
	s.state.Settings.Enabled = false

	s.persistLocked(ctx)
}

// Snapshot returns a copy of the current alarm state.
func (s *Scheduler) Snapshot() *wake.State {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.state.Clone()
}

// cancelPendingLocked cancels the live registration, if any. Callers hold s.mu.
func (s *Scheduler) cancelPendingLocked(ctx context.Context) error {
	pending := s.state.Pending
	if pending == nil {
		return nil
	}

	if err := s.facility.Cancel(ctx, pending.Handle); err != nil {
		return fmt.Errorf("cancel wake-up registration: %w", err)
	}

	s.state.Pending = nil

	return nil
}

// persistLocked saves the state, logging instead of failing: an unwritable
// state file must not take scheduling down with it. Callers hold s.mu.
func (s *Scheduler) persistLocked(ctx context.Context) {
	if s.repo == nil {
		return
	}

	if err := s.repo.Save(ctx, s.state); err != nil {
		logger.Errorf(ctx, "Failed to persist alarm state: %v", err)
	}
}
