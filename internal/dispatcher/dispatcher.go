package dispatcher

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/oshokin/wakeup-call/internal/domain/wake"
	"github.com/oshokin/wakeup-call/internal/logger"
	"github.com/oshokin/wakeup-call/internal/notify"
	"github.com/oshokin/wakeup-call/internal/scheduler"
)

// RingFunc starts the alarm for an accepted wake signal.
type RingFunc func(ctx context.Context, trigger *wake.Trigger, source wake.WakeSource)

// Dispatcher funnels every wake path into exactly one alarm per firing.
// Timer delivery, a user tap on the control API and resume reconciliation
// can all report the same trigger; whichever arrives first wins and the
// rest are dropped inside the de-duplication window.
type Dispatcher struct {
	// sched owns the trigger being dispatched.
	sched *scheduler.Scheduler
	// facility is consulted during reconciliation.
	facility notify.Facility
	// ring starts the alarm exactly once per accepted firing.
	ring RingFunc
	// dedupWindow is how long a trigger identity stays deduplicated.
	dedupWindow time.Duration

	// mu protects accepted.
	mu sync.Mutex
	// accepted maps trigger identity to when its firing was accepted.
	accepted map[string]time.Time
}

// New creates a dispatcher. The previous run's last firing is seeded from
// persisted state so a fast restart cannot ring the same trigger twice.
func New(sched *scheduler.Scheduler, facility notify.Facility, dedupWindow time.Duration, ring RingFunc) *Dispatcher {
	d := &Dispatcher{
		sched:       sched,
		facility:    facility,
		ring:        ring,
		dedupWindow: dedupWindow,
		accepted:    make(map[string]time.Time),
	}

	if snap := sched.Snapshot(); snap.LastFiredID != "" && !snap.LastFiredAt.IsZero() {
		d.accepted[snap.LastFiredID] = snap.LastFiredAt
	}

	return d
}

// HandleDelivered is the notification facility's fire callback.
func (d *Dispatcher) HandleDelivered(ctx context.Context) notify.FireFunc {
	return func(_, triggerID string, firedAt time.Time) {
		snap := d.sched.Snapshot()

		trigger := snap.Pending
		if trigger == nil || trigger.ID != triggerID {
			// Delivery raced a cancel; the registration is already gone.
			logger.DebugKV(ctx, "Dropping delivery for unknown trigger", "trigger_id", triggerID)

			return
		}

		d.OnWakeSignal(ctx, wake.SourceDelivered, trigger.Clone(), firedAt)
	}
}

// OnWakeSignal normalizes one wake signal. It reports whether the signal
// was accepted as a new firing; duplicates within the window are dropped.
func (d *Dispatcher) OnWakeSignal(ctx context.Context, source wake.WakeSource, trigger *wake.Trigger, at time.Time) bool {
	if trigger == nil || trigger.ID == "" {
		logger.Warnf(ctx, "Dropping wake signal without a trigger, source: %s", source)

		return false
	}

	d.mu.Lock()

	if acceptedAt, seen := d.accepted[trigger.ID]; seen && at.Sub(acceptedAt) < d.dedupWindow {
		d.mu.Unlock()

		logger.DebugKV(ctx, "Duplicate wake signal dropped",
			"trigger_id", trigger.ID,
			"source", source)

		return false
	}

	d.accepted[trigger.ID] = at
	d.pruneLocked(at)
	d.mu.Unlock()

	// The firing is consumed before the ringer starts so a crash between
	// the two cannot re-ring on the next reconcile.
	d.sched.ConsumeFired(ctx, trigger.ID, at)

	logger.InfoKV(ctx, "Alarm fired",
		"trigger_id", trigger.ID,
		"source", source,
		"fire_at", trigger.FireAt)

	d.ring(ctx, trigger, source)

	return true
}

// Reconcile self-heals the gap between user intent and the facility:
// an enabled alarm with no live registration is either re-registered
// (future trigger) or rung right now (the trigger fired while nobody
// was listening).
func (d *Dispatcher) Reconcile(ctx context.Context) error {
	snap := d.sched.Snapshot()
	if !snap.Settings.Enabled {
		return nil
	}

	pending, err := d.facility.Pending(ctx)
	if err != nil {
		return fmt.Errorf("list registrations: %w", err)
	}

	if len(pending) > 0 {
		return nil
	}

	now := time.Now()

	// A firing inside the window is being handled right now.
	if snap.LastFiredID != "" && now.Sub(snap.LastFiredAt) < d.dedupWindow {
		return nil
	}

	if trigger := snap.Pending; trigger != nil && !trigger.FireAt.After(now) {
		logger.InfoKV(ctx, "Found trigger that fired while unattended", "trigger_id", trigger.ID)

		d.OnWakeSignal(ctx, wake.SourceResume, trigger, now)

		return nil
	}

	if snap.Pending != nil {
		if _, err := d.sched.Restore(ctx); err != nil {
			return fmt.Errorf("restore registration: %w", err)
		}

		return nil
	}

	// Enabled with nothing pending at all: rebuild from settings.
	if _, err := d.sched.Schedule(ctx, snap.Settings.Time, snap.Settings.Sound); err != nil {
		return fmt.Errorf("re-arm alarm: %w", err)
	}

	logger.Info(ctx, "Alarm re-armed during reconciliation")

	return nil
}

// pruneLocked drops identities older than the window. Callers hold d.mu.
func (d *Dispatcher) pruneLocked(now time.Time) {
	for id, at := range d.accepted {
		if now.Sub(at) >= d.dedupWindow {
			delete(d.accepted, id)
		}
	}
}
