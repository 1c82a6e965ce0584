package notify

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/oshokin/wakeup-call/internal/logger"
)

// TimerFacility is the in-process Facility implementation backed by
// wall-clock timers. Registrations do not survive the process; the state
// repository plus startup reconciliation provide restart survival.
type TimerFacility struct {
	// mu protects the registration table and the closed flag.
	mu sync.Mutex
	// pending maps handle to its live registration.
	pending map[string]*timerRegistration
	// onFire receives fired registrations. Set before the first Schedule.
	onFire FireFunc
	// closed blocks further scheduling once Close was called.
	closed bool
}

// timerRegistration is one armed timer.
type timerRegistration struct {
	handle    string
	triggerID string
	fireAt    time.Time
	timer     *time.Timer
}

// NewTimerFacility creates an empty facility. Attach the fire handler
// with OnFire before scheduling anything.
func NewTimerFacility() *TimerFacility {
	return &TimerFacility{
		pending: make(map[string]*timerRegistration),
	}
}

// OnFire attaches the handler invoked when a registration fires.
func (f *TimerFacility) OnFire(fn FireFunc) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.onFire = fn
}

// Schedule arms a timer for the registration and returns its handle.
func (f *TimerFacility) Schedule(ctx context.Context, reg Registration) (string, error) {
	now := time.Now()
	if !reg.FireAt.After(now) {
		return "", fmt.Errorf("%w: %s", ErrPastFireTime, reg.FireAt)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return "", ErrClosed
	}

	entry := &timerRegistration{
		handle:    uuid.NewString(),
		triggerID: reg.TriggerID,
		fireAt:    reg.FireAt,
	}

	entry.timer = time.AfterFunc(reg.FireAt.Sub(now), func() {
		f.fire(entry.handle)
	})

	f.pending[entry.handle] = entry

	logger.DebugKV(ctx, "wake-up registered",
		"handle", entry.handle,
		"trigger_id", entry.triggerID,
		"fire_at", entry.fireAt)

	return entry.handle, nil
}

// Cancel disarms the registration. Unknown or already-fired handles are
// ignored so callers can cancel unconditionally.
func (f *TimerFacility) Cancel(ctx context.Context, handle string) error {
	if handle == "" {
		return nil
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	entry, ok := f.pending[handle]
	if !ok {
		return nil
	}

	entry.timer.Stop()
	delete(f.pending, handle)

	logger.DebugKV(ctx, "wake-up cancelled", "handle", handle, "trigger_id", entry.triggerID)

	return nil
}

// Pending returns a snapshot of the live registrations sorted by fire time.
func (f *TimerFacility) Pending(_ context.Context) ([]Pending, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	result := make([]Pending, 0, len(f.pending))
	for _, entry := range f.pending {
		result = append(result, Pending{
			Handle:    entry.handle,
			TriggerID: entry.triggerID,
			FireAt:    entry.fireAt,
		})
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].FireAt.Before(result[j].FireAt)
	})

	return result, nil
}

// Close disarms every registration and rejects further scheduling.
func (f *TimerFacility) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.closed = true

	for handle, entry := range f.pending {
		entry.timer.Stop()
		delete(f.pending, handle)
	}
}

// fire delivers one registration and removes it from the table.
func (f *TimerFacility) fire(handle string) {
	f.mu.Lock()

	entry, ok := f.pending[handle]
	if ok {
		delete(f.pending, handle)
	}

	fn := f.onFire

	f.mu.Unlock()

	// A racing Cancel may have won; the registration is then gone.
	if !ok || fn == nil {
		return
	}

	fn(entry.handle, entry.triggerID, time.Now())
}
