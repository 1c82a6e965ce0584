package notify

import (
	"context"
	"errors"
	"time"
)

// Registration describes a wake-up to schedule with the facility.
type Registration struct {
	// TriggerID is the domain trigger this registration belongs to.
	// It is echoed back on fire so signals can be de-duplicated.
	TriggerID string
	// FireAt is the absolute wall-clock instant to fire at.
	FireAt time.Time
}

// Pending describes a live registration.
type Pending struct {
	// Handle is the opaque identifier returned by Schedule.
	Handle string
	// TriggerID is the domain trigger behind the registration.
	TriggerID string
	// FireAt is when the registration fires.
	FireAt time.Time
}

// FireFunc receives fired registrations. It is invoked on the facility's
// delivery goroutine and must not block for long.
type FireFunc func(handle, triggerID string, firedAt time.Time)

var (
	// ErrPermission is returned when the facility is not allowed to
	// schedule wake-ups. Callers must surface it and disable the alarm
	// rather than retry.
	ErrPermission = errors.New("wake-up scheduling not permitted")
	// ErrPastFireTime is returned when a registration would fire in the past.
	ErrPastFireTime = errors.New("fire time is in the past")
	// ErrClosed is returned when the facility has been shut down.
	ErrClosed = errors.New("notification facility is closed")
)

// Facility schedules wall-clock wake-ups and reports firings back through
// a FireFunc. Implementations must make Cancel idempotent: cancelling an
// unknown or already-fired handle is a no-op.
type Facility interface {
	Schedule(ctx context.Context, reg Registration) (string, error)
	Cancel(ctx context.Context, handle string) error
	Pending(ctx context.Context) ([]Pending, error)
}
