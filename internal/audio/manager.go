package audio

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

var (
	// ErrInvalidOwner is returned when a session is requested for an
	// unknown owner or for OwnerNone.
	ErrInvalidOwner = errors.New("invalid audio session owner")
	// ErrNotHolder is returned when a client drives the output without
	// holding the session.
	ErrNotHolder = errors.New("audio session not held")
)

// Manager serializes access to the single audio output. Exactly one
// owner holds the session at a time; acquiring over a live holder tears
// the old session down (stop, unload), waits for the device to settle
// and only then configures the new route.
type Manager struct {
	// mu protects holder and serializes device transitions.
	mu sync.Mutex
	// out is the playback device.
	out Output
	// holder is the current session owner.
	holder Owner
	// settleDelay is the pause between teardown and the next setup.
	settleDelay time.Duration
	// sampleRate is the output sample rate in Hz.
	sampleRate int
	// onChange, when set, observes every holder change.
	onChange func(Owner)
}

// ManagerOption customizes a Manager.
type ManagerOption func(*Manager)

// WithOwnerChanged registers a hook observing every holder change.
// The hook runs outside the manager lock and must not block for long.
func WithOwnerChanged(fn func(Owner)) ManagerOption {
	return func(m *Manager) {
		m.onChange = fn
	}
}

// NewManager creates a session manager over the provided output device.
func NewManager(out Output, settleDelay time.Duration, sampleRate int, opts ...ManagerOption) *Manager {
	m := &Manager{
		out:         out,
		holder:      OwnerNone,
		settleDelay: settleDelay,
		sampleRate:  sampleRate,
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

// Held returns the current session owner.
func (m *Manager) Held() Owner {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.holder
}

// Acquire makes owner the session holder. Acquiring an already-held
// session is a no-op. Device errors do not prevent the ownership change:
// the logical session must survive a broken speaker, so errors are
// returned for logging while the holder swaps regardless.
func (m *Manager) Acquire(ctx context.Context, owner Owner) error {
	if owner == OwnerNone || !owner.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidOwner, owner)
	}

	m.mu.Lock()

	if m.holder == owner {
		m.mu.Unlock()

		return nil
	}

	var errs []error

	if m.holder != OwnerNone {
		if err := m.out.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("stop %s session: %w", m.holder, err))
		}

		if err := m.out.Unload(); err != nil {
			errs = append(errs, fmt.Errorf("unload %s session: %w", m.holder, err))
		}

		// The device needs a beat to quiesce before the next route
		// sticks. Skipping this surfaces as silent first playback.
		select {
		case <-ctx.Done():
			m.holder = OwnerNone
			m.mu.Unlock()
			m.notifyOwnerChanged(OwnerNone)

			return ctx.Err()
		case <-time.After(m.settleDelay):
		}
	}

	m.holder = owner

	if err := m.out.Configure(profileFor(owner, m.sampleRate)); err != nil {
		errs = append(errs, fmt.Errorf("configure %s route: %w", owner, err))
	}

	m.mu.Unlock()
	m.notifyOwnerChanged(owner)

	return errors.Join(errs...)
}

// Release ends the owner's session. Releasing a session held by someone
// else (or by no one) is a no-op so teardown paths can always release
// unconditionally.
func (m *Manager) Release(owner Owner) error {
	m.mu.Lock()

	if owner == OwnerNone || m.holder != owner {
		m.mu.Unlock()

		return nil
	}

	var errs []error

	if err := m.out.Stop(); err != nil {
		errs = append(errs, fmt.Errorf("stop %s session: %w", owner, err))
	}

	if err := m.out.Unload(); err != nil {
		errs = append(errs, fmt.Errorf("unload %s session: %w", owner, err))
	}

	m.holder = OwnerNone

	m.mu.Unlock()
	m.notifyOwnerChanged(OwnerNone)

	return errors.Join(errs...)
}

// Play starts playback on behalf of owner. Only the holder may play.
func (m *Manager) Play(owner Owner, pcm []byte, loop bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.holder != owner {
		return fmt.Errorf("%w: %s plays while %s holds", ErrNotHolder, owner, m.holder)
	}

	if err := m.out.Play(pcm, loop); err != nil {
		return fmt.Errorf("play: %w", err)
	}

	return nil
}

// Stop halts playback on behalf of owner. Only the holder may stop.
func (m *Manager) Stop(owner Owner) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.holder != owner {
		return fmt.Errorf("%w: %s stops while %s holds", ErrNotHolder, owner, m.holder)
	}

	if err := m.out.Stop(); err != nil {
		return fmt.Errorf("stop: %w", err)
	}

	return nil
}

// Prepare primes the output route for background playback ahead of an
// alarm. It never displaces a real owner: with a session live there is
// nothing to prime. On success the pre-warm probe holds the session
// until someone real takes over.
func (m *Manager) Prepare(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()

	if m.holder != OwnerNone {
		m.mu.Unlock()

		return nil
	}

	if err := m.out.Configure(profileFor(OwnerPrewarmProbe, m.sampleRate)); err != nil {
		m.mu.Unlock()

		return fmt.Errorf("prime background route: %w", err)
	}

	m.holder = OwnerPrewarmProbe

	m.mu.Unlock()
	m.notifyOwnerChanged(OwnerPrewarmProbe)

	return nil
}

// ForceEnable fully re-enables the output moments before an alarm fires,
// undoing whatever idling the host applied. A live real session means
// the output is already enabled and nothing happens.
func (m *Manager) ForceEnable(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()

	if m.holder != OwnerNone && m.holder != OwnerPrewarmProbe {
		m.mu.Unlock()

		return nil
	}

	if err := m.out.Enable(); err != nil {
		m.mu.Unlock()

		return fmt.Errorf("enable output: %w", err)
	}

	if m.holder == OwnerPrewarmProbe {
		m.mu.Unlock()

		return nil
	}

	if err := m.out.Configure(profileFor(OwnerPrewarmProbe, m.sampleRate)); err != nil {
		m.mu.Unlock()

		return fmt.Errorf("prime background route: %w", err)
	}

	m.holder = OwnerPrewarmProbe

	m.mu.Unlock()
	m.notifyOwnerChanged(OwnerPrewarmProbe)

	return nil
}

// notifyOwnerChanged reports a holder change to the registered hook.
func (m *Manager) notifyOwnerChanged(owner Owner) {
	if m.onChange != nil {
		m.onChange(owner)
	}
}
