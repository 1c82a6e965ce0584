package scheduler

import (
	"context"
	"sync"
	"testing"
	"testing/synctest"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/wakeup-call/internal/domain/wake"
	"github.com/oshokin/wakeup-call/internal/notify"
	repo "github.com/oshokin/wakeup-call/internal/repository/state"
)

// memoryRepository is an in-memory Repository for tests.
type memoryRepository struct {
	mu    sync.Mutex
	state *wake.State
}

func (m *memoryRepository) Load(context.Context) (*wake.State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state == nil {
		return nil, repo.ErrNotFound
	}

	return m.state.Clone(), nil
}

func (m *memoryRepository) Save(_ context.Context, state *wake.State) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.state = state.Clone()

	return nil
}

// failingFacility rejects every registration with a scripted error.
type failingFacility struct {
	err error
}

func (f *failingFacility) Schedule(context.Context, notify.Registration) (string, error) {
	return "", f.err
}

func (f *failingFacility) Cancel(context.Context, string) error { return nil }

func (f *failingFacility) Pending(context.Context) ([]notify.Pending, error) {
	return nil, nil
}

// TestNextFireTime exercises the day-rollover rule.
func TestNextFireTime(t *testing.T) {
	t.Parallel()

	loc := time.UTC
	at := func(y int, m time.Month, d, hh, mm int) time.Time {
		return time.Date(y, m, d, hh, mm, 0, 0, loc)
	}

	cases := []struct {
		name string
		now  time.Time
		tod  wake.TimeOfDay
		want time.Time
	}{
		{
			name: "earlier today rolls to tomorrow",
			now:  at(2026, time.March, 10, 23, 30),
			tod:  wake.TimeOfDay{Hour: 22, Minute: 0},
			want: at(2026, time.March, 11, 22, 0),
		},
		{
			name: "later today stays today",
			now:  at(2026, time.March, 10, 22, 0),
			tod:  wake.TimeOfDay{Hour: 23, Minute: 30},
			want: at(2026, time.March, 10, 23, 30),
		},
		{
			name: "exactly now rolls to tomorrow",
			now:  at(2026, time.March, 10, 7, 0),
			tod:  wake.TimeOfDay{Hour: 7, Minute: 0},
			want: at(2026, time.March, 11, 7, 0),
		},
		{
			name: "one second past the minute rolls to tomorrow",
			now:  at(2026, time.March, 10, 7, 0).Add(time.Second),
			tod:  wake.TimeOfDay{Hour: 7, Minute: 0},
			want: at(2026, time.March, 11, 7, 0),
		},
		{
			name: "month boundary",
			now:  at(2026, time.January, 31, 23, 0),
			tod:  wake.TimeOfDay{Hour: 8, Minute: 0},
			want: at(2026, time.February, 1, 8, 0),
		},
		{
			name: "year boundary",
			now:  at(2026, time.December, 31, 23, 59),
			tod:  wake.TimeOfDay{Hour: 0, Minute: 30},
			want: at(2027, time.January, 1, 0, 30),
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tc.want, NextFireTime(tc.now, tc.tod))
		})
	}
}

// TestScheduler_ScheduleRegistersAndFires runs the happy path end to end
// against the real timer facility: schedule, persist, fire on time.
func TestScheduler_ScheduleRegistersAndFires(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		var (
			mu    sync.Mutex
			fired []string
		)

		facility := newRecordingFacility(&mu, &fired)
		repository := new(memoryRepository)

		ctx := context.Background()

		s, err := New(ctx, facility, repository)
		require.NoError(t, err)

		tod := wake.TimeOfDay{Hour: 8, Minute: 0}

		trigger, err := s.Schedule(ctx, tod, wake.SoundChime)
		require.NoError(t, err)
		require.NotEmpty(t, trigger.ID)
		require.NotEmpty(t, trigger.Handle)
		require.Equal(t, NextFireTime(time.Now(), tod), trigger.FireAt)

		snap := s.Snapshot()
		require.True(t, snap.Settings.Enabled)
		require.Equal(t, trigger.ID, snap.Pending.ID)

		persisted, err := repository.Load(ctx)
		require.NoError(t, err)
		require.Equal(t, trigger.ID, persisted.Pending.ID)

		// Sleep past the fire time inside the bubble.
		time.Sleep(time.Until(trigger.FireAt) + time.Second)
		synctest.Wait()

		mu.Lock()
		defer mu.Unlock()

		require.Equal(t, []string{trigger.ID}, fired)
	})
}

// newRecordingFacility builds a timer facility that records fired
// trigger identifiers into the provided slice.
func newRecordingFacility(mu *sync.Mutex, fired *[]string) *notify.TimerFacility {
	facility := notify.NewTimerFacility()
	facility.OnFire(func(_, triggerID string, _ time.Time) {
		mu.Lock()
		defer mu.Unlock()

		*fired = append(*fired, triggerID)
	})

	return facility
}

// TestScheduler_RescheduleCancelsPrevious verifies editing the alarm never
// leaves orphan registrations behind.
func TestScheduler_RescheduleCancelsPrevious(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		facility := notify.NewTimerFacility()
		ctx := context.Background()

		s, err := New(ctx, facility, new(memoryRepository))
		require.NoError(t, err)

		first, err := s.Schedule(ctx, wake.TimeOfDay{Hour: 7}, wake.SoundClassic)
		require.NoError(t, err)

		second, err := s.Schedule(ctx, wake.TimeOfDay{Hour: 9}, wake.SoundPulse)
		require.NoError(t, err)
		require.NotEqual(t, first.ID, second.ID)

		pending, err := facility.Pending(ctx)
		require.NoError(t, err)
		require.Len(t, pending, 1)
		require.Equal(t, second.ID, pending[0].TriggerID)
	})
}

// TestScheduler_CancelIsIdempotent verifies cancel works with and without
// a live registration.
func TestScheduler_CancelIsIdempotent(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		facility := notify.NewTimerFacility()
		ctx := context.Background()

		s, err := New(ctx, facility, new(memoryRepository))
		require.NoError(t, err)

		// Nothing scheduled yet.
		require.NoError(t, s.Cancel(ctx))

		_, err = s.Schedule(ctx, wake.TimeOfDay{Hour: 7}, wake.SoundClassic)
		require.NoError(t, err)

		require.NoError(t, s.Cancel(ctx))
		require.NoError(t, s.Cancel(ctx))

		pending, err := facility.Pending(ctx)
		require.NoError(t, err)
		require.Empty(t, pending)

		snap := s.Snapshot()
		require.False(t, snap.Settings.Enabled)
		require.Nil(t, snap.Pending)
	})
}

// TestScheduler_RegistrationFailureDisables verifies a failed registration
// surfaces once and leaves the alarm off.
func TestScheduler_RegistrationFailureDisables(t *testing.T) {
	t.Parallel()

	facility := &failingFacility{err: notify.ErrPermission}
	repository := new(memoryRepository)
	ctx := context.Background()

	s, err := New(ctx, facility, repository)
	require.NoError(t, err)

	_, err = s.Schedule(ctx, wake.TimeOfDay{Hour: 7}, wake.SoundClassic)
	require.ErrorIs(t, err, notify.ErrPermission)

	snap := s.Snapshot()
	require.False(t, snap.Settings.Enabled)
	require.Nil(t, snap.Pending)

	persisted, err := repository.Load(ctx)
	require.NoError(t, err)
	require.False(t, persisted.Settings.Enabled)
}

// TestScheduler_RestoreKeepsTriggerIdentity verifies a restart re-registers
// the persisted trigger under its original identifier.
func TestScheduler_RestoreKeepsTriggerIdentity(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		ctx := context.Background()
		repository := new(memoryRepository)

		seeded := &wake.State{
			Settings: wake.Settings{
				Enabled: true,
				Time:    wake.TimeOfDay{Hour: 8},
				Sound:   wake.SoundChime,
			},
			Pending: &wake.Trigger{
				ID:     "persisted-trigger",
				FireAt: time.Now().Add(5 * time.Hour),
				Sound:  wake.SoundChime,
				Handle: "stale-handle",
			},
		}
		require.NoError(t, repository.Save(ctx, seeded))

		facility := notify.NewTimerFacility()

		s, err := New(ctx, facility, repository)
		require.NoError(t, err)

		restored, err := s.Restore(ctx)
		require.NoError(t, err)
		require.NotNil(t, restored)
		require.Equal(t, "persisted-trigger", restored.ID)
		require.NotEqual(t, "stale-handle", restored.Handle)

		pending, err := facility.Pending(ctx)
		require.NoError(t, err)
		require.Len(t, pending, 1)
		require.Equal(t, "persisted-trigger", pending[0].TriggerID)
	})
}

// TestScheduler_RestoreSkipsStaleAndDisabled verifies restore does nothing
// for disabled alarms or already-due triggers.
func TestScheduler_RestoreSkipsStaleAndDisabled(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		ctx := context.Background()
		repository := new(memoryRepository)

		// Already-due trigger: the resume path rings it, restore must not re-arm it.
		require.NoError(t, repository.Save(ctx, &wake.State{
			Settings: wake.Settings{Enabled: true, Sound: wake.SoundChime},
			Pending: &wake.Trigger{
				ID:     "due-trigger",
				FireAt: time.Now().Add(-time.Hour),
			},
		}))

		facility := notify.NewTimerFacility()

		s, err := New(ctx, facility, repository)
		require.NoError(t, err)

		restored, err := s.Restore(ctx)
		require.NoError(t, err)
		require.Nil(t, restored)

		pending, err := facility.Pending(ctx)
		require.NoError(t, err)
		require.Empty(t, pending)

		// Disabled alarm restores nothing either.
		s.state.Settings.Enabled = false
		s.state.Pending = &wake.Trigger{ID: "x", FireAt: time.Now().Add(time.Hour)}

		restored, err = s.Restore(ctx)
		require.NoError(t, err)
		require.Nil(t, restored)
	})
}

// TestScheduler_ConsumeFiredIsSingleShot verifies a firing consumes the
// trigger and turns the alarm off until re-enabled.
func TestScheduler_ConsumeFiredIsSingleShot(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		facility := notify.NewTimerFacility()
		repository := new(memoryRepository)
		ctx := context.Background()

		s, err := New(ctx, facility, repository)
		require.NoError(t, err)

		trigger, err := s.Schedule(ctx, wake.TimeOfDay{Hour: 6, Minute: 30}, wake.SoundPulse)
		require.NoError(t, err)

		firedAt := trigger.FireAt
		s.ConsumeFired(ctx, trigger.ID, firedAt)

		snap := s.Snapshot()
		require.False(t, snap.Settings.Enabled)
		require.Nil(t, snap.Pending)
		require.Equal(t, trigger.ID, snap.LastFiredID)
		require.Equal(t, firedAt, snap.LastFiredAt)

		persisted, err := repository.Load(ctx)
		require.NoError(t, err)
		require.False(t, persisted.Settings.Enabled)
		require.Equal(t, trigger.ID, persisted.LastFiredID)
	})
}
