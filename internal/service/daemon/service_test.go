package daemon

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"testing/synctest"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/wakeup-call/internal/api/httpapi"
	"github.com/oshokin/wakeup-call/internal/audio"
	"github.com/oshokin/wakeup-call/internal/dispatcher"
	"github.com/oshokin/wakeup-call/internal/domain/wake"
	"github.com/oshokin/wakeup-call/internal/notify"
	"github.com/oshokin/wakeup-call/internal/podcast"
	"github.com/oshokin/wakeup-call/internal/repository/state"
	"github.com/oshokin/wakeup-call/internal/ringer"
	"github.com/oshokin/wakeup-call/internal/routine"
	"github.com/oshokin/wakeup-call/internal/scheduler"
	"github.com/oshokin/wakeup-call/internal/speech"
)

const (
	testSampleRate  = 8000
	testSettleDelay = 10 * time.Millisecond
	testDedupWindow = 90 * time.Second

	testEpisodeURL = "https://feeds.example.net/ep-1.mp3"
	testSummary    = "You have 1 event today. At 09:30: Standup."
)

type fakeSource struct {
	mu      sync.Mutex
	summary string
	err     error
}

func (f *fakeSource) FetchSummary(context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.err != nil {
		return "", f.err
	}

	return f.summary, nil
}

// fakeEngine reports completion after a fixed talking time.
type fakeEngine struct {
	mu      sync.Mutex
	talkFor time.Duration
	texts   []string
}

func (f *fakeEngine) Speak(_ context.Context, text string, cb speech.Callbacks) {
	f.mu.Lock()
	f.texts = append(f.texts, text)
	talkFor := f.talkFor
	f.mu.Unlock()

	cb.OnStart()
	time.AfterFunc(talkFor, cb.OnDone)
}

func (f *fakeEngine) spoken() []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]string(nil), f.texts...)
}

type fakeResolver struct {
	url string
}

func (f *fakeResolver) ResolveLatestEpisodeURL(context.Context) (string, error) {
	return f.url, nil
}

type fakePlayer struct {
	mu   sync.Mutex
	urls []string
}

func (p *fakePlayer) Play(_ context.Context, url string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.urls = append(p.urls, url)

	return nil
}

func (p *fakePlayer) Pause() error  { return nil }
func (p *fakePlayer) Resume() error { return nil }
func (p *fakePlayer) Stop() error   { return nil }

func (p *fakePlayer) played() []string {
	p.mu.Lock()
	defer p.mu.Unlock()

	return append([]string(nil), p.urls...)
}

// fixture is a fully wired daemon core over fake leaves: no sound card,
// no network, no child processes.
type fixture struct {
	svc    *service
	ring   *ringer.Ringer
	engine *fakeEngine
	player *fakePlayer

	mu         sync.Mutex
	ringStates []wake.RingerState
	owners     []audio.Owner
}

func (f *fixture) states() []wake.RingerState {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]wake.RingerState(nil), f.ringStates...)
}

func (f *fixture) ownerChanges() []audio.Owner {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]audio.Owner(nil), f.owners...)
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	ctx := context.Background()

	hub := httpapi.NewHub()
	t.Cleanup(hub.Close)

	f := &fixture{}

	manager := audio.NewManager(audio.NopOutput{}, testSettleDelay, testSampleRate,
		audio.WithOwnerChanged(func(owner audio.Owner) {
			f.mu.Lock()
			defer f.mu.Unlock()

			f.owners = append(f.owners, owner)
		}))

	engine := &fakeEngine{talkFor: time.Second}
	player := &fakePlayer{}
	podcastCtl := podcast.NewController(&fakeResolver{url: testEpisodeURL}, player)

	orch := routine.New(manager, &fakeSource{summary: testSummary}, engine, podcastCtl,
		routine.WithSafetyTimeout(30*time.Second),
		routine.WithSettleDelay(testSettleDelay))

	f.engine = engine
	f.player = player

	ring := ringer.New(manager, testSampleRate,
		ringer.WithDismissed(orch.Start),
		ringer.WithStateChanged(func(ringerState wake.RingerState) {
			f.mu.Lock()
			defer f.mu.Unlock()

			f.ringStates = append(f.ringStates, ringerState)
		}))

	facility := notify.NewTimerFacility()
	t.Cleanup(facility.Close)

	sched, err := scheduler.New(ctx, facility,
		state.NewFileRepository(filepath.Join(t.TempDir(), "state.json")))
	require.NoError(t, err)

	disp := dispatcher.New(sched, facility, testDedupWindow, ring.Ring)
	facility.OnFire(disp.HandleDelivered(ctx))

	f.svc = newService(components{
		sched:   sched,
		disp:    disp,
		ring:    ring,
		orch:    orch,
		podcast: podcastCtl,
		audio:   manager,
		events:  hub,
	})
	f.ring = ring

	t.Cleanup(func() {
		orch.Stop(ctx)
	})

	return f
}

// wakeIn returns the time of day the given distance from now. The
// distance must be at least a minute; triggers have minute granularity.
func wakeIn(d time.Duration) wake.TimeOfDay {
	at := time.Now().Add(d)

	return wake.TimeOfDay{Hour: at.Hour(), Minute: at.Minute()}
}

// TestService_FullWakeCycle walks the whole day: arm, fire, tap folding
// into the firing, dismiss, then the routine up to podcast playback.
func TestService_FullWakeCycle(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		f := newFixture(t)
		ctx := context.Background()

		trigger, err := f.svc.Enable(ctx, wakeIn(time.Minute), wake.SoundChime)
		require.NoError(t, err)
		require.NotNil(t, trigger)

		status, err := f.svc.Status(ctx)
		require.NoError(t, err)
		require.True(t, status.Settings.Enabled)
		require.NotNil(t, status.Pending)
		require.Equal(t, wake.RingerIdle, status.Ringer)
		require.Equal(t, wake.StageIdle, status.Stage)

		time.Sleep(time.Minute + time.Second)
		synctest.Wait()

		status, err = f.svc.Status(ctx)
		require.NoError(t, err)
		require.Equal(t, wake.RingerRinging, status.Ringer)
		require.Equal(t, string(audio.OwnerRinger), status.AudioOwner)

		// The firing consumed the registration: the alarm is single-shot.
		require.False(t, status.Settings.Enabled)
		require.Nil(t, status.Pending)

		// A tap for the same firing changes nothing.
		accepted, err := f.svc.WakeSignal(ctx, trigger.ID)
		require.NoError(t, err)
		require.False(t, accepted)

		require.NoError(t, f.svc.Dismiss(ctx))

		// Calendar fetch, a one-second utterance and the ownership settle.
		time.Sleep(10 * time.Second)
		synctest.Wait()

		status, err = f.svc.Status(ctx)
		require.NoError(t, err)
		require.Equal(t, wake.RingerDismissed, status.Ringer)
		require.Equal(t, wake.StagePlayingPodcast, status.Stage)
		require.Empty(t, status.StageErr)
		require.Equal(t, "playing", status.Podcast.State)
		require.Equal(t, testEpisodeURL, status.Podcast.EpisodeURL)
		require.Equal(t, string(audio.OwnerPodcast), status.AudioOwner)

		require.Equal(t, []string{testSummary}, f.engine.spoken())
		require.Equal(t, []string{testEpisodeURL}, f.player.played())

		// The audio session hands off through the whole cycle with no
		// overlap: the ringer lets go before speech, speech before podcast.
		require.Equal(t, []audio.Owner{
			audio.OwnerRinger,
			audio.OwnerNone,
			audio.OwnerSpeech,
			audio.OwnerNone,
			audio.OwnerPodcast,
		}, f.ownerChanges())
	})
}

// TestService_TapBeforeDeliveryWinsOnce taps the pending trigger first;
// the later timer delivery must fold into the same firing.
func TestService_TapBeforeDeliveryWinsOnce(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		f := newFixture(t)
		ctx := context.Background()

		trigger, err := f.svc.Enable(ctx, wakeIn(time.Minute), wake.SoundClassic)
		require.NoError(t, err)

		accepted, err := f.svc.WakeSignal(ctx, "some-other-trigger")
		require.NoError(t, err)
		require.False(t, accepted)

		accepted, err = f.svc.WakeSignal(ctx, trigger.ID)
		require.NoError(t, err)
		require.True(t, accepted)
		require.Equal(t, wake.RingerRinging, f.ring.State())

		// The timer fires into a consumed registration and is dropped.
		time.Sleep(2 * time.Minute)
		synctest.Wait()

		require.Equal(t, []wake.RingerState{wake.RingerRinging}, f.states())
	})
}

// TestService_EnableKeepsSound re-arms without naming a sound and
// expects the previous selection to stick.
func TestService_EnableKeepsSound(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		f := newFixture(t)
		ctx := context.Background()

		_, err := f.svc.Enable(ctx, wake.TimeOfDay{Hour: 6, Minute: 30}, wake.SoundPulse)
		require.NoError(t, err)

		trigger, err := f.svc.Enable(ctx, wake.TimeOfDay{Hour: 7}, "")
		require.NoError(t, err)
		require.Equal(t, wake.SoundPulse, trigger.Sound)

		status, err := f.svc.Status(ctx)
		require.NoError(t, err)
		require.Equal(t, wake.SoundPulse, status.Settings.Sound)
		require.Equal(t, wake.TimeOfDay{Hour: 7}, status.Settings.Time)
	})
}

// TestService_EnableDefaultsSound arms a fresh daemon without a sound.
func TestService_EnableDefaultsSound(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		f := newFixture(t)

		trigger, err := f.svc.Enable(context.Background(), wake.TimeOfDay{Hour: 6}, "")
		require.NoError(t, err)
		require.Equal(t, wake.DefaultSound, trigger.Sound)
	})
}

// TestService_DisableIsIdempotent disables twice around an enable.
func TestService_DisableIsIdempotent(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		f := newFixture(t)
		ctx := context.Background()

		require.NoError(t, f.svc.Disable(ctx))

		_, err := f.svc.Enable(ctx, wake.TimeOfDay{Hour: 8}, wake.SoundChime)
		require.NoError(t, err)

		require.NoError(t, f.svc.Disable(ctx))

		status, err := f.svc.Status(ctx)
		require.NoError(t, err)
		require.False(t, status.Settings.Enabled)
		require.Nil(t, status.Pending)

		require.NoError(t, f.svc.Disable(ctx))
	})
}

// TestService_DismissRequiresRinging maps to the ringer's conflict error.
func TestService_DismissRequiresRinging(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		f := newFixture(t)

		err := f.svc.Dismiss(context.Background())
		require.ErrorIs(t, err, ringer.ErrNotRinging)
	})
}

// TestService_WakeSignalWithoutAlarm drops a tap on a fresh daemon.
func TestService_WakeSignalWithoutAlarm(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		f := newFixture(t)

		accepted, err := f.svc.WakeSignal(context.Background(), "")
		require.NoError(t, err)
		require.False(t, accepted)
	})
}

// TestService_PodcastControls drives playback through the core surface.
func TestService_PodcastControls(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		f := newFixture(t)
		ctx := context.Background()

		err := f.svc.SetPodcast(ctx, podcast.ControlPause)
		require.ErrorIs(t, err, podcast.ErrNotPlaying)

		require.NoError(t, f.svc.SetPodcast(ctx, podcast.ControlPlay))

		status, err := f.svc.Status(ctx)
		require.NoError(t, err)
		require.Equal(t, "playing", status.Podcast.State)

		require.NoError(t, f.svc.SetPodcast(ctx, podcast.ControlPause))

		status, err = f.svc.Status(ctx)
		require.NoError(t, err)
		require.Equal(t, "paused", status.Podcast.State)
	})
}

// TestService_PreviewReleasesSession plays one preview cycle and expects
// the audio session back afterwards.
func TestService_PreviewReleasesSession(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		f := newFixture(t)
		ctx := context.Background()

		require.NoError(t, f.svc.PreviewSound(ctx, wake.SoundChime))

		time.Sleep(10 * time.Second)
		synctest.Wait()

		status, err := f.svc.Status(ctx)
		require.NoError(t, err)
		require.Equal(t, string(audio.OwnerNone), status.AudioOwner)
	})
}
