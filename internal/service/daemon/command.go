package daemon

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/oshokin/wakeup-call/internal/api/httpapi"
	"github.com/oshokin/wakeup-call/internal/audio"
	"github.com/oshokin/wakeup-call/internal/audio/miniaudio"
	"github.com/oshokin/wakeup-call/internal/calendar"
	"github.com/oshokin/wakeup-call/internal/config"
	"github.com/oshokin/wakeup-call/internal/dispatcher"
	"github.com/oshokin/wakeup-call/internal/domain/wake"
	"github.com/oshokin/wakeup-call/internal/logger"
	"github.com/oshokin/wakeup-call/internal/notify"
	"github.com/oshokin/wakeup-call/internal/podcast"
	"github.com/oshokin/wakeup-call/internal/prewarm"
	"github.com/oshokin/wakeup-call/internal/repository/state"
	"github.com/oshokin/wakeup-call/internal/ringer"
	"github.com/oshokin/wakeup-call/internal/routine"
	"github.com/oshokin/wakeup-call/internal/scheduler"
	"github.com/oshokin/wakeup-call/internal/speech"
)

// Options controls the wakeup-server process and configuration.
type Options struct {
	// ConfigPath specifies the path to settings YAML file.
	ConfigPath string
	// ListenAddress provides an optional listen address override for the control API.
	ListenAddress string
	// StateFile specifies the path to persist alarm state JSON.
	StateFile string
}

// reconcileInterval is the cadence of the registration self-heal sweep.
const reconcileInterval = time.Minute

// Run starts the daemon and blocks until the context is canceled.
// Configuration is loaded first; a missing settings file falls back to
// defaults so a fresh install works out of the box.
func Run(ctx context.Context, opts *Options) error {
	ctx = logger.WithName(ctx, "wakeup-server")

	settings, err := config.Load(opts.ConfigPath)

	switch {
	case err == nil:
	case errors.Is(err, os.ErrNotExist):
		logger.Info(ctx, "Settings file not found, using defaults")

		settings = config.Default()
	default:
		return fmt.Errorf("load settings: %w", err)
	}

	if opts.StateFile != "" {
		settings.StateFile = opts.StateFile
	}

	if opts.ListenAddress != "" {
		settings.ListenAddress = opts.ListenAddress
	}

	if settings.LogLevel != "" {
		if level, ok := logger.ParseLogLevel(settings.LogLevel); ok {
			logger.SetLevel(level)
		} else {
			logger.Warnf(ctx, "Unknown log level %q, staying at %s", settings.LogLevel, logger.Level())
		}
	}

	if err = ensureSingleInstance(); err != nil {
		return err
	}

	if settings.Calendar.ICSURL == "" {
		logger.Warn(ctx, "No calendar URL configured, morning summaries will fail")
	}

	if settings.Podcast.FeedURL == "" {
		logger.Warn(ctx, "No podcast feed configured, playback requests will fail")
	}

	// The daemon keeps running without a sound card: scheduling, speech
	// and podcast playback are independent of the tone output.
	var output audio.Output

	device, err := miniaudio.NewDevice()
	if err != nil {
		logger.Errorf(ctx, "Audio device unavailable, tones disabled: %v", err)

		output = audio.NopOutput{}
	} else {
		output = device
	}

	hub := httpapi.NewHub()

	manager := audio.NewManager(output, settings.Audio.SettleDelay, settings.Audio.SampleRate,
		audio.WithOwnerChanged(func(owner audio.Owner) {
			hub.Publish(httpapi.NewEvent(httpapi.EventAudioOwner,
				httpapi.OwnerPayload{Owner: string(owner)}))
		}))

	source := calendar.NewICSSource(settings.Calendar.ICSURL, settings.Calendar.Timeout)
	resolver := podcast.NewFeedResolver(settings.Podcast.FeedURL, config.DefaultTimeout)
	podcastCtl := podcast.NewController(resolver, podcastPlayer(settings.Podcast))

	orch := routine.New(manager, source, speechEngine(settings.Speech), podcastCtl,
		routine.WithSafetyTimeout(settings.Speech.SafetyTimeout),
		routine.WithSettleDelay(settings.Audio.SettleDelay),
		routine.WithStageChanged(func(stage wake.Stage, stageErr error) {
			payload := httpapi.StagePayload{Stage: string(stage)}
			if stageErr != nil {
				payload.Error = stageErr.Error()
			}

			hub.Publish(httpapi.NewEvent(httpapi.EventRoutineStage, payload))
		}))

	ring := ringer.New(manager, settings.Audio.SampleRate,
		ringer.WithDismissed(orch.Start),
		ringer.WithStateChanged(func(ringerState wake.RingerState) {
			hub.Publish(httpapi.NewEvent(httpapi.EventRingerState,
				httpapi.RingerPayload{State: string(ringerState)}))
		}))

	facility := notify.NewTimerFacility()

	sched, err := scheduler.New(ctx, facility, state.NewFileRepository(settings.StateFile))
	if err != nil {
		return fmt.Errorf("initialise scheduler: %w", err)
	}

	disp := dispatcher.New(sched, facility, settings.Dispatch.DedupWindow,
		func(ringCtx context.Context, trigger *wake.Trigger, wakeSource wake.WakeSource) {
			hub.Publish(httpapi.NewEvent(httpapi.EventAlarmFired, httpapi.FiredPayload{
				TriggerID: trigger.ID,
				Source:    string(wakeSource),
			}))

			ring.Ring(ringCtx, trigger, wakeSource)
		})

	facility.OnFire(disp.HandleDelivered(ctx))

	// A trigger that fired while the daemon was down rings immediately.
	if err = disp.Reconcile(ctx); err != nil {
		logger.Errorf(ctx, "Startup reconciliation failed: %v", err)
	}

	var background sync.WaitGroup

	task := prewarm.NewTask(facility, manager, settings.Prewarm.PrepareWindow, settings.Prewarm.EscalateWindow)
	runner := prewarm.NewRunner(task, settings.Prewarm.Interval, settings.Prewarm.MaxBackoff)

	background.Add(1)

	go func() {
		defer background.Done()

		runner.Run(logger.WithName(ctx, "prewarm"))
	}()

	background.Add(1)

	go func() {
		defer background.Done()

		sweepRegistrations(ctx, disp)
	}()

	server := httpapi.NewServer(newService(components{
		sched:   sched,
		disp:    disp,
		ring:    ring,
		orch:    orch,
		podcast: podcastCtl,
		audio:   manager,
		events:  hub,
	}), hub, settings.ListenAddress)

	logger.InfoKV(ctx, "Wakeup daemon starting",
		"listen_address", settings.ListenAddress,
		"state_file", settings.StateFile)

	serveErr := server.Run(ctx)

	background.Wait()

	// Shutdown still needs a live context for cleanup logging.
	cleanupCtx := context.WithoutCancel(ctx)

	facility.Close()
	orch.Stop(cleanupCtx)
	podcastCtl.Stop(cleanupCtx)

	if device != nil {
		if err = device.Close(); err != nil {
			logger.Errorf(cleanupCtx, "Closing audio device: %v", err)
		}
	}

	logger.Info(cleanupCtx, "Wakeup daemon stopped")

	return serveErr
}

// sweepRegistrations periodically re-runs reconciliation so a lost
// registration or an unattended firing heals without a restart.
func sweepRegistrations(ctx context.Context, disp *dispatcher.Dispatcher) {
	ticker := time.NewTicker(reconcileInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := disp.Reconcile(ctx); err != nil {
				logger.Errorf(ctx, "Reconciliation failed: %v", err)
			}
		}
	}
}

// speechEngine picks the configured TTS command or the platform default.
func speechEngine(cfg config.SpeechConfig) speech.Engine {
	if cfg.Command == "" {
		return speech.DefaultEngine()
	}

	return speech.NewExecEngine(cfg.Command, cfg.Args...)
}

// podcastPlayer picks the configured player command or the platform default.
func podcastPlayer(cfg config.PodcastConfig) podcast.Player {
	if cfg.PlayerCommand == "" {
		return podcast.DefaultPlayer()
	}

	return podcast.NewExecPlayer(cfg.PlayerCommand, cfg.PlayerArgs...)
}
