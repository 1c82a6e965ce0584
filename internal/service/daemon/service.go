package daemon

import (
	"context"
	"fmt"
	"time"

	"github.com/oshokin/wakeup-call/internal/api/httpapi"
	"github.com/oshokin/wakeup-call/internal/audio"
	"github.com/oshokin/wakeup-call/internal/dispatcher"
	"github.com/oshokin/wakeup-call/internal/domain/wake"
	"github.com/oshokin/wakeup-call/internal/logger"
	"github.com/oshokin/wakeup-call/internal/podcast"
	"github.com/oshokin/wakeup-call/internal/ringer"
	"github.com/oshokin/wakeup-call/internal/routine"
	"github.com/oshokin/wakeup-call/internal/scheduler"
)

// service aggregates the daemon components behind the control API.
// It is unexported to keep the transport decoupled from the wiring.
type service struct {
	// sched owns alarm intent and the registered trigger.
	sched *scheduler.Scheduler
	// disp funnels wake signals into at most one alarm per firing.
	disp *dispatcher.Dispatcher
	// ring is the alarm ringer.
	ring *ringer.Ringer
	// orch drives the morning routine.
	orch *routine.Orchestrator
	// podcast controls episode playback.
	podcast *podcast.Controller
	// audio reports the current session holder.
	audio *audio.Manager
	// events is the WebSocket feed.
	events *httpapi.Hub
}

// components collects everything the service fronts.
type components struct {
	sched   *scheduler.Scheduler
	disp    *dispatcher.Dispatcher
	ring    *ringer.Ringer
	orch    *routine.Orchestrator
	podcast *podcast.Controller
	audio   *audio.Manager
	events  *httpapi.Hub
}

// newService creates the control-API core over the given components.
func newService(parts components) *service {
	return &service{
		sched:   parts.sched,
		disp:    parts.disp,
		ring:    parts.ring,
		orch:    parts.orch,
		podcast: parts.podcast,
		audio:   parts.audio,
		events:  parts.events,
	}
}

// Status assembles the aggregate daemon view.
func (s *service) Status(_ context.Context) (*wake.Status, error) {
	snap := s.sched.Snapshot()
	stage, stageErr := s.orch.Stage()

	status := &wake.Status{
		Settings:   snap.Settings,
		Pending:    snap.Pending,
		Ringer:     s.ring.State(),
		Stage:      stage,
		AudioOwner: string(s.audio.Held()),
		Podcast:    wake.PodcastStatus(s.podcast.Status()),
	}

	if stageErr != nil {
		status.StageErr = stageErr.Error()
	}

	return status, nil
}

// Enable arms the alarm for the next occurrence of the time of day.
// An empty sound keeps the current selection.
func (s *service) Enable(ctx context.Context, tod wake.TimeOfDay, sound wake.SoundID) (*wake.Trigger, error) {
	if sound == "" {
		sound = s.sched.Snapshot().Settings.Sound
		if sound == "" {
			sound = wake.DefaultSound
		}
	}

	trigger, err := s.sched.Schedule(ctx, tod, sound)
	if err != nil {
		return nil, fmt.Errorf("schedule alarm: %w", err)
	}

	s.publishAlarmUpdated()

	return trigger, nil
}

// Disable cancels the pending trigger. Disabling an idle alarm is not
// an error.
func (s *service) Disable(ctx context.Context) error {
	if err := s.sched.Cancel(ctx); err != nil {
		return fmt.Errorf("cancel alarm: %w", err)
	}

	s.publishAlarmUpdated()

	return nil
}

// Dismiss stops the ringing alarm. The ringer's dismissal hook starts
// the morning routine.
func (s *service) Dismiss(ctx context.Context) error {
	return s.ring.Dismiss(ctx)
}

// WakeSignal reports a user tap on the delivered alarm. The dispatcher
// decides whether it is a fresh firing or a duplicate of one already
// being handled.
func (s *service) WakeSignal(ctx context.Context, triggerID string) (bool, error) {
	snap := s.sched.Snapshot()

	target := snap.Pending
	if target == nil {
		// No live registration: the tap can only belong to a firing
		// that was already consumed and handled.
		logger.DebugKV(ctx, "Wake signal with no pending trigger, dropping",
			"trigger_id", triggerID,
			"last_fired_id", snap.LastFiredID)

		return false, nil
	}

	if triggerID != "" && triggerID != target.ID {
		logger.DebugKV(ctx, "Wake signal names a stale trigger, dropping",
			"trigger_id", triggerID,
			"current", target.ID)

		return false, nil
	}

	return s.disp.OnWakeSignal(ctx, wake.SourceTap, target.Clone(), time.Now()), nil
}

// SetPodcast applies a podcast control signal.
func (s *service) SetPodcast(ctx context.Context, control podcast.Control) error {
	return s.podcast.Set(ctx, control)
}

// PreviewSound plays one cycle of a tone outside the alarm flow.
func (s *service) PreviewSound(ctx context.Context, sound wake.SoundID) error {
	return s.ring.Preview(ctx, sound)
}

// publishAlarmUpdated pushes the post-mutation alarm intent to the feed.
func (s *service) publishAlarmUpdated() {
	snap := s.sched.Snapshot()

	payload := httpapi.AlarmPayload{
		Enabled: snap.Settings.Enabled,
	}

	if snap.Settings.Enabled {
		payload.Time = snap.Settings.Time.String()
	}

	if snap.Pending != nil {
		payload.TriggerID = snap.Pending.ID
	}

	s.events.Publish(httpapi.NewEvent(httpapi.EventAlarmUpdated, payload))
}
