package wake

import "time"

// Settings is the persisted user intent for the alarm.
type Settings struct {
	// Enabled indicates whether the alarm is currently armed.
	Enabled bool `json:"enabled"`
	// Time is the wall-clock wake time.
	Time TimeOfDay `json:"time"`
	// Sound is the chosen alarm tone.
	Sound SoundID `json:"sound"`
}

// Clone returns a copy of the settings and handles nil safely.
func (s *Settings) Clone() *Settings {
	if s == nil {
		return nil
	}

	cloned := *s

	return &cloned
}

// State is the persisted daemon state: the user settings plus whatever
// trigger is currently registered. It is written on every scheduling
// change and read back on launch to reconcile registrations.
type State struct {
	// Settings is the user intent the pending trigger was derived from.
	Settings Settings `json:"settings"`
	// Pending is the currently registered trigger, nil when none.
	Pending *Trigger `json:"pending,omitempty"`
	// LastFiredID is the trigger that most recently fired.
	LastFiredID string `json:"last_fired_id,omitempty"`
	// LastFiredAt is when that trigger fired.
	LastFiredAt time.Time `json:"last_fired_at,omitempty"`
}

// Clone returns a copy of the state to avoid leaking internal references.
func (s *State) Clone() *State {
	if s == nil {
		return nil
	}

	return &State{
		Settings:    s.Settings,
		Pending:     s.Pending.Clone(),
		LastFiredID: s.LastFiredID,
		LastFiredAt: s.LastFiredAt,
	}
}

// WakeSource classifies how a wake signal reached the daemon.
type WakeSource string

// Wake signal sources. All three paths can deliver the same firing, so
// the dispatcher collapses them by trigger identity.
const (
	// SourceDelivered is the notification facility firing while the
	// daemon is running.
	SourceDelivered WakeSource = "delivered"
	// SourceTap is an explicit wake signal on the control API.
	SourceTap WakeSource = "tap"
	// SourceResume is reconciliation finding an already-fired trigger,
	// at startup or on the periodic sweep.
	SourceResume WakeSource = "resume"
)

// Stage is the morning routine stage. Stages advance strictly forward
// within a run; errors are reported alongside, never as a stage.
type Stage string

// Morning routine stages.
const (
	StageIdle             Stage = "idle"
	StageFetchingCalendar Stage = "fetching-calendar"
	StageSpeaking         Stage = "speaking"
	StagePlayingPodcast   Stage = "playing-podcast"
)

// RingerState is the alarm ringer lifecycle.
type RingerState string

// Ringer lifecycle states.
const (
	RingerIdle      RingerState = "idle"
	RingerRinging   RingerState = "ringing"
	RingerDismissed RingerState = "dismissed"
)

// PodcastStatus is the podcast slice of the aggregate status.
type PodcastStatus struct {
	// State is one of idle, playing or paused.
	State string `json:"state"`
	// EpisodeURL is the resolved media URL, empty before first resolve.
	EpisodeURL string `json:"episode_url,omitempty"`
}

// Status is the aggregate view served by the control API.
type Status struct {
	// Settings is the current user intent.
	Settings Settings `json:"settings"`
	// Pending is the registered trigger, nil when the alarm is off.
	Pending *Trigger `json:"pending,omitempty"`
	// Ringer is the ringer lifecycle state.
	Ringer RingerState `json:"ringer"`
	// Stage is the morning routine stage.
	Stage Stage `json:"stage"`
	// StageErr is the most recent routine error, empty when none.
	StageErr string `json:"stage_err,omitempty"`
	// AudioOwner names the current audio session holder, "none" when idle.
	AudioOwner string `json:"audio_owner"`
	// Podcast is the podcast playback snapshot.
	Podcast PodcastStatus `json:"podcast"`
}
