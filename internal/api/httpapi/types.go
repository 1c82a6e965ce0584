package httpapi

// ActorHeader carries the "user@host" identity of the caller. The
// daemon logs it on mutating calls.
const ActorHeader = "X-Wakeup-Actor"

// AlarmRequest arms or disarms the alarm. Time is "HH:MM" local; an
// empty sound keeps the current selection. Only Enabled matters when
// disarming.
type AlarmRequest struct {
	// Enabled arms the alarm when true and disarms it when false.
	Enabled bool `json:"enabled"`
	// Time is the wake time of day in "HH:MM" local time.
	Time string `json:"time,omitempty"`
	// Sound selects the alarm tone. Empty keeps the current selection.
	Sound string `json:"sound,omitempty"`
}

// WakeRequest reports a tap on the delivered alarm notification. The
// trigger ID is optional; an empty one means "whatever is pending".
type WakeRequest struct {
	// TriggerID identifies the firing the tap belongs to.
	TriggerID string `json:"trigger_id,omitempty"`
}

// WakeResponse reports whether the signal rang the alarm or was folded
// into an already-seen firing.
type WakeResponse struct {
	// Accepted is true when the signal started a new ring.
	Accepted bool `json:"accepted"`
}

// PreviewRequest plays one cycle of a tone outside the alarm flow.
type PreviewRequest struct {
	// Sound is the tone to sample.
	Sound string `json:"sound"`
}

// PodcastRequest applies a playback control signal.
type PodcastRequest struct {
	// Control is one of "play", "pause" or "refresh".
	Control string `json:"control"`
}

// AckResponse acknowledges a mutating call that has no richer payload.
type AckResponse struct {
	// Status is a short human-readable acknowledgement.
	Status string `json:"status"`
}

// ErrorResponse carries the failure message for non-2xx responses.
type ErrorResponse struct {
	// Error is the failure description.
	Error string `json:"error"`
}
