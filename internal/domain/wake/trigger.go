package wake

import (
	"errors"
	"fmt"
	"time"
)

// SoundID identifies one of the built-in alarm tones.
type SoundID string

// Built-in alarm tones. SoundSilent is a real choice: the alarm still
// fires and the routine still runs, only playback is skipped.
const (
	SoundClassic SoundID = "classic"
	SoundChime   SoundID = "chime"
	SoundPulse   SoundID = "pulse"
	SoundSilent  SoundID = "silent"
)

// DefaultSound is used when the user never picked a tone.
const DefaultSound = SoundClassic

// errUnknownSound is returned when a sound identifier is not in the built-in set.
var errUnknownSound = errors.New("unknown alarm sound")

// Sounds returns the built-in tone identifiers in display order.
func Sounds() []SoundID {
	return []SoundID{SoundClassic, SoundChime, SoundPulse, SoundSilent}
}

// Valid reports whether the identifier names a built-in tone.
func (s SoundID) Valid() bool {
	switch s {
	case SoundClassic, SoundChime, SoundPulse, SoundSilent:
		return true
	default:
		return false
	}
}

// ParseSoundID converts user input to a SoundID.
func ParseSoundID(s string) (SoundID, error) {
	id := SoundID(s)
	if !id.Valid() {
		return "", fmt.Errorf("%w: %q", errUnknownSound, s)
	}

	return id, nil
}

// TimeOfDay is a wall-clock alarm time without a date.
type TimeOfDay struct {
	// Hour is the hour in 24-hour notation, 0 through 23.
	Hour int `json:"hour"`
	// Minute is the minute, 0 through 59.
	Minute int `json:"minute"`
}

// errInvalidTimeOfDay is returned when hour or minute is out of range.
var errInvalidTimeOfDay = errors.New("time of day out of range")

// Validate checks that hour and minute are within range.
func (t TimeOfDay) Validate() error {
	if t.Hour < 0 || t.Hour > 23 || t.Minute < 0 || t.Minute > 59 {
		return fmt.Errorf("%w: %02d:%02d", errInvalidTimeOfDay, t.Hour, t.Minute)
	}

	return nil
}

// String renders the time in HH:MM notation.
func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// ParseTimeOfDay converts "HH:MM" user input to a TimeOfDay.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	parsed, err := time.Parse("15:04", s)
	if err != nil {
		return TimeOfDay{}, fmt.Errorf("parse time of day: %w", err)
	}

	return TimeOfDay{Hour: parsed.Hour(), Minute: parsed.Minute()}, nil
}

// Trigger is a single scheduled wake-up. There is at most one live
// trigger at a time and it does not recur: once fired and handled, the
// alarm must be re-enabled for the next day.
type Trigger struct {
	// ID uniquely identifies this scheduling and is the key wake
	// signals are de-duplicated by.
	ID string `json:"id"`
	// FireAt is the absolute wall-clock instant the trigger fires.
	FireAt time.Time `json:"fire_at"`
	// Sound is the tone the ringer plays when this trigger fires.
	Sound SoundID `json:"sound"`
	// Handle is the opaque registration handle returned by the
	// notification facility. It is required to cancel the registration.
	Handle string `json:"handle"`
}

// Clone returns a copy of the trigger and handles nil safely.
func (t *Trigger) Clone() *Trigger {
	if t == nil {
		return nil
	}

	cloned := *t

	return &cloned
}
