package podcast

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Control is the tri-state playback signal. The routine sets ControlPlay
// exactly once when it enters the podcast stage; everything after that
// comes from the user.
type Control string

// Playback controls.
const (
	ControlPlay    Control = "play"
	ControlPause   Control = "pause"
	ControlRefresh Control = "refresh"
)

var (
	// ErrUnknownControl is returned for a control value outside the set.
	ErrUnknownControl = errors.New("unknown podcast control")
	// ErrNoEpisodes is returned when the feed has nothing playable.
	ErrNoEpisodes = errors.New("feed has no playable episodes")
	// ErrNotPlaying is returned when pause arrives with no live playback.
	ErrNotPlaying = errors.New("no active playback")
)

// ParseControl converts user input into a Control.
func ParseControl(s string) (Control, error) {
	switch Control(strings.ToLower(strings.TrimSpace(s))) {
	case ControlPlay:
		return ControlPlay, nil
	case ControlPause:
		return ControlPause, nil
	case ControlRefresh:
		return ControlRefresh, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownControl, s)
	}
}

// Resolver finds the newest episode's media URL.
type Resolver interface {
	ResolveLatestEpisodeURL(ctx context.Context) (string, error)
}

// Player performs playback of a media URL. Play replaces any playback
// already in flight.
type Player interface {
	Play(ctx context.Context, url string) error
	Pause() error
	Resume() error
	Stop() error
}
