package podcast

import (
	"context"
	"fmt"
	"sync"

	"github.com/oshokin/wakeup-call/internal/logger"
)

// playbackState tracks what the player is doing right now.
type playbackState string

const (
	stateIdle    playbackState = "idle"
	statePlaying playbackState = "playing"
	statePaused  playbackState = "paused"
)

// Status is a snapshot of podcast playback.
type Status struct {
	// State is one of idle, playing or paused.
	State string `json:"state"`
	// EpisodeURL is the resolved media URL, empty before first resolve.
	EpisodeURL string `json:"episode_url,omitempty"`
}

// Controller applies control signals to the player, resolving the
// episode URL lazily and caching it until a refresh.
type Controller struct {
	// mu serializes control application.
	mu sync.Mutex
	// resolver finds episode URLs.
	resolver Resolver
	// player performs playback.
	player Player
	// state is the current playback state.
	state playbackState
	// episode is the cached media URL.
	episode string
}

// NewController wires a resolver to a player.
func NewController(resolver Resolver, player Player) *Controller {
	return &Controller{
		resolver: resolver,
		player:   player,
		state:    stateIdle,
	}
}

// Set applies a control signal.
func (c *Controller) Set(ctx context.Context, control Control) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch control {
	case ControlPlay:
		return c.playLocked(ctx)
	case ControlPause:
		return c.pauseLocked()
	case ControlRefresh:
		return c.refreshLocked(ctx)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownControl, control)
	}
}

// Status returns a playback snapshot.
func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()

	return Status{
		State:      string(c.state),
		EpisodeURL: c.episode,
	}
}

// Stop ends playback, keeping the resolved episode cached.
func (c *Controller) Stop(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == stateIdle {
		return
	}

	if err := c.player.Stop(); err != nil {
		logger.Errorf(ctx, "Failed to stop podcast playback: %v", err)
	}

	c.state = stateIdle
}

func (c *Controller) playLocked(ctx context.Context) error {
	switch c.state {
	case statePlaying:
		return nil
	case statePaused:
		if err := c.player.Resume(); err != nil {
			return fmt.Errorf("resume: %w", err)
		}

		c.state = statePlaying

		return nil
	case stateIdle:
	}

	if c.episode == "" {
		url, err := c.resolver.ResolveLatestEpisodeURL(ctx)
		if err != nil {
			return fmt.Errorf("resolve episode: %w", err)
		}

		c.episode = url
	}

	if err := c.player.Play(ctx, c.episode); err != nil {
		return fmt.Errorf("play: %w", err)
	}

	c.state = statePlaying

	logger.InfoKV(ctx, "Podcast playback started", "episode_url", c.episode)

	return nil
}

func (c *Controller) pauseLocked() error {
	if c.state != statePlaying {
		return ErrNotPlaying
	}

	if err := c.player.Pause(); err != nil {
		return fmt.Errorf("pause: %w", err)
	}

	c.state = statePaused

	return nil
}

// refreshLocked re-resolves the newest episode. Live playback restarts
// on the fresh URL; an idle controller only updates its cache.
func (c *Controller) refreshLocked(ctx context.Context) error {
	url, err := c.resolver.ResolveLatestEpisodeURL(ctx)
	if err != nil {
		return fmt.Errorf("resolve episode: %w", err)
	}

	restart := c.state != stateIdle
	c.episode = url

	if !restart {
		return nil
	}

	if err = c.player.Play(ctx, url); err != nil {
		c.state = stateIdle

		return fmt.Errorf("play: %w", err)
	}

	c.state = statePlaying

	logger.InfoKV(ctx, "Podcast playback refreshed", "episode_url", url)

	return nil
}
