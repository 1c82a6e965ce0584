package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the daemon settings shared by the wakeup binaries.
type Config struct {
	// ListenAddress is the TCP address the control API listens on.
	ListenAddress string `yaml:"listen_addr"`
	// StateFile is the path to the JSON file storing alarm state.
	StateFile string `yaml:"state_file"`
	// LogLevel is the daemon log verbosity, one of debug, info, warn or
	// error. Empty keeps the built-in default. An unknown value is
	// reported and ignored rather than refusing to start.
	LogLevel string `yaml:"log_level"`
	// Calendar configures the morning calendar source.
	Calendar CalendarConfig `yaml:"calendar"`
	// Speech configures the text-to-speech engine.
	Speech SpeechConfig `yaml:"speech"`
	// Podcast configures the podcast feed and player.
	Podcast PodcastConfig `yaml:"podcast"`
	// Prewarm configures the periodic audio pre-warm task.
	Prewarm PrewarmConfig `yaml:"prewarm"`
	// Audio configures the shared audio output.
	Audio AudioConfig `yaml:"audio"`
	// Dispatch configures wake-signal handling.
	Dispatch DispatchConfig `yaml:"dispatch"`
}

// CalendarConfig holds the calendar source settings.
type CalendarConfig struct {
	// ICSURL is the HTTP(S) address of the ICS calendar to summarize.
	ICSURL string `yaml:"ics_url"`
	// Timeout is the duration allowed for one calendar fetch.
	Timeout time.Duration `yaml:"timeout"`
}

// SpeechConfig holds the text-to-speech settings.
type SpeechConfig struct {
	// Command is the TTS executable, e.g. "say", "espeak" or "piper".
	Command string `yaml:"command"`
	// Args are extra arguments placed before the spoken text.
	Args []string `yaml:"args"`
	// SafetyTimeout caps the speaking stage even if the engine never
	// reports completion.
	SafetyTimeout time.Duration `yaml:"safety_timeout"`
}

// PodcastConfig holds the podcast feed and player settings.
type PodcastConfig struct {
	// FeedURL is the RSS feed whose newest episode is played.
	FeedURL string `yaml:"feed_url"`
	// PlayerCommand is the audio player executable, e.g. "mpv" or "ffplay".
	PlayerCommand string `yaml:"player_command"`
	// PlayerArgs are extra arguments placed before the episode URL.
	PlayerArgs []string `yaml:"player_args"`
}

// PrewarmConfig holds the periodic pre-warm task settings.
type PrewarmConfig struct {
	// Interval is the cadence between pre-warm runs.
	Interval time.Duration `yaml:"interval"`
	// PrepareWindow is how close a trigger must be before the audio
	// route is prepared.
	PrepareWindow time.Duration `yaml:"prepare_window"`
	// EscalateWindow is how close a trigger must be before the output
	// is force re-enabled.
	EscalateWindow time.Duration `yaml:"escalate_window"`
	// MaxBackoff caps the stretched cadence after repeated failures.
	MaxBackoff time.Duration `yaml:"max_backoff"`
}

// AudioConfig holds the shared audio output settings.
type AudioConfig struct {
	// SettleDelay is the pause between tearing one session down and
	// configuring the next.
	SettleDelay time.Duration `yaml:"settle_delay"`
	// SampleRate is the output sample rate in Hz.
	SampleRate int `yaml:"sample_rate"`
}

// DispatchConfig holds wake-signal handling settings.
type DispatchConfig struct {
	// DedupWindow is how long wake signals for the same trigger are
	// treated as duplicates of one firing.
	DedupWindow time.Duration `yaml:"dedup_window"`
}

const (
	// DefaultConfigFilename is the default filename for daemon settings.
	DefaultConfigFilename = "wakeup-call-settings.yaml"

	// DefaultStateFilename is the default filename for alarm state JSON.
	DefaultStateFilename = "wakeup-call-state.json"

	// DefaultListenAddress is the default control API address.
	DefaultListenAddress = "127.0.0.1:8484"

	// DefaultTimeout is the default duration for control API calls.
	DefaultTimeout = 5 * time.Second

	// DefaultCalendarTimeout is the default duration for a calendar fetch.
	DefaultCalendarTimeout = 5 * time.Second

	// DefaultSpeechSafetyTimeout caps the speaking stage of the routine.
	DefaultSpeechSafetyTimeout = 30 * time.Second

	// DefaultPrewarmInterval is the default cadence of the pre-warm task.
	DefaultPrewarmInterval = time.Minute

	// DefaultPrepareWindow is the default distance at which the audio
	// route is prepared ahead of a trigger.
	DefaultPrepareWindow = time.Minute

	// DefaultEscalateWindow is the default distance at which the output
	// is force re-enabled ahead of a trigger.
	DefaultEscalateWindow = 10 * time.Second

	// DefaultPrewarmMaxBackoff caps the pre-warm cadence after failures.
	DefaultPrewarmMaxBackoff = 10 * time.Minute

	// DefaultSettleDelay is the default pause between audio sessions.
	DefaultSettleDelay = 300 * time.Millisecond

	// DefaultSampleRate is the default output sample rate in Hz.
	DefaultSampleRate = 44100

	// DefaultDedupWindow is the default wake-signal de-duplication window.
	DefaultDedupWindow = 90 * time.Second

	// DefaultFilePermissions is the default file permission for config files.
	DefaultFilePermissions = 0o600
)

var (
	// errConfigIsNotSet is returned when a nil configuration is provided.
	errConfigIsNotSet = errors.New("configuration is not set")
	// errListenAddressRequired is returned when the listen address is missing.
	errListenAddressRequired = errors.New("listen address must be provided")
	// errWindowsInverted is returned when the escalate window is not inside
	// the prepare window.
	errWindowsInverted = errors.New("escalate window must not exceed prepare window")
)

// Load reads configuration from the provided path and validates essential fields.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultConfigFilename
	}

	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read settings: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(contents, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Save writes settings to the provided path.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if path == "" {
		path = DefaultConfigFilename
	}

	if err := Validate(cfg); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	// Restrict permissions.
	if err := os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// Default returns a configuration with every field at its default value.
func Default() *Config {
	cfg := new(Config)
	cfg.ListenAddress = DefaultListenAddress

	// Validate fills in the remaining defaults.
	if err := Validate(cfg); err != nil {
		panic(err)
	}

	return cfg
}

// Validate checks the provided settings for required fields and formatting,
// filling in defaults for everything left unset.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if cfg.ListenAddress == "" {
		return errListenAddressRequired
	}

	if _, err := net.ResolveTCPAddr("tcp", cfg.ListenAddress); err != nil {
		return fmt.Errorf("invalid listen address: %w", err)
	}

	if cfg.StateFile == "" {
		cfg.StateFile = DefaultStateFilename
	}

	if cfg.Calendar.Timeout <= 0 {
		cfg.Calendar.Timeout = DefaultCalendarTimeout
	}

	if cfg.Speech.SafetyTimeout <= 0 {
		cfg.Speech.SafetyTimeout = DefaultSpeechSafetyTimeout
	}

	if cfg.Prewarm.Interval <= 0 {
		cfg.Prewarm.Interval = DefaultPrewarmInterval
	}

	if cfg.Prewarm.PrepareWindow <= 0 {
		cfg.Prewarm.PrepareWindow = DefaultPrepareWindow
	}

	if cfg.Prewarm.EscalateWindow <= 0 {
		cfg.Prewarm.EscalateWindow = DefaultEscalateWindow
	}

	if cfg.Prewarm.MaxBackoff <= 0 {
		cfg.Prewarm.MaxBackoff = DefaultPrewarmMaxBackoff
	}

	if cfg.Prewarm.EscalateWindow > cfg.Prewarm.PrepareWindow {
		return errWindowsInverted
	}

	if cfg.Audio.SettleDelay <= 0 {
		cfg.Audio.SettleDelay = DefaultSettleDelay
	}

	if cfg.Audio.SampleRate <= 0 {
		cfg.Audio.SampleRate = DefaultSampleRate
	}

	if cfg.Dispatch.DedupWindow <= 0 {
		cfg.Dispatch.DedupWindow = DefaultDedupWindow
	}

	if cfg.Calendar.ICSURL != "" {
		if _, err := url.ParseRequestURI(cfg.Calendar.ICSURL); err != nil {
			return fmt.Errorf("invalid calendar URL: %w", err)
		}
	}

	if cfg.Podcast.FeedURL != "" {
		if _, err := url.ParseRequestURI(cfg.Podcast.FeedURL); err != nil {
			return fmt.Errorf("invalid podcast feed URL: %w", err)
		}
	}

	return nil
}
