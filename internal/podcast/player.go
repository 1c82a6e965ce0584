package podcast

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sync"
)

// ErrUnsupportedOS indicates the current OS cannot pause playback.
var ErrUnsupportedOS = errors.New("unsupported operating system")

// ExecPlayer plays media URLs by running an external player process.
// Pause and resume use job-control signals so the player's own network
// buffers survive the pause.
type ExecPlayer struct {
	// command is the player binary.
	command string
	// args are fixed arguments placed before the URL.
	args []string

	// mu protects cmd and cancel.
	mu sync.Mutex
	// cmd is the live player process, nil when idle.
	cmd *exec.Cmd
	// cancel kills the live player process.
	cancel context.CancelFunc
}

// NewExecPlayer creates a player around the given command line.
func NewExecPlayer(command string, args ...string) *ExecPlayer {
	return &ExecPlayer{
		command: command,
		args:    args,
	}
}

// DefaultPlayer drives mpv, which handles every enclosure format the
// usual feeds serve.
func DefaultPlayer() *ExecPlayer {
	return NewExecPlayer("mpv", "--no-video", "--really-quiet")
}

// Play implements Player. Any playback already in flight is replaced.
func (p *ExecPlayer) Play(ctx context.Context, url string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.stopLocked()

	// Playback must outlive the request that started it; only an
	// explicit Stop (or process exit) ends it.
	playCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))

	args := make([]string, 0, len(p.args)+1)
	args = append(args, p.args...)
	args = append(args, url)

	cmd := exec.CommandContext(playCtx, p.command, args...)

	if err := cmd.Start(); err != nil {
		cancel()

		return fmt.Errorf("start %s: %w", p.command, err)
	}

	p.cmd = cmd
	p.cancel = cancel

	// Reap the process whenever it exits so it never lingers as a zombie.
	go func() { _ = cmd.Wait() }()

	return nil
}

// Stop implements Player. Stopping an idle player is a no-op.
func (p *ExecPlayer) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.stopLocked()

	return nil
}

func (p *ExecPlayer) stopLocked() {
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}

	p.cmd = nil
}

// signalActive sends a job-control signal to the live player process.
func (p *ExecPlayer) signalActive(sig os.Signal) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cmd == nil || p.cmd.Process == nil {
		return ErrNotPlaying
	}

	if err := p.cmd.Process.Signal(sig); err != nil {
		return fmt.Errorf("signal player: %w", err)
	}

	return nil
}
