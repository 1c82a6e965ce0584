//go:build windows

package podcast

import "fmt"

// Pause implements Player. Windows has no job-control signals, so pause
// is not supported there.
func (p *ExecPlayer) Pause() error {
	return fmt.Errorf("pause: %w", ErrUnsupportedOS)
}

// Resume implements Player.
func (p *ExecPlayer) Resume() error {
	return fmt.Errorf("resume: %w", ErrUnsupportedOS)
}
