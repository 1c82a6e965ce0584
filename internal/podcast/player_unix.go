//go:build !windows

package podcast

import "syscall"

// Pause implements Player by stopping the player process in place.
func (p *ExecPlayer) Pause() error {
	return p.signalActive(syscall.SIGSTOP)
}

// Resume implements Player by continuing a stopped player process.
func (p *ExecPlayer) Resume() error {
	return p.signalActive(syscall.SIGCONT)
}
