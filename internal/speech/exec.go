package speech

import (
	"context"
	"fmt"
	"os/exec"
	"runtime"
	"strings"
)

// ExecEngine speaks by running a system text-to-speech command with the
// text appended as the final argument.
type ExecEngine struct {
	// command is the TTS binary.
	command string
	// args are fixed arguments placed before the text.
	args []string
}

// NewExecEngine creates an engine around the given command line.
func NewExecEngine(command string, args ...string) *ExecEngine {
	return &ExecEngine{
		command: command,
		args:    args,
	}
}

// DefaultEngine returns an engine driving the platform's stock speech
// tool: `say` on macOS, `espeak` elsewhere.
func DefaultEngine() *ExecEngine {
	if strings.Contains(strings.ToLower(runtime.GOOS), "darwin") {
		return NewExecEngine("say")
	}

	return NewExecEngine("espeak")
}

// Speak implements Engine.
func (e *ExecEngine) Speak(ctx context.Context, text string, cb Callbacks) {
	go e.speak(ctx, text, cb)
}

func (e *ExecEngine) speak(ctx context.Context, text string, cb Callbacks) {
	args := make([]string, 0, len(e.args)+1)
	args = append(args, e.args...)
	args = append(args, text)

	cmd := exec.CommandContext(ctx, e.command, args...)

	if err := cmd.Start(); err != nil {
		cb.fail(fmt.Errorf("start %s: %w", e.command, err))

		return
	}

	cb.start()

	err := cmd.Wait()

	switch {
	case ctx.Err() != nil:
		cb.stopped()
	case err != nil:
		cb.fail(fmt.Errorf("%s: %w", e.command, err))
	default:
		cb.done()
	}
}
