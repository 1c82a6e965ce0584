package speech

import (
	"context"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func skipWithoutPOSIXTools(t *testing.T) {
	t.Helper()

	if runtime.GOOS == "windows" {
		t.Skip("relies on POSIX shell tools")
	}
}

func waitSignal(t *testing.T, ch <-chan struct{}, what string) {
	t.Helper()

	select {
	case <-ch:
	case <-time.After(10 * time.Second):
		t.Fatalf("timed out waiting for %s", what)
	}
}

func TestExecEngine_ReportsDone(t *testing.T) {
	skipWithoutPOSIXTools(t)
	t.Parallel()

	var (
		started = make(chan struct{})
		done    = make(chan struct{})
	)

	engine := NewExecEngine("true")
	engine.Speak(context.Background(), "good morning", Callbacks{
		OnStart:   func() { close(started) },
		OnDone:    func() { close(done) },
		OnStopped: func() { t.Error("unexpected stop") },
		OnError:   func(err error) { t.Errorf("unexpected error: %v", err) },
	})

	waitSignal(t, started, "utterance start")
	waitSignal(t, done, "utterance completion")
}

func TestExecEngine_ReportsError(t *testing.T) {
	skipWithoutPOSIXTools(t)
	t.Parallel()

	failed := make(chan struct{})

	engine := NewExecEngine("false")
	engine.Speak(context.Background(), "good morning", Callbacks{
		OnDone:  func() { t.Error("unexpected completion") },
		OnError: func(error) { close(failed) },
	})

	waitSignal(t, failed, "utterance failure")
}

func TestExecEngine_ReportsStoppedOnCancel(t *testing.T) {
	skipWithoutPOSIXTools(t)
	t.Parallel()

	var (
		started = make(chan struct{})
		stopped = make(chan struct{})
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	engine := NewExecEngine("sleep", "60")
	engine.Speak(ctx, "", Callbacks{
		OnStart:   func() { close(started) },
		OnStopped: func() { close(stopped) },
		OnDone:    func() { t.Error("unexpected completion") },
	})

	waitSignal(t, started, "utterance start")
	cancel()
	waitSignal(t, stopped, "utterance stop")
}

func TestExecEngine_StartFailure(t *testing.T) {
	t.Parallel()

	failed := make(chan struct{})

	engine := NewExecEngine("/nonexistent/tts-binary")
	engine.Speak(context.Background(), "good morning", Callbacks{
		OnStart: func() { t.Error("unexpected start") },
		OnError: func(error) { close(failed) },
	})

	waitSignal(t, failed, "start failure")
}

func TestCallbacks_NilSafe(t *testing.T) {
	t.Parallel()

	var cb Callbacks

	require.NotPanics(t, func() {
		cb.start()
		cb.done()
		cb.stopped()
		cb.fail(nil)
	})
}

func TestDefaultEngine(t *testing.T) {
	t.Parallel()

	engine := DefaultEngine()
	require.NotNil(t, engine)
	require.NotEmpty(t, engine.command)
}
