package speech

import "context"

// Callbacks observes a single utterance. Engines report exactly one of
// OnDone, OnStopped or OnError per utterance, after at most one OnStart.
// Nil callbacks are skipped.
type Callbacks struct {
	// OnStart fires once playback of the utterance begins.
	OnStart func()
	// OnDone fires when the utterance finishes on its own.
	OnDone func()
	// OnStopped fires when the utterance is cancelled from outside.
	OnStopped func()
	// OnError fires when the utterance fails to start or finish.
	OnError func(error)
}

// Engine speaks text aloud. Speak returns immediately; progress arrives
// through the callbacks on an engine-owned goroutine.
type Engine interface {
	Speak(ctx context.Context, text string, cb Callbacks)
}

func (c Callbacks) start() {
	if c.OnStart != nil {
		c.OnStart()
	}
}

func (c Callbacks) done() {
	if c.OnDone != nil {
		c.OnDone()
	}
}

func (c Callbacks) stopped() {
	if c.OnStopped != nil {
		c.OnStopped()
	}
}

func (c Callbacks) fail(err error) {
	if c.OnError != nil {
		c.OnError(err)
	}
}
