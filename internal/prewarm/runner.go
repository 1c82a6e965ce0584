package prewarm

import (
	"context"
	"sync"
	"time"

	"github.com/oshokin/wakeup-call/internal/logger"
)

// Runner invokes the task on a best-effort cadence. Consecutive failures
// stretch the delay up to a cap and one success restores it, mirroring
// how hosts demote background tasks that keep failing.
type Runner struct {
	// task is the pre-warm assessment to run.
	task *Task
	// interval is the healthy cadence.
	interval time.Duration
	// maxBackoff caps the stretched cadence.
	maxBackoff time.Duration

	// mu protects the last outcome below.
	mu sync.Mutex
	// last is the most recent assessment.
	last Assessment
	// lastErr is the most recent run error, nil after a clean run.
	lastErr error
}

// NewRunner creates a runner for the task.
func NewRunner(task *Task, interval, maxBackoff time.Duration) *Runner {
	return &Runner{
		task:       task,
		interval:   interval,
		maxBackoff: maxBackoff,
	}
}

// Run loops until the context ends. It blocks; start it on its own goroutine.
func (r *Runner) Run(ctx context.Context) {
	delay := r.interval
	failures := 0

	timer := time.NewTimer(delay)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}

		assessment, err := r.task.RunOnce(ctx)

		r.mu.Lock()
		r.last = assessment
		r.lastErr = err
		r.mu.Unlock()

		if err != nil {
			failures++
			delay = backoff(r.interval, failures, r.maxBackoff)

			logger.WarnKV(ctx, "Pre-warm run failed",
				"error", err,
				"consecutive_failures", failures,
				"next_run_in", delay)
		} else {
			failures = 0
			delay = r.interval
		}

		timer.Reset(delay)
	}
}

// LastOutcome returns the most recent assessment and run error.
func (r *Runner) LastOutcome() (Assessment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.last, r.lastErr
}

// backoff doubles the interval per consecutive failure up to the limit.
func backoff(interval time.Duration, failures int, limit time.Duration) time.Duration {
	delay := interval
	for i := 1; i < failures; i++ {
		delay *= 2
		if delay >= limit {
			return limit
		}
	}

	if delay > limit {
		return limit
	}

	return delay
}
