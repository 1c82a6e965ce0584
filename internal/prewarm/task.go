package prewarm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/oshokin/wakeup-call/internal/logger"
	"github.com/oshokin/wakeup-call/internal/notify"
)

// AudioWarmer is the slice of the audio manager the pre-warm task drives.
type AudioWarmer interface {
	Prepare(ctx context.Context) error
	ForceEnable(ctx context.Context) error
}

// runTimeout bounds one task run. The host analogue kills long runners;
// here the deadline keeps a wedged audio stack from blocking the loop.
const runTimeout = 10 * time.Second

// Assessment is the outcome of one pre-warm run.
type Assessment struct {
	// RanAt is when the run happened.
	RanAt time.Time `json:"ran_at"`
	// NextFireIn is the distance to the closest trigger, 0 when none.
	NextFireIn time.Duration `json:"next_fire_in"`
	// Prepared reports whether the audio route was primed.
	Prepared bool `json:"prepared"`
	// Escalated reports whether the output was force re-enabled.
	Escalated bool `json:"escalated"`
}

// Task readies the audio stack as a trigger approaches: inside the
// prepare window the background route is primed, inside the escalate
// window the output is force re-enabled.
type Task struct {
	// facility supplies the pending registrations to assess.
	facility notify.Facility
	// warmer primes and re-enables the audio output.
	warmer AudioWarmer
	// prepareWindow is the distance at which priming starts.
	prepareWindow time.Duration
	// escalateWindow is the distance at which the output is re-enabled.
	escalateWindow time.Duration
}

// NewTask creates a pre-warm task over the facility and audio manager.
func NewTask(facility notify.Facility, warmer AudioWarmer, prepareWindow, escalateWindow time.Duration) *Task {
	return &Task{
		facility:       facility,
		warmer:         warmer,
		prepareWindow:  prepareWindow,
		escalateWindow: escalateWindow,
	}
}

// RunOnce performs one bounded assessment. It tolerates an empty or stale
// trigger set and reports failures instead of panicking; a pre-warm that
// dies this close to the alarm takes the wake-up with it.
func (t *Task) RunOnce(ctx context.Context) (assessment Assessment, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pre-warm run panicked: %v", r)
		}
	}()

	ctx, cancel := context.WithTimeout(ctx, runTimeout)
	defer cancel()

	assessment.RanAt = time.Now()

	pending, err := t.facility.Pending(ctx)
	if err != nil {
		return assessment, fmt.Errorf("list registrations: %w", err)
	}

	if len(pending) == 0 {
		return assessment, nil
	}

	var errs []error

	now := time.Now()

	for _, reg := range pending {
		until := reg.FireAt.Sub(now)
		if until <= 0 {
			// Stale registration; reconciliation owns those.
			continue
		}

		if assessment.NextFireIn == 0 || until < assessment.NextFireIn {
			assessment.NextFireIn = until
		}

		if until >= t.prepareWindow {
			continue
		}

		if !assessment.Prepared {
			if prepErr := t.warmer.Prepare(ctx); prepErr != nil {
				errs = append(errs, fmt.Errorf("prepare audio: %w", prepErr))
			} else {
				assessment.Prepared = true
			}
		}

		if until > t.escalateWindow || assessment.Escalated {
			continue
		}

		if enableErr := t.warmer.ForceEnable(ctx); enableErr != nil {
			errs = append(errs, fmt.Errorf("force enable audio: %w", enableErr))
		} else {
			assessment.Escalated = true
		}
	}

	if assessment.Prepared || assessment.Escalated {
		logger.DebugKV(ctx, "Pre-warm run completed",
			"next_fire_in", assessment.NextFireIn,
			"prepared", assessment.Prepared,
			"escalated", assessment.Escalated)
	}

	return assessment, errors.Join(errs...)
}
