package task

import (
	"time"

	"github.com/vnykmshr/ticktask/pkg/common/validation"
)

// ArmInterval runs the action once after initialDelay and then every period,
// always with the arguments current at the time of each firing.
//
// It is a no-op if the task is already armed in either mode. A negative
// initialDelay or a non-positive period fails with ErrInvalidDuration.
func (t *ScheduledTask) ArmInterval(initialDelay, period time.Duration, args ...any) error {
	t.mu.Lock()
	if t.mode != ModeUnarmed {
		mode := t.mode
		t.mu.Unlock()
		t.logf("Already scheduled in %s mode; ignoring interval schedule.", mode)
		return nil
	}
	if err := validation.ValidateNonNegativeDuration("task", "initial delay", initialDelay); err != nil {
		t.mu.Unlock()
		return err
	}
	if err := validation.ValidatePositiveDuration("task", "period", period); err != nil {
		t.mu.Unlock()
		return err
	}

	t.gen++
	gen := t.gen
	t.mode = ModeInterval
	t.args = cloneArgs(args)
	t.period = period
	t.paused.Store(t.armPaused)
	argsNow := cloneArgs(t.args)
	t.mu.Unlock()

	t.logf("Scheduling task with delay of %s and interval of %s.", initialDelay, period)
	t.logf("Arguments passed: %s", formatArgs(argsNow))
	t.emit(Event{Kind: EventArmed, Mode: ModeInterval, Args: argsNow, Interval: period})
	t.armedPaused(ModeInterval)

	// A zero delay may run firstRun before AfterFunc returns.
	h := t.timers.AfterFunc(initialDelay, func() { t.firstRun(gen) })
	t.mu.Lock()
	switch {
	case gen != t.gen:
		t.mu.Unlock()
		h.Stop()
		return nil
	case t.ticker == nil:
		t.pending = h
	}
	t.mu.Unlock()
	return nil
}

// firstRun is the one-shot callback of ArmInterval. It starts the repeating
// timer with the period current at this moment, then runs the first execution.
func (t *ScheduledTask) firstRun(gen uint64) {
	t.mu.Lock()
	if gen != t.gen || t.mode != ModeInterval {
		t.mu.Unlock()
		return
	}
	t.pending = nil
	t.handleGen++
	hg := t.handleGen
	t.ticker = t.timers.Every(t.period, func() { t.fire(gen, hg, "with interval") })
	t.mu.Unlock()

	t.fire(gen, hg, "for the first time")
}

// SetNewInterval replaces the repeating timer with one at period.
//
// It only applies in interval mode and is a no-op otherwise. The first
// execution is never re-run; if it is still pending it fires after the
// original delay and the repetition it starts uses period.
func (t *ScheduledTask) SetNewInterval(period time.Duration) error {
	t.mu.Lock()
	if t.mode != ModeInterval {
		t.mu.Unlock()
		return nil
	}
	if err := validation.ValidatePositiveDuration("task", "period", period); err != nil {
		t.mu.Unlock()
		return err
	}

	t.period = period
	if t.ticker != nil {
		t.ticker.Stop()
		t.handleGen++
		gen, hg := t.gen, t.handleGen
		t.ticker = t.timers.Every(period, func() { t.fire(gen, hg, "with updated interval") })
	}
	args := cloneArgs(t.args)
	t.mu.Unlock()

	t.logf("Changing interval to %s.", period)
	t.emit(Event{Kind: EventReconfigured, Mode: ModeInterval, Args: args, Change: "interval", Interval: period})
	return nil
}
