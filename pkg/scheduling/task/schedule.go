package task

import (
	"github.com/vnykmshr/ticktask/pkg/scheduling/recurrence"
)

func (t *ScheduledTask) recurrence() recurrence.Facility {
	if t.rec == nil {
		t.rec = recurrence.Default()
	}
	return t.rec
}

// ArmRecurrence runs the action at every occurrence of expression, always
// with the arguments current at the time of each occurrence.
//
// It is a no-op if the task is already armed in either mode. An expression
// the recurrence facility rejects fails with ErrInvalidScheduleExpression and
// leaves the task unarmed.
func (t *ScheduledTask) ArmRecurrence(expression string, args ...any) error {
	t.mu.Lock()
	if t.mode != ModeUnarmed {
		mode := t.mode
		t.mu.Unlock()
		t.logf("Already scheduled in %s mode; ignoring cron schedule.", mode)
		return nil
	}

	gen, hg := t.gen+1, t.handleGen+1
	h, err := t.recurrence().Register(expression, func() { t.fire(gen, hg, "with cron schedule") })
	if err != nil {
		t.mu.Unlock()
		t.warnf("Rejected cron expression %q: %v", expression, err)
		return err
	}

	t.gen, t.handleGen = gen, hg
	t.mode = ModeRecurrence
	t.args = cloneArgs(args)
	t.expr = expression
	t.recHandle = h
	t.paused.Store(t.armPaused)
	argsNow := cloneArgs(t.args)
	t.mu.Unlock()

	t.logf("Scheduling task with cron expression: %s.", expression)
	t.logf("Arguments passed: %s", formatArgs(argsNow))
	t.emit(Event{Kind: EventArmed, Mode: ModeRecurrence, Args: argsNow, Expression: expression})
	t.armedPaused(ModeRecurrence)
	return nil
}

// SetNewSchedule moves the task to a new recurrence expression.
//
// It only applies in recurrence mode and is a no-op otherwise. The new
// expression is validated before the current registration is cancelled, so a
// rejected expression leaves the task running on its old schedule.
func (t *ScheduledTask) SetNewSchedule(expression string) error {
	t.mu.Lock()
	if t.mode != ModeRecurrence || t.recHandle == nil {
		t.mu.Unlock()
		return nil
	}
	rec := t.recurrence()
	if err := rec.Validate(expression); err != nil {
		old := t.expr
		t.mu.Unlock()
		t.warnf("Rejected cron expression %q; keeping %q: %v", expression, old, err)
		return err
	}

	t.recHandle.Cancel()
	gen, hg := t.gen, t.handleGen+1
	h, err := rec.Register(expression, func() { t.fire(gen, hg, "with new cron schedule") })
	if err != nil {
		// Validation passed but registration did not; put the old schedule back.
		old := t.expr
		ohg := t.handleGen + 2
		oh, oerr := rec.Register(old, func() { t.fire(gen, ohg, "with cron schedule") })
		if oerr != nil {
			t.recHandle = nil
			t.mode = ModeUnarmed
			t.gen++
			t.mu.Unlock()
			t.warnf("Failed to register %q and to restore %q; task stopped: %v", expression, old, err)
			t.emit(Event{Kind: EventStopped, Mode: ModeRecurrence})
			return err
		}
		t.handleGen = ohg
		t.recHandle = oh
		t.mu.Unlock()
		t.warnf("Failed to register %q; restored %q: %v", expression, old, err)
		return err
	}

	t.handleGen = hg
	t.recHandle = h
	t.expr = expression
	args := cloneArgs(t.args)
	t.mu.Unlock()

	t.logf("Changing cron schedule to: %s.", expression)
	t.emit(Event{Kind: EventReconfigured, Mode: ModeRecurrence, Args: args, Change: "schedule", Expression: expression})
	return nil
}
