package task

// Pause suppresses the action on every firing until Resume. The underlying
// timers keep running; their firings are swallowed. Pausing twice is harmless.
func (t *ScheduledTask) Pause() {
	t.paused.Store(true)
	t.logf("Task has been paused.")
	t.emit(Event{Kind: EventPaused, Mode: t.Mode()})
}

// Resume re-enables the action. It does nothing unless the task is paused.
func (t *ScheduledTask) Resume() {
	if !t.paused.CompareAndSwap(true, false) {
		return
	}
	t.logf("Task has been resumed.")
	t.emit(Event{Kind: EventResumed, Mode: t.Mode()})
}

// UpdateArgs replaces the call arguments. The next firing uses them; a
// firing already in progress keeps the arguments it started with.
func (t *ScheduledTask) UpdateArgs(args ...any) {
	t.mu.Lock()
	t.args = cloneArgs(args)
	mode := t.mode
	argsNow := cloneArgs(t.args)
	t.mu.Unlock()

	t.logf("Arguments updated to: %s", formatArgs(argsNow))
	t.emit(Event{Kind: EventArgsUpdated, Mode: mode, Args: argsNow})
}

// Stop cancels every timer or registration the task holds and returns it to
// unarmed. A firing already in progress is not interrupted. Stop on an
// unarmed task does nothing; a stopped task may be armed again.
func (t *ScheduledTask) Stop() {
	t.mu.Lock()
	mode := t.mode
	if mode == ModeUnarmed {
		t.mu.Unlock()
		return
	}
	if t.pending != nil {
		t.pending.Stop()
		t.pending = nil
	}
	if t.ticker != nil {
		t.ticker.Stop()
		t.ticker = nil
	}
	if t.recHandle != nil {
		t.recHandle.Cancel()
		t.recHandle = nil
	}
	t.mode = ModeUnarmed
	t.period = 0
	t.expr = ""
	t.gen++
	t.mu.Unlock()

	switch mode {
	case ModeInterval:
		t.logf("Interval-based scheduling has been stopped.")
	case ModeRecurrence:
		t.logf("Cron-based scheduling has been stopped.")
	}
	t.emit(Event{Kind: EventStopped, Mode: mode})
}
