package task

import "time"

// EventKind identifies what happened to a task.
type EventKind string

const (
	EventArmed        EventKind = "armed"
	EventFired        EventKind = "fired"
	EventSuppressed   EventKind = "suppressed"
	EventReconfigured EventKind = "reconfigured"
	EventArgsUpdated  EventKind = "args_updated"
	EventPaused       EventKind = "paused"
	EventResumed      EventKind = "resumed"
	EventStopped      EventKind = "stopped"
)

// Event describes a lifecycle change or a firing of a task.
type Event struct {
	TaskID string
	Kind   EventKind
	Mode   Mode // Mode the task was in when the event happened
	Args   []any
	At     time.Time

	// RunID identifies a single firing (fired and suppressed events only).
	RunID string

	// Duration is the action's execution time (fired events only).
	Duration time.Duration

	// Change is "interval" or "schedule" for reconfigured events.
	Change string

	// Interval and Expression carry the schedule in effect after the event.
	Interval   time.Duration
	Expression string
}

// Observer receives task events. Observe is called synchronously on the
// goroutine that caused the event, never while the task is locked.
type Observer interface {
	Observe(Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Event)

func (f ObserverFunc) Observe(ev Event) { f(ev) }

func (t *ScheduledTask) emit(ev Event) {
	if len(t.observers) == 0 {
		return
	}
	ev.TaskID = t.id
	if ev.At.IsZero() {
		ev.At = time.Now()
	}
	for _, o := range t.observers {
		o.Observe(ev)
	}
}
