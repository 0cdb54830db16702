package task

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	tterrors "github.com/vnykmshr/ticktask/pkg/common/errors"
	"github.com/vnykmshr/ticktask/pkg/logx"
	"github.com/vnykmshr/ticktask/pkg/scheduling/recurrence"
	"github.com/vnykmshr/ticktask/pkg/scheduling/timer"
)

// Action is the unit of work a task runs. It receives the task's current
// arguments verbatim.
type Action func(args ...any)

// Mode is the scheduling mode a task is armed in.
type Mode int

const (
	ModeUnarmed Mode = iota
	ModeInterval
	ModeRecurrence
)

func (m Mode) String() string {
	switch m {
	case ModeInterval:
		return "interval"
	case ModeRecurrence:
		return "recurrence"
	default:
		return "unarmed"
	}
}

// Config holds task configuration.
type Config struct {
	TaskID        string              // Label for log lines and events
	EnableLogging bool                // Gates all diagnostic output
	Logger        logx.Logger         // Sink for diagnostics (default: console at info)
	Timers        timer.Facility      // Interval mode driver (default: timer.System())
	Recurrence    recurrence.Facility // Recurrence mode driver (default: recurrence.Default())
	Observers     []Observer          // Notified synchronously of lifecycle and firing events
	StartPaused   bool                // Arm calls leave the task paused instead of clearing it
}

// ScheduledTask runs an action either after an initial delay and then at a
// fixed interval, or at every occurrence of a recurrence expression.
//
// A task is created unarmed. Exactly one of ArmInterval or ArmRecurrence arms
// it; Stop returns it to unarmed so it can be armed again. The action is never
// invoked while the task is paused, but its timers keep running.
type ScheduledTask struct {
	action    Action
	id        string
	logging   bool
	log       logx.Logger
	timers    timer.Facility
	rec       recurrence.Facility
	observers []Observer
	armPaused bool

	paused atomic.Bool

	mu        sync.Mutex
	mode      Mode
	args      []any
	period    time.Duration
	expr      string
	pending   timer.Handle // first execution, until it fires
	ticker    timer.Handle
	recHandle recurrence.Handle
	gen       uint64 // bumped on every arm and stop
	handleGen uint64 // bumped whenever the repeating driver is replaced
}

// New creates an unarmed task. No scheduling begins until an arm call.
func New(action Action, cfg Config) (*ScheduledTask, error) {
	if action == nil {
		return nil, tterrors.NewValidationError("task", "action", nil, "cannot be nil").
			WithHint("provide the function to schedule")
	}

	timers := cfg.Timers
	if timers == nil {
		timers = timer.System()
	}

	log := cfg.Logger
	if cfg.EnableLogging && log.IsZero() {
		log = logx.NewConsole("info")
	}
	if cfg.TaskID != "" {
		log = log.With(logx.String("task_id", cfg.TaskID))
	}

	return &ScheduledTask{
		action:    action,
		id:        cfg.TaskID,
		logging:   cfg.EnableLogging,
		log:       log,
		timers:    timers,
		rec:       cfg.Recurrence,
		observers: append([]Observer(nil), cfg.Observers...),
		armPaused: cfg.StartPaused,
	}, nil
}

// TaskID returns the configured label, possibly empty.
func (t *ScheduledTask) TaskID() string { return t.id }

// Mode returns the current scheduling mode.
func (t *ScheduledTask) Mode() Mode {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.mode
}

// Paused reports whether firings are currently suppressed.
func (t *ScheduledTask) Paused() bool { return t.paused.Load() }

// Args returns a copy of the current call arguments.
func (t *ScheduledTask) Args() []any {
	t.mu.Lock()
	defer t.mu.Unlock()
	return cloneArgs(t.args)
}

// Interval returns the current period in interval mode, zero otherwise.
func (t *ScheduledTask) Interval() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.mode != ModeInterval {
		return 0
	}
	return t.period
}

// Expression returns the current recurrence expression in recurrence mode,
// empty otherwise.
func (t *ScheduledTask) Expression() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.mode != ModeRecurrence {
		return ""
	}
	return t.expr
}

// NextRun returns the next occurrence in recurrence mode. The second result
// is false in any other mode.
func (t *ScheduledTask) NextRun() (time.Time, bool) {
	t.mu.Lock()
	h := t.recHandle
	t.mu.Unlock()
	if h == nil {
		return time.Time{}, false
	}
	next := h.Next()
	return next, !next.IsZero()
}

// fire runs the action for a driver created under arming gen and handle hg.
// Callbacks from a driver that has since been replaced or stopped are dropped.
func (t *ScheduledTask) fire(gen, hg uint64, what string) {
	t.mu.Lock()
	if gen != t.gen || hg != t.handleGen {
		t.mu.Unlock()
		return
	}
	mode := t.mode
	args := cloneArgs(t.args)
	t.mu.Unlock()

	if t.paused.Load() {
		t.logf("Skipping %s execution while paused.", what)
		t.emit(Event{Kind: EventSuppressed, Mode: mode, Args: args, RunID: t.runID()})
		return
	}

	t.logf("Executing task %s, arguments: %s", what, formatArgs(args))
	runID := t.runID()
	start := time.Now()
	t.action(args...)
	t.emit(Event{Kind: EventFired, Mode: mode, Args: args, RunID: runID, Duration: time.Since(start)})
}

func (t *ScheduledTask) runID() string {
	if len(t.observers) == 0 {
		return ""
	}
	return uuid.NewString()
}

func (t *ScheduledTask) logf(format string, a ...any) {
	if t.logging {
		t.log.Info(t.prefixed(format, a...))
	}
}

func (t *ScheduledTask) warnf(format string, a ...any) {
	if t.logging {
		t.log.Warn(t.prefixed(format, a...))
	}
}

func (t *ScheduledTask) prefixed(format string, a ...any) string {
	msg := fmt.Sprintf(format, a...)
	if t.id == "" {
		return msg
	}
	return "[Task: " + t.id + "] " + msg
}

// armedPaused reports an arm that left the task paused.
func (t *ScheduledTask) armedPaused(mode Mode) {
	if !t.armPaused {
		return
	}
	t.logf("Task has been paused.")
	t.emit(Event{Kind: EventPaused, Mode: mode})
}

func cloneArgs(args []any) []any {
	if len(args) == 0 {
		return nil
	}
	return append([]any(nil), args...)
}

func formatArgs(args []any) string {
	return fmt.Sprint(args)
}
