// Package runner keeps a set of scheduled tasks in line with a task file.
package runner

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/vnykmshr/ticktask/internal/config"
	tterrors "github.com/vnykmshr/ticktask/pkg/common/errors"
	"github.com/vnykmshr/ticktask/pkg/logx"
	"github.com/vnykmshr/ticktask/pkg/scheduling/recurrence"
	"github.com/vnykmshr/ticktask/pkg/scheduling/task"
	"github.com/vnykmshr/ticktask/pkg/scheduling/timer"
)

// Options holds runner configuration.
type Options struct {
	Logger    logx.Logger
	Observers []task.Observer

	// Timers drives interval tasks (default: timer.System()).
	Timers timer.Facility

	// Recurrence drives cron tasks. When nil the runner owns a cron
	// facility in the task file's location and replaces it when the
	// location changes.
	Recurrence recurrence.Facility

	// Actions adds or overrides action factories by name.
	Actions map[string]ActionFactory

	// ExecTimeout bounds each run of an exec action (default: 1m).
	ExecTimeout time.Duration
}

// Status is a snapshot of one managed task.
type Status struct {
	ID         string
	Action     string
	Mode       task.Mode
	Paused     bool
	Interval   time.Duration
	Expression string
	NextRun    time.Time
	Args       []any
}

type entry struct {
	def  config.TaskDef
	task *task.ScheduledTask
}

// Runner owns the tasks declared by the most recently applied task file.
type Runner struct {
	log       logx.Logger
	observers []task.Observer
	timers    timer.Facility
	actions   map[string]ActionFactory

	mu       sync.Mutex
	rec      recurrence.Facility
	ownCron  *recurrence.Cron
	location string
	tasks    map[string]*entry
	order    []string
	closed   bool
}

// New creates a runner with no tasks.
func New(opts Options) *Runner {
	log := opts.Logger
	if log.IsZero() {
		log = logx.Nop()
	}
	timers := opts.Timers
	if timers == nil {
		timers = timer.System()
	}

	actions := builtinActions(opts.ExecTimeout)
	for name, f := range opts.Actions {
		actions[name] = f
	}

	r := &Runner{
		log:       log,
		observers: append([]task.Observer(nil), opts.Observers...),
		timers:    timers,
		actions:   actions,
		rec:       opts.Recurrence,
		tasks:     make(map[string]*entry),
	}
	if r.rec == nil {
		r.ownCron = recurrence.NewCron(recurrence.Config{Logger: log})
		r.rec = r.ownCron
	}
	return r
}

// Apply reconciles the running tasks with f. An invalid file is rejected as
// a whole and nothing changes. Otherwise every change is attempted and the
// failures are returned joined; tasks that failed keep their previous state.
//
// Interval, cron, argument and pause changes are applied to the running
// task in place. Changes of mode, action, initial delay or logging stop the
// task and arm a new one.
func (r *Runner) Apply(f *config.File) error {
	if f == nil {
		f = &config.File{}
	}
	if err := f.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return tterrors.ErrClosed
	}

	changes := config.Diff(r.currentLocked(), f)
	if changes.Empty() {
		return nil
	}
	var errs []error

	for _, id := range changes.Removed {
		r.removeLocked(id)
		r.log.Info("task removed", logx.String("task_id", id))
	}

	rebuild := map[string]bool{}
	if changes.LocationChanged {
		if r.ownCron != nil {
			if err := r.relocateLocked(f); err != nil {
				errs = append(errs, err)
			} else {
				for id, e := range r.tasks {
					if e.def.Mode() == task.ModeRecurrence {
						rebuild[id] = true
					}
				}
			}
		} else {
			r.log.Warn("location change ignored; recurrence facility is external",
				logx.String("location", f.Location))
			r.location = f.Location
		}
	}

	for _, u := range changes.Updated {
		if u.NeedsRearm() || rebuild[u.New.ID] {
			delete(rebuild, u.New.ID)
			errs = append(errs, r.replaceLocked(u.New))
			continue
		}
		errs = append(errs, r.updateLocked(u))
	}

	for id := range rebuild {
		errs = append(errs, r.replaceLocked(r.tasks[id].def))
	}

	for _, def := range changes.Added {
		errs = append(errs, r.addLocked(def))
	}

	r.sortLocked(f)
	return errors.Join(errs...)
}

// Tasks returns a snapshot of every managed task ordered as in the task file.
func (r *Runner) Tasks() []Status {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Status, 0, len(r.order))
	for _, id := range r.order {
		e := r.tasks[id]
		st := Status{
			ID:         id,
			Action:     e.def.Action,
			Mode:       e.task.Mode(),
			Paused:     e.task.Paused(),
			Interval:   e.task.Interval(),
			Expression: e.task.Expression(),
			Args:       e.task.Args(),
		}
		if next, ok := e.task.NextRun(); ok {
			st.NextRun = next
		}
		out = append(out, st)
	}
	return out
}

// Close stops every task and the owned cron facility, waiting for running
// cron jobs to return. Close is idempotent.
func (r *Runner) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	for id := range r.tasks {
		r.removeLocked(id)
	}
	r.order = nil
	own := r.ownCron
	r.mu.Unlock()

	if own != nil {
		<-own.Stop().Done()
	}
	r.log.Info("runner closed")
}

func (r *Runner) currentLocked() *config.File {
	f := &config.File{Location: r.location}
	for _, id := range r.order {
		f.Tasks = append(f.Tasks, r.tasks[id].def)
	}
	return f
}

func (r *Runner) relocateLocked(f *config.File) error {
	loc, err := f.TimeLocation()
	if err != nil {
		return err
	}
	old := r.ownCron
	r.ownCron = recurrence.NewCron(recurrence.Config{Location: loc, Logger: r.log})
	r.rec = r.ownCron
	r.location = f.Location
	// Handles registered on the old cron are cancelled by the rebuild.
	go func() { <-old.Stop().Done() }()
	r.log.Info("recurrence location changed", logx.String("location", loc.String()))
	return nil
}

func (r *Runner) addLocked(def config.TaskDef) error {
	st, err := r.start(def)
	if err != nil {
		return err
	}
	r.tasks[def.ID] = &entry{def: def, task: st}
	r.order = append(r.order, def.ID)
	r.log.Info("task added",
		logx.String("task_id", def.ID),
		logx.String("mode", def.Mode().String()),
		logx.String("action", def.Action))
	return nil
}

func (r *Runner) replaceLocked(def config.TaskDef) error {
	old := r.tasks[def.ID]
	old.task.Stop()
	st, err := r.start(def)
	if err != nil {
		// Put the previous definition back in place.
		if prev, perr := r.start(old.def); perr == nil {
			old.task = prev
		} else {
			r.removeLocked(def.ID)
		}
		return err
	}
	r.tasks[def.ID] = &entry{def: def, task: st}
	r.log.Info("task re-armed", logx.String("task_id", def.ID))
	return nil
}

func (r *Runner) updateLocked(u config.Update) error {
	e := r.tasks[u.New.ID]
	applied := e.def

	if u.Changed(config.FieldInterval) {
		if err := e.task.SetNewInterval(u.New.Period()); err != nil {
			return fmt.Errorf("task %s: %w", u.New.ID, err)
		}
		applied.Interval = u.New.Interval
	}
	if u.Changed(config.FieldCron) {
		if err := e.task.SetNewSchedule(u.New.Cron); err != nil {
			e.def = applied
			return fmt.Errorf("task %s: %w", u.New.ID, err)
		}
		applied.Cron = u.New.Cron
	}
	if u.Changed(config.FieldArgs) {
		e.task.UpdateArgs(u.New.CallArgs()...)
		applied.Args = u.New.Args
	}
	if u.Changed(config.FieldPaused) {
		if u.New.Paused {
			e.task.Pause()
		} else {
			e.task.Resume()
		}
		applied.Paused = u.New.Paused
	}
	e.def = applied
	r.log.Info("task updated", logx.String("task_id", u.New.ID), logx.Any("fields", u.Fields))
	return nil
}

func (r *Runner) removeLocked(id string) {
	e, ok := r.tasks[id]
	if !ok {
		return
	}
	e.task.Stop()
	delete(r.tasks, id)
	for i, o := range r.order {
		if o == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
}

// sortLocked orders tasks as they appear in f.
func (r *Runner) sortLocked(f *config.File) {
	pos := make(map[string]int, len(f.Tasks))
	for i, d := range f.Tasks {
		pos[d.ID] = i
	}
	sort.SliceStable(r.order, func(i, j int) bool { return pos[r.order[i]] < pos[r.order[j]] })
}

func (r *Runner) start(def config.TaskDef) (*task.ScheduledTask, error) {
	factory, ok := r.actions[def.Action]
	if !ok {
		return nil, tterrors.NewValidationError("runner", "action", def.Action, "no such action")
	}

	st, err := task.New(factory(def, r.log), task.Config{
		TaskID:        def.ID,
		EnableLogging: def.Logging,
		Logger:        r.log,
		Timers:        r.timers,
		Recurrence:    r.rec,
		Observers:     r.observers,
		StartPaused:   def.Paused,
	})
	if err != nil {
		return nil, err
	}

	switch def.Mode() {
	case task.ModeRecurrence:
		err = st.ArmRecurrence(def.Cron, def.CallArgs()...)
	default:
		err = st.ArmInterval(def.Delay(), def.Period(), def.CallArgs()...)
	}
	if err != nil {
		return nil, fmt.Errorf("task %s: %w", def.ID, err)
	}
	return st, nil
}
