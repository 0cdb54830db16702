package recurrence

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	tterrors "github.com/vnykmshr/ticktask/pkg/common/errors"
	"github.com/vnykmshr/ticktask/pkg/common/validation"
	"github.com/vnykmshr/ticktask/pkg/logx"
)

// Handle cancels a registration. Cancel is idempotent.
type Handle interface {
	Cancel()

	// Next returns the next occurrence after now, or the zero time once cancelled.
	Next() time.Time
}

// Facility parses recurrence expressions and fires callbacks at each occurrence.
type Facility interface {
	// Validate reports whether expr can be registered.
	Validate(expr string) error

	// Register arranges for f to run at every occurrence of expr. f never
	// runs before Register returns, and Cancel never calls it.
	Register(expr string, f func()) (Handle, error)
}

// Config holds cron facility configuration.
type Config struct {
	Location    *time.Location // For evaluating expressions (default: time.Local)
	WithSeconds bool           // Require a leading seconds field instead of allowing it
	Logger      logx.Logger
}

// Cron is a Facility running on a single robfig/cron scheduler.
type Cron struct {
	parser   cron.Parser
	c        *cron.Cron
	location *time.Location
	log      logx.Logger
}

// DefaultParser accepts 5-field expressions, an optional leading seconds
// field, and descriptors such as @daily or @every 5m.
func DefaultParser() cron.Parser {
	return cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
}

// ParseExpression validates expr with the default parser.
func ParseExpression(expr string) (cron.Schedule, error) {
	return parse(DefaultParser(), expr)
}

func parse(p cron.Parser, expr string) (cron.Schedule, error) {
	if err := validation.ValidateNotEmpty("recurrence", "expression", expr); err != nil {
		return nil, fmt.Errorf("%w: %v", tterrors.ErrInvalidScheduleExpression, err)
	}
	sched, err := p.Parse(expr)
	if err != nil {
		return nil, fmt.Errorf("%w %q: %v", tterrors.ErrInvalidScheduleExpression, expr, err)
	}
	return sched, nil
}

// NewCron creates and starts a cron facility.
func NewCron(cfg Config) *Cron {
	location := cfg.Location
	if location == nil {
		location = time.Local
	}

	parser := DefaultParser()
	if cfg.WithSeconds {
		parser = cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	}

	log := cfg.Logger
	if log.IsZero() {
		log = logx.Nop()
	}

	c := cron.New(
		cron.WithParser(parser),
		cron.WithLocation(location),
		cron.WithLogger(logx.CronLogger(log)),
	)
	c.Start()

	return &Cron{
		parser:   parser,
		c:        c,
		location: location,
		log:      log,
	}
}

var (
	defaultOnce sync.Once
	defaultCron *Cron
)

// Default returns a process-wide cron facility in the local time zone,
// creating it on first use.
func Default() *Cron {
	defaultOnce.Do(func() {
		defaultCron = NewCron(Config{})
	})
	return defaultCron
}

// Location returns the time zone expressions are evaluated in.
func (c *Cron) Location() *time.Location { return c.location }

func (c *Cron) Validate(expr string) error {
	_, err := parse(c.parser, expr)
	return err
}

func (c *Cron) Register(expr string, f func()) (Handle, error) {
	sched, err := parse(c.parser, expr)
	if err != nil {
		return nil, err
	}
	id := c.c.Schedule(sched, cron.FuncJob(f))
	c.log.Debug("recurrence registered", logx.String("expr", expr), logx.Int("entry", int(id)))
	return &entryHandle{owner: c, id: id, sched: sched}, nil
}

// Stop halts the scheduler. The returned context is done once running jobs finish.
func (c *Cron) Stop() context.Context {
	return c.c.Stop()
}

// Len returns the number of live registrations.
func (c *Cron) Len() int {
	return len(c.c.Entries())
}

type entryHandle struct {
	owner *Cron
	id    cron.EntryID
	sched cron.Schedule

	mu        sync.Mutex
	cancelled bool
}

func (h *entryHandle) Cancel() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.cancelled {
		return
	}
	h.cancelled = true
	h.owner.c.Remove(h.id)
}

func (h *entryHandle) Next() time.Time {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.cancelled {
		return time.Time{}
	}
	return h.sched.Next(time.Now().In(h.owner.location))
}
