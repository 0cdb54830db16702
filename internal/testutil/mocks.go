package testutil

import (
	"bytes"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/vnykmshr/ticktask/pkg/scheduling/recurrence"
	"github.com/vnykmshr/ticktask/pkg/scheduling/timer"
)

// FakeTimers implements timer.Facility on a virtual clock.
// Nothing fires until Advance is called; callbacks then run synchronously on
// the caller's goroutine in due-time order.
type FakeTimers struct {
	mu     sync.Mutex
	now    time.Time
	seq    int
	timers []*fakeTimer
	ticks  int
}

type fakeTimer struct {
	owner   *FakeTimers
	seq     int
	at      time.Time
	period  time.Duration
	fn      func()
	stopped bool
}

// NewFakeTimers creates a FakeTimers starting at the given time.
// If zero time is provided, uses current time.
func NewFakeTimers(start time.Time) *FakeTimers {
	if start.IsZero() {
		start = time.Now()
	}
	return &FakeTimers{now: start}
}

func (f *FakeTimers) AfterFunc(d time.Duration, fn func()) timer.Handle {
	return f.add(d, 0, fn)
}

func (f *FakeTimers) Every(d time.Duration, fn func()) timer.Handle {
	return f.add(d, d, fn)
}

func (f *FakeTimers) add(d, period time.Duration, fn func()) *fakeTimer {
	f.mu.Lock()
	defer f.mu.Unlock()
	if d < 0 {
		d = 0
	}
	f.seq++
	t := &fakeTimer{owner: f, seq: f.seq, at: f.now.Add(d), period: period, fn: fn}
	f.timers = append(f.timers, t)
	return t
}

func (t *fakeTimer) Stop() {
	t.owner.mu.Lock()
	defer t.owner.mu.Unlock()
	t.stopped = true
}

// Now returns the current virtual time.
func (f *FakeTimers) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

// Advance moves the virtual clock forward by d, firing every timer that
// becomes due along the way.
func (f *FakeTimers) Advance(d time.Duration) {
	f.mu.Lock()
	target := f.now.Add(d)
	f.mu.Unlock()

	for {
		f.mu.Lock()
		next := f.nextDueLocked(target)
		if next == nil {
			f.now = target
			f.mu.Unlock()
			return
		}
		f.now = next.at
		if next.period > 0 {
			next.at = next.at.Add(next.period)
			f.ticks++
		} else {
			next.stopped = true
		}
		fn := next.fn
		f.mu.Unlock()

		fn()
	}
}

func (f *FakeTimers) nextDueLocked(target time.Time) *fakeTimer {
	var best *fakeTimer
	live := f.timers[:0]
	for _, t := range f.timers {
		if t.stopped {
			continue
		}
		live = append(live, t)
		if t.at.After(target) {
			continue
		}
		if best == nil || t.at.Before(best.at) || (t.at.Equal(best.at) && t.seq < best.seq) {
			best = t
		}
	}
	f.timers = live
	return best
}

// Pending returns the number of live (unstopped) timers.
func (f *FakeTimers) Pending() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, t := range f.timers {
		if !t.stopped {
			n++
		}
	}
	return n
}

// Ticks returns how many times repeating timers have fired.
func (f *FakeTimers) Ticks() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.ticks
}

// ImmediateTimers implements timer.Facility for races around arming.
// AfterFunc with a zero delay runs its callback at once: inline when Inline
// is set, on a new goroutine otherwise. Longer delays and Every never fire.
type ImmediateTimers struct {
	Inline bool

	wg   sync.WaitGroup
	mu   sync.Mutex
	runs int
}

func (f *ImmediateTimers) AfterFunc(d time.Duration, fn func()) timer.Handle {
	if d > 0 {
		return idleHandle{}
	}
	f.mu.Lock()
	f.runs++
	f.mu.Unlock()
	if f.Inline {
		fn()
		return idleHandle{}
	}
	f.wg.Add(1)
	go func() {
		defer f.wg.Done()
		fn()
	}()
	return idleHandle{}
}

func (f *ImmediateTimers) Every(time.Duration, func()) timer.Handle {
	return idleHandle{}
}

// Wait blocks until every callback started on its own goroutine has returned.
func (f *ImmediateTimers) Wait() { f.wg.Wait() }

// Runs returns how many zero-delay callbacks were started.
func (f *ImmediateTimers) Runs() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.runs
}

type idleHandle struct{}

func (idleHandle) Stop() {}

// FakeRecurrence implements recurrence.Facility with manually fired occurrences.
// Expressions are validated with the real cron parser.
type FakeRecurrence struct {
	mu   sync.Mutex
	regs []*fakeRegistration
}

type fakeRegistration struct {
	owner     *FakeRecurrence
	expr      string
	fn        func()
	cancelled bool
}

// NewFakeRecurrence creates an empty FakeRecurrence.
func NewFakeRecurrence() *FakeRecurrence {
	return &FakeRecurrence{}
}

func (f *FakeRecurrence) Validate(expr string) error {
	_, err := recurrence.ParseExpression(expr)
	return err
}

func (f *FakeRecurrence) Register(expr string, fn func()) (recurrence.Handle, error) {
	if err := f.Validate(expr); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	r := &fakeRegistration{owner: f, expr: expr, fn: fn}
	f.regs = append(f.regs, r)
	return r, nil
}

func (r *fakeRegistration) Cancel() {
	r.owner.mu.Lock()
	defer r.owner.mu.Unlock()
	r.cancelled = true
}

func (r *fakeRegistration) Next() time.Time {
	r.owner.mu.Lock()
	cancelled := r.cancelled
	r.owner.mu.Unlock()
	if cancelled {
		return time.Time{}
	}
	sched, err := recurrence.ParseExpression(r.expr)
	if err != nil {
		return time.Time{}
	}
	return sched.Next(time.Now())
}

// Fire triggers one occurrence of every live registration and returns how
// many callbacks ran.
func (f *FakeRecurrence) Fire() int {
	f.mu.Lock()
	var fns []func()
	for _, r := range f.regs {
		if !r.cancelled {
			fns = append(fns, r.fn)
		}
	}
	f.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
	return len(fns)
}

// Live returns the sorted expressions of live registrations.
func (f *FakeRecurrence) Live() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, r := range f.regs {
		if !r.cancelled {
			out = append(out, r.expr)
		}
	}
	sort.Strings(out)
	return out
}

// CallRecorder records the arguments of every call made to Record.
// Record has the shape of a task action.
type CallRecorder struct {
	mu    sync.Mutex
	calls [][]any
}

// Record stores a copy of args.
func (r *CallRecorder) Record(args ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, append([]any(nil), args...))
}

// Count returns the number of recorded calls.
func (r *CallRecorder) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

// Calls returns all recorded argument lists.
func (r *CallRecorder) Calls() [][]any {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([][]any, len(r.calls))
	copy(out, r.calls)
	return out
}

// Last returns the most recent argument list, or nil if nothing was recorded.
func (r *CallRecorder) Last() []any {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.calls) == 0 {
		return nil
	}
	return r.calls[len(r.calls)-1]
}

// Reset clears the recorded calls.
func (r *CallRecorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = nil
}

// MockWriter is a concurrency-safe io.Writer that keeps everything written.
type MockWriter struct {
	buf bytes.Buffer
	mu  sync.Mutex
}

// NewMockWriter creates a new MockWriter.
func NewMockWriter() *MockWriter {
	return &MockWriter{}
}

func (mw *MockWriter) Write(p []byte) (int, error) {
	mw.mu.Lock()
	defer mw.mu.Unlock()
	return mw.buf.Write(p)
}

// String returns the current buffer contents.
func (mw *MockWriter) String() string {
	mw.mu.Lock()
	defer mw.mu.Unlock()
	return mw.buf.String()
}

// Lines returns the non-empty lines written so far.
func (mw *MockWriter) Lines() []string {
	var out []string
	for _, l := range strings.Split(mw.String(), "\n") {
		if strings.TrimSpace(l) != "" {
			out = append(out, l)
		}
	}
	return out
}

// Reset clears the buffer.
func (mw *MockWriter) Reset() {
	mw.mu.Lock()
	defer mw.mu.Unlock()
	mw.buf.Reset()
}
