package benchmark

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/vnykmshr/ticktask/internal/testutil"
	"github.com/vnykmshr/ticktask/pkg/metrics"
	"github.com/vnykmshr/ticktask/pkg/scheduling/task"
)

func noop(...any) {}

func newTask(b *testing.B, cfg task.Config) (*task.ScheduledTask, *testutil.FakeTimers) {
	b.Helper()
	timers := testutil.NewFakeTimers(time.Time{})
	cfg.Timers = timers
	if cfg.Recurrence == nil {
		cfg.Recurrence = testutil.NewFakeRecurrence()
	}
	st, err := task.New(noop, cfg)
	if err != nil {
		b.Fatalf("failed to create task: %v", err)
	}
	return st, timers
}

// BenchmarkArmStop measures a full arm/stop cycle in each mode.
func BenchmarkArmStop(b *testing.B) {
	b.Run("interval", func(b *testing.B) {
		st, _ := newTask(b, task.Config{})
		b.ReportAllocs()
		b.ResetTimer()
		for i := 0; i < b.N; i++ {
			_ = st.ArmInterval(time.Second, time.Second, i)
			st.Stop()
		}
	})

	b.Run("recurrence", func(b *testing.B) {
		st, _ := newTask(b, task.Config{})
		b.ReportAllocs()
		b.ResetTimer()
		for i := 0; i < b.N; i++ {
			_ = st.ArmRecurrence("*/5 * * * *", i)
			st.Stop()
		}
	})
}

// BenchmarkFiring measures the cost of one interval firing with a varying
// number of observers attached.
func BenchmarkFiring(b *testing.B) {
	for _, n := range []int{0, 1, 4} {
		b.Run(observerLabel(n), func(b *testing.B) {
			observers := make([]task.Observer, n)
			for i := range observers {
				observers[i] = task.ObserverFunc(func(task.Event) {})
			}
			st, timers := newTask(b, task.Config{TaskID: "bench", Observers: observers})
			_ = st.ArmInterval(0, time.Millisecond, "x")
			defer st.Stop()

			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				timers.Advance(time.Millisecond)
			}
		})
	}
}

// BenchmarkFiringWithMetrics measures firings feeding a Prometheus registry.
func BenchmarkFiringWithMetrics(b *testing.B) {
	reg := metrics.NewRegistry(prometheus.NewRegistry())
	st, timers := newTask(b, task.Config{
		TaskID:    "bench",
		Observers: []task.Observer{task.NewMetricsObserver(reg)},
	})
	_ = st.ArmInterval(0, time.Millisecond)
	defer st.Stop()

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		timers.Advance(time.Millisecond)
	}
}

// BenchmarkUpdateArgsContention measures argument swaps and pause toggles
// racing with firings.
func BenchmarkUpdateArgsContention(b *testing.B) {
	var fired atomic.Int64
	timers := testutil.NewFakeTimers(time.Time{})
	st, err := task.New(func(...any) { fired.Add(1) }, task.Config{Timers: timers})
	if err != nil {
		b.Fatalf("failed to create task: %v", err)
	}
	_ = st.ArmInterval(0, time.Millisecond)
	defer st.Stop()

	b.ReportAllocs()
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		i := 0
		for pb.Next() {
			switch i % 3 {
			case 0:
				st.UpdateArgs(i)
			case 1:
				st.Pause()
				st.Resume()
			default:
				timers.Advance(time.Millisecond)
			}
			i++
		}
	})
}

// BenchmarkSetNewInterval measures restarting the repeating timer.
func BenchmarkSetNewInterval(b *testing.B) {
	st, timers := newTask(b, task.Config{})
	_ = st.ArmInterval(0, time.Second)
	timers.Advance(0)
	defer st.Stop()

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = st.SetNewInterval(time.Duration(i%10+1) * time.Second)
		if i%1024 == 0 {
			timers.Advance(0) // drop stopped timers
		}
	}
}

// observerLabel returns a label for observer counts.
func observerLabel(n int) string {
	return fmt.Sprintf("%dobservers", n)
}
