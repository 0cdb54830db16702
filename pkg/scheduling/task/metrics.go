package task

import (
	"github.com/vnykmshr/ticktask/pkg/metrics"
)

// MetricsObserver records task events into a metrics registry.
type MetricsObserver struct {
	registry *metrics.Registry
}

// NewMetricsObserver creates an observer feeding reg. A nil reg falls back
// to metrics.Default().
func NewMetricsObserver(reg *metrics.Registry) *MetricsObserver {
	if reg == nil {
		reg = metrics.Default()
	}
	return &MetricsObserver{registry: reg}
}

func (m *MetricsObserver) Observe(ev Event) {
	mode := ev.Mode.String()
	switch ev.Kind {
	case EventArmed:
		m.registry.TasksArmed.WithLabelValues(mode).Inc()
		m.registry.TasksActive.WithLabelValues(mode).Inc()
	case EventStopped:
		m.registry.TasksActive.WithLabelValues(mode).Dec()
	case EventFired:
		m.registry.TaskFirings.WithLabelValues(ev.TaskID, mode).Inc()
		m.registry.TaskDuration.WithLabelValues(ev.TaskID).Observe(ev.Duration.Seconds())
	case EventSuppressed:
		m.registry.TaskSuppressed.WithLabelValues(ev.TaskID, mode).Inc()
	case EventReconfigured:
		m.registry.TaskReconfigurations.WithLabelValues(ev.TaskID, ev.Change).Inc()
	case EventArgsUpdated:
		m.registry.TaskReconfigurations.WithLabelValues(ev.TaskID, "args").Inc()
	}
}
