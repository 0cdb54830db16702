// Package metrics provides Prometheus instrumentation for scheduled tasks.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// DefaultNamespace prefixes every metric name unless Config.Namespace is set.
const DefaultNamespace = "ticktask"

// Registry holds all metric instances for scheduled tasks.
type Registry struct {
	TasksArmed           *prometheus.CounterVec
	TasksActive          *prometheus.GaugeVec
	TaskFirings          *prometheus.CounterVec
	TaskSuppressed       *prometheus.CounterVec
	TaskReconfigurations *prometheus.CounterVec
	TaskDuration         *prometheus.HistogramVec
}

var (
	defaultOnce     sync.Once
	defaultRegistry *Registry
)

// Default returns a registry bound to prometheus.DefaultRegisterer,
// creating it on first use.
func Default() *Registry {
	defaultOnce.Do(func() {
		defaultRegistry = NewRegistry(prometheus.DefaultRegisterer)
	})
	return defaultRegistry
}

// NewRegistry creates a new metrics registry with the given Prometheus registerer.
func NewRegistry(reg prometheus.Registerer) *Registry {
	cfg := DefaultConfig()
	if reg != nil {
		cfg.Registry = reg
	}
	return NewRegistryWithConfig(cfg)
}

// NewRegistryWithConfig creates a registry honouring namespace and constant labels.
// Returns nil when cfg.Enabled is false.
func NewRegistryWithConfig(cfg Config) *Registry {
	if !cfg.Enabled {
		return nil
	}
	reg := cfg.Registry
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	ns := cfg.Namespace
	if ns == "" {
		ns = DefaultNamespace
	}
	factory := promauto.With(reg)

	return &Registry{
		TasksArmed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   ns,
				Subsystem:   "task",
				Name:        "armed_total",
				Help:        "Total number of successful arm operations",
				ConstLabels: cfg.Labels,
			},
			[]string{"mode"},
		),

		TasksActive: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace:   ns,
				Subsystem:   "task",
				Name:        "active",
				Help:        "Number of currently armed tasks",
				ConstLabels: cfg.Labels,
			},
			[]string{"mode"},
		),

		TaskFirings: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   ns,
				Subsystem:   "task",
				Name:        "firings_total",
				Help:        "Total number of task action invocations",
				ConstLabels: cfg.Labels,
			},
			[]string{"task_id", "mode"},
		),

		TaskSuppressed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   ns,
				Subsystem:   "task",
				Name:        "suppressed_total",
				Help:        "Total number of firings swallowed while paused",
				ConstLabels: cfg.Labels,
			},
			[]string{"task_id", "mode"},
		),

		TaskReconfigurations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace:   ns,
				Subsystem:   "task",
				Name:        "reconfigurations_total",
				Help:        "Total number of live interval, schedule or argument changes",
				ConstLabels: cfg.Labels,
			},
			[]string{"task_id", "kind"},
		),

		TaskDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace:   ns,
				Subsystem:   "task",
				Name:        "duration_seconds",
				Help:        "Time spent executing task actions",
				Buckets:     prometheus.DefBuckets,
				ConstLabels: cfg.Labels,
			},
			[]string{"task_id"},
		),
	}
}
