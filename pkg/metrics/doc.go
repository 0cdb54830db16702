// Package metrics provides Prometheus instrumentation for scheduled tasks.
//
// # Overview
//
// The registry tracks:
//   - Arm operations and currently armed tasks, by mode
//   - Action invocations and firings swallowed while paused
//   - Live reconfigurations (interval, schedule, args)
//   - Action execution time
//
// # Quick Start
//
// Attach a registry to a task through its metrics observer:
//
//	reg := metrics.NewRegistry(prometheus.NewRegistry())
//	t, _ := task.New(action, task.Config{
//		TaskID:    "report",
//		Observers: []task.Observer{task.NewMetricsObserver(reg)},
//	})
//
// Then expose metrics via HTTP:
//
//	http.Handle("/metrics", promhttp.Handler())
//	log.Fatal(http.ListenAndServe(":8080", nil))
//
// # Custom Registry
//
// Use a custom Prometheus registry for isolation, and constant labels to tell
// processes apart:
//
//	registry := prometheus.NewRegistry()
//	reg := metrics.NewRegistryWithConfig(metrics.Config{
//		Enabled:   true,
//		Registry:  registry,
//		Namespace: "jobs",
//		Labels:    prometheus.Labels{"instance": "worker-1"},
//	})
package metrics
