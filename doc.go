/*
Package ticktask runs functions on a schedule: once after an initial delay and
then at a fixed interval, or at every occurrence of a cron expression.

Scheduling (pkg/scheduling):
  - task: ScheduledTask, the pausable, reconfigurable unit of scheduling
  - timer: one-shot and repeating timers behind a small interface
  - recurrence: cron expressions on robfig/cron

Supporting packages:
  - metrics: Prometheus counters, gauges and histograms for task events
  - journal: Redis stream audit trail of task events
  - logx: structured logging on zerolog

Example usage:

	import (
		"github.com/vnykmshr/ticktask/pkg/scheduling/task"
	)

	st, _ := task.New(func(args ...any) {
		fmt.Println("syncing", args[0])
	}, task.Config{TaskID: "sync"})

	_ = st.ArmInterval(5*time.Second, time.Minute, "eu-west")
	defer st.Stop()

The ticktask command (cmd/ticktask) runs the tasks of a YAML task file as a
daemon, applying edits to the file while it runs.
*/
package ticktask
