/*
Package task provides ScheduledTask, a single unit of work driven either by a
fixed interval or by a cron-style recurrence expression.

Interval mode runs the action once after an initial delay, then every period:

	t, _ := task.New(func(args ...any) {
		fmt.Println("report for", args[0])
	}, task.Config{TaskID: "report", EnableLogging: true})

	_ = t.ArmInterval(2*time.Second, 5*time.Second, "eu-west")
	defer t.Stop()

Recurrence mode runs it at every matching calendar moment:

	_ = t.ArmRecurrence("0 9 * * MON-FRI", "daily")

Live control:

	t.Pause()                               // firings are swallowed, timers keep running
	t.Resume()
	t.UpdateArgs("us-east")                 // next firing sees the new arguments
	_ = t.SetNewInterval(10 * time.Second)  // interval mode only
	_ = t.SetNewSchedule("@hourly")         // recurrence mode only
	t.Stop()                                // back to unarmed, may be armed again

A task holds at most one live driver. Arming an armed task is a no-op, and
the two modes never mix until Stop. Firings run on the facility's goroutines
and are not serialised: a slow action may overlap the next firing.

Observers receive every lifecycle change and firing; NewMetricsObserver
turns them into Prometheus metrics.
*/
package task
