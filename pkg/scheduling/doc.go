/*
Package scheduling groups the building blocks for running work on a schedule.

  - task: ScheduledTask arms an action in interval or recurrence mode
  - timer: the Facility interval mode runs on (one-shot and repeating timers)
  - recurrence: the Facility recurrence mode runs on (cron expressions)

Interval Mode:

	st, _ := task.New(report, task.Config{TaskID: "report"})
	_ = st.ArmInterval(2*time.Second, 5*time.Second, "eu-west")

The first run happens after two seconds, then every five. SetNewInterval
restarts the repetition from the moment it is called.

Recurrence Mode:

	_ = st.ArmRecurrence("0 9 * * MON-FRI", "standup")

Expressions take five fields, an optional leading seconds field, or a
descriptor such as @hourly or @every 90s. SetNewSchedule moves a task to a new
expression; a rejected expression leaves the old one in effect.

Both modes share Pause, Resume, UpdateArgs and Stop. A paused task keeps its
timers running and swallows their firings.

Testing:

Both facilities are interfaces. internal/testutil provides FakeTimers on a
virtual clock and FakeRecurrence with manually fired occurrences, so schedules
can be tested without sleeping.
*/
package scheduling
