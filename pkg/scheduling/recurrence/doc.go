/*
Package recurrence registers callbacks against cron-style recurrence
expressions.

The Cron facility is backed by github.com/robfig/cron/v3 and accepts:

	"0 9 * * *"       - 09:00 every day (5 fields)
	"30 0 9 * * MON"  - 09:00:30 every Monday (6 fields, leading seconds)
	"@daily"          - once a day at midnight
	"@every 90s"      - every 90 seconds

Expressions that cannot be parsed fail with ErrInvalidScheduleExpression and
nothing is registered:

	c := recurrence.NewCron(recurrence.Config{})
	defer c.Stop()

	h, err := c.Register("0 9 * * *", report)
	if err != nil {
		return err
	}
	defer h.Cancel()
*/
package recurrence
