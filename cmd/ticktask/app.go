package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/afero"
	"github.com/urfave/cli"

	"github.com/vnykmshr/ticktask/internal/config"
	"github.com/vnykmshr/ticktask/pkg/journal"
	"github.com/vnykmshr/ticktask/pkg/scheduling/recurrence"
	"github.com/vnykmshr/ticktask/pkg/scheduling/task"
)

const description = `ticktask runs the tasks declared in a YAML task file. Each task fires
after an initial delay and then at a fixed interval, or at every occurrence
of a cron expression. The file is watched and changes are applied without
restarting running tasks where possible.`

type runFlags struct {
	configPath    string
	metricsAddr   string
	logLevel      string
	redisAddr     string
	journalStream string
	journalMaxLen int64
	execTimeout   time.Duration
}

func newApp(w io.Writer) *cli.App {
	var rf runFlags
	var validatePath string

	configFlag := func(dst *string) cli.StringFlag {
		return cli.StringFlag{
			Name:        "config, c",
			Usage:       "path to the task file",
			Value:       "tasks.yaml",
			EnvVar:      "TICKTASK_CONFIG",
			Destination: dst,
		}
	}

	app := cli.NewApp()
	app.Name = "ticktask"
	app.HelpName = "ticktask"
	app.Usage = "run interval and cron tasks from a task file"
	app.UsageText = "ticktask <command> [arguments...]"
	app.Description = description
	app.Version = version
	app.Writer = w
	app.Commands = []cli.Command{
		{
			Name:  "run",
			Usage: "run the tasks in the task file until interrupted",
			Flags: []cli.Flag{
				configFlag(&rf.configPath),
				cli.StringFlag{
					Name:        "metrics-addr",
					Usage:       "serve Prometheus metrics on this address (empty disables)",
					Value:       ":9464",
					EnvVar:      "TICKTASK_METRICS_ADDR",
					Destination: &rf.metricsAddr,
				},
				cli.StringFlag{
					Name:        "log-level",
					Usage:       "debug, info, warn, error or off",
					Value:       "info",
					EnvVar:      "TICKTASK_LOG_LEVEL",
					Destination: &rf.logLevel,
				},
				cli.StringFlag{
					Name:        "redis-addr",
					Usage:       "journal task events to this Redis server (empty disables)",
					EnvVar:      "TICKTASK_REDIS_ADDR",
					Destination: &rf.redisAddr,
				},
				cli.StringFlag{
					Name:        "journal-stream",
					Usage:       "Redis stream key for the journal",
					Value:       journal.DefaultStream,
					Destination: &rf.journalStream,
				},
				cli.Int64Flag{
					Name:        "journal-max-len",
					Usage:       "approximate cap on journal entries (0 keeps all)",
					Value:       journal.DefaultConfig().MaxLen,
					Destination: &rf.journalMaxLen,
				},
				cli.DurationFlag{
					Name:        "exec-timeout",
					Usage:       "kill exec actions running longer than this",
					Value:       time.Minute,
					Destination: &rf.execTimeout,
				},
			},
			Action: func(c *cli.Context) error {
				return run(rf)
			},
		},
		{
			Name:  "validate",
			Usage: "check the task file and print its schedule",
			Flags: []cli.Flag{configFlag(&validatePath)},
			Action: func(c *cli.Context) error {
				return validate(c.App.Writer, afero.NewOsFs(), validatePath)
			},
		},
	}
	return app
}

func validate(w io.Writer, fs afero.Fs, path string) error {
	f, err := config.Load(fs, path)
	if err != nil {
		return err
	}
	loc, err := f.TimeLocation()
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tACTION\tSCHEDULE\tNEXT\tARGS")
	for _, d := range f.Tasks {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", d.ID, d.Action, schedule(d), next(d, loc), strings.Join(d.Args, " "))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(w, "%s: %d task(s) ok\n", path, len(f.Tasks))
	return nil
}

func schedule(d config.TaskDef) string {
	if d.Mode() == task.ModeRecurrence {
		return "cron " + d.Cron
	}
	s := "every " + d.Period().String()
	if d.Delay() > 0 {
		s += " after " + d.Delay().String()
	}
	return s
}

func next(d config.TaskDef, loc *time.Location) string {
	if d.Mode() != task.ModeRecurrence {
		return "-"
	}
	sched, err := recurrence.ParseExpression(d.Cron)
	if err != nil {
		return "?"
	}
	return sched.Next(time.Now().In(loc)).Format(time.RFC3339)
}
