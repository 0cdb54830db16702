package runner

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/vnykmshr/ticktask/internal/config"
	"github.com/vnykmshr/ticktask/pkg/logx"
	"github.com/vnykmshr/ticktask/pkg/scheduling/task"
)

// ActionFactory builds the action for a task definition. The action receives
// the task's current arguments at each firing.
type ActionFactory func(def config.TaskDef, log logx.Logger) task.Action

const (
	defaultExecTimeout = time.Minute
	maxLoggedOutput    = 4096
)

func builtinActions(execTimeout time.Duration) map[string]ActionFactory {
	return map[string]ActionFactory{
		config.ActionLog:  LogAction,
		config.ActionExec: ExecAction(execTimeout),
	}
}

// LogAction writes one info line per firing carrying the arguments.
func LogAction(def config.TaskDef, log logx.Logger) task.Action {
	log = log.With(logx.String("task_id", def.ID))
	return func(args ...any) {
		log.Info("task fired", logx.Any("args", args))
	}
}

// ExecAction runs args[0] with the remaining arguments, killing it after
// timeout. Combined output is logged, truncated to a few KiB.
func ExecAction(timeout time.Duration) ActionFactory {
	if timeout <= 0 {
		timeout = defaultExecTimeout
	}
	return func(def config.TaskDef, log logx.Logger) task.Action {
		log = log.With(logx.String("task_id", def.ID))
		return func(args ...any) {
			if len(args) == 0 {
				log.Error("exec task has no command")
				return
			}
			argv := make([]string, len(args))
			for i, a := range args {
				argv[i] = fmt.Sprint(a)
			}

			ctx, cancel := context.WithTimeout(context.Background(), timeout)
			defer cancel()

			start := time.Now()
			out, err := exec.CommandContext(ctx, argv[0], argv[1:]...).CombinedOutput()
			fields := []logx.Field{
				logx.String("command", argv[0]),
				logx.Duration("took", time.Since(start)),
				logx.String("output", truncate(strings.TrimSpace(string(out)), maxLoggedOutput)),
			}
			if err != nil {
				var exitErr *exec.ExitError
				if errors.As(err, &exitErr) {
					fields = append(fields, logx.Int("exit_code", exitErr.ExitCode()))
				}
				if ctx.Err() != nil {
					fields = append(fields, logx.Duration("timeout", timeout))
				}
				log.Error("exec task failed", append(fields, logx.Err(err))...)
				return
			}
			log.Info("exec task finished", fields...)
		}
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "...(truncated)"
}
