// Package config loads and validates the daemon's YAML task file.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/afero"
	yaml "go.yaml.in/yaml/v3"

	tterrors "github.com/vnykmshr/ticktask/pkg/common/errors"
	"github.com/vnykmshr/ticktask/pkg/common/validation"
	"github.com/vnykmshr/ticktask/pkg/scheduling/recurrence"
	"github.com/vnykmshr/ticktask/pkg/scheduling/task"
)

// Builtin action names.
const (
	ActionLog  = "log"
	ActionExec = "exec"
)

// File is a parsed task file.
type File struct {
	// Location is an IANA time zone for cron expressions (default: local).
	Location string    `yaml:"location,omitempty"`
	Tasks    []TaskDef `yaml:"tasks"`
}

// TaskDef declares one scheduled task. Durations are Go duration strings
// (e.g. "500ms", "30s", "1h"). Exactly one of Interval and Cron is set.
type TaskDef struct {
	ID           string   `yaml:"id"`
	Action       string   `yaml:"action"`
	Interval     string   `yaml:"interval,omitempty"`
	InitialDelay string   `yaml:"initial_delay,omitempty"`
	Cron         string   `yaml:"cron,omitempty"`
	Args         []string `yaml:"args,omitempty"`
	Logging      bool     `yaml:"logging,omitempty"`
	Paused       bool     `yaml:"paused,omitempty"`
}

// Mode returns the scheduling mode the definition asks for.
func (d TaskDef) Mode() task.Mode {
	if strings.TrimSpace(d.Cron) != "" {
		return task.ModeRecurrence
	}
	return task.ModeInterval
}

// Period returns the parsed interval, or zero if unset or malformed.
func (d TaskDef) Period() time.Duration {
	p, _ := parseDuration(d.Interval)
	return p
}

// Delay returns the parsed initial delay, or zero if unset or malformed.
func (d TaskDef) Delay() time.Duration {
	p, _ := parseDuration(d.InitialDelay)
	return p
}

// CallArgs converts Args to the argument list handed to a task.
func (d TaskDef) CallArgs() []any {
	if len(d.Args) == 0 {
		return nil
	}
	out := make([]any, len(d.Args))
	for i, a := range d.Args {
		out[i] = a
	}
	return out
}

// TimeLocation resolves Location. An empty Location is time.Local.
func (f *File) TimeLocation() (*time.Location, error) {
	if f == nil || strings.TrimSpace(f.Location) == "" {
		return time.Local, nil
	}
	return time.LoadLocation(strings.TrimSpace(f.Location))
}

// Lookup returns the definition with the given id.
func (f *File) Lookup(id string) (TaskDef, bool) {
	if f == nil {
		return TaskDef{}, false
	}
	for _, d := range f.Tasks {
		if d.ID == id {
			return d, true
		}
	}
	return TaskDef{}, false
}

// Load reads, parses and validates the task file at path.
func Load(fs afero.Fs, path string) (*File, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, tterrors.NewOperationError("config", "Load", err).WithContext(path)
	}
	f, err := Parse(data, path)
	if err != nil {
		return nil, err
	}
	if err := f.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

// Parse decodes a task file. Unknown keys are rejected. An empty document
// yields an empty File. Parse does not validate.
func Parse(data []byte, path string) (*File, error) {
	var f File
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%s: yaml: %w", path, err)
	}
	return &f, nil
}

// Validate checks every task definition and reports all problems at once.
func (f *File) Validate() error {
	var errs []error
	if _, err := f.TimeLocation(); err != nil {
		errs = append(errs, tterrors.NewValidationError("config", "location", f.Location, err.Error()))
	}

	seen := make(map[string]bool, len(f.Tasks))
	for i, d := range f.Tasks {
		field := func(name string) string {
			if d.ID != "" {
				return fmt.Sprintf("tasks[%s].%s", d.ID, name)
			}
			return fmt.Sprintf("tasks[%d].%s", i, name)
		}

		if err := validation.ValidateNotEmpty("config", field("id"), d.ID); err != nil {
			errs = append(errs, err)
		} else if seen[d.ID] {
			errs = append(errs, tterrors.NewValidationError("config", field("id"), d.ID, "is not unique"))
		}
		seen[d.ID] = true

		switch d.Action {
		case ActionLog:
		case ActionExec:
			if len(d.Args) == 0 || strings.TrimSpace(d.Args[0]) == "" {
				errs = append(errs, tterrors.NewValidationError("config", field("args"), d.Args, "exec needs a command").
					WithHint("put the program path first in args"))
			}
		default:
			errs = append(errs, tterrors.NewValidationError("config", field("action"), d.Action, "unknown action").
				WithHint("use log or exec"))
		}

		hasInterval := strings.TrimSpace(d.Interval) != ""
		hasCron := strings.TrimSpace(d.Cron) != ""
		switch {
		case hasInterval && hasCron:
			errs = append(errs, tterrors.NewValidationError("config", field("cron"), d.Cron, "cannot be combined with interval"))
		case !hasInterval && !hasCron:
			errs = append(errs, tterrors.NewValidationError("config", field("interval"), "", "interval or cron is required"))
		case hasInterval:
			errs = append(errs, validateDuration(field("interval"), d.Interval, validation.ValidatePositiveDuration)...)
			errs = append(errs, validateDuration(field("initial_delay"), d.InitialDelay, validation.ValidateNonNegativeDuration)...)
		case hasCron:
			if strings.TrimSpace(d.InitialDelay) != "" {
				errs = append(errs, tterrors.NewValidationError("config", field("initial_delay"), d.InitialDelay, "only applies to interval tasks"))
			}
			if _, err := recurrence.ParseExpression(d.Cron); err != nil {
				errs = append(errs, tterrors.NewValidationError("config", field("cron"), d.Cron, err.Error()).
					WithKind(tterrors.ErrInvalidScheduleExpression))
			}
		}
	}
	return errors.Join(errs...)
}

func validateDuration(field, raw string, check func(module, field string, v time.Duration) error) []error {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	d, err := parseDuration(raw)
	if err != nil {
		return []error{tterrors.NewValidationError("config", field, raw, "not a duration").
			WithHint("use a Go duration such as 30s or 5m").
			WithKind(tterrors.ErrInvalidDuration)}
	}
	if err := check("config", field, d); err != nil {
		return []error{err}
	}
	return nil
}

func parseDuration(raw string) (time.Duration, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, nil
	}
	return time.ParseDuration(s)
}
