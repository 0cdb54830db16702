package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/afero"

	"github.com/vnykmshr/ticktask/internal/testutil"
	tterrors "github.com/vnykmshr/ticktask/pkg/common/errors"
	"github.com/vnykmshr/ticktask/pkg/scheduling/task"
)

const sampleFile = `
location: UTC
tasks:
  - id: heartbeat
    action: log
    interval: 30s
    initial_delay: 5s
    args: ["alive"]
    logging: true
  - id: report
    action: exec
    cron: "0 9 * * *"
    args: ["/usr/local/bin/report", "--daily"]
    paused: true
`

func TestLoad(t *testing.T) {
	fs := afero.NewMemMapFs()
	testutil.AssertNoError(t, afero.WriteFile(fs, "/etc/ticktask/tasks.yaml", []byte(sampleFile), 0o644))

	f, err := Load(fs, "/etc/ticktask/tasks.yaml")
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, len(f.Tasks), 2)

	loc, err := f.TimeLocation()
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, loc.String(), "UTC")

	hb, ok := f.Lookup("heartbeat")
	if !ok {
		t.Fatal("heartbeat not found")
	}
	testutil.AssertEqual(t, hb.Mode(), task.ModeInterval)
	testutil.AssertEqual(t, hb.Period(), 30*time.Second)
	testutil.AssertEqual(t, hb.Delay(), 5*time.Second)
	testutil.AssertEqual(t, hb.Logging, true)
	testutil.AssertEqual(t, len(hb.CallArgs()), 1)

	rep, _ := f.Lookup("report")
	testutil.AssertEqual(t, rep.Mode(), task.ModeRecurrence)
	testutil.AssertEqual(t, rep.Cron, "0 9 * * *")
	testutil.AssertEqual(t, rep.Paused, true)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(afero.NewMemMapFs(), "/nope.yaml")
	var opErr *tterrors.OperationError
	if !errors.As(err, &opErr) {
		t.Fatalf("expected OperationError, got %v", err)
	}
	testutil.AssertEqual(t, opErr.Context, "/nope.yaml")
}

func TestParse(t *testing.T) {
	f, err := Parse(nil, "empty.yaml")
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, len(f.Tasks), 0)
	testutil.AssertNoError(t, f.Validate())

	_, err = Parse([]byte("tasks:\n  - id: a\n    every: 5s\n"), "typo.yaml")
	if err == nil || !strings.Contains(err.Error(), "typo.yaml") {
		t.Errorf("expected unknown field error naming the file, got %v", err)
	}

	_, err = Parse([]byte("tasks: ["), "broken.yaml")
	testutil.AssertError(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		file    File
		wantErr error
		wantMsg string
	}{
		{
			name: "valid interval",
			file: File{Tasks: []TaskDef{{ID: "a", Action: ActionLog, Interval: "1s"}}},
		},
		{
			name: "valid cron with seconds",
			file: File{Tasks: []TaskDef{{ID: "a", Action: ActionLog, Cron: "*/10 * * * * *"}}},
		},
		{
			name:    "missing id",
			file:    File{Tasks: []TaskDef{{Action: ActionLog, Interval: "1s"}}},
			wantMsg: "tasks[0].id",
		},
		{
			name: "duplicate id",
			file: File{Tasks: []TaskDef{
				{ID: "a", Action: ActionLog, Interval: "1s"},
				{ID: "a", Action: ActionLog, Interval: "2s"},
			}},
			wantMsg: "not unique",
		},
		{
			name:    "unknown action",
			file:    File{Tasks: []TaskDef{{ID: "a", Action: "email", Interval: "1s"}}},
			wantMsg: "unknown action",
		},
		{
			name:    "exec without command",
			file:    File{Tasks: []TaskDef{{ID: "a", Action: ActionExec, Interval: "1s"}}},
			wantMsg: "exec needs a command",
		},
		{
			name:    "interval and cron",
			file:    File{Tasks: []TaskDef{{ID: "a", Action: ActionLog, Interval: "1s", Cron: "@daily"}}},
			wantMsg: "cannot be combined",
		},
		{
			name:    "no schedule",
			file:    File{Tasks: []TaskDef{{ID: "a", Action: ActionLog}}},
			wantMsg: "interval or cron is required",
		},
		{
			name:    "malformed interval",
			file:    File{Tasks: []TaskDef{{ID: "a", Action: ActionLog, Interval: "often"}}},
			wantErr: tterrors.ErrInvalidDuration,
		},
		{
			name:    "zero interval",
			file:    File{Tasks: []TaskDef{{ID: "a", Action: ActionLog, Interval: "0s"}}},
			wantErr: tterrors.ErrInvalidDuration,
		},
		{
			name:    "negative delay",
			file:    File{Tasks: []TaskDef{{ID: "a", Action: ActionLog, Interval: "1s", InitialDelay: "-1s"}}},
			wantErr: tterrors.ErrInvalidDuration,
		},
		{
			name:    "bad cron",
			file:    File{Tasks: []TaskDef{{ID: "a", Action: ActionLog, Cron: "not-a-cron"}}},
			wantErr: tterrors.ErrInvalidScheduleExpression,
		},
		{
			name:    "delay on cron task",
			file:    File{Tasks: []TaskDef{{ID: "a", Action: ActionLog, Cron: "@daily", InitialDelay: "5s"}}},
			wantMsg: "only applies to interval tasks",
		},
		{
			name:    "bad location",
			file:    File{Location: "Mars/Olympus"},
			wantErr: tterrors.ErrInvalidConfiguration,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.file.Validate()
			if tt.wantErr == nil && tt.wantMsg == "" {
				testutil.AssertNoError(t, err)
				return
			}
			if err == nil {
				t.Fatal("expected an error")
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
			if tt.wantMsg != "" && !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("expected %q in %q", tt.wantMsg, err.Error())
			}
			if !tterrors.IsValidationError(err) {
				t.Errorf("expected a ValidationError, got %T", err)
			}
		})
	}
}

func TestValidate_ReportsEveryProblem(t *testing.T) {
	f := File{Tasks: []TaskDef{
		{ID: "a", Action: "nope", Interval: "1s"},
		{ID: "b", Action: ActionLog, Cron: "bogus"},
	}}
	err := f.Validate()
	testutil.AssertError(t, err)
	for _, want := range []string{"tasks[a].action", "tasks[b].cron"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("missing %q in %q", want, err.Error())
		}
	}
}

func TestDiff(t *testing.T) {
	prev := &File{Tasks: []TaskDef{
		{ID: "keep", Action: ActionLog, Interval: "1s", Args: []string{"x"}},
		{ID: "retime", Action: ActionLog, Interval: "1s"},
		{ID: "recron", Action: ActionLog, Cron: "@daily"},
		{ID: "switch", Action: ActionLog, Interval: "1s"},
		{ID: "pause", Action: ActionLog, Interval: "1s"},
		{ID: "gone", Action: ActionLog, Interval: "1s"},
	}}
	next := &File{Location: "UTC", Tasks: []TaskDef{
		{ID: "keep", Action: ActionLog, Interval: "1000ms", Args: []string{"x"}},
		{ID: "retime", Action: ActionLog, Interval: "2s", Args: []string{"y"}},
		{ID: "recron", Action: ActionLog, Cron: "@hourly"},
		{ID: "switch", Action: ActionLog, Cron: "@hourly"},
		{ID: "pause", Action: ActionLog, Interval: "1s", Paused: true},
		{ID: "new", Action: ActionLog, Interval: "1s"},
	}}

	c := Diff(prev, next)
	testutil.AssertEqual(t, c.Empty(), false)
	testutil.AssertEqual(t, c.LocationChanged, true)
	testutil.AssertEqual(t, len(c.Added), 1)
	testutil.AssertEqual(t, c.Added[0].ID, "new")
	testutil.AssertEqual(t, strings.Join(c.Removed, ","), "gone")

	got := map[string]Update{}
	for _, u := range c.Updated {
		got[u.New.ID] = u
	}
	if _, ok := got["keep"]; ok {
		t.Error("equivalent durations should not count as a change")
	}
	testutil.AssertEqual(t, strings.Join(got["retime"].Fields, ","), "interval,args")
	testutil.AssertEqual(t, got["retime"].NeedsRearm(), false)
	testutil.AssertEqual(t, strings.Join(got["recron"].Fields, ","), "cron")
	testutil.AssertEqual(t, strings.Join(got["switch"].Fields, ","), "mode")
	testutil.AssertEqual(t, got["switch"].NeedsRearm(), true)
	testutil.AssertEqual(t, got["pause"].Changed(FieldPaused), true)
}

func TestDiff_Nil(t *testing.T) {
	testutil.AssertEqual(t, Diff(nil, nil).Empty(), true)

	c := Diff(nil, &File{Tasks: []TaskDef{{ID: "a"}}})
	testutil.AssertEqual(t, len(c.Added), 1)

	c = Diff(&File{Tasks: []TaskDef{{ID: "a"}}}, nil)
	testutil.AssertEqual(t, len(c.Removed), 1)
}

func TestWatcher_Reload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tasks.yaml")
	initial := []byte("tasks:\n  - id: a\n    action: log\n    interval: 1s\n")
	testutil.AssertNoError(t, os.WriteFile(path, initial, 0o644))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	updates := make(chan *File, 8)
	done := make(chan error, 1)
	w := &Watcher{Path: path, Debounce: 20 * time.Millisecond, Initial: initial}
	go func() { done <- w.Run(ctx, func(f *File) { updates <- f }) }()

	// Rewrite until the watcher is up and picks the change.
	waitFor := func(content string, want func(*File) bool) {
		t.Helper()
		deadline := time.After(5 * time.Second)
		tick := time.NewTicker(100 * time.Millisecond)
		defer tick.Stop()
		testutil.AssertNoError(t, os.WriteFile(path, []byte(content), 0o644))
		for {
			select {
			case f := <-updates:
				if want(f) {
					return
				}
			case <-tick.C:
				testutil.AssertNoError(t, os.WriteFile(path, []byte(content), 0o644))
			case <-deadline:
				t.Fatalf("no reload delivered for %q", content)
			}
		}
	}

	waitFor("tasks:\n  - id: a\n    action: log\n    interval: 2s\n", func(f *File) bool {
		d, _ := f.Lookup("a")
		return d.Period() == 2*time.Second
	})

	// An invalid file keeps the previous configuration.
	testutil.AssertNoError(t, os.WriteFile(path, []byte("tasks:\n  - id: a\n    action: log\n"), 0o644))
	select {
	case f := <-updates:
		t.Fatalf("invalid file delivered: %+v", f)
	case <-time.After(200 * time.Millisecond):
	}

	waitFor("tasks:\n  - id: b\n    action: log\n    cron: '@daily'\n", func(f *File) bool {
		_, ok := f.Lookup("b")
		return ok
	})

	cancel()
	select {
	case err := <-done:
		testutil.AssertNoError(t, err)
	case <-time.After(testutil.TestTimeout):
		t.Fatal("watcher did not stop")
	}
}
