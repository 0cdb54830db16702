package logx

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		m := map[string]any{}
		if err := json.Unmarshal([]byte(line), &m); err != nil {
			t.Fatalf("invalid json line %q: %v", line, err)
		}
		out = append(out, m)
	}
	return out
}

func TestLogger_WritesFields(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, "debug").With(String("component", "task"))

	l.Info("armed", Int("count", 2), Duration("period", time.Second), Bool("paused", false))

	lines := decodeLines(t, &buf)
	if len(lines) != 1 {
		t.Fatalf("expected 1 line, got %d", len(lines))
	}
	got := lines[0]
	if got["message"] != "armed" {
		t.Errorf("message = %v, want armed", got["message"])
	}
	if got["level"] != "info" {
		t.Errorf("level = %v, want info", got["level"])
	}
	if got["component"] != "task" {
		t.Errorf("component = %v, want task", got["component"])
	}
	if got["count"] != float64(2) {
		t.Errorf("count = %v, want 2", got["count"])
	}
}

func TestLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, "warn")

	l.Debug("hidden")
	l.Info("hidden")
	l.Warn("shown")
	l.Error("shown too", Err(errors.New("boom")))

	lines := decodeLines(t, &buf)
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d: %s", len(lines), buf.String())
	}
	if lines[1]["err"] != "boom" {
		t.Errorf("err = %v, want boom", lines[1]["err"])
	}
	if l.Enabled(LevelInfo) {
		t.Error("info should be disabled at warn level")
	}
	if !l.Enabled(LevelError) {
		t.Error("error should be enabled at warn level")
	}
}

func TestLogger_ZeroValueIsNop(t *testing.T) {
	var l Logger
	if !l.IsZero() {
		t.Error("zero value should report IsZero")
	}
	l.Info("nothing happens", String("k", "v"))

	if Nop().IsZero() {
		t.Error("Nop should not be the zero value")
	}
	if Nop().Enabled(LevelError) {
		t.Error("Nop should not enable any level")
	}
}

func TestLogger_WithDoesNotMutateParent(t *testing.T) {
	var buf bytes.Buffer
	parent := New(&buf, "info")
	_ = parent.With(String("child", "yes"))

	parent.Info("parent line")

	lines := decodeLines(t, &buf)
	if _, ok := lines[0]["child"]; ok {
		t.Error("parent logger picked up child field")
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want Level
	}{
		{"debug", LevelDebug},
		{" INFO ", LevelInfo},
		{"warning", LevelWarn},
		{"error", LevelError},
		{"bogus", LevelInfo},
		{"", LevelInfo},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in, LevelInfo); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestCronLogger(t *testing.T) {
	var buf bytes.Buffer
	cl := CronLogger(New(&buf, "debug"))

	cl.Info("wake", "now", "2024-01-01")
	cl.Error(errors.New("bad job"), "panic", "entry", 3)

	lines := decodeLines(t, &buf)
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	if lines[0]["level"] != "debug" || lines[0]["message"] != "cron: wake" {
		t.Errorf("unexpected info line: %v", lines[0])
	}
	if lines[0]["now"] != "2024-01-01" {
		t.Errorf("now = %v", lines[0]["now"])
	}
	if lines[1]["level"] != "error" || lines[1]["err"] != "bad job" || lines[1]["entry"] != float64(3) {
		t.Errorf("unexpected error line: %v", lines[1])
	}
}
