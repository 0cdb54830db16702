package config

import (
	"slices"
	"strings"
)

// Field names reported in Update.Fields.
const (
	FieldAction       = "action"
	FieldMode         = "mode"
	FieldInterval     = "interval"
	FieldInitialDelay = "initial_delay"
	FieldCron         = "cron"
	FieldArgs         = "args"
	FieldLogging      = "logging"
	FieldPaused       = "paused"
)

// Changes is the difference between two task files.
type Changes struct {
	Added           []TaskDef
	Removed         []string
	Updated         []Update
	LocationChanged bool
}

// Update describes a task present in both files whose definition changed.
type Update struct {
	Old, New TaskDef
	Fields   []string
}

// Empty reports whether nothing changed.
func (c Changes) Empty() bool {
	return len(c.Added) == 0 && len(c.Removed) == 0 && len(c.Updated) == 0 && !c.LocationChanged
}

// Changed reports whether field is among the changed fields.
func (u Update) Changed(field string) bool {
	return slices.Contains(u.Fields, field)
}

// NeedsRearm reports whether the change cannot be applied to a running
// task in place: switching mode or action, a new initial delay, or a new
// logging setting.
func (u Update) NeedsRearm() bool {
	return u.Changed(FieldMode) || u.Changed(FieldAction) ||
		u.Changed(FieldInitialDelay) || u.Changed(FieldLogging)
}

// Diff compares two task files by task id. Either side may be nil.
// Added keeps the order of next; Removed keeps the order of prev.
func Diff(prev, next *File) Changes {
	if prev == nil {
		prev = &File{}
	}
	if next == nil {
		next = &File{}
	}

	var c Changes
	c.LocationChanged = strings.TrimSpace(prev.Location) != strings.TrimSpace(next.Location)

	for _, d := range next.Tasks {
		old, ok := prev.Lookup(d.ID)
		if !ok {
			c.Added = append(c.Added, d)
			continue
		}
		if fields := changedFields(old, d); len(fields) > 0 {
			c.Updated = append(c.Updated, Update{Old: old, New: d, Fields: fields})
		}
	}
	for _, d := range prev.Tasks {
		if _, ok := next.Lookup(d.ID); !ok {
			c.Removed = append(c.Removed, d.ID)
		}
	}
	return c
}

func changedFields(a, b TaskDef) []string {
	var out []string
	if a.Action != b.Action {
		out = append(out, FieldAction)
	}
	switch {
	case a.Mode() != b.Mode():
		out = append(out, FieldMode)
	case a.Period() != b.Period():
		out = append(out, FieldInterval)
	case strings.TrimSpace(a.Cron) != strings.TrimSpace(b.Cron):
		out = append(out, FieldCron)
	}
	if a.Delay() != b.Delay() {
		out = append(out, FieldInitialDelay)
	}
	if !slices.Equal(a.Args, b.Args) {
		out = append(out, FieldArgs)
	}
	if a.Logging != b.Logging {
		out = append(out, FieldLogging)
	}
	if a.Paused != b.Paused {
		out = append(out, FieldPaused)
	}
	return out
}
