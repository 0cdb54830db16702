// Package journal records task events into a Redis stream, giving a
// durable audit trail of every firing and lifecycle change.
package journal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"

	tterrors "github.com/vnykmshr/ticktask/pkg/common/errors"
	"github.com/vnykmshr/ticktask/pkg/common/validation"
	"github.com/vnykmshr/ticktask/pkg/logx"
	"github.com/vnykmshr/ticktask/pkg/scheduling/task"
)

// DefaultStream is the stream key used when Config.Stream is empty.
const DefaultStream = "ticktask:events"

// Config holds journal configuration.
type Config struct {
	// Redis client the journal writes through. The journal does not close it.
	Redis redis.UniversalClient

	// Stream is the Redis stream key.
	Stream string

	// MaxLen caps the stream length (approximate trimming). Zero disables trimming.
	MaxLen int64

	// Timeout bounds each write made from Observe.
	Timeout time.Duration

	// Logger receives write failures.
	Logger logx.Logger
}

// DefaultConfig returns a journal configuration with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Stream:  DefaultStream,
		MaxLen:  10000,
		Timeout: 500 * time.Millisecond,
	}
}

// Journal appends task events to a Redis stream. It implements task.Observer.
type Journal struct {
	rdb     redis.UniversalClient
	stream  string
	maxLen  int64
	timeout time.Duration
	log     logx.Logger

	appended atomic.Int64
	failed   atomic.Int64
}

// Entry is a journal record read back from the stream.
type Entry struct {
	ID         string
	TaskID     string
	Kind       task.EventKind
	Mode       string
	RunID      string
	At         time.Time
	Duration   time.Duration
	Change     string
	Interval   time.Duration
	Expression string
	Args       string // JSON-encoded argument list
}

// New creates a journal writing to cfg.Stream.
func New(cfg Config) (*Journal, error) {
	if cfg.Redis == nil {
		return nil, tterrors.NewValidationError("journal", "redis", nil, "client is required")
	}
	def := DefaultConfig()
	if cfg.Stream == "" {
		cfg.Stream = def.Stream
	}
	if cfg.MaxLen < 0 {
		return nil, tterrors.NewValidationError("journal", "max length", cfg.MaxLen, "cannot be negative").
			WithHint("use 0 to keep every entry")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	log := cfg.Logger
	if log.IsZero() {
		log = logx.Nop()
	}

	return &Journal{
		rdb:     cfg.Redis,
		stream:  cfg.Stream,
		maxLen:  cfg.MaxLen,
		timeout: cfg.Timeout,
		log:     log.With(logx.String("stream", cfg.Stream)),
	}, nil
}

// Stream returns the stream key.
func (j *Journal) Stream() string { return j.stream }

// Observe appends ev with the configured timeout. Failures are logged and
// counted; they never reach the task.
func (j *Journal) Observe(ev task.Event) {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	if _, err := j.Append(ctx, ev); err != nil {
		j.failed.Add(1)
		j.log.Warn("journal write failed",
			logx.String("task_id", ev.TaskID),
			logx.String("kind", string(ev.Kind)),
			logx.Bool("retryable", tterrors.IsRetryable(err)),
			logx.Err(err))
	}
}

// Append writes ev to the stream and returns the entry ID Redis assigned.
func (j *Journal) Append(ctx context.Context, ev task.Event) (string, error) {
	args := &redis.XAddArgs{
		Stream: j.stream,
		Values: Values(ev),
	}
	if j.maxLen > 0 {
		args.MaxLen = j.maxLen
		args.Approx = true
	}

	id, err := j.rdb.XAdd(ctx, args).Result()
	if err != nil {
		return "", tterrors.NewOperationError("journal", "Append", deadline(ctx, err)).WithContext(j.stream)
	}
	j.appended.Add(1)
	return id, nil
}

// Recent returns up to n entries, newest first.
func (j *Journal) Recent(ctx context.Context, n int) ([]Entry, error) {
	if err := validation.ValidatePositive("journal", "count", n); err != nil {
		return nil, err
	}
	msgs, err := j.rdb.XRevRangeN(ctx, j.stream, "+", "-", int64(n)).Result()
	if err != nil {
		return nil, tterrors.NewOperationError("journal", "Recent", deadline(ctx, err)).WithContext(j.stream)
	}
	out := make([]Entry, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, Decode(m))
	}
	return out, nil
}

// Appended returns the number of successful writes.
func (j *Journal) Appended() int64 { return j.appended.Load() }

// Failed returns the number of writes dropped by Observe.
func (j *Journal) Failed() int64 { return j.failed.Load() }

// deadline marks err as ErrTimeout when ctx ran out before Redis answered.
func deadline(ctx context.Context, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", tterrors.ErrTimeout, err)
	}
	return err
}

// Values encodes ev as stream fields. Zero-valued optional fields are omitted.
func Values(ev task.Event) map[string]any {
	v := map[string]any{
		"task_id": ev.TaskID,
		"kind":    string(ev.Kind),
		"mode":    ev.Mode.String(),
		"at":      ev.At.UTC().Format(time.RFC3339Nano),
	}
	if ev.RunID != "" {
		v["run_id"] = ev.RunID
	}
	if ev.Duration > 0 {
		v["duration_ms"] = strconv.FormatInt(ev.Duration.Milliseconds(), 10)
	}
	if ev.Change != "" {
		v["change"] = ev.Change
	}
	if ev.Interval > 0 {
		v["interval"] = ev.Interval.String()
	}
	if ev.Expression != "" {
		v["expression"] = ev.Expression
	}
	if len(ev.Args) > 0 {
		v["args"] = encodeArgs(ev.Args)
	}
	return v
}

// Decode converts a stream message back into an Entry. Unknown or
// malformed fields are left zero.
func Decode(m redis.XMessage) Entry {
	str := func(k string) string {
		if s, ok := m.Values[k].(string); ok {
			return s
		}
		return ""
	}

	e := Entry{
		ID:         m.ID,
		TaskID:     str("task_id"),
		Kind:       task.EventKind(str("kind")),
		Mode:       str("mode"),
		RunID:      str("run_id"),
		Change:     str("change"),
		Expression: str("expression"),
		Args:       str("args"),
	}
	if at, err := time.Parse(time.RFC3339Nano, str("at")); err == nil {
		e.At = at
	}
	if ms, err := strconv.ParseInt(str("duration_ms"), 10, 64); err == nil {
		e.Duration = time.Duration(ms) * time.Millisecond
	}
	if d, err := time.ParseDuration(str("interval")); err == nil {
		e.Interval = d
	}
	return e
}

func encodeArgs(args []any) string {
	b, err := json.Marshal(args)
	if err != nil {
		return fmt.Sprint(args)
	}
	return string(b)
}
