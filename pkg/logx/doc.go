// Package logx configures ticktask's structured logging.
//
// Logger is a small value type on top of zerolog:
//   - Console output stays readable (short timestamp, key=value pairs)
//   - Any io.Writer sink gets JSON lines
//   - The zero value is a safe no-op logger
//
// CronLogger adapts a Logger to robfig/cron's logging interface so the
// recurrence facility reports through the same sink.
package logx
