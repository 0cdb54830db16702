package errors

import (
	"errors"
	"strings"
	"testing"
)

func TestCommonErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"ErrClosed", ErrClosed, "resource is closed"},
		{"ErrTimeout", ErrTimeout, "operation timed out"},
		{"ErrInvalidConfiguration", ErrInvalidConfiguration, "invalid configuration"},
		{"ErrInvalidDuration", ErrInvalidDuration, "invalid duration"},
		{"ErrInvalidScheduleExpression", ErrInvalidScheduleExpression, "invalid schedule expression"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestValidationError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *ValidationError
		want string
	}{
		{
			name: "without hint",
			err: &ValidationError{
				Module: "task",
				Field:  "period",
				Value:  "-1s",
				Reason: "must be positive",
			},
			want: "task: invalid period=-1s (must be positive)",
		},
		{
			name: "with hint",
			err: &ValidationError{
				Module: "task",
				Field:  "delay",
				Value:  "-5s",
				Reason: "cannot be negative",
				Hint:   "use 0 to run immediately",
			},
			want: "task: invalid delay=-5s (cannot be negative) - use 0 to run immediately",
		},
		{
			name: "string value",
			err: &ValidationError{
				Module: "recurrence",
				Field:  "expression",
				Value:  "",
				Reason: "cannot be empty",
			},
			want: "recurrence: invalid expression= (cannot be empty)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestValidationError_Unwrap(t *testing.T) {
	verr := NewValidationError("task", "period", 0, "must be positive")

	if verr.Unwrap() != ErrInvalidConfiguration {
		t.Errorf("Unwrap() = %v, want ErrInvalidConfiguration", verr.Unwrap())
	}
	if !errors.Is(verr, ErrInvalidConfiguration) {
		t.Error("ValidationError should wrap ErrInvalidConfiguration")
	}
	if errors.Is(verr, ErrInvalidDuration) {
		t.Error("ValidationError without kind should not match ErrInvalidDuration")
	}
}

func TestValidationError_WithKind(t *testing.T) {
	verr := NewValidationError("task", "period", 0, "must be positive").WithKind(ErrInvalidDuration)

	if !errors.Is(verr, ErrInvalidDuration) {
		t.Error("expected errors.Is to match the kind")
	}
	if !errors.Is(verr, ErrInvalidConfiguration) {
		t.Error("kind should not hide ErrInvalidConfiguration")
	}
	if errors.Is(verr, ErrInvalidScheduleExpression) {
		t.Error("unexpected match on unrelated sentinel")
	}

	wrapped := NewOperationError("task", "ArmInterval", verr)
	if !errors.Is(wrapped, ErrInvalidDuration) {
		t.Error("kind should survive wrapping")
	}
}

func TestValidationError_WithHint(t *testing.T) {
	err := NewValidationError("test", "field", 0, "invalid").
		WithHint("try using a positive value")

	if err.Hint != "try using a positive value" {
		t.Errorf("Hint = %q, want %q", err.Hint, "try using a positive value")
	}

	if result := err.WithHint("new hint"); result != err {
		t.Error("WithHint should return the same instance")
	}
}

func TestOperationError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *OperationError
		want string
	}{
		{
			name: "without context",
			err: &OperationError{
				Module:    "journal",
				Operation: "Observe",
				Cause:     errors.New("connection refused"),
			},
			want: "journal.Observe failed: connection refused",
		},
		{
			name: "with context",
			err: &OperationError{
				Module:    "config",
				Operation: "Load",
				Cause:     errors.New("file not found"),
				Context:   "tasks.yaml",
			},
			want: "config.Load failed: file not found (tasks.yaml)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestOperationError_Unwrap(t *testing.T) {
	cause := errors.New("underlying error")
	opErr := NewOperationError("test", "test", cause)

	if opErr.Unwrap() != cause {
		t.Errorf("Unwrap() = %v, want %v", opErr.Unwrap(), cause)
	}
	if !errors.Is(opErr, cause) {
		t.Error("OperationError should wrap the cause error")
	}
}

func TestOperationError_WithContext(t *testing.T) {
	err := NewOperationError("test", "op", errors.New("err")).
		WithContext("additional context")

	if err.Context != "additional context" {
		t.Errorf("Context = %q, want %q", err.Context, "additional context")
	}
	if result := err.WithContext("new context"); result != err {
		t.Error("WithContext should return the same instance")
	}
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"timeout error", ErrTimeout, true},
		{"wrapped timeout", &OperationError{Cause: ErrTimeout}, true},
		{"closed error", ErrClosed, false},
		{"invalid expression", ErrInvalidScheduleExpression, false},
		{"nil error", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRetryable(tt.err); got != tt.want {
				t.Errorf("IsRetryable() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIsValidationError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"validation error", &ValidationError{Module: "test", Field: "field", Reason: "test"}, true},
		{"wrapped validation error", &OperationError{Cause: &ValidationError{Module: "test"}}, true},
		{"operation error", &OperationError{Cause: errors.New("test")}, false},
		{"standard error", errors.New("test"), false},
		{"nil error", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsValidationError(tt.err); got != tt.want {
				t.Errorf("IsValidationError() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestErrorMessages(t *testing.T) {
	err := NewValidationError("mymodule", "myfield", 42, "must be less than 10").
		WithHint("use a value between 0 and 10")

	msg := err.Error()
	for _, part := range []string{"mymodule", "myfield", "42", "must be less than 10", "use a value between 0 and 10"} {
		if !strings.Contains(msg, part) {
			t.Errorf("error message should contain %q, got %q", part, msg)
		}
	}
}
