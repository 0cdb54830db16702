package validation

import (
	"time"

	tterrors "github.com/vnykmshr/ticktask/pkg/common/errors"
)

// ValidatePositiveDuration validates that a duration is strictly positive.
// The returned ValidationError matches ErrInvalidDuration.
func ValidatePositiveDuration(module, field string, value time.Duration) error {
	if value <= 0 {
		return tterrors.NewValidationError(module, field, value, "must be positive").
			WithHint("use a duration greater than 0").
			WithKind(tterrors.ErrInvalidDuration)
	}
	return nil
}

// ValidateNonNegativeDuration validates that a duration is zero or positive.
// The returned ValidationError matches ErrInvalidDuration.
func ValidateNonNegativeDuration(module, field string, value time.Duration) error {
	if value < 0 {
		return tterrors.NewValidationError(module, field, value, "cannot be negative").
			WithHint("use 0 or a positive duration").
			WithKind(tterrors.ErrInvalidDuration)
	}
	return nil
}

// ValidateNotEmpty validates that a string value is not empty.
// Returns a ValidationError if the string is empty.
func ValidateNotEmpty(module, field string, value string) error {
	if value == "" {
		return tterrors.NewValidationError(module, field, value, "cannot be empty").
			WithHint("provide a non-empty " + field)
	}
	return nil
}

// ValidatePositive validates that an integer value is positive (> 0).
// Returns a ValidationError if the value is not positive.
func ValidatePositive(module, field string, value int) error {
	if value <= 0 {
		return tterrors.NewValidationError(module, field, value, "must be positive").
			WithHint("value must be greater than 0")
	}
	return nil
}
