package domain

import (
	"strings"
	"time"
)

// RequiresReason reports whether moving from previous to next is a
// reschedule that needs a written justification. Nothing is required when
// no instant was ever recorded; it does not matter whether previous came
// from the driver's request or from an earlier assignment.
func RequiresReason(previous, next *time.Time) bool {
	if previous == nil {
		return false
	}
	if next == nil {
		return true
	}
	return !next.Equal(*previous)
}

// ValidateReason fails with ErrMissingReason when a reason is required but blank.
func ValidateReason(reason string, required bool) error {
	if required && strings.TrimSpace(reason) == "" {
		return ErrMissingReason
	}
	return nil
}
