package k8s

import (
	"errors"
	"fmt"
	"time"
)

// TimeoutError reports that a readiness condition was not met within its
// budget. Callers can distinguish it from hard API failures with IsTimeout
// and report the budget that was exhausted.
type TimeoutError struct {
	Budget  time.Duration
	Message string
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("timed out after %s: %s", e.Budget, e.Message)
}

// IsTimeout reports whether err is (or wraps) a readiness timeout.
func IsTimeout(err error) bool {
	var te *TimeoutError
	return errors.As(err, &te)
}
