package retry

import (
	"errors"
	"fmt"
)

// ErrBudgetExhausted wraps the last failure once every attempt has been used.
var ErrBudgetExhausted = errors.New("retry budget exhausted")

// RateLimitError marks an upstream throttle response. Retried on the
// exponential schedule with a bounded random offset added to each wait.
type RateLimitError struct {
	Err error
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limited: %v", e.Err)
}

func (e *RateLimitError) Unwrap() error { return e.Err }

// TransientError marks a connection-level failure that is worth retrying.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("transient failure: %v", e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }

// MalformedError marks a response that arrived but did not have the expected
// shape. It counts against the same attempt budget as network failures.
type MalformedError struct {
	Err error
}

func (e *MalformedError) Error() string {
	return fmt.Sprintf("malformed response: %v", e.Err)
}

func (e *MalformedError) Unwrap() error { return e.Err }

// Retryable reports whether err belongs to one of the retryable classes.
func Retryable(err error) bool {
	var rl *RateLimitError
	var tr *TransientError
	var mf *MalformedError
	return errors.As(err, &rl) || errors.As(err, &tr) || errors.As(err, &mf)
}
