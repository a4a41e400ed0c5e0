package core

import (
	"context"
	"errors"
	"fmt"
)

// ErrEmptyEmail is returned when the email content is empty or
// whitespace-only. No external call is made in that case.
var ErrEmptyEmail = errors.New("email content is empty")

// errShortRewrite marks a rewrite response too short to be a usable email.
var errShortRewrite = errors.New("rewrite response empty or too short")

// TransientError marks a rewrite-service failure that is worth retrying:
// network timeouts, rate-limit rejections, malformed responses.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("transient rewrite failure: %v", e.Err)
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// PermanentError marks a rewrite-service failure that must not be retried,
// such as authentication or configuration errors.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string {
	return fmt.Sprintf("permanent rewrite failure: %v", e.Err)
}

func (e *PermanentError) Unwrap() error {
	return e.Err
}

// ScoringError marks a classifier failure. Without a score no acceptance
// decision is possible, so the whole run aborts.
type ScoringError struct {
	Err error
}

func (e *ScoringError) Error() string {
	return fmt.Sprintf("scoring failure: %v", e.Err)
}

func (e *ScoringError) Unwrap() error {
	return e.Err
}

// IsPermanent reports whether err is a non-retryable rewrite failure.
func IsPermanent(err error) bool {
	var pe *PermanentError
	return errors.As(err, &pe)
}

// IsTransient reports whether err should be retried with backoff. A timed
// out call counts as transient; unclassified errors do too, so a flaky
// provider gets its retry budget before the run is abandoned.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	return !IsPermanent(err)
}
