package parsing

import (
	"fmt"
	"time"
)

// ParseError reports a completion that failed or produced output that could not be decoded.
// Raw holds the model output when one was received.
type ParseError struct {
	Op      string
	Message string
	Raw     string
	Cause   error
}

func (e *ParseError) Error() string {
	if e.Cause == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Message, e.Cause)
}

func (e *ParseError) Unwrap() error {
	return e.Cause
}

// TimeoutError reports a completion call that did not finish within the parser timeout.
type TimeoutError struct {
	Op      string
	Timeout time.Duration
	Cause   error
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s: completion timed out after %s", e.Op, e.Timeout)
}

func (e *TimeoutError) Unwrap() error {
	return e.Cause
}
