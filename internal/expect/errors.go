package expect

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrTimeout matches every *TimeoutError.
	ErrTimeout = errors.New("timed out")
	// ErrAssertion matches every *AssertionError.
	ErrAssertion = errors.New("assertion failed")
)

// TimeoutError reports a condition that never held within its wait.
type TimeoutError struct {
	What    string
	Timeout time.Duration
	Elapsed time.Duration
	Last    string // last observed value, if any
	LastErr error  // last error from the check, if any
}

func (e *TimeoutError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "timed out after %s waiting for %s", e.Timeout, e.What)
	if e.Last != "" {
		fmt.Fprintf(&b, " (last: %s)", e.Last)
	}
	if e.LastErr != nil {
		fmt.Fprintf(&b, ": %v", e.LastErr)
	}
	return b.String()
}

func (e *TimeoutError) Is(target error) bool { return target == ErrTimeout }

func (e *TimeoutError) Unwrap() error { return e.LastErr }

// AssertionError reports a condition that was evaluated and did not hold.
type AssertionError struct {
	What     string
	Expected string
	Actual   string
}

func (e *AssertionError) Error() string {
	return fmt.Sprintf("%s: expected %s, got %s", e.What, e.Expected, e.Actual)
}

func (e *AssertionError) Is(target error) bool { return target == ErrAssertion }

// SoftError carries every soft failure recorded during one test.
type SoftError struct {
	Failures []error
}

func (e *SoftError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d soft assertion(s) failed", len(e.Failures))
	for _, f := range e.Failures {
		b.WriteString("\n  - ")
		b.WriteString(f.Error())
	}
	return b.String()
}

func (e *SoftError) Unwrap() []error { return e.Failures }
