package engine

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorCode categorizes expectation failures.
type ErrorCode string

const (
	// ErrCodeUnexpectedEvent: an observed event did not match the queue
	// head, arrived with nothing registered, or arrived after the sequence
	// was satisfied.
	ErrCodeUnexpectedEvent ErrorCode = "UNEXPECTED_EVENT"

	// ErrCodeEmptyExpectation: Expect was called with no events.
	ErrCodeEmptyExpectation ErrorCode = "EMPTY_EXPECTATION"

	// ErrCodeDoubleRegistration: Expect was called without a Reset since
	// the previous registration.
	ErrCodeDoubleRegistration ErrorCode = "DOUBLE_REGISTRATION"

	// ErrCodeIncompleteSequence: the case ended with events still pending.
	ErrCodeIncompleteSequence ErrorCode = "INCOMPLETE_SEQUENCE"

	// ErrCodeInvalidExpectation: a registered event is malformed.
	ErrCodeInvalidExpectation ErrorCode = "INVALID_EXPECTATION"
)

// ExpectationError is the failure reported for a test case.
//
// Every error is fatal to its case. Fields beyond Code and Message are
// filled when they apply.
type ExpectationError struct {
	Code    ErrorCode
	Message string

	// Index is the position in the registered sequence where the failure
	// occurred, or -1 when not tied to a position.
	Index int

	// Expected is the queue head at the time of an UNEXPECTED_EVENT.
	// Nil for trailing events.
	Expected *ExpectedEvent

	// Observed is the offending event.
	Observed *ObservedEvent

	// Diffs lists the attributes that failed to match.
	Diffs []AttrDiff

	// Pending holds the events never observed (INCOMPLETE_SEQUENCE).
	Pending []ExpectedEvent
}

// Error renders a human-readable report with the expected/observed diff.
func (e *ExpectationError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s", e.Code, e.Message)

	if e.Expected != nil {
		fmt.Fprintf(&b, "\n  expected[%d]: %s", e.Index, e.Expected)
	}
	if e.Observed != nil {
		fmt.Fprintf(&b, "\n  observed (seq %d): %s", e.Observed.Seq, e.Observed)
	}
	for _, d := range e.Diffs {
		if d.Field == "" {
			fmt.Fprintf(&b, "\n    - event: expected %s, observed %s", d.Expected, d.Observed)
			continue
		}
		fmt.Fprintf(&b, "\n    - %s: expected %s, observed %s (%s)", d.Field, d.Expected, d.Observed, d.Reason)
	}
	if len(e.Pending) > 0 {
		fmt.Fprintf(&b, "\n  pending (%d):", len(e.Pending))
		for i, p := range e.Pending {
			fmt.Fprintf(&b, "\n    [%d] %s", e.Index+i, p)
		}
	}
	return b.String()
}

func hasCode(err error, code ErrorCode) bool {
	var ee *ExpectationError
	if errors.As(err, &ee) {
		return ee.Code == code
	}
	return false
}

// IsUnexpectedEvent reports whether err is an UNEXPECTED_EVENT failure.
func IsUnexpectedEvent(err error) bool { return hasCode(err, ErrCodeUnexpectedEvent) }

// IsEmptyExpectation reports whether err is an EMPTY_EXPECTATION failure.
func IsEmptyExpectation(err error) bool { return hasCode(err, ErrCodeEmptyExpectation) }

// IsDoubleRegistration reports whether err is a DOUBLE_REGISTRATION failure.
func IsDoubleRegistration(err error) bool { return hasCode(err, ErrCodeDoubleRegistration) }

// IsIncompleteSequence reports whether err is an INCOMPLETE_SEQUENCE failure.
func IsIncompleteSequence(err error) bool { return hasCode(err, ErrCodeIncompleteSequence) }

// CodeOf returns the error code of err, or "" if err is not an
// ExpectationError.
func CodeOf(err error) ErrorCode {
	var ee *ExpectationError
	if errors.As(err, &ee) {
		return ee.Code
	}
	return ""
}

func newMismatchError(index int, exp ExpectedEvent, obs ObservedEvent, diffs []AttrDiff) *ExpectationError {
	msg := fmt.Sprintf("event %d does not match expectation", index)
	if exp.Name != obs.Name {
		msg = fmt.Sprintf("expected %s at position %d, observed %s", exp.Name, index, obs.Name)
	}
	return &ExpectationError{
		Code:     ErrCodeUnexpectedEvent,
		Message:  msg,
		Index:    index,
		Expected: &exp,
		Observed: &obs,
		Diffs:    diffs,
	}
}

func newTrailingError(index int, obs ObservedEvent) *ExpectationError {
	return &ExpectationError{
		Code:     ErrCodeUnexpectedEvent,
		Message:  fmt.Sprintf("event observed after all %d expected events were satisfied", index),
		Index:    index,
		Observed: &obs,
	}
}

func newUnregisteredError(obs ObservedEvent) *ExpectationError {
	return &ExpectationError{
		Code:     ErrCodeUnexpectedEvent,
		Message:  "event observed before any expectation was registered",
		Index:    -1,
		Observed: &obs,
	}
}

func newEmptyError() *ExpectationError {
	return &ExpectationError{
		Code:    ErrCodeEmptyExpectation,
		Message: "expected sequence must contain at least one event",
		Index:   -1,
	}
}

func newDoubleRegistrationError(state State, pending int) *ExpectationError {
	return &ExpectationError{
		Code:    ErrCodeDoubleRegistration,
		Message: fmt.Sprintf("expectation already registered (state %s, %d pending); call Reset first", state, pending),
		Index:   -1,
	}
}

func newIncompleteError(index int, pending []ExpectedEvent) *ExpectationError {
	return &ExpectationError{
		Code:    ErrCodeIncompleteSequence,
		Message: fmt.Sprintf("test case ended with %d expected event(s) not observed", len(pending)),
		Index:   index,
		Pending: pending,
	}
}

func newInvalidError(err error) *ExpectationError {
	return &ExpectationError{
		Code:    ErrCodeInvalidExpectation,
		Message: err.Error(),
		Index:   -1,
	}
}
