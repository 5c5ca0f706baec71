package engine

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/navexpect/internal/ir"
)

func TestErrorPredicates(t *testing.T) {
	mismatch := newMismatchError(0, nav("a", 0, "x"), seen("b", 0, "x", 1), nil)
	wrapped := fmt.Errorf("case iframe: %w", mismatch)

	assert.True(t, IsUnexpectedEvent(wrapped))
	assert.False(t, IsIncompleteSequence(wrapped))
	assert.Equal(t, ErrCodeUnexpectedEvent, CodeOf(wrapped))

	assert.True(t, IsEmptyExpectation(newEmptyError()))
	assert.True(t, IsDoubleRegistration(newDoubleRegistrationError(StateExpecting, 2)))
	assert.True(t, IsIncompleteSequence(newIncompleteError(1, nil)))

	assert.False(t, IsUnexpectedEvent(errors.New("plain")))
	assert.False(t, IsUnexpectedEvent(nil))
	assert.Equal(t, ErrorCode(""), CodeOf(errors.New("plain")))
}

func TestExpectationError_RendersDiff(t *testing.T) {
	exp := nav("onCommitted", 0, "a.html")
	obs := seen("onCommitted", 1, "a.html", 7)
	obs.Seq = 4
	err := newMismatchError(2, exp, obs, matchEvent(exp, obs))

	msg := err.Error()
	assert.Contains(t, msg, "UNEXPECTED_EVENT: event 2 does not match expectation")
	assert.Contains(t, msg, "expected[2]: onCommitted{")
	assert.Contains(t, msg, "observed (seq 4): onCommitted{")
	assert.Contains(t, msg, "- frameId: expected 0, observed 1 (value mismatch)")
}

func TestExpectationError_RendersNameDiff(t *testing.T) {
	err := newMismatchError(0, nav("onCommitted", 0, "a"), seen("onCompleted", 0, "a", 1), []AttrDiff{
		{Expected: "onCommitted", Observed: "onCompleted", Reason: reasonNameDiff},
	})
	assert.Contains(t, err.Error(), "expected onCommitted at position 0, observed onCompleted")
	assert.Contains(t, err.Error(), "- event: expected onCommitted, observed onCompleted")
}

func TestExpectationError_RendersPending(t *testing.T) {
	err := newIncompleteError(1, []ExpectedEvent{
		NewExpectedEvent("onDOMContentLoaded", ir.Object{"frameId": ir.Int(0)}),
		NewExpectedEvent("onCompleted", ir.Object{"frameId": ir.Int(0)}),
	})
	msg := err.Error()
	assert.Contains(t, msg, "INCOMPLETE_SEQUENCE: test case ended with 2 expected event(s) not observed")
	assert.Contains(t, msg, "[1] onDOMContentLoaded{frameId: 0}")
	assert.Contains(t, msg, "[2] onCompleted{frameId: 0}")
}
