package engine

import (
	"context"
	"io"
	"log/slog"
)

// Reporter receives the outcome of a test case. It stands in for the
// surrounding test framework so the engine never reaches for global
// harness state.
type Reporter interface {
	CasePassed()
	CaseFailed(err error)
}

type nopReporter struct{}

func (nopReporter) CasePassed()      {}
func (nopReporter) CaseFailed(error) {}

// ReporterFuncs adapts plain functions to Reporter. Nil fields are no-ops.
type ReporterFuncs struct {
	Passed func()
	Failed func(err error)
}

func (r ReporterFuncs) CasePassed() {
	if r.Passed != nil {
		r.Passed()
	}
}

func (r ReporterFuncs) CaseFailed(err error) {
	if r.Failed != nil {
		r.Failed(err)
	}
}

// Engine matches a live stream of observed events against one registered
// sequence of expected events.
//
// State machine per test case:
//
//	Idle --Expect--> Expecting --last match--> Satisfied
//	                     |                         |
//	                  mismatch              trailing event (strict)
//	                     v                         v
//	                   Failed <--------------------+
//
// Only Reset leaves Failed or Satisfied.
//
// Engine is a single-threaded consumer and does no locking: the host
// serializes callbacks, and each OnEvent must return before the next one
// starts. Use Consume to drive it from a channel.
type Engine struct {
	state    State
	queue    []ExpectedEvent
	total    int
	failure  *ExpectationError
	trace    []ObservedEvent
	clock    *Clock
	reporter Reporter
	logger   *slog.Logger
	observer func(ObservedEvent)

	tolerateTrailing bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithReporter sets the collaborator notified when a case passes or fails.
func WithReporter(r Reporter) Option {
	return func(e *Engine) {
		if r != nil {
			e.reporter = r
		}
	}
}

// WithLogger sets the structured logger. Defaults to a discarding logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithClock sets the clock used to stamp unstamped events.
func WithClock(c *Clock) Option {
	return func(e *Engine) {
		if c != nil {
			e.clock = c
		}
	}
}

// WithTrailingTolerance makes events arriving after the sequence is
// satisfied harmless. By default they fail the case.
func WithTrailingTolerance(tolerate bool) Option {
	return func(e *Engine) {
		e.tolerateTrailing = tolerate
	}
}

// WithObserver registers fn to see every event, stamped, before it is
// matched. Recorders and metrics hook in here.
func WithObserver(fn func(ObservedEvent)) Option {
	return func(e *Engine) {
		e.observer = fn
	}
}

// New creates an idle Engine.
func New(opts ...Option) *Engine {
	e := &Engine{
		state:    StateIdle,
		clock:    NewClock(),
		reporter: nopReporter{},
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Expect registers the full expected trace for one test case.
//
// It fails with EMPTY_EXPECTATION for an empty sequence and with
// DOUBLE_REGISTRATION unless the engine is Idle. Both failures end the
// case. The sequence is copied; later changes to seq have no effect.
func (e *Engine) Expect(seq []ExpectedEvent) error {
	if e.state != StateIdle {
		return e.fail(newDoubleRegistrationError(e.state, len(e.queue)))
	}
	if len(seq) == 0 {
		return e.fail(newEmptyError())
	}
	queue := make([]ExpectedEvent, len(seq))
	for i, ev := range seq {
		if err := validateExpected(i, ev); err != nil {
			return e.fail(newInvalidError(err))
		}
		queue[i] = ev.clone()
	}

	e.queue = queue
	e.total = len(queue)
	e.state = StateExpecting
	e.logger.Debug("expectation registered", "events", e.total)
	return nil
}

// OnEvent processes one observed event in arrival order.
//
// The event is compared to the head of the queue. A full match pops the
// head and, when the queue empties, moves the case to Satisfied. Any
// mismatch is immediately fatal. In Failed the original failure is
// returned again and nothing changes.
func (e *Engine) OnEvent(ev ObservedEvent) error {
	if ev.Seq == 0 {
		ev.Seq = e.clock.Next()
	}
	e.trace = append(e.trace, ev)
	if e.observer != nil {
		e.observer(ev)
	}

	switch e.state {
	case StateFailed:
		return e.failure
	case StateIdle:
		return e.fail(newUnregisteredError(ev))
	case StateSatisfied:
		if e.tolerateTrailing {
			e.logger.Debug("trailing event ignored", "event", ev.Name, "seq", ev.Seq)
			return nil
		}
		return e.fail(newTrailingError(e.total, ev))
	}

	index := e.total - len(e.queue)
	head := e.queue[0]
	if diffs := matchEvent(head, ev); len(diffs) > 0 {
		return e.fail(newMismatchError(index, head, ev, diffs))
	}

	e.queue[0] = ExpectedEvent{}
	e.queue = e.queue[1:]
	e.logger.Debug("event matched", "index", index, "event", ev.Name, "seq", ev.Seq)

	if len(e.queue) == 0 {
		e.queue = nil
		e.state = StateSatisfied
		e.logger.Info("expectation satisfied", "events", e.total)
		e.reporter.CasePassed()
	}
	return nil
}

// Finish ends the test case. Pending events turn into an
// INCOMPLETE_SEQUENCE failure; a case that already failed returns its
// original failure. Finish on an Idle engine is a no-op.
func (e *Engine) Finish() error {
	switch e.state {
	case StateExpecting:
		pending := make([]ExpectedEvent, len(e.queue))
		copy(pending, e.queue)
		return e.fail(newIncompleteError(e.total-len(e.queue), pending))
	case StateFailed:
		return e.failure
	}
	return nil
}

// Consume feeds events from ch to OnEvent.
//
// It returns once the case fails, once an Expecting case becomes
// Satisfied, or when ch closes or ctx ends; the last two finish the case,
// so a stalled sequence reports INCOMPLETE_SEQUENCE. Called on an already
// Satisfied engine it keeps reading until ch closes or ctx ends, which lets
// the harness watch a settle window for trailing events.
func (e *Engine) Consume(ctx context.Context, ch <-chan ObservedEvent) error {
	if e.state == StateFailed {
		return e.failure
	}
	watchTrailing := e.state == StateSatisfied

	for {
		select {
		case <-ctx.Done():
			return e.Finish()
		case ev, ok := <-ch:
			if !ok {
				return e.Finish()
			}
			if err := e.OnEvent(ev); err != nil {
				return err
			}
			if e.state == StateSatisfied && !watchTrailing {
				return nil
			}
		}
	}
}

// Reset returns the engine to Idle for the next test case.
func (e *Engine) Reset() {
	e.state = StateIdle
	e.queue = nil
	e.total = 0
	e.failure = nil
	e.trace = nil
	e.clock.Reset()
}

// State returns the current state.
func (e *Engine) State() State { return e.state }

// Err returns the failure that ended the case, or nil.
func (e *Engine) Err() error {
	if e.failure == nil {
		return nil
	}
	return e.failure
}

// Pending returns a copy of the events not yet observed.
func (e *Engine) Pending() []ExpectedEvent {
	out := make([]ExpectedEvent, len(e.queue))
	copy(out, e.queue)
	return out
}

// Matched returns how many expected events have been observed.
func (e *Engine) Matched() int {
	return e.total - len(e.queue)
}

// Trace returns every event seen in this case, in arrival order.
func (e *Engine) Trace() []ObservedEvent {
	out := make([]ObservedEvent, len(e.trace))
	copy(out, e.trace)
	return out
}

// fail records err as the case failure unless the case already failed,
// and reports it. The error returned is always err so the caller learns
// what it did wrong even when an earlier failure stands.
func (e *Engine) fail(err *ExpectationError) error {
	if e.state != StateFailed {
		e.state = StateFailed
		e.failure = err
		e.logger.Warn("expectation failed", "code", string(err.Code), "index", err.Index)
		e.reporter.CaseFailed(err)
	}
	return err
}
