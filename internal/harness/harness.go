package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/roach88/navexpect/internal/engine"
	"github.com/roach88/navexpect/internal/store"
	"github.com/roach88/navexpect/internal/webnav"
)

// BrowserFactory opens a fresh browser for one scenario. Each scenario gets
// its own browser so frame and tab numbering starts over.
type BrowserFactory func(ctx context.Context) (webnav.Browser, error)

// Recorder persists runs. *store.Store satisfies it.
type Recorder interface {
	BeginRun(ctx context.Context, id, scenario string) error
	RecordEvent(ctx context.Context, runID string, ev engine.ObservedEvent) (string, error)
	FinishRun(ctx context.Context, id string, out store.Outcome) error
}

var _ Recorder = (*store.Store)(nil)

// Metrics receives run statistics.
type Metrics interface {
	ObserveEvent(name string)
	ObserveFailure(code string)
	ObserveScenario(pass bool, elapsed time.Duration)
}

type nopMetrics struct{}

func (nopMetrics) ObserveEvent(string)                 {}
func (nopMetrics) ObserveFailure(string)               {}
func (nopMetrics) ObserveScenario(bool, time.Duration) {}

// Env holds what a run needs besides the scenario itself.
type Env struct {
	// Browser opens the event source. Required by Run, unused by Replay.
	Browser BrowserFactory

	// Resolver resolves relative scenario URLs. Nil uses URLs as written.
	Resolver *webnav.URLResolver

	Logger   *slog.Logger
	Recorder Recorder // optional
	Metrics  Metrics  // optional
	RunIDs   RunIDGenerator

	// Settle keeps listening this long after the trace is satisfied so
	// trailing events are caught. Zero stops at the last match.
	Settle time.Duration
}

func (env Env) withDefaults() Env {
	if env.Logger == nil {
		env.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if env.Metrics == nil {
		env.Metrics = nopMetrics{}
	}
	if env.RunIDs == nil {
		env.RunIDs = UUIDv7Generator{}
	}
	return env
}

// session is one pass of the engine over an event source.
type session struct {
	src      webnav.Source
	navigate func(ctx context.Context) error

	// drain reads the source until it closes instead of stopping at the
	// last match.
	drain bool
}

// Run opens a browser, performs the scenario's navigations and matches the
// reported lifecycle events against the expected trace.
//
// A failed expectation is reported in the Result, not as an error. The
// error return is for infrastructure problems: the scenario cannot be
// compiled, the browser cannot start, or the recorder fails.
func Run(ctx context.Context, env Env, s *Scenario) (*Result, error) {
	env = env.withDefaults()
	if env.Browser == nil {
		return nil, fmt.Errorf("run %s: no browser factory", s.Name)
	}

	browser, err := env.Browser(ctx)
	if err != nil {
		return nil, fmt.Errorf("run %s: open browser: %w", s.Name, err)
	}
	events := browser.Events()
	defer func() {
		if err := browser.Close(); err != nil {
			env.Logger.Warn("browser close failed", "scenario", s.Name, "error", err)
		}
		for range events {
		}
	}()

	nav := func(ctx context.Context) error {
		for i, step := range s.Navigate {
			url, err := env.Resolver.Resolve(step.URL)
			if err != nil {
				return fmt.Errorf("navigate[%d]: %w", i, err)
			}
			env.Logger.Debug("navigating", "scenario", s.Name, "tab", step.Tab, "url", url)
			if err := browser.Navigate(ctx, step.Tab, url); err != nil {
				return fmt.Errorf("navigate[%d] %s: %w", i, url, err)
			}
		}
		return nil
	}
	return execute(ctx, env, s, session{src: browser, navigate: nav})
}

// Replay matches previously recorded events against the scenario. Events
// keep their recorded seq, so a faithful replay reproduces the original
// trace digest.
func Replay(ctx context.Context, env Env, s *Scenario, events []engine.ObservedEvent) (*Result, error) {
	env = env.withDefaults()

	q := webnav.NewQueue()
	for _, ev := range events {
		q.Push(ev)
	}
	q.Close()

	src := queueSource{q}
	defer func() {
		for range src.Events() {
		}
	}()
	return execute(ctx, env, s, session{src: src, drain: true})
}

type queueSource struct{ q *webnav.Queue }

func (s queueSource) Events() <-chan engine.ObservedEvent { return s.q.Events() }

func (s queueSource) Close() error {
	s.q.Close()
	return nil
}

func execute(ctx context.Context, env Env, s *Scenario, sess session) (*Result, error) {
	start := time.Now()
	runID := env.RunIDs.Generate()
	logger := env.Logger.With("scenario", s.Name, "run_id", runID)
	result := NewResult(runID, s.Name)

	expected, err := s.ToExpected(env.Resolver)
	if err != nil {
		return nil, fmt.Errorf("run %s: %w", s.Name, err)
	}
	result.Expected = len(expected)

	if env.Recorder != nil {
		if err := env.Recorder.BeginRun(ctx, runID, s.Name); err != nil {
			return nil, fmt.Errorf("run %s: %w", s.Name, err)
		}
	}

	// The observer cannot return an error, so the first recorder failure
	// is kept and reported once the case ends.
	var recErr error
	eng := engine.New(
		engine.WithLogger(logger),
		engine.WithTrailingTolerance(s.TolerateTrailing),
		engine.WithReporter(engine.ReporterFuncs{
			Passed: func() { logger.Info("case passed") },
			Failed: func(err error) { logger.Info("case failed", "code", string(engine.CodeOf(err))) },
		}),
		engine.WithObserver(func(ev engine.ObservedEvent) {
			env.Metrics.ObserveEvent(ev.Name)
			if env.Recorder == nil || recErr != nil {
				return
			}
			if _, err := env.Recorder.RecordEvent(ctx, runID, ev); err != nil {
				recErr = err
			}
		}),
	)

	if err := eng.Expect(expected); err == nil {
		if err := consume(ctx, eng, s, env, sess); err != nil {
			result.AddError(err.Error())
		}
	}
	eng.Finish()

	for _, ev := range eng.Trace() {
		if err := result.AddTrace(ev); err != nil {
			return nil, fmt.Errorf("run %s: %w", s.Name, err)
		}
	}
	result.finalize()
	result.State = eng.State().String()
	result.Matched = eng.Matched()
	result.setFailure(eng.Err())

	if eng.State() == engine.StateSatisfied {
		for _, msg := range EvaluateAssertions(result.Trace, s.Assertions) {
			result.AddError(msg)
		}
	}

	code := engine.CodeOf(eng.Err())
	if code != "" {
		env.Metrics.ObserveFailure(string(code))
	}
	env.Metrics.ObserveScenario(result.Pass, time.Since(start))

	if env.Recorder != nil {
		out := store.Outcome{
			State:       eng.State(),
			Pass:        result.Pass,
			ErrorCode:   code,
			Error:       strings.Join(result.Errors, "\n"),
			TraceDigest: result.Digest,
		}
		if err := env.Recorder.FinishRun(ctx, runID, out); err != nil && recErr == nil {
			recErr = err
		}
	}
	if recErr != nil {
		return result, fmt.Errorf("run %s: record: %w", s.Name, recErr)
	}

	logger.Info("scenario finished",
		"pass", result.Pass,
		"state", result.State,
		"events", len(result.Trace),
		"duration", time.Since(start),
	)
	return result, nil
}

// consume navigates and feeds events to eng until the case ends. It returns
// only navigation errors; expectation failures stay on the engine.
func consume(ctx context.Context, eng *engine.Engine, s *Scenario, env Env, sess session) error {
	runCtx, cancel := context.WithTimeout(ctx, s.TimeoutDuration())
	defer cancel()

	events := sess.src.Events()
	if sess.navigate != nil {
		if err := sess.navigate(runCtx); err != nil {
			return err
		}
	}

	if eng.Consume(runCtx, events) != nil {
		return nil
	}

	switch {
	case sess.drain:
		eng.Consume(ctx, events)
	case env.Settle > 0:
		settleCtx, cancel := context.WithTimeout(ctx, env.Settle)
		defer cancel()
		eng.Consume(settleCtx, events)
	}
	return nil
}

// RunAll runs each scenario in order. It stops at the first infrastructure
// error; expectation failures do not stop it.
func RunAll(ctx context.Context, env Env, scenarios []*Scenario) ([]*Result, error) {
	results := make([]*Result, 0, len(scenarios))
	for _, s := range scenarios {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		r, err := Run(ctx, env, s)
		if err != nil {
			return results, err
		}
		results = append(results, r)
	}
	return results, nil
}
