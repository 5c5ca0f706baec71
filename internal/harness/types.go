package harness

import (
	"github.com/roach88/navexpect/internal/engine"
	"github.com/roach88/navexpect/internal/ir"
)

// TraceEvent is one observed event in a result trace.
type TraceEvent struct {
	Seq        int64     `json:"seq"`
	Event      string    `json:"event"`
	Attributes ir.Object `json:"attributes"`
	Hash       string    `json:"event_hash,omitempty"`
}

// Failure describes why the engine failed the case.
type Failure struct {
	Code    engine.ErrorCode  `json:"code"`
	Message string            `json:"message"`
	Index   int               `json:"index"`
	Diffs   []engine.AttrDiff `json:"diffs,omitempty"`
	Pending int               `json:"pending,omitempty"`
}

// Result is the outcome of running one scenario.
type Result struct {
	RunID    string `json:"run_id"`
	Scenario string `json:"scenario"`

	// Pass is true when the engine reached Satisfied and every assertion
	// held.
	Pass bool `json:"pass"`

	// State is the engine's final state.
	State string `json:"state"`

	// Matched counts expected events observed before the case ended.
	Matched  int `json:"matched"`
	Expected int `json:"expected"`

	// Trace holds every observed event in arrival order.
	Trace []TraceEvent `json:"trace"`

	// Digest folds the event hashes of Trace.
	Digest string `json:"trace_digest"`

	Failure *Failure `json:"failure,omitempty"`

	// Errors holds human-readable failure messages. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a passing result with an empty trace.
func NewResult(runID, scenario string) *Result {
	return &Result{
		RunID:    runID,
		Scenario: scenario,
		Pass:     true,
		Trace:    []TraceEvent{},
		Errors:   []string{},
	}
}

// AddError records a failure message and marks the result failed.
func (r *Result) AddError(msg string) {
	r.Errors = append(r.Errors, msg)
	r.Pass = false
}

// AddTrace appends an observed event, hashing it for the digest.
func (r *Result) AddTrace(ev engine.ObservedEvent) error {
	hash, err := ir.EventHash(ev.Name, ev.Attributes, ev.Seq)
	if err != nil {
		return err
	}
	r.Trace = append(r.Trace, TraceEvent{
		Seq:        ev.Seq,
		Event:      ev.Name,
		Attributes: ev.Attributes,
		Hash:       hash,
	})
	return nil
}

// setFailure copies the engine failure into the result.
func (r *Result) setFailure(err error) {
	if err == nil {
		return
	}
	r.AddError(err.Error())
	ee, ok := err.(*engine.ExpectationError)
	if !ok {
		return
	}
	r.Failure = &Failure{
		Code:    ee.Code,
		Message: ee.Message,
		Index:   ee.Index,
		Diffs:   ee.Diffs,
		Pending: len(ee.Pending),
	}
}

// finalize computes the trace digest.
func (r *Result) finalize() {
	hashes := make([]string, len(r.Trace))
	for i, ev := range r.Trace {
		hashes[i] = ev.Hash
	}
	r.Digest = ir.TraceDigest(hashes)
}
