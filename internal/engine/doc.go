// Package engine implements the event expectation engine.
//
// A test case registers an ordered list of ExpectedEvent values with
// Expect, then feeds every event the host fires, in arrival order, to
// OnEvent (or hands a channel to Consume). Each observed event must match
// the head of the queue:
//
//   - the event name matches exactly
//   - every MatchEqual attribute deep-equals the observed value
//   - wildcard attributes (MatchAny, MatchKind) only need to be present,
//     and for MatchKind to have the right kind
//
// The queue is never reordered. The first mismatch fails the case; there
// is no retry and no partial credit. Events after the last expected one
// fail the case too unless WithTrailingTolerance is set.
//
// Per-frame interleaving is the host's business: the engine sees one
// serialized stream and checks it against one total order. Timeouts are
// the caller's business as well; cancel the context given to Consume and
// the case ends with INCOMPLETE_SEQUENCE.
package engine
