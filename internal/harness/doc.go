// Package harness runs navigation scenarios against a browser and checks
// the reported lifecycle events against an expected trace.
//
// # Scenario Format
//
// Scenarios are YAML files, one scenario per file:
//
//	name: iframe
//	description: "a.html loads b.html in an iframe, which redirects to c.html"
//	navigate:
//	  - url: a.html
//	expect:
//	  - { event: onBeforeNavigate, frame: 0, url: a.html }
//	  - { event: onCommitted, frame: 0, url: a.html, transition: link }
//	  - { event: onBeforeNavigate, frame: 1, url: b.html }
//	  ...
//	assertions:
//	  - type: trace_count
//	    event: onCompleted
//	    count: 3
//
// CUE files may hold several scenarios keyed by name:
//
//	scenario: iframe: {
//		navigate: [{url: "a.html"}]
//		expect: [...]
//	}
//
// Relative URLs resolve against the Env's URLResolver. frame is the
// normalized frame id: 0 for the top frame, then 1, 2, ... in order of
// first observation.
//
// # Matching
//
// Every expected event must arrive in order and nothing else may arrive.
// timeStamp and requestId are checked for presence only; extra fields can
// be relaxed per step with any and kinds, or for every step with
// wildcards.
//
// # Assertion Types
//
//   - trace_contains: an event with matching attributes appears in the trace
//   - trace_order: events appear in the given relative order
//   - trace_count: an event appears exactly N times
//
// Assertions are checked only once the trace itself is satisfied.
//
// # Golden Files
//
// Snapshot renders a trace as canonical JSON without volatile fields.
// RunWithGolden and AssertGolden compare it with
// testdata/golden/{name}.golden.
package harness
