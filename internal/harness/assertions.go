package harness

import (
	"fmt"
	"sort"
	"strings"

	"github.com/roach88/navexpect/internal/ir"
)

// Assertion is an extra check over the observed trace. The expected trace
// already pins exact order; assertions cover what a tolerant scenario lets
// through, such as trailing events.
type Assertion struct {
	// Type is one of trace_contains, trace_order, trace_count.
	Type string `yaml:"type" json:"type"`

	// Event is the event name (trace_contains, trace_count).
	Event string `yaml:"event,omitempty" json:"event,omitempty"`

	// Attrs is a subset of attributes the event must carry (trace_contains,
	// trace_count).
	Attrs map[string]any `yaml:"attrs,omitempty" json:"attrs,omitempty"`

	// Count is the exact number of matching events (trace_count).
	Count int `yaml:"count,omitempty" json:"count,omitempty"`

	// Events lists event names that must appear in this relative order
	// (trace_order). Other events may come in between.
	Events []string `yaml:"events,omitempty" json:"events,omitempty"`
}

// Assertion type constants.
const (
	AssertTraceContains = "trace_contains"
	AssertTraceOrder    = "trace_order"
	AssertTraceCount    = "trace_count"
)

// AssertionError is returned when an assertion fails.
type AssertionError struct {
	Type     string
	Expected string
	Actual   string
	Trace    []TraceEvent
}

func (e *AssertionError) Error() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	fmt.Fprintf(&buf, "\nFull trace:\n")
	for _, ev := range e.Trace {
		fmt.Fprintf(&buf, "  [%d] %s %s\n", ev.Seq, ev.Event, ir.Format(ev.Attributes))
	}
	return buf.String()
}

// EvaluateAssertions runs every assertion and returns the failure messages.
func EvaluateAssertions(trace []TraceEvent, assertions []Assertion) []string {
	var errs []string
	for _, a := range assertions {
		var err error
		switch a.Type {
		case AssertTraceContains:
			err = assertTraceContains(trace, a)
		case AssertTraceOrder:
			err = assertTraceOrder(trace, a)
		case AssertTraceCount:
			err = assertTraceCount(trace, a)
		default:
			err = fmt.Errorf("unknown assertion type %q", a.Type)
		}
		if err != nil {
			errs = append(errs, err.Error())
		}
	}
	return errs
}

// matchAttrs reports whether attrs holds every expected field (subset match).
func matchAttrs(attrs ir.Object, expected map[string]any) bool {
	for field, raw := range expected {
		want, err := ir.FromAny(raw)
		if err != nil {
			return false
		}
		if !ir.Equal(want, attrs[field]) {
			return false
		}
	}
	return true
}

func formatAttrs(attrs map[string]any) string {
	if len(attrs) == 0 {
		return "{}"
	}
	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%v", k, attrs[k])
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

func assertTraceContains(trace []TraceEvent, a Assertion) error {
	for _, ev := range trace {
		if ev.Event == a.Event && matchAttrs(ev.Attributes, a.Attrs) {
			return nil
		}
	}
	return &AssertionError{
		Type:     AssertTraceContains,
		Expected: fmt.Sprintf("%s with %s", a.Event, formatAttrs(a.Attrs)),
		Actual:   "not found in trace",
		Trace:    trace,
	}
}

// assertTraceOrder checks that events appear in order. Each name is
// matched at its first occurrence after the previous one.
func assertTraceOrder(trace []TraceEvent, a Assertion) error {
	pos := 0
	for _, name := range a.Events {
		found := false
		for pos < len(trace) {
			ev := trace[pos]
			pos++
			if ev.Event == name {
				found = true
				break
			}
		}
		if !found {
			return &AssertionError{
				Type:     AssertTraceOrder,
				Expected: fmt.Sprintf("events in order: %v", a.Events),
				Actual:   fmt.Sprintf("%s not found after position %d", name, pos),
				Trace:    trace,
			}
		}
	}
	return nil
}

func assertTraceCount(trace []TraceEvent, a Assertion) error {
	count := 0
	for _, ev := range trace {
		if ev.Event == a.Event && matchAttrs(ev.Attributes, a.Attrs) {
			count++
		}
	}
	if count != a.Count {
		return &AssertionError{
			Type:     AssertTraceCount,
			Expected: fmt.Sprintf("%d occurrences of %s with %s", a.Count, a.Event, formatAttrs(a.Attrs)),
			Actual:   fmt.Sprintf("%d occurrences", count),
			Trace:    trace,
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertTraceContains:
		if a.Event == "" {
			return fmt.Errorf("assertions[%d]: event is required for trace_contains", index)
		}
	case AssertTraceOrder:
		if len(a.Events) == 0 {
			return fmt.Errorf("assertions[%d]: events list is required for trace_order", index)
		}
	case AssertTraceCount:
		if a.Event == "" {
			return fmt.Errorf("assertions[%d]: event is required for trace_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for trace_count", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	for field, raw := range a.Attrs {
		if _, err := ir.FromAny(raw); err != nil {
			return fmt.Errorf("assertions[%d].attrs.%s: %w", index, field, err)
		}
	}
	return nil
}
