package engine

import (
	"fmt"
	"sort"
	"strings"

	"github.com/roach88/navexpect/internal/ir"
)

// MatchMode selects how an expected attribute is compared.
type MatchMode int

const (
	// MatchEqual requires the observed value to deep-equal the expected one.
	MatchEqual MatchMode = iota + 1
	// MatchAny requires only that the field is present. The value is never
	// compared.
	MatchAny
	// MatchKind requires the field to be present with the given value kind.
	MatchKind
)

// Expectation is the declared rule for one attribute of an ExpectedEvent.
// Wildcards (MatchAny, MatchKind) never take part in equality comparison.
type Expectation struct {
	Mode  MatchMode
	Value ir.Value // MatchEqual only
	Kind  ir.Kind  // MatchKind only
}

// Equal expects the attribute to equal v exactly.
func Equal(v ir.Value) Expectation {
	return Expectation{Mode: MatchEqual, Value: v}
}

// Any expects the attribute to be present with any value.
func Any() Expectation {
	return Expectation{Mode: MatchAny}
}

// OfKind expects the attribute to be present with a value of kind k.
func OfKind(k ir.Kind) Expectation {
	return Expectation{Mode: MatchKind, Kind: k}
}

// IsWildcard reports whether the expectation ignores the attribute's value.
func (e Expectation) IsWildcard() bool {
	return e.Mode == MatchAny || e.Mode == MatchKind
}

// String renders the expectation for diffs.
func (e Expectation) String() string {
	switch e.Mode {
	case MatchEqual:
		return ir.Format(e.Value)
	case MatchAny:
		return "<any>"
	case MatchKind:
		return fmt.Sprintf("<any %s>", e.Kind)
	}
	return "<invalid>"
}

// ExpectedEvent is one entry of a registered trace.
type ExpectedEvent struct {
	Name       string
	Attributes map[string]Expectation
}

// NewExpectedEvent builds an ExpectedEvent whose attributes all use
// MatchEqual.
func NewExpectedEvent(name string, attrs ir.Object) ExpectedEvent {
	ev := ExpectedEvent{Name: name, Attributes: make(map[string]Expectation, len(attrs))}
	for k, v := range attrs {
		ev.Attributes[k] = Equal(v)
	}
	return ev
}

// With returns a copy of e with field set to x.
func (e ExpectedEvent) With(field string, x Expectation) ExpectedEvent {
	out := e.clone()
	out.Attributes[field] = x
	return out
}

// clone deep-copies the attribute map so a registered queue cannot be
// changed through the caller's slice.
func (e ExpectedEvent) clone() ExpectedEvent {
	out := ExpectedEvent{Name: e.Name, Attributes: make(map[string]Expectation, len(e.Attributes))}
	for k, v := range e.Attributes {
		out.Attributes[k] = v
	}
	return out
}

// String renders the event as name{field: value, ...} with sorted fields.
func (e ExpectedEvent) String() string {
	fields := make([]string, 0, len(e.Attributes))
	for k := range e.Attributes {
		fields = append(fields, k)
	}
	sort.Strings(fields)

	parts := make([]string, len(fields))
	for i, k := range fields {
		parts[i] = fmt.Sprintf("%s: %s", k, e.Attributes[k])
	}
	return fmt.Sprintf("%s{%s}", e.Name, strings.Join(parts, ", "))
}

// ObservedEvent is a single event delivered by the external source.
type ObservedEvent struct {
	Name       string
	Attributes ir.Object
	// Seq is the arrival position. Zero means unstamped; the engine
	// assigns one from its clock.
	Seq int64
}

// String renders the event as name{field: value, ...} with sorted fields.
func (o ObservedEvent) String() string {
	fields := make([]string, 0, len(o.Attributes))
	for k := range o.Attributes {
		fields = append(fields, k)
	}
	sort.Strings(fields)

	parts := make([]string, len(fields))
	for i, k := range fields {
		parts[i] = fmt.Sprintf("%s: %s", k, ir.Format(o.Attributes[k]))
	}
	return fmt.Sprintf("%s{%s}", o.Name, strings.Join(parts, ", "))
}

// State is the lifecycle of one test case.
type State int

const (
	StateIdle State = iota
	StateExpecting
	StateSatisfied
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateExpecting:
		return "expecting"
	case StateSatisfied:
		return "satisfied"
	case StateFailed:
		return "failed"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Terminal reports whether no further events can change the outcome.
func (s State) Terminal() bool {
	return s == StateSatisfied || s == StateFailed
}
