package engine

import (
	"fmt"
	"sort"

	"github.com/roach88/navexpect/internal/ir"
)

// AttrDiff describes one attribute that failed to match.
type AttrDiff struct {
	Field    string `json:"field"`
	Expected string `json:"expected"`
	Observed string `json:"observed"`
	Reason   string `json:"reason"`
}

// Diff reasons.
const (
	ReasonMissing  = "missing"
	ReasonValue    = "value mismatch"
	ReasonKind     = "kind mismatch"
	ReasonBadRule  = "invalid expectation"
	reasonNameDiff = "name mismatch"
)

// matchEvent compares an observed event to an expected one.
//
// The match rules are:
//  1. Name: exact string match.
//  2. Every expected attribute must be present in the observed event.
//  3. MatchEqual attributes must deep-equal; wildcards only check presence
//     (and kind for MatchKind).
//
// Observed attributes with no expectation are ignored. Returned diffs are
// sorted by field; an empty result means the event matches.
func matchEvent(exp ExpectedEvent, obs ObservedEvent) []AttrDiff {
	var diffs []AttrDiff
	if exp.Name != obs.Name {
		diffs = append(diffs, AttrDiff{
			Field:    "",
			Expected: exp.Name,
			Observed: obs.Name,
			Reason:   reasonNameDiff,
		})
	}

	fields := make([]string, 0, len(exp.Attributes))
	for k := range exp.Attributes {
		fields = append(fields, k)
	}
	sort.Strings(fields)

	for _, field := range fields {
		if d, ok := matchAttr(field, exp.Attributes[field], obs.Attributes); !ok {
			diffs = append(diffs, d)
		}
	}
	return diffs
}

func matchAttr(field string, x Expectation, attrs ir.Object) (AttrDiff, bool) {
	actual, present := attrs[field]
	diff := AttrDiff{Field: field, Expected: x.String(), Observed: ir.Format(actual)}

	if !present {
		diff.Reason = ReasonMissing
		return diff, false
	}

	switch x.Mode {
	case MatchAny:
		return diff, true
	case MatchKind:
		if actual.Kind() != x.Kind {
			diff.Reason = ReasonKind
			diff.Observed = fmt.Sprintf("%s (%s)", ir.Format(actual), actual.Kind())
			return diff, false
		}
		return diff, true
	case MatchEqual:
		if !ir.Equal(x.Value, actual) {
			diff.Reason = ReasonValue
			return diff, false
		}
		return diff, true
	}

	diff.Reason = ReasonBadRule
	return diff, false
}

// validateExpected rejects malformed expectations at registration time so
// a bad rule is reported as a registration error, not as a mismatch later.
func validateExpected(i int, ev ExpectedEvent) error {
	if ev.Name == "" {
		return fmt.Errorf("expected[%d]: event name is required", i)
	}
	for field, x := range ev.Attributes {
		switch x.Mode {
		case MatchEqual:
			if x.Value == nil {
				return fmt.Errorf("expected[%d].%s: equality rule has no value", i, field)
			}
		case MatchAny:
		case MatchKind:
			if _, err := ir.ParseKind(string(x.Kind)); err != nil {
				return fmt.Errorf("expected[%d].%s: %w", i, field, err)
			}
		default:
			return fmt.Errorf("expected[%d].%s: unknown match mode %d", i, field, x.Mode)
		}
	}
	return nil
}
