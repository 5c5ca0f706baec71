package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"gopkg.in/yaml.v3"

	"github.com/roach88/navexpect/internal/engine"
	"github.com/roach88/navexpect/internal/ir"
	"github.com/roach88/navexpect/internal/webnav"
)

// DefaultTimeout bounds a scenario that sets no timeout of its own.
const DefaultTimeout = 30 * time.Second

// Scenario is one navigation test case: where to navigate and the exact
// lifecycle trace the browser must report.
type Scenario struct {
	// Name uniquely identifies this scenario. In CUE files it is the
	// label under "scenario".
	Name string `yaml:"name" json:"name"`

	// Description explains what this scenario checks.
	Description string `yaml:"description" json:"description"`

	// Navigate lists the navigations to start, in order.
	Navigate []NavigateStep `yaml:"navigate" json:"navigate"`

	// Expect is the full expected trace.
	Expect []ExpectStep `yaml:"expect" json:"expect"`

	// Wildcards names extra attributes that must be present on every event
	// but whose value is never compared.
	Wildcards []string `yaml:"wildcards,omitempty" json:"wildcards,omitempty"`

	// TolerateTrailing ignores events after the trace is satisfied instead
	// of failing on them.
	TolerateTrailing bool `yaml:"tolerate_trailing,omitempty" json:"tolerate_trailing,omitempty"`

	// Timeout is a Go duration string such as "10s". Empty means
	// DefaultTimeout.
	Timeout string `yaml:"timeout,omitempty" json:"timeout,omitempty"`

	// Assertions are extra checks over the observed trace.
	Assertions []Assertion `yaml:"assertions,omitempty" json:"assertions,omitempty"`

	// Path is the file the scenario was loaded from.
	Path string `yaml:"-" json:"-"`
}

// NavigateStep starts one navigation.
type NavigateStep struct {
	URL string `yaml:"url" json:"url"`
	Tab int64  `yaml:"tab,omitempty" json:"tab,omitempty"`
}

// ExpectStep is one expected lifecycle event.
type ExpectStep struct {
	Event string `yaml:"event" json:"event"`

	// Frame is the normalized frame id: 0 for the top frame, then 1, 2, ...
	// in order of first observation.
	Frame *int64 `yaml:"frame" json:"frame"`

	URL string `yaml:"url" json:"url"`

	// Transition and Qualifiers apply to onCommitted only.
	Transition string   `yaml:"transition,omitempty" json:"transition,omitempty"`
	Qualifiers []string `yaml:"qualifiers,omitempty" json:"qualifiers,omitempty"`

	// Attrs adds exact-match attributes.
	Attrs map[string]any `yaml:"attrs,omitempty" json:"attrs,omitempty"`

	// Any adds attributes that must be present with any value.
	Any []string `yaml:"any,omitempty" json:"any,omitempty"`

	// Kinds adds attributes that must be present with a value of the given
	// kind (string, int, bool, array, object, null).
	Kinds map[string]string `yaml:"kinds,omitempty" json:"kinds,omitempty"`
}

// TimeoutDuration returns the parsed timeout, or DefaultTimeout.
func (s *Scenario) TimeoutDuration() time.Duration {
	if s.Timeout == "" {
		return DefaultTimeout
	}
	d, err := time.ParseDuration(s.Timeout)
	if err != nil || d <= 0 {
		return DefaultTimeout
	}
	return d
}

// ToExpected builds the engine expectation, resolving URLs with r.
// r may be nil, in which case URLs are used as written.
func (s *Scenario) ToExpected(r *webnav.URLResolver) ([]engine.ExpectedEvent, error) {
	out := make([]engine.ExpectedEvent, 0, len(s.Expect))
	for i, step := range s.Expect {
		ev, err := step.toExpected(r)
		if err != nil {
			return nil, fmt.Errorf("expect[%d]: %w", i, err)
		}
		for _, field := range s.Wildcards {
			ev = ev.With(field, engine.Any())
		}
		out = append(out, ev)
	}
	return out, nil
}

func (step ExpectStep) toExpected(r *webnav.URLResolver) (engine.ExpectedEvent, error) {
	if step.Frame == nil {
		return engine.ExpectedEvent{}, fmt.Errorf("frame is required")
	}
	url, err := r.Resolve(step.URL)
	if err != nil {
		return engine.ExpectedEvent{}, err
	}
	frame := *step.Frame

	var ev engine.ExpectedEvent
	switch step.Event {
	case webnav.EventBeforeNavigate:
		ev = webnav.BeforeNavigate(frame, url)
	case webnav.EventCommitted:
		ev = webnav.Committed(frame, webnav.TransitionType(step.Transition), url, step.Qualifiers...)
	case webnav.EventDOMContentLoaded:
		ev = webnav.DOMContentLoaded(frame, url)
	case webnav.EventCompleted:
		ev = webnav.Completed(frame, url)
	default:
		return engine.ExpectedEvent{}, fmt.Errorf("unknown event %q", step.Event)
	}

	for field, raw := range step.Attrs {
		v, err := ir.FromAny(raw)
		if err != nil {
			return engine.ExpectedEvent{}, fmt.Errorf("attrs.%s: %w", field, err)
		}
		ev = ev.With(field, engine.Equal(v))
	}
	for _, field := range step.Any {
		ev = ev.With(field, engine.Any())
	}
	for field, k := range step.Kinds {
		kind, err := ir.ParseKind(k)
		if err != nil {
			return engine.ExpectedEvent{}, fmt.Errorf("kinds.%s: %w", field, err)
		}
		ev = ev.With(field, engine.OfKind(kind))
	}
	return ev, nil
}

// LoadScenario reads a single scenario from a YAML or CUE file.
// A CUE file must define exactly one scenario.
func LoadScenario(path string) (*Scenario, error) {
	scenarios, err := LoadScenarioFile(path)
	if err != nil {
		return nil, err
	}
	if len(scenarios) != 1 {
		return nil, fmt.Errorf("%s: expected 1 scenario, found %d", path, len(scenarios))
	}
	return scenarios[0], nil
}

// LoadScenarioFile reads every scenario in a file. YAML files hold one
// scenario; CUE files may hold several under "scenario".
func LoadScenarioFile(path string) ([]*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		s, err := parseYAML(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		s.Path = path
		return []*Scenario{s}, nil
	case ".cue":
		scenarios, err := parseCUE(data, path)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		return scenarios, nil
	}
	return nil, fmt.Errorf("%s: unsupported scenario file type", path)
}

// parseYAML decodes with strict field validation so typos such as
// "expects:" are rejected.
func parseYAML(data []byte) (*Scenario, error) {
	var s Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&s); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if err := validateScenario(&s); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &s, nil
}

var (
	scenarioFields = map[string]bool{
		"description": true, "navigate": true, "expect": true, "wildcards": true,
		"tolerate_trailing": true, "timeout": true, "assertions": true,
	}
	expectFields = map[string]bool{
		"event": true, "frame": true, "url": true, "transition": true,
		"qualifiers": true, "attrs": true, "any": true, "kinds": true,
	}
)

func parseCUE(data []byte, path string) ([]*Scenario, error) {
	ctx := cuecontext.New()
	value := ctx.CompileBytes(data, cue.Filename(path))
	if err := value.Err(); err != nil {
		return nil, fmt.Errorf("building CUE value: %w", err)
	}
	if err := value.Validate(cue.Concrete(true)); err != nil {
		return nil, fmt.Errorf("validating CUE value: %w", err)
	}

	root := value.LookupPath(cue.ParsePath("scenario"))
	if !root.Exists() {
		return nil, fmt.Errorf(`no "scenario" field`)
	}
	iter, err := root.Fields()
	if err != nil {
		return nil, fmt.Errorf("iterating scenarios: %w", err)
	}

	var out []*Scenario
	for iter.Next() {
		name := iter.Label()
		v := iter.Value()
		if err := checkLabels(v, scenarioFields, "scenario."+name); err != nil {
			return nil, err
		}
		if err := checkListLabels(v.LookupPath(cue.ParsePath("expect")), expectFields, "scenario."+name+".expect"); err != nil {
			return nil, err
		}

		var s Scenario
		if err := v.Decode(&s); err != nil {
			return nil, fmt.Errorf("scenario.%s: %w", name, err)
		}
		s.Name = name
		s.Path = path
		if err := validateScenario(&s); err != nil {
			return nil, fmt.Errorf("invalid scenario %s: %w", name, err)
		}
		out = append(out, &s)
	}
	return out, nil
}

func checkLabels(v cue.Value, allowed map[string]bool, where string) error {
	iter, err := v.Fields()
	if err != nil {
		return fmt.Errorf("%s: %w", where, err)
	}
	for iter.Next() {
		if !allowed[iter.Label()] {
			return fmt.Errorf("%s: unknown field %q", where, iter.Label())
		}
	}
	return nil
}

func checkListLabels(v cue.Value, allowed map[string]bool, where string) error {
	if !v.Exists() {
		return nil
	}
	list, err := v.List()
	if err != nil {
		return fmt.Errorf("%s: %w", where, err)
	}
	for i := 0; list.Next(); i++ {
		if err := checkLabels(list.Value(), allowed, fmt.Sprintf("%s[%d]", where, i)); err != nil {
			return err
		}
	}
	return nil
}

// LoadScenarioDir loads every .yaml, .yml and .cue file in dir, sorted by
// name. A non-empty filter is a glob matched against scenario names.
func LoadScenarioDir(dir, filter string) ([]*Scenario, error) {
	if filter != "" {
		if _, err := filepath.Match(filter, ""); err != nil {
			return nil, fmt.Errorf("invalid filter %q: %w", filter, err)
		}
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario directory: %w", err)
	}

	var paths []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".yaml", ".yml", ".cue":
			paths = append(paths, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(paths)

	seen := make(map[string]string)
	var out []*Scenario
	for _, p := range paths {
		scenarios, err := LoadScenarioFile(p)
		if err != nil {
			return nil, err
		}
		for _, s := range scenarios {
			if prev, dup := seen[s.Name]; dup {
				return nil, fmt.Errorf("duplicate scenario %q in %s and %s", s.Name, prev, p)
			}
			seen[s.Name] = p
			if filter != "" {
				if ok, _ := filepath.Match(filter, s.Name); !ok {
					continue
				}
			}
			out = append(out, s)
		}
	}
	return out, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Navigate) == 0 {
		return fmt.Errorf("navigate list is required and must be non-empty")
	}
	if len(s.Expect) == 0 {
		return fmt.Errorf("expect list is required and must be non-empty")
	}
	if s.Timeout != "" {
		d, err := time.ParseDuration(s.Timeout)
		if err != nil {
			return fmt.Errorf("timeout: %w", err)
		}
		if d <= 0 {
			return fmt.Errorf("timeout must be positive")
		}
	}

	for i, step := range s.Navigate {
		if step.URL == "" {
			return fmt.Errorf("navigate[%d]: url is required", i)
		}
		if step.Tab < 0 {
			return fmt.Errorf("navigate[%d]: tab must be non-negative", i)
		}
	}

	for i, step := range s.Expect {
		if err := validateExpectStep(step); err != nil {
			return fmt.Errorf("expect[%d]: %w", i, err)
		}
	}

	for _, field := range s.Wildcards {
		if field == "" {
			return fmt.Errorf("wildcards: empty field name")
		}
	}

	for i, a := range s.Assertions {
		if err := validateAssertion(i, &a); err != nil {
			return err
		}
	}
	return nil
}

func validateExpectStep(step ExpectStep) error {
	if !webnav.KnownEvent(step.Event) {
		return fmt.Errorf("unknown event %q", step.Event)
	}
	if step.Frame == nil {
		return fmt.Errorf("frame is required")
	}
	if *step.Frame < 0 {
		return fmt.Errorf("frame must be non-negative")
	}
	if step.URL == "" {
		return fmt.Errorf("url is required")
	}

	if step.Event == webnav.EventCommitted {
		if step.Transition == "" {
			return fmt.Errorf("transition is required for %s", webnav.EventCommitted)
		}
		if !webnav.TransitionType(step.Transition).Known() {
			return fmt.Errorf("unknown transition %q", step.Transition)
		}
	} else if step.Transition != "" || len(step.Qualifiers) > 0 {
		return fmt.Errorf("transition and qualifiers apply to %s only", webnav.EventCommitted)
	}

	for field := range step.Attrs {
		if _, err := ir.FromAny(step.Attrs[field]); err != nil {
			return fmt.Errorf("attrs.%s: %w", field, err)
		}
	}
	for field, k := range step.Kinds {
		if _, err := ir.ParseKind(k); err != nil {
			return fmt.Errorf("kinds.%s: %w", field, err)
		}
	}
	return nil
}
