package harness

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/navexpect/internal/ir"
	"github.com/roach88/navexpect/internal/webnav"
)

// ErrGoldenMismatch is returned when a trace differs from its golden file.
var ErrGoldenMismatch = errors.New("trace does not match golden file")

// volatileFields change between runs of the same scenario and are left out
// of snapshots.
var volatileFields = []string{webnav.FieldTimeStamp, webnav.FieldRequestID}

// Snapshot renders the result's trace as indented canonical JSON. Volatile
// attributes are dropped so a snapshot is stable across browser runs.
func Snapshot(r *Result) ([]byte, error) {
	trace := make([]any, len(r.Trace))
	for i, ev := range r.Trace {
		attrs := ev.Attributes.Clone()
		for _, f := range volatileFields {
			delete(attrs, f)
		}
		trace[i] = map[string]any{
			"seq":        ev.Seq,
			"event":      ev.Event,
			"attributes": attrs,
		}
	}
	return ir.MarshalIndent(map[string]any{
		"scenario": r.Scenario,
		"pass":     r.Pass,
		"state":    r.State,
		"trace":    trace,
	})
}

// GoldenPath returns where the golden file for scenario lives in dir.
func GoldenPath(dir, scenario string) string {
	return filepath.Join(dir, scenario+".golden")
}

// WriteGolden stores the snapshot of r in dir.
func WriteGolden(dir string, r *Result) error {
	data, err := Snapshot(r)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("golden dir: %w", err)
	}
	return os.WriteFile(GoldenPath(dir, r.Scenario), data, 0o644)
}

// CompareGolden checks the snapshot of r against its golden file in dir.
// A missing golden file is reported as an error wrapping os.ErrNotExist.
func CompareGolden(dir string, r *Result) error {
	want, err := os.ReadFile(GoldenPath(dir, r.Scenario))
	if err != nil {
		return fmt.Errorf("golden %s: %w", r.Scenario, err)
	}
	got, err := Snapshot(r)
	if err != nil {
		return err
	}
	if !bytes.Equal(want, got) {
		return fmt.Errorf("%s: %w", r.Scenario, ErrGoldenMismatch)
	}
	return nil
}

// RunWithGolden runs the scenario and compares its trace with
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, env Env, s *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(t.Context(), env, s)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, s.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an existing result against a golden file without
// re-running the scenario.
func AssertGolden(t *testing.T, name string, result *Result) error {
	t.Helper()

	data, err := Snapshot(result)
	if err != nil {
		return err
	}
	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, data)
	return nil
}
