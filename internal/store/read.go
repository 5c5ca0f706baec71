package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/navexpect/internal/engine"
	"github.com/roach88/navexpect/internal/ir"
)

// Run is a recorded harness run.
type Run struct {
	ID            string `json:"id"`
	Scenario      string `json:"scenario"`
	State         string `json:"state"`
	Pass          bool   `json:"pass"`
	Finished      bool   `json:"finished"`
	ErrorCode     string `json:"error_code,omitempty"`
	Error         string `json:"error,omitempty"`
	TraceDigest   string `json:"trace_digest,omitempty"`
	ToolVersion   string `json:"tool_version"`
	SchemaVersion string `json:"schema_version"`
}

// Event is a recorded observed event.
type Event struct {
	RunID      string    `json:"run_id"`
	Seq        int64     `json:"seq"`
	Name       string    `json:"name"`
	Attributes ir.Object `json:"attributes"`
	Hash       string    `json:"event_hash"`
}

// Observed converts the record back into an engine event.
func (e Event) Observed() engine.ObservedEvent {
	return engine.ObservedEvent{Name: e.Name, Attributes: e.Attributes, Seq: e.Seq}
}

const runColumns = `id, scenario, state, pass, finished, error_code, error, trace_digest, tool_version, schema_version`

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (Run, error) {
	var r Run
	var pass, finished int
	err := row.Scan(&r.ID, &r.Scenario, &r.State, &pass, &finished,
		&r.ErrorCode, &r.Error, &r.TraceDigest, &r.ToolVersion, &r.SchemaVersion)
	if err != nil {
		return Run{}, err
	}
	r.Pass = pass != 0
	r.Finished = finished != 0
	return r, nil
}

// ReadRun returns the run with the given id, or ErrNotFound.
func (s *Store) ReadRun(ctx context.Context, id string) (Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("read run %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return Run{}, fmt.Errorf("read run: %w", err)
	}
	return r, nil
}

// LatestRun returns the most recently begun run of a scenario.
func (s *Store) LatestRun(ctx context.Context, scenario string) (Run, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+runColumns+` FROM runs
		WHERE scenario = ?
		ORDER BY rowid DESC
		LIMIT 1
	`, scenario)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("latest run of %s: %w", scenario, ErrNotFound)
	}
	if err != nil {
		return Run{}, fmt.Errorf("latest run: %w", err)
	}
	return r, nil
}

// ListRuns returns runs in the order they were begun. An empty scenario
// lists every run. Returns an empty slice, not nil, when there are none.
func (s *Store) ListRuns(ctx context.Context, scenario string) ([]Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs`
	var args []any
	if scenario != "" {
		query += ` WHERE scenario = ?`
		args = append(args, scenario)
	}
	query += ` ORDER BY rowid ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// ReadEvents returns the events of a run ordered by seq.
// Returns an empty slice, not nil, when there are none.
func (s *Store) ReadEvents(ctx context.Context, runID string) ([]Event, error) {
	return s.queryEvents(ctx, `
		SELECT run_id, seq, name, attributes, event_hash
		FROM events
		WHERE run_id = ?
		ORDER BY seq ASC
	`, runID)
}

// ReadEventsNamed returns the events of a run with the given name, ordered
// by seq.
func (s *Store) ReadEventsNamed(ctx context.Context, runID, name string) ([]Event, error) {
	return s.queryEvents(ctx, `
		SELECT run_id, seq, name, attributes, event_hash
		FROM events
		WHERE run_id = ? AND name = ?
		ORDER BY seq ASC
	`, runID, name)
}

func (s *Store) queryEvents(ctx context.Context, query string, args ...any) ([]Event, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	events := []Event{}
	for rows.Next() {
		var ev Event
		var attrs string
		if err := rows.Scan(&ev.RunID, &ev.Seq, &ev.Name, &attrs, &ev.Hash); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		if ev.Attributes, err = unmarshalAttrs(attrs); err != nil {
			return nil, fmt.Errorf("event %d: %w", ev.Seq, err)
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return events, nil
}
