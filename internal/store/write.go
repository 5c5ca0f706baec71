package store

import (
	"context"
	"fmt"

	"github.com/roach88/navexpect/internal/engine"
	"github.com/roach88/navexpect/internal/ir"
)

// Outcome is the final result of a run.
type Outcome struct {
	State       engine.State
	Pass        bool
	ErrorCode   engine.ErrorCode
	Error       string
	TraceDigest string
}

// BeginRun inserts a run row. Beginning the same id twice is a no-op.
func (s *Store) BeginRun(ctx context.Context, id, scenario string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (id, scenario, tool_version, schema_version)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`, id, scenario, ir.ToolVersion, ir.SchemaVersion)
	if err != nil {
		return fmt.Errorf("begin run: %w", err)
	}
	return nil
}

// RecordEvent appends an observed event to a run. The event must carry
// its arrival seq. Writing the same (run, seq) twice keeps the first row.
// It returns the event hash.
func (s *Store) RecordEvent(ctx context.Context, runID string, ev engine.ObservedEvent) (string, error) {
	if ev.Seq <= 0 {
		return "", fmt.Errorf("record event: %s has no seq", ev.Name)
	}
	attrs, err := marshalAttrs(ev.Attributes)
	if err != nil {
		return "", fmt.Errorf("record event: %w", err)
	}
	hash, err := ir.EventHash(ev.Name, ev.Attributes, ev.Seq)
	if err != nil {
		return "", fmt.Errorf("record event: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO events (run_id, seq, name, attributes, event_hash)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(run_id, seq) DO NOTHING
	`, runID, ev.Seq, ev.Name, attrs, hash)
	if err != nil {
		return "", fmt.Errorf("record event: %w", err)
	}
	return hash, nil
}

// FinishRun stores the outcome of a run.
func (s *Store) FinishRun(ctx context.Context, id string, out Outcome) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE runs
		SET state = ?, pass = ?, finished = 1, error_code = ?, error = ?, trace_digest = ?
		WHERE id = ?
	`, out.State.String(), boolToInt(out.Pass), string(out.ErrorCode), out.Error, out.TraceDigest, id)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("finish run %s: %w", id, ErrNotFound)
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
