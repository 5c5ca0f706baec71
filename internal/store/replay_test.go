package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/navexpect/internal/engine"
	"github.com/roach88/navexpect/internal/ir"
)

func recordRun(t *testing.T, s *Store, id string, n int) []string {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, s.BeginRun(ctx, id, "iframe"))
	var hashes []string
	for i := 1; i <= n; i++ {
		h, err := s.RecordEvent(ctx, id, testEvent("onCompleted", 0, "a.html", int64(i)))
		require.NoError(t, err)
		hashes = append(hashes, h)
	}
	return hashes
}

func TestGetRunState_Replayable(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	hashes := recordRun(t, s, "run-1", 3)
	require.NoError(t, s.FinishRun(ctx, "run-1", Outcome{
		State: engine.StateSatisfied, Pass: true, TraceDigest: ir.TraceDigest(hashes),
	}))

	state, err := s.GetRunState(ctx, "run-1")
	require.NoError(t, err)
	assert.Len(t, state.Events, 3)
	assert.Equal(t, int64(3), state.LastSeq)
	assert.Zero(t, state.Gaps)
	assert.Zero(t, state.Corrupted)
	assert.True(t, state.DigestOK)
	assert.True(t, state.Replayable)
}

func TestGetRunState_Unfinished(t *testing.T) {
	s := createTestStore(t)
	recordRun(t, s, "run-1", 2)

	state, err := s.GetRunState(context.Background(), "run-1")
	require.NoError(t, err)
	assert.False(t, state.DigestOK)
	assert.False(t, state.Replayable)
}

func TestGetRunState_DetectsTampering(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	hashes := recordRun(t, s, "run-1", 2)
	require.NoError(t, s.FinishRun(ctx, "run-1", Outcome{
		State: engine.StateSatisfied, Pass: true, TraceDigest: ir.TraceDigest(hashes),
	}))

	_, err := s.db.ExecContext(ctx,
		`UPDATE events SET attributes = '{"frameId":7}' WHERE run_id = ? AND seq = 2`, "run-1")
	require.NoError(t, err)

	state, err := s.GetRunState(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, 1, state.Corrupted)
	assert.False(t, state.Replayable)
}

func TestGetRunState_CountsGaps(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.BeginRun(ctx, "run-1", "iframe"))
	for _, seq := range []int64{1, 4} {
		_, err := s.RecordEvent(ctx, "run-1", testEvent("onCompleted", 0, "a.html", seq))
		require.NoError(t, err)
	}

	state, err := s.GetRunState(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, 2, state.Gaps)
}

func TestGetRunState_NotFound(t *testing.T) {
	s := createTestStore(t)
	_, err := s.GetRunState(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}
