package store

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/navexpect/internal/engine"
	"github.com/roach88/navexpect/internal/ir"
)

func TestBeginRun_Defaults(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.BeginRun(ctx, "run-1", "iframe"))
	require.NoError(t, s.BeginRun(ctx, "run-1", "other"))

	run, err := s.ReadRun(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, Run{
		ID:            "run-1",
		Scenario:      "iframe",
		State:         "expecting",
		ToolVersion:   ir.ToolVersion,
		SchemaVersion: ir.SchemaVersion,
	}, run)
}

func TestRecordEvent_Idempotent(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.BeginRun(ctx, "run-1", "iframe"))

	ev := testEvent("onBeforeNavigate", 0, "a.html", 1)
	h1, err := s.RecordEvent(ctx, "run-1", ev)
	require.NoError(t, err)
	assert.Len(t, h1, 64)

	dup := testEvent("onCompleted", 0, "z.html", 1)
	_, err = s.RecordEvent(ctx, "run-1", dup)
	require.NoError(t, err)

	events, err := s.ReadEvents(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "onBeforeNavigate", events[0].Name)
	assert.Equal(t, h1, events[0].Hash)
}

func TestRecordEvent_RequiresSeq(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.BeginRun(ctx, "run-1", "iframe"))

	_, err := s.RecordEvent(ctx, "run-1", testEvent("onCompleted", 0, "a.html", 0))
	assert.Error(t, err)
}

func TestRecordEvent_UnknownRunRejected(t *testing.T) {
	s := createTestStore(t)
	_, err := s.RecordEvent(context.Background(), "missing", testEvent("onCompleted", 0, "a.html", 1))
	assert.Error(t, err, "foreign key must reject events of unknown runs")
}

func TestFinishRun(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.BeginRun(ctx, "run-1", "iframe"))

	require.NoError(t, s.FinishRun(ctx, "run-1", Outcome{
		State:       engine.StateFailed,
		ErrorCode:   engine.ErrCodeIncompleteSequence,
		Error:       "2 pending",
		TraceDigest: "abc",
	}))

	run, err := s.ReadRun(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, "failed", run.State)
	assert.False(t, run.Pass)
	assert.True(t, run.Finished)
	assert.Equal(t, "INCOMPLETE_SEQUENCE", run.ErrorCode)
	assert.Equal(t, "2 pending", run.Error)
	assert.Equal(t, "abc", run.TraceDigest)
}

func TestFinishRun_UnknownRun(t *testing.T) {
	s := createTestStore(t)
	err := s.FinishRun(context.Background(), "missing", Outcome{State: engine.StateSatisfied, Pass: true})
	assert.True(t, errors.Is(err, ErrNotFound))
}
