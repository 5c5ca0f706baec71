package harness

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/navexpect/internal/ir"
	"github.com/roach88/navexpect/internal/webnav"
)

func TestRunWithGolden_Iframe(t *testing.T) {
	env, _ := scriptedEnv(t, nil)
	s := loadTestScenario(t, "testdata/scenarios/iframe.yaml")

	r, err := RunWithGolden(t, env, s)
	require.NoError(t, err)
	assert.True(t, r.Pass)
}

func TestSnapshot_DropsVolatileFields(t *testing.T) {
	r := NewResult("run-1", "tiny")
	r.State = "satisfied"
	r.Trace = []TraceEvent{{
		Seq:   1,
		Event: webnav.EventBeforeNavigate,
		Attributes: ir.Object{
			webnav.FieldFrameID:   ir.Int(0),
			webnav.FieldTabID:     ir.Int(0),
			webnav.FieldTimeStamp: ir.Int(1_700_000_000_123),
			webnav.FieldRequestID: ir.String("42"),
			webnav.FieldURL:       ir.String("http://127.0.0.1:8080/a.html?x=<y>&z"),
		},
	}}

	got, err := Snapshot(r)
	require.NoError(t, err)

	want := `{
  "pass": true,
  "scenario": "tiny",
  "state": "satisfied",
  "trace": [
    {
      "attributes": {
        "frameId": 0,
        "tabId": 0,
        "url": "http://127.0.0.1:8080/a.html?x=<y>&z"
      },
      "event": "onBeforeNavigate",
      "seq": 1
    }
  ]
}
`
	assert.Equal(t, want, string(got))
	assert.Contains(t, r.Trace[0].Attributes, webnav.FieldTimeStamp, "snapshot must not modify the result")
}

func TestWriteAndCompareGolden(t *testing.T) {
	dir := t.TempDir()
	r := NewResult("run-1", "tiny")
	r.State = "satisfied"

	err := CompareGolden(dir, r)
	assert.ErrorIs(t, err, os.ErrNotExist)

	require.NoError(t, WriteGolden(dir, r))
	require.NoError(t, CompareGolden(dir, r))

	r.AddError("boom")
	assert.ErrorIs(t, CompareGolden(dir, r), ErrGoldenMismatch)
}
