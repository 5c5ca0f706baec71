package cli

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func replayCLI(t *testing.T, format string, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd := NewReplayCommand(&RootOptions{Format: format})
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

// recordRuns runs the fixture scenarios once into a new database.
func recordRuns(t *testing.T, dir string) string {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "runs.db")
	_, err := runCLI(t, "text", "--base-url", testBase, "--db", dbPath, dir)
	require.NoError(t, err)
	return dbPath
}

func TestReplayMissingDatabaseFlag(t *testing.T) {
	_, err := replayCLI(t, "text", "../harness/testdata/scenarios/iframe.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "required flag")
	assert.Contains(t, err.Error(), "db")
}

func TestReplayLatestRunIsDeterministic(t *testing.T) {
	dir := scenarioDir(t, nil)
	dbPath := recordRuns(t, dir)

	out, err := replayCLI(t, "json", "--db", dbPath, "--base-url", testBase, filepath.Join(dir, "iframe.yaml"))
	require.NoError(t, err)

	var result ReplayResult
	decodeData(t, out, &result)
	assert.Equal(t, "run-1", result.RunID)
	assert.Equal(t, "iframe", result.Scenario)
	assert.True(t, result.Pass)
	assert.True(t, result.RecordedPass)
	assert.Equal(t, "satisfied", result.State)
	assert.Equal(t, 12, result.Events)
	assert.Zero(t, result.Gaps)
	assert.Zero(t, result.Corrupted)
	assert.True(t, result.Deterministic)
	assert.Equal(t, result.StoredDigest, result.ReplayDigest)
}

func TestReplaySpecificRunFromCUE(t *testing.T) {
	dir := scenarioDir(t, nil)
	dbPath := recordRuns(t, dir)

	out, err := replayCLI(t, "text", "--db", dbPath, "--base-url", testBase, "--run", "run-2", filepath.Join(dir, "iframe_multiple.cue"))
	require.NoError(t, err)
	assert.Contains(t, out, "PASS iframe_multiple (run run-2, 16 events)")
	assert.Contains(t, out, "deterministic=true")
}

func TestReplayEditedScenarioFails(t *testing.T) {
	dir := scenarioDir(t, nil)
	dbPath := recordRuns(t, dir)

	edited := scenarioDir(t, breakIframe)
	out, err := replayCLI(t, "json", "--db", dbPath, "--base-url", testBase, filepath.Join(edited, "iframe.yaml"))
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var result ReplayResult
	decodeData(t, out, &result)
	assert.False(t, result.Pass)
	assert.True(t, result.RecordedPass)
	require.NotNil(t, result.Failure)
	assert.Equal(t, "UNEXPECTED_EVENT", string(result.Failure.Code))
}

func TestReplayUnknownRun(t *testing.T) {
	dir := scenarioDir(t, nil)
	dbPath := recordRuns(t, dir)

	_, err := replayCLI(t, "text", "--db", dbPath, "--base-url", testBase, "--run", "nope", filepath.Join(dir, "iframe.yaml"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "unknown run")
}

func TestReplayEmptyDatabase(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "empty.db")

	_, err := replayCLI(t, "text", "--db", dbPath, "--base-url", testBase, "../harness/testdata/scenarios/iframe.yaml")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "no recorded run")
}

func TestReplayUnknownScenarioName(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "empty.db")

	_, err := replayCLI(t, "text", "--db", dbPath, "--scenario", "missing", "../harness/testdata/scenarios/iframe.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `scenario "missing" not found`)
}

func TestReplayMissingScenarioFile(t *testing.T) {
	_, err := replayCLI(t, "text", "--db", filepath.Join(t.TempDir(), "x.db"), filepath.Join(t.TempDir(), "none.yaml"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "failed to load scenario")
}
