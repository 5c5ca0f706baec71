package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/navexpect/internal/engine"
	"github.com/roach88/navexpect/internal/harness"
	"github.com/roach88/navexpect/internal/store"
	"github.com/roach88/navexpect/internal/webnav"
)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
	Database string
	RunID    string // optional - latest run of the scenario otherwise
	Scenario string // required when the file holds several scenarios
	BaseURL  string
}

// ReplayResult holds the replay outcome of one recorded run.
type ReplayResult struct {
	RunID         string           `json:"run_id"`
	Scenario      string           `json:"scenario"`
	Pass          bool             `json:"pass"`
	RecordedPass  bool             `json:"recorded_pass"`
	State         string           `json:"state"`
	Events        int              `json:"events"`
	Gaps          int              `json:"gaps"`
	Corrupted     int              `json:"corrupted"`
	StoredDigest  string           `json:"stored_digest"`
	ReplayDigest  string           `json:"replay_digest"`
	Deterministic bool             `json:"deterministic"`
	Failure       *harness.Failure `json:"failure,omitempty"`
	Errors        []string         `json:"errors,omitempty"`
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay <scenario-file>",
		Short: "Check a recorded run against a scenario",
		Long: `Feed the events of a recorded run through the expectation engine again.

The run's stored event hashes are verified first. The replay then checks
the events against the scenario as it is now and compares the trace digest
with the recorded one, so an edited scenario can be tried against a past
browser trace without launching Chrome.

Exit codes:
  0 - Replay satisfied the scenario and reproduced the recorded digest
  1 - Replay failed, diverged, or the run is corrupted
  2 - Command error (database not found, unknown run, etc.)

Examples:
  navexpect replay ./scenarios/iframe.yaml --db ./runs.db
  navexpect replay ./scenarios/all.cue --scenario iframe_multiple --db ./runs.db --run 0190...`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.RunID, "run", "", "run id to replay (default: latest run of the scenario)")
	cmd.Flags().StringVar(&opts.Scenario, "scenario", "", "scenario name within the file")
	cmd.Flags().StringVar(&opts.BaseURL, "base-url", "", "base URL the run was recorded with (overrides config)")

	return cmd
}

func pickScenario(scenarios []*harness.Scenario, name string) (*harness.Scenario, error) {
	if name == "" {
		if len(scenarios) != 1 {
			return nil, fmt.Errorf("file holds %d scenarios; choose one with --scenario", len(scenarios))
		}
		return scenarios[0], nil
	}
	for _, s := range scenarios {
		if s.Name == name {
			return s, nil
		}
	}
	return nil, fmt.Errorf("scenario %q not found", name)
}

func runReplay(opts *ReplayOptions, path string, cmd *cobra.Command) error {
	ctx := cmd.Context()
	out := opts.formatter(cmd)
	logger := opts.Logger(cmd.ErrOrStderr())
	if !cmd.Flags().Changed("base-url") {
		opts.BaseURL = opts.Config.BaseURL
	}

	scenarios, err := harness.LoadScenarioFile(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load scenario", err)
	}
	s, err := pickScenario(scenarios, opts.Scenario)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to select scenario", err)
	}
	resolver, err := webnav.NewURLResolver(opts.BaseURL)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid base URL", err)
	}

	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	runID := opts.RunID
	if runID == "" {
		run, err := st.LatestRun(ctx, s.Name)
		if err != nil {
			return WrapExitError(ExitCommandError, "no recorded run", err)
		}
		runID = run.ID
	}

	state, err := st.GetRunState(ctx, runID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return WrapExitError(ExitCommandError, "unknown run", err)
		}
		return WrapExitError(ExitCommandError, "failed to read run", err)
	}
	if state.Run.Scenario != s.Name {
		out.VerboseLog("run %s was recorded for %s, replaying against %s", runID, state.Run.Scenario, s.Name)
	}

	events := make([]engine.ObservedEvent, len(state.Events))
	for i, ev := range state.Events {
		events[i] = ev.Observed()
	}

	r, err := harness.Replay(ctx, harness.Env{Resolver: resolver, Logger: logger}, s, events)
	if err != nil {
		return WrapExitError(ExitCommandError, "replay failed", err)
	}

	result := ReplayResult{
		RunID:         runID,
		Scenario:      s.Name,
		Pass:          r.Pass,
		RecordedPass:  state.Run.Pass,
		State:         r.State,
		Events:        len(events),
		Gaps:          state.Gaps,
		Corrupted:     state.Corrupted,
		StoredDigest:  state.Run.TraceDigest,
		ReplayDigest:  r.Digest,
		Deterministic: state.DigestOK && r.Digest == state.Run.TraceDigest,
		Failure:       r.Failure,
		Errors:        r.Errors,
	}

	if err := out.Success(result, result.writeText); err != nil {
		return err
	}

	switch {
	case result.Corrupted > 0:
		return NewExitError(ExitFailure, fmt.Sprintf("run %s has %d corrupted events", runID, result.Corrupted))
	case !result.Pass:
		return NewExitError(ExitFailure, fmt.Sprintf("replay of %s failed", runID))
	case !result.Deterministic:
		return NewExitError(ExitFailure, fmt.Sprintf("replay of %s did not reproduce the recorded digest", runID))
	}
	return nil
}

func (r ReplayResult) writeText(w io.Writer) {
	status := "PASS"
	if !r.Pass {
		status = "FAIL"
	}
	fmt.Fprintf(w, "%s %s (run %s, %d events)\n", status, r.Scenario, r.RunID, r.Events)
	fmt.Fprintf(w, "  recorded: pass=%t digest=%s\n", r.RecordedPass, shortDigest(r.StoredDigest))
	fmt.Fprintf(w, "  replayed: state=%s digest=%s deterministic=%t\n", r.State, shortDigest(r.ReplayDigest), r.Deterministic)
	if r.Gaps > 0 || r.Corrupted > 0 {
		fmt.Fprintf(w, "  integrity: %d gaps, %d corrupted\n", r.Gaps, r.Corrupted)
	}
	for _, e := range r.Errors {
		fmt.Fprintf(w, "  %s\n", e)
	}
}

func shortDigest(d string) string {
	if len(d) > 12 {
		return d[:12]
	}
	if d == "" {
		return "-"
	}
	return d
}
