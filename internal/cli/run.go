package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/roach88/navexpect/internal/cdp"
	"github.com/roach88/navexpect/internal/harness"
	"github.com/roach88/navexpect/internal/metrics"
	"github.com/roach88/navexpect/internal/store"
	"github.com/roach88/navexpect/internal/webnav"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	BaseURL     string
	Filter      string
	Database    string
	GoldenDir   string
	Update      bool
	MetricsAddr string
	Watch       bool
	Settle      time.Duration

	// Browser overrides the Chrome factory (for testing).
	Browser harness.BrowserFactory

	// RunIDs overrides the run id generator (for testing).
	// If nil, defaults to UUIDv7Generator.
	RunIDs harness.RunIDGenerator
}

// ScenarioSummary is the outcome of one scenario.
type ScenarioSummary struct {
	Name    string           `json:"name"`
	RunID   string           `json:"run_id"`
	Pass    bool             `json:"pass"`
	State   string           `json:"state"`
	Events  int              `json:"events"`
	Digest  string           `json:"trace_digest"`
	Failure *harness.Failure `json:"failure,omitempty"`
	Errors  []string         `json:"errors,omitempty"`
}

// RunSummary holds the overall run result.
type RunSummary struct {
	Scenarios []ScenarioSummary `json:"scenarios"`
	Passed    int               `json:"passed"`
	Failed    int               `json:"failed"`
	Total     int               `json:"total"`
}

func (s *RunSummary) add(r *harness.Result) {
	s.Scenarios = append(s.Scenarios, ScenarioSummary{
		Name:    r.Scenario,
		RunID:   r.RunID,
		Pass:    r.Pass,
		State:   r.State,
		Events:  len(r.Trace),
		Digest:  r.Digest,
		Failure: r.Failure,
		Errors:  r.Errors,
	})
	s.Total++
	if r.Pass {
		s.Passed++
	} else {
		s.Failed++
	}
}

func (s RunSummary) writeText(w io.Writer) {
	for _, sc := range s.Scenarios {
		if sc.Pass {
			fmt.Fprintf(w, "PASS %s (%d events)\n", sc.Name, sc.Events)
			continue
		}
		fmt.Fprintf(w, "FAIL %s (%d events)\n", sc.Name, sc.Events)
		for _, e := range sc.Errors {
			fmt.Fprintf(w, "  %s\n", e)
		}
	}
	fmt.Fprintf(w, "\n%d scenarios: %d passed, %d failed\n", s.Total, s.Passed, s.Failed)
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	return newRunCommand(&RunOptions{RootOptions: rootOpts})
}

func newRunCommand(opts *RunOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <scenarios-dir>",
		Short: "Run navigation scenarios in Chrome",
		Long: `Run every scenario in a directory against a live Chrome and check the
reported lifecycle events against each expected trace.

Relative scenario URLs resolve against --base-url, which usually points at
a server hosting the fixture pages.

Exit codes:
  0 - All scenarios passed
  1 - One or more scenarios failed
  2 - Command error (invalid paths, Chrome not found, etc.)

Examples:
  navexpect run ./scenarios --base-url http://127.0.0.1:8080/
  navexpect run ./scenarios --filter "iframe*" --db ./runs.db
  navexpect run ./scenarios --golden-dir ./golden --update
  navexpect run ./scenarios --watch --metrics-addr :9090`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScenarios(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.BaseURL, "base-url", "", "base URL for relative scenario URLs (overrides config)")
	cmd.Flags().StringVar(&opts.Filter, "filter", "", "filter scenarios by glob pattern")
	cmd.Flags().StringVar(&opts.Database, "db", "", "record runs to this SQLite database (overrides config)")
	cmd.Flags().StringVar(&opts.GoldenDir, "golden-dir", "", "compare traces with golden files in this directory (overrides config)")
	cmd.Flags().BoolVar(&opts.Update, "update", false, "regenerate golden files instead of comparing")
	cmd.Flags().StringVar(&opts.MetricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address (overrides config)")
	cmd.Flags().BoolVar(&opts.Watch, "watch", false, "re-run scenarios when their files change")
	cmd.Flags().DurationVar(&opts.Settle, "settle", 0, "keep listening this long after a trace is satisfied (overrides config)")

	return cmd
}

// merge applies config values for flags the user did not set.
func (opts *RunOptions) merge(cmd *cobra.Command) {
	cfg := opts.Config
	if !cmd.Flags().Changed("base-url") {
		opts.BaseURL = cfg.BaseURL
	}
	if !cmd.Flags().Changed("db") {
		opts.Database = cfg.DB
	}
	if !cmd.Flags().Changed("golden-dir") {
		opts.GoldenDir = cfg.GoldenDir
	}
	if !cmd.Flags().Changed("metrics-addr") {
		opts.MetricsAddr = cfg.MetricsAddr
	}
	if !cmd.Flags().Changed("settle") {
		opts.Settle = time.Duration(cfg.Settle)
	}
}

func runScenarios(opts *RunOptions, dir string, cmd *cobra.Command) error {
	opts.merge(cmd)
	logger := opts.Logger(cmd.ErrOrStderr())
	out := opts.formatter(cmd)

	if _, err := os.Stat(dir); err != nil {
		return WrapExitError(ExitCommandError, "scenarios directory not found", err)
	}
	if opts.Update && opts.GoldenDir == "" {
		return NewExitError(ExitCommandError, "--update requires --golden-dir")
	}

	scenarios, err := harness.LoadScenarioDir(dir, opts.Filter)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load scenarios", err)
	}

	resolver, err := webnav.NewURLResolver(opts.BaseURL)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid base URL", err)
	}

	ctx, cancel := signalContext(cmd.Context(), logger)
	defer cancel()

	env := harness.Env{
		Browser:  opts.Browser,
		Resolver: resolver,
		Logger:   logger,
		RunIDs:   opts.RunIDs,
		Settle:   opts.Settle,
	}
	if env.Browser == nil {
		cdpCfg := opts.Config.CDP()
		env.Browser = func(ctx context.Context) (webnav.Browser, error) {
			return cdp.Launch(ctx, cdpCfg, cdp.WithLogger(logger))
		}
	}

	var st *store.Store
	if opts.Database != "" {
		st, err = store.Open(opts.Database)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to open database", err)
		}
		defer func() {
			if closeErr := st.Close(); closeErr != nil {
				logger.Error("error closing database", "error", closeErr)
			}
		}()
		env.Recorder = st
	}

	if opts.MetricsAddr != "" {
		reg := prometheus.NewRegistry()
		env.Metrics = metrics.New(reg)
		var runs metrics.RunReader
		if st != nil {
			runs = st
		}
		go func() {
			if err := metrics.Serve(ctx, opts.MetricsAddr, metrics.NewRouter(reg, runs), logger); err != nil {
				logger.Error("metrics server failed", "error", err)
			}
		}()
	}

	summary, err := runBatch(ctx, opts, env, scenarios)
	if err != nil {
		return err
	}
	if err := out.Success(summary, summary.writeText); err != nil {
		return err
	}

	if opts.Watch {
		return watchScenarios(ctx, opts, env, dir, out, logger)
	}
	if summary.Failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d of %d scenarios failed", summary.Failed, summary.Total))
	}
	return nil
}

// runBatch runs scenarios and applies golden checks.
func runBatch(ctx context.Context, opts *RunOptions, env harness.Env, scenarios []*harness.Scenario) (RunSummary, error) {
	summary := RunSummary{Scenarios: make([]ScenarioSummary, 0, len(scenarios))}
	results, err := harness.RunAll(ctx, env, scenarios)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return summary, WrapExitError(ExitCommandError, "interrupted", err)
		}
		return summary, WrapExitError(ExitCommandError, "scenario run failed", err)
	}
	for _, r := range results {
		if err := checkGolden(opts, r); err != nil {
			return summary, err
		}
		summary.add(r)
	}
	return summary, nil
}

func checkGolden(opts *RunOptions, r *harness.Result) error {
	if opts.GoldenDir == "" {
		return nil
	}
	if opts.Update {
		if err := harness.WriteGolden(opts.GoldenDir, r); err != nil {
			return WrapExitError(ExitCommandError, "failed to write golden file", err)
		}
		return nil
	}
	if err := harness.CompareGolden(opts.GoldenDir, r); err != nil {
		r.AddError(err.Error())
	}
	return nil
}

// watchScenarios re-runs the scenarios of each changed file until ctx ends.
func watchScenarios(ctx context.Context, opts *RunOptions, env harness.Env, dir string, out *OutputFormatter, logger *slog.Logger) error {
	stop, err := harness.Watch(dir, logger, func(path string) {
		scenarios, err := harness.LoadScenarioFile(path)
		if err != nil {
			logger.Warn("skipping invalid scenario file", "path", path, "error", err)
			return
		}
		scenarios = filterScenarios(scenarios, opts.Filter)
		summary, err := runBatch(ctx, opts, env, scenarios)
		if err != nil {
			logger.Error("re-run failed", "path", path, "error", err)
			return
		}
		if err := out.Success(summary, summary.writeText); err != nil {
			logger.Error("write output", "error", err)
		}
	})
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to watch scenarios", err)
	}
	defer stop()

	out.VerboseLog("watching %s for changes", dir)
	<-ctx.Done()
	return nil
}

func filterScenarios(scenarios []*harness.Scenario, filter string) []*harness.Scenario {
	if filter == "" {
		return scenarios
	}
	var out []*harness.Scenario
	for _, s := range scenarios {
		if ok, _ := filepath.Match(filter, s.Name); ok {
			out = append(out, s)
		}
	}
	return out
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext(parent context.Context, logger *slog.Logger) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		select {
		case sig := <-sigChan:
			logger.Info("received signal, shutting down", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, func() {
		signal.Stop(sigChan)
		cancel()
	}
}
