package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/navexpect/internal/harness"
	"github.com/roach88/navexpect/internal/webnav"
)

// ValidateOptions holds flags for the validate command.
type ValidateOptions struct {
	*RootOptions
	Filter string
}

// ScenarioInfo describes one valid scenario.
type ScenarioInfo struct {
	Name        string `json:"name"`
	Path        string `json:"path"`
	Navigations int    `json:"navigations"`
	Events      int    `json:"events"`
	Assertions  int    `json:"assertions"`
}

// ValidateResult holds the validation output.
type ValidateResult struct {
	Valid     bool           `json:"valid"`
	Scenarios []ScenarioInfo `json:"scenarios"`
	Error     string         `json:"error,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ValidateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "validate <scenarios-path>",
		Short: "Validate scenario files without running them",
		Long: `Load and validate scenario files.

The path may be a directory (every .yaml, .yml and .cue file in it) or a
single file. Each scenario is also compiled into its engine expectation, so
anything validate accepts can be registered.

Examples:
  navexpect validate ./scenarios
  navexpect validate ./scenarios/iframe.yaml --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Filter, "filter", "", "filter scenarios by glob pattern")

	return cmd
}

func runValidate(opts *ValidateOptions, path string, cmd *cobra.Command) error {
	out := opts.formatter(cmd)

	info, err := os.Stat(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "scenarios path not found", err)
	}

	var scenarios []*harness.Scenario
	if info.IsDir() {
		scenarios, err = harness.LoadScenarioDir(path, opts.Filter)
	} else {
		scenarios, err = harness.LoadScenarioFile(path)
		scenarios = filterScenarios(scenarios, opts.Filter)
	}
	if err == nil {
		err = compileAll(scenarios)
	}
	if err != nil {
		result := ValidateResult{Valid: false, Scenarios: []ScenarioInfo{}, Error: err.Error()}
		if opts.Format == "json" {
			_ = out.Success(result, nil)
		} else {
			fmt.Fprintf(cmd.OutOrStdout(), "INVALID: %v\n", err)
		}
		return WrapExitError(ExitFailure, "validation failed", err)
	}

	result := ValidateResult{Valid: true, Scenarios: make([]ScenarioInfo, 0, len(scenarios))}
	for _, s := range scenarios {
		result.Scenarios = append(result.Scenarios, ScenarioInfo{
			Name:        s.Name,
			Path:        s.Path,
			Navigations: len(s.Navigate),
			Events:      len(s.Expect),
			Assertions:  len(s.Assertions),
		})
	}

	return out.Success(result, func(w io.Writer) {
		for _, s := range result.Scenarios {
			fmt.Fprintf(w, "OK %s (%d events) %s\n", s.Name, s.Events, s.Path)
		}
		fmt.Fprintf(w, "%d scenarios valid\n", len(result.Scenarios))
	})
}

// compileAll builds each scenario's expectation with a placeholder base so
// relative URLs resolve.
func compileAll(scenarios []*harness.Scenario) error {
	resolver, err := webnav.NewURLResolver("http://localhost/")
	if err != nil {
		return err
	}
	for _, s := range scenarios {
		if _, err := s.ToExpected(resolver); err != nil {
			return fmt.Errorf("%s: %w", s.Name, err)
		}
	}
	return nil
}
