package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/navexpect/internal/ir"
	"github.com/roach88/navexpect/internal/store"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database string
	RunID    string // optional - list runs otherwise
	Scenario string // optional - filter the run list
	Event    string // optional - filter to one event name
}

// TraceResult holds one recorded run and its events.
type TraceResult struct {
	Run    store.Run     `json:"run"`
	Events []store.Event `json:"events"`
	Stats  TraceStats    `json:"stats"`
}

// TraceStats counts events by name.
type TraceStats struct {
	TotalEvents int            `json:"total_events"`
	ByEvent     map[string]int `json:"by_event"`
	Frames      int            `json:"frames"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Show recorded runs and their event traces",
		Long: `List recorded runs, or print the observed trace of one run.

Without --run, every run is listed (optionally only those of --scenario).
With --run, the run's events are printed in arrival order.

Examples:
  navexpect trace --db ./runs.db
  navexpect trace --db ./runs.db --scenario iframe
  navexpect trace --db ./runs.db --run 0190... --event onCommitted
  navexpect trace --db ./runs.db --run 0190... --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.RunID, "run", "", "run id to print")
	cmd.Flags().StringVar(&opts.Scenario, "scenario", "", "list only runs of this scenario")
	cmd.Flags().StringVar(&opts.Event, "event", "", "print only events with this name")

	return cmd
}

func runTrace(opts *TraceOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()
	out := opts.formatter(cmd)

	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	if opts.RunID == "" {
		runs, err := st.ListRuns(ctx, opts.Scenario)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to list runs", err)
		}
		return out.Success(runs, func(w io.Writer) {
			if len(runs) == 0 {
				fmt.Fprintln(w, "No runs found.")
				return
			}
			for _, r := range runs {
				fmt.Fprintf(w, "%s  %-24s %-10s %s\n", r.ID, r.Scenario, r.State, passLabel(r))
			}
		})
	}

	run, err := st.ReadRun(ctx, opts.RunID)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read run", err)
	}
	var events []store.Event
	if opts.Event != "" {
		events, err = st.ReadEventsNamed(ctx, opts.RunID, opts.Event)
	} else {
		events, err = st.ReadEvents(ctx, opts.RunID)
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read events", err)
	}

	result := TraceResult{Run: run, Events: events, Stats: TraceStats{ByEvent: map[string]int{}}}
	frames := map[string]bool{}
	for _, ev := range events {
		result.Stats.ByEvent[ev.Name]++
		if f, ok := ev.Attributes["frameId"]; ok {
			frames[ir.Format(f)] = true
		}
	}
	result.Stats.TotalEvents = len(result.Events)
	result.Stats.Frames = len(frames)

	return out.Success(result, result.writeText)
}

func passLabel(r store.Run) string {
	switch {
	case !r.Finished:
		return "unfinished"
	case r.Pass:
		return "pass"
	case r.ErrorCode != "":
		return "fail " + r.ErrorCode
	}
	return "fail"
}

func (t TraceResult) writeText(w io.Writer) {
	fmt.Fprintf(w, "Run %s (%s): %s, %s\n", t.Run.ID, t.Run.Scenario, t.Run.State, passLabel(t.Run))
	if t.Run.Error != "" {
		fmt.Fprintf(w, "%s\n", t.Run.Error)
	}
	fmt.Fprintln(w)
	for _, ev := range t.Events {
		fmt.Fprintf(w, "[%d] %s %s\n", ev.Seq, ev.Name, ir.Format(ev.Attributes))
	}
	fmt.Fprintf(w, "\n%d events across %d frames\n", t.Stats.TotalEvents, t.Stats.Frames)
}
