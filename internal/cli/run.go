package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/roach88/dutkit/internal/backend"
	"github.com/roach88/dutkit/internal/backend/reference"
	"github.com/roach88/dutkit/internal/bench"
	"github.com/roach88/dutkit/internal/entity"
	"github.com/roach88/dutkit/internal/harness"
	"github.com/roach88/dutkit/internal/store"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Database  string
	WorkRoot  string
	Entities  []string
	Reference bool
	Stimulus  harness.Stimulus

	// IDGenerator allows overriding instance IDs (for testing).
	// If nil, defaults to UUIDv7Generator.
	IDGenerator entity.IDGenerator
}

// RunSummary is the outcome of one entity run.
type RunSummary struct {
	Entity  string         `json:"entity"`
	Model   string         `json:"model"`
	Status  string         `json:"status"`
	Code    string         `json:"code,omitempty"`
	Outputs map[string]int `json:"outputs,omitempty"` // port -> rows
}

// RunResult holds the outcome of every entity of a bench.
type RunResult struct {
	Bench  string       `json:"bench"`
	Runs   []RunSummary `json:"runs"`
	Failed int          `json:"failed"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <bench-dir>",
		Short: "Run every entity of a bench",
		Long: `Run every entity of a CUE bench in parallel against one stimulus.

Each entity dispatches to its model's backend: functional entities run
in-process, gate-level and analog entities go through the simulators
declared by the bench. With --db every run and its outputs are recorded
to a SQLite database (created if it doesn't exist).

Exit codes:
  0 - All entities succeeded
  1 - One or more entities failed
  2 - Command error (invalid bench, database error, etc.)

Example:
  dutkit run ./bench
  dutkit run ./bench --pattern random --length 64 --seed 3 --db ./results.db
  dutkit run ./bench --entity inv_py --entity inv_sv --reference`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBench(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database to record runs to")
	cmd.Flags().StringVar(&opts.WorkRoot, "work-root", "", "directory for entity run directories (default: bench workroot)")
	cmd.Flags().StringSliceVar(&opts.Entities, "entity", nil, "run only the named entities")
	cmd.Flags().BoolVar(&opts.Reference, "reference", false, "serve tools the bench does not declare with in-process reference simulators")
	cmd.Flags().StringVar(&opts.Stimulus.Port, "port", "", "input port to drive (default: first input)")
	cmd.Flags().StringVar(&opts.Stimulus.Pattern, "pattern", harness.PatternAlternating, "stimulus pattern (alternating|random|values)")
	cmd.Flags().IntVar(&opts.Stimulus.Length, "length", 16, "number of samples")
	cmd.Flags().IntVar(&opts.Stimulus.Width, "width", 1, "columns per sample")
	cmd.Flags().Uint64Var(&opts.Stimulus.Seed, "seed", 1, "seed of the random pattern")
	cmd.Flags().Float64SliceVar(&opts.Stimulus.Values, "values", nil, "explicit samples of the values pattern")

	return cmd
}

func runBench(opts *RunOptions, benchDir string, cmd *cobra.Command) error {
	logger := newLogger(opts.RootOptions, cmd.ErrOrStderr())
	slog.SetDefault(logger)

	st := opts.Stimulus
	if st.Pattern == harness.PatternValues && !cmd.Flags().Changed("length") {
		st.Length = len(st.Values)
	}
	if err := st.Validate(); err != nil {
		return WrapExitError(ExitCommandError, "invalid stimulus", err)
	}

	slog.Info("loading bench", "dir", benchDir)
	spec, errs := bench.Load(benchDir)
	if len(errs) > 0 {
		return WrapExitError(ExitCommandError, "failed to load bench", errors.Join(errs...))
	}
	slog.Info("bench loaded", "entities", len(spec.Entities), "simulators", len(spec.Simulators))

	sims := spec.Registry()
	if opts.Reference {
		sims = referenceSimulators(sims)
	}
	workRoot := opts.WorkRoot
	if workRoot == "" {
		workRoot = spec.WorkRoot
	}
	ids := opts.IDGenerator
	if ids == nil {
		ids = entity.UUIDv7Generator{}
	}

	hopts := []harness.Option{
		harness.WithSimulators(sims),
		harness.WithWorkRoot(workRoot),
		harness.WithIDGenerator(ids),
		harness.WithLogger(logger),
	}
	if len(opts.Entities) > 0 {
		hopts = append(hopts, harness.WithEntities(opts.Entities...))
	}

	// Setup signal handling for graceful shutdown
	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, stop := signal.NotifyContext(parentCtx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	scenario := &harness.Scenario{
		Name:     filepath.Base(filepath.Clean(benchDir)),
		Bench:    benchDir,
		Stimulus: st,
	}

	var result *harness.Result
	var err error
	if opts.Database != "" {
		slog.Info("opening database", "path", opts.Database)
		db, openErr := store.Open(opts.Database)
		if openErr != nil {
			return WrapExitError(ExitCommandError, "failed to open database", openErr)
		}
		defer func() {
			if closeErr := db.Close(); closeErr != nil {
				slog.Error("error closing database", "error", closeErr)
			}
		}()
		result, err = harness.RunAndRecord(ctx, scenario, db, hopts...)
	} else {
		result, err = harness.Run(ctx, scenario, hopts...)
	}
	if err != nil {
		if errors.Is(err, context.Canceled) {
			slog.Info("run interrupted")
		}
		return WrapExitError(ExitCommandError, "run failed", err)
	}

	return outputRunResult(newFormatter(opts.RootOptions, cmd), summarizeTrace(scenario.Name, result.Trace))
}

// referenceSimulators overlays the bench's commands on the in-process
// reference simulators.
func referenceSimulators(declared backend.Registry) backend.Registry {
	sims := reference.Simulators()
	for name, s := range declared {
		sims[name] = s
	}
	return sims
}

// summarizeTrace folds run and output events into one summary per entity.
func summarizeTrace(benchName string, trace []harness.TraceEvent) RunResult {
	result := RunResult{Bench: benchName}
	index := map[string]int{}
	for _, ev := range trace {
		switch ev.Type {
		case harness.EventRun:
			index[ev.Entity] = len(result.Runs)
			result.Runs = append(result.Runs, RunSummary{
				Entity: ev.Entity, Model: ev.Model, Status: ev.Status, Code: ev.Code,
			})
			if ev.Status == store.StatusFailed {
				result.Failed++
			}
		case harness.EventOutput:
			i, ok := index[ev.Entity]
			if !ok {
				continue
			}
			if result.Runs[i].Outputs == nil {
				result.Runs[i].Outputs = map[string]int{}
			}
			result.Runs[i].Outputs[ev.Port] = ev.Rows
		}
	}
	if result.Runs == nil {
		result.Runs = []RunSummary{}
	}
	return result
}

func outputRunResult(formatter *OutputFormatter, result RunResult) error {
	if formatter.Format == "json" {
		response := CLIResponse{Status: "ok", Data: result}
		if result.Failed > 0 {
			response.Status = "error"
			response.Error = &CLIError{
				Code:    "E_RUN_FAILED",
				Message: fmt.Sprintf("%d entit(ies) failed", result.Failed),
			}
		}
		if err := writeJSON(formatter.Writer, response); err != nil {
			return err
		}
	} else {
		w := formatter.Writer
		for _, r := range result.Runs {
			if r.Status == store.StatusFailed {
				fmt.Fprintf(w, "✗ %-16s %-20s %s\n", r.Entity, r.Model, r.Code)
				continue
			}
			fmt.Fprintf(w, "✓ %-16s %s\n", r.Entity, r.Model)
			ports := make([]string, 0, len(r.Outputs))
			for p := range r.Outputs {
				ports = append(ports, p)
			}
			sort.Strings(ports)
			for _, p := range ports {
				fmt.Fprintf(w, "    %s: %d rows\n", p, r.Outputs[p])
			}
		}
		fmt.Fprintln(w)
		fmt.Fprintf(w, "Run Summary: %d ok, %d failed, %d total\n",
			len(result.Runs)-result.Failed, result.Failed, len(result.Runs))
	}

	if result.Failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d entit(ies) failed", result.Failed))
	}
	return nil
}
