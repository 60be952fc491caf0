package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/dutkit/internal/store"
)

// ResultsOptions holds flags for the results command.
type ResultsOptions struct {
	*RootOptions
	Database string
	Entity   string
	Digest   string
}

// OutputRecord is one recorded output, without its data.
type OutputRecord struct {
	Seq      int64  `json:"seq"`
	Instance string `json:"instance,omitempty"`
	Port     string `json:"port"`
	Digest   string `json:"digest"`
}

// RunRecord is one recorded run and its outputs.
type RunRecord struct {
	Seq      int64          `json:"seq"`
	Instance string         `json:"instance"`
	Entity   string         `json:"entity"`
	Model    string         `json:"model"`
	Status   string         `json:"status"`
	Code     string         `json:"code,omitempty"`
	Error    string         `json:"error,omitempty"`
	Outputs  []OutputRecord `json:"outputs"`
}

// NewResultsCommand creates the results command.
func NewResultsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ResultsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "results",
		Short: "List recorded runs",
		Long: `List the runs recorded by "run --db" or "test --db", oldest first.

With --digest, list every recorded output with that digest. Digests cover
the entity, model, port and data but not the instance, so repeated runs
that produced identical results share one.

Example:
  dutkit results --db ./results.db
  dutkit results --db ./results.db --entity inv_sv --format json
  dutkit results --db ./results.db --digest 3f2a...`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runResults(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	cmd.Flags().StringVar(&opts.Entity, "entity", "", "only runs of this entity")
	cmd.Flags().StringVar(&opts.Digest, "digest", "", "list outputs with this digest")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runResults(opts *ResultsOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)

	// store.Open would create a missing database.
	if _, err := os.Stat(opts.Database); os.IsNotExist(err) {
		return NewExitError(ExitCommandError, fmt.Sprintf("database not found: %s", opts.Database))
	}
	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	if opts.Digest != "" {
		outs, err := st.FindByDigest(ctx, opts.Digest)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to query outputs", err)
		}
		records := toOutputRecords(outs, true)
		if formatter.Format == "json" {
			return formatter.Success(records)
		}
		if len(records) == 0 {
			fmt.Fprintln(formatter.Writer, "No outputs found.")
			return nil
		}
		for _, o := range records {
			fmt.Fprintf(formatter.Writer, "%6d  %s  %s\n", o.Seq, o.Instance, o.Port)
		}
		return nil
	}

	runs, err := st.ReadRuns(ctx, opts.Entity)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to query runs", err)
	}
	records := make([]RunRecord, 0, len(runs))
	for _, r := range runs {
		outs, err := st.ReadOutputs(ctx, r.Instance)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to query outputs", err)
		}
		records = append(records, RunRecord{
			Seq: r.Seq, Instance: r.Instance, Entity: r.Entity, Model: r.Model,
			Status: r.Status, Code: r.Code, Error: r.Error,
			Outputs: toOutputRecords(outs, false),
		})
	}

	if formatter.Format == "json" {
		return formatter.Success(records)
	}
	if len(records) == 0 {
		fmt.Fprintln(formatter.Writer, "No runs found.")
		return nil
	}
	for _, r := range records {
		fmt.Fprintf(formatter.Writer, "%6d  %-16s %-20s %-6s %s\n", r.Seq, r.Entity, r.Model, r.Status, r.Instance)
		if r.Status == store.StatusFailed {
			fmt.Fprintf(formatter.Writer, "        %s: %s\n", r.Code, r.Error)
		}
		for _, o := range r.Outputs {
			fmt.Fprintf(formatter.Writer, "        %s %s\n", o.Port, o.Digest)
		}
	}
	return nil
}

func toOutputRecords(outs []store.Output, withInstance bool) []OutputRecord {
	records := make([]OutputRecord, 0, len(outs))
	for _, o := range outs {
		rec := OutputRecord{Seq: o.Seq, Port: o.Port, Digest: o.Digest}
		if withInstance {
			rec.Instance = o.Instance
		}
		records = append(records, rec)
	}
	return records
}
