package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/windy-civi/toolkit/internal/layout"
	"github.com/windy-civi/toolkit/internal/runlog"
)

// RunsOptions holds flags for the runs command.
type RunsOptions struct {
	*RootOptions
	OutputDir string
	Limit     int
}

// NewRunsCommand creates the runs command.
func NewRunsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recent pipeline runs",
		Long: `List recent pipeline runs recorded in the run history.

Example:
  windycivi runs --output ./il-repo
  windycivi runs --output ./il-repo --limit 5`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRuns(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.OutputDir, "output", "", "repository root holding the tree (required)")
	cmd.Flags().IntVar(&opts.Limit, "limit", 20, "maximum number of runs to list")
	_ = cmd.MarkFlagRequired("output")

	return cmd
}

func runRuns(opts *RunsOptions, cmd *cobra.Command) error {
	historyPath := layout.RunHistoryFile(opts.OutputDir)
	if _, err := os.Stat(historyPath); err != nil {
		return NewExitError(ExitCommandError, "no run history recorded; run format first")
	}

	hist, err := runlog.Open(historyPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open run history", err)
	}
	defer hist.Close()

	records, err := hist.ListRuns(cmd.Context(), opts.Limit)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to list runs", err)
	}

	formatter := &OutputFormatter{
		Format:  opts.Format,
		Writer:  cmd.OutOrStdout(),
		Verbose: opts.Verbose,
	}
	if opts.Format == "json" {
		return formatter.Success(records)
	}

	out := cmd.OutOrStdout()
	if len(records) == 0 {
		fmt.Fprintln(out, "No runs recorded.")
		return nil
	}
	for _, rec := range records {
		fmt.Fprintf(out, "%s  %s  bills=%d votes=%d events=%d linked=%d deferred=%d orphans=%d\n",
			rec.StartedAt.Format("2006-01-02 15:04:05"),
			rec.ID,
			rec.Bills, rec.VoteEvents, rec.Events,
			rec.LinkedEvents, rec.DeferredEvents, rec.Orphans)
	}
	return nil
}
