package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/windy-civi/toolkit/internal/pipeline"
	"github.com/windy-civi/toolkit/internal/session"
)

// FormatOptions holds flags for the format command.
type FormatOptions struct {
	*RootOptions
	State     string
	InputDir  string
	OutputDir string

	// Fetcher allows overriding the session source (for testing).
	// If nil, defaults to the upstream HTTP API.
	Fetcher session.Fetcher
}

// NewFormatCommand creates the format command.
func NewFormatCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &FormatOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "format",
		Short: "Run the full reconciliation pipeline over a scraped batch",
		Long: `Run the incremental reconciliation pipeline.

Loads the scraped batch from the input folder, routes each record to
its entity handler, merges bills action-by-action against persisted
state, links archived events to their bills, and reconciles
placeholders. Safe to rerun: a second run over the same input leaves
the tree unchanged.

Example:
  windycivi format --state il --input ./scrape-output --output ./il-repo
  windycivi format --state usa --input /tmp/batch --output ./usa-repo --verbose`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFormat(cmd.Context(), opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.State, "state", "", "jurisdiction code to process (required)")
	cmd.Flags().StringVar(&opts.InputDir, "input", "", "folder containing scraped JSON files (required)")
	cmd.Flags().StringVar(&opts.OutputDir, "output", "", "repository root to write the tree under (required)")
	_ = cmd.MarkFlagRequired("state")
	_ = cmd.MarkFlagRequired("input")
	_ = cmd.MarkFlagRequired("output")

	return cmd
}

func runFormat(ctx context.Context, opts *FormatOptions, cmd *cobra.Command) error {
	configureLogging(opts.Verbose)

	if ctx == nil {
		ctx = context.Background()
	}

	fetcher := opts.Fetcher
	if fetcher == nil {
		fetcher = &session.HTTPFetcher{}
	}

	summary, err := pipeline.Run(ctx, pipeline.Options{
		State:     opts.State,
		InputDir:  opts.InputDir,
		OutputDir: opts.OutputDir,
		Fetcher:   fetcher,
	})
	if err != nil {
		return WrapExitError(ExitCommandError, "pipeline failed", err)
	}

	formatter := &OutputFormatter{
		Format:  opts.Format,
		Writer:  cmd.OutOrStdout(),
		Verbose: opts.Verbose,
	}
	if opts.Format == "json" {
		return formatter.Success(summary)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "Processing summary:")
	fmt.Fprintf(out, "  Bills saved:          %d\n", summary.Bills)
	fmt.Fprintf(out, "  Vote events saved:    %d\n", summary.VoteEvents)
	fmt.Fprintf(out, "  Events saved:         %d\n", summary.Events)
	fmt.Fprintf(out, "  Events linked:        %d\n", summary.Linking.Linked)
	fmt.Fprintf(out, "  Events deferred:      %d\n", summary.Linking.Deferred)
	fmt.Fprintf(out, "  Placeholders cleaned: %d\n", summary.Orphans.PlaceholdersDeleted)
	if summary.Orphans.Orphans > 0 {
		fmt.Fprintf(out, "  Orphaned bills:       %d (see tracking report)\n", summary.Orphans.Orphans)
	}
	return nil
}

// configureLogging switches slog to debug when verbose is set.
func configureLogging(verbose bool) {
	logLevel := slog.LevelInfo
	if verbose {
		logLevel = slog.LevelDebug
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	})
	slog.SetDefault(slog.New(handler))
}
