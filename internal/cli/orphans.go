package cli

import (
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/windy-civi/toolkit/internal/layout"
	"github.com/windy-civi/toolkit/internal/model"
	"github.com/windy-civi/toolkit/internal/store"
)

// OrphansOptions holds flags for the orphans command.
type OrphansOptions struct {
	*RootOptions
	OutputDir string
	Chronic   bool
}

// NewOrphansCommand creates the orphans command.
func NewOrphansCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &OrphansOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "orphans",
		Short: "Report bills tracked as orphaned placeholders",
		Long: `Report bill identifiers that have only placeholder data.

An orphan is a bill referenced by votes or events whose own record has
never arrived. Chronic orphans (3+ runs) usually indicate typos in
vote/event bill identifiers or bills the scraper missed.

Example:
  windycivi orphans --output ./il-repo
  windycivi orphans --output ./il-repo --chronic`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOrphans(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.OutputDir, "output", "", "repository root holding the tree (required)")
	cmd.Flags().BoolVar(&opts.Chronic, "chronic", false, "only show chronic orphans (3+ occurrences)")
	_ = cmd.MarkFlagRequired("output")

	return cmd
}

func runOrphans(opts *OrphansOptions, cmd *cobra.Command) error {
	st := &store.Store{Root: opts.OutputDir}

	tracking := map[string]model.OrphanRecord{}
	err := st.ReadJSON(layout.OrphanTrackingFile(opts.OutputDir), &tracking)
	if err != nil && !os.IsNotExist(err) {
		return WrapExitError(ExitCommandError, "failed to read orphan tracking", err)
	}

	if opts.Chronic {
		for billID, rec := range tracking {
			if !rec.Chronic() {
				delete(tracking, billID)
			}
		}
	}

	formatter := &OutputFormatter{
		Format:  opts.Format,
		Writer:  cmd.OutOrStdout(),
		Verbose: opts.Verbose,
	}
	if opts.Format == "json" {
		return formatter.Success(tracking)
	}

	out := cmd.OutOrStdout()
	if len(tracking) == 0 {
		fmt.Fprintln(out, "No orphaned bills tracked.")
		return nil
	}

	ids := make([]string, 0, len(tracking))
	for billID := range tracking {
		ids = append(ids, billID)
	}
	sort.Strings(ids)

	fmt.Fprintf(out, "Tracked orphans: %d\n", len(ids))
	for _, billID := range ids {
		rec := tracking[billID]
		flag := ""
		if rec.Chronic() {
			flag = " [chronic]"
		}
		fmt.Fprintf(out, "  %s (session %s): seen %d times, %d votes, %d events%s\n",
			billID, rec.Session, rec.OccurrenceCount, rec.VoteCount, rec.EventCount, flag)
	}
	return nil
}
