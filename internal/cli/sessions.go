package cli

import (
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/windy-civi/toolkit/internal/layout"
	"github.com/windy-civi/toolkit/internal/session"
)

// SessionsOptions holds flags for the sessions command.
type SessionsOptions struct {
	*RootOptions
	OutputDir string
}

// NewSessionsCommand creates the sessions command.
func NewSessionsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SessionsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "Show the cached session mapping",
		Long: `Show the session identifier mapping cached for a repository.

The mapping is refreshed by jurisdiction manifests in the input batch
or fetched from the upstream API during a format run.

Example:
  windycivi sessions --output ./il-repo`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSessions(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.OutputDir, "output", "", "repository root holding the tree (required)")
	_ = cmd.MarkFlagRequired("output")

	return cmd
}

func runSessions(opts *SessionsOptions, cmd *cobra.Command) error {
	mapping, err := session.LoadMapping(layout.SessionsFile(opts.OutputDir))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return NewExitError(ExitCommandError, "no session mapping cached; run format first")
		}
		return WrapExitError(ExitCommandError, "failed to read session mapping", err)
	}

	formatter := &OutputFormatter{
		Format:  opts.Format,
		Writer:  cmd.OutOrStdout(),
		Verbose: opts.Verbose,
	}
	if opts.Format == "json" {
		return formatter.Success(mapping)
	}

	ids := make([]string, 0, len(mapping))
	for id := range mapping {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	out := cmd.OutOrStdout()
	for _, id := range ids {
		info := mapping[id]
		fmt.Fprintf(out, "%s\t%s\t%s\n", id, info.Name, info.DateFolder)
	}
	return nil
}
