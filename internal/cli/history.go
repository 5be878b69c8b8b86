package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/reclaw/conformance/internal/history"
)

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	Database string
	Limit    int
	RunID    int64
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List archived conformance runs",
		Long: `List runs recorded with check --history, newest first, or show the full
outcome list of one run.

Examples:
  reclaw-conformance history --db ./conformance.db
  reclaw-conformance history --db ./conformance.db --run 12
  reclaw-conformance history --db ./conformance.db --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to the history database (required)")
	cmd.Flags().IntVar(&opts.Limit, "limit", 20, "maximum runs to list")
	cmd.Flags().Int64Var(&opts.RunID, "run", 0, "show the outcomes of one run id")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runHistory(opts *HistoryOptions, cmd *cobra.Command) error {
	if _, err := os.Stat(opts.Database); os.IsNotExist(err) {
		return NewExitError(ExitCommandError, fmt.Sprintf("history database not found: %s", opts.Database))
	}

	store, err := history.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open history database", err)
	}
	defer store.Close()

	out := cmd.OutOrStdout()

	if opts.RunID > 0 {
		outcomes, err := store.Outcomes(cmd.Context(), opts.RunID)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to read outcomes", err)
		}
		if opts.Format == "json" {
			encoder := json.NewEncoder(out)
			encoder.SetIndent("", "  ")
			return encoder.Encode(outcomes)
		}
		for _, outcome := range outcomes {
			status := "PASS"
			if !outcome.Passed {
				status = "FAIL"
			}
			fmt.Fprintf(out, "[%s] %s - %s\n", status, outcome.Name, outcome.Detail)
		}
		return nil
	}

	summaries, err := store.ListRuns(cmd.Context(), opts.Limit)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to list runs", err)
	}
	if opts.Format == "json" {
		encoder := json.NewEncoder(out)
		encoder.SetIndent("", "  ")
		return encoder.Encode(summaries)
	}
	for _, summary := range summaries {
		fmt.Fprintf(out, "#%d %s %s - %d total, %d failed\n",
			summary.ID,
			summary.StartedAt.UTC().Format(time.RFC3339),
			summary.BaseURL,
			summary.Total,
			summary.Failed,
		)
	}
	return nil
}
