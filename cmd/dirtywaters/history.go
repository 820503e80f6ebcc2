package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/caselka/DirtyWaters/internal/config"
	"github.com/caselka/DirtyWaters/internal/database"
)

// defaultHistoryLimit caps the listing so a long-lived database stays
// readable; --limit overrides it.
const defaultHistoryLimit = 20

// NewHistoryCmd creates the history command.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List past runs from the local history database",
		Long: `History lists runs previously saved with the "history: true" config option.

Examples:
  # List recent runs
  dirtywaters history

  # Only runs against one target
  dirtywaters history --target http://example.onion/wp-login.php

  # Dump the attempt records of run 3
  dirtywaters history --attempts 3`,
		RunE: runHistoryCmd,
	}

	cmd.Flags().StringP("target", "t", "",
		"Only list runs against this target URL")
	cmd.Flags().IntP("limit", "n", defaultHistoryLimit,
		"Maximum number of runs to list")
	cmd.Flags().Int64P("attempts", "a", 0,
		"Show the attempt records of the run with this ID")

	return cmd
}

// runHistoryCmd executes the history command.
func runHistoryCmd(cmd *cobra.Command, _ []string) error {
	opts := database.DefaultOptions()
	opts.CreateIfNotExists = false

	db, err := database.Open(config.XDGDataDir(), opts)
	if err != nil {
		return fmt.Errorf("no run history found (runs are saved when the config sets history: true): %w", err)
	}
	defer db.Close()

	runID, err := cmd.Flags().GetInt64("attempts")
	if err != nil {
		return err
	}
	if runID > 0 {
		return printRunAttempts(cmd, db, runID)
	}

	target, err := cmd.Flags().GetString("target")
	if err != nil {
		return err
	}
	limit, err := cmd.Flags().GetInt("limit")
	if err != nil {
		return err
	}

	return printRunList(cmd, db, target, limit)
}

// printRunList lists stored run summaries in a table.
func printRunList(cmd *cobra.Command, db *database.RunDB, target string, limit int) error {
	runs, err := db.ListRuns(cmd.Context(), target, limit)
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No runs recorded.")
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 2, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSTARTED\tTARGET\tUSERNAME\tATTEMPTS\tOUTCOME\tFOUND\tELAPSED")
	for _, r := range runs {
		found := "no"
		if r.Found {
			found = "yes"
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%d\t%s\t%s\t%s\n",
			r.ID,
			r.StartedAt.Format("2006-01-02 15:04"),
			r.TargetURL,
			r.Username,
			r.TotalAttempts,
			r.Outcome,
			found,
			r.Elapsed.Round(time.Second),
		)
	}

	return w.Flush()
}

// printRunAttempts dumps one run's attempt records.
func printRunAttempts(cmd *cobra.Command, db *database.RunDB, runID int64) error {
	report, err := db.GetRunByID(cmd.Context(), runID)
	if err != nil {
		return err
	}
	if report == nil {
		return fmt.Errorf("run %d not found", runID)
	}

	attempts, err := db.GetRunAttempts(cmd.Context(), runID)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Run %d: %s (username %q, outcome %s)\n\n",
		runID, report.TargetURL, report.Username, report.Outcome)

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 2, 4, 2, ' ', 0)
	fmt.Fprintln(w, "SEQ\tCANDIDATE\tOUTCOME\tVERDICT\tSTATUS\tDURATION\tDETAIL")
	for _, a := range attempts {
		status := "-"
		if a.StatusCode != 0 {
			status = fmt.Sprintf("%d", a.StatusCode)
		}
		detail := a.RedirectTarget
		if a.Error != "" {
			detail = a.Error
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\t%s\n",
			a.Seq,
			a.Candidate,
			a.Outcome,
			a.Verdict,
			status,
			a.Duration.Round(time.Millisecond),
			detail,
		)
	}

	return w.Flush()
}
