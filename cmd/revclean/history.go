package main

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jamesainslie/revclean/pkg/revclean/journal"
	"github.com/spf13/cobra"
)

func newHistoryCmd(a *app) *cobra.Command {
	var limit int
	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "List recent cleanup runs",
		Long: `List the cleanup runs recorded in the run history, newest first.

Each run records the cleaned directory, the manifest and every path
that was removed. Use 'revclean history show <id>' for the full list.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runHistory(cmd.OutOrStdout(), limit)
		},
	}
	historyCmd.Flags().IntVarP(&limit, "limit", "l", 20, "maximum number of runs to show (0 = all)")

	showCmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show one run in detail",
		Long:  `Display a recorded run by its ID or a unique ID prefix.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runHistoryShow(cmd.OutOrStdout(), args[0])
		},
	}

	var days int
	pruneCmd := &cobra.Command{
		Use:   "prune",
		Short: "Remove old runs from the history",
		Long:  `Remove recorded runs older than the retention period (journal.retention_days).`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runHistoryPrune(cmd.OutOrStdout(), days)
		},
	}
	pruneCmd.Flags().IntVar(&days, "days", 0, "retention in days (default: journal.retention_days)")

	historyCmd.AddCommand(showCmd, pruneCmd)
	return historyCmd
}

// withJournal opens the journal for the duration of fn.
func (a *app) withJournal(fn func(*journal.Journal) error) error {
	cfg := *a.cfg
	// Retention is applied by 'history prune' only.
	cfg.Journal.RetentionDays = 0

	j, err := openJournal(&cfg)
	if err != nil {
		return fmt.Errorf("failed to open run history: %w", err)
	}
	defer j.Close()
	return fn(j)
}

func (a *app) runHistory(w io.Writer, limit int) error {
	return a.withJournal(func(j *journal.Journal) error {
		records, err := j.List(limit)
		if err != nil {
			return fmt.Errorf("failed to list history: %w", err)
		}

		if len(records) == 0 {
			fmt.Fprintln(w, "No runs recorded.")
			fmt.Fprintln(w, "Run 'revclean [dir]' to clean a build directory.")
			return nil
		}

		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tWHEN\tDELETED\tRECLAIMED\tROOT")
		for _, rec := range records {
			deleted := fmt.Sprintf("%d", len(rec.Deleted))
			if rec.DryRun {
				deleted += " (dry run)"
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
				shortID(rec.ID),
				humanize.Time(rec.Timestamp),
				deleted,
				humanize.IBytes(uint64(rec.ReclaimedBytes)),
				rec.Root,
			)
		}
		return tw.Flush()
	})
}

func (a *app) runHistoryShow(w io.Writer, id string) error {
	return a.withJournal(func(j *journal.Journal) error {
		rec, err := j.Get(id)
		if err != nil {
			return fmt.Errorf("failed to get run: %w", err)
		}

		fmt.Fprintf(w, "ID:         %s\n", rec.ID)
		fmt.Fprintf(w, "Time:       %s (%s)\n", rec.Timestamp.Local().Format(time.RFC1123), humanize.Time(rec.Timestamp))
		fmt.Fprintf(w, "Root:       %s\n", rec.Root)
		fmt.Fprintf(w, "Manifest:   %s\n", rec.Manifest)
		fmt.Fprintf(w, "Dry run:    %t\n", rec.DryRun)
		fmt.Fprintf(w, "Scanned:    %d entries, %d kept\n", rec.Scanned, rec.Survivors)
		fmt.Fprintf(w, "Reclaimed:  %s\n", humanize.IBytes(uint64(rec.ReclaimedBytes)))

		if len(rec.Deleted) > 0 {
			fmt.Fprintf(w, "\nDeleted (%d):\n", len(rec.Deleted))
			for _, p := range rec.Deleted {
				fmt.Fprintf(w, "  %s\n", p)
			}
		}
		return nil
	})
}

func (a *app) runHistoryPrune(w io.Writer, days int) error {
	if days <= 0 {
		days = a.cfg.Journal.RetentionDays
	}
	if days <= 0 {
		return fmt.Errorf("retention must be positive, got %d days", days)
	}

	return a.withJournal(func(j *journal.Journal) error {
		n, err := j.Prune(time.Duration(days) * 24 * time.Hour)
		if err != nil {
			return fmt.Errorf("failed to prune history: %w", err)
		}
		fmt.Fprintf(w, "Removed %d run(s) older than %d days.\n", n, days)
		return nil
	})
}

// shortID trims a record ID for table display.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
