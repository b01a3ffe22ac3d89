package main

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"flux_cli/core"
	"flux_cli/db"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

const historyPromptWidth = 40

func newHistoryCommand(stdout io.Writer) *cobra.Command {
	var (
		limit     int
		dbPath    string
		pruneDays int
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent generation runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}

			database, err := db.Open(dbPath)
			if err != nil {
				return fmt.Errorf("failed to open run history: %w", err)
			}
			defer database.Close()
			repo := db.NewRepository(database)

			if pruneDays > 0 {
				deleted, err := repo.PruneRuns(ctx, pruneDays)
				if err != nil {
					return err
				}
				fmt.Fprintf(stdout, "Removed %d runs older than %d days\n", deleted, pruneDays)
			}

			runs, err := repo.RecentRuns(ctx, limit)
			if err != nil {
				return err
			}
			if err := printHistory(stdout, runs, time.Now()); err != nil {
				return err
			}

			total, err := repo.CountRuns(ctx, "")
			if err != nil {
				return err
			}
			version, _, err := db.MigrationVersion(dbPath)
			if err != nil {
				return err
			}
			return printHistoryFooter(stdout, len(runs), total, dbPath, version)
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 10, "Number of runs to show")
	cmd.Flags().StringVar(&dbPath, "history-db", core.GetDataFilePath("history.db"), "Run history database")
	cmd.Flags().IntVar(&pruneDays, "prune-days", 0, "Delete runs older than this many days first")
	return cmd
}

// printHistory writes runs as an aligned table, newest first.
func printHistory(w io.Writer, runs []db.RunRecord, now time.Time) error {
	if len(runs) == 0 {
		_, err := fmt.Fprintln(w, "No runs recorded yet.")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "WHEN\tMODEL\tSTATUS\tSIZE\tSTEPS\tSEED\tTIME\tRESULT\tPROMPT")
	for _, r := range runs {
		seed := "-"
		if r.Seed != nil {
			seed = strconv.FormatUint(*r.Seed, 10)
		}
		result := r.OutputPath
		if r.Status != db.StatusSucceeded {
			result = truncate(r.ErrorMessage, historyPromptWidth)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%dx%d\t%d\t%s\t%s\t%s\t%s\n",
			humanize.RelTime(r.CreatedAt, now, "ago", "from now"),
			r.Variant,
			r.Status,
			r.Width, r.Height,
			r.Steps,
			seed,
			r.Duration.Round(time.Millisecond),
			result,
			truncate(r.Prompt, historyPromptWidth),
		)
	}
	return tw.Flush()
}

// printHistoryFooter writes how many runs were listed and where they are stored.
func printHistoryFooter(w io.Writer, shown, total int, path string, schema uint) error {
	if total == 0 {
		return nil
	}
	_, err := fmt.Fprintf(w, "\nShowing %d of %d runs from %s (schema v%d)\n", shown, total, path, schema)
	return err
}

func truncate(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-3]) + "..."
}
