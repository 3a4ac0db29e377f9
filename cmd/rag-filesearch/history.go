// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/pdiddy/rag-filesearch/internal/journal"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent ingest attempts from the journal",
	Long: `History prints the most recent upload attempts recorded by ingest, newest
first. With --run, it prints the counts for a single ingest run instead.`,
	Args: cobra.NoArgs,
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().Int("limit", 20, "maximum attempts to show (0 = all)")
	historyCmd.Flags().String("run", "", "summarize one run by ID")

	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.JournalPath == "" {
		return fmt.Errorf("ingest journal is disabled (journal_path is empty)")
	}
	limit, _ := cmd.Flags().GetInt("limit")
	runID, _ := cmd.Flags().GetString("run")

	j, err := journal.Open(cfg.JournalPath)
	if err != nil {
		return err
	}
	defer j.Close()

	out := cmd.OutOrStdout()
	ctx := cmd.Context()

	if runID != "" {
		s, err := j.Summary(ctx, runID)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Run %s: %d uploaded, %d skipped, %d failed (total: %d)\n",
			s.RunID, s.Uploaded, s.Skipped, s.Failed, s.Total())
		return nil
	}

	attempts, err := j.Recent(ctx, limit)
	if err != nil {
		return err
	}
	if len(attempts) == 0 {
		fmt.Fprintln(out, "No ingest attempts recorded.")
		return nil
	}

	fmt.Fprintf(out, "%-19s  %-8s  %-8s  %-30s  %s\n", "Started", "Status", "Duration", "Title", "Detail")
	for _, a := range attempts {
		detail := a.OperationName
		if a.Status == journal.StatusFailed {
			detail = fmt.Sprintf("%s: %s", a.ErrorKind, a.Error)
		}
		fmt.Fprintf(out, "%-19s  %-8s  %-8s  %-30s  %s\n",
			a.StartedAt.Local().Format("2006-01-02 15:04:05"),
			a.Status,
			a.Duration.Round(100*time.Millisecond).String(),
			truncate(a.Title, 30),
			detail)
	}
	return nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
