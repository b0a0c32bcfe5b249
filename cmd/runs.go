package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/brandlens/brandlens-cli/internal/model"
	"github.com/brandlens/brandlens-cli/internal/monitoring"
	"github.com/brandlens/brandlens-cli/internal/store"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Inspect analysis run history",
	Long:  "Commands for listing, viewing, and summarizing analysis runs.",
}

// -- runs list --

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List analysis runs",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		status, _ := cmd.Flags().GetString("status")
		limit, _ := cmd.Flags().GetInt("limit")

		runs, err := st.ListRuns(ctx, store.RunFilter{
			Status: model.RunStatus(status),
			Limit:  limit,
		})
		if err != nil {
			return eris.Wrap(err, "runs list")
		}

		if len(runs) == 0 {
			fmt.Fprintln(os.Stderr, "No runs found.")
			return nil
		}

		formatRunsList(os.Stdout, runs)
		return nil
	},
}

// -- runs show --

var runsShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show full details of a run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		run, err := st.GetRun(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "runs show")
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(run)
	},
}

// -- runs failed --

var runsFailedCmd = &cobra.Command{
	Use:   "failed <run-id>",
	Short: "List questions that failed during a run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		failed, err := st.ListFailedQuestions(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "runs failed")
		}

		if len(failed) == 0 {
			fmt.Fprintln(os.Stderr, "No failed questions.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "QUESTION ID\tTYPE\tERROR\tFAILED AT")
		for _, fq := range failed {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
				fq.QuestionID, fq.ErrorType, truncateCol(fq.Error, 80),
				fq.FailedAt.Format("2006-01-02 15:04:05"))
		}
		return w.Flush()
	},
}

// -- runs stats --

var runsStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show aggregate run statistics",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		lookback, _ := cmd.Flags().GetInt("lookback-hours")

		snap, err := monitoring.NewCollector(st).Collect(ctx, lookback)
		if err != nil {
			return eris.Wrap(err, "runs stats")
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(snap)
	},
}

func formatRunsList(w io.Writer, runs []model.Run) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN ID\tSTATUS\tQUESTIONS\tFAILED\tCONFIDENCE\tCOST\tCREATED")
	for _, r := range runs {
		questions, failed := "-", "-"
		confidence, cost := "-", "-"
		if r.Result != nil {
			questions = fmt.Sprintf("%d", len(r.Result.Questions))
			failed = fmt.Sprintf("%d", r.Result.FailedQuestions)
			confidence = fmt.Sprintf("%.2f", r.Result.OverallConfidence)
			cost = fmt.Sprintf("$%.4f", r.Result.TokenUsage.CostUSD)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			r.ID, r.Status, questions, failed, confidence, cost,
			r.CreatedAt.Format("2006-01-02 15:04"))
	}
	tw.Flush()
}

func truncateCol(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}

func init() {
	runsListCmd.Flags().String("status", "", "filter by status (pending, running, completed, partially_failed)")
	runsListCmd.Flags().Int("limit", 20, "maximum runs to list")
	runsStatsCmd.Flags().Int("lookback-hours", 24, "window for statistics")

	runsCmd.AddCommand(runsListCmd, runsShowCmd, runsFailedCmd, runsStatsCmd)
	rootCmd.AddCommand(runsCmd)
}
