package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/brandlens/brandlens-cli/internal/report"
)

var (
	reportOutputPath string
	reportFormat     string
)

var reportCmd = &cobra.Command{
	Use:   "report <run-id>",
	Short: "Render a report from a stored run",
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
			return eris.Wrap(err, "load run")
		}
		if run.Result == nil {
			return eris.Errorf("run %s has no result yet (status %s)", run.ID, run.Status)
		}

		if reportOutputPath != "" {
			var format report.Format
			if reportFormat != "" {
				format, err = report.ParseFormat(reportFormat)
				if err != nil {
					return err
				}
			}
			return report.WriteFile(reportOutputPath, run.Result, format)
		}

		format := report.FormatMarkdown
		if reportFormat != "" {
			format, err = report.ParseFormat(reportFormat)
			if err != nil {
				return err
			}
		}
		return report.Write(os.Stdout, run.Result, format)
	},
}

func init() {
	reportCmd.Flags().StringVarP(&reportOutputPath, "output", "o", "", "write report to file instead of stdout")
	reportCmd.Flags().StringVar(&reportFormat, "format", "", "report format: markdown, json, csv, xlsx")
	rootCmd.AddCommand(reportCmd)
}
