package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/brandlens/brandlens-cli/internal/analysis"
	"github.com/brandlens/brandlens-cli/internal/model"
	"github.com/brandlens/brandlens-cli/internal/registry"
	"github.com/brandlens/brandlens-cli/internal/report"
	"github.com/brandlens/brandlens-cli/internal/resilience"
)

var (
	runQuestionsPath string
	runOutputPath    string
	runFormat        string
	runTargets       []string
	runCompetitors   []string
	runNoCache       bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a brand visibility analysis over a question battery",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		questions, err := registry.Load(runQuestionsPath)
		if err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate store")
		}

		runCfg, err := buildRunConfig()
		if err != nil {
			return err
		}
		if len(runTargets) > 0 || len(runCompetitors) > 0 || runNoCache {
			runCfg, err = overrideRunConfig(runCfg)
			if err != nil {
				return err
			}
		}

		engine, err := buildEngine(st)
		if err != nil {
			return err
		}

		run, err := st.CreateRun(ctx, runCfg)
		if err != nil {
			return eris.Wrap(err, "create run")
		}
		if err := st.UpdateRunStatus(ctx, run.ID, model.RunStatusRunning); err != nil {
			return eris.Wrap(err, "mark run running")
		}

		engine.OnProgress = func(completed, total int) {
			fmt.Fprintf(os.Stderr, "\ranalyzed %d/%d questions", completed, total)
			if completed == total {
				fmt.Fprintln(os.Stderr)
			}
		}
		engine.OnFailure = func(q model.Question, ferr error) {
			fq := model.FailedQuestion{
				RunID:      run.ID,
				QuestionID: q.ID,
				Question:   q.Text,
				Error:      ferr.Error(),
				ErrorType:  resilience.ClassifyError(ferr),
			}
			if rerr := st.RecordFailedQuestion(ctx, fq); rerr != nil {
				zap.L().Warn("record failed question", zap.Error(rerr))
			}
		}

		result, err := engine.Run(ctx, questions, runCfg)
		if err != nil {
			return eris.Wrap(err, "analysis run")
		}

		status := analysis.RunStatusFor(result)
		if err := st.SaveRunResult(ctx, run.ID, status, result); err != nil {
			return eris.Wrap(err, "save run result")
		}

		zap.L().Info("analysis complete",
			zap.String("run_id", run.ID),
			zap.String("status", string(status)),
			zap.Int("questions", len(result.Questions)),
			zap.Int("failed", result.FailedQuestions),
			zap.Float64("cost_usd", result.TokenUsage.CostUSD),
		)

		if runOutputPath != "" {
			var format report.Format
			if runFormat != "" {
				format, err = report.ParseFormat(runFormat)
				if err != nil {
					return err
				}
			}
			if err := report.WriteFile(runOutputPath, result, format); err != nil {
				return err
			}
			fmt.Fprintf(os.Stderr, "report written to %s\n", runOutputPath)
			return nil
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	},
}

// overrideRunConfig rebuilds the run configuration with flag overrides
// applied. Rebuilding keeps validation and defaulting in one place.
func overrideRunConfig(base *model.RunConfiguration) (*model.RunConfiguration, error) {
	params := model.RunConfigurationParams{
		TargetBrands:     base.TargetBrands,
		CompetitorBrands: base.CompetitorBrands,
		PriorityDomains:  base.PriorityDomains,
		GenerationModel:  base.GenerationModel,
		AnalysisModel:    base.AnalysisModel,
		Locale:           base.Locale,
		Concurrency:      base.Concurrency,
		MaxRetries:       base.MaxRetries,
		CallTimeout:      base.CallTimeout,
		CacheEnabled:     base.CacheEnabled && !runNoCache,
		CacheTTL:         base.CacheTTL,
	}
	if len(runTargets) > 0 {
		params.TargetBrands = runTargets
	}
	if len(runCompetitors) > 0 {
		params.CompetitorBrands = runCompetitors
	}
	return model.NewRunConfiguration(params)
}

func init() {
	runCmd.Flags().StringVar(&runQuestionsPath, "questions", "", "question battery file (yaml, csv, or xlsx; required)")
	runCmd.Flags().StringVarP(&runOutputPath, "output", "o", "", "write report to file instead of stdout")
	runCmd.Flags().StringVar(&runFormat, "format", "", "report format: markdown, json, csv, xlsx (default inferred from output extension)")
	runCmd.Flags().StringSliceVar(&runTargets, "target", nil, "target brand (repeatable; overrides config)")
	runCmd.Flags().StringSliceVar(&runCompetitors, "competitor", nil, "competitor brand (repeatable; overrides config)")
	runCmd.Flags().BoolVar(&runNoCache, "no-cache", false, "bypass the response cache")
	_ = runCmd.MarkFlagRequired("questions")
	rootCmd.AddCommand(runCmd)
}
