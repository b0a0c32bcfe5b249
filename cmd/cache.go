package main

import (
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/brandlens/brandlens-cli/internal/registry"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the generated-response cache",
}

var cachePruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete expired cache entries",
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

		n, err := st.DeleteExpiredResponses(ctx)
		if err != nil {
			return eris.Wrap(err, "cache prune")
		}

		fmt.Fprintf(os.Stderr, "pruned %d expired cache entries\n", n)
		return nil
	},
}

var questionsCmd = &cobra.Command{
	Use:   "questions",
	Short: "Work with question battery files",
}

var questionsCheckCmd = &cobra.Command{
	Use:   "check <file>",
	Short: "Validate a question battery file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		questions, err := registry.Load(args[0])
		if err != nil {
			return err
		}

		runCfg, cfgErr := buildRunConfig()

		fmt.Fprintf(os.Stderr, "%d questions loaded from %s\n", len(questions), args[0])
		if cfgErr == nil {
			specific := 0
			for _, q := range questions {
				if q.MentionsAnyBrand(runCfg.AllBrands()) {
					specific++
				}
			}
			fmt.Fprintf(os.Stderr, "%d brand-specific, %d generic (against configured brands)\n",
				specific, len(questions)-specific)
		}

		return nil
	},
}

func init() {
	cacheCmd.AddCommand(cachePruneCmd)
	questionsCmd.AddCommand(questionsCheckCmd)
	rootCmd.AddCommand(cacheCmd, questionsCmd)
}
