package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Haunes/ComparendosTransito/internal/config"
	"github.com/Haunes/ComparendosTransito/internal/report"
	"github.com/Haunes/ComparendosTransito/internal/store"
)

var flagHistoryLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recent runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := store.Open(config.StorePath())
		if err != nil {
			return fmt.Errorf("opening store: %w", err)
		}
		defer db.Close()

		runs, err := db.Runs(flagHistoryLimit)
		if err != nil {
			return fmt.Errorf("reading history: %w", err)
		}
		return report.RenderRuns(cmd.OutOrStdout(), runs)
	},
}

func init() {
	historyCmd.Flags().IntVar(&flagHistoryLimit, "limit", 20, "number of runs to show")
}
