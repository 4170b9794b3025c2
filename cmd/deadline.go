package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Haunes/ComparendosTransito/internal/config"
	"github.com/Haunes/ComparendosTransito/internal/report"
)

var deadlineCmd = &cobra.Command{
	Use:   "deadline yyyy-mm-dd",
	Short: "Print the discount deadlines for a notification date",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(flagConfig)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		cal, err := cfg.Calendar()
		if err != nil {
			return fmt.Errorf("loading calendar: %w", err)
		}
		notified, err := parseRunDate(args[0], time.Now())
		if err != nil {
			return err
		}
		return report.RenderDeadlines(cmd.OutOrStdout(), cal, notified)
	},
}
