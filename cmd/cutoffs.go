package cmd

import (
	"race-timing/feature/cutoff"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// cutoffsCmd is the parent command for cutoff operations.
var cutoffsCmd = &cobra.Command{
	Use:   "cutoffs",
	Short: "Cutoff operations",
}

var cutoffsCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Run one cutoff pass now",
	Long:  `Marks in_progress runners without a recorded checkpoint DNF for every active checkpoint whose cutoff has passed.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := bootstrap(cmd.Context())
		if err != nil {
			return err
		}
		defer a.close()

		monitor := cutoff.NewMonitor(a.db, seconds(a.cfg.Scheduler.CutoffIntervalSeconds), a.logger, nil)
		res, err := monitor.Check(cmd.Context())
		if err != nil {
			return err
		}
		a.logger.Info("Cutoff check completed",
			zap.Int("checkpoints_processed", res.Processed),
			zap.Int64("dnf_count", res.DNFCount),
		)
		return nil
	},
}

func init() {
	cutoffsCmd.AddCommand(cutoffsCheckCmd)
	RootCmd.AddCommand(cutoffsCmd)
}
