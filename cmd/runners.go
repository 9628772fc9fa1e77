package cmd

import (
	"fmt"

	"race-timing/feature/runners"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var lookupChip bool

// runnerCmd shows one runner's race state.
var runnerCmd = &cobra.Command{
	Use:   "runner [eventId] [bib]",
	Short: "View the race state of a runner",
	Long:  `Looks a runner up by bib, or by chip code / RFID tag with --chip, and prints its timing and ranks.`,
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := bootstrap(cmd.Context())
		if err != nil {
			return err
		}
		defer a.close()

		bib, chip := args[1], ""
		if lookupChip {
			bib, chip = "", args[1]
		}
		svc := runners.NewService(a.db, a.cfg.Query.ListLimit, a.logger)
		a.logger.Info("Looking up runner...", zap.String("event_id", args[0]), zap.String("key", args[1]))
		r, err := svc.Lookup(cmd.Context(), args[0], bib, chip)
		if err != nil {
			return err
		}

		fmt.Println("\n--- Runner Detail View ---")
		fmt.Printf("Bib:            %s\n", r.Bib)
		fmt.Printf("Name:           %s %s\n", r.FirstName, r.LastName)
		fmt.Printf("Gender:         %s\n", r.Gender)
		fmt.Printf("Category:       %s\n", r.Category)
		fmt.Printf("Age Group:      %s\n", r.AgeGroup)
		fmt.Printf("Chip:           %s\n", r.ChipCode)
		fmt.Println("--------------------------")
		fmt.Printf("Status:         %s\n", r.Status)
		fmt.Printf("Checkpoint:     %s\n", r.LatestCheckpoint)
		fmt.Printf("Scans:          %d\n", r.ScanCount)
		fmt.Printf("Net Time:       %s\n", millis(r.NetTime))
		fmt.Printf("Gun Time:       %s\n", millis(r.GunTime))
		fmt.Printf("Overall Rank:   %s\n", rank(r.OverallRank))
		fmt.Printf("Gender Rank:    %s\n", rank(r.GenderRank))
		fmt.Printf("Age Group Rank: %s\n", rank(r.AgeGroupRank))
		fmt.Println("--------------------------")
		return nil
	},
}

func millis(v *int64) string {
	if v == nil {
		return "-"
	}
	ms := *v
	return fmt.Sprintf("%02d:%02d:%02d", ms/3600000, ms/60000%60, ms/1000%60)
}

func rank(v *int) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%d", *v)
}

func init() {
	runnerCmd.Flags().BoolVar(&lookupChip, "chip", false, "Treat the key as a chip code or RFID tag")
	RootCmd.AddCommand(runnerCmd)
}
