package cmd

import (
	"fmt"
	"os"

	"race-timing/feature/course"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var courseFile string

// checkpointsCmd is the parent command for checkpoint operations.
var checkpointsCmd = &cobra.Command{
	Use:   "checkpoints",
	Short: "Checkpoint course operations",
}

var checkpointsLoadCmd = &cobra.Command{
	Use:   "load [campaign]",
	Short: "Replace a campaign's checkpoint course from a YAML file",
	Long: `Replaces every checkpoint and checkpoint mapping of a campaign with the
course described in a YAML file.

Example:
  checkpoints load 5f0c... --file course.yaml`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := os.Open(courseFile)
		if err != nil {
			return fmt.Errorf("failed to open course file: %w", err)
		}
		defer f.Close()

		def, err := course.Parse(f)
		if err != nil {
			return err
		}

		a, err := bootstrap(cmd.Context())
		if err != nil {
			return err
		}
		defer a.close()

		res, err := course.NewLoader(a.db, a.logger).Load(cmd.Context(), args[0], def)
		if err != nil {
			return err
		}
		a.logger.Info("Checkpoint course replaced",
			zap.String("file", courseFile),
			zap.Int("checkpoints", res.Checkpoints),
			zap.Int("events", res.Events),
			zap.Int("mappings", res.Mappings),
		)
		return nil
	},
}

func init() {
	checkpointsLoadCmd.Flags().StringVar(&courseFile, "file", "course.yaml", "Course definition file")
	checkpointsCmd.AddCommand(checkpointsLoadCmd)
	RootCmd.AddCommand(checkpointsCmd)
}
