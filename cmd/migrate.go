package cmd

import (
	"fmt"

	"race-timing/core/store"
	"race-timing/feature/health"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// migrateCmd creates or updates the database schema.
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := bootstrap(cmd.Context())
		if err != nil {
			return err
		}
		defer a.close()

		a.logger.Info("Migrating database schema...")
		if err := store.Migrate(a.db); err != nil {
			return fmt.Errorf("failed to migrate database: %w", err)
		}

		report, err := health.NewService(a.db, nil, "", a.logger).CheckSchema()
		if err != nil {
			return err
		}
		if !report.Matched {
			return fmt.Errorf("schema still incomplete after migration: %v", report.Errors)
		}
		a.logger.Info("Database schema is up to date", zap.Int("tables", len(report.Tables)))
		return nil
	},
}

func init() {
	RootCmd.AddCommand(migrateCmd)
}
