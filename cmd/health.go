package cmd

import (
	"race-timing/feature/health"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var fixFlag bool

// healthCmd represents the health command
var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check the database schema and the snapshot bucket",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runHealthChecks(cmd, true, true)
	},
}

// schemaCmd represents the health schema command
var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Check the schema of the core tables",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runHealthChecks(cmd, true, false)
	},
}

// storageCmd represents the health storage command
var storageCmd = &cobra.Command{
	Use:   "storage",
	Short: "Check and fix the snapshot bucket",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runHealthChecks(cmd, false, true)
	},
}

func init() {
	RootCmd.AddCommand(healthCmd)
	healthCmd.AddCommand(schemaCmd, storageCmd)
	storageCmd.Flags().BoolVar(&fixFlag, "fix", false, "Create missing folders")
}

func runHealthChecks(cmd *cobra.Command, runSchema, runStorage bool) error {
	ctx := cmd.Context()
	a, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer a.close()
	logg := a.logger
	svc := health.NewService(a.db, a.storage, a.cfg.Storage.Bucket, logg)

	if err := svc.Ping(ctx); err != nil {
		logg.Error("Database ping failed", zap.Error(err))
	}

	if runSchema {
		logg.Info("Checking schema...")
		report, err := svc.CheckSchema()
		if err != nil {
			return err
		}
		if report.Matched {
			logg.Info("Schema matches the store models.", zap.Int("tables", len(report.Tables)))
		} else {
			for table, tbl := range report.Tables {
				if tbl.Status == health.StatusOK {
					continue
				}
				logg.Warn("Table drift", zap.String("table", table), zap.String("status", tbl.Status), zap.Strings("missing_columns", tbl.MissingColumns))
			}
			for _, e := range report.Errors {
				logg.Error("Inspection Error", zap.String("error", e))
			}
		}
	}

	if runStorage {
		if !svc.StorageEnabled() {
			logg.Info("Snapshot archiving is disabled, skipping storage check.")
			return nil
		}
		logg.Info("Checking snapshot bucket...", zap.String("bucket", a.cfg.Storage.Bucket))
		missing, err := svc.CheckStorage(ctx)
		if err != nil {
			return err
		}
		switch {
		case len(missing) == 0:
			logg.Info("Storage is intact.")
		case fixFlag:
			logg.Info("Fixing missing folders...")
			if err := svc.FixStorage(ctx, missing); err != nil {
				return err
			}
		default:
			logg.Warn("Missing folders detected. Run with --fix to create them.", zap.Strings("missing", missing))
		}
	}
	return nil
}
