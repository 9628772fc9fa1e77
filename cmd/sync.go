package cmd

import (
	"fmt"
	"os"
	"sort"

	"race-timing/core/storage"
	raceSync "race-timing/feature/sync"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// maxSampleErrors bounds how many errors a report prints.
const maxSampleErrors = 5

var (
	updateExisting bool
	previewType    string
	previewPage    int
	snapshotKeep   int
	snapshotDump   string
)

// syncCmd is the parent command for provider reconciliation.
var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Reconcile campaigns with the RaceTiger timing provider",
}

var syncImportCmd = &cobra.Command{
	Use:   "import [campaign]",
	Short: "Import events, checkpoints and runners, then merge scores",
	Long: `Imports a campaign from the provider.

New runners are inserted; existing runners are left alone unless --update is given,
in which case their identity fields are overwritten. Race state is never touched
by the import itself, only by the score merge that follows it.

Examples:
  sync import 5f0c...
  sync import 5f0c... --update`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := bootstrap(cmd.Context())
		if err != nil {
			return err
		}
		defer a.close()

		a.logger.Info("Starting provider import", zap.String("campaign_id", args[0]), zap.Bool("update", updateExisting))
		res, err := a.syncService(nil).ImportFromProvider(cmd.Context(), args[0], raceSync.ImportOptions{UpdateExisting: updateExisting})
		if err != nil {
			return err
		}
		printImportReport(a.logger, res)
		return nil
	},
}

var syncTimingCmd = &cobra.Command{
	Use:   "timing [campaign]",
	Short: "Merge provider scores into stored runners",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := bootstrap(cmd.Context())
		if err != nil {
			return err
		}
		defer a.close()

		res, err := a.syncService(nil).SyncTimingOnly(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		printTimingReport(a.logger, res)
		return nil
	},
}

var syncPreviewCmd = &cobra.Command{
	Use:   "preview [campaign]",
	Short: "Fetch one provider page for diagnostics",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := bootstrap(cmd.Context())
		if err != nil {
			return err
		}
		defer a.close()

		p, err := a.syncService(nil).PreviewProviderData(cmd.Context(), args[0], previewType, previewPage)
		if err != nil {
			return err
		}
		a.logger.Info("Provider preview",
			zap.String("type", previewType),
			zap.Int("page", previewPage),
			zap.Bool("ok", p.OK),
			zap.Int("http_status", p.HTTPStatus),
			zap.String("content_type", p.ContentType),
			zap.String("size", humanize.Bytes(uint64(p.BodySize))),
			zap.Int("items", p.ItemCount),
			zap.String("archive_key", p.ArchiveKey),
		)
		fmt.Println(p.RawSnippet)
		if p.Truncated {
			fmt.Println("... (truncated)")
		}
		return nil
	},
}

var syncLogsCmd = &cobra.Command{
	Use:   "logs [campaign]",
	Short: "Show a campaign's recent sync history",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := bootstrap(cmd.Context())
		if err != nil {
			return err
		}
		defer a.close()

		data, err := a.syncService(nil).SyncData(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		a.logger.Info("Sync history",
			zap.Int64("total", data.Counts.Total),
			zap.Int64("success", data.Counts.Success),
			zap.Int64("error", data.Counts.Error),
			zap.Int64("pending", data.Counts.Pending),
		)
		for _, entry := range data.Logs {
			a.logger.Info("Sync run",
				zap.String("status", entry.Status),
				zap.String("started", humanize.Time(entry.StartTime)),
				zap.String("processed", humanize.Comma(int64(entry.RecordsProcessed))),
				zap.Int("failed", entry.RecordsFailed),
				zap.String("message", entry.Message),
			)
		}
		return nil
	},
}

var syncSnapshotsCmd = &cobra.Command{
	Use:   "snapshots [campaign]",
	Short: "List, dump or prune archived provider payloads",
	Long: `Lists the payload snapshots archived by previews, newest first.

Examples:
  # List
  sync snapshots 5f0c...

  # Write the newest snapshot to a file
  sync snapshots 5f0c... --dump latest.json

  # Keep only the 20 newest snapshots
  sync snapshots 5f0c... --keep 20`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := bootstrap(ctx)
		if err != nil {
			return err
		}
		defer a.close()
		if a.archive == nil {
			return fmt.Errorf("snapshot archiving is disabled (storage.enabled=false)")
		}

		prefix := storage.SnapshotPrefix + "/" + args[0] + "/"
		keys, err := a.archive.List(ctx, prefix)
		if err != nil {
			return err
		}
		a.logger.Info("Snapshots", zap.String("prefix", prefix), zap.Int("count", len(keys)))
		for _, key := range keys {
			fmt.Println(key)
		}

		if snapshotDump != "" && len(keys) > 0 {
			data, err := a.archive.Load(ctx, keys[0])
			if err != nil {
				return err
			}
			if err := os.WriteFile(snapshotDump, data, 0o644); err != nil {
				return fmt.Errorf("failed to write snapshot: %w", err)
			}
			a.logger.Info("Newest snapshot saved", zap.String("key", keys[0]), zap.String("file", snapshotDump), zap.String("size", humanize.Bytes(uint64(len(data)))))
		}

		if snapshotKeep > 0 {
			removed, err := a.archive.Prune(ctx, prefix, snapshotKeep)
			if err != nil {
				return err
			}
			a.logger.Info("Snapshots pruned", zap.Int("removed", removed), zap.Int("kept", min(len(keys), snapshotKeep)))
		}
		return nil
	},
}

func init() {
	syncSnapshotsCmd.Flags().IntVar(&snapshotKeep, "keep", 0, "Remove all but the newest N snapshots")
	syncSnapshotsCmd.Flags().StringVar(&snapshotDump, "dump", "", "Write the newest snapshot to this file")
	syncImportCmd.Flags().BoolVar(&updateExisting, "update", false, "Overwrite identity fields of runners that already exist")
	syncPreviewCmd.Flags().StringVar(&previewType, "type", "bio", "Listing to preview (info, bio, score, split)")
	syncPreviewCmd.Flags().IntVar(&previewPage, "page", 1, "Page to fetch")

	syncCmd.AddCommand(syncImportCmd, syncTimingCmd, syncPreviewCmd, syncLogsCmd, syncSnapshotsCmd)
	RootCmd.AddCommand(syncCmd)
}

// printImportReport prints a formatted import report using logger.
func printImportReport(l *zap.Logger, res *raceSync.ImportResult) {
	l.Info("Import report",
		zap.String("imported", humanize.Comma(int64(res.Imported))),
		zap.String("updated", humanize.Comma(int64(res.Updated))),
		zap.String("skipped", humanize.Comma(int64(res.Skipped))),
		zap.String("fetched", humanize.Comma(int64(res.RunnerStats.Fetched))),
		zap.String("mapped", humanize.Comma(int64(res.RunnerStats.Mapped))),
	)
	l.Info("Events and checkpoints",
		zap.Int("events_created", res.Events.Created),
		zap.Int("events_updated", res.Events.Updated),
		zap.Bool("race_finished", res.Events.Finished),
		zap.Int("checkpoints", res.CheckpointStats.Created),
		zap.Bool("course_replaced", res.CheckpointStats.Replaced),
		zap.Int("mappings", res.CheckpointStats.Mappings),
	)

	reasons := make([]string, 0, len(res.RunnerStats.SkipReasons))
	for reason := range res.RunnerStats.SkipReasons {
		reasons = append(reasons, reason)
	}
	sort.Strings(reasons)
	for _, reason := range reasons {
		l.Info("Skipped rows", zap.String("reason", reason), zap.Int("count", res.RunnerStats.SkipReasons[reason]))
	}

	if res.Timing != nil {
		printTimingReport(l, res.Timing)
	}
	printSampleErrors(l, res.Errors)
}

func printTimingReport(l *zap.Logger, res *raceSync.TimingResult) {
	l.Info("Timing report",
		zap.String("fetched", humanize.Comma(int64(res.Fetched))),
		zap.String("updated", humanize.Comma(int64(res.Updated))),
		zap.Int("status_changes", res.StatusChanges),
		zap.Int("not_found", res.NotFound),
	)
	printSampleErrors(l, res.Errors)
}

func printSampleErrors(l *zap.Logger, errs []string) {
	maxShow := min(len(errs), maxSampleErrors)
	for _, e := range errs[:maxShow] {
		l.Warn("Sample error", zap.String("error", e))
	}
	if len(errs) > maxShow {
		l.Info("Additional errors not shown", zap.Int("count", len(errs)-maxShow))
	}
}
