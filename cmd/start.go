package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"race-timing/core/loader"
	"race-timing/core/logger"
	"race-timing/core/middleware/auth"
	"race-timing/core/middleware/rayid"
	"race-timing/core/realtime"
	"race-timing/core/store"
	"race-timing/feature/cutoff"
	"race-timing/feature/health"
	"race-timing/feature/ranking"
	"race-timing/feature/runners"
	raceSync "race-timing/feature/sync"
	"race-timing/feature/timing"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/swagger"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	_ "race-timing/docs/swagger"
)

// @title Race Timing API
// @version 1.0
// @description API for checkpoint scans, rankings, cutoffs and provider reconciliation.
// @host localhost:8080
// @BasePath /

// hubBuffer is the per-subscriber queue length of the realtime hub.
const hubBuffer = 64

// startCmd represents the start command
var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the race timing server",
	Long:  `Starts the HTTP server, the cutoff monitor and the sync scheduler.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, err := bootstrap(ctx)
		if err != nil {
			return err
		}
		defer a.close()
		logg := a.logger
		zap.ReplaceGlobals(logg)

		if err := store.Migrate(a.db); err != nil {
			return fmt.Errorf("failed to migrate database: %w", err)
		}

		cfg := a.cfg
		production := cfg.Server.IsProduction()
		hub := realtime.NewHub(hubBuffer)

		ranker := ranking.NewEngine(store.NewRunners(a.db), logg)
		timingSvc := timing.NewService(a.db, ranker, hub, cfg.Query.ListLimit, logg)
		monitor := cutoff.NewMonitor(a.db, seconds(cfg.Scheduler.CutoffIntervalSeconds), logger.ForTask(logg, "cutoff-monitor"), nil)
		syncSvc := a.syncService(hub)

		var scheduler *raceSync.Scheduler
		if cfg.Scheduler.SyncEnabled {
			scheduler = raceSync.NewScheduler(syncSvc, store.NewCampaigns(a.db), seconds(cfg.Scheduler.SyncIntervalSeconds), logger.ForTask(logg, "sync-scheduler"))
		}

		app := fiber.New(fiber.Config{
			DisableStartupMessage: true,
		})

		mgr := loader.NewManager(logg)
		mgr.Register(health.NewFeature(a.db, a.storage, cfg.Storage.Bucket, logg))
		mgr.Register(timing.NewFeature(timingSvc, hub, production))
		mgr.Register(runners.NewFeature(runners.NewService(a.db, cfg.Query.ListLimit, logg), production))
		mgr.Register(cutoff.NewFeature(monitor, production))
		mgr.Register(raceSync.NewFeature(syncSvc, scheduler, true, production))

		// RayID first so every log line below carries it
		app.Use(rayid.New())
		app.Use(func(c *fiber.Ctx) error {
			l := logger.WithRayID(logg, c)
			l.Info("Request started",
				zap.String("method", c.Method()),
				zap.String("path", c.Path()),
				zap.String("ip", c.IP()),
			)
			err := c.Next()
			if err != nil {
				l.Error("Request error", zap.Error(err))
			}
			return err
		})

		app.Get("/swagger/*", swagger.HandlerDefault)
		app.Use(auth.New(auth.Config{ApiKey: cfg.Server.ApiKey}))

		if err := mgr.LoadAll(app); err != nil {
			return fmt.Errorf("failed to load features: %w", err)
		}

		if cfg.Scheduler.CutoffEnabled {
			go monitor.Run(ctx)
		}
		if scheduler != nil {
			go scheduler.Run(ctx)
		}

		errc := make(chan error, 1)
		go func() {
			logg.Info("Starting server", zap.String("port", cfg.Server.Port))
			errc <- app.Listen(":" + cfg.Server.Port)
		}()

		select {
		case err := <-errc:
			return fmt.Errorf("server failed: %w", err)
		case <-ctx.Done():
		}

		logg.Info("Shutting down server...")
		return app.ShutdownWithTimeout(10 * time.Second)
	},
}

func seconds(n int) time.Duration {
	if n <= 0 {
		n = 1
	}
	return time.Duration(n) * time.Second
}

func init() {
	RootCmd.AddCommand(startCmd)
}
