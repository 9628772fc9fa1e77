package cmd

import (
	"context"
	"fmt"
	"time"

	"race-timing/core/config"
	"race-timing/core/database"
	"race-timing/core/logger"
	"race-timing/core/realtime"
	"race-timing/core/storage"
	raceSync "race-timing/feature/sync"
	"race-timing/feature/sync/provider"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// app holds the dependencies shared by every command.
type app struct {
	cfg     *config.Config
	logger  *zap.Logger
	db      *gorm.DB
	storage storage.Client
	archive *storage.Archive
}

// bootstrap loads configuration, the logger and the database. Storage is
// connected only when snapshot archiving is enabled.
func bootstrap(ctx context.Context) (*app, error) {
	cfg, err := config.LoadConfig(".")
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logg, err := logger.New(&cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	db, err := database.Connect(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	logg = logg.With(zap.String("driver", cfg.Database.Driver))

	a := &app{cfg: cfg, logger: logg, db: db}
	if cfg.Storage.Enabled {
		client, err := storage.NewClient(cfg.Storage)
		if err != nil {
			return nil, fmt.Errorf("failed to create storage client: %w", err)
		}
		a.storage = client
		a.archive = storage.NewArchive(client, cfg.Storage.Bucket)
		if err := a.archive.EnsureBucket(ctx); err != nil {
			// Snapshot writes fail softly later on.
			logg.Warn("Snapshot bucket unavailable", zap.String("bucket", cfg.Storage.Bucket), zap.Error(err))
		}
	}
	return a, nil
}

// syncService wires the provider client and the reconciliation service.
func (a *app) syncService(publisher realtime.Publisher) *raceSync.Service {
	p := a.cfg.Provider
	client := provider.NewClient(provider.Config{
		BaseURL:     p.BaseURL,
		PartnerCode: p.PartnerCode,
		Timeout:     time.Duration(p.TimeoutMs) * time.Millisecond,
	})
	return raceSync.NewService(a.db, client, a.archive, publisher, raceSync.Limits{
		MaxPages: p.MaxPages,
		MaxRows:  p.MaxRows,
	}, a.logger)
}

func (a *app) close() {
	_ = a.logger.Sync()
	if sqlDB, err := a.db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
