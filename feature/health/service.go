package health

import (
	"context"
	"fmt"

	"race-timing/core/storage"
	"race-timing/feature/health/checks"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Check status values.
const (
	StatusOK       = "ok"
	StatusError    = "error"
	StatusDisabled = "disabled"
)

// Service runs health checks. client may be nil when snapshot archiving is off.
type Service struct {
	db     *gorm.DB
	client storage.Client
	bucket string
	logger *zap.Logger
}

// NewService creates a new health service.
func NewService(db *gorm.DB, client storage.Client, bucket string, logger *zap.Logger) *Service {
	return &Service{db: db, client: client, bucket: bucket, logger: logger}
}

// StorageEnabled reports whether a storage client is configured.
func (s *Service) StorageEnabled() bool {
	return s.client != nil
}

// Ping checks the database connection.
func (s *Service) Ping(ctx context.Context) error {
	if s.db == nil {
		return fmt.Errorf("database connection is nil")
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// CheckSchema compares the store models with the live schema.
func (s *Service) CheckSchema() (*checks.SchemaReport, error) {
	return checks.CheckSchema(s.db)
}

// CheckStorage returns the snapshot prefixes missing from the bucket.
func (s *Service) CheckStorage(ctx context.Context) ([]string, error) {
	return checks.CheckStorage(ctx, s.client, s.bucket)
}

// FixStorage creates the missing prefixes.
func (s *Service) FixStorage(ctx context.Context, missing []string) error {
	return checks.FixStorage(ctx, s.client, s.bucket, s.logger, missing)
}

// Report runs every check and reports whether all of them passed.
func (s *Service) Report(ctx context.Context) (map[string]any, bool) {
	healthy := true
	report := make(map[string]any)

	if err := s.Ping(ctx); err != nil {
		report["database"] = map[string]any{"status": StatusError, "error": err.Error()}
		healthy = false
	} else {
		report["database"] = map[string]any{"status": StatusOK}
	}

	if schema, err := s.CheckSchema(); err != nil {
		report["schema"] = map[string]any{"status": StatusError, "error": err.Error()}
		healthy = false
	} else {
		report["schema"] = schema
		healthy = healthy && schema.Matched
	}

	switch {
	case !s.StorageEnabled():
		report["storage"] = map[string]any{"status": StatusDisabled}
	default:
		if missing, err := s.CheckStorage(ctx); err != nil {
			report["storage"] = map[string]any{"status": StatusError, "error": err.Error()}
			healthy = false
		} else {
			// Missing prefixes are created on first snapshot; they do not fail the check.
			report["storage"] = map[string]any{"status": StatusOK, "missing": missing}
		}
	}

	return report, healthy
}
