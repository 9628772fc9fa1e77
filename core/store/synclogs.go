package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// SyncLogs is the append-only reconciliation audit trail.
type SyncLogs struct {
	db *gorm.DB
}

// NewSyncLogs creates the sync log repository.
func NewSyncLogs(db *gorm.DB) *SyncLogs {
	return &SyncLogs{db: db}
}

// Start writes a pending entry for a new attempt.
func (s *SyncLogs) Start(ctx context.Context, campaignID, message string) (*SyncLog, error) {
	entry := &SyncLog{
		CampaignID: campaignID,
		Status:     SyncPending,
		Message:    message,
		StartTime:  time.Now(),
	}
	if err := s.db.WithContext(ctx).Create(entry).Error; err != nil {
		return nil, fmt.Errorf("failed to create sync log: %w", err)
	}
	return entry, nil
}

// Finish moves a pending entry to status. Entries are finalized once; a second
// call leaves the stored entry untouched.
func (s *SyncLogs) Finish(ctx context.Context, entry *SyncLog, status, message string, processed, failed int, detail any) error {
	var raw datatypes.JSON
	if detail != nil {
		data, err := json.Marshal(detail)
		if err != nil {
			return fmt.Errorf("failed to encode sync detail: %w", err)
		}
		raw = datatypes.JSON(data)
	}
	end := time.Now()
	res := s.db.WithContext(ctx).Model(&SyncLog{}).
		Where("id = ? AND status = ?", entry.ID, SyncPending).
		Updates(map[string]any{
			"status":            status,
			"message":           message,
			"records_processed": processed,
			"records_failed":    failed,
			"end_time":          end,
			"detail":            raw,
		})
	if res.Error != nil {
		return fmt.Errorf("failed to finalize sync log: %w", res.Error)
	}
	if res.RowsAffected > 0 {
		entry.Status = status
		entry.Message = message
		entry.RecordsProcessed = processed
		entry.RecordsFailed = failed
		entry.EndTime = &end
		entry.Detail = raw
	}
	return nil
}

// Recent returns a campaign's newest n entries.
func (s *SyncLogs) Recent(ctx context.Context, campaignID string, n int) ([]SyncLog, error) {
	var logs []SyncLog
	err := s.db.WithContext(ctx).Where("campaign_id = ?", campaignID).
		Order("start_time DESC").Order("id DESC").Limit(n).Find(&logs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list sync logs: %w", err)
	}
	return logs, nil
}

// Latest returns a campaign's newest entry.
func (s *SyncLogs) Latest(ctx context.Context, campaignID string) (*SyncLog, error) {
	var entry SyncLog
	err := s.db.WithContext(ctx).Where("campaign_id = ?", campaignID).
		Order("start_time DESC").Order("id DESC").Take(&entry).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &entry, nil
}

// LatestWithDetail returns a campaign's newest entry that stored a structured detail.
func (s *SyncLogs) LatestWithDetail(ctx context.Context, campaignID string) (*SyncLog, error) {
	var entry SyncLog
	err := s.db.WithContext(ctx).Where("campaign_id = ? AND detail IS NOT NULL", campaignID).
		Order("start_time DESC").Order("id DESC").Take(&entry).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &entry, nil
}
