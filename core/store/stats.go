package store

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"gorm.io/gorm"
)

// SyncCounts aggregates a campaign's sync log entries by status.
type SyncCounts struct {
	Total   int64 `gorm:"column:total_count" json:"total"`
	Success int64 `gorm:"column:success_count" json:"success"`
	Error   int64 `gorm:"column:error_count" json:"error"`
	Pending int64 `gorm:"column:pending_count" json:"pending"`
}

// GroupCount is one row of a grouped count.
type GroupCount struct {
	Key   string `gorm:"column:group_key" json:"key"`
	Count int64  `gorm:"column:group_count" json:"count"`
}

// Stats runs the aggregation queries behind the statistics endpoints.
type Stats struct {
	db *gorm.DB
}

// NewStats creates the statistics repository.
func NewStats(db *gorm.DB) *Stats {
	return &Stats{db: db}
}

func (s *Stats) scan(ctx context.Context, q sq.Sqlizer, dest any) error {
	query, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("failed to build query: %w", err)
	}
	return s.db.WithContext(ctx).Raw(query, args...).Scan(dest).Error
}

// RunnerStatusCounts counts runners per status across eventIDs.
func (s *Stats) RunnerStatusCounts(ctx context.Context, eventIDs []string) (map[string]int64, error) {
	return s.runnerCounts(ctx, "status", eventIDs)
}

// RunnerCategoryCounts counts runners per category across eventIDs.
func (s *Stats) RunnerCategoryCounts(ctx context.Context, eventIDs []string) (map[string]int64, error) {
	return s.runnerCounts(ctx, "category", eventIDs)
}

func (s *Stats) runnerCounts(ctx context.Context, column string, eventIDs []string) (map[string]int64, error) {
	q := sq.Select(column+" AS group_key", "COUNT(*) AS group_count").
		From("runners").
		GroupBy(column).
		OrderBy(column)
	if len(eventIDs) > 0 {
		q = q.Where(sq.Eq{"event_id": eventIDs})
	}

	var rows []GroupCount
	if err := s.scan(ctx, q, &rows); err != nil {
		return nil, fmt.Errorf("failed to count runners by %s: %w", column, err)
	}
	out := make(map[string]int64, len(rows))
	for _, r := range rows {
		out[r.Key] = r.Count
	}
	return out, nil
}

// SyncCounts aggregates a campaign's sync log entries.
func (s *Stats) SyncCounts(ctx context.Context, campaignID string) (SyncCounts, error) {
	q := sq.Select(
		"COUNT(*) AS total_count",
		"COALESCE(SUM(CASE WHEN status = 'success' THEN 1 ELSE 0 END), 0) AS success_count",
		"COALESCE(SUM(CASE WHEN status = 'error' THEN 1 ELSE 0 END), 0) AS error_count",
		"COALESCE(SUM(CASE WHEN status = 'pending' THEN 1 ELSE 0 END), 0) AS pending_count",
	).From("sync_logs").Where(sq.Eq{"campaign_id": campaignID})

	var counts SyncCounts
	if err := s.scan(ctx, q, &counts); err != nil {
		return SyncCounts{}, fmt.Errorf("failed to count sync logs: %w", err)
	}
	return counts, nil
}

// CampaignsInError returns, per campaign, the newest sync log when that log is an error.
func (s *Stats) CampaignsInError(ctx context.Context) ([]SyncLog, error) {
	latest := sq.Select("MAX(l2.start_time)").From("sync_logs l2").Where("l2.campaign_id = l.campaign_id")
	latestSQL, _, err := latest.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	q := sq.Select("l.*").From("sync_logs l").
		Where(sq.Eq{"l.status": SyncError}).
		Where("l.start_time = (" + latestSQL + ")").
		OrderBy("l.start_time DESC")

	var logs []SyncLog
	if err := s.scan(ctx, q, &logs); err != nil {
		return nil, fmt.Errorf("failed to list campaign sync errors: %w", err)
	}
	return logs, nil
}
