package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// ScanBuilder derives the new scan record and the runner column updates from
// the locked runner, the scan's sequence order and the previous scan (nil on the first scan).
type ScanBuilder func(runner *Runner, order int, prev *ScanRecord) (ScanRecord, map[string]any)

// Scans is the append-only Scan Ledger.
type Scans struct {
	db *gorm.DB
}

// NewScans creates the scan ledger repository.
func NewScans(db *gorm.DB) *Scans {
	return &Scans{db: db}
}

// Append records a scan for runnerID in one transaction. The runner's scan
// counter is incremented first; the row lock it takes serializes concurrent
// scans of the same runner, so orders are gapless and never repeat. The unique
// (runner_id, seq_order) index is the backstop. It returns the stored record and
// the runner as it is after the update.
func (s *Scans) Append(ctx context.Context, runnerID string, build ScanBuilder) (*ScanRecord, *Runner, error) {
	var (
		record ScanRecord
		runner Runner
	)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&Runner{}).Where("id = ?", runnerID).
			UpdateColumn("scan_count", gorm.Expr("scan_count + 1"))
		if res.Error != nil {
			return fmt.Errorf("failed to advance scan counter: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}

		if err := tx.Where("id = ?", runnerID).Take(&runner).Error; err != nil {
			return notFound(err)
		}
		order := runner.ScanCount

		var prev *ScanRecord
		if order > 1 {
			var p ScanRecord
			err := tx.Where("runner_id = ? AND seq_order = ?", runnerID, order-1).Take(&p).Error
			switch {
			case err == nil:
				prev = &p
			case !errors.Is(err, gorm.ErrRecordNotFound):
				return fmt.Errorf("failed to load previous scan: %w", err)
			}
		}

		var updates map[string]any
		record, updates = build(&runner, order, prev)
		record.RunnerID = runner.ID
		record.EventID = runner.EventID
		record.Bib = runner.Bib
		record.Order = order

		if err := tx.Create(&record).Error; err != nil {
			return fmt.Errorf("failed to insert scan: %w", err)
		}

		if len(updates) > 0 {
			if err := tx.Model(&Runner{}).Where("id = ?", runner.ID).Updates(updates).Error; err != nil {
				return fmt.Errorf("failed to update runner: %w", err)
			}
			if err := tx.Where("id = ?", runner.ID).Take(&runner).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return &record, &runner, nil
}

// ForRunner returns a runner's scans in sequence order.
func (s *Scans) ForRunner(ctx context.Context, runnerID string) ([]ScanRecord, error) {
	var scans []ScanRecord
	err := s.db.WithContext(ctx).Where("runner_id = ?", runnerID).Order("seq_order ASC").Find(&scans).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list scans: %w", err)
	}
	return scans, nil
}

// ForEvent returns an event's scans, newest first.
func (s *Scans) ForEvent(ctx context.Context, eventID string, limit, offset int) ([]ScanRecord, error) {
	q := s.db.WithContext(ctx).Where("event_id = ?", eventID).Order("scan_time DESC").Order("id ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if offset > 0 {
		q = q.Offset(offset)
	}
	var scans []ScanRecord
	if err := q.Find(&scans).Error; err != nil {
		return nil, fmt.Errorf("failed to list scans: %w", err)
	}
	return scans, nil
}
