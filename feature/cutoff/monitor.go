package cutoff

import (
	"context"
	"fmt"
	"time"

	"race-timing/core/store"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Result reports one check.
type Result struct {
	// Processed counts checkpoints whose cutoff had passed.
	Processed int `json:"checkpointsProcessed"`
	// DNFCount counts runners newly marked dnf.
	DNFCount int64 `json:"dnfCount"`
}

// Monitor applies checkpoint cutoffs.
type Monitor struct {
	checkpoints *store.Checkpoints
	events      *store.Events
	runners     *store.Runners
	interval    time.Duration
	logger      *zap.Logger
	now         func() time.Time
}

// NewMonitor creates a cutoff monitor. now defaults to time.Now.
func NewMonitor(db *gorm.DB, interval time.Duration, logger *zap.Logger, now func() time.Time) *Monitor {
	if now == nil {
		now = time.Now
	}
	return &Monitor{
		checkpoints: store.NewCheckpoints(db),
		events:      store.NewEvents(db),
		runners:     store.NewRunners(db),
		interval:    interval,
		logger:      logger,
		now:         now,
	}
}

// Check runs one pass over every active checkpoint with a cutoff.
func (m *Monitor) Check(ctx context.Context) (Result, error) {
	var res Result
	cps, err := m.checkpoints.ActiveWithCutoff(ctx)
	if err != nil {
		return res, err
	}

	now := m.now()
	eventsByCampaign := map[string][]string{}
	for _, cp := range cps {
		cutoff, ok := ParseCutoff(cp.CutoffTime, now)
		if !ok {
			m.logger.Debug("Skipping unparseable cutoff", zap.String("checkpoint", cp.Name), zap.String("cutoff", cp.CutoffTime))
			continue
		}
		if now.Before(cutoff) {
			continue
		}
		res.Processed++

		eventIDs, ok := eventsByCampaign[cp.CampaignID]
		if !ok {
			eventIDs, err = m.events.IDsForCampaign(ctx, cp.CampaignID)
			if err != nil {
				return res, fmt.Errorf("failed to load campaign events: %w", err)
			}
			eventsByCampaign[cp.CampaignID] = eventIDs
		}

		n, err := m.runners.MarkStalledDNF(ctx, eventIDs)
		if err != nil {
			return res, err
		}
		if n > 0 {
			m.logger.Info("Cutoff passed, runners marked DNF",
				zap.String("campaign_id", cp.CampaignID),
				zap.String("checkpoint", cp.Name),
				zap.Int64("dnf", n),
			)
		}
		res.DNFCount += n
	}
	return res, nil
}

// Run checks on every interval until ctx is done.
func (m *Monitor) Run(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.logger.Info("Cutoff monitor started", zap.Duration("interval", m.interval))
	for {
		select {
		case <-ctx.Done():
			m.logger.Info("Cutoff monitor stopped")
			return
		case <-ticker.C:
			if _, err := m.Check(ctx); err != nil && ctx.Err() == nil {
				m.logger.Error("Cutoff check failed", zap.Error(err))
			}
		}
	}
}
