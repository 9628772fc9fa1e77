package sync

import (
	"context"
	gosync "sync"
	"time"

	"race-timing/core/store"

	"go.uber.org/zap"
)

// TimingSyncer runs the score merge of one campaign.
type TimingSyncer interface {
	SyncTimingOnly(ctx context.Context, campaignID string) (*TimingResult, error)
}

// CampaignSource lists the campaigns opted into scheduled sync.
type CampaignSource interface {
	AutoSyncCandidates(ctx context.Context) ([]store.Campaign, error)
}

// SchedulerStats is a read-only view of the scheduler.
type SchedulerStats struct {
	IsRunning bool       `json:"isRunning"`
	TotalRuns int64      `json:"totalRuns"`
	LastRunAt *time.Time `json:"lastRunAt,omitempty"`
}

// Scheduler runs the timing merge for every auto sync campaign on an interval.
// At most one tick is in flight; a tick arriving during a run is skipped.
type Scheduler struct {
	syncer    TimingSyncer
	campaigns CampaignSource
	interval  time.Duration
	logger    *zap.Logger
	now       func() time.Time

	mu         gosync.Mutex
	running    bool
	generation uint64
	totalRuns  int64
	lastRunAt  *time.Time
}

// NewScheduler creates a scheduler.
func NewScheduler(syncer TimingSyncer, campaigns CampaignSource, interval time.Duration, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		syncer:    syncer,
		campaigns: campaigns,
		interval:  interval,
		logger:    logger,
		now:       time.Now,
	}
}

// begin claims the in-flight slot and returns its generation.
func (s *Scheduler) begin() (uint64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return 0, false
	}
	s.running = true
	s.generation++
	return s.generation, true
}

// end releases the slot claimed by generation gen and counts the run.
func (s *Scheduler) end(gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generation != gen {
		return
	}
	s.running = false
	s.totalRuns++
	at := s.now()
	s.lastRunAt = &at
}

// Tick runs one pass. It returns false without doing anything when a pass is
// already in flight. One campaign's failure does not stop the others.
func (s *Scheduler) Tick(ctx context.Context) bool {
	gen, ok := s.begin()
	if !ok {
		s.logger.Debug("Sync tick skipped, previous run still in flight")
		return false
	}
	defer s.end(gen)

	campaigns, err := s.campaigns.AutoSyncCandidates(ctx)
	if err != nil {
		s.logger.Error("Failed to list auto sync campaigns", zap.Error(err))
		return true
	}

	for _, c := range campaigns {
		if ctx.Err() != nil {
			break
		}
		res, err := s.syncer.SyncTimingOnly(ctx, c.ID)
		if err != nil {
			s.logger.Warn("Scheduled timing sync failed", zap.String("campaign_id", c.ID), zap.Error(err))
			continue
		}
		if res.Updated > 0 || res.StatusChanges > 0 {
			s.logger.Info("Scheduled timing sync applied changes",
				zap.String("campaign_id", c.ID),
				zap.Int("updated", res.Updated),
				zap.Int("status_changes", res.StatusChanges),
			)
		}
	}
	return true
}

// Run ticks on every interval until ctx is done.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info("Sync scheduler started", zap.Duration("interval", s.interval))
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Sync scheduler stopped")
			return
		case <-ticker.C:
			// Ticks run detached so a long pass makes the next tick skip instead of queueing.
			go s.Tick(ctx)
		}
	}
}

// Stats returns the scheduler state. TotalRuns counts completed passes only.
func (s *Scheduler) Stats() SchedulerStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	stats := SchedulerStats{IsRunning: s.running, TotalRuns: s.totalRuns}
	if s.lastRunAt != nil {
		at := *s.lastRunAt
		stats.LastRunAt = &at
	}
	return stats
}
