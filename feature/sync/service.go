package sync

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"race-timing/core/apperr"
	"race-timing/core/realtime"
	"race-timing/core/reconcile"
	"race-timing/core/storage"
	"race-timing/core/store"
	"race-timing/feature/sync/mapping"
	"race-timing/feature/sync/provider"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Limits bound one reconciliation run.
type Limits struct {
	MaxPages int
	MaxRows  int
}

// Service reconciles campaigns with the remote timing provider.
type Service struct {
	campaigns   *store.Campaigns
	events      *store.Events
	runners     *store.Runners
	checkpoints *store.Checkpoints
	logs        *store.SyncLogs
	stats       *store.Stats
	client      *provider.Client
	archive     *storage.Archive
	publisher   realtime.Publisher
	limits      Limits
	location    *time.Location
	imports     reconcile.Flight[*ImportResult]
	timings     reconcile.Flight[*TimingResult]
	logger      *zap.Logger
	now         func() time.Time
}

// NewService creates a new sync service. archive and publisher may be nil.
func NewService(db *gorm.DB, client *provider.Client, archive *storage.Archive, publisher realtime.Publisher, limits Limits, logger *zap.Logger) *Service {
	if publisher == nil {
		publisher = realtime.Nop{}
	}
	if limits.MaxPages <= 0 {
		limits.MaxPages = 200
	}
	if limits.MaxRows <= 0 {
		limits.MaxRows = 100000
	}
	return &Service{
		campaigns:   store.NewCampaigns(db),
		events:      store.NewEvents(db),
		runners:     store.NewRunners(db),
		checkpoints: store.NewCheckpoints(db),
		logs:        store.NewSyncLogs(db),
		stats:       store.NewStats(db),
		client:      client,
		archive:     archive,
		publisher:   publisher,
		limits:      limits,
		location:    time.Local,
		logger:      logger,
		now:         time.Now,
	}
}

// loadCampaign returns a campaign ready for provider calls. It fails before any
// network call when sync is disabled or credentials are missing.
func (s *Service) loadCampaign(ctx context.Context, campaignID string) (*store.Campaign, provider.Credentials, error) {
	campaign, err := s.campaigns.Get(ctx, campaignID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, provider.Credentials{}, apperr.NotFound("Campaign not found")
		}
		return nil, provider.Credentials{}, err
	}
	if !campaign.SyncEnabled {
		return nil, provider.Credentials{}, apperr.Configuration("RFID sync is disabled for this campaign")
	}
	creds := provider.CredentialsFor(campaign)
	if creds.Token == "" || creds.RaceID == "" || creds.RaceID == "0" {
		return nil, provider.Credentials{}, apperr.Configuration("Missing rfidToken or raceId for this campaign")
	}
	return campaign, creds, nil
}

func (s *Service) campaignEvents(ctx context.Context, campaignID string) ([]store.Event, error) {
	events, err := s.events.ForCampaign(ctx, campaignID)
	if err != nil {
		return nil, err
	}
	if len(events) == 0 {
		return nil, apperr.Configuration("Campaign has no events for runner mapping")
	}
	return events, nil
}

// finish finalizes a sync log entry. A failure to write the audit trail is logged, never returned.
func (s *Service) finish(entry *store.SyncLog, status, message string, processed, failed int, detail any) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.logs.Finish(ctx, entry, status, message, processed, failed, detail); err != nil {
		s.logger.Error("Failed to finalize sync log", zap.String("campaign_id", entry.CampaignID), zap.Error(err))
	}
}

// ImportFromProvider runs a full import for a campaign: events and checkpoints
// from the info listing, runners from the bio listing, then the score merge.
// Concurrent imports of one campaign share a single run. The run ignores
// the caller's cancellation so joined callers are not cut short by the
// first one leaving; provider timeouts still bound it.
func (s *Service) ImportFromProvider(ctx context.Context, campaignID string, opts ImportOptions) (*ImportResult, error) {
	key := fmt.Sprintf("%s|%t", campaignID, opts.UpdateExisting)
	shared := context.WithoutCancel(ctx)
	res, joined, err := s.imports.Do(key, func() (*ImportResult, error) {
		return s.importCampaign(shared, campaignID, opts)
	})
	if joined {
		s.logger.Debug("Joined running import", zap.String("campaign_id", campaignID))
	}
	return res, err
}

func (s *Service) importCampaign(ctx context.Context, campaignID string, opts ImportOptions) (*ImportResult, error) {
	campaign, creds, err := s.loadCampaign(ctx, campaignID)
	if err != nil {
		return nil, err
	}
	entry, err := s.logs.Start(ctx, campaignID, "RaceTiger full runner sync started")
	if err != nil {
		return nil, err
	}

	res, err := s.runImport(ctx, campaign, creds, opts)
	if err != nil {
		s.finish(entry, store.SyncError, "RaceTiger full runner sync failed: "+apperr.Public(err, true), 0, 1, nil)
		s.logger.Warn("Full runner sync failed", zap.String("campaign_id", campaignID), zap.Error(err))
		return nil, err
	}

	msg := fmt.Sprintf("RaceTiger full runner sync success (inserted %d, updated %d)", res.Imported, res.Updated)
	s.finish(entry, store.SyncSuccess, msg, res.Imported+res.Updated, len(res.Errors), res)
	s.logger.Info("Full runner sync completed",
		zap.String("campaign_id", campaignID),
		zap.Int("imported", res.Imported),
		zap.Int("updated", res.Updated),
		zap.Int("skipped", res.Skipped),
	)
	return res, nil
}

func (s *Service) runImport(ctx context.Context, campaign *store.Campaign, creds provider.Credentials, opts ImportOptions) (*ImportResult, error) {
	res := &ImportResult{
		RunnerStats: RunnerStats{SkipReasons: map[string]int{}},
		Errors:      []string{},
	}

	var err error
	res.Events, res.CheckpointStats, err = s.importEvents(ctx, campaign, creds)
	if err != nil {
		return nil, err
	}

	// Categories were just merged, so the resolver reads the stored campaign again.
	if campaign, err = s.campaigns.Get(ctx, campaign.ID); err != nil {
		return nil, err
	}
	events, err := s.campaignEvents(ctx, campaign.ID)
	if err != nil {
		return nil, err
	}
	resolver := mapping.BuildResolver(events, campaign.CategoryList())

	remote, err := s.fetchBio(ctx, creds, resolver, res)
	if err != nil {
		return nil, err
	}
	if res.RunnerStats.Fetched > 0 && res.RunnerStats.Mapped == 0 {
		return nil, apperr.Invalid("Unable to map BIO rows to local events. Check event remote ids or race categories")
	}

	spec := &reconcile.Spec{Adapter: newRunnerAdapter(s.runners, resolver.EventIDs), Remote: remote}
	plan, applied, err := reconcile.ReconcileAndApply(ctx, spec, reconcile.Options{UpdateExisting: opts.UpdateExisting})
	if err != nil {
		return nil, err
	}
	res.Imported = applied.Inserted
	res.Updated = applied.Updated
	res.Skipped = plan.Summary.Skips + applied.Conflicts
	for reason, n := range plan.Summary.SkipReasons {
		res.RunnerStats.SkipReasons[reason] += n
	}

	timing, err := s.syncTiming(ctx, creds, events, resolver)
	if err != nil {
		res.Errors = appendError(res.Errors, "Timing: "+apperr.Public(err, true))
	} else {
		res.Timing = timing
		for _, e := range timing.Errors {
			res.Errors = appendError(res.Errors, e)
		}
	}
	return res, nil
}

type bioTarget struct {
	remote *int64
	forced string
}

// bioTargets lists the listings to page: one per mapped provider event, or a
// single unfiltered listing when nothing is mapped.
func bioTargets(res *mapping.Resolver) []bioTarget {
	if len(res.ByRemoteID) == 0 {
		return []bioTarget{{forced: res.Fallback}}
	}
	ids := make([]int64, 0, len(res.ByRemoteID))
	for id := range res.ByRemoteID {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	targets := make([]bioTarget, len(ids))
	for i, id := range ids {
		targets[i] = bioTarget{remote: &id, forced: res.ByRemoteID[id]}
	}
	return targets
}

func eidLabel(remote *int64) string {
	if remote == nil {
		return "all"
	}
	return fmt.Sprint(*remote)
}

// fetchBio pages the bio listing and maps every row. Page errors are recorded;
// the run fails only when no page could be read at all.
func (s *Service) fetchBio(ctx context.Context, creds provider.Credentials, resolver *mapping.Resolver, res *ImportResult) ([]reconcile.RemoteItem, error) {
	var (
		remote   []reconcile.RemoteItem
		firstErr error
	)
	stats := &res.RunnerStats

	for _, target := range bioTargets(resolver) {
		fetched := 0
		for page := 1; page <= s.limits.MaxPages && stats.Fetched < s.limits.MaxRows; page++ {
			resp, err := s.client.Fetch(ctx, creds, provider.Request{Kind: provider.KindBio, Page: page, EventID: target.remote})
			if err != nil {
				if firstErr == nil {
					firstErr = err
				}
				res.Errors = appendError(res.Errors, fmt.Sprintf("EID %s: %s", eidLabel(target.remote), apperr.Public(err, true)))
				break
			}
			rows := resp.Rows()
			if len(rows) == 0 {
				break
			}
			for _, row := range rows {
				stats.Fetched++
				fetched++
				runner, skip := mapping.MapBioRow(row, resolver, target.forced)
				if skip != "" {
					stats.SkipReasons[string(skip)]++
					continue
				}
				stats.Mapped++
				remote = append(remote, runner)
			}
			if total, ok := resp.Total(); ok && int64(fetched) >= total {
				break
			}
		}
	}

	if stats.Fetched == 0 && firstErr != nil {
		return nil, firstErr
	}
	return remote, nil
}

// runnerIndex finds stored runners for score rows.
type runnerIndex struct {
	byEventBib     map[string]*store.Runner
	byEventAthlete map[string]*store.Runner
	byBib          map[string][]*store.Runner
	byAthlete      map[string][]*store.Runner
}

func newRunnerIndex(runners []store.Runner) *runnerIndex {
	idx := &runnerIndex{
		byEventBib:     make(map[string]*store.Runner, len(runners)),
		byEventAthlete: map[string]*store.Runner{},
		byBib:          map[string][]*store.Runner{},
		byAthlete:      map[string][]*store.Runner{},
	}
	for i := range runners {
		r := &runners[i]
		idx.byEventBib[runnerKey(r.EventID, r.Bib)] = r
		idx.byBib[r.Bib] = append(idx.byBib[r.Bib], r)
		if r.AthleteID != "" {
			idx.byEventAthlete[runnerKey(r.EventID, r.AthleteID)] = r
			idx.byAthlete[r.AthleteID] = append(idx.byAthlete[r.AthleteID], r)
		}
	}
	return idx
}

// find prefers the row's event. Cross-event lookups only match a unique runner.
func (idx *runnerIndex) find(eventID string, f mapping.ScoreFields) *store.Runner {
	if eventID != "" {
		if r := idx.byEventBib[runnerKey(eventID, f.Bib)]; r != nil {
			return r
		}
		if r := idx.byEventAthlete[runnerKey(eventID, f.AthleteID)]; r != nil {
			return r
		}
	}
	if list := idx.byBib[f.Bib]; f.Bib != "" && len(list) == 1 {
		return list[0]
	}
	if list := idx.byAthlete[f.AthleteID]; f.AthleteID != "" && len(list) == 1 {
		return list[0]
	}
	return nil
}

// SyncTimingOnly merges the score listing into already stored runners.
// Concurrent calls for one campaign share a single run.
func (s *Service) SyncTimingOnly(ctx context.Context, campaignID string) (*TimingResult, error) {
	res, _, err := s.timings.Do(campaignID, func() (*TimingResult, error) {
		return s.timingCampaign(ctx, campaignID)
	})
	return res, err
}

func (s *Service) timingCampaign(ctx context.Context, campaignID string) (*TimingResult, error) {
	campaign, creds, err := s.loadCampaign(ctx, campaignID)
	if err != nil {
		return nil, err
	}
	events, err := s.campaignEvents(ctx, campaignID)
	if err != nil {
		return nil, err
	}
	entry, err := s.logs.Start(ctx, campaignID, "RaceTiger timing sync started")
	if err != nil {
		return nil, err
	}

	res, err := s.syncTiming(ctx, creds, events, mapping.BuildResolver(events, campaign.CategoryList()))
	if err != nil {
		s.finish(entry, store.SyncError, "RaceTiger timing sync failed: "+apperr.Public(err, true), 0, 1, nil)
		return nil, err
	}
	msg := fmt.Sprintf("RaceTiger timing sync success (updated %d, status changes %d)", res.Updated, res.StatusChanges)
	s.finish(entry, store.SyncSuccess, msg, res.Updated, len(res.Errors), res)
	return res, nil
}

func (s *Service) syncTiming(ctx context.Context, creds provider.Credentials, events []store.Event, resolver *mapping.Resolver) (*TimingResult, error) {
	res := &TimingResult{Errors: []string{}}

	scope := make([]string, 0, len(events))
	seen := map[string]bool{}
	for _, id := range resolver.ByRemoteID {
		if !seen[id] {
			seen[id] = true
			scope = append(scope, id)
		}
	}
	if resolver.Fallback != "" && !seen[resolver.Fallback] {
		scope = append(scope, resolver.Fallback)
	}
	runners, err := s.runners.ForEvents(ctx, scope)
	if err != nil {
		return nil, err
	}
	index := newRunnerIndex(runners)

	var (
		dirty    []*store.Runner
		isDirty  = map[string]bool{}
		firstErr error
		pages    int
	)
	for _, target := range bioTargets(resolver) {
		fetched := 0
		for page := 1; page <= s.limits.MaxPages && res.Fetched < s.limits.MaxRows; page++ {
			resp, err := s.client.Fetch(ctx, creds, provider.Request{Kind: provider.KindScore, Page: page, EventID: target.remote})
			if err != nil {
				if firstErr == nil {
					firstErr = err
				}
				res.Errors = appendError(res.Errors, fmt.Sprintf("EID %s: %s", eidLabel(target.remote), apperr.Public(err, true)))
				break
			}
			pages++
			rows := resp.Rows()
			if len(rows) == 0 {
				break
			}
			for _, row := range rows {
				res.Fetched++
				fetched++
				f := mapping.MapScoreRow(row)
				runner := index.find(resolver.EventFor(row, target.forced), f)
				if runner == nil {
					res.NotFound++
					continue
				}
				changed, statusChanged := f.Apply(runner)
				if statusChanged {
					res.StatusChanges++
				}
				if changed && !isDirty[runner.ID] {
					isDirty[runner.ID] = true
					dirty = append(dirty, runner)
				}
			}
			if total, ok := resp.Total(); ok && int64(fetched) >= total {
				break
			}
		}
	}
	if pages == 0 && firstErr != nil {
		return nil, firstErr
	}

	if len(dirty) > 0 {
		batch := make([]store.Runner, len(dirty))
		for i, r := range dirty {
			batch[i] = *r
		}
		if err := s.runners.SaveTiming(ctx, batch); err != nil {
			return nil, err
		}
		s.publishUpdates(dirty)
	}
	res.Updated = len(dirty)
	return res, nil
}

// publishUpdates notifies each event room once per merge.
func (s *Service) publishUpdates(dirty []*store.Runner) {
	byEvent := map[string]int{}
	for _, r := range dirty {
		byEvent[r.EventID]++
	}
	for eventID, n := range byEvent {
		s.publisher.Publish(realtime.EventRoom(eventID), realtime.EventRunnerUpdate, map[string]any{
			"source":  "sync",
			"updated": n,
		})
	}
}

// SyncData returns a campaign's last ten sync log entries and its status counts.
func (s *Service) SyncData(ctx context.Context, campaignID string) (*SyncData, error) {
	if _, err := s.campaigns.Get(ctx, campaignID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.NotFound("Campaign not found")
		}
		return nil, err
	}
	logs, err := s.logs.Recent(ctx, campaignID, 10)
	if err != nil {
		return nil, err
	}
	counts, err := s.stats.SyncCounts(ctx, campaignID)
	if err != nil {
		return nil, err
	}
	return &SyncData{Logs: logs, Counts: counts}, nil
}

// LastSyncFailed reports whether a campaign's newest sync log entry is an error.
func (s *Service) LastSyncFailed(ctx context.Context, campaignID string) (bool, error) {
	entry, err := s.logs.Latest(ctx, campaignID)
	if errors.Is(err, store.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return entry.Status == store.SyncError, nil
}

// CampaignSyncErrors returns the newest entry of every campaign whose last run failed.
func (s *Service) CampaignSyncErrors(ctx context.Context) ([]store.SyncLog, error) {
	return s.stats.CampaignsInError(ctx)
}

// LatestPayload returns the newest sync log entry that stored a result detail.
func (s *Service) LatestPayload(ctx context.Context, campaignID string) (*store.SyncLog, error) {
	entry, err := s.logs.LatestWithDetail(ctx, campaignID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.NotFound("No sync payload recorded for this campaign")
	}
	return entry, err
}

// SetAutoSync opts a campaign in or out of scheduled timing sync.
func (s *Service) SetAutoSync(ctx context.Context, campaignID string, enabled bool) error {
	err := s.campaigns.SetAutoSync(ctx, strings.TrimSpace(campaignID), enabled)
	if errors.Is(err, store.ErrNotFound) {
		return apperr.NotFound("Campaign not found")
	}
	return err
}
