package sync

import (
	"context"
	"time"

	"race-timing/core/store"
	"race-timing/feature/sync/mapping"
	"race-timing/feature/sync/provider"

	"go.uber.org/zap"
)

// finishedAfter is how long after the provider race date a campaign counts as over.
const finishedAfter = 48 * time.Hour

// importEvents merges the info listing into the campaign: events, race
// categories, checkpoints with their per-event mappings and gun start times.
func (s *Service) importEvents(ctx context.Context, campaign *store.Campaign, creds provider.Credentials) (EventStats, CheckpointStats, error) {
	var (
		evStats EventStats
		cpStats CheckpointStats
	)
	resp, err := s.client.Fetch(ctx, creds, provider.Request{Kind: provider.KindInfo})
	if err != nil {
		return evStats, cpStats, err
	}
	rows := resp.Rows()

	raceDate, hasRaceDate := mapping.ParseDate(resp.RaceTime(), s.location)
	fallbackDate := campaign.EventDate
	if hasRaceDate {
		fallbackDate = &raceDate
	}

	localByRemote := map[int64]string{}
	var firstLocal string
	categories := make([]store.RaceCategory, 0, len(rows))
	for _, row := range rows {
		info := mapping.MapInfoRow(row, fallbackDate, s.location)
		stored, created, err := s.events.UpsertRemote(ctx, campaign.ID, store.Event{
			Name:          info.Name,
			Category:      info.Name,
			Distance:      info.Distance,
			RemoteEventID: info.RemoteID,
			Date:          info.Date,
			Status:        store.EventUpcoming,
		})
		if err != nil {
			return evStats, cpStats, err
		}
		if created {
			evStats.Created++
		} else {
			evStats.Updated++
		}
		if firstLocal == "" {
			firstLocal = stored.ID
		}
		if info.RemoteID != nil {
			localByRemote[*info.RemoteID] = stored.ID
		}

		day := s.now().In(s.location)
		if info.Date != nil {
			day = *info.Date
		}
		if at, ok := info.StartAt(day); ok {
			if err := s.events.SetStartTime(ctx, stored.ID, at); err != nil {
				return evStats, cpStats, err
			}
		}

		categories = append(categories, store.RaceCategory{
			Name:          info.Name,
			Distance:      info.Distance,
			StartTime:     info.CategoryStart(),
			Cutoff:        "-",
			Status:        store.EventLive,
			RemoteEventNo: info.RemoteID,
		})
	}
	if len(categories) > 0 {
		if err := s.campaigns.MergeCategories(ctx, campaign.ID, categories); err != nil {
			return evStats, cpStats, err
		}
	}

	if cpStats, err = s.importCheckpoints(ctx, campaign.ID, creds, rows, localByRemote, firstLocal); err != nil {
		return evStats, cpStats, err
	}

	s.applyPassedStarts(ctx, campaign.ID, creds, localByRemote)

	if hasRaceDate && s.now().Sub(raceDate) > finishedAfter {
		if err := s.markFinished(ctx, campaign.ID); err != nil {
			return evStats, cpStats, err
		}
		evStats.Finished = true
	}
	return evStats, cpStats, nil
}

// importCheckpoints replaces the campaign course when the provider lists a
// richer one. An existing course is kept when the provider lists fewer points,
// or as many points with the same names. Without timing points in the info
// listing the course comes from split score page 1, then START and FINISH.
func (s *Service) importCheckpoints(ctx context.Context, campaignID string, creds provider.Credentials, rows []map[string]any, localByRemote map[int64]string, firstLocal string) (CheckpointStats, error) {
	var stats CheckpointStats

	perEvent := mapping.PointsPerEvent(rows)
	course := mapping.MergedPoints(rows)
	if len(course) == 0 {
		course = s.splitCourse(ctx, campaignID, creds)
	}
	if len(course) == 0 {
		course = mapping.DefaultPoints()
	}

	existing, err := s.checkpoints.ForCampaign(ctx, campaignID)
	if err != nil {
		return stats, err
	}
	if shouldReplaceCourse(existing, course) {
		defs := make([]store.Checkpoint, len(course))
		for i, p := range course {
			defs[i] = store.Checkpoint{Name: p.Name, Type: p.Type, OrderNum: p.OrderNum, Active: true}
		}
		if existing, err = s.checkpoints.ReplaceAll(ctx, campaignID, defs); err != nil {
			return stats, err
		}
		stats.Created = len(existing)
		stats.Replaced = true
	}

	byName := make(map[string]store.Checkpoint, len(existing))
	for _, cp := range existing {
		byName[mapping.ComparableText(cp.Name)] = cp
	}

	if len(perEvent) > 0 {
		km := map[string]float64{}
		for _, p := range perEvent[0].Points {
			if cp, ok := byName[mapping.ComparableText(p.Name)]; ok && p.Km != nil {
				km[cp.ID] = *p.Km
			}
		}
		if err := s.checkpoints.SetKm(ctx, km); err != nil {
			return stats, err
		}
		for i, cp := range existing {
			if v, ok := km[cp.ID]; ok {
				existing[i].KmCumulative = &v
			}
		}
	}

	mapped := map[string]bool{}
	for _, ep := range perEvent {
		eventID, ok := localByRemote[ep.RemoteID]
		if !ok || mapped[eventID] {
			continue
		}
		var mappings []store.CheckpointMapping
		for _, p := range ep.Points {
			cp, ok := byName[mapping.ComparableText(p.Name)]
			if !ok {
				continue
			}
			mappings = append(mappings, store.CheckpointMapping{CheckpointID: cp.ID, OrderNum: p.OrderNum, DistanceFromStart: p.Km})
		}
		if len(mappings) == 0 {
			continue
		}
		if err := s.checkpoints.ReplaceMappings(ctx, eventID, mappings); err != nil {
			return stats, err
		}
		mapped[eventID] = true
		stats.Mappings += len(mappings)
	}

	// Events the provider lists no points for run the whole course.
	targets := make([]string, 0, len(localByRemote)+1)
	for _, id := range localByRemote {
		targets = append(targets, id)
	}
	if len(localByRemote) == 0 && firstLocal != "" {
		targets = append(targets, firstLocal)
	}
	for _, eventID := range targets {
		if mapped[eventID] {
			continue
		}
		mappings := make([]store.CheckpointMapping, len(existing))
		for i, cp := range existing {
			mappings[i] = store.CheckpointMapping{CheckpointID: cp.ID, OrderNum: cp.OrderNum, DistanceFromStart: cp.KmCumulative}
		}
		if err := s.checkpoints.ReplaceMappings(ctx, eventID, mappings); err != nil {
			return stats, err
		}
		mapped[eventID] = true
		stats.Mappings += len(mappings)
	}
	return stats, nil
}

func shouldReplaceCourse(existing []store.Checkpoint, course []mapping.TimingPoint) bool {
	switch {
	case len(existing) == 0:
		return true
	case len(course) > len(existing):
		return true
	case len(course) < len(existing):
		return false
	}
	names := make(map[string]bool, len(existing))
	for _, cp := range existing {
		names[mapping.ComparableText(cp.Name)] = true
	}
	for _, p := range course {
		if !names[mapping.ComparableText(p.Name)] {
			return true
		}
	}
	return false
}

// applyPassedStarts reads gun starts from the passed time listing into race
// category start times. The listing is optional; failures are only logged.
// splitCourse reads checkpoint names from the first split score page. Any
// failure yields no points.
func (s *Service) splitCourse(ctx context.Context, campaignID string, creds provider.Credentials) []mapping.TimingPoint {
	resp, err := s.client.Fetch(ctx, creds, provider.Request{Kind: provider.KindSplit, Page: 1})
	if err != nil {
		s.logger.Debug("Split score listing unavailable", zap.String("campaign_id", campaignID), zap.Error(err))
		return nil
	}
	return mapping.SplitPoints(resp.Rows())
}

func (s *Service) applyPassedStarts(ctx context.Context, campaignID string, creds provider.Credentials, localByRemote map[int64]string) {
	resp, err := s.client.Fetch(ctx, creds, provider.Request{Kind: provider.KindPassedTime, Page: 1})
	if err != nil {
		s.logger.Debug("Passed time listing unavailable", zap.String("campaign_id", campaignID), zap.Error(err))
		return
	}
	starts := mapping.PassedStartTimes(resp.Rows(), nil, s.location)
	if len(starts) == 0 {
		return
	}

	err = s.campaigns.EditCategories(ctx, campaignID, func(cats []store.RaceCategory) ([]store.RaceCategory, bool) {
		changed := false
		for i, cat := range cats {
			if cat.RemoteEventNo == nil {
				continue
			}
			if start, ok := starts[*cat.RemoteEventNo]; ok && cat.StartTime != start {
				cats[i].StartTime = start
				changed = true
			}
		}
		return cats, changed
	})
	if err != nil {
		s.logger.Warn("Failed to store passed start times", zap.String("campaign_id", campaignID), zap.Error(err))
		return
	}

	for remote, start := range starts {
		eventID, ok := localByRemote[remote]
		if !ok {
			continue
		}
		at, err := time.ParseInLocation("2006-01-02T15:04", start, s.location)
		if err != nil {
			continue
		}
		if err := s.events.SetStartTime(ctx, eventID, at); err != nil {
			s.logger.Warn("Failed to store event start", zap.String("event_id", eventID), zap.Error(err))
		}
	}
}

// markFinished closes every race category and event of a campaign.
func (s *Service) markFinished(ctx context.Context, campaignID string) error {
	err := s.campaigns.EditCategories(ctx, campaignID, func(cats []store.RaceCategory) ([]store.RaceCategory, bool) {
		for i := range cats {
			cats[i].Status = store.EventFinished
		}
		return cats, len(cats) > 0
	})
	if err != nil {
		return err
	}
	_, err = s.events.SetCampaignStatus(ctx, campaignID, store.EventFinished)
	return err
}
