package course

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"race-timing/core/apperr"
	"race-timing/core/store"
	"race-timing/core/utils"
	"race-timing/feature/sync/mapping"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Result reports what a load wrote.
type Result struct {
	Checkpoints int `json:"checkpoints"`
	Mappings    int `json:"mappings"`
	Events      int `json:"events"`
}

// Loader writes course definitions to the store.
type Loader struct {
	campaigns   *store.Campaigns
	events      *store.Events
	checkpoints *store.Checkpoints
	logger      *zap.Logger
}

// NewLoader creates a course loader.
func NewLoader(db *gorm.DB, logger *zap.Logger) *Loader {
	return &Loader{
		campaigns:   store.NewCampaigns(db),
		events:      store.NewEvents(db),
		checkpoints: store.NewCheckpoints(db),
		logger:      logger,
	}
}

// Load replaces a campaign's checkpoints and every event's mappings with def.
func (l *Loader) Load(ctx context.Context, campaignID string, def *Definition) (*Result, error) {
	if _, err := l.campaigns.Get(ctx, campaignID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.NotFound("Campaign not found")
		}
		return nil, err
	}
	events, err := l.events.ForCampaign(ctx, campaignID)
	if err != nil {
		return nil, err
	}

	explicit := make(map[string]EventCourse, len(def.Events))
	for _, ec := range def.Events {
		ev := matchEvent(events, ec.Event)
		if ev == nil {
			return nil, apperr.Invalid(fmt.Sprintf("event %s is not part of this campaign", ec.Event))
		}
		if _, dup := explicit[ev.ID]; dup {
			return nil, apperr.Invalid(fmt.Sprintf("event %s is mapped twice", ec.Event))
		}
		explicit[ev.ID] = ec
	}

	defs := make([]store.Checkpoint, 0, len(def.Checkpoints))
	for i, p := range def.Checkpoints {
		active := p.Active == nil || *p.Active
		defs = append(defs, store.Checkpoint{
			Name:         p.Name,
			Type:         p.Type,
			OrderNum:     i + 1,
			Active:       active,
			CutoffTime:   p.Cutoff,
			KmCumulative: p.Km,
		})
	}
	created, err := l.checkpoints.ReplaceAll(ctx, campaignID, defs)
	if err != nil {
		return nil, err
	}

	byName := make(map[string]store.Checkpoint, len(created))
	for _, cp := range created {
		byName[mapping.NormalizeKey(cp.Name)] = cp
	}

	res := &Result{Checkpoints: len(created), Events: len(events)}
	for _, ev := range events {
		var mappings []store.CheckpointMapping
		if ec, ok := explicit[ev.ID]; ok {
			cutoffs := make(map[string]int, len(ec.CutoffMinutes))
			for name, minutes := range ec.CutoffMinutes {
				cutoffs[mapping.NormalizeKey(name)] = minutes
			}
			for i, name := range ec.Points {
				key := mapping.NormalizeKey(name)
				cp := byName[key]
				m := store.CheckpointMapping{CheckpointID: cp.ID, OrderNum: i + 1, DistanceFromStart: cp.KmCumulative}
				if minutes, ok := cutoffs[key]; ok {
					m.CutoffMinutes = &minutes
				}
				mappings = append(mappings, m)
			}
		} else {
			for _, cp := range created {
				mappings = append(mappings, store.CheckpointMapping{
					CheckpointID:      cp.ID,
					OrderNum:          cp.OrderNum,
					DistanceFromStart: cp.KmCumulative,
				})
			}
		}
		if err := l.checkpoints.ReplaceMappings(ctx, ev.ID, mappings); err != nil {
			return nil, err
		}
		res.Mappings += len(mappings)
	}

	l.logger.Info("Course loaded",
		zap.String("campaign_id", campaignID),
		zap.Int("checkpoints", res.Checkpoints),
		zap.Int("mappings", res.Mappings),
	)
	return res, nil
}

// matchEvent resolves ref by id, then name or category, then remote id.
func matchEvent(events []store.Event, ref string) *store.Event {
	ref = strings.TrimSpace(ref)
	for i := range events {
		if events[i].ID == ref {
			return &events[i]
		}
	}
	key := utils.Comparable(ref)
	for i := range events {
		if utils.Comparable(events[i].Name) == key || utils.Comparable(events[i].Category) == key {
			return &events[i]
		}
	}
	if id, err := strconv.ParseInt(ref, 10, 64); err == nil {
		for i := range events {
			if events[i].RemoteEventID != nil && *events[i].RemoteEventID == id {
				return &events[i]
			}
		}
	}
	return nil
}
