package store

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// Events is the event part of the Checkpoint/Event Store.
type Events struct {
	db *gorm.DB
}

// NewEvents creates the event repository.
func NewEvents(db *gorm.DB) *Events {
	return &Events{db: db}
}

// Get returns the event with the given id.
func (e *Events) Get(ctx context.Context, id string) (*Event, error) {
	var event Event
	if err := e.db.WithContext(ctx).Where("id = ?", id).Take(&event).Error; err != nil {
		return nil, notFound(err)
	}
	return &event, nil
}

// ForCampaign returns a campaign's events in creation order. The order is stable
// because positional category matching depends on it.
func (e *Events) ForCampaign(ctx context.Context, campaignID string) ([]Event, error) {
	var events []Event
	err := e.db.WithContext(ctx).Where("campaign_id = ?", campaignID).
		Order("created_at ASC").Order("id ASC").Find(&events).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	return events, nil
}

// IDsForCampaign returns the ids of a campaign's events.
func (e *Events) IDsForCampaign(ctx context.Context, campaignID string) ([]string, error) {
	var ids []string
	err := e.db.WithContext(ctx).Model(&Event{}).Where("campaign_id = ?", campaignID).Pluck("id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list event ids: %w", err)
	}
	return ids, nil
}

// Save inserts or updates event.
func (e *Events) Save(ctx context.Context, event *Event) error {
	if err := e.db.WithContext(ctx).Save(event).Error; err != nil {
		return fmt.Errorf("failed to save event: %w", err)
	}
	return nil
}

// UpsertRemote merges a provider event into the campaign. It matches an existing
// event by remote id, then by name, and returns the stored event and whether it was created.
func (e *Events) UpsertRemote(ctx context.Context, campaignID string, in Event) (*Event, bool, error) {
	var existing Event
	err := gorm.ErrRecordNotFound
	if in.RemoteEventID != nil {
		err = e.db.WithContext(ctx).Where("campaign_id = ? AND remote_event_id = ?", campaignID, *in.RemoteEventID).Take(&existing).Error
	}
	if err != nil {
		err = e.db.WithContext(ctx).Where("campaign_id = ? AND name = ?", campaignID, in.Name).Take(&existing).Error
	}
	if err != nil {
		if notFound(err) != ErrNotFound {
			return nil, false, err
		}
		in.CampaignID = campaignID
		if err := e.db.WithContext(ctx).Create(&in).Error; err != nil {
			return nil, false, fmt.Errorf("failed to create event: %w", err)
		}
		return &in, true, nil
	}

	if in.RemoteEventID != nil {
		existing.RemoteEventID = in.RemoteEventID
	}
	if in.Name != "" {
		existing.Name = in.Name
	}
	if in.Distance != nil {
		existing.Distance = in.Distance
	}
	if in.Date != nil {
		existing.Date = in.Date
	}
	if existing.Category == "" {
		existing.Category = in.Category
	}
	if err := e.db.WithContext(ctx).Save(&existing).Error; err != nil {
		return nil, false, fmt.Errorf("failed to update event: %w", err)
	}
	return &existing, false, nil
}

// SetStartTime stores the gun start of an event.
func (e *Events) SetStartTime(ctx context.Context, id string, at time.Time) error {
	return e.db.WithContext(ctx).Model(&Event{}).Where("id = ?", id).Update("start_time", at).Error
}

// SetStatus stores an event's status.
func (e *Events) SetStatus(ctx context.Context, id, status string) error {
	res := e.db.WithContext(ctx).Model(&Event{}).Where("id = ?", id).Update("status", status)
	if res.Error != nil {
		return fmt.Errorf("failed to update event status: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// SetCampaignStatus stores status on every event of a campaign.
func (e *Events) SetCampaignStatus(ctx context.Context, campaignID, status string) (int64, error) {
	res := e.db.WithContext(ctx).Model(&Event{}).Where("campaign_id = ?", campaignID).Update("status", status)
	if res.Error != nil {
		return 0, fmt.Errorf("failed to update event statuses: %w", res.Error)
	}
	return res.RowsAffected, nil
}
