package store

import (
	"context"
	"fmt"

	"gorm.io/gorm"
)

// Campaigns persists campaigns and their provider settings.
type Campaigns struct {
	db *gorm.DB
}

// NewCampaigns creates the campaign repository.
func NewCampaigns(db *gorm.DB) *Campaigns {
	return &Campaigns{db: db}
}

// Get returns the campaign with the given id.
func (c *Campaigns) Get(ctx context.Context, id string) (*Campaign, error) {
	var campaign Campaign
	if err := c.db.WithContext(ctx).Where("id = ?", id).Take(&campaign).Error; err != nil {
		return nil, notFound(err)
	}
	return &campaign, nil
}

// Create inserts a campaign.
func (c *Campaigns) Create(ctx context.Context, campaign *Campaign) error {
	if err := c.db.WithContext(ctx).Create(campaign).Error; err != nil {
		return fmt.Errorf("failed to create campaign: %w", err)
	}
	return nil
}

// AutoSyncCandidates returns campaigns opted into scheduled sync with usable credentials.
func (c *Campaigns) AutoSyncCandidates(ctx context.Context) ([]Campaign, error) {
	var campaigns []Campaign
	err := c.db.WithContext(ctx).
		Where("auto_sync = ? AND sync_enabled = ?", true, true).
		Where("race_id IS NOT NULL AND race_id <> '' AND race_id <> '0'").
		Where("provider_token IS NOT NULL AND provider_token <> ''").
		Order("id ASC").
		Find(&campaigns).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list auto sync campaigns: %w", err)
	}
	return campaigns, nil
}

// SetAutoSync toggles scheduled sync for a campaign.
func (c *Campaigns) SetAutoSync(ctx context.Context, id string, enabled bool) error {
	res := c.db.WithContext(ctx).Model(&Campaign{}).Where("id = ?", id).Update("auto_sync", enabled)
	if res.Error != nil {
		return fmt.Errorf("failed to update auto sync: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// EditCategories loads a campaign's categories, lets fn modify them and stores
// the result when fn reports a change. Runs in one transaction.
func (c *Campaigns) EditCategories(ctx context.Context, id string, fn func([]RaceCategory) ([]RaceCategory, bool)) error {
	return c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var campaign Campaign
		if err := tx.Where("id = ?", id).Take(&campaign).Error; err != nil {
			return notFound(err)
		}
		next, changed := fn(campaign.CategoryList())
		if !changed {
			return nil
		}
		if err := campaign.SetCategories(next); err != nil {
			return err
		}
		if err := tx.Model(&Campaign{}).Where("id = ?", id).Update("categories", campaign.Categories).Error; err != nil {
			return fmt.Errorf("failed to update categories: %w", err)
		}
		return nil
	})
}

// MergeCategories upserts categories into the campaign's category list. A category
// matches an existing one by remote event number, then by name.
func (c *Campaigns) MergeCategories(ctx context.Context, id string, incoming []RaceCategory) error {
	return c.EditCategories(ctx, id, func(merged []RaceCategory) ([]RaceCategory, bool) {
		changed := false
		for _, cat := range incoming {
			i := indexCategory(merged, cat)
			if i < 0 {
				merged = append(merged, cat)
				changed = true
				continue
			}
			if cat.Name != "" {
				merged[i].Name = cat.Name
			}
			if cat.Distance != nil {
				merged[i].Distance = cat.Distance
			}
			if cat.RemoteEventNo != nil {
				merged[i].RemoteEventNo = cat.RemoteEventNo
			}
			if cat.StartTime != "" {
				merged[i].StartTime = cat.StartTime
			}
			changed = true
		}
		return merged, changed
	})
}

func indexCategory(list []RaceCategory, cat RaceCategory) int {
	if cat.RemoteEventNo != nil {
		for i, c := range list {
			if c.RemoteEventNo != nil && *c.RemoteEventNo == *cat.RemoteEventNo {
				return i
			}
		}
	}
	for i, c := range list {
		if c.Name == cat.Name {
			return i
		}
	}
	return -1
}
