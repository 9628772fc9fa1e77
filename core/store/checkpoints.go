package store

import (
	"context"
	"fmt"

	"gorm.io/gorm"
)

// Checkpoints is the checkpoint part of the Checkpoint/Event Store.
type Checkpoints struct {
	db *gorm.DB
}

// NewCheckpoints creates the checkpoint repository.
func NewCheckpoints(db *gorm.DB) *Checkpoints {
	return &Checkpoints{db: db}
}

// ForCampaign returns a campaign's checkpoints in course order.
func (c *Checkpoints) ForCampaign(ctx context.Context, campaignID string) ([]Checkpoint, error) {
	var cps []Checkpoint
	err := c.db.WithContext(ctx).Where("campaign_id = ?", campaignID).
		Order("order_num ASC").Order("name ASC").Find(&cps).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list checkpoints: %w", err)
	}
	return cps, nil
}

// ActiveWithCutoff returns every active checkpoint that declares a cutoff.
func (c *Checkpoints) ActiveWithCutoff(ctx context.Context) ([]Checkpoint, error) {
	var cps []Checkpoint
	err := c.db.WithContext(ctx).
		Where("active = ?", true).
		Where("cutoff_time IS NOT NULL AND cutoff_time <> '' AND cutoff_time <> '-'").
		Order("campaign_id ASC").Order("order_num ASC").
		Find(&cps).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list cutoff checkpoints: %w", err)
	}
	return cps, nil
}

// Create inserts checkpoints.
func (c *Checkpoints) Create(ctx context.Context, cps []Checkpoint) error {
	if len(cps) == 0 {
		return nil
	}
	if err := c.db.WithContext(ctx).Create(&cps).Error; err != nil {
		return fmt.Errorf("failed to create checkpoints: %w", err)
	}
	return nil
}

// ReplaceAll deletes a campaign's checkpoints with their mappings and inserts defs
// in one transaction. The set is never partially patched.
func (c *Checkpoints) ReplaceAll(ctx context.Context, campaignID string, defs []Checkpoint) ([]Checkpoint, error) {
	err := c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var ids []string
		if err := tx.Model(&Checkpoint{}).Where("campaign_id = ?", campaignID).Pluck("id", &ids).Error; err != nil {
			return err
		}
		if len(ids) > 0 {
			if err := tx.Where("checkpoint_id IN ?", ids).Delete(&CheckpointMapping{}).Error; err != nil {
				return fmt.Errorf("failed to delete mappings: %w", err)
			}
			if err := tx.Where("campaign_id = ?", campaignID).Delete(&Checkpoint{}).Error; err != nil {
				return fmt.Errorf("failed to delete checkpoints: %w", err)
			}
		}
		for i := range defs {
			defs[i].CampaignID = campaignID
			defs[i].ID = ""
		}
		if len(defs) == 0 {
			return nil
		}
		return tx.Create(&defs).Error
	})
	if err != nil {
		return nil, fmt.Errorf("failed to replace checkpoints: %w", err)
	}
	return defs, nil
}

// SetKm stores cumulative distances by checkpoint id.
func (c *Checkpoints) SetKm(ctx context.Context, km map[string]float64) error {
	if len(km) == 0 {
		return nil
	}
	return c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for id, v := range km {
			if err := tx.Model(&Checkpoint{}).Where("id = ?", id).Update("km_cumulative", v).Error; err != nil {
				return fmt.Errorf("failed to update checkpoint distance: %w", err)
			}
		}
		return nil
	})
}

// ReplaceMappings swaps every mapping of eventID for mappings in one transaction.
func (c *Checkpoints) ReplaceMappings(ctx context.Context, eventID string, mappings []CheckpointMapping) error {
	return c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("event_id = ?", eventID).Delete(&CheckpointMapping{}).Error; err != nil {
			return fmt.Errorf("failed to delete mappings: %w", err)
		}
		for i := range mappings {
			mappings[i].EventID = eventID
			mappings[i].ID = ""
		}
		if len(mappings) == 0 {
			return nil
		}
		if err := tx.Create(&mappings).Error; err != nil {
			return fmt.Errorf("failed to create mappings: %w", err)
		}
		return nil
	})
}

// MappingsForEvent returns an event's checkpoint mappings in course order.
func (c *Checkpoints) MappingsForEvent(ctx context.Context, eventID string) ([]CheckpointMapping, error) {
	var mappings []CheckpointMapping
	err := c.db.WithContext(ctx).Where("event_id = ?", eventID).Order("order_num ASC").Find(&mappings).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list mappings: %w", err)
	}
	return mappings, nil
}
