package postgres

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/BarkinBalci/sponsorship-attribution-service/internal/domain"
	"github.com/BarkinBalci/sponsorship-attribution-service/internal/repository"
)

// CampaignRegistry implements repository.CampaignRegistry on Postgres
type CampaignRegistry struct {
	client *Client
	log    *zap.Logger
}

// NewCampaignRegistry creates a new Postgres campaign registry
func NewCampaignRegistry(client *Client, log *zap.Logger) *CampaignRegistry {
	return &CampaignRegistry{client: client, log: log}
}

// GetCampaign loads a campaign with its promo codes
func (r *CampaignRegistry) GetCampaign(ctx context.Context, campaignID string) (*domain.Campaign, error) {
	var m Campaign
	err := r.client.DB().WithContext(ctx).
		Preload("PromoCodes").
		Where("id = ?", campaignID).
		First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to load campaign: %w", err)
	}
	return campaignFromModel(&m), nil
}

// ListCampaignIDs returns every campaign id in ascending order
func (r *CampaignRegistry) ListCampaignIDs(ctx context.Context) ([]string, error) {
	var ids []string
	if err := r.client.DB().WithContext(ctx).Model(&Campaign{}).Order("id").Pluck("id", &ids).Error; err != nil {
		return nil, fmt.Errorf("failed to list campaigns: %w", err)
	}
	return ids, nil
}

// UpsertCampaign creates or replaces a campaign and its promo codes in one transaction
func (r *CampaignRegistry) UpsertCampaign(ctx context.Context, campaign *domain.Campaign) error {
	if campaign.ID == "" {
		return errors.New("campaign id is required")
	}
	if campaign.Cost < 0 {
		return fmt.Errorf("campaign %s has negative cost", campaign.ID)
	}

	m := campaignToModel(campaign)
	codes := m.PromoCodes
	m.PromoCodes = nil

	err := r.client.DB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"name", "cost", "start_date", "end_date", "updated_at"}),
		}).Create(m).Error; err != nil {
			return fmt.Errorf("failed to upsert campaign: %w", err)
		}
		if err := tx.Where("campaign_id = ?", m.ID).Delete(&PromoCode{}).Error; err != nil {
			return fmt.Errorf("failed to clear promo codes: %w", err)
		}
		if len(codes) > 0 {
			if err := tx.Create(&codes).Error; err != nil {
				return fmt.Errorf("failed to insert promo codes: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	r.log.Info("Campaign upserted",
		zap.String("campaign_id", campaign.ID),
		zap.Int("promo_codes", len(codes)))
	return nil
}
