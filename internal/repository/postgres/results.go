package postgres

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/BarkinBalci/sponsorship-attribution-service/internal/domain"
	"github.com/BarkinBalci/sponsorship-attribution-service/internal/repository"
)

const insertBatchSize = 500

// ResultStore implements repository.ResultStore on Postgres. Each run is
// written under its own run id and switched to current in the same
// transaction, so readers see either the previous run or the new one.
type ResultStore struct {
	client *Client
	log    *zap.Logger
}

// NewResultStore creates a new Postgres result store
func NewResultStore(client *Client, log *zap.Logger) *ResultStore {
	return &ResultStore{client: client, log: log}
}

// SaveRun writes every row of run and marks it current. Earlier runs of the
// campaign stay stored with current=false.
func (s *ResultStore) SaveRun(ctx context.Context, run *domain.PipelineRun) error {
	if run.RunID == "" || run.CampaignID == "" {
		return errors.New("run id and campaign id are required")
	}

	models, err := runToModels(run)
	if err != nil {
		return err
	}

	err = s.client.DB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockCampaign(tx, run.CampaignID); err != nil {
			return fmt.Errorf("failed to lock campaign runs: %w", err)
		}
		if err := tx.Create(&models.run).Error; err != nil {
			return fmt.Errorf("failed to insert pipeline run: %w", err)
		}
		if len(models.clusters) > 0 {
			if err := tx.CreateInBatches(&models.clusters, insertBatchSize).Error; err != nil {
				return fmt.Errorf("failed to insert identity clusters: %w", err)
			}
		}
		if len(models.paths) > 0 {
			if err := tx.CreateInBatches(&models.paths, insertBatchSize).Error; err != nil {
				return fmt.Errorf("failed to insert attribution paths: %w", err)
			}
		}
		if len(models.results) > 0 {
			if err := tx.CreateInBatches(&models.results, insertBatchSize).Error; err != nil {
				return fmt.Errorf("failed to insert attribution results: %w", err)
			}
		}
		if len(models.rois) > 0 {
			if err := tx.Create(&models.rois).Error; err != nil {
				return fmt.Errorf("failed to insert campaign rois: %w", err)
			}
		}

		if err := tx.Model(&PipelineRun{}).
			Where("campaign_id = ? AND run_id <> ?", run.CampaignID, run.RunID).
			Update("current", false).Error; err != nil {
			return fmt.Errorf("failed to retire previous runs: %w", err)
		}
		if err := tx.Model(&PipelineRun{}).Where("run_id = ?", run.RunID).Update("current", true).Error; err != nil {
			return fmt.Errorf("failed to mark run current: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.log.Info("Pipeline run saved",
		zap.String("campaign_id", run.CampaignID),
		zap.String("run_id", run.RunID),
		zap.Int("clusters", len(models.clusters)),
		zap.Int("paths", len(models.paths)),
		zap.Int("results", len(models.results)))
	return nil
}

// lockCampaign serializes SaveRun per campaign until the transaction ends.
// Other dialects rely on their own writer lock.
func lockCampaign(tx *gorm.DB, campaignID string) error {
	if tx.Dialector.Name() != "postgres" {
		return nil
	}
	return tx.Exec("SELECT pg_advisory_xact_lock(hashtext(?))", campaignID).Error
}

// GetCampaignROI returns the ROI of the current run for model
func (s *ResultStore) GetCampaignROI(ctx context.Context, campaignID string, model domain.Model) (*domain.CampaignROI, error) {
	var m CampaignROI
	err := s.client.DB().WithContext(ctx).
		Joins("JOIN pipeline_runs ON pipeline_runs.run_id = campaign_rois.run_id").
		Where("pipeline_runs.current = ? AND campaign_rois.campaign_id = ? AND campaign_rois.model = ?", true, campaignID, string(model)).
		First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to load campaign roi: %w", err)
	}
	return roiFromModel(&m)
}
