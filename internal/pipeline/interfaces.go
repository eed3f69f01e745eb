package pipeline

import (
	"context"

	"github.com/BarkinBalci/sponsorship-attribution-service/internal/domain"
)

// EventSource provides the stored events of a campaign
type EventSource interface {
	ListCampaignEvents(ctx context.Context, campaignID string) ([]*domain.AttributionEvent, error)
}

// CampaignSource provides campaign registry reads
type CampaignSource interface {
	GetCampaign(ctx context.Context, campaignID string) (*domain.Campaign, error)
	ListCampaignIDs(ctx context.Context) ([]string, error)
}

// RunStore persists the output of a run
type RunStore interface {
	SaveRun(ctx context.Context, run *domain.PipelineRun) error
}

// ROIPublisher fans out the ROI rows of a finished run
type ROIPublisher interface {
	PublishROI(ctx context.Context, rois []domain.CampaignROI) error
}
