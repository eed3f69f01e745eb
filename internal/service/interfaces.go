package service

import (
	"context"

	"github.com/BarkinBalci/sponsorship-attribution-service/internal/domain"
	"github.com/BarkinBalci/sponsorship-attribution-service/internal/normalizer"
	"github.com/BarkinBalci/sponsorship-attribution-service/internal/pipeline"
)

// AttributionServicer defines the interface for attribution service operations
type AttributionServicer interface {
	IngestEvent(ctx context.Context, raw *normalizer.RawEvent) (*domain.AttributionEvent, error)
	IngestBulk(ctx context.Context, raws []normalizer.RawEvent) []IngestResult
	GetCampaignROI(ctx context.Context, campaignID string, model domain.Model) (*domain.CampaignROI, error)
	Recompute(ctx context.Context, campaignID string) (*pipeline.RunReport, error)
	RecomputeAll(ctx context.Context) ([]*pipeline.RunReport, error)
	Health(ctx context.Context) map[string]error
}

// EventNormalizer validates raw events and claims their dedup keys
type EventNormalizer interface {
	Normalize(ctx context.Context, raw *normalizer.RawEvent) (*domain.AttributionEvent, error)
	Release(ctx context.Context, event *domain.AttributionEvent) error
}

// ROIReader reads the current stored ROI of a campaign
type ROIReader interface {
	GetCampaignROI(ctx context.Context, campaignID string, model domain.Model) (*domain.CampaignROI, error)
}

// Recomputer runs the attribution pipeline
type Recomputer interface {
	Run(ctx context.Context, campaignID string) (*pipeline.RunReport, error)
	RunAll(ctx context.Context) ([]*pipeline.RunReport, error)
	Models() []domain.Model
}

// Pinger is a dependency that can report its health
type Pinger interface {
	Ping(ctx context.Context) error
}
