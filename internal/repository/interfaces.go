package repository

import (
	"context"
	"errors"

	"github.com/BarkinBalci/sponsorship-attribution-service/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist
var ErrNotFound = errors.New("record not found")

// EventRepository defines the interface for attribution event storage operations
type EventRepository interface {
	// InsertBatch inserts a batch of events into the storage
	InsertBatch(ctx context.Context, events []*domain.AttributionEvent) (int, error)

	// ListCampaignEvents returns every stored event of a campaign, superseded ones included
	ListCampaignEvents(ctx context.Context, campaignID string) ([]*domain.AttributionEvent, error)

	// InitSchema initializes the database schema (creates tables if they don't exist)
	InitSchema(ctx context.Context) error

	// Ping checks if the database connection is alive
	Ping(ctx context.Context) error

	// Close closes the repository and releases resources
	Close() error
}

// CampaignRegistry defines the interface for campaign lookups
type CampaignRegistry interface {
	// GetCampaign returns the campaign or ErrNotFound
	GetCampaign(ctx context.Context, campaignID string) (*domain.Campaign, error)

	// ListCampaignIDs returns the ids of every registered campaign
	ListCampaignIDs(ctx context.Context) ([]string, error)

	// UpsertCampaign creates or replaces a campaign and its promo codes
	UpsertCampaign(ctx context.Context, campaign *domain.Campaign) error
}

// ResultStore defines the interface for pipeline output storage
type ResultStore interface {
	// SaveRun persists a whole pipeline run atomically and makes it current
	SaveRun(ctx context.Context, run *domain.PipelineRun) error

	// GetCampaignROI returns the current ROI of a campaign for a model or ErrNotFound
	GetCampaignROI(ctx context.Context, campaignID string, model domain.Model) (*domain.CampaignROI, error)
}
