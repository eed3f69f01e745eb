package postgres

import (
	"time"

	"gorm.io/datatypes"
)

// Campaign is a registered sponsorship campaign
type Campaign struct {
	ID        string `gorm:"primaryKey"`
	Name      string
	Cost      float64 `gorm:"not null"`
	StartDate time.Time
	EndDate   time.Time
	CreatedAt time.Time
	UpdatedAt time.Time

	PromoCodes []PromoCode `gorm:"foreignKey:CampaignID;constraint:OnDelete:CASCADE"`
}

// PromoCode is a code registered to a campaign. CustomerID is set for codes
// issued to a known customer.
type PromoCode struct {
	ID         uint   `gorm:"primaryKey"`
	CampaignID string `gorm:"uniqueIndex:idx_promo_code_unique,priority:1;not null"`
	Code       string `gorm:"uniqueIndex:idx_promo_code_unique,priority:2;not null"`
	CustomerID string
}

// PipelineRun is one recompute pass. Exactly one run per campaign is current;
// rows of other runs are kept for audit and never served.
type PipelineRun struct {
	RunID      string `gorm:"primaryKey"`
	CampaignID string `gorm:"index;not null"`
	Current    bool   `gorm:"index"`
	StartedAt  time.Time
	FinishedAt time.Time
	Clusters   int
	Paths      int
	ItemErrors int
}

// IdentityCluster is a cluster produced by a run
type IdentityCluster struct {
	ID               uint   `gorm:"primaryKey"`
	RunID            string `gorm:"index;not null"`
	CampaignID       string `gorm:"index;not null"`
	ClusterID        string `gorm:"not null"`
	MemberKeys       datatypes.JSON
	ResolutionMethod string
	Confidence       float64
	AnchorAt         time.Time
}

// AttributionPath is a path produced by a run, stored by event id
type AttributionPath struct {
	ID                uint   `gorm:"primaryKey"`
	RunID             string `gorm:"index;not null"`
	CampaignID        string `gorm:"index;not null"`
	PathID            string `gorm:"not null"`
	ClusterID         string
	EventIDs          datatypes.JSON
	ConversionEventID string
}

// AttributionResult is the credit split of one path under one model
type AttributionResult struct {
	ID              uint   `gorm:"primaryKey"`
	RunID           string `gorm:"index;not null"`
	PathID          string `gorm:"not null"`
	Model           string `gorm:"not null"`
	Converted       bool
	ConversionValue float64
	Credits         datatypes.JSON
	AttributedValue datatypes.JSON
}

// CampaignROI is the aggregated result of one model in a run
type CampaignROI struct {
	ID                   uint   `gorm:"primaryKey"`
	RunID                string `gorm:"uniqueIndex:idx_campaign_roi_run_model,priority:1;not null"`
	CampaignID           string `gorm:"index;not null"`
	Model                string `gorm:"uniqueIndex:idx_campaign_roi_run_model,priority:2;not null"`
	TotalAttributedValue float64
	CampaignCost         float64
	ROI                  *float64
	ROAS                 *float64
	SampleSize           int
	ConfidenceLevel      string
	Provisional          bool
	Lift                 datatypes.JSON
	ComputedAt           time.Time
}
