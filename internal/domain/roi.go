package domain

import "time"

// ConfidenceLevel qualifies an ROI figure by sample adequacy
type ConfidenceLevel string

const (
	ConfidenceHigh             ConfidenceLevel = "high"
	ConfidenceMedium           ConfidenceLevel = "medium"
	ConfidenceLow              ConfidenceLevel = "low"
	ConfidenceInsufficientData ConfidenceLevel = "insufficient_data"
)

// SegmentLift is the conversion lift of one listener demographic segment
type SegmentLift struct {
	Segment         string          `json:"segment"`
	Paths           int             `json:"paths"`
	ConvertingPaths int             `json:"converting_paths"`
	ConversionRate  float64         `json:"conversion_rate"`
	BaselineRate    float64         `json:"baseline_rate"`
	Lift            *float64        `json:"lift"`
	ConfidenceLevel ConfidenceLevel `json:"confidence_level"`
}

// CampaignROI is the campaign-level result for one model. ROI and ROAS are nil
// when the campaign cost is zero.
type CampaignROI struct {
	CampaignID           string          `json:"campaign_id"`
	Model                Model           `json:"model"`
	TotalAttributedValue float64         `json:"total_attributed_value"`
	CampaignCost         float64         `json:"campaign_cost"`
	ROI                  *float64        `json:"roi"`
	ROAS                 *float64        `json:"roas"`
	SampleSize           int             `json:"sample_size"`
	ConfidenceLevel      ConfidenceLevel `json:"confidence_level"`
	Provisional          bool            `json:"provisional"`
	Lift                 []SegmentLift   `json:"lift,omitempty"`
	RunID                string          `json:"run_id,omitempty"`
	ComputedAt           time.Time       `json:"computed_at"`
}

// PipelineRun is everything one recompute pass produced for a campaign.
// It is persisted as a unit so readers never see a half-written run.
type PipelineRun struct {
	RunID      string
	CampaignID string
	StartedAt  time.Time
	FinishedAt time.Time
	Clusters   []IdentityCluster
	Paths      []AttributionPath
	Results    []AttributionResult
	ROIs       []CampaignROI
	ItemErrors int
}
