package domain

import "time"

// ResolutionMethod describes how an identity cluster was formed
type ResolutionMethod string

const (
	ResolutionDeterministic ResolutionMethod = "deterministic"
	ResolutionProbabilistic ResolutionMethod = "probabilistic"
)

// IdentityCluster is a set of listener keys believed to be one listener.
// A singleton with no deterministic signal is reported as deterministic with
// confidence 1.0: its only member is its listener key, so nothing was
// inferred. Only clusters grown through a probabilistic link carry a score.
type IdentityCluster struct {
	ClusterID        string           `json:"cluster_id"`
	MemberKeys       []string         `json:"member_keys"`
	ResolutionMethod ResolutionMethod `json:"resolution_method"`
	Confidence       float64          `json:"confidence"`
	AnchorAt         time.Time        `json:"anchor_at"`
}

// AttributionPath is the ordered touchpoints of one cluster within one campaign.
// When ConversionEventID is set it is the ID of the last touchpoint.
type AttributionPath struct {
	PathID            string              `json:"path_id"`
	CampaignID        string              `json:"campaign_id"`
	ClusterID         string              `json:"cluster_id"`
	Touchpoints       []*AttributionEvent `json:"touchpoints"`
	ConversionEventID string              `json:"conversion_event_id,omitempty"`
}

// Converted reports whether the path ends in a conversion
func (p *AttributionPath) Converted() bool {
	return p.ConversionEventID != ""
}

// Conversion returns the terminal conversion event, or nil for incomplete paths
func (p *AttributionPath) Conversion() *AttributionEvent {
	if !p.Converted() || len(p.Touchpoints) == 0 {
		return nil
	}
	return p.Touchpoints[len(p.Touchpoints)-1]
}

// Segment returns the latest demographic segment seen on the path
func (p *AttributionPath) Segment() string {
	for i := len(p.Touchpoints) - 1; i >= 0; i-- {
		if s := p.Touchpoints[i].Segment; s != "" {
			return s
		}
	}
	return ""
}

// Model is an attribution model name
type Model string

const (
	ModelFirstTouch    Model = "first_touch"
	ModelLastTouch     Model = "last_touch"
	ModelLinear        Model = "linear"
	ModelTimeDecay     Model = "time_decay"
	ModelPositionBased Model = "position_based"
	ModelUShaped       Model = "u_shaped"
	ModelWShaped       Model = "w_shaped"
)

// AllModels lists every supported attribution model in a stable order
var AllModels = []Model{
	ModelFirstTouch,
	ModelLastTouch,
	ModelLinear,
	ModelTimeDecay,
	ModelPositionBased,
	ModelUShaped,
	ModelWShaped,
}

// AttributionResult is the credit distribution of one path under one model
type AttributionResult struct {
	PathID          string             `json:"path_id"`
	Model           Model              `json:"model"`
	Converted       bool               `json:"converted"`
	ConversionValue float64            `json:"conversion_value"`
	Credits         map[string]float64 `json:"credits"`
	AttributedValue map[string]float64 `json:"attributed_value"`
}

// TotalAttributed sums the attributed value over all touchpoints
func (r *AttributionResult) TotalAttributed() float64 {
	var total float64
	for _, v := range r.AttributedValue {
		total += v
	}
	return total
}
