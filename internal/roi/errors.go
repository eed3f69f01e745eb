package roi

import "fmt"

// ZeroCostError is returned alongside a partial CampaignROI when the campaign
// cost is zero. ROI and ROAS are left nil; value, sample size and confidence
// are still valid.
type ZeroCostError struct {
	CampaignID string
}

func (e *ZeroCostError) Error() string {
	return fmt.Sprintf("campaign %s has zero cost, roi and roas are undefined", e.CampaignID)
}
