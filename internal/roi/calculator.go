package roi

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/BarkinBalci/sponsorship-attribution-service/internal/domain"
	"github.com/BarkinBalci/sponsorship-attribution-service/internal/validation"
)

// Calculator aggregates attribution results into campaign-level ROI
type Calculator struct {
	thresholds validation.Thresholds
	now        func() time.Time
}

// NewCalculator creates a new ROI calculator
func NewCalculator(thresholds validation.Thresholds) (*Calculator, error) {
	if err := thresholds.Validate(); err != nil {
		return nil, err
	}
	return &Calculator{thresholds: thresholds, now: time.Now}, nil
}

// Compute sums the attributed value of the converting results for model and
// derives ROI and ROAS against cost. Results for other models and unconverted
// results are ignored. When cost is zero the partial ROI is returned together
// with a *ZeroCostError.
func (c *Calculator) Compute(campaignID string, cost float64, model domain.Model, results []domain.AttributionResult) (*domain.CampaignROI, error) {
	if campaignID == "" {
		return nil, errors.New("campaign id is required")
	}
	if cost < 0 {
		return nil, fmt.Errorf("campaign %s has negative cost %.2f", campaignID, cost)
	}

	out := &domain.CampaignROI{
		CampaignID:   campaignID,
		Model:        model,
		CampaignCost: cost,
		ComputedAt:   c.now().UTC(),
	}

	for i := range results {
		r := &results[i]
		if r.Model != model || !r.Converted {
			continue
		}
		out.TotalAttributedValue += r.TotalAttributed()
		out.SampleSize++
	}

	out.ConfidenceLevel = c.thresholds.Classify(out.SampleSize)
	out.Provisional = out.ConfidenceLevel == domain.ConfidenceInsufficientData

	if cost == 0 {
		return out, &ZeroCostError{CampaignID: campaignID}
	}

	roi := (out.TotalAttributedValue - cost) / cost
	roas := out.TotalAttributedValue / cost
	out.ROI = &roi
	out.ROAS = &roas
	return out, nil
}

// Lift compares each demographic segment's conversion rate with the baseline
// rate over all paths. Paths without a segment count toward the baseline only.
// Segments are classified by their converting path count with the same
// thresholds as campaign ROI.
func (c *Calculator) Lift(paths []domain.AttributionPath) []domain.SegmentLift {
	if len(paths) == 0 {
		return nil
	}

	type tally struct{ paths, converting int }
	bySegment := make(map[string]*tally)
	converting := 0
	for i := range paths {
		p := &paths[i]
		if p.Converted() {
			converting++
		}
		seg := p.Segment()
		if seg == "" {
			continue
		}
		t, ok := bySegment[seg]
		if !ok {
			t = &tally{}
			bySegment[seg] = t
		}
		t.paths++
		if p.Converted() {
			t.converting++
		}
	}
	if len(bySegment) == 0 {
		return nil
	}

	baseline := float64(converting) / float64(len(paths))
	out := make([]domain.SegmentLift, 0, len(bySegment))
	for seg, t := range bySegment {
		rate := float64(t.converting) / float64(t.paths)
		sl := domain.SegmentLift{
			Segment:         seg,
			Paths:           t.paths,
			ConvertingPaths: t.converting,
			ConversionRate:  rate,
			BaselineRate:    baseline,
			ConfidenceLevel: c.thresholds.Classify(t.converting),
		}
		if baseline > 0 {
			lift := (rate - baseline) / baseline
			sl.Lift = &lift
		}
		out = append(out, sl)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Segment < out[j].Segment })
	return out
}
