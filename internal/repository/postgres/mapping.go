package postgres

import (
	"encoding/json"
	"fmt"

	"gorm.io/datatypes"

	"github.com/BarkinBalci/sponsorship-attribution-service/internal/domain"
)

func campaignToModel(c *domain.Campaign) *Campaign {
	m := &Campaign{
		ID:        c.ID,
		Name:      c.Name,
		Cost:      c.Cost,
		StartDate: c.StartDate,
		EndDate:   c.EndDate,
	}
	for code, customer := range c.PromoCodes {
		m.PromoCodes = append(m.PromoCodes, PromoCode{
			CampaignID: c.ID,
			Code:       domain.NormalizeCode(code),
			CustomerID: customer,
		})
	}
	return m
}

func campaignFromModel(m *Campaign) *domain.Campaign {
	c := &domain.Campaign{
		ID:         m.ID,
		Name:       m.Name,
		Cost:       m.Cost,
		StartDate:  m.StartDate.UTC(),
		EndDate:    m.EndDate.UTC(),
		PromoCodes: make(map[string]string, len(m.PromoCodes)),
	}
	for _, pc := range m.PromoCodes {
		c.PromoCodes[domain.NormalizeCode(pc.Code)] = pc.CustomerID
	}
	return c
}

// runModels flattens a pipeline run into its table rows
type runModels struct {
	run      PipelineRun
	clusters []IdentityCluster
	paths    []AttributionPath
	results  []AttributionResult
	rois     []CampaignROI
}

func runToModels(run *domain.PipelineRun) (*runModels, error) {
	out := &runModels{
		run: PipelineRun{
			RunID:      run.RunID,
			CampaignID: run.CampaignID,
			StartedAt:  run.StartedAt,
			FinishedAt: run.FinishedAt,
			Clusters:   len(run.Clusters),
			Paths:      len(run.Paths),
			ItemErrors: run.ItemErrors,
		},
	}

	for _, c := range run.Clusters {
		keys, err := jsonValue(c.MemberKeys)
		if err != nil {
			return nil, err
		}
		out.clusters = append(out.clusters, IdentityCluster{
			RunID:            run.RunID,
			CampaignID:       run.CampaignID,
			ClusterID:        c.ClusterID,
			MemberKeys:       keys,
			ResolutionMethod: string(c.ResolutionMethod),
			Confidence:       c.Confidence,
			AnchorAt:         c.AnchorAt,
		})
	}

	for _, p := range run.Paths {
		ids := make([]string, 0, len(p.Touchpoints))
		for _, tp := range p.Touchpoints {
			ids = append(ids, tp.EventID)
		}
		eventIDs, err := jsonValue(ids)
		if err != nil {
			return nil, err
		}
		out.paths = append(out.paths, AttributionPath{
			RunID:             run.RunID,
			CampaignID:        run.CampaignID,
			PathID:            p.PathID,
			ClusterID:         p.ClusterID,
			EventIDs:          eventIDs,
			ConversionEventID: p.ConversionEventID,
		})
	}

	for _, r := range run.Results {
		credits, err := jsonValue(r.Credits)
		if err != nil {
			return nil, err
		}
		values, err := jsonValue(r.AttributedValue)
		if err != nil {
			return nil, err
		}
		out.results = append(out.results, AttributionResult{
			RunID:           run.RunID,
			PathID:          r.PathID,
			Model:           string(r.Model),
			Converted:       r.Converted,
			ConversionValue: r.ConversionValue,
			Credits:         credits,
			AttributedValue: values,
		})
	}

	for i := range run.ROIs {
		m, err := roiToModel(run.RunID, &run.ROIs[i])
		if err != nil {
			return nil, err
		}
		out.rois = append(out.rois, *m)
	}

	return out, nil
}

func roiToModel(runID string, r *domain.CampaignROI) (*CampaignROI, error) {
	lift, err := jsonValue(r.Lift)
	if err != nil {
		return nil, err
	}
	return &CampaignROI{
		RunID:                runID,
		CampaignID:           r.CampaignID,
		Model:                string(r.Model),
		TotalAttributedValue: r.TotalAttributedValue,
		CampaignCost:         r.CampaignCost,
		ROI:                  r.ROI,
		ROAS:                 r.ROAS,
		SampleSize:           r.SampleSize,
		ConfidenceLevel:      string(r.ConfidenceLevel),
		Provisional:          r.Provisional,
		Lift:                 lift,
		ComputedAt:           r.ComputedAt,
	}, nil
}

func roiFromModel(m *CampaignROI) (*domain.CampaignROI, error) {
	r := &domain.CampaignROI{
		CampaignID:           m.CampaignID,
		Model:                domain.Model(m.Model),
		TotalAttributedValue: m.TotalAttributedValue,
		CampaignCost:         m.CampaignCost,
		ROI:                  m.ROI,
		ROAS:                 m.ROAS,
		SampleSize:           m.SampleSize,
		ConfidenceLevel:      domain.ConfidenceLevel(m.ConfidenceLevel),
		Provisional:          m.Provisional,
		RunID:                m.RunID,
		ComputedAt:           m.ComputedAt.UTC(),
	}
	if len(m.Lift) > 0 && string(m.Lift) != "null" {
		if err := json.Unmarshal(m.Lift, &r.Lift); err != nil {
			return nil, fmt.Errorf("failed to decode segment lift: %w", err)
		}
	}
	return r, nil
}

func jsonValue(v any) (datatypes.JSON, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode json column: %w", err)
	}
	return datatypes.JSON(b), nil
}
