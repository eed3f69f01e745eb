package postgres

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BarkinBalci/sponsorship-attribution-service/internal/domain"
)

func TestCampaignMapping_NormalizesCodes(t *testing.T) {
	c := &domain.Campaign{
		ID:         "cmp-1",
		Cost:       500,
		PromoCodes: map[string]string{" podcast20 ": "", "VIP": "cust-1"},
	}

	m := campaignToModel(c)
	require.Len(t, m.PromoCodes, 2)
	for _, pc := range m.PromoCodes {
		assert.Equal(t, "cmp-1", pc.CampaignID)
	}

	back := campaignFromModel(m)
	assert.Equal(t, map[string]string{"PODCAST20": "", "VIP": "cust-1"}, back.PromoCodes)
	assert.Equal(t, 500.0, back.Cost)
}

func TestRunToModels(t *testing.T) {
	v := 50.0
	roi := 1.0
	conv := &domain.AttributionEvent{EventID: "e2", ConversionValue: &v}
	run := &domain.PipelineRun{
		RunID:      "run-1",
		CampaignID: "cmp-1",
		StartedAt:  time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		Clusters:   []domain.IdentityCluster{{ClusterID: "cl-1", MemberKeys: []string{"a", "b"}, ResolutionMethod: domain.ResolutionDeterministic, Confidence: 1}},
		Paths: []domain.AttributionPath{{
			PathID:            "path-1",
			ClusterID:         "cl-1",
			Touchpoints:       []*domain.AttributionEvent{{EventID: "e1"}, conv},
			ConversionEventID: "e2",
		}},
		Results: []domain.AttributionResult{{
			PathID:          "path-1",
			Model:           domain.ModelLinear,
			Converted:       true,
			ConversionValue: 50,
			Credits:         map[string]float64{"e1": 1, "e2": 0},
			AttributedValue: map[string]float64{"e1": 50, "e2": 0},
		}},
		ROIs: []domain.CampaignROI{{
			CampaignID:      "cmp-1",
			Model:           domain.ModelLinear,
			ROI:             &roi,
			SampleSize:      1,
			ConfidenceLevel: domain.ConfidenceInsufficientData,
			Provisional:     true,
			Lift:            []domain.SegmentLift{{Segment: "25-34", Paths: 1}},
		}},
		ItemErrors: 2,
	}

	models, err := runToModels(run)
	require.NoError(t, err)

	assert.Equal(t, 1, models.run.Clusters)
	assert.Equal(t, 1, models.run.Paths)
	assert.Equal(t, 2, models.run.ItemErrors)
	assert.False(t, models.run.Current)
	assert.JSONEq(t, `["a","b"]`, string(models.clusters[0].MemberKeys))
	assert.JSONEq(t, `["e1","e2"]`, string(models.paths[0].EventIDs))
	assert.JSONEq(t, `{"e1":1,"e2":0}`, string(models.results[0].Credits))
	require.Len(t, models.rois, 1)
	assert.Equal(t, "run-1", models.rois[0].RunID)

	back, err := roiFromModel(&models.rois[0])
	require.NoError(t, err)
	assert.Equal(t, "run-1", back.RunID)
	assert.Equal(t, domain.ConfidenceInsufficientData, back.ConfidenceLevel)
	assert.True(t, back.Provisional)
	require.Len(t, back.Lift, 1)
	assert.Equal(t, "25-34", back.Lift[0].Segment)
}
