package pipeline

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/BarkinBalci/sponsorship-attribution-service/internal/config"
	"github.com/BarkinBalci/sponsorship-attribution-service/internal/domain"
	"github.com/BarkinBalci/sponsorship-attribution-service/internal/metrics"
	"github.com/BarkinBalci/sponsorship-attribution-service/internal/repository"
	"github.com/BarkinBalci/sponsorship-attribution-service/internal/validation"
)

var testStart = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type MockEventSource struct {
	mock.Mock
}

func (m *MockEventSource) ListCampaignEvents(ctx context.Context, campaignID string) ([]*domain.AttributionEvent, error) {
	args := m.Called(ctx, campaignID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.AttributionEvent), args.Error(1)
}

type MockCampaignSource struct {
	mock.Mock
}

func (m *MockCampaignSource) GetCampaign(ctx context.Context, campaignID string) (*domain.Campaign, error) {
	args := m.Called(ctx, campaignID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Campaign), args.Error(1)
}

func (m *MockCampaignSource) ListCampaignIDs(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

type MockRunStore struct {
	mock.Mock
}

func (m *MockRunStore) SaveRun(ctx context.Context, run *domain.PipelineRun) error {
	args := m.Called(ctx, run)
	return args.Error(0)
}

type MockROIPublisher struct {
	mock.Mock
}

func (m *MockROIPublisher) PublishROI(ctx context.Context, rois []domain.CampaignROI) error {
	args := m.Called(ctx, rois)
	return args.Error(0)
}

type fixture struct {
	events    *MockEventSource
	campaigns *MockCampaignSource
	results   *MockRunStore
	publisher *MockROIPublisher
	pipeline  *Pipeline
}

func testConfig() *config.Attribution {
	return &config.Attribution{
		Models:                []string{"linear", "first_touch"},
		LookbackWindow:        30 * 24 * time.Hour,
		HalfLife:              7 * 24 * time.Hour,
		IdentityWindow:        30 * time.Minute,
		IdentityMinConfidence: 0.4,
		IdentityIPWeight:      0.5,
		IdentityDeviceWeight:  0.3,
		IdentityTimeWeight:    0.2,
		IdentityTieTolerance:  0.05,
		MinSampleSize:         30,
		MediumSampleSize:      100,
		HighSampleSize:        500,
		Workers:               2,
	}
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		events:    new(MockEventSource),
		campaigns: new(MockCampaignSource),
		results:   new(MockRunStore),
		publisher: new(MockROIPublisher),
	}
	p, err := New(testConfig(), Stores{Events: f.events, Campaigns: f.campaigns, Results: f.results}, f.publisher, metrics.NewNop(), zap.NewNop())
	require.NoError(t, err)
	p.newRunID = func() string { return "run-1" }
	f.pipeline = p
	return f
}

// convertingListeners returns n listeners that each heard the ad once and
// later converted for value
func convertingListeners(campaignID string, n int, value float64) []*domain.AttributionEvent {
	var events []*domain.AttributionEvent
	for i := 0; i < n; i++ {
		key := fmt.Sprintf("listener-%03d", i)
		at := testStart.Add(time.Duration(i) * time.Hour)
		v := value
		events = append(events,
			&domain.AttributionEvent{
				EventID:     key + "-touch",
				CampaignID:  campaignID,
				ListenerKey: key,
				Method:      domain.MethodPixel,
				OccurredAt:  at,
			},
			&domain.AttributionEvent{
				EventID:         key + "-conv",
				CampaignID:      campaignID,
				ListenerKey:     key,
				Method:          domain.MethodDirectAPI,
				OccurredAt:      at.Add(24 * time.Hour),
				ConversionValue: &v,
			},
		)
	}
	return events
}

func roiFor(t *testing.T, rois []domain.CampaignROI, model domain.Model) domain.CampaignROI {
	t.Helper()
	for _, r := range rois {
		if r.Model == model {
			return r
		}
	}
	t.Fatalf("no roi for model %s", model)
	return domain.CampaignROI{}
}

func TestPipeline_Run_EndToEnd(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.campaigns.On("GetCampaign", ctx, "cmp-1").Return(&domain.Campaign{ID: "cmp-1", Cost: 1000}, nil)
	f.events.On("ListCampaignEvents", ctx, "cmp-1").Return(convertingListeners("cmp-1", 40, 50), nil)

	var saved *domain.PipelineRun
	f.results.On("SaveRun", ctx, mock.AnythingOfType("*domain.PipelineRun")).
		Run(func(args mock.Arguments) { saved = args.Get(1).(*domain.PipelineRun) }).
		Return(nil)
	f.publisher.On("PublishROI", ctx, mock.MatchedBy(func(rois []domain.CampaignROI) bool {
		return len(rois) == 2
	})).Return(nil)

	report, err := f.pipeline.Run(ctx, "cmp-1")
	require.NoError(t, err)

	assert.Equal(t, "run-1", report.RunID)
	assert.Equal(t, 80, report.Events)
	assert.Equal(t, 40, report.Clusters)
	assert.Equal(t, 40, report.Paths)
	assert.Equal(t, 40, report.ConvertingPaths)
	assert.Equal(t, 80, report.Results)
	assert.Zero(t, report.TotalItemErrors())

	require.NotNil(t, saved)
	assert.Equal(t, "run-1", saved.RunID)
	assert.Len(t, saved.Clusters, 40)
	assert.Len(t, saved.Results, 80)
	require.Len(t, saved.ROIs, 2)

	linear := roiFor(t, saved.ROIs, domain.ModelLinear)
	assert.InDelta(t, 2000, linear.TotalAttributedValue, 1e-6)
	require.NotNil(t, linear.ROI)
	assert.InDelta(t, 1.0, *linear.ROI, 1e-9)
	assert.InDelta(t, 2.0, *linear.ROAS, 1e-9)
	assert.Equal(t, 40, linear.SampleSize)
	assert.Equal(t, domain.ConfidenceLow, linear.ConfidenceLevel)
	assert.False(t, linear.Provisional)
	assert.Equal(t, "run-1", linear.RunID)

	for _, r := range saved.Results {
		assert.NoError(t, validation.CheckCreditSum(&r))
	}

	f.publisher.AssertExpectations(t)
}

func TestPipeline_Run_InsufficientData(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.campaigns.On("GetCampaign", ctx, "cmp-1").Return(&domain.Campaign{ID: "cmp-1", Cost: 10}, nil)
	f.events.On("ListCampaignEvents", ctx, "cmp-1").Return(convertingListeners("cmp-1", 29, 100), nil)

	var saved *domain.PipelineRun
	f.results.On("SaveRun", ctx, mock.Anything).
		Run(func(args mock.Arguments) { saved = args.Get(1).(*domain.PipelineRun) }).
		Return(nil)
	f.publisher.On("PublishROI", ctx, mock.Anything).Return(nil)

	_, err := f.pipeline.Run(ctx, "cmp-1")
	require.NoError(t, err)

	linear := roiFor(t, saved.ROIs, domain.ModelLinear)
	assert.Equal(t, domain.ConfidenceInsufficientData, linear.ConfidenceLevel)
	assert.True(t, linear.Provisional)
	require.NotNil(t, linear.ROI)
	assert.InDelta(t, 289.0, *linear.ROI, 1e-9)
}

func TestPipeline_Run_SupersededHintsDoNotMerge(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	events := convertingListeners("cmp-1", 2, 50)
	events[0].Identity.UserID = "u1"
	events = append(events,
		&domain.AttributionEvent{
			EventID:     "stale",
			CampaignID:  "cmp-1",
			ListenerKey: "listener-001",
			Method:      domain.MethodPixel,
			OccurredAt:  testStart.Add(90 * time.Minute),
			Identity:    domain.IdentityHints{UserID: "u1"},
		},
		&domain.AttributionEvent{
			EventID:     "fixed",
			CampaignID:  "cmp-1",
			ListenerKey: "listener-001",
			Method:      domain.MethodPixel,
			OccurredAt:  testStart.Add(90 * time.Minute),
			Supersedes:  "stale",
		},
	)

	f.campaigns.On("GetCampaign", ctx, "cmp-1").Return(&domain.Campaign{ID: "cmp-1", Cost: 100}, nil)
	f.events.On("ListCampaignEvents", ctx, "cmp-1").Return(events, nil)
	f.results.On("SaveRun", ctx, mock.Anything).Return(nil)
	f.publisher.On("PublishROI", ctx, mock.Anything).Return(nil)

	report, err := f.pipeline.Run(ctx, "cmp-1")
	require.NoError(t, err)
	assert.Equal(t, 2, report.Clusters)
	assert.Equal(t, 2, report.ConvertingPaths)
}

func TestPipeline_Run_DropsEventsOutsideFlight(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	events := convertingListeners("cmp-1", 2, 50)
	events = append(events,
		&domain.AttributionEvent{
			EventID:     "before-start",
			CampaignID:  "cmp-1",
			ListenerKey: "listener-000",
			Method:      domain.MethodPixel,
			OccurredAt:  testStart.Add(-24 * time.Hour),
		},
		&domain.AttributionEvent{
			EventID:     "after-end",
			CampaignID:  "cmp-1",
			ListenerKey: "listener-001",
			Method:      domain.MethodPixel,
			OccurredAt:  testStart.Add(72 * time.Hour),
		},
	)
	campaign := &domain.Campaign{
		ID:        "cmp-1",
		Cost:      100,
		StartDate: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
	}

	var saved *domain.PipelineRun
	f.campaigns.On("GetCampaign", ctx, "cmp-1").Return(campaign, nil)
	f.events.On("ListCampaignEvents", ctx, "cmp-1").Return(events, nil)
	f.results.On("SaveRun", ctx, mock.Anything).
		Run(func(args mock.Arguments) { saved = args.Get(1).(*domain.PipelineRun) }).
		Return(nil)
	f.publisher.On("PublishROI", ctx, mock.Anything).Return(nil)

	report, err := f.pipeline.Run(ctx, "cmp-1")
	require.NoError(t, err)

	assert.Equal(t, 6, report.Events)
	assert.Equal(t, 2, report.Paths)
	assert.Equal(t, 2, report.ConvertingPaths)
	for _, p := range saved.Paths {
		require.Len(t, p.Touchpoints, 2)
		for _, tp := range p.Touchpoints {
			assert.NotContains(t, []string{"before-start", "after-end"}, tp.EventID)
		}
	}
}

func TestPipeline_Run_ZeroCostStillSaves(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.campaigns.On("GetCampaign", ctx, "cmp-1").Return(&domain.Campaign{ID: "cmp-1"}, nil)
	f.events.On("ListCampaignEvents", ctx, "cmp-1").Return(convertingListeners("cmp-1", 3, 20), nil)

	var saved *domain.PipelineRun
	f.results.On("SaveRun", ctx, mock.Anything).
		Run(func(args mock.Arguments) { saved = args.Get(1).(*domain.PipelineRun) }).
		Return(nil)
	f.publisher.On("PublishROI", ctx, mock.Anything).Return(nil)

	_, err := f.pipeline.Run(ctx, "cmp-1")
	require.NoError(t, err)

	linear := roiFor(t, saved.ROIs, domain.ModelLinear)
	assert.Nil(t, linear.ROI)
	assert.Nil(t, linear.ROAS)
	assert.InDelta(t, 60.0, linear.TotalAttributedValue, 1e-9)
}

func TestPipeline_Run_UnknownCampaign(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.campaigns.On("GetCampaign", ctx, "missing").Return(nil, repository.ErrNotFound)

	_, err := f.pipeline.Run(ctx, "missing")
	assert.ErrorIs(t, err, repository.ErrNotFound)
	f.events.AssertNotCalled(t, "ListCampaignEvents", mock.Anything, mock.Anything)
	f.results.AssertNotCalled(t, "SaveRun", mock.Anything, mock.Anything)
}

func TestPipeline_Run_CancelledBeforeSave(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	f.campaigns.On("GetCampaign", ctx, "cmp-1").Return(&domain.Campaign{ID: "cmp-1", Cost: 100}, nil)
	f.events.On("ListCampaignEvents", ctx, "cmp-1").Return(convertingListeners("cmp-1", 2, 10), nil)

	_, err := f.pipeline.Run(ctx, "cmp-1")
	assert.ErrorIs(t, err, context.Canceled)
	f.results.AssertNotCalled(t, "SaveRun", mock.Anything, mock.Anything)
	f.publisher.AssertNotCalled(t, "PublishROI", mock.Anything, mock.Anything)
}

func TestPipeline_Run_SaveFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.campaigns.On("GetCampaign", ctx, "cmp-1").Return(&domain.Campaign{ID: "cmp-1", Cost: 100}, nil)
	f.events.On("ListCampaignEvents", ctx, "cmp-1").Return(convertingListeners("cmp-1", 2, 10), nil)
	f.results.On("SaveRun", ctx, mock.Anything).Return(errors.New("connection reset"))

	_, err := f.pipeline.Run(ctx, "cmp-1")
	assert.ErrorContains(t, err, "failed to save pipeline run")
	f.publisher.AssertNotCalled(t, "PublishROI", mock.Anything, mock.Anything)
}

func TestPipeline_Run_PublishFailureIsNotFatal(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.campaigns.On("GetCampaign", ctx, "cmp-1").Return(&domain.Campaign{ID: "cmp-1", Cost: 100}, nil)
	f.events.On("ListCampaignEvents", ctx, "cmp-1").Return(convertingListeners("cmp-1", 2, 10), nil)
	f.results.On("SaveRun", ctx, mock.Anything).Return(nil)
	f.publisher.On("PublishROI", ctx, mock.Anything).Return(errors.New("broker unavailable"))

	report, err := f.pipeline.Run(ctx, "cmp-1")
	require.NoError(t, err)
	assert.Equal(t, 2, report.ConvertingPaths)
}

func TestPipeline_RunAll_IsolatesFailures(t *testing.T) {
	f := newFixture(t)

	f.campaigns.On("ListCampaignIDs", mock.Anything).Return([]string{"cmp-1", "cmp-2", "cmp-3"}, nil)
	f.campaigns.On("GetCampaign", mock.Anything, "cmp-1").Return(&domain.Campaign{ID: "cmp-1", Cost: 100}, nil)
	f.campaigns.On("GetCampaign", mock.Anything, "cmp-2").Return(nil, errors.New("registry timeout"))
	f.campaigns.On("GetCampaign", mock.Anything, "cmp-3").Return(&domain.Campaign{ID: "cmp-3", Cost: 100}, nil)
	f.events.On("ListCampaignEvents", mock.Anything, "cmp-1").Return(convertingListeners("cmp-1", 2, 10), nil)
	f.events.On("ListCampaignEvents", mock.Anything, "cmp-3").Return(convertingListeners("cmp-3", 5, 10), nil)
	f.results.On("SaveRun", mock.Anything, mock.Anything).Return(nil)
	f.publisher.On("PublishROI", mock.Anything, mock.Anything).Return(nil)

	reports, err := f.pipeline.RunAll(context.Background())
	require.NoError(t, err)
	require.Len(t, reports, 3)

	assert.Equal(t, "cmp-1", reports[0].CampaignID)
	assert.Empty(t, reports[0].Error)
	assert.Equal(t, 2, reports[0].Paths)

	assert.Equal(t, "cmp-2", reports[1].CampaignID)
	assert.Contains(t, reports[1].Error, "registry timeout")

	assert.Equal(t, 5, reports[2].Paths)
	f.results.AssertNumberOfCalls(t, "SaveRun", 2)
}

func TestPipeline_RunAll_ListFailure(t *testing.T) {
	f := newFixture(t)
	f.campaigns.On("ListCampaignIDs", mock.Anything).Return(nil, errors.New("registry down"))

	_, err := f.pipeline.RunAll(context.Background())
	assert.Error(t, err)
}

func TestPipeline_DropOverlapping(t *testing.T) {
	f := newFixture(t)
	report := &RunReport{CampaignID: "cmp-1", ItemErrors: map[string]int{}}

	clusters := []domain.IdentityCluster{
		{ClusterID: "a", MemberKeys: []string{"k1", "k2"}},
		{ClusterID: "b", MemberKeys: []string{"k2", "k3"}},
		{ClusterID: "c", MemberKeys: []string{"k4"}},
	}

	kept := f.pipeline.dropOverlapping(report, clusters)
	require.Len(t, kept, 1)
	assert.Equal(t, "c", kept[0].ClusterID)
	assert.Equal(t, 1, report.ItemErrors[KindOverlappingCluster])
}

func TestErrorKind(t *testing.T) {
	assert.Equal(t, KindCreditSum, errorKind(&validation.CreditSumInvariantError{PathID: "p"}))
	assert.Equal(t, KindInvalidPath, errorKind(fmt.Errorf("wrapped: %w", &validation.InvalidPathError{PathID: "p"})))
	assert.Equal(t, KindOverlappingCluster, errorKind(&validation.OverlappingClusterError{ListenerKey: "k"}))
	assert.Equal(t, KindAttribution, errorKind(errors.New("boom")))
}

func TestNew_InvalidConfig(t *testing.T) {
	cfg := testConfig()
	cfg.Models = []string{"last_click"}
	_, err := New(cfg, Stores{}, nil, metrics.NewNop(), zap.NewNop())
	assert.Error(t, err)

	cfg = testConfig()
	cfg.MinSampleSize = 0
	_, err = New(cfg, Stores{}, nil, metrics.NewNop(), zap.NewNop())
	assert.Error(t, err)
}
