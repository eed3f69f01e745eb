package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/BarkinBalci/sponsorship-attribution-service/internal/attribution"
	"github.com/BarkinBalci/sponsorship-attribution-service/internal/config"
	"github.com/BarkinBalci/sponsorship-attribution-service/internal/domain"
	"github.com/BarkinBalci/sponsorship-attribution-service/internal/identity"
	"github.com/BarkinBalci/sponsorship-attribution-service/internal/metrics"
	"github.com/BarkinBalci/sponsorship-attribution-service/internal/path"
	"github.com/BarkinBalci/sponsorship-attribution-service/internal/repository"
	"github.com/BarkinBalci/sponsorship-attribution-service/internal/roi"
	"github.com/BarkinBalci/sponsorship-attribution-service/internal/validation"
)

// Stores groups the storage dependencies of the pipeline
type Stores struct {
	Events    EventSource
	Campaigns CampaignSource
	Results   RunStore
}

// Pipeline recomputes identity clusters, paths, attribution results and ROI
// for campaigns and stores each recompute as one run
type Pipeline struct {
	stores     Stores
	publisher  ROIPublisher
	resolver   *identity.Resolver
	builder    *path.Builder
	engine     *attribution.Engine
	calculator *roi.Calculator
	models     []domain.Model
	workers    int
	metrics    *metrics.Metrics
	log        *zap.Logger
	newRunID   func() string
}

// New creates a pipeline from the attribution configuration
func New(cfg *config.Attribution, stores Stores, publisher ROIPublisher, m *metrics.Metrics, log *zap.Logger) (*Pipeline, error) {
	models, err := attribution.ParseModels(cfg.Models)
	if err != nil {
		return nil, fmt.Errorf("failed to parse attribution models: %w", err)
	}

	resolver, err := identity.NewResolver(identity.Config{
		Window:        cfg.IdentityWindow,
		MinConfidence: cfg.IdentityMinConfidence,
		IPWeight:      cfg.IdentityIPWeight,
		DeviceWeight:  cfg.IdentityDeviceWeight,
		TimeWeight:    cfg.IdentityTimeWeight,
		TieTolerance:  cfg.IdentityTieTolerance,
	}, log)
	if err != nil {
		return nil, fmt.Errorf("failed to create identity resolver: %w", err)
	}

	calculator, err := roi.NewCalculator(validation.Thresholds{
		Minimum: cfg.MinSampleSize,
		Medium:  cfg.MediumSampleSize,
		High:    cfg.HighSampleSize,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create roi calculator: %w", err)
	}

	workers := cfg.Workers
	if workers <= 0 {
		workers = 1
	}

	return &Pipeline{
		stores:     stores,
		publisher:  publisher,
		resolver:   resolver,
		builder:    path.NewBuilder(path.Config{LookbackWindow: cfg.LookbackWindow}, log),
		engine:     attribution.NewEngine(attribution.Config{HalfLife: cfg.HalfLife}),
		calculator: calculator,
		models:     models,
		workers:    workers,
		metrics:    m,
		log:        log,
		newRunID:   uuid.NewString,
	}, nil
}

// flightEvents drops superseded events and events outside the campaign flight
// so neither reaches identity resolution
func (p *Pipeline) flightEvents(campaignID string, campaign *domain.Campaign, events []*domain.AttributionEvent) []*domain.AttributionEvent {
	live := path.LiveEvents(campaignID, events)
	kept := live[:0]
	for _, e := range live {
		if campaign.InWindow(e.OccurredAt, e.IsConversion()) {
			kept = append(kept, e)
		}
	}
	if dropped := len(events) - len(kept); dropped > 0 {
		p.log.Debug("Dropped superseded or out-of-flight events",
			zap.String("campaign_id", campaignID),
			zap.Int("dropped", dropped))
	}
	return kept
}

// Models returns the models every run attributes under
func (p *Pipeline) Models() []domain.Model {
	return p.models
}

// Run recomputes one campaign. Invariant violations skip the offending
// cluster, path or result and are counted in the report; the run goes on.
// Nothing is stored when ctx is cancelled before the run is saved, so the
// previous run stays current.
func (p *Pipeline) Run(ctx context.Context, campaignID string) (*RunReport, error) {
	start := time.Now()
	report, err := p.run(ctx, campaignID)
	took := time.Since(start)

	if err != nil {
		p.metrics.PipelineRun(metrics.RunFailure, took)
		return nil, err
	}

	report.Duration = took
	p.metrics.PipelineRun(metrics.RunSuccess, took)
	for _, kind := range sortedKinds(report.ItemErrors) {
		p.metrics.ItemErrors(kind, report.ItemErrors[kind])
	}

	p.log.Info("Pipeline run completed",
		zap.String("campaign_id", campaignID),
		zap.String("run_id", report.RunID),
		zap.Int("clusters", report.Clusters),
		zap.Int("paths", report.Paths),
		zap.Int("converting_paths", report.ConvertingPaths),
		zap.Int("item_errors", report.TotalItemErrors()),
		zap.Duration("duration", took))
	return report, nil
}

func (p *Pipeline) run(ctx context.Context, campaignID string) (*RunReport, error) {
	startedAt := time.Now().UTC()

	campaign, err := p.stores.Campaigns.GetCampaign(ctx, campaignID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("campaign %s: %w", campaignID, err)
		}
		return nil, fmt.Errorf("failed to load campaign: %w", err)
	}

	events, err := p.stores.Events.ListCampaignEvents(ctx, campaignID)
	if err != nil {
		return nil, fmt.Errorf("failed to load campaign events: %w", err)
	}

	report := &RunReport{
		RunID:      p.newRunID(),
		CampaignID: campaignID,
		Events:     len(events),
		ItemErrors: make(map[string]int),
	}

	live := p.flightEvents(campaignID, campaign, events)

	clusters, err := p.resolver.Resolve(live)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve identities: %w", err)
	}
	clusters = p.dropOverlapping(report, clusters)
	report.Clusters = len(clusters)

	built, err := p.builder.Build(campaignID, clusters, live)
	if err != nil {
		return nil, fmt.Errorf("failed to build paths: %w", err)
	}

	paths := make([]domain.AttributionPath, 0, len(built))
	for i := range built {
		if err := validation.ValidatePath(&built[i]); err != nil {
			p.skipItem(report, err)
			continue
		}
		paths = append(paths, built[i])
		if built[i].Converted() {
			report.ConvertingPaths++
		}
	}
	report.Paths = len(paths)

	var results []domain.AttributionResult
	for i := range paths {
		distributed, errs := p.engine.DistributeAll(&paths[i], p.models)
		for _, err := range errs {
			p.skipItem(report, err)
		}
		results = append(results, distributed...)
	}
	report.Results = len(results)

	lift := p.calculator.Lift(paths)
	rois := make([]domain.CampaignROI, 0, len(p.models))
	for _, model := range p.models {
		out, err := p.calculator.Compute(campaignID, campaign.Cost, model, results)
		var zeroCost *roi.ZeroCostError
		if err != nil && !errors.As(err, &zeroCost) {
			return nil, fmt.Errorf("failed to compute roi for %s: %w", model, err)
		}
		out.RunID = report.RunID
		out.Lift = lift
		rois = append(rois, *out)
	}
	if campaign.Cost == 0 {
		p.log.Warn("Campaign has zero cost, ROI and ROAS left empty",
			zap.String("campaign_id", campaignID))
	}

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("pipeline run cancelled: %w", err)
	}

	run := &domain.PipelineRun{
		RunID:      report.RunID,
		CampaignID: campaignID,
		StartedAt:  startedAt,
		FinishedAt: time.Now().UTC(),
		Clusters:   clusters,
		Paths:      paths,
		Results:    results,
		ROIs:       rois,
		ItemErrors: report.TotalItemErrors(),
	}
	if err := p.stores.Results.SaveRun(ctx, run); err != nil {
		return nil, fmt.Errorf("failed to save pipeline run: %w", err)
	}

	if err := p.publisher.PublishROI(ctx, rois); err != nil {
		p.log.Error("Failed to publish campaign ROI",
			zap.String("campaign_id", campaignID),
			zap.String("run_id", report.RunID),
			zap.Error(err))
	}

	return report, nil
}

// dropOverlapping removes every cluster involved in a key overlap
func (p *Pipeline) dropOverlapping(report *RunReport, clusters []domain.IdentityCluster) []domain.IdentityCluster {
	errs := validation.ValidateClusters(clusters)
	if len(errs) == 0 {
		return clusters
	}

	drop := make(map[string]bool)
	for _, err := range errs {
		p.skipItem(report, err)
		var overlap *validation.OverlappingClusterError
		if errors.As(err, &overlap) {
			for _, id := range overlap.ClusterIDs {
				drop[id] = true
			}
		}
	}

	kept := make([]domain.IdentityCluster, 0, len(clusters))
	for _, c := range clusters {
		if !drop[c.ClusterID] {
			kept = append(kept, c)
		}
	}
	return kept
}

func (p *Pipeline) skipItem(report *RunReport, err error) {
	kind := report.countItemError(err)
	p.log.Warn("Skipping item that violates an invariant",
		zap.String("campaign_id", report.CampaignID),
		zap.String("kind", kind),
		zap.Error(err))
}

// RunAll recomputes every registered campaign on a bounded worker pool. A
// failing campaign is reported in its RunReport and never stops the others.
func (p *Pipeline) RunAll(ctx context.Context) ([]*RunReport, error) {
	ids, err := p.stores.Campaigns.ListCampaignIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list campaigns: %w", err)
	}

	reports := make([]*RunReport, len(ids))
	var mu sync.Mutex
	failed := 0

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)
	for i, id := range ids {
		i, id := i, id
		g.Go(func() error {
			report, err := p.Run(gCtx, id)
			if err != nil {
				p.log.Error("Pipeline run failed",
					zap.String("campaign_id", id),
					zap.Error(err))
				mu.Lock()
				failed++
				mu.Unlock()
				report = &RunReport{CampaignID: id, ItemErrors: map[string]int{}, Error: err.Error()}
			}
			reports[i] = report
			return nil
		})
	}
	_ = g.Wait()

	p.log.Info("Recomputed all campaigns",
		zap.Int("campaigns", len(ids)),
		zap.Int("failed", failed))
	return reports, nil
}
