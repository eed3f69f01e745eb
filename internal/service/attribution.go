package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/BarkinBalci/sponsorship-attribution-service/internal/domain"
	"github.com/BarkinBalci/sponsorship-attribution-service/internal/metrics"
	"github.com/BarkinBalci/sponsorship-attribution-service/internal/normalizer"
	"github.com/BarkinBalci/sponsorship-attribution-service/internal/pipeline"
	"github.com/BarkinBalci/sponsorship-attribution-service/internal/queue"
	"github.com/BarkinBalci/sponsorship-attribution-service/internal/repository"
)

// ErrModelNotEnabled is returned for ROI reads of a model the pipeline does not compute
var ErrModelNotEnabled = errors.New("attribution model is not enabled")

// IngestResult is the outcome of one event of a bulk submission
type IngestResult struct {
	Index int
	Event *domain.AttributionEvent
	Err   error
}

// Dependencies groups the collaborators of AttributionService
type Dependencies struct {
	Normalizer EventNormalizer
	Publisher  queue.QueuePublisher
	ROIs       ROIReader
	Pipeline   Recomputer
	Checks     map[string]Pinger
}

// AttributionService represents the attribution service
type AttributionService struct {
	deps      Dependencies
	staleness time.Duration
	flight    singleflight.Group
	metrics   *metrics.Metrics
	log       *zap.Logger
	now       func() time.Time
}

// NewAttributionService creates a new attribution service. Stored ROI older
// than staleness is recomputed on read.
func NewAttributionService(deps Dependencies, staleness time.Duration, m *metrics.Metrics, log *zap.Logger) *AttributionService {
	return &AttributionService{
		deps:      deps,
		staleness: staleness,
		metrics:   m,
		log:       log,
		now:       time.Now,
	}
}

// IngestEvent normalizes an event and publishes it to the ingest queue. When
// publishing fails the dedup claim is released so the sender can retry.
func (s *AttributionService) IngestEvent(ctx context.Context, raw *normalizer.RawEvent) (*domain.AttributionEvent, error) {
	method := string(raw.Method)

	event, err := s.deps.Normalizer.Normalize(ctx, raw)
	if err != nil {
		s.metrics.IngestedEvent(method, ingestOutcome(err))
		return nil, err
	}

	if err := s.deps.Publisher.PublishEvent(ctx, event); err != nil {
		if releaseErr := s.deps.Normalizer.Release(ctx, event); releaseErr != nil {
			s.log.Error("Failed to release dedup claim",
				zap.String("event_id", event.EventID),
				zap.Error(releaseErr))
		}
		s.metrics.IngestedEvent(method, metrics.OutcomeError)
		return nil, fmt.Errorf("failed to publish event to queue: %w", err)
	}

	s.metrics.IngestedEvent(method, metrics.OutcomeAccepted)
	return event, nil
}

// IngestBulk ingests every event independently and reports each outcome
func (s *AttributionService) IngestBulk(ctx context.Context, raws []normalizer.RawEvent) []IngestResult {
	results := make([]IngestResult, 0, len(raws))
	for i := range raws {
		event, err := s.IngestEvent(ctx, &raws[i])
		if err != nil {
			s.log.Warn("Failed to ingest event in bulk",
				zap.Int("index", i),
				zap.String("campaign_id", raws[i].CampaignID),
				zap.Error(err))
		}
		results = append(results, IngestResult{Index: i, Event: event, Err: err})
	}
	return results
}

// GetCampaignROI serves the stored ROI while it is fresh and recomputes the
// campaign otherwise. Concurrent reads of one stale campaign share a single
// recompute. A stale result is still served when the recompute fails.
func (s *AttributionService) GetCampaignROI(ctx context.Context, campaignID string, model domain.Model) (*domain.CampaignROI, error) {
	if !s.modelEnabled(model) {
		return nil, fmt.Errorf("%w: %s", ErrModelNotEnabled, model)
	}

	stored, err := s.deps.ROIs.GetCampaignROI(ctx, campaignID, model)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("failed to read campaign roi: %w", err)
	}
	if stored != nil && s.now().Sub(stored.ComputedAt) <= s.staleness {
		s.metrics.ROIRead(metrics.SourceStore)
		return stored, nil
	}

	if _, err := s.recomputeShared(ctx, campaignID); err != nil {
		if stored != nil {
			s.log.Warn("Recompute failed, serving stale campaign ROI",
				zap.String("campaign_id", campaignID),
				zap.Time("computed_at", stored.ComputedAt),
				zap.Error(err))
			s.metrics.ROIRead(metrics.SourceStore)
			return stored, nil
		}
		return nil, err
	}

	fresh, err := s.deps.ROIs.GetCampaignROI(ctx, campaignID, model)
	if err != nil {
		return nil, fmt.Errorf("failed to read recomputed campaign roi: %w", err)
	}
	s.metrics.ROIRead(metrics.SourceRecompute)
	return fresh, nil
}

// recomputeShared collapses concurrent recomputes of one campaign. The run is
// detached from the caller's cancellation since other readers may wait on it.
func (s *AttributionService) recomputeShared(ctx context.Context, campaignID string) (*pipeline.RunReport, error) {
	v, err, shared := s.flight.Do(campaignID, func() (interface{}, error) {
		return s.deps.Pipeline.Run(context.WithoutCancel(ctx), campaignID)
	})
	if shared {
		s.log.Debug("Joined in-flight recompute", zap.String("campaign_id", campaignID))
	}
	if err != nil {
		return nil, err
	}
	return v.(*pipeline.RunReport), nil
}

// Recompute runs the pipeline for one campaign
func (s *AttributionService) Recompute(ctx context.Context, campaignID string) (*pipeline.RunReport, error) {
	return s.recomputeShared(ctx, campaignID)
}

// RecomputeAll runs the pipeline for every registered campaign
func (s *AttributionService) RecomputeAll(ctx context.Context) ([]*pipeline.RunReport, error) {
	return s.deps.Pipeline.RunAll(ctx)
}

// Health pings every registered dependency; a nil error means healthy
func (s *AttributionService) Health(ctx context.Context) map[string]error {
	out := make(map[string]error, len(s.deps.Checks))
	for name, p := range s.deps.Checks {
		out[name] = p.Ping(ctx)
	}
	return out
}

func (s *AttributionService) modelEnabled(model domain.Model) bool {
	for _, m := range s.deps.Pipeline.Models() {
		if m == model {
			return true
		}
	}
	return false
}

func ingestOutcome(err error) string {
	var malformed *normalizer.MalformedEventError
	var unknown *normalizer.UnknownCampaignError
	var duplicate *normalizer.DuplicateEventError
	switch {
	case errors.As(err, &malformed):
		return metrics.OutcomeMalformed
	case errors.As(err, &unknown):
		return metrics.OutcomeUnknownCampaign
	case errors.As(err, &duplicate):
		return metrics.OutcomeDuplicate
	default:
		return metrics.OutcomeError
	}
}
