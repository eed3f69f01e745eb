package consumer

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/BarkinBalci/sponsorship-attribution-service/internal/domain"
	"github.com/BarkinBalci/sponsorship-attribution-service/internal/metrics"
	"github.com/BarkinBalci/sponsorship-attribution-service/internal/repository"
)

const shutdownFlushTimeout = 10 * time.Second

// BatchWriterConfig configures the batch writer
type BatchWriterConfig struct {
	MaxBatchSize int
	FlushTimeout time.Duration
}

// BatchWriter batches envelopes and writes their events to the event store
type BatchWriter struct {
	repository repository.EventRepository
	config     BatchWriterConfig
	metrics    *metrics.Metrics
	log        *zap.Logger
}

// NewBatchWriter creates a new batch writer
func NewBatchWriter(repo repository.EventRepository, config BatchWriterConfig, m *metrics.Metrics, log *zap.Logger) *BatchWriter {
	return &BatchWriter{
		repository: repo,
		config:     config,
		metrics:    m,
		log:        log,
	}
}

// Start begins processing envelopes, batching, and writing to the repository
func (w *BatchWriter) Start(ctx context.Context, in <-chan *Envelope) {
	ticker := time.NewTicker(w.config.FlushTimeout)
	defer ticker.Stop()

	batch := make([]*Envelope, 0, w.config.MaxBatchSize)
	flush := func(reason string) {
		if len(batch) == 0 {
			return
		}
		w.log.Info("Flushing batch",
			zap.String("reason", reason),
			zap.Int("envelope_count", len(batch)))
		w.processBatch(ctx, batch)
		batch = make([]*Envelope, 0, w.config.MaxBatchSize)
	}

	for {
		select {
		case <-ctx.Done():
			w.log.Info("Batch writer shutting down")
			// the parent context is gone; give the final flush its own deadline
			flushCtx, cancel := context.WithTimeout(context.Background(), shutdownFlushTimeout)
			w.processBatch(flushCtx, batch)
			cancel()
			return

		case envelope, ok := <-in:
			if !ok {
				w.log.Info("Batch writer input channel closed")
				flush("input_closed")
				return
			}

			batch = append(batch, envelope)
			if len(batch) >= w.config.MaxBatchSize {
				flush("size")
				ticker.Reset(w.config.FlushTimeout)
			}

		case <-ticker.C:
			flush("timeout")
		}
	}
}

// processBatch writes the batch and acks it, or nacks every envelope so SQS
// redelivers them. A message delivered twice into one batch is written once;
// event ids are deterministic so a redelivered event replaces itself in the
// store.
func (w *BatchWriter) processBatch(ctx context.Context, envelopes []*Envelope) {
	if len(envelopes) == 0 {
		return
	}

	events := uniqueEvents(envelopes)
	if dropped := len(envelopes) - len(events); dropped > 0 {
		w.log.Debug("Collapsed redelivered events in batch", zap.Int("duplicates", dropped))
	}

	insertedCount, err := w.repository.InsertBatch(ctx, events)
	switch {
	case err != nil:
		w.log.Error("Failed to insert batch",
			zap.Error(err),
			zap.Int("event_count", len(events)))
		w.retry(ctx, envelopes)
	case insertedCount != len(events):
		w.log.Warn("Partial insert success",
			zap.Int("inserted", insertedCount),
			zap.Int("expected", len(events)))
		w.retry(ctx, envelopes)
	default:
		w.log.Info("Successfully inserted events", zap.Int("count", insertedCount))
		w.metrics.PersistedEvents(insertedCount)
		for _, env := range envelopes {
			if err := env.Ack(ctx); err != nil {
				w.log.Error("Failed to ack envelope",
					zap.String("event_id", env.Event.EventID),
					zap.Error(err))
			}
		}
	}
}

// retry returns every envelope to the queue
func (w *BatchWriter) retry(ctx context.Context, envelopes []*Envelope) {
	w.metrics.RetriedEvents(len(envelopes))
	for _, env := range envelopes {
		if err := env.Nack(ctx); err != nil {
			w.log.Error("Failed to nack envelope",
				zap.String("event_id", env.Event.EventID),
				zap.Int("receive_count", env.ReceiveCount),
				zap.Error(err))
		}
	}
}

// uniqueEvents keeps the first envelope of each event id, in batch order
func uniqueEvents(envelopes []*Envelope) []*domain.AttributionEvent {
	seen := make(map[string]bool, len(envelopes))
	events := make([]*domain.AttributionEvent, 0, len(envelopes))
	for _, env := range envelopes {
		if seen[env.Event.EventID] {
			continue
		}
		seen[env.Event.EventID] = true
		events = append(events, env.Event)
	}
	return events
}
