package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/BarkinBalci/sponsorship-attribution-service/internal/config"
	"github.com/BarkinBalci/sponsorship-attribution-service/internal/domain"
)

// ROIPublisher fans campaign ROI results out to downstream consumers
type ROIPublisher interface {
	PublishROI(ctx context.Context, rois []domain.CampaignROI) error
	Close() error
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Publisher writes one message per CampaignROI, keyed by campaign id so all
// results of a campaign land on the same partition
type Publisher struct {
	writer messageWriter
	topic  string
	log    *zap.Logger
}

// NewPublisher creates a Kafka publisher, or a no-op publisher when Kafka is disabled
func NewPublisher(cfg *config.Kafka, log *zap.Logger) (ROIPublisher, error) {
	if !cfg.Enabled {
		log.Info("Kafka ROI publisher disabled")
		return NopPublisher{}, nil
	}
	if strings.TrimSpace(cfg.Topic) == "" {
		return nil, errors.New("kafka topic must not be empty")
	}
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("at least one kafka broker is required")
	}

	writer := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Topic:                  cfg.Topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: false,
	}

	log.Info("Kafka ROI publisher initialized",
		zap.Strings("brokers", cfg.Brokers),
		zap.String("topic", cfg.Topic))

	return newPublisherWithWriter(writer, cfg.Topic, log), nil
}

func newPublisherWithWriter(writer messageWriter, topic string, log *zap.Logger) *Publisher {
	return &Publisher{writer: writer, topic: topic, log: log}
}

// PublishROI writes the ROI rows of one run in a single batch
func (p *Publisher) PublishROI(ctx context.Context, rois []domain.CampaignROI) error {
	if len(rois) == 0 {
		return nil
	}

	msgs := make([]kafka.Message, 0, len(rois))
	for _, roi := range rois {
		value, err := json.Marshal(roi)
		if err != nil {
			return fmt.Errorf("failed to marshal campaign roi: %w", err)
		}
		msgs = append(msgs, kafka.Message{
			Key:   []byte(roi.CampaignID),
			Value: value,
			Headers: []kafka.Header{
				{Key: "model", Value: []byte(roi.Model)},
				{Key: "run_id", Value: []byte(roi.RunID)},
			},
		})
	}

	if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("failed to publish campaign roi: %w", err)
	}

	p.log.Debug("Published campaign ROI",
		zap.String("topic", p.topic),
		zap.String("campaign_id", rois[0].CampaignID),
		zap.Int("messages", len(msgs)))
	return nil
}

// Close flushes and closes the underlying writer
func (p *Publisher) Close() error {
	return p.writer.Close()
}

// NopPublisher drops every result
type NopPublisher struct{}

func (NopPublisher) PublishROI(context.Context, []domain.CampaignROI) error { return nil }

func (NopPublisher) Close() error { return nil }
