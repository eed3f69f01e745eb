package consumer

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/BarkinBalci/sponsorship-attribution-service/internal/config"
	"github.com/BarkinBalci/sponsorship-attribution-service/internal/metrics"
	"github.com/BarkinBalci/sponsorship-attribution-service/internal/queue"
	"github.com/BarkinBalci/sponsorship-attribution-service/internal/repository"
)

// SQS caps a single receive at 10 messages and a long poll at 20 seconds
const (
	maxReceiveMessages = 10
	maxReceiveWait     = 20
)

// Consumer moves normalized attribution events from SQS into the event store
// through a receiver -> parser -> batch writer pipeline
type Consumer struct {
	receiver    *Receiver
	parser      *ParserStage
	batchWriter *BatchWriter
	bufferSize  int
	log         *zap.Logger
}

// NewConsumer wires the pipeline stages from the consumer configuration
func NewConsumer(cfg *config.Config, queueConsumer queue.QueueConsumer, repo repository.EventRepository, m *metrics.Metrics, log *zap.Logger) *Consumer {
	receiverCfg, writerCfg := stageConfigs(&cfg.Consumer)

	return &Consumer{
		receiver:    NewReceiver(queueConsumer, receiverCfg, log),
		parser:      NewParserStage(queueConsumer, NewJSONEventParser(), log),
		batchWriter: NewBatchWriter(repo, writerCfg, m, log),
		bufferSize:  writerCfg.MaxBatchSize,
		log:         log,
	}
}

// stageConfigs clamps the configured sizes to what SQS accepts
func stageConfigs(cfg *config.Consumer) (ReceiverConfig, BatchWriterConfig) {
	receiver := ReceiverConfig{
		MaxMessages:     cfg.ReceiveMaxMessages,
		WaitTimeSeconds: cfg.ReceiveWaitSec,
	}
	if receiver.MaxMessages <= 0 || receiver.MaxMessages > maxReceiveMessages {
		receiver.MaxMessages = maxReceiveMessages
	}
	if receiver.WaitTimeSeconds < 0 || receiver.WaitTimeSeconds > maxReceiveWait {
		receiver.WaitTimeSeconds = maxReceiveWait
	}

	writer := BatchWriterConfig{
		MaxBatchSize: cfg.BatchSizeMax,
		FlushTimeout: time.Duration(cfg.BatchTimeoutSec) * time.Second,
	}
	if writer.MaxBatchSize <= 0 {
		writer.MaxBatchSize = 1000
	}
	if writer.FlushTimeout <= 0 {
		writer.FlushTimeout = 10 * time.Second
	}
	return receiver, writer
}

// Start runs the pipeline until ctx is cancelled and every stage has drained.
// Each stage closes its output when it stops, so shutdown cascades from the
// receiver to the batch writer's final flush.
func (c *Consumer) Start(ctx context.Context) error {
	bufferSize := c.bufferSize
	if bufferSize <= 0 {
		bufferSize = 100
	}
	messages := make(chan types.Message, bufferSize)
	envelopes := make(chan *Envelope, bufferSize)

	var g errgroup.Group
	g.Go(func() error {
		c.receiver.Start(ctx, messages)
		return nil
	})
	g.Go(func() error {
		c.parser.Start(ctx, messages, envelopes)
		return nil
	})
	g.Go(func() error {
		c.batchWriter.Start(ctx, envelopes)
		return nil
	})

	err := g.Wait()
	c.log.Info("Consumer pipeline drained")
	return err
}
