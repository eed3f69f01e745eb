package consumer

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awssqs "github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"go.uber.org/zap"

	"github.com/BarkinBalci/sponsorship-attribution-service/internal/queue"
)

// ReceiverConfig configures the SQS receiver
type ReceiverConfig struct {
	MaxMessages     int32
	WaitTimeSeconds int32
	// ErrorBackoff is the first pause after a failed receive; it doubles on
	// consecutive failures up to MaxErrorBackoff
	ErrorBackoff    time.Duration
	MaxErrorBackoff time.Duration
}

// Receiver long-polls SQS and forwards messages to the parser stage
type Receiver struct {
	consumer queue.QueueConsumer
	config   ReceiverConfig
	log      *zap.Logger
}

// NewReceiver creates a new SQS receiver
func NewReceiver(consumer queue.QueueConsumer, config ReceiverConfig, log *zap.Logger) *Receiver {
	if config.ErrorBackoff <= 0 {
		config.ErrorBackoff = time.Second
	}
	if config.MaxErrorBackoff < config.ErrorBackoff {
		config.MaxErrorBackoff = 30 * config.ErrorBackoff
	}
	return &Receiver{
		consumer: consumer,
		config:   config,
		log:      log,
	}
}

// Start polls until ctx is cancelled, then closes out
func (r *Receiver) Start(ctx context.Context, out chan<- types.Message) {
	defer close(out)

	failures := 0
	for ctx.Err() == nil {
		result, err := r.consumer.ReceiveMessages(ctx, r.receiveInput())
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			failures++
			wait := r.backoff(failures)
			r.log.Error("Error receiving messages from SQS",
				zap.Int("consecutive_failures", failures),
				zap.Duration("retry_in", wait),
				zap.Error(err))
			select {
			case <-ctx.Done():
			case <-time.After(wait):
			}
			continue
		}
		failures = 0

		if len(result.Messages) == 0 {
			continue
		}
		r.log.Debug("Received messages from SQS", zap.Int("message_count", len(result.Messages)))

		for _, msg := range result.Messages {
			select {
			case <-ctx.Done():
				r.log.Info("Receiver shutting down with undelivered messages")
				return
			case out <- msg:
			}
		}
	}
	r.log.Info("Receiver shutting down")
}

func (r *Receiver) receiveInput() *awssqs.ReceiveMessageInput {
	return &awssqs.ReceiveMessageInput{
		QueueUrl:              aws.String(r.consumer.QueueURL()),
		MaxNumberOfMessages:   r.config.MaxMessages,
		WaitTimeSeconds:       r.config.WaitTimeSeconds,
		MessageAttributeNames: []string{"All"},
		MessageSystemAttributeNames: []types.MessageSystemAttributeName{
			types.MessageSystemAttributeNameApproximateReceiveCount,
		},
	}
}

func (r *Receiver) backoff(failures int) time.Duration {
	wait := r.config.ErrorBackoff
	for i := 1; i < failures && wait < r.config.MaxErrorBackoff; i++ {
		wait *= 2
	}
	if wait > r.config.MaxErrorBackoff {
		wait = r.config.MaxErrorBackoff
	}
	return wait
}
