package consumer

import (
	"context"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	awssqs "github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"go.uber.org/zap"

	"github.com/BarkinBalci/sponsorship-attribution-service/internal/queue"
)

const (
	baseRedeliveryDelaySeconds = 10
	maxRedeliveryDelaySeconds  = 300
)

// ParserStage handles parsing SQS messages into domain envelopes
type ParserStage struct {
	consumer queue.QueueConsumer
	parser   MessageParser
	log      *zap.Logger
}

// NewParserStage creates a new parser stage
func NewParserStage(consumer queue.QueueConsumer, parser MessageParser, log *zap.Logger) *ParserStage {
	return &ParserStage{
		consumer: consumer,
		parser:   parser,
		log:      log,
	}
}

// Start begins parsing messages and outputs envelopes
func (p *ParserStage) Start(ctx context.Context, in <-chan types.Message, out chan<- *Envelope) {
	defer close(out)

	for {
		select {
		case <-ctx.Done():
			p.log.Info("Parser stage shutting down")
			return
		case msg, ok := <-in:
			if !ok {
				p.log.Info("Parser stage input channel closed")
				return
			}

			envelope := p.parseMessage(ctx, msg)
			if envelope == nil {
				continue
			}

			select {
			case <-ctx.Done():
				return
			case out <- envelope:
			}
		}
	}
}

// parseMessage parses a single SQS message into an envelope. Unparseable
// messages are deleted since redelivery cannot fix them.
func (p *ParserStage) parseMessage(ctx context.Context, msg types.Message) *Envelope {
	messageID := aws.ToString(msg.MessageId)
	event, err := p.parser.Parse([]byte(aws.ToString(msg.Body)))

	if err != nil {
		p.log.Warn("Failed to parse message",
			zap.String("message_id", messageID),
			zap.Error(err))
		if err := p.deleteMessage(ctx, msg); err != nil {
			p.log.Error("Failed to delete malformed message",
				zap.String("message_id", messageID),
				zap.Error(err))
		} else {
			p.log.Info("Deleted malformed message from SQS",
				zap.String("message_id", messageID))
		}
		return nil
	}

	ack := func(ctx context.Context) error {
		return p.deleteMessage(ctx, msg)
	}

	nack := func(ctx context.Context) error {
		return p.releaseMessage(ctx, msg, redeliveryDelay(receiveCount(msg)))
	}

	envelope := NewEnvelope(event, ack, nack)
	envelope.ReceiveCount = receiveCount(msg)
	return envelope
}

// receiveCount reads ApproximateReceiveCount, defaulting to a first delivery
func receiveCount(msg types.Message) int {
	n, err := strconv.Atoi(msg.Attributes[string(types.MessageSystemAttributeNameApproximateReceiveCount)])
	if err != nil || n < 1 {
		return 1
	}
	return n
}

// redeliveryDelay is the visibility timeout applied on nack. A first failure
// is retried immediately; repeated failures back off exponentially so a store
// outage does not spin the queue.
func redeliveryDelay(receiveCount int) int32 {
	if receiveCount <= 1 {
		return 0
	}
	delay := int64(baseRedeliveryDelaySeconds) << (receiveCount - 2)
	if receiveCount > 32 || delay > maxRedeliveryDelaySeconds {
		return maxRedeliveryDelaySeconds
	}
	return int32(delay)
}

// deleteMessage deletes a message from SQS
func (p *ParserStage) deleteMessage(ctx context.Context, msg types.Message) error {
	_, err := p.consumer.DeleteMessage(ctx, &awssqs.DeleteMessageInput{
		QueueUrl:      aws.String(p.consumer.QueueURL()),
		ReceiptHandle: msg.ReceiptHandle,
	})
	if err != nil {
		p.log.Error("Failed to delete message",
			zap.String("message_id", aws.ToString(msg.MessageId)),
			zap.Error(err))
		return err
	}
	return nil
}

// releaseMessage makes a message visible again after delaySeconds
func (p *ParserStage) releaseMessage(ctx context.Context, msg types.Message, delaySeconds int32) error {
	_, err := p.consumer.ChangeMessageVisibility(ctx, &awssqs.ChangeMessageVisibilityInput{
		QueueUrl:          aws.String(p.consumer.QueueURL()),
		ReceiptHandle:     msg.ReceiptHandle,
		VisibilityTimeout: delaySeconds,
	})
	if err != nil {
		p.log.Error("Failed to release message",
			zap.String("message_id", aws.ToString(msg.MessageId)),
			zap.Int32("delay_seconds", delaySeconds),
			zap.Error(err))
		return err
	}
	p.log.Debug("Released message for redelivery",
		zap.String("message_id", aws.ToString(msg.MessageId)),
		zap.Int32("delay_seconds", delaySeconds))
	return nil
}
