package sqs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"go.uber.org/zap"

	envConfig "github.com/BarkinBalci/sponsorship-attribution-service/internal/config"
	"github.com/BarkinBalci/sponsorship-attribution-service/internal/domain"
)

// Message attribute names set on every published event
const (
	AttributeCampaignID = "CampaignID"
	AttributeMethod     = "Method"
)

// Client is the ingest queue. The API publishes normalized events through it
// and the consumer receives them.
type Client struct {
	client   *sqs.Client
	queueURL string
	fifo     bool
	log      *zap.Logger
}

// NewClient creates a new SQS client. A non-empty endpoint targets a local
// emulator with static credentials.
func NewClient(ctx context.Context, sqsConfig envConfig.SQS, log *zap.Logger) (*Client, error) {
	if sqsConfig.QueueURL == "" {
		return nil, errors.New("SQS_QUEUE_URL is required")
	}

	loadOpts := []func(*config.LoadOptions) error{
		config.WithRegion(sqsConfig.Region),
	}
	var clientOpts []func(*sqs.Options)

	if sqsConfig.Endpoint != "" {
		log.Info("Using local SQS endpoint", zap.String("endpoint", sqsConfig.Endpoint))
		loadOpts = append(loadOpts,
			config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider("local", "local", "")))
		clientOpts = append(clientOpts, func(o *sqs.Options) {
			o.BaseEndpoint = aws.String(sqsConfig.Endpoint)
		})
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	c := &Client{
		client:   sqs.NewFromConfig(awsCfg, clientOpts...),
		queueURL: sqsConfig.QueueURL,
		fifo:     strings.HasSuffix(sqsConfig.QueueURL, ".fifo"),
		log:      log,
	}

	log.Info("SQS client created",
		zap.String("region", sqsConfig.Region),
		zap.String("queue_url", c.queueURL),
		zap.Bool("fifo", c.fifo))
	return c, nil
}

// ReceiveMessages receives messages from SQS
func (c *Client) ReceiveMessages(ctx context.Context, input *sqs.ReceiveMessageInput) (*sqs.ReceiveMessageOutput, error) {
	return c.client.ReceiveMessage(ctx, input)
}

// DeleteMessage deletes a message from SQS
func (c *Client) DeleteMessage(ctx context.Context, input *sqs.DeleteMessageInput) (*sqs.DeleteMessageOutput, error) {
	return c.client.DeleteMessage(ctx, input)
}

// ChangeMessageVisibility changes the visibility timeout of a received message
func (c *Client) ChangeMessageVisibility(ctx context.Context, input *sqs.ChangeMessageVisibilityInput) (*sqs.ChangeMessageVisibilityOutput, error) {
	return c.client.ChangeMessageVisibility(ctx, input)
}

// QueueURL returns the configured queue URL
func (c *Client) QueueURL() string {
	return c.queueURL
}

// PublishEvent sends a normalized event to the ingest queue
func (c *Client) PublishEvent(ctx context.Context, event *domain.AttributionEvent) error {
	input, err := sendInput(c.queueURL, c.fifo, event)
	if err != nil {
		c.log.Error("Failed to marshal event",
			zap.String("event_id", event.EventID),
			zap.String("campaign_id", event.CampaignID),
			zap.Error(err))
		return err
	}

	if _, err := c.client.SendMessage(ctx, input); err != nil {
		c.log.Error("Failed to send message to SQS",
			zap.String("event_id", event.EventID),
			zap.String("campaign_id", event.CampaignID),
			zap.Error(err))
		return fmt.Errorf("failed to send message to SQS: %w", err)
	}

	c.log.Debug("Event published to SQS",
		zap.String("event_id", event.EventID),
		zap.String("campaign_id", event.CampaignID),
		zap.String("method", string(event.Method)))
	return nil
}

// sendInput builds the SendMessage request for an event. FIFO queues order
// events per campaign and drop resends of the same event id.
func sendInput(queueURL string, fifo bool, event *domain.AttributionEvent) (*sqs.SendMessageInput, error) {
	body, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event: %w", err)
	}

	input := &sqs.SendMessageInput{
		QueueUrl:    aws.String(queueURL),
		MessageBody: aws.String(string(body)),
		MessageAttributes: map[string]types.MessageAttributeValue{
			AttributeCampaignID: {
				DataType:    aws.String("String"),
				StringValue: aws.String(event.CampaignID),
			},
			AttributeMethod: {
				DataType:    aws.String("String"),
				StringValue: aws.String(string(event.Method)),
			},
		},
	}
	if fifo {
		input.MessageGroupId = aws.String(event.CampaignID)
		input.MessageDeduplicationId = aws.String(event.EventID)
	}
	return input, nil
}
