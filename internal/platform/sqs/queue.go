package sqs

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	sqsaws "github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/google/uuid"

	"github.com/chelorossi/backend-challenge/internal/task"
)

// TaskIDAttribute is the message attribute carrying the task ID.
const TaskIDAttribute = "task_id"

// Limits imposed by SQS.
const (
	maxWaitTime          = 20 * time.Second
	maxVisibilityTimeout = 12 * time.Hour
)

// receiveLatency bounds the time between SQS starting a message's visibility
// timeout and the ReceiveMessage response arriving.
const receiveLatency = time.Second

// QueueConfig contains the settings for a Queue.
type QueueConfig struct {
	QueueURL string

	// VisibilityTimeout is requested on every receive; zero uses the
	// queue's own setting
	VisibilityTimeout time.Duration

	// WaitTime is the long-poll duration, capped at 20s
	WaitTime time.Duration
}

// Queue implements task.OrderedQueue on an SQS FIFO queue.
type Queue struct {
	client Client
	config QueueConfig
	logger *slog.Logger
	now    func() time.Time
}

var _ task.OrderedQueue = (*Queue)(nil)

// NewQueue creates a Queue using client.
func NewQueue(client Client, cfg QueueConfig, logger *slog.Logger) (*Queue, error) {
	if cfg.QueueURL == "" {
		return nil, fmt.Errorf("%w: queue URL is required", ErrInvalidConfig)
	}
	if cfg.WaitTime > maxWaitTime {
		cfg.WaitTime = maxWaitTime
	}

	return &Queue{
		client: client,
		config: cfg,
		logger: logger.With("component", "sqs_queue"),
		now:    time.Now,
	}, nil
}

// Publish implements task.QueueWriter. A message without a dedup key gets a
// unique deduplication ID so it is never coalesced.
func (q *Queue) Publish(ctx context.Context, msg task.OutboundMessage) (string, error) {
	groupID := msg.OrderingKey
	if groupID == "" {
		groupID = task.DefaultOrderingKey
	}

	dedupID := msg.DedupKey
	if dedupID == "" {
		dedupID = uuid.NewString()
	}

	input := &sqsaws.SendMessageInput{
		QueueUrl:               aws.String(q.config.QueueURL),
		MessageBody:            aws.String(string(msg.Body)),
		MessageGroupId:         aws.String(groupID),
		MessageDeduplicationId: aws.String(dedupID),
	}
	if msg.TaskID != uuid.Nil {
		input.MessageAttributes = map[string]types.MessageAttributeValue{
			TaskIDAttribute: {
				DataType:    aws.String("String"),
				StringValue: aws.String(msg.TaskID.String()),
			},
		}
	}

	out, err := q.client.SendMessage(ctx, input)
	if err != nil {
		return "", classifyError(err, "send")
	}

	messageID := aws.ToString(out.MessageId)
	q.logger.DebugContext(ctx, "message sent",
		"message_id", messageID,
		"task_id", msg.TaskID,
		"ordering_key", groupID)

	return messageID, nil
}

// Receive implements task.QueueReader.
func (q *Queue) Receive(ctx context.Context) (*task.Delivery, error) {
	input := &sqsaws.ReceiveMessageInput{
		QueueUrl:            aws.String(q.config.QueueURL),
		MaxNumberOfMessages: 1,
		WaitTimeSeconds:     int32(q.config.WaitTime / time.Second),
		MessageSystemAttributeNames: []types.MessageSystemAttributeName{
			types.MessageSystemAttributeNameApproximateReceiveCount,
			types.MessageSystemAttributeNameMessageGroupId,
			types.MessageSystemAttributeNameMessageDeduplicationId,
		},
		MessageAttributeNames: []string{TaskIDAttribute},
	}
	if q.config.VisibilityTimeout > 0 {
		input.VisibilityTimeout = int32(q.config.VisibilityTimeout / time.Second)
	}

	sent := q.now()
	out, err := q.client.ReceiveMessage(ctx, input)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, classifyError(err, "receive")
	}
	if len(out.Messages) == 0 {
		return nil, task.ErrNoMessage
	}

	d := toDelivery(out.Messages[0])
	d.LeaseStartedAt = leaseStart(sent, q.now())
	return d, nil
}

// leaseStart estimates, never late, when SQS started the lease of a message
// returned by a receive call issued at sent and answered at received. Long
// polling returns as soon as a message is leased, so the lease began within
// receiveLatency of the response and not before the request.
func leaseStart(sent, received time.Time) time.Time {
	if start := received.Add(-receiveLatency); start.After(sent) {
		return start
	}
	return sent
}

// Ack implements task.QueueReader.
func (q *Queue) Ack(ctx context.Context, d *task.Delivery) error {
	_, err := q.client.DeleteMessage(ctx, &sqsaws.DeleteMessageInput{
		QueueUrl:      aws.String(q.config.QueueURL),
		ReceiptHandle: aws.String(d.ReceiptHandle),
	})
	return classifyError(err, "delete")
}

// Nack implements task.QueueReader by changing the message visibility.
func (q *Queue) Nack(ctx context.Context, d *task.Delivery, delay time.Duration) error {
	if delay < 0 {
		return nil
	}
	if delay > maxVisibilityTimeout {
		delay = maxVisibilityTimeout
	}

	_, err := q.client.ChangeMessageVisibility(ctx, &sqsaws.ChangeMessageVisibilityInput{
		QueueUrl:          aws.String(q.config.QueueURL),
		ReceiptHandle:     aws.String(d.ReceiptHandle),
		VisibilityTimeout: int32(delay / time.Second),
	})
	return classifyError(err, "change visibility")
}

func toDelivery(m types.Message) *task.Delivery {
	d := &task.Delivery{
		MessageID:     aws.ToString(m.MessageId),
		ReceiptHandle: aws.ToString(m.ReceiptHandle),
		Body:          []byte(aws.ToString(m.Body)),
		OrderingKey:   m.Attributes[string(types.MessageSystemAttributeNameMessageGroupId)],
		DedupKey:      m.Attributes[string(types.MessageSystemAttributeNameMessageDeduplicationId)],
		ReceiveCount:  1,
	}

	if raw, ok := m.Attributes[string(types.MessageSystemAttributeNameApproximateReceiveCount)]; ok {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			d.ReceiveCount = n
		}
	}

	return d
}
