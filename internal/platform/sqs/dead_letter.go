package sqs

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	sqsaws "github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"

	"github.com/chelorossi/backend-challenge/internal/task"
)

// maxBatch is the largest ReceiveMessage batch SQS allows.
const maxBatch = 10

// DeadLetterReader lists messages in the dead-letter queue. Every message it
// receives is made visible again right away, so reading never hides a dead
// letter from other readers or locks its message group. Each read still
// increments the message's ApproximateReceiveCount.
type DeadLetterReader struct {
	client   Client
	queueURL string
}

var _ task.DeadLetterReader = (*DeadLetterReader)(nil)

// NewDeadLetterReader creates a reader for the dead-letter queue at queueURL.
func NewDeadLetterReader(client Client, queueURL string) (*DeadLetterReader, error) {
	if queueURL == "" {
		return nil, fmt.Errorf("%w: dead-letter queue URL is required", ErrInvalidConfig)
	}
	return &DeadLetterReader{client: client, queueURL: queueURL}, nil
}

// ListDeadLetters implements task.DeadLetterReader. SQS sampling means a
// single call may return fewer messages than are stored. When a message
// cannot be released the letters read so far are returned together with
// the joined release errors.
func (r *DeadLetterReader) ListDeadLetters(ctx context.Context, max int) ([]task.DeadLetter, error) {
	if max <= 0 || max > maxBatch {
		max = maxBatch
	}

	out, err := r.client.ReceiveMessage(ctx, &sqsaws.ReceiveMessageInput{
		QueueUrl:            aws.String(r.queueURL),
		MaxNumberOfMessages: int32(max),
		MessageSystemAttributeNames: []types.MessageSystemAttributeName{
			types.MessageSystemAttributeNameApproximateReceiveCount,
			types.MessageSystemAttributeNameMessageGroupId,
			types.MessageSystemAttributeNameMessageDeduplicationId,
			types.MessageSystemAttributeNameSentTimestamp,
		},
	})
	if err != nil {
		return nil, classifyError(err, "receive dead letters")
	}

	var releaseErrs []error
	letters := make([]task.DeadLetter, 0, len(out.Messages))
	for _, m := range out.Messages {
		if err := r.release(ctx, m); err != nil {
			releaseErrs = append(releaseErrs, err)
		}

		d := toDelivery(m)
		letters = append(letters, task.DeadLetter{
			MessageID:      d.MessageID,
			Body:           d.Body,
			OrderingKey:    d.OrderingKey,
			DedupKey:       d.DedupKey,
			ReceiveCount:   d.ReceiveCount,
			DeadLetteredAt: sentAt(m),
		})
	}
	return letters, errors.Join(releaseErrs...)
}

// release ends the lease taken by ReceiveMessage. A zero VisibilityTimeout
// is omitted from ReceiveMessage requests, so it has to be set afterwards.
func (r *DeadLetterReader) release(ctx context.Context, m types.Message) error {
	_, err := r.client.ChangeMessageVisibility(context.WithoutCancel(ctx), &sqsaws.ChangeMessageVisibilityInput{
		QueueUrl:          aws.String(r.queueURL),
		ReceiptHandle:     m.ReceiptHandle,
		VisibilityTimeout: 0,
	})
	if err != nil {
		return classifyError(err, "release dead letter "+aws.ToString(m.MessageId))
	}
	return nil
}

// sentAt returns the original send time; SQS keeps it across redrive.
func sentAt(m types.Message) time.Time {
	raw, ok := m.Attributes[string(types.MessageSystemAttributeNameSentTimestamp)]
	if !ok {
		return time.Time{}
	}
	ms, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}
